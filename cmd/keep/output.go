package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/xraph/keep/role"
	"github.com/xraph/keep/user"
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printUsers(cmd *cobra.Command, users []*user.User) error {
	if getOutputFormat(cmd) == "json" {
		return printJSON(cmd.OutOrStdout(), users)
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tUSERNAME\tEMAIL\tROLES\tLOGINS\tLOCKED_UNTIL")
	for _, u := range users {
		roles := make([]string, 0, len(u.Roles))
		for _, r := range u.Roles {
			roles = append(roles, r.NormalizedName)
		}
		logins := make([]string, 0, len(u.Logins))
		for _, l := range u.Logins {
			logins = append(logins, l.Provider+":"+l.ProviderKey)
		}
		locked := "-"
		if u.LockoutEndDate != nil {
			locked = u.LockoutEndDate.Format(time.RFC3339)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			u.ID, u.UserName, dash(u.Email), dash(strings.Join(roles, ", ")), dash(strings.Join(logins, ", ")), locked)
	}
	return w.Flush()
}

func printRoles(cmd *cobra.Command, roles []*role.Role) error {
	if getOutputFormat(cmd) == "json" {
		return printJSON(cmd.OutOrStdout(), roles)
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tNORMALIZED\tCLAIMS\tVERSION")
	for _, r := range roles {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\n", r.ID, r.Name, r.NormalizedName, len(r.Claims), r.Version)
	}
	return w.Flush()
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
