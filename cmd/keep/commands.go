package main

import (
	"errors"
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/xraph/keep/claim"
	"github.com/xraph/keep/role"
	"github.com/xraph/keep/user"
)

var errNotFound = errors.New("not found")

func newMigrateCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the indexes and tables the stores need",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := s.connect(cmd.Context()); err != nil {
				return err
			}
			cols := s.cfg.keepConfig().Collections()
			if err := s.backend.Migrate(cmd.Context(), cols...); err != nil {
				return err
			}
			if getOutputFormat(cmd) == "json" {
				return printJSON(cmd.OutOrStdout(), map[string]any{"migrated": cols})
			}
			pterm.Success.WithWriter(cmd.OutOrStdout()).Printf("Migrated %v\n", cols)
			return nil
		},
	}
}

func newPingCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check database connectivity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := s.connect(cmd.Context()); err != nil {
				return err
			}
			if err := s.backend.Ping(cmd.Context()); err != nil {
				return fmt.Errorf("ping: %w", err)
			}
			if getOutputFormat(cmd) == "json" {
				return printJSON(cmd.OutOrStdout(), map[string]string{"status": "ok", "driver": s.cfg.Driver})
			}
			pterm.Success.WithWriter(cmd.OutOrStdout()).Println("Store reachable")
			return nil
		},
	}
}

func newUsersCmd(s *session) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Look up principals",
	}

	single := func(find func(*cobra.Command, []string) (*user.User, error)) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			if err := s.connect(cmd.Context()); err != nil {
				return err
			}
			u, err := find(cmd, args)
			if err != nil {
				return err
			}
			if u == nil {
				return fmt.Errorf("user %v: %w", args, errNotFound)
			}
			return printUsers(cmd, []*user.User{u})
		}
	}
	many := func(find func(*cobra.Command, []string) ([]*user.User, error)) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			if err := s.connect(cmd.Context()); err != nil {
				return err
			}
			users, err := find(cmd, args)
			if err != nil {
				return err
			}
			return printUsers(cmd, users)
		}
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "get <id>",
		Short: "Get a principal by id",
		Args:  cobra.ExactArgs(1),
		RunE: single(func(cmd *cobra.Command, args []string) (*user.User, error) {
			return s.users.FindUserByID(cmd.Context(), args[0])
		}),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "find <normalized-name>",
		Short: "Get a principal by normalized user name",
		Args:  cobra.ExactArgs(1),
		RunE: single(func(cmd *cobra.Command, args []string) (*user.User, error) {
			return s.users.FindUserByName(cmd.Context(), args[0])
		}),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "by-email <normalized-email>",
		Short: "Get a principal by normalized email",
		Args:  cobra.ExactArgs(1),
		RunE: single(func(cmd *cobra.Command, args []string) (*user.User, error) {
			return s.users.FindByEmail(cmd.Context(), args[0])
		}),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "by-login <provider> <key>",
		Short: "Get the principal linked to an external login",
		Args:  cobra.ExactArgs(2),
		RunE: single(func(cmd *cobra.Command, args []string) (*user.User, error) {
			return s.users.FindByLogin(cmd.Context(), args[0], args[1])
		}),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "by-claim <type> <value>",
		Short: "List principals holding a claim",
		Args:  cobra.ExactArgs(2),
		RunE: many(func(cmd *cobra.Command, args []string) ([]*user.User, error) {
			return s.users.FindUsersForClaim(cmd.Context(), claim.Claim{Type: args[0], Value: args[1]})
		}),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "in-role <normalized-role>",
		Short: "List principals in a role",
		Args:  cobra.ExactArgs(1),
		RunE: many(func(cmd *cobra.Command, args []string) ([]*user.User, error) {
			return s.users.FindUsersInRole(cmd.Context(), args[0])
		}),
	})
	return cmd
}

func newRolesCmd(s *session) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "roles",
		Short: "Look up roles",
	}

	single := func(find func(*cobra.Command, string) (*role.Role, error)) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			if err := s.connect(cmd.Context()); err != nil {
				return err
			}
			r, err := find(cmd, args[0])
			if err != nil {
				return err
			}
			if r == nil {
				return fmt.Errorf("role %q: %w", args[0], errNotFound)
			}
			return printRoles(cmd, []*role.Role{r})
		}
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "get <id>",
		Short: "Get a role by id",
		Args:  cobra.ExactArgs(1),
		RunE: single(func(cmd *cobra.Command, id string) (*role.Role, error) {
			return s.roles.FindRoleByID(cmd.Context(), id)
		}),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "find <normalized-name>",
		Short: "Get a role by normalized name",
		Args:  cobra.ExactArgs(1),
		RunE: single(func(cmd *cobra.Command, name string) (*role.Role, error) {
			return s.roles.FindRoleByName(cmd.Context(), name)
		}),
	})
	return cmd
}
