package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/xraph/keep"
	"github.com/xraph/keep/rolestore"
	"github.com/xraph/keep/store"
	"github.com/xraph/keep/store/memory"
	kmongo "github.com/xraph/keep/store/mongo"
	kpostgres "github.com/xraph/keep/store/postgres"
	ksqlite "github.com/xraph/keep/store/sqlite"
	"github.com/xraph/keep/userstore"
)

var (
	version = "dev"
	commit  = "none"
)

func execute() int {
	s := newSession()
	rootCmd := newRootCmd(s)
	err := rootCmd.Execute()
	if cerr := s.close(context.Background()); err == nil {
		err = cerr
	}
	if err != nil {
		output, _ := rootCmd.PersistentFlags().GetString("output")
		if output == "json" {
			_ = printJSON(os.Stdout, map[string]string{"error": err.Error()})
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		return 1
	}
	return 0
}

// session holds the resolved configuration and the stores opened from it.
type session struct {
	cfg     fileConfig
	logger  *slog.Logger
	backend store.Store
	users   *userstore.Store
	roles   *rolestore.Store

	// open connects a backend for cfg. Tests replace it.
	open       func(ctx context.Context, cfg fileConfig) (store.Store, func(context.Context) error, error)
	disconnect func(context.Context) error
}

func newSession() *session {
	return &session{open: openBackend}
}

func newRootCmd(s *session) *cobra.Command {
	var (
		configPath string
		driver     string
		uri        string
		database   string
		output     string
		verbose    bool
	)

	rootCmd := &cobra.Command{
		Use:           "keep",
		Short:         "Identity store operator CLI",
		Long:          "Inspect and migrate principals and roles held in a keep document store.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			path := configPath
			explicit := cmd.Flags().Changed("config")
			if !explicit {
				if v := os.Getenv("KEEP_CONFIG"); v != "" {
					path, explicit = v, true
				}
			}
			cfg, err := loadConfig(path, explicit)
			if err != nil {
				return err
			}

			// Apply precedence: flag > env > config file > default
			override := func(flag, env, val string, dst *string) {
				if cmd.Flags().Changed(flag) {
					*dst = val
				} else if v := os.Getenv(env); v != "" {
					*dst = v
				}
			}
			override("driver", "KEEP_DRIVER", driver, &cfg.Driver)
			override("uri", "KEEP_URI", uri, &cfg.URI)
			override("database", "KEEP_DATABASE", database, &cfg.Database)
			override("output", "KEEP_OUTPUT", output, &cfg.Output)
			if err := validateOutputFormat(cfg.Output); err != nil {
				return err
			}
			// Keep the flag in sync for error rendering in execute.
			_ = cmd.Root().PersistentFlags().Set("output", cfg.Output)

			level := slog.LevelWarn
			if verbose {
				level = slog.LevelDebug
			}
			s.cfg = cfg
			s.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", defaultConfigPath, "Config file")
	rootCmd.PersistentFlags().StringVar(&driver, "driver", "mongo", "Store driver (mongo, memory)")
	rootCmd.PersistentFlags().StringVar(&uri, "uri", "", "Database connection URI")
	rootCmd.PersistentFlags().StringVar(&database, "database", "", "Database name")
	rootCmd.PersistentFlags().StringVarP(&output, "output", "o", "json", "Output format (table, json)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(newMigrateCmd(s))
	rootCmd.AddCommand(newPingCmd(s))
	rootCmd.AddCommand(newUsersCmd(s))
	rootCmd.AddCommand(newRolesCmd(s))
	rootCmd.AddCommand(newNormalizeCmd())
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

// connect opens the backend and both stores once per invocation.
func (s *session) connect(ctx context.Context) error {
	if s.users != nil {
		return nil
	}
	backend, disconnect, err := s.open(ctx, s.cfg)
	if err != nil {
		return err
	}
	opts := []keep.Option{
		keep.WithConfig(s.cfg.keepConfig()),
		keep.WithLogger(s.logger),
	}
	roles, err := rolestore.New(backend, opts...)
	if err != nil {
		return err
	}
	users, err := userstore.New(backend, append(opts, keep.WithRoleFinder(roles))...)
	if err != nil {
		return err
	}
	s.backend, s.roles, s.users, s.disconnect = backend, roles, users, disconnect
	s.logger.Debug("keep: connected", slog.String("driver", s.cfg.Driver))
	return nil
}

func (s *session) close(ctx context.Context) error {
	if s.disconnect == nil {
		return nil
	}
	err := s.disconnect(ctx)
	s.disconnect = nil
	return err
}

func openBackend(ctx context.Context, cfg fileConfig) (store.Store, func(context.Context) error, error) {
	var (
		s   store.Store
		err error
	)
	switch cfg.Driver {
	case "memory":
		return memory.New(), nil, nil
	case "mongo", "":
		s, err = kmongo.Open(ctx, cfg.URI, cfg.keepConfig().Database)
	case "postgres":
		s, err = kpostgres.Open(ctx, cfg.URI)
	case "sqlite":
		s, err = ksqlite.Open(ctx, cfg.URI)
	default:
		return nil, nil, fmt.Errorf("unsupported driver %q: use 'mongo', 'postgres', 'sqlite' or 'memory'", cfg.Driver)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("connect %s: %w", cfg.Driver, err)
	}
	return s, func(context.Context) error { return s.Close() }, nil
}

func validateOutputFormat(output string) error {
	if output != "" && output != "table" && output != "json" {
		return fmt.Errorf("unsupported output format %q: use 'table' or 'json'", output)
	}
	return nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the CLI version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if getOutputFormat(cmd) == "json" {
				return printJSON(cmd.OutOrStdout(), map[string]string{
					"version": version,
					"commit":  commit,
				})
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "keep version %s (commit: %s)\n", version, commit)
			return nil
		},
	}
}

func newNormalizeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "normalize <text>",
		Short: "Print the lookup-normalized form of a name or email",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n := keep.NormalizeLookup(args[0])
			if getOutputFormat(cmd) == "json" {
				return printJSON(cmd.OutOrStdout(), map[string]string{"input": args[0], "normalized": n})
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), n)
			return nil
		},
	}
}

func getOutputFormat(cmd *cobra.Command) string {
	v, _ := cmd.Root().PersistentFlags().GetString("output")
	return v
}
