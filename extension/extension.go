// Package extension provides a Forge extension entry point for keep.
package extension

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/xraph/forge"
	"github.com/xraph/vessel"

	"github.com/xraph/keep"
	"github.com/xraph/keep/plugin"
	"github.com/xraph/keep/rolestore"
	"github.com/xraph/keep/store"
	"github.com/xraph/keep/userstore"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "keep"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "Document-database identity store for principals and roles"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts the keep user and role stores as a Forge extension.
type Extension struct {
	config   Config
	backend  store.Store
	users    *userstore.Store
	roles    *rolestore.Store
	registry *plugin.Registry
	logger   *slog.Logger
	keepOpts []keep.Option
	plugins  []plugin.Plugin
}

// New creates a keep Forge extension with the given options.
func New(opts ...ExtOption) *Extension {
	e := &Extension{config: DefaultConfig()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name returns the extension name.
func (e *Extension) Name() string { return ExtensionName }

// Description returns the extension description.
func (e *Extension) Description() string { return ExtensionDescription }

// Version returns the extension version.
func (e *Extension) Version() string { return ExtensionVersion }

// Dependencies returns the list of extension names this extension depends on.
func (e *Extension) Dependencies() []string { return []string{} }

// UserStore returns the principal store.
func (e *Extension) UserStore() *userstore.Store { return e.users }

// RoleStore returns the role store.
func (e *Extension) RoleStore() *rolestore.Store { return e.roles }

// Register implements [forge.Extension]. It builds both stores and
// registers them in the DI container.
func (e *Extension) Register(fapp forge.App) error {
	// Try to resolve the backend from the DI container unless one was given.
	if e.backend == nil {
		if s, err := forge.Inject[store.Store](fapp.Container()); err == nil {
			e.backend = s
		}
	}
	if err := e.build(); err != nil {
		return err
	}

	if err := vessel.Provide(fapp.Container(), func() (*userstore.Store, error) {
		return e.users, nil
	}); err != nil {
		return fmt.Errorf("keep: register user store in container: %w", err)
	}
	if err := vessel.Provide(fapp.Container(), func() (*rolestore.Store, error) {
		return e.roles, nil
	}); err != nil {
		return fmt.Errorf("keep: register role store in container: %w", err)
	}
	return nil
}

// build creates the stores over e.backend.
func (e *Extension) build() error {
	if e.backend == nil {
		return keep.ErrStoreRequired
	}
	logger := e.logger
	if logger == nil {
		logger = slog.Default()
	}

	e.registry = plugin.NewRegistry(logger)
	for _, x := range e.plugins {
		e.registry.Register(x)
	}

	opts := make([]keep.Option, 0, len(e.keepOpts)+3)
	opts = append(opts,
		keep.WithConfig(e.config.keepConfig()),
		keep.WithLogger(logger),
		keep.WithPlugins(e.registry),
	)
	// User-provided options may override the config.
	opts = append(opts, e.keepOpts...)

	roles, err := rolestore.New(e.backend, opts...)
	if err != nil {
		return fmt.Errorf("keep: create role store: %w", err)
	}
	users, err := userstore.New(e.backend, append(opts, keep.WithRoleFinder(roles))...)
	if err != nil {
		return fmt.Errorf("keep: create user store: %w", err)
	}
	e.roles, e.users = roles, users
	return nil
}

// Start runs migrations for the configured collections unless disabled.
func (e *Extension) Start(ctx context.Context) error {
	if e.users == nil {
		return errors.New("keep: extension not initialized")
	}
	if e.config.DisableMigrate {
		return nil
	}
	cols := []string{e.users.Collection()}
	if rc := e.roles.Collection(); rc != cols[0] {
		cols = append(cols, rc)
	}
	if err := e.backend.Migrate(ctx, cols...); err != nil {
		return fmt.Errorf("keep: migration failed: %w", err)
	}
	return nil
}

// Stop notifies plugins of shutdown. The backend belongs to whoever
// provided it and is left open.
func (e *Extension) Stop(ctx context.Context) error {
	if e.registry == nil {
		return nil
	}
	e.registry.EmitShutdown(ctx)
	return nil
}

// Health implements [forge.Extension].
func (e *Extension) Health(ctx context.Context) error {
	if e.backend == nil {
		return errors.New("keep: no store configured")
	}
	return e.backend.Ping(ctx)
}
