package extension

import (
	"log/slog"

	"github.com/xraph/keep"
	"github.com/xraph/keep/plugin"
	"github.com/xraph/keep/store"
)

// ExtOption configures the keep Forge extension.
type ExtOption func(*Extension)

// WithStore sets the persistence backend. Without it the backend is
// resolved from the DI container.
func WithStore(s store.Store) ExtOption {
	return func(e *Extension) {
		e.backend = s
	}
}

// WithConfig sets the extension configuration.
func WithConfig(cfg Config) ExtOption {
	return func(e *Extension) {
		e.config = cfg
	}
}

// WithStoreOptions adds options passed to both stores.
func WithStoreOptions(opts ...keep.Option) ExtOption {
	return func(e *Extension) {
		e.keepOpts = append(e.keepOpts, opts...)
	}
}

// WithPlugin registers a lifecycle hook plugin.
func WithPlugin(x plugin.Plugin) ExtOption {
	return func(e *Extension) {
		e.plugins = append(e.plugins, x)
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) ExtOption {
	return func(e *Extension) {
		e.logger = l
	}
}

// WithDisableMigrate disables auto-migration on start.
func WithDisableMigrate() ExtOption {
	return func(e *Extension) {
		e.config.DisableMigrate = true
	}
}
