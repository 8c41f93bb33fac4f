package keep

import (
	"log/slog"

	"github.com/xraph/keep/plugin"
)

// Options is the resolved configuration shared by the stores.
type Options struct {
	Config  Config
	Logger  *slog.Logger
	Plugins *plugin.Registry
	Roles   RoleFinder

	plugins []plugin.Plugin
}

// Option is a functional option for the stores.
type Option func(*Options)

// WithConfig sets the collection layout.
func WithConfig(c Config) Option { return func(o *Options) { o.Config = c } }

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option { return func(o *Options) { o.Logger = l } }

// WithPlugin registers a lifecycle plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(o *Options) { o.plugins = append(o.plugins, p) }
}

// WithPlugins shares an existing registry, so several stores notify the
// same plugins. Plugins given with WithPlugin are added to it once, however
// many stores are built from the same options.
func WithPlugins(r *plugin.Registry) Option { return func(o *Options) { o.Plugins = r } }

// WithRoleFinder sets the role lookup used by the user store's AddToRole.
func WithRoleFinder(f RoleFinder) Option { return func(o *Options) { o.Roles = f } }

// NewOptions applies opts over the defaults and validates the config.
func NewOptions(opts ...Option) (Options, error) {
	o := Options{Config: DefaultConfig()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Plugins == nil && len(o.plugins) > 0 {
		o.Plugins = plugin.NewRegistry(o.Logger)
	}
	for _, p := range o.plugins {
		o.Plugins.Register(p)
	}
	o.plugins = nil
	if err := o.Config.Validate(); err != nil {
		return Options{}, err
	}
	return o, nil
}
