package plugin

import (
	"context"
	"log/slog"
	"reflect"

	"github.com/xraph/keep/role"
	"github.com/xraph/keep/user"
)

// Named entry types pair a hook with the plugin name for logging.

type userCreatedEntry struct {
	name string
	hook UserCreated
}
type userUpdatedEntry struct {
	name string
	hook UserUpdated
}
type userDeletedEntry struct {
	name string
	hook UserDeleted
}
type roleCreatedEntry struct {
	name string
	hook RoleCreated
}
type roleUpdatedEntry struct {
	name string
	hook RoleUpdated
}
type roleDeletedEntry struct {
	name string
	hook RoleDeleted
}
type writeFailedEntry struct {
	name string
	hook WriteFailed
}
type shutdownEntry struct {
	name string
	hook Shutdown
}

// Registry holds registered plugins and dispatches lifecycle events.
// It type-caches plugins at registration time so emit calls iterate
// only over plugins implementing the relevant hook.
//
// A nil *Registry is valid and dispatches nothing.
type Registry struct {
	plugins []Plugin
	logger  *slog.Logger

	userCreated []userCreatedEntry
	userUpdated []userUpdatedEntry
	userDeleted []userDeletedEntry
	roleCreated []roleCreatedEntry
	roleUpdated []roleUpdatedEntry
	roleDeleted []roleDeletedEntry
	writeFailed []writeFailedEntry
	shutdown    []shutdownEntry
}

// NewRegistry creates a plugin registry with the given logger.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{logger: logger}
}

// Register adds a plugin and type-asserts it into all applicable
// hook caches. Plugins are notified in registration order. Registering a
// plugin that is already present is a no-op.
func (r *Registry) Register(p Plugin) {
	if r.has(p) {
		return
	}
	r.plugins = append(r.plugins, p)
	name := p.Name()

	if h, ok := p.(UserCreated); ok {
		r.userCreated = append(r.userCreated, userCreatedEntry{name, h})
	}
	if h, ok := p.(UserUpdated); ok {
		r.userUpdated = append(r.userUpdated, userUpdatedEntry{name, h})
	}
	if h, ok := p.(UserDeleted); ok {
		r.userDeleted = append(r.userDeleted, userDeletedEntry{name, h})
	}
	if h, ok := p.(RoleCreated); ok {
		r.roleCreated = append(r.roleCreated, roleCreatedEntry{name, h})
	}
	if h, ok := p.(RoleUpdated); ok {
		r.roleUpdated = append(r.roleUpdated, roleUpdatedEntry{name, h})
	}
	if h, ok := p.(RoleDeleted); ok {
		r.roleDeleted = append(r.roleDeleted, roleDeletedEntry{name, h})
	}
	if h, ok := p.(WriteFailed); ok {
		r.writeFailed = append(r.writeFailed, writeFailedEntry{name, h})
	}
	if h, ok := p.(Shutdown); ok {
		r.shutdown = append(r.shutdown, shutdownEntry{name, h})
	}
}

// has reports whether p is already registered. Values of incomparable
// types are never considered equal.
func (r *Registry) has(p Plugin) bool {
	t := reflect.TypeOf(p)
	if t == nil || !t.Comparable() {
		return false
	}
	for _, x := range r.plugins {
		if reflect.TypeOf(x) == t && x == p {
			return true
		}
	}
	return false
}

// Plugins returns all registered plugins.
func (r *Registry) Plugins() []Plugin {
	if r == nil {
		return nil
	}
	return r.plugins
}

// ──────────────────────────────────────────────────
// Principal event emitters
// ──────────────────────────────────────────────────

// EmitUserCreated notifies all plugins that implement UserCreated.
func (r *Registry) EmitUserCreated(ctx context.Context, u *user.User) {
	if r == nil {
		return
	}
	for _, e := range r.userCreated {
		if err := e.hook.OnUserCreated(ctx, u); err != nil {
			r.logHookError("OnUserCreated", e.name, err)
		}
	}
}

// EmitUserUpdated notifies all plugins that implement UserUpdated.
func (r *Registry) EmitUserUpdated(ctx context.Context, u *user.User) {
	if r == nil {
		return
	}
	for _, e := range r.userUpdated {
		if err := e.hook.OnUserUpdated(ctx, u); err != nil {
			r.logHookError("OnUserUpdated", e.name, err)
		}
	}
}

// EmitUserDeleted notifies all plugins that implement UserDeleted.
func (r *Registry) EmitUserDeleted(ctx context.Context, userID string) {
	if r == nil {
		return
	}
	for _, e := range r.userDeleted {
		if err := e.hook.OnUserDeleted(ctx, userID); err != nil {
			r.logHookError("OnUserDeleted", e.name, err)
		}
	}
}

// ──────────────────────────────────────────────────
// Role event emitters
// ──────────────────────────────────────────────────

// EmitRoleCreated notifies all plugins that implement RoleCreated.
func (r *Registry) EmitRoleCreated(ctx context.Context, rl *role.Role) {
	if r == nil {
		return
	}
	for _, e := range r.roleCreated {
		if err := e.hook.OnRoleCreated(ctx, rl); err != nil {
			r.logHookError("OnRoleCreated", e.name, err)
		}
	}
}

// EmitRoleUpdated notifies all plugins that implement RoleUpdated.
func (r *Registry) EmitRoleUpdated(ctx context.Context, rl *role.Role) {
	if r == nil {
		return
	}
	for _, e := range r.roleUpdated {
		if err := e.hook.OnRoleUpdated(ctx, rl); err != nil {
			r.logHookError("OnRoleUpdated", e.name, err)
		}
	}
}

// EmitRoleDeleted notifies all plugins that implement RoleDeleted.
func (r *Registry) EmitRoleDeleted(ctx context.Context, roleID string) {
	if r == nil {
		return
	}
	for _, e := range r.roleDeleted {
		if err := e.hook.OnRoleDeleted(ctx, roleID); err != nil {
			r.logHookError("OnRoleDeleted", e.name, err)
		}
	}
}

// EmitWriteFailed notifies all plugins that implement WriteFailed.
func (r *Registry) EmitWriteFailed(ctx context.Context, op, code string) {
	if r == nil {
		return
	}
	for _, e := range r.writeFailed {
		if err := e.hook.OnWriteFailed(ctx, op, code); err != nil {
			r.logHookError("OnWriteFailed", e.name, err)
		}
	}
}

// ──────────────────────────────────────────────────
// Shutdown emitter
// ──────────────────────────────────────────────────

// EmitShutdown notifies all plugins that implement Shutdown.
func (r *Registry) EmitShutdown(ctx context.Context) {
	if r == nil {
		return
	}
	for _, e := range r.shutdown {
		if err := e.hook.OnShutdown(ctx); err != nil {
			r.logHookError("OnShutdown", e.name, err)
		}
	}
}

// logHookError logs a warning when a lifecycle hook returns an error.
// Hook errors are never propagated to the caller of the write.
func (r *Registry) logHookError(hook, pluginName string, err error) {
	r.logger.Warn("plugin hook error",
		slog.String("hook", hook),
		slog.String("plugin", pluginName),
		slog.String("error", err.Error()),
	)
}
