// Package plugin defines the plugin system for keep.
// Plugins are notified of lifecycle events (principal created, role deleted,
// write rejected, etc.) and can react with logging, metrics or auditing.
//
// Each lifecycle hook is a separate interface so plugins opt in only
// to the events they care about.
package plugin

import (
	"context"

	"github.com/xraph/keep/role"
	"github.com/xraph/keep/user"
)

// Plugin is the base interface all plugins must implement.
type Plugin interface {
	// Name returns a unique human-readable name for the plugin.
	Name() string
}

// ──────────────────────────────────────────────────
// Principal lifecycle hooks
// ──────────────────────────────────────────────────

// UserCreated is called after a principal document is created.
type UserCreated interface {
	OnUserCreated(ctx context.Context, u *user.User) error
}

// UserUpdated is called after a principal document is replaced.
type UserUpdated interface {
	OnUserUpdated(ctx context.Context, u *user.User) error
}

// UserDeleted is called after a principal document is deleted.
type UserDeleted interface {
	OnUserDeleted(ctx context.Context, userID string) error
}

// ──────────────────────────────────────────────────
// Role lifecycle hooks
// ──────────────────────────────────────────────────

// RoleCreated is called after a role is created.
type RoleCreated interface {
	OnRoleCreated(ctx context.Context, r *role.Role) error
}

// RoleUpdated is called after a role is updated.
type RoleUpdated interface {
	OnRoleUpdated(ctx context.Context, r *role.Role) error
}

// RoleDeleted is called after a role is deleted.
type RoleDeleted interface {
	OnRoleDeleted(ctx context.Context, roleID string) error
}

// ──────────────────────────────────────────────────
// Failure hook
// ──────────────────────────────────────────────────

// WriteFailed is called when a create, update or delete comes back as a
// failed result. op is the operation ("user.create", "role.delete", ...)
// and code the result error code.
type WriteFailed interface {
	OnWriteFailed(ctx context.Context, op, code string) error
}

// ──────────────────────────────────────────────────
// Shutdown hook
// ──────────────────────────────────────────────────

// Shutdown is called during graceful shutdown.
type Shutdown interface {
	OnShutdown(ctx context.Context) error
}
