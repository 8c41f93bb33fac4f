package userstore

import (
	"context"
	"fmt"

	"github.com/xraph/keep"
	"github.com/xraph/keep/store"
	"github.com/xraph/keep/user"
)

// AddToRole resolves the role named normalizedRoleName and embeds its
// current snapshot in u. It fails with keep.ErrRoleNotFound, leaving u
// unchanged, when no such role exists. Adding a role u already holds is a
// no-op.
func (s *Store) AddToRole(ctx context.Context, u *user.User, normalizedRoleName string) error {
	if err := check(ctx, u); err != nil {
		return err
	}
	if normalizedRoleName == "" {
		return keep.Invalid("normalized role name")
	}
	if s.roles == nil {
		return keep.ErrRoleFinderRequired
	}
	r, err := s.roles.FindRoleByName(ctx, normalizedRoleName)
	if err != nil {
		return fmt.Errorf("keep: add to role %s: %w", normalizedRoleName, err)
	}
	if r == nil {
		return fmt.Errorf("%w: %s", keep.ErrRoleNotFound, normalizedRoleName)
	}
	u.EnsureCollections()
	if u.RoleIndex(r.NormalizedName) >= 0 {
		return nil
	}
	u.Roles = append(u.Roles, r.Snapshot())
	return nil
}

// RemoveFromRole drops the snapshot whose normalized name is exactly
// normalizedRoleName. Any other name, including the unnormalized one,
// leaves u unchanged.
func (s *Store) RemoveFromRole(ctx context.Context, u *user.User, normalizedRoleName string) error {
	if err := check(ctx, u); err != nil {
		return err
	}
	if normalizedRoleName == "" {
		return keep.Invalid("normalized role name")
	}
	if i := u.RoleIndex(normalizedRoleName); i >= 0 {
		u.Roles = append(u.Roles[:i], u.Roles[i+1:]...)
	}
	return nil
}

// GetRoles returns the names of the roles u holds, as snapshotted.
func (s *Store) GetRoles(ctx context.Context, u *user.User) ([]string, error) {
	if err := check(ctx, u); err != nil {
		return nil, err
	}
	names := make([]string, len(u.Roles))
	for i := range u.Roles {
		names[i] = u.Roles[i].Name
	}
	return names, nil
}

// IsInRole reports whether u holds a snapshot whose normalized name is
// exactly normalizedRoleName.
func (s *Store) IsInRole(ctx context.Context, u *user.User, normalizedRoleName string) (bool, error) {
	if err := check(ctx, u); err != nil {
		return false, err
	}
	if normalizedRoleName == "" {
		return false, keep.Invalid("normalized role name")
	}
	return u.RoleIndex(normalizedRoleName) >= 0, nil
}

// FindUsersInRole returns every principal holding a snapshot whose
// normalized name is exactly normalizedRoleName.
func (s *Store) FindUsersInRole(ctx context.Context, normalizedRoleName string) ([]*user.User, error) {
	if err := keep.CheckContext(ctx); err != nil {
		return nil, err
	}
	if normalizedRoleName == "" {
		return nil, keep.Invalid("normalized role name")
	}
	q := store.NewQuery(store.KindUser).
		WhereElem("roles", store.F("normalizedName", normalizedRoleName))
	return s.findMany(ctx, "find users in role", q)
}
