package userstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/keep"
	"github.com/xraph/keep/role"
	"github.com/xraph/keep/store/memory"
)

func TestAddToRole(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	r := f.createRole(t, "RoleName")
	u := newUser("alice")
	f.createUser(t, u)

	require.NoError(t, f.users.AddToRole(ctx, u, r.NormalizedName))
	require.Len(t, u.Roles, 1)
	assert.Equal(t, r.NormalizedName, u.Roles[0].NormalizedName)
	assert.Equal(t, r.ID, u.Roles[0].ID)
	assert.Zero(t, u.Roles[0].Version)

	// Adding again is a no-op.
	require.NoError(t, f.users.AddToRole(ctx, u, r.NormalizedName))
	assert.Len(t, u.Roles, 1)

	err := f.users.AddToRole(ctx, u, "NotExistantRole")
	assert.ErrorIs(t, err, keep.ErrRoleNotFound)
	assert.ErrorIs(t, err, keep.ErrInvalidArgument)
	assert.Len(t, u.Roles, 1)

	names, err := f.users.GetRoles(ctx, u)
	require.NoError(t, err)
	assert.Equal(t, []string{"RoleName"}, names)
}

func TestAddToRoleNeedsFinder(t *testing.T) {
	s, err := New(memory.New())
	require.NoError(t, err)
	err = s.AddToRole(context.Background(), newUser("a"), "admin")
	assert.ErrorIs(t, err, keep.ErrRoleFinderRequired)
}

func TestIsInRoleUsesNormalizedName(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	r := f.createRole(t, "Editors")
	u := newUser("alice")
	require.NoError(t, f.users.AddToRole(ctx, u, r.NormalizedName))

	in, err := f.users.IsInRole(ctx, u, r.NormalizedName)
	require.NoError(t, err)
	assert.True(t, in)

	require.NotEqual(t, r.Name, r.NormalizedName)
	in, err = f.users.IsInRole(ctx, u, r.Name)
	require.NoError(t, err)
	assert.False(t, in)
}

func TestRemoveFromRole(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	editors := f.createRole(t, "Editors")
	admins := f.createRole(t, "Admins")
	u := newUser("alice")
	require.NoError(t, f.users.AddToRole(ctx, u, editors.NormalizedName))
	require.NoError(t, f.users.AddToRole(ctx, u, admins.NormalizedName))

	// The unnormalized name matches nothing.
	before := append([]role.Role(nil), u.Roles...)
	require.NoError(t, f.users.RemoveFromRole(ctx, u, "Editors"))
	assert.Equal(t, before, u.Roles)

	require.NoError(t, f.users.RemoveFromRole(ctx, u, editors.NormalizedName))
	names, err := f.users.GetRoles(ctx, u)
	require.NoError(t, err)
	assert.Equal(t, []string{"Admins"}, names)
}

func TestFindUsersInRole(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	r := f.createRole(t, "Admins")

	var want []string
	for _, name := range []string{"a", "b"} {
		u := newUser(name)
		require.NoError(t, f.users.AddToRole(ctx, u, r.NormalizedName))
		f.createUser(t, u)
		want = append(want, u.ID)
	}
	f.createUser(t, newUser("c"))

	got, err := f.users.FindUsersInRole(ctx, r.NormalizedName)
	require.NoError(t, err)
	assert.Equal(t, want, userIDs(got))

	got, err = f.users.FindUsersInRole(ctx, "Admins")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRoleSnapshotsStayStale(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	r := f.createRole(t, "Ops")
	u := newUser("alice")
	require.NoError(t, f.users.AddToRole(ctx, u, r.NormalizedName))
	f.createUser(t, u)

	require.NoError(t, f.roles.SetRoleName(ctx, r, "Operations"))
	require.NoError(t, f.roles.SetNormalizedRoleName(ctx, r, "operations"))
	res, err := f.roles.UpdateRole(ctx, r)
	require.NoError(t, err)
	require.True(t, res.Succeeded)

	stored, err := f.users.FindUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ops", stored.Roles[0].Name)

	got, err := f.users.FindUsersInRole(ctx, "operations")
	require.NoError(t, err)
	assert.Empty(t, got)
	got, err = f.users.FindUsersInRole(ctx, "ops")
	require.NoError(t, err)
	assert.Len(t, got, 1)
}
