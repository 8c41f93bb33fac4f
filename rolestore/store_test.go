package rolestore

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/keep"
	"github.com/xraph/keep/claim"
	"github.com/xraph/keep/id"
	"github.com/xraph/keep/role"
	"github.com/xraph/keep/store/memory"
)

func newStore(t *testing.T, opts ...keep.Option) (*Store, *memory.Store) {
	t.Helper()
	backend := memory.New()
	s, err := New(backend, opts...)
	require.NoError(t, err)
	return s, backend
}

func newRole(name string) *role.Role {
	r := role.New(name)
	r.NormalizedName = keep.NormalizeLookup(name)
	return r
}

type recorder struct {
	created, updated []string
	deleted          []string
	failed           []string
}

func (r *recorder) Name() string { return "recorder" }
func (r *recorder) OnRoleCreated(_ context.Context, rl *role.Role) error {
	r.created = append(r.created, rl.ID)
	return nil
}
func (r *recorder) OnRoleUpdated(_ context.Context, rl *role.Role) error {
	r.updated = append(r.updated, rl.ID)
	return nil
}
func (r *recorder) OnRoleDeleted(_ context.Context, roleID string) error {
	r.deleted = append(r.deleted, roleID)
	return nil
}
func (r *recorder) OnWriteFailed(_ context.Context, op, code string) error {
	r.failed = append(r.failed, op+":"+code)
	return nil
}

func TestNewRequiresBackend(t *testing.T) {
	_, err := New(nil)
	assert.ErrorIs(t, err, keep.ErrStoreRequired)

	_, err = New(memory.New(), keep.WithConfig(keep.Config{}))
	assert.ErrorIs(t, err, keep.ErrInvalidArgument)
}

func TestCreateAndFind(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t)

	r := newRole("RoleName")
	require.NoError(t, s.AddClaim(ctx, r, claim.New("perm", "read")))

	res, err := s.CreateRole(ctx, r)
	require.NoError(t, err)
	require.True(t, res.Succeeded, res.String())
	assert.True(t, id.IsTypeID(r.ID, id.PrefixRole), r.ID)
	assert.Equal(t, int64(1), r.Version)

	got, err := s.FindRoleByID(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, r, got)

	byName, err := s.FindRoleByName(ctx, "rolename")
	require.NoError(t, err)
	require.NotNil(t, byName)
	assert.Equal(t, r.ID, byName.ID)

	// The raw name is not a lookup key.
	miss, err := s.FindRoleByName(ctx, "RoleName")
	require.NoError(t, err)
	assert.Nil(t, miss)

	none, err := s.FindRoleByID(ctx, "role_missing")
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestCreateKeepsGivenID(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t)

	r := newRole("ops")
	r.ID = "fixed"
	res, err := s.CreateRole(ctx, r)
	require.NoError(t, err)
	require.True(t, res.Succeeded)
	assert.Equal(t, "fixed", r.ID)

	dup := newRole("ops2")
	dup.ID = "fixed"
	res, err = s.CreateRole(ctx, dup)
	require.NoError(t, err)
	require.False(t, res.Succeeded)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, keep.CodeDuplicateRoleID, res.Errors[0].Code)
	assert.Equal(t, 409, res.Errors[0].Status)
	assert.ErrorIs(t, res.Err(), keep.ErrConflict)
	assert.Equal(t, int64(0), dup.Version)
}

func TestUpdateVersioning(t *testing.T) {
	ctx := context.Background()
	rec := &recorder{}
	s, _ := newStore(t, keep.WithPlugin(rec))

	r := newRole("editor")
	_, err := s.CreateRole(ctx, r)
	require.NoError(t, err)

	stale, err := s.FindRoleByID(ctx, r.ID)
	require.NoError(t, err)

	require.NoError(t, s.SetRoleName(ctx, r, "Editors"))
	res, err := s.UpdateRole(ctx, r)
	require.NoError(t, err)
	require.True(t, res.Succeeded)
	assert.Equal(t, int64(2), r.Version)

	// A copy read before the update loses.
	stale.Name = "Stale"
	res, err = s.UpdateRole(ctx, stale)
	require.NoError(t, err)
	require.False(t, res.Succeeded)
	assert.Equal(t, keep.CodeConcurrencyFailure, res.Errors[0].Code)
	assert.Equal(t, 412, res.Errors[0].Status)
	assert.Equal(t, int64(1), stale.Version)

	got, err := s.FindRoleByID(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, "Editors", got.Name)

	// Version zero compares against the stored version.
	blind := newRole("editor")
	blind.ID = r.ID
	blind.Name = "Blind"
	res, err = s.UpdateRole(ctx, blind)
	require.NoError(t, err)
	require.True(t, res.Succeeded)
	assert.Equal(t, int64(3), blind.Version)

	assert.Equal(t, []string{r.ID}, rec.created)
	assert.Equal(t, []string{r.ID, r.ID}, rec.updated)
	assert.Equal(t, []string{"role.update:ConcurrencyFailure"}, rec.failed)
}

func TestUpdateAndDeleteMissing(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t)

	ghost := newRole("ghost")
	ghost.ID = "role_ghost"

	res, err := s.UpdateRole(ctx, ghost)
	require.NoError(t, err)
	require.False(t, res.Succeeded)
	assert.Equal(t, keep.CodeRoleNotFound, res.Errors[0].Code)
	assert.ErrorIs(t, res.Err(), keep.ErrNotFound)

	res, err = s.DeleteRole(ctx, ghost)
	require.NoError(t, err)
	require.False(t, res.Succeeded)
	assert.Equal(t, keep.CodeRoleNotFound, res.Errors[0].Code)
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	rec := &recorder{}
	s, backend := newStore(t, keep.WithPlugin(rec))

	r := newRole("admin")
	_, err := s.CreateRole(ctx, r)
	require.NoError(t, err)

	stale := *r
	_, err = s.UpdateRole(ctx, r)
	require.NoError(t, err)

	res, err := s.DeleteRole(ctx, &stale)
	require.NoError(t, err)
	assert.False(t, res.Succeeded)
	assert.Equal(t, keep.CodeConcurrencyFailure, res.Errors[0].Code)

	res, err = s.DeleteRole(ctx, r)
	require.NoError(t, err)
	assert.True(t, res.Succeeded)
	assert.Equal(t, 0, backend.Len(s.Collection()))
	assert.Equal(t, []string{r.ID}, rec.deleted)
}

func TestPartitionedCollection(t *testing.T) {
	ctx := context.Background()
	cfg := keep.DefaultConfig()
	cfg.RoleCollection = "roles"
	cfg.RolePartitionKey = keep.PartitionByID
	s, backend := newStore(t, keep.WithConfig(cfg))

	r := newRole("auditor")
	_, err := s.CreateRole(ctx, r)
	require.NoError(t, err)
	assert.Equal(t, 1, backend.Len("roles"))
	assert.Equal(t, 0, backend.Len(cfg.UserCollection))

	got, err := s.FindRoleByID(ctx, r.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, r.ID, got.ID)
}

func TestClaims(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t)
	r := newRole("claims")

	a, b, c := claim.New("A", "1"), claim.New("B", "2"), claim.New("C", "3")
	for _, cl := range []claim.Claim{a, b, c} {
		require.NoError(t, s.AddClaim(ctx, r, cl))
	}
	require.NoError(t, s.RemoveClaim(ctx, r, b))

	got, err := s.GetClaims(ctx, r)
	require.NoError(t, err)
	assert.Equal(t, []claim.Claim{a, c}, got)

	// The returned list does not alias the role.
	got[0].Value = "changed"
	assert.Equal(t, "1", r.Claims[0].Value)

	assert.ErrorIs(t, s.AddClaim(ctx, r, claim.Claim{}), keep.ErrInvalidArgument)
	assert.ErrorIs(t, s.RemoveClaim(ctx, r, claim.Claim{}), keep.ErrInvalidArgument)
}

func TestAccessors(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t)
	r := newRole("Name")
	r.ID = "role_1"

	gotID, err := s.GetRoleID(ctx, r)
	require.NoError(t, err)
	assert.Equal(t, "role_1", gotID)

	require.NoError(t, s.SetNormalizedRoleName(ctx, r, "NOT-NORMALIZED"))
	n, err := s.GetNormalizedRoleName(ctx, r)
	require.NoError(t, err)
	assert.Equal(t, "NOT-NORMALIZED", n)

	name, err := s.GetRoleName(ctx, r)
	require.NoError(t, err)
	assert.Equal(t, "Name", name)
}

func TestArgumentsAndCancellation(t *testing.T) {
	ctx := context.Background()
	s, backend := newStore(t)

	_, err := s.CreateRole(ctx, nil)
	assert.ErrorIs(t, err, keep.ErrInvalidArgument)
	_, err = s.UpdateRole(ctx, nil)
	assert.ErrorIs(t, err, keep.ErrInvalidArgument)
	_, err = s.DeleteRole(ctx, role.New("x"))
	assert.ErrorIs(t, err, keep.ErrInvalidArgument)
	_, err = s.FindRoleByID(ctx, "")
	assert.ErrorIs(t, err, keep.ErrInvalidArgument)
	_, err = s.FindRoleByName(ctx, "")
	assert.ErrorIs(t, err, keep.ErrInvalidArgument)
	_, err = s.GetRoleName(ctx, nil)
	assert.ErrorIs(t, err, keep.ErrInvalidArgument)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()

	_, err = s.CreateRole(cancelled, newRole("never"))
	assert.ErrorIs(t, err, keep.ErrCancelled)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, 0, backend.Len(s.Collection()))

	// Cancellation is observed before argument validation.
	_, err = s.FindRoleByID(cancelled, "")
	assert.ErrorIs(t, err, keep.ErrCancelled)
	assert.ErrorIs(t, s.AddClaim(cancelled, newRole("x"), claim.New("a", "b")), keep.ErrCancelled)
}
