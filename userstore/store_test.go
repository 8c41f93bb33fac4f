package userstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/keep"
	"github.com/xraph/keep/claim"
	"github.com/xraph/keep/id"
	"github.com/xraph/keep/role"
	"github.com/xraph/keep/rolestore"
	"github.com/xraph/keep/store/memory"
	"github.com/xraph/keep/user"
)

type fixture struct {
	users   *Store
	roles   *rolestore.Store
	backend *memory.Store
}

func newFixture(t *testing.T, opts ...keep.Option) *fixture {
	t.Helper()
	backend := memory.New()
	roles, err := rolestore.New(backend, opts...)
	require.NoError(t, err)
	users, err := New(backend, append(opts, keep.WithRoleFinder(roles))...)
	require.NoError(t, err)
	return &fixture{users: users, roles: roles, backend: backend}
}

func newUser(name string) *user.User {
	u := user.New(name)
	u.NormalizedUserName = keep.NormalizeLookup(name)
	return u
}

func (f *fixture) createRole(t *testing.T, name string) *role.Role {
	t.Helper()
	r := role.New(name)
	r.NormalizedName = keep.NormalizeLookup(name)
	res, err := f.roles.CreateRole(context.Background(), r)
	require.NoError(t, err)
	require.True(t, res.Succeeded, res.String())
	return r
}

func (f *fixture) createUser(t *testing.T, u *user.User) {
	t.Helper()
	res, err := f.users.CreateUser(context.Background(), u)
	require.NoError(t, err)
	require.True(t, res.Succeeded, res.String())
}

type recorder struct {
	created, updated, deleted []string
	failed                    []string
}

func (r *recorder) Name() string { return "recorder" }
func (r *recorder) OnUserCreated(_ context.Context, u *user.User) error {
	r.created = append(r.created, u.ID)
	return nil
}
func (r *recorder) OnUserUpdated(_ context.Context, u *user.User) error {
	r.updated = append(r.updated, u.ID)
	return nil
}
func (r *recorder) OnUserDeleted(_ context.Context, userID string) error {
	r.deleted = append(r.deleted, userID)
	return nil
}
func (r *recorder) OnWriteFailed(_ context.Context, op, code string) error {
	r.failed = append(r.failed, op+":"+code)
	return nil
}

func TestNew(t *testing.T) {
	_, err := New(nil)
	assert.ErrorIs(t, err, keep.ErrStoreRequired)

	s, err := New(memory.New())
	require.NoError(t, err)
	assert.Equal(t, keep.DefaultUserCollection, s.Collection())
	assert.Nil(t, s.Plugins())
}

func TestCreateAssignsIDAndRoundTrips(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	admin := f.createRole(t, "Admin")
	require.NoError(t, f.roles.AddClaim(ctx, admin, claim.New("perm", "all")))

	end := time.Date(2031, 2, 3, 4, 5, 6, 0, time.UTC)
	u := newUser("Alice")
	u.Email = "Alice@Example.com"
	u.NormalizedEmail = keep.NormalizeLookup(u.Email)
	u.PasswordHash = "hash"
	u.SecurityStamp = "stamp"
	u.LockoutEnabled = true
	u.LockoutEndDate = &end
	u.AccessFailedCount = 2
	u.RecoveryCodes = []string{"a", "b"}
	require.NoError(t, f.users.AddClaims(ctx, u, claim.New("dept", "eng"), claim.New("level", "3")))
	require.NoError(t, f.users.AddLogin(ctx, u, user.Login{Provider: "github", ProviderKey: "42", DisplayName: "GitHub"}))
	require.NoError(t, f.users.AddToRole(ctx, u, "admin"))

	f.createUser(t, u)
	assert.NotEmpty(t, u.ID)
	assert.True(t, id.IsTypeID(u.ID, id.PrefixUser), u.ID)
	assert.Equal(t, int64(1), u.Version)

	got, err := f.users.FindUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, got)

	require.NotNil(t, got.LockoutEndDate)
	assert.True(t, end.Equal(*got.LockoutEndDate))
	got.LockoutEndDate, u.LockoutEndDate = nil, nil
	assert.Equal(t, u, got)
}

func TestFinders(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	alice := newUser("Alice")
	alice.NormalizedEmail = "alice@example.com"
	require.NoError(t, f.users.AddLogin(ctx, alice, user.Login{Provider: "google", ProviderKey: "g-1"}))
	f.createUser(t, alice)
	f.createUser(t, newUser("Bob"))

	byName, err := f.users.FindUserByName(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, byName)
	assert.Equal(t, alice.ID, byName.ID)

	// Lookups use the normalized field only.
	raw, err := f.users.FindUserByName(ctx, "Alice")
	require.NoError(t, err)
	assert.Nil(t, raw)

	byEmail, err := f.users.FindByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	require.NotNil(t, byEmail)
	assert.Equal(t, alice.ID, byEmail.ID)

	byLogin, err := f.users.FindByLogin(ctx, "google", "g-1")
	require.NoError(t, err)
	require.NotNil(t, byLogin)
	assert.Equal(t, alice.ID, byLogin.ID)

	for _, find := range []func() (*user.User, error){
		func() (*user.User, error) { return f.users.FindUserByID(ctx, "user_missing") },
		func() (*user.User, error) { return f.users.FindUserByName(ctx, "carol") },
		func() (*user.User, error) { return f.users.FindByEmail(ctx, "carol@example.com") },
		func() (*user.User, error) { return f.users.FindByLogin(ctx, "google", "g-2") },
	} {
		u, err := find()
		require.NoError(t, err)
		assert.Nil(t, u)
	}
}

func TestFindUserByIDIgnoresRoles(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	r := f.createRole(t, "shared")

	// Roles and principals share the default collection.
	u, err := f.users.FindUserByID(ctx, r.ID)
	require.NoError(t, err)
	assert.Nil(t, u)
}

func TestCreateDuplicates(t *testing.T) {
	ctx := context.Background()
	rec := &recorder{}
	f := newFixture(t, keep.WithPlugin(rec))

	a := newUser("a")
	a.ID = "user_a"
	require.NoError(t, f.users.AddLogin(ctx, a, user.Login{Provider: "github", ProviderKey: "1"}))
	f.createUser(t, a)

	sameID := newUser("a2")
	sameID.ID = "user_a"
	res, err := f.users.CreateUser(ctx, sameID)
	require.NoError(t, err)
	require.False(t, res.Succeeded)
	assert.Equal(t, keep.CodeDuplicateUserID, res.Errors[0].Code)
	assert.Equal(t, 409, res.Errors[0].Status)

	sameLogin := newUser("b")
	require.NoError(t, f.users.AddLogin(ctx, sameLogin, user.Login{Provider: "github", ProviderKey: "1"}))
	res, err = f.users.CreateUser(ctx, sameLogin)
	require.NoError(t, err)
	require.False(t, res.Succeeded)
	assert.Equal(t, keep.CodeDuplicateLogin, res.Errors[0].Code)
	assert.ErrorIs(t, res.Err(), keep.ErrConflict)
	assert.Equal(t, int64(0), sameLogin.Version)

	assert.Equal(t, []string{"user_a"}, rec.created)
	assert.Equal(t, []string{"user.create:DuplicateUserID", "user.create:DuplicateLogin"}, rec.failed)
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()
	rec := &recorder{}
	f := newFixture(t, keep.WithPlugin(rec))

	u := newUser("alice")
	f.createUser(t, u)

	copyA, err := f.users.FindUserByID(ctx, u.ID)
	require.NoError(t, err)
	copyB, err := f.users.FindUserByID(ctx, u.ID)
	require.NoError(t, err)

	// Mutators do not persist on their own.
	require.NoError(t, f.users.SetPhoneNumber(ctx, copyA, "+100"))
	stored, err := f.users.FindUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.PhoneNumber)

	res, err := f.users.UpdateUser(ctx, copyA)
	require.NoError(t, err)
	require.True(t, res.Succeeded)
	assert.Equal(t, int64(2), copyA.Version)

	// Disjoint change from a stale copy is detected, not clobbered.
	require.NoError(t, f.users.SetTwoFactorEnabled(ctx, copyB, true))
	res, err = f.users.UpdateUser(ctx, copyB)
	require.NoError(t, err)
	require.False(t, res.Succeeded)
	assert.Equal(t, keep.CodeConcurrencyFailure, res.Errors[0].Code)
	assert.Equal(t, "Optimistic concurrency failure, object has been modified.", res.Errors[0].Description)

	stored, err = f.users.FindUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "+100", stored.PhoneNumber)
	assert.False(t, stored.IsTwoFactorAuthEnabled)
	assert.Equal(t, int64(2), stored.Version)

	assert.Equal(t, []string{u.ID}, rec.updated)
	assert.Equal(t, []string{"user.update:ConcurrencyFailure"}, rec.failed)
}

func TestUpdateTakesLoginHeldElsewhere(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	a := newUser("a")
	require.NoError(t, f.users.AddLogin(ctx, a, user.Login{Provider: "p", ProviderKey: "k"}))
	f.createUser(t, a)
	b := newUser("b")
	f.createUser(t, b)

	require.NoError(t, f.users.AddLogin(ctx, b, user.Login{Provider: "p", ProviderKey: "k"}))
	res, err := f.users.UpdateUser(ctx, b)
	require.NoError(t, err)
	require.False(t, res.Succeeded)
	assert.Equal(t, keep.CodeDuplicateLogin, res.Errors[0].Code)
	assert.Equal(t, int64(1), b.Version)
}

func TestUpdateAndDeleteMissing(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	ghost := newUser("ghost")
	ghost.ID = "user_ghost"
	res, err := f.users.UpdateUser(ctx, ghost)
	require.NoError(t, err)
	require.False(t, res.Succeeded)
	assert.Equal(t, keep.CodeUserNotFound, res.Errors[0].Code)
	assert.Equal(t, 404, res.Errors[0].Status)

	res, err = f.users.DeleteUser(ctx, ghost)
	require.NoError(t, err)
	require.False(t, res.Succeeded)
	assert.ErrorIs(t, res.Err(), keep.ErrNotFound)
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	rec := &recorder{}
	cfg := keep.DefaultConfig()
	cfg.UserPartitionKey = keep.PartitionByID
	f := newFixture(t, keep.WithConfig(cfg), keep.WithPlugin(rec))

	u := newUser("alice")
	f.createUser(t, u)
	require.Equal(t, 1, f.backend.Len(cfg.UserCollection))

	res, err := f.users.DeleteUser(ctx, u)
	require.NoError(t, err)
	require.True(t, res.Succeeded)
	assert.Equal(t, 0, f.backend.Len(cfg.UserCollection))
	assert.Equal(t, []string{u.ID}, rec.deleted)

	got, err := f.users.FindUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestNameAccessors(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	u := user.New("x")
	u.ID = "user_1"

	require.NoError(t, f.users.SetUserName(ctx, u, "Alice"))
	require.NoError(t, f.users.SetNormalizedUserName(ctx, u, "ALICE"))

	gotID, err := f.users.GetUserID(ctx, u)
	require.NoError(t, err)
	assert.Equal(t, "user_1", gotID)
	name, err := f.users.GetUserName(ctx, u)
	require.NoError(t, err)
	assert.Equal(t, "Alice", name)
	norm, err := f.users.GetNormalizedUserName(ctx, u)
	require.NoError(t, err)
	assert.Equal(t, "ALICE", norm)
}

func TestArgumentsAndCancellation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.users.CreateUser(ctx, nil)
	assert.ErrorIs(t, err, keep.ErrInvalidArgument)
	_, err = f.users.UpdateUser(ctx, user.New("no-id"))
	assert.ErrorIs(t, err, keep.ErrInvalidArgument)
	_, err = f.users.DeleteUser(ctx, nil)
	assert.ErrorIs(t, err, keep.ErrInvalidArgument)
	_, err = f.users.FindUserByID(ctx, "")
	assert.ErrorIs(t, err, keep.ErrInvalidArgument)
	_, err = f.users.FindUserByName(ctx, "")
	assert.ErrorIs(t, err, keep.ErrInvalidArgument)
	_, err = f.users.FindByEmail(ctx, "")
	assert.ErrorIs(t, err, keep.ErrInvalidArgument)
	_, err = f.users.FindByLogin(ctx, "github", "")
	assert.ErrorIs(t, err, keep.ErrInvalidArgument)
	_, err = f.users.FindUsersInRole(ctx, "")
	assert.ErrorIs(t, err, keep.ErrInvalidArgument)
	_, err = f.users.FindUsersForClaim(ctx, claim.Claim{})
	assert.ErrorIs(t, err, keep.ErrInvalidArgument)
	_, err = f.users.GetPasswordHash(ctx, nil)
	assert.ErrorIs(t, err, keep.ErrInvalidArgument)
	assert.ErrorIs(t, f.users.SetLockoutEnabled(ctx, nil, true), keep.ErrInvalidArgument)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()

	_, err = f.users.CreateUser(cancelled, newUser("never"))
	assert.ErrorIs(t, err, keep.ErrCancelled)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, f.backend.Len(f.users.Collection()))

	_, err = f.users.FindUserByID(cancelled, "")
	assert.ErrorIs(t, err, keep.ErrCancelled)
	_, err = f.users.FindUsersForClaim(cancelled, claim.New("a", "b"))
	assert.ErrorIs(t, err, keep.ErrCancelled)

	u := newUser("alice")
	assert.ErrorIs(t, f.users.SetEmail(cancelled, u, "x@y"), keep.ErrCancelled)
	assert.Empty(t, u.Email)
	_, err = f.users.IncrementAccessFailedCount(cancelled, u)
	assert.ErrorIs(t, err, keep.ErrCancelled)
	assert.Equal(t, 0, u.AccessFailedCount)
}
