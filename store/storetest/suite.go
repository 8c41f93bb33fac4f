// Package storetest holds a behavioural suite that every store.Store
// implementation must pass. Backend packages call Run from their own tests.
package storetest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/xraph/keep"
	"github.com/xraph/keep/claim"
	"github.com/xraph/keep/role"
	"github.com/xraph/keep/rolestore"
	"github.com/xraph/keep/store"
	"github.com/xraph/keep/user"
	"github.com/xraph/keep/userstore"
)

// Factory returns an empty store. It may return the same backend for every
// call; each case writes to its own collection.
type Factory func(t *testing.T) store.Store

// Run exercises newStore against the document contract.
func Run(t *testing.T, newStore Factory) {
	cases := []struct {
		name string
		col  string
		fn   func(t *testing.T, s store.Store, col string)
	}{
		{"Lifecycle", "suite_lifecycle", testLifecycle},
		{"Partition", "suite_partition", testPartition},
		{"Query", "suite_query", testQuery},
		{"UniqueLogins", "suite_unique", testUniqueLogins},
		{"Stores", "suite_stores", testStores},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := newStore(t)
			require.NoError(t, s.Migrate(context.Background(), tc.col))
			tc.fn(t, s, tc.col)
		})
	}
}

func encodeUser(t *testing.T, u *user.User, pk string) store.Document {
	t.Helper()
	doc, err := store.EncodeUser(u, pk)
	require.NoError(t, err)
	return doc
}

func newUser(id, name string) *user.User {
	u := user.New(name)
	u.ID = id
	u.NormalizedUserName = keep.NormalizeLookup(name)
	return u
}

func decodeNames(t *testing.T, raws []bson.Raw) []string {
	t.Helper()
	names := make([]string, 0, len(raws))
	for _, raw := range raws {
		ent, err := store.Decode(raw)
		require.NoError(t, err)
		switch ent.Kind {
		case store.KindUser:
			names = append(names, ent.User.UserName)
		case store.KindRole:
			names = append(names, ent.Role.Name)
		}
	}
	return names
}

func testLifecycle(t *testing.T, s store.Store, col string) {
	ctx := context.Background()

	u := newUser("user_1", "alice")
	u.Email = "alice@example.com"
	u.Claims = append(u.Claims, claim.New("dept", "eng"))
	u.Version = 1
	doc := encodeUser(t, u, "")

	require.NoError(t, s.Insert(ctx, col, doc))
	assert.ErrorIs(t, s.Insert(ctx, col, doc), store.ErrDuplicateID)
	assert.ErrorIs(t, s.Insert(ctx, col, doc), store.ErrConflict)

	raw, err := s.Get(ctx, col, doc.Key)
	require.NoError(t, err)
	got, err := store.DecodeUser(raw)
	require.NoError(t, err)
	assert.Equal(t, u, got)

	u.UserName = "alice2"
	u.Version = 2
	require.NoError(t, s.Replace(ctx, col, encodeUser(t, u, ""), 1))
	assert.ErrorIs(t, s.Replace(ctx, col, encodeUser(t, u, ""), 1), store.ErrPreconditionFailed)

	raw, err = s.Get(ctx, col, doc.Key)
	require.NoError(t, err)
	got, err = store.DecodeUser(raw)
	require.NoError(t, err)
	assert.Equal(t, "alice2", got.UserName)
	assert.Equal(t, int64(2), got.Version)

	u.Version = 3
	require.NoError(t, s.Replace(ctx, col, encodeUser(t, u, ""), 0), "unconditional replace")

	missing := newUser("user_missing", "ghost")
	assert.ErrorIs(t, s.Replace(ctx, col, encodeUser(t, missing, ""), 0), store.ErrNotFound)

	assert.ErrorIs(t, s.Delete(ctx, col, doc.Key, 2), store.ErrPreconditionFailed)
	require.NoError(t, s.Delete(ctx, col, doc.Key, 3))
	assert.ErrorIs(t, s.Delete(ctx, col, doc.Key, 0), store.ErrNotFound)

	_, err = s.Get(ctx, col, doc.Key)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func testPartition(t *testing.T, s store.Store, col string) {
	ctx := context.Background()

	u := newUser("user_p", "pat")
	u.Version = 1
	require.NoError(t, s.Insert(ctx, col, encodeUser(t, u, "p1")))

	_, err := s.Get(ctx, col, store.Key{ID: "user_p", PartitionKey: "p2"})
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = s.Get(ctx, col, store.Key{ID: "user_p", PartitionKey: "p1"})
	require.NoError(t, err)

	assert.ErrorIs(t, s.Delete(ctx, col, store.Key{ID: "user_p", PartitionKey: "p2"}, 0), store.ErrNotFound)
	require.NoError(t, s.Delete(ctx, col, store.Key{ID: "user_p", PartitionKey: "p1"}, 0))
}

func testQuery(t *testing.T, s store.Store, col string) {
	ctx := context.Background()

	for _, name := range []string{"c", "a", "b"} {
		u := newUser("user_"+name, name)
		u.NormalizedEmail = "SHARED@EXAMPLE.COM"
		u.Version = 1
		if name != "b" {
			u.Claims = append(u.Claims, claim.New("dept", "eng"))
		}
		u.Claims = append(u.Claims, claim.New("seat", name))
		require.NoError(t, s.Insert(ctx, col, encodeUser(t, u, "")))
	}
	r := role.New("Admin")
	r.ID = "role_1"
	r.NormalizedName = "SHARED@EXAMPLE.COM"
	r.Claims = append(r.Claims, claim.New("dept", "eng"))
	r.Version = 1
	rd, err := store.EncodeRole(r, "")
	require.NoError(t, err)
	require.NoError(t, s.Insert(ctx, col, rd))

	raws, err := s.Query(ctx, col, store.NewQuery(store.KindUser).Where("normalizedEmail", "SHARED@EXAMPLE.COM"))
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a", "b"}, decodeNames(t, raws), "insertion order")

	raws, err = s.Query(ctx, col, store.NewQuery(store.KindUser).Where("normalizedEmail", "SHARED@EXAMPLE.COM").First())
	require.NoError(t, err)
	assert.Equal(t, []string{"c"}, decodeNames(t, raws))

	raws, err = s.Query(ctx, col, store.NewQuery(store.KindUser).
		WhereElem("claims", store.F("type", "dept"), store.F("value", "eng")))
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a"}, decodeNames(t, raws), "elem match skips roles and b")

	// Both fields must match within the same element.
	raws, err = s.Query(ctx, col, store.NewQuery(store.KindUser).
		WhereElem("claims", store.F("type", "dept"), store.F("value", "b")))
	require.NoError(t, err)
	assert.Empty(t, raws)

	raws, err = s.Query(ctx, col, store.NewQuery(store.KindRole).Where("normalizedName", "SHARED@EXAMPLE.COM"))
	require.NoError(t, err)
	assert.Equal(t, []string{"Admin"}, decodeNames(t, raws))

	raws, err = s.Query(ctx, col, &store.Query{})
	require.NoError(t, err)
	assert.Len(t, raws, 4, "no kind filter")

	raws, err = s.Query(ctx, col+"_empty", store.NewQuery(store.KindUser))
	require.NoError(t, err)
	assert.Empty(t, raws)
}

func testUniqueLogins(t *testing.T, s store.Store, col string) {
	ctx := context.Background()

	a := newUser("user_a", "a")
	a.Logins = append(a.Logins, user.Login{Provider: "github", ProviderKey: "1"})
	require.NoError(t, s.Insert(ctx, col, encodeUser(t, a, "")))

	b := newUser("user_b", "b")
	b.Logins = append(b.Logins, user.Login{Provider: "github", ProviderKey: "1"})
	err := s.Insert(ctx, col, encodeUser(t, b, ""))
	assert.ErrorIs(t, err, store.ErrDuplicateKey)
	assert.ErrorIs(t, err, store.ErrConflict)

	// Same key under another provider is a different login.
	b.Logins = []user.Login{{Provider: "google", ProviderKey: "1"}}
	require.NoError(t, s.Insert(ctx, col, encodeUser(t, b, "")))

	// Principals without logins never collide.
	for _, id := range []string{"user_c", "user_d"} {
		require.NoError(t, s.Insert(ctx, col, encodeUser(t, newUser(id, id), "")))
	}

	require.NoError(t, s.Replace(ctx, col, encodeUser(t, a, ""), 0), "owner keeps its login")

	b.Logins = append(b.Logins, user.Login{Provider: "github", ProviderKey: "1"})
	assert.ErrorIs(t, s.Replace(ctx, col, encodeUser(t, b, ""), 0), store.ErrDuplicateKey)

	require.NoError(t, s.Delete(ctx, col, store.Key{ID: "user_a"}, 0))
	require.NoError(t, s.Replace(ctx, col, encodeUser(t, b, ""), 0), "login freed by delete")
}

// testStores drives the user and role stores end to end over the backend.
func testStores(t *testing.T, s store.Store, col string) {
	ctx := context.Background()

	cfg := keep.DefaultConfig()
	cfg.UserCollection = col
	roles, err := rolestore.New(s, keep.WithConfig(cfg))
	require.NoError(t, err)
	users, err := userstore.New(s, keep.WithConfig(cfg), keep.WithRoleFinder(roles))
	require.NoError(t, err)

	admin := role.New("Admin")
	admin.NormalizedName = "ADMIN"
	res, err := roles.CreateRole(ctx, admin)
	require.NoError(t, err)
	require.True(t, res.Succeeded, res.String())

	alice := user.New("alice")
	alice.NormalizedUserName = "ALICE"
	alice.Email = "alice@example.com"
	alice.NormalizedEmail = "ALICE@EXAMPLE.COM"
	require.NoError(t, users.AddLogin(ctx, alice, user.Login{Provider: "github", ProviderKey: "42", DisplayName: "GitHub"}))
	require.NoError(t, users.AddClaims(ctx, alice, claim.New("dept", "eng")))
	require.NoError(t, users.AddToRole(ctx, alice, "ADMIN"))

	res, err = users.CreateUser(ctx, alice)
	require.NoError(t, err)
	require.True(t, res.Succeeded, res.String())
	assert.NotEmpty(t, alice.ID)
	assert.Equal(t, int64(1), alice.Version)

	got, err := users.FindUserByID(ctx, alice.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, alice, got)

	got, err = users.FindUserByName(ctx, "ALICE")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, alice.ID, got.ID)

	got, err = users.FindByEmail(ctx, "ALICE@EXAMPLE.COM")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, alice.ID, got.ID)

	got, err = users.FindByLogin(ctx, "github", "42")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, alice.ID, got.ID)

	found, err := users.FindUsersForClaim(ctx, claim.New("dept", "eng"))
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, alice.ID, found[0].ID)

	found, err = users.FindUsersInRole(ctx, "ADMIN")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, alice.ID, found[0].ID)

	r, err := roles.FindRoleByName(ctx, "ADMIN")
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.Equal(t, admin.ID, r.ID)

	stale, err := users.FindUserByID(ctx, alice.ID)
	require.NoError(t, err)

	alice.PhoneNumber = "555-0100"
	res, err = users.UpdateUser(ctx, alice)
	require.NoError(t, err)
	require.True(t, res.Succeeded, res.String())
	assert.Equal(t, int64(2), alice.Version)

	stale.PhoneNumber = "555-0199"
	res, err = users.UpdateUser(ctx, stale)
	require.NoError(t, err)
	require.False(t, res.Succeeded)
	assert.Equal(t, keep.CodeConcurrencyFailure, res.Errors[0].Code)

	bob := user.New("bob")
	bob.NormalizedUserName = "BOB"
	require.NoError(t, users.AddLogin(ctx, bob, user.Login{Provider: "github", ProviderKey: "42"}))
	res, err = users.CreateUser(ctx, bob)
	require.NoError(t, err)
	require.False(t, res.Succeeded)
	assert.Equal(t, keep.CodeDuplicateLogin, res.Errors[0].Code)

	res, err = users.DeleteUser(ctx, alice)
	require.NoError(t, err)
	require.True(t, res.Succeeded, res.String())

	got, err = users.FindUserByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	res, err = users.DeleteUser(ctx, alice)
	require.NoError(t, err)
	require.False(t, res.Succeeded)
	assert.Equal(t, keep.CodeUserNotFound, res.Errors[0].Code)
}
