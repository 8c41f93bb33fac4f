package userstore

import (
	"context"
	"slices"

	"github.com/xraph/keep"
	"github.com/xraph/keep/store"
	"github.com/xraph/keep/user"
)

// AddLogin links login to u. A login u already holds is not added twice.
func (s *Store) AddLogin(ctx context.Context, u *user.User, login user.Login) error {
	if err := check(ctx, u); err != nil {
		return err
	}
	if login.Provider == "" || login.ProviderKey == "" {
		return keep.Invalid("login")
	}
	u.EnsureCollections()
	if u.HasLogin(login.Provider, login.ProviderKey) {
		return nil
	}
	u.Logins = append(u.Logins, login)
	return nil
}

// RemoveLogin unlinks provider/providerKey from u if present.
func (s *Store) RemoveLogin(ctx context.Context, u *user.User, provider, providerKey string) error {
	if err := check(ctx, u); err != nil {
		return err
	}
	if provider == "" || providerKey == "" {
		return keep.Invalid("login")
	}
	u.RemoveLogin(provider, providerKey)
	return nil
}

// GetLogins returns a copy of u's logins.
func (s *Store) GetLogins(ctx context.Context, u *user.User) ([]user.Login, error) {
	if err := check(ctx, u); err != nil {
		return nil, err
	}
	if u.Logins == nil {
		return []user.Login{}, nil
	}
	return slices.Clone(u.Logins), nil
}

// FindByLogin returns the principal linked to provider/providerKey, or nil.
func (s *Store) FindByLogin(ctx context.Context, provider, providerKey string) (*user.User, error) {
	if err := keep.CheckContext(ctx); err != nil {
		return nil, err
	}
	if provider == "" || providerKey == "" {
		return nil, keep.Invalid("login")
	}
	q := store.NewQuery(store.KindUser).
		WhereElem("logins", store.F("loginProvider", provider), store.F("providerKey", providerKey))
	return s.findOne(ctx, "find user by login", q)
}
