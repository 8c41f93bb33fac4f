package userstore

import (
	"context"

	"github.com/xraph/keep"
	"github.com/xraph/keep/claim"
	"github.com/xraph/keep/store"
	"github.com/xraph/keep/user"
)

// GetClaims returns a copy of u's claims in insertion order.
func (s *Store) GetClaims(ctx context.Context, u *user.User) ([]claim.Claim, error) {
	if err := check(ctx, u); err != nil {
		return nil, err
	}
	return claim.Clone(u.Claims), nil
}

// AddClaims appends claims to u. Duplicates are kept.
func (s *Store) AddClaims(ctx context.Context, u *user.User, claims ...claim.Claim) error {
	if err := check(ctx, u); err != nil {
		return err
	}
	if err := validClaims(claims...); err != nil {
		return err
	}
	u.EnsureCollections()
	u.Claims = append(u.Claims, claims...)
	return nil
}

// ReplaceClaim removes the first claim equal to old and appends
// replacement. Nothing changes when u does not hold old.
func (s *Store) ReplaceClaim(ctx context.Context, u *user.User, old, replacement claim.Claim) error {
	if err := check(ctx, u); err != nil {
		return err
	}
	if err := validClaims(old, replacement); err != nil {
		return err
	}
	i := claim.IndexOf(u.Claims, old)
	if i < 0 {
		return nil
	}
	u.Claims = append(u.Claims[:i], u.Claims[i+1:]...)
	u.Claims = append(u.Claims, replacement)
	return nil
}

// RemoveClaims drops every claim of u equal to one of claims.
func (s *Store) RemoveClaims(ctx context.Context, u *user.User, claims ...claim.Claim) error {
	if err := check(ctx, u); err != nil {
		return err
	}
	if err := validClaims(claims...); err != nil {
		return err
	}
	u.EnsureCollections()
	u.Claims = claim.Remove(u.Claims, claims...)
	return nil
}

// FindUsersForClaim returns every principal holding a claim with c's type
// and value. Issuer and value type are not compared.
func (s *Store) FindUsersForClaim(ctx context.Context, c claim.Claim) ([]*user.User, error) {
	if err := keep.CheckContext(ctx); err != nil {
		return nil, err
	}
	if err := validClaims(c); err != nil {
		return nil, err
	}
	q := store.NewQuery(store.KindUser).
		WhereElem("claims", store.F("type", c.Type), store.F("value", c.Value))
	return s.findMany(ctx, "find users for claim", q)
}

func validClaims(claims ...claim.Claim) error {
	for _, c := range claims {
		if c.Type == "" {
			return keep.Invalid("claim type")
		}
	}
	return nil
}
