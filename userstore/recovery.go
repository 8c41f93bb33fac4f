package userstore

import (
	"context"
	"slices"

	"github.com/xraph/keep"
	"github.com/xraph/keep/user"
)

// ReplaceCodes replaces all of u's recovery codes with codes.
func (s *Store) ReplaceCodes(ctx context.Context, u *user.User, codes ...string) error {
	if err := check(ctx, u); err != nil {
		return err
	}
	if slices.Contains(codes, "") {
		return keep.Invalid("recovery code")
	}
	u.RecoveryCodes = append([]string{}, codes...)
	return nil
}

// RedeemCode removes code from u and reports whether it was there. Each
// code redeems once.
func (s *Store) RedeemCode(ctx context.Context, u *user.User, code string) (bool, error) {
	if err := check(ctx, u); err != nil {
		return false, err
	}
	if code == "" {
		return false, keep.Invalid("recovery code")
	}
	i := slices.Index(u.RecoveryCodes, code)
	if i < 0 {
		return false, nil
	}
	u.RecoveryCodes = slices.Delete(u.RecoveryCodes, i, i+1)
	return true, nil
}

// CountCodes returns how many recovery codes u has left.
func (s *Store) CountCodes(ctx context.Context, u *user.User) (int, error) {
	if err := check(ctx, u); err != nil {
		return 0, err
	}
	return len(u.RecoveryCodes), nil
}
