package userstore

import (
	"context"

	"github.com/xraph/keep"
	"github.com/xraph/keep/store"
	"github.com/xraph/keep/user"
)

// ──────────────────────────────────────────────────
// Password
// ──────────────────────────────────────────────────

// SetPasswordHash stores hash. An empty hash removes the password.
func (s *Store) SetPasswordHash(ctx context.Context, u *user.User, hash string) error {
	if err := check(ctx, u); err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (s *Store) GetPasswordHash(ctx context.Context, u *user.User) (string, error) {
	if err := check(ctx, u); err != nil {
		return "", err
	}
	return u.PasswordHash, nil
}

// HasPassword reports whether u has a non-empty password hash.
func (s *Store) HasPassword(ctx context.Context, u *user.User) (bool, error) {
	if err := check(ctx, u); err != nil {
		return false, err
	}
	return u.PasswordHash != "", nil
}

// ──────────────────────────────────────────────────
// Security stamp
// ──────────────────────────────────────────────────

func (s *Store) SetSecurityStamp(ctx context.Context, u *user.User, stamp string) error {
	if err := check(ctx, u); err != nil {
		return err
	}
	u.SecurityStamp = stamp
	return nil
}

func (s *Store) GetSecurityStamp(ctx context.Context, u *user.User) (string, error) {
	if err := check(ctx, u); err != nil {
		return "", err
	}
	return u.SecurityStamp, nil
}

// ──────────────────────────────────────────────────
// Two-factor
// ──────────────────────────────────────────────────

func (s *Store) SetTwoFactorEnabled(ctx context.Context, u *user.User, enabled bool) error {
	if err := check(ctx, u); err != nil {
		return err
	}
	u.IsTwoFactorAuthEnabled = enabled
	return nil
}

func (s *Store) GetTwoFactorEnabled(ctx context.Context, u *user.User) (bool, error) {
	if err := check(ctx, u); err != nil {
		return false, err
	}
	return u.IsTwoFactorAuthEnabled, nil
}

// ──────────────────────────────────────────────────
// Phone
// ──────────────────────────────────────────────────

func (s *Store) SetPhoneNumber(ctx context.Context, u *user.User, phone string) error {
	if err := check(ctx, u); err != nil {
		return err
	}
	u.PhoneNumber = phone
	return nil
}

func (s *Store) GetPhoneNumber(ctx context.Context, u *user.User) (string, error) {
	if err := check(ctx, u); err != nil {
		return "", err
	}
	return u.PhoneNumber, nil
}

func (s *Store) SetPhoneNumberConfirmed(ctx context.Context, u *user.User, confirmed bool) error {
	if err := check(ctx, u); err != nil {
		return err
	}
	u.IsPhoneNumberConfirmed = confirmed
	return nil
}

func (s *Store) GetPhoneNumberConfirmed(ctx context.Context, u *user.User) (bool, error) {
	if err := check(ctx, u); err != nil {
		return false, err
	}
	return u.IsPhoneNumberConfirmed, nil
}

// ──────────────────────────────────────────────────
// Email
// ──────────────────────────────────────────────────

// SetEmail stores email. NormalizedEmail is left as it is.
func (s *Store) SetEmail(ctx context.Context, u *user.User, email string) error {
	if err := check(ctx, u); err != nil {
		return err
	}
	u.Email = email
	return nil
}

func (s *Store) GetEmail(ctx context.Context, u *user.User) (string, error) {
	if err := check(ctx, u); err != nil {
		return "", err
	}
	return u.Email, nil
}

func (s *Store) SetEmailConfirmed(ctx context.Context, u *user.User, confirmed bool) error {
	if err := check(ctx, u); err != nil {
		return err
	}
	u.IsEmailConfirmed = confirmed
	return nil
}

func (s *Store) GetEmailConfirmed(ctx context.Context, u *user.User) (bool, error) {
	if err := check(ctx, u); err != nil {
		return false, err
	}
	return u.IsEmailConfirmed, nil
}

func (s *Store) GetNormalizedEmail(ctx context.Context, u *user.User) (string, error) {
	if err := check(ctx, u); err != nil {
		return "", err
	}
	return u.NormalizedEmail, nil
}

func (s *Store) SetNormalizedEmail(ctx context.Context, u *user.User, normalizedEmail string) error {
	if err := check(ctx, u); err != nil {
		return err
	}
	u.NormalizedEmail = normalizedEmail
	return nil
}

// FindByEmail returns the first principal whose normalized email is exactly
// normalizedEmail, or nil.
func (s *Store) FindByEmail(ctx context.Context, normalizedEmail string) (*user.User, error) {
	if err := keep.CheckContext(ctx); err != nil {
		return nil, err
	}
	if normalizedEmail == "" {
		return nil, keep.Invalid("normalized email")
	}
	return s.findOne(ctx, "find user by email",
		store.NewQuery(store.KindUser).Where("normalizedEmail", normalizedEmail))
}

// ──────────────────────────────────────────────────
// Authenticator key
// ──────────────────────────────────────────────────

func (s *Store) SetAuthenticatorKey(ctx context.Context, u *user.User, key string) error {
	if err := check(ctx, u); err != nil {
		return err
	}
	u.AuthenticatorKey = key
	return nil
}

func (s *Store) GetAuthenticatorKey(ctx context.Context, u *user.User) (string, error) {
	if err := check(ctx, u); err != nil {
		return "", err
	}
	return u.AuthenticatorKey, nil
}
