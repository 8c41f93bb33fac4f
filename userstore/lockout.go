package userstore

import (
	"context"
	"time"

	"github.com/xraph/keep/user"
)

// GetLockoutEndDate returns a copy of u's lockout end, or nil when u is not
// locked out.
func (s *Store) GetLockoutEndDate(ctx context.Context, u *user.User) (*time.Time, error) {
	if err := check(ctx, u); err != nil {
		return nil, err
	}
	if u.LockoutEndDate == nil {
		return nil, nil
	}
	t := *u.LockoutEndDate
	return &t, nil
}

// SetLockoutEndDate stores end in UTC. Nil clears the lockout.
func (s *Store) SetLockoutEndDate(ctx context.Context, u *user.User, end *time.Time) error {
	if err := check(ctx, u); err != nil {
		return err
	}
	if end == nil {
		u.LockoutEndDate = nil
		return nil
	}
	t := end.UTC()
	u.LockoutEndDate = &t
	return nil
}

// IncrementAccessFailedCount adds one failed access and returns the new
// count.
func (s *Store) IncrementAccessFailedCount(ctx context.Context, u *user.User) (int, error) {
	if err := check(ctx, u); err != nil {
		return 0, err
	}
	if u.AccessFailedCount < 0 {
		u.AccessFailedCount = 0
	}
	u.AccessFailedCount++
	return u.AccessFailedCount, nil
}

// ResetAccessFailedCount sets the failed access count to zero.
func (s *Store) ResetAccessFailedCount(ctx context.Context, u *user.User) error {
	if err := check(ctx, u); err != nil {
		return err
	}
	u.AccessFailedCount = 0
	return nil
}

func (s *Store) GetAccessFailedCount(ctx context.Context, u *user.User) (int, error) {
	if err := check(ctx, u); err != nil {
		return 0, err
	}
	return u.AccessFailedCount, nil
}

func (s *Store) GetLockoutEnabled(ctx context.Context, u *user.User) (bool, error) {
	if err := check(ctx, u); err != nil {
		return false, err
	}
	return u.LockoutEnabled, nil
}

func (s *Store) SetLockoutEnabled(ctx context.Context, u *user.User, enabled bool) error {
	if err := check(ctx, u); err != nil {
		return err
	}
	u.LockoutEnabled = enabled
	return nil
}
