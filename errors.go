package keep

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument is returned for a nil principal, role or empty
	// lookup key.
	ErrInvalidArgument = errors.New("keep: invalid argument")

	// ErrNotFound matches failed results for documents that no longer exist.
	ErrNotFound = errors.New("keep: not found")

	// ErrConflict matches failed results for duplicate keys and version
	// mismatches.
	ErrConflict = errors.New("keep: conflict")

	// ErrCancelled is returned when the context is done before the
	// operation starts.
	ErrCancelled = errors.New("keep: operation cancelled")

	// ErrRoleNotFound is returned by AddToRole when no role has the given
	// normalized name.
	ErrRoleNotFound = fmt.Errorf("%w: role not found", ErrInvalidArgument)

	// ErrStoreRequired is returned when a store is constructed without a
	// document backend.
	ErrStoreRequired = errors.New("keep: document store is required")

	// ErrRoleFinderRequired is returned by AddToRole on a user store built
	// without WithRoleFinder.
	ErrRoleFinderRequired = errors.New("keep: role finder is required")
)

// CheckContext returns an error wrapping ErrCancelled and the context error
// once ctx is done.
func CheckContext(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrCancelled, err)
	}
	return nil
}

// Invalid returns an ErrInvalidArgument naming the offending argument.
func Invalid(name string) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, name)
}
