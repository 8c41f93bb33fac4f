// Package rolestore persists role documents through a store.Store backend.
package rolestore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/xraph/keep"
	"github.com/xraph/keep/claim"
	"github.com/xraph/keep/id"
	"github.com/xraph/keep/plugin"
	"github.com/xraph/keep/role"
	"github.com/xraph/keep/store"
)

// Compile-time interface checks.
var (
	_ keep.RoleStore      = (*Store)(nil)
	_ keep.RoleClaimStore = (*Store)(nil)
	_ keep.RoleFinder     = (*Store)(nil)
)

// Store is the role store. It is safe for concurrent use; the roles it
// hands out are not.
type Store struct {
	backend    store.Store
	config     keep.Config
	collection string
	logger     *slog.Logger
	plugins    *plugin.Registry
}

// New creates a role store over backend.
func New(backend store.Store, opts ...keep.Option) (*Store, error) {
	if backend == nil {
		return nil, keep.ErrStoreRequired
	}
	o, err := keep.NewOptions(opts...)
	if err != nil {
		return nil, err
	}
	return &Store{
		backend:    backend,
		config:     o.Config,
		collection: o.Config.RoleCollectionName(),
		logger:     o.Logger,
		plugins:    o.Plugins,
	}, nil
}

// Collection returns the collection holding role documents.
func (s *Store) Collection() string { return s.collection }

// Plugins returns the plugin registry (may be nil).
func (s *Store) Plugins() *plugin.Registry { return s.plugins }

func (s *Store) key(roleID string) store.Key {
	return store.Key{ID: roleID, PartitionKey: s.config.RolePartition(roleID)}
}

// ──────────────────────────────────────────────────
// Lifecycle
// ──────────────────────────────────────────────────

// CreateRole inserts r, assigning an id when it has none. On success r
// carries version 1.
func (s *Store) CreateRole(ctx context.Context, r *role.Role) (keep.Result, error) {
	if err := keep.CheckContext(ctx); err != nil {
		return keep.Result{}, err
	}
	if r == nil {
		return keep.Result{}, keep.Invalid("role")
	}
	if r.ID == "" {
		r.ID = id.NewRoleID().String()
	}
	r.EnsureCollections()

	next := *r
	next.Version = 1
	doc, err := store.EncodeRole(&next, s.config.RolePartition(r.ID))
	if err != nil {
		return keep.Result{}, fmt.Errorf("keep: create role: %w", err)
	}
	if err := s.backend.Insert(ctx, s.collection, doc); err != nil {
		if errors.Is(err, store.ErrConflict) {
			re := keep.Duplicate(keep.CodeDuplicateRoleID, fmt.Sprintf("Role id '%s' already exists.", r.ID))
			re.Status = store.StatusCode(err)
			return s.failed(ctx, "role.create", re), nil
		}
		return keep.Result{}, fmt.Errorf("keep: create role: %w", err)
	}
	r.Version = 1

	s.logger.Debug("keep: role created", slog.String("id", r.ID))
	s.plugins.EmitRoleCreated(ctx, r)
	return keep.Success(), nil
}

// UpdateRole replaces the stored role with r. The write is conditional on
// r.Version; a role that was never read through a store (version 0) is
// compared against whatever version is stored now.
func (s *Store) UpdateRole(ctx context.Context, r *role.Role) (keep.Result, error) {
	if err := keep.CheckContext(ctx); err != nil {
		return keep.Result{}, err
	}
	if r == nil {
		return keep.Result{}, keep.Invalid("role")
	}
	if r.ID == "" {
		return keep.Result{}, keep.Invalid("role id")
	}
	r.EnsureCollections()

	expected := r.Version
	if expected == 0 {
		raw, err := s.backend.Get(ctx, s.collection, s.key(r.ID))
		if err != nil {
			return s.writeOutcome(ctx, "role.update", err)
		}
		ent, err := store.Decode(raw)
		if err != nil {
			return keep.Result{}, fmt.Errorf("keep: update role: %w", err)
		}
		if ent.Kind != store.KindRole {
			return s.failed(ctx, "role.update", keep.RoleNotFound()), nil
		}
		expected = ent.Role.Version
	}

	next := *r
	next.Version = expected + 1
	doc, err := store.EncodeRole(&next, s.config.RolePartition(r.ID))
	if err != nil {
		return keep.Result{}, fmt.Errorf("keep: update role: %w", err)
	}
	if err := s.backend.Replace(ctx, s.collection, doc, expected); err != nil {
		return s.writeOutcome(ctx, "role.update", err)
	}
	r.Version = next.Version

	s.logger.Debug("keep: role updated", slog.String("id", r.ID), slog.Int64("version", r.Version))
	s.plugins.EmitRoleUpdated(ctx, r)
	return keep.Success(), nil
}

// DeleteRole removes the stored role, conditional on r.Version when set.
// Principals keep their snapshots of a deleted role.
func (s *Store) DeleteRole(ctx context.Context, r *role.Role) (keep.Result, error) {
	if err := keep.CheckContext(ctx); err != nil {
		return keep.Result{}, err
	}
	if r == nil {
		return keep.Result{}, keep.Invalid("role")
	}
	if r.ID == "" {
		return keep.Result{}, keep.Invalid("role id")
	}
	if err := s.backend.Delete(ctx, s.collection, s.key(r.ID), r.Version); err != nil {
		return s.writeOutcome(ctx, "role.delete", err)
	}

	s.logger.Debug("keep: role deleted", slog.String("id", r.ID))
	s.plugins.EmitRoleDeleted(ctx, r.ID)
	return keep.Success(), nil
}

// writeOutcome turns an expected backend outcome into a failed result and
// passes everything else through as an error.
func (s *Store) writeOutcome(ctx context.Context, op string, err error) (keep.Result, error) {
	var re keep.ResultError
	switch {
	case errors.Is(err, store.ErrNotFound):
		re = keep.RoleNotFound()
	case errors.Is(err, store.ErrPreconditionFailed):
		re = keep.ConcurrencyFailure()
	default:
		return keep.Result{}, fmt.Errorf("keep: %s: %w", op, err)
	}
	re.Status = store.StatusCode(err)
	return s.failed(ctx, op, re), nil
}

func (s *Store) failed(ctx context.Context, op string, re keep.ResultError) keep.Result {
	s.logger.Debug("keep: write failed", slog.String("op", op), slog.String("code", re.Code))
	s.plugins.EmitWriteFailed(ctx, op, re.Code)
	return keep.Failed(re)
}

// ──────────────────────────────────────────────────
// Finders
// ──────────────────────────────────────────────────

// FindRoleByID returns the role with roleID, or nil.
func (s *Store) FindRoleByID(ctx context.Context, roleID string) (*role.Role, error) {
	if err := keep.CheckContext(ctx); err != nil {
		return nil, err
	}
	if roleID == "" {
		return nil, keep.Invalid("role id")
	}
	raw, err := s.backend.Get(ctx, s.collection, s.key(roleID))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("keep: find role %s: %w", roleID, err)
	}
	ent, err := store.Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("keep: find role %s: %w", roleID, err)
	}
	// A shared collection may hold a principal under the same id.
	if ent.Kind != store.KindRole {
		return nil, nil
	}
	return ent.Role, nil
}

// FindRoleByName returns the first role whose normalized name is exactly
// normalizedName, or nil.
func (s *Store) FindRoleByName(ctx context.Context, normalizedName string) (*role.Role, error) {
	if err := keep.CheckContext(ctx); err != nil {
		return nil, err
	}
	if normalizedName == "" {
		return nil, keep.Invalid("normalized role name")
	}
	q := store.NewQuery(store.KindRole).Where("normalizedName", normalizedName).First()
	raws, err := s.backend.Query(ctx, s.collection, q)
	if err != nil {
		return nil, fmt.Errorf("keep: find role by name: %w", err)
	}
	if len(raws) == 0 {
		return nil, nil
	}
	r, err := store.DecodeRole(raws[0])
	if err != nil {
		return nil, fmt.Errorf("keep: find role by name: %w", err)
	}
	return r, nil
}

// ──────────────────────────────────────────────────
// Accessors (in memory)
// ──────────────────────────────────────────────────

func (s *Store) GetRoleID(ctx context.Context, r *role.Role) (string, error) {
	if err := check(ctx, r); err != nil {
		return "", err
	}
	return r.ID, nil
}

func (s *Store) GetRoleName(ctx context.Context, r *role.Role) (string, error) {
	if err := check(ctx, r); err != nil {
		return "", err
	}
	return r.Name, nil
}

func (s *Store) SetRoleName(ctx context.Context, r *role.Role, name string) error {
	if err := check(ctx, r); err != nil {
		return err
	}
	r.Name = name
	return nil
}

func (s *Store) GetNormalizedRoleName(ctx context.Context, r *role.Role) (string, error) {
	if err := check(ctx, r); err != nil {
		return "", err
	}
	return r.NormalizedName, nil
}

// SetNormalizedRoleName stores normalizedName as given. It is not checked
// against Name.
func (s *Store) SetNormalizedRoleName(ctx context.Context, r *role.Role, normalizedName string) error {
	if err := check(ctx, r); err != nil {
		return err
	}
	r.NormalizedName = normalizedName
	return nil
}

// ──────────────────────────────────────────────────
// Claims (in memory)
// ──────────────────────────────────────────────────

// GetClaims returns a copy of r's claims in insertion order.
func (s *Store) GetClaims(ctx context.Context, r *role.Role) ([]claim.Claim, error) {
	if err := check(ctx, r); err != nil {
		return nil, err
	}
	return claim.Clone(r.Claims), nil
}

// AddClaim appends c to r's claims.
func (s *Store) AddClaim(ctx context.Context, r *role.Role, c claim.Claim) error {
	if err := check(ctx, r); err != nil {
		return err
	}
	if c.Type == "" {
		return keep.Invalid("claim")
	}
	r.EnsureCollections()
	r.Claims = append(r.Claims, c)
	return nil
}

// RemoveClaim drops every claim of r equal to c.
func (s *Store) RemoveClaim(ctx context.Context, r *role.Role, c claim.Claim) error {
	if err := check(ctx, r); err != nil {
		return err
	}
	if c.Type == "" {
		return keep.Invalid("claim")
	}
	r.EnsureCollections()
	r.Claims = claim.Remove(r.Claims, c)
	return nil
}

func check(ctx context.Context, r *role.Role) error {
	if err := keep.CheckContext(ctx); err != nil {
		return err
	}
	if r == nil {
		return keep.Invalid("role")
	}
	return nil
}
