// Package userstore persists principal documents through a store.Store
// backend and implements every principal capability: claims, logins, role
// membership, password, security stamp, two-factor, phone, email, lockout,
// authenticator key and recovery codes.
//
// Capability methods change only the *user.User passed in. Call UpdateUser
// to write those changes; two callers updating the same principal from
// copies of the same version will see the second one fail with a
// ConcurrencyFailure result.
package userstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/xraph/keep"
	"github.com/xraph/keep/id"
	"github.com/xraph/keep/plugin"
	"github.com/xraph/keep/store"
	"github.com/xraph/keep/user"
)

// Compile-time interface checks.
var (
	_ keep.UserStore                 = (*Store)(nil)
	_ keep.UserClaimStore            = (*Store)(nil)
	_ keep.UserLoginStore            = (*Store)(nil)
	_ keep.UserRoleStore             = (*Store)(nil)
	_ keep.UserPasswordStore         = (*Store)(nil)
	_ keep.UserSecurityStampStore    = (*Store)(nil)
	_ keep.UserTwoFactorStore        = (*Store)(nil)
	_ keep.UserPhoneNumberStore      = (*Store)(nil)
	_ keep.UserEmailStore            = (*Store)(nil)
	_ keep.UserLockoutStore          = (*Store)(nil)
	_ keep.UserAuthenticatorKeyStore = (*Store)(nil)
	_ keep.UserRecoveryCodeStore     = (*Store)(nil)
)

// Store is the principal store. It is safe for concurrent use; the
// principals it hands out are not.
type Store struct {
	backend    store.Store
	config     keep.Config
	collection string
	roles      keep.RoleFinder
	logger     *slog.Logger
	plugins    *plugin.Registry
}

// New creates a principal store over backend. AddToRole needs a role
// finder, given with keep.WithRoleFinder.
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
		collection: o.Config.UserCollection,
		roles:      o.Roles,
		logger:     o.Logger,
		plugins:    o.Plugins,
	}, nil
}

// Collection returns the collection holding principal documents.
func (s *Store) Collection() string { return s.collection }

// Plugins returns the plugin registry (may be nil).
func (s *Store) Plugins() *plugin.Registry { return s.plugins }

func (s *Store) key(userID string) store.Key {
	return store.Key{ID: userID, PartitionKey: s.config.UserPartition(userID)}
}

// ──────────────────────────────────────────────────
// Lifecycle
// ──────────────────────────────────────────────────

// CreateUser inserts u, assigning an id when it has none. On success u
// carries version 1.
func (s *Store) CreateUser(ctx context.Context, u *user.User) (keep.Result, error) {
	if err := check(ctx, u); err != nil {
		return keep.Result{}, err
	}
	if u.ID == "" {
		u.ID = id.NewUserID().String()
	}
	u.EnsureCollections()

	next := *u
	next.Version = 1
	doc, err := store.EncodeUser(&next, s.config.UserPartition(u.ID))
	if err != nil {
		return keep.Result{}, fmt.Errorf("keep: create user: %w", err)
	}
	if err := s.backend.Insert(ctx, s.collection, doc); err != nil {
		return s.writeOutcome(ctx, "user.create", u, err)
	}
	u.Version = 1

	s.logger.Debug("keep: user created", slog.String("id", u.ID))
	s.plugins.EmitUserCreated(ctx, u)
	return keep.Success(), nil
}

// UpdateUser replaces the stored principal with u. The write is conditional
// on u.Version; a principal built outside a store (version 0) is compared
// against whatever version is stored now.
func (s *Store) UpdateUser(ctx context.Context, u *user.User) (keep.Result, error) {
	if err := check(ctx, u); err != nil {
		return keep.Result{}, err
	}
	if u.ID == "" {
		return keep.Result{}, keep.Invalid("user id")
	}
	u.EnsureCollections()

	expected := u.Version
	if expected == 0 {
		cur, err := s.load(ctx, u.ID)
		if err != nil {
			return s.writeOutcome(ctx, "user.update", u, err)
		}
		expected = cur.Version
	}

	next := *u
	next.Version = expected + 1
	doc, err := store.EncodeUser(&next, s.config.UserPartition(u.ID))
	if err != nil {
		return keep.Result{}, fmt.Errorf("keep: update user: %w", err)
	}
	if err := s.backend.Replace(ctx, s.collection, doc, expected); err != nil {
		return s.writeOutcome(ctx, "user.update", u, err)
	}
	u.Version = next.Version

	s.logger.Debug("keep: user updated", slog.String("id", u.ID), slog.Int64("version", u.Version))
	s.plugins.EmitUserUpdated(ctx, u)
	return keep.Success(), nil
}

// DeleteUser removes the stored principal, conditional on u.Version when
// set.
func (s *Store) DeleteUser(ctx context.Context, u *user.User) (keep.Result, error) {
	if err := check(ctx, u); err != nil {
		return keep.Result{}, err
	}
	if u.ID == "" {
		return keep.Result{}, keep.Invalid("user id")
	}
	if err := s.backend.Delete(ctx, s.collection, s.key(u.ID), u.Version); err != nil {
		return s.writeOutcome(ctx, "user.delete", u, err)
	}

	s.logger.Debug("keep: user deleted", slog.String("id", u.ID))
	s.plugins.EmitUserDeleted(ctx, u.ID)
	return keep.Success(), nil
}

// writeOutcome turns an expected backend outcome into a failed result and
// passes everything else through as an error.
func (s *Store) writeOutcome(ctx context.Context, op string, u *user.User, err error) (keep.Result, error) {
	var re keep.ResultError
	switch {
	case errors.Is(err, store.ErrNotFound):
		re = keep.UserNotFound()
	case errors.Is(err, store.ErrPreconditionFailed):
		re = keep.ConcurrencyFailure()
	case errors.Is(err, store.ErrDuplicateID):
		re = keep.Duplicate(keep.CodeDuplicateUserID, fmt.Sprintf("User id '%s' already exists.", u.ID))
	case errors.Is(err, store.ErrDuplicateKey):
		re = keep.Duplicate(keep.CodeDuplicateLogin, "A login of this user is linked to another user.")
	default:
		return keep.Result{}, fmt.Errorf("keep: %s: %w", op, err)
	}
	re.Status = store.StatusCode(err)
	s.logger.Debug("keep: write failed",
		slog.String("op", op),
		slog.String("id", u.ID),
		slog.String("code", re.Code),
	)
	s.plugins.EmitWriteFailed(ctx, op, re.Code)
	return keep.Failed(re), nil
}

// ──────────────────────────────────────────────────
// Finders
// ──────────────────────────────────────────────────

// FindUserByID returns the principal with userID, or nil.
func (s *Store) FindUserByID(ctx context.Context, userID string) (*user.User, error) {
	if err := keep.CheckContext(ctx); err != nil {
		return nil, err
	}
	if userID == "" {
		return nil, keep.Invalid("user id")
	}
	u, err := s.load(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	return u, err
}

// FindUserByName returns the principal whose normalized user name is
// exactly normalizedUserName, or nil.
func (s *Store) FindUserByName(ctx context.Context, normalizedUserName string) (*user.User, error) {
	if err := keep.CheckContext(ctx); err != nil {
		return nil, err
	}
	if normalizedUserName == "" {
		return nil, keep.Invalid("normalized user name")
	}
	return s.findOne(ctx, "find user by name",
		store.NewQuery(store.KindUser).Where("normalizedUserName", normalizedUserName))
}

// load reads and decodes the principal at userID. A document of another
// kind under the same id reads as store.ErrNotFound.
func (s *Store) load(ctx context.Context, userID string) (*user.User, error) {
	raw, err := s.backend.Get(ctx, s.collection, s.key(userID))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("keep: find user %s: %w", userID, err)
	}
	ent, err := store.Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("keep: find user %s: %w", userID, err)
	}
	if ent.Kind != store.KindUser {
		return nil, fmt.Errorf("%s is a %s: %w", userID, ent.Kind, store.ErrNotFound)
	}
	return ent.User, nil
}

func (s *Store) findOne(ctx context.Context, op string, q *store.Query) (*user.User, error) {
	users, err := s.findMany(ctx, op, q.First())
	if err != nil || len(users) == 0 {
		return nil, err
	}
	return users[0], nil
}

func (s *Store) findMany(ctx context.Context, op string, q *store.Query) ([]*user.User, error) {
	raws, err := s.backend.Query(ctx, s.collection, q)
	if err != nil {
		return nil, fmt.Errorf("keep: %s: %w", op, err)
	}
	return decodeUsers(op, raws)
}

func decodeUsers(op string, raws []bson.Raw) ([]*user.User, error) {
	out := make([]*user.User, 0, len(raws))
	for _, raw := range raws {
		u, err := store.DecodeUser(raw)
		if err != nil {
			return nil, fmt.Errorf("keep: %s: %w", op, err)
		}
		out = append(out, u)
	}
	return out, nil
}

// ──────────────────────────────────────────────────
// Name accessors (in memory)
// ──────────────────────────────────────────────────

func (s *Store) GetUserID(ctx context.Context, u *user.User) (string, error) {
	if err := check(ctx, u); err != nil {
		return "", err
	}
	return u.ID, nil
}

func (s *Store) GetUserName(ctx context.Context, u *user.User) (string, error) {
	if err := check(ctx, u); err != nil {
		return "", err
	}
	return u.UserName, nil
}

func (s *Store) SetUserName(ctx context.Context, u *user.User, userName string) error {
	if err := check(ctx, u); err != nil {
		return err
	}
	u.UserName = userName
	return nil
}

func (s *Store) GetNormalizedUserName(ctx context.Context, u *user.User) (string, error) {
	if err := check(ctx, u); err != nil {
		return "", err
	}
	return u.NormalizedUserName, nil
}

// SetNormalizedUserName stores normalizedName as given. It is not checked
// against UserName.
func (s *Store) SetNormalizedUserName(ctx context.Context, u *user.User, normalizedName string) error {
	if err := check(ctx, u); err != nil {
		return err
	}
	u.NormalizedUserName = normalizedName
	return nil
}

// check observes cancellation, then rejects a nil principal.
func check(ctx context.Context, u *user.User) error {
	if err := keep.CheckContext(ctx); err != nil {
		return err
	}
	if u == nil {
		return keep.Invalid("user")
	}
	return nil
}
