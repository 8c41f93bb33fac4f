// Package postgres provides a PostgreSQL implementation of the keep document
// store using grove ORM with Go-based migrations. All collections share one
// JSONB table keyed by (collection, id).
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/pgdriver"
	"github.com/xraph/grove/migrate"

	"github.com/xraph/keep/store"
)

// Compile-time interface check.
var _ store.Store = (*Store)(nil)

const uniqueViolation = "23505"

// Store is a PostgreSQL implementation of the keep document store.
type Store struct {
	db   *grove.DB
	pgdb *pgdriver.PgDB
}

// New creates a new PostgreSQL store.
func New(db *grove.DB) *Store {
	return &Store{
		db:   db,
		pgdb: pgdriver.Unwrap(db),
	}
}

// Open connects to dsn through grove and returns a store that owns the
// connection.
func Open(ctx context.Context, dsn string) (*Store, error) {
	drv := pgdriver.New()
	if err := drv.Open(ctx, dsn); err != nil {
		return nil, fmt.Errorf("keep/postgres: open: %w", err)
	}
	db, err := grove.Open(drv)
	if err != nil {
		_ = drv.Close()
		return nil, fmt.Errorf("keep/postgres: open: %w", err)
	}
	return New(db), nil
}

// Migrate runs programmatic migrations via the grove orchestrator. The
// table serves every collection, so collections is ignored.
func (s *Store) Migrate(ctx context.Context, _ ...string) error {
	executor, err := migrate.NewExecutorFor(s.pgdb)
	if err != nil {
		return fmt.Errorf("keep/postgres: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("keep/postgres: migration failed: %w", err)
	}
	return nil
}

// Ping verifies the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Get(ctx context.Context, col string, key store.Key) (bson.Raw, error) {
	m, err := s.load(ctx, col, key)
	if err != nil {
		return nil, err
	}
	return documentFromModel(m)
}

func (s *Store) Insert(ctx context.Context, col string, doc store.Document) error {
	if err := s.checkUnique(ctx, col, doc); err != nil {
		return err
	}
	m, err := documentToModel(col, doc)
	if err != nil {
		return fmt.Errorf("keep/postgres: insert %s/%s: %w", col, doc.Key.ID, err)
	}
	t := time.Now().UTC()
	m.CreatedAt = t
	m.UpdatedAt = t
	if _, err := s.pgdb.NewInsert(m).Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%s/%s: %v: %w", col, doc.Key.ID, err, store.ErrDuplicateID)
		}
		return fmt.Errorf("keep/postgres: insert %s/%s: %w", col, doc.Key.ID, err)
	}
	return nil
}

func (s *Store) Replace(ctx context.Context, col string, doc store.Document, expectedVersion int64) error {
	cur, err := s.load(ctx, col, doc.Key)
	if err != nil {
		return err
	}
	if expectedVersion != 0 && cur.Version != expectedVersion {
		return fmt.Errorf("%s/%s: version %d, expected %d: %w",
			col, doc.Key.ID, cur.Version, expectedVersion, store.ErrPreconditionFailed)
	}
	if err := s.checkUnique(ctx, col, doc); err != nil {
		return err
	}
	m, err := documentToModel(col, doc)
	if err != nil {
		return fmt.Errorf("keep/postgres: replace %s/%s: %w", col, doc.Key.ID, err)
	}
	m.CreatedAt = cur.CreatedAt
	m.UpdatedAt = time.Now().UTC()

	// The version read above must still be current.
	res, err := s.pgdb.NewUpdate(m).WherePK().Where("version = ?", cur.Version).Exec(ctx)
	if err != nil {
		return fmt.Errorf("keep/postgres: replace %s/%s: %w", col, doc.Key.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("keep/postgres: replace %s/%s rows: %w", col, doc.Key.ID, err)
	}
	if n == 0 {
		return fmt.Errorf("%s/%s: concurrent write: %w", col, doc.Key.ID, store.ErrPreconditionFailed)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, col string, key store.Key, expectedVersion int64) error {
	q := s.pgdb.NewDelete((*documentModel)(nil)).
		Where("collection = ?", col).
		Where("id = ?", key.ID).
		Where("partition_key = ?", key.PartitionKey)
	if expectedVersion != 0 {
		q = q.Where("version = ?", expectedVersion)
	}
	res, err := q.Exec(ctx)
	if err != nil {
		return fmt.Errorf("keep/postgres: delete %s/%s: %w", col, key.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("keep/postgres: delete %s/%s rows: %w", col, key.ID, err)
	}
	if n > 0 {
		return nil
	}
	if _, err := s.load(ctx, col, key); err != nil {
		return err
	}
	return fmt.Errorf("%s/%s: expected version %d: %w", col, key.ID, expectedVersion, store.ErrPreconditionFailed)
}

func (s *Store) Query(ctx context.Context, col string, q *store.Query) ([]bson.Raw, error) {
	clauses, err := predicateClauses(q)
	if err != nil {
		return nil, fmt.Errorf("keep/postgres: query %s: %w", col, err)
	}
	var models []documentModel
	sel := s.pgdb.NewSelect(&models).
		Where("collection = ?", col).
		OrderExpr("created_at ASC, id ASC")
	if q.DocumentType != "" {
		sel = sel.Where("document_type = ?", q.DocumentType)
	}
	for _, c := range clauses {
		sel = sel.Where(c.expr, c.args...)
	}
	if q.Limit > 0 {
		sel = sel.Limit(q.Limit)
	}
	if err := sel.Scan(ctx); err != nil {
		return nil, fmt.Errorf("keep/postgres: query %s: %w", col, err)
	}
	out := make([]bson.Raw, 0, len(models))
	for i := range models {
		raw, err := documentFromModel(&models[i])
		if err != nil {
			return nil, fmt.Errorf("keep/postgres: query %s: %w", col, err)
		}
		out = append(out, raw)
	}
	return out, nil
}

func (s *Store) load(ctx context.Context, col string, key store.Key) (*documentModel, error) {
	m := new(documentModel)
	err := s.pgdb.NewSelect(m).
		Where("collection = ?", col).
		Where("id = ?", key.ID).
		Where("partition_key = ?", key.PartitionKey).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s/%s: %w", col, key.ID, store.ErrNotFound)
		}
		return nil, fmt.Errorf("keep/postgres: get %s/%s: %w", col, key.ID, err)
	}
	return m, nil
}

// checkUnique rejects doc if another document in col already holds one of
// its unique element tuples.
func (s *Store) checkUnique(ctx context.Context, col string, doc store.Document) error {
	for _, u := range store.Unique {
		for _, key := range u.Keys(doc.Body) {
			clauses, err := predicateClauses(u.Query(key))
			if err != nil {
				return fmt.Errorf("keep/postgres: unique %s: %w", u.Array, err)
			}
			sel := s.pgdb.NewSelect((*documentModel)(nil)).
				Where("collection = ?", col).
				Where("id <> ?", doc.Key.ID)
			for _, c := range clauses {
				sel = sel.Where(c.expr, c.args...)
			}
			n, err := sel.Count(ctx)
			if err != nil {
				return fmt.Errorf("keep/postgres: unique %s: %w", u.Array, err)
			}
			if n > 0 {
				return fmt.Errorf("%s/%s: %s %v taken: %w", col, doc.Key.ID, u.Array, key, store.ErrDuplicateKey)
			}
		}
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
