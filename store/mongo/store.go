// Package mongo provides a MongoDB implementation of the keep document
// store. Documents are stored as-is; the adapter's reserved fields
// (_id, partitionKey, documentType, _version) live alongside the domain
// fields.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/v2/bson"
	mongod "go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"

	"github.com/xraph/keep/store"
)

// Compile-time interface check.
var _ store.Store = (*Store)(nil)

// Store is a MongoDB implementation of the keep document store. Documents
// are raw BSON in collections named per call, so reads and writes go
// through the driver collection; grove's builders require struct models.
type Store struct {
	db         *grove.DB
	database   *mongod.Database
	collection func(name string) *mongod.Collection
}

// New creates a new MongoDB store backed by Grove ORM.
func New(db *grove.DB) *Store {
	mdb := mongodriver.Unwrap(db)
	return &Store{
		db:         db,
		collection: func(name string) *mongod.Collection { return mdb.Collection(name) },
	}
}

// Open connects to uri through grove and returns a store that owns the
// connection. database overrides the database named in uri when set.
func Open(ctx context.Context, uri, database string) (*Store, error) {
	drv := mongodriver.New()
	var opts []mongodriver.MongoOption
	if database != "" {
		opts = append(opts, mongodriver.WithDatabase(database))
	}
	if err := drv.Open(ctx, uri, opts...); err != nil {
		return nil, fmt.Errorf("keep/mongo: open: %w", err)
	}
	db, err := grove.Open(drv)
	if err != nil {
		_ = drv.Close()
		return nil, fmt.Errorf("keep/mongo: open: %w", err)
	}
	return New(db), nil
}

// NewFromDatabase creates a store over a database handle owned by the
// caller. Close is a no-op; the caller disconnects the client.
func NewFromDatabase(database *mongod.Database) *Store {
	return &Store{
		database:   database,
		collection: func(name string) *mongod.Collection { return database.Collection(name) },
	}
}

// Migrate creates the lookup indexes on each collection.
func (s *Store) Migrate(ctx context.Context, collections ...string) error {
	for _, col := range collections {
		models := migrationIndexes()
		if _, err := s.collection(col).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("keep/mongo: migrate %s indexes: %w", col, err)
		}
	}
	return nil
}

// Ping verifies the database connection.
func (s *Store) Ping(ctx context.Context) error {
	if s.db != nil {
		return s.db.Ping(ctx)
	}
	return s.database.Client().Ping(ctx, nil)
}

// Close closes the database connection when the store owns it.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Store) Get(ctx context.Context, col string, key store.Key) (bson.Raw, error) {
	raw, err := s.collection(col).FindOne(ctx, keyFilter(key)).Raw()
	if err != nil {
		if isNoDocuments(err) {
			return nil, fmt.Errorf("%s/%s: %w", col, key.ID, store.ErrNotFound)
		}
		return nil, fmt.Errorf("keep/mongo: get %s/%s: %w", col, key.ID, err)
	}
	return raw, nil
}

func (s *Store) Insert(ctx context.Context, col string, doc store.Document) error {
	if _, err := s.collection(col).InsertOne(ctx, doc.Body); err != nil {
		if mongod.IsDuplicateKeyError(err) {
			return fmt.Errorf("%s/%s: %v: %w", col, doc.Key.ID, err, duplicateKind(err))
		}
		return fmt.Errorf("keep/mongo: insert %s/%s: %w", col, doc.Key.ID, err)
	}
	return nil
}

func (s *Store) Replace(ctx context.Context, col string, doc store.Document, expectedVersion int64) error {
	c := s.collection(col)
	res, err := c.ReplaceOne(ctx, versionFilter(doc.Key, expectedVersion), doc.Body)
	if err != nil {
		if mongod.IsDuplicateKeyError(err) {
			return fmt.Errorf("%s/%s: %v: %w", col, doc.Key.ID, err, store.ErrDuplicateKey)
		}
		return fmt.Errorf("keep/mongo: replace %s/%s: %w", col, doc.Key.ID, err)
	}
	if res.MatchedCount == 0 {
		return missOutcome(ctx, c, col, doc.Key, expectedVersion)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, col string, key store.Key, expectedVersion int64) error {
	c := s.collection(col)
	res, err := c.DeleteOne(ctx, versionFilter(key, expectedVersion))
	if err != nil {
		return fmt.Errorf("keep/mongo: delete %s/%s: %w", col, key.ID, err)
	}
	if res.DeletedCount == 0 {
		return missOutcome(ctx, c, col, key, expectedVersion)
	}
	return nil
}

func (s *Store) Query(ctx context.Context, col string, q *store.Query) ([]bson.Raw, error) {
	opts := options.Find()
	if q.Limit > 0 {
		opts.SetLimit(int64(q.Limit))
	}
	cur, err := s.collection(col).Find(ctx, queryFilter(q), opts)
	if err != nil {
		return nil, fmt.Errorf("keep/mongo: query %s: %w", col, err)
	}
	defer cur.Close(ctx) //nolint:errcheck // close error carries nothing after a full read

	var out []bson.Raw
	for cur.Next(ctx) {
		out = append(out, append(bson.Raw(nil), cur.Current...))
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("keep/mongo: query %s: %w", col, err)
	}
	return out, nil
}

// missOutcome explains a conditional write that matched nothing: either the
// document is gone or its version moved on.
func missOutcome(ctx context.Context, c *mongod.Collection, col string, key store.Key, expectedVersion int64) error {
	if expectedVersion == 0 {
		return fmt.Errorf("%s/%s: %w", col, key.ID, store.ErrNotFound)
	}
	n, err := c.CountDocuments(ctx, keyFilter(key))
	if err != nil {
		return fmt.Errorf("keep/mongo: check %s/%s: %w", col, key.ID, err)
	}
	if n == 0 {
		return fmt.Errorf("%s/%s: %w", col, key.ID, store.ErrNotFound)
	}
	return fmt.Errorf("%s/%s: expected version %d: %w", col, key.ID, expectedVersion, store.ErrPreconditionFailed)
}

// duplicateKind tells a taken _id from a taken secondary key by the index
// named in the server message.
func duplicateKind(err error) error {
	if strings.Contains(err.Error(), "index: _id_ ") {
		return store.ErrDuplicateID
	}
	return store.ErrDuplicateKey
}

// isNoDocuments checks if an error wraps mongo.ErrNoDocuments.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongod.ErrNoDocuments)
}
