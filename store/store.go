// Package store defines the document client adapter the identity stores
// persist through. A backend (memory, mongo, postgres, sqlite) stores opaque
// BSON documents in named collections, locates them by id and partition key,
// and evaluates the small predicate language in Query.
//
// Principal and role documents may share one collection. Every document
// carries a documentType discriminator so queries can stay within one kind
// and decoding can pick the right variant.
package store

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Reserved document fields maintained by the adapter.
const (
	FieldID           = "_id"
	FieldDocumentType = "documentType"
	FieldPartitionKey = "partitionKey"
	FieldVersion      = "_version"
)

var (
	// ErrNotFound is returned when no document exists at a key.
	ErrNotFound = errors.New("store: document not found")

	// ErrConflict is returned when a write would duplicate an id or a
	// unique secondary key.
	ErrConflict = errors.New("store: document conflict")

	// ErrDuplicateID is the ErrConflict raised when the id is taken.
	ErrDuplicateID = fmt.Errorf("%w: duplicate id", ErrConflict)

	// ErrDuplicateKey is the ErrConflict raised when a unique secondary key
	// (see Unique) is taken.
	ErrDuplicateKey = fmt.Errorf("%w: duplicate unique key", ErrConflict)

	// ErrPreconditionFailed is returned when a conditional write finds a
	// different version than expected.
	ErrPreconditionFailed = errors.New("store: precondition failed")

	// ErrUnknownDocumentType is returned when a document's discriminator
	// names no known variant.
	ErrUnknownDocumentType = errors.New("store: unknown document type")
)

// Key locates one document. PartitionKey is empty when the collection is
// not partitioned.
type Key struct {
	ID           string
	PartitionKey string
}

// Document is an encoded document ready to be written.
type Document struct {
	Key     Key
	Kind    string
	Version int64
	Body    bson.Raw
}

// Store is the document client adapter.
type Store interface {
	// Get reads the document at key. Returns ErrNotFound if absent.
	Get(ctx context.Context, collection string, key Key) (bson.Raw, error)

	// Insert writes a new document. Returns ErrDuplicateID if the id is
	// taken and ErrDuplicateKey if a unique secondary key is.
	Insert(ctx context.Context, collection string, doc Document) error

	// Replace overwrites the document at doc.Key. When expectedVersion is
	// non-zero the stored version must equal it, otherwise the write fails
	// with ErrPreconditionFailed. Returns ErrNotFound if absent and
	// ErrDuplicateKey if a unique secondary key is taken.
	Replace(ctx context.Context, collection string, doc Document, expectedVersion int64) error

	// Delete removes the document at key, with the same version and
	// not-found semantics as Replace.
	Delete(ctx context.Context, collection string, key Key, expectedVersion int64) error

	// Query returns every document in collection matching q, in insertion
	// order where the backend can provide it.
	Query(ctx context.Context, collection string, q *Query) ([]bson.Raw, error)

	// Migrate prepares the given collections (indexes, tables).
	Migrate(ctx context.Context, collections ...string) error

	// Ping checks database connectivity.
	Ping(ctx context.Context) error

	// Close closes the store connection.
	Close() error
}

// StatusCode maps an adapter error to the HTTP-style status code carried by
// failed identity results.
func StatusCode(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrPreconditionFailed):
		return http.StatusPreconditionFailed
	default:
		return http.StatusInternalServerError
	}
}
