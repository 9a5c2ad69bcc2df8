package store

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
)

// Store is one side of a transfer: a single database holding named
// collections of opaque documents.
type Store interface {
	Label() string
	Exists(ctx context.Context, collection string) (bool, error)
	Count(ctx context.Context, collection string) (int64, error)
	// Scan delivers every document of collection to fn in batches of at
	// most batchSize. Batches are owned by fn.
	Scan(ctx context.Context, collection string, batchSize int, fn func(batch []bson.Raw) error) error
	DeleteAll(ctx context.Context, collection string) (int64, error)
	// InsertUnordered inserts docs without stopping at the first failure.
	// Per-document failures are reported in the result; the error is
	// reserved for failures that affect the whole call. When the server
	// acknowledged some documents before such a failure, the result still
	// counts them.
	InsertUnordered(ctx context.Context, collection string, docs []bson.Raw) (InsertResult, error)
	// CreateLike creates collection with the validation rules, collation
	// and indexes of template. A missing template is not an error.
	CreateLike(ctx context.Context, collection, template string) error
	// Rename moves from onto to, replacing to if it exists.
	Rename(ctx context.Context, from, to string) error
	Drop(ctx context.Context, collection string) error
}

// InsertResult summarises one unordered insert.
type InsertResult struct {
	Inserted int
	Failures []DocFailure
}

// DocFailure is a single rejected document. Index is relative to the batch
// passed to InsertUnordered.
type DocFailure struct {
	Index   int
	Code    int
	Message string
}
