package storage

import (
	"context"
	"time"

	"github.com/poiesic/wayfarer/core"
)

// Filter narrows Count. Zero values match everything.
type Filter struct {
	SourceType   core.SourceType
	CreatedSince time.Time
}

// Repository persists stored travel records.
// Implementations must be thread-safe and support concurrent access.
type Repository interface {
	// InsertMany adds records atomically.
	// IDs, CreatedAt and UpdatedAt are assigned when unset.
	// Returns ErrDuplicateKey and writes nothing if any record's source URL
	// is already stored or repeated within the call.
	InsertMany(ctx context.Context, records ...*core.StoredRecord) ([]*core.StoredRecord, error)

	// InsertOne adds a single record with the same rules as InsertMany.
	InsertOne(ctx context.Context, record *core.StoredRecord) (*core.StoredRecord, error)

	// Exists reports whether a record matching m is stored.
	// URL matches compare source_url; other matches compare title and source_type.
	Exists(ctx context.Context, m core.Match) (bool, error)

	// Update applies patch to the record with the given ID and stamps UpdatedAt.
	// Returns false if no such record exists.
	Update(ctx context.Context, id core.ID, patch core.RecordPatch) (bool, error)

	// DeleteBefore removes records created strictly before cutoff and returns the count.
	DeleteBefore(ctx context.Context, cutoff time.Time) (int, error)

	// Delete removes records by ID. Missing IDs are ignored.
	Delete(ctx context.Context, ids ...core.ID) error

	// Count returns the number of records matching f.
	Count(ctx context.Context, f Filter) (int, error)

	// Get retrieves a single record.
	// Returns ErrNotFound if the record doesn't exist.
	Get(ctx context.Context, id core.ID) (*core.StoredRecord, error)

	// ForEach visits every record in creation order.
	// Iteration stops on the first error from fn.
	ForEach(ctx context.Context, fn func(*core.StoredRecord) error) error

	// LastUpdated returns the most recent UpdatedAt, or the zero time for an empty store.
	LastUpdated(ctx context.Context) (time.Time, error)

	// Close releases the backend.
	Close() error
}

// Compactor is implemented by backends that can reclaim space after deletes.
type Compactor interface {
	Compact(ctx context.Context) error
}
