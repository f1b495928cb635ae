// Package store defines the backing store interface and implementations.
package store

import (
	"context"

	"github.com/stevemurr/record-gateway/record"
)

// Store is the interface that all backing stores must implement.
// A Store is bound to a single collection and is safe for concurrent use;
// every single-record operation is atomic.
type Store interface {
	// Insert adds a new record and returns the identifier the store assigned.
	// Any identifier field present on rec is ignored.
	Insert(ctx context.Context, rec record.Record) (string, error)

	// List returns every record in natural (insertion) order, identifiers included.
	List(ctx context.Context) ([]record.Record, error)

	// Update sets the given fields on the record with identifier id and
	// returns how many records matched (0 or 1). Keys are top-level field
	// names, except on mongo where a dotted key such as "a.b" addresses a
	// nested field.
	Update(ctx context.Context, id string, fields record.Record) (int64, error)

	// Delete removes the record with identifier id and returns how many
	// records were deleted (0 or 1). Malformed identifiers match nothing.
	Delete(ctx context.Context, id string) (int64, error)

	// Ping checks that the store is reachable.
	Ping(ctx context.Context) error

	// Close releases the underlying connection.
	Close(ctx context.Context) error
}
