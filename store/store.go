// Package store defines the append-only label storage contract.
package store

import (
	"context"

	"github.com/teranos/labelmaker/label"
)

// QueryParams selects a page of stored labels.
type QueryParams struct {
	URIPatterns []string
	Sources     []string
	AfterID     int64
	Limit       int
}

// Store is the capability interface the sequencer, query endpoint, and
// broadcaster use for persistence. Implementations must guarantee that an
// id returned from Append is immediately visible to subsequent Query/Scan
// calls (append is atomic with respect to visibility).
type Store interface {
	// Init prepares the store for traffic (schema creation, journal mode,
	// etc). Must complete before the service accepts requests.
	Init(ctx context.Context) error

	// Close releases any resources held by the store.
	Close() error

	// Append durably persists the signed label and returns its assigned
	// monotonic id.
	Append(ctx context.Context, l label.Label) (int64, error)

	// Query returns stored labels ordered by ascending id, matching the
	// given filters, truncated to Limit entries.
	Query(ctx context.Context, params QueryParams) ([]label.Stored, error)

	// Scan streams stored labels with id > afterID in strictly ascending
	// id order.
	Scan(ctx context.Context, afterID int64) ([]label.Stored, error)

	// MaxID returns the highest assigned id, or 0 if the store is empty.
	MaxID(ctx context.Context) (int64, error)
}
