package shared

import (
	"context"
	"time"
)

// IdempotencyStore guards client-supplied idempotency keys while a request
// carrying them is in flight.
type IdempotencyStore interface {
	// MarkProcessed claims key for ttl.
	// Returns true if the key was newly claimed, false if someone else holds it
	MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// IsProcessed checks if a key is currently claimed
	IsProcessed(ctx context.Context, key string) (bool, error)

	// Release drops a claim so a failed request can be retried by the client
	Release(ctx context.Context, key string) error

	// Close closes the store and releases resources
	Close() error
}
