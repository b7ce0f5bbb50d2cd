package shared

import (
	"context"
	"time"
)

// DefaultIdempotencyTTL is how long a processed key is remembered
const DefaultIdempotencyTTL = 24 * time.Hour

// IdempotencyStore remembers processed keys (webhook event ids, checkout requests)
// so that redelivered messages are acknowledged without being applied twice.
type IdempotencyStore interface {
	// MarkProcessed records key with a TTL.
	// Returns true if the key was newly marked, false if it was already present.
	MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// IsProcessed checks whether key has been recorded
	IsProcessed(ctx context.Context, key string) (bool, error)

	// Release forgets key, used when processing failed after marking
	Release(ctx context.Context, key string) error

	Close() error
}
