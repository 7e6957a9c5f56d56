// Package cache provides the pluggable byte store behind node-result
// caching. The engine stores each node's encoded outputs under a key
// derived from the node's kind, parameters and input grids, so an
// unchanged node can skip re-evaluation across passes and processes.
//
// Backends: [FileCache] for single-machine use, [RedisCache] for shared
// deployments, [NullCache] to disable caching entirely.
package cache

import (
	"context"
	"time"
)

// TTLResult bounds how long a cached node result may be reused before the
// engine recomputes it.
const TTLResult = 24 * time.Hour

// Cache stores opaque byte payloads under string keys. Implementations
// must be safe for concurrent use; evaluation passes run on worker
// goroutines.
type Cache interface {
	// Get retrieves a value. The second result reports whether the key
	// was present; an absent key is not an error.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value. A ttl of 0 means the entry never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes a value. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}
