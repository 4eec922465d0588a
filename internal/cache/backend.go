// Package cache implements the analysis result cache: a primary sqlite
// backend with an in-process fallback, TTL expiry, and per-fingerprint
// computation leases for request dedup.
package cache

import (
	"context"
	"time"
)

// Backend is a single cache store. Implementations must be safe for
// concurrent use.
//
// Get distinguishes two different signals that must not be conflated: a
// non-nil error means the backend itself is unreachable ("backend down"),
// while (nil, false, nil) means the backend is healthy and the key is
// absent ("miss").
type Backend interface {
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)

	// Set stores value under key. A ttl <= 0 produces an entry that is
	// already expired and behaves as a miss on the next Get.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// IsAvailable is a lightweight liveness probe, not a full round-trip
	// guarantee.
	IsAvailable(ctx context.Context) bool

	Name() string
}
