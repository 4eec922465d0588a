package cache

import (
	"context"
	"sync"
	"time"

	advisorerrors "advisor/internal/errors"
	"advisor/internal/logging"
)

// Facade composes the primary and fallback backends behind one cache
// surface and guarantees at most one concurrent computation per key via
// time-bounded leases.
//
// Backend selection is decided per call from current reachability: a Get
// falls through to the fallback only when the primary is down (a primary
// miss stays a miss), and a Set mirrors into the fallback regardless of
// which backend served the preceding Get.
type Facade struct {
	primary  Backend
	fallback Backend
	leaseTTL time.Duration
	logger   *logging.Logger

	mu     sync.Mutex
	leases map[string]*lease
}

// lease is an exclusivity claim on computing one key's value. The holder
// closes done exactly once; waiters read value/err afterwards. The claim
// expires at the deadline so a crashed holder cannot starve waiters.
type lease struct {
	done    chan struct{}
	expires time.Time

	value []byte
	err   error
}

// NewFacade creates a cache facade over the two backends.
func NewFacade(primary, fallback Backend, leaseTTL time.Duration, logger *logging.Logger) *Facade {
	return &Facade{
		primary:  primary,
		fallback: fallback,
		leaseTTL: leaseTTL,
		logger:   logger,
		leases:   make(map[string]*lease),
	}
}

// Get looks up a key. The fallback is consulted only when the primary
// backend is unreachable, never on a plain miss.
func (f *Facade) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, ok, err := f.primary.Get(ctx, key)
	if err == nil {
		return value, ok, nil
	}

	f.logger.Warn("Primary cache backend unavailable, using fallback", map[string]interface{}{
		"backend": f.primary.Name(),
		"error":   err.Error(),
	})

	value, ok, err = f.fallback.Get(ctx, key)
	if err != nil {
		// The fallback is in-process and should not fail; treat as a
		// forced miss.
		f.logger.Error("Fallback cache backend failed", map[string]interface{}{
			"backend": f.fallback.Name(),
			"error":   err.Error(),
		})
		return nil, false, nil
	}
	return value, ok, nil
}

// Set writes to the primary when reachable and always mirrors into the
// fallback, so a later primary outage still serves recently-seen entries.
func (f *Facade) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if f.primary.IsAvailable(ctx) {
		if err := f.primary.Set(ctx, key, value, ttl); err != nil {
			f.logger.Warn("Primary cache set failed", map[string]interface{}{
				"backend": f.primary.Name(),
				"error":   err.Error(),
			})
		}
	}

	if err := f.fallback.Set(ctx, key, value, ttl); err != nil {
		f.logger.Warn("Fallback cache set failed", map[string]interface{}{
			"backend": f.fallback.Name(),
			"error":   err.Error(),
		})
	}
}

// IsPrimaryAvailable reports primary backend liveness for health checks.
func (f *Facade) IsPrimaryAvailable(ctx context.Context) bool {
	return f.primary.IsAvailable(ctx)
}

// State reports the facade's serving mode for health output: "ok" when the
// primary backend is reachable, "fallback" otherwise.
func (f *Facade) State(ctx context.Context) string {
	if f.IsPrimaryAvailable(ctx) {
		return "ok"
	}
	return "fallback"
}

// Do computes the value for key at most once across concurrent callers.
// The first caller acquires the lease, re-checks the cache, runs compute,
// writes the outcome through the cache exactly once, and releases all
// waiters with the same value. Waiters on a failed lease receive a
// LEASE_FAILED error rather than hanging; an expired lease (crashed
// holder) releases them to retry.
//
// fromCache is true when the value was served without running compute's
// analysis pass on behalf of this caller's lease re-check.
func (f *Facade) Do(ctx context.Context, key string, ttl time.Duration, compute func(context.Context) ([]byte, error)) (value []byte, fromCache bool, err error) {
	for {
		f.mu.Lock()
		current := f.leases[key]
		if current != nil && time.Now().Before(current.expires) {
			f.mu.Unlock()

			remaining := time.Until(current.expires)
			expiry := time.NewTimer(remaining)
			select {
			case <-current.done:
				expiry.Stop()
				if current.err != nil {
					return nil, false, advisorerrors.New(advisorerrors.LeaseFailed,
						"analysis computation failed", current.err)
				}
				return current.value, false, nil
			case <-expiry.C:
				// Lease holder is presumed dead; retry acquisition.
				continue
			case <-ctx.Done():
				expiry.Stop()
				return nil, false, ctx.Err()
			}
		}

		// Acquire the lease, replacing an expired claim if present.
		held := &lease{
			done:    make(chan struct{}),
			expires: time.Now().Add(f.leaseTTL),
		}
		f.leases[key] = held
		f.mu.Unlock()

		value, fromCache, err = f.computeUnderLease(ctx, key, ttl, held, compute)
		return value, fromCache, err
	}
}

// computeUnderLease runs one lease-holder cycle: cache re-check, compute,
// write-through, release.
func (f *Facade) computeUnderLease(ctx context.Context, key string, ttl time.Duration, held *lease, compute func(context.Context) ([]byte, error)) ([]byte, bool, error) {
	defer func() {
		close(held.done)
		f.mu.Lock()
		if f.leases[key] == held {
			delete(f.leases, key)
		}
		f.mu.Unlock()
	}()

	// A previous holder may have completed between this caller's miss and
	// its acquisition; serve its write instead of recomputing.
	if cached, ok, err := f.Get(ctx, key); err == nil && ok {
		held.value = cached
		return cached, true, nil
	}

	value, err := compute(ctx)
	if err != nil {
		held.err = err
		return nil, false, advisorerrors.New(advisorerrors.LeaseFailed,
			"analysis computation failed", err)
	}

	f.Set(ctx, key, value, ttl)
	held.value = value
	return value, false, nil
}
