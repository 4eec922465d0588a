package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryBackend is the in-process fallback backend: bounded size, TTL
// expiry checked lazily on read. When over capacity it evicts the entry
// with the nearest expiry, ties broken by the smallest key, so a fixed
// sequence of operations always leaves the same contents.
type MemoryBackend struct {
	mu         sync.Mutex
	entries    map[string]memoryEntry
	maxEntries int
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// NewMemoryBackend creates a fallback backend bounded to maxEntries.
func NewMemoryBackend(maxEntries int) *MemoryBackend {
	return &MemoryBackend{
		entries:    make(map[string]memoryEntry),
		maxEntries: maxEntries,
	}
}

// Name identifies the backend in logs and health output.
func (b *MemoryBackend) Name() string { return "memory" }

// Get retrieves a value; expired entries are removed and reported as a
// miss.
func (b *MemoryBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	entry, ok := b.entries[key]
	if !ok {
		return nil, false, nil
	}
	if !entry.expiresAt.After(time.Now()) {
		delete(b.entries, key)
		return nil, false, nil
	}

	value := make([]byte, len(entry.value))
	copy(value, entry.value)
	return value, true, nil
}

// Set stores a value. Entries beyond capacity evict the nearest-expiry
// entry first.
func (b *MemoryBackend) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	stored := make([]byte, len(value))
	copy(stored, value)

	b.mu.Lock()
	defer b.mu.Unlock()

	b.entries[key] = memoryEntry{
		value:     stored,
		expiresAt: time.Now().Add(ttl),
	}

	for len(b.entries) > b.maxEntries {
		b.evictNearestExpiry()
	}
	return nil
}

// IsAvailable always reports true: the fallback lives in-process.
func (b *MemoryBackend) IsAvailable(ctx context.Context) bool { return true }

// Len returns the current entry count.
func (b *MemoryBackend) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries)
}

// evictNearestExpiry removes the entry closest to expiry; the smallest key
// wins ties. Caller holds the lock.
func (b *MemoryBackend) evictNearestExpiry() {
	var victim string
	var victimExpiry time.Time
	first := true

	for key, entry := range b.entries {
		if first ||
			entry.expiresAt.Before(victimExpiry) ||
			(entry.expiresAt.Equal(victimExpiry) && key < victim) {
			victim = key
			victimExpiry = entry.expiresAt
			first = false
		}
	}

	delete(b.entries, victim)
}
