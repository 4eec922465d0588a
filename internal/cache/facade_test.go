package cache

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	advisorerrors "advisor/internal/errors"
	"advisor/internal/logging"
)

// flakyBackend wraps a MemoryBackend with a switchable outage so tests can
// exercise the miss-versus-down distinction.
type flakyBackend struct {
	*MemoryBackend
	down atomic.Bool
}

func newFlakyBackend() *flakyBackend {
	return &flakyBackend{MemoryBackend: NewMemoryBackend(64)}
}

func (b *flakyBackend) Name() string { return "flaky" }

func (b *flakyBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if b.down.Load() {
		return nil, false, errors.New("backend unreachable")
	}
	return b.MemoryBackend.Get(ctx, key)
}

func (b *flakyBackend) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if b.down.Load() {
		return errors.New("backend unreachable")
	}
	return b.MemoryBackend.Set(ctx, key, value, ttl)
}

func (b *flakyBackend) IsAvailable(ctx context.Context) bool {
	return !b.down.Load()
}

func newTestFacade(leaseTTL time.Duration) (*Facade, *flakyBackend, *MemoryBackend) {
	primary := newFlakyBackend()
	fallback := NewMemoryBackend(64)
	return NewFacade(primary, fallback, leaseTTL, logging.Nop()), primary, fallback
}

func TestFacadePrimaryMissDoesNotConsultFallback(t *testing.T) {
	f, _, fallback := newTestFacade(time.Second)
	ctx := context.Background()

	// Seed only the fallback; a healthy primary miss must stay a miss.
	if err := fallback.Set(ctx, "k1", []byte("stale"), time.Hour); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	_, ok, err := f.Get(ctx, "k1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if ok {
		t.Error("Expected primary miss to not fall through to fallback")
	}
}

func TestFacadeServesFallbackWhenPrimaryDown(t *testing.T) {
	f, primary, _ := newTestFacade(time.Second)
	ctx := context.Background()

	f.Set(ctx, "k1", []byte("result"), time.Hour)
	primary.down.Store(true)

	value, ok, err := f.Get(ctx, "k1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !ok {
		t.Fatal("Expected fallback hit during primary outage")
	}
	if !bytes.Equal(value, []byte("result")) {
		t.Errorf("Expected mirrored value, got %q", value)
	}
}

func TestFacadeSetMirrorsToBothBackends(t *testing.T) {
	f, primary, fallback := newTestFacade(time.Second)
	ctx := context.Background()

	f.Set(ctx, "k1", []byte("v"), time.Hour)

	if _, ok, _ := primary.MemoryBackend.Get(ctx, "k1"); !ok {
		t.Error("Expected primary to hold the value")
	}
	if _, ok, _ := fallback.Get(ctx, "k1"); !ok {
		t.Error("Expected fallback to hold the mirrored value")
	}
}

func TestFacadeState(t *testing.T) {
	f, primary, _ := newTestFacade(time.Second)
	ctx := context.Background()

	if got := f.State(ctx); got != "ok" {
		t.Errorf("Expected state ok, got %q", got)
	}
	primary.down.Store(true)
	if got := f.State(ctx); got != "fallback" {
		t.Errorf("Expected state fallback, got %q", got)
	}
}

func TestFacadeDoComputesOnceAcrossConcurrentCallers(t *testing.T) {
	f, _, _ := newTestFacade(5 * time.Second)
	ctx := context.Background()

	var computes atomic.Int32
	started := make(chan struct{})
	release := make(chan struct{})
	compute := func(ctx context.Context) ([]byte, error) {
		computes.Add(1)
		close(started)
		<-release
		return []byte("computed"), nil
	}
	waiterCompute := func(ctx context.Context) ([]byte, error) {
		computes.Add(1)
		return []byte("computed"), nil
	}

	type outcome struct {
		value     []byte
		fromCache bool
		err       error
	}
	results := make(chan outcome, 5)

	go func() {
		v, c, err := f.Do(ctx, "fp", time.Hour, compute)
		results <- outcome{v, c, err}
	}()
	<-started

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, c, err := f.Do(ctx, "fp", time.Hour, waiterCompute)
			results <- outcome{v, c, err}
		}()
	}
	// Give waiters time to park on the lease before releasing the holder.
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	for i := 0; i < 5; i++ {
		r := <-results
		if r.err != nil {
			t.Fatalf("Do failed: %v", r.err)
		}
		if !bytes.Equal(r.value, []byte("computed")) {
			t.Errorf("Expected computed value, got %q", r.value)
		}
	}
	if n := computes.Load(); n != 1 {
		t.Errorf("Expected exactly 1 computation, got %d", n)
	}
}

func TestFacadeDoCacheHitUnderLease(t *testing.T) {
	f, _, _ := newTestFacade(time.Second)
	ctx := context.Background()

	f.Set(ctx, "fp", []byte("prior"), time.Hour)

	value, fromCache, err := f.Do(ctx, "fp", time.Hour, func(ctx context.Context) ([]byte, error) {
		t.Error("Compute must not run when the cache already holds the key")
		return nil, nil
	})
	if err != nil {
		t.Fatalf("Do failed: %v", err)
	}
	if !fromCache {
		t.Error("Expected fromCache=true on lease re-check hit")
	}
	if !bytes.Equal(value, []byte("prior")) {
		t.Errorf("Expected cached value, got %q", value)
	}
}

func TestFacadeDoWritesThrough(t *testing.T) {
	f, _, _ := newTestFacade(time.Second)
	ctx := context.Background()

	value, fromCache, err := f.Do(ctx, "fp", time.Hour, func(ctx context.Context) ([]byte, error) {
		return []byte("fresh"), nil
	})
	if err != nil {
		t.Fatalf("Do failed: %v", err)
	}
	if fromCache {
		t.Error("Expected fromCache=false on first computation")
	}
	if !bytes.Equal(value, []byte("fresh")) {
		t.Errorf("Expected computed value, got %q", value)
	}

	cached, ok, err := f.Get(ctx, "fp")
	if err != nil || !ok {
		t.Fatalf("Expected computed value in cache (hit=%v err=%v)", ok, err)
	}
	if !bytes.Equal(cached, []byte("fresh")) {
		t.Errorf("Expected write-through value, got %q", cached)
	}
}

func TestFacadeDoFailurePropagatesToWaiters(t *testing.T) {
	f, _, _ := newTestFacade(5 * time.Second)
	ctx := context.Background()

	started := make(chan struct{})
	release := make(chan struct{})
	boom := errors.New("parser exploded")

	holderErr := make(chan error, 1)
	go func() {
		_, _, err := f.Do(ctx, "fp", time.Hour, func(ctx context.Context) ([]byte, error) {
			close(started)
			<-release
			return nil, boom
		})
		holderErr <- err
	}()
	<-started

	waiterErr := make(chan error, 1)
	go func() {
		_, _, err := f.Do(ctx, "fp", time.Hour, func(ctx context.Context) ([]byte, error) {
			t.Error("Waiter must not compute after lease failure")
			return nil, nil
		})
		waiterErr <- err
	}()
	time.Sleep(20 * time.Millisecond)
	close(release)

	hErr, wErr := <-holderErr, <-waiterErr
	for _, err := range []error{hErr, wErr} {
		if err == nil {
			t.Fatal("Expected lease failure error")
		}
		if !advisorerrors.Is(err, advisorerrors.LeaseFailed) {
			t.Errorf("Expected LEASE_FAILED code, got %v", err)
		}
	}
	if !errors.Is(hErr, boom) {
		t.Errorf("Expected holder error to wrap the compute error, got %v", hErr)
	}
}

func TestFacadeDoFailureDoesNotPoisonKey(t *testing.T) {
	f, _, _ := newTestFacade(time.Second)
	ctx := context.Background()

	_, _, err := f.Do(ctx, "fp", time.Hour, func(ctx context.Context) ([]byte, error) {
		return nil, errors.New("transient")
	})
	if err == nil {
		t.Fatal("Expected failure from first computation")
	}

	value, fromCache, err := f.Do(ctx, "fp", time.Hour, func(ctx context.Context) ([]byte, error) {
		return []byte("recovered"), nil
	})
	if err != nil {
		t.Fatalf("Expected retry to succeed, got %v", err)
	}
	if fromCache {
		t.Error("Expected fresh computation after failed lease")
	}
	if !bytes.Equal(value, []byte("recovered")) {
		t.Errorf("Expected recovered value, got %q", value)
	}
}

func TestFacadeDoExpiredLeaseReleasesWaiters(t *testing.T) {
	f, _, _ := newTestFacade(30 * time.Millisecond)
	ctx := context.Background()

	started := make(chan struct{})
	stall := make(chan struct{})
	go func() {
		_, _, _ = f.Do(ctx, "fp", time.Hour, func(ctx context.Context) ([]byte, error) {
			close(started)
			<-stall
			return nil, errors.New("too late")
		})
	}()
	<-started

	// The holder is stalled past the lease TTL; the waiter must take over
	// and compute on its own.
	value, fromCache, err := f.Do(ctx, "fp", time.Hour, func(ctx context.Context) ([]byte, error) {
		return []byte("takeover"), nil
	})
	close(stall)
	if err != nil {
		t.Fatalf("Do failed: %v", err)
	}
	if fromCache {
		t.Error("Expected waiter to compute after lease expiry")
	}
	if !bytes.Equal(value, []byte("takeover")) {
		t.Errorf("Expected takeover value, got %q", value)
	}
}

func TestFacadeDoRespectsContextCancellation(t *testing.T) {
	f, _, _ := newTestFacade(5 * time.Second)

	started := make(chan struct{})
	release := make(chan struct{})
	defer close(release)
	go func() {
		_, _, _ = f.Do(context.Background(), "fp", time.Hour, func(ctx context.Context) ([]byte, error) {
			close(started)
			<-release
			return []byte("v"), nil
		})
	}()
	<-started

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := f.Do(ctx, "fp", time.Hour, func(ctx context.Context) ([]byte, error) {
		return nil, nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}
