package dedup

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"seald/internal/domain"
)

func TestAcquireIsExclusivePerFingerprint(t *testing.T) {
	guard := NewMemoryGuard(MemoryGuardConfig{})
	ctx := context.Background()

	token, err := guard.Acquire(ctx, "fp-1")
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if _, err := guard.Acquire(ctx, "fp-1"); !errors.Is(err, domain.ErrSealInProgress) {
		t.Fatalf("expected ErrSealInProgress, got %v", err)
	}

	// A different fingerprint is unaffected.
	if _, err := guard.Acquire(ctx, "fp-2"); err != nil {
		t.Fatalf("acquire other fingerprint: %v", err)
	}

	if err := guard.Release(ctx, "fp-1", token); err != nil {
		t.Fatalf("release: %v", err)
	}
	if _, err := guard.Acquire(ctx, "fp-1"); err != nil {
		t.Fatalf("acquire after release: %v", err)
	}
}

func TestReleaseWithWrongTokenKeepsLease(t *testing.T) {
	guard := NewMemoryGuard(MemoryGuardConfig{})
	ctx := context.Background()

	if _, err := guard.Acquire(ctx, "fp-1"); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if err := guard.Release(ctx, "fp-1", "not-the-token"); err != nil {
		t.Fatalf("release with wrong token: %v", err)
	}
	if _, err := guard.Acquire(ctx, "fp-1"); !errors.Is(err, domain.ErrSealInProgress) {
		t.Fatalf("lease must survive a foreign release, got %v", err)
	}
}

func TestLeaseExpires(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	guard := NewMemoryGuard(MemoryGuardConfig{
		Now: func() time.Time { return now },
		TTL: 30 * time.Second,
	})
	ctx := context.Background()

	if _, err := guard.Acquire(ctx, "fp-1"); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	now = now.Add(31 * time.Second)
	if _, err := guard.Acquire(ctx, "fp-1"); err != nil {
		t.Fatalf("expected takeover of expired lease, got %v", err)
	}
}

func TestConcurrentAcquireSingleWinner(t *testing.T) {
	guard := NewMemoryGuard(MemoryGuardConfig{})
	ctx := context.Background()

	const callers = 16
	var wg sync.WaitGroup
	var mu sync.Mutex
	winners := 0
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := guard.Acquire(ctx, "fp-contended"); err == nil {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if winners != 1 {
		t.Fatalf("expected exactly one winner, got %d", winners)
	}
}
