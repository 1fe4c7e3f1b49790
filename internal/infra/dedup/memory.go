// Package dedup implements the fingerprint-keyed seal guard: at most one
// in-flight seal submission per fingerprint. Backends mirror the rate
// limiter split: in-memory for single-node, Redis leases for multi-node.
package dedup

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"seald/internal/domain"
)

type memoryGuard struct {
	mu     sync.Mutex
	now    func() time.Time
	leases map[string]memoryLease
	ttl    time.Duration
}

type memoryLease struct {
	token     string
	expiresAt time.Time
}

type MemoryGuardConfig struct {
	Now func() time.Time
	// TTL bounds how long a crashed holder can block a fingerprint.
	TTL time.Duration
}

func NewMemoryGuard(cfg MemoryGuardConfig) domain.SealGuard {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 30 * time.Second
	}
	return &memoryGuard{
		now:    cfg.Now,
		leases: make(map[string]memoryLease),
		ttl:    cfg.TTL,
	}
}

func (g *memoryGuard) Acquire(_ context.Context, fingerprint string) (string, error) {
	if fingerprint == "" {
		return "", domain.ErrInvalidRequest
	}
	now := g.now()

	g.mu.Lock()
	defer g.mu.Unlock()

	if lease, ok := g.leases[fingerprint]; ok && now.Before(lease.expiresAt) {
		return "", domain.ErrSealInProgress
	}
	token := uuid.NewString()
	g.leases[fingerprint] = memoryLease{token: token, expiresAt: now.Add(g.ttl)}
	return token, nil
}

func (g *memoryGuard) Release(_ context.Context, fingerprint, token string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	lease, ok := g.leases[fingerprint]
	if !ok || lease.token != token {
		// Expired or taken over; nothing to release.
		return nil
	}
	delete(g.leases, fingerprint)
	return nil
}
