package dedup

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"seald/internal/domain"
)

type redisGuard struct {
	client *redis.Client
	ttl    time.Duration
}

// releaseScript deletes the lease only if the caller still holds it, so a
// slow holder cannot release a lease that expired and was re-acquired.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

type RedisGuardConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

func NewRedisGuard(cfg RedisGuardConfig) (domain.SealGuard, error) {
	if cfg.Addr == "" {
		return nil, errors.New("redis addr is required")
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 30 * time.Second
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return &redisGuard{client: client, ttl: cfg.TTL}, nil
}

func (g *redisGuard) Acquire(ctx context.Context, fingerprint string) (string, error) {
	if fingerprint == "" {
		return "", domain.ErrInvalidRequest
	}
	token := uuid.NewString()
	ok, err := g.client.SetNX(ctx, leaseKey(fingerprint), token, g.ttl).Result()
	if err != nil {
		return "", err
	}
	if !ok {
		return "", domain.ErrSealInProgress
	}
	return token, nil
}

func (g *redisGuard) Release(ctx context.Context, fingerprint, token string) error {
	return releaseScript.Run(ctx, g.client, []string{leaseKey(fingerprint)}, token).Err()
}

func leaseKey(fingerprint string) string {
	return "seald:seal-lease:" + fingerprint
}
