// Package singleflight enforces the one-identification-job-per-device
// rule ahead of C9: a second concurrent request for the same device
// fails fast with BusyError. Redis backs the lock when configured so the
// constraint holds across replicas; otherwise an in-process fallback
// mirrors cache.MemoryStore's single-mutex shape.
package singleflight

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "github.com/hoangtranvan/speaker-id-service/errors"
)

const lockTTL = 10 * time.Minute

// Limiter enforces single-flight per device identifier.
type Limiter interface {
	Acquire(ctx context.Context, deviceID string) (release func(), err error)
}

// RedisLimiter acquires a per-device lock via SETNX.
type RedisLimiter struct {
	client *redis.Client
}

// NewRedisLimiter constructs a RedisLimiter.
func NewRedisLimiter(client *redis.Client) *RedisLimiter {
	return &RedisLimiter{client: client}
}

// Acquire takes the lock for deviceID or returns a BusyError if another
// job already holds it.
func (l *RedisLimiter) Acquire(ctx context.Context, deviceID string) (func(), error) {
	key := "identify:busy:" + deviceID
	ok, err := l.client.SetNX(ctx, key, "1", lockTTL).Result()
	if err != nil {
		return nil, apperrors.NewInternal(err)
	}
	if !ok {
		return nil, apperrors.NewBusy(deviceID)
	}
	release := func() {
		l.client.Del(context.Background(), key)
	}
	return release, nil
}

// MemoryLimiter is the in-process fallback used when Redis is not
// configured, mirroring the teacher's single-mutex memory cache.
type MemoryLimiter struct {
	mu   sync.Mutex
	busy map[string]struct{}
}

// NewMemoryLimiter constructs a MemoryLimiter.
func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{busy: make(map[string]struct{})}
}

// Acquire takes the lock for deviceID or returns a BusyError.
func (l *MemoryLimiter) Acquire(_ context.Context, deviceID string) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.busy[deviceID]; ok {
		return nil, apperrors.NewBusy(deviceID)
	}
	l.busy[deviceID] = struct{}{}

	release := func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.busy, deviceID)
	}
	return release, nil
}
