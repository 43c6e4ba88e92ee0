// Package lease guarantees a single holder per key across processes.
package lease

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"

	appErrors "github.com/moehefner/streb/internal/errors"
)

// Locker hands out time-bounded leases. Obtain returns appErrors.ErrLeaseHeld
// when the key is taken.
type Locker interface {
	Obtain(ctx context.Context, key string, ttl time.Duration) (Lease, error)
}

// Lease is held until released or until its ttl runs out. Refresh returns
// appErrors.ErrLeaseHeld once the lease has been lost.
type Lease interface {
	Refresh(ctx context.Context, ttl time.Duration) error
	Release(ctx context.Context) error
}

// RedisLocker is the multi-instance implementation.
type RedisLocker struct {
	client *redislock.Client
}

func NewRedisLocker(rdb *redis.Client) *RedisLocker {
	return &RedisLocker{client: redislock.New(rdb)}
}

func (l *RedisLocker) Obtain(ctx context.Context, key string, ttl time.Duration) (Lease, error) {
	lock, err := l.client.Obtain(ctx, "streb:lease:"+key, ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, appErrors.ErrLeaseHeld
	}
	if err != nil {
		return nil, err
	}
	return &redisLease{lock: lock}, nil
}

type redisLease struct {
	lock *redislock.Lock
}

func (l *redisLease) Refresh(ctx context.Context, ttl time.Duration) error {
	err := l.lock.Refresh(ctx, ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return appErrors.ErrLeaseHeld
	}
	return err
}

// Release ignores an already expired lock.
func (l *redisLease) Release(ctx context.Context) error {
	err := l.lock.Release(ctx)
	if errors.Is(err, redislock.ErrLockNotHeld) {
		return nil
	}
	return err
}

// LocalLocker serves a single process.
type LocalLocker struct {
	mu      sync.Mutex
	held    map[string]localEntry
	nextTok uint64
	Now     func() time.Time
}

type localEntry struct {
	token   uint64
	expires time.Time
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{held: map[string]localEntry{}, Now: time.Now}
}

func (l *LocalLocker) Obtain(_ context.Context, key string, ttl time.Duration) (Lease, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.Now()
	if e, ok := l.held[key]; ok && now.Before(e.expires) {
		return nil, appErrors.ErrLeaseHeld
	}
	l.nextTok++
	l.held[key] = localEntry{token: l.nextTok, expires: now.Add(ttl)}
	return &localLease{locker: l, key: key, token: l.nextTok}, nil
}

type localLease struct {
	locker *LocalLocker
	key    string
	token  uint64
}

func (l *localLease) Refresh(_ context.Context, ttl time.Duration) error {
	l.locker.mu.Lock()
	defer l.locker.mu.Unlock()
	now := l.locker.Now()
	e, ok := l.locker.held[l.key]
	if !ok || e.token != l.token || !now.Before(e.expires) {
		return appErrors.ErrLeaseHeld
	}
	e.expires = now.Add(ttl)
	l.locker.held[l.key] = e
	return nil
}

func (l *localLease) Release(context.Context) error {
	l.locker.mu.Lock()
	defer l.locker.mu.Unlock()
	// a lease that expired and was re-obtained belongs to someone else
	if e, ok := l.locker.held[l.key]; ok && e.token == l.token {
		delete(l.locker.held, l.key)
	}
	return nil
}
