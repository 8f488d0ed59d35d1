// Package keylock serializes work per key (for example per product id).
//
// Within one process a reference-counted mutex per key is always used. When a
// Redis client is supplied, a lease (SET NX PX with a random token) is also
// taken so that several storefront instances behind a load balancer do not
// interleave work on the same key.
package keylock

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ErrLeaseTimeout is returned when a distributed lease could not be acquired
// before the context or the wait budget ran out.
var ErrLeaseTimeout = errors.New("keylock: timed out waiting for lease")

// releaseScript deletes the lease only if it still carries our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type entry struct {
	mu   sync.Mutex
	refs int
}

// Locker hands out per-key locks.
type Locker struct {
	prefix string
	rdb    redis.UniversalClient
	ttl    time.Duration
	poll   time.Duration
	wait   time.Duration
	log    *zap.Logger

	mu    sync.Mutex
	locks map[string]*entry
}

// Option configures a Locker.
type Option func(*Locker)

// WithRedis adds a distributed lease on top of the local mutex.
func WithRedis(rdb redis.UniversalClient) Option {
	return func(l *Locker) { l.rdb = rdb }
}

// WithLeaseTTL sets how long a lease lives if its holder dies.
func WithLeaseTTL(d time.Duration) Option {
	return func(l *Locker) { l.ttl = d }
}

// WithWait caps how long Lock waits for a distributed lease.
func WithWait(d time.Duration) Option {
	return func(l *Locker) { l.wait = d }
}

// New returns a Locker whose Redis keys start with prefix.
func New(prefix string, log *zap.Logger, opts ...Option) *Locker {
	l := &Locker{
		prefix: prefix,
		ttl:    10 * time.Second,
		poll:   25 * time.Millisecond,
		wait:   5 * time.Second,
		log:    log,
		locks:  make(map[string]*entry),
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Distributed reports whether a Redis lease is taken in addition to the
// local mutex.
func (l *Locker) Distributed() bool { return l.rdb != nil }

// Lock blocks until key is held and returns the function that releases it.
func (l *Locker) Lock(ctx context.Context, key string) (func(), error) {
	e := l.acquireLocal(key)

	if l.rdb == nil {
		return func() { l.releaseLocal(key, e) }, nil
	}

	token := uuid.NewString()
	if err := l.acquireLease(ctx, key, token); err != nil {
		l.releaseLocal(key, e)
		return nil, err
	}
	return func() {
		// Release must not depend on the caller's (possibly cancelled) context.
		rctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := releaseScript.Run(rctx, l.rdb, []string{l.prefix + key}, token).Err(); err != nil {
			l.log.Warn("keylock: lease release failed", zap.String("key", key), zap.Error(err))
		}
		l.releaseLocal(key, e)
	}, nil
}

func (l *Locker) acquireLocal(key string) *entry {
	l.mu.Lock()
	e, ok := l.locks[key]
	if !ok {
		e = &entry{}
		l.locks[key] = e
	}
	e.refs++
	l.mu.Unlock()

	e.mu.Lock()
	return e
}

func (l *Locker) releaseLocal(key string, e *entry) {
	e.mu.Unlock()

	l.mu.Lock()
	e.refs--
	if e.refs == 0 {
		delete(l.locks, key)
	}
	l.mu.Unlock()
}

func (l *Locker) acquireLease(ctx context.Context, key, token string) error {
	deadline := time.Now().Add(l.wait)
	for {
		ok, err := l.rdb.SetNX(ctx, l.prefix+key, token, l.ttl).Result()
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		if time.Now().After(deadline) {
			return ErrLeaseTimeout
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(l.poll):
		}
	}
}

// held returns the number of keys with waiters or holders. Used by tests.
func (l *Locker) held() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
