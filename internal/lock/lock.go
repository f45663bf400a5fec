// Package lock provides an exclusive named lock held in Redis, used to keep
// concurrent benchmark runs off the same worker cluster.
package lock

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/multierr"

	"github.com/dbsmedya/cdr3net/internal/logger"
)

var (
	// ErrLockHeld is returned when another instance holds the lock.
	ErrLockHeld = errors.New("lock is held by another instance")

	// ErrLockLost is returned by WithLock when the lock expired or was taken
	// over while fn was running.
	ErrLockLost = errors.New("lock was lost while held")
)

// The lock value is a random token, so only the owner can release or extend it.
var (
	releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0`)

	extendScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0`)
)

// Lock is a named lock with an expiry. It is not safe for concurrent use.
type Lock struct {
	client *redis.Client
	name   string
	token  string
	ttl    time.Duration
	held   bool
	logger *logger.Logger
}

// New creates a lock; nothing is acquired until TryAcquire.
func New(client *redis.Client, name string, ttl time.Duration) *Lock {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Lock{
		client: client,
		name:   name,
		token:  uuid.NewString(),
		ttl:    ttl,
		logger: logger.NewNop(),
	}
}

// WithLogger sets the logger used to report renewal problems.
func (l *Lock) WithLogger(log *logger.Logger) *Lock {
	if log != nil {
		l.logger = log
	}
	return l
}

// Name builds a lock key of the form <prefix>lock:<job>, replacing
// characters outside [A-Za-z0-9_-] in job with underscores.
func Name(prefix, job string) string {
	sanitized := strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' || r == '-' {
			return r
		}
		return '_'
	}, job)
	return prefix + "lock:" + sanitized
}

// TryAcquire takes the lock if it is free. It reports whether the lock is
// now held by this instance.
func (l *Lock) TryAcquire(ctx context.Context) (bool, error) {
	if l.held {
		return true, nil
	}
	ok, err := l.client.SetNX(ctx, l.name, l.token, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire lock %q: %w", l.name, err)
	}
	l.held = ok
	return ok, nil
}

// AcquireOrFail takes the lock or returns ErrLockHeld.
func (l *Lock) AcquireOrFail(ctx context.Context) error {
	ok, err := l.TryAcquire(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrLockHeld, l.name)
	}
	return nil
}

// Extend pushes the expiry out by the lock's TTL. It returns false when the
// lock expired and was lost.
func (l *Lock) Extend(ctx context.Context) (bool, error) {
	if !l.held {
		return false, nil
	}
	n, err := extendScript.Run(ctx, l.client, []string{l.name}, l.token, l.ttl.Milliseconds()).Int()
	if err != nil {
		return false, fmt.Errorf("failed to extend lock %q: %w", l.name, err)
	}
	if n == 0 {
		l.held = false
	}
	return n == 1, nil
}

// Release frees the lock. It returns false if the lock was not held or had
// already expired.
func (l *Lock) Release(ctx context.Context) (bool, error) {
	if !l.held {
		return false, nil
	}
	n, err := releaseScript.Run(ctx, l.client, []string{l.name}, l.token).Int()
	if err != nil {
		return false, fmt.Errorf("failed to release lock %q: %w", l.name, err)
	}
	l.held = false
	return n == 1, nil
}

// IsHeld reports whether this instance believes it holds the lock.
func (l *Lock) IsHeld() bool {
	return l.held
}

// Key returns the Redis key of the lock.
func (l *Lock) Key() string {
	return l.name
}

// WithLock runs fn while holding the lock, extending it every third of its
// TTL, and releases it however fn returns. If a renewal finds the lock gone,
// fn's context is cancelled and ErrLockLost is returned along with fn's error.
func (l *Lock) WithLock(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := l.AcquireOrFail(ctx); err != nil {
		return err
	}

	fctx, cancel := context.WithCancel(ctx)
	var lost atomic.Bool
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(l.ttl / 3)
		defer ticker.Stop()
		for {
			select {
			case <-fctx.Done():
				return
			case <-ticker.C:
				ok, err := l.Extend(fctx)
				if err != nil {
					if fctx.Err() == nil {
						l.logger.Warnw("Failed to extend lock", "lock", l.name, "error", err)
					}
					continue
				}
				if !ok {
					l.logger.Errorw("Lock lost, cancelling work", "lock", l.name)
					lost.Store(true)
					cancel()
					return
				}
			}
		}
	}()

	defer func() {
		cancel()
		<-done
		releaseCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
		defer stop()
		if _, err := l.Release(releaseCtx); err != nil {
			l.logger.Warnw("Failed to release lock", "lock", l.name, "error", err)
		}
	}()

	err := fn(fctx)
	if lost.Load() {
		return multierr.Append(fmt.Errorf("%w: %s", ErrLockLost, l.name), err)
	}
	return err
}
