// Package lock provides distributed and local locking abstractions.
// For single-node deployments, memory-based locks are used.
// For multi-replica deployments, Redis-based locks serialize work across
// processes.
package lock

import (
	"context"
	"time"
)

// Locker acquires and releases named, expiring locks.
//
// Acquire returns an owner token when the lock was taken. Release only
// removes the lock while the token still owns it, so a holder whose lock
// expired cannot release a lock since taken by someone else.
type Locker interface {
	// Acquire attempts to take the lock without waiting.
	// It returns ok=false, with no error, when the lock is held elsewhere.
	Acquire(ctx context.Context, key string, ttl time.Duration) (token string, ok bool, err error)

	// Release releases the lock if token still owns it.
	// It returns false if the lock had expired or changed hands.
	Release(ctx context.Context, key, token string) (bool, error)

	// IsHeld checks if the lock is currently held by anyone.
	IsHeld(ctx context.Context, key string) (bool, error)
}

// Retry controls AcquireWithRetry.
type Retry struct {
	// Attempts is the number of retries after the first attempt.
	Attempts int

	// Delay is the pause between attempts.
	Delay time.Duration
}

// AcquireWithRetry calls Acquire until it succeeds, the retries run out, or
// ctx is done.
func AcquireWithRetry(ctx context.Context, l Locker, key string, ttl time.Duration, retry Retry) (string, bool, error) {
	for i := 0; i <= retry.Attempts; i++ {
		token, ok, err := l.Acquire(ctx, key, ttl)
		if err != nil {
			return "", false, err
		}
		if ok {
			return token, true, nil
		}

		// Don't sleep on the last attempt.
		if i < retry.Attempts {
			select {
			case <-ctx.Done():
				return "", false, ctx.Err()
			case <-time.After(retry.Delay):
			}
		}
	}
	return "", false, nil
}

// Lock is a convenience wrapper for a specific lock instance.
type Lock struct {
	locker Locker
	key    string
	token  string
}

// NewLock creates a new Lock instance.
func NewLock(locker Locker, key string) *Lock {
	return &Lock{locker: locker, key: key}
}

// Acquire attempts to acquire the lock, retrying as configured.
func (l *Lock) Acquire(ctx context.Context, ttl time.Duration, retry Retry) (bool, error) {
	token, ok, err := AcquireWithRetry(ctx, l.locker, l.key, ttl, retry)
	if err != nil || !ok {
		return false, err
	}
	l.token = token
	return true, nil
}

// Release releases the lock. Releasing a lock that is not held is a no-op.
func (l *Lock) Release(ctx context.Context) error {
	if l.token == "" {
		return nil
	}
	_, err := l.locker.Release(ctx, l.key, l.token)
	l.token = ""
	return err
}

// IsHeld returns whether this Lock holds its key.
func (l *Lock) IsHeld() bool {
	return l.token != ""
}

// =============================================================================
// Lock Keys
// =============================================================================

// Keys provides lock key generation.
var Keys = lockKeys{}

type lockKeys struct{}

// Diagnostic returns the lock key serializing health checks of a service.
func (lockKeys) Diagnostic(service string) string {
	return "lock:diagnostic:" + service
}
