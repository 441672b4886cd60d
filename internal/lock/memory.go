package lock

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryLocker implements Locker using in-memory locks.
// This is suitable for single-node deployments where distributed locking is not needed.
// The locks are NOT shared across process restarts or multiple instances.
type MemoryLocker struct {
	mu    sync.Mutex
	locks map[string]lockEntry
	now   func() time.Time
}

type lockEntry struct {
	expiresAt time.Time
	token     string
}

// NewMemoryLocker creates a new in-memory locker.
func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{
		locks: make(map[string]lockEntry),
		now:   time.Now,
	}
}

// Acquire attempts to acquire a lock.
func (m *MemoryLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	if ctx.Err() != nil {
		return "", false, ctx.Err()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	m.sweep(now)

	if _, held := m.locks[key]; held {
		return "", false, nil
	}

	token := uuid.NewString()
	m.locks[key] = lockEntry{expiresAt: now.Add(ttl), token: token}
	return token, true, nil
}

// Release releases a lock owned by token.
func (m *MemoryLocker) Release(ctx context.Context, key, token string) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.sweep(m.now())

	entry, exists := m.locks[key]
	if !exists || entry.token != token {
		return false, nil
	}
	delete(m.locks, key)
	return true, nil
}

// IsHeld checks if a lock is currently held.
func (m *MemoryLocker) IsHeld(ctx context.Context, key string) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.sweep(m.now())
	_, exists := m.locks[key]
	return exists, nil
}

// sweep drops expired locks. Callers hold m.mu.
func (m *MemoryLocker) sweep(now time.Time) {
	for key, entry := range m.locks {
		if !now.Before(entry.expiresAt) {
			delete(m.locks, key)
		}
	}
}

// Ensure MemoryLocker implements Locker.
var _ Locker = (*MemoryLocker)(nil)
