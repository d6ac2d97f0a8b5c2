// Package lock keeps a feed from being loaded by two workers at once.
package lock

import (
	"context"
	"sync"
	"time"
)

// Locker hands out short-lived exclusive locks by key. TryLock never blocks:
// ok is false when the key is already held. release is nil unless ok.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (release func(), ok bool, err error)
}

var _ Locker = (*MemoryLocker)(nil)

// MemoryLocker serializes work within one process. The ttl is ignored; locks
// are held until released.
type MemoryLocker struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{held: make(map[string]struct{})}
}

func (l *MemoryLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (func(), bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.held[key]; ok {
		return nil, false, nil
	}
	l.held[key] = struct{}{}

	var once sync.Once
	release := func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, key)
			l.mu.Unlock()
		})
	}

	return release, true, nil
}
