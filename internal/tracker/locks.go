// Package tracker keeps per-user tutor conversation history and learner
// progress on top of a store.Store.
package tracker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ashureev/codeedge/internal/store"
)

const distributedLockTTL = 30 * time.Second

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Locks serializes work per key. Entries are reference counted and dropped
// once no caller holds or waits on them. When a store.Locker is configured
// the in-process lock is followed by a distributed one.
type Locks struct {
	mu      sync.Mutex
	entries map[string]*lockEntry
	locker  store.Locker
}

// NewLocks creates a lock set. locker may be nil.
func NewLocks(locker store.Locker) *Locks {
	return &Locks{
		entries: make(map[string]*lockEntry),
		locker:  locker,
	}
}

func (l *Locks) acquire(key string) *lockEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.entries[key]
	if !ok {
		entry = &lockEntry{}
		l.entries[key] = entry
	}
	entry.refs++
	return entry
}

func (l *Locks) release(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.entries[key]
	if !ok {
		return
	}
	entry.refs--
	if entry.refs <= 0 {
		delete(l.entries, key)
	}
}

// WithLock runs fn while holding the lock for key.
func (l *Locks) WithLock(ctx context.Context, key string, fn func(context.Context) error) error {
	entry := l.acquire(key)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		l.release(key)
	}()

	if l.locker != nil {
		unlock, err := l.locker.Lock(ctx, key, distributedLockTTL)
		if err != nil {
			return fmt.Errorf("acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(context.WithoutCancel(ctx)); err != nil {
				slog.Warn("Failed to release distributed lock, it will expire via TTL",
					"key", key,
					"error", err)
			}
		}()
	}

	return fn(ctx)
}

// size reports the number of live entries.
func (l *Locks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
