// Package store provides persistence for tutor conversation history and
// learner progress.
package store

import (
	"context"
	"time"

	"github.com/ashureev/codeedge/internal/domain"
)

// Store persists per-user tracker state.
type Store interface {
	// GetHistory returns the stored conversation for a user, oldest first.
	// Unknown users yield an empty slice.
	GetHistory(ctx context.Context, userID string) ([]domain.ConversationEntry, error)

	// SaveHistory replaces the stored conversation for a user.
	SaveHistory(ctx context.Context, userID string, history []domain.ConversationEntry) error

	// GetProgress returns the progress record for a user, or nil if none exists.
	GetProgress(ctx context.Context, userID string) (*domain.ProgressRecord, error)

	// SaveProgress creates or replaces a progress record.
	SaveProgress(ctx context.Context, record *domain.ProgressRecord) error

	// Ping verifies backend connectivity.
	Ping(ctx context.Context) error

	// Close releases backend resources.
	Close() error
}

// UnlockFunc releases a lock obtained from a Locker.
type UnlockFunc func(ctx context.Context) error

// Locker provides cross-process mutual exclusion keyed by user.
type Locker interface {
	Lock(ctx context.Context, key string, ttl time.Duration) (UnlockFunc, error)
}
