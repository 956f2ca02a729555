package store

import (
	"context"
	"sync"

	"github.com/ashureev/codeedge/internal/domain"
)

// MemoryStore keeps tracker state in process memory. State is lost on restart.
type MemoryStore struct {
	mu       sync.RWMutex
	history  map[string][]domain.ConversationEntry
	progress map[string]*domain.ProgressRecord
}

// NewMemory creates an empty in-memory store.
func NewMemory() *MemoryStore {
	return &MemoryStore{
		history:  make(map[string][]domain.ConversationEntry),
		progress: make(map[string]*domain.ProgressRecord),
	}
}

// GetHistory returns a copy of the user's conversation.
func (s *MemoryStore) GetHistory(_ context.Context, userID string) ([]domain.ConversationEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.ConversationEntry, len(s.history[userID]))
	copy(out, s.history[userID])
	return out, nil
}

// SaveHistory stores a copy of history.
func (s *MemoryStore) SaveHistory(_ context.Context, userID string, history []domain.ConversationEntry) error {
	cp := make([]domain.ConversationEntry, len(history))
	copy(cp, history)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.history[userID] = cp
	return nil
}

// GetProgress returns a copy of the user's progress or nil.
func (s *MemoryStore) GetProgress(_ context.Context, userID string) (*domain.ProgressRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.progress[userID].Clone(), nil
}

// SaveProgress stores a copy of record.
func (s *MemoryStore) SaveProgress(_ context.Context, record *domain.ProgressRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.progress[record.UserID] = record.Clone()
	return nil
}

// Ping always succeeds.
func (s *MemoryStore) Ping(context.Context) error { return nil }

// Close is a no-op.
func (s *MemoryStore) Close() error { return nil }
