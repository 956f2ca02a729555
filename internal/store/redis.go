package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ashureev/codeedge/internal/domain"
	backend "github.com/redis/go-redis/v9"
)

const defaultRedisPrefix = "codeedge:"

// RedisStore implements Store using Redis string keys holding JSON.
type RedisStore struct {
	client *backend.Client
	prefix string
}

// RedisOption configures a RedisStore.
type RedisOption func(*RedisStore)

// WithRedisPrefix sets the key prefix.
func WithRedisPrefix(prefix string) RedisOption {
	return func(s *RedisStore) {
		s.prefix = prefix
	}
}

// NewRedis creates a Redis-backed store with its own client.
func NewRedis(address, password string, db int, opts ...RedisOption) *RedisStore {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewRedisFromClient(rdb, opts...)
}

// NewRedisFromClient creates a Redis-backed store from an existing client.
func NewRedisFromClient(client *backend.Client, opts ...RedisOption) *RedisStore {
	s := &RedisStore{client: client, prefix: defaultRedisPrefix}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Client returns the underlying client, shared with the Redis locker.
func (s *RedisStore) Client() *backend.Client {
	return s.client
}

func (s *RedisStore) historyKey(userID string) string {
	return s.prefix + "history:" + userID
}

func (s *RedisStore) progressKey(userID string) string {
	return s.prefix + "progress:" + userID
}

// GetHistory returns the stored conversation for a user.
func (s *RedisStore) GetHistory(ctx context.Context, userID string) ([]domain.ConversationEntry, error) {
	raw, err := s.client.Get(ctx, s.historyKey(userID)).Result()
	if errors.Is(err, backend.Nil) {
		return []domain.ConversationEntry{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get history: %w", err)
	}
	return decodeHistory(raw)
}

// SaveHistory replaces the stored conversation for a user.
func (s *RedisStore) SaveHistory(ctx context.Context, userID string, history []domain.ConversationEntry) error {
	raw, err := encodeHistory(history)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.historyKey(userID), raw, 0).Err(); err != nil {
		return fmt.Errorf("redis set history: %w", err)
	}
	return nil
}

// GetProgress returns the progress record for a user, or nil if none exists.
func (s *RedisStore) GetProgress(ctx context.Context, userID string) (*domain.ProgressRecord, error) {
	raw, err := s.client.Get(ctx, s.progressKey(userID)).Bytes()
	if errors.Is(err, backend.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get progress: %w", err)
	}

	var rec domain.ProgressRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("decode progress: %w", err)
	}
	rec.UserID = userID
	return &rec, nil
}

// SaveProgress creates or replaces a progress record. Progress never expires.
func (s *RedisStore) SaveProgress(ctx context.Context, record *domain.ProgressRecord) error {
	raw, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode progress: %w", err)
	}
	if err := s.client.Set(ctx, s.progressKey(record.UserID), raw, 0).Err(); err != nil {
		return fmt.Errorf("redis set progress: %w", err)
	}
	return nil
}

// Ping verifies the Redis connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
