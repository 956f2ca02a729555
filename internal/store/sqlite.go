package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/ashureev/codeedge/internal/domain"
	"github.com/ashureev/codeedge/internal/shared"
	_ "modernc.org/sqlite"
)

const (
	sqliteMaxRetries = 3
	sqliteBaseDelay  = 100 * time.Millisecond
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite creates a new SQLite-backed store.
func NewSQLite(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// WAL mode lets readers proceed while a writer holds the lock.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS conversations (
		user_id TEXT PRIMARY KEY,
		history_json TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS progress (
		user_id TEXT PRIMARY KEY,
		easy_solved INTEGER NOT NULL DEFAULT 0,
		medium_solved INTEGER NOT NULL DEFAULT 0,
		hard_solved INTEGER NOT NULL DEFAULT 0,
		current_difficulty TEXT NOT NULL DEFAULT 'easy',
		updated_at INTEGER NOT NULL
	);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// GetHistory returns the stored conversation for a user.
func (s *SQLiteStore) GetHistory(ctx context.Context, userID string) ([]domain.ConversationEntry, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT history_json FROM conversations WHERE user_id = ?`, userID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return []domain.ConversationEntry{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	return decodeHistory(raw)
}

// SaveHistory replaces the stored conversation for a user.
func (s *SQLiteStore) SaveHistory(ctx context.Context, userID string, history []domain.ConversationEntry) error {
	raw, err := encodeHistory(history)
	if err != nil {
		return err
	}

	query := `
	INSERT INTO conversations (user_id, history_json, updated_at)
	VALUES (?, ?, ?)
	ON CONFLICT(user_id) DO UPDATE SET
		history_json = excluded.history_json,
		updated_at = excluded.updated_at`

	return s.withRetry(ctx, "SaveHistory", userID, func() error {
		if _, err := s.db.ExecContext(ctx, query, userID, raw, time.Now().Unix()); err != nil {
			return fmt.Errorf("upsert history: %w", err)
		}
		return nil
	})
}

// GetProgress returns the progress record for a user, or nil if none exists.
func (s *SQLiteStore) GetProgress(ctx context.Context, userID string) (*domain.ProgressRecord, error) {
	query := `
		SELECT easy_solved, medium_solved, hard_solved, current_difficulty, updated_at
		FROM progress WHERE user_id = ?`

	rec := &domain.ProgressRecord{UserID: userID}
	var difficulty string
	var updatedAt int64
	err := s.db.QueryRowContext(ctx, query, userID).Scan(
		&rec.EasySolved, &rec.MediumSolved, &rec.HardSolved, &difficulty, &updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan progress row: %w", err)
	}

	rec.CurrentDifficulty = domain.Difficulty(difficulty)
	rec.UpdatedAt = time.Unix(updatedAt, 0)
	return rec, nil
}

// SaveProgress creates or replaces a progress record.
func (s *SQLiteStore) SaveProgress(ctx context.Context, record *domain.ProgressRecord) error {
	query := `
	INSERT INTO progress (user_id, easy_solved, medium_solved, hard_solved, current_difficulty, updated_at)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(user_id) DO UPDATE SET
		easy_solved = excluded.easy_solved,
		medium_solved = excluded.medium_solved,
		hard_solved = excluded.hard_solved,
		current_difficulty = excluded.current_difficulty,
		updated_at = excluded.updated_at`

	return s.withRetry(ctx, "SaveProgress", record.UserID, func() error {
		_, err := s.db.ExecContext(ctx, query,
			record.UserID, record.EasySolved, record.MediumSolved, record.HardSolved,
			string(record.CurrentDifficulty), updatedAtOrNow(record.UpdatedAt),
		)
		if err != nil {
			return fmt.Errorf("upsert progress: %w", err)
		}
		return nil
	})
}

// withRetry retries fn with exponential backoff while SQLite reports lock contention.
func (s *SQLiteStore) withRetry(ctx context.Context, op, userID string, fn func() error) error {
	var err error
	for i := 0; i < sqliteMaxRetries; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if !shared.IsSQLiteConflictError(err) || i == sqliteMaxRetries-1 {
			break
		}

		delay := sqliteBaseDelay * time.Duration(1<<i) // 100ms, 200ms, 400ms
		slog.Debug("SQLite write contended, retrying",
			"op", op,
			"user_id", userID,
			"attempt", i+1,
			"delay", delay)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return fmt.Errorf("%s for %s: %w", op, userID, err)
}

func encodeHistory(history []domain.ConversationEntry) (string, error) {
	if history == nil {
		history = []domain.ConversationEntry{}
	}
	raw, err := json.Marshal(history)
	if err != nil {
		return "", fmt.Errorf("encode history: %w", err)
	}
	return string(raw), nil
}

func decodeHistory(raw string) ([]domain.ConversationEntry, error) {
	history := []domain.ConversationEntry{}
	if raw == "" {
		return history, nil
	}
	if err := json.Unmarshal([]byte(raw), &history); err != nil {
		return nil, fmt.Errorf("decode history: %w", err)
	}
	return history, nil
}

func updatedAtOrNow(t time.Time) int64 {
	if t.IsZero() {
		return time.Now().Unix()
	}
	return t.Unix()
}
