package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ashureev/codeedge/internal/domain"
	_ "github.com/lib/pq"
)

// PostgresStore implements Store using PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres connects to databaseURL and ensures the schema exists.
func NewPostgres(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &PostgresStore{db: db}
	if err := s.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return s, nil
}

func (s *PostgresStore) initSchema(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS conversations (
		user_id TEXT PRIMARY KEY,
		history_json JSONB NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	);

	CREATE TABLE IF NOT EXISTS progress (
		user_id TEXT PRIMARY KEY,
		easy_solved INTEGER NOT NULL DEFAULT 0,
		medium_solved INTEGER NOT NULL DEFAULT 0,
		hard_solved INTEGER NOT NULL DEFAULT 0,
		current_difficulty TEXT NOT NULL DEFAULT 'easy',
		updated_at TIMESTAMPTZ NOT NULL
	);`
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the connection pool.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// GetHistory returns the stored conversation for a user.
func (s *PostgresStore) GetHistory(ctx context.Context, userID string) ([]domain.ConversationEntry, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT history_json FROM conversations WHERE user_id = $1`, userID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return []domain.ConversationEntry{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	return decodeHistory(raw)
}

// SaveHistory replaces the stored conversation for a user.
func (s *PostgresStore) SaveHistory(ctx context.Context, userID string, history []domain.ConversationEntry) error {
	raw, err := encodeHistory(history)
	if err != nil {
		return err
	}

	query := `
	INSERT INTO conversations (user_id, history_json, updated_at)
	VALUES ($1, $2, $3)
	ON CONFLICT (user_id) DO UPDATE SET
		history_json = EXCLUDED.history_json,
		updated_at = EXCLUDED.updated_at`
	if _, err := s.db.ExecContext(ctx, query, userID, raw, time.Now().UTC()); err != nil {
		return fmt.Errorf("upsert history: %w", err)
	}
	return nil
}

// GetProgress returns the progress record for a user, or nil if none exists.
func (s *PostgresStore) GetProgress(ctx context.Context, userID string) (*domain.ProgressRecord, error) {
	query := `
		SELECT easy_solved, medium_solved, hard_solved, current_difficulty, updated_at
		FROM progress WHERE user_id = $1`

	rec := &domain.ProgressRecord{UserID: userID}
	var difficulty string
	err := s.db.QueryRowContext(ctx, query, userID).Scan(
		&rec.EasySolved, &rec.MediumSolved, &rec.HardSolved, &difficulty, &rec.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan progress row: %w", err)
	}
	rec.CurrentDifficulty = domain.Difficulty(difficulty)
	return rec, nil
}

// SaveProgress creates or replaces a progress record.
func (s *PostgresStore) SaveProgress(ctx context.Context, record *domain.ProgressRecord) error {
	updatedAt := record.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}

	query := `
	INSERT INTO progress (user_id, easy_solved, medium_solved, hard_solved, current_difficulty, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT (user_id) DO UPDATE SET
		easy_solved = EXCLUDED.easy_solved,
		medium_solved = EXCLUDED.medium_solved,
		hard_solved = EXCLUDED.hard_solved,
		current_difficulty = EXCLUDED.current_difficulty,
		updated_at = EXCLUDED.updated_at`
	_, err := s.db.ExecContext(ctx, query,
		record.UserID, record.EasySolved, record.MediumSolved, record.HardSolved,
		string(record.CurrentDifficulty), updatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("upsert progress: %w", err)
	}
	return nil
}
