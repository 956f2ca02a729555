package store

import (
	"context"
	"fmt"

	"github.com/ashureev/codeedge/internal/config"
)

// Open builds the configured Store. The returned Locker is nil unless the
// backend is shared across processes and supports locking.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, Locker, error) {
	switch cfg.Backend {
	case config.StoreMemory, "":
		return NewMemory(), nil, nil
	case config.StoreSQLite:
		s, err := NewSQLite(cfg.DBPath)
		if err != nil {
			return nil, nil, err
		}
		return s, nil, nil
	case config.StorePostgres:
		s, err := NewPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		return s, nil, nil
	case config.StoreRedis:
		s := NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := s.Ping(ctx); err != nil {
			_ = s.Close()
			return nil, nil, fmt.Errorf("ping redis: %w", err)
		}
		return s, NewRedisLocker(s.Client(), defaultRedisPrefix), nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}
