package storage

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/radieske/palpitei-api/internal/catalog/store"
	"github.com/radieske/palpitei-api/internal/shared/cache"
	"github.com/radieske/palpitei-api/internal/shared/config"
	"github.com/radieske/palpitei-api/internal/shared/db"
)

// Open cria o backend de persistência conforme STORE_BACKEND.
// close libera as conexões abertas (no-op para file/memory).
func Open(ctx context.Context, cfg config.Config, log *zap.Logger) (backend store.Store, close func() error, err error) {
	noop := func() error { return nil }

	switch cfg.StoreBackend {
	case config.BackendFile, "":
		f, err := store.NewFile(cfg.DataDir)
		if err != nil {
			return nil, nil, err
		}
		log.Info("file store ready", zap.String("dir", cfg.DataDir))
		return f, noop, nil

	case config.BackendMemory:
		log.Warn("memory store: data is lost on restart")
		return store.NewMemory(), noop, nil

	case config.BackendRedis:
		rdb, err := cache.ConnectRedis(ctx, cfg.RedisAddr)
		if err != nil {
			return nil, nil, fmt.Errorf("connect redis: %w", err)
		}
		log.Info("redis connected", zap.String("addr", cfg.RedisAddr))
		return store.NewRedis(rdb, cfg.RedisKeyPrefix), rdb.Close, nil

	case config.BackendPostgres:
		pg, err := db.ConnectPostgres(cfg.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		s, err := store.NewSQL(ctx, pg, store.Postgres)
		if err != nil {
			pg.Close()
			return nil, nil, err
		}
		log.Info("postgres connected")
		return s, pg.Close, nil

	case config.BackendSQLite:
		lite, err := db.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		s, err := store.NewSQL(ctx, lite, store.SQLite)
		if err != nil {
			lite.Close()
			return nil, nil, err
		}
		log.Info("sqlite ready", zap.String("path", cfg.SQLitePath))
		return s, lite.Close, nil
	}

	return nil, nil, fmt.Errorf("unknown STORE_BACKEND %q", cfg.StoreBackend)
}
