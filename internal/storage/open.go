package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"

	"github.com/fleet-console/fleet-console/internal/config"
)

type pinger interface {
	Ping(ctx context.Context) error
}

// Open builds the KV backend selected by cfg.Storage.Driver and waits for it
// to answer a ping.
func Open(ctx context.Context, cfg *config.Config) (Backend, error) {
	var backend Backend

	switch cfg.Storage.Driver {
	case "", "memory":
		return NewMemoryKV(), nil

	case "redis":
		backend = NewRedisKV(redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}))

	case "postgres":
		db, err := OpenPostgres(cfg.Database.DSN)
		if err != nil {
			return nil, err
		}
		db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
		db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
		db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

		kv, err := NewPostgresKV(db, cfg.Database.Table)
		if err != nil {
			db.Close()
			return nil, err
		}
		backend = kv

	default:
		return nil, fmt.Errorf("unknown storage driver: %s", cfg.Storage.Driver)
	}

	if err := waitReady(ctx, backend.(pinger), cfg.Storage.ConnectRetries); err != nil {
		backend.Close()
		return nil, fmt.Errorf("connect %s: %w", cfg.Storage.Driver, err)
	}

	if kv, ok := backend.(*PostgresKV); ok {
		if err := kv.Migrate(ctx); err != nil {
			kv.Close()
			return nil, err
		}
	}

	log.Info().Str("driver", cfg.Storage.Driver).Msg("Storage connected")
	return backend, nil
}

// waitReady pings p with exponential backoff, giving up after retries
// failed attempts or when ctx is done.
func waitReady(ctx context.Context, p pinger, retries uint64) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxInterval = 5 * time.Second

	ping := func() error {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return p.Ping(pingCtx)
	}
	notify := func(err error, next time.Duration) {
		log.Warn().Err(err).Dur("retry_in", next).Msg("Storage not ready")
	}

	return backoff.RetryNotify(ping, backoff.WithContext(backoff.WithMaxRetries(b, retries), ctx), notify)
}
