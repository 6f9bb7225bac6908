package container

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/samber/do"
	"github.com/serroba/shorturl/internal/store"
	"go.uber.org/zap"
)

const connectTimeout = 10 * time.Second

// RedisPackage provides the Redis connection.
func RedisPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*RedisClient, error) {
		opts := do.MustInvoke[*Options](i)

		return &RedisClient{Client: redis.NewClient(&redis.Options{
			Addr: opts.RedisAddr,
		})}, nil
	})
}

// PostgresPackage provides the Postgres pool with migrations applied.
func PostgresPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*PostgresPool, error) {
		opts := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)

		ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
		defer cancel()

		pool, err := pgxpool.New(ctx, opts.PostgresURL)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}

		res, err := store.Migrate(ctx, pool)
		if err != nil {
			pool.Close()

			return nil, fmt.Errorf("migrate postgres: %w", err)
		}

		logger.Info("postgres migrations done",
			zap.Strings("applied", res.Applied),
			zap.Int("skipped", len(res.Skipped)),
		)

		return &PostgresPool{Pool: pool}, nil
	})
}
