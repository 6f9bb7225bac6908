package container

import (
	"fmt"

	"github.com/samber/do"
	"github.com/serroba/shorturl/internal/shortener"
	"github.com/serroba/shorturl/internal/store"
	"go.uber.org/zap"
)

// Storage backends selectable with Options.Store.
const (
	StoreMemory   = "memory"
	StoreRedis    = "redis"
	StorePostgres = "postgres"
)

// Backend is the selected storage backend before any caching.
type Backend struct {
	shortener.Repository

	// Purger is nil when the backend cannot sweep provisional records.
	Purger shortener.ProvisionalPurger
}

// cachedRepository releases the in-process cache on shutdown.
type cachedRepository struct {
	shortener.Repository

	close func()
}

func (c *cachedRepository) Shutdown() error {
	c.close()

	return nil
}

// RepositoryPackage provides the Backend and the cached shortener.Repository
// the service runs on.
func RepositoryPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*Backend, error) {
		opts := do.MustInvoke[*Options](i)

		switch opts.Store {
		case StoreMemory:
			s := store.NewMemoryStore()

			return &Backend{Repository: s, Purger: s}, nil
		case StoreRedis:
			client := do.MustInvoke[*RedisClient](i)

			return &Backend{Repository: store.NewRedisStore(client.Client)}, nil
		case StorePostgres:
			pool := do.MustInvoke[*PostgresPool](i)
			s := store.NewPostgresStore(pool.Pool)

			return &Backend{Repository: s, Purger: s}, nil
		default:
			return nil, fmt.Errorf("unknown store %q", opts.Store)
		}
	})

	do.Provide(i, func(i *do.Injector) (shortener.Repository, error) {
		opts := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)
		backend := do.MustInvoke[*Backend](i)

		var repo shortener.Repository = backend.Repository

		// A Redis backend is its own cache.
		if opts.Store == StorePostgres && opts.CacheTTLSeconds > 0 {
			client := do.MustInvoke[*RedisClient](i)
			repo = store.NewRedisCacheRepository(repo, client.Client, seconds(opts.CacheTTLSeconds))
		}

		logger.Info("repository ready",
			zap.String("store", opts.Store),
			zap.Int("cacheTTLSeconds", opts.CacheTTLSeconds),
			zap.Int("localCacheSize", opts.LocalCacheSize),
		)

		if opts.LocalCacheSize <= 0 {
			return repo, nil
		}

		local, err := store.NewLocalCacheRepository(repo, int64(opts.LocalCacheSize), seconds(opts.LocalCacheTTL))
		if err != nil {
			return nil, fmt.Errorf("create local cache: %w", err)
		}

		return &cachedRepository{Repository: local, close: local.Close}, nil
	})
}
