package store

import (
	"context"
	"time"

	"github.com/dgraph-io/ristretto"
	"github.com/serroba/shorturl/internal/shortener"
)

// LocalCacheRepository is an in-process cache in front of a Repository.
// It keeps GetByCode hits bounded by item count and a short TTL so several
// instances converge quickly.
type LocalCacheRepository struct {
	shortener.Repository

	cache *ristretto.Cache
	ttl   time.Duration
	now   func() time.Time
}

// NewLocalCacheRepository creates a ristretto-backed cache holding up to maxItems records.
func NewLocalCacheRepository(
	store shortener.Repository, maxItems int64, ttl time.Duration,
) (*LocalCacheRepository, error) {
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: maxItems * 10,
		MaxCost:     maxItems,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}

	return &LocalCacheRepository{
		Repository: store,
		cache:      cache,
		ttl:        ttl,
		now:        time.Now,
	}, nil
}

func (l *LocalCacheRepository) GetByCode(ctx context.Context, code shortener.Code) (*shortener.ShortURL, error) {
	if v, ok := l.cache.Get(string(code)); ok {
		found := *v.(*shortener.ShortURL)

		return &found, nil
	}

	url, err := l.Repository.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	ttl := l.ttl
	if remaining := url.ExpiresAt.Sub(l.now()); remaining < ttl {
		ttl = remaining
	}

	if ttl > 0 {
		cached := *url
		// cost=1 limits by entry count
		l.cache.SetWithTTL(string(code), &cached, 1, ttl)
	}

	return url, nil
}

// Wait blocks until buffered writes are applied.
func (l *LocalCacheRepository) Wait() {
	l.cache.Wait()
}

// Close stops the cache's background goroutines.
func (l *LocalCacheRepository) Close() {
	l.cache.Close()
}

// Compile-time check.
var _ shortener.Repository = (*LocalCacheRepository)(nil)
