package store

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/serroba/shorturl/internal/shortener"
)

// RedisCacheRepository wraps a Repository with Redis caching for code lookups.
// Only resolvable records are cached; writes go straight to the underlying store.
type RedisCacheRepository struct {
	shortener.Repository

	client *redis.Client
	prefix string
	ttl    time.Duration
	now    func() time.Time
}

// NewRedisCacheRepository creates a new Redis-cached repository decorator.
func NewRedisCacheRepository(
	store shortener.Repository, client *redis.Client, ttl time.Duration,
) *RedisCacheRepository {
	return &RedisCacheRepository{
		Repository: store,
		client:     client,
		prefix:     "shorturl:cache:",
		ttl:        ttl,
		now:        time.Now,
	}
}

// GetByCode retrieves a short URL by its code, checking cache first.
func (r *RedisCacheRepository) GetByCode(ctx context.Context, code shortener.Code) (*shortener.ShortURL, error) {
	if url, ok := r.getFromCache(ctx, code); ok {
		return url, nil
	}

	url, err := r.Repository.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	r.cacheURL(ctx, url)

	return url, nil
}

// ExistsByCode answers from the cache when the code is cached.
func (r *RedisCacheRepository) ExistsByCode(ctx context.Context, code shortener.Code) (bool, error) {
	if n, err := r.client.Exists(ctx, r.prefix+string(code)).Result(); err == nil && n > 0 {
		return true, nil
	}

	return r.Repository.ExistsByCode(ctx, code)
}

func (r *RedisCacheRepository) getFromCache(ctx context.Context, code shortener.Code) (*shortener.ShortURL, bool) {
	fields, err := r.client.HGetAll(ctx, r.prefix+string(code)).Result()
	if err != nil || len(fields) == 0 {
		return nil, false
	}

	url, err := parseRecord(fields)
	if err != nil {
		return nil, false
	}

	return url, true
}

func (r *RedisCacheRepository) cacheURL(ctx context.Context, url *shortener.ShortURL) {
	ttl := r.ttl
	if remaining := url.ExpiresAt.Sub(r.now()); remaining < ttl {
		ttl = remaining
	}

	// Expired records are not cached; the resolver still sees them via the store.
	if ttl <= 0 || url.Code == "" {
		return
	}

	key := r.prefix + string(url.Code)

	pipe := r.client.TxPipeline()
	pipe.HSet(ctx, key, recordFields(url)...)
	pipe.Expire(ctx, key, ttl)
	_, _ = pipe.Exec(ctx)
}

// Compile-time check.
var _ shortener.Repository = (*RedisCacheRepository)(nil)
