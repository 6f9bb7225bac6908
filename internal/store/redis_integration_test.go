//go:build integration

package store_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/serroba/shorturl/internal/shortener"
	"github.com/serroba/shorturl/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func getRedisAddr() string {
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		return addr
	}

	return "localhost:6379"
}

func newRedisClient(t *testing.T) *redis.Client {
	t.Helper()

	client := redis.NewClient(&redis.Options{
		Addr: getRedisAddr(),
		DB:   15,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		_ = client.Close()
		t.Skipf("Redis not available: %v", err)
	}

	require.NoError(t, client.FlushDB(context.Background()).Err())
	t.Cleanup(func() {
		_ = client.FlushDB(context.Background()).Err()
		_ = client.Close()
	})

	return client
}

func TestRedisStoreIntegration(t *testing.T) {
	ctx := context.Background()
	s := store.NewRedisStore(newRedisClient(t))
	now := time.Now().UTC()

	t.Run("insert, assign and get by code", func(t *testing.T) {
		record := newRecord("https://example.com/redis/1", now)
		record.OwnerID = "user-1"

		require.NoError(t, s.Insert(ctx, record))
		require.NoError(t, s.AssignCode(ctx, record.ID, "rcode1", now))

		got, err := s.GetByCode(ctx, "rcode1")
		require.NoError(t, err)
		assert.Equal(t, record.ID, got.ID)
		assert.Equal(t, shortener.Code("rcode1"), got.Code)
		assert.Equal(t, record.LongURL, got.LongURL)
		assert.Equal(t, "user-1", got.OwnerID)
		assert.True(t, record.ExpiresAt.Equal(got.ExpiresAt))
	})

	t.Run("duplicate hash maps to ErrHashTaken", func(t *testing.T) {
		require.NoError(t, s.Insert(ctx, newRecord("https://example.com/redis/dup", now)))

		err := s.Insert(ctx, newRecord("https://example.com/redis/dup", now))

		assert.ErrorIs(t, err, shortener.ErrHashTaken)
	})

	t.Run("duplicate code maps to ErrCodeTaken", func(t *testing.T) {
		first := newRecord("https://example.com/redis/c1", now)
		second := newRecord("https://example.com/redis/c2", now)
		require.NoError(t, s.Insert(ctx, first))
		require.NoError(t, s.Insert(ctx, second))
		require.NoError(t, s.AssignCode(ctx, first.ID, "rdup", now))

		err := s.AssignCode(ctx, second.ID, "rdup", now)

		assert.ErrorIs(t, err, shortener.ErrCodeTaken)
	})

	t.Run("discard releases hash of provisional record", func(t *testing.T) {
		record := newRecord("https://example.com/redis/prov", now)
		require.NoError(t, s.Insert(ctx, record))

		require.NoError(t, s.Discard(ctx, record.ID))

		exists, err := s.ExistsByHash(ctx, record.URLHash)
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("discard leaves coded record", func(t *testing.T) {
		record := newRecord("https://example.com/redis/keep", now)
		require.NoError(t, s.Insert(ctx, record))
		require.NoError(t, s.AssignCode(ctx, record.ID, "rkeep", now))

		assert.ErrorIs(t, s.Discard(ctx, record.ID), shortener.ErrRecordNotFound)
	})

	t.Run("get non-existent returns ErrRecordNotFound", func(t *testing.T) {
		got, err := s.GetByCode(ctx, "nonexistent")

		assert.Nil(t, got)
		assert.ErrorIs(t, err, shortener.ErrRecordNotFound)
	})
}

func TestRedisCacheRepositoryIntegration(t *testing.T) {
	ctx := context.Background()
	client := newRedisClient(t)
	backing := &countingRepo{MemoryStore: store.NewMemoryStore()}
	cached := store.NewRedisCacheRepository(backing, client, time.Minute)

	seed(t, cached, "https://example.com/cached", "cached1", time.Now().Add(time.Hour))

	t.Run("second lookup is served from redis", func(t *testing.T) {
		first, err := cached.GetByCode(ctx, "cached1")
		require.NoError(t, err)

		second, err := cached.GetByCode(ctx, "cached1")
		require.NoError(t, err)

		assert.Equal(t, first.LongURL, second.LongURL)
		assert.Equal(t, 1, backing.gets)
	})

	t.Run("ttl never outlives expiration", func(t *testing.T) {
		seed(t, cached, "https://example.com/soon", "soon1", time.Now().Add(5*time.Second))

		_, err := cached.GetByCode(ctx, "soon1")
		require.NoError(t, err)

		ttl, err := client.TTL(ctx, "shorturl:cache:soon1").Result()
		require.NoError(t, err)
		assert.LessOrEqual(t, ttl, 5*time.Second)
	})

	t.Run("exists by code hits cache", func(t *testing.T) {
		exists, err := cached.ExistsByCode(ctx, "cached1")

		require.NoError(t, err)
		assert.True(t, exists)
	})
}
