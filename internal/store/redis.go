package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/serroba/shorturl/internal/shortener"
)

// insertScript claims the hash (and the code, when given) and writes the record atomically.
// KEYS: hashes, codes, record. ARGV: hash, id, code, field/value pairs...
var insertScript = redis.NewScript(`
if redis.call('HEXISTS', KEYS[1], ARGV[1]) == 1 then return -1 end
if ARGV[3] ~= '' and redis.call('HEXISTS', KEYS[2], ARGV[3]) == 1 then return -2 end
redis.call('HSET', KEYS[1], ARGV[1], ARGV[2])
if ARGV[3] ~= '' then redis.call('HSET', KEYS[2], ARGV[3], ARGV[2]) end
redis.call('HSET', KEYS[3], unpack(ARGV, 4))
return 1
`)

// assignScript claims a code for an existing record.
// KEYS: codes, record. ARGV: code, id, updated_at.
var assignScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[2]) == 0 then return -1 end
local owner = redis.call('HGET', KEYS[1], ARGV[1])
if owner and owner ~= ARGV[2] then return -2 end
local previous = redis.call('HGET', KEYS[2], 'code')
if previous and previous ~= '' and previous ~= ARGV[1] then redis.call('HDEL', KEYS[1], previous) end
redis.call('HSET', KEYS[1], ARGV[1], ARGV[2])
redis.call('HSET', KEYS[2], 'code', ARGV[1], 'updated_at', ARGV[3])
return 1
`)

// discardScript removes a record that has no code yet and releases its hash.
// KEYS: hashes, record.
var discardScript = redis.NewScript(`
local fields = redis.call('HMGET', KEYS[2], 'code', 'url_hash')
if not fields[2] then return 0 end
if fields[1] and fields[1] ~= '' then return 0 end
redis.call('HDEL', KEYS[1], fields[2])
redis.call('DEL', KEYS[2])
return 1
`)

// RedisStore is a Redis implementation of shortener.Repository.
// Records live in hashes keyed by id; two hash maps index them by code and URL hash.
type RedisStore struct {
	client    *redis.Client
	seqKey    string // INCR counter for ids
	hashesKey string // urlHash -> id
	codesKey  string // code -> id
	prefix    string // "shorturl:record:" + id -> record fields
}

// NewRedisStore creates a new Redis-backed URL store.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{
		client:    client,
		seqKey:    "shorturl:seq",
		hashesKey: "shorturl:hashes",
		codesKey:  "shorturl:codes",
		prefix:    "shorturl:record:",
	}
}

func (r *RedisStore) Insert(ctx context.Context, shortURL *shortener.ShortURL) error {
	id, err := r.client.Incr(ctx, r.seqKey).Result()
	if err != nil {
		return err
	}

	record := *shortURL
	record.ID = id

	args := []any{string(record.URLHash), id, string(record.Code)}
	args = append(args, recordFields(&record)...)

	res, err := insertScript.Run(ctx, r.client,
		[]string{r.hashesKey, r.codesKey, r.recordKey(id)}, args...,
	).Int()
	if err != nil {
		return err
	}

	switch res {
	case -1:
		return shortener.ErrHashTaken
	case -2:
		return shortener.ErrCodeTaken
	}

	shortURL.ID = id

	return nil
}

func (r *RedisStore) AssignCode(ctx context.Context, id int64, code shortener.Code, updatedAt time.Time) error {
	res, err := assignScript.Run(ctx, r.client,
		[]string{r.codesKey, r.recordKey(id)}, string(code), id, updatedAt.UnixNano(),
	).Int()
	if err != nil {
		return err
	}

	switch res {
	case -1:
		return shortener.ErrRecordNotFound
	case -2:
		return shortener.ErrCodeTaken
	}

	return nil
}

func (r *RedisStore) ExistsByHash(ctx context.Context, hash shortener.URLHash) (bool, error) {
	return r.client.HExists(ctx, r.hashesKey, string(hash)).Result()
}

func (r *RedisStore) ExistsByCode(ctx context.Context, code shortener.Code) (bool, error) {
	return r.client.HExists(ctx, r.codesKey, string(code)).Result()
}

func (r *RedisStore) GetByCode(ctx context.Context, code shortener.Code) (*shortener.ShortURL, error) {
	id, err := r.client.HGet(ctx, r.codesKey, string(code)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, shortener.ErrRecordNotFound
		}

		return nil, err
	}

	fields, err := r.client.HGetAll(ctx, r.prefix+id).Result()
	if err != nil {
		return nil, err
	}

	if len(fields) == 0 {
		return nil, shortener.ErrRecordNotFound
	}

	return parseRecord(fields)
}

func (r *RedisStore) Discard(ctx context.Context, id int64) error {
	res, err := discardScript.Run(ctx, r.client, []string{r.hashesKey, r.recordKey(id)}).Int()
	if err != nil {
		return err
	}

	if res == 0 {
		return shortener.ErrRecordNotFound
	}

	return nil
}

func (r *RedisStore) recordKey(id int64) string {
	return r.prefix + strconv.FormatInt(id, 10)
}

// recordFields flattens a record into HSET field/value pairs.
func recordFields(url *shortener.ShortURL) []any {
	return []any{
		"id", url.ID,
		"code", string(url.Code),
		"long_url", url.LongURL,
		"url_hash", string(url.URLHash),
		"expires_at", url.ExpiresAt.UnixNano(),
		"created_at", url.CreatedAt.UnixNano(),
		"updated_at", url.UpdatedAt.UnixNano(),
		"owner_id", url.OwnerID,
	}
}

// parseRecord is the inverse of recordFields.
func parseRecord(fields map[string]string) (*shortener.ShortURL, error) {
	id, err := strconv.ParseInt(fields["id"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse id: %w", err)
	}

	url := &shortener.ShortURL{
		ID:      id,
		Code:    shortener.Code(fields["code"]),
		LongURL: fields["long_url"],
		URLHash: shortener.URLHash(fields["url_hash"]),
		OwnerID: fields["owner_id"],
	}

	for name, dst := range map[string]*time.Time{
		"expires_at": &url.ExpiresAt,
		"created_at": &url.CreatedAt,
		"updated_at": &url.UpdatedAt,
	} {
		nanos, err := strconv.ParseInt(fields[name], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}

		*dst = time.Unix(0, nanos).UTC()
	}

	return url, nil
}

// Compile-time check.
var _ shortener.Repository = (*RedisStore)(nil)
