package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/serroba/shorturl/internal/shortener"
)

const (
	uniqueViolation = "23505"
	codeConstraint  = "short_urls_short_code_key"
	hashConstraint  = "short_urls_long_url_hash_key"
	shortURLColumns = "id, short_code, long_url, long_url_hash, expiration_time, created_at, updated_at, owner_id, is_deleted"
)

// PostgresStore is a PostgreSQL implementation of shortener.Repository.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL-backed URL store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (p *PostgresStore) Insert(ctx context.Context, shortURL *shortener.ShortURL) error {
	query := `
		INSERT INTO short_urls (short_code, long_url, long_url_hash, expiration_time, created_at, updated_at, owner_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	err := p.pool.QueryRow(ctx, query,
		nullable(string(shortURL.Code)),
		shortURL.LongURL,
		string(shortURL.URLHash),
		shortURL.ExpiresAt,
		shortURL.CreatedAt,
		shortURL.UpdatedAt,
		nullable(shortURL.OwnerID),
	).Scan(&shortURL.ID)

	return mapUniqueViolation(err)
}

func (p *PostgresStore) AssignCode(ctx context.Context, id int64, code shortener.Code, updatedAt time.Time) error {
	query := `
		UPDATE short_urls
		SET short_code = $2, updated_at = $3
		WHERE id = $1 AND NOT is_deleted
	`

	tag, err := p.pool.Exec(ctx, query, id, string(code), updatedAt)
	if err != nil {
		return mapUniqueViolation(err)
	}

	if tag.RowsAffected() == 0 {
		return shortener.ErrRecordNotFound
	}

	return nil
}

func (p *PostgresStore) ExistsByHash(ctx context.Context, hash shortener.URLHash) (bool, error) {
	return p.exists(ctx,
		`SELECT EXISTS(SELECT 1 FROM short_urls WHERE long_url_hash = $1 AND NOT is_deleted)`, string(hash))
}

func (p *PostgresStore) ExistsByCode(ctx context.Context, code shortener.Code) (bool, error) {
	return p.exists(ctx,
		`SELECT EXISTS(SELECT 1 FROM short_urls WHERE short_code = $1 AND NOT is_deleted)`, string(code))
}

func (p *PostgresStore) GetByCode(ctx context.Context, code shortener.Code) (*shortener.ShortURL, error) {
	query := `SELECT ` + shortURLColumns + ` FROM short_urls WHERE short_code = $1 AND NOT is_deleted`

	var (
		url       shortener.ShortURL
		shortCode *string
		ownerID   *string
	)

	err := p.pool.QueryRow(ctx, query, string(code)).Scan(
		&url.ID,
		&shortCode,
		&url.LongURL,
		&url.URLHash,
		&url.ExpiresAt,
		&url.CreatedAt,
		&url.UpdatedAt,
		&ownerID,
		&url.Deleted,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shortener.ErrRecordNotFound
		}

		return nil, err
	}

	if shortCode != nil {
		url.Code = shortener.Code(*shortCode)
	}

	if ownerID != nil {
		url.OwnerID = *ownerID
	}

	return &url, nil
}

func (p *PostgresStore) Discard(ctx context.Context, id int64) error {
	tag, err := p.pool.Exec(ctx, `DELETE FROM short_urls WHERE id = $1 AND short_code IS NULL`, id)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return shortener.ErrRecordNotFound
	}

	return nil
}

// PurgeProvisional deletes codeless records created before the cutoff.
func (p *PostgresStore) PurgeProvisional(ctx context.Context, createdBefore time.Time) (int64, error) {
	tag, err := p.pool.Exec(ctx,
		`DELETE FROM short_urls WHERE short_code IS NULL AND created_at < $1`, createdBefore)
	if err != nil {
		return 0, err
	}

	return tag.RowsAffected(), nil
}

func (p *PostgresStore) exists(ctx context.Context, query string, arg string) (bool, error) {
	var exists bool

	err := p.pool.QueryRow(ctx, query, arg).Scan(&exists)

	return exists, err
}

// mapUniqueViolation translates unique index violations into repository sentinels.
func mapUniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolation {
		return err
	}

	switch pgErr.ConstraintName {
	case codeConstraint:
		return shortener.ErrCodeTaken
	case hashConstraint:
		return shortener.ErrHashTaken
	default:
		return err
	}
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}

	return &s
}

// Compile-time checks.
var (
	_ shortener.Repository        = (*PostgresStore)(nil)
	_ shortener.ProvisionalPurger = (*PostgresStore)(nil)
)
