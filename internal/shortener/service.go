package shortener

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ShortenRequest holds the inputs of a shorten operation.
type ShortenRequest struct {
	LongURL string
	// CustomCode and ExpirationDays are only honored for identified callers.
	CustomCode     string
	ExpirationDays *int
	// Caller is the opaque caller identity; empty means anonymous.
	Caller string
}

// ShortenResult is returned by a successful shorten operation.
type ShortenResult struct {
	Code      Code
	ShortURL  string
	ExpiresAt time.Time
}

// Resolution is returned by a successful resolve operation.
type Resolution struct {
	Code        Code
	OriginalURL string
	ExpiresAt   time.Time
}

// RandomSource returns a non-negative random integer used as code entropy.
type RandomSource func() (uint32, error)

// OrphanHook is called when a provisional record could not be discarded
// after a failed shorten operation.
type OrphanHook func(ctx context.Context, record *ShortURL, cause error)

// Service shortens long URLs and resolves short codes.
// It holds no per-request state and is safe for concurrent use.
type Service struct {
	store    Repository
	cfg      Config
	reserved map[string]struct{}
	random   RandomSource
	now      func() time.Time
	onOrphan OrphanHook
	logger   *zap.Logger
}

// Option customizes a Service.
type Option func(*Service)

// WithRandomSource replaces the crypto/rand entropy source.
func WithRandomSource(src RandomSource) Option {
	return func(s *Service) { s.random = src }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithOrphanHook registers a hook for provisional records that could not be discarded.
func WithOrphanHook(hook OrphanHook) Option {
	return func(s *Service) { s.onOrphan = hook }
}

// NewService creates a new shortening service.
func NewService(store Repository, cfg Config, logger *zap.Logger, opts ...Option) *Service {
	s := &Service{
		store:    store,
		cfg:      cfg,
		reserved: make(map[string]struct{}, len(cfg.ReservedCodes)),
		random:   cryptoRandom,
		now:      time.Now,
		logger:   logger,
	}

	for _, code := range cfg.ReservedCodes {
		s.reserved[strings.ToLower(code)] = struct{}{}
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Shorten creates a short code for req.LongURL.
func (s *Service) Shorten(ctx context.Context, req ShortenRequest) (*ShortenResult, error) {
	if strings.TrimSpace(req.LongURL) == "" {
		s.logger.Warn("long url is blank")

		return nil, fmt.Errorf("%w: long url is blank", ErrInvalidRequest)
	}

	if !s.cfg.Enabled || s.cfg.DefaultExpirationDays <= 0 {
		s.logger.Warn("url shortening is disabled or default expiration is not set")

		return nil, fmt.Errorf("%w: url shortening is disabled", ErrInvalidRequest)
	}

	days := s.cfg.DefaultExpirationDays
	owner := strings.TrimSpace(req.Caller)

	var custom Code

	if owner != "" {
		if req.ExpirationDays != nil {
			if *req.ExpirationDays <= 0 {
				return nil, fmt.Errorf("%w: expiration must be at least one day", ErrInvalidRequest)
			}

			if limit := s.maxExpirationDays(); *req.ExpirationDays > limit {
				return nil, fmt.Errorf("%w: expiration must be at most %d days", ErrInvalidRequest, limit)
			}

			days = *req.ExpirationDays
		}

		custom = Code(strings.TrimSpace(req.CustomCode))
	}

	hash := HashURL(req.LongURL)

	exists, err := s.store.ExistsByHash(ctx, hash)
	if err != nil {
		return nil, storeError(err)
	}

	if exists {
		s.logger.Warn("long url already exists", zap.String("hash", string(hash)))

		return nil, ErrURLAlreadyExists
	}

	if custom != "" {
		if err = s.checkCustomCode(ctx, custom); err != nil {
			return nil, err
		}
	}

	now := s.now().UTC()
	record := &ShortURL{
		LongURL:   req.LongURL,
		URLHash:   hash,
		ExpiresAt: now.AddDate(0, 0, days),
		CreatedAt: now,
		UpdatedAt: now,
		OwnerID:   owner,
	}

	if !record.ExpiresAt.After(now) {
		return nil, fmt.Errorf("%w: expiration is out of range", ErrInvalidRequest)
	}

	if err = s.store.Insert(ctx, record); err != nil {
		if errors.Is(err, ErrHashTaken) {
			return nil, ErrURLAlreadyExists
		}

		return nil, storeError(err)
	}

	code, err := s.assignCode(ctx, record, custom)
	if err != nil {
		s.discard(ctx, record, err)

		return nil, err
	}

	s.logger.Info("short url created",
		zap.String("code", string(code)),
		zap.Int64("id", record.ID),
		zap.Bool("custom", custom != ""),
		zap.Time("expiresAt", record.ExpiresAt),
	)

	return &ShortenResult{
		Code:      code,
		ShortURL:  s.cfg.DomainPrefix + string(code),
		ExpiresAt: record.ExpiresAt,
	}, nil
}

// Resolve returns the original URL for a short code that has not expired.
func (s *Service) Resolve(ctx context.Context, code string) (*Resolution, error) {
	if strings.TrimSpace(code) == "" {
		return nil, fmt.Errorf("%w: short code is blank", ErrInvalidRequest)
	}

	record, err := s.store.GetByCode(ctx, Code(code))
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			s.logger.Debug("short url not found", zap.String("code", code))

			return nil, ErrURLNotFound
		}

		return nil, storeError(err)
	}

	if record.ExpiredAt(s.now()) {
		s.logger.Debug("short url expired", zap.String("code", code), zap.Time("expiresAt", record.ExpiresAt))

		return nil, ErrURLExpired
	}

	return &Resolution{
		Code:        record.Code,
		OriginalURL: record.LongURL,
		ExpiresAt:   record.ExpiresAt,
	}, nil
}

func (s *Service) checkCustomCode(ctx context.Context, code Code) error {
	if err := s.checkLength(code); err != nil {
		return err
	}

	if !isPathSafe(string(code)) {
		return fmt.Errorf("%w: short code may only contain letters, digits and -._~", ErrInvalidRequest)
	}

	// Dot segments are removed from paths by clients and routers.
	if code == "." || code == ".." {
		return fmt.Errorf("%w: short code %q is not a usable path", ErrInvalidRequest, code)
	}

	if _, ok := s.reserved[strings.ToLower(string(code))]; ok {
		return fmt.Errorf("%w: short code %q is reserved", ErrInvalidRequest, code)
	}

	exists, err := s.store.ExistsByCode(ctx, code)
	if err != nil {
		return storeError(err)
	}

	if exists {
		s.logger.Warn("short code already exists", zap.String("code", string(code)))

		return fmt.Errorf("%w: %s", ErrCodeAlreadyExists, code)
	}

	return nil
}

func (s *Service) maxExpirationDays() int {
	if s.cfg.MaxExpirationDays > 0 {
		return s.cfg.MaxExpirationDays
	}

	return DefaultMaxExpirationDays
}

func (s *Service) checkLength(code Code) error {
	if code == "" || len(code) > s.cfg.MaxCodeLength {
		s.logger.Warn("short code is empty or exceeds maximum length",
			zap.Int("length", len(code)),
			zap.Int("max", s.cfg.MaxCodeLength),
		)

		return ErrCodeExceedsMaxLength
	}

	return nil
}

// assignCode picks the final code for a provisional record and persists it.
// Custom codes get a single attempt; generated codes get 1+CollisionRetries.
func (s *Service) assignCode(ctx context.Context, record *ShortURL, custom Code) (Code, error) {
	attempts := 1
	if custom == "" && s.cfg.CollisionRetries > 0 {
		attempts += s.cfg.CollisionRetries
	}

	var lastErr error

	for attempt := 0; attempt < attempts; attempt++ {
		code := custom
		if code == "" {
			generated, err := s.generateCode(record.ID)
			if err != nil {
				return "", err
			}

			code = generated
		}

		if err := s.checkLength(code); err != nil {
			return "", err
		}

		exists, err := s.store.ExistsByCode(ctx, code)
		if err != nil {
			return "", storeError(err)
		}

		if !exists {
			err = s.store.AssignCode(ctx, record.ID, code, s.now().UTC())
			if err == nil {
				record.Code = code

				return code, nil
			}

			if !errors.Is(err, ErrCodeTaken) {
				return "", storeError(err)
			}
		}

		s.logger.Warn("short code collision",
			zap.String("code", string(code)),
			zap.Int("attempt", attempt+1),
			zap.Int("attempts", attempts),
		)

		lastErr = fmt.Errorf("%w: %s", ErrCodeAlreadyExists, code)
	}

	return "", lastErr
}

func (s *Service) generateCode(id int64) (Code, error) {
	r, err := s.random()
	if err != nil {
		return "", fmt.Errorf("generate short code: %w", err)
	}

	// Unsigned arithmetic wraps instead of going negative.
	seed := uint64(id) + uint64(s.cfg.SecretSeed) + uint64(r)

	return Code(Encode(seed)), nil
}

func (s *Service) discard(ctx context.Context, record *ShortURL, cause error) {
	err := s.store.Discard(context.WithoutCancel(ctx), record.ID)
	if err == nil || errors.Is(err, ErrRecordNotFound) {
		return
	}

	s.logger.Error("failed to discard provisional record",
		zap.Int64("id", record.ID),
		zap.NamedError("cause", cause),
		zap.Error(err),
	)

	if s.onOrphan != nil {
		s.onOrphan(ctx, record, cause)
	}
}

// isPathSafe reports whether s uses only RFC 3986 unreserved characters,
// so it needs no escaping as a path segment.
func isPathSafe(s string) bool {
	if s == "" {
		return false
	}

	for i := 0; i < len(s); i++ {
		c := s[i]

		switch {
		case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		case c == '-', c == '.', c == '_', c == '~':
		default:
			return false
		}
	}

	return true
}

func storeError(err error) error {
	return fmt.Errorf("%w: %w", ErrStore, err)
}

func cryptoRandom() (uint32, error) {
	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		return 0, err
	}

	return binary.BigEndian.Uint32(b[:]) & math.MaxInt32, nil
}
