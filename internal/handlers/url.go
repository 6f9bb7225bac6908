package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/serroba/shorturl/internal/shortener"
	"go.uber.org/zap"
)

// Shortener is the core service consumed by URLHandler.
type Shortener interface {
	Shorten(ctx context.Context, req shortener.ShortenRequest) (*shortener.ShortenResult, error)
	Resolve(ctx context.Context, code string) (*shortener.Resolution, error)
}

// OutcomeRecorder counts request outcomes.
type OutcomeRecorder interface {
	RecordShorten(outcome string)
	RecordResolve(outcome string)
}

// URLHandler handles URL shortening operations.
type URLHandler struct {
	service  Shortener
	recorder OutcomeRecorder
	logger   *zap.Logger
}

// NewURLHandler creates a new URL handler.
func NewURLHandler(service Shortener, recorder OutcomeRecorder, logger *zap.Logger) *URLHandler {
	return &URLHandler{
		service:  service,
		recorder: recorder,
		logger:   logger,
	}
}

func (h *URLHandler) Shorten(ctx context.Context, req *ShortenRequest) (*ShortenResponse, error) {
	meta := RequestMetaFromContext(ctx)

	result, err := h.service.Shorten(ctx, shortener.ShortenRequest{
		LongURL:        req.Body.URL,
		CustomCode:     req.Body.ShortCode,
		ExpirationDays: req.Body.ExpirationTime,
		Caller:         meta.Caller,
	})
	if err != nil {
		kind := h.fail(ctx, "shorten", err)
		h.recorder.RecordShorten(kind.outcome)

		return nil, toAPIError(kind, err)
	}

	h.recorder.RecordShorten(OutcomeSuccess)

	resp := &ShortenResponse{}
	resp.Location = result.ShortURL
	resp.Body.Envelope = success()
	resp.Body.ShortURL = result.ShortURL
	resp.Body.ExpiresAt = result.ExpiresAt

	return resp, nil
}

func (h *URLHandler) Lookup(ctx context.Context, req *LookupRequest) (*LookupResponse, error) {
	resolution, err := h.service.Resolve(ctx, req.ShortCode)
	if err != nil {
		kind := h.fail(ctx, "lookup", err)
		h.recorder.RecordResolve(kind.outcome)

		return nil, toAPIError(kind, err)
	}

	h.recorder.RecordResolve(OutcomeSuccess)

	resp := &LookupResponse{}
	resp.Body.Envelope = success()
	resp.Body.OriginalURL = resolution.OriginalURL
	resp.Body.ExpiresAt = resolution.ExpiresAt

	return resp, nil
}

func (h *URLHandler) Redirect(ctx context.Context, req *RedirectRequest) (*RedirectResponse, error) {
	resolution, err := h.service.Resolve(ctx, req.Code)
	if err != nil {
		kind := h.fail(ctx, "redirect", err)
		h.recorder.RecordResolve(kind.outcome)

		apiErr := toAPIError(kind, err)
		if kind.target == shortener.ErrURLExpired {
			apiErr.status = http.StatusGone
		}

		return nil, apiErr
	}

	h.recorder.RecordResolve(OutcomeSuccess)

	// Never cache a redirect beyond the record's lifetime.
	maxAge := int(time.Until(resolution.ExpiresAt).Seconds())

	return &RedirectResponse{
		Status:       http.StatusFound,
		Location:     resolution.OriginalURL,
		CacheControl: cacheControl(maxAge),
	}, nil
}

func (h *URLHandler) fail(ctx context.Context, operation string, err error) errorKind {
	kind := classify(err)
	if kind.outcome == OutcomeError {
		h.logger.Error("request failed",
			zap.String("operation", operation),
			zap.String("requestId", RequestMetaFromContext(ctx).RequestID),
			zap.Error(err),
		)
	}

	return kind
}

func cacheControl(maxAge int) string {
	const maxCache = 300

	if maxAge <= 0 {
		return "no-store"
	}

	return "private, max-age=" + strconv.Itoa(min(maxAge, maxCache))
}
