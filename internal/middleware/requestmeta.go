package middleware

import (
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/shorturl/internal/handlers"
	"github.com/serroba/shorturl/internal/messaging"
)

// RequestMeta is a middleware that adds the request id, caller identity and
// client IP to the request context. The request id also becomes the
// correlation id of events published while serving the request. The caller is read from callerHeader
// as an opaque value; an absent or blank header means anonymous.
func RequestMeta(callerHeader string) func(ctx huma.Context, next func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		meta := handlers.RequestMeta{
			RequestID: ctx.Header(RequestIDHeader),
			Caller:    strings.TrimSpace(ctx.Header(callerHeader)),
			ClientIP:  extractClientIP(ctx),
		}

		newCtx := handlers.ContextWithRequestMeta(ctx.Context(), meta)
		if meta.RequestID != "" {
			newCtx = messaging.WithCorrelationID(newCtx, meta.RequestID)
		}
		ctx = huma.WithContext(ctx, newCtx)

		next(ctx)
	}
}

func extractClientIP(ctx huma.Context) string {
	// Check X-Forwarded-For first (may contain multiple IPs)
	if xff := ctx.Header("X-Forwarded-For"); xff != "" {
		// Take the first IP (original client)
		if idx := strings.Index(xff, ","); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}

		return strings.TrimSpace(xff)
	}

	if xri := ctx.Header("X-Real-IP"); xri != "" {
		return xri
	}

	addr := ctx.RemoteAddr()
	if idx := strings.LastIndex(addr, ":"); idx != -1 {
		return addr[:idx]
	}

	return addr
}
