package handlers

import "context"

type requestMetaKey struct{}

// RequestMeta holds request-scoped values read at the HTTP edge.
type RequestMeta struct {
	RequestID string
	// Caller is the opaque caller identity; empty for anonymous requests.
	Caller   string
	ClientIP string
}

// ContextWithRequestMeta adds request metadata to context.
func ContextWithRequestMeta(ctx context.Context, meta RequestMeta) context.Context {
	return context.WithValue(ctx, requestMetaKey{}, meta)
}

// RequestMetaFromContext extracts request metadata from context.
func RequestMetaFromContext(ctx context.Context) RequestMeta {
	if v, ok := ctx.Value(requestMetaKey{}).(RequestMeta); ok {
		return v
	}

	return RequestMeta{}
}
