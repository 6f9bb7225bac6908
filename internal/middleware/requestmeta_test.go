package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/serroba/shorturl/internal/handlers"
	"github.com/serroba/shorturl/internal/messaging"
	"github.com/serroba/shorturl/internal/middleware"
	"github.com/stretchr/testify/assert"
)

type testOutput struct {
	Body string `json:"body"`
}

func setupTestAPI(t *testing.T) (*chi.Mux, chan handlers.RequestMeta) {
	t.Helper()

	router, metaChan, _ := setupCorrelatedTestAPI(t)

	return router, metaChan
}

func setupCorrelatedTestAPI(t *testing.T) (*chi.Mux, chan handlers.RequestMeta, chan string) {
	t.Helper()

	router := chi.NewMux()
	api := humachi.New(router, huma.DefaultConfig("Test", "1.0.0"))
	api.UseMiddleware(middleware.RequestMeta("X-User-ID"))

	metaChan := make(chan handlers.RequestMeta, 1)
	correlationChan := make(chan string, 1)

	huma.Get(api, "/test", func(ctx context.Context, _ *struct{}) (*testOutput, error) {
		metaChan <- handlers.RequestMetaFromContext(ctx)
		correlationChan <- messaging.CorrelationIDFromContext(ctx)

		return &testOutput{Body: "ok"}, nil
	})

	return router, metaChan, correlationChan
}

func serve(router http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	return w
}

func TestRequestMeta(t *testing.T) {
	t.Run("reads caller identity from header", func(t *testing.T) {
		router, metaChan := setupTestAPI(t)

		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set("X-User-ID", "  user-42 ")

		w := serve(router, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "user-42", (<-metaChan).Caller)
	})

	t.Run("missing header means anonymous", func(t *testing.T) {
		router, metaChan := setupTestAPI(t)

		serve(router, httptest.NewRequest(http.MethodGet, "/test", nil))

		assert.Empty(t, (<-metaChan).Caller)
	})

	t.Run("carries request id as correlation id", func(t *testing.T) {
		router, metaChan, correlationChan := setupCorrelatedTestAPI(t)

		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set(middleware.RequestIDHeader, "req-1")

		serve(router, req)

		assert.Equal(t, "req-1", (<-metaChan).RequestID)
		assert.Equal(t, "req-1", <-correlationChan)
	})

	t.Run("extracts IP from X-Forwarded-For with single IP", func(t *testing.T) {
		router, metaChan := setupTestAPI(t)

		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set("X-Forwarded-For", "192.168.1.1")

		serve(router, req)

		assert.Equal(t, "192.168.1.1", (<-metaChan).ClientIP)
	})

	t.Run("extracts first IP from X-Forwarded-For with multiple IPs", func(t *testing.T) {
		router, metaChan := setupTestAPI(t)

		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set("X-Forwarded-For", "192.168.1.1, 10.0.0.1, 172.16.0.1")

		serve(router, req)

		assert.Equal(t, "192.168.1.1", (<-metaChan).ClientIP)
	})

	t.Run("extracts IP from X-Real-IP when X-Forwarded-For is absent", func(t *testing.T) {
		router, metaChan := setupTestAPI(t)

		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set("X-Real-IP", "10.0.0.1")

		serve(router, req)

		assert.Equal(t, "10.0.0.1", (<-metaChan).ClientIP)
	})

	t.Run("falls back to remote addr when no IP headers present", func(t *testing.T) {
		router, metaChan := setupTestAPI(t)

		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.RemoteAddr = "203.0.113.7:5555"

		serve(router, req)

		assert.Equal(t, "203.0.113.7", (<-metaChan).ClientIP)
	})
}
