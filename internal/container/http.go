package container

import (
	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	_ "github.com/danielgtaylor/huma/v2/formats/cbor" // CBOR format support for huma
	"github.com/go-chi/chi/v5"
	"github.com/jaevor/go-nanoid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/samber/do"
	"github.com/serroba/shorturl/internal/handlers"
	"github.com/serroba/shorturl/internal/health"
	"github.com/serroba/shorturl/internal/metrics"
	"github.com/serroba/shorturl/internal/middleware"
	"github.com/serroba/shorturl/internal/shortener"
	"go.uber.org/zap"
)

const requestIDLength = 21

// HTTPPackage provides the router and the huma API with every route registered.
func HTTPPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*chi.Mux, error) {
		logger := do.MustInvoke[*zap.Logger](i)
		m := do.MustInvoke[*metrics.Metrics](i)
		reg := do.MustInvoke[*prometheus.Registry](i)

		generate, err := nanoid.Standard(requestIDLength)
		if err != nil {
			return nil, err
		}

		router := chi.NewMux()
		router.Use(middleware.RequestID(generate))
		router.Use(middleware.AccessLog(logger.Named("http"), m))
		router.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

		return router, nil
	})

	do.Provide(i, func(i *do.Injector) (huma.API, error) {
		opts := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)
		router := do.MustInvoke[*chi.Mux](i)
		service := do.MustInvoke[*shortener.Service](i)
		m := do.MustInvoke[*metrics.Metrics](i)

		handlers.UseEnvelopeErrors()

		api := humachi.New(router, huma.DefaultConfig("URL Shortener", "1.0.0"))
		api.UseMiddleware(middleware.RequestMeta(opts.CallerHeader))

		handlers.RegisterRoutes(api, handlers.NewURLHandler(service, m, logger.Named("handlers")))
		health.RegisterRoutes(api, health.NewHandler(checkers(i, opts)))

		return api, nil
	})
}

// checkers lists the dependencies the configured server talks to.
func checkers(i *do.Injector, opts *Options) map[string]health.Checker {
	out := make(map[string]health.Checker)

	if opts.Store == StorePostgres {
		out["postgres"] = health.NewPostgresChecker(do.MustInvoke[*PostgresPool](i).Pool)
	}

	if usesRedis(opts) {
		out["redis"] = health.NewRedisChecker(do.MustInvoke[*RedisClient](i).Client)
	}

	return out
}

func usesRedis(opts *Options) bool {
	return opts.Store == StoreRedis ||
		opts.Events ||
		(opts.Store == StorePostgres && opts.CacheTTLSeconds > 0)
}
