package container

import (
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/samber/do"
	"github.com/serroba/shorturl/internal/handlers"
	"github.com/serroba/shorturl/internal/messaging"
	"github.com/serroba/shorturl/internal/metrics"
	"github.com/serroba/shorturl/internal/reconcile"
	"github.com/serroba/shorturl/internal/shortener"
	"go.uber.org/zap"
)

// ShortenerConfig maps options onto the service settings.
func ShortenerConfig(opts *Options) shortener.Config {
	return shortener.Config{
		DomainPrefix:          opts.DomainPrefix,
		DefaultExpirationDays: opts.DefaultExpirationDays,
		MaxExpirationDays:     opts.MaxExpirationDays,
		Enabled:               opts.Enabled,
		MaxCodeLength:         opts.MaxCodeLength,
		SecretSeed:            int64(opts.SecretSeed),
		CollisionRetries:      opts.CollisionRetries,
		ReservedCodes:         handlers.ReservedPaths,
	}
}

// MetricsPackage provides a registry with runtime collectors and the service metrics.
func MetricsPackage(i *do.Injector) {
	do.Provide(i, func(_ *do.Injector) (*prometheus.Registry, error) {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)

		return reg, nil
	})

	do.Provide(i, func(i *do.Injector) (*metrics.Metrics, error) {
		return metrics.New(do.MustInvoke[*prometheus.Registry](i)), nil
	})
}

// PublisherGroupPackage provides the Redis Streams publisher.
func PublisherGroupPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*messaging.PublisherGroup, error) {
		client := do.MustInvoke[*RedisClient](i)
		logger := do.MustInvoke[*zap.Logger](i)

		publisher, err := redisstream.NewPublisher(redisstream.PublisherConfig{
			Client:     client.Client,
			Marshaller: redisstream.DefaultMarshallerUnmarshaller{},
		}, messaging.NewZapLogger(logger.Named("publisher")))
		if err != nil {
			return nil, err
		}

		return messaging.NewPublisherGroup(publisher), nil
	})
}

// ShortenerPackage provides the shortening service. With events enabled,
// records the service cannot discard are announced to the reconciler.
func ShortenerPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*shortener.Service, error) {
		opts := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)
		repo := do.MustInvoke[shortener.Repository](i)

		var svcOpts []shortener.Option

		if opts.Events {
			group := do.MustInvoke[*messaging.PublisherGroup](i)
			m := do.MustInvoke[*metrics.Metrics](i)
			publish := messaging.NewPublishFunc[reconcile.OrphanedRecordEvent](group.Publisher(), reconcile.Topic)

			svcOpts = append(svcOpts, shortener.WithOrphanHook(reconcile.NewOrphanHook(publish, m, logger)))
		}

		return shortener.NewService(repo, ShortenerConfig(opts), logger.Named("shortener"), svcOpts...), nil
	})
}
