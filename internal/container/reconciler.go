package container

import (
	"fmt"

	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/samber/do"
	"github.com/serroba/shorturl/internal/messaging"
	"github.com/serroba/shorturl/internal/metrics"
	"github.com/serroba/shorturl/internal/reconcile"
	"go.uber.org/zap"
)

// ReconcilerConsumerGroup is the Redis Streams consumer group of reconciler instances.
const ReconcilerConsumerGroup = "shorturl-reconciler"

// ReconcilerPackage provides the consumer group that discards orphaned
// records and sweeps stale provisional ones. The memory store is rejected
// since it is private to each process.
func ReconcilerPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*messaging.ConsumerGroup, error) {
		opts := do.MustInvoke[*Options](i)
		if opts.Store == StoreMemory {
			return nil, fmt.Errorf("reconciler needs a store shared with the api, got %q", opts.Store)
		}

		logger := do.MustInvoke[*zap.Logger](i)
		client := do.MustInvoke[*RedisClient](i)
		backend := do.MustInvoke[*Backend](i)
		m := do.MustInvoke[*metrics.Metrics](i)

		subscriber, err := redisstream.NewSubscriber(redisstream.SubscriberConfig{
			Client:        client.Client,
			Unmarshaller:  redisstream.DefaultMarshallerUnmarshaller{},
			ConsumerGroup: ReconcilerConsumerGroup,
		}, messaging.NewZapLogger(logger.Named("subscriber")))
		if err != nil {
			return nil, err
		}

		group := messaging.NewConsumerGroup(subscriber, logger.Named("reconciler"))

		handler := reconcile.NewHandler(backend.Repository, m, logger.Named("reconciler"))
		group.Add(messaging.NewConsumer(subscriber, reconcile.Topic, handler.Handle, logger))

		if backend.Purger == nil {
			logger.Warn("store cannot purge provisional records, sweeper disabled",
				zap.String("store", opts.Store),
			)

			return group, nil
		}

		group.Add(reconcile.NewSweeper(
			backend.Purger,
			seconds(opts.SweepInterval),
			seconds(opts.SweepGrace),
			m,
			logger.Named("sweeper"),
		))

		return group, nil
	})
}
