package reconcile

import (
	"context"
	"time"

	"github.com/serroba/shorturl/internal/shortener"
	"go.uber.org/zap"
)

// DefaultSweepInterval is used when NewSweeper gets a non-positive interval.
const DefaultSweepInterval = 5 * time.Minute

// PurgeRecorder counts purged records.
type PurgeRecorder interface {
	RecordPurged(n int64)
}

// Sweeper periodically purges provisional records older than a grace period.
// It catches records whose orphan event was never published.
type Sweeper struct {
	purger   shortener.ProvisionalPurger
	interval time.Duration
	grace    time.Duration
	recorder PurgeRecorder
	logger   *zap.Logger
	now      func() time.Time
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewSweeper creates a sweeper. grace must exceed the longest shorten request.
func NewSweeper(
	purger shortener.ProvisionalPurger,
	interval, grace time.Duration,
	recorder PurgeRecorder,
	logger *zap.Logger,
) *Sweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}

	return &Sweeper{
		purger:   purger,
		interval: interval,
		grace:    grace,
		recorder: recorder,
		logger:   logger,
		now:      time.Now,
	}
}

// Sweep runs one purge pass.
func (s *Sweeper) Sweep(ctx context.Context) (int64, error) {
	before := s.now().UTC().Add(-s.grace)

	n, err := s.purger.PurgeProvisional(ctx, before)
	if err != nil {
		return 0, err
	}

	if n > 0 {
		s.recorder.RecordPurged(n)
		s.logger.Info("purged provisional records",
			zap.Int64("count", n),
			zap.Time("createdBefore", before),
		)
	}

	return n, nil
}

// Start runs a sweep immediately and then once per interval until Shutdown.
func (s *Sweeper) Start(ctx context.Context) error {
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	go s.loop(ctx)

	return nil
}

func (s *Sweeper) loop(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		if _, err := s.Sweep(ctx); err != nil && ctx.Err() == nil {
			s.logger.Error("provisional sweep failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Shutdown stops the sweeper and waits for a running pass to finish.
func (s *Sweeper) Shutdown() error {
	if s.cancel == nil {
		return nil
	}

	s.cancel()
	<-s.done

	return nil
}
