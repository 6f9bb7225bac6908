package reconcile

import (
	"context"
	"errors"
	"fmt"

	"github.com/serroba/shorturl/internal/messaging"
	"github.com/serroba/shorturl/internal/shortener"
	"go.uber.org/zap"
)

var errInvalidEvent = errors.New("orphaned record event without id")

// Discarder removes provisional records.
type Discarder interface {
	Discard(ctx context.Context, id int64) error
}

// Handler discards the provisional records announced on Topic.
type Handler struct {
	store    Discarder
	recorder ResultRecorder
	logger   *zap.Logger
}

// NewHandler creates a new orphan event handler.
func NewHandler(store Discarder, recorder ResultRecorder, logger *zap.Logger) *Handler {
	return &Handler{
		store:    store,
		recorder: recorder,
		logger:   logger,
	}
}

// Handle discards the record of event. A record that already has a code, or
// is gone, needs no work.
func (h *Handler) Handle(ctx context.Context, event *OrphanedRecordEvent) error {
	if event.ID <= 0 {
		h.recorder.RecordOrphan(ResultInvalid)

		return messaging.Permanent(errInvalidEvent)
	}

	err := h.store.Discard(ctx, event.ID)

	switch {
	case err == nil:
		h.recorder.RecordOrphan(ResultDiscarded)
		h.logger.Info("discarded orphaned record",
			zap.Int64("id", event.ID),
			zap.String("reason", event.Reason),
		)

		return nil
	case errors.Is(err, shortener.ErrRecordNotFound):
		h.recorder.RecordOrphan(ResultAlreadyResolved)
		h.logger.Debug("orphaned record already resolved", zap.Int64("id", event.ID))

		return nil
	default:
		h.recorder.RecordOrphan(ResultRetry)

		return fmt.Errorf("discard record %d: %w", event.ID, err)
	}
}
