package reconcile

import (
	"context"
	"time"

	"github.com/serroba/shorturl/internal/messaging"
	"github.com/serroba/shorturl/internal/shortener"
	"go.uber.org/zap"
)

// Topic is where orphaned provisional records are announced.
const Topic = "shorturl.orphaned"

// Results recorded for orphan events.
const (
	ResultPublished       = "published"
	ResultPublishFailed   = "publish_failed"
	ResultDiscarded       = "discarded"
	ResultAlreadyResolved = "already_resolved"
	ResultRetry           = "retry"
	ResultInvalid         = "invalid"
)

// OrphanedRecordEvent announces a provisional record the server failed to discard.
type OrphanedRecordEvent struct {
	ID         int64     `json:"id"`
	URLHash    string    `json:"urlHash"`
	Reason     string    `json:"reason"`
	DetectedAt time.Time `json:"detectedAt"`
}

// ResultRecorder counts orphan handling results.
type ResultRecorder interface {
	RecordOrphan(result string)
}

// NewOrphanHook returns a shortener.OrphanHook that publishes an
// OrphanedRecordEvent for every record the service could not discard.
// Publish failures are logged; the record is then left for the sweeper.
func NewOrphanHook(
	publish messaging.Publish[OrphanedRecordEvent],
	recorder ResultRecorder,
	logger *zap.Logger,
) shortener.OrphanHook {
	return func(ctx context.Context, record *shortener.ShortURL, cause error) {
		event := &OrphanedRecordEvent{
			ID:         record.ID,
			URLHash:    string(record.URLHash),
			DetectedAt: time.Now().UTC(),
		}
		if cause != nil {
			event.Reason = cause.Error()
		}

		if err := publish(context.WithoutCancel(ctx), event); err != nil {
			recorder.RecordOrphan(ResultPublishFailed)
			logger.Error("failed to publish orphaned record",
				zap.Int64("id", record.ID),
				zap.Error(err),
			)

			return
		}

		recorder.RecordOrphan(ResultPublished)
	}
}
