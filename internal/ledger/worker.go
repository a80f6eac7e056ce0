package ledger

import (
	"context"

	"hoc_companion/internal/models"
	"hoc_companion/internal/queue"
	"hoc_companion/internal/utils"
)

// Writer is the part of the ledger the usage worker needs
type Writer interface {
	Insert(ctx context.Context, r *models.UsageRecord) error
	InsertBatch(ctx context.Context, records []*models.UsageRecord) error
}

// NewUsageWorker writes usage records to the ledger in batches, falling
// back to single inserts when a batch fails.
func NewUsageWorker(q queue.Queue[*models.UsageRecord], dlq queue.DeadLetterQueue[*models.UsageRecord], w Writer, config *queue.Config, logger *utils.Logger) *queue.Worker[*models.UsageRecord] {
	if config == nil {
		config = queue.DefaultConfig("usage")
	}
	return queue.NewWorker(q, dlq, config, w.Insert, logger).
		WithBatchHandler(w.InsertBatch)
}
