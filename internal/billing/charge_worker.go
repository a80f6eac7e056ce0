package billing

import (
	"context"
	"time"

	"hoc_companion/internal/queue"
	"hoc_companion/internal/utils"
)

// Charge is one answered question to add to the spend totals
type Charge struct {
	RequestID string    `json:"request_id"`
	Model     string    `json:"model"`
	CostUSD   float64   `json:"cost_usd"`
	Timestamp time.Time `json:"timestamp"`
}

// NewChargeWorker drains charges into the billing service off the request
// path.
func NewChargeWorker(q queue.Queue[Charge], dlq queue.DeadLetterQueue[Charge], service Service, config *queue.Config, logger *utils.Logger) *queue.Worker[Charge] {
	if config == nil {
		config = queue.DefaultConfig("billing")
	}
	return queue.NewWorker(q, dlq, config, func(ctx context.Context, c Charge) error {
		return service.AddUsage(ctx, c.Model, c.CostUSD)
	}, logger)
}
