package models

import (
	"time"

	"github.com/google/uuid"
)

// UsageRecord is the ledger row written for every answered question.
type UsageRecord struct {
	ID             uuid.UUID `db:"id" json:"id"`
	RequestID      string    `db:"request_id" json:"request_id"`
	ModelName      string    `db:"model_name" json:"model_name"`
	Question       string    `db:"question" json:"question"`
	InputTokens    int       `db:"input_tokens" json:"input_tokens"`
	OutputTokens   int       `db:"output_tokens" json:"output_tokens"`
	TotalTokens    int       `db:"total_tokens" json:"total_tokens"`
	CostUSD        float64   `db:"cost_usd" json:"cost_usd"`
	ResponseTimeMS int64     `db:"response_time_ms" json:"response_time_ms"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// NewUsageRecord builds a ledger row from a pipeline response.
func NewUsageRecord(requestID, question string, usage TokenUsage, elapsed time.Duration) *UsageRecord {
	return &UsageRecord{
		ID:             uuid.New(),
		RequestID:      requestID,
		ModelName:      usage.Model,
		Question:       question,
		InputTokens:    usage.InputTokens,
		OutputTokens:   usage.OutputTokens,
		TotalTokens:    usage.TotalTokens,
		CostUSD:        usage.TotalCostUSD,
		ResponseTimeMS: elapsed.Milliseconds(),
		CreatedAt:      time.Now().UTC(),
	}
}

// UsageSummary aggregates ledger rows per model.
type UsageSummary struct {
	ModelName    string  `db:"model_name" json:"model"`
	Requests     int     `db:"requests" json:"requests"`
	InputTokens  int64   `db:"input_tokens" json:"input_tokens"`
	OutputTokens int64   `db:"output_tokens" json:"output_tokens"`
	TotalTokens  int64   `db:"total_tokens" json:"total_tokens"`
	CostUSD      float64 `db:"cost_usd" json:"cost_usd"`
}
