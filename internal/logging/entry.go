package logging

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"hoc_companion/internal/models"
	"hoc_companion/internal/storage"
	"hoc_companion/internal/utils"
)

// entryTimeFormat is the layout of LogEntry.Timestamp
const entryTimeFormat = "2006-01-02 15:04:05"

// questionPreview is how much of the question the console summary shows
const questionPreview = 50

// RequestStats describes the incoming question
type RequestStats struct {
	RequestID string `json:"request_id"`
	Timestamp string `json:"timestamp"`
	Question  string `json:"question"`
	Model     string `json:"model"`
}

// ResponseStats describes the outcome
type ResponseStats struct {
	Answer     string  `json:"answer"`
	SQLUsed    *string `json:"sql_used"`
	RowCount   int     `json:"row_count"`
	DurationMS float64 `json:"duration_ms"`
	Success    bool    `json:"success"`
	Error      *string `json:"error"`
}

// TokenStats is the token and cost accounting of the request
type TokenStats struct {
	InputTokens   int     `json:"input_tokens"`
	OutputTokens  int     `json:"output_tokens"`
	TotalTokens   int     `json:"total_tokens"`
	InputCostUSD  float64 `json:"input_cost_usd"`
	OutputCostUSD float64 `json:"output_cost_usd"`
	TotalCostUSD  float64 `json:"total_cost_usd"`
}

// DBStats is the database activity the request caused
type DBStats struct {
	Connected        bool    `json:"connected"`
	QueryCount       int64   `json:"query_count"`
	TotalQueryTimeMS float64 `json:"total_query_time_ms"`
	LastQueryTimeMS  float64 `json:"last_query_time_ms"`
}

// LogEntry is one line of the request log. Timestamp is stamped when the
// entry is recorded.
type LogEntry struct {
	Timestamp string        `json:"timestamp"`
	Level     string        `json:"level"`
	Request   RequestStats  `json:"request"`
	Response  ResponseStats `json:"response"`
	Tokens    TokenStats    `json:"tokens"`
	DB        DBStats       `json:"db"`
}

// NewRequestID returns a short id used to correlate log lines
func NewRequestID() string {
	return uuid.NewString()[:8]
}

// NewLogEntry starts an entry for a question received at start
func NewLogEntry(requestID, question, model string, start time.Time) *LogEntry {
	return &LogEntry{
		Level: "INFO",
		Request: RequestStats{
			RequestID: requestID,
			Timestamp: start.UTC().Format(time.RFC3339Nano),
			Question:  question,
			Model:     model,
		},
		Response: ResponseStats{Success: true},
	}
}

// Succeed fills the entry from a pipeline response
func (e *LogEntry) Succeed(resp *models.PipelineResponse, elapsed time.Duration) {
	e.Response.Answer = resp.Result.Answer
	e.Response.SQLUsed = resp.Result.SQLUsed
	e.Response.RowCount = resp.Result.RowCount
	e.Response.DurationMS = durationMS(elapsed)
	e.Response.Success = true
	e.Response.Error = nil
	e.Tokens = TokenStats{
		InputTokens:   resp.Usage.InputTokens,
		OutputTokens:  resp.Usage.OutputTokens,
		TotalTokens:   resp.Usage.TotalTokens,
		InputCostUSD:  resp.Usage.InputCostUSD,
		OutputCostUSD: resp.Usage.OutputCostUSD,
		TotalCostUSD:  resp.Usage.TotalCostUSD,
	}
}

// Fail marks the entry as failed with err
func (e *LogEntry) Fail(err error, elapsed time.Duration) {
	e.Level = "ERROR"
	e.Response.Success = false
	e.Response.Error = utils.StringPtr(err.Error())
	e.Response.DurationMS = durationMS(elapsed)
}

// SetDBStats records the database activity of the request
func (e *LogEntry) SetDBStats(s storage.QueryStats) {
	e.DB = DBStats{
		Connected:        s.Connected,
		QueryCount:       s.QueryCount,
		TotalQueryTimeMS: durationMS(s.TotalQueryTime),
		LastQueryTimeMS:  durationMS(s.LastQueryTime),
	}
}

// Summary is the one-line console form of the entry
func (e *LogEntry) Summary() string {
	mark := "✓"
	if !e.Response.Success {
		mark = "✗"
	}
	return fmt.Sprintf(`[%s] Q: "%s" | Model: %s | Tokens: %d ($%.6f) | Duration: %.0fms | %s`,
		e.Request.RequestID,
		utils.Truncate(e.Request.Question, questionPreview, "..."),
		e.Request.Model,
		e.Tokens.TotalTokens,
		e.Tokens.TotalCostUSD,
		e.Response.DurationMS,
		mark,
	)
}

func durationMS(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
