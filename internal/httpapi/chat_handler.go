package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"hoc_companion/internal/billing"
	"hoc_companion/internal/logging"
	"hoc_companion/internal/models"
	"hoc_companion/internal/storage"
	"hoc_companion/internal/utils"
)

// maxBodyBytes bounds the /chat request body
const maxBodyBytes = 1 << 20

// ChatRequest is the body of POST /chat
type ChatRequest struct {
	Question *string `json:"question"`
}

// ChatResponse is the body of a successful POST /chat
type ChatResponse struct {
	Answer   string            `json:"answer"`
	SQLUsed  *string           `json:"sql_used"`
	RowCount int               `json:"row_count"`
	Usage    models.TokenUsage `json:"usage"`
}

// handleChat answers one question.
//
// Flow:
//  1. Decode {question}
//  2. Budget check
//  3. Run the pipeline
//  4. Reply
//  5. Billing, ledger, metrics and request log (best-effort)
func (d *Dependencies) handleChat(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	reqID := logging.NewRequestID()
	model := d.Pipeline.Model()

	var body ChatRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&body); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, CodeInvalidRequest, "invalid JSON body")
		return
	}
	if body.Question == nil {
		utils.RespondWithError(w, http.StatusUnprocessableEntity, CodeInvalidRequest, "missing 'question' field")
		return
	}
	question := *body.Question

	entry := logging.NewLogEntry(reqID, question, model, start)
	ctx := r.Context()
	if d.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.RequestTimeout)
		defer cancel()
	}

	if err := d.Billing.CheckBudget(ctx); err != nil {
		d.fail(ctx, w, entry, err, start)
		return
	}

	var before storage.QueryStats
	if d.DBStats != nil {
		before = d.DBStats.QueryStats()
	}

	resp, err := d.Pipeline.Ask(ctx, question)
	if d.DBStats != nil {
		entry.SetDBStats(d.DBStats.QueryStats().Since(before))
	}
	if err != nil {
		d.fail(ctx, w, entry, err, start)
		return
	}

	elapsed := time.Since(start)
	utils.RespondWithJSON(w, http.StatusOK, ChatResponse{
		Answer:   resp.Result.Answer,
		SQLUsed:  resp.Result.SQLUsed,
		RowCount: resp.Result.RowCount,
		Usage:    resp.Usage,
	})

	// bookkeeping outlives the request
	bgCtx := context.WithoutCancel(ctx)
	d.account(bgCtx, reqID, question, resp, elapsed)
	entry.Succeed(resp, elapsed)
	d.Recorder.Record(bgCtx, entry)
}

// fail writes the error reply and records the failure
func (d *Dependencies) fail(ctx context.Context, w http.ResponseWriter, entry *logging.LogEntry, err error, start time.Time) {
	status, code, metricStatus := classify(err)
	elapsed := time.Since(start)

	utils.RespondWithError(w, status, code, err.Error())

	d.Metrics.RecordFailure(entry.Request.Model, metricStatus, code, elapsed)
	entry.Fail(err, elapsed)
	d.Recorder.Record(context.WithoutCancel(ctx), entry)
}

// account feeds a successful answer to billing, the ledger and metrics
func (d *Dependencies) account(ctx context.Context, reqID, question string, resp *models.PipelineResponse, elapsed time.Duration) {
	usage := resp.Usage

	d.Metrics.RecordSuccess(usage.Model, elapsed, usage.InputTokens, usage.OutputTokens, usage.TotalCostUSD)

	if d.Charges != nil {
		charge := billing.Charge{RequestID: reqID, Model: usage.Model, CostUSD: usage.TotalCostUSD, Timestamp: time.Now().UTC()}
		if err := d.Charges.Enqueue(ctx, charge); err != nil {
			d.Logger.Warn("Failed to enqueue charge", "request_id", reqID, "error", err)
		}
	}

	if d.Usage != nil {
		record := models.NewUsageRecord(reqID, question, usage, elapsed)
		if err := d.Usage.Enqueue(ctx, record); err != nil {
			d.Logger.Warn("Failed to enqueue usage record", "request_id", reqID, "error", err)
		}
	}
}
