package httpapi

import (
	"net/http"
	"time"

	"hoc_companion/internal/billing"
	"hoc_companion/internal/models"
	"hoc_companion/internal/pricing"
	"hoc_companion/internal/utils"
)

// defaultUsageWindow is the /usage window when no "since" is given
const defaultUsageWindow = 30 * 24 * time.Hour

// HealthResponse is the body of GET /health
type HealthResponse struct {
	Status   string `json:"status"`
	Model    string `json:"model"`
	Database string `json:"database"`
}

// ModelsResponse is the body of GET /models
type ModelsResponse struct {
	CurrentModel    string               `json:"current_model"`
	AvailableModels []pricing.PriceEntry `json:"available_models"`
}

// UsageResponse is the body of GET /usage
type UsageResponse struct {
	Since    time.Time             `json:"since"`
	Models   []models.UsageSummary `json:"models"`
	Spending *billing.Spending     `json:"monthly_spending,omitempty"`
}

// handleHealth always answers 200 while the process serves; the database
// state is reported, not enforced
func (d *Dependencies) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "ok", Model: d.Pipeline.Model(), Database: "unknown"}
	if d.Database != nil {
		if err := d.Database.Health(r.Context()); err != nil {
			d.Logger.Warn("Database health check failed", "error", err)
			resp.Database = "unavailable"
		} else {
			resp.Database = "ok"
		}
	}
	utils.RespondWithJSON(w, http.StatusOK, resp)
}

func (d *Dependencies) handleModels(w http.ResponseWriter, r *http.Request) {
	utils.RespondWithJSON(w, http.StatusOK, ModelsResponse{
		CurrentModel:    d.Pipeline.Model(),
		AvailableModels: pricing.Models(),
	})
}

// handleUsage summarises the ledger since ?since= (RFC 3339, default 30
// days ago) and adds this month's spend
func (d *Dependencies) handleUsage(w http.ResponseWriter, r *http.Request) {
	if d.Ledger == nil {
		utils.RespondWithError(w, http.StatusNotFound, "ledger_disabled", "usage ledger is disabled")
		return
	}

	since := time.Now().UTC().Add(-defaultUsageWindow)
	if raw := r.URL.Query().Get("since"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			utils.RespondWithError(w, http.StatusBadRequest, CodeInvalidRequest, "since must be an RFC 3339 timestamp")
			return
		}
		since = t
	}

	summary, err := d.Ledger.Summary(r.Context(), since)
	if err != nil {
		d.Logger.Error("Failed to read usage ledger", "error", err)
		utils.RespondWithError(w, http.StatusInternalServerError, CodeInternal, err.Error())
		return
	}

	resp := UsageResponse{Since: since, Models: summary}
	if spending, err := d.Billing.MonthlySpending(r.Context()); err == nil {
		resp.Spending = spending
	} else {
		d.Logger.Warn("Failed to read monthly spending", "error", err)
	}
	utils.RespondWithJSON(w, http.StatusOK, resp)
}

// metricsHandler refreshes the queue gauges before every scrape
func (d *Dependencies) metricsHandler() http.Handler {
	inner := d.Metrics.Handler()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if d.Charges != nil {
			if n, err := d.Charges.QueueLength(r.Context()); err == nil {
				d.Metrics.SetQueueDepth("billing", int64(n))
			}
		}
		if d.Usage != nil {
			if n, err := d.Usage.QueueLength(r.Context()); err == nil {
				d.Metrics.SetQueueDepth("usage", int64(n))
			}
		}
		inner.ServeHTTP(w, r)
	})
}
