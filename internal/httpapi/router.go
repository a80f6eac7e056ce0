package httpapi

import (
	"context"
	"net/http"
	"time"

	"hoc_companion/internal/billing"
	"hoc_companion/internal/logging"
	"hoc_companion/internal/metrics"
	"hoc_companion/internal/models"
	"hoc_companion/internal/storage"
	"hoc_companion/internal/utils"
)

// Asker answers questions
type Asker interface {
	Ask(ctx context.Context, question string) (*models.PipelineResponse, error)
	Model() string
}

// HealthChecker reports whether the marketing database is reachable
type HealthChecker interface {
	Health(ctx context.Context) error
}

// QueryStatsSource exposes cumulative database statistics
type QueryStatsSource interface {
	QueryStats() storage.QueryStats
}

// UsageReader summarises the usage ledger
type UsageReader interface {
	Summary(ctx context.Context, since time.Time) ([]models.UsageSummary, error)
}

// BackgroundQueue is a queue drained by a background worker
type BackgroundQueue[T any] interface {
	Enqueue(ctx context.Context, item T) error
	QueueLength(ctx context.Context) (int, error)
}

// Dependencies aggregates all services the HTTP layer needs. Only Pipeline
// is required.
type Dependencies struct {
	Pipeline Asker
	Database HealthChecker
	DBStats  QueryStatsSource
	Billing  billing.Service
	Ledger   UsageReader
	Metrics  *metrics.Collector
	Recorder *logging.Recorder
	Logger   *utils.Logger

	// Queue workers for async processing
	Charges BackgroundQueue[billing.Charge]
	Usage   BackgroundQueue[*models.UsageRecord]

	RequestTimeout time.Duration

	shutdown []func(ctx context.Context) error
}

// NewHandler registers the routes and wraps them in CORS
func NewHandler(deps *Dependencies) http.Handler {
	if deps.Billing == nil {
		deps.Billing = billing.NewNoopService()
	}
	if deps.Logger == nil {
		deps.Logger = utils.NewNopLogger()
	}
	if deps.Recorder == nil {
		deps.Recorder = logging.NewRecorder(nil, nil, nil)
	}

	mux := http.NewServeMux()
	registerRoutes(mux, deps)
	return withCORS(mux)
}

func registerRoutes(mux *http.ServeMux, deps *Dependencies) {
	mux.HandleFunc("POST /chat", deps.handleChat)
	mux.HandleFunc("GET /health", deps.handleHealth)
	mux.HandleFunc("GET /models", deps.handleModels)
	mux.HandleFunc("GET /usage", deps.handleUsage)

	if deps.Metrics != nil {
		mux.Handle("GET /metrics", deps.metricsHandler())
	}
}

// Shutdown stops background workers and releases resources in reverse
// order of creation
func (d *Dependencies) Shutdown(ctx context.Context) error {
	var firstErr error
	for i := len(d.shutdown) - 1; i >= 0; i-- {
		if err := d.shutdown[i](ctx); err != nil {
			d.Logger.Error("Shutdown step failed", "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	d.shutdown = nil
	return firstErr
}

func (d *Dependencies) onShutdown(fn func(ctx context.Context) error) {
	d.shutdown = append(d.shutdown, fn)
}
