// Package metrics exposes Prometheus metrics for answered questions.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"hoc_companion/internal/config"
)

// Request statuses
const (
	StatusSuccess = "success"
	StatusError   = "error"
	StatusBlocked = "blocked"
)

// Collector owns the metrics registry. A nil *Collector or a disabled one
// records nothing.
//
// Metrics (namespace from config):
//   - requests_total: questions by model, status and error code
//   - request_duration_seconds: end-to-end latency by model
//   - tokens_total: tokens by model and type (input, output)
//   - cost_usd_total: spend by model
//   - context_assets: assets in the last prompt context by state
//   - queue_depth: pending items per background queue
type Collector struct {
	enabled  bool
	registry *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	tokensTotal     *prometheus.CounterVec
	costTotal       *prometheus.CounterVec
	contextAssets   *prometheus.GaugeVec
	queueDepth      *prometheus.GaugeVec
}

// NewCollector creates a collector on registry, or on a fresh registry
// when nil
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	namespace := cfg.Namespace
	if namespace == "" {
		namespace = "hoc_companion"
	}

	c := &Collector{
		enabled:  cfg.Enabled,
		registry: registry,

		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "requests_total",
				Help:      "Total number of questions handled",
			},
			[]string{"model", "status", "code"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "request_duration_seconds",
				Help:      "Duration of question handling in seconds",
				// LLM round trips with a large prompt: 250ms to 60s
				Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30, 60},
			},
			[]string{"model"},
		),
		tokensTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tokens_total",
				Help:      "Total number of tokens billed",
			},
			[]string{"model", "type"},
		),
		costTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cost_usd_total",
				Help:      "Total model cost in USD",
			},
			[]string{"model"},
		),
		contextAssets: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "context_assets",
				Help:      "Assets in the most recent prompt context",
			},
			[]string{"state"},
		),
		queueDepth: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "queue_depth",
				Help:      "Items waiting in a background queue",
			},
			[]string{"queue"},
		),
	}

	registry.MustRegister(
		c.requestsTotal,
		c.requestDuration,
		c.tokensTotal,
		c.costTotal,
		c.contextAssets,
		c.queueDepth,
	)
	return c
}

func (c *Collector) on() bool {
	return c != nil && c.enabled
}

// RecordSuccess records an answered question
func (c *Collector) RecordSuccess(model string, duration time.Duration, inputTokens, outputTokens int, costUSD float64) {
	if !c.on() {
		return
	}

	c.requestsTotal.WithLabelValues(model, StatusSuccess, "").Inc()
	c.requestDuration.WithLabelValues(model).Observe(duration.Seconds())
	c.tokensTotal.WithLabelValues(model, "input").Add(float64(inputTokens))
	c.tokensTotal.WithLabelValues(model, "output").Add(float64(outputTokens))
	if costUSD > 0 {
		c.costTotal.WithLabelValues(model).Add(costUSD)
	}
}

// RecordFailure records a question that failed with the given error code
func (c *Collector) RecordFailure(model, status, code string, duration time.Duration) {
	if !c.on() {
		return
	}

	c.requestsTotal.WithLabelValues(model, status, code).Inc()
	c.requestDuration.WithLabelValues(model).Observe(duration.Seconds())
}

// SetContextAssets records how many assets the last prompt carried
func (c *Collector) SetContextAssets(included, omitted int) {
	if !c.on() {
		return
	}

	c.contextAssets.WithLabelValues("included").Set(float64(included))
	c.contextAssets.WithLabelValues("omitted").Set(float64(omitted))
}

// SetQueueDepth records the backlog of a background queue
func (c *Collector) SetQueueDepth(queue string, depth int64) {
	if !c.on() {
		return
	}

	c.queueDepth.WithLabelValues(queue).Set(float64(depth))
}

// Handler serves the registry in the Prometheus exposition format
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{
		ErrorHandling: promhttp.ContinueOnError,
	})
}
