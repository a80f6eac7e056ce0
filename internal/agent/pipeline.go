// Package agent answers one question about the marketing catalog: it loads
// the catalog into the prompt, runs the model under a fixed round-trip
// budget and prices the token usage.
package agent

import (
	"context"
	"fmt"
	"time"

	"hoc_companion/internal/models"
	"hoc_companion/internal/pricing"
	"hoc_companion/internal/promptctx"
	"hoc_companion/internal/providers"
	"hoc_companion/internal/utils"
)

// DefaultRequestLimit is the number of model round-trips allowed per question
const DefaultRequestLimit = 2

// ContextBuilder renders the catalog for the prompt
type ContextBuilder interface {
	Build(ctx context.Context, db promptctx.Database) (promptctx.PromptContext, error)
}

// ModelRunner runs a bounded model conversation
type ModelRunner interface {
	Run(ctx context.Context, req providers.RunRequest) (*providers.RunResult, error)
}

// Config holds the read-only pipeline settings
type Config struct {
	Model  string
	Limits providers.UsageLimits
}

// Pipeline answers questions. It holds only read-only state and is safe
// for concurrent use.
type Pipeline struct {
	cfg     Config
	db      promptctx.Database
	context ContextBuilder
	runner  ModelRunner
	logger  *utils.Logger
}

// NewPipeline creates a pipeline. The model must have a price entry.
func NewPipeline(cfg Config, db promptctx.Database, builder ContextBuilder, runner ModelRunner, logger *utils.Logger) (*Pipeline, error) {
	if _, err := pricing.PriceFor(cfg.Model); err != nil {
		return nil, err
	}
	if cfg.Limits.RequestLimit == 0 {
		cfg.Limits.RequestLimit = DefaultRequestLimit
	}
	if logger == nil {
		logger = utils.NewNopLogger()
	}

	return &Pipeline{
		cfg:     cfg,
		db:      db,
		context: builder,
		runner:  runner,
		logger:  logger,
	}, nil
}

// Model returns the configured model id
func (p *Pipeline) Model() string {
	return p.cfg.Model
}

// Ask answers a question. An empty question is passed to the model as is.
// Failures return a nil response and one of promptctx.ErrDataUnavailable,
// providers.ErrLLMInvocation, providers.ErrUsageLimitExceeded or
// pricing.ErrUnknownModel.
func (p *Pipeline) Ask(ctx context.Context, question string) (*models.PipelineResponse, error) {
	start := time.Now()

	pc, err := p.context.Build(ctx, p.db)
	if err != nil {
		p.logger.Error("Context assembly failed", "error", err)
		return nil, err
	}
	p.logger.Debug("Context assembled", "chars", len(pc), "elapsed", time.Since(start))

	result, err := p.runner.Run(ctx, providers.RunRequest{
		Model:        p.cfg.Model,
		Instructions: BuildInstructions(pc),
		Question:     question,
		Limits:       p.cfg.Limits,
	})
	if err != nil {
		p.logger.Error("Model invocation failed", "model", p.cfg.Model, "error", err)
		return nil, err
	}
	if result == nil {
		return nil, fmt.Errorf("%w: runner returned no result", providers.ErrLLMInvocation)
	}

	usage, err := pricing.ComputeCost(p.cfg.Model, result.Usage.InputTokens, result.Usage.OutputTokens)
	if err != nil {
		return nil, err
	}

	p.logger.Debug("Question answered",
		"model", p.cfg.Model,
		"rounds", result.Requests,
		"total_tokens", usage.TotalTokens,
		"cost_usd", usage.TotalCostUSD,
		"elapsed", time.Since(start))

	return &models.PipelineResponse{
		Result: models.QueryResult{
			Answer:   result.Output,
			SQLUsed:  nil,
			RowCount: 0,
		},
		Usage: usage,
	}, nil
}
