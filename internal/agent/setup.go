package agent

import (
	"fmt"

	"hoc_companion/internal/config"
	"hoc_companion/internal/promptctx"
	"hoc_companion/internal/providers"
	"hoc_companion/internal/tokenizer"
	"hoc_companion/internal/utils"
)

// NewFromConfig wires a pipeline on the OpenAI provider. observer may be
// nil.
func NewFromConfig(cfg *config.Config, db promptctx.Database, observer promptctx.RenderObserver, logger *utils.Logger) (*Pipeline, providers.Provider, error) {
	if logger == nil {
		logger = utils.NewNopLogger()
	}

	provider, err := providers.NewOpenAIProvider(providers.OpenAIConfig{
		APIKey:  cfg.OpenAI.APIKey,
		BaseURL: cfg.OpenAI.BaseURL,
		Timeout: cfg.OpenAI.RequestTimeout,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create OpenAI provider: %w", err)
	}

	assembler := promptctx.NewAssembler(promptctx.Options{
		Model:            cfg.OpenAI.Model,
		MaxAssetChars:    cfg.Context.MaxAssetChars,
		MaxContextTokens: cfg.Context.MaxContextTokens,
	}, tokenizer.NewCounter(), logger.With("context"))
	if observer != nil {
		assembler.WithObserver(observer)
	}

	pipeline, err := NewPipeline(Config{
		Model:  cfg.OpenAI.Model,
		Limits: providers.UsageLimits{RequestLimit: cfg.OpenAI.RequestLimit},
	}, db, assembler, providers.NewRunner(provider, logger.With("runner")), logger.With("pipeline"))
	if err != nil {
		provider.Close()
		return nil, nil, err
	}
	return pipeline, provider, nil
}
