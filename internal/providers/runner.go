package providers

import (
	"context"
	"errors"
	"fmt"

	"hoc_companion/internal/utils"
)

// toolReply answers any tool call; the companion exposes no tools and all
// data is already in the instructions.
const toolReply = "No tools are available. Answer using the database content provided in the instructions."

// UsageLimits bounds a single run
type UsageLimits struct {
	// RequestLimit is the maximum number of model round-trips. Must be >= 1.
	RequestLimit int
}

// RunRequest is one question for the model
type RunRequest struct {
	Model        string
	Instructions string
	Question     string
	Limits       UsageLimits
}

// RunResult holds the final answer and the usage summed over all rounds
type RunResult struct {
	Output   string
	Usage    UsageInfo
	Requests int
}

// Runner drives a bounded conversation with a provider. It keeps no state
// between runs, so one Runner can serve concurrent requests.
type Runner struct {
	provider Provider
	logger   *utils.Logger
}

// NewRunner creates a runner over provider
func NewRunner(provider Provider, logger *utils.Logger) *Runner {
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	return &Runner{provider: provider, logger: logger}
}

// Run sends the instructions and question, then keeps answering tool calls
// until the model produces a final message. Starting a round beyond
// Limits.RequestLimit fails with ErrUsageLimitExceeded. Provider failures
// are returned as ErrLLMInvocation; nothing is retried.
func (r *Runner) Run(ctx context.Context, req RunRequest) (*RunResult, error) {
	limit := req.Limits.RequestLimit
	if limit < 1 {
		return nil, fmt.Errorf("request limit must be at least 1, got %d", limit)
	}

	messages := []Message{
		{Role: RoleSystem, Content: req.Instructions},
		{Role: RoleUser, Content: req.Question},
	}

	result := &RunResult{}
	for {
		if result.Requests >= limit {
			return nil, fmt.Errorf("%w: the next request would exceed the request_limit of %d", ErrUsageLimitExceeded, limit)
		}

		resp, err := r.provider.Chat(ctx, ChatRequest{Model: req.Model, Messages: messages})
		result.Requests++
		if err != nil {
			if !errors.Is(err, ErrLLMInvocation) {
				err = fmt.Errorf("%w: %v", ErrLLMInvocation, err)
			}
			return nil, err
		}
		result.Usage.Add(resp.Usage)

		r.logger.Debug("Model round finished",
			"round", result.Requests,
			"input_tokens", resp.Usage.InputTokens,
			"output_tokens", resp.Usage.OutputTokens,
			"tool_calls", len(resp.ToolCalls),
			"latency", resp.ProviderLatency)

		if len(resp.ToolCalls) == 0 {
			result.Output = resp.Content
			return result, nil
		}

		messages = append(messages, Message{Role: RoleAssistant, Content: resp.Content, ToolCalls: resp.ToolCalls})
		for _, call := range resp.ToolCalls {
			messages = append(messages, Message{Role: RoleTool, Content: toolReply, ToolCallID: call.ID})
		}
	}
}
