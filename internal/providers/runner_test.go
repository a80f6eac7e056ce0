package providers

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedProvider returns its responses in order
type scriptedProvider struct {
	mu        sync.Mutex
	responses []*ChatResponse
	err       error
	requests  []ChatRequest
}

func (p *scriptedProvider) Name() string { return "scripted" }
func (p *scriptedProvider) Close() error { return nil }

func (p *scriptedProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.requests = append(p.requests, req)
	if p.err != nil {
		return nil, p.err
	}
	if len(p.responses) == 0 {
		return &ChatResponse{}, nil
	}
	resp := p.responses[0]
	p.responses = p.responses[1:]
	return resp, nil
}

func (p *scriptedProvider) calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.requests)
}

func toolCallResponse(id string, usage UsageInfo) *ChatResponse {
	call := ToolCall{ID: id, Type: "function"}
	call.Function.Name = "run_sql"
	return &ChatResponse{ToolCalls: []ToolCall{call}, Usage: usage}
}

func runRequest(limit int) RunRequest {
	return RunRequest{
		Model:        "gpt-4o-mini",
		Instructions: "You are a data analyst.",
		Question:     "How many projects?",
		Limits:       UsageLimits{RequestLimit: limit},
	}
}

func TestRunner_SingleRound(t *testing.T) {
	p := &scriptedProvider{responses: []*ChatResponse{
		{Content: "There are 2 projects.", Usage: UsageInfo{InputTokens: 4200, OutputTokens: 12, TotalTokens: 4212}},
	}}

	result, err := NewRunner(p, nil).Run(context.Background(), runRequest(2))
	require.NoError(t, err)

	assert.Equal(t, "There are 2 projects.", result.Output)
	assert.Equal(t, 1, result.Requests)
	assert.Equal(t, 4200, result.Usage.InputTokens)
	assert.Equal(t, 12, result.Usage.OutputTokens)

	require.Len(t, p.requests, 1)
	msgs := p.requests[0].Messages
	require.Len(t, msgs, 2)
	assert.Equal(t, Message{Role: RoleSystem, Content: "You are a data analyst."}, msgs[0])
	assert.Equal(t, Message{Role: RoleUser, Content: "How many projects?"}, msgs[1])
	assert.Equal(t, "gpt-4o-mini", p.requests[0].Model)
}

func TestRunner_ToolCallThenAnswer(t *testing.T) {
	p := &scriptedProvider{responses: []*ChatResponse{
		toolCallResponse("call_1", UsageInfo{InputTokens: 100, OutputTokens: 5}),
		{Content: "Answer", Usage: UsageInfo{InputTokens: 120, OutputTokens: 7}},
	}}

	result, err := NewRunner(p, nil).Run(context.Background(), runRequest(2))
	require.NoError(t, err)

	assert.Equal(t, "Answer", result.Output)
	assert.Equal(t, 2, result.Requests)
	assert.Equal(t, 220, result.Usage.InputTokens, "usage sums over rounds")
	assert.Equal(t, 12, result.Usage.OutputTokens)

	second := p.requests[1].Messages
	require.Len(t, second, 4)
	assert.Equal(t, RoleAssistant, second[2].Role)
	assert.Equal(t, RoleTool, second[3].Role)
	assert.Equal(t, "call_1", second[3].ToolCallID)
}

func TestRunner_UsageLimitExceeded(t *testing.T) {
	p := &scriptedProvider{responses: []*ChatResponse{
		toolCallResponse("call_1", UsageInfo{}),
		toolCallResponse("call_2", UsageInfo{}),
		{Content: "never reached"},
	}}

	result, err := NewRunner(p, nil).Run(context.Background(), runRequest(2))
	require.Error(t, err)
	assert.Nil(t, result)
	assert.True(t, errors.Is(err, ErrUsageLimitExceeded))
	assert.Contains(t, err.Error(), "request_limit of 2")
	assert.Equal(t, 2, p.calls(), "no third round is sent")
}

func TestRunner_LimitOfOne(t *testing.T) {
	p := &scriptedProvider{responses: []*ChatResponse{toolCallResponse("call_1", UsageInfo{})}}

	_, err := NewRunner(p, nil).Run(context.Background(), runRequest(1))
	assert.ErrorIs(t, err, ErrUsageLimitExceeded)
	assert.Equal(t, 1, p.calls())
}

func TestRunner_InvalidLimit(t *testing.T) {
	p := &scriptedProvider{}

	_, err := NewRunner(p, nil).Run(context.Background(), runRequest(0))
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrUsageLimitExceeded))
	assert.Zero(t, p.calls())
}

func TestRunner_ProviderError(t *testing.T) {
	p := &scriptedProvider{err: errors.New("connection reset")}

	_, err := NewRunner(p, nil).Run(context.Background(), runRequest(2))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrLLMInvocation))
	assert.Contains(t, err.Error(), "connection reset")
	assert.Equal(t, 1, p.calls(), "no retries")
}

func TestRunner_ConcurrentRunsHaveIndependentBudgets(t *testing.T) {
	p := &scriptedProvider{}
	runner := NewRunner(p, nil)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := runner.Run(context.Background(), runRequest(1))
			assert.NoError(t, err)
			if result != nil {
				assert.Equal(t, 1, result.Requests)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 20, p.calls())
}
