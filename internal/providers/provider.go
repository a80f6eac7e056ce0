package providers

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrLLMInvocation is returned when the model call itself fails
	// (network, authentication, non-2xx status, malformed body)
	ErrLLMInvocation = errors.New("llm invocation failed")

	// ErrUsageLimitExceeded is returned when a run needs more model
	// round-trips than its UsageLimits allow
	ErrUsageLimitExceeded = errors.New("usage limit exceeded")
)

// Chat roles
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Message is one chat message in OpenAI wire format
type Message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// ToolCall is a function call requested by the model
type ToolCall struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Function struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
	} `json:"function"`
}

// ChatRequest is one chat completion call
type ChatRequest struct {
	Model    string
	Messages []Message
}

// ChatResponse is the first choice of a chat completion with its usage
type ChatResponse struct {
	Content         string
	ToolCalls       []ToolCall
	FinishReason    string
	Usage           UsageInfo
	ProviderLatency time.Duration
}

// UsageInfo contains token usage reported by the provider
type UsageInfo struct {
	InputTokens     int `json:"input_tokens"`
	OutputTokens    int `json:"output_tokens"`
	CachedTokens    int `json:"cached_tokens"`
	ReasoningTokens int `json:"reasoning_tokens"`
	TotalTokens     int `json:"total_tokens"`
}

// Add accumulates usage across rounds
func (u *UsageInfo) Add(other UsageInfo) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
	u.CachedTokens += other.CachedTokens
	u.ReasoningTokens += other.ReasoningTokens
	u.TotalTokens += other.TotalTokens
}

// Provider sends chat completions to a model vendor
type Provider interface {
	// Name returns the provider name
	Name() string

	// Chat sends one chat completion request. Failures wrap ErrLLMInvocation.
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)

	// Close releases idle connections
	Close() error
}

// Authenticator handles authentication for a provider.
type Authenticator interface {
	// Authenticate prepares authentication for a request
	Authenticate(ctx context.Context) (AuthContext, error)
}

// AuthContext holds authentication information for a request
type AuthContext interface {
	// ApplyToRequest applies authentication to an HTTP request
	ApplyToRequest(ctx context.Context, req any) error
}
