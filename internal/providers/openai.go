package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	openAIDefaultBaseURL = "https://api.openai.com/v1"
	openAITimeout        = 60 * time.Second

	// maxErrorBody caps how much of an error response ends up in messages
	maxErrorBody = 512
)

// OpenAIConfig holds the settings for the OpenAI provider
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// OpenAIProvider talks to the OpenAI chat completions API
type OpenAIProvider struct {
	auth    Authenticator
	client  *http.Client
	baseURL string
}

// NewOpenAIProvider creates a new OpenAI provider instance
func NewOpenAIProvider(cfg OpenAIConfig) (*OpenAIProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("api_key is required for OpenAI provider")
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = openAIDefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = openAITimeout
	}

	client := &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	return &OpenAIProvider{
		auth:    NewSimpleAPIKeyAuth(cfg.APIKey, "Authorization", "Bearer "),
		client:  client,
		baseURL: baseURL,
	}, nil
}

// Name returns the provider name
func (p *OpenAIProvider) Name() string {
	return "openai"
}

type openAIRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
}

type openAIResponse struct {
	Choices []struct {
		Message struct {
			Content   *string    `json:"content"`
			ToolCalls []ToolCall `json:"tool_calls"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// Chat sends a chat completion request to OpenAI
func (p *OpenAIProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	start := time.Now()

	body, err := json.Marshal(openAIRequest{Model: req.Model, Messages: req.Messages})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	authCtx, err := p.auth.Authenticate(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: authentication failed: %v", ErrLLMInvocation, err)
	}
	if err := authCtx.ApplyToRequest(ctx, httpReq); err != nil {
		return nil, fmt.Errorf("%w: failed to apply auth: %v", ErrLLMInvocation, err)
	}

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: request failed: %v", ErrLLMInvocation, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", ErrLLMInvocation, err)
	}
	latency := time.Since(start)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: status=%d, body=%s", ErrLLMInvocation, resp.StatusCode, truncateBody(respBody))
	}

	var parsed openAIResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("%w: invalid response body: %v", ErrLLMInvocation, err)
	}

	out := &ChatResponse{
		Usage:           extractUsageFromResponse(respBody),
		ProviderLatency: latency,
	}
	if len(parsed.Choices) > 0 {
		choice := parsed.Choices[0]
		if choice.Message.Content != nil {
			out.Content = *choice.Message.Content
		}
		out.ToolCalls = choice.Message.ToolCalls
		out.FinishReason = choice.FinishReason
	}
	return out, nil
}

// Close cleans up resources
func (p *OpenAIProvider) Close() error {
	p.client.CloseIdleConnections()
	return nil
}

// extractUsageFromResponse reads the usage block. Chat completions report
// prompt/completion tokens, the responses API input/output tokens.
func extractUsageFromResponse(body []byte) UsageInfo {
	var response struct {
		Usage struct {
			InputTokens      int `json:"input_tokens"`
			OutputTokens     int `json:"output_tokens"`
			TotalTokens      int `json:"total_tokens"`
			PromptTokens     int `json:"prompt_tokens"`
			CompletionTokens int `json:"completion_tokens"`

			InputTokensDetails struct {
				CachedTokens int `json:"cached_tokens"`
			} `json:"input_tokens_details"`
			PromptTokensDetails struct {
				CachedTokens int `json:"cached_tokens"`
			} `json:"prompt_tokens_details"`
			OutputTokensDetails struct {
				ReasoningTokens int `json:"reasoning_tokens"`
			} `json:"output_tokens_details"`
			CompletionTokensDetails struct {
				ReasoningTokens int `json:"reasoning_tokens"`
			} `json:"completion_tokens_details"`
		} `json:"usage"`
	}

	if err := json.Unmarshal(body, &response); err != nil {
		return UsageInfo{}
	}
	u := response.Usage

	usage := UsageInfo{
		InputTokens:     u.InputTokens,
		OutputTokens:    u.OutputTokens,
		CachedTokens:    u.InputTokensDetails.CachedTokens,
		ReasoningTokens: u.OutputTokensDetails.ReasoningTokens,
		TotalTokens:     u.TotalTokens,
	}

	if usage.InputTokens == 0 && u.PromptTokens > 0 {
		usage.InputTokens = u.PromptTokens
	}
	if usage.OutputTokens == 0 && u.CompletionTokens > 0 {
		usage.OutputTokens = u.CompletionTokens
	}
	if usage.CachedTokens == 0 {
		usage.CachedTokens = u.PromptTokensDetails.CachedTokens
	}
	if usage.ReasoningTokens == 0 {
		usage.ReasoningTokens = u.CompletionTokensDetails.ReasoningTokens
	}
	if usage.TotalTokens == 0 {
		usage.TotalTokens = usage.InputTokens + usage.OutputTokens
	}

	return usage
}

func truncateBody(body []byte) string {
	if len(body) > maxErrorBody {
		return string(body[:maxErrorBody]) + "..."
	}
	return string(body)
}
