package models

// TokenUsage is the token and cost accounting of one answered question.
// Costs are in USD, rounded to 6 decimal places.
type TokenUsage struct {
	InputTokens   int     `json:"input_tokens"`
	OutputTokens  int     `json:"output_tokens"`
	TotalTokens   int     `json:"total_tokens"`
	InputCostUSD  float64 `json:"input_cost_usd"`
	OutputCostUSD float64 `json:"output_cost_usd"`
	TotalCostUSD  float64 `json:"total_cost_usd"`
	Model         string  `json:"model"`
}

// QueryResult is the answer part of a pipeline run.
type QueryResult struct {
	Answer   string  `json:"answer"`
	SQLUsed  *string `json:"sql_used"`
	RowCount int     `json:"row_count"`
}

// PipelineResponse pairs a QueryResult with its TokenUsage.
type PipelineResponse struct {
	Result QueryResult `json:"result"`
	Usage  TokenUsage  `json:"usage"`
}
