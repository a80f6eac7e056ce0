package httpapi

import (
	"errors"
	"net/http"

	"hoc_companion/internal/billing"
	"hoc_companion/internal/metrics"
	"hoc_companion/internal/pricing"
	"hoc_companion/internal/promptctx"
	"hoc_companion/internal/providers"
)

// Error codes carried next to the message in every error reply
const (
	CodeDataUnavailable    = "data_unavailable"
	CodeUnknownModel       = "unknown_model"
	CodeUsageLimitExceeded = "usage_limit_exceeded"
	CodeLLMInvocation      = "llm_invocation_error"
	CodeInternal           = "internal_error"
	CodeBudgetExceeded     = "budget_exceeded"
	CodeInvalidRequest     = "invalid_request"
)

// classify maps a pipeline or budget error to its status, code and metrics
// status. Pipeline failures are all 500; the code tells them apart.
func classify(err error) (int, string, string) {
	switch {
	case errors.Is(err, billing.ErrBudgetExceeded):
		return http.StatusPaymentRequired, CodeBudgetExceeded, metrics.StatusBlocked
	case errors.Is(err, promptctx.ErrDataUnavailable):
		return http.StatusInternalServerError, CodeDataUnavailable, metrics.StatusError
	case errors.Is(err, pricing.ErrUnknownModel):
		return http.StatusInternalServerError, CodeUnknownModel, metrics.StatusError
	case errors.Is(err, providers.ErrUsageLimitExceeded):
		return http.StatusInternalServerError, CodeUsageLimitExceeded, metrics.StatusError
	case errors.Is(err, providers.ErrLLMInvocation):
		return http.StatusInternalServerError, CodeLLMInvocation, metrics.StatusError
	default:
		return http.StatusInternalServerError, CodeInternal, metrics.StatusError
	}
}
