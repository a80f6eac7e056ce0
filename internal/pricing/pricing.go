package pricing

import (
	"errors"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"hoc_companion/internal/models"
)

// CostPrecision is the number of decimal places kept on every USD amount.
const CostPrecision = 6

// ErrUnknownModel is returned when a model id is not in the price table.
var ErrUnknownModel = errors.New("unknown model")

var perMillion = decimal.NewFromInt(1_000_000)

// PriceEntry holds the USD price of one model per 1M tokens.
type PriceEntry struct {
	Model                 string   `json:"name"`
	InputPerMillion       float64  `json:"input_cost_per_million"`
	OutputPerMillion      float64  `json:"output_cost_per_million"`
	CachedInputPerMillion *float64 `json:"cached_input_cost_per_million,omitempty"`
	Description           string   `json:"description"`
}

// PriceFor looks up the price entry of a model.
func PriceFor(model string) (PriceEntry, error) {
	entry, ok := priceTable[model]
	if !ok {
		return PriceEntry{}, fmt.Errorf("%w: %q", ErrUnknownModel, model)
	}
	return entry, nil
}

// IsKnown reports whether the model has a price entry.
func IsKnown(model string) bool {
	_, ok := priceTable[model]
	return ok
}

// Models returns every price entry sorted by model id.
func Models() []PriceEntry {
	entries := make([]PriceEntry, 0, len(priceTable))
	for _, entry := range priceTable {
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Model < entries[j].Model
	})
	return entries
}

// ComputeCost turns raw token counts into a TokenUsage for the given model.
// Each cost is tokens * per-token price rounded to CostPrecision places. The
// total rounds the unrounded sum once, so it can differ from the sum of the
// rounded parts in the last place.
func ComputeCost(model string, inputTokens, outputTokens int) (models.TokenUsage, error) {
	entry, err := PriceFor(model)
	if err != nil {
		return models.TokenUsage{}, err
	}
	if inputTokens < 0 || outputTokens < 0 {
		return models.TokenUsage{}, fmt.Errorf("negative token count: input=%d output=%d", inputTokens, outputTokens)
	}

	inputCost := tokenCost(inputTokens, entry.InputPerMillion)
	outputCost := tokenCost(outputTokens, entry.OutputPerMillion)
	totalCost := inputCost.Add(outputCost)

	return models.TokenUsage{
		InputTokens:   inputTokens,
		OutputTokens:  outputTokens,
		TotalTokens:   inputTokens + outputTokens,
		InputCostUSD:  inputCost.Round(CostPrecision).InexactFloat64(),
		OutputCostUSD: outputCost.Round(CostPrecision).InexactFloat64(),
		TotalCostUSD:  totalCost.Round(CostPrecision).InexactFloat64(),
		Model:         model,
	}, nil
}

// tokenCost is tokens * pricePerMillion / 1M, unrounded.
func tokenCost(tokens int, pricePerMillion float64) decimal.Decimal {
	return decimal.NewFromInt(int64(tokens)).
		Mul(decimal.NewFromFloat(pricePerMillion)).
		Div(perMillion)
}
