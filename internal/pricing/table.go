package pricing

// Standard-tier OpenAI prices in USD per 1M tokens.
// Source: https://platform.openai.com/docs/pricing
//
// Updating a price only requires editing this table.
var priceTable = map[string]PriceEntry{
	// GPT-5 series
	"gpt-5.2":     entry("gpt-5.2", 1.75, 14.00, cached(0.175), "GPT-5.2 - Most advanced model"),
	"gpt-5.1":     entry("gpt-5.1", 1.25, 10.00, cached(0.125), "GPT-5.1 - High capability"),
	"gpt-5":       entry("gpt-5", 1.25, 10.00, cached(0.125), "GPT-5 - Fifth generation base"),
	"gpt-5-mini":  entry("gpt-5-mini", 0.25, 2.00, cached(0.025), "GPT-5-mini - Fast and affordable"),
	"gpt-5-nano":  entry("gpt-5-nano", 0.05, 0.40, cached(0.005), "GPT-5-nano - Ultra low-cost"),
	"gpt-5.2-pro": entry("gpt-5.2-pro", 21.00, 168.00, nil, "GPT-5.2-pro - Maximum capability"),
	"gpt-5-pro":   entry("gpt-5-pro", 15.00, 120.00, nil, "GPT-5-pro - Professional grade"),

	// GPT-4o series
	"gpt-4o":      entry("gpt-4o", 2.50, 10.00, cached(1.25), "GPT-4o - Most capable multimodal model"),
	"gpt-4o-mini": entry("gpt-4o-mini", 0.15, 0.60, cached(0.075), "GPT-4o-mini - Fast and cost-effective"),

	// GPT-4.1 series
	"gpt-4.1":      entry("gpt-4.1", 2.00, 8.00, cached(0.50), "GPT-4.1 - Latest GPT-4 generation"),
	"gpt-4.1-mini": entry("gpt-4.1-mini", 0.40, 1.60, cached(0.10), "GPT-4.1-mini - Balanced performance/cost"),
	"gpt-4.1-nano": entry("gpt-4.1-nano", 0.10, 0.40, cached(0.025), "GPT-4.1-nano - Ultra low-cost option"),

	// O-series (reasoning)
	"o1":      entry("o1", 15.00, 60.00, cached(7.50), "O1 - Advanced reasoning model"),
	"o1-mini": entry("o1-mini", 1.10, 4.40, cached(0.55), "O1-mini - Efficient reasoning"),
	"o3":      entry("o3", 2.00, 8.00, cached(0.50), "O3 - Latest reasoning model"),
	"o3-mini": entry("o3-mini", 1.10, 4.40, cached(0.55), "O3-mini - Fast reasoning"),
	"o4-mini": entry("o4-mini", 1.10, 4.40, cached(0.275), "O4-mini - Newest reasoning model"),

	// Legacy
	"gpt-3.5-turbo": entry("gpt-3.5-turbo", 0.50, 1.50, nil, "GPT-3.5-turbo - Legacy budget option"),
}

func entry(model string, input, output float64, cachedInput *float64, description string) PriceEntry {
	return PriceEntry{
		Model:                 model,
		InputPerMillion:       input,
		OutputPerMillion:      output,
		CachedInputPerMillion: cachedInput,
		Description:           description,
	}
}

func cached(price float64) *float64 {
	return &price
}
