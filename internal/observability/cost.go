package observability

import (
	"strconv"

	"github.com/Conceptual-Machines/magda-midigen/internal/llm"
)

// Pricing constants
const (
	tokensPerKilo       = 1000.0
	costFormatPrecision = 6

	defaultPricingModel = "gpt-4o"

	// GPT-4o pricing
	gpt4oInputPrice  = 0.0025
	gpt4oOutputPrice = 0.01

	// GPT-4o-mini pricing
	gpt4oMiniInputPrice  = 0.00015
	gpt4oMiniOutputPrice = 0.0006

	// GPT-5.1 pricing
	gpt51InputPrice  = 0.00125
	gpt51OutputPrice = 0.01

	// GPT-5.1-mini pricing
	gpt51MiniInputPrice  = 0.00025
	gpt51MiniOutputPrice = 0.002

	// Gemini 2.5 Flash pricing
	gemini25FlashInputPrice  = 0.0003
	gemini25FlashOutputPrice = 0.0025
)

// ModelPricing contains pricing information per 1K tokens
type ModelPricing struct {
	InputPricePer1K  float64 // Price per 1K input tokens in USD
	OutputPricePer1K float64 // Price per 1K output tokens in USD
}

// PricingTable contains pricing for all models
var PricingTable = map[string]ModelPricing{
	"gpt-4o": {
		InputPricePer1K:  gpt4oInputPrice,
		OutputPricePer1K: gpt4oOutputPrice,
	},
	"gpt-4o-mini": {
		InputPricePer1K:  gpt4oMiniInputPrice,
		OutputPricePer1K: gpt4oMiniOutputPrice,
	},
	"gpt-5.1": {
		InputPricePer1K:  gpt51InputPrice,
		OutputPricePer1K: gpt51OutputPrice,
	},
	"gpt-5.1-mini": {
		InputPricePer1K:  gpt51MiniInputPrice,
		OutputPricePer1K: gpt51MiniOutputPrice,
	},
	"gemini-2.5-flash": {
		InputPricePer1K:  gemini25FlashInputPrice,
		OutputPricePer1K: gemini25FlashOutputPrice,
	},
}

// CalculateCost calculates the cost in USD of one call from its token usage.
// Unknown models are priced as gpt-4o.
func CalculateCost(model string, usage llm.TokenUsage) float64 {
	pricing, exists := PricingTable[model]
	if !exists {
		pricing = PricingTable[defaultPricingModel]
	}

	inputCost := (float64(usage.Input) / tokensPerKilo) * pricing.InputPricePer1K
	// reasoning tokens are already part of the output count
	outputCost := (float64(usage.Output) / tokensPerKilo) * pricing.OutputPricePer1K

	return inputCost + outputCost
}

// FormatCost formats a cost value as a USD string
func FormatCost(cost float64) string {
	return "$" + strconv.FormatFloat(cost, 'f', costFormatPrecision, 64)
}
