package metrics

import "github.com/meridianhq/chorus/pkg/adapter"

// Pricing maps adapter -> model -> per-1k token pricing. A "default"
// model entry applies when the specific model has no entry.
type Pricing map[string]map[string]ModelPricing

// ModelPricing defines per-1k token pricing.
type ModelPricing struct {
	PromptPer1K     float64 `yaml:"prompt_per_1k,omitempty"`
	CompletionPer1K float64 `yaml:"completion_per_1k,omitempty"`
}

// EstimateCost computes the estimated USD cost of one call from its token
// usage. The second return value is false when no pricing entry covers
// the adapter/model pair.
func EstimateCost(pricing Pricing, adapterName, model string, usage adapter.Usage) (adapter.Cost, bool) {
	entry, ok := pricingFor(pricing, adapterName, model)
	if !ok {
		return adapter.Cost{Currency: "USD"}, false
	}

	promptCost := (float64(usage.PromptTokens) / 1000.0) * entry.PromptPer1K
	completionCost := (float64(usage.CompletionTokens) / 1000.0) * entry.CompletionPer1K
	return adapter.Cost{
		Currency:     "USD",
		Amount:       promptCost + completionCost,
		IsEstimate:   true,
		PricingModel: "per_1k_tokens",
	}, true
}

func pricingFor(pricing Pricing, adapterName, model string) (ModelPricing, bool) {
	if pricing == nil {
		return ModelPricing{}, false
	}
	adapterPricing, ok := pricing[adapterName]
	if !ok {
		return ModelPricing{}, false
	}
	if entry, ok := adapterPricing[model]; ok {
		return entry, true
	}
	if entry, ok := adapterPricing["default"]; ok {
		return entry, true
	}
	return ModelPricing{}, false
}
