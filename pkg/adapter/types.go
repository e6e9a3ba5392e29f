package adapter

import "github.com/meridianhq/chorus/pkg/artifact"

// Usage captures normalized token usage.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Cost captures normalized cost estimates.
type Cost struct {
	Currency     string  `json:"currency"`
	Amount       float64 `json:"amount"`
	IsEstimate   bool    `json:"is_estimate"`
	PricingModel string  `json:"pricing_model,omitempty"`
}

// Response wraps an adapter output with optional usage data and an
// optional backend-reported confidence in [0,1]. Most providers report
// no confidence; callers substitute a neutral default.
type Response struct {
	Artifact   *artifact.Artifact
	Usage      *Usage
	Confidence *float64
}
