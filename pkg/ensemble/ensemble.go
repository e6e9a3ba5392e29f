package ensemble

import (
	"time"
)

// Method identifies a synthesis strategy.
type Method string

const (
	MethodSingle       Method = "single"
	MethodMajorityVote Method = "majority_vote"
	MethodWeightedVote Method = "weighted_vote"
	MethodLLMSynthesis Method = "llm_synthesis"

	// MethodAuto lets the synthesizer pick: single for one response,
	// llm_synthesis for more.
	MethodAuto Method = ""
)

// DefaultConfidence is stamped on a response whose backend reported no
// confidence of its own.
const DefaultConfidence = 0.7

// ModelResponse is one backend's answer to one query.
type ModelResponse struct {
	Model      string            `json:"model"`
	Content    string            `json:"content"`
	Confidence float64           `json:"confidence,omitempty"`
	Timestamp  time.Time         `json:"timestamp"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// FinalAnswer is the synthesis result. Immutable once produced.
type FinalAnswer struct {
	Content    string   `json:"content"`
	Models     []string `json:"models"`
	Method     Method   `json:"synthesis_method"`
	Confidence float64  `json:"confidence"`
	Reasoning  string   `json:"reasoning"`
}

// emptyAnswerContent is returned when the synthesizer receives zero
// responses; callers check confidence 0 to report "no answer available".
const emptyAnswerContent = "No model responses were available to answer this query."
