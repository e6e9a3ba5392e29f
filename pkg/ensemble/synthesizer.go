package ensemble

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/meridianhq/chorus/pkg/adapter"
)

// Synthesizer merges multiple model responses for one query into a single
// final answer.
type Synthesizer struct {
	delegate adapter.Adapter
	model    string
	debug    bool
}

// Option configures a Synthesizer.
type Option func(*Synthesizer)

// WithDebug enables debug logging.
func WithDebug(debug bool) Option {
	return func(s *Synthesizer) {
		s.debug = debug
	}
}

// NewSynthesizer creates a synthesizer. The delegate adapter is used only
// for MethodLLMSynthesis; a nil delegate degrades that method to a
// weighted vote.
func NewSynthesizer(delegate adapter.Adapter, model string, opts ...Option) *Synthesizer {
	s := &Synthesizer{delegate: delegate, model: model}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Synthesize merges the responses using the requested method. MethodAuto
// selects single for one response and llm_synthesis for more. It never
// returns an error for an empty response set; the degenerate answer with
// confidence 0 is the caller's signal that nothing was available.
func (s *Synthesizer) Synthesize(ctx context.Context, query string, responses []ModelResponse, method Method) *FinalAnswer {
	if len(responses) == 0 {
		return &FinalAnswer{
			Content:    emptyAnswerContent,
			Models:     []string{},
			Method:     MethodSingle,
			Confidence: 0,
			Reasoning:  "no responses to synthesize",
		}
	}

	if len(responses) == 1 {
		return s.single(responses[0])
	}

	switch method {
	case MethodSingle:
		return s.single(responses[0])
	case MethodMajorityVote:
		return s.majorityVote(responses)
	case MethodWeightedVote:
		return s.weightedVote(responses)
	case MethodLLMSynthesis, MethodAuto:
		return s.llmSynthesis(ctx, query, responses)
	default:
		return s.llmSynthesis(ctx, query, responses)
	}
}

func (s *Synthesizer) single(r ModelResponse) *FinalAnswer {
	return &FinalAnswer{
		Content:    r.Content,
		Models:     []string{r.Model},
		Method:     MethodSingle,
		Confidence: clamp01(r.Confidence),
		Reasoning:  "single model response",
	}
}

// majorityVote groups responses by normalized content and picks the
// largest group. Ties break by first-seen order in the input list.
func (s *Synthesizer) majorityVote(responses []ModelResponse) *FinalAnswer {
	type group struct {
		first int
		count int
	}
	groups := make(map[string]*group)
	for i, r := range responses {
		key := strings.ToLower(strings.TrimSpace(r.Content))
		g, ok := groups[key]
		if !ok {
			groups[key] = &group{first: i, count: 1}
			continue
		}
		g.count++
	}

	// Scan in input order so the winner is deterministic: highest count,
	// earliest first occurrence on ties.
	winner := -1
	winnerCount := 0
	for i, r := range responses {
		key := strings.ToLower(strings.TrimSpace(r.Content))
		g := groups[key]
		if g.first != i {
			continue
		}
		if g.count > winnerCount {
			winner = i
			winnerCount = g.count
		}
	}

	models := contributingModels(responses)
	return &FinalAnswer{
		Content:    responses[winner].Content,
		Models:     models,
		Method:     MethodMajorityVote,
		Confidence: float64(winnerCount) / float64(len(responses)),
		Reasoning:  fmt.Sprintf("%d of %d responses agreed", winnerCount, len(responses)),
	}
}

// weightedVote normalizes response confidences into weights summing to 1
// and picks the heaviest response. A missing confidence counts as 1.0
// before normalization.
func (s *Synthesizer) weightedVote(responses []ModelResponse) *FinalAnswer {
	weights := Weights(responses)

	best := 0
	for i, w := range weights {
		if w > weights[best] {
			best = i
		}
	}

	return &FinalAnswer{
		Content:    responses[best].Content,
		Models:     contributingModels(responses),
		Method:     MethodWeightedVote,
		Confidence: weights[best],
		Reasoning:  fmt.Sprintf("response from %s carried the highest weight (%.2f)", responses[best].Model, weights[best]),
	}
}

// Weights returns the normalized voting weights for a response set. The
// weights sum to 1 for any non-empty input.
func Weights(responses []ModelResponse) []float64 {
	if len(responses) == 0 {
		return nil
	}
	weights := make([]float64, len(responses))
	var total float64
	for i, r := range responses {
		c := r.Confidence
		if c <= 0 {
			c = 1.0
		}
		weights[i] = c
		total += c
	}
	for i := range weights {
		weights[i] /= total
	}
	return weights
}

// llmSynthesis asks the delegate provider to merge the responses. The
// answer's confidence is derived from inter-response agreement, not from
// the provider: min(0.95, 0.7 + 0.3 * avg pairwise Jaccard similarity).
// Delegate failure degrades to a weighted vote rather than erroring.
func (s *Synthesizer) llmSynthesis(ctx context.Context, query string, responses []ModelResponse) *FinalAnswer {
	if s.delegate == nil || s.model == "" {
		if s.debug {
			log.Printf("[ensemble] no synthesis delegate; falling back to weighted vote")
		}
		return s.weightedVote(responses)
	}

	resp, err := s.delegate.Generate(ctx, s.model, buildSynthesisPrompt(query, responses))
	if err != nil || resp == nil || resp.Artifact == nil || strings.TrimSpace(resp.Artifact.Content) == "" {
		if s.debug {
			log.Printf("[ensemble] synthesis delegate failed (%v); falling back to weighted vote", err)
		}
		return s.weightedVote(responses)
	}

	similarity := avgPairwiseSimilarity(responses)
	confidence := 0.7 + 0.3*similarity
	if confidence > 0.95 {
		confidence = 0.95
	}

	return &FinalAnswer{
		Content:    resp.Artifact.Content,
		Models:     contributingModels(responses),
		Method:     MethodLLMSynthesis,
		Confidence: confidence,
		Reasoning:  fmt.Sprintf("synthesized %d responses (avg pairwise similarity %.2f)", len(responses), similarity),
	}
}

func contributingModels(responses []ModelResponse) []string {
	models := make([]string, len(responses))
	for i, r := range responses {
		models[i] = r.Model
	}
	return models
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
