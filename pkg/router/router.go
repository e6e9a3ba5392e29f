package router

import (
	"fmt"
	"sort"
	"strings"

	"github.com/meridianhq/chorus/pkg/agent"
	"github.com/meridianhq/chorus/pkg/classify"
)

// Weights holds the scoring policy. The values are tunable configuration,
// not a law of nature; the defaults mirror the shipped routing behavior.
type Weights struct {
	Keyword    float64 `yaml:"keyword"`
	Capability float64 `yaml:"capability"`
	TypeMatch  float64 `yaml:"type_match"`

	// MatchBase is added to the confidence of any agent with at least
	// one match, so that a single keyword hit still clears the default
	// threshold.
	MatchBase float64 `yaml:"match_base"`

	// Threshold discards agents whose confidence is at or below it.
	Threshold float64 `yaml:"threshold"`
}

// DefaultWeights returns the standard scoring policy.
func DefaultWeights() Weights {
	return Weights{
		Keyword:    0.3,
		Capability: 0.5,
		TypeMatch:  0.2,
		MatchBase:  0.3,
		Threshold:  0.3,
	}
}

// maxSupporting caps the supporting agent list.
const maxSupporting = 2

// CapabilityRouter scores every registered agent against a classification
// and picks the best handlers.
type CapabilityRouter struct {
	registry *agent.Registry
	weights  Weights
}

// Option configures a CapabilityRouter.
type Option func(*CapabilityRouter)

// WithWeights overrides the scoring policy.
func WithWeights(w Weights) Option {
	return func(r *CapabilityRouter) {
		r.weights = w
	}
}

// New creates a capability router over the given registry.
func New(registry *agent.Registry, opts ...Option) (*CapabilityRouter, error) {
	if registry == nil {
		return nil, fmt.Errorf("registry cannot be nil")
	}
	r := &CapabilityRouter{registry: registry, weights: DefaultWeights()}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Route scores all agents against the classification and emits a decision.
// When no agent clears the threshold the universal agent handles the query
// and is also marked as the escalation target.
func (r *CapabilityRouter) Route(cls classify.Classification) *Route {
	candidates := r.score(cls)

	if len(candidates) == 0 {
		fallback := r.registry.Universal()
		return &Route{
			Primary:    fallback.ID,
			EscalateTo: fallback.ID,
			Confidence: 0.5,
			Reasoning:  "no specific agent matched; escalating to universal agent",
		}
	}

	// Stable sort keeps registration order on equal confidence, so ties
	// resolve first-registered-wins.
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Confidence > candidates[j].Confidence
	})

	primary := candidates[0]
	var supporting []string
	for _, c := range candidates[1:] {
		if len(supporting) == maxSupporting {
			break
		}
		supporting = append(supporting, c.AgentID)
	}

	return &Route{
		Primary:    primary.AgentID,
		Supporting: supporting,
		Confidence: primary.Confidence,
		Reasoning: fmt.Sprintf("agent %s matched %d keyword(s), %d capability(ies), type_match=%t",
			primary.AgentID, primary.Keyword, primary.Capability, primary.TypeMatch),
	}
}

// score evaluates every agent and drops those at or below the threshold.
func (r *CapabilityRouter) score(cls classify.Classification) []Candidate {
	var out []Candidate
	for _, d := range r.registry.All() {
		c := r.scoreAgent(d, cls)
		if c.Confidence <= r.weights.Threshold {
			continue
		}
		out = append(out, c)
	}
	return out
}

func (r *CapabilityRouter) scoreAgent(d agent.Descriptor, cls classify.Classification) Candidate {
	keywordMatches := 0
	for _, kw := range cls.Keywords {
		if matchesAny(kw, d.Keywords) {
			keywordMatches++
		}
	}

	capabilityMatches := 0
	for _, entity := range cls.Entities {
		if matchesAny(entity, d.Capabilities) {
			capabilityMatches++
		}
	}

	typeMatch := cls.Type == d.Type

	raw := r.weights.Keyword*float64(keywordMatches) +
		r.weights.Capability*float64(capabilityMatches)
	if typeMatch {
		raw += r.weights.TypeMatch
	}

	confidence := 0.0
	if raw > 0 {
		confidence = r.weights.MatchBase + raw/2
	}
	if confidence > 1 {
		confidence = 1
	}

	return Candidate{
		AgentID:    d.ID,
		Confidence: confidence,
		Keyword:    keywordMatches,
		Capability: capabilityMatches,
		TypeMatch:  typeMatch,
	}
}

// matchesAny reports whether term fuzzy-matches any of the targets.
// Fuzzy here means case-insensitive substring containment in either
// direction: "schedule" matches "scheduler" and vice versa.
func matchesAny(term string, targets []string) bool {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return false
	}
	for _, target := range targets {
		target = strings.ToLower(strings.TrimSpace(target))
		if target == "" {
			continue
		}
		if strings.Contains(term, target) || strings.Contains(target, term) {
			return true
		}
	}
	return false
}
