package classify

import (
	"context"
	"encoding/json"
	"log"
	"strings"

	"github.com/meridianhq/chorus/pkg/adapter"
	"github.com/meridianhq/chorus/pkg/agent"
)

// Classification is the structured form of one free-text query. It lives
// for a single routing call and is never persisted.
type Classification struct {
	Intent   string     `json:"intent"`
	Entities []string   `json:"entities"`
	Type     agent.Type `json:"type"`
	Keywords []string   `json:"keywords"`
}

// Result wraps a classification with its provenance. Degraded means the
// delegate provider was unreachable or answered garbage and the keyword
// fallback was used instead; downstream routing still works on keywords
// alone, so this is not an error.
type Result struct {
	Classification Classification
	Degraded       bool
}

// Classifier turns queries into classifications by delegating language
// understanding to a text-generation provider.
type Classifier struct {
	delegate adapter.Adapter
	model    string
	debug    bool
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithDebug enables debug logging.
func WithDebug(debug bool) Option {
	return func(c *Classifier) {
		c.debug = debug
	}
}

// NewClassifier creates a classifier backed by the given delegate adapter.
// A nil delegate is allowed; every query then takes the fallback path.
func NewClassifier(delegate adapter.Adapter, model string, opts ...Option) *Classifier {
	c := &Classifier{delegate: delegate, model: model}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classify produces a classification for the query. It never returns an
// error: provider failure degrades to a keyword-only classification.
func (c *Classifier) Classify(ctx context.Context, query string, queryContext map[string]string) Result {
	if c.delegate == nil || c.model == "" {
		return Result{Classification: Fallback(query), Degraded: true}
	}

	resp, err := c.delegate.Generate(ctx, c.model, buildPrompt(query, queryContext))
	if err != nil {
		if c.debug {
			log.Printf("[classify] delegate error: %v", err)
		}
		return Result{Classification: Fallback(query), Degraded: true}
	}
	if resp == nil || resp.Artifact == nil || strings.TrimSpace(resp.Artifact.Content) == "" {
		if c.debug {
			log.Printf("[classify] delegate returned empty response")
		}
		return Result{Classification: Fallback(query), Degraded: true}
	}

	parsed, err := parseResponse(resp.Artifact.Content)
	if err != nil {
		if c.debug {
			log.Printf("[classify] delegate response invalid: %v", err)
		}
		return Result{Classification: Fallback(query), Degraded: true}
	}

	return Result{Classification: *parsed}
}

// Fallback is the deterministic offline classification: unknown intent,
// general type, keywords from whitespace-splitting the lowercased query.
func Fallback(query string) Classification {
	return Classification{
		Intent:   "unknown",
		Entities: []string{},
		Type:     agent.TypeGeneral,
		Keywords: strings.Fields(strings.ToLower(query)),
	}
}

// rawClassification is the wire form the delegate is asked to return.
type rawClassification struct {
	Intent   string   `json:"intent"`
	Entities []string `json:"entities"`
	Type     string   `json:"type"`
	Keywords []string `json:"keywords"`
}

func parseResponse(content string) (*Classification, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	var raw rawClassification
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return nil, err
	}

	// Missing fields default rather than fail.
	if raw.Intent == "" {
		raw.Intent = "unknown"
	}
	if raw.Entities == nil {
		raw.Entities = []string{}
	}
	if raw.Keywords == nil {
		raw.Keywords = []string{}
	}

	return &Classification{
		Intent:   raw.Intent,
		Entities: raw.Entities,
		Type:     agent.ParseType(strings.ToLower(strings.TrimSpace(raw.Type))),
		Keywords: raw.Keywords,
	}, nil
}
