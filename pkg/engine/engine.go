package engine

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/meridianhq/chorus/pkg/adapter"
	"github.com/meridianhq/chorus/pkg/agent"
	"github.com/meridianhq/chorus/pkg/classify"
	"github.com/meridianhq/chorus/pkg/collect"
	"github.com/meridianhq/chorus/pkg/config"
	"github.com/meridianhq/chorus/pkg/ensemble"
	"github.com/meridianhq/chorus/pkg/metrics"
	"github.com/meridianhq/chorus/pkg/quality"
	"github.com/meridianhq/chorus/pkg/router"
)

// Engine runs the full orchestration pipeline: classify, route, collect,
// synthesize, validate, record.
type Engine struct {
	adapters     map[string]adapter.Adapter
	cfg          *config.EngineConfig
	registry     *agent.Registry
	router       *router.CapabilityRouter
	classifier   *classify.Classifier
	collector    *collect.Collector
	synthesizer  *ensemble.Synthesizer
	monitor      *metrics.Monitor
	ownedMonitor bool
	debug        bool
}

// AskOptions selects per-query behavior.
type AskOptions struct {
	// Ensemble fans the query out to the configured backend set instead
	// of only the primary agent's backend.
	Ensemble bool

	// Method forces a synthesis strategy; empty means auto.
	Method ensemble.Method

	// Validate attaches a quality score to the answer.
	Validate bool
}

// Answer is the result of one Ask call. The caller can always render
// something: a degenerate final answer carries confidence 0.
type Answer struct {
	Final          *ensemble.FinalAnswer
	Route          *router.Route
	Classification classify.Result
	Quality        *quality.Score
	Latency        time.Duration
}

// Option configures an Engine.
type Option func(*Engine)

// WithMonitor attaches an externally owned performance monitor; the
// engine will not close it.
func WithMonitor(m *metrics.Monitor) Option {
	return func(e *Engine) {
		e.monitor = m
		e.ownedMonitor = false
	}
}

// WithDebug enables debug logging throughout the pipeline.
func WithDebug(debug bool) Option {
	return func(e *Engine) {
		e.debug = debug
	}
}

// New creates an engine over the given adapters and configuration.
func New(adapters map[string]adapter.Adapter, cfg *config.EngineConfig, opts ...Option) (*Engine, error) {
	if cfg == nil {
		return nil, fmt.Errorf("engine config cannot be nil")
	}

	registry, err := agent.NewRegistry(cfg.Agents)
	if err != nil {
		return nil, fmt.Errorf("failed to build agent registry: %w", err)
	}

	capRouter, err := router.New(registry, router.WithWeights(cfg.Router))
	if err != nil {
		return nil, fmt.Errorf("failed to build router: %w", err)
	}

	e := &Engine{
		adapters: adapters,
		cfg:      cfg,
		registry: registry,
		router:   capRouter,
	}
	for _, opt := range opts {
		opt(e)
	}

	e.classifier = classify.NewClassifier(
		adapters[cfg.Classifier.Adapter], cfg.Classifier.Model, classify.WithDebug(e.debug))
	e.synthesizer = ensemble.NewSynthesizer(
		adapters[cfg.Synthesis.Adapter], cfg.Synthesis.Model, ensemble.WithDebug(e.debug))
	e.collector = collect.NewCollector(
		collect.WithTimeout(time.Duration(cfg.Ensemble.CallTimeoutMs)*time.Millisecond),
		collect.WithMaxParallel(cfg.Ensemble.MaxParallel),
		collect.WithDebug(e.debug))

	if e.monitor == nil {
		e.monitor = metrics.NewMonitor(cfg.BaselineCostUSD)
		e.ownedMonitor = true
	}

	return e, nil
}

// Close releases engine resources.
func (e *Engine) Close() {
	if e.ownedMonitor {
		e.monitor.Close()
	}
}

// Registry exposes the agent catalog.
func (e *Engine) Registry() *agent.Registry {
	return e.registry
}

// Metrics returns a snapshot of the performance counters.
func (e *Engine) Metrics() metrics.Snapshot {
	return e.monitor.Snapshot()
}

// Route classifies the query and emits a routing decision without
// invoking any answer backend.
func (e *Engine) Route(ctx context.Context, query string, queryContext map[string]string) (*router.Route, classify.Result) {
	result := e.classifier.Classify(ctx, query, queryContext)
	return e.router.Route(result.Classification), result
}

// Ask runs the whole pipeline for one query. The error return is reserved
// for misuse (empty query); backend failures degrade into the answer's
// confidence instead of surfacing here.
func (e *Engine) Ask(ctx context.Context, query string, queryContext map[string]string, opts AskOptions) (*Answer, error) {
	if query == "" {
		return nil, fmt.Errorf("query cannot be empty")
	}

	// A non-positive timeout means no overall deadline; hand-built configs
	// skip the defaults that LoadEngineConfig applies.
	if e.cfg.QueryTimeoutMs > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(e.cfg.QueryTimeoutMs)*time.Millisecond)
		defer cancel()
	}

	start := time.Now()

	result := e.classifier.Classify(ctx, query, queryContext)
	route := e.router.Route(result.Classification)

	backends := e.backendsFor(route, opts.Ensemble)
	responses := e.collector.Collect(ctx, query, backends)

	final := e.synthesizer.Synthesize(ctx, query, responses, opts.Method)

	answer := &Answer{
		Final:          final,
		Route:          route,
		Classification: result,
		Latency:        time.Since(start),
	}
	if opts.Validate {
		answer.Quality = quality.Validate(final.Content)
	}

	e.record(responses, answer.Latency)
	return answer, nil
}

// backendsFor maps a routing decision onto concrete backend targets.
func (e *Engine) backendsFor(route *router.Route, useEnsemble bool) []collect.Backend {
	if useEnsemble {
		return e.resolve(e.cfg.Ensemble.Backends)
	}

	target, ok := e.cfg.AgentTargets[route.Primary]
	if !ok {
		target = e.cfg.Default
	}
	return e.resolve([]config.RouteTarget{target})
}

// resolve drops targets whose adapter is not available.
func (e *Engine) resolve(targets []config.RouteTarget) []collect.Backend {
	var backends []collect.Backend
	for _, t := range targets {
		a, ok := e.adapters[t.Adapter]
		if !ok || a == nil {
			continue
		}
		backends = append(backends, collect.Backend{Adapter: a, Model: t.Model})
	}
	return backends
}

// record feeds the monitor one sample per contributing backend. Costs are
// estimated from token usage when the backend reported it.
func (e *Engine) record(responses []ensemble.ModelResponse, latency time.Duration) {
	for _, r := range responses {
		var cost float64
		usage := usageFromMetadata(r.Metadata)
		if c, ok := metrics.EstimateCost(e.cfg.Pricing, r.Metadata["adapter"], modelName(r.Model), usage); ok {
			cost = c.Amount
		}
		e.monitor.Record(r.Model, cost, latency)
	}
}

func usageFromMetadata(metadata map[string]string) adapter.Usage {
	var usage adapter.Usage
	if v, err := strconv.Atoi(metadata["prompt_tokens"]); err == nil {
		usage.PromptTokens = v
	}
	if v, err := strconv.Atoi(metadata["completion_tokens"]); err == nil {
		usage.CompletionTokens = v
	}
	usage.TotalTokens = usage.PromptTokens + usage.CompletionTokens
	return usage
}

// modelName strips the adapter prefix from a backend identifier.
func modelName(backendID string) string {
	for i := 0; i < len(backendID); i++ {
		if backendID[i] == '/' {
			return backendID[i+1:]
		}
	}
	return backendID
}
