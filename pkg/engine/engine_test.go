package engine

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/meridianhq/chorus/pkg/adapter"
	"github.com/meridianhq/chorus/pkg/agent"
	"github.com/meridianhq/chorus/pkg/config"
	"github.com/meridianhq/chorus/pkg/ensemble"
)

func testConfig() *config.EngineConfig {
	cfg := &config.EngineConfig{
		Agents: []agent.Descriptor{
			{
				ID: "scheduler", Name: "Scheduler", Type: agent.TypeFeature,
				Capabilities: []string{"scheduling", "planning"},
				Keywords:     []string{"schedule", "calendar", "meeting"},
			},
			{
				ID: "search", Name: "Search", Type: agent.TypeAlgorithmic,
				Capabilities: []string{"search", "ranking"},
				Keywords:     []string{"search", "find"},
			},
			{
				ID: "assistant", Name: "Assistant", Type: agent.TypeUniversal,
			},
		},
		Classifier: config.RouteTarget{Adapter: "classifier", Model: "mock-1"},
		Synthesis:  config.RouteTarget{Adapter: "synth", Model: "mock-1"},
		AgentTargets: map[string]config.RouteTarget{
			"scheduler": {Adapter: "alpha", Model: "mock-1"},
		},
		Default: config.RouteTarget{Adapter: "beta", Model: "mock-1"},
		Ensemble: config.EnsembleConfig{
			Backends: []config.RouteTarget{
				{Adapter: "alpha", Model: "mock-1"},
				{Adapter: "beta", Model: "mock-1"},
				{Adapter: "gamma", Model: "mock-1"},
			},
		},
		QueryTimeoutMs:  5000,
		BaselineCostUSD: 0.1,
	}
	return cfg
}

func testAdapters() map[string]adapter.Adapter {
	classifier := adapter.NewNamedMockAdapter("classifier",
		`{"intent": "schedule_meeting", "entities": ["meeting"], "type": "feature", "keywords": ["schedule", "meeting"]}`)
	return map[string]adapter.Adapter{
		"classifier": classifier,
		"synth":      adapter.NewNamedMockAdapter("synth", "merged answer"),
		"alpha":      adapter.NewNamedMockAdapter("alpha", "answer from alpha"),
		"beta":       adapter.NewNamedMockAdapter("beta", "answer from beta"),
		"gamma":      adapter.NewNamedMockAdapter("gamma", "answer from gamma"),
	}
}

func TestAskRoutesToAgentTarget(t *testing.T) {
	e, err := New(testAdapters(), testConfig())
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	defer e.Close()

	answer, err := e.Ask(context.Background(), "schedule a team meeting", nil, AskOptions{})
	if err != nil {
		t.Fatalf("ask: %v", err)
	}

	if answer.Route.Primary != "scheduler" {
		t.Fatalf("expected scheduler route, got %s", answer.Route.Primary)
	}
	if answer.Classification.Degraded {
		t.Fatalf("expected delegate classification, got degraded")
	}
	if len(answer.Final.Models) != 1 || answer.Final.Models[0] != "alpha/mock-1" {
		t.Fatalf("expected the scheduler's backend to answer, got %v", answer.Final.Models)
	}
	if !strings.Contains(answer.Final.Content, "answer from alpha") {
		t.Fatalf("unexpected content: %q", answer.Final.Content)
	}
	if answer.Latency <= 0 {
		t.Fatalf("expected positive latency")
	}
}

func TestAskEnsembleSynthesizes(t *testing.T) {
	e, err := New(testAdapters(), testConfig())
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	defer e.Close()

	answer, err := e.Ask(context.Background(), "schedule a team meeting", nil, AskOptions{Ensemble: true})
	if err != nil {
		t.Fatalf("ask: %v", err)
	}

	if len(answer.Final.Models) != 3 {
		t.Fatalf("expected 3 contributing backends, got %v", answer.Final.Models)
	}
	if answer.Final.Method != ensemble.MethodLLMSynthesis {
		t.Fatalf("expected llm_synthesis, got %s", answer.Final.Method)
	}
	if !strings.Contains(answer.Final.Content, "merged answer") {
		t.Fatalf("expected the synthesis delegate's output, got %q", answer.Final.Content)
	}
}

func TestAskEnsembleForcedMethod(t *testing.T) {
	e, err := New(testAdapters(), testConfig())
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	defer e.Close()

	answer, err := e.Ask(context.Background(), "schedule a team meeting", nil, AskOptions{
		Ensemble: true,
		Method:   ensemble.MethodMajorityVote,
	})
	if err != nil {
		t.Fatalf("ask: %v", err)
	}
	if answer.Final.Method != ensemble.MethodMajorityVote {
		t.Fatalf("expected majority_vote, got %s", answer.Final.Method)
	}
}

func TestAskDegradedClassifierStillRoutes(t *testing.T) {
	adapters := testAdapters()
	broken := adapter.NewNamedMockAdapter("classifier", "")
	broken.Err = context.DeadlineExceeded
	adapters["classifier"] = broken

	e, err := New(adapters, testConfig())
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	defer e.Close()

	answer, err := e.Ask(context.Background(), "schedule a team meeting", nil, AskOptions{})
	if err != nil {
		t.Fatalf("ask: %v", err)
	}

	if !answer.Classification.Degraded {
		t.Fatalf("expected degraded classification")
	}
	// Keyword fallback still carries "schedule" and "meeting".
	if answer.Route.Primary != "scheduler" {
		t.Fatalf("expected keyword fallback to reach the scheduler, got %s", answer.Route.Primary)
	}
}

func TestAskFallsBackToUniversalAgent(t *testing.T) {
	adapters := testAdapters()
	adapters["classifier"].(*adapter.MockAdapter).Err = context.DeadlineExceeded

	e, err := New(adapters, testConfig())
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	defer e.Close()

	answer, err := e.Ask(context.Background(), "completely unrelated topic", nil, AskOptions{})
	if err != nil {
		t.Fatalf("ask: %v", err)
	}

	if answer.Route.Primary != "assistant" {
		t.Fatalf("expected universal fallback, got %s", answer.Route.Primary)
	}
	if answer.Route.EscalateTo != "assistant" {
		t.Fatalf("expected escalation target, got %q", answer.Route.EscalateTo)
	}
	// The assistant has no dedicated target, so the default backend answers.
	if len(answer.Final.Models) != 1 || answer.Final.Models[0] != "beta/mock-1" {
		t.Fatalf("expected default backend, got %v", answer.Final.Models)
	}
}

func TestAskSlowBackendDroppedFromEnsemble(t *testing.T) {
	cfg := testConfig()
	cfg.Ensemble.CallTimeoutMs = 50

	adapters := testAdapters()
	adapters["gamma"].(*adapter.MockAdapter).Delay = 500 * time.Millisecond

	e, err := New(adapters, cfg)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	defer e.Close()

	answer, err := e.Ask(context.Background(), "schedule a team meeting", nil, AskOptions{Ensemble: true})
	if err != nil {
		t.Fatalf("ask: %v", err)
	}

	if len(answer.Final.Models) != 2 {
		t.Fatalf("expected the slow backend to be dropped, got %v", answer.Final.Models)
	}
	for _, m := range answer.Final.Models {
		if strings.HasPrefix(m, "gamma/") {
			t.Fatalf("slow backend should not contribute: %v", answer.Final.Models)
		}
	}
}

func TestAskAllBackendsFail(t *testing.T) {
	adapters := testAdapters()
	for _, name := range []string{"alpha", "beta", "gamma"} {
		adapters[name].(*adapter.MockAdapter).Err = context.DeadlineExceeded
	}

	e, err := New(adapters, testConfig())
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	defer e.Close()

	answer, err := e.Ask(context.Background(), "schedule a team meeting", nil, AskOptions{Ensemble: true})
	if err != nil {
		t.Fatalf("ask: %v", err)
	}

	if answer.Final.Confidence != 0 {
		t.Fatalf("expected zero confidence with no responses, got %f", answer.Final.Confidence)
	}
	if len(answer.Final.Models) != 0 {
		t.Fatalf("expected no contributing models, got %v", answer.Final.Models)
	}
}

func TestAskSparseConfigDoesNotBlock(t *testing.T) {
	// A hand-built config without timeouts or parallelism limits must still
	// answer: zero values mean defaults, not a zero worker budget or an
	// already-expired deadline.
	cfg := testConfig()
	cfg.QueryTimeoutMs = 0
	cfg.Ensemble.CallTimeoutMs = 0
	cfg.Ensemble.MaxParallel = 0

	e, err := New(testAdapters(), cfg)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	defer e.Close()

	done := make(chan *Answer, 1)
	go func() {
		answer, err := e.Ask(context.Background(), "schedule a team meeting", nil, AskOptions{Ensemble: true})
		if err != nil {
			t.Errorf("ask: %v", err)
		}
		done <- answer
	}()

	select {
	case answer := <-done:
		if answer == nil || len(answer.Final.Models) != 3 {
			t.Fatalf("expected all 3 backends to answer, got %+v", answer)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Ask did not return with a sparse config")
	}
}

func TestAskValidateAttachesScore(t *testing.T) {
	e, err := New(testAdapters(), testConfig())
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	defer e.Close()

	answer, err := e.Ask(context.Background(), "schedule a team meeting", nil, AskOptions{Validate: true})
	if err != nil {
		t.Fatalf("ask: %v", err)
	}
	if answer.Quality == nil {
		t.Fatalf("expected a quality score")
	}
	if answer.Quality.Overall < 0 || answer.Quality.Overall > 1 {
		t.Fatalf("overall score out of range: %f", answer.Quality.Overall)
	}
}

func TestAskEmptyQuery(t *testing.T) {
	e, err := New(testAdapters(), testConfig())
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	defer e.Close()

	if _, err := e.Ask(context.Background(), "", nil, AskOptions{}); err == nil {
		t.Fatalf("expected error for empty query")
	}
}

func TestAskRecordsMetrics(t *testing.T) {
	e, err := New(testAdapters(), testConfig())
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	defer e.Close()

	if _, err := e.Ask(context.Background(), "schedule a team meeting", nil, AskOptions{Ensemble: true}); err != nil {
		t.Fatalf("ask: %v", err)
	}

	e.monitor.Flush()
	snap := e.Metrics()
	if snap.TotalQueries != 3 {
		t.Fatalf("expected one sample per contributing backend, got %d", snap.TotalQueries)
	}
	if snap.ModelUsage["alpha/mock-1"] != 1 {
		t.Fatalf("expected usage for alpha backend, got %v", snap.ModelUsage)
	}
	// Mock backends report no usage, so every sample saves the full baseline.
	want := 3 * 0.1
	if diff := snap.CostSavings - want; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("expected savings %f, got %f", want, snap.CostSavings)
	}
}

func TestRouteWithoutInvocation(t *testing.T) {
	e, err := New(testAdapters(), testConfig())
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	defer e.Close()

	route, result := e.Route(context.Background(), "find nearby groups", nil)
	if result.Degraded {
		t.Fatalf("expected delegate classification")
	}
	if route == nil || route.Primary == "" {
		t.Fatalf("expected a routing decision")
	}
}

func TestNewRejectsBadConfig(t *testing.T) {
	if _, err := New(testAdapters(), nil); err == nil {
		t.Fatalf("expected error for nil config")
	}

	cfg := testConfig()
	cfg.Agents = cfg.Agents[:2] // no universal agent
	if _, err := New(testAdapters(), cfg); err == nil {
		t.Fatalf("expected error without universal agent")
	}
}
