package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/meridianhq/chorus/pkg/agent"
	"github.com/meridianhq/chorus/pkg/metrics"
	"github.com/meridianhq/chorus/pkg/router"
)

// EngineConfig holds the orchestration engine configuration.
type EngineConfig struct {
	// Agents is the routable catalog; it must include exactly one
	// universal agent.
	Agents []agent.Descriptor `yaml:"agents"`

	// Router holds the capability scoring policy.
	Router router.Weights `yaml:"router,omitempty"`

	// Classifier is the delegate used for query classification.
	Classifier RouteTarget `yaml:"classifier,omitempty"`

	// Synthesis is the delegate used for llm_synthesis.
	Synthesis RouteTarget `yaml:"synthesis,omitempty"`

	// AgentTargets maps an agent id to the backend that answers on its
	// behalf; agents without an entry use Default.
	AgentTargets map[string]RouteTarget `yaml:"agent_targets,omitempty"`
	Default      RouteTarget            `yaml:"default"`

	// Ensemble lists the backends fanned out to in ensemble mode.
	Ensemble EnsembleConfig `yaml:"ensemble,omitempty"`

	// QueryTimeoutMs bounds one whole Ask call.
	QueryTimeoutMs int `yaml:"query_timeout_ms,omitempty"`

	// BaselineCostUSD is the per-query cost of always using the most
	// expensive backend; cost savings are measured against it.
	BaselineCostUSD float64 `yaml:"baseline_cost_usd,omitempty"`

	Pricing metrics.Pricing `yaml:"pricing,omitempty"`
}

// RouteTarget specifies an adapter and model combination.
type RouteTarget struct {
	Adapter string `yaml:"adapter"`
	Model   string `yaml:"model"`
}

// EnsembleConfig configures the fan-out backend set.
type EnsembleConfig struct {
	Backends      []RouteTarget `yaml:"backends"`
	CallTimeoutMs int           `yaml:"call_timeout_ms,omitempty"`
	MaxParallel   int           `yaml:"max_parallel,omitempty"`
}

// LoadEngineConfig reads engine configuration from a YAML file.
func LoadEngineConfig(path string) (*EngineConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg EngineConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	applyEngineDefaults(&cfg)
	if err := validateEngineConfig(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// DefaultEngineConfig returns the default engine configuration: the agent
// catalog of the community platform and an ensemble across providers.
func DefaultEngineConfig() *EngineConfig {
	cfg := &EngineConfig{
		Agents: []agent.Descriptor{
			{
				ID: "event-scheduler", Name: "Event Scheduler", Type: agent.TypeFeature,
				Capabilities: []string{"scheduling", "planning", "reminders"},
				Keywords:     []string{"schedule", "calendar", "event", "meeting", "rsvp"},
				Layers:       []int{2},
			},
			{
				ID: "housing-finder", Name: "Housing Finder", Type: agent.TypeArea,
				Capabilities: []string{"listings", "matching", "neighborhoods"},
				Keywords:     []string{"housing", "apartment", "roommate", "rent", "sublet"},
				Layers:       []int{2},
			},
			{
				ID: "community-search", Name: "Community Search", Type: agent.TypeAlgorithmic,
				Capabilities: []string{"search", "ranking", "discovery"},
				Keywords:     []string{"search", "find", "lookup", "browse"},
				Layers:       []int{1},
			},
			{
				ID: "feed-curator", Name: "Feed Curator", Type: agent.TypeIntelligence,
				Capabilities: []string{"recommendations", "personalization", "trends"},
				Keywords:     []string{"feed", "recommend", "trending", "popular"},
				Layers:       []int{3},
			},
			{
				ID: "group-moderator", Name: "Group Moderator", Type: agent.TypeComponent,
				Capabilities: []string{"moderation", "reporting", "guidelines"},
				Keywords:     []string{"report", "moderate", "flag", "block", "spam"},
				Layers:       []int{3},
			},
			{
				ID: "profile-helper", Name: "Profile Helper", Type: agent.TypePage,
				Capabilities: []string{"profiles", "settings", "onboarding"},
				Keywords:     []string{"profile", "account", "settings", "bio"},
				Layers:       []int{1},
			},
			{
				ID: "assistant", Name: "General Assistant", Type: agent.TypeUniversal,
				Capabilities: []string{"conversation"},
			},
		},
		Router: router.DefaultWeights(),
		Classifier: RouteTarget{
			Adapter: "openai",
			Model:   "gpt-5.2-instant",
		},
		Synthesis: RouteTarget{
			Adapter: "anthropic",
			Model:   "claude-sonnet-4-20250514",
		},
		AgentTargets: map[string]RouteTarget{
			"community-search": {Adapter: "google", Model: "gemini-2.0-pro"},
			"feed-curator":     {Adapter: "anthropic", Model: "claude-sonnet-4-20250514"},
			"group-moderator":  {Adapter: "anthropic", Model: "claude-opus-4-20250514"},
		},
		Default: RouteTarget{
			Adapter: "anthropic",
			Model:   "claude-sonnet-4-20250514",
		},
		Ensemble: EnsembleConfig{
			Backends: []RouteTarget{
				{Adapter: "anthropic", Model: "claude-sonnet-4-20250514"},
				{Adapter: "openai", Model: "gpt-5.2-thinking"},
				{Adapter: "google", Model: "gemini-2.0-pro"},
			},
		},
		BaselineCostUSD: 0.12,
		Pricing: metrics.Pricing{
			"anthropic": {
				"claude-sonnet-4-20250514": {PromptPer1K: 0.003, CompletionPer1K: 0.015},
				"claude-opus-4-20250514":   {PromptPer1K: 0.015, CompletionPer1K: 0.075},
			},
			"openai": {
				"gpt-5.2-instant":  {PromptPer1K: 0.0005, CompletionPer1K: 0.002},
				"gpt-5.2-thinking": {PromptPer1K: 0.003, CompletionPer1K: 0.012},
				"default":          {PromptPer1K: 0.002, CompletionPer1K: 0.008},
			},
			"google": {
				"gemini-2.0-pro": {PromptPer1K: 0.00125, CompletionPer1K: 0.005},
			},
			"deepseek": {
				"default": {PromptPer1K: 0.00027, CompletionPer1K: 0.0011},
			},
		},
	}

	applyEngineDefaults(cfg)
	return cfg
}

func applyEngineDefaults(cfg *EngineConfig) {
	if cfg == nil {
		return
	}
	if cfg.Router == (router.Weights{}) {
		cfg.Router = router.DefaultWeights()
	}
	if cfg.Ensemble.CallTimeoutMs == 0 {
		cfg.Ensemble.CallTimeoutMs = 30000
	}
	if cfg.Ensemble.MaxParallel == 0 {
		cfg.Ensemble.MaxParallel = 10
	}
	if cfg.QueryTimeoutMs == 0 {
		cfg.QueryTimeoutMs = 120000
	}
}

func validateEngineConfig(cfg *EngineConfig) error {
	universal := 0
	for _, d := range cfg.Agents {
		if d.ID == "" {
			return fmt.Errorf("agent descriptor missing id")
		}
		if d.Type == agent.TypeUniversal {
			universal++
		}
	}
	if universal != 1 {
		return fmt.Errorf("engine config requires exactly one universal agent, found %d", universal)
	}
	if cfg.Default.Adapter == "" || cfg.Default.Model == "" {
		return fmt.Errorf("engine config requires a default route target")
	}
	return nil
}
