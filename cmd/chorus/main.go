package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/meridianhq/chorus/pkg/adapter"
	"github.com/meridianhq/chorus/pkg/config"
	"github.com/meridianhq/chorus/pkg/engine"
	"github.com/meridianhq/chorus/pkg/ensemble"
	"github.com/meridianhq/chorus/pkg/quality"
)

var (
	configFile  string
	debugFlag   bool
	contextFlag []string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "chorus",
		Short: "Multi-model orchestration with intelligent routing and synthesis",
		Long: `Chorus classifies each query, routes it to the most capable agent,
	fans it out to one or more LLM backends, and synthesizes the responses
	into a single answer.`,
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "path to engine config file")
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "enable debug logging")

	rootCmd.AddCommand(askCmd())
	rootCmd.AddCommand(routeCmd())
	rootCmd.AddCommand(agentsCmd())
	rootCmd.AddCommand(modelsCmd())
	rootCmd.AddCommand(scoreCmd())
	rootCmd.AddCommand(statsCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func askCmd() *cobra.Command {
	var ensembleFlag bool
	var methodFlag string
	var scoreFlag bool
	var adapterFlag string
	var modelFlag string

	cmd := &cobra.Command{
		Use:   "ask [query]",
		Short: "Answer a query through the orchestration pipeline",
		Long: `Classifies the query, routes it to the best agent, and answers with
	that agent's backend.

	Use --ensemble to fan the query out to every configured backend and
	synthesize the responses. --method forces a synthesis strategy
	(single, majority_vote, weighted_vote, llm_synthesis); the default
	picks automatically.

	Use --adapter and --model to bypass routing and ask one backend
	directly.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := args[0]

			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			adapters, err := createAdapters(cfg)
			if err != nil {
				return fmt.Errorf("failed to create adapters: %w", err)
			}

			if adapterFlag != "" {
				return askDirect(cmd.Context(), adapters, adapterFlag, modelFlag, query)
			}

			eng, err := engine.New(adapters, cfg.Engine, engine.WithDebug(debugFlag))
			if err != nil {
				return fmt.Errorf("failed to create engine: %w", err)
			}
			defer eng.Close()

			answer, err := eng.Ask(cmd.Context(), query, parseContext(contextFlag), engine.AskOptions{
				Ensemble: ensembleFlag,
				Method:   ensemble.Method(methodFlag),
				Validate: scoreFlag,
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(os.Stderr, "Routed to %s (confidence %.2f, %s, %v)\n",
				answer.Route.Primary, answer.Route.Confidence, answer.Final.Method, answer.Latency.Round(time.Millisecond))
			if answer.Classification.Degraded {
				fmt.Fprintln(os.Stderr, "Classifier degraded to keyword fallback")
			}

			fmt.Println(answer.Final.Content)

			if answer.Quality != nil {
				fmt.Fprintf(os.Stderr, "Quality: overall %.2f (accuracy %.2f, completeness %.2f, coherence %.2f)\n",
					answer.Quality.Overall, answer.Quality.Accuracy, answer.Quality.Completeness, answer.Quality.Coherence)
				for _, issue := range answer.Quality.Issues {
					fmt.Fprintf(os.Stderr, "  - %s\n", issue)
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&ensembleFlag, "ensemble", false, "fan out to all configured backends and synthesize")
	cmd.Flags().StringVar(&methodFlag, "method", "", "synthesis method (single, majority_vote, weighted_vote, llm_synthesis)")
	cmd.Flags().BoolVar(&scoreFlag, "score", false, "attach a quality score to the answer")
	cmd.Flags().StringVar(&adapterFlag, "adapter", "", "bypass routing and use this adapter (anthropic, openai, google, deepseek, mock)")
	cmd.Flags().StringVar(&modelFlag, "model", "", "model for --adapter")
	cmd.Flags().StringArrayVar(&contextFlag, "context", nil, "query context as key=value (repeatable)")

	return cmd
}

// askDirect sends the query to one backend without routing or synthesis.
func askDirect(ctx context.Context, adapters map[string]adapter.Adapter, name, model, query string) error {
	a, ok := adapters[name]
	if !ok {
		return fmt.Errorf("adapter %q not available", name)
	}
	if model == "" {
		models := a.Models()
		if len(models) == 0 {
			return fmt.Errorf("adapter %q has no models", name)
		}
		model = models[0]
	}

	fmt.Fprintf(os.Stderr, "Asking %s/%s directly\n", name, model)
	resp, err := a.Generate(ctx, model, query)
	if err != nil {
		return err
	}
	fmt.Println(resp.Artifact.Content)
	return nil
}

func routeCmd() *cobra.Command {
	var jsonFlag bool

	cmd := &cobra.Command{
		Use:   "route [query]",
		Short: "Show the routing decision for a query without answering it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			adapters, err := createAdapters(cfg)
			if err != nil {
				return fmt.Errorf("failed to create adapters: %w", err)
			}

			eng, err := engine.New(adapters, cfg.Engine, engine.WithDebug(debugFlag))
			if err != nil {
				return fmt.Errorf("failed to create engine: %w", err)
			}
			defer eng.Close()

			route, result := eng.Route(cmd.Context(), args[0], parseContext(contextFlag))

			if jsonFlag {
				out := map[string]any{
					"classification": result.Classification,
					"degraded":       result.Degraded,
					"route":          route,
				}
				data, err := json.MarshalIndent(out, "", "  ")
				if err != nil {
					return err
				}
				fmt.Println(string(data))
				return nil
			}

			fmt.Printf("Intent:     %s\n", result.Classification.Intent)
			fmt.Printf("Type:       %s\n", result.Classification.Type)
			fmt.Printf("Keywords:   %s\n", strings.Join(result.Classification.Keywords, ", "))
			if result.Degraded {
				fmt.Println("Classifier: degraded (keyword fallback)")
			}
			fmt.Printf("Primary:    %s (confidence %.2f)\n", route.Primary, route.Confidence)
			if len(route.Supporting) > 0 {
				fmt.Printf("Supporting: %s\n", strings.Join(route.Supporting, ", "))
			}
			if route.EscalateTo != "" {
				fmt.Printf("Escalation: %s\n", route.EscalateTo)
			}
			fmt.Printf("Reasoning:  %s\n", route.Reasoning)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonFlag, "json", false, "emit the decision as JSON")
	cmd.Flags().StringArrayVar(&contextFlag, "context", nil, "query context as key=value (repeatable)")

	return cmd
}

func agentsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "agents",
		Short: "List the routable agent catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tTYPE\tKEYWORDS\tBACKEND")

			for _, d := range cfg.Engine.Agents {
				target, ok := cfg.Engine.AgentTargets[d.ID]
				if !ok {
					target = cfg.Engine.Default
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s/%s\n",
					d.ID, d.Name, d.Type, strings.Join(d.Keywords, ", "), target.Adapter, target.Model)
			}

			return w.Flush()
		},
	}
}

func modelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List configured adapters and their status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "PROVIDER\tSTATUS\tPRICED MODELS")

			providers := []string{"anthropic", "openai", "google", "deepseek", "mock"}
			for _, provider := range providers {
				status := "no key"
				if cfg.HasAdapter(provider) || provider == "mock" {
					status = "ready"
				}

				var priced []string
				for model := range cfg.Engine.Pricing[provider] {
					priced = append(priced, model)
				}
				sort.Strings(priced)

				fmt.Fprintf(w, "%s\t%s\t%s\n", provider, status, strings.Join(priced, ", "))
			}

			return w.Flush()
		},
	}
}

func scoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "score [answer]",
		Short: "Score an answer's quality heuristically",
		Long: `Applies the answer quality heuristics (length-based completeness,
	structure-based coherence) to arbitrary text. Pass "-" to read the
	answer from stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			answer := args[0]
			if answer == "-" {
				data, err := io.ReadAll(os.Stdin)
				if err != nil {
					return fmt.Errorf("failed to read stdin: %w", err)
				}
				answer = strings.TrimSpace(string(data))
			}

			s := quality.Validate(answer)

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "Accuracy\t%.2f\n", s.Accuracy)
			fmt.Fprintf(w, "Completeness\t%.2f\n", s.Completeness)
			fmt.Fprintf(w, "Coherence\t%.2f\n", s.Coherence)
			fmt.Fprintf(w, "Overall\t%.2f\n", s.Overall)
			if err := w.Flush(); err != nil {
				return err
			}

			for _, issue := range s.Issues {
				fmt.Printf("  - %s\n", issue)
			}
			return nil
		},
	}
}

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show engine defaults and baseline economics",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "Agents\t%d\n", len(cfg.Engine.Agents))
			fmt.Fprintf(w, "Ensemble backends\t%d\n", len(cfg.Engine.Ensemble.Backends))
			fmt.Fprintf(w, "Call timeout\t%dms\n", cfg.Engine.Ensemble.CallTimeoutMs)
			fmt.Fprintf(w, "Query timeout\t%dms\n", cfg.Engine.QueryTimeoutMs)
			fmt.Fprintf(w, "Baseline cost\t$%.4f/query\n", cfg.Engine.BaselineCostUSD)
			return w.Flush()
		},
	}
}

func loadConfig() (*config.Config, error) {
	if configFile != "" {
		return config.LoadWithEngineFile(configFile)
	}
	return config.Load()
}

// parseContext turns repeated key=value flags into a context map.
func parseContext(pairs []string) map[string]string {
	if len(pairs) == 0 {
		return nil
	}
	out := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			out[pair] = ""
			continue
		}
		out[key] = value
	}
	return out
}

func createAdapters(cfg *config.Config) (map[string]adapter.Adapter, error) {
	adapters := make(map[string]adapter.Adapter)

	if cfg.AnthropicAPIKey != "" {
		a, err := adapter.NewAnthropicAdapter(cfg.AnthropicAPIKey)
		if err != nil {
			return nil, fmt.Errorf("failed to create anthropic adapter: %w", err)
		}
		adapters["anthropic"] = a
	}

	if cfg.OpenAIAPIKey != "" {
		a, err := adapter.NewOpenAIAdapter(cfg.OpenAIAPIKey)
		if err != nil {
			return nil, fmt.Errorf("failed to create openai adapter: %w", err)
		}
		adapters["openai"] = a
	}

	if cfg.GoogleAPIKey != "" {
		a, err := adapter.NewGoogleAdapter(cfg.GoogleAPIKey)
		if err != nil {
			return nil, fmt.Errorf("failed to create google adapter: %w", err)
		}
		adapters["google"] = a
	}

	if cfg.DeepSeekAPIKey != "" {
		a, err := adapter.NewDeepSeekAdapter(cfg.DeepSeekAPIKey)
		if err != nil {
			return nil, fmt.Errorf("failed to create deepseek adapter: %w", err)
		}
		adapters["deepseek"] = a
	}

	adapters["mock"] = adapter.NewMockAdapter()

	return adapters, nil
}
