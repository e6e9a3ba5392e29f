package collect

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/meridianhq/chorus/pkg/adapter"
	"github.com/meridianhq/chorus/pkg/ensemble"
)

// Backend is one invokable target: an adapter plus a model on it.
type Backend struct {
	Adapter adapter.Adapter
	Model   string
}

// ID returns the backend's identifier, used as ModelResponse.Model.
func (b Backend) ID() string {
	return fmt.Sprintf("%s/%s", b.Adapter.Name(), b.Model)
}

// Collector fans one query out to a set of backends concurrently and fans
// the successful responses back in. Backends that error or exceed the
// per-call timeout are omitted from the result, never retried and never
// represented by a placeholder.
type Collector struct {
	timeout     time.Duration
	maxParallel int
	debug       bool
}

// Option configures a Collector.
type Option func(*Collector)

// WithTimeout sets the per-backend call timeout. Non-positive values are
// ignored and the default stands.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Collector) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithMaxParallel bounds concurrent backend calls. Non-positive values are
// ignored and the default stands; SetLimit(0) would block every worker.
func WithMaxParallel(n int) Option {
	return func(c *Collector) {
		if n > 0 {
			c.maxParallel = n
		}
	}
}

// WithDebug enables debug logging.
func WithDebug(debug bool) Option {
	return func(c *Collector) {
		c.debug = debug
	}
}

// NewCollector creates a collector with a 30s per-call timeout and up to
// 10 parallel calls.
func NewCollector(opts ...Option) *Collector {
	c := &Collector{
		timeout:     30 * time.Second,
		maxParallel: 10,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Collect invokes every backend concurrently. The returned list holds one
// entry per successful call, in backend order, and may be empty; zero
// successes is the synthesizer's problem, not an error here.
func (c *Collector) Collect(ctx context.Context, query string, backends []Backend) []ensemble.ModelResponse {
	results := make([]*ensemble.ModelResponse, len(backends))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.maxParallel)

	for i, b := range backends {
		g.Go(func() error {
			callCtx, cancel := context.WithTimeout(gctx, c.timeout)
			defer cancel()

			resp, err := b.Adapter.Generate(callCtx, b.Model, query)
			if err != nil {
				if c.debug {
					kind := "permanent"
					if adapter.IsTransient(err) {
						kind = "transient"
					}
					log.Printf("[collect] backend %s dropped (%s failure): %v", b.ID(), kind, err)
				}
				return nil
			}
			if resp == nil || resp.Artifact == nil {
				if c.debug {
					log.Printf("[collect] backend %s returned empty response", b.ID())
				}
				return nil
			}

			confidence := ensemble.DefaultConfidence
			if resp.Confidence != nil {
				confidence = *resp.Confidence
			}

			metadata := map[string]string{
				"adapter":  b.Adapter.Name(),
				"artifact": resp.Artifact.ID,
			}
			if resp.Usage != nil {
				metadata["prompt_tokens"] = strconv.Itoa(resp.Usage.PromptTokens)
				metadata["completion_tokens"] = strconv.Itoa(resp.Usage.CompletionTokens)
			}

			results[i] = &ensemble.ModelResponse{
				Model:      b.ID(),
				Content:    resp.Artifact.Content,
				Confidence: confidence,
				Timestamp:  resp.Artifact.CreatedAt,
				Metadata:   metadata,
			}
			return nil
		})
	}

	// Workers never return errors; failed backends are simply dropped.
	_ = g.Wait()

	responses := make([]ensemble.ModelResponse, 0, len(backends))
	for _, r := range results {
		if r != nil {
			responses = append(responses, *r)
		}
	}
	return responses
}
