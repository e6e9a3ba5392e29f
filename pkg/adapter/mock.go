package adapter

import (
	"context"
	"fmt"
	"time"

	"github.com/meridianhq/chorus/pkg/artifact"
)

// MockAdapter returns deterministic responses for local runs and tests.
type MockAdapter struct {
	name            string
	responses       map[string]string
	defaultResponse string

	// echoPrompt appends the prompt to the default response. Set only when
	// no default was provided, so scripted defaults come back verbatim and
	// stay parseable by structured-output callers.
	echoPrompt bool

	Usage      *Usage
	Confidence *float64

	// Err makes every Generate call fail.
	Err error

	// Delay is applied before responding; combined with a short call
	// timeout it simulates a slow backend.
	Delay time.Duration
}

// NewMockAdapter creates a mock adapter with a default response.
func NewMockAdapter() *MockAdapter {
	return &MockAdapter{
		name:            "mock",
		responses:       make(map[string]string),
		defaultResponse: "mock response:",
		echoPrompt:      true,
	}
}

// NewMockAdapterWithResponses creates a mock adapter with predefined responses.
func NewMockAdapterWithResponses(responses map[string]string, defaultResponse string) *MockAdapter {
	m := &MockAdapter{name: "mock", responses: responses, defaultResponse: defaultResponse}
	if m.defaultResponse == "" {
		m.defaultResponse = "mock response:"
		m.echoPrompt = true
	}
	return m
}

// NewNamedMockAdapter creates a mock adapter with a custom identifier, so a
// test can stand up several distinct "backends".
func NewNamedMockAdapter(name, defaultResponse string) *MockAdapter {
	m := NewMockAdapterWithResponses(nil, defaultResponse)
	m.name = name
	return m
}

// SetResponse scripts the response for an exact prompt.
func (a *MockAdapter) SetResponse(prompt, response string) {
	if a.responses == nil {
		a.responses = make(map[string]string)
	}
	a.responses[prompt] = response
}

// Name returns the adapter identifier.
func (a *MockAdapter) Name() string {
	return a.name
}

// Models returns the list of supported mock models.
func (a *MockAdapter) Models() []string {
	return []string{"mock-1"}
}

// Generate returns a deterministic response for the prompt.
func (a *MockAdapter) Generate(ctx context.Context, model string, prompt string) (*Response, error) {
	if a.Delay > 0 {
		select {
		case <-time.After(a.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if a.Err != nil {
		return nil, a.Err
	}
	if model == "" {
		model = "mock-1"
	}

	content, ok := a.responses[prompt]
	if !ok {
		content = a.defaultResponse
		if a.echoPrompt {
			content = fmt.Sprintf("%s\n%s", a.defaultResponse, prompt)
		}
	}
	art := artifact.New(content, a.Name(), model, prompt)
	return &Response{Artifact: art, Usage: a.Usage, Confidence: a.Confidence}, nil
}
