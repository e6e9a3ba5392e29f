package ensemble

import (
	"context"
	"fmt"
	"math"
	"testing"

	"github.com/meridianhq/chorus/pkg/adapter"
)

func respond(model, content string, confidence float64) ModelResponse {
	return ModelResponse{Model: model, Content: content, Confidence: confidence}
}

func TestSynthesizeEmptySet(t *testing.T) {
	s := NewSynthesizer(nil, "")
	answer := s.Synthesize(context.Background(), "q", nil, MethodAuto)

	if answer.Confidence != 0 {
		t.Fatalf("expected confidence 0, got %.2f", answer.Confidence)
	}
	if answer.Method != MethodSingle {
		t.Fatalf("expected single, got %s", answer.Method)
	}
	if len(answer.Models) != 0 {
		t.Fatalf("expected no models")
	}
	if answer.Content == "" {
		t.Fatalf("expected explanatory placeholder content")
	}
}

func TestSynthesizeSinglePassThrough(t *testing.T) {
	s := NewSynthesizer(nil, "")

	for _, method := range []Method{MethodAuto, MethodMajorityVote, MethodWeightedVote, MethodLLMSynthesis} {
		answer := s.Synthesize(context.Background(), "q", []ModelResponse{
			respond("anthropic", "The answer is 42.", 0.8),
		}, method)

		if answer.Method != MethodSingle {
			t.Fatalf("method %s: expected single, got %s", method, answer.Method)
		}
		if answer.Content != "The answer is 42." {
			t.Fatalf("content must pass through unmodified, got %q", answer.Content)
		}
		if answer.Confidence != 0.8 {
			t.Fatalf("expected confidence 0.8, got %.2f", answer.Confidence)
		}
	}
}

func TestMajorityVoteUnanimous(t *testing.T) {
	s := NewSynthesizer(nil, "")
	answer := s.Synthesize(context.Background(), "q", []ModelResponse{
		respond("a", "Paris", 0.9),
		respond("b", "  paris ", 0.5),
		respond("c", "PARIS", 0.7),
	}, MethodMajorityVote)

	if answer.Method != MethodMajorityVote {
		t.Fatalf("expected majority_vote, got %s", answer.Method)
	}
	if answer.Confidence != 1.0 {
		t.Fatalf("expected confidence 1.0, got %.2f", answer.Confidence)
	}
	if len(answer.Models) != 3 {
		t.Fatalf("expected 3 contributing models")
	}
}

func TestMajorityVotePicksLargestGroup(t *testing.T) {
	s := NewSynthesizer(nil, "")
	answer := s.Synthesize(context.Background(), "q", []ModelResponse{
		respond("a", "London", 0.9),
		respond("b", "Paris", 0.5),
		respond("c", "paris", 0.7),
	}, MethodMajorityVote)

	if answer.Content != "Paris" {
		t.Fatalf("expected Paris (first of winning group), got %q", answer.Content)
	}
	want := 2.0 / 3.0
	if math.Abs(answer.Confidence-want) > 1e-9 {
		t.Fatalf("expected confidence %.4f, got %.4f", want, answer.Confidence)
	}
}

func TestMajorityVoteTieBreaksFirstSeen(t *testing.T) {
	s := NewSynthesizer(nil, "")
	answer := s.Synthesize(context.Background(), "q", []ModelResponse{
		respond("a", "London", 0.2),
		respond("b", "Paris", 0.9),
	}, MethodMajorityVote)

	if answer.Content != "London" {
		t.Fatalf("expected first-seen winner on tie, got %q", answer.Content)
	}
}

func TestMajorityVoteDeterministic(t *testing.T) {
	s := NewSynthesizer(nil, "")
	responses := []ModelResponse{
		respond("a", "alpha", 0.1),
		respond("b", "beta", 0.2),
		respond("c", "alpha", 0.3),
		respond("d", "beta", 0.4),
	}
	first := s.Synthesize(context.Background(), "q", responses, MethodMajorityVote)
	for i := 0; i < 20; i++ {
		again := s.Synthesize(context.Background(), "q", responses, MethodMajorityVote)
		if again.Content != first.Content || again.Confidence != first.Confidence {
			t.Fatalf("majority vote not deterministic: %q vs %q", again.Content, first.Content)
		}
	}
}

func TestWeightedVoteWeightsSumToOne(t *testing.T) {
	responses := []ModelResponse{
		respond("a", "x", 0.9),
		respond("b", "y", 0.3),
		respond("c", "z", 0.6),
	}
	weights := Weights(responses)

	var sum float64
	for _, w := range weights {
		sum += w
	}
	if math.Abs(sum-1.0) > 1e-6 {
		t.Fatalf("weights must sum to 1, got %.9f", sum)
	}
}

func TestWeightedVotePicksHighestWeight(t *testing.T) {
	s := NewSynthesizer(nil, "")
	answer := s.Synthesize(context.Background(), "q", []ModelResponse{
		respond("a", "low", 0.2),
		respond("b", "high", 0.9),
		respond("c", "mid", 0.4),
	}, MethodWeightedVote)

	if answer.Content != "high" {
		t.Fatalf("expected highest-confidence response, got %q", answer.Content)
	}
	want := 0.9 / (0.2 + 0.9 + 0.4)
	if math.Abs(answer.Confidence-want) > 1e-9 {
		t.Fatalf("expected confidence %.4f, got %.4f", want, answer.Confidence)
	}
}

func TestWeightedVoteMissingConfidenceDefaultsToOne(t *testing.T) {
	weights := Weights([]ModelResponse{
		respond("a", "x", 0),
		respond("b", "y", 0.5),
	})

	// 1.0 and 0.5 normalize to 2/3 and 1/3.
	if math.Abs(weights[0]-2.0/3.0) > 1e-9 {
		t.Fatalf("expected default weight 1.0 before normalization, got %.4f", weights[0])
	}
}

func TestLLMSynthesisHighAgreement(t *testing.T) {
	delegate := adapter.NewMockAdapterWithResponses(nil, "The community event starts at noon in the main hall.")
	s := NewSynthesizer(delegate, "mock-1")

	answer := s.Synthesize(context.Background(), "when does the event start?", []ModelResponse{
		respond("a", "The event starts at noon in the main hall.", 0.8),
		respond("b", "The event starts at noon in the main hall!", 0.7),
		respond("c", "The event starts at noon in the main hall.", 0.9),
	}, MethodLLMSynthesis)

	if answer.Method != MethodLLMSynthesis {
		t.Fatalf("expected llm_synthesis, got %s", answer.Method)
	}
	if answer.Confidence < 0.9 {
		t.Fatalf("expected confidence >= 0.9 for near-identical responses, got %.3f", answer.Confidence)
	}
	if answer.Confidence > 0.95 {
		t.Fatalf("confidence must cap at 0.95, got %.3f", answer.Confidence)
	}
	if len(answer.Models) != 3 {
		t.Fatalf("expected 3 contributing models")
	}
}

func TestLLMSynthesisIsDefaultForMultipleResponses(t *testing.T) {
	delegate := adapter.NewMockAdapterWithResponses(nil, "merged")
	s := NewSynthesizer(delegate, "mock-1")

	answer := s.Synthesize(context.Background(), "q", []ModelResponse{
		respond("a", "one", 0.5),
		respond("b", "two", 0.5),
	}, MethodAuto)

	if answer.Method != MethodLLMSynthesis {
		t.Fatalf("expected llm_synthesis by default, got %s", answer.Method)
	}
}

func TestLLMSynthesisFallsBackOnDelegateError(t *testing.T) {
	delegate := adapter.NewMockAdapter()
	delegate.Err = fmt.Errorf("provider down")
	s := NewSynthesizer(delegate, "mock-1")

	answer := s.Synthesize(context.Background(), "q", []ModelResponse{
		respond("a", "one", 0.9),
		respond("b", "two", 0.1),
	}, MethodLLMSynthesis)

	if answer.Method != MethodWeightedVote {
		t.Fatalf("expected weighted_vote fallback, got %s", answer.Method)
	}
	if answer.Content != "one" {
		t.Fatalf("expected weighted winner, got %q", answer.Content)
	}
}

func TestAllMethodsConfidenceInRange(t *testing.T) {
	delegate := adapter.NewMockAdapterWithResponses(nil, "merged")
	s := NewSynthesizer(delegate, "mock-1")
	responses := []ModelResponse{
		respond("a", "alpha beta", 0.4),
		respond("b", "gamma delta", 0.6),
		respond("c", "alpha beta", 0.8),
	}

	for _, method := range []Method{MethodMajorityVote, MethodWeightedVote, MethodLLMSynthesis} {
		answer := s.Synthesize(context.Background(), "q", responses, method)
		if answer.Confidence < 0 || answer.Confidence > 1 {
			t.Fatalf("method %s: confidence out of range: %.3f", method, answer.Confidence)
		}
		if len(answer.Models) == 0 {
			t.Fatalf("method %s: models must be non-empty", method)
		}
	}
}
