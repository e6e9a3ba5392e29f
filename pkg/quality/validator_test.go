package quality

import (
	"math"
	"strings"
	"testing"
)

func TestValidateEmptyAnswer(t *testing.T) {
	s := Validate("")

	if s.Completeness != 0 {
		t.Fatalf("expected completeness 0, got %.2f", s.Completeness)
	}
	found := false
	for _, issue := range s.Issues {
		if strings.Contains(issue, "too brief") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected brevity warning, got %v", s.Issues)
	}
}

func TestValidateCompletenessSaturates(t *testing.T) {
	long := strings.Repeat("word ", 200)
	s := Validate(long)
	if s.Completeness != 1 {
		t.Fatalf("expected completeness 1, got %.2f", s.Completeness)
	}
}

func TestValidateCompletenessLinear(t *testing.T) {
	s := Validate(strings.Repeat("a", 250))
	if math.Abs(s.Completeness-0.5) > 1e-9 {
		t.Fatalf("expected completeness 0.5, got %.3f", s.Completeness)
	}
}

func TestValidateCoherenceComponents(t *testing.T) {
	// Paragraph break only.
	s := Validate("first paragraph\n\nsecond paragraph")
	if s.Coherence != 0.5 {
		t.Fatalf("expected 0.5 for paragraph break, got %.2f", s.Coherence)
	}

	// Enumeration only.
	s = Validate("options:\n1. first\n2. second")
	if s.Coherence != 0.5 {
		t.Fatalf("expected 0.5 for enumeration, got %.2f", s.Coherence)
	}

	// Both.
	s = Validate("intro\n\n- first\n- second")
	if s.Coherence != 1 {
		t.Fatalf("expected 1.0 for both markers, got %.2f", s.Coherence)
	}
}

func TestValidateStructureWarning(t *testing.T) {
	s := Validate("one flat run-on sentence with no structure at all")
	found := false
	for _, issue := range s.Issues {
		if strings.Contains(issue, "lacks structure") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected structure warning, got %v", s.Issues)
	}
}

func TestValidateOverallIsMean(t *testing.T) {
	answer := "intro\n\n- " + strings.Repeat("detail ", 80)
	s := Validate(answer)

	want := (s.Accuracy + s.Completeness + s.Coherence) / 3
	if math.Abs(s.Overall-want) > 1e-9 {
		t.Fatalf("overall %.3f != mean %.3f", s.Overall, want)
	}
	if len(s.Issues) != 0 {
		t.Fatalf("expected no issues for a structured long answer, got %v", s.Issues)
	}
}

func TestValidateScoresInRange(t *testing.T) {
	for _, answer := range []string{"", "short", strings.Repeat("x", 2000), "a\n\nb\n- c"} {
		s := Validate(answer)
		for name, v := range map[string]float64{
			"accuracy": s.Accuracy, "completeness": s.Completeness,
			"coherence": s.Coherence, "overall": s.Overall,
		} {
			if v < 0 || v > 1 {
				t.Fatalf("%s out of range for %q: %.3f", name, answer, v)
			}
		}
	}
}
