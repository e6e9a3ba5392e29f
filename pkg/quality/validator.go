package quality

import (
	"regexp"
	"strings"
)

// placeholderAccuracy stands in until a real fact-checking integration
// exists; the validator makes no attempt at semantic verification.
const placeholderAccuracy = 0.8

// targetLength is the answer length at which completeness saturates.
const targetLength = 500

// Score is a heuristic quality assessment of one answer text. It is
// advisory only and never blocks or mutates the answer it describes.
type Score struct {
	Accuracy     float64  `json:"accuracy"`
	Completeness float64  `json:"completeness"`
	Coherence    float64  `json:"coherence"`
	Overall      float64  `json:"overall"`
	Issues       []string `json:"issues,omitempty"`
}

// enumerationMarker matches digit-dot, bullet, or hyphen list items at the
// start of a line.
var enumerationMarker = regexp.MustCompile(`(?m)^\s*(\d+[.)]|[-*•])\s+`)

// Validate scores an answer on completeness, coherence, and a placeholder
// accuracy axis.
func Validate(answer string) *Score {
	s := &Score{Accuracy: placeholderAccuracy}

	s.Completeness = float64(len(answer)) / targetLength
	if s.Completeness > 1 {
		s.Completeness = 1
	}

	if strings.Contains(answer, "\n\n") {
		s.Coherence += 0.5
	}
	if enumerationMarker.MatchString(answer) {
		s.Coherence += 0.5
	}

	s.Overall = (s.Accuracy + s.Completeness + s.Coherence) / 3

	if s.Completeness < 0.3 {
		s.Issues = append(s.Issues, "answer too brief; may be missing relevant detail")
	}
	if s.Coherence < 0.5 {
		s.Issues = append(s.Issues, "answer lacks structure; consider paragraphs or list items")
	}

	return s
}
