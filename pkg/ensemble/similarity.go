package ensemble

import "strings"

// jaccardSimilarity computes the Jaccard overlap of the lowercase word
// sets of two texts.
func jaccardSimilarity(a, b string) float64 {
	setA := wordSet(a)
	setB := wordSet(b)
	if len(setA) == 0 && len(setB) == 0 {
		return 1
	}
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}

	intersection := 0
	for w := range setA {
		if _, ok := setB[w]; ok {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	return float64(intersection) / float64(union)
}

// avgPairwiseSimilarity averages Jaccard similarity over all unordered
// pairs of response contents. Fewer than two responses yields 1.
func avgPairwiseSimilarity(responses []ModelResponse) float64 {
	if len(responses) < 2 {
		return 1
	}

	var sum float64
	pairs := 0
	for i := 0; i < len(responses); i++ {
		for j := i + 1; j < len(responses); j++ {
			sum += jaccardSimilarity(responses[i].Content, responses[j].Content)
			pairs++
		}
	}
	return sum / float64(pairs)
}

func wordSet(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range strings.Fields(strings.ToLower(text)) {
		set[w] = struct{}{}
	}
	return set
}
