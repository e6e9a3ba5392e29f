package ensemble

import (
	"fmt"
	"strings"
)

func buildSynthesisPrompt(query string, responses []ModelResponse) string {
	var sb strings.Builder
	sb.WriteString("Multiple AI models answered the same query. Synthesize their responses into one answer.\n\n")
	sb.WriteString("Query:\n")
	sb.WriteString(query)
	sb.WriteString("\n\nResponses:\n")

	for i, r := range responses {
		sb.WriteString(fmt.Sprintf("\n[Response %d: %s]\n%s\n", i+1, r.Model, r.Content))
	}

	sb.WriteString(`
Instructions:
1. Identify points where the responses agree
2. Resolve contradictions between responses
3. Merge insights unique to individual responses
4. Correct factual errors where responses disagree
5. Produce one clear, well-organized answer

Return only the final answer.`)

	return sb.String()
}
