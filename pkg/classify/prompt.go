package classify

import (
	"fmt"
	"sort"
	"strings"

	"github.com/meridianhq/chorus/pkg/agent"
)

func buildPrompt(query string, queryContext map[string]string) string {
	var sb strings.Builder
	sb.WriteString("You are a query classifier. Analyze the user query and extract structure.\n")
	sb.WriteString("Return ONLY JSON: {\"intent\":\"...\",\"entities\":[...],\"type\":\"...\",\"keywords\":[...]}.\n")
	sb.WriteString(fmt.Sprintf("type must be one of: %s.\n\n", strings.Join(typeNames(), ", ")))
	sb.WriteString("User query:\n")
	sb.WriteString(query)

	if len(queryContext) > 0 {
		sb.WriteString("\n\nContext:\n")
		keys := make([]string, 0, len(queryContext))
		for k := range queryContext {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			sb.WriteString(fmt.Sprintf("- %s: %s\n", k, queryContext[k]))
		}
	}

	return sb.String()
}

func typeNames() []string {
	types := []agent.Type{
		agent.TypeAlgorithmic, agent.TypeIntelligence, agent.TypeFramework,
		agent.TypePage, agent.TypeArea, agent.TypeFeature, agent.TypeComponent,
	}
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = string(t)
	}
	return names
}
