package router

// Route is the routing decision for one query.
type Route struct {
	Primary    string   `json:"primary"`
	Supporting []string `json:"supporting,omitempty"`

	// EscalateTo is set only when no agent cleared the match threshold
	// and the universal fallback was selected.
	EscalateTo string `json:"escalate_to,omitempty"`

	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

// Candidate captures one scored agent, for reasoning and debugging.
type Candidate struct {
	AgentID    string  `json:"agent_id"`
	Confidence float64 `json:"confidence"`
	Keyword    int     `json:"keyword_matches"`
	Capability int     `json:"capability_matches"`
	TypeMatch  bool    `json:"type_match"`
}
