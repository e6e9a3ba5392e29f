package agent

// Type classifies an agent by the kind of work it handles. The query
// classifier emits the same enumeration, so router type matching is an
// exact comparison rather than a free-string one.
type Type string

const (
	TypeAlgorithmic  Type = "algorithmic"
	TypeIntelligence Type = "intelligence"
	TypeFramework    Type = "framework"
	TypePage         Type = "page"
	TypeArea         Type = "area"
	TypeFeature      Type = "feature"
	TypeComponent    Type = "component"
	TypeUniversal    Type = "universal"

	// TypeGeneral is emitted only by the classifier fallback; no agent is
	// registered with it, so it never contributes a type-match score.
	TypeGeneral Type = "general"
)

// ParseType maps a string onto a known Type, defaulting to general.
func ParseType(s string) Type {
	switch Type(s) {
	case TypeAlgorithmic, TypeIntelligence, TypeFramework, TypePage,
		TypeArea, TypeFeature, TypeComponent, TypeUniversal:
		return Type(s)
	default:
		return TypeGeneral
	}
}

// Descriptor identifies a routable handler.
type Descriptor struct {
	ID           string   `yaml:"id" json:"id"`
	Name         string   `yaml:"name" json:"name"`
	Type         Type     `yaml:"type" json:"type"`
	Capabilities []string `yaml:"capabilities" json:"capabilities"`
	Keywords     []string `yaml:"keywords" json:"keywords"`

	// Layers identifies which architectural layer(s) the agent belongs
	// to. Reporting only; routing never consults it.
	Layers []int `yaml:"layers,omitempty" json:"layers,omitempty"`
}
