package agent

import "testing"

func testDescriptors() []Descriptor {
	return []Descriptor{
		{ID: "scheduler", Name: "Scheduler", Type: TypeFeature, Keywords: []string{"schedule", "calendar"}},
		{ID: "search", Name: "Search", Type: TypeAlgorithmic, Keywords: []string{"search", "find"}},
		{ID: "assistant", Name: "Assistant", Type: TypeUniversal},
	}
}

func TestNewRegistryRequiresUniversal(t *testing.T) {
	_, err := NewRegistry([]Descriptor{
		{ID: "scheduler", Type: TypeFeature},
	})
	if err == nil {
		t.Fatalf("expected error without universal agent")
	}
}

func TestNewRegistryRejectsDuplicateUniversal(t *testing.T) {
	_, err := NewRegistry([]Descriptor{
		{ID: "a", Type: TypeUniversal},
		{ID: "b", Type: TypeUniversal},
	})
	if err == nil {
		t.Fatalf("expected error with two universal agents")
	}
}

func TestRegisterOverwritesByID(t *testing.T) {
	r, err := NewRegistry(testDescriptors())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := r.Register(Descriptor{ID: "scheduler", Name: "Scheduler v2", Type: TypeFeature}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	d, ok := r.Get("scheduler")
	if !ok {
		t.Fatalf("expected scheduler to exist")
	}
	if d.Name != "Scheduler v2" {
		t.Fatalf("expected overwrite, got %q", d.Name)
	}
	if r.Count() != 3 {
		t.Fatalf("expected 3 agents, got %d", r.Count())
	}

	// Overwriting keeps the original registration slot.
	if r.All()[0].ID != "scheduler" {
		t.Fatalf("expected scheduler first, got %s", r.All()[0].ID)
	}
}

func TestRegisterRejectsSecondUniversal(t *testing.T) {
	r, err := NewRegistry(testDescriptors())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := r.Register(Descriptor{ID: "other", Type: TypeUniversal}); err == nil {
		t.Fatalf("expected error registering second universal agent")
	}
}

func TestGetMissing(t *testing.T) {
	r, err := NewRegistry(testDescriptors())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := r.Get("nope"); ok {
		t.Fatalf("expected not found")
	}
}

func TestListByType(t *testing.T) {
	r, err := NewRegistry(testDescriptors())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	features := r.ListByType(TypeFeature)
	if len(features) != 1 || features[0].ID != "scheduler" {
		t.Fatalf("unexpected features: %+v", features)
	}
	if len(r.ListByType(TypePage)) != 0 {
		t.Fatalf("expected no page agents")
	}
}

func TestUniversal(t *testing.T) {
	r, err := NewRegistry(testDescriptors())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Universal().ID != "assistant" {
		t.Fatalf("expected assistant, got %s", r.Universal().ID)
	}
}

func TestParseType(t *testing.T) {
	if ParseType("feature") != TypeFeature {
		t.Fatalf("expected feature")
	}
	if ParseType("nonsense") != TypeGeneral {
		t.Fatalf("expected general fallback")
	}
}
