package facet

import (
	"errors"
	"math"
	"testing"
)

func TestDefaultRegistryLoads(t *testing.T) {
	t.Parallel()

	r := Default()
	if got := r.RequiredIDs(); len(got) != 3 {
		t.Fatalf("RequiredIDs() = %v, want 3 core facets", got)
	}
	if _, ok := r.Lookup(FacetBudget); !ok {
		t.Fatalf("Lookup(%s) missing", FacetBudget)
	}
}

func TestNewRegistryRejectsDependencyCycle(t *testing.T) {
	t.Parallel()

	_, err := NewRegistry([]Definition{
		{ID: "a", Kind: KindEnum, Allowed: []string{"x"}, DependsOn: []string{"b"}},
		{ID: "b", Kind: KindEnum, Allowed: []string{"x"}, DependsOn: []string{"c"}},
		{ID: "c", Kind: KindEnum, Allowed: []string{"x"}, DependsOn: []string{"a"}},
	})
	if !errors.Is(err, ErrDependencyCycle) {
		t.Fatalf("NewRegistry() error = %v, want ErrDependencyCycle", err)
	}
}

func TestNewRegistryRejectsSelfDependency(t *testing.T) {
	t.Parallel()

	_, err := NewRegistry([]Definition{
		{ID: "a", Kind: KindEnum, Allowed: []string{"x"}, DependsOn: []string{"a"}},
	})
	if !errors.Is(err, ErrDependencyCycle) {
		t.Fatalf("NewRegistry() error = %v, want ErrDependencyCycle", err)
	}
}

func TestNewRegistryRejectsUnknownDependency(t *testing.T) {
	t.Parallel()

	_, err := NewRegistry([]Definition{
		{ID: "a", Kind: KindEnum, Allowed: []string{"x"}, DependsOn: []string{"ghost"}},
	})
	if !errors.Is(err, ErrBadDefinition) {
		t.Fatalf("NewRegistry() error = %v, want ErrBadDefinition", err)
	}
}

func TestNewRegistryRejectsBandWithoutCatchAll(t *testing.T) {
	t.Parallel()

	_, err := NewRegistry([]Definition{
		{ID: "price", Kind: KindBand, Bands: []Band{
			{UpperBound: 10, Label: "low"},
			{UpperBound: 20, Label: "high"},
		}},
	})
	if !errors.Is(err, ErrBadDefinition) {
		t.Fatalf("NewRegistry() error = %v, want ErrBadDefinition", err)
	}
}

func TestNewRegistryRejectsUnsortedBands(t *testing.T) {
	t.Parallel()

	_, err := NewRegistry([]Definition{
		{ID: "price", Kind: KindBand, Bands: []Band{
			{UpperBound: 60, Label: "$$"},
			{UpperBound: 30, Label: "$"},
			{UpperBound: math.Inf(1), Label: "$$$"},
		}},
	})
	if !errors.Is(err, ErrBadDefinition) {
		t.Fatalf("NewRegistry() error = %v, want ErrBadDefinition", err)
	}
}

func TestOrderIndexFollowsDeclaration(t *testing.T) {
	t.Parallel()

	r := Default()
	if r.OrderIndex(FacetLocation) != 0 {
		t.Fatalf("OrderIndex(location) = %d, want 0", r.OrderIndex(FacetLocation))
	}
	if r.OrderIndex("ghost") != len(r.Order()) {
		t.Fatalf("OrderIndex(ghost) = %d, want %d", r.OrderIndex("ghost"), len(r.Order()))
	}
}
