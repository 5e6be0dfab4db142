package mission

import (
	"errors"
	"math"
	"testing"

	facetx "github.com/stepmatch/onboarding/engine/facet"
)

func TestDefaultCatalogLoads(t *testing.T) {
	t.Parallel()

	c := Default(facetx.Default())
	got := c.IDs()
	want := []string{MissionTutor, MissionPartner, MissionSocial}
	if len(got) != len(want) {
		t.Fatalf("IDs() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("IDs() = %v, want %v", got, want)
		}
	}
}

func TestRoleFacetIDsUnionsRoleNamespaces(t *testing.T) {
	t.Parallel()

	c := Default(facetx.Default())
	tutor, err := c.Lookup(MissionTutor)
	if err != nil {
		t.Fatalf("Lookup(tutor) error = %v", err)
	}

	got := tutor.RoleFacetIDs()
	want := []string{facetx.FacetStep, facetx.FacetBudget, facetx.FacetStepsTaught, facetx.FacetSpecialties}
	if len(got) != len(want) {
		t.Fatalf("RoleFacetIDs() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("RoleFacetIDs() = %v, want %v", got, want)
		}
	}
}

func TestRoleFacetIDsExcludesForeignNamespaces(t *testing.T) {
	t.Parallel()

	m := Mission{
		ID:               "host",
		RoleCapabilities: []string{"organizer"},
		Required: []FacetGroup{
			{Namespace: NamespaceCore, FacetIDs: []string{"location"}},
			{Namespace: "host", FacetIDs: []string{"step"}},
			{Namespace: "dj", FacetIDs: []string{"budget"}},
			{Namespace: "organizer", FacetIDs: []string{"availability", "step"}},
		},
	}

	got := m.RoleFacetIDs()
	want := []string{"step", "availability"}
	if len(got) != len(want) {
		t.Fatalf("RoleFacetIDs() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("RoleFacetIDs() = %v, want %v", got, want)
		}
	}
}

func TestPlanPriority(t *testing.T) {
	t.Parallel()

	c := Default(facetx.Default())
	tutor, err := c.Lookup(MissionTutor)
	if err != nil {
		t.Fatalf("Lookup(tutor) error = %v", err)
	}

	if got := tutor.PlanPriority(facetx.FacetStep); got != 10 {
		t.Fatalf("PlanPriority(step) = %d, want 10", got)
	}
	if got := tutor.PlanPriority(facetx.FacetGender); got != math.MaxInt {
		t.Fatalf("PlanPriority(gender) = %d, want MaxInt", got)
	}

	var nilMission *Mission
	if got := nilMission.PlanPriority(facetx.FacetStep); got != math.MaxInt {
		t.Fatalf("nil.PlanPriority() = %d, want MaxInt", got)
	}
}

func TestLookupUnknownMission(t *testing.T) {
	t.Parallel()

	c := Default(facetx.Default())
	if _, err := c.Lookup("conquer"); !errors.Is(err, ErrUnknownMission) {
		t.Fatalf("Lookup(conquer) error = %v, want ErrUnknownMission", err)
	}
}

func TestNewCatalogRejectsUnknownFacetRef(t *testing.T) {
	t.Parallel()

	_, err := NewCatalog(facetx.Default(), []Mission{
		{
			ID: "broken",
			Required: []FacetGroup{
				{Namespace: "broken", FacetIDs: []string{"no-such-facet"}},
			},
		},
	})
	if !errors.Is(err, ErrBadCatalog) {
		t.Fatalf("NewCatalog() error = %v, want ErrBadCatalog", err)
	}
}

func TestNewCatalogRejectsDuplicateMission(t *testing.T) {
	t.Parallel()

	_, err := NewCatalog(facetx.Default(), []Mission{
		{ID: "twin"},
		{ID: "twin"},
	})
	if !errors.Is(err, ErrBadCatalog) {
		t.Fatalf("NewCatalog() error = %v, want ErrBadCatalog", err)
	}
}
