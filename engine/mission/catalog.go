package mission

import (
	"errors"
	"fmt"
	"math"

	facetx "github.com/stepmatch/onboarding/engine/facet"
)

var (
	ErrUnknownMission = errors.New("unknown mission")
	ErrBadCatalog     = errors.New("invalid mission catalog")
)

// NamespaceCore holds the mission-independent intake facets; every
// other namespace is a role name.
const NamespaceCore = "core"

// FacetGroup is an ordered set of facet ids under one namespace.
type FacetGroup struct {
	Namespace string   `json:"namespace"`
	FacetIDs  []string `json:"facet_ids"`
}

// PlanEntry assigns an ask-order priority to a facet; lower is asked
// sooner. Facets absent from a mission's plan sort last.
type PlanEntry struct {
	FacetID  string `json:"facet_id"`
	Priority int    `json:"priority"`
}

// Mission is a selectable objective. Immutable after catalog load.
type Mission struct {
	ID               string       `json:"id"`
	Name             string       `json:"name"`
	RoleCapabilities []string     `json:"role_capabilities,omitempty"`
	Required         []FacetGroup `json:"required,omitempty"`
	Optional         []FacetGroup `json:"optional,omitempty"`
	Plan             []PlanEntry  `json:"plan,omitempty"`
}

// RoleFacetIDs is the union, in mission-declared order, of the
// required facets for every namespace implied by the mission's role
// capabilities plus the acting role (the mission id itself). The core
// namespace belongs to the core phase and is excluded.
func (m *Mission) RoleFacetIDs() []string {
	return m.unionFor(m.Required)
}

// RoleOptionalFacetIDs mirrors RoleFacetIDs over the optional groups.
func (m *Mission) RoleOptionalFacetIDs() []string {
	return m.unionFor(m.Optional)
}

func (m *Mission) unionFor(groups []FacetGroup) []string {
	relevant := make(map[string]struct{}, len(m.RoleCapabilities)+1)
	relevant[m.ID] = struct{}{}
	for _, role := range m.RoleCapabilities {
		relevant[role] = struct{}{}
	}

	seen := make(map[string]struct{})
	out := make([]string, 0, 4)
	for _, group := range groups {
		if group.Namespace == NamespaceCore {
			continue
		}
		if _, ok := relevant[group.Namespace]; !ok {
			continue
		}
		for _, id := range group.FacetIDs {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}

// PlanPriority returns the mission's ask priority for a facet;
// math.MaxInt means "not in the plan, ask last".
func (m *Mission) PlanPriority(facetID string) int {
	if m == nil {
		return math.MaxInt
	}
	for _, entry := range m.Plan {
		if entry.FacetID == facetID {
			return entry.Priority
		}
	}
	return math.MaxInt
}

// Catalog is the static mission lookup table.
type Catalog struct {
	missions map[string]*Mission
	order    []string
}

func NewCatalog(registry *facetx.Registry, missions []Mission) (*Catalog, error) {
	if registry == nil {
		return nil, fmt.Errorf("%w: registry is required", ErrBadCatalog)
	}

	c := &Catalog{
		missions: make(map[string]*Mission, len(missions)),
		order:    make([]string, 0, len(missions)),
	}
	for i := range missions {
		m := missions[i]
		if m.ID == "" {
			return nil, fmt.Errorf("%w: empty mission id", ErrBadCatalog)
		}
		if _, ok := c.missions[m.ID]; ok {
			return nil, fmt.Errorf("%w: duplicate mission id=%s", ErrBadCatalog, m.ID)
		}
		if err := checkFacetRefs(registry, &m); err != nil {
			return nil, err
		}
		c.missions[m.ID] = &m
		c.order = append(c.order, m.ID)
	}
	return c, nil
}

func MustNewCatalog(registry *facetx.Registry, missions []Mission) *Catalog {
	c, err := NewCatalog(registry, missions)
	if err != nil {
		panic(err)
	}
	return c
}

func checkFacetRefs(registry *facetx.Registry, m *Mission) error {
	groups := make([]FacetGroup, 0, len(m.Required)+len(m.Optional))
	groups = append(groups, m.Required...)
	groups = append(groups, m.Optional...)
	for _, group := range groups {
		for _, id := range group.FacetIDs {
			if _, ok := registry.Lookup(id); !ok {
				return fmt.Errorf("%w: mission=%s references unknown facet=%s", ErrBadCatalog, m.ID, id)
			}
		}
	}
	for _, entry := range m.Plan {
		if _, ok := registry.Lookup(entry.FacetID); !ok {
			return fmt.Errorf("%w: mission=%s plan references unknown facet=%s", ErrBadCatalog, m.ID, entry.FacetID)
		}
	}
	return nil
}

// Lookup returns a mission by id.
func (c *Catalog) Lookup(id string) (*Mission, error) {
	if c == nil {
		return nil, fmt.Errorf("%w: nil catalog", ErrUnknownMission)
	}
	m, ok := c.missions[id]
	if !ok {
		return nil, fmt.Errorf("%w: mission=%s", ErrUnknownMission, id)
	}
	return m, nil
}

// IDs returns mission ids in declaration order.
func (c *Catalog) IDs() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// Mission ids of the built-in catalog.
const (
	MissionTutor   = "tutor"
	MissionPartner = "partner"
	MissionSocial  = "social"
)

// Default is the built-in mission catalog for the dance-tutoring
// intake flow.
func Default(registry *facetx.Registry) *Catalog {
	return MustNewCatalog(registry, []Mission{
		{
			ID:               MissionTutor,
			Name:             "Offer tutoring",
			RoleCapabilities: []string{"teacher"},
			Required: []FacetGroup{
				{Namespace: NamespaceCore, FacetIDs: []string{facetx.FacetLocation, facetx.FacetGender, facetx.FacetCommsPref}},
				{Namespace: MissionTutor, FacetIDs: []string{facetx.FacetStep, facetx.FacetBudget}},
				{Namespace: "teacher", FacetIDs: []string{facetx.FacetStepsTaught, facetx.FacetSpecialties}},
			},
			Optional: []FacetGroup{
				{Namespace: MissionTutor, FacetIDs: []string{facetx.FacetExperience, facetx.FacetAvail}},
			},
			Plan: []PlanEntry{
				{FacetID: facetx.FacetStep, Priority: 10},
				{FacetID: facetx.FacetStepsTaught, Priority: 20},
				{FacetID: facetx.FacetSpecialties, Priority: 30},
				{FacetID: facetx.FacetBudget, Priority: 40},
				{FacetID: facetx.FacetAvail, Priority: 50},
			},
		},
		{
			ID:               MissionPartner,
			Name:             "Find a practice partner",
			RoleCapabilities: []string{"dancer"},
			Required: []FacetGroup{
				{Namespace: NamespaceCore, FacetIDs: []string{facetx.FacetLocation, facetx.FacetGender, facetx.FacetCommsPref}},
				{Namespace: MissionPartner, FacetIDs: []string{facetx.FacetStep, facetx.FacetExperience}},
				{Namespace: "dancer", FacetIDs: []string{facetx.FacetAvail}},
			},
			Optional: []FacetGroup{
				{Namespace: "dancer", FacetIDs: []string{facetx.FacetSpecialties}},
			},
			Plan: []PlanEntry{
				{FacetID: facetx.FacetStep, Priority: 10},
				{FacetID: facetx.FacetExperience, Priority: 20},
				{FacetID: facetx.FacetAvail, Priority: 30},
			},
		},
		{
			ID:               MissionSocial,
			Name:             "Join socials",
			RoleCapabilities: []string{"dancer"},
			Required: []FacetGroup{
				{Namespace: NamespaceCore, FacetIDs: []string{facetx.FacetLocation, facetx.FacetGender, facetx.FacetCommsPref}},
				{Namespace: MissionSocial, FacetIDs: []string{facetx.FacetAvail}},
			},
			Optional: []FacetGroup{
				{Namespace: MissionSocial, FacetIDs: []string{facetx.FacetStep}},
			},
			Plan: []PlanEntry{
				{FacetID: facetx.FacetAvail, Priority: 10},
			},
		},
	})
}
