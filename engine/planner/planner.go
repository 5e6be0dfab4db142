// Package planner selects the next facet to request within a phase.
// Selection is pure and deterministic: the same profile always yields
// the same facet, which keeps retried turns under at-least-once
// delivery harmless.
package planner

import (
	"sort"

	facetx "github.com/stepmatch/onboarding/engine/facet"
	missionx "github.com/stepmatch/onboarding/engine/mission"
	profilex "github.com/stepmatch/onboarding/engine/profile"
)

// NextFacet returns the facet to ask for next, or "" when the current
// phase has nothing left to ask (the caller then drives a phase
// transition). Phases without facet questions (mission-selection,
// complete) always yield "".
func NextFacet(
	p *profilex.Profile,
	registry *facetx.Registry,
	catalog *missionx.Catalog,
) (string, error) {
	if p == nil {
		return "", profilex.ErrNilProfile
	}

	var candidates []string
	switch p.CurrentPhase {
	case profilex.PhaseCoreFacets:
		candidates = registry.RequiredIDs()
	case profilex.PhaseRoleFacets:
		candidates = append(append([]string(nil), p.RoleRequired...), p.RoleOptional...)
	case profilex.PhaseMissionOverrides:
		candidates = append([]string(nil), p.RoleOptional...)
	default:
		return "", nil
	}

	pending := make([]string, 0, len(candidates))
	seen := make(map[string]struct{}, len(candidates))
	for _, id := range candidates {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if !p.HasFacet(id) {
			pending = append(pending, id)
		}
	}
	if len(pending) == 0 {
		return "", nil
	}

	ready := readySet(p, registry, pending)
	if len(ready) == 0 {
		return "", nil
	}

	// The catalog is logically immutable, but the cached role sets may
	// outlive a mission entry; selection then falls back to registry
	// declaration order.
	var m *missionx.Mission
	if p.SelectedMission != "" {
		if found, err := catalog.Lookup(p.SelectedMission); err == nil {
			m = found
		}
	}

	sort.SliceStable(ready, func(i, j int) bool {
		pi, pj := m.PlanPriority(ready[i]), m.PlanPriority(ready[j])
		if pi != pj {
			return pi < pj
		}
		return registry.OrderIndex(ready[i]) < registry.OrderIndex(ready[j])
	})
	return ready[0], nil
}

// readySet returns the pending facets whose dependencies are answered.
// When none qualify, every remaining dependency edge points at a facet
// outside the current phase's candidate set; holding out would deadlock
// a required-set phase, so such edges stop blocking and the pending
// facets are admitted in dependency order.
func readySet(p *profilex.Profile, registry *facetx.Registry, pending []string) []string {
	satisfiable := make(map[string]struct{}, len(pending)+len(p.Facets))
	for id := range p.Facets {
		satisfiable[id] = struct{}{}
	}

	blocked := make([]string, 0, len(pending))
	ready := make([]string, 0, len(pending))
	for _, id := range pending {
		if depsMet(registry, id, satisfiable, nil) {
			ready = append(ready, id)
		} else {
			blocked = append(blocked, id)
		}
	}

	if len(ready) > 0 {
		// Direct candidates exist; blocked facets wait for their
		// dependencies to be answered.
		return ready
	}

	// Nothing is directly askable: dependencies that cannot be
	// collected this phase no longer block, and in-phase dependency
	// chains unwind shallowest-first. The registry's load-time cycle
	// check guarantees the loop terminates.
	pendingSet := make(map[string]struct{}, len(blocked))
	for _, id := range blocked {
		pendingSet[id] = struct{}{}
	}
	for changed := true; changed && len(blocked) > 0; {
		changed = false
		rest := blocked[:0]
		for _, id := range blocked {
			if depsMet(registry, id, satisfiable, pendingSet) {
				ready = append(ready, id)
				satisfiable[id] = struct{}{}
				delete(pendingSet, id)
				changed = true
			} else {
				rest = append(rest, id)
			}
		}
		blocked = rest
	}
	return ready
}

// depsMet reports whether every dependency of id is satisfiable. A
// dependency blocks when it is unanswered and either still pending in
// this phase or (outside relaxed mode, pendingSet == nil) simply
// unanswered.
func depsMet(registry *facetx.Registry, id string, satisfiable map[string]struct{}, pendingSet map[string]struct{}) bool {
	def, ok := registry.Lookup(id)
	if !ok {
		return false
	}
	for _, dep := range def.DependsOn {
		if _, met := satisfiable[dep]; met {
			continue
		}
		if pendingSet != nil {
			if _, inPhase := pendingSet[dep]; !inPhase {
				continue
			}
		}
		return false
	}
	return true
}
