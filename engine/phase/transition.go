package phase

import (
	"fmt"
	"time"

	facetx "github.com/stepmatch/onboarding/engine/facet"
	missionx "github.com/stepmatch/onboarding/engine/mission"
	profilex "github.com/stepmatch/onboarding/engine/profile"
)

// Advance fires at most one forward transition: if the current phase
// evaluates satisfied, it is appended to the history and CurrentPhase
// moves to its successor. Entering role-facets resolves and caches the
// mission's role requirement sets. One step per turn keeps every phase
// observable for at least one question-planning pass.
func Advance(
	p *profilex.Profile,
	registry *facetx.Registry,
	catalog *missionx.Catalog,
	now time.Time,
) (bool, error) {
	if p == nil {
		return false, profilex.ErrNilProfile
	}
	if p.Complete() {
		return false, nil
	}

	eval, err := Evaluate(p, registry)
	if err != nil {
		return false, err
	}
	if !eval.Satisfied {
		return false, nil
	}

	completed := p.CurrentPhase
	if err := p.CompletePhase(completed, now); err != nil {
		return false, err
	}

	if p.CurrentPhase == profilex.PhaseRoleFacets {
		if err := ResolveRoleRequirements(p, catalog); err != nil {
			return false, err
		}
	}

	return true, nil
}

// ResolveRoleRequirements derives the role-facet sets from the
// selected mission and caches them on the profile. The cache makes
// later completion checks stable even if the catalog changes; it is
// written once per mission selection.
func ResolveRoleRequirements(p *profilex.Profile, catalog *missionx.Catalog) error {
	if p == nil {
		return profilex.ErrNilProfile
	}
	if p.SelectedMission == "" {
		return fmt.Errorf("%w: subject=%s", ErrMissingMission, p.SubjectID)
	}
	if p.RoleResolved {
		return nil
	}

	m, err := catalog.Lookup(p.SelectedMission)
	if err != nil {
		return err
	}

	p.CacheRoleRequirements(m.RoleFacetIDs(), m.RoleOptionalFacetIDs(), m.RoleCapabilities)
	return nil
}
