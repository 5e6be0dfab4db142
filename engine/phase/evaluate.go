package phase

import (
	"errors"
	"fmt"

	facetx "github.com/stepmatch/onboarding/engine/facet"
	profilex "github.com/stepmatch/onboarding/engine/profile"
)

var (
	// ErrMissingMission marks role-facets being reached without a
	// selected mission. That path cannot happen through the documented
	// transitions; treat it as a programming error, not user input.
	ErrMissingMission = errors.New("role facets entered without a selected mission")
)

// Thresholds per phase. The overrides ratio is pinned at 0.5 on
// purpose: the phase is always advanceable and never blocking, and
// the ratio value carries no meaning beyond that.
const (
	coreThreshold      = 0.75
	selectionThreshold = 1.0
	roleThreshold      = 1.0
	overridesThreshold = 0.5
	overridesRatio     = 0.5
)

// Evaluation is the completion verdict for a phase. Satisfied is the
// authoritative signal; Ratio alone must not be interpreted.
type Evaluation struct {
	Ratio     float64 `json:"ratio"`
	Satisfied bool    `json:"satisfied"`
}

// Evaluate computes the completion of the profile's current phase.
// Pure: same profile, same verdict.
func Evaluate(p *profilex.Profile, registry *facetx.Registry) (Evaluation, error) {
	if p == nil {
		return Evaluation{}, profilex.ErrNilProfile
	}

	switch p.CurrentPhase {
	case profilex.PhaseCoreFacets:
		return facetRatio(p, registry.RequiredIDs(), coreThreshold), nil
	case profilex.PhaseMissionSelection:
		if p.SelectedMission != "" {
			return Evaluation{Ratio: 1.0, Satisfied: true}, nil
		}
		return Evaluation{Ratio: 0.0, Satisfied: false}, nil
	case profilex.PhaseRoleFacets:
		// RoleRequired is the cached mission resolution; before it is
		// resolved the set is empty and the ratio is vacuously 1.0.
		return facetRatio(p, p.RoleRequired, roleThreshold), nil
	case profilex.PhaseMissionOverrides:
		return Evaluation{Ratio: overridesRatio, Satisfied: overridesRatio >= overridesThreshold}, nil
	case profilex.PhaseComplete:
		return Evaluation{Ratio: 1.0, Satisfied: false}, nil
	default:
		return Evaluation{}, fmt.Errorf("%w: %s", profilex.ErrInvalidPhase, p.CurrentPhase)
	}
}

func facetRatio(p *profilex.Profile, required []string, threshold float64) Evaluation {
	if len(required) == 0 {
		return Evaluation{Ratio: 1.0, Satisfied: 1.0 >= threshold}
	}
	have := 0
	for _, id := range required {
		if p.HasFacet(id) {
			have++
		}
	}
	ratio := float64(have) / float64(len(required))
	return Evaluation{Ratio: ratio, Satisfied: ratio >= threshold}
}
