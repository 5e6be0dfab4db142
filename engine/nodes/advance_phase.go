package onboardnode

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	contractx "github.com/stepmatch/onboarding/engine/contract"
	facetx "github.com/stepmatch/onboarding/engine/facet"
	missionx "github.com/stepmatch/onboarding/engine/mission"
	phasex "github.com/stepmatch/onboarding/engine/phase"
)

// AdvancePhase fires at most one forward transition per turn. A
// MissingMission here means the transition path was violated by a bug,
// not by user input; it aborts the turn as an internal error.
func AdvancePhase(
	in *GraphState,
	registry *facetx.Registry,
	catalog *missionx.Catalog,
) (*GraphState, error) {
	if in == nil || in.Profile == nil {
		return nil, fmt.Errorf("%w: graph state is incomplete", contractx.ErrValidation)
	}

	changed, err := phasex.Advance(in.Profile, registry, catalog, in.Now)
	if err != nil {
		if errors.Is(err, phasex.ErrMissingMission) {
			log.Error().
				Str("subject_id", in.Profile.SubjectID).
				Str("phase", string(in.Profile.CurrentPhase)).
				Err(err).
				Msg("phase transition invariant violated")
			return nil, fmt.Errorf("%w: %v", contractx.ErrInternal, err)
		}
		return nil, err
	}

	in.PhaseChanged = changed
	return in, nil
}
