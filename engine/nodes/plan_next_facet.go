package onboardnode

import (
	"fmt"

	contractx "github.com/stepmatch/onboarding/engine/contract"
	facetx "github.com/stepmatch/onboarding/engine/facet"
	missionx "github.com/stepmatch/onboarding/engine/mission"
	plannerx "github.com/stepmatch/onboarding/engine/planner"
	profilex "github.com/stepmatch/onboarding/engine/profile"
)

func PlanNextFacet(
	in *GraphState,
	registry *facetx.Registry,
	catalog *missionx.Catalog,
) (*GraphState, error) {
	if in == nil || in.Profile == nil {
		return nil, fmt.Errorf("%w: graph state is incomplete", contractx.ErrValidation)
	}

	next, err := plannerx.NextFacet(in.Profile, registry, catalog)
	if err != nil {
		return nil, err
	}

	in.NextFacetID = next
	in.AwaitingMission = in.Profile.CurrentPhase == profilex.PhaseMissionSelection && in.Profile.SelectedMission == ""
	in.Ready = in.Profile.Complete()
	return in, nil
}
