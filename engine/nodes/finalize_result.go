package onboardnode

import (
	"fmt"

	contractx "github.com/stepmatch/onboarding/engine/contract"
)

func FinalizeResult(in *GraphState) (GraphOutput, error) {
	if in == nil || in.Profile == nil {
		return GraphOutput{}, fmt.Errorf("%w: graph profile is nil", contractx.ErrValidation)
	}

	return GraphOutput{
		Result: contractx.TurnResult{
			Profile:         in.Profile,
			Phase:           in.Profile.CurrentPhase,
			PhaseChanged:    in.PhaseChanged,
			NextFacetID:     in.NextFacetID,
			AwaitingMission: in.AwaitingMission,
			Ready:           in.Ready,
			Rejected:        in.Rejected,
		},
	}, nil
}
