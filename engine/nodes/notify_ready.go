package onboardnode

import (
	"context"
	"fmt"

	contractx "github.com/stepmatch/onboarding/engine/contract"
)

// NotifyReady hands the final snapshot to the matching collaborator on
// the turn that reaches the terminal phase. Later turns for the same
// subject do not re-notify.
func NotifyReady(ctx context.Context, in *GraphState, sink contractx.MatchSink) (*GraphState, error) {
	if in == nil || in.Profile == nil {
		return nil, fmt.Errorf("%w: graph profile is nil", contractx.ErrValidation)
	}

	if !in.Profile.Complete() || !in.PhaseChanged {
		return in, nil
	}

	snapshot := contractx.MatchSnapshot{
		SubjectID:        in.Profile.SubjectID,
		SelectedMission:  in.Profile.SelectedMission,
		RoleCapabilities: append([]string(nil), in.Profile.RoleCapabilities...),
		Facets:           in.Profile.Facets,
	}
	if err := sink.Ready(ctx, snapshot); err != nil {
		return nil, err
	}
	return in, nil
}
