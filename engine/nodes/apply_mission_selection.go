package onboardnode

import (
	"fmt"
	"strings"

	contractx "github.com/stepmatch/onboarding/engine/contract"
	missionx "github.com/stepmatch/onboarding/engine/mission"
	phasex "github.com/stepmatch/onboarding/engine/phase"
	profilex "github.com/stepmatch/onboarding/engine/profile"
)

// minSelectionConfidence is the floor below which a mission candidate
// from the extractor is ignored rather than applied.
const minSelectionConfidence = 0.5

// ApplyMissionSelection handles the mission candidate and the explicit
// override action. Candidates apply only while the selection phase is
// open; overrides apply any time after a mission exists and re-derive
// the cached role requirement sets.
func ApplyMissionSelection(in *GraphState, catalog *missionx.Catalog) (*GraphState, error) {
	if in == nil || in.Profile == nil {
		return nil, fmt.Errorf("%w: graph state is incomplete", contractx.ErrValidation)
	}

	if in.Input.Override != nil {
		if err := applyOverride(in, catalog, strings.TrimSpace(in.Input.Override.MissionID)); err != nil {
			return nil, err
		}
	}

	if in.Input.Mission != nil {
		applyCandidate(in, catalog, *in.Input.Mission)
	}

	return in, nil
}

func applyOverride(in *GraphState, catalog *missionx.Catalog, missionID string) error {
	p := in.Profile

	if _, err := catalog.Lookup(missionID); err != nil {
		in.Rejected = append(in.Rejected, contractx.ValidationFailure{
			RawValue: missionID,
			Reason:   contractx.ReasonUnknownMission,
			Detail:   err.Error(),
		})
		return nil
	}
	if p.SelectedMission == missionID {
		return nil
	}

	p.OverrideMission(missionID)
	p.Touch(in.Now)

	// Past the selection phase the role sets must be re-derived now;
	// the role-facets entry hook will no longer run.
	if profilex.PhaseIndex(p.CurrentPhase) >= profilex.PhaseIndex(profilex.PhaseRoleFacets) {
		if err := phasex.ResolveRoleRequirements(p, catalog); err != nil {
			return fmt.Errorf("%w: %v", contractx.ErrInternal, err)
		}
	}
	return nil
}

func applyCandidate(in *GraphState, catalog *missionx.Catalog, candidate contractx.MissionCandidate) {
	p := in.Profile
	missionID := strings.TrimSpace(candidate.MissionID)

	if p.CurrentPhase != profilex.PhaseMissionSelection || p.SelectedMission != "" {
		if p.SelectedMission == missionID {
			return
		}
		in.Rejected = append(in.Rejected, contractx.ValidationFailure{
			RawValue: missionID,
			Reason:   contractx.ReasonMissionLocked,
			Detail:   fmt.Sprintf("mission selection is not open in phase=%s", p.CurrentPhase),
		})
		return
	}

	if candidate.Confidence < minSelectionConfidence {
		in.Rejected = append(in.Rejected, contractx.ValidationFailure{
			RawValue: missionID,
			Reason:   contractx.ReasonLowConfidence,
			Detail:   fmt.Sprintf("confidence=%.2f below floor=%.2f", candidate.Confidence, minSelectionConfidence),
		})
		return
	}

	if _, err := catalog.Lookup(missionID); err != nil {
		in.Rejected = append(in.Rejected, contractx.ValidationFailure{
			RawValue: missionID,
			Reason:   contractx.ReasonUnknownMission,
			Detail:   err.Error(),
		})
		return
	}

	if err := p.SelectMission(missionID); err != nil {
		in.Rejected = append(in.Rejected, contractx.ValidationFailure{
			RawValue: missionID,
			Reason:   contractx.ReasonMissionLocked,
			Detail:   err.Error(),
		})
		return
	}
	p.Touch(in.Now)
}
