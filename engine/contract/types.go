package contract

import (
	facetx "github.com/stepmatch/onboarding/engine/facet"
	profilex "github.com/stepmatch/onboarding/engine/profile"
)

// CandidateUpdate is one already-parsed facet candidate handed in by
// the value extractor. The engine validates it; it never parses text.
type CandidateUpdate struct {
	FacetID  string `json:"facet_id"`
	RawValue string `json:"raw_value"`
}

// MissionCandidate is a proposed mission selection with the
// extractor's confidence in it.
type MissionCandidate struct {
	MissionID  string  `json:"mission_id"`
	Confidence float64 `json:"confidence"`
}

// MissionOverride is an explicit re-selection of the mission after
// role facets have begun; it re-derives the role requirement sets but
// keeps collected facet values.
type MissionOverride struct {
	MissionID string `json:"mission_id"`
}

// Rejection reasons carried by ValidationFailure.
const (
	ReasonUnknownFacet   = "unknownFacet"
	ReasonInvalidValue   = "invalidValue"
	ReasonUnknownMission = "unknownMission"
	ReasonLowConfidence  = "lowConfidence"
	ReasonMissionLocked  = "missionLocked"
)

// ValidationFailure describes one rejected candidate. Failures are
// data, not errors: the turn still succeeds and the caller re-prompts.
type ValidationFailure struct {
	FacetID  string `json:"facet_id,omitempty"`
	RawValue string `json:"raw_value,omitempty"`
	Reason   string `json:"reason"`
	Detail   string `json:"detail,omitempty"`
}

// TurnInput is everything one logical turn carries into the engine.
type TurnInput struct {
	SubjectID string             `json:"subject_id"`
	Updates   []CandidateUpdate  `json:"updates,omitempty"`
	Mission   *MissionCandidate  `json:"mission,omitempty"`
	Override  *MissionOverride   `json:"override,omitempty"`
}

// TurnResult is the engine's verdict for one turn.
type TurnResult struct {
	Profile         *profilex.Profile   `json:"profile"`
	Phase           profilex.PhaseID    `json:"phase"`
	PhaseChanged    bool                `json:"phase_changed"`
	NextFacetID     string              `json:"next_facet_id,omitempty"`
	AwaitingMission bool                `json:"awaiting_mission,omitempty"`
	Ready           bool                `json:"ready,omitempty"`
	Rejected        []ValidationFailure `json:"rejected,omitempty"`
}

// ExtractionRequest asks the value extractor to pull candidates out of
// free-form user text.
type ExtractionRequest struct {
	SubjectID   string            `json:"subject_id"`
	UserMessage string            `json:"user_message"`
	Profile     *profilex.Profile `json:"profile,omitempty"`
}

// ExtractionResult is the extractor's parsed output.
type ExtractionResult struct {
	Updates []CandidateUpdate `json:"updates,omitempty"`
	Mission *MissionCandidate `json:"mission,omitempty"`
}

// QuestionRequest asks the responder to phrase the next question.
type QuestionRequest struct {
	FacetID         string           `json:"facet_id,omitempty"`
	Phase           profilex.PhaseID `json:"phase"`
	MissionID       string           `json:"mission_id,omitempty"`
	AwaitingMission bool             `json:"awaiting_mission,omitempty"`
}

// MatchSnapshot is the final tuple handed to the matching collaborator
// once the intake reaches the complete phase.
type MatchSnapshot struct {
	SubjectID        string                  `json:"subject_id"`
	SelectedMission  string                  `json:"selected_mission"`
	RoleCapabilities []string                `json:"role_capabilities,omitempty"`
	Facets           map[string]facetx.Value `json:"facets"`
}
