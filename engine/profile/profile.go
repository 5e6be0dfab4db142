package profile

import (
	"errors"
	"fmt"
	"time"

	facetx "github.com/stepmatch/onboarding/engine/facet"
)

// PhaseID is one stage of the intake state machine.
type PhaseID string

const (
	PhaseCoreFacets       PhaseID = "core-facets"
	PhaseMissionSelection PhaseID = "mission-selection"
	PhaseRoleFacets       PhaseID = "role-facets"
	PhaseMissionOverrides PhaseID = "mission-overrides"
	PhaseComplete         PhaseID = "complete"
)

// phaseOrder is the strict total order over phases; transitions only
// ever move rightward.
var phaseOrder = []PhaseID{
	PhaseCoreFacets,
	PhaseMissionSelection,
	PhaseRoleFacets,
	PhaseMissionOverrides,
	PhaseComplete,
}

// PhaseIndex returns the position of a phase in the fixed order, or -1
// for an unknown phase.
func PhaseIndex(id PhaseID) int {
	for i, cur := range phaseOrder {
		if cur == id {
			return i
		}
	}
	return -1
}

// PhaseOrder returns the fixed phase sequence.
func PhaseOrder() []PhaseID {
	out := make([]PhaseID, len(phaseOrder))
	copy(out, phaseOrder)
	return out
}

var (
	ErrNilProfile        = errors.New("profile is nil")
	ErrInvalidSubject    = errors.New("subject id is empty")
	ErrInvalidPhase      = errors.New("unknown phase")
	ErrMissionAlreadySet = errors.New("mission already selected")
	ErrCorruptHistory    = errors.New("phase history corrupt")
)

// Profile is the per-subject intake record. The engine is its only
// writer; persistence goes through Store.
type Profile struct {
	// Identity
	SubjectID   string `json:"subject_id"`
	WorkspaceID string `json:"workspace_id"`
	ChannelType string `json:"channel_type"`

	// Intake state
	Facets          map[string]facetx.Value `json:"facets,omitempty"`
	SelectedMission string                  `json:"selected_mission,omitempty"`
	CurrentPhase    PhaseID                 `json:"current_phase"`
	PhaseHistory    []PhaseID               `json:"phase_history,omitempty"`

	// Role requirement sets cached on entry to role-facets so later
	// completion checks stay stable even if the catalog changes.
	RoleRequired     []string `json:"role_required,omitempty"`
	RoleOptional     []string `json:"role_optional,omitempty"`
	RoleCapabilities []string `json:"role_capabilities,omitempty"`
	RoleResolved     bool     `json:"role_resolved,omitempty"`

	Version   int64     `json:"version"`
	UpdatedAt time.Time `json:"updated_at"`
}

func New(subjectID, workspaceID, channelType string, now time.Time) *Profile {
	return &Profile{
		SubjectID:    subjectID,
		WorkspaceID:  workspaceID,
		ChannelType:  channelType,
		Facets:       make(map[string]facetx.Value, 8),
		CurrentPhase: PhaseCoreFacets,
		UpdatedAt:    now.UTC(),
	}
}

func (p *Profile) Touch(now time.Time) {
	p.UpdatedAt = now.UTC()
}

// EnsureFacetsMap makes sure p.Facets is initialized.
func (p *Profile) EnsureFacetsMap() {
	if p.Facets == nil {
		p.Facets = make(map[string]facetx.Value, 8)
	}
}

// HasFacet reports whether a canonical value is recorded for the facet.
func (p *Profile) HasFacet(id string) bool {
	if p == nil || p.Facets == nil {
		return false
	}
	_, ok := p.Facets[id]
	return ok
}

// SetFacet records a canonical value and reports whether anything
// changed. Re-setting an identical value is a no-op so replayed turns
// stay idempotent.
func (p *Profile) SetFacet(id string, val facetx.Value) bool {
	p.EnsureFacetsMap()
	if existing, ok := p.Facets[id]; ok && existing.Equal(val) {
		return false
	}
	p.Facets[id] = val
	return true
}

// SelectMission sets the mission exactly once; a silent overwrite is
// never allowed, use OverrideMission for an explicit re-selection.
func (p *Profile) SelectMission(missionID string) error {
	if p.SelectedMission == missionID {
		return nil
	}
	if p.SelectedMission != "" {
		return fmt.Errorf("%w: current=%s candidate=%s", ErrMissionAlreadySet, p.SelectedMission, missionID)
	}
	p.SelectedMission = missionID
	return nil
}

// OverrideMission replaces the selected mission and drops the cached
// role requirement sets so they are re-derived from the new mission.
// Collected facet values are kept; facets are namespace-global.
func (p *Profile) OverrideMission(missionID string) {
	p.SelectedMission = missionID
	p.RoleRequired = nil
	p.RoleOptional = nil
	p.RoleCapabilities = nil
	p.RoleResolved = false
}

// CacheRoleRequirements stores the resolved role facet sets. It runs
// once per mission selection; repeat calls for the same mission keep
// the original snapshot.
func (p *Profile) CacheRoleRequirements(required, optional, capabilities []string) {
	if p.RoleResolved {
		return
	}
	p.RoleRequired = append([]string(nil), required...)
	p.RoleOptional = append([]string(nil), optional...)
	p.RoleCapabilities = append([]string(nil), capabilities...)
	p.RoleResolved = true
}

// CompletePhase appends to the history (append-only, duplicate-free)
// and moves CurrentPhase forward. Movement is monotonic: a request to
// complete anything but the current phase is rejected.
func (p *Profile) CompletePhase(id PhaseID, now time.Time) error {
	if id != p.CurrentPhase {
		return fmt.Errorf("%w: completing %s while current is %s", ErrCorruptHistory, id, p.CurrentPhase)
	}
	idx := PhaseIndex(id)
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrInvalidPhase, id)
	}
	if idx+1 >= len(phaseOrder) {
		return fmt.Errorf("%w: %s is terminal", ErrInvalidPhase, id)
	}
	for _, done := range p.PhaseHistory {
		if done == id {
			return fmt.Errorf("%w: %s already completed", ErrCorruptHistory, id)
		}
	}
	p.PhaseHistory = append(p.PhaseHistory, id)
	p.CurrentPhase = phaseOrder[idx+1]
	p.Touch(now)
	return nil
}

// Complete reports whether the intake reached the terminal phase.
func (p *Profile) Complete() bool {
	return p != nil && p.CurrentPhase == PhaseComplete
}

// Validate checks structural invariants before a save.
func (p *Profile) Validate() error {
	if p == nil {
		return ErrNilProfile
	}
	if p.SubjectID == "" {
		return ErrInvalidSubject
	}
	cur := PhaseIndex(p.CurrentPhase)
	if cur < 0 {
		return fmt.Errorf("%w: %s", ErrInvalidPhase, p.CurrentPhase)
	}
	// History must be the exact prefix of the phase order preceding
	// the current phase.
	if len(p.PhaseHistory) != cur {
		return fmt.Errorf("%w: history length=%d current=%s", ErrCorruptHistory, len(p.PhaseHistory), p.CurrentPhase)
	}
	for i, done := range p.PhaseHistory {
		if done != phaseOrder[i] {
			return fmt.Errorf("%w: history[%d]=%s want %s", ErrCorruptHistory, i, done, phaseOrder[i])
		}
	}
	if cur > PhaseIndex(PhaseMissionSelection) && p.SelectedMission == "" {
		return fmt.Errorf("%w: phase=%s without a selected mission", ErrCorruptHistory, p.CurrentPhase)
	}
	return nil
}
