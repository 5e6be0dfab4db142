package onboard

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	contractx "github.com/stepmatch/onboarding/engine/contract"
	facetx "github.com/stepmatch/onboarding/engine/facet"
	missionx "github.com/stepmatch/onboarding/engine/mission"
	profilex "github.com/stepmatch/onboarding/engine/profile"
)

// fakeStore keeps profiles in memory behind JSON round trips so tests
// observe the same snapshot isolation a real store gives.
type fakeStore struct {
	mu       sync.Mutex
	data     map[string][]byte
	saveErr  error
	loadErr  error
	saveHits int
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: make(map[string][]byte)}
}

func (s *fakeStore) Load(_ context.Context, subjectID string) (*profilex.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	raw, ok := s.data[subjectID]
	if !ok {
		return nil, profilex.ErrProfileNotFound
	}
	var p profilex.Profile
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}
	p.EnsureFacetsMap()
	return &p, nil
}

func (s *fakeStore) Save(_ context.Context, p *profilex.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	p.Version++
	raw, err := json.Marshal(p)
	if err != nil {
		return err
	}
	s.data[p.SubjectID] = raw
	s.saveHits++
	return nil
}

func (s *fakeStore) Delete(_ context.Context, subjectID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, subjectID)
	return nil
}

type fakeSink struct {
	mu        sync.Mutex
	snapshots []contractx.MatchSnapshot
	err       error
}

func (f *fakeSink) Ready(_ context.Context, snapshot contractx.MatchSnapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.snapshots = append(f.snapshots, snapshot)
	return nil
}

func newTestEngine(t *testing.T, store profilex.Store, sink contractx.MatchSink) *Engine {
	t.Helper()
	registry := facetx.Default()
	engine, err := New(store, registry, missionx.Default(registry), sink, Config{
		WorkspaceID: "w-test",
		ChannelType: "chat",
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return engine
}

func coreUpdates() []contractx.CandidateUpdate {
	return []contractx.CandidateUpdate{
		{FacetID: facetx.FacetLocation, RawValue: "Seattle, Washington"},
		{FacetID: facetx.FacetGender, RawValue: "Female"},
		{FacetID: facetx.FacetCommsPref, RawValue: "video and text"},
	}
}

func TestHandleTurnCreatesProfileAndAsksFirstCoreFacet(t *testing.T) {
	t.Parallel()

	engine := newTestEngine(t, newFakeStore(), nil)

	res, err := engine.HandleTurn(context.Background(), contractx.TurnInput{SubjectID: "u1"})
	if err != nil {
		t.Fatalf("HandleTurn() error = %v", err)
	}
	if res.Phase != profilex.PhaseCoreFacets {
		t.Fatalf("Phase = %s, want %s", res.Phase, profilex.PhaseCoreFacets)
	}
	if res.NextFacetID != facetx.FacetLocation {
		t.Fatalf("NextFacetID = %s, want %s", res.NextFacetID, facetx.FacetLocation)
	}
	if res.PhaseChanged || res.Ready || res.AwaitingMission {
		t.Fatalf("result flags = %+v, want all false on a fresh profile", res)
	}
	if res.Profile.WorkspaceID != "w-test" {
		t.Fatalf("WorkspaceID = %s, want w-test", res.Profile.WorkspaceID)
	}
}

func TestHandleTurnCoreCompletionOpensMissionSelection(t *testing.T) {
	t.Parallel()

	engine := newTestEngine(t, newFakeStore(), nil)

	res, err := engine.HandleTurn(context.Background(), contractx.TurnInput{
		SubjectID: "u1",
		Updates:   coreUpdates(),
	})
	if err != nil {
		t.Fatalf("HandleTurn() error = %v", err)
	}
	if res.Phase != profilex.PhaseMissionSelection {
		t.Fatalf("Phase = %s, want %s", res.Phase, profilex.PhaseMissionSelection)
	}
	if !res.PhaseChanged {
		t.Fatal("PhaseChanged = false, want transition out of core-facets")
	}
	if !res.AwaitingMission {
		t.Fatal("AwaitingMission = false, want true in open mission selection")
	}
	if res.NextFacetID != "" {
		t.Fatalf("NextFacetID = %q, want empty during mission selection", res.NextFacetID)
	}
	if got := res.Profile.Facets[facetx.FacetLocation].Single; got != "Seattle, Washington, USA" {
		t.Fatalf("location = %q, want normalized form", got)
	}
}

func TestHandleTurnMissionSelectionEntersRoleFacets(t *testing.T) {
	t.Parallel()

	engine := newTestEngine(t, newFakeStore(), nil)
	ctx := context.Background()

	if _, err := engine.HandleTurn(ctx, contractx.TurnInput{SubjectID: "u1", Updates: coreUpdates()}); err != nil {
		t.Fatalf("HandleTurn(core) error = %v", err)
	}

	res, err := engine.HandleTurn(ctx, contractx.TurnInput{
		SubjectID: "u1",
		Mission:   &contractx.MissionCandidate{MissionID: missionx.MissionTutor, Confidence: 0.9},
	})
	if err != nil {
		t.Fatalf("HandleTurn(mission) error = %v", err)
	}
	if res.Phase != profilex.PhaseRoleFacets {
		t.Fatalf("Phase = %s, want %s", res.Phase, profilex.PhaseRoleFacets)
	}
	if res.AwaitingMission {
		t.Fatal("AwaitingMission = true after a selection")
	}
	if !res.Profile.RoleResolved {
		t.Fatal("role requirements not resolved on entering role-facets")
	}
	if res.NextFacetID != facetx.FacetStep {
		t.Fatalf("NextFacetID = %s, want plan-first facet %s", res.NextFacetID, facetx.FacetStep)
	}
}

func TestHandleTurnLowConfidenceMissionIsRejected(t *testing.T) {
	t.Parallel()

	engine := newTestEngine(t, newFakeStore(), nil)
	ctx := context.Background()

	if _, err := engine.HandleTurn(ctx, contractx.TurnInput{SubjectID: "u1", Updates: coreUpdates()}); err != nil {
		t.Fatalf("HandleTurn(core) error = %v", err)
	}

	res, err := engine.HandleTurn(ctx, contractx.TurnInput{
		SubjectID: "u1",
		Mission:   &contractx.MissionCandidate{MissionID: missionx.MissionTutor, Confidence: 0.3},
	})
	if err != nil {
		t.Fatalf("HandleTurn() error = %v", err)
	}
	if res.Profile.SelectedMission != "" {
		t.Fatalf("SelectedMission = %s, want unset", res.Profile.SelectedMission)
	}
	if !res.AwaitingMission {
		t.Fatal("AwaitingMission = false, want still awaiting")
	}
	if len(res.Rejected) != 1 || res.Rejected[0].Reason != contractx.ReasonLowConfidence {
		t.Fatalf("Rejected = %+v, want one lowConfidence failure", res.Rejected)
	}
}

func TestHandleTurnMissionCandidateOutsideSelectionPhase(t *testing.T) {
	t.Parallel()

	engine := newTestEngine(t, newFakeStore(), nil)

	res, err := engine.HandleTurn(context.Background(), contractx.TurnInput{
		SubjectID: "u1",
		Mission:   &contractx.MissionCandidate{MissionID: missionx.MissionTutor, Confidence: 0.9},
	})
	if err != nil {
		t.Fatalf("HandleTurn() error = %v", err)
	}
	if res.Profile.SelectedMission != "" {
		t.Fatalf("SelectedMission = %s, want unset in core phase", res.Profile.SelectedMission)
	}
	if len(res.Rejected) != 1 || res.Rejected[0].Reason != contractx.ReasonMissionLocked {
		t.Fatalf("Rejected = %+v, want one missionLocked failure", res.Rejected)
	}
}

func TestHandleTurnRejectsInvalidValuesButKeepsValidOnes(t *testing.T) {
	t.Parallel()

	engine := newTestEngine(t, newFakeStore(), nil)

	res, err := engine.HandleTurn(context.Background(), contractx.TurnInput{
		SubjectID: "u1",
		Updates: []contractx.CandidateUpdate{
			{FacetID: facetx.FacetGender, RawValue: "martian"},
			{FacetID: "favoriteColor", RawValue: "blue"},
			{FacetID: facetx.FacetLocation, RawValue: "Austin"},
		},
	})
	if err != nil {
		t.Fatalf("HandleTurn() error = %v", err)
	}
	if len(res.Rejected) != 2 {
		t.Fatalf("Rejected = %+v, want 2 failures", res.Rejected)
	}
	byReason := make(map[string]int)
	for _, rej := range res.Rejected {
		byReason[rej.Reason]++
	}
	if byReason[contractx.ReasonInvalidValue] != 1 || byReason[contractx.ReasonUnknownFacet] != 1 {
		t.Fatalf("Rejected reasons = %v, want one invalidValue and one unknownFacet", byReason)
	}
	if res.Profile.HasFacet(facetx.FacetGender) {
		t.Fatal("rejected gender value landed on the profile")
	}
	if !res.Profile.HasFacet(facetx.FacetLocation) {
		t.Fatal("valid location update did not apply")
	}
}

func TestHandleTurnFullFlowReachesCompleteAndNotifiesOnce(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	sink := &fakeSink{}
	engine := newTestEngine(t, store, sink)
	ctx := context.Background()

	turns := []contractx.TurnInput{
		{SubjectID: "u1", Updates: coreUpdates()},
		{SubjectID: "u1", Mission: &contractx.MissionCandidate{MissionID: missionx.MissionTutor, Confidence: 0.95}},
		{SubjectID: "u1", Updates: []contractx.CandidateUpdate{
			{FacetID: facetx.FacetStep, RawValue: "Salsa"},
			{FacetID: facetx.FacetBudget, RawValue: "$45 per hour"},
			{FacetID: facetx.FacetStepsTaught, RawValue: "salsa, bachata"},
			{FacetID: facetx.FacetSpecialties, RawValue: "musicality and footwork"},
		}},
		{SubjectID: "u1"}, // overrides phase advances without input
	}

	var last contractx.TurnResult
	for i, turn := range turns {
		res, err := engine.HandleTurn(ctx, turn)
		if err != nil {
			t.Fatalf("HandleTurn(#%d) error = %v", i+1, err)
		}
		if len(res.Rejected) != 0 {
			t.Fatalf("HandleTurn(#%d) Rejected = %+v, want none", i+1, res.Rejected)
		}
		last = res
	}

	if last.Phase != profilex.PhaseComplete || !last.Ready {
		t.Fatalf("final result = phase=%s ready=%v, want complete/ready", last.Phase, last.Ready)
	}
	if last.NextFacetID != "" {
		t.Fatalf("NextFacetID = %q, want empty at complete", last.NextFacetID)
	}
	if got := last.Profile.Facets[facetx.FacetBudget].Single; got != "$$" {
		t.Fatalf("budget band = %q, want $$", got)
	}

	if len(sink.snapshots) != 1 {
		t.Fatalf("sink notified %d times, want exactly once", len(sink.snapshots))
	}
	snap := sink.snapshots[0]
	if snap.SubjectID != "u1" || snap.SelectedMission != missionx.MissionTutor {
		t.Fatalf("snapshot = %+v, want u1/tutor", snap)
	}
	if len(snap.RoleCapabilities) != 1 || snap.RoleCapabilities[0] != "teacher" {
		t.Fatalf("RoleCapabilities = %v, want [teacher]", snap.RoleCapabilities)
	}

	// A replayed empty turn after completion stays terminal and does
	// not notify again.
	res, err := engine.HandleTurn(ctx, contractx.TurnInput{SubjectID: "u1"})
	if err != nil {
		t.Fatalf("HandleTurn(replay) error = %v", err)
	}
	if !res.Ready || res.PhaseChanged {
		t.Fatalf("replay result = ready=%v changed=%v, want ready and unchanged", res.Ready, res.PhaseChanged)
	}
	if len(sink.snapshots) != 1 {
		t.Fatalf("sink notified %d times after replay, want still once", len(sink.snapshots))
	}
}

func TestHandleTurnReplayedUpdatesAreIdempotent(t *testing.T) {
	t.Parallel()

	engine := newTestEngine(t, newFakeStore(), nil)
	ctx := context.Background()

	first, err := engine.HandleTurn(ctx, contractx.TurnInput{SubjectID: "u1", Updates: coreUpdates()})
	if err != nil {
		t.Fatalf("HandleTurn() error = %v", err)
	}
	replay, err := engine.HandleTurn(ctx, contractx.TurnInput{SubjectID: "u1", Updates: coreUpdates()})
	if err != nil {
		t.Fatalf("HandleTurn(replay) error = %v", err)
	}

	if replay.Phase != first.Phase {
		t.Fatalf("replay phase = %s, want %s", replay.Phase, first.Phase)
	}
	if replay.PhaseChanged {
		t.Fatal("replay reported a phase change")
	}
	if len(replay.Rejected) != 0 {
		t.Fatalf("replay Rejected = %+v, want none", replay.Rejected)
	}
}

func TestHandleTurnOverrideRederivesRoleRequirements(t *testing.T) {
	t.Parallel()

	engine := newTestEngine(t, newFakeStore(), nil)
	ctx := context.Background()

	if _, err := engine.HandleTurn(ctx, contractx.TurnInput{SubjectID: "u1", Updates: coreUpdates()}); err != nil {
		t.Fatalf("HandleTurn(core) error = %v", err)
	}
	if _, err := engine.HandleTurn(ctx, contractx.TurnInput{
		SubjectID: "u1",
		Mission:   &contractx.MissionCandidate{MissionID: missionx.MissionTutor, Confidence: 0.9},
	}); err != nil {
		t.Fatalf("HandleTurn(select) error = %v", err)
	}

	res, err := engine.HandleTurn(ctx, contractx.TurnInput{
		SubjectID: "u1",
		Override:  &contractx.MissionOverride{MissionID: missionx.MissionPartner},
	})
	if err != nil {
		t.Fatalf("HandleTurn(override) error = %v", err)
	}
	if res.Profile.SelectedMission != missionx.MissionPartner {
		t.Fatalf("SelectedMission = %s, want partner", res.Profile.SelectedMission)
	}
	want := []string{facetx.FacetStep, facetx.FacetExperience, facetx.FacetAvail}
	if len(res.Profile.RoleRequired) != len(want) {
		t.Fatalf("RoleRequired = %v, want %v", res.Profile.RoleRequired, want)
	}
	for i := range want {
		if res.Profile.RoleRequired[i] != want[i] {
			t.Fatalf("RoleRequired = %v, want %v", res.Profile.RoleRequired, want)
		}
	}
	if len(res.Profile.RoleCapabilities) != 1 || res.Profile.RoleCapabilities[0] != "dancer" {
		t.Fatalf("RoleCapabilities = %v, want [dancer]", res.Profile.RoleCapabilities)
	}
	// Facets collected under the previous mission are kept.
	if !res.Profile.HasFacet(facetx.FacetLocation) {
		t.Fatal("override dropped collected facets")
	}
}

func TestHandleTurnUnknownOverrideIsRejected(t *testing.T) {
	t.Parallel()

	engine := newTestEngine(t, newFakeStore(), nil)

	res, err := engine.HandleTurn(context.Background(), contractx.TurnInput{
		SubjectID: "u1",
		Override:  &contractx.MissionOverride{MissionID: "conquer"},
	})
	if err != nil {
		t.Fatalf("HandleTurn() error = %v", err)
	}
	if len(res.Rejected) != 1 || res.Rejected[0].Reason != contractx.ReasonUnknownMission {
		t.Fatalf("Rejected = %+v, want one unknownMission failure", res.Rejected)
	}
}

func TestHandleTurnInvalidSubject(t *testing.T) {
	t.Parallel()

	engine := newTestEngine(t, newFakeStore(), nil)

	_, err := engine.HandleTurn(context.Background(), contractx.TurnInput{SubjectID: "   "})
	if !errors.Is(err, ErrInvalidSubject) {
		t.Fatalf("HandleTurn() error = %v, want ErrInvalidSubject", err)
	}
}

func TestHandleTurnStoreErrorsPropagate(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	store.saveErr = errors.New("redis down")
	engine := newTestEngine(t, store, nil)

	_, err := engine.HandleTurn(context.Background(), contractx.TurnInput{SubjectID: "u1"})
	if err == nil || !errors.Is(err, store.saveErr) {
		t.Fatalf("HandleTurn() error = %v, want wrapped save error", err)
	}
}

func TestHandleTurnLoadErrorsPropagate(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	store.loadErr = errors.New("redis timeout")
	engine := newTestEngine(t, store, nil)

	_, err := engine.HandleTurn(context.Background(), contractx.TurnInput{SubjectID: "u1"})
	if err == nil || !errors.Is(err, store.loadErr) {
		t.Fatalf("HandleTurn() error = %v, want wrapped load error", err)
	}
}

func TestHandleTurnPersistsAcrossTurns(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	engine := newTestEngine(t, store, nil)
	ctx := context.Background()

	if _, err := engine.HandleTurn(ctx, contractx.TurnInput{
		SubjectID: "u1",
		Updates:   []contractx.CandidateUpdate{{FacetID: facetx.FacetLocation, RawValue: "Austin"}},
	}); err != nil {
		t.Fatalf("HandleTurn(#1) error = %v", err)
	}

	res, err := engine.HandleTurn(ctx, contractx.TurnInput{SubjectID: "u1"})
	if err != nil {
		t.Fatalf("HandleTurn(#2) error = %v", err)
	}
	if !res.Profile.HasFacet(facetx.FacetLocation) {
		t.Fatal("facet from the first turn did not survive the store round trip")
	}
	if res.Profile.Version != 2 {
		t.Fatalf("Version = %d, want 2 after two saves", res.Profile.Version)
	}
	if store.saveHits != 2 {
		t.Fatalf("saveHits = %d, want 2", store.saveHits)
	}
}

func TestNewRejectsMissingCollaborators(t *testing.T) {
	t.Parallel()

	registry := facetx.Default()
	catalog := missionx.Default(registry)

	if _, err := New(nil, registry, catalog, nil, Config{}); err == nil {
		t.Fatal("New() without a store did not fail")
	}
	if _, err := New(newFakeStore(), nil, catalog, nil, Config{}); err == nil {
		t.Fatal("New() without a registry did not fail")
	}
	if _, err := New(newFakeStore(), registry, nil, nil, Config{}); err == nil {
		t.Fatal("New() without a catalog did not fail")
	}
}
