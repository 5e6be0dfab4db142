package onboardnode

import (
	"errors"
	"strings"
	"time"

	contractx "github.com/stepmatch/onboarding/engine/contract"
	profilex "github.com/stepmatch/onboarding/engine/profile"
)

var (
	ErrInvalidSubject = errors.New("subject id is empty")
)

type GraphOutput struct {
	Result contractx.TurnResult
}

// GraphState is threaded through the turn pipeline nodes.
type GraphState struct {
	Input contractx.TurnInput
	Now   time.Time

	Profile  *profilex.Profile
	Rejected []contractx.ValidationFailure

	PhaseChanged    bool
	NextFacetID     string
	AwaitingMission bool
	Ready           bool
}

func ValidateRequest(in contractx.TurnInput, nowFn func() time.Time) (*GraphState, error) {
	subjectID := strings.TrimSpace(in.SubjectID)
	if subjectID == "" {
		return nil, ErrInvalidSubject
	}
	in.SubjectID = subjectID

	return &GraphState{
		Input: in,
		Now:   nowFn().UTC(),
	}, nil
}
