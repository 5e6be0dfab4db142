package onboardnode

import (
	"context"
	"errors"
	"fmt"
	"time"

	contractx "github.com/stepmatch/onboarding/engine/contract"
	profilex "github.com/stepmatch/onboarding/engine/profile"
)

func LoadOrCreateProfile(
	ctx context.Context,
	in *GraphState,
	store profilex.Store,
	workspaceID string,
	channelType string,
) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	p, err := loadOrCreateProfile(ctx, store, in.Input.SubjectID, workspaceID, channelType, in.Now)
	if err != nil {
		return nil, err
	}
	in.Profile = p
	return in, nil
}

func loadOrCreateProfile(
	ctx context.Context,
	store profilex.Store,
	subjectID string,
	workspaceID string,
	channelType string,
	now time.Time,
) (*profilex.Profile, error) {
	p, err := store.Load(ctx, subjectID)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, profilex.ErrProfileNotFound) {
		return nil, err
	}

	return profilex.New(subjectID, workspaceID, channelType, now), nil
}
