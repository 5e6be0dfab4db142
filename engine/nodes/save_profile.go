package onboardnode

import (
	"context"
	"fmt"

	contractx "github.com/stepmatch/onboarding/engine/contract"
	profilex "github.com/stepmatch/onboarding/engine/profile"
)

func SaveProfile(
	ctx context.Context,
	in *GraphState,
	store profilex.Store,
) (*GraphState, error) {
	if in == nil || in.Profile == nil {
		return nil, fmt.Errorf("%w: graph profile is nil", contractx.ErrValidation)
	}

	in.Profile.Touch(in.Now)
	if err := in.Profile.Validate(); err != nil {
		return nil, fmt.Errorf("profile validation failed: %w", err)
	}
	if err := store.Save(ctx, in.Profile); err != nil {
		return nil, err
	}

	return in, nil
}
