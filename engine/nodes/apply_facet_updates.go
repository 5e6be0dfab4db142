package onboardnode

import (
	"errors"
	"fmt"
	"strings"

	contractx "github.com/stepmatch/onboarding/engine/contract"
	facetx "github.com/stepmatch/onboarding/engine/facet"
)

// ApplyFacetUpdates runs every candidate through the validator.
// Rejections become structured failures on the state, never errors:
// a multi-facet utterance can be partially valid and the accepted
// part still applies. Re-applying an identical value is a no-op.
func ApplyFacetUpdates(in *GraphState, registry *facetx.Registry) (*GraphState, error) {
	if in == nil || in.Profile == nil {
		return nil, fmt.Errorf("%w: graph state is incomplete", contractx.ErrValidation)
	}

	for _, update := range in.Input.Updates {
		facetID := strings.TrimSpace(update.FacetID)
		val, err := registry.Validate(facetID, update.RawValue)
		if err != nil {
			in.Rejected = append(in.Rejected, rejectionFor(facetID, update.RawValue, err))
			continue
		}
		if in.Profile.SetFacet(facetID, val) {
			in.Profile.Touch(in.Now)
		}
	}
	return in, nil
}

func rejectionFor(facetID, rawValue string, err error) contractx.ValidationFailure {
	reason := contractx.ReasonInvalidValue
	if errors.Is(err, facetx.ErrUnknownFacet) {
		reason = contractx.ReasonUnknownFacet
	}
	return contractx.ValidationFailure{
		FacetID:  facetID,
		RawValue: rawValue,
		Reason:   reason,
		Detail:   err.Error(),
	}
}
