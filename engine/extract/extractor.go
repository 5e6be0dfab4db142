// Package extract implements the LLM-backed collaborators at the
// engine boundary: the value extractor that turns free text into
// candidate facet updates, and the responder that phrases the next
// question. The engine itself consumes/produces only structured data.
package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"

	contractx "github.com/stepmatch/onboarding/engine/contract"
	facetx "github.com/stepmatch/onboarding/engine/facet"
	missionx "github.com/stepmatch/onboarding/engine/mission"
	profilex "github.com/stepmatch/onboarding/engine/profile"
)

type Extractor struct {
	runner   compose.Runnable[map[string]any, extractorLLMOutput]
	registry *facetx.Registry
	catalog  *missionx.Catalog
}

var _ contractx.Extractor = (*Extractor)(nil)

type extractorLLMOutput struct {
	Updates []contractx.CandidateUpdate `json:"updates,omitempty"`
	Mission *contractx.MissionCandidate `json:"mission,omitempty"`
}

func NewExtractor(
	ctx context.Context,
	chatModel einomodel.BaseChatModel,
	systemPrompt string,
	registry *facetx.Registry,
	catalog *missionx.Catalog,
) (*Extractor, error) {
	runner, err := compileStructuredLLMGraph[extractorLLMOutput](ctx, chatModel, systemPrompt, "extractor.model_graph")
	if err != nil {
		return nil, fmt.Errorf("%w: compile extractor graph: %v", contractx.ErrModelInvoke, err)
	}
	return &Extractor{runner: runner, registry: registry, catalog: catalog}, nil
}

func (e *Extractor) Extract(ctx context.Context, req contractx.ExtractionRequest) (contractx.ExtractionResult, error) {
	if strings.TrimSpace(req.UserMessage) == "" {
		return contractx.ExtractionResult{}, fmt.Errorf("%w: user message is required", contractx.ErrValidation)
	}

	payload := map[string]any{
		"user_message": req.UserMessage,
		"facets":       summarizeRegistry(e.registry),
		"missions":     e.catalog.IDs(),
		"profile":      summarizeProfile(req.Profile),
	}
	inputBytes, err := json.Marshal(payload)
	if err != nil {
		return contractx.ExtractionResult{}, fmt.Errorf("%w: marshal extractor payload: %v", contractx.ErrValidation, err)
	}

	out, err := e.runner.Invoke(ctx, map[string]any{
		"input": string(inputBytes),
	})
	if err != nil {
		return contractx.ExtractionResult{}, fmt.Errorf("%w: extractor invoke: %v", contractx.ErrModelInvoke, err)
	}

	result := contractx.ExtractionResult{
		Updates: make([]contractx.CandidateUpdate, 0, len(out.Updates)),
		Mission: out.Mission,
	}
	for _, update := range out.Updates {
		facetID := strings.TrimSpace(update.FacetID)
		raw := strings.TrimSpace(update.RawValue)
		if facetID == "" || raw == "" {
			continue
		}
		result.Updates = append(result.Updates, contractx.CandidateUpdate{
			FacetID:  facetID,
			RawValue: raw,
		})
	}

	if err := validateExtraction(result); err != nil {
		return contractx.ExtractionResult{}, err
	}
	return result, nil
}

func validateExtraction(result contractx.ExtractionResult) error {
	if result.Mission == nil {
		return nil
	}
	if strings.TrimSpace(result.Mission.MissionID) == "" {
		return fmt.Errorf("%w: mission candidate without an id", contractx.ErrSchemaViolation)
	}
	if result.Mission.Confidence < 0 || result.Mission.Confidence > 1 {
		return fmt.Errorf("%w: mission confidence=%.2f outside [0,1]", contractx.ErrSchemaViolation, result.Mission.Confidence)
	}
	return nil
}

func summarizeRegistry(registry *facetx.Registry) []map[string]any {
	ids := registry.Order()
	out := make([]map[string]any, 0, len(ids))
	for _, id := range ids {
		def, ok := registry.Lookup(id)
		if !ok {
			continue
		}
		entry := map[string]any{
			"id":   def.ID,
			"kind": def.Kind,
		}
		if len(def.Allowed) > 0 {
			entry["allowed"] = def.Allowed
		}
		out = append(out, entry)
	}
	return out
}

func summarizeProfile(p *profilex.Profile) map[string]any {
	if p == nil {
		return map[string]any{}
	}
	answered := make([]string, 0, len(p.Facets))
	for id := range p.Facets {
		answered = append(answered, id)
	}
	return map[string]any{
		"phase":            p.CurrentPhase,
		"selected_mission": p.SelectedMission,
		"answered":         answered,
	}
}
