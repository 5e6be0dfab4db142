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
)

type Responder struct {
	runner   compose.Runnable[map[string]any, responderLLMOutput]
	registry *facetx.Registry
	catalog  *missionx.Catalog
}

var _ contractx.Responder = (*Responder)(nil)

type responderLLMOutput struct {
	Question string `json:"question"`
}

func NewResponder(
	ctx context.Context,
	chatModel einomodel.BaseChatModel,
	systemPrompt string,
	registry *facetx.Registry,
	catalog *missionx.Catalog,
) (*Responder, error) {
	runner, err := compileStructuredLLMGraph[responderLLMOutput](ctx, chatModel, systemPrompt, "responder.model_graph")
	if err != nil {
		return nil, fmt.Errorf("%w: compile responder graph: %v", contractx.ErrModelInvoke, err)
	}
	return &Responder{runner: runner, registry: registry, catalog: catalog}, nil
}

func (r *Responder) Question(ctx context.Context, req contractx.QuestionRequest) (string, error) {
	payload := map[string]any{
		"phase":            req.Phase,
		"mission_id":       req.MissionID,
		"awaiting_mission": req.AwaitingMission,
	}
	if req.AwaitingMission {
		payload["missions"] = summarizeMissions(r.catalog)
	}
	if req.FacetID != "" {
		def, ok := r.registry.Lookup(req.FacetID)
		if !ok {
			return "", fmt.Errorf("%w: facet=%s", facetx.ErrUnknownFacet, req.FacetID)
		}
		payload["facet"] = map[string]any{
			"id":       def.ID,
			"kind":     def.Kind,
			"allowed":  def.Allowed,
			"question": def.Question,
		}
	}

	inputBytes, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("%w: marshal responder payload: %v", contractx.ErrValidation, err)
	}

	out, err := r.runner.Invoke(ctx, map[string]any{
		"input": string(inputBytes),
	})
	if err != nil {
		return "", fmt.Errorf("%w: responder invoke: %v", contractx.ErrModelInvoke, err)
	}

	question := strings.TrimSpace(out.Question)
	if question == "" {
		return "", fmt.Errorf("%w: responder returned an empty question", contractx.ErrSchemaViolation)
	}
	return question, nil
}

func summarizeMissions(catalog *missionx.Catalog) []map[string]string {
	ids := catalog.IDs()
	out := make([]map[string]string, 0, len(ids))
	for _, id := range ids {
		m, err := catalog.Lookup(id)
		if err != nil {
			continue
		}
		out = append(out, map[string]string{"id": m.ID, "name": m.Name})
	}
	return out
}

// StaticResponder phrases questions from the registry's default
// wording without a model; used when no LLM is configured.
type StaticResponder struct {
	registry *facetx.Registry
	catalog  *missionx.Catalog
}

var _ contractx.Responder = (*StaticResponder)(nil)

func NewStaticResponder(registry *facetx.Registry, catalog *missionx.Catalog) *StaticResponder {
	return &StaticResponder{registry: registry, catalog: catalog}
}

func (r *StaticResponder) Question(_ context.Context, req contractx.QuestionRequest) (string, error) {
	if req.AwaitingMission {
		ids := r.catalog.IDs()
		names := make([]string, 0, len(ids))
		for _, id := range ids {
			if m, err := r.catalog.Lookup(id); err == nil {
				names = append(names, m.Name)
			}
		}
		return fmt.Sprintf("What brings you here? Pick one: %s.", strings.Join(names, ", ")), nil
	}
	if req.FacetID == "" {
		return "", fmt.Errorf("%w: nothing to ask", contractx.ErrValidation)
	}
	def, ok := r.registry.Lookup(req.FacetID)
	if !ok {
		return "", fmt.Errorf("%w: facet=%s", facetx.ErrUnknownFacet, req.FacetID)
	}
	if def.Question != "" {
		return def.Question, nil
	}
	return fmt.Sprintf("Could you share your %s?", def.ID), nil
}
