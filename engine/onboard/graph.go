package onboard

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/compose"

	contractx "github.com/stepmatch/onboarding/engine/contract"
	nodex "github.com/stepmatch/onboarding/engine/nodes"
)

func (e *Engine) compileTurnGraph(
	ctx context.Context,
) (compose.Runnable[contractx.TurnInput, nodex.GraphOutput], error) {
	graph := compose.NewGraph[contractx.TurnInput, nodex.GraphOutput]()

	if err := graph.AddLambdaNode("validate_request",
		compose.InvokableLambda(func(ctx context.Context, in contractx.TurnInput) (*nodex.GraphState, error) {
			return nodex.ValidateRequest(in, e.now)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node validate_request: %w", err)
	}

	if err := graph.AddLambdaNode("load_or_create_profile",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.LoadOrCreateProfile(ctx, in, e.store, e.workspaceID, e.channelType)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node load_or_create_profile: %w", err)
	}

	if err := graph.AddLambdaNode("apply_facet_updates",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.ApplyFacetUpdates(in, e.registry)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node apply_facet_updates: %w", err)
	}

	if err := graph.AddLambdaNode("apply_mission_selection",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.ApplyMissionSelection(in, e.catalog)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node apply_mission_selection: %w", err)
	}

	if err := graph.AddLambdaNode("advance_phase",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.AdvancePhase(in, e.registry, e.catalog)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node advance_phase: %w", err)
	}

	if err := graph.AddLambdaNode("plan_next_facet",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.PlanNextFacet(in, e.registry, e.catalog)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node plan_next_facet: %w", err)
	}

	if err := graph.AddLambdaNode("save_profile",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.SaveProfile(ctx, in, e.store)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node save_profile: %w", err)
	}

	if err := graph.AddLambdaNode("notify_ready",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.NotifyReady(ctx, in, e.sink)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node notify_ready: %w", err)
	}

	if err := graph.AddLambdaNode("finalize_result",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (nodex.GraphOutput, error) {
			return nodex.FinalizeResult(in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node finalize_result: %w", err)
	}

	edges := [][2]string{
		{compose.START, "validate_request"},
		{"validate_request", "load_or_create_profile"},
		{"load_or_create_profile", "apply_facet_updates"},
		{"apply_facet_updates", "apply_mission_selection"},
		{"apply_mission_selection", "advance_phase"},
		{"advance_phase", "plan_next_facet"},
		{"plan_next_facet", "save_profile"},
		{"save_profile", "notify_ready"},
		{"notify_ready", "finalize_result"},
		{"finalize_result", compose.END},
	}

	for _, edge := range edges {
		if err := graph.AddEdge(edge[0], edge[1]); err != nil {
			return nil, fmt.Errorf("add edge %s->%s: %w", edge[0], edge[1], err)
		}
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName("onboard.handle_turn"))
	if err != nil {
		return nil, fmt.Errorf("compile onboarding turn graph: %w", err)
	}
	return runner, nil
}
