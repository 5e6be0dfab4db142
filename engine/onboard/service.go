// Package onboard wires the facet-graph onboarding engine: per turn it
// validates the request, applies extracted candidate updates, drives
// the phase state machine, and plans the next facet to ask for.
package onboard

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/cloudwego/eino/compose"

	contractx "github.com/stepmatch/onboarding/engine/contract"
	facetx "github.com/stepmatch/onboarding/engine/facet"
	missionx "github.com/stepmatch/onboarding/engine/mission"
	nodex "github.com/stepmatch/onboarding/engine/nodes"
	profilex "github.com/stepmatch/onboarding/engine/profile"
)

var (
	ErrInvalidSubject = nodex.ErrInvalidSubject
)

type Config struct {
	WorkspaceID string
	ChannelType string
}

// Engine is stateless computation over Profile snapshots; callers must
// serialize turns per subject (load, one turn, save before the next).
type Engine struct {
	store    profilex.Store
	registry *facetx.Registry
	catalog  *missionx.Catalog
	sink     contractx.MatchSink

	graphRunner compose.Runnable[contractx.TurnInput, nodex.GraphOutput]

	workspaceID string
	channelType string

	now func() time.Time
}

func New(
	store profilex.Store,
	registry *facetx.Registry,
	catalog *missionx.Catalog,
	sink contractx.MatchSink,
	cfg Config,
) (*Engine, error) {
	if store == nil {
		return nil, errors.New("profile store is required")
	}
	if registry == nil {
		return nil, errors.New("facet registry is required")
	}
	if catalog == nil {
		return nil, errors.New("mission catalog is required")
	}
	if sink == nil {
		sink = noopMatchSink{}
	}

	workspaceID := strings.TrimSpace(cfg.WorkspaceID)
	if workspaceID == "" {
		workspaceID = "default-workspace"
	}
	channelType := strings.TrimSpace(cfg.ChannelType)
	if channelType == "" {
		channelType = "chat"
	}

	e := &Engine{
		store:       store,
		registry:    registry,
		catalog:     catalog,
		sink:        sink,
		workspaceID: workspaceID,
		channelType: channelType,
		now:         time.Now,
	}

	graphRunner, err := e.compileTurnGraph(context.Background())
	if err != nil {
		return nil, err
	}
	e.graphRunner = graphRunner

	return e, nil
}

// HandleTurn runs one logical turn. Validation failures for rejected
// candidates come back inside the result; an error means the turn as a
// whole did not apply.
func (e *Engine) HandleTurn(ctx context.Context, in contractx.TurnInput) (contractx.TurnResult, error) {
	out, err := e.graphRunner.Invoke(ctx, in)
	if err != nil {
		return contractx.TurnResult{}, err
	}
	return out.Result, nil
}

type noopMatchSink struct{}

func (noopMatchSink) Ready(context.Context, contractx.MatchSnapshot) error {
	return nil
}
