package main

import (
	"context"

	"github.com/rs/zerolog/log"

	contractx "github.com/stepmatch/onboarding/engine/contract"
	extractx "github.com/stepmatch/onboarding/engine/extract"
	facetx "github.com/stepmatch/onboarding/engine/facet"
	llmx "github.com/stepmatch/onboarding/engine/llm"
	matchsinkx "github.com/stepmatch/onboarding/engine/matchsink"
	missionx "github.com/stepmatch/onboarding/engine/mission"
	onboardx "github.com/stepmatch/onboarding/engine/onboard"
	profilex "github.com/stepmatch/onboarding/engine/profile"
	configx "github.com/stepmatch/onboarding/pkg/config"
	_ "github.com/stepmatch/onboarding/pkg/logger/autoload"
	qstashx "github.com/stepmatch/onboarding/pkg/qstash"
	promptx "github.com/stepmatch/onboarding/prompt"
)

type AppConfig struct {
	WorkspaceID string `envconfig:"WORKSPACE_ID" split_words:"true" default:"default-workspace"`
	ChannelType string `envconfig:"CHANNEL_TYPE" split_words:"true" default:"chat"`

	// Store selects profile persistence: "upstash" or "postgres".
	Store string `envconfig:"STORE" split_words:"true" default:"upstash"`

	// MatchDestination is the QStash destination completed intake
	// snapshots are published to.
	MatchDestination string `envconfig:"MATCH_DESTINATION" split_words:"true" required:"true"`
}

// app bundles the wired collaborators a transport layer drives: the
// engine for turns, the extractor ahead of it, the responder behind it.
type app struct {
	engine    *onboardx.Engine
	extractor contractx.Extractor
	responder contractx.Responder
}

func main() {
	ctx := context.Background()
	appCfg := configx.MustNew[AppConfig]("ONBOARD")

	registry := facetx.Default()
	catalog := missionx.Default(registry)
	store := buildStore(ctx, appCfg.Store)

	qstashCfg := configx.MustNew[qstashx.Config]("QSTASH")
	sink, err := matchsinkx.NewQStashSink(qstashx.MustNew(*qstashCfg), appCfg.MatchDestination)
	if err != nil {
		log.Fatal().Err(err).Msg("build match sink")
	}

	engine, err := onboardx.New(store, registry, catalog, sink, onboardx.Config{
		WorkspaceID: appCfg.WorkspaceID,
		ChannelType: appCfg.ChannelType,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("build onboarding engine")
	}

	llmCfg := configx.MustNew[llmx.Config]("OPENROUTER")
	prompts := promptx.LoadPromptSet()

	extractorModel, err := llmCfg.OpenRouterFor(llmx.CollaboratorExtractor).New(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("build extractor model")
	}
	extractor, err := extractx.NewExtractor(ctx, extractorModel, prompts.Extractor, registry, catalog)
	if err != nil {
		log.Fatal().Err(err).Msg("build extractor")
	}

	// The responder degrades to registry wording when no model is
	// configured; intake keeps working without an LLM behind it.
	var responder contractx.Responder = extractx.NewStaticResponder(registry, catalog)
	if responderModel, err := llmCfg.OpenRouterFor(llmx.CollaboratorResponder).New(ctx); err == nil {
		if r, rerr := extractx.NewResponder(ctx, responderModel, prompts.Responder, registry, catalog); rerr == nil {
			responder = r
		}
	}

	a := app{engine: engine, extractor: extractor, responder: responder}
	_ = a

	log.Info().
		Str("store", appCfg.Store).
		Str("workspace_id", appCfg.WorkspaceID).
		Str("match_destination", appCfg.MatchDestination).
		Msg("onboarding engine wired")
}

func buildStore(ctx context.Context, kind string) profilex.Store {
	switch kind {
	case "postgres":
		pgCfg := configx.MustNew[profilex.PostgresConfig]("POSTGRES")
		store, err := profilex.NewPostgresStore(*pgCfg)
		if err != nil {
			log.Fatal().Err(err).Msg("build postgres store")
		}
		if err := store.Migrate(ctx); err != nil {
			log.Fatal().Err(err).Msg("migrate postgres store")
		}
		return store
	default:
		redisCfg := configx.MustNew[profilex.UpstashRedisConfig]("UPSTASH_REDIS")
		store, err := profilex.NewUpstashRedisStore(*redisCfg)
		if err != nil {
			log.Fatal().Err(err).Msg("build upstash store")
		}
		return store
	}
}
