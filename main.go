package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/chayanin-t/payagent/agent/agents/react"
	"github.com/chayanin-t/payagent/agent/audit"
	"github.com/chayanin-t/payagent/agent/llm"
	"github.com/chayanin-t/payagent/agent/prompt"
	"github.com/chayanin-t/payagent/agent/tool"
	configx "github.com/chayanin-t/payagent/pkg/config"
	"github.com/chayanin-t/payagent/pkg/logbuf"
	_ "github.com/chayanin-t/payagent/pkg/logger/autoload"
	openaix "github.com/chayanin-t/payagent/pkg/openai"
	paypalx "github.com/chayanin-t/payagent/pkg/paypal"
	"github.com/chayanin-t/payagent/server"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logs := logbuf.New(0)
	log.Logger = log.Logger.Hook(logs)

	openaiCfg := configx.MustNew[openaix.Config]("OPENAI")
	paypalCfg := configx.MustNew[paypalx.Config]("PAYPAL")
	agentCfg := configx.MustNew[react.Config]("AGENT")
	serverCfg := configx.MustNew[server.Config]("SERVER")
	auditCfg := configx.MustNew[audit.Config]("AUDIT")

	provider := paypalx.MustNew(*paypalCfg)

	model, err := openaiCfg.New(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize chat model")
	}
	if client := openaix.NewClient(*openaiCfg); client != nil {
		if err := openaix.VerifyCredentials(ctx, client, openaiCfg.Model); err != nil {
			log.Fatal().Err(err).Msg("model credential check failed")
		}
	}

	registry := tool.NewRegistry()
	if err := tool.RegisterPaymentTools(registry); err != nil {
		log.Fatal().Err(err).Msg("failed to register payment tools")
	}

	gateway, err := llm.NewChatGateway(model, prompt.System())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize model gateway")
	}

	var recorder audit.Recorder = audit.Noop{}
	if auditCfg.DSN != "" {
		store, err := audit.NewStore(*auditCfg)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to open audit store")
		}
		if err := store.Init(ctx); err != nil {
			log.Fatal().Err(err).Msg("failed to initialize audit store")
		}
		defer store.Close()
		recorder = store
	}

	agent, err := react.New(gateway, registry, provider, recorder, *agentCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize agent")
	}

	srv := server.New(*serverCfg, agent, provider, logs)
	if err := srv.Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("server failed")
	}
}
