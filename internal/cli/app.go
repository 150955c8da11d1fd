package cli

import (
	"context"

	"careerscope/internal/api"
	"careerscope/internal/common"
	"careerscope/internal/config"
	"careerscope/internal/errors"
	"careerscope/internal/observability"
	"careerscope/internal/orchestrator"
	"careerscope/internal/state"
	"careerscope/internal/wizard"

	"github.com/fatih/color"
)

// app wires the client, stores, state machine, and orchestrator together for
// one command invocation.
type app struct {
	cfg    *config.Config
	logger *errors.Logger

	client   *api.Client
	sessions *state.SessionStore
	analysis *state.AnalysisStore
	machine  *wizard.StateMachine
	orch     *orchestrator.Orchestrator
	output   *common.OutputHandler
	obs      *observability.Manager
}

func newApp(ctx context.Context) (*app, error) {
	cfg := getConfigFromContext(ctx)
	logger := getLoggerFromContext(ctx)

	if cfg.App.NoColor {
		color.NoColor = true
	}

	obs, err := observability.NewManager(cfg.Observability, Version)
	if err != nil {
		return nil, err
	}

	sessions := state.NewSessionStore(cfg.App.SessionFile)
	sessions.Restore()
	analysis := state.NewAnalysisStore()
	machine := wizard.NewStateMachine()
	client := api.NewClient(cfg, sessions, logger)

	return &app{
		cfg:      cfg,
		logger:   logger,
		client:   client,
		sessions: sessions,
		analysis: analysis,
		machine:  machine,
		orch: orchestrator.New(cfg, client, sessions, analysis, machine,
			logger, obs.GetMetrics()),
		output: common.NewOutputHandler(logger),
		obs:    obs,
	}, nil
}

func (a *app) shutdown(ctx context.Context) {
	a.orch.Disconnect()
	if err := a.obs.Shutdown(ctx); err != nil {
		a.logger.LogError(err, "Observability shutdown failed")
	}
}

// requireSession fails fast for commands that only make sense after the
// wizard or analyze flow created a session.
func (a *app) requireSession() (string, error) {
	id := a.sessions.ID()
	if id == "" {
		return "", errors.NewSessionError(errors.ErrCodeSessionNotFound,
			"no active session; run 'careerscope wizard' or 'careerscope analyze' first", nil)
	}
	return id, nil
}
