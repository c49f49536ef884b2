package services

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/worldloom/worldloom-backend/internal/apierr"
	"github.com/worldloom/worldloom-backend/internal/config"
	"github.com/worldloom/worldloom-backend/internal/logger"
	"github.com/worldloom/worldloom-backend/internal/revision"
	"github.com/worldloom/worldloom-backend/internal/sim"
	"github.com/worldloom/worldloom-backend/internal/types"
)

// AgentRunResult is the outcome of one agent traversal plus the prompt
// revision derived from it.
type AgentRunResult struct {
	Violations    []types.Violation `json:"violations"`
	Metrics       types.Metrics     `json:"metrics"`
	RevisedPrompt string            `json:"revised_prompt"`
	Explanation   string            `json:"explanation"`
}

// AgentService walks the exploration agent through a reconstructed scene and
// closes the loop with a revised prompt.
type AgentService struct {
	log    *logger.Logger
	cfg    config.Config
	scenes *ReconstructionService
}

func NewAgentService(log *logger.Logger, cfg config.Config, scenes *ReconstructionService) *AgentService {
	return &AgentService{
		log:    log.With("service", "AgentService"),
		cfg:    cfg,
		scenes: scenes,
	}
}

// RunAgent loads the scene asset, runs the simulation to completion on the
// demo path, and revises the prompt from the observed violations. The asset
// file must exist; a malformed asset still simulates, on the canonical
// scene. A started run always completes.
func (s *AgentService) RunAgent(ctx context.Context, assetPath, prompt string) (*AgentRunResult, error) {
	if _, err := os.Stat(assetPath); err != nil {
		return nil, apierr.New(http.StatusNotFound, apierr.CodeNotFound,
			fmt.Errorf("scene asset not found: %s", assetPath))
	}
	built := s.scenes.LoadSceneAsset(assetPath)

	world := sim.NewWorld(built, sim.DefaultPath(), sim.Options{
		Dt:    s.cfg.TickSeconds,
		Speed: s.cfg.AgentSpeed,
	})
	violations, metrics, err := sim.NewStepper(world, 0).Run(ctx)
	if err != nil {
		return nil, err
	}
	revised := revision.Revise(prompt, violations)

	s.log.Info("Agent run complete",
		"scene_source", built.Source,
		"violations", len(violations),
		"ticks", metrics.Ticks,
		"physics_score", metrics.PhysicsScore)

	if violations == nil {
		violations = []types.Violation{}
	}
	return &AgentRunResult{
		Violations:    violations,
		Metrics:       metrics,
		RevisedPrompt: revised.Text,
		Explanation:   revised.Explanation,
	}, nil
}
