package project

import (
	"context"
	"log/slog"
	"time"

	"cyberrange-server/internal/catalog"
	"cyberrange-server/internal/economy"
	"cyberrange-server/internal/player"
	"cyberrange-server/internal/shared/config"
	"cyberrange-server/internal/shared/errors"
)

// Result is returned from a completed special project.
type Result struct {
	ProjectID      string  `json:"project_id"`
	Cost           float64 `json:"cost"`
	BudgetLeft     float64 `json:"budget_left"`
	ApplyForBudget bool    `json:"apply_for_budget"`
}

// Service implements one-time special projects. A completed project
// grants a permanent per-threat effectiveness bonus in settlement.
type Service struct {
	players  player.Store
	catalogs catalog.Source
	game     config.GameConfig
	now      func() time.Time
	logger   *slog.Logger
}

func NewService(players player.Store, catalogs catalog.Source, game config.GameConfig) *Service {
	return &Service{
		players:  players,
		catalogs: catalogs,
		game:     game,
		now:      time.Now,
		logger:   slog.With("component", "project_service"),
	}
}

// Complete buys and finishes a project for the player. Each project can
// be completed once.
func (s *Service) Complete(ctx context.Context, playerID, projectID string) (*Result, error) {
	if projectID == "" {
		return nil, errors.Validation("project id is required")
	}

	projects, err := s.catalogs.Projects(ctx)
	if err != nil {
		return nil, err
	}
	controls, err := s.catalogs.Controls(ctx)
	if err != nil {
		return nil, err
	}

	project, ok := projects[projectID]
	if !ok {
		return nil, errors.UnknownReferencef("unknown project %s", projectID)
	}

	now := s.now().UTC()
	cost := float64(project.Cost)
	var result Result

	_, err = s.players.Update(ctx, playerID, func(state *player.State) error {
		if state.IsPlaying {
			return errors.Conflictf("an attack is being resolved, projects are locked")
		}

		if state.HasCompletedProject(projectID) {
			return errors.AlreadyDonef("project %s was already completed", projectID)
		}
		if cost > state.CurrentBudget() {
			return errors.BudgetExceededf("project costs %.0f but budget is %.2f", cost, state.CurrentBudget())
		}

		state.Spend(cost)
		state.Projects = append(state.Projects, player.CompletedProject{
			ProjectID:   projectID,
			CompletedAt: now,
		})

		economy.RecomputeEligibility(state, controls, s.game.FundingThreshold)

		result = Result{
			ProjectID:      projectID,
			Cost:           cost,
			BudgetLeft:     state.CurrentBudget(),
			ApplyForBudget: state.ApplyForBudget,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Project completed",
		"player_id", playerID,
		"project_id", projectID,
		"cost", result.Cost)
	return &result, nil
}
