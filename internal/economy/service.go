package economy

import (
	"context"
	"log/slog"
	"math"
	"time"

	"cyberrange-server/internal/catalog"
	"cyberrange-server/internal/player"
	"cyberrange-server/internal/shared/config"
	"cyberrange-server/internal/shared/errors"
)

// GrantResult is the outcome of an approved funding request.
type GrantResult struct {
	Amount         float64 `json:"amount"`
	Efficiency     float64 `json:"efficiency"`
	BudgetLeft     float64 `json:"budget_left"`
	ApplyForBudget bool    `json:"apply_for_budget"`
}

// Service implements the budget engine: incremental grants sized by
// production efficiency.
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
		logger:   slog.With("component", "economy_service"),
	}
}

// RequestBudget grants the player extra budget out of their own
// production. Only players flagged as underfunded are eligible. The
// grant comes off production_amount, so funding is a reallocation, not
// free money.
func (s *Service) RequestBudget(ctx context.Context, playerID string) (*GrantResult, error) {
	controls, err := s.catalogs.Controls(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	var result GrantResult

	_, err = s.players.Update(ctx, playerID, func(state *player.State) error {
		if !state.ApplyForBudget {
			return errors.NotEligible("player is sufficiently funded")
		}

		efficiency := productionEfficiency(state)
		grant := grantAmount(efficiency, state.ProductionAmount)

		state.SetBudget(state.CurrentBudget() + grant)
		state.ProductionAmount -= grant
		state.BudgetGrants = append(state.BudgetGrants, player.BudgetGrant{
			Amount:    grant,
			GrantedAt: now,
		})

		RecomputeEligibility(state, controls, s.game.FundingThreshold)

		result = GrantResult{
			Amount:         grant,
			Efficiency:     efficiency,
			BudgetLeft:     state.CurrentBudget(),
			ApplyForBudget: state.ApplyForBudget,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Budget granted",
		"player_id", playerID,
		"amount", result.Amount,
		"efficiency", result.Efficiency)
	return &result, nil
}

// productionEfficiency is the percentage of expected production actually
// realized, clamped to [0,100]. With no attacks resolved yet there is no
// track record and efficiency is 0.
func productionEfficiency(state *player.State) float64 {
	if state.AttacksSuccessful+state.AttacksMitigated == 0 {
		return 0
	}

	expected := math.Max(state.ExpectedProduction, 1)
	efficiency := 100 * state.ProductionAmount / expected
	return math.Min(100, math.Max(0, efficiency))
}

// grantAmount sizes the grant by efficiency tier. A negative or missing
// production amount degrades the grant to 0 rather than failing.
func grantAmount(efficiency, productionAmount float64) float64 {
	if productionAmount <= 0 {
		return 0
	}

	var rate float64
	switch {
	case efficiency >= 80:
		rate = 0.10
	case efficiency >= 50:
		rate = 0.05
	default:
		rate = 0.03
	}

	return math.Round(productionAmount*rate*100) / 100
}
