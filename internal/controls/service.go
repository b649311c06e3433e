package controls

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"cyberrange-server/internal/catalog"
	"cyberrange-server/internal/economy"
	"cyberrange-server/internal/player"
	"cyberrange-server/internal/shared/config"
	"cyberrange-server/internal/shared/errors"
)

// SelectionResult is returned from a successful control purchase.
type SelectionResult struct {
	Active         []player.ChosenControl `json:"active_controls"`
	Degraded       []string               `json:"degraded_controls"`
	Cost           float64                `json:"cost"`
	BudgetLeft     float64                `json:"budget_left"`
	ApplyForBudget bool                   `json:"apply_for_budget"`
}

// Service implements control selection and lazy degradation.
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
		logger:   slog.With("component", "controls_service"),
	}
}

// Select validates and records a control purchase. Selection is refused
// while an attack is pending against the player, for ids unknown to the
// catalog, and for ids anywhere in the player's selection history.
// Expired controls cannot be bought back. The merged set is partitioned
// by the degradation window on every call; there is no background sweep.
func (s *Service) Select(ctx context.Context, playerID string, controlIDs []string) (*SelectionResult, error) {
	if len(controlIDs) == 0 {
		return nil, errors.Validation("at least one control id is required")
	}

	chosen, err := dedupe(controlIDs)
	if err != nil {
		return nil, err
	}

	controls, err := s.catalogs.Controls(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	var result SelectionResult

	_, err = s.players.Update(ctx, playerID, func(state *player.State) error {
		if state.IsPlaying {
			return errors.Conflictf("an attack is being resolved, selection is locked")
		}

		var cost float64
		for _, id := range chosen {
			control, ok := controls[id]
			if !ok {
				return errors.UnknownReferencef("unknown control %s", id)
			}
			if state.HasSelected(id) {
				return errors.Conflictf("control %s was already chosen", id)
			}
			cost += float64(control.Cost)
		}

		if cost > state.CurrentBudget() {
			return errors.BudgetExceededf("controls cost %.0f but budget is %.2f", cost, state.CurrentBudget())
		}

		for _, id := range chosen {
			state.Controls = append(state.Controls, player.ChosenControl{ControlID: id, ChosenAt: now})
			state.ControlHistory = append(state.ControlHistory, id)
		}

		active, degraded := Partition(state.Controls, now, s.game.DegradeWindow)
		state.Controls = active

		state.Spend(cost)
		economy.RecomputeEligibility(state, controls, s.game.FundingThreshold)

		result = SelectionResult{
			Active:         active,
			Degraded:       degraded,
			Cost:           cost,
			BudgetLeft:     state.CurrentBudget(),
			ApplyForBudget: state.ApplyForBudget,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Controls selected",
		"player_id", playerID,
		"controls", chosen,
		"cost", result.Cost,
		"degraded", result.Degraded)
	return &result, nil
}

// Partition splits controls into those still within the degradation
// window and the ids of those that have aged out.
func Partition(controls []player.ChosenControl, now time.Time, window time.Duration) ([]player.ChosenControl, []string) {
	var active []player.ChosenControl
	var degraded []string

	for _, control := range controls {
		if now.Sub(control.ChosenAt) > window {
			degraded = append(degraded, control.ControlID)
		} else {
			active = append(active, control)
		}
	}
	return active, degraded
}

func dedupe(ids []string) ([]string, error) {
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if id == "" {
			return nil, errors.Validation("control id must not be empty")
		}
		if seen[id] {
			return nil, errors.Validationf("control %s appears more than once", id)
		}
		seen[id] = true
	}

	chosen := make([]string, 0, len(seen))
	for id := range seen {
		chosen = append(chosen, id)
	}
	sort.Strings(chosen)
	return chosen, nil
}
