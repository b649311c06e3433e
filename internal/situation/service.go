package situation

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

// Result is the outcome of resolving a situation option.
type Result struct {
	SituationID       string             `json:"situation_id"`
	OptionID          string             `json:"option_id"`
	EffectiveOptionID string             `json:"effective_option_id"`
	EffectKind        catalog.EffectKind `json:"effect_kind"`
	InsufficientFunds bool               `json:"insufficient_funds,omitempty"`
	AlreadyResolved   bool               `json:"already_resolved,omitempty"`
	BudgetLeft        float64            `json:"budget_left"`
	ApplyForBudget    bool               `json:"apply_for_budget"`
}

// Service implements situation resolution: each option carries exactly
// one effect, applied all-or-nothing within the player's atomic update.
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
		logger:   slog.With("component", "situation_service"),
	}
}

// Resolve applies the chosen option of a situation to the player.
// Re-submitting the exact (situation, option) pair is a success no-op so
// client retries are harmless. A cost option the player cannot afford
// falls back to the situation's default option and flags the response.
func (s *Service) Resolve(ctx context.Context, playerID, situationID, optionID string) (*Result, error) {
	if situationID == "" || optionID == "" {
		return nil, errors.Validation("situation id and option id are required")
	}

	situations, err := s.catalogs.Situations(ctx)
	if err != nil {
		return nil, err
	}
	controls, err := s.catalogs.Controls(ctx)
	if err != nil {
		return nil, err
	}

	situation, ok := situations[situationID]
	if !ok {
		return nil, errors.UnknownReferencef("unknown situation %s", situationID)
	}
	option, ok := situation.Options[optionID]
	if !ok {
		return nil, errors.UnknownReferencef("situation %s has no option %s", situationID, optionID)
	}

	now := s.now().UTC()
	var result Result

	_, err = s.players.Update(ctx, playerID, func(state *player.State) error {
		if state.IsPlaying {
			return errors.Conflictf("an attack is being resolved, situations are locked")
		}

		if state.ResolvedSituation(situationID, optionID) != nil {
			result = Result{
				SituationID:       situationID,
				OptionID:          optionID,
				EffectiveOptionID: optionID,
				AlreadyResolved:   true,
				BudgetLeft:        state.CurrentBudget(),
				ApplyForBudget:    state.ApplyForBudget,
			}
			return nil
		}

		effective := option
		insufficient := false

		if option.Effect.Kind == catalog.EffectCost && state.CurrentBudget() < option.Effect.Cost {
			fallback, ok := situation.Options[catalog.DefaultOptionID]
			if !ok {
				return errors.Inconsistencyf("situation %s is missing the default option", situationID)
			}
			effective = fallback
			insufficient = true
		}

		s.applyEffect(state, effective.Effect, now)

		state.Situations = append(state.Situations, player.SituationRecord{
			SituationID:       situationID,
			OptionID:          optionID,
			EffectiveOptionID: effective.ID,
			InsufficientFunds: insufficient,
			ResolvedAt:        now,
		})

		economy.RecomputeEligibility(state, controls, s.game.FundingThreshold)

		result = Result{
			SituationID:       situationID,
			OptionID:          optionID,
			EffectiveOptionID: effective.ID,
			EffectKind:        effective.Effect.Kind,
			InsufficientFunds: insufficient,
			BudgetLeft:        state.CurrentBudget(),
			ApplyForBudget:    state.ApplyForBudget,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.AlreadyResolved {
		s.logger.Debug("Situation already resolved, no-op",
			"player_id", playerID, "situation_id", situationID, "option_id", optionID)
	} else {
		s.logger.Info("Situation resolved",
			"player_id", playerID,
			"situation_id", situationID,
			"option_id", optionID,
			"effective_option_id", result.EffectiveOptionID,
			"insufficient_funds", result.InsufficientFunds)
	}
	return &result, nil
}

func (s *Service) applyEffect(state *player.State, effect catalog.Effect, now time.Time) {
	switch effect.Kind {
	case catalog.EffectCost:
		// A forced fallback may cost more than what is left; the budget
		// bottoms out at zero rather than going negative.
		cost := effect.Cost
		if budget := state.CurrentBudget(); cost > budget {
			cost = budget
		}
		state.Spend(cost)

	case catalog.EffectObsoleteControls:
		for _, id := range effect.ControlIDs {
			if !state.IsObsolete(id) {
				state.ObsoleteControls = append(state.ObsoleteControls, id)
			}
		}

	case catalog.EffectAffectedControls:
		until := now.Add(time.Duration(effect.AffectedMinutes) * time.Minute)
		for _, id := range effect.ControlIDs {
			state.AffectedControls = append(state.AffectedControls, player.AffectedControl{
				ControlID: id,
				Until:     until,
			})
		}

	case catalog.EffectDowntime:
		state.DowntimeMinutes += float64(effect.DowntimeMinutes)
	}
}
