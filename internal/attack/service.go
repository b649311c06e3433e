package attack

import (
	"context"
	"log/slog"
	"math"
	"math/rand"
	"strconv"
	"time"

	"cyberrange-server/internal/catalog"
	"cyberrange-server/internal/player"
	"cyberrange-server/internal/shared/config"
)

// Outcome is one player's settled result for an attack.
type Outcome struct {
	PlayerID       string      `json:"player_id"`
	ThreatName     string      `json:"threat_name"`
	Succeeded      bool        `json:"succeeded"`
	Effectiveness  float64     `json:"effectiveness"`
	Draw           int         `json:"draw"`
	TopContributor Contributor `json:"top_contributor"`
}

// BatchSummary reports a settlement pass over all players. One player's
// failure never aborts the batch; failures are collected per player.
type BatchSummary struct {
	Total    int               `json:"total"`
	Settled  int               `json:"settled"`
	Failures map[string]string `json:"failures,omitempty"`
	Outcomes []Outcome         `json:"outcomes,omitempty"`
}

// Service settles announced attacks against every player.
type Service struct {
	players  player.Store
	catalogs catalog.Source
	game     config.GameConfig
	draw     func() int
	now      func() time.Time
	logger   *slog.Logger
}

func NewService(players player.Store, catalogs catalog.Source, game config.GameConfig) *Service {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	return &Service{
		players:  players,
		catalogs: catalogs,
		game:     game,
		draw:     func() int { return rng.Intn(100) },
		now:      time.Now,
		logger:   slog.With("component", "attack_service"),
	}
}

// SettleAll runs the settlement for every registered player. Each player
// is an independent unit of work; a failure is recorded in the summary
// and processing continues.
func (s *Service) SettleAll(ctx context.Context, threat catalog.Threat, sessionStart time.Time) (*BatchSummary, error) {
	controls, err := s.catalogs.Controls(ctx)
	if err != nil {
		return nil, err
	}
	projects, err := s.catalogs.Projects(ctx)
	if err != nil {
		return nil, err
	}

	playerIDs, err := s.players.ListIDs(ctx)
	if err != nil {
		return nil, err
	}

	summary := &BatchSummary{Total: len(playerIDs)}

	for _, playerID := range playerIDs {
		outcome, err := s.settlePlayer(ctx, playerID, threat, controls, projects, sessionStart)
		if err != nil {
			s.logger.Error("Settlement failed for player",
				"player_id", playerID, "threat", threat.Name, "error", err)
			if summary.Failures == nil {
				summary.Failures = map[string]string{}
			}
			summary.Failures[playerID] = err.Error()
			continue
		}
		summary.Settled++
		summary.Outcomes = append(summary.Outcomes, *outcome)
	}

	s.logger.Info("Attack settled",
		"threat", threat.Name,
		"players", summary.Total,
		"settled", summary.Settled,
		"failed", len(summary.Failures))
	return summary, nil
}

func (s *Service) settlePlayer(ctx context.Context, playerID string, threat catalog.Threat, controls map[string]catalog.Control, projects map[string]catalog.Project, sessionStart time.Time) (*Outcome, error) {
	now := s.now().UTC()
	draw := s.draw()
	var outcome Outcome

	_, err := s.players.Update(ctx, playerID, func(state *player.State) error {
		combined, best := Combined(state, controls, projects, threat.ID, now)

		// The draw must strictly beat the effectiveness percentage for
		// the attack to land; with no effective defense it always lands.
		succeeded := combined == 0 || draw > int(math.Round(combined*100))

		start := sessionStart
		if state.JoinedAt.After(start) {
			start = state.JoinedAt
		}
		expectedMinutes := math.Max(0, now.Sub(start).Minutes())

		attackDowntime := 0.0
		if succeeded {
			attackDowntime = float64(threat.Downtime)
			state.DowntimeMinutes += attackDowntime
		}

		rate := s.game.ProductionPerMinute
		state.ExpectedUptimeMinutes = expectedMinutes
		state.UptimeMinutes = math.Max(0, expectedMinutes-state.DowntimeMinutes)
		state.ProductionAmount = rate * state.UptimeMinutes
		state.ExpectedProduction = rate * expectedMinutes
		state.ProductionLoss = rate * state.DowntimeMinutes
		if succeeded {
			state.LossDueToAttack += rate * attackDowntime
		}

		// The history entry records what this attack alone cost; the
		// cumulative loss lives on the state fields.
		state.AttackHistory = append(state.AttackHistory, player.AttackRecord{
			ThreatName:      threat.Name,
			Succeeded:       succeeded,
			Earning:         state.ProductionAmount,
			ExpectedEarning: state.ExpectedProduction,
			Loss:            rate * attackDowntime,
			SettledAt:       now,
		})

		chosen := make([]string, 0, len(state.Controls))
		for _, control := range state.Controls {
			chosen = append(chosen, control.ControlID)
		}

		if state.Levels == nil {
			state.Levels = map[string]player.LevelRecord{}
		}
		state.Levels[nextLevel(state.Levels)] = player.LevelRecord{
			ThreatName:            threat.Name,
			Succeeded:             succeeded,
			ChosenControls:        chosen,
			MaxEffectiveControl:   best.Name,
			MaxEffectiveness:      best.Effectiveness,
			CombinedEffectiveness: combined,
			Uptime:                state.UptimeMinutes,
			Production:            state.ProductionAmount,
			SettledAt:             now,
		}

		if succeeded {
			state.AttacksSuccessful++
		} else {
			state.AttacksMitigated++
		}

		state.IsPlaying = false
		state.StatsUpdatedAt = now

		outcome = Outcome{
			PlayerID:       playerID,
			ThreatName:     threat.Name,
			Succeeded:      succeeded,
			Effectiveness:  combined,
			Draw:           draw,
			TopContributor: best,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &outcome, nil
}

// nextLevel returns the key one past the highest existing level number.
func nextLevel(levels map[string]player.LevelRecord) string {
	max := 0
	for key := range levels {
		if n, err := strconv.Atoi(key); err == nil && n > max {
			max = n
		}
	}
	return strconv.Itoa(max + 1)
}
