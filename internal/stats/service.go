package stats

import (
	"context"
	"log/slog"
	"math"
	"time"

	"cyberrange-server/internal/player"
	"cyberrange-server/internal/session"
	"cyberrange-server/internal/shared/config"
)

// Summary reports one recalculation pass.
type Summary struct {
	Total     int               `json:"total"`
	Refreshed int               `json:"refreshed"`
	Skipped   bool              `json:"skipped,omitempty"`
	Failures  map[string]string `json:"failures,omitempty"`
}

// Service periodically refreshes uptime and production figures from
// elapsed time alone. It never touches attack or situation history, and
// it yields entirely to settlement via the session's pending flag.
type Service struct {
	players  player.Store
	sessions session.Store
	game     config.GameConfig
	now      func() time.Time
	logger   *slog.Logger
}

func NewService(players player.Store, sessions session.Store, game config.GameConfig) *Service {
	return &Service{
		players:  players,
		sessions: sessions,
		game:     game,
		now:      time.Now,
		logger:   slog.With("component", "stats_service"),
	}
}

// Recalculate refreshes every player's time-derived stats. It is a
// no-op while the session is inactive or an attack settlement is in
// flight. Per-player failures are isolated.
func (s *Service) Recalculate(ctx context.Context) (*Summary, error) {
	current, err := s.sessions.Get(ctx)
	if err != nil {
		return nil, err
	}
	if !current.Active || current.StartedAt == nil {
		return &Summary{Skipped: true}, nil
	}
	if current.PendingStatsRefresh {
		s.logger.Debug("Settlement in flight, skipping stats refresh")
		return &Summary{Skipped: true}, nil
	}

	playerIDs, err := s.players.ListIDs(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	sessionStart := *current.StartedAt
	summary := &Summary{Total: len(playerIDs)}

	for _, playerID := range playerIDs {
		_, err := s.players.Update(ctx, playerID, func(state *player.State) error {
			s.refresh(state, sessionStart, now)
			return nil
		})
		if err != nil {
			s.logger.Error("Stats refresh failed for player", "player_id", playerID, "error", err)
			if summary.Failures == nil {
				summary.Failures = map[string]string{}
			}
			summary.Failures[playerID] = err.Error()
			continue
		}
		summary.Refreshed++
	}

	s.logger.Debug("Stats recalculated",
		"players", summary.Total,
		"refreshed", summary.Refreshed,
		"failed", len(summary.Failures))
	return summary, nil
}

func (s *Service) refresh(state *player.State, sessionStart, now time.Time) {
	start := sessionStart
	if state.JoinedAt.After(start) {
		start = state.JoinedAt
	}
	elapsed := math.Max(0, now.Sub(start).Minutes())

	rate := s.game.ProductionPerMinute
	state.ExpectedUptimeMinutes = elapsed
	state.UptimeMinutes = math.Max(0, elapsed-state.DowntimeMinutes)
	state.ProductionAmount = rate * state.UptimeMinutes
	state.ExpectedProduction = rate * elapsed
	state.ProductionLoss = rate * state.DowntimeMinutes

	state.PruneAffectedControls(now)
	state.StatsUpdatedAt = now
}
