package attack

import (
	"context"
	"log/slog"
	"math/rand"
	"time"

	"cyberrange-server/internal/catalog"
	"cyberrange-server/internal/player"
	"cyberrange-server/internal/selector"
	"cyberrange-server/internal/session"
	"cyberrange-server/internal/shared/config"
	"cyberrange-server/internal/shared/errors"
)

// Cycle runs one scheduled attack: pick an unused threat, announce it,
// settle it against every player, then release the stats recalculator.
type Cycle struct {
	sessions  session.Store
	players   player.Store
	catalogs  catalog.Source
	settle    *Service
	broadcast session.Broadcaster
	game      config.GameConfig
	rng       *rand.Rand
	now       func() time.Time
	logger    *slog.Logger
}

func NewCycle(sessions session.Store, players player.Store, catalogs catalog.Source, settle *Service, broadcast session.Broadcaster, game config.GameConfig) *Cycle {
	return &Cycle{
		sessions:  sessions,
		players:   players,
		catalogs:  catalogs,
		settle:    settle,
		broadcast: broadcast,
		game:      game,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
		now:       time.Now,
		logger:    slog.With("component", "attack_cycle"),
	}
}

// Run executes one attack tick. It is a no-op while the session is
// inactive or still inside the post-start grace period. An exhausted
// threat pool ends the game.
func (c *Cycle) Run(ctx context.Context) error {
	now := c.now().UTC()

	current, err := c.sessions.Get(ctx)
	if err != nil {
		return err
	}
	if !current.Active || current.StartedAt == nil {
		return nil
	}
	if now.Sub(*current.StartedAt) < c.game.AttackGracePeriod {
		c.logger.Debug("Inside grace period, skipping attack",
			"started_at", current.StartedAt)
		return nil
	}

	threats, err := c.catalogs.Threats(ctx)
	if err != nil {
		return err
	}

	// Pick and record inside one session update so concurrent ticks can
	// never announce the same threat twice.
	var threat catalog.Threat
	_, err = c.sessions.Update(ctx, func(sess *session.Session) error {
		if !sess.Active {
			return errors.Conflictf("session stopped before announcement")
		}

		_, picked, err := selector.Pick(threats, func(_ string, t catalog.Threat) bool {
			return sess.HasUsedThreat(t.Name)
		}, c.rng)
		if err != nil {
			return err
		}

		threat = picked
		sess.UsedThreatNames = append(sess.UsedThreatNames, picked.Name)
		sess.LastAttackAt = &now
		sess.PendingStatsRefresh = true
		return nil
	})
	if errors.Is(err, errors.ErrorTypePoolExhausted) {
		return c.endGame(ctx)
	}
	if errors.Is(err, errors.ErrorTypeConflict) {
		return nil
	}
	if err != nil {
		return err
	}

	c.logger.Info("Attack announced", "threat", threat.Name, "downtime", threat.Downtime)
	c.broadcast.BroadcastJSON(map[string]interface{}{
		"event":  "attack",
		"attack": threat.Name,
	})

	c.markPlaying(ctx)

	if _, err := c.settle.SettleAll(ctx, threat, *current.StartedAt); err != nil {
		c.logger.Error("Settlement batch failed", "threat", threat.Name, "error", err)
	}

	// Settlement is done; let the periodic recalculator run again.
	if _, err := c.sessions.Update(ctx, func(sess *session.Session) error {
		sess.PendingStatsRefresh = false
		return nil
	}); err != nil {
		c.logger.Error("Failed to clear pending stats refresh", "error", err)
	}

	return nil
}

// markPlaying locks every player out of control selection for the
// duration of the settlement batch. Per-player failures are logged and
// skipped.
func (c *Cycle) markPlaying(ctx context.Context) {
	playerIDs, err := c.players.ListIDs(ctx)
	if err != nil {
		c.logger.Error("Failed to list players for attack lock", "error", err)
		return
	}

	for _, playerID := range playerIDs {
		_, err := c.players.Update(ctx, playerID, func(state *player.State) error {
			state.IsPlaying = true
			return nil
		})
		if err != nil {
			c.logger.Error("Failed to lock player for settlement",
				"player_id", playerID, "error", err)
		}
	}
}

// endGame stops the session once every threat has been used.
func (c *Cycle) endGame(ctx context.Context) error {
	now := c.now().UTC()

	c.logger.Info("Threat pool exhausted, ending game")
	c.broadcast.BroadcastJSON(map[string]interface{}{"event": "game_over"})

	_, err := c.sessions.Update(ctx, func(sess *session.Session) error {
		sess.Active = false
		sess.StoppedAt = &now
		sess.PendingStatsRefresh = false
		return nil
	})
	return err
}
