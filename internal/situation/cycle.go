package situation

import (
	"context"
	"log/slog"
	"math/rand"
	"time"

	"cyberrange-server/internal/catalog"
	"cyberrange-server/internal/selector"
	"cyberrange-server/internal/session"
	"cyberrange-server/internal/shared/config"
	"cyberrange-server/internal/shared/errors"
)

// Cycle pushes situations to players on a schedule. A situation only
// fires inside a short window after an attack announcement so the event
// lands while players are reacting to the attack, and each situation
// fires at most once per session.
type Cycle struct {
	sessions  session.Store
	catalogs  catalog.Source
	broadcast session.Broadcaster
	game      config.GameConfig
	rng       *rand.Rand
	now       func() time.Time
	logger    *slog.Logger
}

func NewCycle(sessions session.Store, catalogs catalog.Source, broadcast session.Broadcaster, game config.GameConfig) *Cycle {
	return &Cycle{
		sessions:  sessions,
		catalogs:  catalogs,
		broadcast: broadcast,
		game:      game,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
		now:       time.Now,
		logger:    slog.With("component", "situation_cycle"),
	}
}

// Run executes one situation tick. Outside the post-attack window, or
// with no situations left, it is a no-op.
func (c *Cycle) Run(ctx context.Context) error {
	now := c.now().UTC()

	current, err := c.sessions.Get(ctx)
	if err != nil {
		return err
	}
	if !current.Active || current.LastAttackAt == nil {
		return nil
	}

	sinceAttack := now.Sub(*current.LastAttackAt)
	if sinceAttack < c.game.SituationWindowMin || sinceAttack > c.game.SituationWindowMax {
		return nil
	}

	situations, err := c.catalogs.Situations(ctx)
	if err != nil {
		return err
	}

	var picked catalog.Situation
	_, err = c.sessions.Update(ctx, func(sess *session.Session) error {
		if !sess.Active {
			return errors.Conflictf("session stopped before situation fired")
		}

		id, situation, err := selector.Pick(situations, func(id string, _ catalog.Situation) bool {
			return sess.HasUsedSituation(id)
		}, c.rng)
		if err != nil {
			return err
		}

		picked = situation
		sess.UsedSituationIDs = append(sess.UsedSituationIDs, id)
		return nil
	})
	if errors.Is(err, errors.ErrorTypePoolExhausted) {
		c.logger.Debug("Situation pool exhausted, nothing to fire")
		return nil
	}
	if errors.Is(err, errors.ErrorTypeConflict) {
		return nil
	}
	if err != nil {
		return err
	}

	c.logger.Info("Situation fired", "situation_id", picked.ID)
	c.broadcast.BroadcastJSON(map[string]interface{}{
		"event":     "situation",
		"situation": picked,
	})
	return nil
}
