package session

import (
	"context"
	"log/slog"
	"time"

	"cyberrange-server/internal/catalog"
	"cyberrange-server/internal/shared/errors"
)

// Broadcaster pushes a JSON message to every connected client.
type Broadcaster interface {
	BroadcastJSON(v interface{})
}

// Service manages the global session lifecycle.
type Service struct {
	store     Store
	catalogs  catalog.Source
	broadcast Broadcaster
	now       func() time.Time
	logger    *slog.Logger
}

func NewService(store Store, catalogs catalog.Source, broadcast Broadcaster) *Service {
	return &Service{
		store:     store,
		catalogs:  catalogs,
		broadcast: broadcast,
		now:       time.Now,
		logger:    slog.With("component", "session_service"),
	}
}

// Start activates the session and resets the per-session exhaustion
// bookkeeping. Starting an already active session is a conflict. On
// success the controls catalog is pushed to all connected clients so
// they can render the shop immediately.
func (s *Service) Start(ctx context.Context) (*Session, error) {
	now := s.now().UTC()

	updated, err := s.store.Update(ctx, func(sess *Session) error {
		if sess.Active {
			return errors.Conflictf("game session is already active")
		}
		*sess = Session{
			Active:    true,
			StartedAt: &now,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Game session started", "started_at", now)

	if controls, err := s.catalogs.Controls(ctx); err != nil {
		s.logger.Warn("Failed to load controls catalog for start broadcast", "error", err)
	} else {
		s.broadcast.BroadcastJSON(map[string]interface{}{
			"event":    "game_started",
			"controls": controls,
		})
	}

	return updated, nil
}

// Stop deactivates the session. Stopping an inactive session is a
// conflict.
func (s *Service) Stop(ctx context.Context) (*Session, error) {
	now := s.now().UTC()

	updated, err := s.store.Update(ctx, func(sess *Session) error {
		if !sess.Active {
			return errors.Conflictf("game session is not active")
		}
		sess.Active = false
		sess.StoppedAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Game session stopped", "stopped_at", now)
	s.broadcast.BroadcastJSON(map[string]interface{}{"event": "game_stopped"})

	return updated, nil
}

// Status returns the current session document.
func (s *Service) Status(ctx context.Context) (*Session, error) {
	return s.store.Get(ctx)
}
