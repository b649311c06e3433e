package player

import (
	"context"
	"log/slog"
	"time"

	"cyberrange-server/internal/shared/config"
	"cyberrange-server/internal/shared/errors"
)

// Service covers joining the game and reading player stats.
type Service struct {
	store  Store
	game   config.GameConfig
	now    func() time.Time
	logger *slog.Logger
}

func NewService(store Store, game config.GameConfig) *Service {
	return &Service{
		store:  store,
		game:   game,
		now:    time.Now,
		logger: slog.With("component", "player_service"),
	}
}

// Join creates the player's starting document. Joining twice is a
// conflict; the existing document is never reset.
func (s *Service) Join(ctx context.Context, playerID string) (*State, error) {
	if playerID == "" {
		return nil, errors.Validation("player id is required")
	}

	state := NewState(float64(s.game.InitialBudget), s.now().UTC())
	if err := s.store.Create(ctx, playerID, state); err != nil {
		return nil, err
	}

	s.logger.Info("Player joined", "player_id", playerID, "initial_budget", state.InitialBudget)
	return state, nil
}

// GetStats returns the player's current document. A player who has not
// joined yet gets the starting skeleton so the client can always render
// a stats panel.
func (s *Service) GetStats(ctx context.Context, playerID string) (*State, error) {
	if playerID == "" {
		return nil, errors.Validation("player id is required")
	}

	state, err := s.store.Get(ctx, playerID)
	if err != nil && errors.Is(err, errors.ErrorTypeNotFound) {
		return NewState(float64(s.game.InitialBudget), s.now().UTC()), nil
	}
	if err != nil {
		return nil, err
	}
	return state, nil
}
