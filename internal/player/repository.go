package player

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"

	"cyberrange-server/internal/shared/database"
	"cyberrange-server/internal/shared/errors"
)

// Store is the player persistence surface the game engines depend on.
type Store interface {
	Create(ctx context.Context, playerID string, state *State) error
	Get(ctx context.Context, playerID string) (*State, error)
	ListIDs(ctx context.Context) ([]string, error)
	Update(ctx context.Context, playerID string, mutate func(*State) error) (*State, error)
}

// Repository stores player documents in the players table. Update runs
// the mutation inside a transaction holding a row lock, which gives each
// player's document read-modify-write atomicity across engines.
type Repository struct {
	db     *database.DB
	logger *slog.Logger
}

func NewRepository(db *database.DB) *Repository {
	return &Repository{
		db:     db,
		logger: slog.With("component", "player_repository"),
	}
}

func (r *Repository) Create(ctx context.Context, playerID string, state *State) error {
	doc, err := json.Marshal(state)
	if err != nil {
		return errors.WrapInternal("failed to encode player state", err)
	}

	result, err := r.db.ExecContext(ctx,
		"INSERT INTO players (player_id, state) VALUES ($1, $2) ON CONFLICT (player_id) DO NOTHING",
		playerID, doc)
	if err != nil {
		r.logger.Error("Failed to insert player", "player_id", playerID, "error", err)
		return errors.WrapUnavailable("failed to create player", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return errors.WrapUnavailable("failed to create player", err)
	}
	if rows == 0 {
		return errors.Conflictf("player %s already exists", playerID)
	}
	return nil
}

func (r *Repository) Get(ctx context.Context, playerID string) (*State, error) {
	var doc []byte
	err := r.db.QueryRowContext(ctx,
		"SELECT state FROM players WHERE player_id = $1", playerID).Scan(&doc)
	if err == sql.ErrNoRows {
		return nil, errors.NotFoundf("player %s not found", playerID)
	}
	if err != nil {
		r.logger.Error("Failed to load player", "player_id", playerID, "error", err)
		return nil, errors.WrapUnavailable("failed to load player", err)
	}

	var state State
	if err := json.Unmarshal(doc, &state); err != nil {
		return nil, errors.WrapInconsistency("player document is malformed", err)
	}
	return &state, nil
}

func (r *Repository) ListIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT player_id FROM players ORDER BY player_id")
	if err != nil {
		r.logger.Error("Failed to list players", "error", err)
		return nil, errors.WrapUnavailable("failed to list players", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, errors.WrapUnavailable("failed to scan player id", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.WrapUnavailable("failed to iterate players", err)
	}
	return ids, nil
}

// Update loads the player document under SELECT ... FOR UPDATE, applies
// the mutation, and writes the result back in the same transaction. An
// error from mutate aborts the update and is returned unchanged, so
// business-rule rejections roll back cleanly.
func (r *Repository) Update(ctx context.Context, playerID string, mutate func(*State) error) (*State, error) {
	tx, err := r.db.BeginTxContext(ctx)
	if err != nil {
		return nil, errors.WrapUnavailable("failed to begin player update", err)
	}
	defer tx.Rollback()

	var doc []byte
	err = tx.QueryRowContext(ctx,
		"SELECT state FROM players WHERE player_id = $1 FOR UPDATE", playerID).Scan(&doc)
	if err == sql.ErrNoRows {
		return nil, errors.NotFoundf("player %s not found", playerID)
	}
	if err != nil {
		r.logger.Error("Failed to lock player", "player_id", playerID, "error", err)
		return nil, errors.WrapUnavailable("failed to load player", err)
	}

	var state State
	if err := json.Unmarshal(doc, &state); err != nil {
		return nil, errors.WrapInconsistency("player document is malformed", err)
	}

	if err := mutate(&state); err != nil {
		return nil, err
	}

	updated, err := json.Marshal(&state)
	if err != nil {
		return nil, errors.WrapInternal("failed to encode player state", err)
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE players SET state = $1, updated_at = NOW() WHERE player_id = $2",
		updated, playerID); err != nil {
		r.logger.Error("Failed to write player", "player_id", playerID, "error", err)
		return nil, errors.WrapUnavailable("failed to update player", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.WrapUnavailable("failed to commit player update", err)
	}
	return &state, nil
}
