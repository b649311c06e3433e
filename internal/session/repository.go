package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"

	"cyberrange-server/internal/shared/database"
	"cyberrange-server/internal/shared/errors"
)

// Store is the session persistence surface.
type Store interface {
	Get(ctx context.Context) (*Session, error)
	Update(ctx context.Context, mutate func(*Session) error) (*Session, error)
}

// Repository stores the session document as the single row of the
// game_session table. Update uses the same row-lock discipline as the
// player repository, which makes the exhaustion bookkeeping safe against
// overlapping scheduler ticks.
type Repository struct {
	db     *database.DB
	logger *slog.Logger
}

func NewRepository(db *database.DB) *Repository {
	return &Repository{
		db:     db,
		logger: slog.With("component", "session_repository"),
	}
}

func (r *Repository) Get(ctx context.Context) (*Session, error) {
	var doc []byte
	err := r.db.QueryRowContext(ctx, "SELECT state FROM game_session WHERE id = 1").Scan(&doc)
	if err == sql.ErrNoRows {
		return nil, errors.Inconsistencyf("game session row is missing")
	}
	if err != nil {
		r.logger.Error("Failed to load session", "error", err)
		return nil, errors.WrapUnavailable("failed to load session", err)
	}

	var session Session
	if err := json.Unmarshal(doc, &session); err != nil {
		return nil, errors.WrapInconsistency("session document is malformed", err)
	}
	return &session, nil
}

func (r *Repository) Update(ctx context.Context, mutate func(*Session) error) (*Session, error) {
	tx, err := r.db.BeginTxContext(ctx)
	if err != nil {
		return nil, errors.WrapUnavailable("failed to begin session update", err)
	}
	defer tx.Rollback()

	var doc []byte
	err = tx.QueryRowContext(ctx, "SELECT state FROM game_session WHERE id = 1 FOR UPDATE").Scan(&doc)
	if err == sql.ErrNoRows {
		return nil, errors.Inconsistencyf("game session row is missing")
	}
	if err != nil {
		r.logger.Error("Failed to lock session", "error", err)
		return nil, errors.WrapUnavailable("failed to load session", err)
	}

	var session Session
	if err := json.Unmarshal(doc, &session); err != nil {
		return nil, errors.WrapInconsistency("session document is malformed", err)
	}

	if err := mutate(&session); err != nil {
		return nil, err
	}

	updated, err := json.Marshal(&session)
	if err != nil {
		return nil, errors.WrapInternal("failed to encode session", err)
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE game_session SET state = $1, updated_at = NOW() WHERE id = 1", updated); err != nil {
		r.logger.Error("Failed to write session", "error", err)
		return nil, errors.WrapUnavailable("failed to update session", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.WrapUnavailable("failed to commit session update", err)
	}
	return &session, nil
}
