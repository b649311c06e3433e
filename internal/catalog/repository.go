package catalog

import (
	"context"
	"database/sql"
	"log/slog"

	"cyberrange-server/internal/shared/database"
	"cyberrange-server/internal/shared/errors"
)

// Source serves the parsed game catalogs. The engines only ever read
// catalogs; authoring happens out of band through migrations.
type Source interface {
	Controls(ctx context.Context) (map[string]Control, error)
	Threats(ctx context.Context) (map[string]Threat, error)
	Situations(ctx context.Context) (map[string]Situation, error)
	Projects(ctx context.Context) (map[string]Project, error)
}

// Repository reads catalog documents from the catalogs table.
type Repository struct {
	db     *database.DB
	logger *slog.Logger
}

func NewRepository(db *database.DB) *Repository {
	return &Repository{
		db:     db,
		logger: slog.With("component", "catalog_repository"),
	}
}

func (r *Repository) loadDoc(ctx context.Context, name string) ([]byte, error) {
	var doc []byte
	err := r.db.QueryRowContext(ctx, "SELECT doc FROM catalogs WHERE name = $1", name).Scan(&doc)
	if err == sql.ErrNoRows {
		return nil, errors.NotFoundf("catalog %s not found", name)
	}
	if err != nil {
		r.logger.Error("Failed to load catalog document", "catalog", name, "error", err)
		return nil, errors.WrapUnavailable("failed to load catalog "+name, err)
	}
	return doc, nil
}

func (r *Repository) Controls(ctx context.Context) (map[string]Control, error) {
	doc, err := r.loadDoc(ctx, "controls")
	if err != nil {
		return nil, err
	}
	return ParseControls(doc)
}

func (r *Repository) Threats(ctx context.Context) (map[string]Threat, error) {
	doc, err := r.loadDoc(ctx, "threats")
	if err != nil {
		return nil, err
	}
	return ParseThreats(doc)
}

func (r *Repository) Situations(ctx context.Context) (map[string]Situation, error) {
	doc, err := r.loadDoc(ctx, "situations")
	if err != nil {
		return nil, err
	}
	return ParseSituations(doc)
}

func (r *Repository) Projects(ctx context.Context) (map[string]Project, error) {
	doc, err := r.loadDoc(ctx, "projects")
	if err != nil {
		return nil, err
	}
	return ParseProjects(doc)
}
