// Package archive persists resolved posts. The CSV backend is the default;
// MongoDB and PostgreSQL backends keep the same append-only contract.
package archive

import (
	"context"
	"fmt"

	"igcrawler/pkg/config"
	"igcrawler/pkg/logger"
	"igcrawler/pkg/models"
)

// Archive is an append-only store of posts keyed by post id
type Archive interface {
	// IDs returns every post id already stored
	IDs(ctx context.Context) (map[string]struct{}, error)
	// Append stores posts and returns how many were written. Ids already
	// present are ignored by the backend.
	Append(ctx context.Context, posts []models.Post) (int, error)
	Close(ctx context.Context) error
}

// Open returns the backend selected by cfg.Backend
func Open(ctx context.Context, cfg config.ArchiveConfig, log logger.Logger) (Archive, error) {
	if log == nil {
		log = logger.NewNopLogger()
	}
	log = log.WithField("backend", cfg.Backend)

	switch cfg.Backend {
	case config.BackendCSV, "":
		return NewCSV(cfg.CSVPath, log), nil
	case config.BackendMongo:
		return OpenMongo(ctx, cfg.Mongo, log)
	case config.BackendPostgres:
		return OpenPostgres(ctx, cfg.Postgres, log)
	default:
		return nil, fmt.Errorf("unknown archive backend %q", cfg.Backend)
	}
}
