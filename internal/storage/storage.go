package storage

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/romangod6/sitemap-aggregator/internal/models"
)

type Store interface {
	Initialize() error
	Close() error

	// Run operations
	CreateRun(ctx context.Context, run *models.Run) error
	UpdateRun(ctx context.Context, run *models.Run) error
	GetRun(ctx context.Context, id uuid.UUID) (*models.Run, error)
	ListRuns(ctx context.Context, limit, offset int) ([]*models.Run, error)
}

// Open picks the backend from the DSN: postgres:// and postgresql:// URLs use
// Postgres, anything else is treated as a SQLite database path.
func Open(dsn string) (Store, error) {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return NewPostgresStore(dsn)
	}
	return NewSQLiteStore(dsn)
}
