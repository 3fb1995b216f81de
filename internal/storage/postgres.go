package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/romangod6/sitemap-aggregator/internal/models"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(connStr string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Initialize() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS runs (
            id UUID PRIMARY KEY,
            source_url VARCHAR(2048) NOT NULL,
            output_path VARCHAR(1024) NOT NULL,
            status VARCHAR(32) NOT NULL,
            candidates INTEGER NOT NULL DEFAULT 0,
            sitemaps TEXT[],
            dropped TEXT[],
            error TEXT,
            started_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
            finished_at TIMESTAMPTZ
        )`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at)`,
	}

	for _, query := range queries {
		if _, err := s.db.Exec(query); err != nil {
			return fmt.Errorf("error executing query %s: %w", query, err)
		}
	}

	return nil
}

func (s *PostgresStore) CreateRun(ctx context.Context, run *models.Run) error {
	query := `
        INSERT INTO runs (id, source_url, output_path, status, candidates, sitemaps, dropped, error, started_at, finished_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
    `

	_, err := s.db.ExecContext(ctx, query,
		run.ID,
		run.SourceURL,
		run.OutputPath,
		string(run.Status),
		run.Candidates,
		pq.Array(nonNil(run.Sitemaps)),
		pq.Array(nonNil(run.Dropped)),
		run.Error,
		run.StartedAt,
		run.FinishedAt,
	)

	return err
}

func (s *PostgresStore) UpdateRun(ctx context.Context, run *models.Run) error {
	query := `
        UPDATE runs SET
            status = $1,
            candidates = $2,
            sitemaps = $3,
            dropped = $4,
            error = $5,
            finished_at = $6
        WHERE id = $7
    `

	result, err := s.db.ExecContext(ctx, query,
		string(run.Status),
		run.Candidates,
		pq.Array(nonNil(run.Sitemaps)),
		pq.Array(nonNil(run.Dropped)),
		run.Error,
		run.FinishedAt,
		run.ID,
	)
	if err != nil {
		return err
	}

	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("run %s not found", run.ID)
	}

	return nil
}

func (s *PostgresStore) GetRun(ctx context.Context, id uuid.UUID) (*models.Run, error) {
	query := `
        SELECT id, source_url, output_path, status, candidates, sitemaps, dropped, error, started_at, finished_at
        FROM runs
        WHERE id = $1
    `

	runs, err := s.queryRuns(ctx, query, id)
	if err != nil {
		return nil, err
	}

	if len(runs) == 0 {
		return nil, nil
	}

	return runs[0], nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, limit, offset int) ([]*models.Run, error) {
	query := `
        SELECT id, source_url, output_path, status, candidates, sitemaps, dropped, error, started_at, finished_at
        FROM runs
        ORDER BY started_at DESC
        LIMIT $1 OFFSET $2
    `

	return s.queryRuns(ctx, query, limit, offset)
}

func (s *PostgresStore) queryRuns(ctx context.Context, query string, args ...interface{}) ([]*models.Run, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*models.Run
	for rows.Next() {
		var run models.Run
		var status string
		var errText sql.NullString
		var finishedAt sql.NullTime

		err := rows.Scan(
			&run.ID,
			&run.SourceURL,
			&run.OutputPath,
			&status,
			&run.Candidates,
			pq.Array(&run.Sitemaps),
			pq.Array(&run.Dropped),
			&errText,
			&run.StartedAt,
			&finishedAt,
		)

		if err != nil {
			return nil, err
		}

		run.Status = models.RunStatus(status)
		run.Error = errText.String
		if finishedAt.Valid {
			run.FinishedAt = &finishedAt.Time
		}

		runs = append(runs, &run)
	}

	return runs, rows.Err()
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}
