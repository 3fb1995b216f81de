package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/romangod6/sitemap-aggregator/internal/models"
)

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Initialize() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS runs (
            id TEXT PRIMARY KEY,
            source_url TEXT NOT NULL,
            output_path TEXT NOT NULL,
            status TEXT NOT NULL,
            candidates INTEGER NOT NULL DEFAULT 0,
            sitemaps TEXT,
            dropped TEXT,
            error TEXT,
            started_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
            finished_at DATETIME
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

func (s *SQLiteStore) CreateRun(ctx context.Context, run *models.Run) error {
	query := `
        INSERT INTO runs (id, source_url, output_path, status, candidates, sitemaps, dropped, error, started_at, finished_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
    `

	sitemapsJSON, droppedJSON, err := marshalURLs(run)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, query,
		run.ID.String(),
		run.SourceURL,
		run.OutputPath,
		string(run.Status),
		run.Candidates,
		sitemapsJSON,
		droppedJSON,
		run.Error,
		run.StartedAt,
		run.FinishedAt,
	)

	return err
}

func (s *SQLiteStore) UpdateRun(ctx context.Context, run *models.Run) error {
	query := `
        UPDATE runs SET
            status = ?,
            candidates = ?,
            sitemaps = ?,
            dropped = ?,
            error = ?,
            finished_at = ?
        WHERE id = ?
    `

	sitemapsJSON, droppedJSON, err := marshalURLs(run)
	if err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, query,
		string(run.Status),
		run.Candidates,
		sitemapsJSON,
		droppedJSON,
		run.Error,
		run.FinishedAt,
		run.ID.String(),
	)
	if err != nil {
		return err
	}

	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("run %s not found", run.ID)
	}

	return nil
}

func (s *SQLiteStore) GetRun(ctx context.Context, id uuid.UUID) (*models.Run, error) {
	query := `
        SELECT id, source_url, output_path, status, candidates, sitemaps, dropped, error, started_at, finished_at
        FROM runs
        WHERE id = ?
    `

	runs, err := s.queryRuns(ctx, query, id.String())
	if err != nil {
		return nil, err
	}

	if len(runs) == 0 {
		return nil, nil
	}

	return runs[0], nil
}

func (s *SQLiteStore) ListRuns(ctx context.Context, limit, offset int) ([]*models.Run, error) {
	query := `
        SELECT id, source_url, output_path, status, candidates, sitemaps, dropped, error, started_at, finished_at
        FROM runs
        ORDER BY started_at DESC
        LIMIT ? OFFSET ?
    `

	return s.queryRuns(ctx, query, limit, offset)
}

func (s *SQLiteStore) queryRuns(ctx context.Context, query string, args ...interface{}) ([]*models.Run, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*models.Run
	for rows.Next() {
		var run models.Run
		var idStr, status string
		var sitemapsJSON, droppedJSON, errText sql.NullString
		var finishedAt sql.NullTime

		err := rows.Scan(
			&idStr,
			&run.SourceURL,
			&run.OutputPath,
			&status,
			&run.Candidates,
			&sitemapsJSON,
			&droppedJSON,
			&errText,
			&run.StartedAt,
			&finishedAt,
		)

		if err != nil {
			return nil, err
		}

		run.ID, _ = uuid.Parse(idStr)
		run.Status = models.RunStatus(status)
		run.Error = errText.String
		if finishedAt.Valid {
			run.FinishedAt = &finishedAt.Time
		}
		if sitemapsJSON.Valid {
			json.Unmarshal([]byte(sitemapsJSON.String), &run.Sitemaps)
		}
		if droppedJSON.Valid {
			json.Unmarshal([]byte(droppedJSON.String), &run.Dropped)
		}

		runs = append(runs, &run)
	}

	return runs, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func marshalURLs(run *models.Run) (string, string, error) {
	sitemapsJSON, err := json.Marshal(nonNil(run.Sitemaps))
	if err != nil {
		return "", "", err
	}
	droppedJSON, err := json.Marshal(nonNil(run.Dropped))
	if err != nil {
		return "", "", err
	}
	return string(sitemapsJSON), string(droppedJSON), nil
}

func nonNil(urls []string) []string {
	if urls == nil {
		return []string{}
	}
	return urls
}
