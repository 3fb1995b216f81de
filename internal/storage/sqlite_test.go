package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/romangod6/sitemap-aggregator/internal/models"
)

func newTestStore(t *testing.T) Store {
	t.Helper()

	store, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	if err := store.Initialize(); err != nil {
		t.Fatalf("Failed to initialize store: %v", err)
	}
	return store
}

func TestOpenPicksSQLite(t *testing.T) {
	store := newTestStore(t)
	if _, ok := store.(*SQLiteStore); !ok {
		t.Fatalf("Expected *SQLiteStore for a file path, got %T", store)
	}
}

func TestRunLifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	run := models.NewRun("https://docs.example.org/index.rst.txt", "globalsitemap.xml")
	if err := store.CreateRun(ctx, run); err != nil {
		t.Fatalf("Failed to create run: %v", err)
	}

	got, err := store.GetRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("Failed to get run: %v", err)
	}
	if got == nil {
		t.Fatal("Expected run to exist")
	}
	if got.Status != models.RunRunning {
		t.Errorf("Expected status %q, got %q", models.RunRunning, got.Status)
	}
	if got.FinishedAt != nil {
		t.Errorf("Expected no finish time, got %v", got.FinishedAt)
	}

	run.Candidates = 3
	run.Sitemaps = []string{"https://a.example.com/sitemap.xml", "https://b.example.com/sitemap.xml"}
	run.Dropped = []string{"https://c.example.com/sitemap.xml"}
	run.Finish(nil)
	if err := store.UpdateRun(ctx, run); err != nil {
		t.Fatalf("Failed to update run: %v", err)
	}

	got, err = store.GetRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("Failed to get run: %v", err)
	}
	if got.Status != models.RunCompleted {
		t.Errorf("Expected status %q, got %q", models.RunCompleted, got.Status)
	}
	if got.Candidates != 3 {
		t.Errorf("Expected 3 candidates, got %d", got.Candidates)
	}
	if len(got.Sitemaps) != 2 || got.Sitemaps[1] != "https://b.example.com/sitemap.xml" {
		t.Errorf("Expected sitemaps to round-trip in order, got %v", got.Sitemaps)
	}
	if len(got.Dropped) != 1 {
		t.Errorf("Expected 1 dropped URL, got %v", got.Dropped)
	}
	if got.FinishedAt == nil || !got.FinishedAt.Equal(*run.FinishedAt) {
		t.Errorf("Expected finish time %v, got %v", run.FinishedAt, got.FinishedAt)
	}
	if !got.StartedAt.Equal(run.StartedAt) {
		t.Errorf("Expected start time %v, got %v", run.StartedAt, got.StartedAt)
	}
}

func TestFailedRunKeepsError(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	run := models.NewRun("https://docs.example.org/index.rst.txt", "globalsitemap.xml")
	store.CreateRun(ctx, run)
	run.Finish(errors.New("request timed out"))
	if err := store.UpdateRun(ctx, run); err != nil {
		t.Fatalf("Failed to update run: %v", err)
	}

	got, _ := store.GetRun(ctx, run.ID)
	if got.Status != models.RunError || got.Error != "request timed out" {
		t.Errorf("Expected error status with message, got %q / %q", got.Status, got.Error)
	}
}

func TestListRunsNewestFirst(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	base := time.Now()
	var ids []uuid.UUID
	for i := 0; i < 3; i++ {
		run := models.NewRun("https://docs.example.org/index.rst.txt", "globalsitemap.xml")
		run.StartedAt = base.Add(time.Duration(i) * time.Minute)
		if err := store.CreateRun(ctx, run); err != nil {
			t.Fatalf("Failed to create run: %v", err)
		}
		ids = append(ids, run.ID)
	}

	runs, err := store.ListRuns(ctx, 2, 0)
	if err != nil {
		t.Fatalf("Failed to list runs: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("Expected 2 runs, got %d", len(runs))
	}
	if runs[0].ID != ids[2] || runs[1].ID != ids[1] {
		t.Errorf("Expected newest runs first, got %s, %s", runs[0].ID, runs[1].ID)
	}
}

func TestGetUnknownRun(t *testing.T) {
	store := newTestStore(t)

	run, err := store.GetRun(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("Expected no error for unknown run, got %v", err)
	}
	if run != nil {
		t.Errorf("Expected nil run, got %+v", run)
	}
}

func TestUpdateUnknownRun(t *testing.T) {
	store := newTestStore(t)

	run := models.NewRun("https://docs.example.org/index.rst.txt", "globalsitemap.xml")
	if err := store.UpdateRun(context.Background(), run); err == nil {
		t.Error("Expected error updating a run that was never created")
	}
}
