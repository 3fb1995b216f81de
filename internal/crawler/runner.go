package crawler

import (
	"context"
	"errors"
	"sync"

	"github.com/romangod6/sitemap-aggregator/internal/models"
)

var ErrRunInProgress = errors.New("a run is already in progress")

// Runner allows one run of a Crawler at a time.
type Runner struct {
	crawler *Crawler
	mutex   sync.Mutex
	running bool
	last    *models.Run
}

func NewRunner(crawler *Crawler) *Runner {
	return &Runner{crawler: crawler}
}

func (r *Runner) acquire() bool {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if r.running {
		return false
	}
	r.running = true
	return true
}

func (r *Runner) release(run *models.Run) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.running = false
	r.last = run
}

// RunNow runs synchronously, or returns ErrRunInProgress.
func (r *Runner) RunNow(ctx context.Context) (*models.Run, error) {
	if !r.acquire() {
		return nil, ErrRunInProgress
	}
	run := r.crawler.NewRun()
	err := r.crawler.Execute(ctx, run)
	r.release(run)
	return run, err
}

// Start launches a run in the background and returns a snapshot of its
// initial state.
func (r *Runner) Start(ctx context.Context) (*models.Run, error) {
	if !r.acquire() {
		return nil, ErrRunInProgress
	}
	run := r.crawler.NewRun()
	snapshot := *run

	go func() {
		r.crawler.Execute(ctx, run)
		r.release(run)
	}()

	return &snapshot, nil
}

// LastRun returns a copy of the most recent finished run, or nil.
func (r *Runner) LastRun() *models.Run {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if r.last == nil {
		return nil
	}
	last := *r.last
	return &last
}
