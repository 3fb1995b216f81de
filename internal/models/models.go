package models

import (
	"time"

	"github.com/google/uuid"
)

// Project is one documentation card of the landing page.
type Project struct {
	Name       string `json:"name"`
	Link       string `json:"link"`
	SitemapURL string `json:"sitemapUrl"`
}

// ProbeResult is the outcome of one existence check against a SitemapURL.
type ProbeResult struct {
	Project    Project `json:"project"`
	StatusCode int     `json:"statusCode"`
	Kept       bool    `json:"kept"`
	Err        error   `json:"-"`
}

type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunError     RunStatus = "error"
)

// Run summarizes one generation of the sitemap index.
type Run struct {
	ID         uuid.UUID  `json:"id"`
	SourceURL  string     `json:"sourceUrl"`
	OutputPath string     `json:"outputPath"`
	Status     RunStatus  `json:"status"`
	Candidates int        `json:"candidates"`
	Sitemaps   []string   `json:"sitemaps"`
	Dropped    []string   `json:"dropped"`
	Error      string     `json:"error,omitempty"`
	StartedAt  time.Time  `json:"startedAt"`
	FinishedAt *time.Time `json:"finishedAt,omitempty"`
}

// NewRun creates a running Run with a generated UUID.
func NewRun(sourceURL, outputPath string) *Run {
	return &Run{
		ID:         uuid.New(),
		SourceURL:  sourceURL,
		OutputPath: outputPath,
		Status:     RunRunning,
		StartedAt:  time.Now(),
	}
}

// Finish stamps the run and sets its final status from err.
func (r *Run) Finish(err error) {
	now := time.Now()
	r.FinishedAt = &now
	if err != nil {
		r.Status = RunError
		r.Error = err.Error()
		return
	}
	r.Status = RunCompleted
}
