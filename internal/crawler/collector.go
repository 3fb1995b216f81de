package crawler

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"
	"github.com/romangod6/sitemap-aggregator/internal/models"
	"github.com/romangod6/sitemap-aggregator/internal/utils"
)

var (
	ErrTimeout   = errors.New("request timed out")
	ErrBadStatus = errors.New("unexpected status code")
)

// ProbePolicy decides which probe statuses keep a candidate.
type ProbePolicy string

const (
	// PolicyNotFound drops only 404 responses.
	PolicyNotFound ProbePolicy = "not-found"
	// PolicyStrict keeps only 2xx responses.
	PolicyStrict ProbePolicy = "strict"
)

// Keep reports whether a candidate answering with status survives.
func (p ProbePolicy) Keep(status int) bool {
	if p == PolicyStrict {
		return status >= 200 && status < 300
	}
	return status != http.StatusNotFound
}

func newCollector(userAgent string, timeout time.Duration, options ...colly.CollectorOption) *colly.Collector {
	options = append([]colly.CollectorOption{
		colly.UserAgent(userAgent),
		colly.AllowURLRevisit(),
	}, options...)

	c := colly.NewCollector(options...)
	c.SetRequestTimeout(timeout)
	return c
}

// Fetcher downloads the landing page.
type Fetcher struct {
	collector *colly.Collector
	logger    *utils.RunLogger
}

func NewFetcher(userAgent string, timeout time.Duration, logger *utils.RunLogger) *Fetcher {
	return &Fetcher{
		collector: newCollector(userAgent, timeout, colly.ParseHTTPErrorResponse()),
		logger:    logger,
	}
}

// Fetch performs one GET of url and returns the body. A timeout is reported
// and returned wrapped in ErrTimeout; non-2xx answers wrap ErrBadStatus.
func (f *Fetcher) Fetch(ctx context.Context, url string) (string, error) {
	c := f.collector.Clone()

	var body string
	status := 0
	c.OnResponse(func(r *colly.Response) {
		status = r.StatusCode
		body = string(r.Body)
	})

	done := make(chan error, 1)
	go func() {
		done <- c.Visit(url)
	}()

	var err error
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case err = <-done:
	}

	if err != nil {
		if isTimeout(err) {
			f.logger.LogError("Timed out while trying to get request %s", url)
			return "", fmt.Errorf("%w: %s: %v", ErrTimeout, url, err)
		}
		return "", fmt.Errorf("failed to fetch %s: %w", url, err)
	}

	if status < 200 || status >= 300 {
		return "", &statusError{url: url, status: status}
	}

	return body, nil
}

// Prober checks candidate sitemap URLs with a bounded number of workers.
type Prober struct {
	collector *colly.Collector
	workers   int
	policy    ProbePolicy
	logger    *utils.RunLogger
}

type ProberConfig struct {
	UserAgent string
	Timeout   time.Duration
	Workers   int
	Policy    ProbePolicy
}

func NewProber(config *ProberConfig, logger *utils.RunLogger) *Prober {
	workers := config.Workers
	if workers < 1 {
		workers = 1
	}
	policy := config.Policy
	if policy == "" {
		policy = PolicyNotFound
	}

	return &Prober{
		// error statuses are answers here, not failures
		collector: newCollector(config.UserAgent, config.Timeout, colly.ParseHTTPErrorResponse()),
		workers:   workers,
		policy:    policy,
		logger:    logger,
	}
}

// Probe GETs url and returns the final status code.
func (p *Prober) Probe(url string) (int, error) {
	c := p.collector.Clone()

	status := 0
	c.OnResponse(func(r *colly.Response) {
		status = r.StatusCode
	})

	if err := c.Visit(url); err != nil {
		if isTimeout(err) {
			return 0, fmt.Errorf("%w: %s: %v", ErrTimeout, url, err)
		}
		return 0, err
	}

	return status, nil
}

// ProbeAll probes every project and returns results in input order,
// whatever order the probes complete in.
func (p *Prober) ProbeAll(ctx context.Context, projects []models.Project) ([]models.ProbeResult, error) {
	results := make([]models.ProbeResult, len(projects))

	// Create a semaphore channel to limit concurrency
	semaphore := make(chan struct{}, p.workers)
	wg := sync.WaitGroup{}

dispatch:
	for i, project := range projects {
		select {
		case <-ctx.Done():
			break dispatch
		case semaphore <- struct{}{}:
		}

		wg.Add(1)
		go func(i int, project models.Project) {
			defer wg.Done()
			defer func() { <-semaphore }()

			status, err := p.Probe(project.SitemapURL)
			results[i] = models.ProbeResult{
				Project:    project,
				StatusCode: status,
				Kept:       err == nil && p.policy.Keep(status),
				Err:        err,
			}
		}(i, project)
	}

	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return results, nil
}

// Validate returns the projects whose sitemap survives the policy, in input
// order, along with every probe result. The first transport failure (in input
// order) aborts validation.
func (p *Prober) Validate(ctx context.Context, projects []models.Project) ([]models.Project, []models.ProbeResult, error) {
	results, err := p.ProbeAll(ctx, projects)
	if err != nil {
		return nil, nil, err
	}

	kept := make([]models.Project, 0, len(results))
	for _, res := range results {
		if res.Err != nil {
			p.logger.LogError("Probe failed for %s (%s): %v", res.Project.SitemapURL, res.Project.Name, res.Err)
			return nil, results, fmt.Errorf("failed to probe %s: %w", res.Project.SitemapURL, res.Err)
		}
		if !res.Kept {
			p.logger.LogDebug("Dropping %s (%s): status %d", res.Project.SitemapURL, res.Project.Name, res.StatusCode)
			continue
		}
		kept = append(kept, res.Project)
	}

	return kept, results, nil
}

// statusError reports a non-2xx landing page.
type statusError struct {
	url    string
	status int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("%s: %d fetching %s", ErrBadStatus, e.status, e.url)
}

func (e *statusError) Unwrap() error {
	return ErrBadStatus
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
