package crawler

import (
	"context"
	"fmt"
	"time"

	"github.com/romangod6/sitemap-aggregator/internal/models"
	"github.com/romangod6/sitemap-aggregator/internal/sitemap"
	"github.com/romangod6/sitemap-aggregator/internal/storage"
	"github.com/romangod6/sitemap-aggregator/internal/utils"
	"github.com/samber/lo"
)

type Crawler struct {
	fetcher *Fetcher
	prober  *Prober
	writer  *sitemap.Writer
	store   storage.Store
	config  *CrawlerConfig
	logger  *utils.RunLogger
}

type CrawlerConfig struct {
	SourceURL    string
	Format       Format
	UserAgent    string
	FetchTimeout time.Duration
	ProbeTimeout time.Duration
	Workers      int
	Policy       ProbePolicy
}

// NewCrawler wires the pipeline. store may be nil, in which case runs are not
// recorded.
func NewCrawler(store storage.Store, writer *sitemap.Writer, config *CrawlerConfig, logger *utils.RunLogger) *Crawler {
	return &Crawler{
		fetcher: NewFetcher(config.UserAgent, config.FetchTimeout, logger),
		prober: NewProber(&ProberConfig{
			UserAgent: config.UserAgent,
			Timeout:   config.ProbeTimeout,
			Workers:   config.Workers,
			Policy:    config.Policy,
		}, logger),
		writer: writer,
		store:  store,
		config: config,
		logger: logger,
	}
}

// NewRun creates the record for the next run without starting it.
func (c *Crawler) NewRun() *models.Run {
	return models.NewRun(c.config.SourceURL, c.writer.Path())
}

// Run generates the sitemap index once.
func (c *Crawler) Run(ctx context.Context) (*models.Run, error) {
	run := c.NewRun()
	err := c.Execute(ctx, run)
	return run, err
}

// Execute fetches the landing page, extracts the projects, probes their
// sitemaps and writes the index. Nothing is written unless every step before
// the write succeeds.
func (c *Crawler) Execute(ctx context.Context, run *models.Run) (err error) {
	c.logger.LogInfo("Starting run %s for %s", run.ID, run.SourceURL)
	c.record(ctx, run, c.createRun)

	defer func() {
		run.Finish(err)
		if err != nil {
			c.logger.LogError("Run %s failed: %v", run.ID, err)
		} else {
			c.logger.LogInfo("Run %s completed: %d of %d sitemaps written to %s",
				run.ID, len(run.Sitemaps), run.Candidates, run.OutputPath)
		}
		c.record(context.WithoutCancel(ctx), run, c.updateRun)
	}()

	content, err := c.fetcher.Fetch(ctx, run.SourceURL)
	if err != nil {
		return err
	}

	projects, err := ParseLandingPage(content, c.config.Format)
	if err != nil {
		return fmt.Errorf("failed to parse landing page: %w", err)
	}
	run.Candidates = len(projects)
	c.logger.LogInfo("Found %d candidate projects", len(projects))

	kept, results, err := c.prober.Validate(ctx, projects)
	if err != nil {
		return err
	}

	run.Sitemaps = lo.Map(kept, func(p models.Project, _ int) string {
		return p.SitemapURL
	})
	run.Dropped = lo.FilterMap(results, func(r models.ProbeResult, _ int) (string, bool) {
		return r.Project.SitemapURL, r.Err == nil && !r.Kept
	})

	if err := c.writer.Write(run.Sitemaps); err != nil {
		return err
	}

	return nil
}

func (c *Crawler) createRun(ctx context.Context, run *models.Run) error {
	return c.store.CreateRun(ctx, run)
}

func (c *Crawler) updateRun(ctx context.Context, run *models.Run) error {
	return c.store.UpdateRun(ctx, run)
}

// record persists run state when a store is configured. Ledger failures are
// logged and never fail the run.
func (c *Crawler) record(ctx context.Context, run *models.Run, op func(context.Context, *models.Run) error) {
	if c.store == nil {
		return
	}
	if err := op(ctx, run); err != nil {
		c.logger.LogError("Failed to record run %s: %v", run.ID, err)
	}
}
