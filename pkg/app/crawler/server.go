// Package crawler implements app.Runner for the one-shot crawl process.
package crawler

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/predictionlabs/prediction-oracle/pkg/analyzer"
	"github.com/predictionlabs/prediction-oracle/pkg/config"
	"github.com/predictionlabs/prediction-oracle/pkg/crawler"
	"github.com/predictionlabs/prediction-oracle/pkg/marketstore"
	"github.com/predictionlabs/prediction-oracle/pkg/pgutil"
)

// Options are CLI overrides applied on top of the config file.
type Options struct {
	TargetEvents int  // override crawler.target_events when > 0
	Concurrency  int  // override crawler.concurrency when > 0
	Analyze      bool // run AI analysis on crawled events
	ReanalyzeTop int  // re-analyze the top N stored cards instead of crawling
}

// Job holds configuration for a single crawl run.
type Job struct {
	cfg  *config.Config
	opts Options
}

// NewJob initializes a crawl Job.
func NewJob(cfg *config.Config, opts Options) *Job {
	return &Job{cfg: cfg, opts: opts}
}

// Run executes one crawl (or re-analysis) cycle and exits. It stops early
// when an OS shutdown signal is received.
func (j *Job) Run() error {
	if j.cfg == nil {
		return fmt.Errorf("nil config")
	}
	cfg := j.cfg

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := config.NewLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	if j.opts.TargetEvents > 0 {
		cfg.Crawler.TargetEvents = j.opts.TargetEvents
	}
	if j.opts.Concurrency > 0 {
		cfg.Crawler.Concurrency = j.opts.Concurrency
	}

	logger.Info("Starting crawler",
		zap.Int("target_events", cfg.Crawler.TargetEvents),
		zap.Int("concurrency", cfg.Crawler.Concurrency),
		zap.Bool("analyze", j.opts.Analyze),
		zap.Int("reanalyze_top", j.opts.ReanalyzeTop),
	)

	db, err := pgutil.ConnectDB(&cfg.Database)
	if err != nil {
		return fmt.Errorf("connect db: %w", err)
	}
	defer func() { _ = db.Close() }()
	logger.Info("Connected to database",
		zap.String("host", cfg.Database.Host),
		zap.String("database", cfg.Database.Database),
	)

	store := marketstore.NewStore(db)

	var ai *analyzer.Analyzer
	if j.opts.Analyze || j.opts.ReanalyzeTop > 0 {
		ai = analyzer.New(cfg.Analyzer, logger)
		if !ai.Enabled() {
			return fmt.Errorf("analysis requested but analyzer.api_key is not set")
		}
	}

	crawl := crawler.New(cfg.Crawler, crawler.NewClient(cfg.Crawler, logger), store, ai, logger)
	start := time.Now()

	if j.opts.ReanalyzeTop > 0 {
		analyzed, err := crawl.AnalyzeStored(ctx, j.opts.ReanalyzeTop)
		if err != nil {
			return fmt.Errorf("re-analysis failed: %w", err)
		}
		logger.Info("Re-analysis finished",
			zap.Int("cards", analyzed),
			zap.Duration("duration", time.Since(start)),
		)
		return nil
	}

	processed, err := crawl.Run(ctx)
	if err != nil {
		return fmt.Errorf("crawl failed: %w", err)
	}
	logger.Info("Crawl finished",
		zap.Int("events", processed),
		zap.Duration("duration", time.Since(start)),
	)
	return nil
}
