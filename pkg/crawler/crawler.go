// Package crawler ingests Polymarket events through the Gamma API, persists
// them as cards, snapshots and tags, and pushes fresh events through AI
// analysis.
package crawler

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/predictionlabs/prediction-oracle/internal/metrics"
	"github.com/predictionlabs/prediction-oracle/pkg/analyzer"
	"github.com/predictionlabs/prediction-oracle/pkg/config"
	"github.com/predictionlabs/prediction-oracle/pkg/market"
	"github.com/predictionlabs/prediction-oracle/pkg/marketstore"
)

// Crawler drives the ingest pipeline.
type Crawler struct {
	cfg      config.CrawlerConfig
	client   *Client
	store    marketstore.Store
	analyzer *analyzer.Analyzer
	logger   *zap.Logger
}

// New wires the crawl pipeline. The analyzer may be nil or disabled; the
// crawl then persists market data without predictions.
func New(cfg config.CrawlerConfig, client *Client, store marketstore.Store, ai *analyzer.Analyzer, logger *zap.Logger) *Crawler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Crawler{
		cfg:      cfg,
		client:   client,
		store:    store,
		analyzer: ai,
		logger:   logger,
	}
}

// Run crawls up to cfg.TargetEvents events in concurrent pages and returns
// the number of events processed. Individual page failures are logged and
// skipped; the next run catches up.
func (c *Crawler) Run(ctx context.Context) (int, error) {
	offsets := make([]int, 0, (c.cfg.TargetEvents+c.cfg.PageSize-1)/c.cfg.PageSize)
	for offset := 0; offset < c.cfg.TargetEvents; offset += c.cfg.PageSize {
		offsets = append(offsets, offset)
	}

	c.logger.Info("starting crawl",
		zap.Int("target_events", c.cfg.TargetEvents),
		zap.Int("page_size", c.cfg.PageSize),
		zap.Int("concurrency", c.cfg.Concurrency))

	start := time.Now()
	sem := make(chan struct{}, c.cfg.Concurrency)
	var (
		wg    sync.WaitGroup
		total atomic.Int64
	)
	for _, offset := range offsets {
		wg.Add(1)
		go func(offset int) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				return
			}
			total.Add(int64(c.processPage(ctx, offset)))
		}(offset)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return int(total.Load()), err
	}

	if count, err := c.store.CountCards(ctx); err == nil {
		metrics.CardsTracked.Set(float64(count))
	}

	c.logger.Info("crawl finished",
		zap.Int("events", int(total.Load())),
		zap.Int("pages", len(offsets)),
		zap.Duration("elapsed", time.Since(start)))
	return int(total.Load()), nil
}

func (c *Crawler) processPage(ctx context.Context, offset int) int {
	start := time.Now()
	events, err := c.client.FetchPage(ctx, c.cfg.PageSize, offset)
	if err != nil {
		c.logger.Warn("page fetch failed", zap.Int("offset", offset), zap.Error(err))
		metrics.PagesFetched.WithLabelValues("error").Inc()
		return 0
	}
	metrics.PagesFetched.WithLabelValues("ok").Inc()
	if len(events) == 0 {
		return 0
	}

	cardIDs, err := c.saveBatch(ctx, events)
	if err != nil {
		c.logger.Error("failed to persist page", zap.Int("offset", offset), zap.Error(err))
		metrics.ErrorsTotal.WithLabelValues("crawler").Inc()
		return 0
	}
	metrics.EventsStored.Add(float64(len(events)))
	metrics.PageDuration.Observe(time.Since(start).Seconds())
	c.logger.Info("page persisted",
		zap.Int("offset", offset),
		zap.Int("events", len(events)),
		zap.Duration("elapsed", time.Since(start)))

	if c.analyzer != nil && c.analyzer.Enabled() {
		c.analyzeEvents(ctx, events, cardIDs)
	}
	return len(events)
}

// saveBatch persists one page: tags first so links can resolve, a snapshot
// per event for history, then the card upserts.
func (c *Crawler) saveBatch(ctx context.Context, events []*market.Event) (map[string]int64, error) {
	tagIDs := map[string]int64{}
	if tags := collectTags(events); len(tags) > 0 {
		var err error
		tagIDs, err = c.store.UpsertTags(ctx, tags)
		if err != nil {
			return nil, fmt.Errorf("failed to upsert tags: %w", err)
		}
	}

	snapshots := make([]*market.Snapshot, 0, len(events))
	cards := make([]*market.Card, 0, len(events))
	for _, ev := range events {
		snapshots = append(snapshots, market.NewSnapshot(ev))
		cards = append(cards, market.NewCardFromEvent(ev))
	}
	if err := c.store.InsertSnapshots(ctx, snapshots); err != nil {
		return nil, fmt.Errorf("failed to insert snapshots: %w", err)
	}
	cardIDs, err := c.store.UpsertCards(ctx, cards)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert cards: %w", err)
	}

	var links []marketstore.CardTagLink
	for _, ev := range events {
		cardID, ok := cardIDs[ev.PolymarketID()]
		if !ok {
			continue
		}
		for _, tag := range ev.Tags {
			tagID, ok := tagIDs[string(tag.ID)]
			if !ok {
				continue
			}
			links = append(links, marketstore.CardTagLink{CardID: cardID, TagID: tagID})
		}
	}
	if len(links) > 0 {
		if err := c.store.LinkCardTags(ctx, links); err != nil {
			return nil, fmt.Errorf("failed to link card tags: %w", err)
		}
	}
	return cardIDs, nil
}

// collectTags dedupes tags across a page. Entries missing an id or slug are
// dropped; the slug becomes the stored tag name.
func collectTags(events []*market.Event) []*market.Tag {
	byID := make(map[string]string)
	for _, ev := range events {
		for _, tag := range ev.Tags {
			if tag.ID == "" || tag.Slug == "" {
				continue
			}
			byID[string(tag.ID)] = tag.Slug
		}
	}
	tags := make([]*market.Tag, 0, len(byID))
	for id, slug := range byID {
		tags = append(tags, &market.Tag{PolymarketID: id, Name: slug})
	}
	return tags
}

// analyzeEvents runs AI analysis for each event on a page, pacing calls by
// cfg.AnalysisDelay. Failures skip the event so the card keeps its previous
// prediction.
func (c *Crawler) analyzeEvents(ctx context.Context, events []*market.Event, cardIDs map[string]int64) {
	for _, ev := range events {
		cardID, ok := cardIDs[ev.PolymarketID()]
		if !ok {
			continue
		}
		selection := market.SelectForAnalysis(ev)
		if selection == nil || len(selection.Markets) == 0 {
			continue
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(c.cfg.AnalysisDelay):
		}

		start := time.Now()
		result, err := c.analyzer.AnalyzeEvent(ctx, selection)
		metrics.AnalysisDuration.Observe(time.Since(start).Seconds())
		if err != nil {
			c.logger.Warn("analysis failed",
				zap.String("polymarket_id", ev.PolymarketID()),
				zap.String("title", ev.Title),
				zap.Error(err))
			metrics.AnalysesTotal.WithLabelValues("error").Inc()
			continue
		}

		prediction, err := buildPrediction(cardID, ev, result)
		if err != nil {
			c.logger.Warn("failed to encode analysis", zap.String("polymarket_id", ev.PolymarketID()), zap.Error(err))
			metrics.AnalysesTotal.WithLabelValues("error").Inc()
			continue
		}
		if err := c.store.ReplacePredictions(ctx, []*market.Prediction{prediction}); err != nil {
			c.logger.Warn("failed to store prediction", zap.String("polymarket_id", ev.PolymarketID()), zap.Error(err))
			metrics.AnalysesTotal.WithLabelValues("error").Inc()
			continue
		}
		metrics.AnalysesTotal.WithLabelValues("ok").Inc()
		c.logger.Info("analysis stored",
			zap.String("polymarket_id", ev.PolymarketID()),
			zap.String("title", ev.Title),
			zap.Int("markets", len(selection.Markets)))
	}
}

// AnalyzeStored re-runs AI analysis for the top stored cards by volume using
// their latest snapshots instead of a live crawl.
func (c *Crawler) AnalyzeStored(ctx context.Context, limit int) (int, error) {
	if c.analyzer == nil || !c.analyzer.Enabled() {
		return 0, analyzer.ErrNoAPIKey
	}

	cards, err := c.store.ListCards(ctx,
		marketstore.WithActiveOnly(),
		marketstore.WithVolumeSort(true),
		marketstore.WithLimit(limit))
	if err != nil {
		return 0, fmt.Errorf("failed to list cards: %w", err)
	}
	if len(cards) == 0 {
		return 0, nil
	}

	ids := make([]string, 0, len(cards))
	for _, card := range cards {
		ids = append(ids, card.PolymarketID)
	}
	snapshots, err := c.store.LatestSnapshots(ctx, ids)
	if err != nil {
		return 0, fmt.Errorf("failed to load snapshots: %w", err)
	}

	analyzed := 0
	for _, card := range cards {
		snapshot, ok := snapshots[card.PolymarketID]
		if !ok {
			c.logger.Warn("card has no snapshot", zap.String("polymarket_id", card.PolymarketID))
			continue
		}
		ev, err := market.ParseEvent(snapshot.RawData)
		if err != nil {
			c.logger.Warn("snapshot payload unreadable", zap.String("polymarket_id", card.PolymarketID), zap.Error(err))
			continue
		}
		selection := market.SelectForAnalysis(ev)
		if selection == nil || len(selection.Markets) == 0 {
			continue
		}

		select {
		case <-ctx.Done():
			return analyzed, ctx.Err()
		case <-time.After(c.cfg.AnalysisDelay):
		}

		start := time.Now()
		result, err := c.analyzer.AnalyzeEvent(ctx, selection)
		metrics.AnalysisDuration.Observe(time.Since(start).Seconds())
		if err != nil {
			c.logger.Warn("analysis failed",
				zap.String("polymarket_id", card.PolymarketID),
				zap.String("title", card.Title),
				zap.Error(err))
			metrics.AnalysesTotal.WithLabelValues("error").Inc()
			continue
		}

		prediction, err := buildPrediction(card.ID, ev, result)
		if err != nil {
			c.logger.Warn("failed to encode analysis", zap.String("polymarket_id", card.PolymarketID), zap.Error(err))
			metrics.AnalysesTotal.WithLabelValues("error").Inc()
			continue
		}
		if err := c.store.ReplacePredictions(ctx, []*market.Prediction{prediction}); err != nil {
			c.logger.Warn("failed to store prediction", zap.String("polymarket_id", card.PolymarketID), zap.Error(err))
			metrics.AnalysesTotal.WithLabelValues("error").Inc()
			continue
		}
		metrics.AnalysesTotal.WithLabelValues("ok").Inc()
		analyzed++
		c.logger.Info("analysis stored",
			zap.String("polymarket_id", card.PolymarketID),
			zap.String("title", card.Title),
			zap.Int("markets", len(selection.Markets)))
	}
	return analyzed, nil
}

// buildPrediction converts an analysis result into the stored prediction,
// backfilling each market's question and source odds into the raw document.
func buildPrediction(cardID int64, ev *market.Event, result *analyzer.Result) (*market.Prediction, error) {
	raw := result.RawAnalysis()
	for _, m := range ev.Markets {
		entry, ok := raw[string(m.ID)]
		if !ok {
			continue
		}
		question := m.Question
		odds := m.Odds()
		entry.Question = &question
		entry.OriginalOdds = &odds
	}
	encoded, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to encode raw analysis: %w", err)
	}

	outcome, confidence := result.PrimaryPrediction()
	return &market.Prediction{
		CardID:            cardID,
		Summary:           result.Summary(),
		ConfidenceScore:   analyzer.StoredConfidence(confidence),
		OutcomePrediction: outcome,
		RawAnalysis:       string(encoded),
	}, nil
}
