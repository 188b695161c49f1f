package marketstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"github.com/uptrace/bun"

	"github.com/predictionlabs/prediction-oracle/pkg/market"
)

// pgStore implements Store backed by PostgreSQL via bun.
type pgStore struct {
	db *bun.DB
}

// NewStore creates a new PostgreSQL-backed store.
func NewStore(db *bun.DB) *pgStore {
	return &pgStore{db: db}
}

// UpsertCards inserts new event cards and refreshes existing ones keyed by
// polymarket_id. Title, volume, image_url, is_active and updated_at are taken
// from the incoming card on conflict; slug, description and end_date keep
// their first-crawl values. Returns a polymarket_id -> card id map.
func (s *pgStore) UpsertCards(ctx context.Context, cards []*market.Card) (map[string]int64, error) {
	ids := make(map[string]int64, len(cards))
	if len(cards) == 0 {
		return ids, nil
	}

	// Postgres rejects ON CONFLICT DO UPDATE hitting the same row twice in
	// one statement, so duplicate polymarket ids collapse to the last copy.
	index := make(map[string]int, len(cards))
	daos := make([]*EventCardDao, 0, len(cards))
	for _, card := range cards {
		dao := toEventCardDao(card)
		if i, ok := index[dao.PolymarketID]; ok {
			daos[i] = dao
			continue
		}
		index[dao.PolymarketID] = len(daos)
		daos = append(daos, dao)
	}

	_, err := s.db.NewInsert().
		Model(&daos).
		On("CONFLICT (polymarket_id) DO UPDATE").
		Set("title = EXCLUDED.title").
		Set("volume = EXCLUDED.volume").
		Set("image_url = EXCLUDED.image_url").
		Set("is_active = EXCLUDED.is_active").
		Set("updated_at = EXCLUDED.updated_at").
		Returning("id").
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert cards: %w", err)
	}

	for _, dao := range daos {
		ids[dao.PolymarketID] = dao.ID
	}

	return ids, nil
}

// GetCard fetches a single card by its Polymarket event id.
func (s *pgStore) GetCard(ctx context.Context, polymarketID string) (*market.Card, error) {
	dao := new(EventCardDao)

	err := s.db.NewSelect().
		Model(dao).
		Where("ec.polymarket_id = ?", polymarketID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCardNotFound
		}
		return nil, fmt.Errorf("failed to get card %s: %w", polymarketID, err)
	}

	return toCard(dao), nil
}

// ListCards fetches event cards honoring the given query options.
func (s *pgStore) ListCards(ctx context.Context, options ...QueryOption) ([]*market.Card, error) {
	opts := &QueryOptions{}
	for _, opt := range options {
		opt(opts)
	}

	var daos []EventCardDao
	query := applyCardFilters(s.db.NewSelect().Model(&daos), opts)

	if opts.VolumeDesc != nil {
		if *opts.VolumeDesc {
			// Matches the ordering of the volume indexes so the planner can
			// serve sorted pages without an explicit sort step.
			query = query.OrderExpr("ec.volume DESC NULLS LAST")
		} else {
			query = query.OrderExpr("ec.volume ASC")
		}
	}
	if opts.Limit != nil {
		query = query.Limit(*opts.Limit)
	}
	if opts.Offset != nil {
		query = query.Offset(*opts.Offset)
	}

	if err := query.Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to list cards: %w", err)
	}

	cards := make([]*market.Card, 0, len(daos))
	for i := range daos {
		cards = append(cards, toCard(&daos[i]))
	}

	return cards, nil
}

// CountCards counts event cards honoring the given query options.
func (s *pgStore) CountCards(ctx context.Context, options ...QueryOption) (int, error) {
	opts := &QueryOptions{}
	for _, opt := range options {
		opt(opts)
	}

	query := applyCardFilters(s.db.NewSelect().Model((*EventCardDao)(nil)), opts)

	if opts.TagID != nil {
		// The tag join fans out for cards carrying several tags.
		var count int
		if err := query.ColumnExpr("COUNT(DISTINCT ec.id)").Scan(ctx, &count); err != nil {
			return 0, fmt.Errorf("failed to count cards: %w", err)
		}
		return count, nil
	}

	count, err := query.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count cards: %w", err)
	}

	return count, nil
}

// SetCardActive flips the is_active flag of a single card.
func (s *pgStore) SetCardActive(ctx context.Context, polymarketID string, active bool) error {
	res, err := s.db.NewUpdate().
		Model((*EventCardDao)(nil)).
		Set("is_active = ?", active).
		Set("updated_at = now()").
		Where("polymarket_id = ?", polymarketID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to update card %s status: %w", polymarketID, err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if rows == 0 {
		return ErrCardNotFound
	}

	return nil
}

// DeleteCards removes cards together with their predictions and tag links.
func (s *pgStore) DeleteCards(ctx context.Context, cardIDs []int64) error {
	if len(cardIDs) == 0 {
		return nil
	}

	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().
			Model((*AIPredictionDao)(nil)).
			Where("card_id IN (?)", bun.In(cardIDs)).
			Exec(ctx); err != nil {
			return fmt.Errorf("failed to delete predictions: %w", err)
		}

		if _, err := tx.NewDelete().
			Model((*CardTagDao)(nil)).
			Where("card_id IN (?)", bun.In(cardIDs)).
			Exec(ctx); err != nil {
			return fmt.Errorf("failed to delete card tag links: %w", err)
		}

		if _, err := tx.NewDelete().
			Model((*EventCardDao)(nil)).
			Where("id IN (?)", bun.In(cardIDs)).
			Exec(ctx); err != nil {
			return fmt.Errorf("failed to delete cards: %w", err)
		}

		return nil
	})
}

// InsertSnapshots appends raw event payload snapshots. Snapshots are never
// updated in place, every crawl adds a new row per event.
func (s *pgStore) InsertSnapshots(ctx context.Context, snapshots []*market.Snapshot) error {
	if len(snapshots) == 0 {
		return nil
	}

	daos := make([]*EventSnapshotDao, 0, len(snapshots))
	for _, snap := range snapshots {
		daos = append(daos, toEventSnapshotDao(snap))
	}

	if _, err := s.db.NewInsert().Model(&daos).Exec(ctx); err != nil {
		return fmt.Errorf("failed to insert snapshots: %w", err)
	}

	return nil
}

// LatestSnapshots fetches the newest snapshot per polymarket id.
func (s *pgStore) LatestSnapshots(ctx context.Context, polymarketIDs []string) (map[string]*market.Snapshot, error) {
	latest := make(map[string]*market.Snapshot, len(polymarketIDs))
	if len(polymarketIDs) == 0 {
		return latest, nil
	}

	var daos []EventSnapshotDao
	err := s.db.NewSelect().
		Model(&daos).
		ColumnExpr("DISTINCT ON (es.polymarket_id) es.*").
		Where("es.polymarket_id IN (?)", bun.In(polymarketIDs)).
		OrderExpr("es.polymarket_id, es.created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load latest snapshots: %w", err)
	}

	for i := range daos {
		latest[daos[i].PolymarketID] = toSnapshot(&daos[i])
	}

	return latest, nil
}

// UpsertTags inserts or renames tags keyed by polymarket_id and returns a
// polymarket_id -> tag id map.
func (s *pgStore) UpsertTags(ctx context.Context, tags []*market.Tag) (map[string]int64, error) {
	ids := make(map[string]int64, len(tags))
	if len(tags) == 0 {
		return ids, nil
	}

	byID := make(map[string]*TagDao, len(tags))
	for _, tag := range tags {
		byID[tag.PolymarketID] = toTagDao(tag)
	}

	daos := make([]*TagDao, 0, len(byID))
	for _, dao := range byID {
		daos = append(daos, dao)
	}
	// Stable lock order across concurrent batch upserts.
	sort.Slice(daos, func(i, j int) bool { return daos[i].PolymarketID < daos[j].PolymarketID })

	_, err := s.db.NewInsert().
		Model(&daos).
		On("CONFLICT (polymarket_id) DO UPDATE").
		Set("name = EXCLUDED.name").
		Returning("id").
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert tags: %w", err)
	}

	for _, dao := range daos {
		ids[dao.PolymarketID] = dao.ID
	}

	return ids, nil
}

// LinkCardTags associates cards with tags, ignoring links that already exist.
func (s *pgStore) LinkCardTags(ctx context.Context, links []CardTagLink) error {
	if len(links) == 0 {
		return nil
	}

	daos := make([]*CardTagDao, 0, len(links))
	for _, link := range links {
		daos = append(daos, &CardTagDao{CardID: link.CardID, TagID: link.TagID})
	}

	_, err := s.db.NewInsert().
		Model(&daos).
		On("CONFLICT DO NOTHING").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to link card tags: %w", err)
	}

	return nil
}

// ListPredictions fetches predictions for the given card ids, newest first.
func (s *pgStore) ListPredictions(ctx context.Context, cardIDs []int64) (map[int64][]*market.Prediction, error) {
	predictions := make(map[int64][]*market.Prediction, len(cardIDs))
	if len(cardIDs) == 0 {
		return predictions, nil
	}

	var daos []AIPredictionDao
	err := s.db.NewSelect().
		Model(&daos).
		Where("ap.card_id IN (?)", bun.In(cardIDs)).
		OrderExpr("ap.created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list predictions: %w", err)
	}

	for i := range daos {
		predictions[daos[i].CardID] = append(predictions[daos[i].CardID], toPrediction(&daos[i]))
	}

	return predictions, nil
}

// ReplacePredictions atomically swaps the stored predictions of the affected
// cards for the given set. ai_predictions carries no unique constraint, so
// the old rows are deleted before the new ones go in.
func (s *pgStore) ReplacePredictions(ctx context.Context, predictions []*market.Prediction) error {
	if len(predictions) == 0 {
		return nil
	}

	seen := make(map[int64]struct{}, len(predictions))
	cardIDs := make([]int64, 0, len(predictions))
	for _, pred := range predictions {
		if _, ok := seen[pred.CardID]; ok {
			continue
		}
		seen[pred.CardID] = struct{}{}
		cardIDs = append(cardIDs, pred.CardID)
	}

	daos := make([]*AIPredictionDao, 0, len(predictions))
	for _, pred := range predictions {
		daos = append(daos, toAIPredictionDao(pred))
	}

	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().
			Model((*AIPredictionDao)(nil)).
			Where("card_id IN (?)", bun.In(cardIDs)).
			Exec(ctx); err != nil {
			return fmt.Errorf("failed to delete stale predictions: %w", err)
		}

		if _, err := tx.NewInsert().Model(&daos).Exec(ctx); err != nil {
			return fmt.Errorf("failed to insert predictions: %w", err)
		}

		return nil
	})
}

func applyCardFilters(query *bun.SelectQuery, opts *QueryOptions) *bun.SelectQuery {
	if opts.ActiveOnly {
		query = query.Where("ec.is_active = TRUE")
	}
	if opts.TagID != nil {
		query = query.
			Join("JOIN card_tags AS ct ON ct.card_id = ec.id").
			Join("JOIN tags AS t ON t.id = ct.tag_id").
			Where("t.polymarket_id = ?", *opts.TagID)
	}
	return query
}
