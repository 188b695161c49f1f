// Package cards serves the read API over crawled event cards: paged
// listings, single-card details, and the AI enrichment merged in from
// stored predictions.
package cards

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/predictionlabs/prediction-oracle/pkg/analyzer"
	apperrors "github.com/predictionlabs/prediction-oracle/pkg/app/errors"
	"github.com/predictionlabs/prediction-oracle/pkg/market"
	"github.com/predictionlabs/prediction-oracle/pkg/marketstore"
)

// Sort fields and orders accepted by ListCards.
const (
	SortByVolume    = "volume"
	SortByLiquidity = "liquidity"
	OrderAsc        = "asc"
	OrderDesc       = "desc"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// ListRequest selects and orders one page of cards.
type ListRequest struct {
	Page     int
	PageSize int
	TagID    string
	SortBy   string
	Order    string
}

// withDefaults fills zero values so direct callers get the same page the
// HTTP layer serves when a query parameter is absent.
func (r ListRequest) withDefaults() ListRequest {
	if r.Page < 1 {
		r.Page = 1
	}
	if r.PageSize < 1 {
		r.PageSize = defaultPageSize
	}
	if r.SortBy == "" {
		r.SortBy = SortByVolume
	}
	if r.Order == "" {
		r.Order = OrderDesc
	}
	return r
}

// Store defines the persistence reads the cards service depends on.
//
//go:generate mockery --name Store --output mocks --outpkg mocks --filename mock_store.go --with-expecter
type Store interface {
	GetCard(ctx context.Context, polymarketID string) (*market.Card, error)
	ListCards(ctx context.Context, opts ...marketstore.QueryOption) ([]*market.Card, error)
	CountCards(ctx context.Context, opts ...marketstore.QueryOption) (int, error)
	LatestSnapshots(ctx context.Context, polymarketIDs []string) (map[string]*market.Snapshot, error)
	ListPredictions(ctx context.Context, cardIDs []int64) (map[int64][]*market.Prediction, error)
}

// Service defines operations for serving event cards to API clients.
//
//go:generate mockery --name Service --output mocks --outpkg mocks --filename mock_service.go --with-expecter
type Service interface {
	ListCards(ctx context.Context, req ListRequest) (*CardList, error)
	CardDetails(ctx context.Context, polymarketID string) (*CardData, error)
}

// TagItem is a tag as displayed on a card, taken from the crawled payload.
type TagItem struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Slug  string `json:"slug"`
}

// AIAnalysis is the per-market forensic breakdown surfaced to clients.
type AIAnalysis struct {
	StructuralAnchor string `json:"structuralAnchor"`
	Noise            string `json:"noise"`
	Barrier          string `json:"barrier"`
	Blindspot        string `json:"blindspot"`
}

// MarketItem is one market of a card in display form. Pointer fields
// serialize as null when the payload carries no usable value.
type MarketItem struct {
	ID                  string             `json:"id"`
	Question            string             `json:"question"`
	Outcomes            []string           `json:"outcomes"`
	CurrentPrices       map[string]float64 `json:"currentPrices"`
	Volume              *float64           `json:"volume"`
	Liquidity           *float64           `json:"liquidity"`
	Active              bool               `json:"active"`
	Probability         float64            `json:"probability"`
	AdjustedProbability float64            `json:"adjustedProbability"`
	TagIDs              []string           `json:"tagIds"`
	GroupItemTitle      *string            `json:"groupItemTitle"`
	Icon                *string            `json:"icon"`
	Archived            bool               `json:"archived"`
	AIConfidence        *float64           `json:"aiConfidence"`
	AIAnalysis          *AIAnalysis        `json:"aiAnalysis"`
}

// CardData is the full display shape of one event card. ID carries the
// upstream Polymarket id, not the database key.
type CardData struct {
	ID                  string       `json:"id"`
	Slug                string       `json:"slug"`
	Title               string       `json:"title"`
	Description         *string      `json:"description"`
	Icon                *string      `json:"icon"`
	Volume              *float64     `json:"volume"`
	Liquidity           *float64     `json:"liquidity"`
	Active              bool         `json:"active"`
	Closed              bool         `json:"closed"`
	StartDate           *string      `json:"startDate"`
	EndDate             *string      `json:"endDate"`
	CreatedAt           *time.Time   `json:"createdAt"`
	UpdatedAt           *time.Time   `json:"updatedAt"`
	AILogicSummary      *string      `json:"aILogicSummary"`
	AdjustedProbability *float64     `json:"adjustedProbability"`
	Tags                []TagItem    `json:"tags"`
	Markets             []MarketItem `json:"markets"`
}

// CardList is one page of cards with the pagination parameters echoed back.
type CardList struct {
	Total    int         `json:"total"`
	Page     int         `json:"page"`
	PageSize int         `json:"pageSize"`
	List     []*CardData `json:"list"`
}

type cardService struct {
	store  Store
	logger *zap.Logger
}

// NewService creates a cards service backed by the given store.
func NewService(store Store, logger *zap.Logger) Service {
	return &cardService{
		store:  store,
		logger: logger,
	}
}

// ListCards returns one page of active cards. Volume ordering happens in the
// query; liquidity lives only in snapshot payloads, so a liquidity sort
// pre-orders by volume and reorders the assembled page in memory.
func (s *cardService) ListCards(ctx context.Context, req ListRequest) (*CardList, error) {
	req = req.withDefaults()

	filters := []marketstore.QueryOption{marketstore.WithActiveOnly()}
	if req.TagID != "" {
		filters = append(filters, marketstore.WithTagID(req.TagID))
	}

	total, err := s.store.CountCards(ctx, filters...)
	if err != nil {
		return nil, fmt.Errorf("failed to count cards: %w", err)
	}

	volumeDesc := req.Order == OrderDesc || req.SortBy == SortByLiquidity
	opts := append(filters,
		marketstore.WithVolumeSort(volumeDesc),
		marketstore.WithPage(req.Page, req.PageSize),
	)

	cards, err := s.store.ListCards(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to list cards: %w", err)
	}

	list, err := s.assemble(ctx, cards)
	if err != nil {
		return nil, err
	}

	if req.SortBy == SortByLiquidity {
		sortByLiquidity(list, req.Order == OrderDesc)
	}

	return &CardList{
		Total:    total,
		Page:     req.Page,
		PageSize: req.PageSize,
		List:     list,
	}, nil
}

// CardDetails returns the display form of a single card by its Polymarket id.
func (s *cardService) CardDetails(ctx context.Context, polymarketID string) (*CardData, error) {
	if polymarketID == "" {
		return nil, apperrors.BadRequestError(nil, "id is required")
	}

	card, err := s.store.GetCard(ctx, polymarketID)
	if err != nil {
		if errors.Is(err, marketstore.ErrCardNotFound) {
			return nil, apperrors.ResourceNotFoundError(err, fmt.Sprintf("Card with id '%s' not found", polymarketID))
		}
		return nil, fmt.Errorf("failed to get card %s: %w", polymarketID, err)
	}

	list, err := s.assemble(ctx, []*market.Card{card})
	if err != nil {
		return nil, err
	}
	return list[0], nil
}

// assemble batches the snapshot and prediction lookups for a page of cards
// and builds their display forms. The result is never nil.
func (s *cardService) assemble(ctx context.Context, cards []*market.Card) ([]*CardData, error) {
	list := make([]*CardData, 0, len(cards))
	if len(cards) == 0 {
		return list, nil
	}

	polymarketIDs := make([]string, 0, len(cards))
	cardIDs := make([]int64, 0, len(cards))
	for _, card := range cards {
		polymarketIDs = append(polymarketIDs, card.PolymarketID)
		cardIDs = append(cardIDs, card.ID)
	}

	snapshots, err := s.store.LatestSnapshots(ctx, polymarketIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load latest snapshots: %w", err)
	}

	predictions, err := s.store.ListPredictions(ctx, cardIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load predictions: %w", err)
	}

	for _, card := range cards {
		list = append(list, s.buildCardData(card, snapshots[card.PolymarketID], predictions[card.ID]))
	}
	return list, nil
}

// buildCardData merges a card row, its latest snapshot payload, and its
// predictions into the display form. Card columns win over the payload;
// the payload fills the gaps. A missing or unreadable snapshot degrades to
// a card without markets, tags, or payload-only fields.
func (s *cardService) buildCardData(card *market.Card, snapshot *market.Snapshot, predictions []*market.Prediction) *CardData {
	ev := &market.Event{}
	if snapshot != nil {
		parsed, err := market.ParseEvent(snapshot.RawData)
		if err != nil {
			s.logger.Warn("Snapshot payload unreadable",
				zap.String("polymarket_id", card.PolymarketID),
				zap.Error(err))
		} else {
			ev = parsed
		}
	}

	data := &CardData{
		ID:     card.PolymarketID,
		Slug:   card.Slug,
		Title:  card.Title,
		Active: card.IsActive,
		Closed: ev.IsClosed(),
	}

	if card.Description != "" {
		data.Description = &card.Description
	} else if ev.Description != "" {
		data.Description = &ev.Description
	}

	switch {
	case card.ImageURL != "":
		data.Icon = &card.ImageURL
	case ev.Image != "":
		data.Icon = &ev.Image
	case ev.Icon != "":
		data.Icon = &ev.Icon
	}

	if !card.Volume.IsZero() {
		v, _ := card.Volume.Float64()
		data.Volume = &v
	} else if v, ok := ev.VolumeNumber(); ok {
		data.Volume = &v
	}
	if v, ok := ev.LiquidityNumber(); ok {
		data.Liquidity = &v
	}

	if ev.StartDate != "" {
		data.StartDate = &ev.StartDate
	}
	if ev.EndDate != "" {
		data.EndDate = &ev.EndDate
	} else if card.EndDate != nil {
		formatted := card.EndDate.Format(time.RFC3339)
		data.EndDate = &formatted
	}

	if !card.CreatedAt.IsZero() {
		created := card.CreatedAt
		data.CreatedAt = &created
	}
	if !card.UpdatedAt.IsZero() {
		updated := card.UpdatedAt
		data.UpdatedAt = &updated
	}

	data.Tags = make([]TagItem, 0, len(ev.Tags))
	for _, tag := range ev.Tags {
		data.Tags = append(data.Tags, TagItem{
			ID:    string(tag.ID),
			Label: tag.Label,
			Slug:  tag.Slug,
		})
	}

	var aiByMarket map[string]*analyzer.RawMarketAnalysis
	if len(predictions) > 0 {
		// Predictions arrive newest first; only the latest generation is shown.
		latest := predictions[0]
		data.AILogicSummary = &latest.Summary
		if latest.OutcomePrediction != "" {
			if v, err := strconv.ParseFloat(latest.OutcomePrediction, 64); err == nil {
				data.AdjustedProbability = &v
			}
		}
		if latest.RawAnalysis != "" {
			if err := json.Unmarshal([]byte(latest.RawAnalysis), &aiByMarket); err != nil {
				s.logger.Warn("Stored analysis unreadable",
					zap.String("polymarket_id", card.PolymarketID),
					zap.Error(err))
				aiByMarket = nil
			}
		}
	}

	data.Markets = buildMarketItems(ev.Markets, tagIDList(data.Tags), aiByMarket)

	return data
}

// tagIDList collects the upstream tag ids synced onto markets that carry none
// of their own.
func tagIDList(tags []TagItem) []string {
	if len(tags) == 0 {
		return nil
	}
	ids := make([]string, 0, len(tags))
	for _, tag := range tags {
		ids = append(ids, tag.ID)
	}
	return ids
}

// buildMarketItems converts payload markets into display form. Markets not
// explicitly inactive and not archived are kept, ordered by probability and
// then volume, both descending. Per-market AI results override the adjusted
// probability, converting the stored percentage to a fraction.
func buildMarketItems(markets []market.Market, cardTagIDs []string, ai map[string]*analyzer.RawMarketAnalysis) []MarketItem {
	items := make([]MarketItem, 0, len(markets))
	for i := range markets {
		m := &markets[i]
		if !m.IsActive() || m.IsArchived() {
			continue
		}

		item := MarketItem{
			ID:          string(m.ID),
			Question:    m.Question,
			Active:      true,
			Probability: m.CurrentProbability(),
		}

		if item.Outcomes = m.OutcomeNames(); item.Outcomes == nil {
			item.Outcomes = []string{}
		}
		if item.CurrentPrices = m.CurrentPriceMap(); item.CurrentPrices == nil {
			item.CurrentPrices = map[string]float64{}
		}
		if v, ok := m.VolumeNumber(); ok {
			item.Volume = &v
		}
		if v, ok := m.LiquidityNumber(); ok {
			item.Liquidity = &v
		}
		if m.GroupItemTitle != "" {
			title := m.GroupItemTitle
			item.GroupItemTitle = &title
		}
		if m.Icon != "" {
			icon := m.Icon
			item.Icon = &icon
		}

		if item.TagIDs = cardTagIDs; item.TagIDs == nil {
			item.TagIDs = []string{}
		}

		item.AdjustedProbability = item.Probability
		if entry, ok := ai[item.ID]; ok && entry != nil {
			item.AdjustedProbability = entry.AICalibratedOddsPct / 100
			confidence := entry.AIConfidence
			item.AIConfidence = &confidence
			item.AIAnalysis = &AIAnalysis{
				StructuralAnchor: entry.StructuralAnchor,
				Noise:            entry.Noise,
				Barrier:          entry.Barrier,
				Blindspot:        entry.Blindspot,
			}
		}

		items = append(items, item)
	}

	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Probability != items[j].Probability {
			return items[i].Probability > items[j].Probability
		}
		return floatOrZero(items[i].Volume) > floatOrZero(items[j].Volume)
	})

	return items
}

// sortByLiquidity reorders an assembled page by card liquidity, treating
// missing values as zero.
func sortByLiquidity(list []*CardData, desc bool) {
	sort.SliceStable(list, func(i, j int) bool {
		if desc {
			return floatOrZero(list[i].Liquidity) > floatOrZero(list[j].Liquidity)
		}
		return floatOrZero(list[i].Liquidity) < floatOrZero(list[j].Liquidity)
	})
}

func floatOrZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
