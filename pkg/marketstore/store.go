package marketstore

import (
	"context"
	"errors"

	"github.com/predictionlabs/prediction-oracle/pkg/market"
)

// ErrCardNotFound is returned when a card lookup finds no matching record.
var ErrCardNotFound = errors.New("card not found")

// CardTagLink associates an event card with a tag by database id.
type CardTagLink struct {
	CardID int64
	TagID  int64
}

// CardStore defines all event card persistence operations.
// Used by the crawler to upsert crawled events and by the cards API to page through them.
type CardStore interface {
	UpsertCards(ctx context.Context, cards []*market.Card) (map[string]int64, error)
	GetCard(ctx context.Context, polymarketID string) (*market.Card, error)
	ListCards(ctx context.Context, opts ...QueryOption) ([]*market.Card, error)
	CountCards(ctx context.Context, opts ...QueryOption) (int, error)
	SetCardActive(ctx context.Context, polymarketID string, active bool) error
	DeleteCards(ctx context.Context, cardIDs []int64) error
}

// SnapshotStore defines persistence for the raw event payloads captured on every crawl.
type SnapshotStore interface {
	InsertSnapshots(ctx context.Context, snapshots []*market.Snapshot) error
	LatestSnapshots(ctx context.Context, polymarketIDs []string) (map[string]*market.Snapshot, error)
}

// TagStore defines tag persistence and card-tag association operations.
type TagStore interface {
	UpsertTags(ctx context.Context, tags []*market.Tag) (map[string]int64, error)
	LinkCardTags(ctx context.Context, links []CardTagLink) error
}

// PredictionStore defines persistence for AI predictions.
// Each card keeps at most one generation of predictions; replacing drops the old rows first.
type PredictionStore interface {
	ListPredictions(ctx context.Context, cardIDs []int64) (map[int64][]*market.Prediction, error)
	ReplacePredictions(ctx context.Context, predictions []*market.Prediction) error
}

// Store defines the interface for prediction market data persistence
type Store interface {
	CardStore
	SnapshotStore
	TagStore
	PredictionStore
}

// QueryOptions defines options for querying event cards
type QueryOptions struct {
	ActiveOnly bool
	TagID      *string
	VolumeDesc *bool
	Limit      *int
	Offset     *int
}

// QueryOption is a functional option for querying event cards
type QueryOption func(*QueryOptions)

// WithActiveOnly restricts the query to cards with is_active = true
func WithActiveOnly() QueryOption {
	return func(opts *QueryOptions) {
		opts.ActiveOnly = true
	}
}

// WithTagID filters cards by the Polymarket id of an associated tag
func WithTagID(tagID string) QueryOption {
	return func(opts *QueryOptions) {
		opts.TagID = &tagID
	}
}

// WithVolumeSort orders cards by volume, descending when desc is true
func WithVolumeSort(desc bool) QueryOption {
	return func(opts *QueryOptions) {
		opts.VolumeDesc = &desc
	}
}

// WithLimit caps the number of cards returned
func WithLimit(limit int) QueryOption {
	return func(opts *QueryOptions) {
		opts.Limit = &limit
	}
}

// WithPage applies offset pagination; page is 1-based
func WithPage(page, pageSize int) QueryOption {
	return func(opts *QueryOptions) {
		offset := (page - 1) * pageSize
		opts.Limit = &pageSize
		opts.Offset = &offset
	}
}
