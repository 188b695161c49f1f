package market

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Card is a tracked prediction event as stored and served by the cards API.
type Card struct {
	ID           int64
	PolymarketID string
	Title        string
	Slug         string
	Description  string
	ImageURL     string
	Volume       decimal.Decimal
	EndDate      *time.Time
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewCardFromEvent builds the card upsert payload for a crawled event.
func NewCardFromEvent(ev *Event) *Card {
	return &Card{
		PolymarketID: ev.PolymarketID(),
		Title:        ev.CardTitle(),
		Slug:         ev.CardSlug(),
		Description:  ev.Description,
		ImageURL:     ev.ImageURL(),
		Volume:       decimal.NewFromFloat(ev.VolumeValue()),
		EndDate:      ev.EndDateTime(),
		IsActive:     ev.IsActive(),
	}
}

// Snapshot is one raw crawl of an upstream event.
type Snapshot struct {
	ID           int64
	PolymarketID string
	RawData      json.RawMessage
	CreatedAt    time.Time
}

// NewSnapshot captures the raw payload of a crawled event.
func NewSnapshot(ev *Event) *Snapshot {
	return &Snapshot{
		PolymarketID: ev.PolymarketID(),
		RawData:      ev.Raw,
	}
}

// Tag mirrors an upstream Polymarket tag; Name stores the tag slug.
type Tag struct {
	ID           int64
	PolymarketID string
	Name         string
}

// Prediction is the stored outcome of one AI analysis run for a card.
type Prediction struct {
	ID                int64
	CardID            int64
	Summary           string
	ConfidenceScore   decimal.Decimal
	OutcomePrediction string
	RawAnalysis       string
	CreatedAt         time.Time
}
