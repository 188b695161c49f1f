package marketstore

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"

	"github.com/predictionlabs/prediction-oracle/pkg/market"
)

// EventCardDao is a data access object that maps directly to the 'event_cards' table in PostgreSQL.
type EventCardDao struct {
	bun.BaseModel `bun:"table:event_cards,alias:ec"`
	ID            int64               `bun:"id,pk,autoincrement"`
	PolymarketID  string              `bun:"polymarket_id,unique,notnull,type:varchar(50)"`
	Title         string              `bun:"title,notnull,type:varchar(500)"`
	Slug          string              `bun:"slug,unique,notnull,type:varchar(255)"`
	Description   *string             `bun:"description,type:text"`
	ImageURL      *string             `bun:"image_url,type:varchar(1000)"`
	Volume        decimal.NullDecimal `bun:"volume,type:numeric(20,2)"`
	EndDate       *time.Time          `bun:"end_date"`
	IsActive      bool                `bun:"is_active,notnull,default:true"`
	CreatedAt     time.Time           `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt     time.Time           `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

// toEventCardDao converts a market.Card to EventCardDao.
func toEventCardDao(card *market.Card) *EventCardDao {
	dao := &EventCardDao{
		ID:           card.ID,
		PolymarketID: card.PolymarketID,
		Title:        card.Title,
		Slug:         card.Slug,
		Volume:       decimal.NullDecimal{Decimal: card.Volume, Valid: true},
		IsActive:     card.IsActive,
		CreatedAt:    card.CreatedAt,
		UpdatedAt:    card.UpdatedAt,
	}

	if card.Description != "" {
		dao.Description = &card.Description
	}
	if card.ImageURL != "" {
		dao.ImageURL = &card.ImageURL
	}
	if card.EndDate != nil {
		dao.EndDate = card.EndDate
	}

	return dao
}

// toCard converts an EventCardDao to market.Card.
func toCard(dao *EventCardDao) *market.Card {
	card := &market.Card{
		ID:           dao.ID,
		PolymarketID: dao.PolymarketID,
		Title:        dao.Title,
		Slug:         dao.Slug,
		IsActive:     dao.IsActive,
		CreatedAt:    dao.CreatedAt,
		UpdatedAt:    dao.UpdatedAt,
	}

	if dao.Description != nil {
		card.Description = *dao.Description
	}
	if dao.ImageURL != nil {
		card.ImageURL = *dao.ImageURL
	}
	if dao.Volume.Valid {
		card.Volume = dao.Volume.Decimal
	}
	if dao.EndDate != nil {
		card.EndDate = dao.EndDate
	}

	return card
}

// EventSnapshotDao is a data access object that maps directly to the 'event_snapshots' table in PostgreSQL.
type EventSnapshotDao struct {
	bun.BaseModel `bun:"table:event_snapshots,alias:es"`
	ID            int64           `bun:"id,pk,autoincrement"`
	PolymarketID  string          `bun:"polymarket_id,notnull,type:varchar(50)"`
	RawData       json.RawMessage `bun:"raw_data,notnull,type:jsonb"`
	CreatedAt     time.Time       `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

// toEventSnapshotDao converts a market.Snapshot to EventSnapshotDao.
func toEventSnapshotDao(snap *market.Snapshot) *EventSnapshotDao {
	return &EventSnapshotDao{
		ID:           snap.ID,
		PolymarketID: snap.PolymarketID,
		RawData:      snap.RawData,
		CreatedAt:    snap.CreatedAt,
	}
}

// toSnapshot converts an EventSnapshotDao to market.Snapshot.
func toSnapshot(dao *EventSnapshotDao) *market.Snapshot {
	return &market.Snapshot{
		ID:           dao.ID,
		PolymarketID: dao.PolymarketID,
		RawData:      dao.RawData,
		CreatedAt:    dao.CreatedAt,
	}
}

// TagDao is a data access object that maps directly to the 'tags' table in PostgreSQL.
type TagDao struct {
	bun.BaseModel `bun:"table:tags,alias:t"`
	ID            int64  `bun:"id,pk,autoincrement"`
	PolymarketID  string `bun:"polymarket_id,unique,notnull,type:varchar(50)"`
	Name          string `bun:"name,notnull,type:varchar(255)"`
}

// toTagDao converts a market.Tag to TagDao.
func toTagDao(tag *market.Tag) *TagDao {
	return &TagDao{
		ID:           tag.ID,
		PolymarketID: tag.PolymarketID,
		Name:         tag.Name,
	}
}

// CardTagDao is a data access object that maps directly to the 'card_tags' join table in PostgreSQL.
type CardTagDao struct {
	bun.BaseModel `bun:"table:card_tags,alias:ct"`
	CardID        int64 `bun:"card_id,pk"`
	TagID         int64 `bun:"tag_id,pk"`
}

// AIPredictionDao is a data access object that maps directly to the 'ai_predictions' table in PostgreSQL.
type AIPredictionDao struct {
	bun.BaseModel     `bun:"table:ai_predictions,alias:ap"`
	ID                int64           `bun:"id,pk,autoincrement"`
	CardID            int64           `bun:"card_id,notnull"`
	Summary           string          `bun:"summary,notnull,type:text"`
	ConfidenceScore   decimal.Decimal `bun:"confidence_score,notnull,type:numeric(5,2)"`
	OutcomePrediction string          `bun:"outcome_prediction,notnull,type:varchar(255)"`
	RawAnalysis       *string         `bun:"raw_analysis,type:text"`
	CreatedAt         time.Time       `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

// toAIPredictionDao converts a market.Prediction to AIPredictionDao.
func toAIPredictionDao(pred *market.Prediction) *AIPredictionDao {
	dao := &AIPredictionDao{
		ID:                pred.ID,
		CardID:            pred.CardID,
		Summary:           pred.Summary,
		ConfidenceScore:   pred.ConfidenceScore,
		OutcomePrediction: pred.OutcomePrediction,
		CreatedAt:         pred.CreatedAt,
	}

	if pred.RawAnalysis != "" {
		dao.RawAnalysis = &pred.RawAnalysis
	}

	return dao
}

// toPrediction converts an AIPredictionDao to market.Prediction.
func toPrediction(dao *AIPredictionDao) *market.Prediction {
	pred := &market.Prediction{
		ID:                dao.ID,
		CardID:            dao.CardID,
		Summary:           dao.Summary,
		ConfidenceScore:   dao.ConfidenceScore,
		OutcomePrediction: dao.OutcomePrediction,
		CreatedAt:         dao.CreatedAt,
	}

	if dao.RawAnalysis != nil {
		pred.RawAnalysis = *dao.RawAnalysis
	}

	return pred
}
