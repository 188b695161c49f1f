package crawler

// TODO: remove the mock impl and use mockery to generate mock

import (
	"context"

	"github.com/predictionlabs/prediction-oracle/pkg/market"
	"github.com/predictionlabs/prediction-oracle/pkg/marketstore"
)

// MockStore is a mock implementation of marketstore.Store
type MockStore struct {
	UpsertCardsFunc        func(ctx context.Context, cards []*market.Card) (map[string]int64, error)
	GetCardFunc            func(ctx context.Context, polymarketID string) (*market.Card, error)
	ListCardsFunc          func(ctx context.Context, opts ...marketstore.QueryOption) ([]*market.Card, error)
	CountCardsFunc         func(ctx context.Context, opts ...marketstore.QueryOption) (int, error)
	SetCardActiveFunc      func(ctx context.Context, polymarketID string, active bool) error
	DeleteCardsFunc        func(ctx context.Context, cardIDs []int64) error
	InsertSnapshotsFunc    func(ctx context.Context, snapshots []*market.Snapshot) error
	LatestSnapshotsFunc    func(ctx context.Context, polymarketIDs []string) (map[string]*market.Snapshot, error)
	UpsertTagsFunc         func(ctx context.Context, tags []*market.Tag) (map[string]int64, error)
	LinkCardTagsFunc       func(ctx context.Context, links []marketstore.CardTagLink) error
	ListPredictionsFunc    func(ctx context.Context, cardIDs []int64) (map[int64][]*market.Prediction, error)
	ReplacePredictionsFunc func(ctx context.Context, predictions []*market.Prediction) error
}

func (m *MockStore) UpsertCards(ctx context.Context, cards []*market.Card) (map[string]int64, error) {
	if m.UpsertCardsFunc != nil {
		return m.UpsertCardsFunc(ctx, cards)
	}
	return map[string]int64{}, nil
}

func (m *MockStore) GetCard(ctx context.Context, polymarketID string) (*market.Card, error) {
	if m.GetCardFunc != nil {
		return m.GetCardFunc(ctx, polymarketID)
	}
	return nil, marketstore.ErrCardNotFound
}

func (m *MockStore) ListCards(ctx context.Context, opts ...marketstore.QueryOption) ([]*market.Card, error) {
	if m.ListCardsFunc != nil {
		return m.ListCardsFunc(ctx, opts...)
	}
	return nil, nil
}

func (m *MockStore) CountCards(ctx context.Context, opts ...marketstore.QueryOption) (int, error) {
	if m.CountCardsFunc != nil {
		return m.CountCardsFunc(ctx, opts...)
	}
	return 0, nil
}

func (m *MockStore) SetCardActive(ctx context.Context, polymarketID string, active bool) error {
	if m.SetCardActiveFunc != nil {
		return m.SetCardActiveFunc(ctx, polymarketID, active)
	}
	return nil
}

func (m *MockStore) DeleteCards(ctx context.Context, cardIDs []int64) error {
	if m.DeleteCardsFunc != nil {
		return m.DeleteCardsFunc(ctx, cardIDs)
	}
	return nil
}

func (m *MockStore) InsertSnapshots(ctx context.Context, snapshots []*market.Snapshot) error {
	if m.InsertSnapshotsFunc != nil {
		return m.InsertSnapshotsFunc(ctx, snapshots)
	}
	return nil
}

func (m *MockStore) LatestSnapshots(ctx context.Context, polymarketIDs []string) (map[string]*market.Snapshot, error) {
	if m.LatestSnapshotsFunc != nil {
		return m.LatestSnapshotsFunc(ctx, polymarketIDs)
	}
	return map[string]*market.Snapshot{}, nil
}

func (m *MockStore) UpsertTags(ctx context.Context, tags []*market.Tag) (map[string]int64, error) {
	if m.UpsertTagsFunc != nil {
		return m.UpsertTagsFunc(ctx, tags)
	}
	return map[string]int64{}, nil
}

func (m *MockStore) LinkCardTags(ctx context.Context, links []marketstore.CardTagLink) error {
	if m.LinkCardTagsFunc != nil {
		return m.LinkCardTagsFunc(ctx, links)
	}
	return nil
}

func (m *MockStore) ListPredictions(ctx context.Context, cardIDs []int64) (map[int64][]*market.Prediction, error) {
	if m.ListPredictionsFunc != nil {
		return m.ListPredictionsFunc(ctx, cardIDs)
	}
	return map[int64][]*market.Prediction{}, nil
}

func (m *MockStore) ReplacePredictions(ctx context.Context, predictions []*market.Prediction) error {
	if m.ReplacePredictionsFunc != nil {
		return m.ReplacePredictionsFunc(ctx, predictions)
	}
	return nil
}
