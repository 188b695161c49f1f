package cards

// TODO: remove the mock impl and use mockery to generate mock

import (
	"context"

	"github.com/predictionlabs/prediction-oracle/pkg/market"
	"github.com/predictionlabs/prediction-oracle/pkg/marketstore"
)

// MockStore is a mock implementation of Store
type MockStore struct {
	GetCardFunc         func(ctx context.Context, polymarketID string) (*market.Card, error)
	ListCardsFunc       func(ctx context.Context, opts ...marketstore.QueryOption) ([]*market.Card, error)
	CountCardsFunc      func(ctx context.Context, opts ...marketstore.QueryOption) (int, error)
	LatestSnapshotsFunc func(ctx context.Context, polymarketIDs []string) (map[string]*market.Snapshot, error)
	ListPredictionsFunc func(ctx context.Context, cardIDs []int64) (map[int64][]*market.Prediction, error)
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

func (m *MockStore) LatestSnapshots(ctx context.Context, polymarketIDs []string) (map[string]*market.Snapshot, error) {
	if m.LatestSnapshotsFunc != nil {
		return m.LatestSnapshotsFunc(ctx, polymarketIDs)
	}
	return map[string]*market.Snapshot{}, nil
}

func (m *MockStore) ListPredictions(ctx context.Context, cardIDs []int64) (map[int64][]*market.Prediction, error) {
	if m.ListPredictionsFunc != nil {
		return m.ListPredictionsFunc(ctx, cardIDs)
	}
	return map[int64][]*market.Prediction{}, nil
}

// MockService is a mock implementation of Service
type MockService struct {
	ListCardsFunc   func(ctx context.Context, req ListRequest) (*CardList, error)
	CardDetailsFunc func(ctx context.Context, polymarketID string) (*CardData, error)
}

func (m *MockService) ListCards(ctx context.Context, req ListRequest) (*CardList, error) {
	if m.ListCardsFunc != nil {
		return m.ListCardsFunc(ctx, req)
	}
	return &CardList{List: []*CardData{}}, nil
}

func (m *MockService) CardDetails(ctx context.Context, polymarketID string) (*CardData, error) {
	if m.CardDetailsFunc != nil {
		return m.CardDetailsFunc(ctx, polymarketID)
	}
	return nil, marketstore.ErrCardNotFound
}
