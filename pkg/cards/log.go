package cards

import (
	"context"
	"time"

	"go.uber.org/zap"
)

const serviceName = "CardService"

// logService implements Service with request logging around the inner service.
type logService struct {
	service Service
	logger  *zap.Logger
}

// NewLog creates a logging decorator for the cards service.
func NewLog(service Service, logger *zap.Logger) Service {
	return &logService{
		service: service,
		logger:  logger,
	}
}

func (s *logService) ListCards(ctx context.Context, req ListRequest) (resp *CardList, err error) {
	start := time.Now()
	s.logger.Info("Listing cards",
		zap.String("service", serviceName),
		zap.Int("page", req.Page),
		zap.Int("page_size", req.PageSize),
		zap.String("tag_id", req.TagID),
		zap.String("sort_by", req.SortBy),
		zap.String("order", req.Order))

	defer func() {
		duration := time.Since(start)
		if err != nil {
			s.logger.Error("Listing cards failed",
				zap.String("service", serviceName),
				zap.Duration("duration", duration),
				zap.Error(err))
		} else {
			s.logger.Info("Listed cards",
				zap.String("service", serviceName),
				zap.Int("total", resp.Total),
				zap.Int("returned", len(resp.List)),
				zap.Duration("duration", duration))
		}
	}()

	return s.service.ListCards(ctx, req)
}

func (s *logService) CardDetails(ctx context.Context, polymarketID string) (resp *CardData, err error) {
	start := time.Now()
	s.logger.Info("Fetching card details",
		zap.String("service", serviceName),
		zap.String("card_id", polymarketID))

	defer func() {
		duration := time.Since(start)
		if err != nil {
			s.logger.Error("Fetching card details failed",
				zap.String("service", serviceName),
				zap.String("card_id", polymarketID),
				zap.Duration("duration", duration),
				zap.Error(err))
		} else {
			s.logger.Info("Fetched card details",
				zap.String("service", serviceName),
				zap.String("card_id", polymarketID),
				zap.Int("markets", len(resp.Markets)),
				zap.Duration("duration", duration))
		}
	}()

	return s.service.CardDetails(ctx, polymarketID)
}
