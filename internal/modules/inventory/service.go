package inventory

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/georgemunganga/furnish-backend/internal/platform/logging"
)

// ErrZeroDelta rejects a no-op adjustment.
var ErrZeroDelta = errors.New("delta must be non-zero")

// Service exposes admin stock adjustments.
type Service interface {
	AdjustStock(ctx context.Context, productID string, req AdjustStockRequest) (*StockLevel, error)
}

type service struct {
	repo Repository
	log  *zap.Logger
}

func NewService(repo Repository, log *zap.Logger) Service {
	return &service{repo: repo, log: logging.OrNop(log)}
}

func (s *service) AdjustStock(ctx context.Context, productID string, req AdjustStockRequest) (*StockLevel, error) {
	if req.Delta == 0 {
		return nil, ErrZeroDelta
	}
	stock, err := s.repo.AdjustStock(ctx, productID, req.Delta)
	if err != nil {
		return nil, err
	}
	s.log.Info("stock_adjusted",
		zap.String("product_id", productID),
		zap.Int("delta", req.Delta),
		zap.Int("stock", stock),
		zap.String("reason", req.Reason),
	)
	return &StockLevel{ProductID: productID, Stock: stock}, nil
}
