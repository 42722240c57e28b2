package order

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/georgemunganga/furnish-backend/internal/platform/logging"
)

// Service defines back-office order management. Orders are created by checkout only.
type Service interface {
	// GetOrder retrieves a full order with its items.
	GetOrder(ctx context.Context, id string) (*Order, error)

	// ListOrders returns orders newest first, optionally filtered by status.
	ListOrders(ctx context.Context, f ListFilter) ([]*Order, error)

	// UpdateStatus advances an order along the state machine. Moving to CANCELLED
	// restores stock.
	UpdateStatus(ctx context.Context, id string, req UpdateStatusRequest) (*Order, error)

	// CancelOrder cancels an order that has not shipped and returns its stock.
	CancelOrder(ctx context.Context, id string) (*Order, error)
}

type service struct {
	repo      Repository
	publisher Publisher
	log       *zap.Logger
}

// NewService creates a new order service. publisher may be nil.
func NewService(repo Repository, publisher Publisher, log *zap.Logger) Service {
	return &service{repo: repo, publisher: publisher, log: logging.OrNop(log)}
}

func (s *service) GetOrder(ctx context.Context, id string) (*Order, error) {
	return s.repo.GetOrderByID(ctx, id)
}

func (s *service) ListOrders(ctx context.Context, f ListFilter) ([]*Order, error) {
	if f.Status != "" {
		if _, err := ParseStatus(string(f.Status)); err != nil {
			return nil, err
		}
	}
	if f.Limit <= 0 || f.Limit > 500 {
		f.Limit = 100
	}
	return s.repo.ListOrders(ctx, f)
}

func (s *service) UpdateStatus(ctx context.Context, id string, req UpdateStatusRequest) (*Order, error) {
	next, err := ParseStatus(req.Status)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTransition, err)
	}
	if next == StatusCancelled {
		return s.CancelOrder(ctx, id)
	}

	o, err := s.repo.GetOrderByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanTransition(o.Status, next) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, o.Status, next)
	}
	if err := s.repo.UpdateStatus(ctx, id, o.Status, next); err != nil {
		return nil, err
	}
	s.statusChanged(ctx, o.ID.String(), o.Status, next)
	o.Status = next
	return o, nil
}

func (s *service) CancelOrder(ctx context.Context, id string) (*Order, error) {
	before, err := s.repo.GetOrderByID(ctx, id)
	if err != nil {
		return nil, err
	}
	o, err := s.repo.CancelOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if before.Status == StatusPaid {
		s.log.Warn("paid_order_cancelled_refund_required", zap.String("order_id", id))
	}
	s.statusChanged(ctx, id, before.Status, StatusCancelled)
	return o, nil
}

func (s *service) statusChanged(ctx context.Context, id string, from, to Status) {
	s.log.Info("order_status_changed",
		zap.String("order_id", id),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
	)
	if s.publisher == nil {
		return
	}
	evt := StatusChangedEvent{OrderID: id, From: from, To: to, ChangedAt: time.Now().UTC()}
	if err := s.publisher.Publish(ctx, EventOrderStatusChanged, evt); err != nil {
		s.log.Warn("order_event_publish_failed", zap.String("event", EventOrderStatusChanged), zap.Error(err))
	}
}
