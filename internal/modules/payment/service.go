package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/georgemunganga/furnish-backend/internal/modules/order"
	"github.com/georgemunganga/furnish-backend/internal/platform/logging"
)

// Service defines payment business logic.
type Service interface {
	// CreateSession opens a gateway session for a PENDING card order. Calling it again
	// opens a fresh session; earlier ones are left to expire at the provider.
	CreateSession(ctx context.Context, orderID string) (*Transaction, error)
	// HandleWebhook applies a verified gateway callback. Redelivery only finishes an order
	// update that failed earlier.
	HandleWebhook(ctx context.Context, payload WebhookPayload) (*Transaction, error)
	GetByID(ctx context.Context, id string) (*Transaction, error)
	ListByOrder(ctx context.Context, orderID string) ([]*Transaction, error)
}

// Orders is the slice of order management payments need.
type Orders interface {
	GetOrder(ctx context.Context, id string) (*order.Order, error)
	UpdateStatus(ctx context.Context, id string, req order.UpdateStatusRequest) (*order.Order, error)
}

type service struct {
	repo     Repository
	orders   Orders
	gateways GatewayRegistry
	log      *zap.Logger
	now      func() time.Time
}

func NewService(repo Repository, orders Orders, gateways GatewayRegistry, log *zap.Logger) Service {
	return &service{repo: repo, orders: orders, gateways: gateways, log: logging.OrNop(log), now: time.Now}
}

func (s *service) CreateSession(ctx context.Context, orderID string) (*Transaction, error) {
	o, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.PaymentMethod != order.PaymentCard {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotSupported, o.PaymentMethod)
	}
	if o.Status != order.StatusPending {
		return nil, fmt.Errorf("%w: status %s", ErrOrderNotPayable, o.Status)
	}

	gw, ok := s.gateways[ProviderCard]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoGateway, ProviderCard)
	}

	now := s.now().UTC()
	tx := &Transaction{
		ID:        uuid.New(),
		OrderID:   o.ID,
		Provider:  ProviderCard,
		Status:    TxPending,
		Amount:    o.Total,
		Currency:  o.Currency,
		CreatedAt: now,
		UpdatedAt: now,
	}
	// Persist as PENDING first so a gateway timeout leaves a record behind.
	if err := s.repo.Create(ctx, tx); err != nil {
		return nil, fmt.Errorf("create payment transaction: %w", err)
	}

	sess, err := gw.CreateSession(ctx, SessionRequest{
		TransactionID: tx.ID.String(),
		OrderID:       o.ID.String(),
		Amount:        o.Total,
		Currency:      o.Currency,
		CustomerEmail: o.Email,
	})
	if err != nil {
		_ = s.repo.UpdateStatus(ctx, tx.ID.String(), TxFailed, "GATEWAY_ERROR", err.Error())
		s.log.Warn("payment_session_failed", zap.String("order_id", orderID), zap.Error(err))
		return nil, fmt.Errorf("gateway session failed: %w", err)
	}
	if err := s.repo.UpdateSession(ctx, tx.ID.String(), sess); err != nil {
		return nil, fmt.Errorf("store payment session: %w", err)
	}
	tx.ProviderRef = sess.ProviderRef
	tx.ProviderStatus = sess.ProviderStatus
	tx.PaymentURL = sess.PaymentURL
	tx.Status = TxProcessing

	s.log.Info("payment_session_created",
		zap.String("order_id", orderID),
		zap.String("transaction_id", tx.ID.String()),
		zap.String("provider_ref", sess.ProviderRef),
	)
	return tx, nil
}

func (s *service) HandleWebhook(ctx context.Context, payload WebhookPayload) (*Transaction, error) {
	status, ok := NormaliseEvent(payload.Event)
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownEvent, payload.Event)
	}
	tx, err := s.repo.GetByProviderRef(ctx, payload.ProviderRef)
	if err != nil {
		return nil, err
	}
	if tx.Status == TxCompleted {
		// A redelivery finishes an order update that failed the first time.
		if o, err := s.orders.GetOrder(ctx, tx.OrderID.String()); err == nil && o.Status == order.StatusPending {
			if err := s.markOrderPaid(ctx, tx.OrderID.String()); err != nil {
				return nil, err
			}
		}
		return tx, nil
	}
	if status == TxCompleted && (payload.Amount != tx.Amount || payload.Currency != tx.Currency) {
		s.log.Warn("payment_amount_mismatch",
			zap.String("transaction_id", tx.ID.String()),
			zap.Int64("expected", tx.Amount),
			zap.Int64("received", payload.Amount),
		)
		return nil, ErrAmountMismatch
	}

	if err := s.repo.RecordWebhook(ctx, tx.ID.String(), s.now().UTC()); err != nil {
		return nil, fmt.Errorf("record webhook: %w", err)
	}
	// The order moves first so a failure leaves the transaction open for the
	// provider's retry.
	if status == TxCompleted {
		if err := s.markOrderPaid(ctx, tx.OrderID.String()); err != nil {
			return nil, err
		}
	}
	if err := s.repo.UpdateStatus(ctx, tx.ID.String(), status, payload.Event, ""); err != nil {
		return nil, err
	}
	tx.Status = status
	tx.ProviderStatus = payload.Event
	return tx, nil
}

// markOrderPaid moves the order PENDING -> PAID. Losing a race to another delivery, or
// finding the order already past PENDING, is fine.
func (s *service) markOrderPaid(ctx context.Context, orderID string) error {
	_, err := s.orders.UpdateStatus(ctx, orderID, order.UpdateStatusRequest{Status: string(order.StatusPaid)})
	if err == nil {
		return nil
	}
	if errors.Is(err, order.ErrInvalidTransition) || errors.Is(err, order.ErrStatusChanged) {
		o, gerr := s.orders.GetOrder(ctx, orderID)
		if gerr == nil && o.Status == order.StatusCancelled {
			s.log.Warn("payment_for_cancelled_order", zap.String("order_id", orderID))
		}
		return nil
	}
	s.log.Error("order_mark_paid_failed", zap.String("order_id", orderID), zap.Error(err))
	return fmt.Errorf("mark order paid: %w", err)
}

func (s *service) GetByID(ctx context.Context, id string) (*Transaction, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) ListByOrder(ctx context.Context, orderID string) ([]*Transaction, error) {
	return s.repo.ListByOrder(ctx, orderID)
}
