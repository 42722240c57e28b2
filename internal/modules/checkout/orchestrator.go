package checkout

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/georgemunganga/furnish-backend/internal/modules/dedupe"
	"github.com/georgemunganga/furnish-backend/internal/modules/inventory"
	"github.com/georgemunganga/furnish-backend/internal/modules/notification"
	"github.com/georgemunganga/furnish-backend/internal/modules/order"
	"github.com/georgemunganga/furnish-backend/internal/modules/payment"
	"github.com/georgemunganga/furnish-backend/internal/modules/pricing"
	"github.com/georgemunganga/furnish-backend/internal/platform/logging"
	"github.com/georgemunganga/furnish-backend/internal/platform/metrics"
)

const defaultNotifyTimeout = 30 * time.Second

// OrderStore is the atomic order write plus the read used for idempotent replays.
type OrderStore interface {
	CreateOrder(ctx context.Context, o *order.Order, opts order.CreateOptions) error
	GetOrderByID(ctx context.Context, id string) (*order.Order, error)
}

// Notifier fans out notifications for a placed order.
type Notifier interface {
	Dispatch(ctx context.Context, o *order.Order) []notification.Outcome
}

// SessionCreator opens a card payment session for a placed order.
type SessionCreator interface {
	CreateSession(ctx context.Context, orderID string) (*payment.Transaction, error)
}

// Deps wires the orchestrator. Pricing, Guard and Orders are required.
type Deps struct {
	Pricing   *pricing.Authority
	Guard     *dedupe.Guard
	Orders    OrderStore
	Keys      dedupe.KeyStore
	Payments  SessionCreator
	Notifier  Notifier
	Publisher order.Publisher
	Metrics   *metrics.Metrics
	Log       *zap.Logger
	// NotifyTimeout bounds one fan-out. Defaults to 30s.
	NotifyTimeout time.Duration
}

// Orchestrator places orders. It is safe for concurrent use.
type Orchestrator struct {
	deps     Deps
	validate *validator.Validate
	log      *zap.Logger
	now      func() time.Time

	// tracks notification goroutines so shutdown can drain them
	inflight sync.WaitGroup
}

func NewOrchestrator(deps Deps) *Orchestrator {
	if deps.Metrics == nil {
		deps.Metrics = metrics.Nop()
	}
	if deps.NotifyTimeout <= 0 {
		deps.NotifyTimeout = defaultNotifyTimeout
	}
	return &Orchestrator{deps: deps, validate: newValidator(), log: logging.OrNop(deps.Log), now: time.Now}
}

// WithClock replaces the time source used for order timestamps.
func (o *Orchestrator) WithClock(now func() time.Time) *Orchestrator {
	o.now = now
	return o
}

// Wait blocks until every dispatched notification has finished.
func (o *Orchestrator) Wait() { o.inflight.Wait() }

// PlaceOrder runs one checkout attempt. On error exactly one of *ValidationError,
// *pricing.ProductNotFoundError, *inventory.InsufficientStockError, *order.DuplicateError or
// *PersistenceError is returned and nothing has been written. On success the order is
// committed; notifications and the payment session are side effects that cannot fail it.
func (o *Orchestrator) PlaceOrder(ctx context.Context, req Request) (res *Result, err error) {
	start := time.Now()
	ctx, span := otel.Tracer("checkout").Start(ctx, "checkout.PlaceOrder")
	log := logging.FromContextOr(ctx, o.log)
	defer func() {
		outcome := "success"
		switch {
		case err != nil:
			outcome = Code(err)
			span.RecordError(err)
			span.SetStatus(codes.Error, outcome)
		case res.Replayed:
			outcome = "replayed"
		}
		o.deps.Metrics.CheckoutRequests.WithLabelValues(outcome).Inc()
		o.deps.Metrics.CheckoutDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
		span.End()
	}()

	// RECEIVED
	req = req.normalize()
	if err := o.validate.Struct(req); err != nil {
		log.Info("checkout_rejected", zap.String("stage", "received"), zap.Error(err))
		return nil, validationError(err)
	}
	span.SetAttributes(attribute.Int("checkout.lines", len(req.Items)))

	if req.IdempotencyKey != "" && o.deps.Keys != nil {
		scope := dedupe.NormalizeEmail(req.Email)
		claimed, existing, kerr := o.deps.Keys.Claim(ctx, scope, req.IdempotencyKey)
		switch {
		case kerr != nil:
			// Without the key store the fingerprint guard still applies.
			log.Warn("idempotency_key_unavailable", zap.Error(kerr))
		case !claimed && existing == "":
			return nil, &order.DuplicateError{}
		case !claimed:
			return o.replay(ctx, existing)
		default:
			defer func() {
				if err != nil {
					if rerr := o.deps.Keys.Release(context.WithoutCancel(ctx), scope, req.IdempotencyKey); rerr != nil {
						log.Warn("idempotency_key_release_failed", zap.Error(rerr))
					}
					return
				}
				if cerr := o.deps.Keys.Complete(context.WithoutCancel(ctx), scope, req.IdempotencyKey, res.OrderID); cerr != nil {
					log.Warn("idempotency_key_complete_failed", zap.String("order_id", res.OrderID), zap.Error(cerr))
				}
			}()
		}
	}

	// VALIDATED -> PRICED
	quote, err := o.deps.Pricing.Quote(ctx, req.lineRequests())
	if err != nil {
		log.Info("checkout_rejected", zap.String("stage", "priced"), zap.Error(err))
		return nil, classify(err)
	}

	// PRICED -> RESERVED
	if err := inventory.Check(quote.StockRequests()); err != nil {
		log.Info("checkout_rejected", zap.String("stage", "reserved"), zap.Error(err))
		return nil, err
	}
	fingerprint := req.fingerprint()
	if err := o.deps.Guard.Check(ctx, req.Email, fingerprint); err != nil {
		log.Info("checkout_rejected", zap.String("stage", "reserved"), zap.Error(err))
		return nil, classify(err)
	}

	// RESERVED -> PERSISTED
	placed := o.buildOrder(req, quote, fingerprint)
	if err := placed.CheckTotals(); err != nil {
		return nil, &PersistenceError{Err: err}
	}
	if err := o.deps.Orders.CreateOrder(ctx, placed, order.CreateOptions{DuplicateSince: o.deps.Guard.Since()}); err != nil {
		err = classify(err)
		if Code(err) == CodePersistence {
			log.Error("checkout_persist_failed", zap.Error(err))
		} else {
			log.Info("checkout_rejected", zap.String("stage", "persisted"), zap.Error(err))
		}
		return nil, err
	}
	span.SetAttributes(attribute.String("order.id", placed.ID.String()))

	res = resultFor(placed)
	log.Info("checkout_done",
		zap.String("order_id", res.OrderID),
		zap.Int64("total", res.Total),
		zap.String("currency", res.Currency),
		zap.String("payment_method", string(placed.PaymentMethod)),
		zap.String("email", logging.MaskEmail(placed.Email)),
	)

	// PERSISTED -> NOTIFIED: nothing below can fail the order.
	o.publishPlaced(ctx, placed)
	if placed.PaymentMethod == order.PaymentCard && o.deps.Payments != nil {
		if tx, perr := o.deps.Payments.CreateSession(ctx, res.OrderID); perr != nil {
			log.Warn("payment_session_deferred", zap.String("order_id", res.OrderID), zap.Error(perr))
		} else {
			res.PaymentURL = tx.PaymentURL
		}
	}
	o.notify(ctx, placed)
	return res, nil
}

// Quote prices a cart with the same authority checkout uses.
func (o *Orchestrator) Quote(ctx context.Context, req QuoteRequest) (*pricing.Quote, error) {
	req.Items = Request{Items: req.Items}.normalize().Items
	if err := o.validate.Struct(req); err != nil {
		return nil, validationError(err)
	}
	lines := Request{Items: req.Items}.lineRequests()
	q, err := o.deps.Pricing.Quote(ctx, lines)
	if err != nil {
		return nil, classify(err)
	}
	return q, nil
}

func (o *Orchestrator) replay(ctx context.Context, orderID string) (*Result, error) {
	prev, err := o.deps.Orders.GetOrderByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, order.ErrNotFound) {
			return nil, &order.DuplicateError{ExistingOrderID: orderID}
		}
		return nil, &PersistenceError{Err: err}
	}
	res := resultFor(prev)
	res.Replayed = true
	return res, nil
}

func (o *Orchestrator) buildOrder(req Request, q *pricing.Quote, fingerprint string) *order.Order {
	now := o.now().UTC()
	placed := &order.Order{
		ID:            uuid.New(),
		CustomerName:  req.CustomerName,
		Email:         req.Email,
		Phone:         req.Phone,
		Address:       req.Address,
		City:          req.City,
		Country:       req.Country,
		Notes:         req.Notes,
		Currency:      q.Currency,
		Total:         q.Total,
		Status:        order.StatusPending,
		PaymentMethod: order.PaymentMethod(req.PaymentMethod),
		Fingerprint:   fingerprint,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	placed.Items = make([]*order.Item, 0, len(q.Lines))
	for _, l := range q.Lines {
		placed.Items = append(placed.Items, &order.Item{
			ID:          uuid.New(),
			OrderID:     placed.ID,
			ProductID:   l.ProductID,
			ProductName: l.Name,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
			Subtotal:    l.Subtotal,
			CreatedAt:   now,
		})
	}
	return placed
}

func (o *Orchestrator) publishPlaced(ctx context.Context, placed *order.Order) {
	if o.deps.Publisher == nil {
		return
	}
	if err := o.deps.Publisher.Publish(ctx, order.EventOrderPlaced, order.NewPlacedEvent(placed)); err != nil {
		o.deps.Metrics.EventPublishFailures.WithLabelValues(order.EventOrderPlaced).Inc()
		o.log.Warn("order_event_publish_failed",
			zap.String("event", order.EventOrderPlaced),
			zap.String("order_id", placed.ID.String()),
			zap.Error(err),
		)
	}
}

// notify dispatches in the background on a context detached from the request.
func (o *Orchestrator) notify(ctx context.Context, placed *order.Order) {
	if o.deps.Notifier == nil {
		return
	}
	snapshot := placed.Clone()
	o.inflight.Add(1)
	go func() {
		defer o.inflight.Done()
		defer func() {
			if r := recover(); r != nil {
				o.log.Error("notification_dispatch_panic", zap.String("order_id", snapshot.ID.String()), zap.Any("panic", r))
			}
		}()
		nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.deps.NotifyTimeout)
		defer cancel()
		o.deps.Notifier.Dispatch(nctx, snapshot)
	}()
}
