package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/georgemunganga/furnish-backend/internal/modules/order"
	"github.com/georgemunganga/furnish-backend/internal/platform/logging"
	"github.com/georgemunganga/furnish-backend/internal/platform/metrics"
)

// Service defines invoice business logic.
type Service interface {
	// CreateInvoice materializes the invoice for an order, issuing a new number only the first
	// time. created reports whether a number was issued by this call.
	CreateInvoice(ctx context.Context, orderID string) (inv *Invoice, created bool, err error)
	GetInvoice(ctx context.Context, id string) (*Invoice, error)
	GetInvoiceForOrder(ctx context.Context, orderID string) (*Invoice, error)
	GetInvoiceByNumber(ctx context.Context, number string) (*Invoice, error)
	ListInvoices(ctx context.Context, limit int) ([]*Invoice, error)
	// RenderInvoice (re)writes the printable artifact for an existing invoice.
	RenderInvoice(ctx context.Context, id string) (*Invoice, error)
}

// OrderReader loads the order an invoice is rendered from.
type OrderReader interface {
	GetOrderByID(ctx context.Context, id string) (*order.Order, error)
}

// Config holds the numbering and tax settings.
type Config struct {
	Prefix     string
	TaxRateBps int64
	// Location decides which calendar year an issuance instant belongs to. Defaults to UTC.
	Location *time.Location
}

type service struct {
	repo      Repository
	orders    OrderReader
	artifacts ArtifactStore
	cfg       Config
	metrics   *metrics.Metrics
	log       *zap.Logger
	now       func() time.Time
}

// NewService creates a billing service. artifacts may be nil, in which case no document is
// written and PDFLocation stays empty.
func NewService(repo Repository, orders OrderReader, artifacts ArtifactStore, cfg Config, m *metrics.Metrics, log *zap.Logger) Service {
	return newService(repo, orders, artifacts, cfg, m, log, time.Now)
}

// NewServiceWithClock is NewService with an injected time source.
func NewServiceWithClock(repo Repository, orders OrderReader, artifacts ArtifactStore, cfg Config, m *metrics.Metrics, log *zap.Logger, now func() time.Time) Service {
	return newService(repo, orders, artifacts, cfg, m, log, now)
}

func newService(repo Repository, orders OrderReader, artifacts ArtifactStore, cfg Config, m *metrics.Metrics, log *zap.Logger, now func() time.Time) *service {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if m == nil {
		m = metrics.Nop()
	}
	return &service{repo: repo, orders: orders, artifacts: artifacts, cfg: cfg, metrics: m, log: logging.OrNop(log), now: now}
}

func (s *service) CreateInvoice(ctx context.Context, orderID string) (_ *Invoice, _ bool, err error) {
	ctx, span := otel.Tracer("billing").Start(ctx, "billing.CreateInvoice")
	span.SetAttributes(attribute.String("order.id", orderID))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	issuedAt := s.now().In(s.cfg.Location)
	year := issuedAt.Year()

	inv, created, err := s.repo.IssueInvoice(ctx, orderID, year, func(o OrderSnapshot, seq int64) (*Invoice, error) {
		number, err := FormatNumber(s.cfg.Prefix, year, seq)
		if err != nil {
			return nil, err
		}
		net, tax := SplitTax(o.Total, s.cfg.TaxRateBps)
		return &Invoice{
			ID:        uuid.New(),
			OrderID:   o.ID,
			Number:    number,
			Year:      year,
			Sequence:  seq,
			Subtotal:  net,
			Tax:       tax,
			Total:     o.Total,
			Currency:  o.Currency,
			CreatedAt: issuedAt.UTC(),
		}, nil
	})
	if err != nil {
		s.log.Error("invoice_issue_failed", zap.String("order_id", orderID), zap.Error(err))
		return nil, false, err
	}
	span.SetAttributes(attribute.String("invoice.number", inv.Number), attribute.Bool("invoice.created", created))
	if !created {
		return inv, false, nil
	}

	s.metrics.InvoicesIssued.Inc()
	s.log.Info("invoice_issued",
		zap.String("order_id", orderID),
		zap.String("invoice_number", inv.Number),
		zap.Int64("total", inv.Total),
	)
	s.render(ctx, inv)
	return inv, true, nil
}

func (s *service) RenderInvoice(ctx context.Context, id string) (*Invoice, error) {
	inv, err := s.repo.GetInvoiceByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.artifacts == nil {
		return nil, fmt.Errorf("invoice rendering is not configured")
	}
	if err := s.renderErr(ctx, inv); err != nil {
		return nil, err
	}
	return inv, nil
}

// render writes the artifact best-effort: the number is already issued and stays valid
// even when the document cannot be produced.
func (s *service) render(ctx context.Context, inv *Invoice) {
	if s.artifacts == nil {
		return
	}
	if err := s.renderErr(ctx, inv); err != nil {
		s.log.Warn("invoice_render_failed", zap.String("invoice_number", inv.Number), zap.Error(err))
	}
}

func (s *service) renderErr(ctx context.Context, inv *Invoice) error {
	o, err := s.orders.GetOrderByID(ctx, inv.OrderID.String())
	if err != nil {
		return fmt.Errorf("load order: %w", err)
	}
	loc, err := s.artifacts.Save(ctx, inv, o)
	if err != nil {
		return err
	}
	if err := s.repo.SetPDFLocation(ctx, inv.ID.String(), loc); err != nil {
		return err
	}
	inv.PDFLocation = loc
	return nil
}

func (s *service) GetInvoice(ctx context.Context, id string) (*Invoice, error) {
	return s.repo.GetInvoiceByID(ctx, id)
}

func (s *service) GetInvoiceForOrder(ctx context.Context, orderID string) (*Invoice, error) {
	return s.repo.GetInvoiceByOrder(ctx, orderID)
}

func (s *service) GetInvoiceByNumber(ctx context.Context, number string) (*Invoice, error) {
	if !ValidNumber(number) {
		return nil, ErrNotFound
	}
	return s.repo.GetInvoiceByNumber(ctx, number)
}

func (s *service) ListInvoices(ctx context.Context, limit int) ([]*Invoice, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.repo.ListInvoices(ctx, limit)
}
