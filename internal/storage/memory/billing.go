package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/georgemunganga/furnish-backend/internal/modules/billing"
	"github.com/georgemunganga/furnish-backend/internal/modules/order"
)

type invoiceRepo struct{ s *Store }

func (r invoiceRepo) IssueInvoice(_ context.Context, orderID string, year int, build billing.BuildFunc) (*billing.Invoice, bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	o, err := r.s.orderLocked(orderID)
	if err != nil {
		return nil, false, err
	}
	if invID, ok := r.s.byOrder[o.ID]; ok {
		inv := *r.s.invoices[invID]
		return &inv, false, nil
	}
	if o.Status == order.StatusCancelled {
		return nil, false, fmt.Errorf("%w: order %s is %s", billing.ErrOrderNotInvoiceable, o.ID, o.Status)
	}

	// The counter only advances once the invoice has been built.
	seq := r.s.invoiceSeq[year] + 1
	inv, err := build(billing.OrderSnapshot{ID: o.ID, Total: o.Total, Currency: o.Currency, Status: o.Status}, seq)
	if err != nil {
		return nil, false, err
	}
	r.s.invoiceSeq[year] = seq
	stored := *inv
	r.s.invoices[inv.ID] = &stored
	r.s.byOrder[o.ID] = inv.ID
	return inv, true, nil
}

func (r invoiceRepo) GetInvoiceByID(_ context.Context, id string) (*billing.Invoice, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, billing.ErrNotFound
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	inv, ok := r.s.invoices[uid]
	if !ok {
		return nil, billing.ErrNotFound
	}
	cp := *inv
	return &cp, nil
}

func (r invoiceRepo) GetInvoiceByOrder(_ context.Context, orderID string) (*billing.Invoice, error) {
	uid, err := uuid.Parse(orderID)
	if err != nil {
		return nil, billing.ErrNotFound
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	invID, ok := r.s.byOrder[uid]
	if !ok {
		return nil, billing.ErrNotFound
	}
	cp := *r.s.invoices[invID]
	return &cp, nil
}

func (r invoiceRepo) GetInvoiceByNumber(_ context.Context, number string) (*billing.Invoice, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, inv := range r.s.invoices {
		if inv.Number == number {
			cp := *inv
			return &cp, nil
		}
	}
	return nil, billing.ErrNotFound
}

func (r invoiceRepo) ListInvoices(_ context.Context, limit int) ([]*billing.Invoice, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*billing.Invoice, 0, len(r.s.invoices))
	for _, inv := range r.s.invoices {
		cp := *inv
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year > out[j].Year
		}
		return out[i].Sequence > out[j].Sequence
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r invoiceRepo) SetPDFLocation(_ context.Context, id, location string) error {
	uid, err := uuid.Parse(id)
	if err != nil {
		return billing.ErrNotFound
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	inv, ok := r.s.invoices[uid]
	if !ok {
		return billing.ErrNotFound
	}
	inv.PDFLocation = location
	return nil
}
