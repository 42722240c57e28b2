package billing

import "context"

// BuildFunc turns the locked order and a freshly incremented sequence into an invoice.
// Returning an error aborts issuance and rolls the counter back.
type BuildFunc func(o OrderSnapshot, seq int64) (*Invoice, error)

// Repository defines invoice storage.
type Repository interface {
	// IssueInvoice locks the order, returns its existing invoice if there is one
	// (created=false), and otherwise increments the year's counter and inserts the invoice
	// built from it in the same transaction.
	IssueInvoice(ctx context.Context, orderID string, year int, build BuildFunc) (inv *Invoice, created bool, err error)

	GetInvoiceByID(ctx context.Context, id string) (*Invoice, error)
	GetInvoiceByOrder(ctx context.Context, orderID string) (*Invoice, error)
	GetInvoiceByNumber(ctx context.Context, number string) (*Invoice, error)
	ListInvoices(ctx context.Context, limit int) ([]*Invoice, error)

	// SetPDFLocation records where the rendered artifact lives.
	SetPDFLocation(ctx context.Context, id, location string) error
}
