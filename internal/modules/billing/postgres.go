package billing

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/georgemunganga/furnish-backend/internal/modules/order"
)

type postgresRepo struct{ db *sql.DB }

func NewPostgresRepository(db *sql.DB) Repository { return &postgresRepo{db: db} }

const invoiceColumns = `id,order_id,number,year,sequence,subtotal,tax,total,currency,pdf_location,created_at`

func (r *postgresRepo) IssueInvoice(ctx context.Context, orderID string, year int, build BuildFunc) (*Invoice, bool, error) {
	oid, err := uuid.Parse(orderID)
	if err != nil {
		return nil, false, order.ErrNotFound
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, err
	}
	defer tx.Rollback()

	snap := OrderSnapshot{ID: oid}
	err = tx.QueryRowContext(ctx,
		`SELECT total, currency, status FROM orders WHERE id=$1 FOR UPDATE`, oid).
		Scan(&snap.Total, &snap.Currency, &snap.Status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, order.ErrNotFound
	}
	if err != nil {
		return nil, false, fmt.Errorf("lock order: %w", err)
	}

	existing, err := scanInvoice(tx.QueryRowContext(ctx,
		`SELECT `+invoiceColumns+` FROM invoices WHERE order_id=$1`, oid).Scan)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, fmt.Errorf("load invoice: %w", err)
	}

	if snap.Status == order.StatusCancelled {
		return nil, false, fmt.Errorf("%w: order %s is %s", ErrOrderNotInvoiceable, oid, snap.Status)
	}

	// Row lock on invoice_sequences serialises concurrent issuers within a year.
	var seq int64
	err = tx.QueryRowContext(ctx, `
		INSERT INTO invoice_sequences (year, last_value) VALUES ($1, 1)
		ON CONFLICT (year) DO UPDATE SET last_value = invoice_sequences.last_value + 1
		RETURNING last_value`, year).Scan(&seq)
	if err != nil {
		return nil, false, fmt.Errorf("increment invoice sequence: %w", err)
	}

	inv, err := build(snap, seq)
	if err != nil {
		return nil, false, err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO invoices
		  (id, order_id, number, year, sequence, subtotal, tax, total, currency, pdf_location, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		inv.ID, inv.OrderID, inv.Number, inv.Year, inv.Sequence,
		inv.Subtotal, inv.Tax, inv.Total, inv.Currency, inv.PDFLocation, inv.CreatedAt)
	if err != nil {
		return nil, false, fmt.Errorf("insert invoice: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, false, err
	}
	return inv, true, nil
}

func (r *postgresRepo) GetInvoiceByID(ctx context.Context, id string) (*Invoice, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrNotFound
	}
	return r.getOne(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id=$1`, uid)
}

func (r *postgresRepo) GetInvoiceByOrder(ctx context.Context, orderID string) (*Invoice, error) {
	uid, err := uuid.Parse(orderID)
	if err != nil {
		return nil, ErrNotFound
	}
	return r.getOne(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE order_id=$1`, uid)
}

func (r *postgresRepo) GetInvoiceByNumber(ctx context.Context, number string) (*Invoice, error) {
	return r.getOne(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE number=$1`, number)
}

func (r *postgresRepo) ListInvoices(ctx context.Context, limit int) ([]*Invoice, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+invoiceColumns+` FROM invoices ORDER BY year DESC, sequence DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var invs []*Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows.Scan)
		if err != nil {
			return nil, err
		}
		invs = append(invs, inv)
	}
	return invs, rows.Err()
}

func (r *postgresRepo) SetPDFLocation(ctx context.Context, id, location string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE invoices SET pdf_location=$1 WHERE id=$2`, location, id)
	if err != nil {
		return fmt.Errorf("set pdf location: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ── helpers ──────────────────────────────────────────────────────────────────

func (r *postgresRepo) getOne(ctx context.Context, query string, arg interface{}) (*Invoice, error) {
	inv, err := scanInvoice(r.db.QueryRowContext(ctx, query, arg).Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return inv, err
}

func scanInvoice(scan func(...interface{}) error) (*Invoice, error) {
	inv := &Invoice{}
	err := scan(&inv.ID, &inv.OrderID, &inv.Number, &inv.Year, &inv.Sequence,
		&inv.Subtotal, &inv.Tax, &inv.Total, &inv.Currency, &inv.PDFLocation, &inv.CreatedAt)
	if err != nil {
		return nil, err
	}
	return inv, nil
}
