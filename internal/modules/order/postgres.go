package order

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/georgemunganga/furnish-backend/internal/modules/inventory"
)

type postgresRepo struct{ db *sql.DB }

func NewPostgresRepository(db *sql.DB) Repository { return &postgresRepo{db: db} }

const orderColumns = `id,customer_name,email,phone,address,city,country,notes,
	currency,total,status,payment_method,fingerprint,created_at,updated_at`

// CreateOrder runs the whole write under an advisory lock keyed by the customer email, so
// two submissions from the same customer serialise on the duplicate recheck. Stock rows are
// locked by the guarded UPDATE in product-id order.
func (r *postgresRepo) CreateOrder(ctx context.Context, o *Order, opts CreateOptions) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext(lower($1)))`, o.Email); err != nil {
		return fmt.Errorf("lock customer: %w", err)
	}

	if !opts.DuplicateSince.IsZero() {
		var existing string
		err := tx.QueryRowContext(ctx, `
			SELECT id FROM orders
			WHERE lower(email) = lower($1) AND fingerprint = $2
			  AND status <> $3 AND created_at >= $4
			ORDER BY created_at DESC LIMIT 1`,
			o.Email, o.Fingerprint, StatusCancelled, opts.DuplicateSince).Scan(&existing)
		switch {
		case err == nil:
			return &DuplicateError{ExistingOrderID: existing}
		case !errors.Is(err, sql.ErrNoRows):
			return fmt.Errorf("duplicate recheck: %w", err)
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders
		  (id, customer_name, email, phone, address, city, country, notes,
		   currency, total, status, payment_method, fingerprint, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`,
		o.ID, o.CustomerName, o.Email, o.Phone, o.Address, o.City, o.Country, o.Notes,
		o.Currency, o.Total, o.Status, o.PaymentMethod, o.Fingerprint, o.CreatedAt, o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	for _, item := range o.Items {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO order_items
			  (id, order_id, product_id, product_name, quantity, unit_price, subtotal, created_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
			item.ID, o.ID, item.ProductID, item.ProductName,
			item.Quantity, item.UnitPrice, item.Subtotal, item.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert order_item: %w", err)
		}
	}

	if err := inventory.DecrementTx(ctx, tx, o.StockChanges()); err != nil {
		return err
	}

	return tx.Commit()
}

func (r *postgresRepo) GetOrderByID(ctx context.Context, id string) (*Order, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrNotFound
	}
	o, err := scanOrder(r.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id=$1`, uid).Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	o.Items, err = r.listItems(ctx, o.ID)
	return o, err
}

func (r *postgresRepo) ListRecentByEmail(ctx context.Context, email string, since time.Time) ([]*Order, error) {
	return r.queryOrders(ctx, `
		SELECT `+orderColumns+` FROM orders
		WHERE lower(email) = lower($1) AND created_at >= $2
		ORDER BY created_at DESC`, email, since)
}

func (r *postgresRepo) ListOrders(ctx context.Context, f ListFilter) ([]*Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE 1=1`
	args := []interface{}{}
	if f.Status != "" {
		args = append(args, f.Status)
		query += fmt.Sprintf(` AND status=$%d`, len(args))
	}
	query += ` ORDER BY created_at DESC`
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(` LIMIT $%d`, len(args))
	}
	return r.queryOrders(ctx, query, args...)
}

func (r *postgresRepo) UpdateStatus(ctx context.Context, id string, from, to Status) error {
	uid, err := uuid.Parse(id)
	if err != nil {
		return ErrNotFound
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE orders SET status=$1, updated_at=$2 WHERE id=$3 AND status=$4`,
		to, time.Now().UTC(), uid, from)
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 1 {
		return nil
	}
	var current Status
	err = r.db.QueryRowContext(ctx, `SELECT status FROM orders WHERE id=$1`, uid).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return ErrStatusChanged
}

func (r *postgresRepo) CancelOrder(ctx context.Context, id string) (*Order, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrNotFound
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var current Status
	err = tx.QueryRowContext(ctx, `SELECT status FROM orders WHERE id=$1 FOR UPDATE`, uid).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock order: %w", err)
	}
	if !CanTransition(current, StatusCancelled) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current, StatusCancelled)
	}

	rows, err := tx.QueryContext(ctx, `SELECT product_id, quantity FROM order_items WHERE order_id=$1`, uid)
	if err != nil {
		return nil, fmt.Errorf("load items: %w", err)
	}
	var changes []inventory.Change
	for rows.Next() {
		var c inventory.Change
		if err := rows.Scan(&c.ProductID, &c.Quantity); err != nil {
			rows.Close()
			return nil, err
		}
		changes = append(changes, c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := inventory.RestoreTx(ctx, tx, changes); err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE orders SET status=$1, updated_at=$2 WHERE id=$3`,
		StatusCancelled, time.Now().UTC(), uid); err != nil {
		return nil, fmt.Errorf("cancel order: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return r.GetOrderByID(ctx, id)
}

// ── helpers ──────────────────────────────────────────────────────────────────

func scanOrder(scan func(...interface{}) error) (*Order, error) {
	o := &Order{}
	err := scan(&o.ID, &o.CustomerName, &o.Email, &o.Phone, &o.Address, &o.City, &o.Country,
		&o.Notes, &o.Currency, &o.Total, &o.Status, &o.PaymentMethod, &o.Fingerprint,
		&o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return o, nil
}

func (r *postgresRepo) queryOrders(ctx context.Context, query string, args ...interface{}) ([]*Order, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var orders []*Order
	for rows.Next() {
		o, err := scanOrder(rows.Scan)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

func (r *postgresRepo) listItems(ctx context.Context, orderID uuid.UUID) ([]*Item, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, order_id, product_id, product_name, quantity, unit_price, subtotal, created_at
		FROM order_items WHERE order_id=$1 ORDER BY product_id ASC`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Item
	for rows.Next() {
		item := &Item{}
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.ProductName,
			&item.Quantity, &item.UnitPrice, &item.Subtotal, &item.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}
