package inventory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/georgemunganga/furnish-backend/internal/modules/catalog"
)

type postgresRepo struct{ db *sql.DB }

func NewPostgresRepository(db *sql.DB) Repository { return &postgresRepo{db: db} }

func (r *postgresRepo) AdjustStock(ctx context.Context, productID string, delta int) (int, error) {
	var stock int
	err := r.db.QueryRowContext(ctx, `
		UPDATE products SET stock = stock + $1, updated_at = NOW()
		WHERE id = $2 AND stock + $1 >= 0
		RETURNING stock`, delta, productID).Scan(&stock)
	if err == nil {
		return stock, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("adjust stock: %w", err)
	}
	current, err := currentStock(ctx, r.db, productID)
	if err != nil {
		return 0, err
	}
	return 0, &InsufficientStockError{ProductID: productID, Available: current, Requested: -delta}
}

// DecrementTx subtracts each change from stock inside tx. The guard in the WHERE clause
// makes the check and the write one statement, so a concurrent decrement can never take
// stock below zero. The first line that no longer fits aborts with *InsufficientStockError,
// or *UnavailableError when the product is gone or unpublished; the caller must roll tx back.
func DecrementTx(ctx context.Context, tx Tx, changes []Change) error {
	for _, c := range Normalize(changes) {
		res, err := tx.ExecContext(ctx, `
			UPDATE products SET stock = stock - $1, updated_at = NOW()
			WHERE id = $2 AND stock >= $1 AND is_published = true`, c.Quantity, c.ProductID)
		if err != nil {
			return fmt.Errorf("decrement stock %s: %w", c.ProductID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("decrement stock %s: %w", c.ProductID, err)
		}
		if n == 1 {
			continue
		}
		var (
			available int
			published bool
		)
		err = tx.QueryRowContext(ctx, `SELECT stock, is_published FROM products WHERE id = $1`, c.ProductID).
			Scan(&available, &published)
		if errors.Is(err, sql.ErrNoRows) || (err == nil && !published) {
			return &UnavailableError{ProductID: c.ProductID}
		}
		if err != nil {
			return fmt.Errorf("read stock %s: %w", c.ProductID, err)
		}
		return &InsufficientStockError{ProductID: c.ProductID, Available: available, Requested: c.Quantity}
	}
	return nil
}

// RestoreTx adds quantities back, used when an order is cancelled. Deleted products are skipped.
func RestoreTx(ctx context.Context, tx Tx, changes []Change) error {
	for _, c := range Normalize(changes) {
		if _, err := tx.ExecContext(ctx, `
			UPDATE products SET stock = stock + $1, updated_at = NOW()
			WHERE id = $2`, c.Quantity, c.ProductID); err != nil {
			return fmt.Errorf("restore stock %s: %w", c.ProductID, err)
		}
	}
	return nil
}

type rowQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

func currentStock(ctx context.Context, q rowQuerier, productID string) (int, error) {
	var stock int
	err := q.QueryRowContext(ctx, `SELECT stock FROM products WHERE id = $1`, productID).Scan(&stock)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, catalog.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("read stock %s: %w", productID, err)
	}
	return stock, nil
}
