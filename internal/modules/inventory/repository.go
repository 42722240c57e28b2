package inventory

import (
	"context"
	"database/sql"
)

// Repository is the admin-facing stock store.
type Repository interface {
	// AdjustStock applies a relative delta and returns the new level. A delta that would make
	// stock negative fails with *InsufficientStockError and changes nothing.
	AdjustStock(ctx context.Context, productID string, delta int) (int, error)
}

// Tx is the subset of *sql.Tx used by the transactional helpers.
type Tx interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}
