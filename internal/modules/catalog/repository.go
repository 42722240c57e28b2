package catalog

import "context"

// Repository defines the interface for product storage.
type Repository interface {
	// Create inserts a new product including its initial stock.
	Create(ctx context.Context, p *Product) error

	// GetByID returns ErrNotFound when no row matches.
	GetByID(ctx context.Context, id string) (*Product, error)

	// GetByIDs fetches every product in ids with a single query. Missing ids are simply absent
	// from the result.
	GetByIDs(ctx context.Context, ids []string) ([]*Product, error)

	List(ctx context.Context, f ListFilter) ([]*Product, error)

	// Update writes catalog fields. It never touches stock.
	Update(ctx context.Context, p *Product) error
}
