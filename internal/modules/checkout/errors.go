package checkout

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/georgemunganga/furnish-backend/internal/modules/inventory"
	"github.com/georgemunganga/furnish-backend/internal/modules/order"
	"github.com/georgemunganga/furnish-backend/internal/modules/pricing"
)

// Machine-readable failure codes.
const (
	CodeValidation        = "validation_error"
	CodeProductNotFound   = "product_not_found"
	CodeInsufficientStock = "insufficient_stock"
	CodeDuplicateOrder    = "duplicate_order"
	CodePersistence       = "persistence_error"
)

// ValidationError maps field paths (JSON names) to what is wrong with them.
type ValidationError struct {
	Fields map[string]string `json:"fields"`
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + e.Fields[k]
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// PersistenceError wraps a storage failure. Nothing was committed.
type PersistenceError struct {
	Err error
}

func (e *PersistenceError) Error() string { return fmt.Sprintf("persistence failure: %v", e.Err) }
func (e *PersistenceError) Unwrap() error { return e.Err }

// Code classifies a PlaceOrder error. Errors outside the taxonomy count as persistence
// failures; "" means err is nil.
func Code(err error) string {
	if err == nil {
		return ""
	}
	var (
		verr *ValidationError
		nf   *pricing.ProductNotFoundError
		ins  *inventory.InsufficientStockError
		dup  *order.DuplicateError
	)
	switch {
	case errors.As(err, &verr):
		return CodeValidation
	case errors.As(err, &nf):
		return CodeProductNotFound
	case errors.As(err, &ins):
		return CodeInsufficientStock
	case errors.As(err, &dup):
		return CodeDuplicateOrder
	default:
		return CodePersistence
	}
}

// classify passes taxonomy errors through and wraps everything else as a PersistenceError.
// A product withdrawn after pricing is reported as not found.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var gone *inventory.UnavailableError
	if errors.As(err, &gone) {
		return &pricing.ProductNotFoundError{ProductIDs: []string{gone.ProductID}}
	}
	var perr *PersistenceError
	if errors.As(err, &perr) || Code(err) != CodePersistence {
		return err
	}
	return &PersistenceError{Err: err}
}
