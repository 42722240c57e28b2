package billing

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/georgemunganga/furnish-backend/internal/modules/order"
)

// MaxSequence is the largest sequence that fits the six-digit field.
const MaxSequence = 999999

var (
	ErrNotFound = errors.New("invoice not found")
	// ErrSequenceExhausted means the year's counter passed MaxSequence. Issuance fails rather
	// than widening or reusing numbers.
	ErrSequenceExhausted = errors.New("invoice sequence exhausted for year")
	// ErrOrderNotInvoiceable rejects invoices for cancelled orders.
	ErrOrderNotInvoiceable = errors.New("order cannot be invoiced")
	ErrInvalidNumber       = errors.New("invalid invoice number")
)

var (
	numberPattern = regexp.MustCompile(`^([A-Z]{2,4})-(\d{4})-(\d{6})$`)
	prefixPattern = regexp.MustCompile(`^[A-Z]{2,4}$`)
)

// Invoice is materialized on demand for an order. Number never changes once issued.
type Invoice struct {
	ID          uuid.UUID `json:"id"`
	OrderID     uuid.UUID `json:"order_id"`
	Number      string    `json:"number"`
	Year        int       `json:"year"`
	Sequence    int64     `json:"sequence"`
	Subtotal    int64     `json:"subtotal"`
	Tax         int64     `json:"tax"`
	Total       int64     `json:"total"`
	Currency    string    `json:"currency"`
	PDFLocation string    `json:"pdf_location,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// OrderSnapshot is the order state read under lock while issuing.
type OrderSnapshot struct {
	ID       uuid.UUID
	Total    int64
	Currency string
	Status   order.Status
}

// FormatNumber renders PREFIX-YYYY-NNNNNN.
func FormatNumber(prefix string, year int, seq int64) (string, error) {
	if !prefixPattern.MatchString(prefix) {
		return "", fmt.Errorf("%w: prefix %q", ErrInvalidNumber, prefix)
	}
	if year < 1000 || year > 9999 {
		return "", fmt.Errorf("%w: year %d", ErrInvalidNumber, year)
	}
	if seq < 1 {
		return "", fmt.Errorf("%w: sequence %d", ErrInvalidNumber, seq)
	}
	if seq > MaxSequence {
		return "", fmt.Errorf("%w: %d reached %d", ErrSequenceExhausted, year, seq)
	}
	return fmt.Sprintf("%s-%04d-%06d", prefix, year, seq), nil
}

// ParseNumber splits a number back into its parts.
func ParseNumber(number string) (prefix string, year int, seq int64, err error) {
	m := numberPattern.FindStringSubmatch(number)
	if m == nil {
		return "", 0, 0, fmt.Errorf("%w: %q", ErrInvalidNumber, number)
	}
	year, _ = strconv.Atoi(m[2])
	seq, _ = strconv.ParseInt(m[3], 10, 64)
	return m[1], year, seq, nil
}

// ValidNumber reports whether number matches the invoice format.
func ValidNumber(number string) bool { return numberPattern.MatchString(number) }

// SplitTax extracts tax from a tax-inclusive total at rateBps basis points, rounding the net
// amount half up. net + tax == total always holds.
func SplitTax(total, rateBps int64) (net, tax int64) {
	if rateBps <= 0 {
		return total, 0
	}
	denom := 10000 + rateBps
	net = (total*10000 + denom/2) / denom
	return net, total - net
}
