package billing

import (
	"context"
	"fmt"
	"html/template"
	"os"
	"path/filepath"

	"github.com/georgemunganga/furnish-backend/internal/modules/order"
)

// ArtifactStore persists a printable rendition of an invoice and returns its location.
type ArtifactStore interface {
	Save(ctx context.Context, inv *Invoice, o *order.Order) (string, error)
}

// FileStore writes one HTML document per invoice into a directory.
type FileStore struct {
	dir string
}

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create invoice dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) Save(_ context.Context, inv *Invoice, o *order.Order) (string, error) {
	path := filepath.Join(s.dir, inv.Number+".html")
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return "", fmt.Errorf("create invoice file: %w", err)
	}
	if err := invoiceTemplate.Execute(f, struct {
		Invoice *Invoice
		Order   *order.Order
	}{inv, o}); err != nil {
		f.Close()
		os.Remove(tmp)
		return "", fmt.Errorf("render invoice: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return "", err
	}
	if err := os.Rename(tmp, path); err != nil {
		return "", fmt.Errorf("store invoice: %w", err)
	}
	return path, nil
}

// money formats minor units as major.minor with two decimals.
func money(minor int64) string {
	sign := ""
	if minor < 0 {
		sign, minor = "-", -minor
	}
	return fmt.Sprintf("%s%d.%02d", sign, minor/100, minor%100)
}

var invoiceTemplate = template.Must(template.New("invoice").Funcs(template.FuncMap{"money": money}).Parse(`<!DOCTYPE html>
<html><head><meta charset="utf-8"><title>Invoice {{.Invoice.Number}}</title></head>
<body>
<h1>Invoice {{.Invoice.Number}}</h1>
<p>Date: {{.Invoice.CreatedAt.Format "2006-01-02"}}<br>Order: {{.Order.ID}}</p>
<p>{{.Order.CustomerName}}<br>{{.Order.Address}}<br>{{.Order.City}}, {{.Order.Country}}</p>
<table>
<tr><th>Item</th><th>Qty</th><th>Unit price</th><th>Amount</th></tr>
{{range .Order.Items}}<tr><td>{{.ProductName}}</td><td>{{.Quantity}}</td><td>{{money .UnitPrice}}</td><td>{{money .Subtotal}}</td></tr>
{{end}}</table>
<p>Net: {{money .Invoice.Subtotal}} {{.Invoice.Currency}}<br>
Tax: {{money .Invoice.Tax}} {{.Invoice.Currency}}<br>
<strong>Total: {{money .Invoice.Total}} {{.Invoice.Currency}}</strong></p>
</body></html>
`))
