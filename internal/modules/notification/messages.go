package notification

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/georgemunganga/furnish-backend/internal/modules/order"
)

func amount(minor int64, currency string) string {
	sign := ""
	if minor < 0 {
		sign, minor = "-", -minor
	}
	return fmt.Sprintf("%s%d.%02d %s", sign, minor/100, minor%100, currency)
}

func shortID(o *order.Order) string { return strings.ToUpper(o.ID.String()[:8]) }

var customerHTML = template.Must(template.New("customer").Funcs(template.FuncMap{"amount": amount}).Parse(`<p>Hi {{.Order.CustomerName}},</p>
<p>Thank you for your order with {{.Store}}. Your reference is <strong>{{.Ref}}</strong>.</p>
<table>
{{range .Order.Items}}<tr><td>{{.ProductName}}</td><td>x{{.Quantity}}</td><td>{{amount .Subtotal $.Order.Currency}}</td></tr>
{{end}}</table>
<p>Total: <strong>{{amount .Order.Total .Order.Currency}}</strong></p>
<p>Delivery to: {{.Order.Address}}, {{.Order.City}}, {{.Order.Country}}</p>
`))

var adminHTML = template.Must(template.New("admin").Funcs(template.FuncMap{"amount": amount}).Parse(`<p>New order <strong>{{.Ref}}</strong> ({{.Order.ID}})</p>
<p>{{.Order.CustomerName}} &lt;{{.Order.Email}}&gt;, {{.Order.Phone}}<br>{{.Order.Address}}, {{.Order.City}}, {{.Order.Country}}</p>
<p>Payment: {{.Order.PaymentMethod}}. Total: {{amount .Order.Total .Order.Currency}}</p>
<ul>
{{range .Order.Items}}<li>{{.Quantity}} x {{.ProductName}} ({{.ProductID}})</li>
{{end}}</ul>
{{if .Order.Notes}}<p>Notes: {{.Order.Notes}}</p>{{end}}
`))

type messageData struct {
	Store string
	Ref   string
	Order *order.Order
}

func render(t *template.Template, store string, o *order.Order) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, messageData{Store: store, Ref: shortID(o), Order: o}); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func lines(o *order.Order) string {
	var b strings.Builder
	for _, it := range o.Items {
		fmt.Fprintf(&b, "- %d x %s: %s\n", it.Quantity, it.ProductName, amount(it.Subtotal, o.Currency))
	}
	return b.String()
}

func customerEmail(store string, o *order.Order) (subject, html, text string, err error) {
	html, err = render(customerHTML, store, o)
	if err != nil {
		return "", "", "", err
	}
	subject = fmt.Sprintf("Your %s order %s", store, shortID(o))
	text = fmt.Sprintf("Hi %s,\n\nThank you for your order. Reference: %s\n\n%s\nTotal: %s\n",
		o.CustomerName, shortID(o), lines(o), amount(o.Total, o.Currency))
	return subject, html, text, nil
}

func adminEmail(store string, o *order.Order) (subject, html, text string, err error) {
	html, err = render(adminHTML, store, o)
	if err != nil {
		return "", "", "", err
	}
	subject = fmt.Sprintf("[%s] New order %s: %s", store, shortID(o), amount(o.Total, o.Currency))
	text = fmt.Sprintf("New order %s from %s\nPayment: %s\n\n%s\nTotal: %s\n",
		o.ID, o.CustomerName, o.PaymentMethod, lines(o), amount(o.Total, o.Currency))
	return subject, html, text, nil
}

func adminWhatsApp(o *order.Order) string {
	return fmt.Sprintf("New order %s\n%s, %s\n%s\nTotal: %s (%s)",
		shortID(o), o.CustomerName, o.City, strings.TrimRight(lines(o), "\n"),
		amount(o.Total, o.Currency), o.PaymentMethod)
}
