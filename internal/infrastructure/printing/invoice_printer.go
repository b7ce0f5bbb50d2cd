package printing

import (
	"context"

	appbilling "github.com/ecommerce/backend/internal/application/billing"
)

const invoiceTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="UTF-8">
<title>Invoice {{.InvoiceNumber}}</title>
<style>
  body { font-family: Helvetica, Arial, sans-serif; font-size: 12px; color: #222; }
  h1 { font-size: 22px; margin: 0 0 4px 0; }
  .muted { color: #777; }
  .meta td { padding: 2px 12px 2px 0; }
  table.lines { width: 100%; border-collapse: collapse; margin-top: 24px; }
  table.lines th { text-align: left; border-bottom: 2px solid #222; padding: 6px 4px; }
  table.lines td { border-bottom: 1px solid #ddd; padding: 6px 4px; }
  .num { text-align: right; }
  .total td { font-weight: bold; border-bottom: none; }
  .stamp { color: #b00; font-size: 18px; font-weight: bold; }
</style>
</head>
<body>
  <h1>Invoice</h1>
  <div class="muted">{{.InvoiceNumber}}</div>
  {{if eq .Status "canceled"}}<div class="stamp">CANCELED</div>{{end}}
  <table class="meta">
    <tr><td class="muted">Issued</td><td>{{formatDate .IssuedAt}}</td></tr>
    <tr><td class="muted">Order</td><td>#{{shortID .OrderID}}</td></tr>
    <tr><td class="muted">Billed to</td><td>{{title .CustomerName}}{{if .CustomerEmail}} &lt;{{.CustomerEmail}}&gt;{{end}}</td></tr>
    {{if .PaymentMethod}}<tr><td class="muted">Payment</td><td>{{title .PaymentMethod}}</td></tr>{{end}}
  </table>
  <table class="lines">
    <thead>
      <tr><th>#</th><th>Product</th><th class="num">Qty</th><th class="num">Unit price</th><th class="num">Subtotal</th></tr>
    </thead>
    <tbody>
    {{range $i, $line := .Lines}}
      <tr>
        <td>{{inc $i}}</td>
        <td>{{$line.ProductName}}</td>
        <td class="num">{{$line.Quantity}}</td>
        <td class="num">{{formatMoney $line.UnitPrice}}</td>
        <td class="num">{{formatMoney $line.Subtotal}}</td>
      </tr>
    {{end}}
      <tr class="total"><td colspan="4" class="num">Total</td><td class="num">{{formatMoney .Total}}</td></tr>
    </tbody>
  </table>
</body>
</html>`

const invoiceFooter = `<div style="font-size:8px;width:100%;text-align:center;color:#777;">
Page <span class="pageNumber"></span> of <span class="totalPages"></span></div>`

// InvoicePrinter renders invoices to PDF through an HTML template
type InvoicePrinter struct {
	engine   *TemplateEngine
	renderer PDFRenderer
}

// NewInvoicePrinter creates an invoice printer
func NewInvoicePrinter(engine *TemplateEngine, renderer PDFRenderer) *InvoicePrinter {
	return &InvoicePrinter{engine: engine, renderer: renderer}
}

// RenderHTML returns the invoice as an HTML document
func (p *InvoicePrinter) RenderHTML(doc *appbilling.InvoiceDocument) (string, error) {
	return p.engine.RenderString("invoice", invoiceTemplate, doc)
}

// RenderInvoice returns the invoice as a PDF
func (p *InvoicePrinter) RenderInvoice(ctx context.Context, doc *appbilling.InvoiceDocument) ([]byte, error) {
	html, err := p.RenderHTML(doc)
	if err != nil {
		return nil, err
	}

	result, err := p.renderer.Render(ctx, &RenderRequest{
		HTML:       html,
		Title:      "Invoice " + doc.InvoiceNumber,
		Margins:    DefaultMargins(),
		FooterHTML: invoiceFooter,
	})
	if err != nil {
		return nil, err
	}
	return result.PDFData, nil
}

var _ appbilling.InvoicePDFRenderer = (*InvoicePrinter)(nil)
