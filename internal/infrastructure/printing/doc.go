// Package printing renders invoices to PDF.
//
// An html/template document is filled by TemplateEngine and converted to an
// A4 PDF by ChromedpRenderer, which drives a headless Chrome through the
// DevTools protocol:
//
//	renderer := NewChromedpRenderer(ChromedpConfig{ExecPath: "/usr/bin/chromium"})
//	defer renderer.Close()
//	printer := NewInvoicePrinter(NewTemplateEngine(), renderer)
//	pdf, err := printer.RenderInvoice(ctx, doc)
package printing
