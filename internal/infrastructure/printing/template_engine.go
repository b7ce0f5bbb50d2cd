package printing

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// TemplateEngine renders html/template documents with formatting helpers
type TemplateEngine struct {
	funcMap  template.FuncMap
	currency string
}

// TemplateEngineOption configures the template engine
type TemplateEngineOption func(*TemplateEngine)

// WithCurrencySymbol sets the symbol printed by formatMoney
func WithCurrencySymbol(symbol string) TemplateEngineOption {
	return func(e *TemplateEngine) {
		e.currency = symbol
	}
}

// NewTemplateEngine creates a template engine
func NewTemplateEngine(opts ...TemplateEngineOption) *TemplateEngine {
	e := &TemplateEngine{currency: "$"}
	for _, opt := range opts {
		opt(e)
	}

	e.funcMap = template.FuncMap{
		"formatMoney": func(v decimal.Decimal) string {
			return formatMoney(e.currency, v)
		},
		"formatDate":     formatDate,
		"formatDateTime": formatDateTime,
		"title":          titleCase,
		"upper":          strings.ToUpper,
		"shortID":        shortID,
		"inc":            func(i int) int { return i + 1 },
	}
	return e
}

// RenderString parses content and executes it with data
func (e *TemplateEngine) RenderString(name, content string, data interface{}) (string, error) {
	if content == "" {
		return "", NewRenderError(ErrCodeInvalidHTML, "template content is empty", nil)
	}

	tmpl, err := template.New(name).Funcs(e.funcMap).Parse(content)
	if err != nil {
		return "", NewRenderError(ErrCodeInvalidHTML, "failed to parse template", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", NewRenderError(ErrCodeRenderFailed, "failed to execute template", err)
	}
	return buf.String(), nil
}

// formatMoney formats an amount with thousand separators, e.g. $1,234.56
func formatMoney(symbol string, d decimal.Decimal) string {
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Abs()
	}

	parts := strings.Split(d.StringFixed(2), ".")
	intPart := parts[0]

	var grouped strings.Builder
	for i, c := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			grouped.WriteRune(',')
		}
		grouped.WriteRune(c)
	}
	return sign + symbol + grouped.String() + "." + parts[1]
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("January 2, 2006")
}

func formatDateTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02 15:04")
}

// titleCase converts a string to title case with Unicode-aware casing
func titleCase(s string) string {
	return cases.Title(language.English).String(strings.ToLower(s))
}

// shortID returns the first block of a UUID string
func shortID(v fmt.Stringer) string {
	s := v.String()
	if i := strings.IndexByte(s, '-'); i > 0 {
		return strings.ToUpper(s[:i])
	}
	return strings.ToUpper(s)
}
