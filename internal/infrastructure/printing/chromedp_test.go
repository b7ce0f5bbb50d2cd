package printing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildPrintParams_A4Portrait(t *testing.T) {
	params := buildPrintParams(&RenderRequest{
		HTML:    "<p>test</p>",
		Margins: DefaultMargins(),
	})

	assert.InDelta(t, mmToInches(210), params.paperWidth, 0.01)
	assert.InDelta(t, mmToInches(297), params.paperHeight, 0.01)
	assert.InDelta(t, mmToInches(15), params.marginTop, 0.001)
	assert.InDelta(t, mmToInches(12), params.marginLeft, 0.001)
	assert.False(t, params.landscape)
	assert.Empty(t, params.footerTemplate)
}

func TestBuildPrintParams_FooterReservesMargin(t *testing.T) {
	params := buildPrintParams(&RenderRequest{
		HTML:       "<p>test</p>",
		Margins:    Margins{Bottom: 2},
		FooterHTML: "<div>page</div>",
		Landscape:  true,
	})

	assert.InDelta(t, mmToInches(10), params.marginBottom, 0.001)
	assert.True(t, params.landscape)
	assert.Equal(t, "<div>page</div>", params.footerTemplate)
}

func TestBuildCompleteHTML(t *testing.T) {
	t.Run("full document is kept", func(t *testing.T) {
		doc := "<!DOCTYPE html><html><body>x</body></html>"
		assert.Equal(t, doc, buildCompleteHTML(&RenderRequest{HTML: doc}))
	})

	t.Run("fragment is wrapped", func(t *testing.T) {
		out := buildCompleteHTML(&RenderRequest{HTML: "<p>x</p>", Title: "Invoice"})
		assert.Contains(t, out, "<!DOCTYPE html>")
		assert.Contains(t, out, "<title>Invoice</title>")
		assert.Contains(t, out, "<body><p>x</p></body>")
	})
}

func TestEstimatePageCount(t *testing.T) {
	pdf := []byte("<< /Type /Pages /Count 2 >> << /Type /Page >> << /Type /Page >>")
	assert.Equal(t, 2, estimatePageCount(pdf))
	assert.Equal(t, 1, estimatePageCount([]byte("%PDF-1.4")))
}

func TestChromedpRenderer_RejectsEmptyHTML(t *testing.T) {
	r := NewChromedpRenderer(ChromedpConfig{DefaultTimeout: time.Second})
	defer r.Close()

	_, err := r.Render(context.Background(), &RenderRequest{HTML: "   "})
	require.Error(t, err)
	var renderErr *RenderError
	require.ErrorAs(t, err, &renderErr)
	assert.Equal(t, ErrCodeInvalidHTML, renderErr.Code)

	_, err = r.Render(context.Background(), nil)
	assert.Error(t, err)
}

func TestChromedpRenderer_CloseIsIdempotent(t *testing.T) {
	r := NewChromedpRenderer(ChromedpConfig{})
	assert.NoError(t, r.Close())
	assert.NoError(t, r.Close())
	assert.Equal(t, defaultChromeTimeout, r.config.DefaultTimeout)
}
