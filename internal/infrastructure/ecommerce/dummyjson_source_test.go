package ecommerce

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func createMockFeedServer(_ *testing.T, handler http.HandlerFunc) *httptest.Server {
	return httptest.NewServer(handler)
}

func TestDummyJSONSource_FetchProducts(t *testing.T) {
	server := createMockFeedServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"products":[
			{"id":1,"title":"Essence Mascara","description":"Volumizing","price":9.99,"stock":5,"thumbnail":"https://cdn/1.png","category":"beauty"},
			{"id":2,"title":"  ","price":1,"stock":1,"category":"beauty"},
			{"id":3,"title":"Table Lamp","price":49.5,"stock":-3,"category":"home-decoration"}
		],"total":3}`))
	})
	defer server.Close()

	source := NewDummyJSONSource(server.URL, time.Second, zap.NewNop())
	products, err := source.FetchProducts(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 2, "blank titles are skipped")

	assert.Equal(t, "Essence Mascara", products[0].Name)
	assert.True(t, decimal.RequireFromString("9.99").Equal(products[0].Price))
	assert.Equal(t, 5, products[0].Stock)
	assert.Equal(t, "https://cdn/1.png", products[0].ImageURL)
	assert.Equal(t, "beauty", products[0].Category)

	assert.Equal(t, 0, products[1].Stock, "negative stock is clamped")
	assert.Equal(t, "home decoration", products[1].Category)
}

func TestDummyJSONSource_HTTPError(t *testing.T) {
	server := createMockFeedServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	defer server.Close()

	_, err := NewDummyJSONSource(server.URL, time.Second, zap.NewNop()).FetchProducts(context.Background())
	assert.ErrorIs(t, err, ErrFeedRequestFailed)
}

func TestDummyJSONSource_BadJSON(t *testing.T) {
	server := createMockFeedServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>not json</html>`))
	})
	defer server.Close()

	_, err := NewDummyJSONSource(server.URL, time.Second, zap.NewNop()).FetchProducts(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode")
}

func TestDummyJSONSource_Unreachable(t *testing.T) {
	server := createMockFeedServer(t, func(w http.ResponseWriter, r *http.Request) {})
	url := server.URL
	server.Close()

	_, err := NewDummyJSONSource(url, time.Second, zap.NewNop()).FetchProducts(context.Background())
	assert.ErrorIs(t, err, ErrFeedUnavailable)
}

func TestNewDummyJSONSource_Defaults(t *testing.T) {
	s := NewDummyJSONSource("", 0, zap.NewNop())
	assert.Equal(t, DefaultDummyJSONURL, s.url)
	assert.Equal(t, 15*time.Second, s.httpClient.Timeout)
}
