package middleware

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ecommerce/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// readAll answers 413 when the capped body overflows, the way upload handlers do
func readAll(c *gin.Context) {
	data, err := io.ReadAll(c.Request.Body)
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"code": dto.ErrCodePayloadTooLarge, "limit": maxErr.Limit})
		return
	}
	if err != nil {
		c.Status(http.StatusBadRequest)
		return
	}
	c.String(http.StatusOK, "%d", len(data))
}

func newBodyLimitRouter(limit int64) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RequestID(), BodyLimit(limit))
	router.POST("/upload", readAll)
	router.GET("/upload", readAll)
	return router
}

func TestBodyLimit(t *testing.T) {
	tests := []struct {
		name          string
		method        string
		body          string
		contentLength int64
		wantStatus    int
		wantBody      string
	}{
		{name: "declared body within limit", method: http.MethodPost, body: "small body", contentLength: 10, wantStatus: http.StatusOK, wantBody: "10"},
		{name: "body exactly at limit", method: http.MethodPost, body: strings.Repeat("x", 64), contentLength: 64, wantStatus: http.StatusOK, wantBody: "64"},
		{name: "streamed body within limit", method: http.MethodPost, body: "chunked", contentLength: -1, wantStatus: http.StatusOK, wantBody: "7"},
		{name: "no body", method: http.MethodGet, wantStatus: http.StatusOK, wantBody: "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/upload", strings.NewReader(tt.body))
			req.ContentLength = tt.contentLength
			w := httptest.NewRecorder()
			newBodyLimitRouter(64).ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantBody, w.Body.String())
		})
	}
}

func TestBodyLimit_RejectsDeclaredOversizeBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader(strings.Repeat("x", 200)))
	req.ContentLength = 200
	req.Header.Set(RequestIDHeader, "req-413")
	w := httptest.NewRecorder()
	newBodyLimitRouter(100).ServeHTTP(w, req)

	require.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, dto.ErrCodePayloadTooLarge, resp.Error.Code)
	assert.Equal(t, "req-413", resp.Error.RequestID)
}

func TestBodyLimit_CapsStreamedBody(t *testing.T) {
	// no Content-Length, so only the reader cap can stop the body
	req := httptest.NewRequest(http.MethodPost, "/upload", io.NopCloser(strings.NewReader(strings.Repeat("x", 100))))
	req.ContentLength = -1
	req.Header.Set("Transfer-Encoding", "chunked")
	w := httptest.NewRecorder()
	newBodyLimitRouter(50).ServeHTTP(w, req)

	require.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	var resp struct {
		Code  string `json:"code"`
		Limit int64  `json:"limit"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, dto.ErrCodePayloadTooLarge, resp.Code)
	assert.Equal(t, int64(50), resp.Limit)
}
