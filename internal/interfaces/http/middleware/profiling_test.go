package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"runtime/pprof"
	"testing"

	"github.com/ecommerce/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestDefaultProfilingConfig(t *testing.T) {
	cfg := middleware.DefaultProfilingConfig()

	assert.True(t, cfg.Enabled)
	assert.Contains(t, cfg.SkipPaths, "/health")
	assert.Contains(t, cfg.SkipPathPrefixes, "/swagger")
}

func TestProfilingMiddleware_Disabled(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	var hasRoute bool
	r.Use(middleware.ProfilingWithConfig(middleware.ProfilingConfig{Enabled: false}))
	r.GET("/api/v1/products", func(c *gin.Context) {
		_, hasRoute = pprof.Label(c.Request.Context(), "route")
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/products", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.False(t, hasRoute)
}

func TestProfilingMiddleware_Labels(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	labels := map[string]string{}
	r.Use(func(c *gin.Context) {
		c.Set(middleware.JWTRoleKey, "admin")
		c.Next()
	})
	r.Use(middleware.Profiling())
	r.GET("/api/v1/order-details/:id", func(c *gin.Context) {
		for _, key := range []string{"method", "route", "controller", "role"} {
			if v, ok := pprof.Label(c.Request.Context(), key); ok {
				labels[key] = v
			}
		}
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/order-details/42", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]string{
		"method":     "GET",
		"route":      "/api/v1/order-details/:id",
		"controller": "order-details",
		"role":       "admin",
	}, labels)
}

func TestProfilingMiddleware_SkipPaths(t *testing.T) {
	tests := []struct {
		name      string
		path      string
		wantLabel bool
	}{
		{"health", "/health", false},
		{"swagger", "/swagger/index.html", false},
		{"api", "/api/v1/products", true},
		{"health subpath", "/health/deep", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gin.SetMode(gin.TestMode)
			r := gin.New()

			var hasRoute bool
			r.Use(middleware.Profiling())
			r.GET(tt.path, func(c *gin.Context) {
				_, hasRoute = pprof.Label(c.Request.Context(), "route")
				c.Status(http.StatusOK)
			})

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))

			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, tt.wantLabel, hasRoute)
		})
	}
}
