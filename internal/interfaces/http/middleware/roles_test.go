package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ecommerce/backend/internal/infrastructure/auth"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
)

func withClaims(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		setClaims(c, &auth.Claims{
			RegisteredClaims: jwt.RegisteredClaims{Subject: "user-1"},
			Role:             role,
		}, "token")
		c.Next()
	}
}

func TestRequireRoles(t *testing.T) {
	tests := []struct {
		name       string
		auth       gin.HandlerFunc
		wantStatus int
		wantCode   string
	}{
		{"admin allowed", withClaims("ADMIN"), http.StatusOK, ""},
		{"client forbidden", withClaims("CLIENT"), http.StatusForbidden, "FORBIDDEN"},
		{"no claims", func(c *gin.Context) { c.Next() }, http.StatusUnauthorized, "UNAUTHORIZED"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			router.GET("/admin", tt.auth, RequireRoles("ADMIN"), func(c *gin.Context) {
				c.Status(http.StatusOK)
			})

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin", nil))

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, errorCode(t, w))
			}
		})
	}
}

func TestRequireRoles_AnyOf(t *testing.T) {
	router := gin.New()
	router.GET("/orders", withClaims("CLIENT"), RequireRoles("ADMIN", "CLIENT"), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/orders", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequireRolesWithConfig_OnDenied(t *testing.T) {
	var denied []string
	cfg := RoleConfig{OnDenied: func(c *gin.Context, required []string) {
		denied = required
		c.AbortWithStatus(http.StatusNotFound)
	}}

	router := gin.New()
	router.GET("/admin", withClaims("CLIENT"), RequireRolesWithConfig(cfg, "ADMIN"), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, []string{"ADMIN"}, denied)
}
