package middleware

import (
	"net/http"
	"slices"

	"github.com/ecommerce/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RoleConfig holds configuration for the role guard
type RoleConfig struct {
	Logger *zap.Logger
	// OnDenied is called instead of the default 403 response (optional)
	OnDenied func(c *gin.Context, required []string)
}

// RequireRoles lets the request through when the caller holds one of roles.
// It must run after JWTAuthMiddleware.
func RequireRoles(roles ...string) gin.HandlerFunc {
	return RequireRolesWithConfig(RoleConfig{}, roles...)
}

// RequireRolesWithConfig is RequireRoles with custom config
func RequireRolesWithConfig(cfg RoleConfig, roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := GetJWTClaims(c)
		if claims == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeUnauthorized, "Authentication required", c.GetString(RequestIDContextKey)))
			return
		}

		if !slices.Contains(roles, claims.Role) {
			if cfg.Logger != nil {
				cfg.Logger.Warn("Role check failed",
					zap.String("user_id", claims.Subject),
					zap.String("role", claims.Role),
					zap.Strings("required_any", roles),
					zap.String("path", c.Request.URL.Path),
				)
			}
			if cfg.OnDenied != nil {
				cfg.OnDenied(c, roles)
				return
			}
			c.AbortWithStatusJSON(http.StatusForbidden, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeForbidden, "You do not have permission to perform this action", c.GetString(RequestIDContextKey)))
			return
		}

		c.Next()
	}
}
