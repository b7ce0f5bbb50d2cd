package handler

import (
	"github.com/ecommerce/backend/internal/application/identity"
	"github.com/ecommerce/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
)

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	BaseHandler
	authService *identity.AuthService
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *identity.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
	}
}

// Register godoc
// @Summary      Register a customer account
// @Description  Creates an unverified CLIENT account and mails a verification link
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body RegisterRequest true "Account details"
// @Success      201 {object} dto.Response{data=identity.RegisterResult}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if !h.bindJSON(c, &req) {
		return
	}

	result, err := h.authService.Register(c.Request.Context(), identity.RegisterInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, result)
}

// VerifyEmail godoc
// @Summary      Verify email address
// @Tags         auth
// @Produce      json
// @Param        token query string true "Verification token"
// @Success      200 {object} dto.Response{data=identity.MessageResult}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /auth/verify [get]
func (h *AuthHandler) VerifyEmail(c *gin.Context) {
	var q TokenQuery
	if !h.bindQuery(c, &q) {
		return
	}

	result, err := h.authService.VerifyEmail(c.Request.Context(), q.Token)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// Login godoc
// @Summary      User login
// @Description  Authenticate with email and password and receive a bearer token
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body LoginRequest true "Login credentials"
// @Success      200 {object} dto.Response{data=identity.LoginResult}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      429 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if !h.bindJSON(c, &req) {
		return
	}

	result, err := h.authService.Login(c.Request.Context(), identity.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// RequestPasswordReset godoc
// @Summary      Request a password reset
// @Description  Always answers with the same message whether or not the account exists
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body RequestResetRequest true "Account email"
// @Success      200 {object} dto.Response{data=identity.MessageResult}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /auth/request-reset [post]
func (h *AuthHandler) RequestPasswordReset(c *gin.Context) {
	var req RequestResetRequest
	if !h.bindJSON(c, &req) {
		return
	}

	result, err := h.authService.RequestPasswordReset(c.Request.Context(), req.Email)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// ValidateResetToken godoc
// @Summary      Check a password reset token
// @Tags         auth
// @Produce      json
// @Param        token query string true "Reset token"
// @Success      200 {object} dto.Response{data=identity.ResetTokenResult}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /auth/reset-password [get]
func (h *AuthHandler) ValidateResetToken(c *gin.Context) {
	var q TokenQuery
	if !h.bindQuery(c, &q) {
		return
	}

	result, err := h.authService.ValidateResetToken(c.Request.Context(), q.Token)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// ResetPassword godoc
// @Summary      Reset password
// @Description  Sets a new password and revokes every token issued before the reset
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body ResetPasswordRequest true "Reset token and new password"
// @Success      200 {object} dto.Response{data=identity.MessageResult}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /auth/reset-password [post]
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req ResetPasswordRequest
	if !h.bindJSON(c, &req) {
		return
	}

	result, err := h.authService.ResetPassword(c.Request.Context(), req.Token, req.NewPassword)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// Logout godoc
// @Summary      User logout
// @Description  Revokes the current access token until it expires
// @Tags         auth
// @Produce      json
// @Success      200 {object} dto.Response{data=identity.MessageResult}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	claims := middleware.GetJWTClaims(c)
	if claims == nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	userID, err := claims.GetUserUUID()
	if err != nil {
		h.Unauthorized(c, "Invalid user ID in token")
		return
	}

	result, err := h.authService.Logout(c.Request.Context(), identity.LogoutInput{
		UserID:   userID,
		TokenJTI: claims.ID,
		TokenTTL: claims.GetRemainingTTL(),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// Me godoc
// @Summary      Get current user
// @Tags         auth
// @Produce      json
// @Success      200 {object} dto.Response{data=identity.UserDTO}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	user, err := h.authService.Me(c.Request.Context(), userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, user)
}
