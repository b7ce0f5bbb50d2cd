package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ecommerce/backend/internal/domain/identity"
	"github.com/ecommerce/backend/internal/domain/shared"
	"github.com/ecommerce/backend/internal/infrastructure/auth"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Messages returned by the account flows
const (
	MessageRegistered      = "Registration successful. Please check your email to verify your account."
	MessageVerified        = "Email verified successfully. You can now log in."
	MessageAlreadyVerified = "Email is already verified."
	MessageResetRequested  = "If an account with that email exists, a password reset link has been sent."
	MessagePasswordReset   = "Password has been reset successfully."
	MessageLoggedOut       = "Logged out successfully."
	defaultVerificationTTL = 5 * time.Hour
	defaultResetTTL        = 20 * time.Minute
)

// AuthServiceConfig contains configuration for the auth service
type AuthServiceConfig struct {
	VerificationTTL time.Duration // lifetime of email verification tokens
	ResetTTL        time.Duration // lifetime of password reset tokens
	VerifyURL       string        // the verification token is appended
	ResetURL        string        // the reset token is appended
}

// DefaultAuthServiceConfig returns default configuration
func DefaultAuthServiceConfig() AuthServiceConfig {
	return AuthServiceConfig{
		VerificationTTL: defaultVerificationTTL,
		ResetTTL:        defaultResetTTL,
	}
}

// AuthService handles sign-up, login and the email token flows
type AuthService struct {
	userRepo   identity.UserRepository
	roleRepo   identity.RoleRepository
	jwtService *auth.JWTService
	blacklist  auth.TokenBlacklist
	mailer     Mailer
	config     AuthServiceConfig
	logger     *zap.Logger
	now        func() time.Time
}

// NewAuthService creates a new authentication service
func NewAuthService(
	userRepo identity.UserRepository,
	roleRepo identity.RoleRepository,
	jwtService *auth.JWTService,
	blacklist auth.TokenBlacklist,
	mailer Mailer,
	config AuthServiceConfig,
	logger *zap.Logger,
) *AuthService {
	if config.VerificationTTL <= 0 {
		config.VerificationTTL = defaultVerificationTTL
	}
	if config.ResetTTL <= 0 {
		config.ResetTTL = defaultResetTTL
	}
	return &AuthService{
		userRepo:   userRepo,
		roleRepo:   roleRepo,
		jwtService: jwtService,
		blacklist:  blacklist,
		mailer:     mailer,
		config:     config,
		logger:     logger,
		now:        time.Now,
	}
}

// Register creates an unverified CLIENT account and mails the verification link
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*RegisterResult, error) {
	email := identity.NormalizeEmail(input.Email)
	s.logger.Info("Registration attempt", zap.String("email", email))

	exists, err := s.userRepo.ExistsByEmail(ctx, email)
	if err != nil {
		s.logger.Error("Failed to check email existence", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to check email availability")
	}
	if exists {
		return nil, identity.ErrEmailTaken
	}

	role, err := s.roleRepo.FindByName(ctx, identity.RoleClient)
	if err != nil {
		s.logger.Error("Default role is missing", zap.String("role", identity.RoleClient), zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to load default role")
	}

	user, err := identity.NewUser(email, input.Password, input.FirstName, input.LastName, role)
	if err != nil {
		return nil, err
	}
	if input.Phone != "" {
		if err := user.UpdateProfile(nil, nil, &input.Phone); err != nil {
			return nil, err
		}
	}
	token := user.IssueVerificationToken(s.config.VerificationTTL)

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, shared.ErrAlreadyExists) {
			return nil, identity.ErrEmailTaken
		}
		s.logger.Error("Failed to create user", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to create user")
	}

	mail := AccountMail{
		To:        user.Email,
		Name:      user.FullName(),
		Link:      s.config.VerifyURL + token,
		ExpiresIn: humanizeDuration(s.config.VerificationTTL),
	}
	if err := s.mailer.SendVerification(ctx, mail); err != nil {
		s.logger.Error("Failed to send verification mail",
			zap.String("user_id", user.ID.String()),
			zap.Error(err))
	}

	s.logger.Info("User registered",
		zap.String("user_id", user.ID.String()),
		zap.String("email", user.Email))

	return &RegisterResult{User: *toUserDTO(user), Message: MessageRegistered}, nil
}

// VerifyEmail consumes an email verification token
func (s *AuthService) VerifyEmail(ctx context.Context, token string) (*MessageResult, error) {
	if strings.TrimSpace(token) == "" {
		return nil, identity.ErrInvalidToken
	}

	user, err := s.userRepo.FindByVerificationToken(ctx, token)
	if err != nil {
		if shared.IsNotFound(err) {
			return nil, identity.ErrInvalidToken
		}
		s.logger.Error("Failed to find user by verification token", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to verify email")
	}
	if user.IsVerified {
		return &MessageResult{Message: MessageAlreadyVerified}, nil
	}

	if err := user.Verify(token, s.now()); err != nil {
		s.logger.Warn("Email verification rejected",
			zap.String("user_id", user.ID.String()),
			zap.Error(err))
		return nil, err
	}
	if err := s.userRepo.Update(ctx, user); err != nil {
		s.logger.Error("Failed to save verified user", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to verify email")
	}

	s.logger.Info("Email verified", zap.String("user_id", user.ID.String()))
	return &MessageResult{Message: MessageVerified}, nil
}

// Login authenticates a user and returns an access token
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	email := identity.NormalizeEmail(input.Email)
	s.logger.Info("Login attempt", zap.String("email", email))

	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		if shared.IsNotFound(err) {
			s.logger.Warn("User not found during login", zap.String("email", email))
			return nil, identity.ErrInvalidCredentials
		}
		s.logger.Error("Failed to find user", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to log in")
	}

	if !user.VerifyPassword(input.Password) {
		s.logger.Warn("Invalid password attempt", zap.String("email", email))
		return nil, identity.ErrInvalidCredentials
	}
	if !user.IsVerified {
		s.logger.Warn("Login attempt for unverified account", zap.String("email", email))
		return nil, identity.ErrEmailNotVerified
	}

	token, err := s.jwtService.GenerateAccessToken(auth.TokenSubject{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.RoleName,
	})
	if err != nil {
		s.logger.Error("Failed to generate access token", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to generate authentication token")
	}

	s.logger.Info("User logged in successfully",
		zap.String("email", email),
		zap.String("user_id", user.ID.String()))

	return &LoginResult{
		AccessToken: token.Token,
		TokenType:   token.TokenType,
		ExpiresIn:   token.ExpiresIn,
		ExpiresAt:   token.ExpiresAt,
		User:        toUserInfo(user),
	}, nil
}

// RequestPasswordReset mails a reset link when the account exists.
// The answer is the same either way.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) (*MessageResult, error) {
	result := &MessageResult{Message: MessageResetRequested}
	email = identity.NormalizeEmail(email)

	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		if !shared.IsNotFound(err) {
			s.logger.Error("Failed to find user for password reset", zap.Error(err))
		}
		return result, nil
	}

	token := user.IssueResetToken(s.config.ResetTTL)
	if err := s.userRepo.Update(ctx, user); err != nil {
		s.logger.Error("Failed to store reset token", zap.Error(err))
		return result, nil
	}

	mail := AccountMail{
		To:        user.Email,
		Name:      user.FullName(),
		Link:      s.config.ResetURL + token,
		ExpiresIn: humanizeDuration(s.config.ResetTTL),
	}
	if err := s.mailer.SendPasswordReset(ctx, mail); err != nil {
		s.logger.Error("Failed to send password reset mail",
			zap.String("user_id", user.ID.String()),
			zap.Error(err))
	}

	s.logger.Info("Password reset requested", zap.String("user_id", user.ID.String()))
	return result, nil
}

// ValidateResetToken checks a reset token without consuming it
func (s *AuthService) ValidateResetToken(ctx context.Context, token string) (*ResetTokenResult, error) {
	user, err := s.findByResetToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if err := user.CheckResetToken(token, s.now()); err != nil {
		return nil, err
	}
	return &ResetTokenResult{Valid: true, Token: token}, nil
}

// ResetPassword sets a new password and revokes every token issued before
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) (*MessageResult, error) {
	user, err := s.findByResetToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if err := user.ResetPassword(token, newPassword, s.now()); err != nil {
		return nil, err
	}
	if err := s.userRepo.Update(ctx, user); err != nil {
		s.logger.Error("Failed to save new password", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to reset password")
	}

	if s.blacklist != nil {
		if err := s.blacklist.InvalidateUserTokens(ctx, user.ID.String(), s.jwtService.GetAccessTokenExpiration()); err != nil {
			s.logger.Error("Failed to invalidate user tokens",
				zap.String("user_id", user.ID.String()),
				zap.Error(err))
		}
	}

	s.logger.Info("Password reset", zap.String("user_id", user.ID.String()))
	return &MessageResult{Message: MessagePasswordReset}, nil
}

// Logout revokes the current access token until it would have expired
func (s *AuthService) Logout(ctx context.Context, input LogoutInput) (*MessageResult, error) {
	if s.blacklist != nil && input.TokenJTI != "" && input.TokenTTL > 0 {
		if err := s.blacklist.AddToBlacklist(ctx, input.TokenJTI, input.TokenTTL); err != nil {
			s.logger.Error("Failed to blacklist token", zap.Error(err))
			return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to log out")
		}
	}
	s.logger.Info("User logged out", zap.String("user_id", input.UserID.String()))
	return &MessageResult{Message: MessageLoggedOut}, nil
}

// Me returns the authenticated user
func (s *AuthService) Me(ctx context.Context, userID uuid.UUID) (*UserDTO, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		if shared.IsNotFound(err) {
			return nil, shared.NewDomainError("NOT_FOUND", "User not found")
		}
		s.logger.Error("Failed to find user", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to find user")
	}
	return toUserDTO(user), nil
}

func (s *AuthService) findByResetToken(ctx context.Context, token string) (*identity.User, error) {
	if strings.TrimSpace(token) == "" {
		return nil, identity.ErrInvalidToken
	}
	user, err := s.userRepo.FindByResetToken(ctx, token)
	if err != nil {
		if shared.IsNotFound(err) {
			return nil, identity.ErrInvalidToken
		}
		s.logger.Error("Failed to find user by reset token", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to check reset token")
	}
	return user, nil
}

// humanizeDuration renders whole hours or minutes, e.g. "5 hours", "20 minutes"
func humanizeDuration(d time.Duration) string {
	if d >= time.Hour && d%time.Hour == 0 {
		return plural(int(d/time.Hour), "hour")
	}
	return plural(int(d.Round(time.Minute)/time.Minute), "minute")
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
