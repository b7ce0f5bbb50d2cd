package identity

import (
	"time"

	"github.com/ecommerce/backend/internal/domain/identity"
	"github.com/google/uuid"
)

// RegisterInput contains the input for self sign-up
type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Phone     string
}

// RegisterResult is returned after a successful sign-up
type RegisterResult struct {
	User    UserDTO `json:"user"`
	Message string  `json:"message"`
}

// LoginInput contains the input for user login
type LoginInput struct {
	Email    string
	Password string
}

// LoginResult contains the result of a successful login
type LoginResult struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresIn   int64     `json:"expires_in"`
	ExpiresAt   time.Time `json:"expires_at"`
	User        UserInfo  `json:"user"`
}

// UserInfo is the user summary returned with a token
type UserInfo struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Role      string    `json:"role"`
}

// LogoutInput identifies the token to revoke
type LogoutInput struct {
	UserID   uuid.UUID
	TokenJTI string
	// TokenTTL is the remaining lifetime of the token; the blacklist entry expires with it
	TokenTTL time.Duration
}

// ResetTokenResult answers a reset token check
type ResetTokenResult struct {
	Valid bool   `json:"valid"`
	Token string `json:"token"`
}

// MessageResult carries a user facing confirmation
type MessageResult struct {
	Message string `json:"message"`
}

// UserDTO represents user data without secrets
type UserDTO struct {
	ID         uuid.UUID `json:"id"`
	FirstName  string    `json:"firstName"`
	LastName   string    `json:"lastName"`
	Email      string    `json:"email"`
	Phone      string    `json:"phone,omitempty"`
	RoleID     uuid.UUID `json:"roleId"`
	Role       string    `json:"role"`
	IsVerified bool      `json:"isVerified"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// UserListResult represents paginated user list result
type UserListResult struct {
	Users      []UserDTO `json:"users"`
	Total      int64     `json:"total"`
	Page       int       `json:"page"`
	PageSize   int       `json:"page_size"`
	TotalPages int       `json:"total_pages"`
}

// RoleDTO represents a role
type RoleDTO struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func toUserDTO(user *identity.User) *UserDTO {
	return &UserDTO{
		ID:         user.ID,
		FirstName:  user.FirstName,
		LastName:   user.LastName,
		Email:      user.Email,
		Phone:      user.Phone,
		RoleID:     user.RoleID,
		Role:       user.RoleName,
		IsVerified: user.IsVerified,
		CreatedAt:  user.CreatedAt,
		UpdatedAt:  user.UpdatedAt,
	}
}

func toUserInfo(user *identity.User) UserInfo {
	return UserInfo{
		ID:        user.ID,
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Role:      user.RoleName,
	}
}

func toRoleDTO(role *identity.Role) *RoleDTO {
	return &RoleDTO{
		ID:          role.ID,
		Name:        role.Name,
		Description: role.Description,
		CreatedAt:   role.CreatedAt,
		UpdatedAt:   role.UpdatedAt,
	}
}
