package handler

import (
	"github.com/google/uuid"
)

// CreateUserRequest represents the request body for an admin-created user
// @Name HandlerCreateUserRequest
type CreateUserRequest struct {
	Email     string     `json:"email" binding:"required,email,max=255"`
	Password  string     `json:"password" binding:"required,min=6,max=72"`
	FirstName string     `json:"firstName" binding:"required,max=100"`
	LastName  string     `json:"lastName" binding:"required,max=100"`
	Phone     string     `json:"phone" binding:"omitempty,max=30"`
	RoleID    *uuid.UUID `json:"roleId" binding:"omitempty"`
}

// UpdateProfileRequest is a self-service profile change
type UpdateProfileRequest struct {
	FirstName *string `json:"firstName" binding:"omitempty,min=1,max=100"`
	LastName  *string `json:"lastName" binding:"omitempty,min=1,max=100"`
	Phone     *string `json:"phone" binding:"omitempty,max=30"`
	Password  *string `json:"password" binding:"omitempty,min=6,max=72"`
}

// UpdateUserRequest is an admin change to any user
// @Name HandlerUpdateUserRequest
type UpdateUserRequest struct {
	FirstName  *string    `json:"firstName" binding:"omitempty,min=1,max=100"`
	LastName   *string    `json:"lastName" binding:"omitempty,min=1,max=100"`
	Phone      *string    `json:"phone" binding:"omitempty,max=30"`
	Email      *string    `json:"email" binding:"omitempty,email,max=255"`
	Password   *string    `json:"password" binding:"omitempty,min=6,max=72"`
	RoleID     *uuid.UUID `json:"roleId" binding:"omitempty"`
	IsVerified *bool      `json:"isVerified"`
}

// UserListQuery represents query parameters for listing users
// @Name HandlerUserListQuery
type UserListQuery struct {
	Search   string     `form:"search" binding:"omitempty,max=100"`
	RoleID   *uuid.UUID `form:"role_id" binding:"omitempty"`
	Verified *bool      `form:"verified" binding:"omitempty"`
	Page     int        `form:"page" binding:"omitempty,min=1"`
	PageSize int        `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// CreateRoleRequest represents the request body for creating a role
// @Name HandlerCreateRoleRequest
type CreateRoleRequest struct {
	Name        string `json:"name" binding:"required,min=2,max=50"`
	Description string `json:"description" binding:"omitempty,max=255"`
}

// UpdateRoleRequest represents the request body for updating a role
// @Name HandlerUpdateRoleRequest
type UpdateRoleRequest struct {
	Name        *string `json:"name" binding:"omitempty,min=2,max=50"`
	Description *string `json:"description" binding:"omitempty,max=255"`
}
