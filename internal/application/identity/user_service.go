package identity

import (
	"context"
	"errors"

	"github.com/ecommerce/backend/internal/domain/identity"
	"github.com/ecommerce/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// UserService handles profile and user administration operations
type UserService struct {
	userRepo identity.UserRepository
	roleRepo identity.RoleRepository
	logger   *zap.Logger
}

// NewUserService creates a new user service
func NewUserService(
	userRepo identity.UserRepository,
	roleRepo identity.RoleRepository,
	logger *zap.Logger,
) *UserService {
	return &UserService{
		userRepo: userRepo,
		roleRepo: roleRepo,
		logger:   logger,
	}
}

// CreateUserInput contains input for an admin-created user.
// Admin-created users are verified and may hold any role.
type CreateUserInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Phone     string
	RoleID    *uuid.UUID // defaults to CLIENT
}

// UpdateProfileInput is a self-service profile change
type UpdateProfileInput struct {
	UserID    uuid.UUID
	FirstName *string
	LastName  *string
	Phone     *string
	Password  *string
}

// UpdateUserInput is an admin change to any user
type UpdateUserInput struct {
	ID         uuid.UUID
	FirstName  *string
	LastName   *string
	Phone      *string
	Email      *string
	Password   *string
	RoleID     *uuid.UUID
	IsVerified *bool
}

// Create creates a verified user with the requested role
func (s *UserService) Create(ctx context.Context, input CreateUserInput) (*UserDTO, error) {
	email := identity.NormalizeEmail(input.Email)
	s.logger.Info("Creating new user", zap.String("email", email))

	exists, err := s.userRepo.ExistsByEmail(ctx, email)
	if err != nil {
		s.logger.Error("Failed to check email existence", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to check email availability")
	}
	if exists {
		return nil, identity.ErrEmailTaken
	}

	var role *identity.Role
	if input.RoleID != nil {
		role, err = s.findRole(ctx, *input.RoleID)
	} else {
		role, err = s.roleRepo.FindByName(ctx, identity.RoleClient)
		if err != nil {
			s.logger.Error("Default role is missing", zap.Error(err))
			err = shared.NewDomainError("INTERNAL_ERROR", "Failed to load default role")
		}
	}
	if err != nil {
		return nil, err
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
	user.MarkVerified()

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, shared.ErrAlreadyExists) {
			return nil, identity.ErrEmailTaken
		}
		s.logger.Error("Failed to create user", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to create user")
	}

	s.logger.Info("User created successfully",
		zap.String("user_id", user.ID.String()),
		zap.String("role", user.RoleName))
	return toUserDTO(user), nil
}

// GetByID retrieves a user by ID
func (s *UserService) GetByID(ctx context.Context, id uuid.UUID) (*UserDTO, error) {
	user, err := s.findUser(ctx, id)
	if err != nil {
		return nil, err
	}
	return toUserDTO(user), nil
}

// List retrieves a paginated list of users
func (s *UserService) List(ctx context.Context, filter identity.UserFilter) (*UserListResult, error) {
	users, total, err := s.userRepo.FindAll(ctx, filter)
	if err != nil {
		s.logger.Error("Failed to list users", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to list users")
	}

	dtos := make([]UserDTO, len(users))
	for i, u := range users {
		dtos[i] = *toUserDTO(u)
	}

	pageSize := filter.Limit()
	page := filter.Page
	if page < 1 {
		page = 1
	}
	totalPages := int(total) / pageSize
	if int(total)%pageSize > 0 {
		totalPages++
	}

	return &UserListResult{
		Users:      dtos,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}, nil
}

// UpdateProfile applies a self-service change to names, phone or password
func (s *UserService) UpdateProfile(ctx context.Context, input UpdateProfileInput) (*UserDTO, error) {
	user, err := s.findUser(ctx, input.UserID)
	if err != nil {
		return nil, err
	}
	if err := user.UpdateProfile(input.FirstName, input.LastName, input.Phone); err != nil {
		return nil, err
	}
	if input.Password != nil {
		if err := user.SetPassword(*input.Password); err != nil {
			return nil, err
		}
	}
	if err := s.save(ctx, user); err != nil {
		return nil, err
	}
	s.logger.Info("Profile updated", zap.String("user_id", user.ID.String()))
	return toUserDTO(user), nil
}

// Update applies an admin change to any user
func (s *UserService) Update(ctx context.Context, input UpdateUserInput) (*UserDTO, error) {
	user, err := s.findUser(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	if err := user.UpdateProfile(input.FirstName, input.LastName, input.Phone); err != nil {
		return nil, err
	}

	if input.Email != nil && identity.NormalizeEmail(*input.Email) != user.Email {
		email := identity.NormalizeEmail(*input.Email)
		exists, err := s.userRepo.ExistsByEmail(ctx, email)
		if err != nil {
			s.logger.Error("Failed to check email existence", zap.Error(err))
			return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to check email availability")
		}
		if exists {
			return nil, identity.ErrEmailTaken
		}
		if err := user.ChangeEmail(email); err != nil {
			return nil, err
		}
	}
	if input.Password != nil {
		if err := user.SetPassword(*input.Password); err != nil {
			return nil, err
		}
	}
	if input.RoleID != nil && *input.RoleID != user.RoleID {
		role, err := s.findRole(ctx, *input.RoleID)
		if err != nil {
			return nil, err
		}
		if err := user.AssignRole(role); err != nil {
			return nil, err
		}
	}
	if input.IsVerified != nil && *input.IsVerified && !user.IsVerified {
		user.MarkVerified()
	}

	if err := s.save(ctx, user); err != nil {
		return nil, err
	}
	s.logger.Info("User updated", zap.String("user_id", user.ID.String()))
	return toUserDTO(user), nil
}

// Delete removes a user with their carts, orders and payments
func (s *UserService) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.findUser(ctx, id); err != nil {
		return err
	}
	if err := s.userRepo.Delete(ctx, id); err != nil {
		s.logger.Error("Failed to delete user", zap.Error(err))
		return shared.NewDomainError("INTERNAL_ERROR", "Failed to delete user")
	}
	s.logger.Info("User deleted", zap.String("user_id", id.String()))
	return nil
}

func (s *UserService) save(ctx context.Context, user *identity.User) error {
	if err := s.userRepo.Update(ctx, user); err != nil {
		if errors.Is(err, shared.ErrAlreadyExists) {
			return identity.ErrEmailTaken
		}
		s.logger.Error("Failed to update user", zap.Error(err))
		return shared.NewDomainError("INTERNAL_ERROR", "Failed to update user")
	}
	return nil
}

func (s *UserService) findUser(ctx context.Context, id uuid.UUID) (*identity.User, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		if shared.IsNotFound(err) {
			return nil, shared.NewDomainError("NOT_FOUND", "User not found")
		}
		s.logger.Error("Failed to find user", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to find user")
	}
	return user, nil
}

func (s *UserService) findRole(ctx context.Context, id uuid.UUID) (*identity.Role, error) {
	role, err := s.roleRepo.FindByID(ctx, id)
	if err != nil {
		if shared.IsNotFound(err) {
			return nil, shared.NewDomainError("NOT_FOUND", "Role not found")
		}
		s.logger.Error("Failed to find role", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to find role")
	}
	return role, nil
}
