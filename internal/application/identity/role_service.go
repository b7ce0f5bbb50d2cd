package identity

import (
	"context"
	"errors"

	"github.com/ecommerce/backend/internal/domain/identity"
	"github.com/ecommerce/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RoleService handles role management operations
type RoleService struct {
	roleRepo identity.RoleRepository
	logger   *zap.Logger
}

// NewRoleService creates a new role service
func NewRoleService(roleRepo identity.RoleRepository, logger *zap.Logger) *RoleService {
	return &RoleService{
		roleRepo: roleRepo,
		logger:   logger,
	}
}

// CreateRoleInput contains input for creating a role
type CreateRoleInput struct {
	Name        string
	Description string
}

// UpdateRoleInput contains input for updating a role
type UpdateRoleInput struct {
	ID          uuid.UUID
	Name        *string
	Description *string
}

// Create creates a new role
func (s *RoleService) Create(ctx context.Context, input CreateRoleInput) (*RoleDTO, error) {
	s.logger.Info("Creating new role", zap.String("name", input.Name))

	role, err := identity.NewRole(input.Name, input.Description)
	if err != nil {
		return nil, err
	}

	exists, err := s.roleRepo.ExistsByName(ctx, role.Name)
	if err != nil {
		s.logger.Error("Failed to check role name existence", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to check role name availability")
	}
	if exists {
		return nil, shared.NewDomainError("ALREADY_EXISTS", "Role name already exists")
	}

	if err := s.roleRepo.Create(ctx, role); err != nil {
		if errors.Is(err, shared.ErrAlreadyExists) {
			return nil, shared.NewDomainError("ALREADY_EXISTS", "Role name already exists")
		}
		s.logger.Error("Failed to create role", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to create role")
	}

	s.logger.Info("Role created successfully",
		zap.String("role_id", role.ID.String()),
		zap.String("name", role.Name))
	return toRoleDTO(role), nil
}

// GetByID retrieves a role by ID
func (s *RoleService) GetByID(ctx context.Context, id uuid.UUID) (*RoleDTO, error) {
	role, err := s.findRole(ctx, id)
	if err != nil {
		return nil, err
	}
	return toRoleDTO(role), nil
}

// List returns every role ordered by name
func (s *RoleService) List(ctx context.Context) ([]RoleDTO, error) {
	roles, err := s.roleRepo.FindAll(ctx)
	if err != nil {
		s.logger.Error("Failed to list roles", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to list roles")
	}
	dtos := make([]RoleDTO, len(roles))
	for i := range roles {
		dtos[i] = *toRoleDTO(&roles[i])
	}
	return dtos, nil
}

// Update changes a role's name or description
func (s *RoleService) Update(ctx context.Context, input UpdateRoleInput) (*RoleDTO, error) {
	role, err := s.findRole(ctx, input.ID)
	if err != nil {
		return nil, err
	}

	oldName := role.Name
	if err := role.Update(input.Name, input.Description); err != nil {
		return nil, err
	}
	if role.Name != oldName {
		exists, err := s.roleRepo.ExistsByName(ctx, role.Name)
		if err != nil {
			s.logger.Error("Failed to check role name existence", zap.Error(err))
			return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to check role name availability")
		}
		if exists {
			return nil, shared.NewDomainError("ALREADY_EXISTS", "Role name already exists")
		}
	}

	if err := s.roleRepo.Update(ctx, role); err != nil {
		s.logger.Error("Failed to update role", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to update role")
	}

	s.logger.Info("Role updated", zap.String("role_id", role.ID.String()))
	return toRoleDTO(role), nil
}

// Delete removes a role no user holds. Built-in roles cannot be deleted.
func (s *RoleService) Delete(ctx context.Context, id uuid.UUID) error {
	role, err := s.findRole(ctx, id)
	if err != nil {
		return err
	}
	if role.IsBuiltIn() {
		return shared.NewDomainError("INVALID_STATE", "Built-in roles cannot be deleted")
	}

	count, err := s.roleRepo.CountUsers(ctx, id)
	if err != nil {
		s.logger.Error("Failed to count role users", zap.Error(err))
		return shared.NewDomainError("INTERNAL_ERROR", "Failed to delete role")
	}
	if count > 0 {
		return shared.NewDomainError("CONFLICT", "Role is still assigned to users")
	}

	if err := s.roleRepo.Delete(ctx, id); err != nil {
		s.logger.Error("Failed to delete role", zap.Error(err))
		return shared.NewDomainError("INTERNAL_ERROR", "Failed to delete role")
	}

	s.logger.Info("Role deleted", zap.String("role_id", id.String()), zap.String("name", role.Name))
	return nil
}

func (s *RoleService) findRole(ctx context.Context, id uuid.UUID) (*identity.Role, error) {
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
