package identity

import (
	"regexp"
	"strings"

	"github.com/ecommerce/backend/internal/domain/shared"
)

// Built-in role names, seeded by migration
const (
	RoleAdmin  = "ADMIN"
	RoleClient = "CLIENT"
)

var roleNameRegex = regexp.MustCompile(`^[A-Z][A-Z0-9_]*$`)

// Role groups users for authorization. Role names are unique and upper-case.
type Role struct {
	shared.BaseEntity
	Name        string `gorm:"type:varchar(50);not null;uniqueIndex"`
	Description string `gorm:"type:varchar(255)"`
}

// TableName returns the table name for GORM
func (Role) TableName() string {
	return "roles"
}

// NewRole creates a role, normalizing the name to upper case
func NewRole(name, description string) (*Role, error) {
	name = normalizeRoleName(name)
	if err := validateRoleName(name); err != nil {
		return nil, err
	}
	return &Role{
		BaseEntity:  shared.NewBaseEntity(),
		Name:        name,
		Description: strings.TrimSpace(description),
	}, nil
}

// Update changes name and/or description; nil keeps the current value
func (r *Role) Update(name, description *string) error {
	if name != nil {
		n := normalizeRoleName(*name)
		if r.IsBuiltIn() && n != r.Name {
			return shared.NewDomainError("INVALID_STATE", "Built-in roles cannot be renamed")
		}
		if err := validateRoleName(n); err != nil {
			return err
		}
		r.Name = n
	}
	if description != nil {
		r.Description = strings.TrimSpace(*description)
	}
	r.Touch()
	return nil
}

// IsBuiltIn reports whether the role is one of the seeded roles
func (r *Role) IsBuiltIn() bool {
	return r.Name == RoleAdmin || r.Name == RoleClient
}

func normalizeRoleName(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}

func validateRoleName(name string) error {
	if name == "" {
		return shared.NewDomainError("INVALID_ROLE_NAME", "Role name cannot be empty")
	}
	if len(name) > 50 {
		return shared.NewDomainError("INVALID_ROLE_NAME", "Role name cannot exceed 50 characters")
	}
	if !roleNameRegex.MatchString(name) {
		return shared.NewDomainError("INVALID_ROLE_NAME", "Role name can only contain letters, digits and underscores")
	}
	return nil
}
