package catalog

import (
	"strings"

	"github.com/ecommerce/backend/internal/domain/shared"
)

// Category groups products in the storefront. Names are unique.
type Category struct {
	shared.BaseAggregateRoot
	Name        string `gorm:"type:varchar(100);not null;uniqueIndex" json:"name"`
	Description string `gorm:"type:text" json:"description"`
}

// TableName returns the table name for GORM
func (Category) TableName() string {
	return "categories"
}

// NewCategory creates a new category
func NewCategory(name, description string) (*Category, error) {
	name = strings.TrimSpace(name)
	if err := validateCategoryName(name); err != nil {
		return nil, err
	}

	category := &Category{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Name:              name,
		Description:       strings.TrimSpace(description),
	}
	category.AddDomainEvent(NewCategoryChangedEvent(EventTypeCategoryCreated, category))

	return category, nil
}

// Update changes name and/or description; nil keeps the current value
func (c *Category) Update(name, description *string) error {
	if name != nil {
		n := strings.TrimSpace(*name)
		if err := validateCategoryName(n); err != nil {
			return err
		}
		c.Name = n
	}
	if description != nil {
		c.Description = strings.TrimSpace(*description)
	}
	c.Touch()
	c.AddDomainEvent(NewCategoryChangedEvent(EventTypeCategoryUpdated, c))
	return nil
}

func validateCategoryName(name string) error {
	if name == "" {
		return shared.NewDomainError("INVALID_NAME", "Category name cannot be empty")
	}
	if len(name) > 100 {
		return shared.NewDomainError("INVALID_NAME", "Category name cannot exceed 100 characters")
	}
	return nil
}
