package persistence

import (
	"errors"
	"strings"

	"github.com/ecommerce/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// translateError maps driver errors onto domain errors.
// Unknown errors are returned unchanged.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return shared.ErrNotFound
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) || isUniqueViolation(err) {
		return shared.WrapDomainError(shared.ErrAlreadyExists.Code, "Resource already exists", err)
	}
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return shared.WrapDomainError("CONFLICT", "Resource is still referenced by other records", err)
	}
	return err
}

// isUniqueViolation catches drivers that do not implement GORM's error translation
func isUniqueViolation(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value violates unique constraint")
}

// likePattern builds a case-insensitive LIKE pattern for LOWER(column) comparisons
func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.ToLower(strings.TrimSpace(s))) + "%"
}

// applyPaging adds ordering and pagination. Ordering fields are whitelisted.
func applyPaging(query *gorm.DB, filter shared.Filter, allowed map[string]bool, defaultField string) *gorm.DB {
	field := ValidateSortField(filter.OrderBy, allowed, defaultField)
	dir := ValidateSortOrder(filter.OrderDir)
	return query.Order(field + " " + dir).Offset(filter.Offset()).Limit(filter.Limit())
}
