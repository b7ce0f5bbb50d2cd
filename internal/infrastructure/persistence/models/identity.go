package models

import (
	"time"

	"github.com/ecommerce/backend/internal/domain/identity"
	"github.com/ecommerce/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// UserModel is the persistence model for the User domain entity.
// Secrets and token state live here and never in API responses.
type UserModel struct {
	BaseModel
	FirstName             string         `gorm:"type:varchar(100);not null"`
	LastName              string         `gorm:"type:varchar(100);not null"`
	Email                 string         `gorm:"type:varchar(200);not null;uniqueIndex"`
	Phone                 string         `gorm:"type:varchar(50)"`
	PasswordHash          string         `gorm:"type:varchar(255);not null"`
	RoleID                uuid.UUID      `gorm:"type:uuid;not null;index"`
	Role                  *identity.Role `gorm:"foreignKey:RoleID"`
	IsVerified            bool           `gorm:"not null;default:false"`
	VerificationToken     *string        `gorm:"type:varchar(64);uniqueIndex"`
	VerificationExpiresAt *time.Time
	ResetToken            *string `gorm:"type:varchar(64);uniqueIndex"`
	ResetExpiresAt        *time.Time
	PasswordChangedAt     *time.Time
}

// TableName returns the table name for GORM
func (UserModel) TableName() string {
	return "users"
}

// ToDomain converts the persistence model to a domain User entity.
// RoleName is filled when the Role association was preloaded.
func (m *UserModel) ToDomain() *identity.User {
	user := &identity.User{
		BaseAggregateRoot: shared.BaseAggregateRoot{
			BaseEntity: m.BaseModel.ToDomain(),
		},
		FirstName:             m.FirstName,
		LastName:              m.LastName,
		Email:                 m.Email,
		Phone:                 m.Phone,
		PasswordHash:          m.PasswordHash,
		RoleID:                m.RoleID,
		IsVerified:            m.IsVerified,
		VerificationToken:     deref(m.VerificationToken),
		VerificationExpiresAt: m.VerificationExpiresAt,
		ResetToken:            deref(m.ResetToken),
		ResetExpiresAt:        m.ResetExpiresAt,
		PasswordChangedAt:     m.PasswordChangedAt,
	}
	if m.Role != nil {
		user.RoleName = m.Role.Name
	}
	return user
}

// FromDomain populates the persistence model from a domain User entity.
func (m *UserModel) FromDomain(u *identity.User) {
	m.FromDomainBaseEntity(u.BaseEntity)
	m.FirstName = u.FirstName
	m.LastName = u.LastName
	m.Email = u.Email
	m.Phone = u.Phone
	m.PasswordHash = u.PasswordHash
	m.RoleID = u.RoleID
	m.IsVerified = u.IsVerified
	m.VerificationToken = ref(u.VerificationToken)
	m.VerificationExpiresAt = u.VerificationExpiresAt
	m.ResetToken = ref(u.ResetToken)
	m.ResetExpiresAt = u.ResetExpiresAt
	m.PasswordChangedAt = u.PasswordChangedAt
}

// UserModelFromDomain creates a new persistence model from a domain User entity.
func UserModelFromDomain(u *identity.User) *UserModel {
	m := &UserModel{}
	m.FromDomain(u)
	return m
}

// empty tokens are stored as NULL so the unique indexes only cover live tokens
func ref(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
