package identity

import (
	"regexp"
	"strings"
	"time"

	"github.com/ecommerce/backend/internal/domain/shared"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Password bounds. bcrypt ignores input beyond 72 bytes.
const (
	MinPasswordLength = 6
	MaxPasswordLength = 72
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// User is a customer or administrator account.
// It is the aggregate root for authentication and profile operations.
type User struct {
	shared.BaseAggregateRoot
	FirstName    string
	LastName     string
	Email        string
	Phone        string
	PasswordHash string
	RoleID       uuid.UUID
	RoleName     string // loaded by the repository from the roles table
	IsVerified   bool

	VerificationToken     string
	VerificationExpiresAt *time.Time
	ResetToken            string
	ResetExpiresAt        *time.Time
	PasswordChangedAt     *time.Time
}

// NewUser creates an unverified user with a hashed password
func NewUser(email, password, firstName, lastName string, role *Role) (*User, error) {
	email = NormalizeEmail(email)
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}
	if err := validateName("First name", firstName); err != nil {
		return nil, err
	}
	if err := validateName("Last name", lastName); err != nil {
		return nil, err
	}
	if role == nil {
		return nil, shared.NewDomainError("INVALID_ROLE", "Role is required")
	}

	hash, err := hashPassword(password)
	if err != nil {
		return nil, shared.WrapDomainError("PASSWORD_HASH_ERROR", "Failed to hash password", err)
	}

	now := time.Now()
	user := &User{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		FirstName:         strings.TrimSpace(firstName),
		LastName:          strings.TrimSpace(lastName),
		Email:             email,
		PasswordHash:      hash,
		RoleID:            role.ID,
		RoleName:          role.Name,
		PasswordChangedAt: &now,
	}

	user.AddDomainEvent(NewUserRegisteredEvent(user))

	return user, nil
}

// FullName returns "First Last"
func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// IsAdmin reports whether the user holds the ADMIN role
func (u *User) IsAdmin() bool {
	return u.RoleName == RoleAdmin
}

// UpdateProfile changes the user's names and phone. Empty values keep the current ones.
func (u *User) UpdateProfile(firstName, lastName, phone *string) error {
	if firstName != nil {
		if err := validateName("First name", *firstName); err != nil {
			return err
		}
		u.FirstName = strings.TrimSpace(*firstName)
	}
	if lastName != nil {
		if err := validateName("Last name", *lastName); err != nil {
			return err
		}
		u.LastName = strings.TrimSpace(*lastName)
	}
	if phone != nil {
		if len(*phone) > 30 {
			return shared.NewDomainError("INVALID_PHONE", "Phone cannot exceed 30 characters")
		}
		u.Phone = strings.TrimSpace(*phone)
	}
	u.Touch()
	return nil
}

// ChangeEmail sets a new normalized email address
func (u *User) ChangeEmail(email string) error {
	email = NormalizeEmail(email)
	if err := validateEmail(email); err != nil {
		return err
	}
	u.Email = email
	u.Touch()
	return nil
}

// AssignRole replaces the user's role
func (u *User) AssignRole(role *Role) error {
	if role == nil || role.ID == uuid.Nil {
		return shared.NewDomainError("INVALID_ROLE", "Role is required")
	}
	u.RoleID = role.ID
	u.RoleName = role.Name
	u.Touch()
	return nil
}

// SetPassword hashes and stores a new password
func (u *User) SetPassword(password string) error {
	if err := validatePassword(password); err != nil {
		return err
	}
	hash, err := hashPassword(password)
	if err != nil {
		return shared.WrapDomainError("PASSWORD_HASH_ERROR", "Failed to hash password", err)
	}
	now := time.Now()
	u.PasswordHash = hash
	u.PasswordChangedAt = &now
	u.Touch()

	u.AddDomainEvent(NewUserPasswordChangedEvent(u))
	return nil
}

// VerifyPassword checks password against the stored hash
func (u *User) VerifyPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

// IssueVerificationToken creates a one-time email verification token valid for ttl
func (u *User) IssueVerificationToken(ttl time.Duration) string {
	expires := time.Now().Add(ttl)
	u.VerificationToken = uuid.NewString()
	u.VerificationExpiresAt = &expires
	u.Touch()
	return u.VerificationToken
}

// Verify consumes the verification token.
// Verifying an already verified account is a no-op.
func (u *User) Verify(token string, now time.Time) error {
	if u.IsVerified {
		return nil
	}
	if token == "" || u.VerificationToken != token {
		return ErrInvalidToken
	}
	if u.VerificationExpiresAt == nil || now.After(*u.VerificationExpiresAt) {
		return ErrTokenExpired
	}
	u.IsVerified = true
	u.VerificationToken = ""
	u.VerificationExpiresAt = nil
	u.Touch()

	u.AddDomainEvent(NewUserVerifiedEvent(u))
	return nil
}

// MarkVerified verifies the account without a token (admin-created users)
func (u *User) MarkVerified() {
	u.IsVerified = true
	u.VerificationToken = ""
	u.VerificationExpiresAt = nil
	u.Touch()
}

// IssueResetToken creates a password reset token valid for ttl
func (u *User) IssueResetToken(ttl time.Duration) string {
	expires := time.Now().Add(ttl)
	u.ResetToken = uuid.NewString()
	u.ResetExpiresAt = &expires
	u.Touch()
	return u.ResetToken
}

// CheckResetToken validates a reset token without consuming it
func (u *User) CheckResetToken(token string, now time.Time) error {
	if token == "" || u.ResetToken != token {
		return ErrInvalidToken
	}
	if u.ResetExpiresAt == nil || now.After(*u.ResetExpiresAt) {
		return ErrTokenExpired
	}
	return nil
}

// ResetPassword consumes the reset token and sets a new password
func (u *User) ResetPassword(token, newPassword string, now time.Time) error {
	if err := u.CheckResetToken(token, now); err != nil {
		return err
	}
	if err := u.SetPassword(newPassword); err != nil {
		return err
	}
	u.ResetToken = ""
	u.ResetExpiresAt = nil
	return nil
}

// Identity errors
var (
	ErrInvalidCredentials = shared.NewDomainError("INVALID_CREDENTIALS", "Invalid email or password")
	ErrEmailNotVerified   = shared.NewDomainError("EMAIL_NOT_VERIFIED", "Email address has not been verified")
	ErrInvalidToken       = shared.NewDomainError("INVALID_TOKEN", "Token is invalid")
	ErrTokenExpired       = shared.NewDomainError("TOKEN_EXPIRED", "Token has expired")
	ErrEmailTaken         = shared.NewDomainError("ALREADY_EXISTS", "Email is already registered")
)

// NormalizeEmail lower-cases and trims an email address
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateEmail(email string) error {
	if email == "" {
		return shared.NewDomainError("INVALID_EMAIL", "Email cannot be empty")
	}
	if len(email) > 200 {
		return shared.NewDomainError("INVALID_EMAIL", "Email cannot exceed 200 characters")
	}
	if !emailRegex.MatchString(email) {
		return shared.NewDomainError("INVALID_EMAIL", "Invalid email format")
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return shared.NewDomainError("INVALID_PASSWORD", "Password must be at least 6 characters")
	}
	if len(password) > MaxPasswordLength {
		return shared.NewDomainError("INVALID_PASSWORD", "Password cannot exceed 72 characters")
	}
	return nil
}

func validateName(field, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return shared.NewDomainError("INVALID_NAME", field+" cannot be empty")
	}
	if len(name) > 100 {
		return shared.NewDomainError("INVALID_NAME", field+" cannot exceed 100 characters")
	}
	return nil
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
