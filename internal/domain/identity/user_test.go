package identity

import (
	"testing"
	"time"

	"github.com/ecommerce/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clientRole(t *testing.T) *Role {
	t.Helper()
	role, err := NewRole("client", "Customer")
	require.NoError(t, err)
	return role
}

func TestNewUser(t *testing.T) {
	role := clientRole(t)

	t.Run("creates unverified user with hashed password", func(t *testing.T) {
		user, err := NewUser("  Ana@Example.COM ", "secret1", "Ana", "Lopez", role)
		require.NoError(t, err)

		assert.Equal(t, "ana@example.com", user.Email)
		assert.Equal(t, "Ana Lopez", user.FullName())
		assert.NotEqual(t, "secret1", user.PasswordHash)
		assert.True(t, user.VerifyPassword("secret1"))
		assert.False(t, user.VerifyPassword("secret2"))
		assert.False(t, user.IsVerified)
		assert.Equal(t, role.ID, user.RoleID)
		assert.Equal(t, RoleClient, user.RoleName)
		assert.False(t, user.IsAdmin())
	})

	t.Run("publishes UserRegistered event", func(t *testing.T) {
		user, err := NewUser("bob@example.com", "secret1", "Bob", "Diaz", role)
		require.NoError(t, err)

		events := user.GetDomainEvents()
		require.Len(t, events, 1)
		assert.Equal(t, EventTypeUserRegistered, events[0].EventType())
	})

	t.Run("rejects short password", func(t *testing.T) {
		_, err := NewUser("bob@example.com", "12345", "Bob", "Diaz", role)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "at least 6")
	})

	t.Run("rejects invalid email", func(t *testing.T) {
		_, err := NewUser("not-an-email", "secret1", "Bob", "Diaz", role)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Invalid email")
	})

	t.Run("rejects empty first name", func(t *testing.T) {
		_, err := NewUser("bob@example.com", "secret1", " ", "Diaz", role)
		require.Error(t, err)
	})

	t.Run("requires role", func(t *testing.T) {
		_, err := NewUser("bob@example.com", "secret1", "Bob", "Diaz", nil)
		require.Error(t, err)
	})
}

func TestUser_Verify(t *testing.T) {
	role := clientRole(t)

	t.Run("consumes valid token", func(t *testing.T) {
		user, err := NewUser("ana@example.com", "secret1", "Ana", "Lopez", role)
		require.NoError(t, err)
		token := user.IssueVerificationToken(5 * time.Hour)

		require.NoError(t, user.Verify(token, time.Now()))
		assert.True(t, user.IsVerified)
		assert.Empty(t, user.VerificationToken)
		assert.Nil(t, user.VerificationExpiresAt)
	})

	t.Run("rejects wrong token", func(t *testing.T) {
		user, err := NewUser("ana@example.com", "secret1", "Ana", "Lopez", role)
		require.NoError(t, err)
		user.IssueVerificationToken(5 * time.Hour)

		err = user.Verify("other", time.Now())
		assert.ErrorIs(t, err, ErrInvalidToken)
		assert.False(t, user.IsVerified)
	})

	t.Run("rejects expired token", func(t *testing.T) {
		user, err := NewUser("ana@example.com", "secret1", "Ana", "Lopez", role)
		require.NoError(t, err)
		token := user.IssueVerificationToken(5 * time.Hour)

		err = user.Verify(token, time.Now().Add(6*time.Hour))
		assert.ErrorIs(t, err, ErrTokenExpired)
	})

	t.Run("already verified is a no-op", func(t *testing.T) {
		user, err := NewUser("ana@example.com", "secret1", "Ana", "Lopez", role)
		require.NoError(t, err)
		user.MarkVerified()

		assert.NoError(t, user.Verify("anything", time.Now()))
	})
}

func TestUser_ResetPassword(t *testing.T) {
	role := clientRole(t)
	user, err := NewUser("ana@example.com", "secret1", "Ana", "Lopez", role)
	require.NoError(t, err)

	token := user.IssueResetToken(20 * time.Minute)
	require.NoError(t, user.CheckResetToken(token, time.Now()))

	t.Run("expired token is rejected", func(t *testing.T) {
		err := user.ResetPassword(token, "newsecret", time.Now().Add(21*time.Minute))
		assert.ErrorIs(t, err, ErrTokenExpired)
		assert.True(t, user.VerifyPassword("secret1"))
	})

	t.Run("short password keeps token", func(t *testing.T) {
		err := user.ResetPassword(token, "abc", time.Now())
		require.Error(t, err)
		assert.Equal(t, token, user.ResetToken)
	})

	t.Run("valid token sets password and clears token", func(t *testing.T) {
		require.NoError(t, user.ResetPassword(token, "newsecret", time.Now()))
		assert.True(t, user.VerifyPassword("newsecret"))
		assert.Empty(t, user.ResetToken)
		assert.Nil(t, user.ResetExpiresAt)
		assert.ErrorIs(t, user.CheckResetToken(token, time.Now()), ErrInvalidToken)
	})
}

func TestUser_UpdateProfile(t *testing.T) {
	user, err := NewUser("ana@example.com", "secret1", "Ana", "Lopez", clientRole(t))
	require.NoError(t, err)

	first := "Anna"
	phone := "555-0100"
	require.NoError(t, user.UpdateProfile(&first, nil, &phone))
	assert.Equal(t, "Anna", user.FirstName)
	assert.Equal(t, "Lopez", user.LastName)
	assert.Equal(t, "555-0100", user.Phone)

	empty := ""
	err = user.UpdateProfile(nil, &empty, nil)
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "INVALID_NAME", domainErr.Code)
}

func TestRole(t *testing.T) {
	t.Run("normalizes name", func(t *testing.T) {
		role, err := NewRole(" seller ", "Marketplace seller")
		require.NoError(t, err)
		assert.Equal(t, "SELLER", role.Name)
		assert.False(t, role.IsBuiltIn())
	})

	t.Run("rejects invalid characters", func(t *testing.T) {
		_, err := NewRole("sell-er", "")
		require.Error(t, err)
	})

	t.Run("built-in roles cannot be renamed", func(t *testing.T) {
		role, err := NewRole(RoleAdmin, "Administrator")
		require.NoError(t, err)

		name := "ROOT"
		err = role.Update(&name, nil)
		require.Error(t, err)

		desc := "Full access"
		require.NoError(t, role.Update(nil, &desc))
		assert.Equal(t, "Full access", role.Description)
	})
}
