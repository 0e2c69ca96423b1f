package identity

import (
	"testing"
	"time"

	"github.com/donation/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestNewAdmin(t *testing.T) {
	t.Run("hashes password and normalizes email", func(t *testing.T) {
		a, err := NewAdmin(" Ops@Example.com ", "Ops Team", "secret123", RoleAdmin, bcrypt.MinCost)
		require.NoError(t, err)

		assert.Equal(t, "ops@example.com", a.Email)
		assert.True(t, a.Active)
		assert.NotEqual(t, "secret123", a.PasswordHash)
		assert.True(t, a.VerifyPassword("secret123"))
		assert.False(t, a.VerifyPassword("secret124"))
	})

	t.Run("reports all violations", func(t *testing.T) {
		_, err := NewAdmin("nope", "", "short", Role("owner"), bcrypt.MinCost)
		require.Error(t, err)
		de, ok := err.(*shared.DomainError)
		require.True(t, ok)
		assert.Len(t, de.Details, 4)
	})
}

func TestRole_Satisfies(t *testing.T) {
	assert.True(t, RoleSuperAdmin.Satisfies(RoleAdmin))
	assert.True(t, RoleAdmin.Satisfies(RoleAdmin))
	assert.False(t, RoleAdmin.Satisfies(RoleSuperAdmin))
	assert.True(t, RoleSuperAdmin.Satisfies(RoleSuperAdmin))
}

func TestAdmin_LoginBookkeeping(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	t.Run("no lockout when max attempts is zero", func(t *testing.T) {
		a := &Admin{Active: true}
		for i := 0; i < 3; i++ {
			assert.False(t, a.RecordLoginFailure(0, time.Minute, now))
		}
		assert.Equal(t, 3, a.FailedLoginAttempts)
		assert.True(t, a.CanLogin(now))
	})

	t.Run("locks after configured attempts", func(t *testing.T) {
		a := &Admin{Active: true}
		assert.False(t, a.RecordLoginFailure(2, 15*time.Minute, now))
		assert.True(t, a.RecordLoginFailure(2, 15*time.Minute, now))
		assert.False(t, a.CanLogin(now.Add(time.Minute)))
		assert.True(t, a.CanLogin(now.Add(16*time.Minute)))
	})

	t.Run("success resets counters", func(t *testing.T) {
		a := &Admin{Active: true, FailedLoginAttempts: 2}
		a.RecordLoginSuccess(now)
		assert.Equal(t, 0, a.FailedLoginAttempts)
		require.NotNil(t, a.LastLoginAt)
		assert.Equal(t, now, *a.LastLoginAt)
	})

	t.Run("inactive admin cannot login", func(t *testing.T) {
		a := &Admin{Active: true}
		a.Deactivate(now)
		assert.False(t, a.CanLogin(now))
	})

	t.Run("activate clears lockout", func(t *testing.T) {
		a := &Admin{Active: true}
		a.RecordLoginFailure(1, time.Hour, now)
		a.Deactivate(now)
		a.Activate(now)
		assert.True(t, a.CanLogin(now))
		assert.Nil(t, a.LockedUntil)
		assert.Equal(t, 2, a.Version)
	})
}
