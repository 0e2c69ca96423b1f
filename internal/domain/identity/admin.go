package identity

import (
	"regexp"
	"strings"
	"time"

	"github.com/donation/backend/internal/domain/shared"
	"golang.org/x/crypto/bcrypt"
)

// Role is an admin's privilege level
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "superadmin"
)

// IsValid reports whether r is a known role
func (r Role) IsValid() bool {
	return r == RoleAdmin || r == RoleSuperAdmin
}

// Satisfies reports whether r grants at least the privileges of required
func (r Role) Satisfies(required Role) bool {
	switch required {
	case RoleAdmin:
		return r == RoleAdmin || r == RoleSuperAdmin
	case RoleSuperAdmin:
		return r == RoleSuperAdmin
	}
	return false
}

// DefaultBcryptCost is used when no cost is configured
const DefaultBcryptCost = 12

// Admin is an operator account allowed to moderate campaigns and read PII
type Admin struct {
	shared.BaseAggregateRoot
	Email               string
	Name                string
	PasswordHash        string
	Role                Role
	Active              bool
	LastLoginAt         *time.Time
	FailedLoginAttempts int
	LockedUntil         *time.Time
}

// NewAdmin creates an active admin with a bcrypt-hashed password.
// Every violated field is reported at once.
func NewAdmin(email, name, password string, role Role, cost int) (*Admin, error) {
	var verrs shared.ValidationErrors

	email = shared.NormalizeEmail(email)
	name = strings.TrimSpace(name)
	if !shared.IsValidEmail(email) {
		verrs.Add("email", "Please provide a valid email")
	}
	if name == "" {
		verrs.Add("name", "Name is required")
	} else if len(name) > 100 {
		verrs.Add("name", "Name cannot exceed 100 characters")
	}
	if msg := validatePassword(password); msg != "" {
		verrs.Add("password", msg)
	}
	if !role.IsValid() {
		verrs.Add("role", "Role must be admin or superadmin")
	}
	if err := verrs.Err(); err != nil {
		return nil, err
	}

	hash, err := hashPassword(password, cost)
	if err != nil {
		return nil, err
	}

	a := &Admin{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Email:             email,
		Name:              name,
		PasswordHash:      hash,
		Role:              role,
		Active:            true,
	}
	a.AddDomainEvent(NewAdminCreatedEvent(a))
	return a, nil
}

// VerifyPassword compares password against the stored hash
func (a *Admin) VerifyPassword(password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(password))
	return err == nil
}

// IsLocked reports whether a lockout is in force at now
func (a *Admin) IsLocked(now time.Time) bool {
	return a.LockedUntil != nil && now.Before(*a.LockedUntil)
}

// CanLogin reports whether the account may authenticate at now
func (a *Admin) CanLogin(now time.Time) bool {
	return a.Active && !a.IsLocked(now)
}

// RecordLoginSuccess stamps the last login and clears failure counters
func (a *Admin) RecordLoginSuccess(now time.Time) {
	a.LastLoginAt = &now
	a.FailedLoginAttempts = 0
	a.LockedUntil = nil
	a.UpdatedAt = now
}

// RecordLoginFailure counts a failed attempt. When maxAttempts is positive
// and reached, the account is locked for lockDuration and true is returned.
func (a *Admin) RecordLoginFailure(maxAttempts int, lockDuration time.Duration, now time.Time) bool {
	a.FailedLoginAttempts++
	a.UpdatedAt = now
	if maxAttempts <= 0 || a.FailedLoginAttempts < maxAttempts {
		return false
	}
	until := now.Add(lockDuration)
	a.LockedUntil = &until
	a.FailedLoginAttempts = 0
	return true
}

// Deactivate disables the account
func (a *Admin) Deactivate(now time.Time) {
	a.Active = false
	a.UpdatedAt = now
	a.IncrementVersion()
}

// Activate re-enables the account and clears any lockout
func (a *Admin) Activate(now time.Time) {
	a.Active = true
	a.FailedLoginAttempts = 0
	a.LockedUntil = nil
	a.UpdatedAt = now
	a.IncrementVersion()
}

var (
	hasLetter = regexp.MustCompile(`[a-zA-Z]`)
	hasNumber = regexp.MustCompile(`[0-9]`)
)

func validatePassword(password string) string {
	switch {
	case password == "":
		return "Password is required"
	case len(password) < 8:
		return "Password must be at least 8 characters"
	case len(password) > 72:
		return "Password cannot exceed 72 characters"
	case !hasLetter.MatchString(password) || !hasNumber.MatchString(password):
		return "Password must contain at least one letter and one number"
	}
	return ""
}

func hashPassword(password string, cost int) (string, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultBcryptCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
