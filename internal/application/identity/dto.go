package identity

import (
	"time"

	"github.com/donation/backend/internal/domain/identity"
	"github.com/google/uuid"
)

// LoginRequest contains the credentials for admin login
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// LoginResult contains the token issued after a successful login
type LoginResult struct {
	Token     string       `json:"token"`
	TokenType string       `json:"tokenType"`
	ExpiresAt time.Time    `json:"expiresAt"`
	Admin     AdminProfile `json:"admin"`
}

// AdminProfile is the public view of an admin account
type AdminProfile struct {
	ID          uuid.UUID     `json:"id"`
	Email       string        `json:"email"`
	Name        string        `json:"name"`
	Role        identity.Role `json:"role"`
	Active      bool          `json:"active"`
	LastLoginAt *time.Time    `json:"lastLoginAt,omitempty"`
	CreatedAt   time.Time     `json:"createdAt"`
}

// CreateAdminRequest contains the input for provisioning an admin
type CreateAdminRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Name     string `json:"name" binding:"required,max=100"`
	Password string `json:"password" binding:"required,min=8,max=72"`
	Role     string `json:"role" binding:"omitempty,oneof=admin superadmin"`
}

// UpdateAdminStatusRequest enables or disables an admin account
type UpdateAdminStatusRequest struct {
	Active *bool `json:"active" binding:"required"`
}

// Principal is the authenticated admin behind a request
type Principal struct {
	AdminID   uuid.UUID
	Email     string
	Name      string
	Role      identity.Role
	TokenID   string
	ExpiresAt time.Time
}

// ToAdminProfile converts a domain admin to its profile
func ToAdminProfile(a *identity.Admin) AdminProfile {
	return AdminProfile{
		ID:          a.ID,
		Email:       a.Email,
		Name:        a.Name,
		Role:        a.Role,
		Active:      a.Active,
		LastLoginAt: a.LastLoginAt,
		CreatedAt:   a.CreatedAt,
	}
}
