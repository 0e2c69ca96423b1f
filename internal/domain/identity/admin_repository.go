package identity

import (
	"context"

	"github.com/google/uuid"
)

// AdminRepository defines the interface for admin persistence
type AdminRepository interface {
	// FindByID finds an admin by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Admin, error)

	// FindByEmail finds an admin by normalized email
	FindByEmail(ctx context.Context, email string) (*Admin, error)

	// Create inserts a new admin; a duplicate email fails with a conflict
	Create(ctx context.Context, admin *Admin) error

	// UpdateLoginState writes last login, failed attempts and lockout fields
	UpdateLoginState(ctx context.Context, admin *Admin) error

	// UpdateStatus writes the active flag guarded by the admin's previous version
	UpdateStatus(ctx context.Context, admin *Admin) error

	// Count returns the number of admins
	Count(ctx context.Context) (int64, error)
}
