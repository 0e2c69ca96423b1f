package identity

import (
	"github.com/donation/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Aggregate type constant
const AggregateTypeAdmin = "Admin"

// Event type constants
const (
	EventTypeAdminCreated = "AdminCreated"
)

// AdminCreatedEvent is published when an admin account is provisioned
type AdminCreatedEvent struct {
	shared.BaseDomainEvent
	AdminID uuid.UUID `json:"admin_id"`
	Email   string    `json:"email"`
	Role    Role      `json:"role"`
}

// NewAdminCreatedEvent creates a new AdminCreatedEvent
func NewAdminCreatedEvent(a *Admin) *AdminCreatedEvent {
	return &AdminCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeAdminCreated, AggregateTypeAdmin, a.ID),
		AdminID:         a.ID,
		Email:           a.Email,
		Role:            a.Role,
	}
}
