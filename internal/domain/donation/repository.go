package donation

import (
	"context"
	"time"

	"github.com/donation/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// ListFilter narrows donation listings. Search matches name, email, phone
// and transaction id.
type ListFilter struct {
	shared.Filter
	CampaignID *uuid.UUID
	// PaymentStatuses restricts the listing; empty means any status
	PaymentStatuses []PaymentStatus
	// PublicOnly keeps only completed donations whose donor agreed to be shown
	PublicOnly bool
}

// Repository defines the interface for donation persistence
type Repository interface {
	// FindByID finds a donation by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Donation, error)

	// FindByIdempotencyKey finds the donation recorded under a client key
	FindByIdempotencyKey(ctx context.Context, key string) (*Donation, error)

	// FindAll returns one page of donations and the total matching the same filter
	FindAll(ctx context.Context, filter ListFilter) ([]Donation, int64, error)

	// FindRecentPublic returns the latest public completed donations,
	// optionally restricted to one campaign
	FindRecentPublic(ctx context.Context, campaignID *uuid.UUID, limit int) ([]Donation, error)

	// Create inserts a donation
	Create(ctx context.Context, d *Donation) error

	// TransitionPaymentStatus moves the payment status only if it still equals from
	TransitionPaymentStatus(ctx context.Context, id uuid.UUID, from, to PaymentStatus, now time.Time) (bool, error)

	// CountCompletedByCampaign counts donations that contribute to a campaign
	CountCompletedByCampaign(ctx context.Context, campaignID uuid.UUID) (int64, error)

	// DeleteUnsettledByCampaign removes the pending, failed and refunded
	// donations of a campaign. Completed donations are never deleted.
	DeleteUnsettledByCampaign(ctx context.Context, campaignID uuid.UUID) error
}
