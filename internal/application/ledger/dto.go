package ledger

import (
	"time"

	"github.com/donation/backend/internal/domain/campaign"
	"github.com/donation/backend/internal/domain/donation"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RecordDonationRequest is the donation form submitted by a donor.
// Field rules are checked by the domain so every violation is reported at once.
type RecordDonationRequest struct {
	CampaignID      string          `json:"campaign" binding:"required,uuid"`
	Name            string          `json:"name"`
	Email           string          `json:"email"`
	Phone           string          `json:"phone"`
	Amount          decimal.Decimal `json:"amount" swaggertype:"string" example:"25.00"`
	Message         string          `json:"message"`
	DisplayPublicly *bool           `json:"displayPublicly"`
	Anonymous       bool            `json:"anonymous"`
	PaymentMethod   string          `json:"paymentMethod" example:"card"`
	PaymentStatus   string          `json:"paymentStatus" example:"completed"`
	// IdempotencyKey comes from the Idempotency-Key header
	IdempotencyKey string `json:"-"`
}

// UpdatePaymentStatusRequest moves a donation to a new payment status
type UpdatePaymentStatusRequest struct {
	PaymentStatus string `json:"paymentStatus" binding:"required,oneof=pending completed failed refunded"`
}

// DonationResponse is the full donation including donor contact details.
// It is only returned to admins.
type DonationResponse struct {
	ID              uuid.UUID       `json:"id"`
	TransactionID   string          `json:"transactionId"`
	CampaignID      uuid.UUID       `json:"campaign"`
	Name            string          `json:"name"`
	Email           string          `json:"email"`
	Phone           string          `json:"phone"`
	Amount          decimal.Decimal `json:"amount" swaggertype:"string"`
	Message         string          `json:"message,omitempty"`
	DisplayPublicly bool            `json:"displayPublicly"`
	Anonymous       bool            `json:"anonymous"`
	PaymentMethod   string          `json:"paymentMethod"`
	PaymentStatus   string          `json:"paymentStatus"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// DonationReceipt is what the submitter of a donation gets back. Anyone
// holding the idempotency key can replay it, so it carries no contact details.
type DonationReceipt struct {
	ID              uuid.UUID       `json:"id"`
	TransactionID   string          `json:"transactionId"`
	CampaignID      uuid.UUID       `json:"campaign"`
	Name            string          `json:"name"`
	Amount          decimal.Decimal `json:"amount" swaggertype:"string"`
	Message         string          `json:"message,omitempty"`
	DisplayPublicly bool            `json:"displayPublicly"`
	Anonymous       bool            `json:"anonymous"`
	PaymentMethod   string          `json:"paymentMethod"`
	PaymentStatus   string          `json:"paymentStatus"`
	CreatedAt       time.Time       `json:"createdAt"`
}

// PublicDonationResponse is the donation as shown on public pages.
// It never carries email, phone or the transaction reference.
type PublicDonationResponse struct {
	ID         uuid.UUID       `json:"id"`
	CampaignID uuid.UUID       `json:"campaign"`
	Name       string          `json:"name"`
	Amount     decimal.Decimal `json:"amount" swaggertype:"string"`
	Message    string          `json:"message,omitempty"`
	CreatedAt  time.Time       `json:"createdAt"`
}

// CampaignProgress is the campaign state after a ledger operation
type CampaignProgress struct {
	ID         uuid.UUID       `json:"id"`
	Title      string          `json:"title"`
	Status     string          `json:"status"`
	Goal       decimal.Decimal `json:"goal" swaggertype:"string"`
	Collected  decimal.Decimal `json:"collected" swaggertype:"string"`
	DonorCount int             `json:"donorCount"`
	Progress   decimal.Decimal `json:"progress" swaggertype:"string"`
}

// RecordDonationResponse is the receipt of a recorded donation
type RecordDonationResponse struct {
	Donation DonationReceipt  `json:"donation"`
	Campaign CampaignProgress `json:"campaign"`
	// Replayed is set when an earlier donation with the same idempotency key was returned
	Replayed bool `json:"replayed"`
}

// PaymentStatusResponse is the result of a payment status transition
type PaymentStatusResponse struct {
	Donation DonationResponse `json:"donation"`
	Campaign CampaignProgress `json:"campaign"`
}

// ListDonationsFilter narrows donation listings
type ListDonationsFilter struct {
	Page          int
	Limit         int
	Search        string
	CampaignID    *uuid.UUID
	PaymentStatus string // empty or "all" disables the filter
	OrderBy       string
	OrderDir      string
}

// ToDonationResponse converts a donation into its full response
func ToDonationResponse(d *donation.Donation) DonationResponse {
	return DonationResponse{
		ID:              d.ID,
		TransactionID:   d.TransactionID,
		CampaignID:      d.CampaignID,
		Name:            d.Name,
		Email:           d.Email,
		Phone:           d.Phone,
		Amount:          d.Amount,
		Message:         d.Message,
		DisplayPublicly: d.DisplayPublicly,
		Anonymous:       d.Anonymous,
		PaymentMethod:   string(d.PaymentMethod),
		PaymentStatus:   string(d.PaymentStatus),
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       d.UpdatedAt,
	}
}

// ToDonationReceipt converts a donation into the submitter's receipt
func ToDonationReceipt(d *donation.Donation) DonationReceipt {
	return DonationReceipt{
		ID:              d.ID,
		TransactionID:   d.TransactionID,
		CampaignID:      d.CampaignID,
		Name:            d.Name,
		Amount:          d.Amount,
		Message:         d.Message,
		DisplayPublicly: d.DisplayPublicly,
		Anonymous:       d.Anonymous,
		PaymentMethod:   string(d.PaymentMethod),
		PaymentStatus:   string(d.PaymentStatus),
		CreatedAt:       d.CreatedAt,
	}
}

// ToPublicDonationResponse converts a donation into its public view
func ToPublicDonationResponse(d *donation.Donation) PublicDonationResponse {
	return PublicDonationResponse{
		ID:         d.ID,
		CampaignID: d.CampaignID,
		Name:       d.PublicName(),
		Amount:     d.Amount,
		Message:    d.Message,
		CreatedAt:  d.CreatedAt,
	}
}

// ToPublicDonationResponses converts a slice of donations into public views
func ToPublicDonationResponses(donations []donation.Donation) []PublicDonationResponse {
	out := make([]PublicDonationResponse, len(donations))
	for i := range donations {
		out[i] = ToPublicDonationResponse(&donations[i])
	}
	return out
}

// ToDonationResponses converts a slice of donations into full responses
func ToDonationResponses(donations []donation.Donation) []DonationResponse {
	out := make([]DonationResponse, len(donations))
	for i := range donations {
		out[i] = ToDonationResponse(&donations[i])
	}
	return out
}

// ToCampaignProgress summarizes the aggregates of a campaign
func ToCampaignProgress(c *campaign.Campaign) CampaignProgress {
	return CampaignProgress{
		ID:         c.ID,
		Title:      c.Title,
		Status:     string(c.Status),
		Goal:       c.Goal,
		Collected:  c.Collected,
		DonorCount: c.DonorCount,
		Progress:   c.Progress(),
	}
}
