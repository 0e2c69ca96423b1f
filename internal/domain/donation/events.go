package donation

import (
	"github.com/donation/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Aggregate type constant
const AggregateTypeDonation = "Donation"

// Event type constants
const (
	EventTypeDonationRecorded     = "DonationRecorded"
	EventTypePaymentStatusChanged = "DonationPaymentStatusChanged"
)

// DonationRecordedEvent is published after a donation is committed
type DonationRecordedEvent struct {
	shared.BaseDomainEvent
	DonationID    uuid.UUID       `json:"donation_id"`
	CampaignID    uuid.UUID       `json:"campaign_id"`
	TransactionID string          `json:"transaction_id"`
	Amount        decimal.Decimal `json:"amount"`
	PaymentStatus PaymentStatus   `json:"payment_status"`
}

// NewDonationRecordedEvent creates a new DonationRecordedEvent
func NewDonationRecordedEvent(d *Donation) *DonationRecordedEvent {
	return &DonationRecordedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeDonationRecorded, AggregateTypeDonation, d.ID),
		DonationID:      d.ID,
		CampaignID:      d.CampaignID,
		TransactionID:   d.TransactionID,
		Amount:          d.Amount,
		PaymentStatus:   d.PaymentStatus,
	}
}

// PaymentStatusChangedEvent is published after an admin moves a donation's
// payment status
type PaymentStatusChangedEvent struct {
	shared.BaseDomainEvent
	DonationID uuid.UUID       `json:"donation_id"`
	CampaignID uuid.UUID       `json:"campaign_id"`
	From       PaymentStatus   `json:"from"`
	To         PaymentStatus   `json:"to"`
	Amount     decimal.Decimal `json:"amount"`
}

// NewPaymentStatusChangedEvent creates a new PaymentStatusChangedEvent
func NewPaymentStatusChangedEvent(d *Donation, from, to PaymentStatus) *PaymentStatusChangedEvent {
	return &PaymentStatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePaymentStatusChanged, AggregateTypeDonation, d.ID),
		DonationID:      d.ID,
		CampaignID:      d.CampaignID,
		From:            from,
		To:              to,
		Amount:          d.Amount,
	}
}
