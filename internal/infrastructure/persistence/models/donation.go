package models

import (
	"github.com/donation/backend/internal/domain/donation"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DonationModel is the persistence model for the Donation aggregate.
type DonationModel struct {
	AggregateModel
	TransactionID   string                 `gorm:"type:varchar(40);not null;uniqueIndex"`
	CampaignID      uuid.UUID              `gorm:"type:uuid;not null;index"`
	Name            string                 `gorm:"type:varchar(100);not null"`
	Email           string                 `gorm:"type:varchar(200);not null;index"`
	Phone           string                 `gorm:"type:varchar(30);not null"`
	Amount          decimal.Decimal        `gorm:"type:decimal(14,2);not null"`
	Message         string                 `gorm:"type:varchar(500)"`
	DisplayPublicly bool                   `gorm:"not null"`
	Anonymous       bool                   `gorm:"not null;default:false"`
	PaymentMethod   donation.PaymentMethod `gorm:"type:varchar(20);not null;default:'other'"`
	PaymentStatus   donation.PaymentStatus `gorm:"type:varchar(20);not null;default:'completed';index"`
	IdempotencyKey  *string                `gorm:"type:varchar(128);uniqueIndex"`
}

// TableName returns the table name for GORM
func (DonationModel) TableName() string {
	return "donations"
}

// ToDomain converts the persistence model to a domain Donation.
func (m *DonationModel) ToDomain() *donation.Donation {
	return &donation.Donation{
		BaseAggregateRoot: m.ToAggregateRoot(),
		TransactionID:     m.TransactionID,
		CampaignID:        m.CampaignID,
		Name:              m.Name,
		Email:             m.Email,
		Phone:             m.Phone,
		Amount:            m.Amount,
		Message:           m.Message,
		DisplayPublicly:   m.DisplayPublicly,
		Anonymous:         m.Anonymous,
		PaymentMethod:     m.PaymentMethod,
		PaymentStatus:     m.PaymentStatus,
		IdempotencyKey:    m.IdempotencyKey,
	}
}

// FromDomain populates the persistence model from a domain Donation.
func (m *DonationModel) FromDomain(d *donation.Donation) {
	m.FromDomainAggregateRoot(d.BaseAggregateRoot)
	m.TransactionID = d.TransactionID
	m.CampaignID = d.CampaignID
	m.Name = d.Name
	m.Email = d.Email
	m.Phone = d.Phone
	m.Amount = d.Amount
	m.Message = d.Message
	m.DisplayPublicly = d.DisplayPublicly
	m.Anonymous = d.Anonymous
	m.PaymentMethod = d.PaymentMethod
	m.PaymentStatus = d.PaymentStatus
	m.IdempotencyKey = d.IdempotencyKey
}

// DonationModelFromDomain creates a new persistence model from a domain Donation.
func DonationModelFromDomain(d *donation.Donation) *DonationModel {
	m := &DonationModel{}
	m.FromDomain(d)
	return m
}
