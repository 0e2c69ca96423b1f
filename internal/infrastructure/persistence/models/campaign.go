package models

import (
	"time"

	"github.com/donation/backend/internal/domain/campaign"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CampaignModel is the persistence model for the Campaign aggregate.
type CampaignModel struct {
	AggregateModel
	Title           string            `gorm:"type:varchar(200);not null"`
	Description     string            `gorm:"type:text;not null"`
	Category        campaign.Category `gorm:"type:varchar(30);not null;index"`
	Goal            decimal.Decimal   `gorm:"type:decimal(14,2);not null"`
	Collected       decimal.Decimal   `gorm:"type:decimal(14,2);not null;default:0"`
	DonorCount      int               `gorm:"not null;default:0"`
	StartDate       time.Time         `gorm:"not null"`
	DurationDays    int               `gorm:"not null"`
	EndDate         time.Time         `gorm:"not null;index"`
	Status          campaign.Status   `gorm:"type:varchar(20);not null;default:'pending';index"`
	CreatorName     string            `gorm:"type:varchar(100);not null"`
	CreatorEmail    string            `gorm:"type:varchar(200);not null"`
	CreatorPhone    string            `gorm:"type:varchar(30)"`
	Location        string            `gorm:"type:varchar(200)"`
	ImageKey        string            `gorm:"type:varchar(500)"`
	Documents       []string          `gorm:"type:text;serializer:json"`
	Urgent          bool              `gorm:"not null;default:false"`
	Featured        bool              `gorm:"not null;default:false"`
	ApprovedBy      *uuid.UUID        `gorm:"type:uuid"`
	ApprovedAt      *time.Time
	RejectionReason *string `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (CampaignModel) TableName() string {
	return "campaigns"
}

// ToDomain converts the persistence model to a domain Campaign.
func (m *CampaignModel) ToDomain() *campaign.Campaign {
	docs := m.Documents
	if docs == nil {
		docs = []string{}
	}
	return &campaign.Campaign{
		BaseAggregateRoot: m.ToAggregateRoot(),
		Title:             m.Title,
		Description:       m.Description,
		Category:          m.Category,
		Goal:              m.Goal,
		Collected:         m.Collected,
		DonorCount:        m.DonorCount,
		StartDate:         m.StartDate,
		DurationDays:      m.DurationDays,
		EndDate:           m.EndDate,
		Status:            m.Status,
		CreatorName:       m.CreatorName,
		CreatorEmail:      m.CreatorEmail,
		CreatorPhone:      m.CreatorPhone,
		Location:          m.Location,
		ImageKey:          m.ImageKey,
		Documents:         docs,
		Urgent:            m.Urgent,
		Featured:          m.Featured,
		ApprovedBy:        m.ApprovedBy,
		ApprovedAt:        m.ApprovedAt,
		RejectionReason:   m.RejectionReason,
	}
}

// FromDomain populates the persistence model from a domain Campaign.
func (m *CampaignModel) FromDomain(c *campaign.Campaign) {
	m.FromDomainAggregateRoot(c.BaseAggregateRoot)
	m.Title = c.Title
	m.Description = c.Description
	m.Category = c.Category
	m.Goal = c.Goal
	m.Collected = c.Collected
	m.DonorCount = c.DonorCount
	m.StartDate = c.StartDate.UTC()
	m.DurationDays = c.DurationDays
	m.EndDate = c.EndDate.UTC()
	m.Status = c.Status
	m.CreatorName = c.CreatorName
	m.CreatorEmail = c.CreatorEmail
	m.CreatorPhone = c.CreatorPhone
	m.Location = c.Location
	m.ImageKey = c.ImageKey
	m.Documents = c.Documents
	m.Urgent = c.Urgent
	m.Featured = c.Featured
	m.ApprovedBy = c.ApprovedBy
	if c.ApprovedAt != nil {
		t := c.ApprovedAt.UTC()
		m.ApprovedAt = &t
	} else {
		m.ApprovedAt = nil
	}
	m.RejectionReason = c.RejectionReason
}

// CampaignModelFromDomain creates a new persistence model from a domain Campaign.
func CampaignModelFromDomain(c *campaign.Campaign) *CampaignModel {
	m := &CampaignModel{}
	m.FromDomain(c)
	return m
}
