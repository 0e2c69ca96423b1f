package campaign

import (
	"github.com/donation/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Aggregate type constant
const AggregateTypeCampaign = "Campaign"

// Event type constants
const (
	EventTypeCampaignCreated       = "CampaignCreated"
	EventTypeCampaignUpdated       = "CampaignUpdated"
	EventTypeCampaignApproved      = "CampaignApproved"
	EventTypeCampaignRejected      = "CampaignRejected"
	EventTypeCampaignCancelled     = "CampaignCancelled"
	EventTypeCampaignStatusChanged = "CampaignStatusChanged"
	EventTypeCampaignDeleted       = "CampaignDeleted"
)

// CampaignCreatedEvent is published when a campaign is submitted
type CampaignCreatedEvent struct {
	shared.BaseDomainEvent
	CampaignID uuid.UUID       `json:"campaign_id"`
	Title      string          `json:"title"`
	Category   Category        `json:"category"`
	Goal       decimal.Decimal `json:"goal"`
	Status     Status          `json:"status"`
}

// NewCampaignCreatedEvent creates a new CampaignCreatedEvent
func NewCampaignCreatedEvent(c *Campaign) *CampaignCreatedEvent {
	return &CampaignCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCampaignCreated, AggregateTypeCampaign, c.ID),
		CampaignID:      c.ID,
		Title:           c.Title,
		Category:        c.Category,
		Goal:            c.Goal,
		Status:          c.Status,
	}
}

// CampaignUpdatedEvent is published when an admin edits a campaign
type CampaignUpdatedEvent struct {
	shared.BaseDomainEvent
	CampaignID uuid.UUID `json:"campaign_id"`
	Title      string    `json:"title"`
}

// NewCampaignUpdatedEvent creates a new CampaignUpdatedEvent
func NewCampaignUpdatedEvent(c *Campaign) *CampaignUpdatedEvent {
	return &CampaignUpdatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCampaignUpdated, AggregateTypeCampaign, c.ID),
		CampaignID:      c.ID,
		Title:           c.Title,
	}
}

// CampaignApprovedEvent is published when a pending campaign goes live
type CampaignApprovedEvent struct {
	shared.BaseDomainEvent
	CampaignID uuid.UUID `json:"campaign_id"`
	ApprovedBy uuid.UUID `json:"approved_by"`
}

// NewCampaignApprovedEvent creates a new CampaignApprovedEvent
func NewCampaignApprovedEvent(c *Campaign, adminID uuid.UUID) *CampaignApprovedEvent {
	return &CampaignApprovedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCampaignApproved, AggregateTypeCampaign, c.ID),
		CampaignID:      c.ID,
		ApprovedBy:      adminID,
	}
}

// CampaignRejectedEvent is published when a pending campaign is turned down
type CampaignRejectedEvent struct {
	shared.BaseDomainEvent
	CampaignID uuid.UUID `json:"campaign_id"`
	RejectedBy uuid.UUID `json:"rejected_by"`
	Reason     string    `json:"reason"`
}

// NewCampaignRejectedEvent creates a new CampaignRejectedEvent
func NewCampaignRejectedEvent(c *Campaign, adminID uuid.UUID, reason string) *CampaignRejectedEvent {
	return &CampaignRejectedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCampaignRejected, AggregateTypeCampaign, c.ID),
		CampaignID:      c.ID,
		RejectedBy:      adminID,
		Reason:          reason,
	}
}

// CampaignCancelledEvent is published when an admin cancels a campaign
type CampaignCancelledEvent struct {
	shared.BaseDomainEvent
	CampaignID  uuid.UUID `json:"campaign_id"`
	CancelledBy uuid.UUID `json:"cancelled_by"`
}

// NewCampaignCancelledEvent creates a new CampaignCancelledEvent
func NewCampaignCancelledEvent(c *Campaign, adminID uuid.UUID) *CampaignCancelledEvent {
	return &CampaignCancelledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCampaignCancelled, AggregateTypeCampaign, c.ID),
		CampaignID:      c.ID,
		CancelledBy:     adminID,
	}
}

// CampaignStatusChangedEvent is published when the lifecycle evaluator moves a
// campaign to completed or expired.
type CampaignStatusChangedEvent struct {
	shared.BaseDomainEvent
	CampaignID uuid.UUID       `json:"campaign_id"`
	From       Status          `json:"from"`
	To         Status          `json:"to"`
	Collected  decimal.Decimal `json:"collected"`
	Goal       decimal.Decimal `json:"goal"`
}

// NewCampaignStatusChangedEvent creates a new CampaignStatusChangedEvent
func NewCampaignStatusChangedEvent(c *Campaign, from, to Status) *CampaignStatusChangedEvent {
	return &CampaignStatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCampaignStatusChanged, AggregateTypeCampaign, c.ID),
		CampaignID:      c.ID,
		From:            from,
		To:              to,
		Collected:       c.Collected,
		Goal:            c.Goal,
	}
}

// CampaignDeletedEvent is published after a campaign is removed
type CampaignDeletedEvent struct {
	shared.BaseDomainEvent
	CampaignID uuid.UUID `json:"campaign_id"`
	Title      string    `json:"title"`
}

// NewCampaignDeletedEvent creates a new CampaignDeletedEvent
func NewCampaignDeletedEvent(c *Campaign) *CampaignDeletedEvent {
	return &CampaignDeletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCampaignDeleted, AggregateTypeCampaign, c.ID),
		CampaignID:      c.ID,
		Title:           c.Title,
	}
}
