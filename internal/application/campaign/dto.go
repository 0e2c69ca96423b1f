package campaign

import (
	"time"

	"github.com/donation/backend/internal/domain/campaign"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateCampaignRequest is the public campaign submission form.
// Field rules are enforced by the domain so every violation is reported together.
type CreateCampaignRequest struct {
	Title        string          `json:"title" example:"Clean water for Riverside"`
	Description  string          `json:"description"`
	Category     string          `json:"category" example:"community"`
	Goal         decimal.Decimal `json:"goal" swaggertype:"string" example:"5000"`
	Duration     int             `json:"duration" example:"30"`
	CreatorName  string          `json:"creatorName"`
	CreatorEmail string          `json:"creatorEmail"`
	CreatorPhone string          `json:"creatorPhone"`
	Location     string          `json:"location"`
	Urgent       bool            `json:"urgent"`
}

// UpdateCampaignRequest carries admin edits. Absent fields are left alone.
// Status dispatches to approve, reject or cancel.
type UpdateCampaignRequest struct {
	Title       *string          `json:"title"`
	Description *string          `json:"description"`
	Category    *string          `json:"category"`
	Goal        *decimal.Decimal `json:"goal" swaggertype:"string"`
	Duration    *int             `json:"duration"`
	Location    *string          `json:"location"`
	Urgent      *bool            `json:"urgent"`
	Featured    *bool            `json:"featured"`
	Status      *string          `json:"status" example:"active"`
	Reason      *string          `json:"reason"`
	// Version, when sent, must match the stored version
	Version *int `json:"version"`
}

func (r UpdateCampaignRequest) params() campaign.UpdateParams {
	return campaign.UpdateParams{
		Title:        r.Title,
		Description:  r.Description,
		Category:     r.Category,
		Goal:         r.Goal,
		DurationDays: r.Duration,
		Location:     r.Location,
		Urgent:       r.Urgent,
		Featured:     r.Featured,
	}
}

// RejectCampaignRequest carries the optional rejection reason
type RejectCampaignRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

// CampaignResponse is the campaign as returned by the API
type CampaignResponse struct {
	ID              uuid.UUID       `json:"id"`
	Title           string          `json:"title"`
	Description     string          `json:"description"`
	Category        string          `json:"category"`
	CategoryLabel   string          `json:"categoryLabel"`
	Goal            decimal.Decimal `json:"goal" swaggertype:"string"`
	Collected       decimal.Decimal `json:"collected" swaggertype:"string"`
	DonorCount      int             `json:"donorCount"`
	Progress        decimal.Decimal `json:"progress" swaggertype:"string"`
	DaysLeft        int             `json:"daysLeft"`
	Duration        int             `json:"duration"`
	StartDate       time.Time       `json:"startDate"`
	EndDate         time.Time       `json:"endDate"`
	Status          string          `json:"status"`
	CreatorName     string          `json:"creatorName"`
	Location        string          `json:"location,omitempty"`
	Image           string          `json:"image,omitempty"`
	Documents       []string        `json:"documents"`
	Urgent          bool            `json:"urgent"`
	Featured        bool            `json:"featured"`
	RejectionReason *string         `json:"rejectionReason,omitempty"`
	Version         int             `json:"version"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// AdminCampaignResponse adds the creator contact details and review metadata
type AdminCampaignResponse struct {
	CampaignResponse
	CreatorEmail string     `json:"creatorEmail"`
	CreatorPhone string     `json:"creatorPhone,omitempty"`
	ApprovedBy   *uuid.UUID `json:"approvedBy,omitempty"`
	ApprovedAt   *time.Time `json:"approvedAt,omitempty"`
}

// ListCampaignsFilter narrows campaign listings
type ListCampaignsFilter struct {
	Page     int
	Limit    int
	Search   string
	Category string
	// Status defaults to active; "all" disables the filter
	Status   string
	Urgent   *bool
	Featured *bool
	Sort     string
}

// ToCampaignResponse converts a campaign for public display
func ToCampaignResponse(c *campaign.Campaign, now time.Time) CampaignResponse {
	docs := c.Documents
	if docs == nil {
		docs = []string{}
	}
	return CampaignResponse{
		ID:              c.ID,
		Title:           c.Title,
		Description:     c.Description,
		Category:        string(c.Category),
		CategoryLabel:   c.Category.Label(),
		Goal:            c.Goal,
		Collected:       c.Collected,
		DonorCount:      c.DonorCount,
		Progress:        c.Progress(),
		DaysLeft:        c.DaysLeft(now),
		Duration:        c.DurationDays,
		StartDate:       c.StartDate,
		EndDate:         c.EndDate,
		Status:          string(c.Status),
		CreatorName:     c.CreatorName,
		Location:        c.Location,
		Image:           c.ImageKey,
		Documents:       docs,
		Urgent:          c.Urgent,
		Featured:        c.Featured,
		RejectionReason: c.RejectionReason,
		Version:         c.GetVersion(),
		CreatedAt:       c.CreatedAt,
		UpdatedAt:       c.UpdatedAt,
	}
}

// ToAdminCampaignResponse converts a campaign for the admin console
func ToAdminCampaignResponse(c *campaign.Campaign, now time.Time) AdminCampaignResponse {
	return AdminCampaignResponse{
		CampaignResponse: ToCampaignResponse(c, now),
		CreatorEmail:     c.CreatorEmail,
		CreatorPhone:     c.CreatorPhone,
		ApprovedBy:       c.ApprovedBy,
		ApprovedAt:       c.ApprovedAt,
	}
}
