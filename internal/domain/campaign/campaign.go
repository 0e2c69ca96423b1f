package campaign

import (
	"fmt"
	"strings"
	"time"

	"github.com/donation/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Field length limits
const (
	MaxTitleLength       = 200
	MaxDescriptionLength = 5000
	MaxCreatorNameLength = 100
	MaxLocationLength    = 200
	MaxDocuments         = 10
)

// DefaultRejectionReason is stored when an admin rejects without a reason
const DefaultRejectionReason = "Campaign does not meet our guidelines"

// Policy holds the configurable creation rules
type Policy struct {
	MinGoal         decimal.Decimal
	MaxDurationDays int
	// AutoApprove creates campaigns directly in active status
	AutoApprove bool
}

// DefaultPolicy returns the default creation rules
func DefaultPolicy() Policy {
	return Policy{
		MinGoal:         decimal.NewFromInt(100),
		MaxDurationDays: 365,
		AutoApprove:     false,
	}
}

// CreateParams carries the fields supplied by a campaign creator
type CreateParams struct {
	Title        string
	Description  string
	Category     string
	Goal         decimal.Decimal
	DurationDays int
	CreatorName  string
	CreatorEmail string
	CreatorPhone string
	Location     string
	Urgent       bool
}

// UpdateParams carries admin edits; nil fields are left unchanged
type UpdateParams struct {
	Title        *string
	Description  *string
	Category     *string
	Goal         *decimal.Decimal
	DurationDays *int
	Location     *string
	Urgent       *bool
	Featured     *bool
}

// IsEmpty reports whether no field is set
func (p UpdateParams) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.Category == nil && p.Goal == nil &&
		p.DurationDays == nil && p.Location == nil && p.Urgent == nil && p.Featured == nil
}

// Campaign is the aggregate root of a fundraising campaign.
// Collected and DonorCount are owned by the donation ledger and are never
// written through this type's mutators.
type Campaign struct {
	shared.BaseAggregateRoot
	Title           string
	Description     string
	Category        Category
	Goal            decimal.Decimal
	Collected       decimal.Decimal
	DonorCount      int
	StartDate       time.Time
	DurationDays    int
	EndDate         time.Time
	Status          Status
	CreatorName     string
	CreatorEmail    string
	CreatorPhone    string
	Location        string
	ImageKey        string
	Documents       []string
	Urgent          bool
	Featured        bool
	ApprovedBy      *uuid.UUID
	ApprovedAt      *time.Time
	RejectionReason *string
}

// ComputeEndDate returns the deadline of a campaign started at start that
// runs for durationDays.
func ComputeEndDate(start time.Time, durationDays int) time.Time {
	return start.AddDate(0, 0, durationDays)
}

// NewCampaign validates params and creates a campaign. Every violated field
// is reported in a single validation error.
func NewCampaign(params CreateParams, policy Policy, now time.Time) (*Campaign, error) {
	var verrs shared.ValidationErrors

	title := strings.TrimSpace(params.Title)
	description := strings.TrimSpace(params.Description)
	creatorName := strings.TrimSpace(params.CreatorName)
	creatorEmail := shared.NormalizeEmail(params.CreatorEmail)
	location := strings.TrimSpace(params.Location)

	validateTitle(&verrs, title)
	validateDescription(&verrs, description)
	category, ok := ParseCategory(params.Category)
	if !ok {
		verrs.Add("category", categoryMessage())
	}
	validateGoal(&verrs, params.Goal, policy)
	validateDuration(&verrs, params.DurationDays, policy)

	if creatorName == "" {
		verrs.Add("creatorName", "Creator name is required")
	} else if len(creatorName) > MaxCreatorNameLength {
		verrs.Add("creatorName", fmt.Sprintf("Creator name cannot exceed %d characters", MaxCreatorNameLength))
	}
	if !shared.IsValidEmail(creatorEmail) {
		verrs.Add("creatorEmail", "Please provide a valid email")
	}
	if len(location) > MaxLocationLength {
		verrs.Add("location", fmt.Sprintf("Location cannot exceed %d characters", MaxLocationLength))
	}

	if err := verrs.Err(); err != nil {
		return nil, err
	}

	c := &Campaign{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Title:             title,
		Description:       description,
		Category:          category,
		Goal:              params.Goal,
		Collected:         decimal.Zero,
		DonorCount:        0,
		StartDate:         now,
		DurationDays:      params.DurationDays,
		EndDate:           ComputeEndDate(now, params.DurationDays),
		Status:            StatusPending,
		CreatorName:       creatorName,
		CreatorEmail:      creatorEmail,
		CreatorPhone:      strings.TrimSpace(params.CreatorPhone),
		Location:          location,
		Urgent:            params.Urgent,
	}
	c.CreatedAt = now
	c.UpdatedAt = now
	if policy.AutoApprove {
		c.Status = StatusActive
	}

	c.AddDomainEvent(NewCampaignCreatedEvent(c))
	return c, nil
}

// AcceptsDonations reports whether a donation may be applied at now.
// Both the stored status and the deadline are checked, so a campaign whose
// expiry has not been swept yet still refuses funds.
func (c *Campaign) AcceptsDonations(now time.Time) bool {
	return c.Status == StatusActive && !now.After(c.EndDate)
}

// Approve moves a pending campaign to active
func (c *Campaign) Approve(adminID uuid.UUID, now time.Time) error {
	if c.Status != StatusPending {
		return shared.NewInvalidTransitionError(
			fmt.Sprintf("Only pending campaigns can be approved, current status is %s", c.Status))
	}
	if now.After(c.EndDate) {
		return shared.NewInvalidTransitionError("Campaign end date has already passed")
	}
	c.Status = StatusActive
	c.ApprovedBy = &adminID
	c.ApprovedAt = &now
	c.touch(now)
	c.AddDomainEvent(NewCampaignApprovedEvent(c, adminID))
	return nil
}

// Reject moves a pending campaign to rejected and stores the reason
func (c *Campaign) Reject(adminID uuid.UUID, reason string, now time.Time) error {
	if c.Status != StatusPending {
		return shared.NewInvalidTransitionError(
			fmt.Sprintf("Only pending campaigns can be rejected, current status is %s", c.Status))
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = DefaultRejectionReason
	}
	c.Status = StatusRejected
	c.RejectionReason = &reason
	c.touch(now)
	c.AddDomainEvent(NewCampaignRejectedEvent(c, adminID, reason))
	return nil
}

// Cancel stops a pending or active campaign
func (c *Campaign) Cancel(adminID uuid.UUID, now time.Time) error {
	if c.Status != StatusPending && c.Status != StatusActive {
		return shared.NewInvalidTransitionError(
			fmt.Sprintf("Only pending or active campaigns can be cancelled, current status is %s", c.Status))
	}
	c.Status = StatusCancelled
	c.touch(now)
	c.AddDomainEvent(NewCampaignCancelledEvent(c, adminID))
	return nil
}

// ApplyEvaluation persists the outcome of Evaluate on the aggregate.
// It returns true when the status changed.
func (c *Campaign) ApplyEvaluation(now time.Time) bool {
	next := Evaluate(c, now)
	if next == c.Status {
		return false
	}
	prev := c.Status
	c.Status = next
	c.touch(now)
	c.AddDomainEvent(NewCampaignStatusChangedEvent(c, prev, next))
	return true
}

// Update applies admin edits. The end date is only recomputed when the
// duration is changed explicitly, and never for terminal campaigns.
func (c *Campaign) Update(params UpdateParams, policy Policy, now time.Time) error {
	var verrs shared.ValidationErrors

	if params.Title != nil {
		validateTitle(&verrs, strings.TrimSpace(*params.Title))
	}
	if params.Description != nil {
		validateDescription(&verrs, strings.TrimSpace(*params.Description))
	}
	var category Category
	if params.Category != nil {
		var ok bool
		if category, ok = ParseCategory(*params.Category); !ok {
			verrs.Add("category", categoryMessage())
		}
	}
	if params.Goal != nil {
		validateGoal(&verrs, *params.Goal, policy)
		if c.Status == StatusActive && params.Goal.LessThan(c.Collected) {
			verrs.Add("goal", "Goal cannot be lower than the amount already collected")
		}
	}
	var newEnd time.Time
	if params.DurationDays != nil {
		validateDuration(&verrs, *params.DurationDays, policy)
		newEnd = ComputeEndDate(c.StartDate, *params.DurationDays)
		if !newEnd.After(now) {
			verrs.Add("duration", "Duration would place the end date in the past")
		}
	}
	if params.Location != nil && len(strings.TrimSpace(*params.Location)) > MaxLocationLength {
		verrs.Add("location", fmt.Sprintf("Location cannot exceed %d characters", MaxLocationLength))
	}
	if err := verrs.Err(); err != nil {
		return err
	}

	if c.Status.IsTerminal() && (params.Goal != nil || params.DurationDays != nil) {
		return shared.NewInvalidStateError(
			fmt.Sprintf("Goal and duration cannot be changed on a %s campaign", c.Status))
	}

	if params.Title != nil {
		c.Title = strings.TrimSpace(*params.Title)
	}
	if params.Description != nil {
		c.Description = strings.TrimSpace(*params.Description)
	}
	if params.Category != nil {
		c.Category = category
	}
	if params.Goal != nil {
		c.Goal = *params.Goal
	}
	if params.DurationDays != nil {
		c.DurationDays = *params.DurationDays
		c.EndDate = newEnd
	}
	if params.Location != nil {
		c.Location = strings.TrimSpace(*params.Location)
	}
	if params.Urgent != nil {
		c.Urgent = *params.Urgent
	}
	if params.Featured != nil {
		c.Featured = *params.Featured
	}
	c.touch(now)
	c.AddDomainEvent(NewCampaignUpdatedEvent(c))
	return nil
}

// SetImage records the object key of the campaign cover image
func (c *Campaign) SetImage(key string, now time.Time) {
	c.ImageKey = key
	c.touch(now)
}

// AddDocument attaches a supporting document object key
func (c *Campaign) AddDocument(key string, now time.Time) error {
	for _, d := range c.Documents {
		if d == key {
			return nil
		}
	}
	if len(c.Documents) >= MaxDocuments {
		return shared.NewInvalidStateError(fmt.Sprintf("A campaign can have at most %d documents", MaxDocuments))
	}
	c.Documents = append(c.Documents, key)
	c.touch(now)
	return nil
}

// Progress returns collected/goal as a percentage capped at 100
func (c *Campaign) Progress() decimal.Decimal {
	if !c.Goal.IsPositive() {
		return decimal.Zero
	}
	p := c.Collected.Div(c.Goal).Mul(decimal.NewFromInt(100))
	if p.GreaterThan(decimal.NewFromInt(100)) {
		p = decimal.NewFromInt(100)
	}
	return p.Round(2)
}

// DaysLeft returns the whole days remaining until the end date, rounded up
func (c *Campaign) DaysLeft(now time.Time) int {
	remaining := c.EndDate.Sub(now)
	if remaining <= 0 {
		return 0
	}
	days := int(remaining / (24 * time.Hour))
	if remaining%(24*time.Hour) > 0 {
		days++
	}
	return days
}

// touch bumps the modification metadata used for optimistic locking
func (c *Campaign) touch(now time.Time) {
	c.UpdatedAt = now
	c.IncrementVersion()
}

func validateTitle(verrs *shared.ValidationErrors, title string) {
	if title == "" {
		verrs.Add("title", "Title is required")
	} else if len(title) > MaxTitleLength {
		verrs.Add("title", fmt.Sprintf("Title cannot exceed %d characters", MaxTitleLength))
	}
}

func validateDescription(verrs *shared.ValidationErrors, description string) {
	if description == "" {
		verrs.Add("description", "Description is required")
	} else if len(description) > MaxDescriptionLength {
		verrs.Add("description", fmt.Sprintf("Description cannot exceed %d characters", MaxDescriptionLength))
	}
}

func validateGoal(verrs *shared.ValidationErrors, goal decimal.Decimal, policy Policy) {
	switch {
	case goal.LessThan(policy.MinGoal):
		verrs.Add("goal", fmt.Sprintf("Goal must be at least %s", policy.MinGoal.String()))
	case !goal.Equal(goal.Round(2)):
		verrs.Add("goal", "Goal cannot have more than 2 decimal places")
	}
}

func validateDuration(verrs *shared.ValidationErrors, days int, policy Policy) {
	if days < 1 {
		verrs.Add("duration", "Duration must be at least 1 day")
	} else if policy.MaxDurationDays > 0 && days > policy.MaxDurationDays {
		verrs.Add("duration", fmt.Sprintf("Duration cannot exceed %d days", policy.MaxDurationDays))
	}
}

func categoryMessage() string {
	names := make([]string, 0, len(AllCategories))
	for _, c := range AllCategories {
		names = append(names, string(c))
	}
	return "Category must be one of: " + strings.Join(names, ", ")
}
