package campaign

import (
	"context"
	"strings"
	"time"

	"github.com/donation/backend/internal/application/ledger"
	"github.com/donation/backend/internal/domain/campaign"
	"github.com/donation/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Service manages campaign creation, review and admin edits.
// Collected and donor counts are only ever changed by the ledger.
type Service struct {
	campaignRepo   campaign.Repository
	txScope        ledger.TransactionScope
	eventPublisher shared.EventPublisher
	policy         campaign.Policy
	logger         *zap.Logger
	now            func() time.Time
}

// NewService creates a new campaign Service
func NewService(
	campaignRepo campaign.Repository,
	txScope ledger.TransactionScope,
	policy campaign.Policy,
	logger *zap.Logger,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		campaignRepo: campaignRepo,
		txScope:      txScope,
		policy:       policy,
		logger:       logger,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// SetEventPublisher sets the event publisher for campaign events
func (s *Service) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// SetClock replaces the wall clock, used by tests
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// Now returns the service clock reading
func (s *Service) Now() time.Time {
	return s.now()
}

// Create validates and stores a new campaign. It starts pending unless
// auto approval is configured.
func (s *Service) Create(ctx context.Context, req CreateCampaignRequest) (*CampaignResponse, error) {
	now := s.now()
	c, err := campaign.NewCampaign(campaign.CreateParams{
		Title:        req.Title,
		Description:  req.Description,
		Category:     req.Category,
		Goal:         req.Goal,
		DurationDays: req.Duration,
		CreatorName:  req.CreatorName,
		CreatorEmail: req.CreatorEmail,
		CreatorPhone: req.CreatorPhone,
		Location:     req.Location,
		Urgent:       req.Urgent,
	}, s.policy, now)
	if err != nil {
		return nil, err
	}

	if err := s.campaignRepo.Create(ctx, c); err != nil {
		return nil, err
	}

	s.logger.Info("campaign created",
		zap.String("campaign_id", c.ID.String()),
		zap.String("category", string(c.Category)),
		zap.String("status", string(c.Status)),
	)
	s.publish(ctx, c)

	resp := ToCampaignResponse(c, now)
	return &resp, nil
}

// Get returns one campaign
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*CampaignResponse, error) {
	c, err := s.campaignRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToCampaignResponse(c, s.now())
	return &resp, nil
}

// GetAdmin returns one campaign with creator contact details
func (s *Service) GetAdmin(ctx context.Context, id uuid.UUID) (*AdminCampaignResponse, error) {
	c, err := s.campaignRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToAdminCampaignResponse(c, s.now())
	return &resp, nil
}

// List returns the public campaign listing. Without a status filter only
// active campaigns are shown.
func (s *Service) List(ctx context.Context, f ListCampaignsFilter) (shared.Paginated[CampaignResponse], error) {
	if f.Status == "" {
		f.Status = string(campaign.StatusActive)
	}
	filter, err := toRepoFilter(f)
	if err != nil {
		return shared.Paginated[CampaignResponse]{}, err
	}
	items, total, err := s.campaignRepo.FindAll(ctx, filter)
	if err != nil {
		return shared.Paginated[CampaignResponse]{}, err
	}
	now := s.now()
	out := make([]CampaignResponse, len(items))
	for i := range items {
		out[i] = ToCampaignResponse(&items[i], now)
	}
	return shared.NewPaginated(out, total, filter.Page, filter.PageSize), nil
}

// ListAdmin returns campaigns in every status unless one is requested
func (s *Service) ListAdmin(ctx context.Context, f ListCampaignsFilter) (shared.Paginated[AdminCampaignResponse], error) {
	if f.Status == "" {
		f.Status = "all"
	}
	filter, err := toRepoFilter(f)
	if err != nil {
		return shared.Paginated[AdminCampaignResponse]{}, err
	}
	items, total, err := s.campaignRepo.FindAll(ctx, filter)
	if err != nil {
		return shared.Paginated[AdminCampaignResponse]{}, err
	}
	now := s.now()
	out := make([]AdminCampaignResponse, len(items))
	for i := range items {
		out[i] = ToAdminCampaignResponse(&items[i], now)
	}
	return shared.NewPaginated(out, total, filter.Page, filter.PageSize), nil
}

// Update applies admin edits and an optional status change in one
// versioned write.
func (s *Service) Update(ctx context.Context, id uuid.UUID, req UpdateCampaignRequest, adminID uuid.UUID) (*AdminCampaignResponse, error) {
	params := req.params()
	if params.IsEmpty() && req.Status == nil {
		return nil, shared.NewValidationError([]shared.FieldError{{Field: "body", Message: "No fields to update"}})
	}

	c, err := s.campaignRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Version != nil && *req.Version != c.GetVersion() {
		return nil, shared.ErrConcurrencyConflict
	}
	expected := c.GetVersion()
	now := s.now()

	if !params.IsEmpty() {
		if err := c.Update(params, s.policy, now); err != nil {
			return nil, err
		}
	}
	if req.Status != nil {
		reason := ""
		if req.Reason != nil {
			reason = *req.Reason
		}
		if err := applyStatus(c, *req.Status, reason, adminID, now); err != nil {
			return nil, err
		}
	}
	// an edit can make a campaign funded or push it past its deadline
	if !c.Status.IsTerminal() {
		c.ApplyEvaluation(now)
	}

	if err := s.campaignRepo.Update(ctx, c, expected); err != nil {
		return nil, err
	}

	s.logger.Info("campaign updated",
		zap.String("campaign_id", c.ID.String()),
		zap.String("admin_id", adminID.String()),
		zap.String("status", string(c.Status)),
		zap.Int("version", c.GetVersion()),
	)
	s.publish(ctx, c)

	resp := ToAdminCampaignResponse(c, now)
	return &resp, nil
}

// Approve activates a pending campaign
func (s *Service) Approve(ctx context.Context, id, adminID uuid.UUID) (*AdminCampaignResponse, error) {
	return s.review(ctx, id, adminID, "approved", func(c *campaign.Campaign, now time.Time) error {
		return c.Approve(adminID, now)
	})
}

// Reject closes a pending campaign with a reason
func (s *Service) Reject(ctx context.Context, id, adminID uuid.UUID, reason string) (*AdminCampaignResponse, error) {
	return s.review(ctx, id, adminID, "rejected", func(c *campaign.Campaign, now time.Time) error {
		return c.Reject(adminID, reason, now)
	})
}

// Cancel stops a pending or active campaign
func (s *Service) Cancel(ctx context.Context, id, adminID uuid.UUID) (*AdminCampaignResponse, error) {
	return s.review(ctx, id, adminID, "cancelled", func(c *campaign.Campaign, now time.Time) error {
		return c.Cancel(adminID, now)
	})
}

func (s *Service) review(ctx context.Context, id, adminID uuid.UUID, action string, apply func(*campaign.Campaign, time.Time) error) (*AdminCampaignResponse, error) {
	c, err := s.campaignRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	expected := c.GetVersion()
	now := s.now()
	if err := apply(c, now); err != nil {
		return nil, err
	}
	if err := s.campaignRepo.Update(ctx, c, expected); err != nil {
		return nil, err
	}

	s.logger.Info("campaign "+action,
		zap.String("campaign_id", c.ID.String()),
		zap.String("admin_id", adminID.String()),
	)
	s.publish(ctx, c)

	resp := ToAdminCampaignResponse(c, now)
	return &resp, nil
}

// Delete removes a campaign that has no completed donations, together
// with its pending, failed and refunded donations. The campaign row stays
// locked from the check to the delete so no donation can complete in between.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	var deleted *campaign.Campaign
	err := s.txScope.Execute(ctx, func(repos ledger.TransactionalRepositories) error {
		c, err := repos.CampaignRepo().FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		completed, err := repos.DonationRepo().CountCompletedByCampaign(ctx, id)
		if err != nil {
			return err
		}
		if completed > 0 {
			return shared.NewConflictError("Campaign has completed donations and cannot be deleted")
		}
		if err := repos.DonationRepo().DeleteUnsettledByCampaign(ctx, id); err != nil {
			return err
		}
		if err := repos.CampaignRepo().Delete(ctx, id); err != nil {
			return err
		}
		deleted = c
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("campaign deleted", zap.String("campaign_id", id.String()))
	deleted.AddDomainEvent(campaign.NewCampaignDeletedEvent(deleted))
	s.publish(ctx, deleted)
	return nil
}

func (s *Service) publish(ctx context.Context, c *campaign.Campaign) {
	events := c.PullDomainEvents()
	if s.eventPublisher == nil || len(events) == 0 {
		return
	}
	if err := s.eventPublisher.Publish(ctx, events...); err != nil {
		s.logger.Warn("failed to publish campaign events",
			zap.String("campaign_id", c.ID.String()),
			zap.Error(err),
		)
	}
}

// applyStatus maps a requested status onto the review transitions
func applyStatus(c *campaign.Campaign, status, reason string, adminID uuid.UUID, now time.Time) error {
	switch campaign.Status(strings.ToLower(strings.TrimSpace(status))) {
	case campaign.StatusActive:
		return c.Approve(adminID, now)
	case campaign.StatusRejected:
		return c.Reject(adminID, reason, now)
	case campaign.StatusCancelled:
		return c.Cancel(adminID, now)
	}
	return shared.NewInvalidTransitionError("Status can only be changed to active, rejected or cancelled")
}

func toRepoFilter(f ListCampaignsFilter) (campaign.ListFilter, error) {
	var verrs shared.ValidationErrors
	filter := campaign.ListFilter{
		Filter: shared.Filter{
			Page:     f.Page,
			PageSize: f.Limit,
			Search:   strings.TrimSpace(f.Search),
		},
		Urgent:   f.Urgent,
		Featured: f.Featured,
		Sort:     campaign.ParseSortMode(f.Sort),
	}
	filter.Normalize()

	if status := strings.ToLower(strings.TrimSpace(f.Status)); status != "" && status != "all" {
		st := campaign.Status(status)
		if !st.IsValid() {
			verrs.Add("status", "Unknown campaign status")
		}
		filter.Statuses = []campaign.Status{st}
	}
	if cat := strings.TrimSpace(f.Category); cat != "" && cat != "all" {
		parsed, ok := campaign.ParseCategory(cat)
		if !ok {
			verrs.Add("category", "Unknown campaign category")
		}
		filter.Category = &parsed
	}
	return filter, verrs.Err()
}
