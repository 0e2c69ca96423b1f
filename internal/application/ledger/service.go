package ledger

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/donation/backend/internal/domain/campaign"
	"github.com/donation/backend/internal/domain/donation"
	"github.com/donation/backend/internal/domain/shared"
	"github.com/donation/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	// DefaultMaxRetries bounds how often a conflicting transaction is re-run
	DefaultMaxRetries = 5
	// DefaultRetryBaseDelay is the first backoff step
	DefaultRetryBaseDelay = 10 * time.Millisecond
	// DefaultIdempotencyTTL is how long an in-flight idempotency key is held
	DefaultIdempotencyTTL = 5 * time.Minute

	maxRetryDelay        = 500 * time.Millisecond
	idempotencyKeyPrefix = "donation:"
)

// ErrRetriesExhausted is returned when every attempt hit a transient conflict
var ErrRetriesExhausted = errors.New("donation ledger retries exhausted")

// Metrics receives ledger measurements
type Metrics interface {
	DonationRecorded(ctx context.Context, amount decimal.Decimal, method donation.PaymentMethod, status donation.PaymentStatus)
	DonationReplayed(ctx context.Context)
	LedgerRetried(ctx context.Context, operation string, attempt int)
	PaymentStatusChanged(ctx context.Context, from, to donation.PaymentStatus)
}

type noopMetrics struct{}

func (noopMetrics) DonationRecorded(context.Context, decimal.Decimal, donation.PaymentMethod, donation.PaymentStatus) {
}
func (noopMetrics) DonationReplayed(context.Context)           {}
func (noopMetrics) LedgerRetried(context.Context, string, int) {}
func (noopMetrics) PaymentStatusChanged(context.Context, donation.PaymentStatus, donation.PaymentStatus) {
}

// Config holds ledger settings
type Config struct {
	Policy         donation.Policy
	MaxRetries     int
	RetryBaseDelay time.Duration
	IdempotencyTTL time.Duration
}

// DefaultConfig returns the default ledger settings
func DefaultConfig() Config {
	return Config{
		Policy:         donation.DefaultPolicy(),
		MaxRetries:     DefaultMaxRetries,
		RetryBaseDelay: DefaultRetryBaseDelay,
		IdempotencyTTL: DefaultIdempotencyTTL,
	}
}

// Service records donations and moves their payment status. Every change to
// campaign aggregates happens in one transaction together with the donation
// row it belongs to.
type Service struct {
	campaignRepo   campaign.Repository
	donationRepo   donation.Repository
	txScope        TransactionScope
	idempotency    shared.IdempotencyStore
	eventPublisher shared.EventPublisher
	metrics        Metrics
	logger         *zap.Logger
	cfg            Config
	now            func() time.Time
	sleep          func(ctx context.Context, d time.Duration) error
}

// NewService creates a new ledger Service
func NewService(
	campaignRepo campaign.Repository,
	donationRepo donation.Repository,
	txScope TransactionScope,
	cfg Config,
	logger *zap.Logger,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryBaseDelay <= 0 {
		cfg.RetryBaseDelay = DefaultRetryBaseDelay
	}
	if cfg.IdempotencyTTL <= 0 {
		cfg.IdempotencyTTL = DefaultIdempotencyTTL
	}
	if cfg.Policy.MinAmount.IsZero() {
		cfg.Policy = donation.DefaultPolicy()
	}
	return &Service{
		campaignRepo: campaignRepo,
		donationRepo: donationRepo,
		txScope:      txScope,
		metrics:      noopMetrics{},
		logger:       logger,
		cfg:          cfg,
		now:          func() time.Time { return time.Now().UTC() },
		sleep:        sleepContext,
	}
}

// SetIdempotencyStore sets the store that rejects concurrent duplicate submissions
func (s *Service) SetIdempotencyStore(store shared.IdempotencyStore) {
	s.idempotency = store
}

// SetEventPublisher sets the publisher used after commit
func (s *Service) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// SetMetrics sets the metrics sink
func (s *Service) SetMetrics(m Metrics) {
	if m != nil {
		s.metrics = m
	}
}

// SetClock replaces the time source
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// RecordDonation validates and records a donation. Completed donations add
// their amount and one donor to the campaign, and flip it to completed when
// the goal is reached, all inside one transaction.
func (s *Service) RecordDonation(ctx context.Context, req RecordDonationRequest) (_ *RecordDonationResponse, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", "record_donation", telemetry.AttrCampaignID.String(req.CampaignID))
	defer func() {
		telemetry.RecordError(span, err)
		span.End()
	}()

	campaignID, err := uuid.Parse(req.CampaignID)
	if err != nil {
		return nil, shared.NewValidationError([]shared.FieldError{{Field: "campaign", Message: "Campaign id is invalid"}})
	}
	key := strings.TrimSpace(req.IdempotencyKey)

	if key != "" {
		if replay, err := s.findReplay(ctx, key, campaignID, req); replay != nil || err != nil {
			return replay, err
		}
		if s.idempotency != nil {
			claimed, err := s.idempotency.MarkProcessed(ctx, idempotencyKeyPrefix+key, s.cfg.IdempotencyTTL)
			switch {
			case err != nil:
				// the unique index on idempotency_key still stops a double insert
				s.logger.Warn("idempotency store unavailable", zap.Error(err))
			case !claimed:
				return nil, shared.NewConflictError("Duplicate submission in progress")
			default:
				defer s.releaseKey(key)
			}
		}
	}

	c, err := s.campaignRepo.FindByID(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if !c.AcceptsDonations(now) {
		return nil, errNotAccepting()
	}

	displayPublicly := true
	if req.DisplayPublicly != nil {
		displayPublicly = *req.DisplayPublicly
	}
	d, err := donation.NewDonation(donation.CreateParams{
		CampaignID:      campaignID,
		Name:            req.Name,
		Email:           req.Email,
		Phone:           req.Phone,
		Amount:          req.Amount,
		Message:         req.Message,
		DisplayPublicly: displayPublicly,
		Anonymous:       req.Anonymous,
		PaymentMethod:   req.PaymentMethod,
		PaymentStatus:   req.PaymentStatus,
		IdempotencyKey:  key,
	}, s.cfg.Policy, now)
	if err != nil {
		return nil, err
	}

	var updated *campaign.Campaign
	err = s.withRetry(ctx, "record_donation", func() error {
		var txErr error
		updated, txErr = s.recordOnce(ctx, d, now)
		return txErr
	})
	if err != nil {
		if key != "" && errors.Is(err, shared.ErrAlreadyExists) {
			// another request with the same key committed first
			if replay, rerr := s.findReplay(ctx, key, campaignID, req); replay != nil || rerr != nil {
				return replay, rerr
			}
		}
		return nil, err
	}

	s.metrics.DonationRecorded(ctx, d.Amount, d.PaymentMethod, d.PaymentStatus)
	s.logger.Info("donation recorded",
		zap.String("donation_id", d.ID.String()),
		zap.String("campaign_id", campaignID.String()),
		zap.String("transaction_id", d.TransactionID),
		zap.String("amount", d.Amount.String()),
		zap.String("payment_status", string(d.PaymentStatus)),
	)

	events := []shared.DomainEvent{donation.NewDonationRecordedEvent(d)}
	s.publish(ctx, append(events, updated.PullDomainEvents()...)...)

	return &RecordDonationResponse{
		Donation: ToDonationReceipt(d),
		Campaign: ToCampaignProgress(updated),
	}, nil
}

// recordOnce runs one attempt of the donation transaction and returns the
// campaign as it stands after the donation.
func (s *Service) recordOnce(ctx context.Context, d *donation.Donation, now time.Time) (*campaign.Campaign, error) {
	var updated *campaign.Campaign
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		campaigns := repos.CampaignRepo()

		if d.Counts() {
			ok, err := campaigns.IncrementFunds(ctx, d.CampaignID, d.Amount, now)
			if err != nil {
				return err
			}
			if !ok {
				return notAcceptingOrMissing(ctx, campaigns, d.CampaignID)
			}
		} else {
			c, err := campaigns.FindByID(ctx, d.CampaignID)
			if err != nil {
				return err
			}
			if !c.AcceptsDonations(now) {
				return errNotAccepting()
			}
		}

		if err := repos.DonationRepo().Create(ctx, d); err != nil {
			return err
		}

		c, err := campaigns.FindByID(ctx, d.CampaignID)
		if err != nil {
			return err
		}
		if d.Counts() {
			if err := completeIfFunded(ctx, campaigns, c, now); err != nil {
				return err
			}
		}
		updated = c
		return nil
	})
	return updated, err
}

// UpdatePaymentStatus moves a donation to a new payment status exactly once,
// applying or reversing its effect on the campaign in the same transaction.
func (s *Service) UpdatePaymentStatus(ctx context.Context, donationID uuid.UUID, req UpdatePaymentStatusRequest, adminID uuid.UUID) (_ *PaymentStatusResponse, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", "update_payment_status", telemetry.AttrDonationID.String(donationID.String()))
	defer func() {
		telemetry.RecordError(span, err)
		span.End()
	}()

	to := donation.PaymentStatus(strings.ToLower(strings.TrimSpace(req.PaymentStatus)))

	var (
		d    *donation.Donation
		c    *campaign.Campaign
		from donation.PaymentStatus
	)
	err = s.withRetry(ctx, "update_payment_status", func() error {
		now := s.now()
		return s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
			campaigns := repos.CampaignRepo()
			donations := repos.DonationRepo()

			var err error
			if d, err = donations.FindByID(ctx, donationID); err != nil {
				return err
			}
			if err := d.CanTransitionTo(to); err != nil {
				return err
			}
			from = d.PaymentStatus

			ok, err := donations.TransitionPaymentStatus(ctx, d.ID, from, to, now)
			if err != nil {
				return err
			}
			if !ok {
				// someone moved it first; the retry re-reads and re-checks
				return shared.ErrConcurrencyConflict
			}

			switch donation.AggregateDelta(from, to) {
			case 1:
				ok, err := campaigns.IncrementFunds(ctx, d.CampaignID, d.Amount, now)
				if err != nil {
					return err
				}
				if !ok {
					return notAcceptingOrMissing(ctx, campaigns, d.CampaignID)
				}
			case -1:
				ok, err := campaigns.DecrementFunds(ctx, d.CampaignID, d.Amount, now)
				if err != nil {
					return err
				}
				if !ok {
					return shared.NewInvalidStateError("Donation cannot be refunded because its campaign is no longer active")
				}
			}

			if c, err = campaigns.FindByID(ctx, d.CampaignID); err != nil {
				return err
			}
			if to == donation.PaymentStatusCompleted {
				if err := completeIfFunded(ctx, campaigns, c, now); err != nil {
					return err
				}
			}
			d.PaymentStatus = to
			d.UpdatedAt = now
			d.IncrementVersion()
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	s.metrics.PaymentStatusChanged(ctx, from, to)
	s.logger.Info("donation payment status changed",
		zap.String("donation_id", d.ID.String()),
		zap.String("campaign_id", d.CampaignID.String()),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
		zap.String("admin_id", adminID.String()),
	)

	events := []shared.DomainEvent{donation.NewPaymentStatusChangedEvent(d, from, to)}
	s.publish(ctx, append(events, c.PullDomainEvents()...)...)

	return &PaymentStatusResponse{
		Donation: ToDonationResponse(d),
		Campaign: ToCampaignProgress(c),
	}, nil
}

// GetPublic returns the public view of a donation. Donations that are not
// completed or whose donor opted out of display are not found publicly.
func (s *Service) GetPublic(ctx context.Context, id uuid.UUID) (*PublicDonationResponse, error) {
	d, err := s.donationRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !d.Counts() || !d.DisplayPublicly {
		return nil, shared.NewNotFoundError("Donation")
	}
	resp := ToPublicDonationResponse(d)
	return &resp, nil
}

// Get returns the full donation for admins
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*DonationResponse, error) {
	d, err := s.donationRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToDonationResponse(d)
	return &resp, nil
}

// ListPublic lists completed donations whose donors agreed to be shown
func (s *Service) ListPublic(ctx context.Context, f ListDonationsFilter) (shared.Paginated[PublicDonationResponse], error) {
	filter := toRepoFilter(f)
	filter.PublicOnly = true
	// donor contact fields are not searchable publicly
	filter.Search = ""
	items, total, err := s.donationRepo.FindAll(ctx, filter)
	if err != nil {
		return shared.Paginated[PublicDonationResponse]{}, err
	}
	return shared.NewPaginated(ToPublicDonationResponses(items), total, filter.Page, filter.PageSize), nil
}

// ListAdmin lists donations with donor contact details
func (s *Service) ListAdmin(ctx context.Context, f ListDonationsFilter) (shared.Paginated[DonationResponse], error) {
	filter := toRepoFilter(f)
	if status := strings.ToLower(strings.TrimSpace(f.PaymentStatus)); status != "" && status != "all" {
		ps := donation.PaymentStatus(status)
		if !ps.IsValid() {
			return shared.Paginated[DonationResponse]{}, shared.NewValidationError([]shared.FieldError{{
				Field:   "paymentStatus",
				Message: "Payment status must be one of: all, pending, completed, failed, refunded",
			}})
		}
		filter.PaymentStatuses = []donation.PaymentStatus{ps}
	}
	items, total, err := s.donationRepo.FindAll(ctx, filter)
	if err != nil {
		return shared.Paginated[DonationResponse]{}, err
	}
	return shared.NewPaginated(ToDonationResponses(items), total, filter.Page, filter.PageSize), nil
}

// RecentPublic returns the latest public donations, optionally for one campaign
func (s *Service) RecentPublic(ctx context.Context, campaignID *uuid.UUID, limit int) ([]PublicDonationResponse, error) {
	items, err := s.donationRepo.FindRecentPublic(ctx, campaignID, limit)
	if err != nil {
		return nil, err
	}
	return ToPublicDonationResponses(items), nil
}

func toRepoFilter(f ListDonationsFilter) donation.ListFilter {
	filter := donation.ListFilter{
		Filter: shared.Filter{
			Page:     f.Page,
			PageSize: f.Limit,
			Search:   strings.TrimSpace(f.Search),
			OrderBy:  f.OrderBy,
			OrderDir: f.OrderDir,
		},
		CampaignID: f.CampaignID,
	}
	filter.Normalize()
	return filter
}

// findReplay returns the receipt of an earlier donation recorded under key.
// The replayed request must name the same campaign, amount and donor email;
// anything else reusing the key is a conflict.
func (s *Service) findReplay(ctx context.Context, key string, campaignID uuid.UUID, req RecordDonationRequest) (*RecordDonationResponse, error) {
	existing, err := s.donationRepo.FindByIdempotencyKey(ctx, key)
	if err != nil {
		if shared.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	if !sameSubmission(existing, campaignID, req) {
		s.logger.Warn("idempotency key reused for a different donation",
			zap.String("donation_id", existing.ID.String()),
			zap.String("campaign_id", campaignID.String()),
		)
		return nil, shared.NewConflictError("Idempotency key was already used for a different donation")
	}
	c, err := s.campaignRepo.FindByID(ctx, existing.CampaignID)
	if err != nil {
		return nil, err
	}
	s.metrics.DonationReplayed(ctx)
	s.logger.Info("donation replayed",
		zap.String("donation_id", existing.ID.String()),
		zap.String("campaign_id", campaignID.String()),
	)
	return &RecordDonationResponse{
		Donation: ToDonationReceipt(existing),
		Campaign: ToCampaignProgress(c),
		Replayed: true,
	}, nil
}

func sameSubmission(existing *donation.Donation, campaignID uuid.UUID, req RecordDonationRequest) bool {
	return existing.CampaignID == campaignID &&
		existing.Amount.Equal(req.Amount) &&
		existing.Email == shared.NormalizeEmail(req.Email)
}

func (s *Service) releaseKey(key string) {
	// the request context may already be cancelled
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.idempotency.Release(ctx, idempotencyKeyPrefix+key); err != nil {
		s.logger.Warn("failed to release idempotency key", zap.Error(err))
	}
}

// withRetry runs fn until it succeeds, fails with a non-transient error or
// the retry budget is spent. Backoff doubles from the base delay with jitter.
func (s *Service) withRetry(ctx context.Context, operation string, fn func() error) error {
	var err error
	for attempt := 0; ; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if !shared.IsConcurrencyConflict(err) {
			return err
		}
		if attempt >= s.cfg.MaxRetries {
			s.logger.Error("ledger retries exhausted",
				zap.String("operation", operation),
				zap.Int("attempts", attempt+1),
				zap.Error(err),
			)
			return fmt.Errorf("%w after %d attempts: %v", ErrRetriesExhausted, attempt+1, err)
		}
		s.metrics.LedgerRetried(ctx, operation, attempt+1)
		telemetry.AddEvent(ctx, "ledger.retry", telemetry.AttrOperation.String(operation))
		s.logger.Debug("ledger transaction conflict, retrying",
			zap.String("operation", operation),
			zap.Int("attempt", attempt+1),
			zap.Error(err),
		)
		if serr := s.sleep(ctx, backoff(s.cfg.RetryBaseDelay, attempt)); serr != nil {
			return serr
		}
	}
}

func (s *Service) publish(ctx context.Context, events ...shared.DomainEvent) {
	if s.eventPublisher == nil || len(events) == 0 {
		return
	}
	if err := s.eventPublisher.Publish(ctx, events...); err != nil {
		s.logger.Warn("failed to publish ledger events", zap.Error(err))
	}
}

// completeIfFunded flips an active campaign to completed once its goal is met
func completeIfFunded(ctx context.Context, campaigns campaign.Repository, c *campaign.Campaign, now time.Time) error {
	if c.Status != campaign.StatusActive || campaign.Evaluate(c, now) != campaign.StatusCompleted {
		return nil
	}
	ok, err := campaigns.TransitionStatus(ctx, c.ID, campaign.StatusActive, campaign.StatusCompleted, now)
	if err != nil {
		return err
	}
	if ok {
		c.ApplyEvaluation(now)
	}
	return nil
}

// notAcceptingOrMissing explains why a guarded funds update matched no row
func notAcceptingOrMissing(ctx context.Context, campaigns campaign.Repository, id uuid.UUID) error {
	if _, err := campaigns.FindByID(ctx, id); err != nil {
		return err
	}
	return errNotAccepting()
}

func errNotAccepting() error {
	return shared.NewInvalidStateError("Campaign is not accepting donations")
}

func backoff(base time.Duration, attempt int) time.Duration {
	d := base << attempt
	if d <= 0 || d > maxRetryDelay {
		d = maxRetryDelay
	}
	return d/2 + rand.N(d/2+1)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
