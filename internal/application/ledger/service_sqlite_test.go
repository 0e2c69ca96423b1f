package ledger_test

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/donation/backend/internal/application/ledger"
	"github.com/donation/backend/internal/domain/campaign"
	"github.com/donation/backend/internal/domain/donation"
	"github.com/donation/backend/internal/domain/shared"
	"github.com/donation/backend/internal/infrastructure/config"
	"github.com/donation/backend/internal/infrastructure/persistence"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)

type recordingPublisher struct {
	mu     sync.Mutex
	events []shared.DomainEvent
}

func (p *recordingPublisher) Publish(_ context.Context, events ...shared.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.EventType())
	}
	return out
}

type fixture struct {
	clock     time.Time
	svc       *ledger.Service
	campaigns *persistence.GormCampaignRepository
	donations *persistence.GormDonationRepository
	events    *recordingPublisher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := persistence.NewDatabase(&config.DatabaseConfig{
		Driver:     config.DriverSQLite,
		SQLitePath: filepath.Join(t.TempDir(), "ledger.db"),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate())
	t.Cleanup(func() { _ = db.Close() })

	f := &fixture{
		clock:     now,
		campaigns: persistence.NewGormCampaignRepository(db.DB),
		donations: persistence.NewGormDonationRepository(db.DB),
		events:    &recordingPublisher{},
	}
	f.svc = ledger.NewService(f.campaigns, f.donations, persistence.NewGormTransactionScope(db.DB), ledger.DefaultConfig(), nil)
	f.svc.SetClock(func() time.Time { return f.clock })
	f.svc.SetEventPublisher(f.events)
	return f
}

// seed stores an active campaign that started startedAgo before now
func (f *fixture) seed(t *testing.T, goal int64, duration int, startedAgo time.Duration) *campaign.Campaign {
	t.Helper()
	policy := campaign.DefaultPolicy()
	policy.AutoApprove = true
	c, err := campaign.NewCampaign(campaign.CreateParams{
		Title:        "Community Kitchen",
		Description:  "Hot meals every evening",
		Category:     "food",
		Goal:         decimal.NewFromInt(goal),
		DurationDays: duration,
		CreatorName:  "Sam Rivera",
		CreatorEmail: "sam@example.com",
	}, policy, now.Add(-startedAgo))
	require.NoError(t, err)
	require.NoError(t, f.campaigns.Create(context.Background(), c))
	return c
}

func donationRequest(campaignID uuid.UUID, amount string) ledger.RecordDonationRequest {
	return ledger.RecordDonationRequest{
		CampaignID:    campaignID.String(),
		Name:          "Robin Park",
		Email:         "robin@example.com",
		Phone:         "555-0199",
		Amount:        decimal.RequireFromString(amount),
		PaymentMethod: "card",
	}
}

func (f *fixture) reload(t *testing.T, id uuid.UUID) *campaign.Campaign {
	t.Helper()
	c, err := f.campaigns.FindByID(context.Background(), id)
	require.NoError(t, err)
	return c
}

func TestRecordDonation_ReachingGoalCompletesCampaign(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.seed(t, 10000, 30, 10*24*time.Hour)

	_, err := f.svc.RecordDonation(ctx, donationRequest(c.ID, "9000"))
	require.NoError(t, err)
	assert.Equal(t, campaign.StatusActive, f.reload(t, c.ID).Status)

	resp, err := f.svc.RecordDonation(ctx, donationRequest(c.ID, "1500"))
	require.NoError(t, err)
	assert.Equal(t, "completed", resp.Campaign.Status)
	assert.True(t, resp.Campaign.Collected.Equal(decimal.NewFromInt(10500)))
	assert.Equal(t, 2, resp.Campaign.DonorCount)
	assert.True(t, resp.Campaign.Progress.Equal(decimal.NewFromInt(100)))
	assert.Regexp(t, `^TXN\d+[A-Z0-9]{9}$`, resp.Donation.TransactionID)

	stored := f.reload(t, c.ID)
	assert.Equal(t, campaign.StatusCompleted, stored.Status)
	assert.True(t, stored.Collected.Equal(decimal.NewFromInt(10500)))
	assert.Equal(t, 2, stored.DonorCount)
	assert.Contains(t, f.events.types(), campaign.EventTypeCampaignStatusChanged)

	_, err = f.svc.RecordDonation(ctx, donationRequest(c.ID, "10"))
	require.Error(t, err)
	assert.True(t, shared.IsInvalidState(err))
	assert.True(t, f.reload(t, c.ID).Collected.Equal(decimal.NewFromInt(10500)))
}

func TestRecordDonation_PastEndDateRejectedBeforeSweep(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.seed(t, 1000, 30, 29*24*time.Hour)

	_, err := f.svc.RecordDonation(ctx, donationRequest(c.ID, "500"))
	require.NoError(t, err)

	// two days later the end date was yesterday but nothing swept the campaign
	f.clock = now.Add(48 * time.Hour)
	require.Equal(t, campaign.StatusActive, f.reload(t, c.ID).Status)

	_, err = f.svc.RecordDonation(ctx, donationRequest(c.ID, "100"))
	require.Error(t, err)
	assert.True(t, shared.IsInvalidState(err))
	assert.Equal(t, "Campaign is not accepting donations", err.Error())

	stored := f.reload(t, c.ID)
	assert.True(t, stored.Collected.Equal(decimal.NewFromInt(500)))
	assert.Equal(t, 1, stored.DonorCount)
}

func TestRecordDonation_NonActiveStatusesRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, status := range []campaign.Status{
		campaign.StatusCompleted,
		campaign.StatusCancelled,
		campaign.StatusRejected,
		campaign.StatusExpired,
	} {
		t.Run(string(status), func(t *testing.T) {
			c := f.seed(t, 1000, 30, 24*time.Hour)
			ok, err := f.campaigns.TransitionStatus(ctx, c.ID, campaign.StatusActive, status, now)
			require.NoError(t, err)
			require.True(t, ok)

			_, err = f.svc.RecordDonation(ctx, donationRequest(c.ID, "50"))
			assert.True(t, shared.IsInvalidState(err))
		})
	}

	t.Run("pending", func(t *testing.T) {
		c, err := campaign.NewCampaign(campaign.CreateParams{
			Title:        "Awaiting Review",
			Description:  "Not approved yet",
			Category:     "health",
			Goal:         decimal.NewFromInt(500),
			DurationDays: 10,
			CreatorName:  "Ari",
			CreatorEmail: "ari@example.com",
		}, campaign.DefaultPolicy(), now)
		require.NoError(t, err)
		require.NoError(t, f.campaigns.Create(ctx, c))

		_, err = f.svc.RecordDonation(ctx, donationRequest(c.ID, "50"))
		assert.True(t, shared.IsInvalidState(err))
	})

	t.Run("active accepts", func(t *testing.T) {
		c := f.seed(t, 1000, 30, 24*time.Hour)
		_, err := f.svc.RecordDonation(ctx, donationRequest(c.ID, "50"))
		assert.NoError(t, err)
	})
}

func TestRecordDonation_UnknownCampaign(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.RecordDonation(context.Background(), donationRequest(uuid.New(), "10"))
	assert.True(t, shared.IsNotFound(err))
}

func TestRecordDonation_ValidationListsEveryField(t *testing.T) {
	f := newFixture(t)
	c := f.seed(t, 1000, 30, 0)

	_, err := f.svc.RecordDonation(context.Background(), ledger.RecordDonationRequest{
		CampaignID: c.ID.String(),
		Email:      "not-an-email",
		Amount:     decimal.Zero,
	})
	require.Error(t, err)
	var de *shared.DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, shared.CodeValidation, de.Code)

	fields := make([]string, 0, len(de.Details))
	for _, fe := range de.Details {
		fields = append(fields, fe.Field)
	}
	assert.ElementsMatch(t, []string{"name", "email", "phone", "amount"}, fields)
	assert.True(t, f.reload(t, c.ID).Collected.IsZero())
}

func TestRecordDonation_IdempotencyKeyReplays(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.seed(t, 1000, 30, 0)

	req := donationRequest(c.ID, "75")
	req.IdempotencyKey = "checkout-42"

	first, err := f.svc.RecordDonation(ctx, req)
	require.NoError(t, err)
	assert.False(t, first.Replayed)

	second, err := f.svc.RecordDonation(ctx, req)
	require.NoError(t, err)
	assert.True(t, second.Replayed)
	assert.Equal(t, first.Donation.ID, second.Donation.ID)

	stored := f.reload(t, c.ID)
	assert.True(t, stored.Collected.Equal(decimal.NewFromInt(75)))
	assert.Equal(t, 1, stored.DonorCount)

	other := f.seed(t, 1000, 30, 0)
	req.CampaignID = other.ID.String()
	_, err = f.svc.RecordDonation(ctx, req)
	assert.ErrorIs(t, err, shared.ErrAlreadyExists)
}

func TestRecordDonation_KeyReuseByAnotherDonor(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.seed(t, 1000, 30, 0)

	alice := donationRequest(c.ID, "50")
	alice.Name = "Alice"
	alice.Email = "alice@private.example"
	alice.Phone = "555-1111"
	alice.IdempotencyKey = "order-1001"
	_, err := f.svc.RecordDonation(ctx, alice)
	require.NoError(t, err)

	t.Run("different email and amount conflict", func(t *testing.T) {
		other := donationRequest(c.ID, "1")
		other.Name = "Mallory"
		other.Email = "mallory@example.com"
		other.IdempotencyKey = "order-1001"
		resp, err := f.svc.RecordDonation(ctx, other)
		assert.Nil(t, resp)
		assert.ErrorIs(t, err, shared.ErrAlreadyExists)
	})

	t.Run("same amount under another email conflicts", func(t *testing.T) {
		other := donationRequest(c.ID, "50")
		other.Email = "someone@example.com"
		other.IdempotencyKey = "order-1001"
		_, err := f.svc.RecordDonation(ctx, other)
		assert.ErrorIs(t, err, shared.ErrAlreadyExists)
	})

	t.Run("genuine retry gets a receipt without contact details", func(t *testing.T) {
		retry := alice
		retry.Email = " ALICE@private.example "
		resp, err := f.svc.RecordDonation(ctx, retry)
		require.NoError(t, err)
		assert.True(t, resp.Replayed)

		body, err := json.Marshal(resp)
		require.NoError(t, err)
		assert.NotContains(t, strings.ToLower(string(body)), "alice@private.example")
		assert.NotContains(t, string(body), "555-1111")
	})

	stored := f.reload(t, c.ID)
	assert.True(t, stored.Collected.Equal(decimal.NewFromInt(50)))
	assert.Equal(t, 1, stored.DonorCount)
}

func TestRecordDonation_ConcurrentDonationsReconcile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.seed(t, 1_000_000, 30, 0)

	const n = 25
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			req := donationRequest(c.ID, "12.50")
			req.Email = fmt.Sprintf("donor%02d@example.com", i)
			_, err := f.svc.RecordDonation(ctx, req)
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	stored := f.reload(t, c.ID)
	assert.True(t, stored.Collected.Equal(decimal.RequireFromString("312.50")), stored.Collected.String())
	assert.Equal(t, n, stored.DonorCount)

	count, err := f.donations.CountCompletedByCampaign(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(n), count)
}

func TestUpdatePaymentStatus_AppliesEffectOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	adminID := uuid.New()
	c := f.seed(t, 1000, 30, 0)

	req := donationRequest(c.ID, "200")
	req.PaymentStatus = "pending"
	recorded, err := f.svc.RecordDonation(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "pending", recorded.Donation.PaymentStatus)
	assert.True(t, f.reload(t, c.ID).Collected.IsZero(), "pending donations do not count")

	completed, err := f.svc.UpdatePaymentStatus(ctx, recorded.Donation.ID, ledger.UpdatePaymentStatusRequest{PaymentStatus: "completed"}, adminID)
	require.NoError(t, err)
	assert.Equal(t, "completed", completed.Donation.PaymentStatus)
	assert.True(t, completed.Campaign.Collected.Equal(decimal.NewFromInt(200)))
	assert.Equal(t, 1, completed.Campaign.DonorCount)

	_, err = f.svc.UpdatePaymentStatus(ctx, recorded.Donation.ID, ledger.UpdatePaymentStatusRequest{PaymentStatus: "completed"}, adminID)
	var de *shared.DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, shared.CodeInvalidTransition, de.Code)

	refunded, err := f.svc.UpdatePaymentStatus(ctx, recorded.Donation.ID, ledger.UpdatePaymentStatusRequest{PaymentStatus: "refunded"}, adminID)
	require.NoError(t, err)
	assert.True(t, refunded.Campaign.Collected.IsZero())
	assert.Equal(t, 0, refunded.Campaign.DonorCount)

	_, err = f.svc.UpdatePaymentStatus(ctx, recorded.Donation.ID, ledger.UpdatePaymentStatusRequest{PaymentStatus: "completed"}, adminID)
	require.ErrorAs(t, err, &de)
	assert.Equal(t, shared.CodeInvalidTransition, de.Code)
}

func TestUpdatePaymentStatus_FailedLeavesAggregates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.seed(t, 1000, 30, 0)

	req := donationRequest(c.ID, "30")
	req.PaymentStatus = "pending"
	recorded, err := f.svc.RecordDonation(ctx, req)
	require.NoError(t, err)

	resp, err := f.svc.UpdatePaymentStatus(ctx, recorded.Donation.ID, ledger.UpdatePaymentStatusRequest{PaymentStatus: "failed"}, uuid.New())
	require.NoError(t, err)
	assert.Equal(t, "failed", resp.Donation.PaymentStatus)
	assert.True(t, f.reload(t, c.ID).Collected.IsZero())
}

func TestUpdatePaymentStatus_NoRefundOnCompletedCampaign(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.seed(t, 100, 30, 0)

	recorded, err := f.svc.RecordDonation(ctx, donationRequest(c.ID, "150"))
	require.NoError(t, err)
	require.Equal(t, "completed", recorded.Campaign.Status)

	_, err = f.svc.UpdatePaymentStatus(ctx, recorded.Donation.ID, ledger.UpdatePaymentStatusRequest{PaymentStatus: "refunded"}, uuid.New())
	require.Error(t, err)
	assert.True(t, shared.IsInvalidState(err))

	d, err := f.donations.FindByID(ctx, recorded.Donation.ID)
	require.NoError(t, err)
	assert.Equal(t, donation.PaymentStatusCompleted, d.PaymentStatus, "status change is rolled back")
	assert.True(t, f.reload(t, c.ID).Collected.Equal(decimal.NewFromInt(150)))
}

func TestListings_HidePrivateDonations(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.seed(t, 1000, 30, 0)

	visible := donationRequest(c.ID, "10")
	visible.Anonymous = true
	_, err := f.svc.RecordDonation(ctx, visible)
	require.NoError(t, err)

	hidden := donationRequest(c.ID, "20")
	off := false
	hidden.DisplayPublicly = &off
	hiddenResp, err := f.svc.RecordDonation(ctx, hidden)
	require.NoError(t, err)

	public, err := f.svc.ListPublic(ctx, ledger.ListDonationsFilter{Page: 1, Limit: 10, CampaignID: &c.ID})
	require.NoError(t, err)
	require.Len(t, public.Items, 1)
	assert.Equal(t, donation.AnonymousName, public.Items[0].Name)

	_, err = f.svc.GetPublic(ctx, hiddenResp.Donation.ID)
	assert.True(t, shared.IsNotFound(err))

	admin, err := f.svc.ListAdmin(ctx, ledger.ListDonationsFilter{Page: 1, Limit: 10, PaymentStatus: "all", Search: "robin@"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), admin.Total)
	assert.Equal(t, "robin@example.com", admin.Items[0].Email)

	_, err = f.svc.ListAdmin(ctx, ledger.ListDonationsFilter{PaymentStatus: "bogus"})
	var de *shared.DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, shared.CodeValidation, de.Code)
}
