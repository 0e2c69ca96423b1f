package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/donation/backend/internal/domain/campaign"
	"github.com/donation/backend/internal/domain/donation"
	"github.com/donation/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDonation(t *testing.T, campaignID uuid.UUID, name string, amount int64, mutate ...func(*donation.CreateParams)) *donation.Donation {
	t.Helper()
	params := donation.CreateParams{
		CampaignID:      campaignID,
		Name:            name,
		Email:           name + "@example.com",
		Phone:           "555-0101",
		Amount:          decimal.NewFromInt(amount),
		DisplayPublicly: true,
		PaymentMethod:   "card",
	}
	for _, m := range mutate {
		m(&params)
	}
	d, err := donation.NewDonation(params, donation.DefaultPolicy(), testNow)
	require.NoError(t, err)
	return d
}

func seedCampaign(t *testing.T, db *Database) *campaign.Campaign {
	t.Helper()
	c := newTestCampaign(t, "Seeded")
	require.NoError(t, NewGormCampaignRepository(db.DB).Create(context.Background(), c))
	return c
}

func TestDonationRepository_CreateAndFind(t *testing.T) {
	db := newSQLiteDatabase(t)
	repo := NewGormDonationRepository(db.DB)
	ctx := context.Background()
	c := seedCampaign(t, db)

	d := newTestDonation(t, c.ID, "alex", 25, func(p *donation.CreateParams) {
		p.IdempotencyKey = "key-1"
		p.Message = "Good luck"
	})
	require.NoError(t, repo.Create(ctx, d))

	found, err := repo.FindByID(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, d.TransactionID, found.TransactionID)
	assert.Equal(t, "alex@example.com", found.Email)
	assert.True(t, found.Amount.Equal(decimal.NewFromInt(25)))
	assert.Equal(t, donation.PaymentMethodCard, found.PaymentMethod)
	assert.Equal(t, donation.PaymentStatusCompleted, found.PaymentStatus)

	byKey, err := repo.FindByIdempotencyKey(ctx, "key-1")
	require.NoError(t, err)
	assert.Equal(t, d.ID, byKey.ID)

	_, err = repo.FindByIdempotencyKey(ctx, "missing")
	assert.True(t, shared.IsNotFound(err))
}

func TestDonationRepository_UniqueIdempotencyKey(t *testing.T) {
	db := newSQLiteDatabase(t)
	repo := NewGormDonationRepository(db.DB)
	ctx := context.Background()
	c := seedCampaign(t, db)

	withKey := func(p *donation.CreateParams) { p.IdempotencyKey = "same" }
	require.NoError(t, repo.Create(ctx, newTestDonation(t, c.ID, "first", 10, withKey)))

	err := repo.Create(ctx, newTestDonation(t, c.ID, "second", 10, withKey))
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrAlreadyExists)

	// donations without a key never collide
	require.NoError(t, repo.Create(ctx, newTestDonation(t, c.ID, "third", 10)))
	require.NoError(t, repo.Create(ctx, newTestDonation(t, c.ID, "fourth", 10)))
}

func TestDonationRepository_FindAll(t *testing.T) {
	db := newSQLiteDatabase(t)
	repo := NewGormDonationRepository(db.DB)
	ctx := context.Background()
	c := seedCampaign(t, db)
	other := seedCampaign(t, db)

	require.NoError(t, repo.Create(ctx, newTestDonation(t, c.ID, "alice", 10)))
	require.NoError(t, repo.Create(ctx, newTestDonation(t, c.ID, "bob", 20, func(p *donation.CreateParams) { p.DisplayPublicly = false })))
	require.NoError(t, repo.Create(ctx, newTestDonation(t, c.ID, "carol", 30, func(p *donation.CreateParams) { p.PaymentStatus = "pending" })))
	require.NoError(t, repo.Create(ctx, newTestDonation(t, other.ID, "dave", 40)))

	t.Run("campaign filter", func(t *testing.T) {
		items, total, err := repo.FindAll(ctx, donation.ListFilter{Filter: shared.Filter{Page: 1, PageSize: 10}, CampaignID: &c.ID})
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
		assert.Len(t, items, 3)
	})

	t.Run("public only hides private and pending", func(t *testing.T) {
		items, total, err := repo.FindAll(ctx, donation.ListFilter{Filter: shared.Filter{Page: 1, PageSize: 10}, CampaignID: &c.ID, PublicOnly: true})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		assert.Equal(t, "alice", items[0].Name)
	})

	t.Run("payment status filter", func(t *testing.T) {
		_, total, err := repo.FindAll(ctx, donation.ListFilter{
			Filter:          shared.Filter{Page: 1, PageSize: 10},
			PaymentStatuses: []donation.PaymentStatus{donation.PaymentStatusPending},
		})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
	})

	t.Run("search over email", func(t *testing.T) {
		items, total, err := repo.FindAll(ctx, donation.ListFilter{Filter: shared.Filter{Page: 1, PageSize: 10, Search: "DAVE@"}})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		assert.Equal(t, other.ID, items[0].CampaignID)
	})

	t.Run("sort by amount ascending", func(t *testing.T) {
		items, _, err := repo.FindAll(ctx, donation.ListFilter{Filter: shared.Filter{Page: 1, PageSize: 10, OrderBy: "amount", OrderDir: "asc"}})
		require.NoError(t, err)
		require.Len(t, items, 4)
		assert.Equal(t, "alice", items[0].Name)
		assert.Equal(t, "dave", items[3].Name)
	})
}

func TestDonationRepository_FindRecentPublic(t *testing.T) {
	db := newSQLiteDatabase(t)
	repo := NewGormDonationRepository(db.DB)
	ctx := context.Background()
	c := seedCampaign(t, db)

	for i, name := range []string{"first", "second", "third"} {
		d := newTestDonation(t, c.ID, name, 5)
		d.CreatedAt = testNow.Add(time.Duration(i) * time.Minute)
		require.NoError(t, repo.Create(ctx, d))
	}
	require.NoError(t, repo.Create(ctx, newTestDonation(t, c.ID, "hidden", 5, func(p *donation.CreateParams) { p.DisplayPublicly = false })))

	items, err := repo.FindRecentPublic(ctx, &c.ID, 2)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "third", items[0].Name)
	assert.Equal(t, "second", items[1].Name)
}

func TestDonationRepository_TransitionPaymentStatus(t *testing.T) {
	db := newSQLiteDatabase(t)
	repo := NewGormDonationRepository(db.DB)
	ctx := context.Background()
	c := seedCampaign(t, db)

	d := newTestDonation(t, c.ID, "pat", 15, func(p *donation.CreateParams) { p.PaymentStatus = "pending" })
	require.NoError(t, repo.Create(ctx, d))

	ok, err := repo.TransitionPaymentStatus(ctx, d.ID, donation.PaymentStatusPending, donation.PaymentStatusCompleted, testNow)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.TransitionPaymentStatus(ctx, d.ID, donation.PaymentStatusPending, donation.PaymentStatusCompleted, testNow)
	require.NoError(t, err)
	assert.False(t, ok, "second transition from the same status must not apply")

	count, err := repo.CountCompletedByCampaign(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	failed := newTestDonation(t, c.ID, "lee", 5, func(p *donation.CreateParams) { p.PaymentStatus = "failed" })
	require.NoError(t, repo.Create(ctx, failed))

	require.NoError(t, repo.DeleteUnsettledByCampaign(ctx, c.ID))
	_, err = repo.FindByID(ctx, failed.ID)
	assert.True(t, shared.IsNotFound(err))
	_, err = repo.FindByID(ctx, d.ID)
	assert.NoError(t, err, "completed donations are never deleted")
}

func TestDonationRepository_KeepsFalseFlags(t *testing.T) {
	db := newSQLiteDatabase(t)
	repo := NewGormDonationRepository(db.DB)
	ctx := context.Background()
	c := seedCampaign(t, db)

	d := newTestDonation(t, c.ID, "quiet", 15, func(p *donation.CreateParams) { p.DisplayPublicly = false })
	require.NoError(t, repo.Create(ctx, d))

	found, err := repo.FindByID(ctx, d.ID)
	require.NoError(t, err)
	assert.False(t, found.DisplayPublicly, "an opted out donor must stay private")
	assert.False(t, found.Anonymous)

	_, total, err := repo.FindAll(ctx, donation.ListFilter{Filter: shared.Filter{Page: 1, PageSize: 10}, PublicOnly: true})
	require.NoError(t, err)
	assert.Zero(t, total)
}
