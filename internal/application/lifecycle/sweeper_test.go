package lifecycle_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/donation/backend/internal/application/lifecycle"
	"github.com/donation/backend/internal/domain/campaign"
	"github.com/donation/backend/internal/domain/shared"
	"github.com/donation/backend/internal/infrastructure/config"
	"github.com/donation/backend/internal/infrastructure/persistence"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)

func newRepo(t *testing.T) *persistence.GormCampaignRepository {
	t.Helper()
	db, err := persistence.NewDatabase(&config.DatabaseConfig{
		Driver:     config.DriverSQLite,
		SQLitePath: filepath.Join(t.TempDir(), "sweep.db"),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate())
	t.Cleanup(func() { _ = db.Close() })
	return persistence.NewGormCampaignRepository(db.DB)
}

// seed stores a campaign created at created, active when approve is set
func seed(t *testing.T, repo campaign.Repository, created time.Time, duration int, approve bool) *campaign.Campaign {
	t.Helper()
	policy := campaign.DefaultPolicy()
	policy.AutoApprove = approve
	c, err := campaign.NewCampaign(campaign.CreateParams{
		Title:        "Library Books",
		Description:  "Restock the village library",
		Category:     "education",
		Goal:         decimal.NewFromInt(1000),
		DurationDays: duration,
		CreatorName:  "Mo",
		CreatorEmail: "mo@example.com",
	}, policy, created)
	require.NoError(t, err)
	require.NoError(t, repo.Create(context.Background(), c))
	return c
}

type recorder struct {
	events []shared.DomainEvent
}

func (r *recorder) Publish(_ context.Context, events ...shared.DomainEvent) error {
	r.events = append(r.events, events...)
	return nil
}

func status(t *testing.T, repo campaign.Repository, id uuid.UUID) campaign.Status {
	t.Helper()
	c, err := repo.FindByID(context.Background(), id)
	require.NoError(t, err)
	return c.Status
}

func TestSweep(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	lapsed := seed(t, repo, now.AddDate(0, 0, -40), 30, true)
	lapsedPending := seed(t, repo, now.AddDate(0, 0, -40), 30, false)
	running := seed(t, repo, now.AddDate(0, 0, -5), 30, true)
	funded := seed(t, repo, now.AddDate(0, 0, -5), 30, true)
	ok, err := repo.IncrementFunds(ctx, funded.ID, decimal.NewFromInt(1000), now)
	require.NoError(t, err)
	require.True(t, ok)
	cancelled := seed(t, repo, now.AddDate(0, 0, -40), 30, true)
	ok, err = repo.TransitionStatus(ctx, cancelled.ID, campaign.StatusActive, campaign.StatusCancelled, now)
	require.NoError(t, err)
	require.True(t, ok)

	events := &recorder{}
	// batches of two force several keyset pages
	sweeper := lifecycle.NewSweeper(repo, 2, nil)
	sweeper.SetEventPublisher(events)

	result, err := sweeper.Sweep(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.SweepResult{Scanned: 4, Completed: 1, Expired: 2}, result)
	assert.Len(t, events.events, 3)

	assert.Equal(t, campaign.StatusExpired, status(t, repo, lapsed.ID))
	assert.Equal(t, campaign.StatusExpired, status(t, repo, lapsedPending.ID))
	assert.Equal(t, campaign.StatusActive, status(t, repo, running.ID))
	assert.Equal(t, campaign.StatusCompleted, status(t, repo, funded.ID))
	assert.Equal(t, campaign.StatusCancelled, status(t, repo, cancelled.ID))

	again, err := sweeper.Sweep(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.SweepResult{Scanned: 1}, again)
}

// flakyRepo fails the status write for one campaign
type flakyRepo struct {
	campaign.Repository
	failID uuid.UUID
}

func (r *flakyRepo) TransitionStatus(ctx context.Context, id uuid.UUID, from, to campaign.Status, now time.Time) (bool, error) {
	if id == r.failID {
		return false, errors.New("connection reset")
	}
	return r.Repository.TransitionStatus(ctx, id, from, to, now)
}

func TestSweep_FailureDoesNotAbort(t *testing.T) {
	repo := newRepo(t)
	a := seed(t, repo, now.AddDate(0, 0, -40), 30, true)
	b := seed(t, repo, now.AddDate(0, 0, -40), 30, true)

	sweeper := lifecycle.NewSweeper(&flakyRepo{Repository: repo, failID: a.ID}, 10, nil)
	result, err := sweeper.Sweep(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Scanned)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, 1, result.Expired)

	assert.Equal(t, campaign.StatusActive, status(t, repo, a.ID))
	assert.Equal(t, campaign.StatusExpired, status(t, repo, b.ID))
}

func TestSweep_CancelledContext(t *testing.T) {
	repo := newRepo(t)
	seed(t, repo, now, 30, true)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := lifecycle.NewSweeper(repo, 10, nil).Sweep(ctx, now)
	assert.ErrorIs(t, err, context.Canceled)
}
