package integration

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	campaignapp "github.com/donation/backend/internal/application/campaign"
	identityapp "github.com/donation/backend/internal/application/identity"
	"github.com/donation/backend/internal/application/ledger"
	"github.com/donation/backend/internal/application/lifecycle"
	reportapp "github.com/donation/backend/internal/application/report"
	"github.com/donation/backend/internal/domain/campaign"
	"github.com/donation/backend/internal/infrastructure/auth"
	"github.com/donation/backend/internal/infrastructure/cache"
	"github.com/donation/backend/internal/infrastructure/config"
	"github.com/donation/backend/internal/infrastructure/persistence"
	"github.com/donation/backend/internal/infrastructure/scheduler"
	"github.com/donation/backend/internal/interfaces/http/handler"
	"github.com/donation/backend/internal/interfaces/http/router"
	"github.com/donation/backend/tests/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/crypto/bcrypt"
)

const (
	rootEmail    = "root@example.org"
	rootPassword = "integration-secret-1"
)

type apiServer struct {
	db     *TestDB
	client *testutil.APIClient
}

func newAPIServer(t *testing.T) *apiServer {
	t.Helper()
	db := NewTestDB(t)
	log := zaptest.NewLogger(t)

	cfg := &config.Config{
		App: config.AppConfig{Name: "donation-integration", Env: "test"},
		Auth: config.AuthConfig{
			JWTSecret:         "integration-secret-at-least-32-chars",
			TokenTTL:          time.Hour,
			Issuer:            "donation-integration",
			MaxFailedAttempts: 3,
			LockoutDuration:   time.Hour,
			BcryptCost:        bcrypt.MinCost,
		},
		HTTP: config.HTTPConfig{MaxBodySize: 1 << 20},
	}

	campaignRepo := persistence.NewGormCampaignRepository(db.DB)
	donationRepo := persistence.NewGormDonationRepository(db.DB)
	txScope := persistence.NewGormTransactionScope(db.DB)
	stores := cache.NewStoreFactory(config.RedisConfig{}).CreateInMemoryStores()
	t.Cleanup(func() { _ = stores.Close() })

	jwtService, err := auth.NewJWTService(cfg.Auth)
	require.NoError(t, err)
	authService := identityapp.NewAuthService(persistence.NewGormAdminRepository(db.DB), jwtService,
		stores.TokenBlacklist, identityapp.AuthServiceConfigFrom(cfg.Auth), log)
	_, err = authService.Bootstrap(context.Background(), identityapp.CreateAdminRequest{
		Email: rootEmail, Name: "Root", Password: rootPassword,
	})
	require.NoError(t, err)

	ledgerService := ledger.NewService(campaignRepo, donationRepo, txScope, ledger.DefaultConfig(), log)
	ledgerService.SetIdempotencyStore(stores.Idempotency)
	campaignService := campaignapp.NewService(campaignRepo, txScope, campaign.DefaultPolicy(), log)
	reportService := reportapp.NewService(persistence.NewGormReportRepository(db.DB), campaignRepo, donationRepo, log)
	trigger := scheduler.NewSweepTrigger(scheduler.SweepTriggerConfig{}, lifecycle.NewSweeper(campaignRepo, 50, log), log)

	engine := router.NewEngine(router.Dependencies{
		Config:        cfg,
		Logger:        log,
		Authenticator: authService,
		RateCounter:   stores.RateLimits,
		Handlers: router.Handlers{
			Campaign:  handler.NewCampaignHandler(campaignService, ledgerService),
			Donation:  handler.NewDonationHandler(ledgerService),
			Auth:      handler.NewAuthHandler(authService),
			Report:    handler.NewReportHandler(reportService),
			Lifecycle: handler.NewLifecycleHandler(trigger),
			System: handler.NewSystemHandler("integration", handler.HealthCheck{
				Name: "database", Critical: true,
				Check: func(context.Context) error { return db.Ping() },
			}),
		},
	})
	return &apiServer{db: db, client: testutil.NewAPIClient(t, engine)}
}

func (s *apiServer) login(t *testing.T, email, password string) string {
	t.Helper()
	res := s.client.Do(http.MethodPost, "/api/admin/login", map[string]string{"email": email, "password": password}).
		Expect(t, http.StatusOK)
	return testutil.DataAs[struct {
		Token string `json:"token"`
	}](t, res).Token
}

// createApproved creates a campaign through the API and approves it as admin
func (s *apiServer) createApproved(t *testing.T, token, title, category, goal string) string {
	t.Helper()
	s.client.Token = ""
	res := s.client.Do(http.MethodPost, "/api/campaigns", map[string]any{
		"title":        title,
		"description":  "Integration campaign " + title,
		"category":     category,
		"goal":         goal,
		"duration":     30,
		"creatorName":  "Casey",
		"creatorEmail": "casey@example.org",
	}).Expect(t, http.StatusCreated)
	id := testutil.DataAs[struct {
		ID string `json:"id"`
	}](t, res).ID

	s.client.Token = token
	s.client.Do(http.MethodPut, "/api/admin/campaigns/"+id+"/approve", nil).Expect(t, http.StatusOK)
	s.client.Token = ""
	return id
}

func (s *apiServer) donate(t *testing.T, campaignID string, donor int, amount string, headers ...string) *testutil.APIResponse {
	t.Helper()
	s.client.Token = ""
	return s.client.Do(http.MethodPost, "/api/donors", map[string]any{
		"campaign": campaignID,
		"name":     fmt.Sprintf("Donor %d", donor),
		"email":    fmt.Sprintf("donor%d@example.org", donor),
		"phone":    "+15550100",
		"amount":   amount,
	}, headers...)
}

func TestAPI_LoginLockoutPersists(t *testing.T) {
	s := newAPIServer(t)

	for i := 0; i < 3; i++ {
		s.client.Do(http.MethodPost, "/api/admin/login", map[string]string{"email": rootEmail, "password": "wrong-password"}).
			ExpectError(t, http.StatusUnauthorized, "UNAUTHORIZED")
	}
	// locked: the right password is refused with the same answer
	s.client.Do(http.MethodPost, "/api/admin/login", map[string]string{"email": rootEmail, "password": rootPassword}).
		ExpectError(t, http.StatusUnauthorized, "UNAUTHORIZED")

	var lockedUntil *time.Time
	require.NoError(t, s.db.DB.Raw("SELECT locked_until FROM admins WHERE email = ?", rootEmail).Scan(&lockedUntil).Error)
	require.NotNil(t, lockedUntil)
	assert.True(t, lockedUntil.After(time.Now()))
}

func TestAPI_RefundThroughAdminEndpoint(t *testing.T) {
	s := newAPIServer(t)
	token := s.login(t, rootEmail, rootPassword)
	id := s.createApproved(t, token, "Animal Shelter Roof", "animals", "1000")

	res := s.donate(t, id, 1, "150", "Idempotency-Key", "shelter-1").Expect(t, http.StatusCreated)
	donationID := testutil.DataAs[struct {
		Donation struct {
			ID string `json:"id"`
		} `json:"donation"`
	}](t, res).Donation.ID
	s.donate(t, id, 1, "150", "Idempotency-Key", "shelter-1").Expect(t, http.StatusOK)
	s.donate(t, id, 2, "50").Expect(t, http.StatusCreated)

	s.client.Token = token
	res = s.client.Do(http.MethodPut, "/api/admin/donors/"+donationID+"/payment-status",
		map[string]string{"paymentStatus": "refunded"}).Expect(t, http.StatusOK)
	progress := testutil.DataAs[struct {
		Campaign struct {
			Collected  string `json:"collected"`
			DonorCount int    `json:"donorCount"`
		} `json:"campaign"`
	}](t, res).Campaign
	assert.True(t, decimal.RequireFromString(progress.Collected).Equal(decimal.NewFromInt(50)))
	assert.Equal(t, 1, progress.DonorCount)

	// refunded donations leave the public feed and the statistics
	s.client.Token = ""
	res = s.client.Do(http.MethodGet, "/api/donors?campaign="+id, nil).Expect(t, http.StatusOK)
	assert.Equal(t, int64(1), res.Total)

	res = s.client.Do(http.MethodGet, "/api/donors/stats?campaign="+id, nil).Expect(t, http.StatusOK)
	assert.Contains(t, string(res.Data), `"totalDonations":1`)
}

func TestAPI_CampaignListingOnPostgres(t *testing.T) {
	s := newAPIServer(t)
	token := s.login(t, rootEmail, rootPassword)

	water := s.createApproved(t, token, "Clean Water Wells", "community", "5000")
	s.createApproved(t, token, "Water Filters for Schools", "education", "800")
	s.createApproved(t, token, "Hospital Beds", "health", "20000")

	s.donate(t, water, 1, "700").Expect(t, http.StatusCreated)

	res := s.client.Do(http.MethodGet, "/api/campaigns?search=WATER", nil).Expect(t, http.StatusOK)
	assert.Equal(t, int64(2), res.Total, "search is case insensitive")

	res = s.client.Do(http.MethodGet, "/api/campaigns?category=health", nil).Expect(t, http.StatusOK)
	assert.Equal(t, int64(1), res.Total)

	res = s.client.Do(http.MethodGet, "/api/campaigns?sort=popular&limit=1", nil).Expect(t, http.StatusOK)
	assert.Equal(t, 1, res.Count)
	assert.Equal(t, 3, res.Pages)
	first := testutil.DataAs[[]struct {
		ID string `json:"id"`
	}](t, res)
	require.Len(t, first, 1)
	assert.Equal(t, water, first[0].ID)

	res = s.client.Do(http.MethodGet, "/api/campaigns?sort=goal", nil).Expect(t, http.StatusOK)
	goals := testutil.DataAs[[]struct {
		Title string `json:"title"`
	}](t, res)
	require.Len(t, goals, 3)
	assert.Equal(t, "Hospital Beds", goals[0].Title)

	res = s.client.Do(http.MethodGet, "/api/campaigns/stats/overview", nil).Expect(t, http.StatusOK)
	assert.Contains(t, string(res.Data), `"totalCampaigns":3`)
}

func TestAPI_SweepEndpointRequiresSuperadmin(t *testing.T) {
	s := newAPIServer(t)
	token := s.login(t, rootEmail, rootPassword)

	s.client.Token = token
	s.client.Do(http.MethodPost, "/api/admin/admins", map[string]string{
		"email": "moderator@example.org", "name": "Moderator", "password": "moderator-secret-1", "role": "admin",
	}).Expect(t, http.StatusCreated)

	s.client.Token = s.login(t, "moderator@example.org", "moderator-secret-1")
	s.client.Do(http.MethodPost, "/api/admin/lifecycle/sweep", nil).ExpectError(t, http.StatusForbidden, "FORBIDDEN")

	s.client.Token = token
	res := s.client.Do(http.MethodPost, "/api/admin/lifecycle/sweep", nil).Expect(t, http.StatusOK)
	assert.Contains(t, string(res.Data), `"scanned":0`)
}

func TestAPI_DeactivatedAdminLosesAccess(t *testing.T) {
	s := newAPIServer(t)
	root := s.login(t, rootEmail, rootPassword)

	s.client.Token = root
	res := s.client.Do(http.MethodPost, "/api/admin/admins", map[string]string{
		"email": "volunteer@example.org", "name": "Volunteer", "password": "volunteer-pass-1",
	}).Expect(t, http.StatusCreated)
	volunteerID := testutil.DataAs[struct {
		ID string `json:"id"`
	}](t, res).ID
	volunteer := s.login(t, "volunteer@example.org", "volunteer-pass-1")

	s.client.Token = volunteer
	s.client.Do(http.MethodPut, "/api/admin/admins/"+volunteerID+"/status", map[string]bool{"active": false}).
		ExpectError(t, http.StatusForbidden, "FORBIDDEN")

	s.client.Token = root
	res = s.client.Do(http.MethodPut, "/api/admin/admins/"+volunteerID+"/status", map[string]bool{"active": false}).
		Expect(t, http.StatusOK)
	assert.Contains(t, string(res.Data), `"active":false`)

	var active bool
	require.NoError(t, s.db.DB.Raw("SELECT active FROM admins WHERE id = ?", volunteerID).Scan(&active).Error)
	assert.False(t, active)

	s.client.Token = volunteer
	s.client.Do(http.MethodGet, "/api/admin/profile", nil).ExpectError(t, http.StatusUnauthorized, "UNAUTHORIZED")
	s.client.Token = ""
	s.client.Do(http.MethodPost, "/api/admin/login", map[string]string{"email": "volunteer@example.org", "password": "volunteer-pass-1"}).
		ExpectError(t, http.StatusUnauthorized, "UNAUTHORIZED")

	s.client.Token = root
	s.client.Do(http.MethodPut, "/api/admin/admins/"+volunteerID+"/status", map[string]bool{"active": true}).
		Expect(t, http.StatusOK)
	s.login(t, "volunteer@example.org", "volunteer-pass-1")
}

func TestAPI_DonorPrivacy(t *testing.T) {
	s := newAPIServer(t)
	token := s.login(t, rootEmail, rootPassword)
	id := s.createApproved(t, token, "Night Shelter", "community", "2000")

	s.client.Token = ""
	s.client.Do(http.MethodPost, "/api/donors", map[string]any{
		"campaign":        id,
		"name":            "Quiet Donor",
		"email":           "quiet@private.example",
		"phone":           "+15550142",
		"amount":          "40",
		"displayPublicly": false,
	}, "Idempotency-Key", "night-1").Expect(t, http.StatusCreated)
	s.donate(t, id, 7, "10").Expect(t, http.StatusCreated)

	var stored bool
	require.NoError(t, s.db.DB.Raw("SELECT display_publicly FROM donations WHERE email = ?", "quiet@private.example").Scan(&stored).Error)
	assert.False(t, stored, "opting out is persisted")

	res := s.client.Do(http.MethodGet, "/api/donors?campaign="+id, nil).Expect(t, http.StatusOK)
	assert.Equal(t, int64(1), res.Total)
	assert.NotContains(t, string(res.Data), "Quiet Donor")

	res = s.client.Do(http.MethodGet, "/api/campaigns/"+id, nil).Expect(t, http.StatusOK)
	assert.NotContains(t, string(res.Data), "Quiet Donor")

	// a stranger reusing the key is refused; a genuine retry gets a receipt without contact details
	s.client.Do(http.MethodPost, "/api/donors", map[string]any{
		"campaign": id, "name": "Someone Else", "email": "else@example.org", "phone": "+15550000", "amount": "1",
	}, "Idempotency-Key", "night-1").ExpectError(t, http.StatusConflict, "CONFLICT")

	res = s.client.Do(http.MethodPost, "/api/donors", map[string]any{
		"campaign": id, "name": "Quiet Donor", "email": "quiet@private.example", "phone": "+15550142", "amount": "40",
	}, "Idempotency-Key", "night-1").Expect(t, http.StatusOK)
	assert.Contains(t, string(res.Data), `"replayed":true`)
	assert.NotContains(t, string(res.Data), "quiet@private.example")
	assert.NotContains(t, string(res.Data), "+15550142")
}
