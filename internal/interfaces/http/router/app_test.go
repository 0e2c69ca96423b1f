package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
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
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/crypto/bcrypt"
)

const (
	superEmail    = "root@example.org"
	superPassword = "bootstrap-secret-1"
)

type app struct {
	t      *testing.T
	engine http.Handler
}

func newTestConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Name: "donation-test", Env: "test"},
		HTTP: config.HTTPConfig{
			MaxBodySize:           1 << 20,
			AuthRateLimitEnabled:  true,
			AuthRateLimitRequests: 5,
			AuthRateLimitWindow:   time.Minute,
		},
		Swagger: config.SwaggerConfig{Enabled: false},
	}
}

func newApp(t *testing.T, cfg *config.Config) *app {
	t.Helper()
	log := zaptest.NewLogger(t)

	db, err := persistence.NewDatabase(&config.DatabaseConfig{
		Driver:     config.DriverSQLite,
		SQLitePath: filepath.Join(t.TempDir(), "api.db"),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate())
	t.Cleanup(func() { _ = db.Close() })

	campaignRepo := persistence.NewGormCampaignRepository(db.DB)
	donationRepo := persistence.NewGormDonationRepository(db.DB)
	txScope := persistence.NewGormTransactionScope(db.DB)

	jwtService, err := auth.NewJWTService(config.AuthConfig{
		JWTSecret: "router-test-secret-at-least-32-chars",
		TokenTTL:  time.Hour,
		Issuer:    "donation-test",
	})
	require.NoError(t, err)
	authService := identityapp.NewAuthService(persistence.NewGormAdminRepository(db.DB), jwtService,
		auth.NewInMemoryTokenBlacklist(), identityapp.AuthServiceConfig{BcryptCost: bcrypt.MinCost}, log)
	_, err = authService.Bootstrap(context.Background(), identityapp.CreateAdminRequest{
		Email: superEmail, Name: "Root", Password: superPassword,
	})
	require.NoError(t, err)

	campaignService := campaignapp.NewService(campaignRepo, txScope, campaign.DefaultPolicy(), log)
	ledgerService := ledger.NewService(campaignRepo, donationRepo, txScope, ledger.DefaultConfig(), log)
	reportService := reportapp.NewService(persistence.NewGormReportRepository(db.DB), campaignRepo, donationRepo, log)
	trigger := scheduler.NewSweepTrigger(scheduler.SweepTriggerConfig{}, lifecycle.NewSweeper(campaignRepo, 0, log), log)

	counter := cache.NewInMemoryRateCounter(time.Minute)
	t.Cleanup(func() { _ = counter.Close() })

	engine := NewEngine(Dependencies{
		Config:        cfg,
		Logger:        log,
		Authenticator: authService,
		RateCounter:   counter,
		Handlers: Handlers{
			Campaign:  handler.NewCampaignHandler(campaignService, ledgerService),
			Donation:  handler.NewDonationHandler(ledgerService),
			Auth:      handler.NewAuthHandler(authService),
			Report:    handler.NewReportHandler(reportService),
			Lifecycle: handler.NewLifecycleHandler(trigger),
			System: handler.NewSystemHandler("test", handler.HealthCheck{
				Name: "database", Critical: true,
				Check: func(context.Context) error { return db.Ping() },
			}),
		},
	})
	return &app{t: t, engine: engine}
}

type result struct {
	Code    int
	Header  http.Header
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Total   int64           `json:"total"`
	Count   int             `json:"count"`
	Error   *struct {
		Code string `json:"code"`
	} `json:"error"`
}

func (a *app) call(method, path string, body any, headers ...string) result {
	a.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(a.t, err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)

	res := result{Code: w.Code, Header: w.Header()}
	require.NoError(a.t, json.Unmarshal(w.Body.Bytes(), &res), w.Body.String())
	return res
}

func (a *app) login(email, password string) string {
	a.t.Helper()
	res := a.call(http.MethodPost, "/api/admin/login", map[string]string{"email": email, "password": password})
	require.Equal(a.t, http.StatusOK, res.Code)
	var out struct {
		Token string `json:"token"`
	}
	require.NoError(a.t, json.Unmarshal(res.Data, &out))
	return "Bearer " + out.Token
}

func dataField[T any](t *testing.T, res result) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(res.Data, &out), string(res.Data))
	return out
}

func TestEngine_DonationFlow(t *testing.T) {
	a := newApp(t, newTestConfig())

	created := a.call(http.MethodPost, "/api/campaigns", map[string]any{
		"title":        "Clean water for Riverside",
		"description":  "Two new wells for the valley",
		"category":     "community",
		"goal":         "500",
		"duration":     30,
		"creatorName":  "Sam",
		"creatorEmail": "sam@example.org",
	})
	require.Equal(t, http.StatusCreated, created.Code)
	c := dataField[struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}](t, created)
	assert.Equal(t, "pending", c.Status)

	donation := map[string]any{
		"campaign": c.ID,
		"name":     "Robin",
		"email":    "robin@example.org",
		"phone":    "+15551234567",
		"amount":   "200",
	}
	res := a.call(http.MethodPost, "/api/donors", donation)
	assert.Equal(t, http.StatusConflict, res.Code, "pending campaigns refuse donations")
	assert.Equal(t, "INVALID_STATE", res.Error.Code)

	token := a.login(superEmail, superPassword)
	res = a.call(http.MethodPut, "/api/admin/campaigns/"+c.ID+"/approve", nil, "Authorization", token)
	require.Equal(t, http.StatusOK, res.Code)

	res = a.call(http.MethodPost, "/api/donors", donation, "Idempotency-Key", "robin-1")
	require.Equal(t, http.StatusCreated, res.Code)
	receipt := dataField[struct {
		Campaign struct {
			Collected  string `json:"collected"`
			DonorCount int    `json:"donorCount"`
		} `json:"campaign"`
	}](t, res)
	assert.True(t, decimal.RequireFromString(receipt.Campaign.Collected).Equal(decimal.NewFromInt(200)))
	assert.Equal(t, 1, receipt.Campaign.DonorCount)

	res = a.call(http.MethodPost, "/api/donors", donation, "Idempotency-Key", "robin-1")
	assert.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, string(res.Data), `"replayed":true`)

	res = a.call(http.MethodGet, "/api/campaigns/"+c.ID, nil)
	require.Equal(t, http.StatusOK, res.Code)
	detail := dataField[struct {
		Collected       string            `json:"collected"`
		RecentDonations []json.RawMessage `json:"recentDonations"`
	}](t, res)
	assert.True(t, decimal.RequireFromString(detail.Collected).Equal(decimal.NewFromInt(200)))
	require.Len(t, detail.RecentDonations, 1)
	assert.NotContains(t, string(detail.RecentDonations[0]), "robin@example.org")

	res = a.call(http.MethodGet, "/api/donors?campaign="+c.ID, nil)
	assert.Equal(t, int64(1), res.Total)
	assert.NotContains(t, string(res.Data), "robin@example.org")

	res = a.call(http.MethodGet, "/api/admin/donors", nil, "Authorization", token)
	require.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, string(res.Data), "robin@example.org")

	res = a.call(http.MethodDelete, "/api/campaigns/"+c.ID, nil, "Authorization", token)
	assert.Equal(t, http.StatusConflict, res.Code, "campaigns with completed donations are kept")

	res = a.call(http.MethodGet, "/api/campaigns/stats/overview", nil)
	assert.Equal(t, http.StatusOK, res.Code)
	res = a.call(http.MethodGet, "/api/admin/summary", nil, "Authorization", token)
	assert.Equal(t, http.StatusOK, res.Code)
}

func TestEngine_AdminGate(t *testing.T) {
	a := newApp(t, newTestConfig())

	res := a.call(http.MethodGet, "/api/admin/profile", nil)
	assert.Equal(t, http.StatusUnauthorized, res.Code)

	res = a.call(http.MethodPost, "/api/admin/login", map[string]string{"email": superEmail, "password": "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, res.Code)

	super := a.login(superEmail, superPassword)
	res = a.call(http.MethodPost, "/api/admin/admins", map[string]string{
		"email": "helper@example.org", "name": "Helper", "password": "helper-secret-1",
	}, "Authorization", super)
	require.Equal(t, http.StatusCreated, res.Code)

	helper := a.login("helper@example.org", "helper-secret-1")
	res = a.call(http.MethodGet, "/api/admin/profile", nil, "Authorization", helper)
	require.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, string(res.Data), `"role":"admin"`)

	res = a.call(http.MethodPost, "/api/admin/lifecycle/sweep", nil, "Authorization", helper)
	assert.Equal(t, http.StatusForbidden, res.Code)
	res = a.call(http.MethodPost, "/api/admin/lifecycle/sweep", nil, "Authorization", super)
	assert.Equal(t, http.StatusOK, res.Code)

	res = a.call(http.MethodPost, "/api/admin/logout", nil, "Authorization", helper)
	require.Equal(t, http.StatusOK, res.Code)
	res = a.call(http.MethodGet, "/api/admin/profile", nil, "Authorization", helper)
	assert.Equal(t, http.StatusUnauthorized, res.Code, "revoked tokens are refused")
}

func TestEngine_AdminDeactivation(t *testing.T) {
	a := newApp(t, newTestConfig())
	super := a.login(superEmail, superPassword)

	res := a.call(http.MethodPost, "/api/admin/admins", map[string]string{
		"email": "temp@example.org", "name": "Temp", "password": "temp-secret-1",
	}, "Authorization", super)
	require.Equal(t, http.StatusCreated, res.Code)
	id := dataField[struct {
		ID string `json:"id"`
	}](t, res).ID
	temp := a.login("temp@example.org", "temp-secret-1")

	res = a.call(http.MethodPut, "/api/admin/admins/"+id+"/status", map[string]bool{"active": false}, "Authorization", super)
	require.Equal(t, http.StatusOK, res.Code)

	res = a.call(http.MethodGet, "/api/admin/profile", nil, "Authorization", temp)
	assert.Equal(t, http.StatusUnauthorized, res.Code, "existing tokens stop working")
	res = a.call(http.MethodPost, "/api/admin/login", map[string]string{"email": "temp@example.org", "password": "temp-secret-1"})
	assert.Equal(t, http.StatusUnauthorized, res.Code)
}

func TestEngine_LoginRateLimit(t *testing.T) {
	cfg := newTestConfig()
	cfg.HTTP.AuthRateLimitRequests = 2
	a := newApp(t, cfg)

	creds := map[string]string{"email": superEmail, "password": "wrong-password"}
	assert.Equal(t, http.StatusUnauthorized, a.call(http.MethodPost, "/api/admin/login", creds).Code)
	assert.Equal(t, http.StatusUnauthorized, a.call(http.MethodPost, "/api/admin/login", creds).Code)

	res := a.call(http.MethodPost, "/api/admin/login", creds)
	assert.Equal(t, http.StatusTooManyRequests, res.Code)
	assert.Equal(t, "RATE_LIMITED", res.Error.Code)
	assert.NotEmpty(t, res.Header.Get("Retry-After"))

	// public routes are not affected by the login limit
	assert.Equal(t, http.StatusOK, a.call(http.MethodGet, "/api/campaigns", nil).Code)
}

func TestEngine_Plumbing(t *testing.T) {
	a := newApp(t, newTestConfig())

	res := a.call(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, string(res.Data), `"database":"ok"`)
	assert.NotEmpty(t, res.Header.Get("X-Request-ID"))

	res = a.call(http.MethodGet, "/api/nowhere", nil)
	assert.Equal(t, http.StatusNotFound, res.Code)
	assert.Equal(t, "ROUTE_NOT_FOUND", res.Error.Code)

	res = a.call(http.MethodGet, "/swagger/index.html", nil)
	assert.Equal(t, http.StatusNotFound, res.Code, "docs are off unless enabled")

	res = a.call(http.MethodGet, "/api/campaigns/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, res.Code)
}
