package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	campaignapp "github.com/donation/backend/internal/application/campaign"
	"github.com/donation/backend/internal/application/identity"
	"github.com/donation/backend/internal/application/ledger"
	"github.com/donation/backend/internal/application/lifecycle"
	reportapp "github.com/donation/backend/internal/application/report"
	domainidentity "github.com/donation/backend/internal/domain/identity"
	"github.com/donation/backend/internal/domain/shared"
	"github.com/donation/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()
}

// envelope is the decoded response body
type envelope struct {
	Success bool                `json:"success"`
	Data    json.RawMessage     `json:"data"`
	Message string              `json:"message"`
	Errors  []shared.FieldError `json:"errors"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Count int   `json:"count"`
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Pages int   `json:"pages"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}

func jsonBody(t *testing.T, v any) *bytes.Reader {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewReader(b)
}

// serve runs a single request through a router with the given route
func serve(r *gin.Engine, method, path string, body *bytes.Reader, headers ...string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == nil {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, body)
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// withPrincipal installs an authenticated admin ahead of the handler
func withPrincipal(p *identity.Principal) gin.HandlerFunc {
	return func(c *gin.Context) {
		middleware.SetPrincipal(c, p)
		c.Next()
	}
}

func testPrincipal(role domainidentity.Role) *identity.Principal {
	return &identity.Principal{AdminID: uuid.New(), Email: "admin@example.org", Name: "Admin", Role: role}
}

type mockCampaignService struct {
	mock.Mock
}

func (m *mockCampaignService) Create(ctx context.Context, req campaignapp.CreateCampaignRequest) (*campaignapp.CampaignResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*campaignapp.CampaignResponse), args.Error(1)
}

func (m *mockCampaignService) Get(ctx context.Context, id uuid.UUID) (*campaignapp.CampaignResponse, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*campaignapp.CampaignResponse), args.Error(1)
}

func (m *mockCampaignService) List(ctx context.Context, f campaignapp.ListCampaignsFilter) (shared.Paginated[campaignapp.CampaignResponse], error) {
	args := m.Called(ctx, f)
	return args.Get(0).(shared.Paginated[campaignapp.CampaignResponse]), args.Error(1)
}

func (m *mockCampaignService) ListAdmin(ctx context.Context, f campaignapp.ListCampaignsFilter) (shared.Paginated[campaignapp.AdminCampaignResponse], error) {
	args := m.Called(ctx, f)
	return args.Get(0).(shared.Paginated[campaignapp.AdminCampaignResponse]), args.Error(1)
}

func (m *mockCampaignService) Update(ctx context.Context, id uuid.UUID, req campaignapp.UpdateCampaignRequest, adminID uuid.UUID) (*campaignapp.AdminCampaignResponse, error) {
	args := m.Called(ctx, id, req, adminID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*campaignapp.AdminCampaignResponse), args.Error(1)
}

func (m *mockCampaignService) Approve(ctx context.Context, id, adminID uuid.UUID) (*campaignapp.AdminCampaignResponse, error) {
	args := m.Called(ctx, id, adminID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*campaignapp.AdminCampaignResponse), args.Error(1)
}

func (m *mockCampaignService) Reject(ctx context.Context, id, adminID uuid.UUID, reason string) (*campaignapp.AdminCampaignResponse, error) {
	args := m.Called(ctx, id, adminID, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*campaignapp.AdminCampaignResponse), args.Error(1)
}

func (m *mockCampaignService) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

type mockDonationService struct {
	mock.Mock
}

func (m *mockDonationService) RecordDonation(ctx context.Context, req ledger.RecordDonationRequest) (*ledger.RecordDonationResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.RecordDonationResponse), args.Error(1)
}

func (m *mockDonationService) UpdatePaymentStatus(ctx context.Context, id uuid.UUID, req ledger.UpdatePaymentStatusRequest, adminID uuid.UUID) (*ledger.PaymentStatusResponse, error) {
	args := m.Called(ctx, id, req, adminID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.PaymentStatusResponse), args.Error(1)
}

func (m *mockDonationService) GetPublic(ctx context.Context, id uuid.UUID) (*ledger.PublicDonationResponse, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.PublicDonationResponse), args.Error(1)
}

func (m *mockDonationService) ListPublic(ctx context.Context, f ledger.ListDonationsFilter) (shared.Paginated[ledger.PublicDonationResponse], error) {
	args := m.Called(ctx, f)
	return args.Get(0).(shared.Paginated[ledger.PublicDonationResponse]), args.Error(1)
}

func (m *mockDonationService) ListAdmin(ctx context.Context, f ledger.ListDonationsFilter) (shared.Paginated[ledger.DonationResponse], error) {
	args := m.Called(ctx, f)
	return args.Get(0).(shared.Paginated[ledger.DonationResponse]), args.Error(1)
}

func (m *mockDonationService) RecentPublic(ctx context.Context, campaignID *uuid.UUID, limit int) ([]ledger.PublicDonationResponse, error) {
	args := m.Called(ctx, campaignID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]ledger.PublicDonationResponse), args.Error(1)
}

type mockAuthService struct {
	mock.Mock
}

func (m *mockAuthService) Login(ctx context.Context, req identity.LoginRequest) (*identity.LoginResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.LoginResult), args.Error(1)
}

func (m *mockAuthService) Logout(ctx context.Context, p *identity.Principal) error {
	return m.Called(ctx, p).Error(0)
}

func (m *mockAuthService) GetProfile(ctx context.Context, adminID uuid.UUID) (*identity.AdminProfile, error) {
	args := m.Called(ctx, adminID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.AdminProfile), args.Error(1)
}

func (m *mockAuthService) CreateAdmin(ctx context.Context, actor *identity.Principal, req identity.CreateAdminRequest) (*identity.AdminProfile, error) {
	args := m.Called(ctx, actor, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.AdminProfile), args.Error(1)
}

func (m *mockAuthService) SetAdminActive(ctx context.Context, actor *identity.Principal, adminID uuid.UUID, active bool) (*identity.AdminProfile, error) {
	args := m.Called(ctx, actor, adminID, active)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.AdminProfile), args.Error(1)
}

type mockReportService struct {
	mock.Mock
}

func (m *mockReportService) CampaignOverview(ctx context.Context) (*reportapp.CampaignOverview, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*reportapp.CampaignOverview), args.Error(1)
}

func (m *mockReportService) DonationStats(ctx context.Context, campaignID *uuid.UUID) (*reportapp.DonationStats, error) {
	args := m.Called(ctx, campaignID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*reportapp.DonationStats), args.Error(1)
}

func (m *mockReportService) AdminSummary(ctx context.Context) (*reportapp.AdminSummary, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*reportapp.AdminSummary), args.Error(1)
}

type mockMediaService struct {
	mock.Mock
}

func (m *mockMediaService) CreateUploadURL(ctx context.Context, id uuid.UUID, req campaignapp.UploadURLRequest) (*campaignapp.UploadURLResponse, error) {
	args := m.Called(ctx, id, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*campaignapp.UploadURLResponse), args.Error(1)
}

func (m *mockMediaService) Attach(ctx context.Context, id uuid.UUID, req campaignapp.AttachMediaRequest) (*campaignapp.MediaResponse, error) {
	args := m.Called(ctx, id, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*campaignapp.MediaResponse), args.Error(1)
}

type stubSweepRunner struct {
	result lifecycle.SweepResult
	err    error
}

func (s stubSweepRunner) RunNow(context.Context) (lifecycle.SweepResult, error) {
	return s.result, s.err
}
