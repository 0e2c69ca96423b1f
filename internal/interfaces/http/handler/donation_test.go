package handler

import (
	"net/http"
	"strings"
	"testing"

	"github.com/donation/backend/internal/application/ledger"
	"github.com/donation/backend/internal/domain/identity"
	"github.com/donation/backend/internal/domain/shared"
	"github.com/donation/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newDonationRouter(t *testing.T) (*gin.Engine, *mockDonationService) {
	t.Helper()
	donations := new(mockDonationService)
	h := NewDonationHandler(donations)

	r := gin.New()
	r.POST("/api/donors", h.Record)
	r.GET("/api/donors", h.List)
	r.GET("/api/donors/:id", h.Get)
	admin := r.Group("/api/admin", withPrincipal(testPrincipal(identity.RoleAdmin)))
	admin.GET("/donors", h.ListAdmin)
	admin.PUT("/donors/:id/payment-status", h.UpdatePaymentStatus)

	t.Cleanup(func() { donations.AssertExpectations(t) })
	return r, donations
}

func donationBody(campaignID uuid.UUID) map[string]any {
	return map[string]any{
		"campaign":      campaignID.String(),
		"name":          "Robin",
		"email":         "robin@example.org",
		"phone":         "+15551234567",
		"amount":        "25.00",
		"paymentMethod": "card",
	}
}

func TestDonationHandler_Record(t *testing.T) {
	r, donations := newDonationRouter(t)
	campaignID := uuid.New()
	donations.On("RecordDonation", mock.Anything, mock.MatchedBy(func(req ledger.RecordDonationRequest) bool {
		return req.CampaignID == campaignID.String() &&
			req.Amount.Equal(decimal.RequireFromString("25")) &&
			req.IdempotencyKey == "key-1"
	})).Return(&ledger.RecordDonationResponse{
		Donation: ledger.DonationReceipt{ID: uuid.New(), CampaignID: campaignID, TransactionID: "TXN-1"},
		Campaign: ledger.CampaignProgress{ID: campaignID, Collected: decimal.NewFromInt(25), DonorCount: 1},
	}, nil)

	w := serve(r, http.MethodPost, "/api/donors", jsonBody(t, donationBody(campaignID)), middleware.IdempotencyKeyHeader, " key-1 ")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	env := decode(t, w)
	assert.True(t, env.Success)
	assert.Contains(t, string(env.Data), `"transactionId":"TXN-1"`)
	assert.Contains(t, string(env.Data), `"replayed":false`)
}

func TestDonationHandler_Record_ReplayReturns200(t *testing.T) {
	r, donations := newDonationRouter(t)
	campaignID := uuid.New()
	donations.On("RecordDonation", mock.Anything, mock.Anything).Return(&ledger.RecordDonationResponse{Replayed: true}, nil)

	w := serve(r, http.MethodPost, "/api/donors", jsonBody(t, donationBody(campaignID)), middleware.IdempotencyKeyHeader, "key-1")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"replayed":true`)
}

func TestDonationHandler_Record_RequiresCampaign(t *testing.T) {
	r, _ := newDonationRouter(t)
	body := donationBody(uuid.New())
	body["campaign"] = "nope"

	w := serve(r, http.MethodPost, "/api/donors", jsonBody(t, body))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	env := decode(t, w)
	require.Len(t, env.Errors, 1)
	assert.Equal(t, "campaign", env.Errors[0].Field)
}

func TestDonationHandler_Record_LongIdempotencyKey(t *testing.T) {
	r, _ := newDonationRouter(t)
	w := serve(r, http.MethodPost, "/api/donors", jsonBody(t, donationBody(uuid.New())),
		middleware.IdempotencyKeyHeader, strings.Repeat("k", 256))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDonationHandler_Record_DomainErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"closed campaign", shared.NewInvalidStateError("Campaign is not accepting donations"), http.StatusConflict},
		{"unknown campaign", shared.NewNotFoundError("Campaign"), http.StatusNotFound},
		{"in flight duplicate", shared.NewConflictError("Duplicate submission in progress"), http.StatusConflict},
		{"invalid donor", shared.NewValidationError([]shared.FieldError{{Field: "email", Message: "Email is invalid"}}), http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, donations := newDonationRouter(t)
			donations.On("RecordDonation", mock.Anything, mock.Anything).Return(nil, tt.err)

			w := serve(r, http.MethodPost, "/api/donors", jsonBody(t, donationBody(uuid.New())))
			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestDonationHandler_List_ByCampaign(t *testing.T) {
	r, donations := newDonationRouter(t)
	campaignID := uuid.New()
	donations.On("ListPublic", mock.Anything, ledger.ListDonationsFilter{Page: 1, Limit: shared.DefaultPageSize, CampaignID: &campaignID}).
		Return(shared.NewPaginated([]ledger.PublicDonationResponse{{Name: "Robin"}}, 1, 1, shared.DefaultPageSize), nil)

	w := serve(r, http.MethodGet, "/api/donors?campaign="+campaignID.String(), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	env := decode(t, w)
	assert.Equal(t, 1, env.Count)
	assert.Equal(t, int64(1), env.Total)
}

func TestDonationHandler_List_AllCampaigns(t *testing.T) {
	r, donations := newDonationRouter(t)
	donations.On("ListPublic", mock.Anything, ledger.ListDonationsFilter{Page: 1, Limit: shared.DefaultPageSize}).
		Return(shared.NewPaginated([]ledger.PublicDonationResponse{}, 0, 1, shared.DefaultPageSize), nil)

	w := serve(r, http.MethodGet, "/api/donors?campaign=all", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = serve(r, http.MethodGet, "/api/donors?campaign=bogus", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDonationHandler_Get(t *testing.T) {
	r, donations := newDonationRouter(t)
	id := uuid.New()
	donations.On("GetPublic", mock.Anything, id).Return(&ledger.PublicDonationResponse{ID: id, Name: "Anonymous"}, nil)

	w := serve(r, http.MethodGet, "/api/donors/"+id.String(), nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"name":"Anonymous"`)
}

func TestDonationHandler_ListAdmin(t *testing.T) {
	r, donations := newDonationRouter(t)
	want := ledger.ListDonationsFilter{
		Page:          1,
		Limit:         20,
		Search:        "robin",
		PaymentStatus: "pending",
		OrderBy:       "amount",
		OrderDir:      "asc",
	}
	donations.On("ListAdmin", mock.Anything, want).
		Return(shared.NewPaginated([]ledger.DonationResponse{{Email: "robin@example.org"}}, 1, 1, 20), nil)

	w := serve(r, http.MethodGet, "/api/admin/donors?limit=20&search=robin&paymentStatus=pending&orderBy=amount&orderDir=asc", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "robin@example.org")

	w = serve(r, http.MethodGet, "/api/admin/donors?paymentStatus=lost", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDonationHandler_UpdatePaymentStatus(t *testing.T) {
	r, donations := newDonationRouter(t)
	id := uuid.New()
	donations.On("UpdatePaymentStatus", mock.Anything, id, ledger.UpdatePaymentStatusRequest{PaymentStatus: "refunded"}, mock.Anything).
		Return(&ledger.PaymentStatusResponse{Donation: ledger.DonationResponse{ID: id, PaymentStatus: "refunded"}}, nil)

	w := serve(r, http.MethodPut, "/api/admin/donors/"+id.String()+"/payment-status", jsonBody(t, map[string]string{"paymentStatus": "refunded"}))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"paymentStatus":"refunded"`)

	w = serve(r, http.MethodPut, "/api/admin/donors/"+id.String()+"/payment-status", jsonBody(t, map[string]string{"paymentStatus": "lost"}))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
