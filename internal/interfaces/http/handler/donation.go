package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/donation/backend/internal/application/ledger"
	"github.com/donation/backend/internal/domain/donation"
	"github.com/donation/backend/internal/domain/shared"
	"github.com/donation/backend/internal/interfaces/http/dto"
	"github.com/donation/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// DonationService is the donation ledger as seen by the HTTP layer
type DonationService interface {
	RecordDonation(ctx context.Context, req ledger.RecordDonationRequest) (*ledger.RecordDonationResponse, error)
	UpdatePaymentStatus(ctx context.Context, donationID uuid.UUID, req ledger.UpdatePaymentStatusRequest, adminID uuid.UUID) (*ledger.PaymentStatusResponse, error)
	GetPublic(ctx context.Context, id uuid.UUID) (*ledger.PublicDonationResponse, error)
	ListPublic(ctx context.Context, f ledger.ListDonationsFilter) (shared.Paginated[ledger.PublicDonationResponse], error)
	ListAdmin(ctx context.Context, f ledger.ListDonationsFilter) (shared.Paginated[ledger.DonationResponse], error)
}

// DonationHandler serves the donation endpoints
type DonationHandler struct {
	BaseHandler
	donations DonationService
}

// NewDonationHandler creates a new DonationHandler
func NewDonationHandler(donations DonationService) *DonationHandler {
	return &DonationHandler{donations: donations}
}

// ListDonationsQuery holds the query parameters of donation listings
type ListDonationsQuery struct {
	dto.ListQuery
	Search        string `form:"search" binding:"omitempty,max=100"`
	PaymentStatus string `form:"paymentStatus" binding:"omitempty,oneof=all pending completed failed refunded"`
	OrderBy       string `form:"orderBy" binding:"omitempty,oneof=created_at amount name payment_status"`
	OrderDir      string `form:"orderDir" binding:"omitempty,oneof=asc desc"`
}

func (h *DonationHandler) filter(c *gin.Context) (ledger.ListDonationsFilter, bool) {
	var q ListDonationsQuery
	if !h.BindQuery(c, &q) {
		return ledger.ListDonationsFilter{}, false
	}
	campaignID, ok := queryUUID(c, "campaign")
	if !ok {
		h.HandleError(c, shared.NewValidationError([]shared.FieldError{{Field: "campaign", Message: "Invalid UUID format"}}))
		return ledger.ListDonationsFilter{}, false
	}
	q.Normalize(shared.DefaultPageSize)
	return ledger.ListDonationsFilter{
		Page:          q.Page,
		Limit:         q.Limit,
		Search:        q.Search,
		CampaignID:    campaignID,
		PaymentStatus: q.PaymentStatus,
		OrderBy:       q.OrderBy,
		OrderDir:      q.OrderDir,
	}, true
}

// Record godoc
// @Summary      Record a donation
// @Description  Records a donation against an active campaign. Resubmitting with the same Idempotency-Key returns the original donation.
// @Tags         donations
// @Accept       json
// @Produce      json
// @Param        Idempotency-Key header string false "Client generated key that makes the submission safe to retry"
// @Param        request body ledger.RecordDonationRequest true "Donation"
// @Success      201 {object} dto.Response{data=ledger.RecordDonationResponse}
// @Success      200 {object} dto.Response{data=ledger.RecordDonationResponse} "Replayed submission"
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /api/donors [post]
func (h *DonationHandler) Record(c *gin.Context) {
	var req ledger.RecordDonationRequest
	if !h.BindJSON(c, &req) {
		return
	}
	key := strings.TrimSpace(c.GetHeader(middleware.IdempotencyKeyHeader))
	if len(key) > donation.MaxIdempotencyKeyLength {
		h.HandleError(c, shared.NewValidationError([]shared.FieldError{{
			Field:   middleware.IdempotencyKeyHeader,
			Message: "Idempotency key is too long",
		}}))
		return
	}
	req.IdempotencyKey = key

	resp, err := h.donations.RecordDonation(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if resp.Replayed {
		c.JSON(http.StatusOK, dto.NewMessageResponse(resp, "Donation already recorded"))
		return
	}
	h.Created(c, resp, "Thank you for your donation")
}

// List godoc
// @Summary      List public donations
// @Description  Completed donations whose donors agreed to be shown. Contact details are never included.
// @Tags         donations
// @Produce      json
// @Param        page query int false "Page number" default(1)
// @Param        limit query int false "Page size" default(10) maximum(100)
// @Param        campaign query string false "Campaign ID" format(uuid)
// @Success      200 {object} dto.ListResponse{data=[]ledger.PublicDonationResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /api/donors [get]
func (h *DonationHandler) List(c *gin.Context) {
	f, ok := h.filter(c)
	if !ok {
		return
	}
	page, err := h.donations.ListPublic(c.Request.Context(), f)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	writeList(c, page)
}

// Get godoc
// @Summary      Get a donation
// @Tags         donations
// @Produce      json
// @Param        id path string true "Donation ID" format(uuid)
// @Success      200 {object} dto.Response{data=ledger.PublicDonationResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /api/donors/{id} [get]
func (h *DonationHandler) Get(c *gin.Context) {
	id, ok := h.ParamUUID(c, "id")
	if !ok {
		return
	}
	resp, err := h.donations.GetPublic(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// ListAdmin godoc
// @Summary      List donations for admins
// @Description  Includes donor contact details. search matches name, email, phone and transaction id.
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        page query int false "Page number" default(1)
// @Param        limit query int false "Page size" default(10) maximum(100)
// @Param        search query string false "Search term"
// @Param        campaign query string false "Campaign ID or all"
// @Param        paymentStatus query string false "Payment status or all"
// @Param        orderBy query string false "Sort field" Enums(created_at, amount, name, payment_status)
// @Param        orderDir query string false "Sort direction" Enums(asc, desc)
// @Success      200 {object} dto.ListResponse{data=[]ledger.DonationResponse}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /api/admin/donors [get]
func (h *DonationHandler) ListAdmin(c *gin.Context) {
	f, ok := h.filter(c)
	if !ok {
		return
	}
	page, err := h.donations.ListAdmin(c.Request.Context(), f)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	writeList(c, page)
}

// UpdatePaymentStatus godoc
// @Summary      Change a donation's payment status
// @Description  Completing a pending donation credits the campaign. Refunding a completed one debits it.
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Donation ID" format(uuid)
// @Param        request body ledger.UpdatePaymentStatusRequest true "New status"
// @Success      200 {object} dto.Response{data=ledger.PaymentStatusResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /api/admin/donors/{id}/payment-status [put]
func (h *DonationHandler) UpdatePaymentStatus(c *gin.Context) {
	id, ok := h.ParamUUID(c, "id")
	if !ok {
		return
	}
	principal, ok := h.Principal(c)
	if !ok {
		return
	}
	var req ledger.UpdatePaymentStatusRequest
	if !h.BindJSON(c, &req) {
		return
	}
	resp, err := h.donations.UpdatePaymentStatus(c.Request.Context(), id, req, principal.AdminID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMessage(c, resp, "Payment status updated")
}
