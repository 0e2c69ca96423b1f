package handler

import (
	"context"
	"strings"

	campaignapp "github.com/donation/backend/internal/application/campaign"
	"github.com/donation/backend/internal/application/ledger"
	"github.com/donation/backend/internal/domain/shared"
	"github.com/donation/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// recentDonationsLimit bounds the donor list shown on a campaign page
const recentDonationsLimit = 10

// CampaignService is the campaign store as seen by the HTTP layer
type CampaignService interface {
	Create(ctx context.Context, req campaignapp.CreateCampaignRequest) (*campaignapp.CampaignResponse, error)
	Get(ctx context.Context, id uuid.UUID) (*campaignapp.CampaignResponse, error)
	List(ctx context.Context, f campaignapp.ListCampaignsFilter) (shared.Paginated[campaignapp.CampaignResponse], error)
	ListAdmin(ctx context.Context, f campaignapp.ListCampaignsFilter) (shared.Paginated[campaignapp.AdminCampaignResponse], error)
	Update(ctx context.Context, id uuid.UUID, req campaignapp.UpdateCampaignRequest, adminID uuid.UUID) (*campaignapp.AdminCampaignResponse, error)
	Approve(ctx context.Context, id, adminID uuid.UUID) (*campaignapp.AdminCampaignResponse, error)
	Reject(ctx context.Context, id, adminID uuid.UUID, reason string) (*campaignapp.AdminCampaignResponse, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// RecentDonations lists the latest public donations of a campaign
type RecentDonations interface {
	RecentPublic(ctx context.Context, campaignID *uuid.UUID, limit int) ([]ledger.PublicDonationResponse, error)
}

// CampaignHandler serves the campaign endpoints
type CampaignHandler struct {
	BaseHandler
	campaigns CampaignService
	donations RecentDonations
}

// NewCampaignHandler creates a new CampaignHandler
func NewCampaignHandler(campaigns CampaignService, donations RecentDonations) *CampaignHandler {
	return &CampaignHandler{campaigns: campaigns, donations: donations}
}

// ListCampaignsQuery holds the query parameters of campaign listings
type ListCampaignsQuery struct {
	dto.ListQuery
	Search   string `form:"search" binding:"omitempty,max=100"`
	Category string `form:"category" binding:"omitempty,max=50"`
	Status   string `form:"status" binding:"omitempty,oneof=all pending active completed expired rejected cancelled"`
	Sort     string `form:"sort" binding:"omitempty,oneof=newest urgent popular goal ending"`
}

// CampaignDetail is a campaign together with its most recent public donations
type CampaignDetail struct {
	campaignapp.CampaignResponse
	RecentDonations []ledger.PublicDonationResponse `json:"recentDonations"`
}

func (h *CampaignHandler) filter(c *gin.Context) (campaignapp.ListCampaignsFilter, bool) {
	var q ListCampaignsQuery
	if !h.BindQuery(c, &q) {
		return campaignapp.ListCampaignsFilter{}, false
	}
	q.Normalize(shared.DefaultPageSize)
	return campaignapp.ListCampaignsFilter{
		Page:     q.Page,
		Limit:    q.Limit,
		Search:   strings.TrimSpace(q.Search),
		Category: q.Category,
		Status:   q.Status,
		Urgent:   queryBool(c, "urgent"),
		Featured: queryBool(c, "featured"),
		Sort:     q.Sort,
	}, true
}

// Create godoc
// @Summary      Create a campaign
// @Description  Submit a new fundraising campaign. It starts pending until an admin approves it.
// @Tags         campaigns
// @Accept       json
// @Produce      json
// @Param        request body campaignapp.CreateCampaignRequest true "Campaign"
// @Success      201 {object} dto.Response{data=campaignapp.CampaignResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /api/campaigns [post]
func (h *CampaignHandler) Create(c *gin.Context) {
	var req campaignapp.CreateCampaignRequest
	if !h.BindJSON(c, &req) {
		return
	}
	resp, err := h.campaigns.Create(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp, "Campaign created successfully")
}

// List godoc
// @Summary      List campaigns
// @Description  Active campaigns by default. status=all disables the status filter.
// @Tags         campaigns
// @Produce      json
// @Param        page query int false "Page number" default(1)
// @Param        limit query int false "Page size" default(10) maximum(100)
// @Param        search query string false "Search in title and description"
// @Param        category query string false "Category"
// @Param        status query string false "Status" default(active)
// @Param        urgent query bool false "Only urgent campaigns"
// @Param        featured query bool false "Only featured campaigns"
// @Param        sort query string false "Sort order" Enums(newest, urgent, popular, goal, ending)
// @Success      200 {object} dto.ListResponse{data=[]campaignapp.CampaignResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /api/campaigns [get]
func (h *CampaignHandler) List(c *gin.Context) {
	f, ok := h.filter(c)
	if !ok {
		return
	}
	page, err := h.campaigns.List(c.Request.Context(), f)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	writeList(c, page)
}

// Get godoc
// @Summary      Get a campaign
// @Description  Returns the campaign and its most recent public donations
// @Tags         campaigns
// @Produce      json
// @Param        id path string true "Campaign ID" format(uuid)
// @Success      200 {object} dto.Response{data=CampaignDetail}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /api/campaigns/{id} [get]
func (h *CampaignHandler) Get(c *gin.Context) {
	id, ok := h.ParamUUID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	resp, err := h.campaigns.Get(ctx, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	recent, err := h.donations.RecentPublic(ctx, &id, recentDonationsLimit)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if recent == nil {
		recent = []ledger.PublicDonationResponse{}
	}
	h.Success(c, CampaignDetail{CampaignResponse: *resp, RecentDonations: recent})
}

// Update godoc
// @Summary      Update a campaign
// @Description  Edit campaign fields. A status field approves, rejects or cancels the campaign.
// @Tags         campaigns
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Campaign ID" format(uuid)
// @Param        request body campaignapp.UpdateCampaignRequest true "Changes"
// @Success      200 {object} dto.Response{data=campaignapp.AdminCampaignResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /api/campaigns/{id} [put]
func (h *CampaignHandler) Update(c *gin.Context) {
	id, ok := h.ParamUUID(c, "id")
	if !ok {
		return
	}
	principal, ok := h.Principal(c)
	if !ok {
		return
	}
	var req campaignapp.UpdateCampaignRequest
	if !h.BindJSON(c, &req) {
		return
	}
	resp, err := h.campaigns.Update(c.Request.Context(), id, req, principal.AdminID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMessage(c, resp, "Campaign updated successfully")
}

// Delete godoc
// @Summary      Delete a campaign
// @Description  Refused when the campaign has completed donations
// @Tags         campaigns
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Campaign ID" format(uuid)
// @Success      200 {object} dto.Response
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /api/campaigns/{id} [delete]
func (h *CampaignHandler) Delete(c *gin.Context) {
	id, ok := h.ParamUUID(c, "id")
	if !ok {
		return
	}
	if err := h.campaigns.Delete(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMessage(c, nil, "Campaign deleted successfully")
}

// ListAdmin godoc
// @Summary      List campaigns for admins
// @Description  All statuses by default, with creator contact details
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        page query int false "Page number" default(1)
// @Param        limit query int false "Page size" default(10) maximum(100)
// @Param        search query string false "Search in title and description"
// @Param        category query string false "Category"
// @Param        status query string false "Status" default(all)
// @Param        sort query string false "Sort order"
// @Success      200 {object} dto.ListResponse{data=[]campaignapp.AdminCampaignResponse}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /api/admin/campaigns [get]
func (h *CampaignHandler) ListAdmin(c *gin.Context) {
	f, ok := h.filter(c)
	if !ok {
		return
	}
	if f.Status == "" {
		f.Status = "all"
	}
	page, err := h.campaigns.ListAdmin(c.Request.Context(), f)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	writeList(c, page)
}

// Approve godoc
// @Summary      Approve a campaign
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Campaign ID" format(uuid)
// @Success      200 {object} dto.Response{data=campaignapp.AdminCampaignResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /api/admin/campaigns/{id}/approve [put]
func (h *CampaignHandler) Approve(c *gin.Context) {
	id, ok := h.ParamUUID(c, "id")
	if !ok {
		return
	}
	principal, ok := h.Principal(c)
	if !ok {
		return
	}
	resp, err := h.campaigns.Approve(c.Request.Context(), id, principal.AdminID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMessage(c, resp, "Campaign approved successfully")
}

// Reject godoc
// @Summary      Reject a campaign
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Campaign ID" format(uuid)
// @Param        request body campaignapp.RejectCampaignRequest false "Reason"
// @Success      200 {object} dto.Response{data=campaignapp.AdminCampaignResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /api/admin/campaigns/{id}/reject [put]
func (h *CampaignHandler) Reject(c *gin.Context) {
	id, ok := h.ParamUUID(c, "id")
	if !ok {
		return
	}
	principal, ok := h.Principal(c)
	if !ok {
		return
	}
	var req campaignapp.RejectCampaignRequest
	// the body is optional
	if c.Request.ContentLength != 0 && !h.BindJSON(c, &req) {
		return
	}
	resp, err := h.campaigns.Reject(c.Request.Context(), id, principal.AdminID, strings.TrimSpace(req.Reason))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMessage(c, resp, "Campaign rejected")
}
