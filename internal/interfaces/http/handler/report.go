package handler

import (
	"context"

	reportapp "github.com/donation/backend/internal/application/report"
	"github.com/donation/backend/internal/domain/shared"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ReportService is the reporting layer as seen by the HTTP layer
type ReportService interface {
	CampaignOverview(ctx context.Context) (*reportapp.CampaignOverview, error)
	DonationStats(ctx context.Context, campaignID *uuid.UUID) (*reportapp.DonationStats, error)
	AdminSummary(ctx context.Context) (*reportapp.AdminSummary, error)
}

// ReportHandler handles the statistics endpoints
type ReportHandler struct {
	BaseHandler
	reportService ReportService
}

// NewReportHandler creates a new ReportHandler
func NewReportHandler(reportService ReportService) *ReportHandler {
	return &ReportHandler{
		reportService: reportService,
	}
}

// CampaignOverview godoc
// @Summary      Campaign statistics
// @Description  Counts by status, goal and collected totals, and per category breakdown
// @Tags         reports
// @Produce      json
// @Success      200 {object} dto.Response{data=reportapp.CampaignOverview}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /api/campaigns/stats/overview [get]
func (h *ReportHandler) CampaignOverview(c *gin.Context) {
	overview, err := h.reportService.CampaignOverview(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, overview)
}

// DonationStats godoc
// @Summary      Donation statistics
// @Description  Totals, top donors, recent donations and 30 day daily buckets over completed donations
// @Tags         reports
// @Produce      json
// @Param        campaign query string false "Restrict to one campaign" format(uuid)
// @Success      200 {object} dto.Response{data=reportapp.DonationStats}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /api/donors/stats [get]
func (h *ReportHandler) DonationStats(c *gin.Context) {
	campaignID, ok := queryUUID(c, "campaign")
	if !ok {
		h.HandleError(c, shared.NewValidationError([]shared.FieldError{{Field: "campaign", Message: "Invalid UUID format"}}))
		return
	}
	stats, err := h.reportService.DonationStats(c.Request.Context(), campaignID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, stats)
}

// AdminSummary godoc
// @Summary      Admin dashboard
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} dto.Response{data=reportapp.AdminSummary}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /api/admin/summary [get]
func (h *ReportHandler) AdminSummary(c *gin.Context) {
	summary, err := h.reportService.AdminSummary(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, summary)
}
