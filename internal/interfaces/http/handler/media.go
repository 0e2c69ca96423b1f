package handler

import (
	"context"

	campaignapp "github.com/donation/backend/internal/application/campaign"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// MediaService issues upload URLs and attaches uploaded objects to campaigns
type MediaService interface {
	CreateUploadURL(ctx context.Context, campaignID uuid.UUID, req campaignapp.UploadURLRequest) (*campaignapp.UploadURLResponse, error)
	Attach(ctx context.Context, campaignID uuid.UUID, req campaignapp.AttachMediaRequest) (*campaignapp.MediaResponse, error)
}

// MediaHandler serves campaign image and document uploads
type MediaHandler struct {
	BaseHandler
	media MediaService
}

// NewMediaHandler creates a new MediaHandler
func NewMediaHandler(media MediaService) *MediaHandler {
	return &MediaHandler{media: media}
}

// UploadURL godoc
// @Summary      Presigned upload URL
// @Description  Returns a short lived URL the client PUTs the file to
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Campaign ID" format(uuid)
// @Param        request body campaignapp.UploadURLRequest true "File"
// @Success      200 {object} dto.Response{data=campaignapp.UploadURLResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /api/admin/campaigns/{id}/media/upload-url [post]
func (h *MediaHandler) UploadURL(c *gin.Context) {
	id, ok := h.ParamUUID(c, "id")
	if !ok {
		return
	}
	var req campaignapp.UploadURLRequest
	if !h.BindJSON(c, &req) {
		return
	}
	resp, err := h.media.CreateUploadURL(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Attach godoc
// @Summary      Attach uploaded media
// @Description  Sets the campaign image or adds a document once the upload has completed
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Campaign ID" format(uuid)
// @Param        request body campaignapp.AttachMediaRequest true "Uploaded object"
// @Success      200 {object} dto.Response{data=campaignapp.MediaResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /api/admin/campaigns/{id}/media [post]
func (h *MediaHandler) Attach(c *gin.Context) {
	id, ok := h.ParamUUID(c, "id")
	if !ok {
		return
	}
	var req campaignapp.AttachMediaRequest
	if !h.BindJSON(c, &req) {
		return
	}
	resp, err := h.media.Attach(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMessage(c, resp, "Media attached")
}
