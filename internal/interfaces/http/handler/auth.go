package handler

import (
	"context"

	"github.com/donation/backend/internal/application/identity"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AuthService is the admin auth gate as seen by the HTTP layer
type AuthService interface {
	Login(ctx context.Context, req identity.LoginRequest) (*identity.LoginResult, error)
	Logout(ctx context.Context, principal *identity.Principal) error
	GetProfile(ctx context.Context, adminID uuid.UUID) (*identity.AdminProfile, error)
	CreateAdmin(ctx context.Context, actor *identity.Principal, req identity.CreateAdminRequest) (*identity.AdminProfile, error)
	SetAdminActive(ctx context.Context, actor *identity.Principal, adminID uuid.UUID, active bool) (*identity.AdminProfile, error)
}

// AuthHandler handles admin authentication requests
type AuthHandler struct {
	BaseHandler
	authService AuthService
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
	}
}

// Login godoc
// @Summary      Admin login
// @Description  Authenticate an admin with email and password and obtain a bearer token
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body identity.LoginRequest true "Login credentials"
// @Success      200 {object} dto.Response{data=identity.LoginResult}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      429 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /api/admin/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req identity.LoginRequest
	if !h.BindJSON(c, &req) {
		return
	}

	result, err := h.authService.Login(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMessage(c, result, "Login successful")
}

// Logout godoc
// @Summary      Admin logout
// @Description  Revoke the presented token
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} dto.Response
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /api/admin/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	principal, ok := h.Principal(c)
	if !ok {
		return
	}
	if err := h.authService.Logout(c.Request.Context(), principal); err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMessage(c, nil, "Logged out successfully")
}

// Profile godoc
// @Summary      Current admin
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} dto.Response{data=identity.AdminProfile}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /api/admin/profile [get]
func (h *AuthHandler) Profile(c *gin.Context) {
	principal, ok := h.Principal(c)
	if !ok {
		return
	}
	profile, err := h.authService.GetProfile(c.Request.Context(), principal.AdminID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, profile)
}

// CreateAdmin godoc
// @Summary      Create an admin
// @Description  Superadmins only
// @Tags         auth
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body identity.CreateAdminRequest true "New admin"
// @Success      201 {object} dto.Response{data=identity.AdminProfile}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /api/admin/admins [post]
func (h *AuthHandler) CreateAdmin(c *gin.Context) {
	principal, ok := h.Principal(c)
	if !ok {
		return
	}
	var req identity.CreateAdminRequest
	if !h.BindJSON(c, &req) {
		return
	}
	profile, err := h.authService.CreateAdmin(c.Request.Context(), principal, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, profile, "Admin created successfully")
}

// UpdateAdminStatus godoc
// @Summary      Enable or disable an admin
// @Description  Superadmins only. A disabled admin's existing tokens stop working immediately.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Admin ID" format(uuid)
// @Param        request body identity.UpdateAdminStatusRequest true "New status"
// @Success      200 {object} dto.Response{data=identity.AdminProfile}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /api/admin/admins/{id}/status [put]
func (h *AuthHandler) UpdateAdminStatus(c *gin.Context) {
	id, ok := h.ParamUUID(c, "id")
	if !ok {
		return
	}
	principal, ok := h.Principal(c)
	if !ok {
		return
	}
	var req identity.UpdateAdminStatusRequest
	if !h.BindJSON(c, &req) {
		return
	}
	profile, err := h.authService.SetAdminActive(c.Request.Context(), principal, id, *req.Active)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMessage(c, profile, "Admin status updated")
}
