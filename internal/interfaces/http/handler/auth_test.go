package handler

import (
	"net/http"
	"testing"
	"time"

	"github.com/donation/backend/internal/application/identity"
	domainidentity "github.com/donation/backend/internal/domain/identity"
	"github.com/donation/backend/internal/domain/shared"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newAuthRouter(t *testing.T, principal *identity.Principal) (*gin.Engine, *mockAuthService) {
	t.Helper()
	svc := new(mockAuthService)
	h := NewAuthHandler(svc)

	r := gin.New()
	r.POST("/api/admin/login", h.Login)
	authed := r.Group("/api/admin", withPrincipal(principal))
	authed.POST("/logout", h.Logout)
	authed.GET("/profile", h.Profile)
	authed.POST("/admins", h.CreateAdmin)
	authed.PUT("/admins/:id/status", h.UpdateAdminStatus)

	t.Cleanup(func() { svc.AssertExpectations(t) })
	return r, svc
}

func TestAuthHandler_Login(t *testing.T) {
	r, svc := newAuthRouter(t, nil)
	req := identity.LoginRequest{Email: "admin@example.org", Password: "correct horse"}
	svc.On("Login", mock.Anything, req).Return(&identity.LoginResult{
		Token:     "signed.jwt.token",
		TokenType: "Bearer",
		ExpiresAt: time.Now().Add(time.Hour),
		Admin:     identity.AdminProfile{ID: uuid.New(), Email: req.Email, Role: domainidentity.RoleAdmin},
	}, nil)

	w := serve(r, http.MethodPost, "/api/admin/login", jsonBody(t, req))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"token":"signed.jwt.token"`)
	assert.NotContains(t, w.Body.String(), "password")
}

func TestAuthHandler_Login_InvalidCredentials(t *testing.T) {
	r, svc := newAuthRouter(t, nil)
	svc.On("Login", mock.Anything, mock.Anything).
		Return(nil, shared.NewDomainError(shared.CodeUnauthorized, "Invalid email or password"))

	w := serve(r, http.MethodPost, "/api/admin/login", jsonBody(t, map[string]string{"email": "x@example.org", "password": "nope"}))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Invalid email or password", decode(t, w).Error.Message)
}

func TestAuthHandler_Login_BadRequest(t *testing.T) {
	r, _ := newAuthRouter(t, nil)

	w := serve(r, http.MethodPost, "/api/admin/login", jsonBody(t, map[string]string{"email": "not-an-email"}))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	fields := map[string]bool{}
	for _, f := range decode(t, w).Errors {
		fields[f.Field] = true
	}
	assert.True(t, fields["email"])
	assert.True(t, fields["password"])
}

func TestAuthHandler_LogoutAndProfile(t *testing.T) {
	principal := testPrincipal(domainidentity.RoleAdmin)
	r, svc := newAuthRouter(t, principal)
	svc.On("Logout", mock.Anything, principal).Return(nil)
	svc.On("GetProfile", mock.Anything, principal.AdminID).
		Return(&identity.AdminProfile{ID: principal.AdminID, Email: principal.Email, Role: principal.Role}, nil)

	w := serve(r, http.MethodGet, "/api/admin/profile", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), principal.AdminID.String())

	w = serve(r, http.MethodPost, "/api/admin/logout", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuthHandler_Unauthenticated(t *testing.T) {
	r, _ := newAuthRouter(t, nil)

	w := serve(r, http.MethodGet, "/api/admin/profile", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w = serve(r, http.MethodPost, "/api/admin/logout", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthHandler_CreateAdmin(t *testing.T) {
	principal := testPrincipal(domainidentity.RoleSuperAdmin)
	r, svc := newAuthRouter(t, principal)
	req := identity.CreateAdminRequest{Email: "new@example.org", Name: "New Admin", Password: "long enough pw"}
	svc.On("CreateAdmin", mock.Anything, principal, req).
		Return(&identity.AdminProfile{ID: uuid.New(), Email: req.Email, Role: domainidentity.RoleAdmin}, nil).Once()
	svc.On("CreateAdmin", mock.Anything, principal, mock.Anything).
		Return(nil, shared.NewConflictError("An admin with this email already exists")).Once()

	w := serve(r, http.MethodPost, "/api/admin/admins", jsonBody(t, req))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "new@example.org")

	w = serve(r, http.MethodPost, "/api/admin/admins", jsonBody(t, req))
	assert.Equal(t, http.StatusConflict, w.Code)

	w = serve(r, http.MethodPost, "/api/admin/admins", jsonBody(t, map[string]string{"email": "new@example.org", "name": "x", "password": "short"}))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuthHandler_UpdateAdminStatus(t *testing.T) {
	principal := testPrincipal(domainidentity.RoleSuperAdmin)
	r, svc := newAuthRouter(t, principal)
	target := uuid.New()
	svc.On("SetAdminActive", mock.Anything, principal, target, false).
		Return(&identity.AdminProfile{ID: target, Email: "ops@example.org", Role: domainidentity.RoleAdmin, Active: false}, nil)

	w := serve(r, http.MethodPut, "/api/admin/admins/"+target.String()+"/status", jsonBody(t, map[string]bool{"active": false}))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"active":false`)

	w = serve(r, http.MethodPut, "/api/admin/admins/"+target.String()+"/status", jsonBody(t, map[string]string{}))
	assert.Equal(t, http.StatusBadRequest, w.Code, "the active flag is required")

	w = serve(r, http.MethodPut, "/api/admin/admins/not-a-uuid/status", jsonBody(t, map[string]bool{"active": true}))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
