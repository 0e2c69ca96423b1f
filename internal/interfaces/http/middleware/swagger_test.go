package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func newSwaggerRouter(cfg SwaggerConfig, auth gin.HandlerFunc) *gin.Engine {
	router := gin.New()
	router.GET("/swagger/*any", SwaggerProtection(cfg, auth, nil), func(c *gin.Context) {
		c.String(http.StatusOK, "docs")
	})
	return router
}

func getSwagger(router http.Handler, remoteAddr string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/swagger/index.html", nil)
	req.RemoteAddr = remoteAddr
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestSwaggerProtection_Disabled(t *testing.T) {
	w := getSwagger(newSwaggerRouter(SwaggerConfig{}, nil), "10.0.0.1:1")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "ROUTE_NOT_FOUND")
}

func TestSwaggerProtection_Open(t *testing.T) {
	w := getSwagger(newSwaggerRouter(SwaggerConfig{Enabled: true}, nil), "10.0.0.1:1")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSwaggerProtection_IPAllowList(t *testing.T) {
	router := newSwaggerRouter(SwaggerConfig{
		Enabled:    true,
		AllowedIPs: []string{"127.0.0.1", "10.1.0.0/16", "not-an-ip", "::1"},
	}, nil)

	tests := []struct {
		addr string
		want int
	}{
		{"127.0.0.1:5000", http.StatusOK},
		{"10.1.42.7:5000", http.StatusOK},
		{"[::1]:5000", http.StatusOK},
		{"10.2.0.1:5000", http.StatusForbidden},
		{"192.168.1.1:5000", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.addr, func(t *testing.T) {
			assert.Equal(t, tt.want, getSwagger(router, tt.addr).Code)
		})
	}
}

func TestSwaggerProtection_RequireAuth(t *testing.T) {
	deny := func(c *gin.Context) { c.AbortWithStatus(http.StatusUnauthorized) }
	allow := func(c *gin.Context) {}

	w := getSwagger(newSwaggerRouter(SwaggerConfig{Enabled: true, RequireAuth: true}, deny), "10.0.0.1:1")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = getSwagger(newSwaggerRouter(SwaggerConfig{Enabled: true, RequireAuth: true}, allow), "10.0.0.1:1")
	assert.Equal(t, http.StatusOK, w.Code)
}
