package router

import (
	"net/http"
	"time"

	"github.com/donation/backend/internal/domain/identity"
	"github.com/donation/backend/internal/infrastructure/config"
	"github.com/donation/backend/internal/infrastructure/logger"
	"github.com/donation/backend/internal/interfaces/http/dto"
	"github.com/donation/backend/internal/interfaces/http/handler"
	"github.com/donation/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// Handlers are the HTTP handlers mounted by NewEngine. Media and Lifecycle
// are optional; their routes are absent when nil.
type Handlers struct {
	Campaign  *handler.CampaignHandler
	Donation  *handler.DonationHandler
	Auth      *handler.AuthHandler
	Report    *handler.ReportHandler
	Media     *handler.MediaHandler
	Lifecycle *handler.LifecycleHandler
	System    *handler.SystemHandler
}

// Dependencies holds everything NewEngine needs
type Dependencies struct {
	Config        *config.Config
	Logger        *zap.Logger
	Authenticator middleware.Authenticator
	// RateCounter backs the general and login rate limits; nil disables both
	RateCounter middleware.RateCounter
	// Meter records HTTP metrics; nil disables them
	Meter    metric.Meter
	Handlers Handlers
}

// NewEngine builds the gin engine with the full middleware chain and route table
func NewEngine(deps Dependencies) *gin.Engine {
	cfg := deps.Config
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	h := deps.Handlers

	middleware.SetupValidator()

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Order matters: the request id must exist before the span, the span
	// before the logger and the logger before anything that can fail.
	engine.Use(middleware.RequestID())
	engine.Use(middleware.Tracing(middleware.TracingConfig{
		ServiceName: cfg.Telemetry.ServiceName,
		Enabled:     cfg.Telemetry.Enabled,
		Filter:      func(r *http.Request) bool { return r.URL.Path != "/health" },
	}))
	engine.Use(middleware.SpanEnricher())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.HTTPMetrics(deps.Meter, log))
	engine.Use(middleware.Profiling(middleware.ProfilingConfig{
		Enabled:          cfg.Telemetry.ProfilingEnabled,
		SkipPathPrefixes: middleware.DefaultProfilingConfig().SkipPathPrefixes,
	}))

	security := middleware.DefaultSecurityConfig()
	security.HSTSEnabled = cfg.App.IsProduction()
	engine.Use(middleware.SecureWithConfig(security))

	cors := middleware.DefaultCORSConfig()
	cors.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	if len(cfg.HTTP.CORSAllowMethods) > 0 {
		cors.AllowMethods = cfg.HTTP.CORSAllowMethods
	}
	if len(cfg.HTTP.CORSAllowHeaders) > 0 {
		cors.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	}
	if h := middleware.CORSWithConfig(cors); h != nil {
		engine.Use(h)
	}
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	if cfg.HTTP.RateLimitEnabled && deps.RateCounter != nil {
		engine.Use(middleware.RateLimit(deps.RateCounter, middleware.RateLimitConfig{
			Name:   "api",
			Limit:  cfg.HTTP.RateLimitRequests,
			Window: cfg.HTTP.RateLimitWindow,
			Logger: log,
		}))
		log.Info("Rate limiting enabled",
			zap.Int("requests", cfg.HTTP.RateLimitRequests),
			zap.Duration("window", cfg.HTTP.RateLimitWindow),
		)
	}

	adminAuth := middleware.AdminAuth(deps.Authenticator, log)
	superadmin := middleware.RequireRole(identity.RoleSuperAdmin)

	engine.GET("/health", h.System.Health)
	engine.GET("/swagger/*any",
		middleware.SwaggerProtection(middleware.SwaggerConfig{
			Enabled:     cfg.Swagger.Enabled,
			RequireAuth: cfg.Swagger.RequireAuth,
			AllowedIPs:  cfg.Swagger.AllowedIPs,
		}, adminAuth, log),
		ginSwagger.WrapHandler(swaggerFiles.Handler),
	)

	r := NewRouter(engine)

	campaigns := NewDomainGroup("campaigns", "/campaigns")
	campaigns.POST("", h.Campaign.Create).
		GET("", h.Campaign.List).
		GET("/stats/overview", h.Report.CampaignOverview).
		GET("/:id", h.Campaign.Get).
		PUT("/:id", adminAuth, h.Campaign.Update).
		DELETE("/:id", adminAuth, h.Campaign.Delete)

	donors := NewDomainGroup("donors", "/donors")
	donors.POST("", h.Donation.Record).
		GET("", h.Donation.List).
		GET("/stats", h.Report.DonationStats).
		GET("/:id", h.Donation.Get)

	admin := NewDomainGroup("admin", "/admin")
	admin.POST("/login", loginRateLimit(cfg, deps.RateCounter, log), h.Auth.Login)

	authed := admin.Group("admin-authenticated", "").Use(adminAuth)
	authed.POST("/logout", h.Auth.Logout).
		GET("/profile", h.Auth.Profile).
		GET("/summary", h.Report.AdminSummary).
		GET("/donors", h.Donation.ListAdmin).
		PUT("/donors/:id/payment-status", h.Donation.UpdatePaymentStatus).
		GET("/campaigns", h.Campaign.ListAdmin).
		PUT("/campaigns/:id/approve", h.Campaign.Approve).
		PUT("/campaigns/:id/reject", h.Campaign.Reject).
		POST("/admins", superadmin, h.Auth.CreateAdmin).
		PUT("/admins/:id/status", superadmin, h.Auth.UpdateAdminStatus)
	if h.Media != nil {
		authed.POST("/campaigns/:id/media/upload-url", h.Media.UploadURL).
			POST("/campaigns/:id/media", h.Media.Attach)
	}
	if h.Lifecycle != nil {
		authed.POST("/lifecycle/sweep", superadmin, h.Lifecycle.RunSweep)
	}

	r.Register(campaigns).Register(donors).Register(admin)
	r.Setup()

	engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, dto.NewErrorResponse(dto.ErrCodeRouteNotFound,
			"Route "+c.Request.Method+" "+c.Request.URL.Path+" not found", middleware.GetRequestID(c)))
	})

	return engine
}

// loginRateLimit is the stricter per-IP limit on login attempts
func loginRateLimit(cfg *config.Config, counter middleware.RateCounter, log *zap.Logger) gin.HandlerFunc {
	if !cfg.HTTP.AuthRateLimitEnabled || counter == nil {
		return func(c *gin.Context) { c.Next() }
	}
	window := cfg.HTTP.AuthRateLimitWindow
	if window <= 0 {
		window = 15 * time.Minute
	}
	return middleware.RateLimit(counter, middleware.RateLimitConfig{
		Name:   "login",
		Limit:  cfg.HTTP.AuthRateLimitRequests,
		Window: window,
		Logger: log,
	})
}
