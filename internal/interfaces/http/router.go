// Package http wires the gin engine: middleware chain, authenticated API
// routes, public quotation routes, job triggers and operational endpoints.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/saludplena/claims-engine/internal/infrastructure/auth/token"
	"github.com/saludplena/claims-engine/internal/infrastructure/monitoring/logging"
	"github.com/saludplena/claims-engine/internal/infrastructure/monitoring/prometheus"
	"github.com/saludplena/claims-engine/internal/interfaces/http/handlers"
	"github.com/saludplena/claims-engine/internal/interfaces/http/middleware"
)

// RouterConfig aggregates the handlers and cross-cutting dependencies the
// route tree needs.
type RouterConfig struct {
	// Handlers
	Internments   *handlers.InternmentHandler
	Medications   *handlers.MedicationHandler
	Notifications *handlers.NotificationHandler
	Public        *handlers.PublicQuotationHandler
	Jobs          *handlers.JobsHandler
	Health        *handlers.HealthHandler

	// Auth
	TokenVerifier    token.Verifier
	JobTriggerSecret string

	// Infrastructure
	Logger           logging.Logger
	Metrics          *prometheus.AppMetrics
	MetricsCollector prometheus.MetricsCollector
	CORS             *middleware.CORSConfig

	// Mode is the gin mode: debug, release or test.
	Mode string
}

// NewRouter builds the full route tree.
func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Mode != "" {
		gin.SetMode(cfg.Mode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())

	corsCfg := middleware.DefaultCORSConfig()
	if cfg.CORS != nil {
		corsCfg = *cfg.CORS
	}
	r.Use(middleware.CORS(corsCfg))

	if cfg.Logger != nil {
		r.Use(middleware.RequestLogging(cfg.Logger, cfg.Metrics, middleware.DefaultLoggingConfig()))
	}

	// Operational endpoints, no auth.
	if cfg.Health != nil {
		r.GET("/healthz", cfg.Health.Liveness)
		r.GET("/readyz", cfg.Health.Readiness)
	}
	if cfg.MetricsCollector != nil {
		r.GET("/metrics", gin.WrapH(cfg.MetricsCollector.Handler()))
	}

	// Public pharmacy endpoints: the URL token is the credential.
	if cfg.Public != nil {
		pub := r.Group("/public/quotations")
		pub.GET("/:token", cfg.Public.Get)
		pub.POST("/:token", cfg.Public.Submit)
	}

	// Scheduled-job triggers, guarded by the shared secret.
	if cfg.Jobs != nil {
		jobs := r.Group("/jobs", middleware.RequireJobSecret(cfg.JobTriggerSecret))
		jobs.POST("/internments/inactivate", cfg.Jobs.InactivateInternments)
		jobs.POST("/internments/finalize", cfg.Jobs.FinalizeInternments)
		jobs.POST("/medications/expire-quotations", cfg.Jobs.ExpireQuotations)
	}

	// Authenticated API.
	api := r.Group("/api/v1", middleware.RequireAuth(cfg.TokenVerifier))
	registerInternmentRoutes(api, cfg.Internments)
	registerMedicationRoutes(api, cfg.Medications)
	registerNotificationRoutes(api, cfg.Notifications)

	return r
}

func registerInternmentRoutes(api *gin.RouterGroup, h *handlers.InternmentHandler) {
	if h == nil {
		return
	}
	g := api.Group("/internments")
	g.POST("", middleware.RequireRole(token.RoleProvider), h.Report)
	g.GET("", middleware.RequireRole(token.RoleProvider), h.List)
	g.GET("/:id", h.Get)
	g.POST("/:id/extensions", middleware.RequireRole(token.RoleProvider), h.RequestExtension)
	g.POST("/:id/finalize", middleware.RequireRole(token.RoleProvider), h.Finalize)
	g.POST("/:id/audit", middleware.RequireRole(token.RoleOperator), h.SendToAudit)
	g.POST("/:id/extensions/:extID/resolve", middleware.RequireRole(token.RoleAuditor), h.ResolveExtension)
}

func registerMedicationRoutes(api *gin.RouterGroup, h *handlers.MedicationHandler) {
	if h == nil {
		return
	}
	g := api.Group("/medications")
	g.POST("", middleware.RequireRole(token.RoleProvider), h.Create)
	g.GET("/:id", h.Get)
	g.POST("/:id/quotations", middleware.RequireRole(token.RoleOperator), h.SendToQuotation)
	g.POST("/:id/authorize", middleware.RequireRole(token.RoleAuditor), h.Authorize)
}

func registerNotificationRoutes(api *gin.RouterGroup, h *handlers.NotificationHandler) {
	if h == nil {
		return
	}
	g := api.Group("/notifications")
	g.GET("", middleware.RequireRole(token.RoleProvider), h.List)
	g.POST("/:id/read", middleware.RequireRole(token.RoleProvider), h.MarkRead)
}

// Handler exposes the engine as a plain http.Handler for the server and tests.
func Handler(cfg RouterConfig) http.Handler {
	return NewRouter(cfg)
}
