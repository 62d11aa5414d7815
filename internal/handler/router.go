package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/oriontel/backoffice-api/internal/middleware"
	"github.com/oriontel/backoffice-api/internal/models"
	"github.com/oriontel/backoffice-api/pkg/config"
	"github.com/oriontel/backoffice-api/pkg/logger"
	"github.com/oriontel/backoffice-api/pkg/middleware/cors"
	"github.com/oriontel/backoffice-api/pkg/middleware/requestid"
)

// Handlers bundles the route handlers for router construction.
type Handlers struct {
	Auth     *AuthHandler
	Calendar *CalendarHandler
	Email    *EmailHandler
	Pbx      *PbxHandler
	System   *SystemHandler
}

// NewRouter assembles the gin engine with all routes and middleware.
func NewRouter(cfg *config.Config, log *zap.Logger, validator middleware.TokenValidator, h Handlers) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestid.Middleware())
	router.Use(logger.GinMiddleware(log))
	router.Use(middleware.Metrics())
	router.Use(cors.New(cfg.CORS.AllowedOrigins))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics/prometheus", middleware.PrometheusHandler())

	auth := router.Group("/auth")
	{
		auth.POST("/register", h.Auth.Register)
		auth.POST("/login", h.Auth.Login)
		auth.GET("/me", middleware.Auth(validator), h.Auth.Me)
	}

	protected := router.Group("")
	protected.Use(middleware.Auth(validator))

	events := protected.Group("/events")
	{
		events.POST("", h.Calendar.Create)
		events.GET("", h.Calendar.List)
		events.GET("/metrics", h.Calendar.Metrics)
		events.GET("/:id", h.Calendar.Get)
		events.PUT("/:id", h.Calendar.Update)
		events.DELETE("/:id", h.Calendar.Delete)
	}

	emails := protected.Group("/emails")
	{
		emails.POST("", h.Email.Send)
		emails.GET("", h.Email.List)
		emails.GET("/metrics", h.Email.Metrics)
		emails.GET("/templates", h.Email.ListTemplates)
		emails.POST("/templates", h.Email.CreateTemplate)
		emails.GET("/templates/:id", h.Email.GetTemplate)
		emails.GET("/:id", h.Email.Get)
		emails.PUT("/:id", h.Email.Update)
		emails.DELETE("/:id", h.Email.Delete)
	}

	extensions := protected.Group("/extensions")
	{
		extensions.POST("", middleware.RequireRole(models.RoleAdmin), h.Pbx.CreateExtension)
		extensions.GET("", h.Pbx.ListExtensions)
		extensions.GET("/:id", h.Pbx.GetExtension)
		extensions.PUT("/:id", middleware.RequireRole(models.RoleAdmin), h.Pbx.UpdateExtension)
		extensions.DELETE("/:id", middleware.RequireRole(models.RoleAdmin), h.Pbx.DeleteExtension)
	}

	calls := protected.Group("/calls")
	{
		calls.POST("", h.Pbx.RecordCall)
		calls.GET("", h.Pbx.ListCalls)
		calls.GET("/active", h.Pbx.ActiveCalls)
		calls.GET("/export", h.Pbx.ExportCalls)
		calls.GET("/:id", h.Pbx.GetCall)
		calls.PUT("/:id", h.Pbx.CloseCall)
	}

	system := protected.Group("/system")
	{
		system.POST("/metrics", h.System.IngestMetrics)
		system.GET("/metrics", h.System.LatestMetrics)
		system.GET("/metrics/history", h.System.MetricsHistory)
		system.GET("/status", h.System.Status)
		system.GET("/preferences", h.System.ListPreferences)
		system.PUT("/preferences", middleware.RequireRole(models.RoleAdmin, models.RoleManager), h.System.SetPreference)
	}

	return router
}
