package app

import (
	"context"
	"net/http"

	"github.com/crewboard/server/internal/module/collaboration"
	"github.com/crewboard/server/internal/module/identity"
	"github.com/crewboard/server/internal/module/notification"
	"github.com/crewboard/server/internal/module/project"
	"github.com/crewboard/server/internal/shared/config"
	"github.com/crewboard/server/internal/shared/metrics"
	"github.com/crewboard/server/internal/shared/middleware"
	"github.com/gin-gonic/gin"
	swaggerfiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/crewboard/server/cmd/server/docs" // swagger docs
)

// Handlers groups the HTTP handlers mounted by the router.
type Handlers struct {
	Teams     *collaboration.Handler
	Webhook   *collaboration.WebhookHandler
	Projects  *project.Handler
	Reminders *notification.Handler
}

// App represents the application.
type App struct {
	config    *config.Config
	router    *gin.Engine
	logger    *zap.Logger
	metrics   *metrics.Metrics
	scheduler *notification.Scheduler
}

// New creates the application and its router. scheduler may be nil when
// reminders are disabled.
func New(cfg *config.Config, logger *zap.Logger, m *metrics.Metrics, verifier *identity.Verifier, handlers *Handlers, scheduler *notification.Scheduler) *App {
	a := &App{
		config:    cfg,
		logger:    logger,
		metrics:   m,
		scheduler: scheduler,
	}
	a.router = a.setupRouter(verifier, handlers)
	return a
}

// setupRouter creates and configures the Gin router.
func (a *App) setupRouter(verifier middleware.TokenVerifier, h *Handlers) *gin.Engine {
	if a.config.Log.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Apply global middleware
	r.Use(middleware.Recovery(a.logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.Logging(a.logger))
	r.Use(middleware.Metrics(a.metrics))
	r.Use(middleware.CORS(a.config.CORS.AllowOrigins))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(a.metrics.Handler()))
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerfiles.Handler))

	v1 := r.Group("/api/v1")

	// Signature verified, no session
	h.Webhook.RegisterRoutes(v1)

	protected := v1.Group("")
	protected.Use(middleware.RequireAuth(verifier))
	h.Teams.RegisterRoutes(protected)
	h.Projects.RegisterRoutes(protected)

	internal := r.Group("/internal")
	internal.Use(middleware.RequireAdminToken(a.config.Server.AdminToken))
	h.Reminders.RegisterRoutes(internal)

	return r
}

// Router returns the HTTP router.
func (a *App) Router() *gin.Engine {
	return a.router
}

// Logger returns the application logger.
func (a *App) Logger() *zap.Logger {
	return a.logger
}

// Start starts background work.
func (a *App) Start() {
	if a.scheduler != nil {
		a.scheduler.Start()
	} else {
		a.logger.Info("reminder scheduler disabled")
	}
}

// Stop stops background work and flushes the logger. Connections are
// closed by the cleanup function returned from InitializeApp.
func (a *App) Stop(ctx context.Context) error {
	var err error
	if a.scheduler != nil {
		err = a.scheduler.Stop(ctx)
	}
	_ = a.logger.Sync()
	return err
}
