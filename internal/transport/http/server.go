package http

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	appsvc "hrdoc-assistant/internal/app"
	"hrdoc-assistant/internal/auditlog"
	"hrdoc-assistant/internal/bootstrap"
	"hrdoc-assistant/internal/transport/http/handler"
	"hrdoc-assistant/internal/transport/http/middleware"
)

// Deps is everything the router serves.
type Deps struct {
	Logger         *zap.Logger
	SessionCookie  middleware.SessionCookieConfig
	MaxUploadBytes int64

	Sessions  *appsvc.SessionService
	Chat      *appsvc.ChatService
	Documents *appsvc.DocumentService
	Admin     *appsvc.AdminService
	AuditLog  *auditlog.Log
	Health    *handler.HealthHandler
}

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	cfg := app.Config
	return NewEngine(Deps{
		Logger: app.Logger,
		SessionCookie: middleware.SessionCookieConfig{
			Secret: cfg.Auth.SessionSecret,
			TTL:    cfg.SessionIdleTTL(),
			Secure: cfg.Auth.SessionCookieSecure,
		},
		MaxUploadBytes: cfg.MaxUploadBytes(),
		Sessions:       app.Sessions,
		Chat:           app.Chat,
		Documents:      app.Documents,
		Admin:          app.Admin,
		AuditLog:       app.AuditLog,
		Health:         handler.NewHealthHandler(cfg.App.Name, cfg.App.Env, app.StartedAt, app.DependencyChecks()),
	})
}

func NewEngine(deps Deps) *gin.Engine {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if deps.SessionCookie.TTL <= 0 {
		deps.SessionCookie.TTL = 24 * time.Hour
	}

	router := gin.New()
	router.Use(middleware.RequestLogger(logger), middleware.Recovery(logger))
	router.MaxMultipartMemory = 8 << 20

	if deps.Health != nil {
		router.GET("/healthz", deps.Health.Check)
	}

	chatHandler := handler.NewChatHandler(deps.Chat, logger)
	adminHandler := handler.NewAdminHandler(deps.Admin, deps.AuditLog, logger)
	documentHandler := handler.NewDocumentHandler(deps.Documents, deps.MaxUploadBytes, logger)

	v1 := router.Group("/api/v1")
	v1.GET("/faq", chatHandler.FAQ)
	v1.Use(middleware.Session(deps.Sessions, deps.SessionCookie))

	chatGroup := v1.Group("/chat")
	chatGroup.GET("/history", chatHandler.GetHistory)
	chatGroup.POST("/messages", chatHandler.SendMessage)
	chatGroup.POST("/messages/stream", chatHandler.StreamMessage)
	chatGroup.POST("/reset", chatHandler.Reset)

	adminGroup := v1.Group("/admin")
	adminGroup.POST("/login", adminHandler.Login)
	adminGroup.POST("/logout", adminHandler.Logout)
	adminGroup.GET("/status", adminHandler.Status)

	protected := adminGroup.Group("")
	protected.Use(middleware.RequireAdmin(deps.Admin))
	protected.GET("/logs", adminHandler.ListLogs)
	protected.GET("/logs/download", adminHandler.DownloadLogs)
	protected.DELETE("/logs", adminHandler.ClearLogs)
	protected.GET("/documents", documentHandler.List)
	protected.POST("/documents", documentHandler.Upload)
	protected.PATCH("/documents/:name", documentHandler.SetActive)
	protected.DELETE("/documents/:name", documentHandler.Delete)

	return router
}
