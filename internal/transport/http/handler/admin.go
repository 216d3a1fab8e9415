package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"hrdoc-assistant/internal/app"
	"hrdoc-assistant/internal/auditlog"
	"hrdoc-assistant/internal/transport/http/middleware"
	"hrdoc-assistant/internal/transport/http/response"
)

const logExportFilename = "chat_logs.json"

type AdminHandler struct {
	adminService *app.AdminService
	auditLog     *auditlog.Log
	logger       *zap.Logger
}

type AdminLoginRequest struct {
	Secret string `json:"secret" binding:"required"`
}

func NewAdminHandler(adminService *app.AdminService, auditLog *auditlog.Log, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{adminService: adminService, auditLog: auditLog, logger: logger}
}

func (h *AdminHandler) Login(c *gin.Context) {
	var req AdminLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	if err := h.adminService.Login(c.Request.Context(), middleware.SessionID(c), req.Secret); err != nil {
		switch {
		case errors.Is(err, app.ErrAuthFailure):
			response.Error(c, http.StatusUnauthorized, response.CodeAuthFailure, "incorrect admin secret")
		case errors.Is(err, app.ErrSessionNotFound):
			response.Error(c, http.StatusNotFound, response.CodeSessionNotFound, err.Error())
		default:
			h.logger.Error("admin login failed", zap.Error(err))
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "admin login failed")
		}
		return
	}
	response.OK(c, gin.H{"admin": true})
}

func (h *AdminHandler) Logout(c *gin.Context) {
	if err := h.adminService.Logout(c.Request.Context(), middleware.SessionID(c)); err != nil {
		h.logger.Error("admin logout failed", zap.Error(err))
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "admin logout failed")
		return
	}
	response.OK(c, gin.H{"admin": false})
}

func (h *AdminHandler) Status(c *gin.Context) {
	ok, err := h.adminService.IsAdmin(c.Request.Context(), middleware.SessionID(c))
	if err != nil {
		response.Error(c, http.StatusServiceUnavailable, response.CodeStoreUnavailable, "session store unavailable")
		return
	}
	response.OK(c, gin.H{"admin": ok})
}

func (h *AdminHandler) ListLogs(c *gin.Context) {
	listing, err := h.auditLog.List(c.Request.Context())
	if err != nil {
		h.logger.Error("list chat logs failed", zap.Error(err))
		response.Error(c, http.StatusServiceUnavailable, response.CodeStoreUnavailable, "chat logs unavailable")
		return
	}
	response.OK(c, listing)
}

func (h *AdminHandler) DownloadLogs(c *gin.Context) {
	raw, err := h.auditLog.Export(c.Request.Context())
	if err != nil {
		h.logger.Error("export chat logs failed", zap.Error(err))
		response.Error(c, http.StatusServiceUnavailable, response.CodeStoreUnavailable, "chat logs unavailable")
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+logExportFilename+`"`)
	c.Data(http.StatusOK, "application/json", raw)
}

// ClearLogs removes the local fallback file. Records in the primary store
// are kept.
func (h *AdminHandler) ClearLogs(c *gin.Context) {
	if err := h.auditLog.ClearAll(c.Request.Context()); err != nil {
		h.logger.Error("clear chat logs failed", zap.Error(err))
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "clear chat logs failed")
		return
	}
	response.OK(c, gin.H{"cleared": true})
}
