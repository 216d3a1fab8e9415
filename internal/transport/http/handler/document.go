package handler

import (
	"errors"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"hrdoc-assistant/internal/app"
	"hrdoc-assistant/internal/transport/http/response"
)

type DocumentHandler struct {
	documentService *app.DocumentService
	maxUploadBytes  int64
	logger          *zap.Logger
}

type SetActiveRequest struct {
	Active *bool `json:"active" binding:"required"`
}

func NewDocumentHandler(documentService *app.DocumentService, maxUploadBytes int64, logger *zap.Logger) *DocumentHandler {
	return &DocumentHandler{
		documentService: documentService,
		maxUploadBytes:  maxUploadBytes,
		logger:          logger,
	}
}

func (h *DocumentHandler) List(c *gin.Context) {
	docs, err := h.documentService.List(c.Request.Context())
	if err != nil {
		h.writeError(c, err, "list documents failed")
		return
	}
	response.OK(c, gin.H{"documents": docs, "total": len(docs)})
}

func (h *DocumentHandler) Upload(c *gin.Context) {
	if h.maxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Error(c, http.StatusRequestEntityTooLarge, response.CodeUploadTooLarge, "file too large")
			return
		}
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "missing file field")
		return
	}
	if !strings.EqualFold(filepath.Ext(fileHeader.Filename), ".pdf") {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "only .pdf files are accepted")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "read upload failed")
		return
	}
	defer file.Close()

	doc, err := h.documentService.Upload(c.Request.Context(), app.UploadInput{
		Name:     c.PostForm("name"),
		Filename: fileHeader.Filename,
		Body:     file,
	})
	if err != nil {
		h.writeError(c, err, "upload document failed")
		return
	}
	response.OK(c, doc)
}

func (h *DocumentHandler) SetActive(c *gin.Context) {
	var req SetActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	name := c.Param("name")
	if err := h.documentService.SetActive(c.Request.Context(), name, *req.Active); err != nil {
		h.writeError(c, err, "update document failed")
		return
	}
	response.OK(c, gin.H{"name": name, "active": *req.Active})
}

func (h *DocumentHandler) Delete(c *gin.Context) {
	name := c.Param("name")
	if err := h.documentService.Delete(c.Request.Context(), name); err != nil {
		h.writeError(c, err, "delete document failed")
		return
	}
	response.OK(c, gin.H{"deleted": name})
}

func (h *DocumentHandler) writeError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, app.ErrInvalidInput):
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
	case errors.Is(err, app.ErrExtractionFailed):
		response.Error(c, http.StatusUnprocessableEntity, response.CodeExtractionFailed, err.Error())
	case errors.Is(err, app.ErrDocumentNotFound):
		response.Error(c, http.StatusNotFound, response.CodeDocumentNotFound, err.Error())
	case errors.Is(err, app.ErrStoreUnavailable):
		h.logger.Error(fallback, zap.Error(err))
		response.Error(c, http.StatusServiceUnavailable, response.CodeStoreUnavailable, "document store unavailable")
	default:
		h.logger.Error(fallback, zap.Error(err))
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, fallback)
	}
}
