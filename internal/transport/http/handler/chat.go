package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"hrdoc-assistant/internal/app"
	"hrdoc-assistant/internal/session"
	"hrdoc-assistant/internal/transport/http/middleware"
	"hrdoc-assistant/internal/transport/http/response"
)

type ChatHandler struct {
	chatService *app.ChatService
	logger      *zap.Logger
}

type SendMessageRequest struct {
	Content string `json:"content" binding:"required"`
}

type sessionView struct {
	SessionID string         `json:"session_id"`
	State     session.State  `json:"state"`
	Turns     []session.Turn `json:"turns"`
}

type sendMessageView struct {
	Reply   string       `json:"reply"`
	Failed  bool         `json:"failed"`
	Session *sessionView `json:"session,omitempty"`
}

func NewChatHandler(chatService *app.ChatService, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{chatService: chatService, logger: logger}
}

func newSessionView(sess *session.Session) sessionView {
	return sessionView{
		SessionID: sess.ID,
		State:     sess.State,
		Turns:     sess.Messages(),
	}
}

func (h *ChatHandler) FAQ(c *gin.Context) {
	response.OK(c, gin.H{"questions": app.FAQ()})
}

func (h *ChatHandler) GetHistory(c *gin.Context) {
	sess, err := h.chatService.History(c.Request.Context(), middleware.SessionID(c))
	if err != nil {
		h.writeError(c, err, "get history failed")
		return
	}
	response.OK(c, newSessionView(sess))
}

func (h *ChatHandler) SendMessage(c *gin.Context) {
	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	result, err := h.chatService.SendMessage(c.Request.Context(), middleware.SessionID(c), req.Content)
	if err != nil {
		h.writeError(c, err, "send message failed")
		return
	}

	view := sendMessageView{Reply: result.Reply, Failed: result.Failed}
	if result.Session != nil {
		sv := newSessionView(result.Session)
		view.Session = &sv
	}
	response.OK(c, view)
}

// StreamMessage relays reply fragments as server-sent events. The stream is
// opened on the first fragment, so a turn that cannot start is answered with
// a plain JSON error. It ends with "event: done" carrying the full reply, or
// "event: error" carrying the recorded failure text.
func (h *ChatHandler) StreamMessage(c *gin.Context) {
	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "stream not supported")
		return
	}

	started := false
	open := func() {
		if started {
			return
		}
		started = true
		c.Header("Content-Type", "text/event-stream")
		c.Header("Cache-Control", "no-cache")
		c.Header("Connection", "keep-alive")
		c.Header("X-Accel-Buffering", "no")
		c.Status(http.StatusOK)
	}

	result, err := h.chatService.StreamMessage(c.Request.Context(), middleware.SessionID(c), req.Content, func(chunk string) error {
		open()
		if writeErr := writeSSE(c.Writer, "", chunk); writeErr != nil {
			return writeErr
		}
		flusher.Flush()
		return nil
	})
	if err != nil {
		if !started {
			h.writeError(c, err, "send message failed")
			return
		}
		h.logger.Error("finish streamed turn failed", zap.Error(err))
		if writeErr := writeSSE(c.Writer, "error", "send message failed"); writeErr == nil {
			flusher.Flush()
		}
		return
	}

	open()
	event := "done"
	if result.Failed {
		event = "error"
	}
	if writeErr := writeSSE(c.Writer, event, result.Reply); writeErr == nil {
		flusher.Flush()
	}
}

func (h *ChatHandler) Reset(c *gin.Context) {
	sess, err := h.chatService.Reset(c.Request.Context(), middleware.SessionID(c))
	if err != nil {
		h.writeError(c, err, "reset conversation failed")
		return
	}
	response.OK(c, newSessionView(sess))
}

func (h *ChatHandler) writeError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, app.ErrEmptyMessage):
		response.Error(c, http.StatusBadRequest, response.CodeEmptyMessage, err.Error())
	case errors.Is(err, app.ErrInvalidInput):
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
	case errors.Is(err, app.ErrRequestInFlight), errors.Is(err, app.ErrConcurrentUpdate):
		response.Error(c, http.StatusConflict, response.CodeRequestInFlight, err.Error())
	case errors.Is(err, app.ErrSessionNotFound):
		response.Error(c, http.StatusNotFound, response.CodeSessionNotFound, err.Error())
	default:
		h.logger.Error(fallback, zap.Error(err))
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, fallback)
	}
}

// writeSSE frames data as one event, one data line per line of text.
func writeSSE(w gin.ResponseWriter, event, data string) error {
	var b strings.Builder
	if event != "" {
		b.WriteString("event: ")
		b.WriteString(event)
		b.WriteString("\n")
	}
	data = strings.ReplaceAll(data, "\r\n", "\n")
	for _, line := range strings.Split(data, "\n") {
		b.WriteString("data: ")
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString("\n")
	_, err := w.WriteString(b.String())
	return err
}
