package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	nethttp "net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"hrdoc-assistant/internal/ai"
	appsvc "hrdoc-assistant/internal/app"
	"hrdoc-assistant/internal/auditlog"
	"hrdoc-assistant/internal/bootstrap"
	"hrdoc-assistant/internal/model"
	"hrdoc-assistant/internal/prompt"
	"hrdoc-assistant/internal/repository"
	"hrdoc-assistant/internal/session"
	"hrdoc-assistant/internal/transport/http/handler"
	"hrdoc-assistant/internal/transport/http/middleware"
	"hrdoc-assistant/internal/transport/http/response"
)

const testAdminSecret = "correct-horse"

type fakeGateway struct {
	fragments    []ai.Fragment
	instructions []string
}

func (g *fakeGateway) Stream(ctx context.Context, instruction string, turns []ai.ChatMessage) <-chan ai.Fragment {
	g.instructions = append(g.instructions, instruction)
	out := make(chan ai.Fragment, len(g.fragments))
	for _, f := range g.fragments {
		out <- f
	}
	close(out)
	return out
}

type testServer struct {
	engine  *gin.Engine
	gateway *fakeGateway
	docs    *repository.DocumentRepository
	cookies []*nethttp.Cookie
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "server.db")), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.Document{}, &model.ChatLog{}))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	docs := repository.NewDocumentRepository(db)
	store := session.NewMemoryStore(session.Options{})
	gateway := &fakeGateway{fragments: []ai.Fragment{{Text: "안녕"}, {Text: "하세요"}, {Done: true}}}
	logs := auditlog.New(
		repository.NewChatLogRepository(db),
		auditlog.NewFallbackFile(filepath.Join(t.TempDir(), "chat_logs.json"), nil),
		nil,
	)

	engine := NewEngine(Deps{
		SessionCookie:  middleware.SessionCookieConfig{Secret: "test-secret", TTL: time.Hour},
		MaxUploadBytes: 1 << 20,
		Sessions:       appsvc.NewSessionService(store),
		Chat:           appsvc.NewChatService(store, prompt.NewAssembler(docs), gateway, logs, time.Second, nil),
		Documents:      appsvc.NewDocumentService(docs, nil),
		Admin:          appsvc.NewAdminService(store, testAdminSecret, nil),
		AuditLog:       logs,
		Health: handler.NewHealthHandler("hrdoc-assistant", "test", time.Now(), []bootstrap.DependencyCheck{
			{Name: "mysql", Ping: func(context.Context) error { return nil }},
			{Name: "rabbitmq", Optional: true, Ping: func(context.Context) error { return errors.New("not connected") }},
		}),
	})
	return &testServer{engine: engine, gateway: gateway, docs: docs}
}

func (s *testServer) do(t *testing.T, method, path string, body []byte, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for _, c := range s.cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)
	for _, c := range rec.Result().Cookies() {
		if c.Name == middleware.SessionCookieName {
			s.cookies = []*nethttp.Cookie{c}
		}
	}
	return rec
}

func (s *testServer) doJSON(t *testing.T, method, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	var body []byte
	if payload != nil {
		var err error
		body, err = json.Marshal(payload)
		require.NoError(t, err)
	}
	return s.do(t, method, path, body, "application/json")
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, data any) response.APIResponse {
	t.Helper()
	var resp response.APIResponse
	if data != nil {
		resp.Data = data
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return resp
}

type historyData struct {
	SessionID string         `json:"session_id"`
	State     string         `json:"state"`
	Turns     []session.Turn `json:"turns"`
}

func (s *testServer) login(t *testing.T) {
	t.Helper()
	rec := s.doJSON(t, nethttp.MethodPost, "/api/v1/admin/login", gin.H{"secret": testAdminSecret})
	require.Equal(t, nethttp.StatusOK, rec.Code, rec.Body.String())
}

func TestSessionCookie_IssuedAndReused(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(t, nethttp.MethodGet, "/api/v1/chat/history", nil, "")
	require.Equal(t, nethttp.StatusOK, rec.Code)
	require.Len(t, srv.cookies, 1)
	assert.True(t, srv.cookies[0].HttpOnly)

	var first historyData
	decode(t, rec, &first)
	assert.Equal(t, []session.Turn{{Role: session.RoleAssistant, Content: session.Greeting}}, first.Turns)

	rec = srv.do(t, nethttp.MethodGet, "/api/v1/chat/history", nil, "")
	var second historyData
	decode(t, rec, &second)
	assert.Equal(t, first.SessionID, second.SessionID)
}

func TestSessionCookie_ForgedTokenStartsNewSession(t *testing.T) {
	srv := newTestServer(t)
	srv.cookies = []*nethttp.Cookie{{Name: middleware.SessionCookieName, Value: "not-a-jwt"}}

	rec := srv.do(t, nethttp.MethodGet, "/api/v1/chat/history", nil, "")
	require.Equal(t, nethttp.StatusOK, rec.Code)
	require.Len(t, srv.cookies, 1)
	assert.NotEqual(t, "not-a-jwt", srv.cookies[0].Value)
}

func TestChat_SendMessage(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.doJSON(t, nethttp.MethodPost, "/api/v1/chat/messages", gin.H{"content": "육아휴직 서류?"})
	require.Equal(t, nethttp.StatusOK, rec.Code, rec.Body.String())

	var data struct {
		Reply   string      `json:"reply"`
		Failed  bool        `json:"failed"`
		Session historyData `json:"session"`
	}
	decode(t, rec, &data)
	assert.Equal(t, "안녕하세요", data.Reply)
	assert.False(t, data.Failed)
	assert.Equal(t, string(session.StateIdle), data.Session.State)
	assert.Len(t, data.Session.Turns, 3)

	rec = srv.doJSON(t, nethttp.MethodPost, "/api/v1/chat/messages", gin.H{"content": "   "})
	assert.Equal(t, nethttp.StatusBadRequest, rec.Code)
	assert.Equal(t, response.CodeEmptyMessage, decode(t, rec, nil).Code)
}

func TestChat_StreamMessage(t *testing.T) {
	srv := newTestServer(t)
	srv.gateway.fragments = []ai.Fragment{{Text: "첫 줄\n둘째 줄"}, {Done: true}}

	rec := srv.doJSON(t, nethttp.MethodPost, "/api/v1/chat/messages/stream", gin.H{"content": "q"})
	require.Equal(t, nethttp.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))

	body := rec.Body.String()
	assert.Contains(t, body, "data: 첫 줄\ndata: 둘째 줄\n\n")
	assert.True(t, strings.HasSuffix(body, "event: done\ndata: 첫 줄\ndata: 둘째 줄\n\n"), body)
}

func TestChat_StreamFailureIsRecorded(t *testing.T) {
	srv := newTestServer(t)
	srv.gateway.fragments = []ai.Fragment{{Err: fmt.Errorf("%w: status 500", ai.ErrCompletionFailed)}}

	rec := srv.doJSON(t, nethttp.MethodPost, "/api/v1/chat/messages/stream", gin.H{"content": "q"})
	require.Equal(t, nethttp.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "event: error\ndata: "+appsvc.FailurePrefix)

	rec = srv.do(t, nethttp.MethodGet, "/api/v1/chat/history", nil, "")
	var history historyData
	decode(t, rec, &history)
	require.Len(t, history.Turns, 3)
	assert.True(t, strings.HasPrefix(history.Turns[2].Content, appsvc.FailurePrefix))
}

func TestChat_StreamRejectsEmptyWithJSON(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.doJSON(t, nethttp.MethodPost, "/api/v1/chat/messages/stream", gin.H{"content": " "})
	assert.Equal(t, nethttp.StatusBadRequest, rec.Code)
	assert.Equal(t, response.CodeEmptyMessage, decode(t, rec, nil).Code)
}

func TestChat_Reset(t *testing.T) {
	srv := newTestServer(t)
	srv.doJSON(t, nethttp.MethodPost, "/api/v1/chat/messages", gin.H{"content": "q"})

	rec := srv.do(t, nethttp.MethodPost, "/api/v1/chat/reset", nil, "")
	require.Equal(t, nethttp.StatusOK, rec.Code)
	var data historyData
	decode(t, rec, &data)
	assert.Equal(t, []session.Turn{{Role: session.RoleAssistant, Content: session.Greeting}}, data.Turns)
}

func TestFAQ(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(t, nethttp.MethodGet, "/api/v1/faq", nil, "")
	require.Equal(t, nethttp.StatusOK, rec.Code)
	var data struct {
		Questions []string `json:"questions"`
	}
	decode(t, rec, &data)
	assert.Equal(t, appsvc.FAQQuestions, data.Questions)
	assert.Empty(t, srv.cookies)
}

func TestAdmin_GateOpensOnlyWithCorrectSecret(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(t, nethttp.MethodGet, "/api/v1/admin/logs", nil, "")
	assert.Equal(t, nethttp.StatusForbidden, rec.Code)
	assert.Equal(t, response.CodeAdminRequired, decode(t, rec, nil).Code)

	for _, wrong := range []string{"admin123", "correct-hors", "CORRECT-HORSE"} {
		rec = srv.doJSON(t, nethttp.MethodPost, "/api/v1/admin/login", gin.H{"secret": wrong})
		assert.Equal(t, nethttp.StatusUnauthorized, rec.Code)
		assert.Equal(t, response.CodeAuthFailure, decode(t, rec, nil).Code)

		rec = srv.do(t, nethttp.MethodGet, "/api/v1/admin/documents", nil, "")
		assert.Equal(t, nethttp.StatusForbidden, rec.Code)
	}

	srv.login(t)

	rec = srv.do(t, nethttp.MethodGet, "/api/v1/admin/status", nil, "")
	var status struct {
		Admin bool `json:"admin"`
	}
	decode(t, rec, &status)
	assert.True(t, status.Admin)

	rec = srv.do(t, nethttp.MethodGet, "/api/v1/admin/logs", nil, "")
	assert.Equal(t, nethttp.StatusOK, rec.Code)
	rec = srv.do(t, nethttp.MethodGet, "/api/v1/admin/documents", nil, "")
	assert.Equal(t, nethttp.StatusOK, rec.Code)

	rec = srv.do(t, nethttp.MethodPost, "/api/v1/admin/logout", nil, "")
	require.Equal(t, nethttp.StatusOK, rec.Code)
	rec = srv.do(t, nethttp.MethodGet, "/api/v1/admin/logs", nil, "")
	assert.Equal(t, nethttp.StatusForbidden, rec.Code)
}

func TestAdmin_LogsListDownloadAndClear(t *testing.T) {
	srv := newTestServer(t)
	srv.doJSON(t, nethttp.MethodPost, "/api/v1/chat/messages", gin.H{"content": "first"})
	srv.doJSON(t, nethttp.MethodPost, "/api/v1/chat/messages", gin.H{"content": "second"})
	srv.login(t)

	rec := srv.do(t, nethttp.MethodGet, "/api/v1/admin/logs", nil, "")
	require.Equal(t, nethttp.StatusOK, rec.Code)
	var listing auditlog.Listing
	decode(t, rec, &listing)
	assert.Equal(t, 2, listing.Total)
	assert.Equal(t, auditlog.SourcePrimary, listing.Source)
	require.Len(t, listing.Entries, 2)
	assert.Equal(t, "second", listing.Entries[0].Query)

	rec = srv.do(t, nethttp.MethodGet, "/api/v1/admin/logs/download", nil, "")
	require.Equal(t, nethttp.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "chat_logs.json")
	var exported []model.ChatLog
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &exported))
	assert.Len(t, exported, 2)

	rec = srv.do(t, nethttp.MethodDelete, "/api/v1/admin/logs", nil, "")
	assert.Equal(t, nethttp.StatusOK, rec.Code)

	rec = srv.do(t, nethttp.MethodGet, "/api/v1/admin/logs", nil, "")
	decode(t, rec, &listing)
	assert.Equal(t, 2, listing.Total)
}

func multipartBody(t *testing.T, filename string, content []byte, name string) ([]byte, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if name != "" {
		require.NoError(t, w.WriteField("name", name))
	}
	part, err := w.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes(), w.FormDataContentType()
}

func TestDocuments_UploadValidation(t *testing.T) {
	srv := newTestServer(t)
	srv.login(t)

	body, ct := multipartBody(t, "rules.txt", []byte("text"), "")
	rec := srv.do(t, nethttp.MethodPost, "/api/v1/admin/documents", body, ct)
	assert.Equal(t, nethttp.StatusBadRequest, rec.Code)

	body, ct = multipartBody(t, "rules.pdf", []byte("definitely not a pdf"), "")
	rec = srv.do(t, nethttp.MethodPost, "/api/v1/admin/documents", body, ct)
	assert.Equal(t, nethttp.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, response.CodeExtractionFailed, decode(t, rec, nil).Code)

	body, ct = multipartBody(t, "big.pdf", bytes.Repeat([]byte("x"), 2<<20), "")
	rec = srv.do(t, nethttp.MethodPost, "/api/v1/admin/documents", body, ct)
	assert.Equal(t, nethttp.StatusRequestEntityTooLarge, rec.Code)

	rec = srv.do(t, nethttp.MethodPost, "/api/v1/admin/documents", nil, "")
	assert.Equal(t, nethttp.StatusBadRequest, rec.Code)
}

func TestDocuments_Upload(t *testing.T) {
	srv := newTestServer(t)
	srv.login(t)

	pdf, err := os.ReadFile(filepath.Join("testdata", "leave_policy.pdf"))
	require.NoError(t, err)
	body, ct := multipartBody(t, "leave_policy.pdf", pdf, "")
	rec := srv.do(t, nethttp.MethodPost, "/api/v1/admin/documents", body, ct)
	require.Equal(t, nethttp.StatusOK, rec.Code, rec.Body.String())

	var doc model.Document
	decode(t, rec, &doc)
	assert.Equal(t, "leave_policy", doc.Name)
	assert.Equal(t, "Leave policy v2\nExtra rule: X", doc.Content)
	assert.True(t, doc.Active)

	rec = srv.doJSON(t, nethttp.MethodPost, "/api/v1/chat/messages", gin.H{"content": "q"})
	require.Equal(t, nethttp.StatusOK, rec.Code, rec.Body.String())
	require.Len(t, srv.gateway.instructions, 1)
	assert.Contains(t, srv.gateway.instructions[0], "[leave_policy] -> Leave policy v2\nExtra rule: X")
}

func TestDocuments_ToggleDeleteAndPromptVisibility(t *testing.T) {
	srv := newTestServer(t)
	srv.login(t)
	_, err := srv.docs.Put(context.Background(), "leave-policy-v2", "Extra rule: X")
	require.NoError(t, err)

	srv.doJSON(t, nethttp.MethodPost, "/api/v1/chat/messages", gin.H{"content": "q1"})
	require.Len(t, srv.gateway.instructions, 1)
	assert.Contains(t, srv.gateway.instructions[0], "[leave-policy-v2] -> Extra rule: X")

	rec := srv.doJSON(t, nethttp.MethodPatch, "/api/v1/admin/documents/leave-policy-v2", gin.H{"active": false})
	require.Equal(t, nethttp.StatusOK, rec.Code, rec.Body.String())

	srv.doJSON(t, nethttp.MethodPost, "/api/v1/chat/messages", gin.H{"content": "q2"})
	require.Len(t, srv.gateway.instructions, 2)
	assert.NotContains(t, srv.gateway.instructions[1], "leave-policy-v2")

	rec = srv.doJSON(t, nethttp.MethodPatch, "/api/v1/admin/documents/leave-policy-v2", gin.H{})
	assert.Equal(t, nethttp.StatusBadRequest, rec.Code)

	rec = srv.do(t, nethttp.MethodDelete, "/api/v1/admin/documents/leave-policy-v2", nil, "")
	assert.Equal(t, nethttp.StatusOK, rec.Code)

	rec = srv.do(t, nethttp.MethodDelete, "/api/v1/admin/documents/leave-policy-v2", nil, "")
	assert.Equal(t, nethttp.StatusNotFound, rec.Code)
	assert.Equal(t, response.CodeDocumentNotFound, decode(t, rec, nil).Code)

	rec = srv.doJSON(t, nethttp.MethodPatch, "/api/v1/admin/documents/missing", gin.H{"active": true})
	assert.Equal(t, nethttp.StatusNotFound, rec.Code)
}

func TestHealth_OptionalDependencyDoesNotFail(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(t, nethttp.MethodGet, "/healthz", nil, "")
	require.Equal(t, nethttp.StatusOK, rec.Code)

	var body struct {
		App          string `json:"app"`
		Dependencies map[string]struct {
			OK       bool   `json:"ok"`
			Optional bool   `json:"optional"`
			Message  string `json:"message"`
		} `json:"dependencies"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "hrdoc-assistant", body.App)
	assert.True(t, body.Dependencies["mysql"].OK)
	assert.False(t, body.Dependencies["rabbitmq"].OK)
	assert.True(t, body.Dependencies["rabbitmq"].Optional)
}
