package app

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"hrdoc-assistant/internal/ai"
	"hrdoc-assistant/internal/session"
)

// FailurePrefix starts the assistant turn recorded when a completion fails.
const FailurePrefix = "오류가 발생했습니다: "

type Gateway interface {
	Stream(ctx context.Context, instruction string, turns []ai.ChatMessage) <-chan ai.Fragment
}

type InstructionBuilder interface {
	Build(ctx context.Context) (string, error)
}

type AuditAppender interface {
	Append(ctx context.Context, query, response string) error
}

type ChatService struct {
	sessions session.Store
	prompts  InstructionBuilder
	gateway  Gateway
	auditLog AuditAppender
	timeout  time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

// ChatResult is the outcome of one turn. Session is nil when the answer was
// delivered and logged but the session could not be updated.
type ChatResult struct {
	Reply   string           `json:"reply"`
	Failed  bool             `json:"failed"`
	Session *session.Session `json:"session,omitempty"`
}

func NewChatService(
	sessions session.Store,
	prompts InstructionBuilder,
	gateway Gateway,
	auditLog AuditAppender,
	timeout time.Duration,
	logger *zap.Logger,
) *ChatService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChatService{
		sessions: sessions,
		prompts:  prompts,
		gateway:  gateway,
		auditLog: auditLog,
		timeout:  timeout,
		logger:   logger,
		now:      time.Now,
	}
}

// SendMessage runs one turn and returns once the reply is complete.
func (s *ChatService) SendMessage(ctx context.Context, sessionID, text string) (*ChatResult, error) {
	return s.StreamMessage(ctx, sessionID, text, nil)
}

// StreamMessage runs one turn, handing each reply fragment to onChunk as it
// arrives. A failed completion is not an error: it is recorded as an
// assistant turn and logged like any other answer. Errors are returned only
// when the turn could not start.
func (s *ChatService) StreamMessage(
	ctx context.Context,
	sessionID, text string,
	onChunk func(string) error,
) (*ChatResult, error) {
	if sessionID == "" {
		return nil, ErrInvalidInput
	}
	query := strings.TrimSpace(text)
	if query == "" {
		return nil, ErrEmptyMessage
	}

	sess, err := s.sessions.Update(ctx, sessionID, func(sess *session.Session) error {
		return sess.Submit(query, s.now())
	})
	if err != nil {
		return nil, err
	}

	reply, completionErr := s.complete(ctx, sess, onChunk)
	failed := completionErr != nil
	if failed {
		s.logger.Warn("completion failed",
			zap.String("session_id", sessionID),
			zap.Error(completionErr),
		)
		reply = FailurePrefix + completionErr.Error()
	}

	// The turn must resolve even when the caller has gone away. The answer
	// has been delivered, so it is logged before the session is touched.
	finishCtx := context.WithoutCancel(ctx)
	if err := s.auditLog.Append(finishCtx, query, reply); err != nil {
		s.logger.Error("append chat log failed",
			zap.String("session_id", sessionID),
			zap.Error(err),
		)
	}

	sess, err = s.resolve(finishCtx, sessionID, reply, failed)
	if err != nil {
		s.logger.Error("resolve turn failed",
			zap.String("session_id", sessionID),
			zap.Error(err),
		)
		return &ChatResult{Reply: reply, Failed: failed}, nil
	}

	return &ChatResult{Reply: reply, Failed: failed, Session: sess}, nil
}

// resolve records the assistant turn. A concurrent write to the session
// (an admin login on the same cookie, another replica touching the key) does
// not take the in-flight turn away from this request, so a conflict gets one
// fresh read-and-complete.
func (s *ChatService) resolve(ctx context.Context, sessionID, reply string, failed bool) (*session.Session, error) {
	finish := func(sess *session.Session) error {
		if failed {
			return sess.CompleteFailed(reply)
		}
		return sess.CompleteSucceeded(reply)
	}
	sess, err := s.sessions.Update(ctx, sessionID, finish)
	if errors.Is(err, session.ErrConcurrentUpdate) {
		sess, err = s.sessions.Update(ctx, sessionID, finish)
	}
	return sess, err
}

func (s *ChatService) complete(ctx context.Context, sess *session.Session, onChunk func(string) error) (string, error) {
	instruction, err := s.prompts.Build(ctx)
	if err != nil {
		return "", err
	}

	turns := sess.Messages()
	messages := make([]ai.ChatMessage, 0, len(turns))
	for _, turn := range turns {
		messages = append(messages, ai.ChatMessage{Role: turn.Role, Content: turn.Content})
	}

	// Cancelling stops the producer if Collect returns early.
	var (
		streamCtx context.Context
		cancel    context.CancelFunc
	)
	if s.timeout > 0 {
		streamCtx, cancel = context.WithTimeout(ctx, s.timeout)
	} else {
		streamCtx, cancel = context.WithCancel(ctx)
	}
	defer cancel()
	return ai.Collect(s.gateway.Stream(streamCtx, instruction, messages), onChunk)
}

func (s *ChatService) History(ctx context.Context, sessionID string) (*session.Session, error) {
	if sessionID == "" {
		return nil, ErrInvalidInput
	}
	return s.sessions.Get(ctx, sessionID)
}

// Reset clears the conversation back to the greeting.
func (s *ChatService) Reset(ctx context.Context, sessionID string) (*session.Session, error) {
	if sessionID == "" {
		return nil, ErrInvalidInput
	}
	return s.sessions.Update(ctx, sessionID, func(sess *session.Session) error {
		return sess.Reset()
	})
}
