// Package session holds the per-user conversation state: the ordered turns,
// the single in-flight request guard and the admin flag.
package session

import (
	"errors"
	"strings"
	"time"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Greeting seeds every new or reset conversation.
const Greeting = "안녕하세요! 육아휴직이나 4대보험 피부양자 등록과 관련하여 필요한 서류를 안내해드립니다. 어떤 것이 궁금하신가요?"

type State string

const (
	StateIdle               State = "idle"
	StateAwaitingCompletion State = "awaiting_completion"
)

var (
	ErrSessionNotFound  = errors.New("session not found")
	ErrRequestInFlight  = errors.New("a request is already in flight for this session")
	ErrNotAwaiting      = errors.New("no request in flight for this session")
	ErrEmptyMessage     = errors.New("message content is empty")
	ErrConcurrentUpdate = errors.New("session modified concurrently")
)

type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type Session struct {
	ID           string    `json:"id"`
	Turns        []Turn    `json:"turns"`
	State        State     `json:"state"`
	Admin        bool      `json:"admin"`
	PendingSince time.Time `json:"pending_since,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func New(id string, now time.Time) *Session {
	return &Session{
		ID:        id,
		Turns:     greetingTurns(),
		State:     StateIdle,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Submit moves Idle -> AwaitingCompletion and appends the user turn. A second
// submission before the first resolves is rejected.
func (s *Session) Submit(text string, now time.Time) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyMessage
	}
	if s.State == StateAwaitingCompletion {
		return ErrRequestInFlight
	}
	s.Turns = append(s.Turns, Turn{Role: RoleUser, Content: text})
	s.State = StateAwaitingCompletion
	s.PendingSince = now
	return nil
}

func (s *Session) CompleteSucceeded(text string) error {
	return s.complete(text)
}

// CompleteFailed absorbs a failed completion into the transcript as an
// assistant turn carrying the user-visible error message.
func (s *Session) CompleteFailed(message string) error {
	return s.complete(message)
}

func (s *Session) complete(content string) error {
	if s.State != StateAwaitingCompletion {
		return ErrNotAwaiting
	}
	s.Turns = append(s.Turns, Turn{Role: RoleAssistant, Content: content})
	s.State = StateIdle
	s.PendingSince = time.Time{}
	return nil
}

// Reset replaces the transcript with the seeded greeting. The admin flag is
// session state, not conversation state, and survives a reset.
func (s *Session) Reset() error {
	if s.State == StateAwaitingCompletion {
		return ErrRequestInFlight
	}
	s.Turns = greetingTurns()
	return nil
}

// Messages returns a copy of the turns, safe to hand to the gateway.
func (s *Session) Messages() []Turn {
	return append([]Turn(nil), s.Turns...)
}

// releaseStale returns a session stuck in AwaitingCompletion to Idle once the
// request that put it there is older than timeout.
func (s *Session) releaseStale(now time.Time, timeout time.Duration) {
	if timeout <= 0 || s.State != StateAwaitingCompletion {
		return
	}
	if now.Sub(s.PendingSince) > timeout {
		s.State = StateIdle
		s.PendingSince = time.Time{}
	}
}

func (s *Session) clone() *Session {
	c := *s
	c.Turns = s.Messages()
	return &c
}

func greetingTurns() []Turn {
	return []Turn{{Role: RoleAssistant, Content: Greeting}}
}
