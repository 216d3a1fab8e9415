package app

import (
	"context"
	"errors"

	"hrdoc-assistant/internal/session"
)

type SessionService struct {
	sessions session.Store
}

func NewSessionService(sessions session.Store) *SessionService {
	return &SessionService{sessions: sessions}
}

// Resolve returns the session named by id, or a fresh one when id is empty
// or has expired. created reports whether a new session was made.
func (s *SessionService) Resolve(ctx context.Context, id string) (sess *session.Session, created bool, err error) {
	if id != "" {
		sess, err = s.sessions.Get(ctx, id)
		if err == nil {
			return sess, false, nil
		}
		if !errors.Is(err, session.ErrSessionNotFound) {
			return nil, false, err
		}
	}
	sess, err = s.sessions.Create(ctx)
	if err != nil {
		return nil, false, err
	}
	return sess, true, nil
}
