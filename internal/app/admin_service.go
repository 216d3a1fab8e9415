package app

import (
	"context"
	"crypto/subtle"

	"go.uber.org/zap"

	"hrdoc-assistant/internal/session"
)

// AdminService flips the per-session admin flag. The flag only decides which
// views a session may open.
type AdminService struct {
	sessions session.Store
	secret   string
	logger   *zap.Logger
}

func NewAdminService(sessions session.Store, secret string, logger *zap.Logger) *AdminService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdminService{sessions: sessions, secret: secret, logger: logger}
}

// Login compares the candidate verbatim against the configured secret. A
// mismatch leaves the flag as it was.
func (s *AdminService) Login(ctx context.Context, sessionID, candidate string) error {
	if sessionID == "" {
		return ErrInvalidInput
	}
	if subtle.ConstantTimeCompare([]byte(candidate), []byte(s.secret)) != 1 {
		s.logger.Warn("admin login rejected", zap.String("session_id", sessionID))
		return ErrAuthFailure
	}
	_, err := s.sessions.Update(ctx, sessionID, func(sess *session.Session) error {
		sess.Admin = true
		return nil
	})
	return err
}

func (s *AdminService) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return ErrInvalidInput
	}
	_, err := s.sessions.Update(ctx, sessionID, func(sess *session.Session) error {
		sess.Admin = false
		return nil
	})
	return err
}

func (s *AdminService) IsAdmin(ctx context.Context, sessionID string) (bool, error) {
	if sessionID == "" {
		return false, nil
	}
	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return false, err
	}
	return sess.Admin, nil
}
