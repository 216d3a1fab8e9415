package session

import (
	"context"
	"time"
)

// Store keeps sessions for their lifetime. Update runs fn against the current
// state atomically and persists the result only when fn returns nil.
type Store interface {
	Create(ctx context.Context) (*Session, error)
	Get(ctx context.Context, id string) (*Session, error)
	Update(ctx context.Context, id string, fn func(*Session) error) (*Session, error)
	Delete(ctx context.Context, id string) error
}

type Options struct {
	// IdleTTL ends a session after this long without activity.
	IdleTTL time.Duration
	// InflightTimeout releases a request guard left behind by a dead request.
	InflightTimeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.IdleTTL <= 0 {
		o.IdleTTL = 24 * time.Hour
	}
	if o.InflightTimeout <= 0 {
		o.InflightTimeout = 3 * time.Minute
	}
	return o
}
