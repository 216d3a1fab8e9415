package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]*Session
	opts     Options
	now      func() time.Time
}

func NewMemoryStore(opts Options) *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*Session),
		opts:     opts.withDefaults(),
		now:      time.Now,
	}
}

func (m *MemoryStore) Create(ctx context.Context) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess := New(uuid.NewString(), m.now())
	m.sessions[sess.ID] = sess
	return sess.clone(), nil
}

func (m *MemoryStore) Get(ctx context.Context, id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, err := m.lookup(id)
	if err != nil {
		return nil, err
	}
	return sess.clone(), nil
}

func (m *MemoryStore) Update(ctx context.Context, id string, fn func(*Session) error) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, err := m.lookup(id)
	if err != nil {
		return nil, err
	}

	now := m.now()
	working := current.clone()
	working.releaseStale(now, m.opts.InflightTimeout)
	if err := fn(working); err != nil {
		return nil, err
	}
	working.UpdatedAt = now
	m.sessions[id] = working
	return working.clone(), nil
}

func (m *MemoryStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sessions, id)
	return nil
}

// lookup evicts the session when it has been idle past its TTL.
func (m *MemoryStore) lookup(id string) (*Session, error) {
	sess, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	if m.now().Sub(sess.UpdatedAt) > m.opts.IdleTTL {
		delete(m.sessions, id)
		return nil, ErrSessionNotFound
	}
	return sess, nil
}
