package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	redisv9 "github.com/redis/go-redis/v9"
)

// RedisStore shares sessions between replicas. The key TTL is the idle
// timeout, so key expiry ends the session.
type RedisStore struct {
	client *redisv9.Client
	opts   Options
	now    func() time.Time
}

func NewRedisStore(client *redisv9.Client, opts Options) *RedisStore {
	return &RedisStore{
		client: client,
		opts:   opts.withDefaults(),
		now:    time.Now,
	}
}

func (r *RedisStore) Create(ctx context.Context) (*Session, error) {
	sess := New(uuid.NewString(), r.now())
	payload, err := json.Marshal(sess)
	if err != nil {
		return nil, fmt.Errorf("marshal session failed: %w", err)
	}
	if err := r.client.Set(ctx, r.key(sess.ID), payload, r.opts.IdleTTL).Err(); err != nil {
		return nil, fmt.Errorf("redis set session failed: %w", err)
	}
	return sess, nil
}

func (r *RedisStore) Get(ctx context.Context, id string) (*Session, error) {
	raw, err := r.client.Get(ctx, r.key(id)).Bytes()
	if errors.Is(err, redisv9.Nil) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get session failed: %w", err)
	}
	return decodeSession(raw)
}

// Update uses WATCH/MULTI so that two replicas cannot both move the same
// session into AwaitingCompletion. A lost race is reported, not retried.
func (r *RedisStore) Update(ctx context.Context, id string, fn func(*Session) error) (*Session, error) {
	key := r.key(id)
	var updated *Session

	txf := func(tx *redisv9.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redisv9.Nil) {
			return ErrSessionNotFound
		}
		if err != nil {
			return fmt.Errorf("redis get session failed: %w", err)
		}
		sess, err := decodeSession(raw)
		if err != nil {
			return err
		}

		now := r.now()
		sess.releaseStale(now, r.opts.InflightTimeout)
		if err := fn(sess); err != nil {
			return err
		}
		sess.UpdatedAt = now

		payload, err := json.Marshal(sess)
		if err != nil {
			return fmt.Errorf("marshal session failed: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redisv9.Pipeliner) error {
			pipe.Set(ctx, key, payload, r.opts.IdleTTL)
			return nil
		})
		if err != nil {
			return err
		}
		updated = sess
		return nil
	}

	if err := r.client.Watch(ctx, txf, key); err != nil {
		if errors.Is(err, redisv9.TxFailedErr) {
			return nil, ErrConcurrentUpdate
		}
		return nil, err
	}
	return updated, nil
}

func (r *RedisStore) Delete(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, r.key(id)).Err(); err != nil {
		return fmt.Errorf("redis delete session failed: %w", err)
	}
	return nil
}

func (r *RedisStore) key(id string) string {
	return fmt.Sprintf("hrdoc:session:%s", id)
}

func decodeSession(raw []byte) (*Session, error) {
	var sess Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, fmt.Errorf("unmarshal session failed: %w", err)
	}
	return &sess, nil
}
