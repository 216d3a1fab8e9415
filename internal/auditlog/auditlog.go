// Package auditlog records every completed turn in the primary store and in a
// local fallback file, and reads back from whichever is available.
package auditlog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"hrdoc-assistant/internal/model"
)

const (
	SourcePrimary  = "primary"
	SourceFallback = "fallback"

	// RecentLimit bounds a primary-store read.
	RecentLimit = 100
)

type PrimaryStore interface {
	Create(ctx context.Context, entry *model.ChatLog) error
	ListRecent(ctx context.Context, limit int) ([]model.ChatLog, error)
}

// Mirror receives a copy of each entry for downstream consumers. Its
// failures are logged and never reach the caller.
type Mirror interface {
	Publish(ctx context.Context, entry model.ChatLog) error
}

type Listing struct {
	Entries []model.ChatLog `json:"entries"`
	Total   int             `json:"total"`
	Source  string          `json:"source"`
}

type Log struct {
	primary  PrimaryStore
	fallback *FallbackFile
	mirror   Mirror
	logger   *zap.Logger
	now      func() time.Time
}

type Option func(*Log)

func WithMirror(m Mirror) Option {
	return func(l *Log) {
		l.mirror = m
	}
}

func New(primary PrimaryStore, fallback *FallbackFile, logger *zap.Logger, opts ...Option) *Log {
	if logger == nil {
		logger = zap.NewNop()
	}
	l := &Log{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Append writes to the primary store first and to the fallback file
// unconditionally. Both failures are reported; neither blocks the other.
func (l *Log) Append(ctx context.Context, query, response string) error {
	entry := model.ChatLog{
		Timestamp: l.now(),
		Query:     query,
		Response:  response,
	}

	var errs []error
	if err := l.primary.Create(ctx, &entry); err != nil {
		errs = append(errs, fmt.Errorf("primary log write failed: %w", err))
	}
	if err := l.fallback.Append(entry); err != nil {
		errs = append(errs, fmt.Errorf("fallback log write failed: %w", err))
	}
	if l.mirror != nil {
		if err := l.mirror.Publish(ctx, entry); err != nil {
			l.logger.Warn("publish chat log mirror failed", zap.Error(err))
		}
	}
	return errors.Join(errs...)
}

// List returns entries newest first: the latest RecentLimit from the primary
// store, or the whole fallback file reversed when the primary read fails.
func (l *Log) List(ctx context.Context) (*Listing, error) {
	entries, err := l.primary.ListRecent(ctx, RecentLimit)
	if err == nil {
		return &Listing{Entries: entries, Total: len(entries), Source: SourcePrimary}, nil
	}
	l.logger.Warn("primary log read failed, reading fallback file",
		zap.String("path", l.fallback.Path()),
		zap.Error(err),
	)

	fileEntries, fileErr := l.fallback.ReadAll()
	if fileErr != nil {
		return nil, errors.Join(err, fileErr)
	}
	for i, j := 0, len(fileEntries)-1; i < j; i, j = i+1, j-1 {
		fileEntries[i], fileEntries[j] = fileEntries[j], fileEntries[i]
	}
	return &Listing{Entries: fileEntries, Total: len(fileEntries), Source: SourceFallback}, nil
}

// ClearAll deletes the fallback file. Primary-store records are left in place.
func (l *Log) ClearAll(ctx context.Context) error {
	return l.fallback.Remove()
}

// Export renders the visible listing as one pretty-printed JSON array.
func (l *Log) Export(ctx context.Context) ([]byte, error) {
	listing, err := l.List(ctx)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	entries := listing.Entries
	if entries == nil {
		entries = []model.ChatLog{}
	}
	if err := enc.Encode(entries); err != nil {
		return nil, fmt.Errorf("encode chat log export failed: %w", err)
	}
	return buf.Bytes(), nil
}
