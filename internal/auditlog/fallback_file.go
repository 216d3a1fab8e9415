package auditlog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"hrdoc-assistant/internal/model"
)

// legacyTimestampLayout matches ISO-8601 timestamps written without an offset.
const legacyTimestampLayout = "2006-01-02T15:04:05.999999999"

var errCorruptFile = errors.New("fallback log file is not a JSON array")

type fileEntry struct {
	Timestamp string `json:"timestamp"`
	Query     string `json:"query"`
	Response  string `json:"response"`
}

// FallbackFile is the local replica of the log: one pretty-printed JSON array,
// oldest entry first, rewritten in full on every append.
type FallbackFile struct {
	path   string
	logger *zap.Logger

	mu sync.Mutex
}

func NewFallbackFile(path string, logger *zap.Logger) *FallbackFile {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FallbackFile{path: path, logger: logger}
}

func (f *FallbackFile) Path() string {
	return f.path
}

func (f *FallbackFile) Append(entry model.ChatLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	entries, err := f.read()
	if errors.Is(err, errCorruptFile) {
		f.logger.Warn("fallback log file unreadable, starting a new array", zap.String("path", f.path), zap.Error(err))
		entries = nil
	} else if err != nil {
		return err
	}

	entries = append(entries, fileEntry{
		Timestamp: entry.Timestamp.Format(time.RFC3339Nano),
		Query:     entry.Query,
		Response:  entry.Response,
	})
	return f.write(entries)
}

// ReadAll returns the file's entries in stored (oldest-first) order. A
// missing file is an empty log.
func (f *FallbackFile) ReadAll() ([]model.ChatLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	entries, err := f.read()
	if err != nil {
		return nil, err
	}

	logs := make([]model.ChatLog, 0, len(entries))
	for _, e := range entries {
		logs = append(logs, model.ChatLog{
			Timestamp: parseTimestamp(e.Timestamp),
			Query:     e.Query,
			Response:  e.Response,
		})
	}
	return logs, nil
}

// Remove deletes the file. Removing an absent file succeeds.
func (f *FallbackFile) Remove() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove fallback log file failed: %w", err)
	}
	return nil
}

func (f *FallbackFile) read() ([]fileEntry, error) {
	raw, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read fallback log file failed: %w", err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil
	}

	var entries []fileEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("%w: %w", errCorruptFile, err)
	}
	return entries, nil
}

// write replaces the file through a temp file and rename so a crash never
// leaves half an array behind.
func (f *FallbackFile) write(entries []fileEntry) error {
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create fallback log dir failed: %w", err)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if entries == nil {
		entries = []fileEntry{}
	}
	if err := enc.Encode(entries); err != nil {
		return fmt.Errorf("encode fallback log failed: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".chat_logs-*.tmp")
	if err != nil {
		return fmt.Errorf("create fallback temp file failed: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write fallback log failed: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close fallback temp file failed: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace fallback log file failed: %w", err)
	}
	return nil
}

func parseTimestamp(raw string) time.Time {
	if ts, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return ts
	}
	if ts, err := time.ParseInLocation(legacyTimestampLayout, raw, time.Local); err == nil {
		return ts
	}
	return time.Time{}
}
