package app

import (
	"errors"

	"hrdoc-assistant/internal/ai"
	"hrdoc-assistant/internal/pkg/pdfextract"
	"hrdoc-assistant/internal/repository"
	"hrdoc-assistant/internal/session"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrAuthFailure  = errors.New("admin secret does not match")
)

// Errors raised by lower layers, re-exported so handlers map them in one place.
var (
	ErrStoreUnavailable = repository.ErrStoreUnavailable
	ErrDocumentNotFound = repository.ErrDocumentNotFound
	ErrExtractionFailed = pdfextract.ErrExtractionFailed
	ErrCompletionFailed = ai.ErrCompletionFailed
	ErrSessionNotFound  = session.ErrSessionNotFound
	ErrRequestInFlight  = session.ErrRequestInFlight
	ErrEmptyMessage     = session.ErrEmptyMessage
	ErrConcurrentUpdate = session.ErrConcurrentUpdate
)
