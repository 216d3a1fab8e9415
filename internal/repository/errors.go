package repository

import "errors"

var (
	// ErrStoreUnavailable wraps every I/O failure talking to the primary store.
	ErrStoreUnavailable = errors.New("primary store unavailable")
	ErrDocumentNotFound = errors.New("document not found")
)
