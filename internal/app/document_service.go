package app

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"hrdoc-assistant/internal/model"
	"hrdoc-assistant/internal/pkg/pdfextract"
)

// MaxDocumentNameLength matches the width of the documents.name column.
const MaxDocumentNameLength = 256

type DocumentStore interface {
	Put(ctx context.Context, name, content string) (*model.Document, error)
	ListAll(ctx context.Context) ([]model.Document, error)
	SetActive(ctx context.Context, name string, active bool) error
	Delete(ctx context.Context, name string) error
}

type DocumentService struct {
	docs   DocumentStore
	logger *zap.Logger
}

// UploadInput carries one PDF. Name defaults to Filename without its
// extension.
type UploadInput struct {
	Name     string
	Filename string
	Body     io.Reader
}

func NewDocumentService(docs DocumentStore, logger *zap.Logger) *DocumentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DocumentService{docs: docs, logger: logger}
}

// Upload extracts the PDF's text and stores it active under the resolved
// name, replacing any document already registered under that name.
func (s *DocumentService) Upload(ctx context.Context, input UploadInput) (*model.Document, error) {
	name, err := resolveDocumentName(input.Name, input.Filename)
	if err != nil {
		return nil, err
	}
	if input.Body == nil {
		return nil, ErrInvalidInput
	}

	text, err := pdfextract.ExtractText(input.Body)
	if err != nil {
		return nil, err
	}

	doc, err := s.docs.Put(ctx, name, text)
	if err != nil {
		return nil, err
	}
	s.logger.Info("document registered",
		zap.String("name", doc.Name),
		zap.Int("content_length", utf8.RuneCountInString(doc.Content)),
	)
	return doc, nil
}

func (s *DocumentService) List(ctx context.Context) ([]model.Document, error) {
	return s.docs.ListAll(ctx)
}

func (s *DocumentService) SetActive(ctx context.Context, name string, active bool) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrInvalidInput
	}
	return s.docs.SetActive(ctx, name, active)
}

func (s *DocumentService) Delete(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrInvalidInput
	}
	if err := s.docs.Delete(ctx, name); err != nil {
		return err
	}
	s.logger.Info("document deleted", zap.String("name", name))
	return nil
}

func resolveDocumentName(name, filename string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		base := filepath.Base(strings.TrimSpace(filename))
		name = strings.TrimSpace(strings.TrimSuffix(base, filepath.Ext(base)))
		if name == "." || name == string(filepath.Separator) {
			name = ""
		}
	}
	if name == "" {
		return "", fmt.Errorf("%w: document name is empty", ErrInvalidInput)
	}
	if !utf8.ValidString(name) || utf8.RuneCountInString(name) > MaxDocumentNameLength {
		return "", fmt.Errorf("%w: document name must be valid text of at most %d characters", ErrInvalidInput, MaxDocumentNameLength)
	}
	return name, nil
}
