package pdfextract

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode"

	"github.com/ledongthuc/pdf"
)

// ErrExtractionFailed is returned for empty, unparsable or text-less input.
var ErrExtractionFailed = errors.New("pdf text extraction failed")

// ExtractText reads the entire content of r and returns the plain text of
// every page, pages separated by a single newline, trailing whitespace trimmed.
func ExtractText(r io.Reader) (string, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("%w: read input: %w", ErrExtractionFailed, err)
	}
	if len(b) == 0 {
		return "", fmt.Errorf("%w: empty input", ErrExtractionFailed)
	}
	return ExtractBytes(b)
}

func ExtractBytes(content []byte) (text string, err error) {
	// The pdf package panics on some malformed cross-reference tables.
	defer func() {
		if rec := recover(); rec != nil {
			text = ""
			err = fmt.Errorf("%w: malformed pdf: %v", ErrExtractionFailed, rec)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("%w: open pdf: %w", ErrExtractionFailed, err)
	}

	numPages := reader.NumPage()
	if numPages == 0 {
		return "", fmt.Errorf("%w: document has no pages", ErrExtractionFailed)
	}

	pages := make([]string, 0, numPages)
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("%w: page %d: %w", ErrExtractionFailed, i, err)
		}
		pages = append(pages, pageText)
	}

	text = strings.TrimRightFunc(strings.Join(pages, "\n"), unicode.IsSpace)
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: no extractable text", ErrExtractionFailed)
	}
	return text, nil
}
