// Package prompt builds the system-level instruction payload sent with every
// completion request.
package prompt

import (
	"context"
	"fmt"
	"strings"

	"hrdoc-assistant/internal/model"
)

// ActiveDocumentLister is the slice of the document store the assembler reads.
type ActiveDocumentLister interface {
	ListActive(ctx context.Context) ([]model.Document, error)
}

// Assembler merges the baseline policy with the current active document set.
// Build performs one full store read per call and keeps no cache, so an
// administrator's upload or delete is visible on the very next turn.
type Assembler struct {
	docs ActiveDocumentLister
}

func NewAssembler(docs ActiveDocumentLister) *Assembler {
	return &Assembler{docs: docs}
}

func (a *Assembler) Build(ctx context.Context) (string, error) {
	docs, err := a.docs.ListActive(ctx)
	if err != nil {
		return "", fmt.Errorf("load active documents failed: %w", err)
	}
	return Render(docs), nil
}

// Render lays out the payload for a given document set, in the order given.
func Render(docs []model.Document) string {
	var b strings.Builder
	b.WriteString(Baseline)

	if len(docs) > 0 {
		b.WriteString("\n\n")
		b.WriteString(AdditionalHeader)
		for _, doc := range docs {
			b.WriteString("\n\n[")
			b.WriteString(doc.Name)
			b.WriteString("] -> ")
			b.WriteString(strings.TrimSpace(doc.Content))
		}
	}

	b.WriteString("\n\n")
	b.WriteString(Closing)
	return b.String()
}
