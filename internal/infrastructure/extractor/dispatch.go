package extractor

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/kirillkom/draft-assistant/internal/core/domain"
	"github.com/kirillkom/draft-assistant/internal/core/ports"
)

// Dispatcher routes extraction to a format-specific extractor by file
// extension, with the plaintext extractor as the fallback.
type Dispatcher struct {
	byExtension map[string]ports.TextExtractor
	fallback    ports.TextExtractor
}

func NewDispatcher(fallback ports.TextExtractor) *Dispatcher {
	return &Dispatcher{
		byExtension: make(map[string]ports.TextExtractor),
		fallback:    fallback,
	}
}

// Register binds an extractor to a lowercase extension including the dot,
// e.g. ".pdf".
func (d *Dispatcher) Register(extension string, extractor ports.TextExtractor) {
	d.byExtension[strings.ToLower(extension)] = extractor
}

func (d *Dispatcher) Extract(ctx context.Context, doc *domain.Document) (string, error) {
	ext := strings.ToLower(filepath.Ext(doc.Filename))
	if extractor, ok := d.byExtension[ext]; ok {
		return extractor.Extract(ctx, doc)
	}
	return d.fallback.Extract(ctx, doc)
}
