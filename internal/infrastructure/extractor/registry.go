package extractor

import (
	"context"
	"fmt"

	"github.com/vlasenkov/knowledge-base/internal/core/domain"
	"github.com/vlasenkov/knowledge-base/internal/core/ports"
)

// Registry routes extraction to the extractor registered for the document's
// type. It satisfies ports.ChunkExtractor so the processing pipeline does not
// care how many formats exist.
type Registry struct {
	extractors map[domain.DocumentType]ports.ChunkExtractor
}

func NewRegistry() *Registry {
	return &Registry{extractors: make(map[domain.DocumentType]ports.ChunkExtractor)}
}

func (r *Registry) Register(docType domain.DocumentType, ext ports.ChunkExtractor) {
	r.extractors[docType] = ext
}

func (r *Registry) Extract(ctx context.Context, doc *domain.Document) ([]ports.ExtractedSegment, error) {
	ext, ok := r.extractors[doc.Type]
	if !ok {
		return nil, domain.WrapError(domain.ErrValidation, "extractor.Extract",
			fmt.Errorf("no extractor registered for document type %q", doc.Type))
	}
	return ext.Extract(ctx, doc)
}
