package plaintext

import (
	"context"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/vlasenkov/knowledge-base/internal/core/domain"
	"github.com/vlasenkov/knowledge-base/internal/core/ports"
	"github.com/vlasenkov/knowledge-base/internal/infrastructure/chunking"
)

// Extractor handles text-native formats: plain text, markdown and HTML
// source files are windowed as-is without structural parsing.
type Extractor struct {
	storage  ports.ObjectStorage
	splitter *chunking.Splitter
}

func NewExtractor(storage ports.ObjectStorage, splitter *chunking.Splitter) *Extractor {
	return &Extractor{storage: storage, splitter: splitter}
}

func (e *Extractor) Extract(ctx context.Context, doc *domain.Document) ([]ports.ExtractedSegment, error) {
	reader, err := e.storage.Open(ctx, doc.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("open source document: %w", err)
	}
	defer reader.Close()

	raw, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read source document: %w", err)
	}

	if !utf8.Valid(raw) {
		return nil, domain.WrapError(domain.ErrValidation, "plaintext.Extract",
			fmt.Errorf("file %s is not valid UTF-8 text", doc.File.FileName))
	}

	segments := e.splitter.Split(string(raw))
	out := make([]ports.ExtractedSegment, 0, len(segments))
	for _, seg := range segments {
		out = append(out, ports.ExtractedSegment{
			Content:    seg.Content,
			PageNumber: seg.PageNumber,
			ChunkIndex: seg.ChunkIndex,
			SourceInfo: doc.File.FileName,
		})
	}
	return out, nil
}
