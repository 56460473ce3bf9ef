package pdf

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/ledongthuc/pdf"

	"github.com/vlasenkov/knowledge-base/internal/core/domain"
	"github.com/vlasenkov/knowledge-base/internal/core/ports"
	"github.com/vlasenkov/knowledge-base/internal/infrastructure/chunking"
)

// Extractor pulls plain text out of PDF files page by page, so each segment
// keeps the page it came from.
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

	pdfReader, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return nil, domain.WrapError(domain.ErrValidation, "pdf.Extract",
			fmt.Errorf("parse %s: %w", doc.File.FileName, err))
	}

	var out []ports.ExtractedSegment
	nextIndex := 0
	for pageNum := 1; pageNum <= pdfReader.NumPage(); pageNum++ {
		page := pdfReader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// Malformed pages are skipped rather than failing the whole
			// document; scanned PDFs routinely contain unreadable pages.
			continue
		}

		var segments []chunking.Segment
		segments, nextIndex = e.splitter.SplitPage(text, pageNum, nextIndex)
		for _, seg := range segments {
			out = append(out, ports.ExtractedSegment{
				Content:    seg.Content,
				PageNumber: seg.PageNumber,
				ChunkIndex: seg.ChunkIndex,
				SourceInfo: fmt.Sprintf("%s, page %d", doc.File.FileName, seg.PageNumber),
			})
		}
	}
	return out, nil
}
