package xlsx

import (
	"context"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/vlasenkov/knowledge-base/internal/core/domain"
	"github.com/vlasenkov/knowledge-base/internal/core/ports"
	"github.com/vlasenkov/knowledge-base/internal/infrastructure/chunking"
)

// Extractor flattens spreadsheet workbooks into text, one sheet per page.
// Rows become tab-joined lines so the splitter keeps cell groupings together.
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

	workbook, err := excelize.OpenReader(reader)
	if err != nil {
		return nil, domain.WrapError(domain.ErrValidation, "xlsx.Extract",
			fmt.Errorf("parse %s: %w", doc.File.FileName, err))
	}
	defer workbook.Close()

	var out []ports.ExtractedSegment
	nextIndex := 0
	for sheetNum, sheetName := range workbook.GetSheetList() {
		rows, err := workbook.GetRows(sheetName)
		if err != nil {
			return nil, fmt.Errorf("read sheet %s: %w", sheetName, err)
		}

		lines := make([]string, 0, len(rows))
		for _, row := range rows {
			line := strings.TrimSpace(strings.Join(row, "\t"))
			if line != "" {
				lines = append(lines, line)
			}
		}

		var segments []chunking.Segment
		segments, nextIndex = e.splitter.SplitPage(strings.Join(lines, "\n"), sheetNum+1, nextIndex)
		for _, seg := range segments {
			out = append(out, ports.ExtractedSegment{
				Content:    seg.Content,
				PageNumber: seg.PageNumber,
				ChunkIndex: seg.ChunkIndex,
				SourceInfo: fmt.Sprintf("%s, sheet %s", doc.File.FileName, sheetName),
			})
		}
	}
	return out, nil
}
