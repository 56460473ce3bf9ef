package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/vlasenkov/knowledge-base/internal/core/domain"
	"github.com/vlasenkov/knowledge-base/internal/core/ports"
)

type ProcessDocumentUseCase struct {
	documents ports.DocumentRepository
	bases     ports.KnowledgeBaseRepository
	extractor ports.ChunkExtractor
	embedder  ports.Embedder
}

func NewProcessDocumentUseCase(
	documents ports.DocumentRepository,
	bases ports.KnowledgeBaseRepository,
	extractor ports.ChunkExtractor,
	embedder ports.Embedder,
) *ProcessDocumentUseCase {
	return &ProcessDocumentUseCase{
		documents: documents,
		bases:     bases,
		extractor: extractor,
		embedder:  embedder,
	}
}

// ProcessDocument runs the extraction and embedding pipeline for one
// uploaded document: pending -> processing -> completed, or failed with the
// pipeline error recorded, or cancelled when the context is cancelled.
func (uc *ProcessDocumentUseCase) ProcessDocument(ctx context.Context, knowledgeBaseID, documentID string) error {
	doc, err := uc.documents.GetByID(ctx, documentID)
	if err != nil {
		return fmt.Errorf("fetch document by id: %w", err)
	}

	if err := doc.StartProcessing(); err != nil {
		return err
	}
	if err := uc.documents.Save(ctx, doc); err != nil {
		return fmt.Errorf("save status=processing: %w", err)
	}

	chunkCount, totalTextLength, pipelineErr := uc.runPipeline(ctx, doc)
	if pipelineErr != nil {
		if abortErr := uc.abort(ctx, doc, pipelineErr); abortErr != nil {
			return fmt.Errorf("%w; record aborted state: %v", pipelineErr, abortErr)
		}
		return pipelineErr
	}

	if err := doc.CompleteProcessing(chunkCount, totalTextLength); err != nil {
		return err
	}
	if err := uc.documents.Save(ctx, doc); err != nil {
		return fmt.Errorf("save status=completed: %w", err)
	}

	if err := uc.updateChunkTotal(ctx, knowledgeBaseID, chunkCount); err != nil {
		return err
	}
	return nil
}

func (uc *ProcessDocumentUseCase) runPipeline(ctx context.Context, doc *domain.Document) (int, int, error) {
	segments, err := uc.extractor.Extract(ctx, doc)
	if err != nil {
		return 0, 0, fmt.Errorf("extract chunks: %w", err)
	}
	if len(segments) == 0 {
		return 0, 0, domain.WrapError(domain.ErrValidation, "extract chunks", errors.New("extraction produced zero segments"))
	}

	chunks := make([]*domain.DocumentChunk, 0, len(segments))
	contents := make([]string, 0, len(segments))
	totalTextLength := 0
	for _, segment := range segments {
		metadata, err := domain.NewChunkMetadata(segment.PageNumber, segment.ChunkIndex, segment.SourceInfo)
		if err != nil {
			return 0, 0, err
		}
		chunk, err := domain.NewDocumentChunk(doc.ID, segment.Content, metadata)
		if err != nil {
			return 0, 0, err
		}
		if err := doc.AddChunk(chunk); err != nil {
			return 0, 0, err
		}
		chunks = append(chunks, chunk)
		contents = append(contents, chunk.Content)
		totalTextLength += len(chunk.Content)
	}

	vectors, err := uc.embedder.Embed(ctx, contents)
	if err != nil {
		return 0, 0, fmt.Errorf("embed chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return 0, 0, domain.WrapError(
			domain.ErrValidation,
			"embed chunks",
			fmt.Errorf("vectors/chunks mismatch: %d/%d", len(vectors), len(chunks)),
		)
	}

	for i, chunk := range chunks {
		embedding, err := domain.NewVectorEmbedding(vectors[i])
		if err != nil {
			return 0, 0, err
		}
		if err := chunk.SetEmbedding(embedding); err != nil {
			return 0, 0, err
		}
	}

	return len(chunks), totalTextLength, nil
}

// abort records the terminal state for an interrupted pipeline: cancelled
// when the caller gave up, failed otherwise.
func (uc *ProcessDocumentUseCase) abort(ctx context.Context, doc *domain.Document, pipelineErr error) error {
	if errors.Is(pipelineErr, context.Canceled) || errors.Is(pipelineErr, context.DeadlineExceeded) {
		if err := doc.CancelProcessing(); err != nil {
			return err
		}
	} else {
		if err := doc.FailProcessing(pipelineErr.Error()); err != nil {
			return err
		}
	}

	// The processing context may already be dead; the terminal state still
	// has to be persisted.
	saveCtx := context.WithoutCancel(ctx)
	if err := uc.documents.Save(saveCtx, doc); err != nil {
		return fmt.Errorf("save aborted document: %w", err)
	}
	return nil
}

func (uc *ProcessDocumentUseCase) updateChunkTotal(ctx context.Context, knowledgeBaseID string, added int) error {
	kb, err := uc.bases.GetByID(ctx, knowledgeBaseID)
	if err != nil {
		return fmt.Errorf("fetch knowledge base: %w", err)
	}
	if err := kb.UpdateChunkCount(kb.TotalChunks + added); err != nil {
		return err
	}
	if err := uc.bases.Save(ctx, kb); err != nil {
		return fmt.Errorf("save knowledge base totals: %w", err)
	}
	return nil
}
