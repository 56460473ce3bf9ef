package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/vlasenkov/knowledge-base/internal/core/domain"
	"github.com/vlasenkov/knowledge-base/internal/core/ports"
)

type UploadDocumentUseCase struct {
	documents ports.DocumentRepository
	bases     ports.KnowledgeBaseRepository
	storage   ports.ObjectStorage
	queue     ports.MessageQueue
	events    ports.EventPublisher
}

func NewUploadDocumentUseCase(
	documents ports.DocumentRepository,
	bases ports.KnowledgeBaseRepository,
	storage ports.ObjectStorage,
	queue ports.MessageQueue,
	events ports.EventPublisher,
) *UploadDocumentUseCase {
	return &UploadDocumentUseCase{
		documents: documents,
		bases:     bases,
		storage:   storage,
		queue:     queue,
		events:    events,
	}
}

func (uc *UploadDocumentUseCase) Upload(ctx context.Context, req ports.UploadRequest) (*domain.Document, error) {
	kb, err := uc.bases.GetByID(ctx, req.KnowledgeBaseID)
	if err != nil {
		return nil, fmt.Errorf("fetch knowledge base: %w", err)
	}

	docType, err := domain.ParseDocumentType(req.DocumentType)
	if err != nil {
		return nil, err
	}
	file, err := domain.NewFileMetadata(req.FileName, req.SizeBytes, req.ContentType, "")
	if err != nil {
		return nil, err
	}

	storageKey := fmt.Sprintf("%s/%s_%s", kb.ID, uuid.NewString(), sanitizeFilename(req.FileName))
	if err := uc.storage.Save(ctx, storageKey, req.Body); err != nil {
		return nil, fmt.Errorf("save to object storage: %w", err)
	}

	doc, err := domain.UploadDocument(req.UploadedBy, req.Title, req.Description, docType, file, storageKey)
	if err != nil {
		return nil, err
	}
	if err := kb.AddDocument(doc); err != nil {
		return nil, err
	}

	if err := uc.documents.Save(ctx, doc); err != nil {
		return nil, fmt.Errorf("save document: %w", err)
	}
	if err := uc.bases.Save(ctx, kb); err != nil {
		return nil, fmt.Errorf("save knowledge base: %w", err)
	}

	uc.publishDrainedEvents(ctx, append(doc.DrainEvents(), kb.DrainEvents()...))

	if err := uc.queue.PublishDocumentUploaded(ctx, kb.ID, doc.ID); err != nil {
		return nil, fmt.Errorf("publish upload event: %w", err)
	}

	return doc, nil
}

// Event fan-out is informational; a slow or down subscriber must not fail
// the upload that already persisted.
func (uc *UploadDocumentUseCase) publishDrainedEvents(ctx context.Context, events []domain.Event) {
	if uc.events == nil || len(events) == 0 {
		return
	}
	if err := uc.events.PublishEvents(ctx, events); err != nil {
		slog.Warn("publish domain events", "error", err)
	}
}

func sanitizeFilename(name string) string {
	base := filepath.Base(name)
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" {
		return "document.bin"
	}
	return base
}
