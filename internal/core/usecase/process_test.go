package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/vlasenkov/knowledge-base/internal/core/domain"
	"github.com/vlasenkov/knowledge-base/internal/core/ports"
)

func pendingDocument(t *testing.T, documents *documentRepoFake, bases *kbRepoFake) (*domain.KnowledgeBase, *domain.Document) {
	t.Helper()
	kb := activeKB(t, bases)

	file, err := domain.NewFileMetadata("notes.txt", 500, "text/plain", "")
	if err != nil {
		t.Fatalf("NewFileMetadata() error = %v", err)
	}
	doc, err := domain.UploadDocument("user-1", "Notes", "Meeting notes", domain.DocumentTypeText, file, "kb/notes.txt")
	if err != nil {
		t.Fatalf("UploadDocument() error = %v", err)
	}
	doc.DrainEvents()
	if err := kb.AddDocument(doc); err != nil {
		t.Fatalf("AddDocument() error = %v", err)
	}
	documents.docs[doc.ID] = doc
	return kb, doc
}

func twoSegments() []ports.ExtractedSegment {
	return []ports.ExtractedSegment{
		{Content: "first extracted segment", PageNumber: 1, ChunkIndex: 0},
		{Content: "second extracted segment", PageNumber: 1, ChunkIndex: 1},
	}
}

func TestProcessDocumentSuccess(t *testing.T) {
	documents := newDocumentRepoFake()
	bases := newKBRepoFake()
	kb, doc := pendingDocument(t, documents, bases)

	uc := NewProcessDocumentUseCase(
		documents,
		bases,
		&extractorFake{segments: twoSegments()},
		&embedderFake{vectors: [][]float32{dimVector(128, 0), dimVector(128, 1)}},
	)

	if err := uc.ProcessDocument(context.Background(), kb.ID, doc.ID); err != nil {
		t.Fatalf("ProcessDocument() error = %v", err)
	}

	if doc.Status != domain.StatusCompleted {
		t.Fatalf("expected completed, got %s", doc.Status)
	}
	wantLength := len("first extracted segment") + len("second extracted segment")
	if doc.ChunkCount != 2 || doc.TotalTextLength != wantLength {
		t.Fatalf("summary figures: %d chunks / %d chars", doc.ChunkCount, doc.TotalTextLength)
	}
	for _, chunk := range doc.Chunks {
		if !chunk.IsProcessed() {
			t.Fatalf("chunk %s left without embedding", chunk.ID)
		}
	}
	if kb.TotalChunks != 2 {
		t.Fatalf("knowledge base chunk total not updated, got %d", kb.TotalChunks)
	}
}

func TestProcessDocumentMarksFailedOnExtractError(t *testing.T) {
	documents := newDocumentRepoFake()
	bases := newKBRepoFake()
	kb, doc := pendingDocument(t, documents, bases)

	uc := NewProcessDocumentUseCase(
		documents,
		bases,
		&extractorFake{err: errors.New("extract fail")},
		&embedderFake{},
	)

	if err := uc.ProcessDocument(context.Background(), kb.ID, doc.ID); err == nil {
		t.Fatalf("expected error")
	}
	if doc.Status != domain.StatusFailed {
		t.Fatalf("expected failed, got %s", doc.Status)
	}
	if doc.ErrorMessage == "" {
		t.Fatalf("failure text must be recorded")
	}
}

func TestProcessDocumentMarksFailedOnZeroSegments(t *testing.T) {
	documents := newDocumentRepoFake()
	bases := newKBRepoFake()
	kb, doc := pendingDocument(t, documents, bases)

	uc := NewProcessDocumentUseCase(documents, bases, &extractorFake{}, &embedderFake{})

	if err := uc.ProcessDocument(context.Background(), kb.ID, doc.ID); err == nil {
		t.Fatalf("expected error")
	}
	if doc.Status != domain.StatusFailed {
		t.Fatalf("expected failed, got %s", doc.Status)
	}
}

func TestProcessDocumentMarksFailedOnVectorMismatch(t *testing.T) {
	documents := newDocumentRepoFake()
	bases := newKBRepoFake()
	kb, doc := pendingDocument(t, documents, bases)

	uc := NewProcessDocumentUseCase(
		documents,
		bases,
		&extractorFake{segments: twoSegments()},
		&embedderFake{vectors: [][]float32{dimVector(128, 0)}},
	)

	if err := uc.ProcessDocument(context.Background(), kb.ID, doc.ID); err == nil {
		t.Fatalf("expected error")
	}
	if doc.Status != domain.StatusFailed {
		t.Fatalf("expected failed, got %s", doc.Status)
	}
}

func TestProcessDocumentCancelledOnContextCancel(t *testing.T) {
	documents := newDocumentRepoFake()
	bases := newKBRepoFake()
	kb, doc := pendingDocument(t, documents, bases)

	uc := NewProcessDocumentUseCase(
		documents,
		bases,
		&extractorFake{err: context.Canceled},
		&embedderFake{},
	)

	if err := uc.ProcessDocument(context.Background(), kb.ID, doc.ID); err == nil {
		t.Fatalf("expected error")
	}
	if doc.Status != domain.StatusCancelled {
		t.Fatalf("expected cancelled for interrupted pipeline, got %s", doc.Status)
	}
}

func TestProcessDocumentRejectsNonPending(t *testing.T) {
	documents := newDocumentRepoFake()
	bases := newKBRepoFake()
	kb, doc := pendingDocument(t, documents, bases)
	if err := doc.StartProcessing(); err != nil {
		t.Fatalf("StartProcessing() error = %v", err)
	}

	uc := NewProcessDocumentUseCase(documents, bases, &extractorFake{segments: twoSegments()}, &embedderFake{})

	if err := uc.ProcessDocument(context.Background(), kb.ID, doc.ID); !domain.IsKind(err, domain.ErrInvalidState) {
		t.Fatalf("expected invalid-state error for double start, got %v", err)
	}
}
