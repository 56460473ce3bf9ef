package usecase

import (
	"context"
	"strings"
	"testing"

	"github.com/vlasenkov/knowledge-base/internal/core/domain"
	"github.com/vlasenkov/knowledge-base/internal/core/ports"
)

func activeKB(t *testing.T, bases *kbRepoFake) *domain.KnowledgeBase {
	t.Helper()
	kb, err := domain.CreateKnowledgeBase("Docs", "Team docs", "user-1", nil)
	if err != nil {
		t.Fatalf("CreateKnowledgeBase() error = %v", err)
	}
	kb.DrainEvents()
	bases.bases[kb.ID] = kb
	return kb
}

func uploadRequest(kbID string) ports.UploadRequest {
	return ports.UploadRequest{
		KnowledgeBaseID: kbID,
		UploadedBy:      "user-1",
		Title:           "Quarterly report",
		Description:     "Q1 figures",
		DocumentType:    "pdf",
		FileName:        "report q1.pdf",
		ContentType:     "application/pdf",
		SizeBytes:       1000,
		Body:            strings.NewReader("pdf bytes"),
	}
}

func TestUploadHappyPath(t *testing.T) {
	documents := newDocumentRepoFake()
	bases := newKBRepoFake()
	storage := newStorageFake()
	queue := &queueFake{}
	events := &eventSinkFake{}
	kb := activeKB(t, bases)

	uc := NewUploadDocumentUseCase(documents, bases, storage, queue, events)
	doc, err := uc.Upload(context.Background(), uploadRequest(kb.ID))
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}

	if doc.Status != domain.StatusPending {
		t.Fatalf("uploaded document must be pending, got %s", doc.Status)
	}
	if len(storage.saved) != 1 {
		t.Fatalf("expected 1 stored object, got %d", len(storage.saved))
	}
	if !strings.HasPrefix(doc.StoragePath, kb.ID+"/") || !strings.HasSuffix(doc.StoragePath, "report_q1.pdf") {
		t.Fatalf("unexpected storage path %q", doc.StoragePath)
	}
	if kb.TotalDocuments != 1 || kb.TotalStorageBytes != 1000 {
		t.Fatalf("knowledge base totals not updated: %d/%d", kb.TotalDocuments, kb.TotalStorageBytes)
	}
	if len(queue.published) != 1 || queue.published[0] != [2]string{kb.ID, doc.ID} {
		t.Fatalf("expected upload event for %s/%s, got %v", kb.ID, doc.ID, queue.published)
	}
	if documents.saves != 1 || bases.saves != 1 {
		t.Fatalf("expected one save per aggregate, got %d/%d", documents.saves, bases.saves)
	}
	if len(events.events) == 0 {
		t.Fatalf("expected drained domain events to be published")
	}
}

func TestUploadRejectsUnknownDocumentType(t *testing.T) {
	bases := newKBRepoFake()
	kb := activeKB(t, bases)
	uc := NewUploadDocumentUseCase(newDocumentRepoFake(), bases, newStorageFake(), &queueFake{}, nil)

	req := uploadRequest(kb.ID)
	req.DocumentType = "docx"
	if _, err := uc.Upload(context.Background(), req); !domain.IsKind(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestUploadFailsWhenKnowledgeBaseInactive(t *testing.T) {
	bases := newKBRepoFake()
	kb := activeKB(t, bases)
	kb.UpdateStatus(domain.KnowledgeBaseMaintenance)

	queue := &queueFake{}
	uc := NewUploadDocumentUseCase(newDocumentRepoFake(), bases, newStorageFake(), queue, nil)

	if _, err := uc.Upload(context.Background(), uploadRequest(kb.ID)); !domain.IsKind(err, domain.ErrInvalidState) {
		t.Fatalf("expected invalid-state error, got %v", err)
	}
	if len(queue.published) != 0 {
		t.Fatalf("no event must be published for a rejected upload")
	}
}

func TestUploadFailsWhenKnowledgeBaseMissing(t *testing.T) {
	uc := NewUploadDocumentUseCase(newDocumentRepoFake(), newKBRepoFake(), newStorageFake(), &queueFake{}, nil)
	if _, err := uc.Upload(context.Background(), uploadRequest("missing")); !domain.IsKind(err, domain.ErrNotFound) {
		t.Fatalf("expected not-found error, got %v", err)
	}
}
