package domain

import "testing"

func testFile(t *testing.T, size int64) FileMetadata {
	t.Helper()
	file, err := NewFileMetadata("report.pdf", size, "application/pdf", "")
	if err != nil {
		t.Fatalf("NewFileMetadata() error = %v", err)
	}
	return file
}

func testDocument(t *testing.T) *Document {
	t.Helper()
	doc, err := UploadDocument("user-1", "Quarterly report", "Q1 figures", DocumentTypePDF, testFile(t, 1000), "kb/report.pdf")
	if err != nil {
		t.Fatalf("UploadDocument() error = %v", err)
	}
	return doc
}

func TestNewFileMetadataValidation(t *testing.T) {
	tests := []struct {
		name        string
		fileName    string
		size        int64
		contentType string
		wantErr     bool
	}{
		{name: "valid", fileName: "a.txt", size: 1, contentType: "text/plain"},
		{name: "blank name", fileName: "   ", size: 10, contentType: "text/plain", wantErr: true},
		{name: "zero size", fileName: "a.txt", size: 0, contentType: "text/plain", wantErr: true},
		{name: "over 50 MiB", fileName: "a.txt", size: MaxFileSizeBytes + 1, contentType: "text/plain", wantErr: true},
		{name: "at 50 MiB", fileName: "a.txt", size: MaxFileSizeBytes, contentType: "text/plain"},
		{name: "blank content type", fileName: "a.txt", size: 10, contentType: " ", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewFileMetadata(tt.fileName, tt.size, tt.contentType, "")
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewFileMetadata() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseFactoriesRejectUnknownAndIgnoreCase(t *testing.T) {
	if _, err := ParseDocumentType("PDF"); err != nil {
		t.Fatalf("ParseDocumentType must be case-insensitive: %v", err)
	}
	if _, err := ParseDocumentType("docx"); !IsKind(err, ErrValidation) {
		t.Fatalf("expected validation error for unknown type, got %v", err)
	}
	if _, err := ParseProcessingStatus(" Pending "); err != nil {
		t.Fatalf("ParseProcessingStatus must trim and fold case: %v", err)
	}
	if _, err := ParseProcessingStatus("archived"); !IsKind(err, ErrValidation) {
		t.Fatalf("expected validation error for unknown status, got %v", err)
	}
	if _, err := ParseSearchQueryType("Hybrid"); err != nil {
		t.Fatalf("ParseSearchQueryType must be case-insensitive: %v", err)
	}
	if _, err := ParseKnowledgeBaseStatus("frozen"); !IsKind(err, ErrValidation) {
		t.Fatalf("expected validation error for unknown kb status, got %v", err)
	}
}

func TestDocumentLifecycleHappyPath(t *testing.T) {
	doc := testDocument(t)
	if doc.Status != StatusPending {
		t.Fatalf("uploaded document must be pending, got %s", doc.Status)
	}

	if err := doc.StartProcessing(); err != nil {
		t.Fatalf("StartProcessing() error = %v", err)
	}
	if doc.Status != StatusProcessing {
		t.Fatalf("expected processing, got %s", doc.Status)
	}

	if err := doc.CompleteProcessing(3, 450); err != nil {
		t.Fatalf("CompleteProcessing() error = %v", err)
	}
	if doc.Status != StatusCompleted {
		t.Fatalf("expected completed, got %s", doc.Status)
	}
	if doc.ChunkCount != 3 || doc.TotalTextLength != 450 {
		t.Fatalf("summary figures not recorded: %d/%d", doc.ChunkCount, doc.TotalTextLength)
	}
	if doc.ProcessedAt == nil {
		t.Fatalf("ProcessedAt must be set on completion")
	}
}

func TestCompleteProcessingFromPendingFails(t *testing.T) {
	doc := testDocument(t)

	err := doc.CompleteProcessing(1, 10)
	if !IsKind(err, ErrInvalidState) {
		t.Fatalf("expected invalid-state error, got %v", err)
	}
	if doc.Status != StatusPending {
		t.Fatalf("failed transition must leave status unchanged, got %s", doc.Status)
	}
}

func TestCancelProcessing(t *testing.T) {
	tests := []struct {
		name    string
		prepare func(t *testing.T, doc *Document)
		wantErr bool
	}{
		{name: "from pending", prepare: func(*testing.T, *Document) {}},
		{name: "from processing", prepare: func(t *testing.T, doc *Document) {
			if err := doc.StartProcessing(); err != nil {
				t.Fatalf("StartProcessing() error = %v", err)
			}
		}},
		{name: "from failed", prepare: func(t *testing.T, doc *Document) {
			if err := doc.FailProcessing("boom"); err != nil {
				t.Fatalf("FailProcessing() error = %v", err)
			}
		}},
		{name: "from completed", prepare: func(t *testing.T, doc *Document) {
			if err := doc.StartProcessing(); err != nil {
				t.Fatalf("StartProcessing() error = %v", err)
			}
			if err := doc.CompleteProcessing(1, 10); err != nil {
				t.Fatalf("CompleteProcessing() error = %v", err)
			}
		}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := testDocument(t)
			tt.prepare(t, doc)

			err := doc.CancelProcessing()
			if (err != nil) != tt.wantErr {
				t.Fatalf("CancelProcessing() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && doc.Status != StatusCancelled {
				t.Fatalf("expected cancelled, got %s", doc.Status)
			}
			if tt.wantErr && doc.Status != StatusCompleted {
				t.Fatalf("failed cancel must leave status unchanged, got %s", doc.Status)
			}
		})
	}
}

func TestFailProcessingRequiresErrorText(t *testing.T) {
	doc := testDocument(t)
	if err := doc.FailProcessing("  "); !IsKind(err, ErrValidation) {
		t.Fatalf("expected validation error for blank message, got %v", err)
	}
	if err := doc.FailProcessing("extractor crashed"); err != nil {
		t.Fatalf("FailProcessing() error = %v", err)
	}
	if doc.Status != StatusFailed || doc.ErrorMessage != "extractor crashed" {
		t.Fatalf("failure not recorded: %s %q", doc.Status, doc.ErrorMessage)
	}
}

func TestAddChunkChecksOwnership(t *testing.T) {
	doc := testDocument(t)

	foreign, err := NewDocumentChunk("another-doc", "foreign chunk body", testMetadata(t))
	if err != nil {
		t.Fatalf("NewDocumentChunk() error = %v", err)
	}
	if err := doc.AddChunk(foreign); !IsKind(err, ErrValidation) {
		t.Fatalf("expected validation error for foreign chunk, got %v", err)
	}

	owned, err := NewDocumentChunk(doc.ID, "owned chunk body", testMetadata(t))
	if err != nil {
		t.Fatalf("NewDocumentChunk() error = %v", err)
	}
	if err := doc.AddChunk(owned); err != nil {
		t.Fatalf("AddChunk() error = %v", err)
	}
	if len(doc.Chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(doc.Chunks))
	}
}

func TestAddChunkAllowedInAnyStatus(t *testing.T) {
	doc := testDocument(t)
	if err := doc.StartProcessing(); err != nil {
		t.Fatalf("StartProcessing() error = %v", err)
	}
	if err := doc.CompleteProcessing(0, 0); err != nil {
		t.Fatalf("CompleteProcessing() error = %v", err)
	}

	chunk, _ := NewDocumentChunk(doc.ID, "late arriving chunk", testMetadata(t))
	if err := doc.AddChunk(chunk); err != nil {
		t.Fatalf("AddChunk() after completion error = %v", err)
	}
}

func TestDeleteFailsWhileProcessing(t *testing.T) {
	doc := testDocument(t)
	if err := doc.StartProcessing(); err != nil {
		t.Fatalf("StartProcessing() error = %v", err)
	}
	if err := doc.Delete(); !IsKind(err, ErrInvalidState) {
		t.Fatalf("expected invalid-state error, got %v", err)
	}

	if err := doc.FailProcessing("gave up"); err != nil {
		t.Fatalf("FailProcessing() error = %v", err)
	}
	if err := doc.Delete(); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if !doc.IsDeleted() {
		t.Fatalf("document must be marked deleted")
	}
}

func TestUpdateTitleAndDescriptionRejectBlank(t *testing.T) {
	doc := testDocument(t)
	if err := doc.UpdateTitle("   "); !IsKind(err, ErrValidation) {
		t.Fatalf("expected validation error for blank title, got %v", err)
	}
	if err := doc.UpdateDescription(""); !IsKind(err, ErrValidation) {
		t.Fatalf("expected validation error for blank description, got %v", err)
	}
	if err := doc.UpdateTitle("  New title "); err != nil {
		t.Fatalf("UpdateTitle() error = %v", err)
	}
	if doc.Title != "New title" {
		t.Fatalf("title not trimmed: %q", doc.Title)
	}
}

func TestDocumentEventsDrained(t *testing.T) {
	doc := testDocument(t)
	events := doc.DrainEvents()
	if len(events) != 1 || events[0].Name != EventDocumentUploaded {
		t.Fatalf("expected one upload event, got %+v", events)
	}
	if len(doc.DrainEvents()) != 0 {
		t.Fatalf("drain must clear the queue")
	}
}
