package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Document is an aggregate root owning an ordered list of chunks and a
// processing state machine:
//
//	pending -> processing -> completed
//	any state          -> failed
//	any except completed -> cancelled
type Document struct {
	ID              string           `json:"id"`
	UploadedBy      string           `json:"uploaded_by"`
	Title           string           `json:"title"`
	Description     string           `json:"description,omitempty"`
	Type            DocumentType     `json:"type"`
	File            FileMetadata     `json:"file"`
	Status          ProcessingStatus `json:"status"`
	StoragePath     string           `json:"storage_path"`
	Tags            []string         `json:"tags,omitempty"`
	ErrorMessage    string           `json:"error_message,omitempty"`
	ProcessedAt     *time.Time       `json:"processed_at,omitempty"`
	ChunkCount      int              `json:"chunk_count"`
	TotalTextLength int              `json:"total_text_length"`
	Chunks          []*DocumentChunk `json:"-"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
	DeletedAt       *time.Time       `json:"deleted_at,omitempty"`

	eventRecorder
}

func UploadDocument(
	uploadedBy, title, description string,
	docType DocumentType,
	file FileMetadata,
	storagePath string,
) (*Document, error) {
	const op = "upload document"

	if strings.TrimSpace(uploadedBy) == "" {
		return nil, validationErr(op, "uploader is blank")
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, validationErr(op, "title is blank")
	}
	if strings.TrimSpace(storagePath) == "" {
		return nil, validationErr(op, "storage path is blank")
	}

	now := time.Now().UTC()
	doc := &Document{
		ID:          uuid.NewString(),
		UploadedBy:  uploadedBy,
		Title:       title,
		Description: strings.TrimSpace(description),
		Type:        docType,
		File:        file,
		Status:      StatusPending,
		StoragePath: storagePath,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	doc.recordEvent(EventDocumentUploaded, doc.ID)
	return doc, nil
}

func (d *Document) StartProcessing() error {
	if d.Status != StatusPending {
		return stateErr("start processing", "document %s is %s, want %s", d.ID, d.Status, StatusPending)
	}
	d.Status = StatusProcessing
	d.touch()
	return nil
}

// CompleteProcessing records the summary figures reported by the extraction
// pipeline. They are not derived from the chunk list.
func (d *Document) CompleteProcessing(chunkCount, totalTextLength int) error {
	const op = "complete processing"

	if d.Status != StatusProcessing {
		return stateErr(op, "document %s is %s, want %s", d.ID, d.Status, StatusProcessing)
	}
	if chunkCount < 0 {
		return validationErr(op, "chunk count %d below 0", chunkCount)
	}
	if totalTextLength < 0 {
		return validationErr(op, "total text length %d below 0", totalTextLength)
	}

	now := time.Now().UTC()
	d.Status = StatusCompleted
	d.ChunkCount = chunkCount
	d.TotalTextLength = totalTextLength
	d.ErrorMessage = ""
	d.ProcessedAt = &now
	d.UpdatedAt = now
	d.recordEvent(EventDocumentCompleted, d.ID)
	return nil
}

func (d *Document) FailProcessing(message string) error {
	message = strings.TrimSpace(message)
	if message == "" {
		return validationErr("fail processing", "error text is required")
	}
	d.Status = StatusFailed
	d.ErrorMessage = message
	d.touch()
	d.recordEvent(EventDocumentFailed, d.ID)
	return nil
}

func (d *Document) CancelProcessing() error {
	if d.Status == StatusCompleted {
		return stateErr("cancel processing", "document %s is already completed", d.ID)
	}
	d.Status = StatusCancelled
	d.touch()
	d.recordEvent(EventDocumentCancelled, d.ID)
	return nil
}

// AddChunk appends in any status: the extraction pipeline appends as it
// works. The chunk must reference this document.
func (d *Document) AddChunk(chunk *DocumentChunk) error {
	const op = "add chunk"

	if chunk == nil {
		return validationErr(op, "chunk is nil")
	}
	if chunk.DocumentID != d.ID {
		return validationErr(op, "chunk belongs to document %s, not %s", chunk.DocumentID, d.ID)
	}
	d.Chunks = append(d.Chunks, chunk)
	d.touch()
	d.recordEvent(EventChunkAdded, d.ID)
	return nil
}

func (d *Document) UpdateTitle(title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return validationErr("update title", "title is blank")
	}
	d.Title = title
	d.touch()
	return nil
}

func (d *Document) UpdateDescription(description string) error {
	description = strings.TrimSpace(description)
	if description == "" {
		return validationErr("update description", "description is blank")
	}
	d.Description = description
	d.touch()
	return nil
}

// UpdateTags replaces the tag list, dropping blanks and trimming the rest.
func (d *Document) UpdateTags(tags []string) {
	cleaned := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag != "" {
			cleaned = append(cleaned, tag)
		}
	}
	d.Tags = cleaned
	d.touch()
}

// Delete soft-deletes the document. A document cannot be deleted while its
// extraction pipeline may still be appending chunks.
func (d *Document) Delete() error {
	if d.Status == StatusProcessing {
		return stateErr("delete document", "document %s is still processing", d.ID)
	}
	now := time.Now().UTC()
	d.DeletedAt = &now
	d.UpdatedAt = now
	return nil
}

func (d *Document) IsDeleted() bool {
	return d.DeletedAt != nil
}

// ProcessedChunks returns the chunks carrying an embedding, in insertion
// order.
func (d *Document) ProcessedChunks() []*DocumentChunk {
	out := make([]*DocumentChunk, 0, len(d.Chunks))
	for _, chunk := range d.Chunks {
		if chunk.IsProcessed() {
			out = append(out, chunk)
		}
	}
	return out
}

func (d *Document) touch() {
	d.UpdatedAt = time.Now().UTC()
}
