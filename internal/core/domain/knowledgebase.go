package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// MaxSearchHistory bounds the per-knowledge-base search log. Once full,
// each new record evicts the oldest entry.
const MaxSearchHistory = 1000

type KnowledgeBaseStatus string

const (
	KnowledgeBaseActive      KnowledgeBaseStatus = "active"
	KnowledgeBaseMaintenance KnowledgeBaseStatus = "maintenance"
	KnowledgeBaseDisabled    KnowledgeBaseStatus = "disabled"
	KnowledgeBaseError       KnowledgeBaseStatus = "error"
)

func ParseKnowledgeBaseStatus(raw string) (KnowledgeBaseStatus, error) {
	switch KnowledgeBaseStatus(strings.ToLower(strings.TrimSpace(raw))) {
	case KnowledgeBaseActive:
		return KnowledgeBaseActive, nil
	case KnowledgeBaseMaintenance:
		return KnowledgeBaseMaintenance, nil
	case KnowledgeBaseDisabled:
		return KnowledgeBaseDisabled, nil
	case KnowledgeBaseError:
		return KnowledgeBaseError, nil
	default:
		return "", validationErr("parse knowledge base status", "unknown status %q", raw)
	}
}

// KnowledgeBase is the aggregate root other layers call. It owns its member
// documents, a bounded search history, and the default search
// configuration. TotalStorageBytes is maintained incrementally on add and
// remove, never recomputed from the member list.
type KnowledgeBase struct {
	ID                string              `json:"id"`
	Name              string              `json:"name"`
	Description       string              `json:"description"`
	Status            KnowledgeBaseStatus `json:"status"`
	SearchConfig      SearchConfiguration `json:"search_config"`
	CreatedBy         string              `json:"created_by"`
	Documents         []*Document         `json:"-"`
	SearchHistory     []*SearchQuery      `json:"-"`
	TotalDocuments    int                 `json:"total_documents"`
	TotalChunks       int                 `json:"total_chunks"`
	TotalStorageBytes int64               `json:"total_storage_bytes"`
	CreatedAt         time.Time           `json:"created_at"`
	UpdatedAt         time.Time           `json:"updated_at"`

	eventRecorder
}

// CreateKnowledgeBase builds an active, empty knowledge base. A nil config
// falls back to the defaults.
func CreateKnowledgeBase(name, description, createdBy string, config *SearchConfiguration) (*KnowledgeBase, error) {
	const op = "create knowledge base"

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, validationErr(op, "name is blank")
	}
	description = strings.TrimSpace(description)
	if description == "" {
		return nil, validationErr(op, "description is blank")
	}
	if strings.TrimSpace(createdBy) == "" {
		return nil, validationErr(op, "creator is blank")
	}

	cfg := DefaultSearchConfiguration()
	if config != nil {
		cfg = *config
	}

	now := time.Now().UTC()
	return &KnowledgeBase{
		ID:           uuid.NewString(),
		Name:         name,
		Description:  description,
		Status:       KnowledgeBaseActive,
		SearchConfig: cfg,
		CreatedBy:    createdBy,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// AddDocument is idempotent: re-adding an already present id leaves the
// member list and the running totals unchanged.
func (kb *KnowledgeBase) AddDocument(doc *Document) error {
	const op = "add document"

	if doc == nil {
		return validationErr(op, "document is nil")
	}
	if kb.Status != KnowledgeBaseActive {
		return stateErr(op, "knowledge base %s is %s, want %s", kb.ID, kb.Status, KnowledgeBaseActive)
	}
	if kb.HasDocument(doc.ID) {
		return nil
	}

	kb.Documents = append(kb.Documents, doc)
	kb.TotalDocuments++
	kb.TotalStorageBytes += doc.File.SizeBytes
	kb.touch()
	kb.recordEvent(EventDocumentAttached, kb.ID)
	return nil
}

// RemoveDocument is a no-op when the id is absent. Totals are decremented
// by the stored file size, trusting the aggregate's own bookkeeping.
func (kb *KnowledgeBase) RemoveDocument(documentID string) error {
	idx := -1
	for i, doc := range kb.Documents {
		if doc.ID == documentID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil
	}
	if kb.Status != KnowledgeBaseActive {
		return stateErr("remove document", "knowledge base %s is %s, want %s", kb.ID, kb.Status, KnowledgeBaseActive)
	}

	removed := kb.Documents[idx]
	kb.Documents = append(kb.Documents[:idx], kb.Documents[idx+1:]...)
	kb.TotalDocuments--
	kb.TotalStorageBytes -= removed.File.SizeBytes
	kb.touch()
	kb.recordEvent(EventDocumentDetached, kb.ID)
	return nil
}

func (kb *KnowledgeBase) UpdateSearchConfiguration(config SearchConfiguration) {
	kb.SearchConfig = config
	kb.touch()
}

func (kb *KnowledgeBase) UpdateStatus(status KnowledgeBaseStatus) {
	kb.Status = status
	kb.touch()
}

func (kb *KnowledgeBase) UpdateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return validationErr("update name", "name is blank")
	}
	kb.Name = name
	kb.touch()
	return nil
}

func (kb *KnowledgeBase) UpdateDescription(description string) error {
	description = strings.TrimSpace(description)
	if description == "" {
		return validationErr("update description", "description is blank")
	}
	kb.Description = description
	kb.touch()
	return nil
}

// RecordSearch appends to the history, evicting the oldest entry once the
// log would exceed MaxSearchHistory.
func (kb *KnowledgeBase) RecordSearch(query *SearchQuery) error {
	if query == nil {
		return validationErr("record search", "search query is nil")
	}
	kb.SearchHistory = append(kb.SearchHistory, query)
	if len(kb.SearchHistory) > MaxSearchHistory {
		kb.SearchHistory = kb.SearchHistory[1:]
	}
	kb.touch()
	kb.recordEvent(EventSearchRecorded, kb.ID)
	return nil
}

// UpdateChunkCount sets the externally computed running chunk total.
func (kb *KnowledgeBase) UpdateChunkCount(count int) error {
	if count < 0 {
		return validationErr("update chunk count", "chunk count %d below 0", count)
	}
	kb.TotalChunks = count
	kb.touch()
	return nil
}

func (kb *KnowledgeBase) HasDocument(documentID string) bool {
	return kb.GetDocument(documentID) != nil
}

func (kb *KnowledgeBase) GetDocument(documentID string) *Document {
	for _, doc := range kb.Documents {
		if doc.ID == documentID {
			return doc
		}
	}
	return nil
}

func (kb *KnowledgeBase) GetProcessedDocuments() []*Document {
	return kb.documentsByStatus(StatusCompleted)
}

func (kb *KnowledgeBase) GetFailedDocuments() []*Document {
	return kb.documentsByStatus(StatusFailed)
}

func (kb *KnowledgeBase) documentsByStatus(status ProcessingStatus) []*Document {
	out := make([]*Document, 0, len(kb.Documents))
	for _, doc := range kb.Documents {
		if doc.Status == status {
			out = append(out, doc)
		}
	}
	return out
}

func (kb *KnowledgeBase) touch() {
	kb.UpdatedAt = time.Now().UTC()
}
