package ports

import (
	"context"
	"io"

	"github.com/vlasenkov/knowledge-base/internal/core/domain"
)

// DocumentUploader is the inbound contract for document upload orchestration.
type DocumentUploader interface {
	Upload(ctx context.Context, req UploadRequest) (*domain.Document, error)
}

// UploadRequest carries everything the upload use case needs to admit a
// file into a knowledge base.
type UploadRequest struct {
	KnowledgeBaseID string
	UploadedBy      string
	Title           string
	Description     string
	DocumentType    string
	FileName        string
	ContentType     string
	SizeBytes       int64
	Body            io.Reader
}

// DocumentProcessor is the inbound contract for asynchronous chunk
// extraction and embedding.
type DocumentProcessor interface {
	ProcessDocument(ctx context.Context, knowledgeBaseID, documentID string) error
}

// Searcher executes a similarity search against one knowledge base.
type Searcher interface {
	Search(ctx context.Context, req SearchRequest) (*domain.SearchQuery, error)
}

// SearchRequest is the raw, unvalidated search input; the use case turns it
// into domain value types.
type SearchRequest struct {
	KnowledgeBaseID string
	UserID          string
	QueryText       string
	QueryType       string
	Filters         domain.SearchFilters
	Config          *domain.SearchConfiguration
}

// KnowledgeBaseManager covers knowledge-base lifecycle operations.
type KnowledgeBaseManager interface {
	Create(ctx context.Context, name, description, createdBy string, config *domain.SearchConfiguration) (*domain.KnowledgeBase, error)
	Get(ctx context.Context, id string) (*domain.KnowledgeBase, error)
	UpdateSearchConfiguration(ctx context.Context, id string, config domain.SearchConfiguration) error
	UpdateStatus(ctx context.Context, id string, status domain.KnowledgeBaseStatus) error
	RemoveDocument(ctx context.Context, id, documentID string) error
}
