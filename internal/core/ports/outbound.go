package ports

import (
	"context"
	"io"

	"github.com/vlasenkov/knowledge-base/internal/core/domain"
)

// DocumentRepository persists the Document aggregate, chunks included.
// Load/save is a full read-modify-write cycle; one aggregate is one unit of
// consistency.
type DocumentRepository interface {
	Save(ctx context.Context, doc *domain.Document) error
	GetByID(ctx context.Context, id string) (*domain.Document, error)
}

// KnowledgeBaseRepository persists the KnowledgeBase aggregate together
// with its member documents and bounded search history.
type KnowledgeBaseRepository interface {
	Save(ctx context.Context, kb *domain.KnowledgeBase) error
	GetByID(ctx context.Context, id string) (*domain.KnowledgeBase, error)
}

// ObjectStorage stores source document files.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// MessageQueue publishes/consumes document-uploaded events.
type MessageQueue interface {
	PublishDocumentUploaded(ctx context.Context, knowledgeBaseID, documentID string) error
	SubscribeDocumentUploaded(ctx context.Context, handler func(ctx context.Context, knowledgeBaseID, documentID string) error) error
}

// ExtractedSegment is one ordered text segment produced by the extraction
// pipeline, positioned inside its source file.
type ExtractedSegment struct {
	Content    string
	PageNumber int
	ChunkIndex int
	SourceInfo string
}

// ChunkExtractor turns a stored file into ordered text segments.
type ChunkExtractor interface {
	Extract(ctx context.Context, doc *domain.Document) ([]ExtractedSegment, error)
}

// Embedder builds vectors for chunk contents and query text.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// EventPublisher fans out domain events drained after a successful save.
type EventPublisher interface {
	PublishEvents(ctx context.Context, events []domain.Event) error
}
