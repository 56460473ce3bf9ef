package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	MinChunkContentLength = 10
	MaxChunkContentLength = 2000
	maxSourceInfoLength   = 500
)

// ChunkMetadata locates a chunk inside its source document.
type ChunkMetadata struct {
	PageNumber int    `json:"page_number"`
	ChunkIndex int    `json:"chunk_index"`
	SourceInfo string `json:"source_info,omitempty"`
}

func NewChunkMetadata(pageNumber, chunkIndex int, sourceInfo string) (ChunkMetadata, error) {
	const op = "create chunk metadata"

	if pageNumber < 1 {
		return ChunkMetadata{}, validationErr(op, "page number %d below 1", pageNumber)
	}
	if chunkIndex < 0 {
		return ChunkMetadata{}, validationErr(op, "chunk index %d below 0", chunkIndex)
	}
	sourceInfo = strings.TrimSpace(sourceInfo)
	if len(sourceInfo) > maxSourceInfoLength {
		return ChunkMetadata{}, validationErr(op, "source info exceeds %d characters", maxSourceInfoLength)
	}

	return ChunkMetadata{
		PageNumber: pageNumber,
		ChunkIndex: chunkIndex,
		SourceInfo: sourceInfo,
	}, nil
}

// ChunkVector pairs an embedding with the moment it was attached. Keeping
// the two in one optional value makes "processed time set without an
// embedding" (and the reverse) unrepresentable.
type ChunkVector struct {
	Embedding   VectorEmbedding
	ProcessedAt time.Time
}

// DocumentChunk is a text segment owned by exactly one Document.
type DocumentChunk struct {
	ID         string        `json:"id"`
	DocumentID string        `json:"document_id"`
	Content    string        `json:"content"`
	Metadata   ChunkMetadata `json:"metadata"`
	Vector     *ChunkVector  `json:"-"`
	CreatedAt  time.Time     `json:"created_at"`
}

func NewDocumentChunk(documentID, content string, metadata ChunkMetadata) (*DocumentChunk, error) {
	const op = "create chunk"

	if strings.TrimSpace(documentID) == "" {
		return nil, validationErr(op, "document id is blank")
	}
	content = strings.TrimSpace(content)
	if len(content) < MinChunkContentLength || len(content) > MaxChunkContentLength {
		return nil, validationErr(
			op,
			"content length %d outside [%d, %d]",
			len(content), MinChunkContentLength, MaxChunkContentLength,
		)
	}

	return &DocumentChunk{
		ID:         uuid.NewString(),
		DocumentID: documentID,
		Content:    content,
		Metadata:   metadata,
		CreatedAt:  time.Now().UTC(),
	}, nil
}

func (c *DocumentChunk) IsProcessed() bool {
	return c.Vector != nil
}

// SetEmbedding attaches a vector and stamps the processing time.
func (c *DocumentChunk) SetEmbedding(embedding VectorEmbedding) error {
	if embedding.IsZero() {
		return validationErr("set embedding", "embedding is empty")
	}
	c.Vector = &ChunkVector{
		Embedding:   embedding,
		ProcessedAt: time.Now().UTC(),
	}
	return nil
}

// UpdateContent replaces the text and drops any attached vector: content
// and embedding must never disagree, so the chunk reverts to unprocessed.
func (c *DocumentChunk) UpdateContent(content string) error {
	content = strings.TrimSpace(content)
	if len(content) < MinChunkContentLength || len(content) > MaxChunkContentLength {
		return validationErr(
			"update chunk content",
			"content length %d outside [%d, %d]",
			len(content), MinChunkContentLength, MaxChunkContentLength,
		)
	}
	c.Content = content
	c.Vector = nil
	return nil
}

// Similarity scores this chunk against a query vector. Unprocessed chunks
// cannot be scored.
func (c *DocumentChunk) Similarity(query VectorEmbedding) (float64, error) {
	if c.Vector == nil {
		return 0, stateErr("calculate similarity", "chunk %s has no embedding", c.ID)
	}
	return query.CosineSimilarity(c.Vector.Embedding)
}
