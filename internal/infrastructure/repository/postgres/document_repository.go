package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/vlasenkov/knowledge-base/internal/core/domain"
)

// DocumentRepository persists the Document aggregate as one consistent unit:
// the document row and every chunk row are written in a single transaction.
type DocumentRepository struct {
	db *sql.DB
}

func NewDocumentRepository(db *sql.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *DocumentRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026083001)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS documents (
	id TEXT PRIMARY KEY,
	uploaded_by TEXT NOT NULL,
	title TEXT NOT NULL,
	description TEXT,
	doc_type TEXT NOT NULL,
	file_name TEXT NOT NULL,
	file_size BIGINT NOT NULL,
	content_type TEXT NOT NULL,
	checksum TEXT,
	status TEXT NOT NULL,
	storage_path TEXT NOT NULL,
	tags JSONB NOT NULL DEFAULT '[]'::jsonb,
	error_message TEXT,
	processed_at TIMESTAMPTZ,
	chunk_count INT NOT NULL DEFAULT 0,
	total_text_length INT NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	deleted_at TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS document_chunks (
	id TEXT PRIMARY KEY,
	document_id TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
	content TEXT NOT NULL,
	page_number INT NOT NULL,
	chunk_index INT NOT NULL,
	source_info TEXT,
	embedding JSONB,
	embedded_at TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS knowledge_bases (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	description TEXT NOT NULL,
	status TEXT NOT NULL,
	created_by TEXT NOT NULL,
	top_k INT NOT NULL,
	similarity_threshold DOUBLE PRECISION NOT NULL,
	include_metadata BOOLEAN NOT NULL,
	total_documents INT NOT NULL DEFAULT 0,
	total_chunks INT NOT NULL DEFAULT 0,
	total_storage_bytes BIGINT NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS knowledge_base_documents (
	knowledge_base_id TEXT NOT NULL REFERENCES knowledge_bases(id) ON DELETE CASCADE,
	document_id TEXT NOT NULL REFERENCES documents(id),
	position INT NOT NULL,
	PRIMARY KEY (knowledge_base_id, document_id)
);

CREATE TABLE IF NOT EXISTS search_queries (
	id TEXT PRIMARY KEY,
	knowledge_base_id TEXT NOT NULL REFERENCES knowledge_bases(id) ON DELETE CASCADE,
	user_id TEXT NOT NULL,
	query_text TEXT NOT NULL,
	query_type TEXT NOT NULL,
	filters JSONB NOT NULL DEFAULT '{}'::jsonb,
	results JSONB NOT NULL DEFAULT '[]'::jsonb,
	executed_at TIMESTAMPTZ NOT NULL,
	duration_ns BIGINT NOT NULL DEFAULT 0,
	error_message TEXT,
	succeeded BOOLEAN NOT NULL,
	finalized BOOLEAN NOT NULL,
	position INT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_documents_status ON documents(status);
CREATE INDEX IF NOT EXISTS idx_document_chunks_document ON document_chunks(document_id, chunk_index);
CREATE INDEX IF NOT EXISTS idx_search_queries_kb ON search_queries(knowledge_base_id, position);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *DocumentRepository) Save(ctx context.Context, doc *domain.Document) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := saveDocumentTx(ctx, tx, doc); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save tx: %w", err)
	}
	return nil
}

func saveDocumentTx(ctx context.Context, tx *sql.Tx, doc *domain.Document) error {
	tagsJSON, err := json.Marshal(doc.Tags)
	if err != nil {
		return fmt.Errorf("marshal tags: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
INSERT INTO documents (
	id, uploaded_by, title, description, doc_type, file_name, file_size, content_type, checksum,
	status, storage_path, tags, error_message, processed_at, chunk_count, total_text_length,
	created_at, updated_at, deleted_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)
ON CONFLICT (id) DO UPDATE SET
	title = EXCLUDED.title,
	description = EXCLUDED.description,
	status = EXCLUDED.status,
	tags = EXCLUDED.tags,
	error_message = EXCLUDED.error_message,
	processed_at = EXCLUDED.processed_at,
	chunk_count = EXCLUDED.chunk_count,
	total_text_length = EXCLUDED.total_text_length,
	updated_at = EXCLUDED.updated_at,
	deleted_at = EXCLUDED.deleted_at
`,
		doc.ID, doc.UploadedBy, doc.Title, doc.Description, string(doc.Type),
		doc.File.FileName, doc.File.SizeBytes, doc.File.ContentType, doc.File.Checksum,
		string(doc.Status), doc.StoragePath, tagsJSON, doc.ErrorMessage, doc.ProcessedAt,
		doc.ChunkCount, doc.TotalTextLength, doc.CreatedAt, doc.UpdatedAt, doc.DeletedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert document: %w", err)
	}

	// Chunks are immutable once written, so replace-all keeps the save
	// path simple and idempotent.
	if _, err := tx.ExecContext(ctx, `DELETE FROM document_chunks WHERE document_id = $1`, doc.ID); err != nil {
		return fmt.Errorf("clear chunks: %w", err)
	}
	for _, chunk := range doc.Chunks {
		var embeddingJSON any
		var embeddedAt *time.Time
		if chunk.Vector != nil {
			raw, err := json.Marshal(chunk.Vector.Embedding.Values())
			if err != nil {
				return fmt.Errorf("marshal embedding: %w", err)
			}
			embeddingJSON = raw
			at := chunk.Vector.ProcessedAt
			embeddedAt = &at
		}

		_, err := tx.ExecContext(ctx, `
INSERT INTO document_chunks (
	id, document_id, content, page_number, chunk_index, source_info, embedding, embedded_at, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
`,
			chunk.ID, chunk.DocumentID, chunk.Content,
			chunk.Metadata.PageNumber, chunk.Metadata.ChunkIndex, chunk.Metadata.SourceInfo,
			embeddingJSON, embeddedAt, chunk.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert chunk: %w", err)
		}
	}
	return nil
}

func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, uploaded_by, title, description, doc_type, file_name, file_size, content_type, checksum,
	status, storage_path, tags, error_message, processed_at, chunk_count, total_text_length,
	created_at, updated_at, deleted_at
FROM documents
WHERE id = $1
`, id)

	doc, err := scanDocument(row)
	if err != nil {
		return nil, err
	}

	chunks, err := r.loadChunks(ctx, doc.ID)
	if err != nil {
		return nil, err
	}
	doc.Chunks = chunks
	return doc, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*domain.Document, error) {
	var doc domain.Document
	var tagsRaw []byte
	var docType, status string
	var description, checksum, errorMessage sql.NullString

	err := row.Scan(
		&doc.ID, &doc.UploadedBy, &doc.Title, &description, &docType,
		&doc.File.FileName, &doc.File.SizeBytes, &doc.File.ContentType, &checksum,
		&status, &doc.StoragePath, &tagsRaw, &errorMessage, &doc.ProcessedAt,
		&doc.ChunkCount, &doc.TotalTextLength, &doc.CreatedAt, &doc.UpdatedAt, &doc.DeletedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "load document", err)
		}
		return nil, fmt.Errorf("scan document: %w", err)
	}

	if err := json.Unmarshal(tagsRaw, &doc.Tags); err != nil {
		return nil, fmt.Errorf("unmarshal tags: %w", err)
	}
	doc.Description = description.String
	doc.File.Checksum = checksum.String
	doc.ErrorMessage = errorMessage.String
	doc.Type = domain.DocumentType(docType)
	doc.Status = domain.ProcessingStatus(status)
	return &doc, nil
}

func (r *DocumentRepository) loadChunks(ctx context.Context, documentID string) ([]*domain.DocumentChunk, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, document_id, content, page_number, chunk_index, source_info, embedding, embedded_at, created_at
FROM document_chunks
WHERE document_id = $1
ORDER BY chunk_index
`, documentID)
	if err != nil {
		return nil, fmt.Errorf("query chunks: %w", err)
	}
	defer rows.Close()

	var chunks []*domain.DocumentChunk
	for rows.Next() {
		var chunk domain.DocumentChunk
		var sourceInfo sql.NullString
		var embeddingRaw []byte
		var embeddedAt *time.Time

		err := rows.Scan(
			&chunk.ID, &chunk.DocumentID, &chunk.Content,
			&chunk.Metadata.PageNumber, &chunk.Metadata.ChunkIndex, &sourceInfo,
			&embeddingRaw, &embeddedAt, &chunk.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		chunk.Metadata.SourceInfo = sourceInfo.String

		if len(embeddingRaw) > 0 && embeddedAt != nil {
			var values []float32
			if err := json.Unmarshal(embeddingRaw, &values); err != nil {
				return nil, fmt.Errorf("unmarshal embedding: %w", err)
			}
			embedding, err := domain.NewVectorEmbedding(values)
			if err != nil {
				return nil, fmt.Errorf("restore embedding for chunk %s: %w", chunk.ID, err)
			}
			chunk.Vector = &domain.ChunkVector{
				Embedding:   embedding,
				ProcessedAt: *embeddedAt,
			}
		}
		chunks = append(chunks, &chunk)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chunks: %w", err)
	}
	return chunks, nil
}
