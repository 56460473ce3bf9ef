package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/vlasenkov/knowledge-base/internal/core/domain"
)

// KnowledgeBaseRepository persists the KnowledgeBase aggregate: the base row,
// document membership, and the bounded search history. Member documents are
// owned by DocumentRepository; this repository only stores the linkage and
// reloads full documents on read.
type KnowledgeBaseRepository struct {
	db        *sql.DB
	documents *DocumentRepository
}

func NewKnowledgeBaseRepository(db *sql.DB, documents *DocumentRepository) *KnowledgeBaseRepository {
	return &KnowledgeBaseRepository{db: db, documents: documents}
}

func (r *KnowledgeBaseRepository) Save(ctx context.Context, kb *domain.KnowledgeBase) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	_, err = tx.ExecContext(ctx, `
INSERT INTO knowledge_bases (
	id, name, description, status, created_by, top_k, similarity_threshold, include_metadata,
	total_documents, total_chunks, total_storage_bytes, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
ON CONFLICT (id) DO UPDATE SET
	name = EXCLUDED.name,
	description = EXCLUDED.description,
	status = EXCLUDED.status,
	top_k = EXCLUDED.top_k,
	similarity_threshold = EXCLUDED.similarity_threshold,
	include_metadata = EXCLUDED.include_metadata,
	total_documents = EXCLUDED.total_documents,
	total_chunks = EXCLUDED.total_chunks,
	total_storage_bytes = EXCLUDED.total_storage_bytes,
	updated_at = EXCLUDED.updated_at
`,
		kb.ID, kb.Name, kb.Description, string(kb.Status), kb.CreatedBy,
		kb.SearchConfig.TopK, kb.SearchConfig.SimilarityThreshold, kb.SearchConfig.IncludeMetadata,
		kb.TotalDocuments, kb.TotalChunks, kb.TotalStorageBytes, kb.CreatedAt, kb.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert knowledge base: %w", err)
	}

	if err := r.saveMembership(ctx, tx, kb); err != nil {
		return err
	}
	if err := r.saveSearchHistory(ctx, tx, kb); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save tx: %w", err)
	}
	return nil
}

func (r *KnowledgeBaseRepository) saveMembership(ctx context.Context, tx *sql.Tx, kb *domain.KnowledgeBase) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM knowledge_base_documents WHERE knowledge_base_id = $1`, kb.ID); err != nil {
		return fmt.Errorf("clear membership: %w", err)
	}
	for i, doc := range kb.Documents {
		_, err := tx.ExecContext(ctx, `
INSERT INTO knowledge_base_documents (knowledge_base_id, document_id, position) VALUES ($1,$2,$3)
`, kb.ID, doc.ID, i)
		if err != nil {
			return fmt.Errorf("insert membership: %w", err)
		}
	}
	return nil
}

func (r *KnowledgeBaseRepository) saveSearchHistory(ctx context.Context, tx *sql.Tx, kb *domain.KnowledgeBase) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM search_queries WHERE knowledge_base_id = $1`, kb.ID); err != nil {
		return fmt.Errorf("clear search history: %w", err)
	}
	for i, query := range kb.SearchHistory {
		filtersJSON, err := json.Marshal(query.Filters)
		if err != nil {
			return fmt.Errorf("marshal filters: %w", err)
		}
		resultsJSON, err := json.Marshal(query.Results)
		if err != nil {
			return fmt.Errorf("marshal results: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
INSERT INTO search_queries (
	id, knowledge_base_id, user_id, query_text, query_type, filters, results,
	executed_at, duration_ns, error_message, succeeded, finalized, position
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
`,
			query.ID, query.KnowledgeBaseID, query.UserID, query.QueryText, string(query.Type),
			filtersJSON, resultsJSON, query.ExecutedAt, int64(query.Duration),
			query.ErrorMessage, query.Succeeded, query.Finalized, i,
		)
		if err != nil {
			return fmt.Errorf("insert search query: %w", err)
		}
	}
	return nil
}

func (r *KnowledgeBaseRepository) GetByID(ctx context.Context, id string) (*domain.KnowledgeBase, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, name, description, status, created_by, top_k, similarity_threshold, include_metadata,
	total_documents, total_chunks, total_storage_bytes, created_at, updated_at
FROM knowledge_bases
WHERE id = $1
`, id)

	var kb domain.KnowledgeBase
	var status string
	err := row.Scan(
		&kb.ID, &kb.Name, &kb.Description, &status, &kb.CreatedBy,
		&kb.SearchConfig.TopK, &kb.SearchConfig.SimilarityThreshold, &kb.SearchConfig.IncludeMetadata,
		&kb.TotalDocuments, &kb.TotalChunks, &kb.TotalStorageBytes, &kb.CreatedAt, &kb.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "load knowledge base", err)
		}
		return nil, fmt.Errorf("scan knowledge base: %w", err)
	}
	kb.Status = domain.KnowledgeBaseStatus(status)

	if err := r.loadDocuments(ctx, &kb); err != nil {
		return nil, err
	}
	if err := r.loadSearchHistory(ctx, &kb); err != nil {
		return nil, err
	}
	return &kb, nil
}

func (r *KnowledgeBaseRepository) loadDocuments(ctx context.Context, kb *domain.KnowledgeBase) error {
	rows, err := r.db.QueryContext(ctx, `
SELECT document_id
FROM knowledge_base_documents
WHERE knowledge_base_id = $1
ORDER BY position
`, kb.ID)
	if err != nil {
		return fmt.Errorf("query membership: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return fmt.Errorf("scan membership: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate membership: %w", err)
	}

	for _, id := range ids {
		doc, err := r.documents.GetByID(ctx, id)
		if err != nil {
			return fmt.Errorf("load member document %s: %w", id, err)
		}
		kb.Documents = append(kb.Documents, doc)
	}
	return nil
}

func (r *KnowledgeBaseRepository) loadSearchHistory(ctx context.Context, kb *domain.KnowledgeBase) error {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, user_id, query_text, query_type, filters, results,
	executed_at, duration_ns, error_message, succeeded, finalized
FROM search_queries
WHERE knowledge_base_id = $1
ORDER BY position
`, kb.ID)
	if err != nil {
		return fmt.Errorf("query search history: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var query domain.SearchQuery
		var queryType string
		var filtersRaw, resultsRaw []byte
		var durationNS int64
		var errorMessage sql.NullString

		err := rows.Scan(
			&query.ID, &query.UserID, &query.QueryText, &queryType, &filtersRaw, &resultsRaw,
			&query.ExecutedAt, &durationNS, &errorMessage, &query.Succeeded, &query.Finalized,
		)
		if err != nil {
			return fmt.Errorf("scan search query: %w", err)
		}

		if err := json.Unmarshal(filtersRaw, &query.Filters); err != nil {
			return fmt.Errorf("unmarshal filters: %w", err)
		}
		if err := json.Unmarshal(resultsRaw, &query.Results); err != nil {
			return fmt.Errorf("unmarshal results: %w", err)
		}
		query.KnowledgeBaseID = kb.ID
		query.Type = domain.SearchQueryType(queryType)
		query.Duration = time.Duration(durationNS)
		query.ErrorMessage = errorMessage.String
		kb.SearchHistory = append(kb.SearchHistory, &query)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate search history: %w", err)
	}
	return nil
}
