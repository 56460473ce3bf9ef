package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	MaxQueryTextLength = 1000

	MinTopK = 1
	MaxTopK = 100

	DefaultTopK                = 5
	DefaultSimilarityThreshold = 0.7
)

type SearchQueryType string

const (
	SearchTypeSemantic   SearchQueryType = "semantic"
	SearchTypeKeyword    SearchQueryType = "keyword"
	SearchTypeHybrid     SearchQueryType = "hybrid"
	SearchTypeSimilarity SearchQueryType = "similarity"
)

func ParseSearchQueryType(raw string) (SearchQueryType, error) {
	switch SearchQueryType(strings.ToLower(strings.TrimSpace(raw))) {
	case SearchTypeSemantic:
		return SearchTypeSemantic, nil
	case SearchTypeKeyword:
		return SearchTypeKeyword, nil
	case SearchTypeHybrid:
		return SearchTypeHybrid, nil
	case SearchTypeSimilarity:
		return SearchTypeSimilarity, nil
	default:
		return "", validationErr("parse search type", "unknown search type %q", raw)
	}
}

// NeedsEmbedding reports whether this search type requires a query vector.
func (t SearchQueryType) NeedsEmbedding() bool {
	return t == SearchTypeSemantic || t == SearchTypeHybrid || t == SearchTypeSimilarity
}

// SearchFilters constrains the document set a search runs over. Every
// present field is AND'd with the others; an absent field imposes no
// constraint.
type SearchFilters struct {
	DocumentIDs   []string       `json:"document_ids,omitempty"`
	DocumentTypes []DocumentType `json:"document_types,omitempty"`
	DateFrom      *time.Time     `json:"date_from,omitempty"`
	DateTo        *time.Time     `json:"date_to,omitempty"`
	Tags          []string       `json:"tags,omitempty"`
}

func NewSearchFilters(
	documentIDs []string,
	documentTypes []DocumentType,
	dateFrom, dateTo *time.Time,
	tags []string,
) (SearchFilters, error) {
	if dateFrom != nil && dateTo != nil && dateFrom.After(*dateTo) {
		return SearchFilters{}, validationErr("create search filters", "date range inverted: from is after to")
	}

	cleanedTags := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag != "" {
			cleanedTags = append(cleanedTags, tag)
		}
	}

	return SearchFilters{
		DocumentIDs:   documentIDs,
		DocumentTypes: documentTypes,
		DateFrom:      dateFrom,
		DateTo:        dateTo,
		Tags:          cleanedTags,
	}, nil
}

func (f SearchFilters) HasFilters() bool {
	return len(f.DocumentIDs) > 0 ||
		len(f.DocumentTypes) > 0 ||
		f.DateFrom != nil ||
		f.DateTo != nil ||
		len(f.Tags) > 0
}

// MatchesDocument evaluates all present constraints against a document.
func (f SearchFilters) MatchesDocument(doc *Document) bool {
	if doc == nil {
		return false
	}
	if len(f.DocumentIDs) > 0 && !containsString(f.DocumentIDs, doc.ID) {
		return false
	}
	if len(f.DocumentTypes) > 0 {
		found := false
		for _, t := range f.DocumentTypes {
			if t == doc.Type {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.DateFrom != nil && doc.CreatedAt.Before(*f.DateFrom) {
		return false
	}
	if f.DateTo != nil && doc.CreatedAt.After(*f.DateTo) {
		return false
	}
	for _, tag := range f.Tags {
		if !containsString(doc.Tags, tag) {
			return false
		}
	}
	return true
}

func containsString(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}

// SearchConfiguration tunes ranking and truncation.
type SearchConfiguration struct {
	TopK                int     `json:"top_k"`
	SimilarityThreshold float64 `json:"similarity_threshold"`
	IncludeMetadata     bool    `json:"include_metadata"`
}

func NewSearchConfiguration(topK int, threshold float64, includeMetadata bool) (SearchConfiguration, error) {
	const op = "create search configuration"

	if topK < MinTopK || topK > MaxTopK {
		return SearchConfiguration{}, validationErr(op, "top-k %d outside [%d, %d]", topK, MinTopK, MaxTopK)
	}
	if threshold < 0.0 || threshold > 1.0 {
		return SearchConfiguration{}, validationErr(op, "similarity threshold %g outside [0, 1]", threshold)
	}

	return SearchConfiguration{
		TopK:                topK,
		SimilarityThreshold: threshold,
		IncludeMetadata:     includeMetadata,
	}, nil
}

func DefaultSearchConfiguration() SearchConfiguration {
	return SearchConfiguration{
		TopK:                DefaultTopK,
		SimilarityThreshold: DefaultSimilarityThreshold,
		IncludeMetadata:     true,
	}
}

// SearchResult is a scored reference to a chunk. It holds identities only,
// never the chunk itself. The stored score is clamped to [0, 1]; filtering
// against the threshold happens on the raw score before construction.
type SearchResult struct {
	ChunkID    string  `json:"chunk_id"`
	DocumentID string  `json:"document_id"`
	Score      float64 `json:"score"`
	Excerpt    string  `json:"excerpt,omitempty"`
}

func NewSearchResult(chunkID, documentID string, score float64, excerpt string) (SearchResult, error) {
	if strings.TrimSpace(chunkID) == "" {
		return SearchResult{}, validationErr("create search result", "chunk id is blank")
	}
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return SearchResult{
		ChunkID:    chunkID,
		DocumentID: documentID,
		Score:      score,
		Excerpt:    excerpt,
	}, nil
}

// SearchQuery records one search execution. It is finalized exactly once,
// through Complete or Fail; results, duration, and the success flag are
// written together.
type SearchQuery struct {
	ID              string          `json:"id"`
	UserID          string          `json:"user_id"`
	KnowledgeBaseID string          `json:"knowledge_base_id"`
	QueryText       string          `json:"query_text"`
	Type            SearchQueryType `json:"type"`
	Filters         SearchFilters   `json:"filters"`
	Embedding       VectorEmbedding `json:"-"`
	ExecutedAt      time.Time       `json:"executed_at"`
	Duration        time.Duration   `json:"duration"`
	Results         []SearchResult  `json:"results,omitempty"`
	ErrorMessage    string          `json:"error_message,omitempty"`
	Succeeded       bool            `json:"succeeded"`
	Finalized       bool            `json:"finalized"`
}

func NewSearchQuery(
	userID, knowledgeBaseID, queryText string,
	queryType SearchQueryType,
	filters SearchFilters,
) (*SearchQuery, error) {
	const op = "create search query"

	if strings.TrimSpace(userID) == "" {
		return nil, validationErr(op, "user id is blank")
	}
	if strings.TrimSpace(knowledgeBaseID) == "" {
		return nil, validationErr(op, "knowledge base id is blank")
	}
	queryText = strings.TrimSpace(queryText)
	if len(queryText) < 1 || len(queryText) > MaxQueryTextLength {
		return nil, validationErr(op, "query text length %d outside [1, %d]", len(queryText), MaxQueryTextLength)
	}

	return &SearchQuery{
		ID:              uuid.NewString(),
		UserID:          userID,
		KnowledgeBaseID: knowledgeBaseID,
		QueryText:       queryText,
		Type:            queryType,
		Filters:         filters,
		ExecutedAt:      time.Now().UTC(),
	}, nil
}

func (q *SearchQuery) SetEmbedding(embedding VectorEmbedding) {
	q.Embedding = embedding
}

func (q *SearchQuery) Complete(results []SearchResult, elapsed time.Duration) error {
	if q.Finalized {
		return stateErr("complete search", "search %s is already finalized", q.ID)
	}
	q.Results = results
	q.Duration = elapsed
	q.Succeeded = true
	q.Finalized = true
	return nil
}

func (q *SearchQuery) Fail(message string, elapsed time.Duration) error {
	const op = "fail search"

	if q.Finalized {
		return stateErr(op, "search %s is already finalized", q.ID)
	}
	message = strings.TrimSpace(message)
	if message == "" {
		return validationErr(op, "error text is required")
	}
	q.Results = nil
	q.Duration = elapsed
	q.ErrorMessage = message
	q.Succeeded = false
	q.Finalized = true
	return nil
}
