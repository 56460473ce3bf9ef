package usecase

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/vlasenkov/knowledge-base/internal/core/domain"
	"github.com/vlasenkov/knowledge-base/internal/core/ports"
)

const excerptLength = 200

// Hybrid searches blend vector and lexical evidence with fixed weights.
const (
	hybridSemanticWeight = 0.7
	hybridKeywordWeight  = 0.3
)

type SearchUseCase struct {
	bases    ports.KnowledgeBaseRepository
	embedder ports.Embedder
}

func NewSearchUseCase(bases ports.KnowledgeBaseRepository, embedder ports.Embedder) *SearchUseCase {
	return &SearchUseCase{
		bases:    bases,
		embedder: embedder,
	}
}

// Search validates the request, ranks eligible chunks against the query,
// and records the execution in the knowledge base's history. A failure
// inside the ranking pipeline is still recorded: the returned query then
// carries the error text and no results.
func (uc *SearchUseCase) Search(ctx context.Context, req ports.SearchRequest) (*domain.SearchQuery, error) {
	kb, err := uc.bases.GetByID(ctx, req.KnowledgeBaseID)
	if err != nil {
		return nil, fmt.Errorf("fetch knowledge base: %w", err)
	}

	queryType, err := domain.ParseSearchQueryType(req.QueryType)
	if err != nil {
		return nil, err
	}
	query, err := domain.NewSearchQuery(req.UserID, kb.ID, req.QueryText, queryType, req.Filters)
	if err != nil {
		return nil, err
	}

	config := kb.SearchConfig
	if req.Config != nil {
		config = *req.Config
	}

	started := time.Now()
	results, execErr := uc.execute(ctx, kb, query, config)
	elapsed := time.Since(started)

	if execErr != nil {
		if err := query.Fail(execErr.Error(), elapsed); err != nil {
			return nil, err
		}
	} else {
		if err := query.Complete(results, elapsed); err != nil {
			return nil, err
		}
	}

	if err := kb.RecordSearch(query); err != nil {
		return nil, err
	}
	if err := uc.bases.Save(ctx, kb); err != nil {
		return nil, fmt.Errorf("save search history: %w", err)
	}

	return query, nil
}

type scoredChunk struct {
	chunk      *domain.DocumentChunk
	documentID string
	score      float64
}

func (uc *SearchUseCase) execute(
	ctx context.Context,
	kb *domain.KnowledgeBase,
	query *domain.SearchQuery,
	config domain.SearchConfiguration,
) ([]domain.SearchResult, error) {
	var queryEmbedding domain.VectorEmbedding
	if query.Type.NeedsEmbedding() {
		raw, err := uc.embedder.EmbedQuery(ctx, query.QueryText)
		if err != nil {
			return nil, fmt.Errorf("embed query: %w", err)
		}
		queryEmbedding, err = domain.NewVectorEmbedding(raw)
		if err != nil {
			return nil, err
		}
		query.SetEmbedding(queryEmbedding)
	}

	queryTokens := toTokenSet(query.QueryText)

	candidates := make([]scoredChunk, 0, 32)
	for _, doc := range kb.Documents {
		if doc.IsDeleted() || !query.Filters.MatchesDocument(doc) {
			continue
		}
		for _, chunk := range doc.ProcessedChunks() {
			score, err := uc.scoreChunk(chunk, query.Type, queryEmbedding, queryTokens)
			if err != nil {
				return nil, err
			}
			// The raw score is compared against the threshold before any
			// clamping: a negative cosine must not sneak past a 0.0
			// threshold by being clamped first.
			if score < config.SimilarityThreshold {
				continue
			}
			candidates = append(candidates, scoredChunk{
				chunk:      chunk,
				documentID: doc.ID,
				score:      score,
			})
		}
	}

	// Stable sort keeps original chunk order on ties, so results are
	// deterministic across runs.
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})
	if len(candidates) > config.TopK {
		candidates = candidates[:config.TopK]
	}

	results := make([]domain.SearchResult, 0, len(candidates))
	for _, candidate := range candidates {
		excerpt := ""
		if config.IncludeMetadata {
			excerpt = makeExcerpt(candidate.chunk.Content, excerptLength)
		}
		result, err := domain.NewSearchResult(candidate.chunk.ID, candidate.documentID, candidate.score, excerpt)
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}
	return results, nil
}

func (uc *SearchUseCase) scoreChunk(
	chunk *domain.DocumentChunk,
	queryType domain.SearchQueryType,
	queryEmbedding domain.VectorEmbedding,
	queryTokens map[string]struct{},
) (float64, error) {
	switch queryType {
	case domain.SearchTypeKeyword:
		return tokenOverlap(queryTokens, toTokenSet(chunk.Content)), nil
	case domain.SearchTypeHybrid:
		cosine, err := chunk.Similarity(queryEmbedding)
		if err != nil {
			return 0, err
		}
		overlap := tokenOverlap(queryTokens, toTokenSet(chunk.Content))
		return hybridSemanticWeight*cosine + hybridKeywordWeight*overlap, nil
	default:
		return chunk.Similarity(queryEmbedding)
	}
}

func makeExcerpt(content string, limit int) string {
	runes := []rune(content)
	if len(runes) <= limit {
		return content
	}
	return string(runes[:limit]) + "…"
}
