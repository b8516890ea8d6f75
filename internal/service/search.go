package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/junhopark/prdforge/internal/domain"
	"github.com/junhopark/prdforge/internal/logger"
	"github.com/junhopark/prdforge/internal/repository"
)

// Embedder generates embedding vectors for passages and queries.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedQuery(ctx context.Context, query string) ([]float32, error)
}

// VectorStore is the slice of the qdrant repository the search service uses.
type VectorStore interface {
	Upsert(ctx context.Context, pointID string, vector []float32, payload *repository.RequirementPayload) error
	Search(ctx context.Context, vector []float32, topK int, filters *repository.SearchFilters) ([]repository.SearchResult, error)
	DeletePoints(ctx context.Context, pointIDs []string) error
}

// SearchService indexes approved requirements and answers cross-PRD
// similarity queries.
type SearchService struct {
	embedder Embedder
	vectors  VectorStore
}

// NewSearchService wires requirement similarity search.
func NewSearchService(embedder Embedder, vectors VectorStore) *SearchService {
	return &SearchService{embedder: embedder, vectors: vectors}
}

// IndexRequirements embeds approved requirements and upserts them with
// their PRD lineage. Satisfies the orchestrator's Indexer.
func (s *SearchService) IndexRequirements(ctx context.Context, jobID, prdID string, reqs []domain.RequirementCandidate) error {
	var failed int
	for _, r := range reqs {
		vector, err := s.embedder.Embed(ctx, embeddingText(&r))
		if err != nil {
			return fmt.Errorf("embed requirement %s: %w", r.ID, err)
		}
		payload := &repository.RequirementPayload{
			RequirementID: r.ID,
			JobID:         jobID,
			PRDID:         prdID,
			Kind:          string(r.Kind),
			Priority:      string(r.Priority),
			Title:         r.Title,
			Confidence:    r.Confidence,
		}
		if err := s.vectors.Upsert(ctx, r.ID, vector, payload); err != nil {
			failed++
			logger.CtxWarn(ctx, "upsert requirement %s: %v", r.ID, err)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d requirements failed to index", failed, len(reqs))
	}

	logger.With(logger.Fields{logger.FieldJobID: jobID}).
		WithCount(len(reqs)).
		Info(ctx, "requirements indexed for prd %s", prdID)
	return nil
}

// RemoveRequirements drops requirement vectors from the index. Satisfies
// the generator's Deindexer.
func (s *SearchService) RemoveRequirements(ctx context.Context, requirementIDs []string) error {
	return s.vectors.DeletePoints(ctx, requirementIDs)
}

// Match is one similarity search hit.
type Match struct {
	RequirementID string  `json:"requirement_id"`
	PRDID         string  `json:"prd_id"`
	JobID         string  `json:"job_id"`
	Kind          string  `json:"kind"`
	Priority      string  `json:"priority"`
	Title         string  `json:"title"`
	Score         float32 `json:"score"`
}

// SearchQuery is a similarity search request.
type SearchQuery struct {
	Query    string `json:"query"`
	TopK     int    `json:"top_k,omitempty"`
	Kind     string `json:"kind,omitempty"`
	Priority string `json:"priority,omitempty"`
	PRDID    string `json:"prd_id,omitempty"`
}

// Search embeds the query and returns similar requirements across PRDs.
func (s *SearchService) Search(ctx context.Context, q SearchQuery) ([]Match, error) {
	if strings.TrimSpace(q.Query) == "" {
		return nil, fmt.Errorf("%w: empty query", ErrInvalidInput)
	}
	topK := q.TopK
	if topK <= 0 {
		topK = 10
	}

	vector, err := s.embedder.EmbedQuery(ctx, q.Query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	var filters *repository.SearchFilters
	if q.Kind != "" || q.Priority != "" || q.PRDID != "" {
		filters = &repository.SearchFilters{}
		if q.Kind != "" {
			filters.Kind = &q.Kind
		}
		if q.Priority != "" {
			filters.Priority = &q.Priority
		}
		if q.PRDID != "" {
			filters.PRDID = &q.PRDID
		}
	}

	results, err := s.vectors.Search(ctx, vector, topK, filters)
	if err != nil {
		return nil, fmt.Errorf("search vectors: %w", err)
	}

	matches := make([]Match, 0, len(results))
	for _, r := range results {
		if r.Payload == nil {
			continue
		}
		matches = append(matches, Match{
			RequirementID: r.Payload.RequirementID,
			PRDID:         r.Payload.PRDID,
			JobID:         r.Payload.JobID,
			Kind:          r.Payload.Kind,
			Priority:      r.Payload.Priority,
			Title:         r.Payload.Title,
			Score:         r.Score,
		})
	}
	return matches, nil
}

// embeddingText is the passage representation of a requirement: title and
// description carry the semantics.
func embeddingText(c *domain.RequirementCandidate) string {
	var b strings.Builder
	b.WriteString(c.Title)
	b.WriteString("\n")
	b.WriteString(c.Description)
	if c.UserStory != "" {
		b.WriteString("\n")
		b.WriteString(c.UserStory)
	}
	return b.String()
}
