package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/casewise/docintel/internal/core/domain"
	"github.com/casewise/docintel/internal/core/ports"
)

type SearchOptions struct {
	DefaultLimit         int
	MaxLimit             int
	DefaultMinSimilarity float64
	// CandidateFactor oversamples each retrieval path so hybrid fusion has
	// enough overlap to detect both-mode matches.
	CandidateFactor int
}

func (o SearchOptions) normalized() SearchOptions {
	if o.DefaultLimit <= 0 {
		o.DefaultLimit = 20
	}
	if o.MaxLimit <= 0 {
		o.MaxLimit = 100
	}
	if o.DefaultMinSimilarity <= 0 {
		o.DefaultMinSimilarity = 0.35
	}
	if o.CandidateFactor <= 0 {
		o.CandidateFactor = 3
	}
	return o
}

// SearchUseCase answers case-scoped document searches over the chunk store.
// Full-text and semantic retrieval run independently; hybrid mode fuses
// them per document.
type SearchUseCase struct {
	chunks   ports.ChunkStore
	embedder ports.Embedder
	opts     SearchOptions
}

func NewSearchUseCase(chunks ports.ChunkStore, embedder ports.Embedder, opts SearchOptions) *SearchUseCase {
	return &SearchUseCase{
		chunks:   chunks,
		embedder: embedder,
		opts:     opts.normalized(),
	}
}

func (uc *SearchUseCase) Search(ctx context.Context, q domain.SearchQuery) ([]domain.SearchResult, error) {
	q, err := uc.normalizeQuery(q)
	if err != nil {
		return nil, err
	}
	candidates := q.Limit * uc.opts.CandidateFactor

	switch q.Mode {
	case domain.SearchFullText:
		results, err := uc.lexicalResults(ctx, q, candidates)
		if err != nil {
			return nil, err
		}
		sortResults(results)
		return trimResults(results, q.Limit), nil

	case domain.SearchSemantic:
		results, err := uc.semanticResults(ctx, q, candidates)
		if err != nil {
			return nil, err
		}
		sortResults(results)
		return trimResults(results, q.Limit), nil

	case domain.SearchHybrid:
		lexical, err := uc.lexicalResults(ctx, q, candidates)
		if err != nil {
			return nil, err
		}
		semantic, err := uc.semanticResults(ctx, q, candidates)
		if err != nil {
			return nil, err
		}
		return fuseHybridResults(lexical, semantic, q.Limit), nil

	default:
		return nil, domain.WrapError(domain.ErrInvalidInput, "search", fmt.Errorf("unknown search mode %q", q.Mode))
	}
}

func (uc *SearchUseCase) normalizeQuery(q domain.SearchQuery) (domain.SearchQuery, error) {
	if q.CaseID == "" {
		return q, domain.WrapError(domain.ErrInvalidInput, "search", errors.New("case id is required"))
	}
	if strings.TrimSpace(q.Query) == "" {
		return q, domain.WrapError(domain.ErrInvalidInput, "search", errors.New("query is required"))
	}
	if q.Mode == "" {
		q.Mode = domain.SearchHybrid
	}
	if q.Limit <= 0 {
		q.Limit = uc.opts.DefaultLimit
	}
	if q.Limit > uc.opts.MaxLimit {
		q.Limit = uc.opts.MaxLimit
	}
	if q.MinSimilarity <= 0 {
		q.MinSimilarity = uc.opts.DefaultMinSimilarity
	}
	if q.MinSimilarity > 1 {
		q.MinSimilarity = 1
	}
	return q, nil
}

// lexicalResults runs the full-text path and folds chunk hits down to one
// result per document. A query made entirely of stopwords yields no
// results rather than an error.
func (uc *SearchUseCase) lexicalResults(ctx context.Context, q domain.SearchQuery, candidates int) ([]domain.SearchResult, error) {
	terms := searchTerms(q.Query)
	if len(terms) == 0 {
		return nil, nil
	}

	hits, err := uc.chunks.LexicalSearch(ctx, q.CaseID, terms, candidates, q.Filters)
	if err != nil {
		return nil, fmt.Errorf("lexical search: %w", err)
	}

	folded := foldLexicalHits(hits, terms, strings.ToLower(strings.TrimSpace(q.Query)))
	out := make([]domain.SearchResult, 0, len(folded))
	for _, agg := range folded {
		out = append(out, agg.result(len(terms)))
	}
	return out, nil
}

// semanticResults embeds the query and folds chunk hits down to the best
// scoring chunk per document.
func (uc *SearchUseCase) semanticResults(ctx context.Context, q domain.SearchQuery, candidates int) ([]domain.SearchResult, error) {
	vector, err := uc.embedder.EmbedQuery(ctx, q.Query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	hits, err := uc.chunks.SemanticSearch(ctx, q.CaseID, vector, candidates, q.MinSimilarity, q.Filters)
	if err != nil {
		return nil, fmt.Errorf("semantic search: %w", err)
	}

	best := make(map[string]domain.ChunkHit, len(hits))
	order := make([]string, 0, len(hits))
	for _, hit := range hits {
		current, seen := best[hit.DocumentID]
		if !seen {
			best[hit.DocumentID] = hit
			order = append(order, hit.DocumentID)
			continue
		}
		if hit.Similarity > current.Similarity {
			best[hit.DocumentID] = hit
		}
	}

	out := make([]domain.SearchResult, 0, len(order))
	for _, docID := range order {
		hit := best[docID]
		out = append(out, domain.SearchResult{
			ID:             hit.ChunkID,
			DocumentID:     hit.DocumentID,
			FileName:       hit.FileName,
			Category:       hit.Category,
			Subtype:        hit.Subtype,
			PageNumber:     hit.PageNumber,
			RelevanceScore: hit.Similarity,
			MatchType:      domain.MatchSemantic,
			Snippet:        makeSnippet(hit.Content, snippetRunes),
			Metadata:       hit.Metadata,
		})
	}
	return out, nil
}
