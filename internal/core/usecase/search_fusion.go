package usecase

import (
	"sort"

	"github.com/casewise/docintel/internal/core/domain"
)

// hybridBoost rewards documents found by both retrieval paths. Applied
// after taking the max of the two scores, capped at 1.
const hybridBoost = 1.1

// fuseHybridResults merges the two per-document result lists. A document in
// both lists becomes a single "both" result carrying the higher score, the
// union of highlights, and the longer snippet.
func fuseHybridResults(lexical, semantic []domain.SearchResult, limit int) []domain.SearchResult {
	merged := make(map[string]domain.SearchResult, len(lexical)+len(semantic))
	order := make([]string, 0, len(lexical)+len(semantic))

	for _, r := range lexical {
		merged[r.DocumentID] = r
		order = append(order, r.DocumentID)
	}
	for _, sem := range semantic {
		lex, seen := merged[sem.DocumentID]
		if !seen {
			merged[sem.DocumentID] = sem
			order = append(order, sem.DocumentID)
			continue
		}
		merged[sem.DocumentID] = mergeBothMatch(lex, sem)
	}

	out := make([]domain.SearchResult, 0, len(order))
	for _, docID := range order {
		out = append(out, merged[docID])
	}
	sortResults(out)
	return trimResults(out, limit)
}

func mergeBothMatch(lex, sem domain.SearchResult) domain.SearchResult {
	out := lex
	out.MatchType = domain.MatchBoth

	if sem.RelevanceScore > out.RelevanceScore {
		out.RelevanceScore = sem.RelevanceScore
	}
	out.RelevanceScore = clampScore(out.RelevanceScore * hybridBoost)

	if len(sem.Snippet) > len(out.Snippet) {
		out.Snippet = sem.Snippet
		out.ID = sem.ID
		out.PageNumber = sem.PageNumber
	}
	out.Highlights = unionHighlights(lex.Highlights, sem.Highlights)
	return out
}

func unionHighlights(a, b []string) []string {
	if len(a) == 0 {
		return b
	}
	if len(b) == 0 {
		return a
	}
	seen := make(map[string]struct{}, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, frag := range a {
		if _, dup := seen[frag]; dup {
			continue
		}
		seen[frag] = struct{}{}
		out = append(out, frag)
	}
	for _, frag := range b {
		if _, dup := seen[frag]; dup {
			continue
		}
		seen[frag] = struct{}{}
		out = append(out, frag)
	}
	return out
}

func sortResults(results []domain.SearchResult) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].RelevanceScore != results[j].RelevanceScore {
			return results[i].RelevanceScore > results[j].RelevanceScore
		}
		if results[i].DocumentID != results[j].DocumentID {
			return results[i].DocumentID < results[j].DocumentID
		}
		return results[i].ID < results[j].ID
	})
}

func trimResults(results []domain.SearchResult, limit int) []domain.SearchResult {
	if limit <= 0 || len(results) <= limit {
		return results
	}
	return results[:limit]
}
