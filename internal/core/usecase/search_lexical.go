package usecase

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/casewise/docintel/internal/core/domain"
)

const (
	// Full-text scoring: every matching document starts at the base, an
	// exact phrase hit adds the bonus, and term coverage fills the rest.
	lexicalBaseScore    = 0.4
	lexicalPhraseBonus  = 0.2
	lexicalCoverageMax  = 0.4
	snippetRunes        = 200
	highlightContext    = 60
	maxHighlightsPerDoc = 3
)

var searchStopwords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "are": {}, "but": {}, "not": {},
	"you": {}, "all": {}, "any": {}, "can": {}, "had": {}, "her": {},
	"was": {}, "one": {}, "our": {}, "out": {}, "has": {}, "have": {},
	"him": {}, "his": {}, "how": {}, "its": {}, "may": {}, "new": {},
	"now": {}, "old": {}, "see": {}, "two": {}, "way": {}, "who": {},
	"did": {}, "get": {}, "let": {}, "say": {}, "she": {}, "too": {},
	"use": {}, "that": {}, "this": {}, "with": {}, "from": {}, "they": {},
	"will": {}, "would": {}, "there": {}, "their": {}, "what": {},
	"about": {}, "which": {}, "when": {}, "were": {}, "been": {},
	"into": {}, "than": {}, "them": {}, "then": {}, "these": {},
	"those": {}, "some": {}, "such": {}, "only": {}, "other": {},
	"also": {}, "each": {}, "between": {}, "during": {}, "before": {},
	"after": {}, "under": {}, "over": {}, "upon": {}, "within": {},
}

// searchTerms lowercases the query and keeps distinct tokens longer than
// two runes that are not stopwords, preserving first-seen order.
func searchTerms(query string) []string {
	tokens := strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	seen := make(map[string]struct{}, len(tokens))
	out := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if utf8.RuneCountInString(tok) <= 2 {
			continue
		}
		if _, stop := searchStopwords[tok]; stop {
			continue
		}
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		out = append(out, tok)
	}
	return out
}

// lexicalAgg accumulates all chunk hits of one document during the
// full-text fold.
type lexicalAgg struct {
	best        domain.ChunkHit
	bestMatches int
	matched     map[string]struct{}
	phrase      bool
}

// foldLexicalHits groups hits per document, tracking which query terms the
// document satisfies anywhere in its hits and picking the chunk with the
// most term matches as the snippet source. Order of first appearance is
// kept so output is stable before sorting.
func foldLexicalHits(hits []domain.ChunkHit, terms []string, phrase string) []*lexicalAgg {
	byDoc := make(map[string]*lexicalAgg, len(hits))
	order := make([]*lexicalAgg, 0, len(hits))

	for _, hit := range hits {
		agg, seen := byDoc[hit.DocumentID]
		if !seen {
			agg = &lexicalAgg{matched: make(map[string]struct{}, len(terms))}
			agg.best = hit
			agg.bestMatches = -1
			byDoc[hit.DocumentID] = agg
			order = append(order, agg)
		}

		content := strings.ToLower(hit.Content)
		fileName := strings.ToLower(hit.FileName)
		hitMatches := 0
		for _, term := range terms {
			inContent := strings.Contains(content, term)
			if inContent || strings.Contains(fileName, term) {
				agg.matched[term] = struct{}{}
			}
			if inContent {
				hitMatches++
			}
		}
		if phrase != "" && (strings.Contains(content, phrase) || strings.Contains(fileName, phrase)) {
			agg.phrase = true
		}

		// Prefer the chunk that satisfies the most terms; ties keep the
		// earlier chunk so results stay deterministic.
		if hit.Content != "" && (hitMatches > agg.bestMatches ||
			(hitMatches == agg.bestMatches && agg.best.Content == "")) {
			agg.best = hit
			agg.bestMatches = hitMatches
		}
	}
	return order
}

func (a *lexicalAgg) result(totalTerms int) domain.SearchResult {
	coverage := 0.0
	if totalTerms > 0 {
		coverage = float64(len(a.matched)) / float64(totalTerms)
	}
	score := lexicalBaseScore + coverage*lexicalCoverageMax
	if a.phrase {
		score += lexicalPhraseBonus
	}

	terms := make([]string, 0, len(a.matched))
	for term := range a.matched {
		terms = append(terms, term)
	}

	id := a.best.ChunkID
	if id == "" {
		id = a.best.DocumentID
	}
	return domain.SearchResult{
		ID:             id,
		DocumentID:     a.best.DocumentID,
		FileName:       a.best.FileName,
		Category:       a.best.Category,
		Subtype:        a.best.Subtype,
		PageNumber:     a.best.PageNumber,
		RelevanceScore: clampScore(score),
		MatchType:      domain.MatchFullText,
		Snippet:        makeSnippet(a.best.Content, snippetRunes),
		Highlights:     buildHighlights(a.best.Content, terms, maxHighlightsPerDoc),
		Metadata:       a.best.Metadata,
	}
}

func clampScore(score float64) float64 {
	if score > 1 {
		return 1
	}
	if score < 0 {
		return 0
	}
	return score
}

func makeSnippet(content string, maxRunes int) string {
	content = strings.TrimSpace(content)
	if utf8.RuneCountInString(content) <= maxRunes {
		return content
	}
	runes := []rune(content)
	return strings.TrimSpace(string(runes[:maxRunes])) + "…"
}

// buildHighlights extracts a short fragment around the first occurrence of
// each matched term, at most max fragments, sorted by term so the output
// does not depend on map iteration order.
func buildHighlights(content string, matchedTerms []string, max int) []string {
	if content == "" || len(matchedTerms) == 0 {
		return nil
	}
	sort.Strings(matchedTerms)

	lowered := strings.ToLower(content)
	seen := make(map[string]struct{}, max)
	out := make([]string, 0, max)
	for _, term := range matchedTerms {
		if len(out) >= max {
			break
		}
		idx := strings.Index(lowered, term)
		if idx < 0 {
			continue
		}
		frag := fragmentAround(content, idx, len(term))
		if frag == "" {
			continue
		}
		if _, dup := seen[frag]; dup {
			continue
		}
		seen[frag] = struct{}{}
		out = append(out, frag)
	}
	return out
}

// fragmentAround slices highlightContext bytes of context either side of a
// match, snapping to rune boundaries.
func fragmentAround(content string, idx, matchLen int) string {
	start := idx - highlightContext
	if start < 0 {
		start = 0
	}
	end := idx + matchLen + highlightContext
	if end > len(content) {
		end = len(content)
	}
	for start > 0 && !utf8.RuneStart(content[start]) {
		start--
	}
	for end < len(content) && !utf8.RuneStart(content[end]) {
		end++
	}
	return strings.TrimSpace(content[start:end])
}
