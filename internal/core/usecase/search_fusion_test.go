package usecase

import (
	"reflect"
	"testing"

	"github.com/casewise/docintel/internal/core/domain"
)

func TestFuseHybridMergesHighlightsAndSnippet(t *testing.T) {
	lexical := []domain.SearchResult{{
		ID:             "chunk-lex",
		DocumentID:     "doc-1",
		RelevanceScore: 0.7,
		MatchType:      domain.MatchFullText,
		Snippet:        "short",
		Highlights:     []string{"alpha", "beta"},
		PageNumber:     2,
	}}
	semantic := []domain.SearchResult{{
		ID:             "chunk-sem",
		DocumentID:     "doc-1",
		RelevanceScore: 0.65,
		MatchType:      domain.MatchSemantic,
		Snippet:        "a noticeably longer snippet",
		Highlights:     []string{"beta", "gamma"},
		PageNumber:     7,
	}}

	fused := fuseHybridResults(lexical, semantic, 10)
	if len(fused) != 1 {
		t.Fatalf("expected single fused result, got %d", len(fused))
	}
	got := fused[0]
	if got.MatchType != domain.MatchBoth {
		t.Fatalf("expected both match, got %s", got.MatchType)
	}
	// Higher of the two scores, boosted.
	if !almostEqual(got.RelevanceScore, 0.7*hybridBoost) {
		t.Fatalf("unexpected score %v", got.RelevanceScore)
	}
	if got.Snippet != "a noticeably longer snippet" || got.ID != "chunk-sem" || got.PageNumber != 7 {
		t.Fatalf("expected longer snippet to win: %+v", got)
	}
	wantHighlights := []string{"alpha", "beta", "gamma"}
	if !reflect.DeepEqual(got.Highlights, wantHighlights) {
		t.Fatalf("expected highlight union %v, got %v", wantHighlights, got.Highlights)
	}
}

func TestFuseHybridKeepsSingleModeResults(t *testing.T) {
	lexical := []domain.SearchResult{{ID: "a", DocumentID: "doc-1", RelevanceScore: 0.5, MatchType: domain.MatchFullText}}
	semantic := []domain.SearchResult{{ID: "b", DocumentID: "doc-2", RelevanceScore: 0.8, MatchType: domain.MatchSemantic}}

	fused := fuseHybridResults(lexical, semantic, 10)
	if len(fused) != 2 {
		t.Fatalf("expected 2 results, got %d", len(fused))
	}
	if fused[0].DocumentID != "doc-2" || fused[0].MatchType != domain.MatchSemantic {
		t.Fatalf("single-mode results must keep their match type: %+v", fused[0])
	}
	if fused[1].DocumentID != "doc-1" || fused[1].MatchType != domain.MatchFullText {
		t.Fatalf("single-mode results must keep their match type: %+v", fused[1])
	}
}

func TestFuseHybridBoostIsClamped(t *testing.T) {
	lexical := []domain.SearchResult{{ID: "a", DocumentID: "doc-1", RelevanceScore: 0.97}}
	semantic := []domain.SearchResult{{ID: "b", DocumentID: "doc-1", RelevanceScore: 0.99}}

	fused := fuseHybridResults(lexical, semantic, 10)
	if !almostEqual(fused[0].RelevanceScore, 1.0) {
		t.Fatalf("expected clamped score 1.0, got %v", fused[0].RelevanceScore)
	}
}

func TestSortResultsDeterministicTiebreaks(t *testing.T) {
	results := []domain.SearchResult{
		{ID: "z", DocumentID: "doc-b", RelevanceScore: 0.5},
		{ID: "a", DocumentID: "doc-a", RelevanceScore: 0.5},
		{ID: "m", DocumentID: "doc-a", RelevanceScore: 0.9},
	}
	sortResults(results)
	if results[0].ID != "m" || results[1].DocumentID != "doc-a" || results[2].DocumentID != "doc-b" {
		t.Fatalf("unexpected order: %+v", results)
	}
}

func TestTrimResults(t *testing.T) {
	results := []domain.SearchResult{{ID: "a"}, {ID: "b"}, {ID: "c"}}
	if got := trimResults(results, 2); len(got) != 2 {
		t.Fatalf("expected 2, got %d", len(got))
	}
	if got := trimResults(results, 0); len(got) != 3 {
		t.Fatalf("limit 0 must not trim, got %d", len(got))
	}
	if got := trimResults(results, 9); len(got) != 3 {
		t.Fatalf("oversized limit must not trim, got %d", len(got))
	}
}

func TestMakeSnippetTruncatesOnRuneBoundary(t *testing.T) {
	long := ""
	for i := 0; i < 30; i++ {
		long += "segment "
	}
	snippet := makeSnippet(long, 50)
	if len([]rune(snippet)) > 51 {
		t.Fatalf("snippet too long: %d runes", len([]rune(snippet)))
	}
	if snippet[len(snippet)-len("…"):] != "…" {
		t.Fatalf("expected ellipsis suffix, got %q", snippet)
	}
}

func TestBuildHighlightsExtractsTermContext(t *testing.T) {
	content := "The tenant shall remit the monthly payment before the fifth day of each month."
	highlights := buildHighlights(content, []string{"payment", "tenant"}, 3)
	if len(highlights) != 2 {
		t.Fatalf("expected 2 highlights, got %v", highlights)
	}
	for _, h := range highlights {
		if h == "" {
			t.Fatalf("empty highlight fragment")
		}
	}
}
