package usecase

import (
	"context"
	"strings"
	"testing"

	"github.com/casewise/docintel/internal/core/domain"
)

type chunkerFake struct {
	spans []domain.ChunkSpan
}

func (f *chunkerFake) Split(string) []domain.ChunkSpan { return f.spans }

type embedderFake struct {
	vectors  [][]float32
	queryVec []float32
	embedErr error
	queryErr error
	inputs   []string
}

func (f *embedderFake) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if f.embedErr != nil {
		return nil, f.embedErr
	}
	f.inputs = texts
	return f.vectors, nil
}

func (f *embedderFake) EmbedQuery(context.Context, string) ([]float32, error) {
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return f.queryVec, nil
}

type chunkStoreFake struct {
	replacedDoc   string
	replaced      []domain.Chunk
	replaceErr    error
	semanticHits  []domain.ChunkHit
	semanticErr   error
	lexicalHits   []domain.ChunkHit
	lexicalErr    error
	lexicalTerms  []string
	lexicalFilter domain.SearchFilters
	semanticSim   float64
	semanticFilt  domain.SearchFilters
}

func (f *chunkStoreFake) ReplaceForDocument(_ context.Context, documentID string, chunks []domain.Chunk) error {
	if f.replaceErr != nil {
		return f.replaceErr
	}
	f.replacedDoc = documentID
	f.replaced = chunks
	return nil
}

func (f *chunkStoreFake) SemanticSearch(_ context.Context, _ string, _ []float32, _ int, minSimilarity float64, filters domain.SearchFilters) ([]domain.ChunkHit, error) {
	if f.semanticErr != nil {
		return nil, f.semanticErr
	}
	f.semanticSim = minSimilarity
	f.semanticFilt = filters
	return f.semanticHits, nil
}

func (f *chunkStoreFake) LexicalSearch(_ context.Context, _ string, terms []string, _ int, filters domain.SearchFilters) ([]domain.ChunkHit, error) {
	if f.lexicalErr != nil {
		return nil, f.lexicalErr
	}
	f.lexicalTerms = terms
	f.lexicalFilter = filters
	return f.lexicalHits, nil
}

func classifiedDoc() *domain.Document {
	return &domain.Document{
		ID:       "doc-1",
		CaseID:   "case-1",
		OwnerID:  "owner-1",
		FileName: "lease.pdf",
		MimeType: "application/pdf",
		Category: "Contract",
	}
}

func TestIndexDocumentRequiresClassifiedDocument(t *testing.T) {
	docs := &docRepoFake{docs: map[string]*domain.Document{
		"doc-1": {ID: "doc-1", CaseID: "case-1"},
	}}
	uc := NewIndexUseCase(docs, &extractorFake{}, &chunkerFake{}, &embedderFake{}, &chunkStoreFake{}, IndexOptions{})

	if _, err := uc.IndexDocument(context.Background(), "doc-1"); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input for unclassified document, got %v", err)
	}
}

func TestIndexDocumentSkipsShortText(t *testing.T) {
	docs := &docRepoFake{docs: map[string]*domain.Document{"doc-1": classifiedDoc()}}
	store := &chunkStoreFake{}
	uc := NewIndexUseCase(docs, &extractorFake{extracted: domain.ExtractedText{Text: "too short"}}, &chunkerFake{}, &embedderFake{}, store, IndexOptions{MinTextRunes: 50})

	res, err := uc.IndexDocument(context.Background(), "doc-1")
	if err != nil {
		t.Fatalf("IndexDocument() error = %v", err)
	}
	if !res.Skipped || res.Chunks != 0 {
		t.Fatalf("expected skip, got %+v", res)
	}
	if store.replacedDoc != "" {
		t.Fatalf("store must not be touched on skip")
	}
}

func TestIndexDocumentReportsScannedSkip(t *testing.T) {
	docs := &docRepoFake{docs: map[string]*domain.Document{"doc-1": classifiedDoc()}}
	extracted := domain.ExtractedText{Text: "  ", PageCount: 4, IsScanned: true}
	uc := NewIndexUseCase(docs, &extractorFake{extracted: extracted}, &chunkerFake{}, &embedderFake{}, &chunkStoreFake{}, IndexOptions{MinTextRunes: 10})

	res, err := uc.IndexDocument(context.Background(), "doc-1")
	if err != nil {
		t.Fatalf("IndexDocument() error = %v", err)
	}
	if !res.Skipped || !strings.Contains(res.SkipReason, "scanned") {
		t.Fatalf("expected scanned skip reason, got %+v", res)
	}
}

func TestIndexDocumentBuildsPageAttributedChunks(t *testing.T) {
	// Two pages separated by a form feed at rune offset 13.
	text := "page one text\fpage two text"
	docs := &docRepoFake{docs: map[string]*domain.Document{"doc-1": classifiedDoc()}}
	chunker := &chunkerFake{spans: []domain.ChunkSpan{
		{Text: "page one text", Start: 0},
		{Text: "page two text", Start: 14},
	}}
	embedder := &embedderFake{vectors: [][]float32{{0.1, 0.2}, {0.3, 0.4}}}
	store := &chunkStoreFake{}
	uc := NewIndexUseCase(docs, &extractorFake{extracted: domain.ExtractedText{Text: text, PageCount: 2}}, chunker, embedder, store, IndexOptions{MinTextRunes: 10})

	res, err := uc.IndexDocument(context.Background(), "doc-1")
	if err != nil {
		t.Fatalf("IndexDocument() error = %v", err)
	}
	if res.Skipped || res.Chunks != 2 || res.Pages != 2 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if store.replacedDoc != "doc-1" || len(store.replaced) != 2 {
		t.Fatalf("expected chunk replacement for doc-1, got %q with %d chunks", store.replacedDoc, len(store.replaced))
	}

	first, second := store.replaced[0], store.replaced[1]
	if first.ChunkIndex != 0 || second.ChunkIndex != 1 {
		t.Fatalf("unexpected chunk indices: %d, %d", first.ChunkIndex, second.ChunkIndex)
	}
	if first.PageNumber != 1 || second.PageNumber != 2 {
		t.Fatalf("unexpected page attribution: %d, %d", first.PageNumber, second.PageNumber)
	}
	if first.CaseID != "case-1" || first.OwnerID != "owner-1" {
		t.Fatalf("document identity not propagated: %+v", first)
	}
	if len(first.Embedding) != 2 || len(second.Embedding) != 2 {
		t.Fatalf("embeddings not attached")
	}
	if strings.Contains(first.Content, "\f") || strings.Contains(second.Content, "\f") {
		t.Fatalf("page markers must not survive into stored content")
	}
}

func TestIndexDocumentEmbeddingMismatch(t *testing.T) {
	docs := &docRepoFake{docs: map[string]*domain.Document{"doc-1": classifiedDoc()}}
	chunker := &chunkerFake{spans: []domain.ChunkSpan{
		{Text: "first window", Start: 0},
		{Text: "second window", Start: 10},
	}}
	embedder := &embedderFake{vectors: [][]float32{{0.1}}}
	uc := NewIndexUseCase(docs, &extractorFake{extracted: domain.ExtractedText{Text: strings.Repeat("legal text ", 5)}}, chunker, embedder, &chunkStoreFake{}, IndexOptions{MinTextRunes: 10})

	if _, err := uc.IndexDocument(context.Background(), "doc-1"); !domain.IsKind(err, domain.ErrEmbedding) {
		t.Fatalf("expected embedding error, got %v", err)
	}
}

func TestPageMapAttribution(t *testing.T) {
	unpaged := buildPageMap("no markers here")
	if unpaged.pages() != 0 || unpaged.pageFor(3) != 0 {
		t.Fatalf("expected zero pages without markers")
	}

	pm := buildPageMap("aaa\fbbb\fccc")
	if pm.pages() != 3 {
		t.Fatalf("expected 3 pages, got %d", pm.pages())
	}
	cases := []struct {
		offset int
		want   int
	}{
		{offset: 0, want: 1},
		{offset: 2, want: 1},
		{offset: 3, want: 2},
		{offset: 5, want: 2},
		{offset: 7, want: 3},
		{offset: 10, want: 3},
	}
	for _, tc := range cases {
		if got := pm.pageFor(tc.offset); got != tc.want {
			t.Fatalf("pageFor(%d) = %d, want %d", tc.offset, got, tc.want)
		}
	}
}
