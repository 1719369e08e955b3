package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/casewise/docintel/internal/core/domain"
	"github.com/casewise/docintel/internal/core/ports"
)

type IndexOptions struct {
	// MinTextRunes is the shortest document text worth indexing. Shorter
	// documents are reported as skipped, not errored.
	MinTextRunes int
}

func (o IndexOptions) normalized() IndexOptions {
	if o.MinTextRunes <= 0 {
		o.MinTextRunes = 100
	}
	return o
}

// IndexUseCase turns a classified document's text into embedded, page
// attributed chunks. Reindexing replaces the document's chunk set whole, so
// stale chunks never survive a shrinking document.
type IndexUseCase struct {
	docs      ports.DocumentRepository
	extractor ports.TextExtractor
	chunker   ports.Chunker
	embedder  ports.Embedder
	chunks    ports.ChunkStore
	opts      IndexOptions
	now       func() time.Time
}

func NewIndexUseCase(
	docs ports.DocumentRepository,
	extractor ports.TextExtractor,
	chunker ports.Chunker,
	embedder ports.Embedder,
	chunks ports.ChunkStore,
	opts IndexOptions,
) *IndexUseCase {
	return &IndexUseCase{
		docs:      docs,
		extractor: extractor,
		chunker:   chunker,
		embedder:  embedder,
		chunks:    chunks,
		opts:      opts.normalized(),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (uc *IndexUseCase) IndexDocument(ctx context.Context, documentID string) (*domain.IndexResult, error) {
	if documentID == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "index document", errors.New("document id is required"))
	}

	doc, err := uc.docs.GetByID(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("fetch document: %w", err)
	}
	if !doc.Classified() {
		return nil, domain.WrapError(domain.ErrInvalidInput, "index document", errors.New("document is not classified"))
	}

	extracted, err := uc.extractor.Extract(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("extract text: %w", err)
	}
	return uc.indexText(ctx, doc, extracted)
}

func (uc *IndexUseCase) indexText(ctx context.Context, doc *domain.Document, extracted domain.ExtractedText) (*domain.IndexResult, error) {
	res := &domain.IndexResult{DocumentID: doc.ID}

	if utf8.RuneCountInString(strings.TrimSpace(extracted.Text)) < uc.opts.MinTextRunes {
		res.Skipped = true
		res.SkipReason = "text below minimum indexable length"
		if extracted.IsScanned {
			res.SkipReason = "scanned document produced no usable text"
		}
		return res, nil
	}

	pm := buildPageMap(extracted.Text)
	res.Pages = extracted.PageCount
	if res.Pages == 0 {
		res.Pages = pm.pages()
	}

	spans := uc.chunker.Split(extracted.Text)
	kept := make([]domain.ChunkSpan, 0, len(spans))
	texts := make([]string, 0, len(spans))
	for _, span := range spans {
		cleaned := cleanChunkText(span.Text)
		if cleaned == "" {
			continue
		}
		kept = append(kept, domain.ChunkSpan{Text: cleaned, Start: span.Start})
		texts = append(texts, cleaned)
	}
	if len(kept) == 0 {
		res.Skipped = true
		res.SkipReason = "no indexable chunks after cleanup"
		return res, nil
	}

	vectors, err := uc.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed chunks: %w", err)
	}
	if len(vectors) != len(texts) {
		return nil, domain.WrapError(
			domain.ErrEmbedding,
			"embed chunks",
			fmt.Errorf("vectors/chunks mismatch: %d/%d", len(vectors), len(texts)),
		)
	}

	now := uc.now()
	chunks := make([]domain.Chunk, len(kept))
	for i, span := range kept {
		chunks[i] = domain.Chunk{
			ID:         uuid.NewString(),
			DocumentID: doc.ID,
			CaseID:     doc.CaseID,
			OwnerID:    doc.OwnerID,
			ChunkIndex: i,
			Content:    span.Text,
			PageNumber: pm.pageFor(span.Start),
			Embedding:  vectors[i],
			CreatedAt:  now,
		}
	}

	if err := uc.chunks.ReplaceForDocument(ctx, doc.ID, chunks); err != nil {
		return nil, fmt.Errorf("replace document chunks: %w", err)
	}
	res.Chunks = len(chunks)
	return res, nil
}

// pageMap maps rune offsets back to 1-based page numbers using the form
// feed markers the extractors leave between pages.
type pageMap struct {
	breaks []int
}

func buildPageMap(text string) pageMap {
	var breaks []int
	off := 0
	for _, r := range text {
		if r == '\f' {
			breaks = append(breaks, off)
		}
		off++
	}
	return pageMap{breaks: breaks}
}

func (m pageMap) pages() int {
	if len(m.breaks) == 0 {
		return 0
	}
	return len(m.breaks) + 1
}

// pageFor returns the page containing the rune offset, or 0 when the text
// carried no page markers. An offset sitting on a marker belongs to the
// following page.
func (m pageMap) pageFor(runeOffset int) int {
	if len(m.breaks) == 0 {
		return 0
	}
	return 1 + sort.SearchInts(m.breaks, runeOffset+1)
}

// cleanChunkText strips page markers out of stored chunk content.
func cleanChunkText(text string) string {
	return strings.TrimSpace(strings.ReplaceAll(text, "\f", "\n"))
}
