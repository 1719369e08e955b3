package ports

import (
	"context"
	"io"
	"time"

	"github.com/casewise/docintel/internal/core/domain"
)

// DocumentRepository persists and reads document state.
type DocumentRepository interface {
	Create(ctx context.Context, doc *domain.Document) error
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	ListByCase(ctx context.Context, caseID string) ([]domain.Document, error)
	SaveClassification(ctx context.Context, id string, cls domain.Classification, confidence int, needsReview bool) error
}

// QueueRepository persists queue items. NextEligible and Claim return
// (nil, nil) when no row qualifies; a nil Claim result means another worker
// won the row.
type QueueRepository interface {
	Insert(ctx context.Context, item *domain.QueueItem) (bool, error)
	GetByID(ctx context.Context, id string) (*domain.QueueItem, error)
	FindActiveByDocument(ctx context.Context, documentID string) (*domain.QueueItem, error)
	NextEligible(ctx context.Context, now time.Time) (*domain.QueueItem, error)
	Claim(ctx context.Context, id string, now time.Time) (*domain.QueueItem, error)
	MarkCompleted(ctx context.Context, id string, now time.Time, processingTimeMs int64, tokensUsed int, modelUsed string) error
	MarkFailed(ctx context.Context, id string, errorMessage string, nextRetryAt *time.Time, now time.Time) error
	MarkFailedPermanent(ctx context.Context, id string, errorMessage string, now time.Time) error
	Stats(ctx context.Context, caseID string) (domain.QueueStats, error)
	DeleteTerminalBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// ChunkStore persists indexed chunks and serves both retrieval paths.
type ChunkStore interface {
	ReplaceForDocument(ctx context.Context, documentID string, chunks []domain.Chunk) error
	SemanticSearch(ctx context.Context, caseID string, queryVector []float32, limit int, minSimilarity float64, filters domain.SearchFilters) ([]domain.ChunkHit, error)
	LexicalSearch(ctx context.Context, caseID string, terms []string, limit int, filters domain.SearchFilters) ([]domain.ChunkHit, error)
}

// ObjectStorage stores and reads source documents by key.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// QueueNotifier wakes workers when new items land. Delivery is best effort;
// the poll loop is the fallback.
type QueueNotifier interface {
	PublishDocumentQueued(ctx context.Context, documentID string) error
	SubscribeDocumentQueued(ctx context.Context, handler func(context.Context, string) error) error
}

// TextExtractor extracts plain text from a stored document.
type TextExtractor interface {
	Extract(ctx context.Context, doc *domain.Document) (domain.ExtractedText, error)
}

// DocumentClassifier classifies extracted text.
type DocumentClassifier interface {
	Classify(ctx context.Context, text string, docCtx domain.ClassifyContext) (domain.Classification, error)
}

// Embedder builds vectors for chunks and query text.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Chunker splits text into overlapping windows, keeping rune offsets into
// the original text.
type Chunker interface {
	Split(text string) []domain.ChunkSpan
}
