package ports

import (
	"context"
	"io"

	"github.com/casewise/docintel/internal/core/domain"
)

// DocumentIngestor is the inbound contract for document upload orchestration.
type DocumentIngestor interface {
	Upload(ctx context.Context, caseID, ownerID, fileName, mimeType string, priority int, body io.Reader) (*domain.Document, error)
}

// DocumentReader is the inbound read model for document metadata.
type DocumentReader interface {
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	ListByCase(ctx context.Context, caseID string) ([]domain.Document, error)
}

// ProcessingQueue is the inbound contract for the durable classification
// queue.
type ProcessingQueue interface {
	Enqueue(ctx context.Context, documentID, caseID, ownerID string, priority int) (*domain.QueueItem, error)
	DequeueNext(ctx context.Context) (*domain.QueueItem, error)
	MarkProcessing(ctx context.Context, id string) (*domain.QueueItem, error)
	MarkCompleted(ctx context.Context, id string, processingTimeMs int64, tokensUsed int, modelUsed string) error
	MarkFailed(ctx context.Context, id string, errorMessage string, attemptsSoFar int) error
	ProcessNext(ctx context.Context) (*domain.ProcessingResult, error)
	Stats(ctx context.Context, caseID string) (domain.QueueStats, error)
	Cleanup(ctx context.Context, olderThanDays int) (int64, error)
}

// ChunkIndexer is the inbound contract for (re)indexing a document's text.
type ChunkIndexer interface {
	IndexDocument(ctx context.Context, documentID string) (*domain.IndexResult, error)
}

// SearchService is the inbound contract for case-scoped document search.
type SearchService interface {
	Search(ctx context.Context, q domain.SearchQuery) ([]domain.SearchResult, error)
}

// DiscoveryService evaluates discovery requests against a case's documents.
type DiscoveryService interface {
	MatchCase(ctx context.Context, caseID string, requests []domain.DiscoveryRequest, minScore int) ([]domain.MatchResult, error)
	ComplianceForCase(ctx context.Context, caseID string, requests []domain.DiscoveryRequest, minScore int) ([]domain.MatchResult, domain.ComplianceStats, error)
}
