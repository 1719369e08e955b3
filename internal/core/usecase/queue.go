package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/casewise/docintel/internal/core/domain"
	"github.com/casewise/docintel/internal/core/ports"
)

// maxClaimRounds bounds how many contested rows ProcessNext walks past
// before reporting an empty queue.
const maxClaimRounds = 4

var defaultBackoff = []time.Duration{time.Minute, 5 * time.Minute, 15 * time.Minute}

type QueueOptions struct {
	MaxAttempts     int
	Backoff         []time.Duration
	ReviewThreshold int
}

func (o QueueOptions) normalized() QueueOptions {
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 3
	}
	if len(o.Backoff) == 0 {
		o.Backoff = defaultBackoff
	}
	if o.ReviewThreshold <= 0 {
		o.ReviewThreshold = 70
	}
	return o
}

// QueueUseCase drives the durable classification queue: enqueueing work,
// claiming it, and absorbing per-item failures into retry bookkeeping.
type QueueUseCase struct {
	items      ports.QueueRepository
	docs       ports.DocumentRepository
	extractor  ports.TextExtractor
	classifier ports.DocumentClassifier
	notifier   ports.QueueNotifier
	log        *slog.Logger
	opts       QueueOptions
	now        func() time.Time
}

func NewQueueUseCase(
	items ports.QueueRepository,
	docs ports.DocumentRepository,
	extractor ports.TextExtractor,
	classifier ports.DocumentClassifier,
	notifier ports.QueueNotifier,
	log *slog.Logger,
	opts QueueOptions,
) *QueueUseCase {
	if log == nil {
		log = slog.Default()
	}
	return &QueueUseCase{
		items:      items,
		docs:       docs,
		extractor:  extractor,
		classifier: classifier,
		notifier:   notifier,
		log:        log,
		opts:       opts.normalized(),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Enqueue registers a document for classification. If the document already
// has a pending or processing item the existing item is returned unchanged.
func (uc *QueueUseCase) Enqueue(ctx context.Context, documentID, caseID, ownerID string, priority int) (*domain.QueueItem, error) {
	if documentID == "" || caseID == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "enqueue document", errors.New("document id and case id are required"))
	}

	existing, err := uc.items.FindActiveByDocument(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("find active queue item: %w", err)
	}
	if existing != nil {
		return existing, nil
	}

	now := uc.now()
	item := &domain.QueueItem{
		ID:          uuid.NewString(),
		DocumentID:  documentID,
		CaseID:      caseID,
		OwnerID:     ownerID,
		Status:      domain.QueuePending,
		Priority:    priority,
		MaxAttempts: uc.opts.MaxAttempts,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	inserted, err := uc.items.Insert(ctx, item)
	if err != nil {
		return nil, fmt.Errorf("insert queue item: %w", err)
	}
	if !inserted {
		// A concurrent Enqueue won the document's active slot.
		existing, err := uc.items.FindActiveByDocument(ctx, documentID)
		if err != nil {
			return nil, fmt.Errorf("find active queue item: %w", err)
		}
		if existing != nil {
			return existing, nil
		}
		return nil, domain.WrapError(domain.ErrTemporary, "enqueue document", errors.New("active item raced away during insert"))
	}

	uc.notifyQueued(ctx, documentID)
	return item, nil
}

// notifyQueued wakes workers. Failure is logged, not surfaced: the item is
// already durable and the worker poll loop will find it.
func (uc *QueueUseCase) notifyQueued(ctx context.Context, documentID string) {
	if uc.notifier == nil {
		return
	}
	if err := uc.notifier.PublishDocumentQueued(ctx, documentID); err != nil {
		uc.log.Warn("queue wake-up publish failed", "document_id", documentID, "error", err)
	}
}

// DequeueNext returns the best eligible item without claiming it, or nil
// when the queue is drained.
func (uc *QueueUseCase) DequeueNext(ctx context.Context) (*domain.QueueItem, error) {
	item, err := uc.items.NextEligible(ctx, uc.now())
	if err != nil {
		return nil, fmt.Errorf("select next queue item: %w", err)
	}
	return item, nil
}

// MarkProcessing claims an eligible item, incrementing its attempt counter.
// A pending item and a failed item whose retry time has passed are both
// claimable; anything else reports not found.
func (uc *QueueUseCase) MarkProcessing(ctx context.Context, id string) (*domain.QueueItem, error) {
	if id == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "claim queue item", errors.New("item id is required"))
	}
	claimed, err := uc.items.Claim(ctx, id, uc.now())
	if err != nil {
		return nil, fmt.Errorf("claim queue item: %w", err)
	}
	if claimed == nil {
		return nil, domain.WrapError(domain.ErrNotFound, "claim queue item", errors.New("item is not eligible"))
	}
	return claimed, nil
}

func (uc *QueueUseCase) MarkCompleted(ctx context.Context, id string, processingTimeMs int64, tokensUsed int, modelUsed string) error {
	if id == "" {
		return domain.WrapError(domain.ErrInvalidInput, "complete queue item", errors.New("item id is required"))
	}
	if err := uc.items.MarkCompleted(ctx, id, uc.now(), processingTimeMs, tokensUsed, modelUsed); err != nil {
		return fmt.Errorf("mark queue item completed: %w", err)
	}
	return nil
}

// MarkFailed records a failed attempt and schedules the retry window from
// the backoff table. attemptsSoFar is the attempt that just failed, starting
// at 1.
func (uc *QueueUseCase) MarkFailed(ctx context.Context, id string, errorMessage string, attemptsSoFar int) error {
	if id == "" {
		return domain.WrapError(domain.ErrInvalidInput, "fail queue item", errors.New("item id is required"))
	}
	now := uc.now()
	retryAt := now.Add(uc.backoffDelay(attemptsSoFar))
	if err := uc.items.MarkFailed(ctx, id, errorMessage, &retryAt, now); err != nil {
		return fmt.Errorf("mark queue item failed: %w", err)
	}
	return nil
}

// backoffDelay picks the wait before the next attempt. The final table
// entry repeats when attempts outrun the table.
func (uc *QueueUseCase) backoffDelay(attemptsSoFar int) time.Duration {
	idx := attemptsSoFar - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(uc.opts.Backoff) {
		idx = len(uc.opts.Backoff) - 1
	}
	return uc.opts.Backoff[idx]
}

// ProcessNext claims the best eligible item and runs the classification
// pipeline for it. Pipeline failures are absorbed into the item's retry
// state and reported through the result; only queue-infrastructure errors
// are returned. A (nil, nil) return means the queue is drained.
func (uc *QueueUseCase) ProcessNext(ctx context.Context) (*domain.ProcessingResult, error) {
	for round := 0; round < maxClaimRounds; round++ {
		next, err := uc.items.NextEligible(ctx, uc.now())
		if err != nil {
			return nil, fmt.Errorf("select next queue item: %w", err)
		}
		if next == nil {
			return nil, nil
		}

		claimed, err := uc.items.Claim(ctx, next.ID, uc.now())
		if err != nil {
			return nil, fmt.Errorf("claim queue item: %w", err)
		}
		if claimed == nil {
			// Another worker took the row; look again.
			continue
		}
		return uc.runClassification(ctx, claimed)
	}
	return nil, nil
}

func (uc *QueueUseCase) runClassification(ctx context.Context, item *domain.QueueItem) (*domain.ProcessingResult, error) {
	started := uc.now()
	res := &domain.ProcessingResult{
		ItemID:     item.ID,
		DocumentID: item.DocumentID,
		CaseID:     item.CaseID,
		QueuedAt:   item.CreatedAt,
	}

	cls, confidence, needsReview, err := uc.classifyDocument(ctx, item.DocumentID)
	res.ProcessingTimeMs = uc.now().Sub(started).Milliseconds()
	if err != nil {
		return uc.absorbFailure(ctx, item, res, err)
	}

	if err := uc.items.MarkCompleted(ctx, item.ID, uc.now(), res.ProcessingTimeMs, cls.TokensUsed, cls.Model); err != nil {
		return nil, fmt.Errorf("mark queue item completed: %w", err)
	}

	res.Success = true
	res.Category = cls.Category
	res.Confidence = confidence
	res.NeedsReview = needsReview
	res.TokensUsed = cls.TokensUsed
	res.ModelUsed = cls.Model
	return res, nil
}

func (uc *QueueUseCase) classifyDocument(ctx context.Context, documentID string) (domain.Classification, int, bool, error) {
	doc, err := uc.docs.GetByID(ctx, documentID)
	if err != nil {
		return domain.Classification{}, 0, false, fmt.Errorf("fetch document: %w", err)
	}

	extracted, err := uc.extractor.Extract(ctx, doc)
	if err != nil {
		return domain.Classification{}, 0, false, fmt.Errorf("extract text: %w", err)
	}
	if strings.TrimSpace(extracted.Text) == "" {
		return domain.Classification{}, 0, false, domain.WrapError(domain.ErrExtraction, "extract text", errors.New("document produced no text"))
	}

	cls, err := uc.classifier.Classify(ctx, extracted.Text, domain.ClassifyContext{
		FileName: doc.FileName,
		MimeType: doc.MimeType,
	})
	if err != nil {
		return domain.Classification{}, 0, false, fmt.Errorf("classify document: %w", err)
	}

	confidence := scaleConfidence(cls.Confidence)
	needsReview := confidence < uc.opts.ReviewThreshold
	if err := uc.docs.SaveClassification(ctx, doc.ID, cls, confidence, needsReview); err != nil {
		return domain.Classification{}, 0, false, fmt.Errorf("save classification: %w", err)
	}
	return cls, confidence, needsReview, nil
}

// absorbFailure turns a pipeline error into retry state on the item.
// Permanent failures burn all remaining attempts; everything else gets a
// retry window from the backoff table.
func (uc *QueueUseCase) absorbFailure(ctx context.Context, item *domain.QueueItem, res *domain.ProcessingResult, cause error) (*domain.ProcessingResult, error) {
	res.Success = false
	res.Error = cause.Error()
	now := uc.now()

	if permanentFailure(cause) {
		if err := uc.items.MarkFailedPermanent(ctx, item.ID, res.Error, now); err != nil {
			return nil, fmt.Errorf("mark queue item failed: %w", err)
		}
		return res, nil
	}

	retryAt := now.Add(uc.backoffDelay(item.Attempts))
	res.WillRetry = item.Attempts < item.MaxAttempts
	if err := uc.items.MarkFailed(ctx, item.ID, res.Error, &retryAt, now); err != nil {
		return nil, fmt.Errorf("mark queue item failed: %w", err)
	}
	return res, nil
}

// permanentFailure reports whether retrying can never help: the input
// itself is bad or the document is gone. Unknown errors default to
// retryable so a flaky dependency cannot strand a document.
func permanentFailure(err error) bool {
	if domain.IsKind(err, domain.ErrInvalidInput) || domain.IsKind(err, domain.ErrNotFound) || domain.IsKind(err, domain.ErrUnauthorized) {
		return true
	}
	return domain.IsKind(err, domain.ErrExtraction) && !domain.Retryable(err)
}

func (uc *QueueUseCase) Stats(ctx context.Context, caseID string) (domain.QueueStats, error) {
	stats, err := uc.items.Stats(ctx, caseID)
	if err != nil {
		return domain.QueueStats{}, fmt.Errorf("load queue stats: %w", err)
	}
	return stats, nil
}

// Cleanup removes terminal items older than the cutoff and returns how many
// rows went away. Active items are never touched regardless of age.
func (uc *QueueUseCase) Cleanup(ctx context.Context, olderThanDays int) (int64, error) {
	if olderThanDays <= 0 {
		return 0, domain.WrapError(domain.ErrInvalidInput, "cleanup queue", errors.New("retention days must be positive"))
	}
	cutoff := uc.now().AddDate(0, 0, -olderThanDays)
	removed, err := uc.items.DeleteTerminalBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete terminal queue items: %w", err)
	}
	return removed, nil
}

func scaleConfidence(raw float64) int {
	if raw < 0 {
		raw = 0
	}
	if raw > 1 {
		raw = 1
	}
	return int(math.Round(raw * 100))
}
