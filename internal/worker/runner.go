package worker

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/casewise/docintel/internal/core/domain"
	"github.com/casewise/docintel/internal/core/ports"
	"github.com/casewise/docintel/internal/observability/metrics"
)

type Options struct {
	// PollInterval is the fallback drain cadence when no wake-up arrives.
	PollInterval time.Duration
	// BatchBudget caps the wall-clock time one drain pass may spend.
	BatchBudget time.Duration
	// RateRPS paces classification attempts inside a drain pass.
	RateRPS float64
	// CleanupInterval is how often retention cleanup runs; zero disables it.
	CleanupInterval time.Duration
	RetentionDays   int
}

func (o Options) normalized() Options {
	if o.PollInterval <= 0 {
		o.PollInterval = 15 * time.Second
	}
	if o.BatchBudget <= 0 {
		o.BatchBudget = 2 * time.Minute
	}
	if o.RateRPS <= 0 {
		o.RateRPS = 1
	}
	if o.RetentionDays <= 0 {
		o.RetentionDays = 30
	}
	return o
}

// Runner drains the classification queue. NATS wake-ups trigger a drain
// pass immediately; the poll ticker catches anything a lost wake-up missed.
type Runner struct {
	queue    ports.ProcessingQueue
	indexer  ports.ChunkIndexer
	notifier ports.QueueNotifier
	metrics  *metrics.WorkerMetrics
	log      *slog.Logger
	opts     Options

	wake chan struct{}
}

func New(
	queue ports.ProcessingQueue,
	indexer ports.ChunkIndexer,
	notifier ports.QueueNotifier,
	m *metrics.WorkerMetrics,
	log *slog.Logger,
	opts Options,
) *Runner {
	if log == nil {
		log = slog.Default()
	}
	return &Runner{
		queue:    queue,
		indexer:  indexer,
		notifier: notifier,
		metrics:  m,
		log:      log,
		opts:     opts.normalized(),
		wake:     make(chan struct{}, 1),
	}
}

// Run blocks until ctx is canceled.
func (r *Runner) Run(ctx context.Context) error {
	if r.notifier != nil {
		err := r.notifier.SubscribeDocumentQueued(ctx, func(_ context.Context, documentID string) error {
			r.log.Debug("queue wake-up", "document_id", documentID)
			r.requestDrain()
			return nil
		})
		if err != nil {
			return err
		}
	}

	poll := time.NewTicker(r.opts.PollInterval)
	defer poll.Stop()

	var cleanup *time.Ticker
	var cleanupC <-chan time.Time
	if r.opts.CleanupInterval > 0 {
		cleanup = time.NewTicker(r.opts.CleanupInterval)
		defer cleanup.Stop()
		cleanupC = cleanup.C
	}

	// Drain once at startup so a restart does not wait out a poll interval.
	r.drainBatch(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-r.wake:
			r.drainBatch(ctx)
		case <-poll.C:
			r.drainBatch(ctx)
		case <-cleanupC:
			r.runCleanup(ctx)
		}
	}
}

// requestDrain coalesces wake-ups: one pending drain is enough no matter
// how many documents were enqueued behind it.
func (r *Runner) requestDrain() {
	select {
	case r.wake <- struct{}{}:
	default:
	}
}

// drainBatch processes eligible items until the queue is empty or the batch
// budget runs out. Attempts are paced so a deep queue cannot hammer the
// classification gateway.
func (r *Runner) drainBatch(ctx context.Context) {
	batchCtx, cancel := context.WithTimeout(ctx, r.opts.BatchBudget)
	defer cancel()

	limiter := rate.NewLimiter(rate.Limit(r.opts.RateRPS), 1)

	for {
		if err := limiter.Wait(batchCtx); err != nil {
			return
		}

		done, err := r.processOne(batchCtx)
		if err != nil {
			r.log.Error("process queue item", "error", err)
			return
		}
		if done {
			return
		}
	}
}

// processOne runs a single attempt. It returns done=true when the queue had
// nothing eligible.
func (r *Runner) processOne(ctx context.Context) (bool, error) {
	if r.metrics != nil {
		r.metrics.StartDocument()
	}
	started := time.Now()

	res, err := r.queue.ProcessNext(ctx)
	if err != nil {
		if r.metrics != nil {
			r.metrics.FinishDocument("worker", "error", time.Since(started))
		}
		return false, err
	}
	if res == nil {
		if r.metrics != nil {
			r.metrics.SkipDocument()
		}
		return true, nil
	}

	r.observeResult(res, time.Since(started))

	if res.Success {
		r.indexDocument(ctx, res.DocumentID)
	}
	return false, nil
}

func (r *Runner) observeResult(res *domain.ProcessingResult, elapsed time.Duration) {
	outcome := "completed"
	if !res.Success {
		outcome = "failed"
		if res.WillRetry {
			outcome = "retrying"
		}
	}

	if r.metrics != nil {
		r.metrics.FinishDocument("worker", outcome, elapsed)
		r.metrics.RecordTokens("worker", res.ModelUsed, res.TokensUsed)
		if !res.QueuedAt.IsZero() {
			lag := time.Since(res.QueuedAt) - time.Duration(res.ProcessingTimeMs)*time.Millisecond
			r.metrics.ObserveQueueLag("worker", lag)
		}
	}

	attrs := []any{
		"item_id", res.ItemID,
		"document_id", res.DocumentID,
		"case_id", res.CaseID,
		"outcome", outcome,
		"processing_time_ms", res.ProcessingTimeMs,
	}
	if res.Success {
		r.log.Info("document classified", append(attrs, "category", res.Category, "confidence", res.Confidence, "needs_review", res.NeedsReview)...)
	} else {
		r.log.Warn("classification attempt failed", append(attrs, "error", res.Error)...)
	}
}

// indexDocument chains chunk indexing after a successful classification.
// Index failures do not touch the queue item: the classification stands and
// the document can be reindexed on demand.
func (r *Runner) indexDocument(ctx context.Context, documentID string) {
	if r.indexer == nil {
		return
	}

	res, err := r.indexer.IndexDocument(ctx, documentID)
	if err != nil {
		r.log.Warn("index document failed", "document_id", documentID, "error", err)
		return
	}
	if res.Skipped {
		r.log.Info("index skipped", "document_id", documentID, "reason", res.SkipReason)
		return
	}

	if r.metrics != nil {
		r.metrics.RecordIndexedChunks("worker", res.Chunks)
	}
	r.log.Info("document indexed", "document_id", documentID, "chunks", res.Chunks, "pages", res.Pages)
}

func (r *Runner) runCleanup(ctx context.Context) {
	removed, err := r.queue.Cleanup(ctx, r.opts.RetentionDays)
	if err != nil {
		r.log.Error("queue cleanup", "error", err)
		return
	}
	if r.metrics != nil {
		r.metrics.RecordCleanup("worker", removed)
	}
	if removed > 0 {
		r.log.Info("queue cleanup", "removed", removed, "retention_days", r.opts.RetentionDays)
	}
}
