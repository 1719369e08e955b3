package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/casewise/docintel/internal/core/domain"
)

const queueColumns = `id, document_id, case_id, owner_id, status, priority, attempts, max_attempts, error_message, created_at, updated_at, started_at, completed_at, next_retry_at, processing_time_ms, tokens_used, model_used`

type QueueRepository struct {
	db *sql.DB
}

func NewQueueRepository(db *sql.DB) *QueueRepository {
	return &QueueRepository{db: db}
}

// Insert adds a new item unless the document already holds the active slot.
// The partial unique index on (document_id) decides the race; false means
// another item is already pending or processing for this document.
func (r *QueueRepository) Insert(ctx context.Context, item *domain.QueueItem) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
INSERT INTO queue_items (`+queueColumns+`)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
ON CONFLICT (document_id) WHERE status IN ('pending', 'processing') DO NOTHING
`,
		item.ID, item.DocumentID, item.CaseID, item.OwnerID, string(item.Status),
		item.Priority, item.Attempts, item.MaxAttempts, item.ErrorMessage,
		item.CreatedAt, item.UpdatedAt, item.StartedAt, item.CompletedAt,
		item.NextRetryAt, item.ProcessingTimeMs, item.TokensUsed, item.ModelUsed)
	if err != nil {
		return false, fmt.Errorf("insert queue item: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert queue item rows affected: %w", err)
	}
	return rows > 0, nil
}

func (r *QueueRepository) GetByID(ctx context.Context, id string) (*domain.QueueItem, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+queueColumns+`
FROM queue_items
WHERE id = $1
`, id)

	item, err := scanQueueItem(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "get queue item", fmt.Errorf("id=%s", id))
		}
		return nil, fmt.Errorf("get queue item: %w", err)
	}
	return &item, nil
}

func (r *QueueRepository) FindActiveByDocument(ctx context.Context, documentID string) (*domain.QueueItem, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+queueColumns+`
FROM queue_items
WHERE document_id = $1 AND status IN ('pending', 'processing')
LIMIT 1
`, documentID)

	item, err := scanQueueItem(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find active queue item: %w", err)
	}
	return &item, nil
}

// NextEligible peeks at the item a worker would claim next: highest priority
// first, oldest first within a priority. It does not reserve the row.
func (r *QueueRepository) NextEligible(ctx context.Context, now time.Time) (*domain.QueueItem, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+queueColumns+`
FROM queue_items
WHERE status = 'pending'
   OR (status = 'failed' AND attempts < max_attempts AND next_retry_at IS NOT NULL AND next_retry_at <= $1)
ORDER BY priority DESC, created_at ASC
LIMIT 1
`, now)

	item, err := scanQueueItem(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("next eligible queue item: %w", err)
	}
	return &item, nil
}

// Claim flips one eligible item to processing and counts the attempt. The
// eligibility predicate is re-checked inside the UPDATE so two workers racing
// for the same row cannot both win; the loser gets (nil, nil).
func (r *QueueRepository) Claim(ctx context.Context, id string, now time.Time) (*domain.QueueItem, error) {
	row := r.db.QueryRowContext(ctx, `
UPDATE queue_items
SET status = 'processing', attempts = attempts + 1, started_at = $2, updated_at = $2
WHERE id = $1
  AND (status = 'pending'
   OR (status = 'failed' AND attempts < max_attempts AND next_retry_at IS NOT NULL AND next_retry_at <= $2))
RETURNING `+queueColumns+`
`, id, now)

	item, err := scanQueueItem(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("claim queue item: %w", err)
	}
	return &item, nil
}

func (r *QueueRepository) MarkCompleted(ctx context.Context, id string, now time.Time, processingTimeMs int64, tokensUsed int, modelUsed string) error {
	result, err := r.db.ExecContext(ctx, `
UPDATE queue_items
SET status = 'completed', completed_at = $2, updated_at = $2, next_retry_at = NULL,
    error_message = '', processing_time_ms = $3, tokens_used = $4, model_used = $5
WHERE id = $1 AND status = 'processing'
`, id, now, processingTimeMs, tokensUsed, modelUsed)
	if err != nil {
		return fmt.Errorf("mark queue item completed: %w", err)
	}
	return requireProcessing(result, "mark queue item completed", id)
}

func (r *QueueRepository) MarkFailed(ctx context.Context, id string, errorMessage string, nextRetryAt *time.Time, now time.Time) error {
	result, err := r.db.ExecContext(ctx, `
UPDATE queue_items
SET status = 'failed', error_message = $2, next_retry_at = $3, updated_at = $4
WHERE id = $1 AND status = 'processing'
`, id, errorMessage, nextRetryAt, now)
	if err != nil {
		return fmt.Errorf("mark queue item failed: %w", err)
	}
	return requireProcessing(result, "mark queue item failed", id)
}

// MarkFailedPermanent burns the remaining attempts so the item never becomes
// eligible again.
func (r *QueueRepository) MarkFailedPermanent(ctx context.Context, id string, errorMessage string, now time.Time) error {
	result, err := r.db.ExecContext(ctx, `
UPDATE queue_items
SET status = 'failed', error_message = $2, next_retry_at = NULL, attempts = max_attempts, updated_at = $3
WHERE id = $1 AND status = 'processing'
`, id, errorMessage, now)
	if err != nil {
		return fmt.Errorf("mark queue item failed permanently: %w", err)
	}
	return requireProcessing(result, "mark queue item failed permanently", id)
}

func (r *QueueRepository) Stats(ctx context.Context, caseID string) (domain.QueueStats, error) {
	query := `
SELECT status, COUNT(*)
FROM queue_items
`
	args := make([]interface{}, 0, 1)
	if caseID != "" {
		query += "WHERE case_id = $1\n"
		args = append(args, caseID)
	}
	query += "GROUP BY status"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return domain.QueueStats{}, fmt.Errorf("queue stats: %w", err)
	}
	defer rows.Close()

	var stats domain.QueueStats
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return domain.QueueStats{}, fmt.Errorf("scan queue stats: %w", err)
		}
		stats.Total += count
		switch domain.QueueStatus(status) {
		case domain.QueuePending:
			stats.Pending = count
		case domain.QueueProcessing:
			stats.Processing = count
		case domain.QueueCompleted:
			stats.Completed = count
		case domain.QueueFailed:
			stats.Failed = count
		}
	}
	if err := rows.Err(); err != nil {
		return domain.QueueStats{}, fmt.Errorf("iterate queue stats: %w", err)
	}
	return stats, nil
}

// DeleteTerminalBefore removes finished work older than cutoff. Failed items
// with attempts left are retryable, not terminal, and are kept.
func (r *QueueRepository) DeleteTerminalBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
DELETE FROM queue_items
WHERE updated_at < $1
  AND (status = 'completed' OR (status = 'failed' AND attempts >= max_attempts))
`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete terminal queue items: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete terminal queue items rows affected: %w", err)
	}
	return rows, nil
}

func requireProcessing(result sql.Result, operation, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", operation, err)
	}
	if rows == 0 {
		return domain.WrapError(domain.ErrNotFound, operation, fmt.Errorf("item %s is not processing", id))
	}
	return nil
}

type queueScanner interface {
	Scan(dest ...interface{}) error
}

func scanQueueItem(row queueScanner) (domain.QueueItem, error) {
	var item domain.QueueItem
	var status string
	var startedAt, completedAt, nextRetryAt sql.NullTime
	err := row.Scan(
		&item.ID,
		&item.DocumentID,
		&item.CaseID,
		&item.OwnerID,
		&status,
		&item.Priority,
		&item.Attempts,
		&item.MaxAttempts,
		&item.ErrorMessage,
		&item.CreatedAt,
		&item.UpdatedAt,
		&startedAt,
		&completedAt,
		&nextRetryAt,
		&item.ProcessingTimeMs,
		&item.TokensUsed,
		&item.ModelUsed,
	)
	if err != nil {
		return domain.QueueItem{}, err
	}
	item.Status = domain.QueueStatus(status)
	item.StartedAt = nullableTime(startedAt)
	item.CompletedAt = nullableTime(completedAt)
	item.NextRetryAt = nullableTime(nextRetryAt)
	return item, nil
}

func nullableTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
