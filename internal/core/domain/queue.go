package domain

import "time"

type QueueStatus string

const (
	QueuePending    QueueStatus = "pending"
	QueueProcessing QueueStatus = "processing"
	QueueCompleted  QueueStatus = "completed"
	QueueFailed     QueueStatus = "failed"
)

// QueueItem is one durable classification job. Attempts counts started
// attempts, so it is incremented when an item is claimed, not when it fails.
type QueueItem struct {
	ID               string      `json:"id"`
	DocumentID       string      `json:"document_id"`
	CaseID           string      `json:"case_id"`
	OwnerID          string      `json:"owner_id"`
	Status           QueueStatus `json:"status"`
	Priority         int         `json:"priority"`
	Attempts         int         `json:"attempts"`
	MaxAttempts      int         `json:"max_attempts"`
	ErrorMessage     string      `json:"error_message,omitempty"`
	CreatedAt        time.Time   `json:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at"`
	StartedAt        *time.Time  `json:"started_at,omitempty"`
	CompletedAt      *time.Time  `json:"completed_at,omitempty"`
	NextRetryAt      *time.Time  `json:"next_retry_at,omitempty"`
	ProcessingTimeMs int64       `json:"processing_time_ms,omitempty"`
	TokensUsed       int         `json:"tokens_used,omitempty"`
	ModelUsed        string      `json:"model_used,omitempty"`
}

// Active reports whether the item still occupies the per-document slot that
// makes Enqueue idempotent.
func (i *QueueItem) Active() bool {
	return i.Status == QueuePending || i.Status == QueueProcessing
}

// Terminal reports whether the item will never run again: completed, or
// failed with no attempts left.
func (i *QueueItem) Terminal() bool {
	if i.Status == QueueCompleted {
		return true
	}
	return i.Status == QueueFailed && i.Attempts >= i.MaxAttempts
}

// ProcessingResult describes the outcome of one classification attempt.
// Success false with a non-empty Error means the attempt was absorbed into
// the item's retry bookkeeping.
type ProcessingResult struct {
	ItemID           string    `json:"item_id"`
	DocumentID       string    `json:"document_id"`
	CaseID           string    `json:"case_id"`
	Success          bool      `json:"success"`
	Error            string    `json:"error,omitempty"`
	WillRetry        bool      `json:"will_retry,omitempty"`
	Category         string    `json:"category,omitempty"`
	Confidence       int       `json:"confidence,omitempty"`
	NeedsReview      bool      `json:"needs_review,omitempty"`
	QueuedAt         time.Time `json:"queued_at"`
	ProcessingTimeMs int64     `json:"processing_time_ms"`
	TokensUsed       int       `json:"tokens_used,omitempty"`
	ModelUsed        string    `json:"model_used,omitempty"`
}

type QueueStats struct {
	Total      int `json:"total"`
	Pending    int `json:"pending"`
	Processing int `json:"processing"`
	Completed  int `json:"completed"`
	Failed     int `json:"failed"`
}
