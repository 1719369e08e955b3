package domain

import "time"

// Document is a case-file artifact owned by exactly one case. Category is
// empty until classification succeeds; Confidence is 0-100 and meaningful
// only once Category is set.
type Document struct {
	ID          string            `json:"id"`
	CaseID      string            `json:"case_id"`
	OwnerID     string            `json:"owner_id"`
	FileName    string            `json:"file_name"`
	MimeType    string            `json:"mime_type"`
	StoragePath string            `json:"storage_path"`
	Category    string            `json:"category,omitempty"`
	Subtype     string            `json:"subtype,omitempty"`
	Confidence  int               `json:"confidence,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	Summary     string            `json:"summary,omitempty"`
	NeedsReview bool              `json:"needs_review"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

func (d *Document) Classified() bool {
	return d.Category != ""
}

// Classification is the model's verdict for one document. Confidence is the
// raw model score in [0,1]; TokensUsed and Model describe the call that
// produced it.
type Classification struct {
	Category   string            `json:"category"`
	Subtype    string            `json:"subtype"`
	Confidence float64           `json:"confidence"`
	Metadata   map[string]string `json:"metadata"`
	Summary    string            `json:"summary"`
	TokensUsed int               `json:"tokens_used,omitempty"`
	Model      string            `json:"model,omitempty"`
}

// ExtractedText is the plain-text rendition of a stored document. Pages are
// separated by form feeds in Text when the source format is paginated.
type ExtractedText struct {
	Text      string
	PageCount int
	IsScanned bool
}

// ClassifyContext carries document identity alongside the text so prompts
// can reference the original file.
type ClassifyContext struct {
	FileName string
	MimeType string
}
