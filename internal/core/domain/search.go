package domain

import "time"

type SearchMode string

const (
	SearchFullText SearchMode = "full-text"
	SearchSemantic SearchMode = "semantic"
	SearchHybrid   SearchMode = "hybrid"
)

type MatchType string

const (
	MatchFullText MatchType = "full-text"
	MatchSemantic MatchType = "semantic"
	MatchBoth     MatchType = "both"
)

// ChunkSpan is one window produced by the splitter. Start is the rune
// offset of the window in the original text, before any cleanup.
type ChunkSpan struct {
	Text  string
	Start int
}

// Chunk is one indexed window of document text. PageNumber is 1-based and 0
// when the source text carried no page markers.
type Chunk struct {
	ID         string    `json:"id"`
	DocumentID string    `json:"document_id"`
	CaseID     string    `json:"case_id"`
	OwnerID    string    `json:"owner_id"`
	ChunkIndex int       `json:"chunk_index"`
	Content    string    `json:"content"`
	PageNumber int       `json:"page_number,omitempty"`
	Embedding  []float32 `json:"-"`
	CreatedAt  time.Time `json:"created_at"`
}

// SearchFilters narrow a search before mode fusion. Zero values disable the
// corresponding filter; MaxConfidence 0 means no upper bound.
type SearchFilters struct {
	Category      string     `json:"category,omitempty"`
	Subtype       string     `json:"subtype,omitempty"`
	MinConfidence int        `json:"min_confidence,omitempty"`
	MaxConfidence int        `json:"max_confidence,omitempty"`
	CreatedAfter  *time.Time `json:"created_after,omitempty"`
	CreatedBefore *time.Time `json:"created_before,omitempty"`
}

// SearchQuery is one search invocation against a single case.
type SearchQuery struct {
	CaseID        string        `json:"case_id"`
	Query         string        `json:"query"`
	Mode          SearchMode    `json:"mode"`
	Filters       SearchFilters `json:"filters"`
	Limit         int           `json:"limit"`
	MinSimilarity float64       `json:"min_similarity"`
}

// ChunkHit is one candidate row coming back from the store: a chunk joined
// with its document. Lexical candidates leave Similarity at 0; Content is
// empty when a document matched on filename alone.
type ChunkHit struct {
	ChunkID    string
	DocumentID string
	FileName   string
	Category   string
	Subtype    string
	Confidence int
	Metadata   map[string]string
	ChunkIndex int
	PageNumber int
	Content    string
	Similarity float64
}

// SearchResult is one document-level result after per-mode scoring. ID is
// the backing chunk's ID, or the document ID for filename-only matches.
type SearchResult struct {
	ID             string            `json:"id"`
	DocumentID     string            `json:"document_id"`
	FileName       string            `json:"file_name"`
	Category       string            `json:"category,omitempty"`
	Subtype        string            `json:"subtype,omitempty"`
	PageNumber     int               `json:"page_number,omitempty"`
	RelevanceScore float64           `json:"relevance_score"`
	MatchType      MatchType         `json:"match_type"`
	Snippet        string            `json:"snippet,omitempty"`
	Highlights     []string          `json:"highlights,omitempty"`
	Metadata       map[string]string `json:"metadata,omitempty"`
}

// IndexResult reports what indexing did for one document.
type IndexResult struct {
	DocumentID string `json:"document_id"`
	Chunks     int    `json:"chunks"`
	Pages      int    `json:"pages,omitempty"`
	Skipped    bool   `json:"skipped,omitempty"`
	SkipReason string `json:"skip_reason,omitempty"`
}
