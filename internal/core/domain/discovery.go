package domain

type RequestType string

const (
	RequestRFP           RequestType = "RFP"
	RequestInterrogatory RequestType = "Interrogatory"
)

// DiscoveryRequest is one numbered item from an opposing party's discovery
// demand. CategoryHint, when present, overrides category detection from the
// request text.
type DiscoveryRequest struct {
	ID           string      `json:"id"`
	Type         RequestType `json:"type"`
	Number       int         `json:"number"`
	Text         string      `json:"text"`
	CategoryHint string      `json:"category_hint,omitempty"`
}

// MatchSignal names the scoring signal that contributed the most points to a
// document match. Ties resolve toward the top of this list.
type MatchSignal string

const (
	SignalCategoryExact   MatchSignal = "category_exact"
	SignalCategoryPartial MatchSignal = "category_partial"
	SignalSubtype         MatchSignal = "subtype_keywords"
	SignalFilename        MatchSignal = "filename_keywords"
	SignalMetadata        MatchSignal = "metadata_keywords"
	SignalDateRange       MatchSignal = "date_range"
	SignalNone            MatchSignal = "none"
)

type MatchedDocument struct {
	DocumentID  string      `json:"document_id"`
	FileName    string      `json:"file_name"`
	Category    string      `json:"category"`
	Subtype     string      `json:"subtype,omitempty"`
	Confidence  int         `json:"confidence"`
	MatchScore  int         `json:"match_score"`
	Signal      MatchSignal `json:"signal"`
	MatchReason string      `json:"match_reason"`
}

type MatchStatus string

const (
	MatchComplete   MatchStatus = "complete"
	MatchPartial    MatchStatus = "partial"
	MatchIncomplete MatchStatus = "incomplete"
)

// MatchResult is the evaluation of one discovery request against a case's
// documents. CompletionPercentage is 100 for complete, the best match score
// for partial, and 0 for incomplete.
type MatchResult struct {
	Request              DiscoveryRequest  `json:"request"`
	Status               MatchStatus       `json:"status"`
	CompletionPercentage int               `json:"completion_percentage"`
	MatchingDocuments    []MatchedDocument `json:"matching_documents"`
}

// ComplianceStats aggregates match results across a whole discovery demand.
type ComplianceStats struct {
	TotalRequests          int     `json:"total_requests"`
	Complete               int     `json:"complete"`
	Partial                int     `json:"partial"`
	Incomplete             int     `json:"incomplete"`
	OverallComplianceScore float64 `json:"overall_compliance_score"`
	DocumentsWithMatches   int     `json:"documents_with_matches"`
	UnmatchedDocuments     int     `json:"unmatched_documents"`
}
