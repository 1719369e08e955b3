package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/casewise/docintel/internal/core/domain"
)

func TestWriteComplianceRoundTrip(t *testing.T) {
	results := []domain.MatchResult{
		{
			Request:              domain.DiscoveryRequest{Type: domain.RequestRFP, Number: 3, Text: "Produce all bank statements from January 2024"},
			Status:               domain.MatchComplete,
			CompletionPercentage: 100,
			MatchingDocuments: []domain.MatchedDocument{
				{DocumentID: "doc-1", FileName: "BofA_Jan2024.pdf", Category: "Financial", MatchScore: 70, Signal: domain.SignalCategoryExact, MatchReason: "category matches Financial"},
			},
		},
		{
			Request:              domain.DiscoveryRequest{Type: domain.RequestInterrogatory, Number: 4, Text: "Identify all treating physicians"},
			Status:               domain.MatchIncomplete,
			CompletionPercentage: 0,
		},
	}
	stats := domain.ComplianceStats{
		TotalRequests:          2,
		Complete:               1,
		Incomplete:             1,
		OverallComplianceScore: 50,
		DocumentsWithMatches:   1,
		UnmatchedDocuments:     4,
	}

	var buf bytes.Buffer
	generatedAt := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	if err := WriteCompliance(&buf, "case-7", generatedAt, results, stats); err != nil {
		t.Fatalf("WriteCompliance() error = %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("reopen workbook: %v", err)
	}
	defer f.Close()

	caseCell, err := f.GetCellValue("Summary", "B1")
	if err != nil {
		t.Fatalf("read case cell: %v", err)
	}
	if caseCell != "case-7" {
		t.Fatalf("case cell = %q", caseCell)
	}

	rows, err := f.GetRows("Requests")
	if err != nil {
		t.Fatalf("read request rows: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header + 2 rows, got %d", len(rows))
	}
	if rows[1][3] != "complete" || rows[1][6] != "BofA_Jan2024.pdf" {
		t.Fatalf("first request row = %v", rows[1])
	}
	if rows[2][3] != "incomplete" {
		t.Fatalf("second request row = %v", rows[2])
	}
}

func TestWriteComplianceEmptyDemand(t *testing.T) {
	var buf bytes.Buffer
	err := WriteCompliance(&buf, "case-7", time.Now(), nil, domain.ComplianceStats{})
	if err != nil {
		t.Fatalf("WriteCompliance() error = %v", err)
	}
	if buf.Len() == 0 {
		t.Fatalf("expected workbook bytes")
	}
}
