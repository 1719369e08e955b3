package report

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/casewise/docintel/internal/core/domain"
)

const (
	summarySheet  = "Summary"
	requestsSheet = "Requests"
)

// WriteCompliance renders a discovery compliance workbook: one summary sheet
// for the whole demand, one row per request with its best match.
func WriteCompliance(w io.Writer, caseID string, generatedAt time.Time, results []domain.MatchResult, stats domain.ComplianceStats) error {
	f, err := buildCompliance(caseID, generatedAt, results, stats)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func buildCompliance(caseID string, generatedAt time.Time, results []domain.MatchResult, stats domain.ComplianceStats) (*excelize.File, error) {
	f := excelize.NewFile()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, fmt.Errorf("rename summary sheet: %w", err)
	}
	if _, err := f.NewSheet(requestsSheet); err != nil {
		return nil, fmt.Errorf("create requests sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}

	if err := writeSummary(f, headerStyle, caseID, generatedAt, stats); err != nil {
		return nil, err
	}
	if err := writeRequests(f, headerStyle, results); err != nil {
		return nil, err
	}
	return f, nil
}

func writeSummary(f *excelize.File, headerStyle int, caseID string, generatedAt time.Time, stats domain.ComplianceStats) error {
	rows := []struct {
		label string
		value any
	}{
		{"Case", caseID},
		{"Generated", generatedAt.UTC().Format(time.RFC3339)},
		{"Total requests", stats.TotalRequests},
		{"Complete", stats.Complete},
		{"Partial", stats.Partial},
		{"Incomplete", stats.Incomplete},
		{"Overall compliance score", stats.OverallComplianceScore},
		{"Documents with matches", stats.DocumentsWithMatches},
		{"Unmatched documents", stats.UnmatchedDocuments},
	}

	for i, row := range rows {
		labelCell := fmt.Sprintf("A%d", i+1)
		if err := f.SetCellValue(summarySheet, labelCell, row.label); err != nil {
			return fmt.Errorf("write summary label: %w", err)
		}
		if err := f.SetCellValue(summarySheet, fmt.Sprintf("B%d", i+1), row.value); err != nil {
			return fmt.Errorf("write summary value: %w", err)
		}
		if err := f.SetCellStyle(summarySheet, labelCell, labelCell, headerStyle); err != nil {
			return fmt.Errorf("style summary label: %w", err)
		}
	}
	if err := f.SetColWidth(summarySheet, "A", "A", 28); err != nil {
		return fmt.Errorf("size summary columns: %w", err)
	}
	return f.SetColWidth(summarySheet, "B", "B", 40)
}

func writeRequests(f *excelize.File, headerStyle int, results []domain.MatchResult) error {
	headers := []string{"Number", "Type", "Request", "Status", "Completion %", "Matches", "Best document", "Best score", "Match reason"}
	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return fmt.Errorf("name header cell: %w", err)
		}
		if err := f.SetCellValue(requestsSheet, cell, h); err != nil {
			return fmt.Errorf("write request header: %w", err)
		}
		if err := f.SetCellStyle(requestsSheet, cell, cell, headerStyle); err != nil {
			return fmt.Errorf("style request header: %w", err)
		}
	}

	for i, result := range results {
		row := i + 2
		values := []any{
			result.Request.Number,
			string(result.Request.Type),
			result.Request.Text,
			string(result.Status),
			result.CompletionPercentage,
			len(result.MatchingDocuments),
			"",
			"",
			"",
		}
		if len(result.MatchingDocuments) > 0 {
			best := result.MatchingDocuments[0]
			values[6] = best.FileName
			values[7] = best.MatchScore
			values[8] = best.MatchReason
		}
		for col, value := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row)
			if err != nil {
				return fmt.Errorf("name request cell: %w", err)
			}
			if err := f.SetCellValue(requestsSheet, cell, value); err != nil {
				return fmt.Errorf("write request row: %w", err)
			}
		}
	}

	if err := f.SetColWidth(requestsSheet, "C", "C", 60); err != nil {
		return fmt.Errorf("size request columns: %w", err)
	}
	return f.SetColWidth(requestsSheet, "G", "I", 30)
}
