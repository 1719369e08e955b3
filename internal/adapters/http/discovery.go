package httpadapter

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/casewise/docintel/internal/core/domain"
	"github.com/casewise/docintel/internal/report"
)

type discoveryRequestBody struct {
	Requests []domain.DiscoveryRequest `json:"requests"`
	MinScore int                       `json:"min_score"`
}

func (rt *Router) decodeDiscoveryBody(r *http.Request) (discoveryRequestBody, error) {
	var req discoveryRequestBody
	if err := decodeJSON(r, &req); err != nil {
		return req, err
	}
	if req.MinScore == 0 {
		req.MinScore = rt.cfg.DiscoveryMinScore
	}
	return req, nil
}

func (rt *Router) discoveryMatch(w http.ResponseWriter, r *http.Request, caseID string) {
	req, err := rt.decodeDiscoveryBody(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	results, err := rt.svc.Discovery.MatchCase(r.Context(), caseID, req.Requests, req.MinScore)
	if err != nil {
		rt.recordDiscovery("error", nil)
		rt.writeError(w, r, "discovery match", err)
		return
	}
	rt.recordDiscovery("ok", results)

	writeJSON(w, http.StatusOK, map[string]any{
		"results": results,
		"count":   len(results),
	})
}

func (rt *Router) discoveryCompliance(w http.ResponseWriter, r *http.Request, caseID string) {
	req, err := rt.decodeDiscoveryBody(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	results, stats, err := rt.svc.Discovery.ComplianceForCase(r.Context(), caseID, req.Requests, req.MinScore)
	if err != nil {
		rt.recordDiscovery("error", nil)
		rt.writeError(w, r, "discovery compliance", err)
		return
	}
	rt.recordDiscovery("ok", results)

	writeJSON(w, http.StatusOK, map[string]any{
		"results": results,
		"stats":   stats,
	})
}

// discoveryReport streams the compliance workbook as a download. The
// workbook is built in memory first so a build failure can still return a
// JSON error instead of a torn XLSX body.
func (rt *Router) discoveryReport(w http.ResponseWriter, r *http.Request, caseID string) {
	req, err := rt.decodeDiscoveryBody(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	results, stats, err := rt.svc.Discovery.ComplianceForCase(r.Context(), caseID, req.Requests, req.MinScore)
	if err != nil {
		rt.recordDiscovery("error", nil)
		rt.writeError(w, r, "discovery report", err)
		return
	}
	rt.recordDiscovery("ok", results)

	var buf bytes.Buffer
	if err := report.WriteCompliance(&buf, caseID, time.Now().UTC(), results, stats); err != nil {
		rt.writeError(w, r, "build compliance report", err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "discovery_compliance_"+caseID+".xlsx"))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (rt *Router) recordDiscovery(status string, results []domain.MatchResult) {
	if rt.metrics == nil {
		return
	}
	completions := make([]float64, 0, len(results))
	for _, res := range results {
		completions = append(completions, float64(res.CompletionPercentage))
	}
	rt.metrics.RecordDiscoveryRun("api", status, completions)
}
