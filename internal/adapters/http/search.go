package httpadapter

import (
	"net/http"
	"time"

	"github.com/casewise/docintel/internal/core/domain"
)

func (rt *Router) searchCase(w http.ResponseWriter, r *http.Request, caseID string) {
	var q domain.SearchQuery
	if err := decodeJSON(r, &q); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	q.CaseID = caseID
	if q.Mode == "" {
		q.Mode = domain.SearchHybrid
	}

	start := time.Now()
	results, err := rt.svc.Search.Search(r.Context(), q)
	if err != nil {
		rt.writeError(w, r, "search", err)
		return
	}
	if rt.metrics != nil {
		rt.metrics.RecordSearch("api", string(q.Mode), len(results), time.Since(start))
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"query":   q.Query,
		"mode":    q.Mode,
		"results": results,
		"count":   len(results),
	})
}
