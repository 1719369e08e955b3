package httpadapter

import (
	"net/http"
	"strings"
)

func (rt *Router) enqueueDocument(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	var req struct {
		DocumentID string `json:"document_id"`
		CaseID     string `json:"case_id"`
		OwnerID    string `json:"owner_id"`
		Priority   int    `json:"priority"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	item, err := rt.svc.Queue.Enqueue(r.Context(), strings.TrimSpace(req.DocumentID), strings.TrimSpace(req.CaseID), req.OwnerID, req.Priority)
	if err != nil {
		rt.writeError(w, r, "enqueue document", err)
		return
	}
	writeJSON(w, http.StatusAccepted, item)
}

// processNext runs one classification attempt inline. 204 means the queue
// had nothing eligible.
func (rt *Router) processNext(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	res, err := rt.svc.Queue.ProcessNext(r.Context())
	if err != nil {
		rt.writeError(w, r, "process next", err)
		return
	}
	if res == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// peekNext shows the item the next worker would claim without claiming it.
func (rt *Router) peekNext(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}

	item, err := rt.svc.Queue.DequeueNext(r.Context())
	if err != nil {
		rt.writeError(w, r, "peek next", err)
		return
	}
	if item == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (rt *Router) queueStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}

	stats, err := rt.svc.Queue.Stats(r.Context(), r.URL.Query().Get("case_id"))
	if err != nil {
		rt.writeError(w, r, "queue stats", err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (rt *Router) cleanupQueue(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	var req struct {
		OlderThanDays int `json:"older_than_days"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if req.OlderThanDays == 0 {
		req.OlderThanDays = rt.cfg.QueueRetentionDays
	}

	removed, err := rt.svc.Queue.Cleanup(r.Context(), req.OlderThanDays)
	if err != nil {
		rt.writeError(w, r, "cleanup queue", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"removed": removed})
}
