package httpadapter

import (
	"net/http"
	"strconv"
)

func (rt *Router) uploadDocument(w http.ResponseWriter, r *http.Request, caseID string) {
	if rt.cfg.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, rt.cfg.MaxUploadBytes)
	}

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'file' is required"})
		return
	}
	defer file.Close()

	priority := 0
	if raw := r.FormValue("priority"); raw != "" {
		priority, err = strconv.Atoi(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "priority must be an integer"})
			return
		}
	}

	doc, err := rt.svc.Ingest.Upload(
		r.Context(),
		caseID,
		r.FormValue("owner_id"),
		fileHeader.Filename,
		fileHeader.Header.Get("Content-Type"),
		priority,
		file,
	)
	if err != nil {
		rt.writeError(w, r, "upload document", err)
		return
	}

	writeJSON(w, http.StatusAccepted, doc)
}

func (rt *Router) listDocuments(w http.ResponseWriter, r *http.Request, caseID string) {
	docs, err := rt.svc.Documents.ListByCase(r.Context(), caseID)
	if err != nil {
		rt.writeError(w, r, "list documents", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"documents": docs,
		"count":     len(docs),
	})
}

func (rt *Router) getDocument(w http.ResponseWriter, r *http.Request, id string) {
	doc, err := rt.svc.Documents.GetByID(r.Context(), id)
	if err != nil {
		rt.writeError(w, r, "get document", err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (rt *Router) reindexDocument(w http.ResponseWriter, r *http.Request, id string) {
	res, err := rt.svc.Indexer.IndexDocument(r.Context(), id)
	if err != nil {
		rt.writeError(w, r, "reindex document", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
