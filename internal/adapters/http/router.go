package httpadapter

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/casewise/docintel/internal/config"
	"github.com/casewise/docintel/internal/core/ports"
	"github.com/casewise/docintel/internal/observability/metrics"
)

// Services are the inbound ports the API exposes.
type Services struct {
	Ingest    ports.DocumentIngestor
	Documents ports.DocumentReader
	Queue     ports.ProcessingQueue
	Indexer   ports.ChunkIndexer
	Search    ports.SearchService
	Discovery ports.DiscoveryService
}

type Router struct {
	cfg     config.Config
	svc     Services
	metrics *metrics.HTTPServerMetrics
	log     *slog.Logger
}

func NewRouter(cfg config.Config, svc Services, m *metrics.HTTPServerMetrics, log *slog.Logger) *Router {
	if log == nil {
		log = slog.Default()
	}
	return &Router{
		cfg:     cfg,
		svc:     svc,
		metrics: m,
		log:     log,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/cases/", rt.caseRoutes)
	mux.HandleFunc("/v1/documents/", rt.documentRoutes)
	mux.HandleFunc("/v1/queue/enqueue", rt.enqueueDocument)
	mux.HandleFunc("/v1/queue/process", rt.processNext)
	mux.HandleFunc("/v1/queue/next", rt.peekNext)
	mux.HandleFunc("/v1/queue/stats", rt.queueStats)
	mux.HandleFunc("/v1/queue/cleanup", rt.cleanupQueue)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	if rt.cfg.APIMaxInFlight > 0 {
		handler = backpressureMiddleware(handler, rt.cfg.APIMaxInFlight, rt.cfg.APIInFlightWait)
	}
	if rt.cfg.APIRateLimitRPS > 0 {
		handler = rateLimitMiddleware(handler, rt.cfg.APIRateLimitRPS, rt.cfg.APIRateLimitBurst)
	}
	if rt.metrics != nil {
		handler = rt.metrics.Middleware("api", handler)
	}
	handler = accessLogMiddleware(rt.log, handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// caseRoutes dispatches /v1/cases/{case_id}/... by hand; the surface is
// small enough that a routing dependency buys nothing.
func (rt *Router) caseRoutes(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/cases/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	if len(parts) < 2 || parts[0] == "" {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}
	caseID := parts[0]

	switch {
	case len(parts) == 2 && parts[1] == "documents":
		switch r.Method {
		case http.MethodPost:
			rt.uploadDocument(w, r, caseID)
		case http.MethodGet:
			rt.listDocuments(w, r, caseID)
		default:
			methodNotAllowed(w)
		}
	case len(parts) == 2 && parts[1] == "search":
		requirePost(w, r, func() { rt.searchCase(w, r, caseID) })
	case len(parts) == 3 && parts[1] == "discovery" && parts[2] == "match":
		requirePost(w, r, func() { rt.discoveryMatch(w, r, caseID) })
	case len(parts) == 3 && parts[1] == "discovery" && parts[2] == "compliance":
		requirePost(w, r, func() { rt.discoveryCompliance(w, r, caseID) })
	case len(parts) == 3 && parts[1] == "discovery" && parts[2] == "report":
		requirePost(w, r, func() { rt.discoveryReport(w, r, caseID) })
	default:
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	}
}

func (rt *Router) documentRoutes(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/documents/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	if parts[0] == "" {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}
	id := parts[0]

	switch {
	case len(parts) == 1:
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		rt.getDocument(w, r, id)
	case len(parts) == 2 && parts[1] == "reindex":
		requirePost(w, r, func() { rt.reindexDocument(w, r, id) })
	default:
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	}
}

func requirePost(w http.ResponseWriter, r *http.Request, handle func()) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	handle()
}

func methodNotAllowed(w http.ResponseWriter) {
	writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// decodeJSON reads a request body into dst. An empty body is allowed so
// endpoints whose parameters are all optional can be called bare.
func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
