package httpadapter

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/draft-assistant/internal/config"
	"github.com/kirillkom/draft-assistant/internal/core/domain"
	"github.com/kirillkom/draft-assistant/internal/core/ports"
	"github.com/kirillkom/draft-assistant/internal/observability/metrics"
)

const metricsServiceName = "api"

type Router struct {
	cfg       config.Config
	ingest    ports.DocumentIngestor
	retriever ports.ContextRetriever
	docs      ports.DocumentReader
	metrics   *metrics.HTTPServerMetrics
}

func NewRouter(
	cfg config.Config,
	ingest ports.DocumentIngestor,
	retriever ports.ContextRetriever,
	docs ports.DocumentReader,
) *Router {
	return &Router{
		cfg:       cfg,
		ingest:    ingest,
		retriever: retriever,
		docs:      docs,
	}
}

// WithMetrics attaches Prometheus instrumentation. The router works without
// it, which keeps handler tests free of registry setup.
func (rt *Router) WithMetrics(m *metrics.HTTPServerMetrics) *Router {
	rt.metrics = m
	return rt
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/documents", rt.uploadDocument)
	mux.HandleFunc("/v1/documents/", rt.getDocumentByID)
	mux.HandleFunc("/v1/retrieve", rt.retrieve)

	var handler http.Handler = mux
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(metricsServiceName, handler)
	}
	handler = backpressureMiddleware(handler, rt.cfg.APIMaxConcurrent, rt.cfg.APIOverloadTimeout)
	handler = rateLimitMiddleware(handler, rt.cfg.APIRateLimitRPS, rt.cfg.APIRateLimitBurst)
	handler = accessLogMiddleware(handler)
	handler = requestIDMiddleware(handler)
	return handler
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) uploadDocument(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'file' is required"})
		return
	}
	defer file.Close()

	doc, err := rt.ingest.Upload(
		r.Context(),
		fileHeader.Filename,
		fileHeader.Header.Get("Content-Type"),
		file,
	)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, doc)
}

func (rt *Router) getDocumentByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/v1/documents/")
	if id == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "document id is required"})
		return
	}

	doc, err := rt.docs.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (rt *Router) retrieve(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req domain.RetrievalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.Query) == "" && len(req.SubQueries) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "query or sub_queries is required"})
		return
	}

	start := time.Now()
	result, err := rt.retriever.Retrieve(r.Context(), req)
	if err != nil {
		if rt.metrics != nil && domain.IsKind(err, domain.ErrScoringUnavailable) {
			rt.metrics.RecordScoringFailure(metricsServiceName)
		}
		writeError(w, err)
		return
	}

	if rt.metrics != nil {
		rt.metrics.RecordRetrieval(metricsServiceName, metrics.RetrievalObservation{
			Strategy:          result.Diagnostics.Strategy,
			DenseCandidates:   result.Diagnostics.DenseCandidates,
			LexicalCandidates: result.Diagnostics.LexicalCandidates,
			Expanded:          result.Diagnostics.Expanded,
			DedupDropped:      result.Diagnostics.DedupDropped,
			Snippets:          len(result.Snippets),
			Duration:          time.Since(start),
		})
	}

	writeJSON(w, http.StatusOK, result)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
}
