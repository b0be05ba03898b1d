package handlers

import (
	"encoding/json"
	"net/http"

	"librarian/internal/contextutil"
	"librarian/internal/indexer"
)

// IndexHandler handles HTTP requests for triggering indexing runs.
type IndexHandler struct {
	indexer *indexer.Indexer
}

// NewIndexHandler creates a new IndexHandler.
func NewIndexHandler(ix *indexer.Indexer) *IndexHandler {
	return &IndexHandler{indexer: ix}
}

// IndexRequest represents the HTTP request payload for an indexing run.
// Mode is "all" (default), "changed", or "topic"; Topic is required for mode
// "topic". Force bypasses the content signature short-circuit.
type IndexRequest struct {
	Mode  string `json:"mode,omitempty"`
	Topic string `json:"topic,omitempty"`
	Force bool   `json:"force,omitempty"`
}

// IndexResponse wraps the run summary.
type IndexResponse struct {
	Status  string          `json:"status"`
	Summary indexer.Summary `json:"summary"`
}

// ServeHTTP handles POST /api/index. The run is synchronous so the caller
// gets the per-topic outcome back.
func (h *IndexHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	var req IndexRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			logger.WarnContext(ctx, "invalid request body", "error", err)
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}
	if req.Mode == "" {
		req.Mode = "all"
	}

	var summary indexer.Summary
	var err error
	switch req.Mode {
	case "all":
		summary, err = h.indexer.IndexAll(ctx, req.Force)
	case "changed":
		summary, err = h.indexer.IndexChanged(ctx)
	case "topic":
		if req.Topic == "" {
			writeError(w, http.StatusBadRequest, "Topic is required for mode \"topic\"")
			return
		}
		summary, err = h.indexer.IndexOne(ctx, req.Topic, req.Force)
	default:
		writeError(w, http.StatusBadRequest, "Mode must be \"all\", \"changed\", or \"topic\"")
		return
	}
	if err != nil {
		logger.ErrorContext(ctx, "indexing run failed", "mode", req.Mode, "error", err)
		writeError(w, http.StatusInternalServerError, "Indexing run failed")
		return
	}

	status := "ok"
	code := http.StatusOK
	if len(summary.Failed) > 0 {
		status = "partial"
		code = http.StatusMultiStatus
	}
	writeJSON(w, code, IndexResponse{Status: status, Summary: summary})
}
