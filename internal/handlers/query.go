package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"librarian/internal/contextutil"
	"librarian/internal/engine"
	"librarian/internal/library"
)

// QueryHandler handles HTTP requests for semantic search.
type QueryHandler struct {
	engine   *engine.Engine
	root     string
	settings library.ChunkSettings
}

// NewQueryHandler creates a new QueryHandler.
func NewQueryHandler(eng *engine.Engine, root string, settings library.ChunkSettings) *QueryHandler {
	return &QueryHandler{engine: eng, root: root, settings: settings}
}

// QueryRequest represents the HTTP request payload for semantic search.
// ContextWindow and MaxPerBook are pointers so that an absent field gets the
// default while an explicit zero disables the feature.
type QueryRequest struct {
	Query         string `json:"query"`
	Topic         string `json:"topic,omitempty"` // topic id, substring, or "all"
	Book          string `json:"book,omitempty"`
	K             int    `json:"k,omitempty"`
	Rerank        bool   `json:"rerank,omitempty"`
	ContextWindow *int   `json:"context_window,omitempty"`
	MaxPerBook    *int   `json:"max_per_book,omitempty"`
	ExpandQuery   bool   `json:"expand_query,omitempty"`
}

const (
	defaultContextWindow = 1
	defaultMaxPerBook    = 2
	maxK                 = 50
)

// ServeHTTP handles POST /api/query.
func (h *QueryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if strings.TrimSpace(req.Query) == "" {
		logger.WarnContext(ctx, "empty query in request")
		writeError(w, http.StatusBadRequest, "Query is required")
		return
	}
	if req.K < 0 {
		req.K = 0
	}
	if req.K > maxK {
		req.K = maxK
	}

	contextWindow := defaultContextWindow
	if req.ContextWindow != nil && *req.ContextWindow >= 0 {
		contextWindow = *req.ContextWindow
	}
	maxPerBook := defaultMaxPerBook
	if req.MaxPerBook != nil && *req.MaxPerBook >= 0 {
		maxPerBook = *req.MaxPerBook
	}

	reg, err := library.Load(h.root, h.settings)
	if err != nil {
		logger.ErrorContext(ctx, "failed to load library registry", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to load library registry")
		return
	}

	engReq := engine.Request{
		Query:         req.Query,
		Book:          req.Book,
		K:             req.K,
		Rerank:        req.Rerank,
		ContextWindow: contextWindow,
		MaxPerBook:    maxPerBook,
		ExpandQuery:   req.ExpandQuery,
	}

	var resp engine.Response
	if strings.EqualFold(req.Topic, "all") {
		resp, err = h.engine.QueryAll(ctx, reg, engReq)
	} else {
		engReq.Topic = req.Topic
		resp, err = h.engine.Query(ctx, reg, engReq)
	}
	if err != nil {
		logger.ErrorContext(ctx, "query failed", "error", err)
		writeError(w, http.StatusBadGateway, "Search backend error")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}
