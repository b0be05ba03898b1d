package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"librarian/internal/contextutil"
	"librarian/internal/library"
	"librarian/internal/topicinfer"
)

// InferHandler guesses the topic a query belongs to.
type InferHandler struct {
	root     string
	settings library.ChunkSettings
}

// NewInferHandler creates a new InferHandler.
func NewInferHandler(root string, settings library.ChunkSettings) *InferHandler {
	return &InferHandler{root: root, settings: settings}
}

// InferRequest represents the HTTP request payload for topic inference.
type InferRequest struct {
	Query string `json:"query"`
}

// ServeHTTP handles POST /api/infer.
func (h *InferHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	var req InferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, "Query is required")
		return
	}

	reg, err := library.Load(h.root, h.settings)
	if err != nil {
		logger.ErrorContext(ctx, "failed to load library registry", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to load library registry")
		return
	}

	writeJSON(w, http.StatusOK, topicinfer.Infer(req.Query, reg))
}
