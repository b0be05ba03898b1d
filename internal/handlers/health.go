package handlers

import (
	"net/http"
	"os"
	"time"

	"librarian/internal/contextutil"
	"librarian/internal/library"
	"librarian/internal/topicstore"
)

// HealthHandler handles HTTP requests for health checks.
type HealthHandler struct {
	store    *topicstore.Store
	settings library.ChunkSettings
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(store *topicstore.Store, settings library.ChunkSettings) *HealthHandler {
	return &HealthHandler{store: store, settings: settings}
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status        string   `json:"status"` // "healthy" or "unhealthy"
	Timestamp     string   `json:"timestamp"`
	IndexedTopics int      `json:"indexed_topics"`
	TotalTopics   int      `json:"total_topics"`
	Issues        []string `json:"issues,omitempty"`
}

// ServeHTTP handles GET /api/health. The library root must exist; an empty
// or unindexed library is still healthy, it just answers no queries.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	var issues []string
	if _, err := os.Stat(h.store.Root()); err != nil {
		issues = append(issues, "library_root_unavailable")
	}

	indexed, total := 0, 0
	if reg, err := library.Load(h.store.Root(), h.settings); err != nil {
		logger.WarnContext(ctx, "failed to load library registry", "error", err)
		issues = append(issues, "registry_unreadable")
	} else {
		total = len(reg.Topics)
		for _, topic := range reg.Topics {
			if h.store.Indexed(ctx, topic) {
				indexed++
			}
		}
	}

	status := "healthy"
	code := http.StatusOK
	if len(issues) > 0 {
		status = "unhealthy"
		code = http.StatusServiceUnavailable
	}

	writeJSON(w, code, HealthResponse{
		Status:        status,
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		IndexedTopics: indexed,
		TotalTopics:   total,
		Issues:        issues,
	})
}
