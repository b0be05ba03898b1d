package handlers

import (
	"net/http"

	"librarian/internal/contextutil"
	"librarian/internal/library"
	"librarian/internal/topicstore"
)

// TopicsHandler lists the library's topics and their index status.
type TopicsHandler struct {
	store    *topicstore.Store
	settings library.ChunkSettings
}

// NewTopicsHandler creates a new TopicsHandler.
func NewTopicsHandler(store *topicstore.Store, settings library.ChunkSettings) *TopicsHandler {
	return &TopicsHandler{store: store, settings: settings}
}

// TopicInfo is one topic in the listing.
type TopicInfo struct {
	ID            string   `json:"id"`
	Path          string   `json:"path"`
	Indexed       bool     `json:"indexed"`
	Books         int      `json:"books"`
	LastIndexedAt *float64 `json:"last_indexed_at,omitempty"`
}

// TopicsResponse is the topic listing payload.
type TopicsResponse struct {
	LibraryPath    string      `json:"library_path"`
	EmbeddingModel string      `json:"embedding_model"`
	Topics         []TopicInfo `json:"topics"`
}

// ServeHTTP handles GET /api/topics.
func (h *TopicsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	reg, err := library.Load(h.store.Root(), h.settings)
	if err != nil {
		logger.ErrorContext(ctx, "failed to load library registry", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to load library registry")
		return
	}

	topics := make([]TopicInfo, 0, len(reg.Topics))
	for _, topic := range reg.Topics {
		info := TopicInfo{
			ID:      topic.ID,
			Path:    topic.Path,
			Indexed: h.store.Indexed(ctx, topic),
		}
		if meta, err := h.store.LoadMeta(h.store.TopicDir(topic)); err == nil {
			info.Books = len(meta.Books)
			info.LastIndexedAt = meta.LastIndexedAt
		}
		topics = append(topics, info)
	}

	writeJSON(w, http.StatusOK, TopicsResponse{
		LibraryPath:    reg.LibraryPath,
		EmbeddingModel: reg.EmbeddingModel,
		Topics:         topics,
	})
}
