package main

import (
	"log"
	"log/slog"
	nethttp "net/http"
	"os"

	"librarian/internal/config"
	"librarian/internal/engine"
	"librarian/internal/http"
	"librarian/internal/indexer"
	"librarian/internal/library"
	"librarian/internal/llm"
	"librarian/internal/topicstore"
	"librarian/internal/vectorindex"
)

func main() {
	// Load configuration first (needed for log level)
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Configure structured logging with configurable level and format
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
	slog.Debug("Logging configured", "level", cfg.LogLevel.String(), "format", cfg.LogFormat)

	var backend vectorindex.Backend
	switch cfg.VectorBackend {
	case "qdrant":
		qb, err := vectorindex.NewQdrantBackend(cfg.QdrantURL, cfg.EmbeddingDim)
		if err != nil {
			log.Fatalf("Failed to create Qdrant backend: %v", err)
		}
		backend = qb
		slog.Info("Vector backend ready", "backend", "qdrant", "url", cfg.QdrantURL)
	default:
		backend = vectorindex.NewFileBackend(cfg.LibraryRoot)
		slog.Info("Vector backend ready", "backend", "file", "root", cfg.LibraryRoot)
	}

	store := topicstore.New(cfg.LibraryRoot, backend)

	embedder := llm.NewEmbeddingsClient(cfg.EmbeddingBaseURL, cfg.EmbeddingAPIKey, cfg.EmbeddingModel, cfg.EmbeddingDim, cfg.EmbedBatchSize)

	var reranker llm.Reranker
	if cfg.RerankBaseURL != "" {
		reranker = llm.NewRerankClient(cfg.RerankBaseURL, cfg.EmbeddingAPIKey, cfg.RerankModel)
		slog.Info("Reranker configured", "model", cfg.RerankModel)
	}

	settings := library.ChunkSettings{Size: cfg.ChunkSize, Overlap: cfg.ChunkOverlap}
	ix := indexer.New(cfg.LibraryRoot, store, embedder, cfg.EmbeddingModel, settings)
	eng := engine.New(store, embedder, reranker)

	router := http.NewRouter(&http.Deps{
		Engine:        eng,
		Indexer:       ix,
		Store:         store,
		LibraryRoot:   cfg.LibraryRoot,
		ChunkSettings: settings,
	})

	addr := ":" + cfg.APIPort
	slog.Info("Starting API server", "addr", addr, "library", cfg.LibraryRoot)
	if err := nethttp.ListenAndServe(addr, router); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
