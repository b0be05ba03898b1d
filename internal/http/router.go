// Package http wires the API routes and request middleware.
package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"librarian/internal/engine"
	"librarian/internal/handlers"
	"librarian/internal/indexer"
	"librarian/internal/library"
	"librarian/internal/topicstore"
)

// Deps holds dependencies for the HTTP router.
type Deps struct {
	Engine        *engine.Engine
	Indexer       *indexer.Indexer
	Store         *topicstore.Store
	LibraryRoot   string
	ChunkSettings library.ChunkSettings
}

// NewRouter creates the API router with the provided dependencies.
func NewRouter(deps *Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(LoggerMiddleware)
	r.Use(CORS)

	queryHandler := handlers.NewQueryHandler(deps.Engine, deps.LibraryRoot, deps.ChunkSettings)
	indexHandler := handlers.NewIndexHandler(deps.Indexer)
	topicsHandler := handlers.NewTopicsHandler(deps.Store, deps.ChunkSettings)
	inferHandler := handlers.NewInferHandler(deps.LibraryRoot, deps.ChunkSettings)
	healthHandler := handlers.NewHealthHandler(deps.Store, deps.ChunkSettings)

	r.Route("/api", func(r chi.Router) {
		r.Method(http.MethodPost, "/query", queryHandler)
		r.Method(http.MethodPost, "/index", indexHandler)
		r.Method(http.MethodGet, "/topics", topicsHandler)
		r.Method(http.MethodPost, "/infer", inferHandler)
		r.Method(http.MethodGet, "/health", healthHandler)
	})

	return r
}
