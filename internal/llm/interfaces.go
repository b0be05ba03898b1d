package llm

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_llm.go -package=mocks librarian/internal/llm Embedder,Reranker

import "context"

// Embedder converts text into fixed-length dense vectors. Implementations
// must be deterministic for a given model and input.
type Embedder interface {
	// EmbedTexts returns one vector per input text, all of the same dimension.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Reranker scores (query, candidate) pairs with a cross-encoder. It is an
// optional capability: callers degrade to the vector similarity ordering when
// scoring fails.
type Reranker interface {
	// Score returns one relevance score per candidate text.
	Score(ctx context.Context, query string, texts []string) ([]float32, error)
}
