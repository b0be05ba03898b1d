package vectorindex

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_backend.go -package=mocks librarian/internal/vectorindex Backend

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"librarian/internal/library"
)

// VectorFilename is the per-topic vector artifact for the file backend,
// stored hidden inside the topic folder.
const VectorFilename = ".vectors.db"

// Backend abstracts where a topic's vector index lives. Build replaces the
// topic's index wholesale; Search returns chunk positions and L2 distances,
// closest first.
type Backend interface {
	Build(ctx context.Context, topic library.Topic, vectors [][]float32) error
	Search(ctx context.Context, topic library.Topic, query []float32, k int) ([]int, []float32, error)
	Has(ctx context.Context, topic library.Topic) bool
	Drop(ctx context.Context, topic library.Topic) error
}

// FileBackend stores each topic's index as a SQLite artifact inside the
// topic folder. This is the default backend.
type FileBackend struct {
	root string
}

// NewFileBackend creates a file backend rooted at the library root.
func NewFileBackend(root string) *FileBackend {
	return &FileBackend{root: root}
}

func (b *FileBackend) artifactPath(topic library.Topic) string {
	return filepath.Join(b.root, filepath.FromSlash(topic.Path), VectorFilename)
}

// Build writes a fresh artifact for the topic, replacing any previous one.
func (b *FileBackend) Build(ctx context.Context, topic library.Topic, vectors [][]float32) error {
	if len(vectors) == 0 {
		return fmt.Errorf("no vectors to build index for topic %s", topic.ID)
	}
	index, err := NewFlat(len(vectors[0]))
	if err != nil {
		return err
	}
	if err := index.Add(vectors); err != nil {
		return err
	}
	return SaveFlat(b.artifactPath(topic), index)
}

// Search loads the topic's artifact and runs an exact nearest-neighbor scan.
func (b *FileBackend) Search(ctx context.Context, topic library.Topic, query []float32, k int) ([]int, []float32, error) {
	index, err := LoadFlat(b.artifactPath(topic))
	if err != nil {
		return nil, nil, err
	}
	return index.Search(query, k)
}

// Has reports whether the topic has a built artifact.
func (b *FileBackend) Has(ctx context.Context, topic library.Topic) bool {
	info, err := os.Stat(b.artifactPath(topic))
	return err == nil && info.Size() > 0
}

// Drop removes the topic's artifact if present.
func (b *FileBackend) Drop(ctx context.Context, topic library.Topic) error {
	err := os.Remove(b.artifactPath(topic))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove %s: %w", b.artifactPath(topic), err)
	}
	return nil
}
