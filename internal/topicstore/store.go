package topicstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"librarian/internal/contextutil"
	"librarian/internal/library"
	"librarian/internal/vectorindex"
)

// Store reads and writes per-topic durable state under the library root.
// Vector rows live behind the configured backend; everything else is a
// hidden JSON document inside the topic folder.
type Store struct {
	root    string
	backend vectorindex.Backend
}

// New creates a store over the given library root and vector backend.
func New(root string, backend vectorindex.Backend) *Store {
	return &Store{root: root, backend: backend}
}

// Root returns the library root the store operates on.
func (s *Store) Root() string { return s.root }

// TopicDir resolves a topic's folder on disk.
func (s *Store) TopicDir(topic library.Topic) string {
	return filepath.Join(s.root, filepath.FromSlash(topic.Path))
}

// ScanBooks registers the supported book files directly inside dir, with ids
// derived from filenames and modification times captured now.
func (s *Store) ScanBooks(dir string) ([]Book, error) {
	files, err := library.BookFiles(dir)
	if err != nil {
		return nil, err
	}

	books := make([]Book, 0, len(files))
	for _, name := range files {
		info, err := os.Stat(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("failed to stat %s: %w", name, err)
		}
		books = append(books, NewBook(name, info.ModTime()))
	}
	return books, nil
}

// NewBook builds a book registry entry from a filename and modification time.
// The title is the filename stem; the author defaults to unknown.
func NewBook(filename string, modTime time.Time) Book {
	stem := strings.TrimSuffix(filename, filepath.Ext(filename))
	return Book{
		ID:           strings.ReplaceAll(strings.ToLower(stem), " ", "_"),
		Title:        stem,
		Filename:     filename,
		Author:       "Unknown",
		Tags:         []string{},
		LastModified: unixSeconds(modTime),
	}
}

// LoadMeta reads the topic metadata document. Returns ErrNotFound when the
// topic has never been registered.
func (s *Store) LoadMeta(dir string) (*TopicMeta, error) {
	data, err := os.ReadFile(filepath.Join(dir, MetaFilename))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read topic metadata in %s: %w", dir, err)
	}

	var meta TopicMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("failed to parse topic metadata in %s: %w", dir, err)
	}
	return &meta, nil
}

// LoadChunks reads the topic's chunk document. Returns ErrNotFound when the
// topic has no built chunk sequence.
func (s *Store) LoadChunks(dir string) ([]Chunk, error) {
	data, err := os.ReadFile(filepath.Join(dir, ChunksFilename))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read chunk document in %s: %w", dir, err)
	}

	var chunks []Chunk
	if err := json.Unmarshal(data, &chunks); err != nil {
		return nil, fmt.Errorf("failed to parse chunk document in %s: %w", dir, err)
	}
	return chunks, nil
}

// Indexed reports whether the topic has both a chunk document and a built
// vector index, i.e. is queryable.
func (s *Store) Indexed(ctx context.Context, topic library.Topic) bool {
	if _, err := os.Stat(filepath.Join(s.TopicDir(topic), ChunksFilename)); err != nil {
		return false
	}
	return s.backend.Has(ctx, topic)
}

// SearchVectors runs a nearest-neighbor search against the topic's index.
func (s *Store) SearchVectors(ctx context.Context, topic library.Topic, query []float32, k int) ([]int, []float32, error) {
	return s.backend.Search(ctx, topic, query, k)
}

// SaveState persists the full derived state of a topic as a group: vector
// index, chunk document, then metadata (signature and timestamp). Each
// artifact is written atomically, and the metadata — carrying the content
// hash that marks the pass as complete — goes last, so an interrupted pass
// is re-run rather than trusted.
func (s *Store) SaveState(ctx context.Context, topic library.Topic, meta *TopicMeta, chunks []Chunk, vectors [][]float32) error {
	logger := contextutil.LoggerFromContext(ctx)

	if len(chunks) != len(vectors) {
		return fmt.Errorf("chunk/vector count mismatch for topic %s: %d chunks, %d vectors", topic.ID, len(chunks), len(vectors))
	}
	if len(chunks) == 0 {
		return fmt.Errorf("refusing to persist empty state for topic %s, use SaveEmptyState", topic.ID)
	}

	dir := s.TopicDir(topic)

	if err := s.backend.Build(ctx, topic, vectors); err != nil {
		return fmt.Errorf("failed to build vector index for topic %s: %w", topic.ID, err)
	}

	chunkData, err := json.MarshalIndent(chunks, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal chunks: %w", err)
	}
	if err := library.AtomicWriteFile(filepath.Join(dir, ChunksFilename), chunkData); err != nil {
		return err
	}

	sig, err := ComputeSignature(dir)
	if err != nil {
		return err
	}
	now := unixSeconds(time.Now())
	meta.ContentHash = sig
	meta.LastIndexedAt = &now

	if err := s.writeMeta(dir, meta); err != nil {
		return err
	}

	logger.InfoContext(ctx, "persisted topic state", "topic", topic.ID, "chunks", len(chunks))
	return nil
}

// SaveEmptyState persists a topic whose books have all been removed: derived
// artifacts dropped, no signature, no timestamp.
func (s *Store) SaveEmptyState(ctx context.Context, topic library.Topic, meta *TopicMeta) error {
	if err := s.CleanDerived(ctx, topic); err != nil {
		return err
	}
	meta.ContentHash = ""
	meta.LastIndexedAt = nil
	return s.writeMeta(s.TopicDir(topic), meta)
}

// WriteMeta persists only the topic metadata document (book registry
// bootstrap, no derived artifacts touched).
func (s *Store) WriteMeta(dir string, meta *TopicMeta) error {
	return s.writeMeta(dir, meta)
}

func (s *Store) writeMeta(dir string, meta *TopicMeta) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal topic metadata: %w", err)
	}
	return library.AtomicWriteFile(filepath.Join(dir, MetaFilename), data)
}

// CleanDerived removes the topic's derived artifacts (chunk document and
// vector index). The book registry document is left in place.
func (s *Store) CleanDerived(ctx context.Context, topic library.Topic) error {
	dir := s.TopicDir(topic)
	if err := os.Remove(filepath.Join(dir, ChunksFilename)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove chunk document: %w", err)
	}
	return s.backend.Drop(ctx, topic)
}

// Lock takes the advisory per-topic writer lock, returning a release func.
// It fails when another indexing pass holds the lock.
func (s *Store) Lock(dir string) (func(), error) {
	path := filepath.Join(dir, LockFilename)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return nil, fmt.Errorf("topic %s is locked by another indexing pass", dir)
		}
		return nil, fmt.Errorf("failed to take lock in %s: %w", dir, err)
	}
	fmt.Fprintf(f, "%d\n", os.Getpid())
	_ = f.Close()

	return func() {
		_ = os.Remove(path)
	}, nil
}

func unixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}
