// Package indexer orchestrates the offline pipeline: topic discovery, book
// reconciliation, extraction, chunking, embedding, and persistence.
package indexer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"librarian/internal/contextutil"
	"librarian/internal/extract"
	"librarian/internal/library"
	"librarian/internal/llm"
	"librarian/internal/topicstore"
)

// Indexer builds and refreshes per-topic chunk and vector state.
type Indexer struct {
	root           string
	store          *topicstore.Store
	embedder       llm.Embedder
	embeddingModel string
	chunker        *Chunker
	settings       library.ChunkSettings
}

// New creates an indexer over the given library root.
func New(root string, store *topicstore.Store, embedder llm.Embedder, embeddingModel string, settings library.ChunkSettings) *Indexer {
	return &Indexer{
		root:           root,
		store:          store,
		embedder:       embedder,
		embeddingModel: embeddingModel,
		chunker:        NewChunker(settings.Size, settings.Overlap),
		settings:       settings,
	}
}

// Summary reports the outcome of a multi-topic indexing run.
type Summary struct {
	Succeeded []string `json:"succeeded"`
	Failed    []string `json:"failed"`
	Skipped   []string `json:"skipped"` // topics untouched by smart mode
}

// RefreshRegistry scans the library tree, reconciles the stored registry
// against the discovered topics, and persists the result.
func (ix *Indexer) RefreshRegistry(ctx context.Context) (library.Registry, error) {
	logger := contextutil.LoggerFromContext(ctx)

	discovered, err := library.Scan(ix.root)
	if err != nil {
		return library.Registry{}, fmt.Errorf("failed to scan library: %w", err)
	}

	reg, err := library.Load(ix.root, ix.settings)
	if err != nil {
		return library.Registry{}, err
	}

	reg, added, removed := library.Reconcile(reg, discovered)
	if added > 0 || removed > 0 {
		logger.InfoContext(ctx, "registry updated", "added", added, "removed", removed, "total", len(reg.Topics))
	}

	if err := library.Save(ix.root, reg); err != nil {
		return library.Registry{}, err
	}
	return reg, nil
}

// IndexTopic runs the full pipeline for one topic. With force unset it
// short-circuits when the topic's content signature is unchanged. A failed
// pass leaves the previous durable state untouched: derived artifacts are
// replaced atomically at persist time, never patched in place.
func (ix *Indexer) IndexTopic(ctx context.Context, topic library.Topic, force bool) error {
	logger := contextutil.LoggerFromContext(ctx).With("topic", topic.ID)
	dir := ix.store.TopicDir(topic)

	unlock, err := ix.store.Lock(dir)
	if err != nil {
		return err
	}
	defer unlock()

	meta, err := ix.store.LoadMeta(dir)
	if err != nil && err != topicstore.ErrNotFound {
		return err
	}
	if meta == nil {
		books, err := ix.store.ScanBooks(dir)
		if err != nil {
			return err
		}
		meta = &topicstore.TopicMeta{
			SchemaVersion:  library.SchemaVersion,
			TopicID:        topic.ID,
			EmbeddingModel: ix.embeddingModel,
			ChunkSettings:  ix.settings,
			Books:          books,
		}
		logger.InfoContext(ctx, "registered new topic", "books", len(books))
	}

	needs, err := ix.store.NeedsReindex(dir, meta, force)
	if err != nil {
		return err
	}
	if !needs {
		logger.InfoContext(ctx, "no changes detected, skipping")
		return nil
	}

	removed := ix.reconcileBooks(ctx, dir, meta)

	if len(meta.Books) == 0 {
		if removed > 0 {
			logger.InfoContext(ctx, "all books removed, persisting empty state")
			return ix.store.SaveEmptyState(ctx, topic, meta)
		}
		return fmt.Errorf("topic %s has no books", topic.ID)
	}

	chunks := ix.extractChunks(ctx, dir, topic, meta)
	if len(chunks) == 0 {
		return fmt.Errorf("no chunks generated for topic %s", topic.ID)
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	vectors, err := ix.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return fmt.Errorf("embedding failed for topic %s: %w", topic.ID, err)
	}
	if len(vectors) != len(chunks) {
		return fmt.Errorf("embedding count mismatch for topic %s: expected %d, got %d", topic.ID, len(chunks), len(vectors))
	}

	meta.EmbeddingModel = ix.embeddingModel
	meta.ChunkSettings = ix.settings

	if err := ix.store.SaveState(ctx, topic, meta, chunks, vectors); err != nil {
		return err
	}

	logger.InfoContext(ctx, "topic indexed", "books", len(meta.Books), "chunks", len(chunks))
	return nil
}

// reconcileBooks syncs the book registry with the filesystem: entries whose
// file disappeared are dropped, untracked supported files are added. Returns
// the number of dropped entries.
func (ix *Indexer) reconcileBooks(ctx context.Context, dir string, meta *topicstore.TopicMeta) int {
	logger := contextutil.LoggerFromContext(ctx)

	kept := meta.Books[:0]
	removed := 0
	for _, book := range meta.Books {
		if _, err := os.Stat(filepath.Join(dir, book.Filename)); err != nil {
			logger.InfoContext(ctx, "book file removed", "filename", book.Filename)
			removed++
			continue
		}
		kept = append(kept, book)
	}
	meta.Books = kept

	tracked := make(map[string]struct{}, len(meta.Books))
	for _, b := range meta.Books {
		tracked[b.Filename] = struct{}{}
	}

	files, err := library.BookFiles(dir)
	if err != nil {
		logger.WarnContext(ctx, "failed to list book files", "error", err)
		return removed
	}
	for _, name := range files {
		if _, ok := tracked[name]; ok {
			continue
		}
		info, err := os.Stat(filepath.Join(dir, name))
		if err != nil {
			continue
		}
		meta.Books = append(meta.Books, topicstore.NewBook(name, info.ModTime()))
		logger.InfoContext(ctx, "found new book", "filename", name)
	}

	return removed
}

// extractChunks flattens all books' paragraphs into one ordered chunk
// sequence, tagging each with provenance and locator. Paragraphs longer than
// the chunk window are split with locator preserved. Per-book extraction
// failures are logged and the book is skipped.
func (ix *Indexer) extractChunks(ctx context.Context, dir string, topic library.Topic, meta *topicstore.TopicMeta) []topicstore.Chunk {
	logger := contextutil.LoggerFromContext(ctx)

	var chunks []topicstore.Chunk
	for _, book := range meta.Books {
		path := filepath.Join(dir, book.Filename)

		extractor, err := extract.ForFile(path)
		if err != nil {
			logger.WarnContext(ctx, "skipping book", "filename", book.Filename, "error", err)
			continue
		}

		paragraphs, err := extractor.Extract(path)
		if err != nil {
			logger.WarnContext(ctx, "extraction failed, skipping book", "filename", book.Filename, "error", err)
			continue
		}

		for _, para := range paragraphs {
			for _, text := range ix.chunker.Split(para.Text) {
				chunk := topicstore.Chunk{
					Text:       text,
					BookID:     book.ID,
					BookTitle:  book.Title,
					BookAuthor: book.Author,
					TopicID:    topic.ID,
					Position:   len(chunks),
					Filename:   book.Filename,
					Format:     extractor.Format(),
					Paragraph:  para.Para,
				}
				if para.Page > 0 {
					page := para.Page
					chunk.Page = &page
				} else if para.Chapter != "" {
					chapter := para.Chapter
					chunk.Chapter = &chapter
				}
				chunks = append(chunks, chunk)
			}
		}
		logger.DebugContext(ctx, "book extracted", "filename", book.Filename, "paragraphs", len(paragraphs))
	}
	return chunks
}

// IndexAll refreshes the registry and indexes every topic. Per-topic
// failures are collected in the summary rather than aborting the run.
func (ix *Indexer) IndexAll(ctx context.Context, force bool) (Summary, error) {
	reg, err := ix.RefreshRegistry(ctx)
	if err != nil {
		return Summary{}, err
	}
	return ix.indexTopics(ctx, reg, reg.Topics, force)
}

// IndexChanged refreshes the registry, detects topics with file-level
// changes, and reindexes only those (smart mode).
func (ix *Indexer) IndexChanged(ctx context.Context) (Summary, error) {
	logger := contextutil.LoggerFromContext(ctx)

	reg, err := ix.RefreshRegistry(ctx)
	if err != nil {
		return Summary{}, err
	}

	changed, err := ix.store.DetectChangedTopics(reg)
	if err != nil {
		return Summary{}, err
	}

	var summary Summary
	var affected []library.Topic
	for _, topic := range reg.Topics {
		if _, ok := changed[topic.Path]; ok {
			affected = append(affected, topic)
		} else {
			summary.Skipped = append(summary.Skipped, topic.ID)
		}
	}

	if len(affected) == 0 {
		logger.InfoContext(ctx, "no changes detected, nothing to reindex")
		return summary, nil
	}

	// Changed topics bypass the signature short-circuit; the file-level
	// detector already established staleness.
	run, err := ix.indexTopics(ctx, reg, affected, true)
	if err != nil {
		return Summary{}, err
	}
	run.Skipped = summary.Skipped
	return run, nil
}

// IndexOne indexes a single topic referenced by id or path.
func (ix *Indexer) IndexOne(ctx context.Context, ref string, force bool) (Summary, error) {
	reg, err := ix.RefreshRegistry(ctx)
	if err != nil {
		return Summary{}, err
	}

	for _, topic := range reg.Topics {
		if topic.ID == ref || topic.Path == ref {
			return ix.indexTopics(ctx, reg, []library.Topic{topic}, force)
		}
	}
	return Summary{}, fmt.Errorf("topic %q not found", ref)
}

func (ix *Indexer) indexTopics(ctx context.Context, reg library.Registry, topics []library.Topic, force bool) (Summary, error) {
	logger := contextutil.LoggerFromContext(ctx)

	var summary Summary
	for _, topic := range topics {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		if err := ix.IndexTopic(ctx, topic, force); err != nil {
			logger.ErrorContext(ctx, "failed to index topic", "topic", topic.ID, "error", err)
			summary.Failed = append(summary.Failed, topic.ID)
			continue
		}
		summary.Succeeded = append(summary.Succeeded, topic.ID)
	}

	// Record the embedding model on the library registry once anything
	// succeeded, mirroring the per-topic metadata.
	if len(summary.Succeeded) > 0 && reg.EmbeddingModel != ix.embeddingModel {
		reg.EmbeddingModel = ix.embeddingModel
		if err := library.Save(ix.root, reg); err != nil {
			logger.WarnContext(ctx, "failed to update registry embedding model", "error", err)
		}
	}

	logger.InfoContext(ctx, "indexing completed", "succeeded", len(summary.Succeeded), "failed", len(summary.Failed))
	return summary, nil
}
