package indexer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"librarian/internal/library"
	llm_mocks "librarian/internal/llm/mocks"
	"librarian/internal/topicstore"
	"librarian/internal/vectorindex"

	"go.uber.org/mock/gomock"
)

var testSettings = library.ChunkSettings{Size: 1024, Overlap: 200}

func testIndexer(t *testing.T, embedder *llm_mocks.MockEmbedder) (*Indexer, *topicstore.Store, string) {
	t.Helper()
	root := t.TempDir()
	store := topicstore.New(root, vectorindex.NewFileBackend(root))
	ix := New(root, store, embedder, "test-model", testSettings)
	return ix, store, root
}

// countingEmbedder returns one 2-dim vector per input text and lets tests
// assert how many embedding requests the pipeline made.
func countingEmbedder(t *testing.T, ctrl *gomock.Controller, times int) *llm_mocks.MockEmbedder {
	t.Helper()
	embedder := llm_mocks.NewMockEmbedder(ctrl)
	embedder.EXPECT().
		EmbedTexts(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, texts []string) ([][]float32, error) {
			vecs := make([][]float32, len(texts))
			for i := range texts {
				vecs[i] = []float32{float32(i), 0}
			}
			return vecs, nil
		}).
		Times(times)
	return embedder
}

func writeTopicBook(t *testing.T, root, topicPath, name, content string) string {
	t.Helper()
	dir := filepath.Join(root, filepath.FromSlash(topicPath))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir failed: %v", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

const sampleBook = `# Opening

first paragraph of the book

second paragraph of the book

# Closing

final paragraph
`

func TestIndexTopic_BuildsChunksAndVectors(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ix, store, root := testIndexer(t, countingEmbedder(t, ctrl, 1))
	writeTopicBook(t, root, "History", "rome.md", sampleBook)
	topic := library.Topic{ID: "history", Path: "History"}

	if err := ix.IndexTopic(t.Context(), topic, false); err != nil {
		t.Fatalf("IndexTopic failed: %v", err)
	}

	if !store.Indexed(t.Context(), topic) {
		t.Fatal("topic not indexed")
	}

	chunks, err := store.LoadChunks(store.TopicDir(topic))
	if err != nil {
		t.Fatalf("LoadChunks failed: %v", err)
	}
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if c.Position != i {
			t.Errorf("chunk %d has position %d", i, c.Position)
		}
		if c.TopicID != "history" || c.Format != "md" || c.Filename != "rome.md" {
			t.Errorf("chunk %d provenance = %+v", i, c)
		}
		if c.Chapter == nil {
			t.Errorf("chunk %d missing chapter locator", i)
		}
	}
	if *chunks[0].Chapter != "Opening" || chunks[1].Paragraph != 2 || *chunks[2].Chapter != "Closing" {
		t.Errorf("locators wrong: %+v", chunks)
	}

	meta, err := store.LoadMeta(store.TopicDir(topic))
	if err != nil {
		t.Fatalf("LoadMeta failed: %v", err)
	}
	if meta.ContentHash == "" || meta.LastIndexedAt == nil {
		t.Error("completion markers not recorded")
	}
	if meta.EmbeddingModel != "test-model" {
		t.Errorf("EmbeddingModel = %q", meta.EmbeddingModel)
	}
	if len(meta.Books) != 1 || meta.Books[0].Filename != "rome.md" {
		t.Errorf("books = %+v", meta.Books)
	}
}

func TestIndexTopic_SkipsWhenUnchanged(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	// Exactly one embedding call across both passes: the second pass must
	// short-circuit on the content signature without touching the embedder.
	ix, _, root := testIndexer(t, countingEmbedder(t, ctrl, 1))
	writeTopicBook(t, root, "History", "rome.md", sampleBook)
	topic := library.Topic{ID: "history", Path: "History"}

	if err := ix.IndexTopic(t.Context(), topic, false); err != nil {
		t.Fatalf("first IndexTopic failed: %v", err)
	}
	if err := ix.IndexTopic(t.Context(), topic, false); err != nil {
		t.Fatalf("second IndexTopic failed: %v", err)
	}
}

func TestIndexTopic_ForceBypassesSkip(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ix, _, root := testIndexer(t, countingEmbedder(t, ctrl, 2))
	writeTopicBook(t, root, "History", "rome.md", sampleBook)
	topic := library.Topic{ID: "history", Path: "History"}

	if err := ix.IndexTopic(t.Context(), topic, false); err != nil {
		t.Fatalf("first IndexTopic failed: %v", err)
	}
	if err := ix.IndexTopic(t.Context(), topic, true); err != nil {
		t.Fatalf("forced IndexTopic failed: %v", err)
	}
}

func TestIndexTopic_EmbedFailureKeepsPriorState(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	embedder := llm_mocks.NewMockEmbedder(ctrl)
	good := embedder.EXPECT().
		EmbedTexts(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, texts []string) ([][]float32, error) {
			vecs := make([][]float32, len(texts))
			for i := range texts {
				vecs[i] = []float32{1, 0}
			}
			return vecs, nil
		})
	embedder.EXPECT().
		EmbedTexts(gomock.Any(), gomock.Any()).
		Return(nil, fmt.Errorf("embedding server down")).
		After(good)

	ix, store, root := testIndexer(t, embedder)
	writeTopicBook(t, root, "History", "rome.md", sampleBook)
	topic := library.Topic{ID: "history", Path: "History"}

	if err := ix.IndexTopic(t.Context(), topic, false); err != nil {
		t.Fatalf("first IndexTopic failed: %v", err)
	}
	before, err := store.LoadChunks(store.TopicDir(topic))
	if err != nil {
		t.Fatalf("LoadChunks failed: %v", err)
	}

	if err := ix.IndexTopic(t.Context(), topic, true); err == nil {
		t.Fatal("expected error from failing embedder")
	}

	after, err := store.LoadChunks(store.TopicDir(topic))
	if err != nil {
		t.Fatalf("prior chunk document lost: %v", err)
	}
	if len(after) != len(before) {
		t.Fatalf("chunk document changed on failed pass: %d vs %d", len(after), len(before))
	}
	if !store.Indexed(t.Context(), topic) {
		t.Fatal("prior index lost on failed pass")
	}
}

func TestIndexTopic_AllBooksRemoved(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ix, store, root := testIndexer(t, countingEmbedder(t, ctrl, 1))
	path := writeTopicBook(t, root, "History", "rome.md", sampleBook)
	topic := library.Topic{ID: "history", Path: "History"}

	if err := ix.IndexTopic(t.Context(), topic, false); err != nil {
		t.Fatalf("IndexTopic failed: %v", err)
	}

	if err := os.Remove(path); err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	if err := ix.IndexTopic(t.Context(), topic, true); err != nil {
		t.Fatalf("IndexTopic after removal failed: %v", err)
	}

	if store.Indexed(t.Context(), topic) {
		t.Fatal("topic still indexed after all books removed")
	}
	meta, err := store.LoadMeta(store.TopicDir(topic))
	if err != nil {
		t.Fatalf("LoadMeta failed: %v", err)
	}
	if len(meta.Books) != 0 || meta.ContentHash != "" || meta.LastIndexedAt != nil {
		t.Errorf("empty state not recorded: %+v", meta)
	}
}

func TestIndexTopic_PicksUpNewBooks(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ix, store, root := testIndexer(t, countingEmbedder(t, ctrl, 2))
	writeTopicBook(t, root, "History", "rome.md", sampleBook)
	topic := library.Topic{ID: "history", Path: "History"}

	if err := ix.IndexTopic(t.Context(), topic, false); err != nil {
		t.Fatalf("first IndexTopic failed: %v", err)
	}

	writeTopicBook(t, root, "History", "greece.md", "a single paragraph\n")
	if err := ix.IndexTopic(t.Context(), topic, false); err != nil {
		t.Fatalf("second IndexTopic failed: %v", err)
	}

	meta, err := store.LoadMeta(store.TopicDir(topic))
	if err != nil {
		t.Fatalf("LoadMeta failed: %v", err)
	}
	if len(meta.Books) != 2 {
		t.Fatalf("expected 2 books, got %+v", meta.Books)
	}

	chunks, err := store.LoadChunks(store.TopicDir(topic))
	if err != nil {
		t.Fatalf("LoadChunks failed: %v", err)
	}
	if len(chunks) != 4 {
		t.Fatalf("expected 4 chunks, got %d", len(chunks))
	}
}

func TestIndexAll_BuildsEveryTopicAndRecordsModel(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ix, _, root := testIndexer(t, countingEmbedder(t, ctrl, 2))
	writeTopicBook(t, root, "History", "rome.md", sampleBook)
	writeTopicBook(t, root, "Science", "physics.md", "one paragraph\n")

	summary, err := ix.IndexAll(t.Context(), false)
	if err != nil {
		t.Fatalf("IndexAll failed: %v", err)
	}
	if len(summary.Succeeded) != 2 || len(summary.Failed) != 0 {
		t.Fatalf("summary = %+v", summary)
	}

	reg, err := library.Load(root, testSettings)
	if err != nil {
		t.Fatalf("registry load failed: %v", err)
	}
	if len(reg.Topics) != 2 {
		t.Fatalf("registry topics = %+v", reg.Topics)
	}
	if reg.EmbeddingModel != "test-model" {
		t.Errorf("registry EmbeddingModel = %q", reg.EmbeddingModel)
	}
}

func TestIndexAll_CollectsPerTopicFailures(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	embedder := llm_mocks.NewMockEmbedder(ctrl)
	embedder.EXPECT().
		EmbedTexts(gomock.Any(), gomock.Any()).
		Return(nil, errors.New("down")).
		Times(2)

	ix, _, root := testIndexer(t, embedder)
	writeTopicBook(t, root, "History", "rome.md", sampleBook)
	writeTopicBook(t, root, "Science", "physics.md", "one paragraph\n")

	summary, err := ix.IndexAll(t.Context(), false)
	if err != nil {
		t.Fatalf("IndexAll returned hard error: %v", err)
	}
	if len(summary.Failed) != 2 || len(summary.Succeeded) != 0 {
		t.Fatalf("summary = %+v", summary)
	}
}

func TestIndexChanged_ReindexesOnlyChangedTopics(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	// Two topics on the first full run, then exactly one more embedding call
	// for the touched topic.
	ix, _, root := testIndexer(t, countingEmbedder(t, ctrl, 3))
	writeTopicBook(t, root, "History", "rome.md", sampleBook)
	sciencePath := writeTopicBook(t, root, "Science", "physics.md", "one paragraph\n")

	if _, err := ix.IndexAll(t.Context(), false); err != nil {
		t.Fatalf("IndexAll failed: %v", err)
	}

	future := time.Now().Add(2 * time.Hour)
	if err := os.Chtimes(sciencePath, future, future); err != nil {
		t.Fatalf("chtimes failed: %v", err)
	}

	summary, err := ix.IndexChanged(t.Context())
	if err != nil {
		t.Fatalf("IndexChanged failed: %v", err)
	}
	if len(summary.Succeeded) != 1 || summary.Succeeded[0] != "science" {
		t.Fatalf("succeeded = %v", summary.Succeeded)
	}
	if len(summary.Skipped) != 1 || summary.Skipped[0] != "history" {
		t.Fatalf("skipped = %v", summary.Skipped)
	}
}

func TestIndexChanged_NothingToDo(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ix, _, root := testIndexer(t, countingEmbedder(t, ctrl, 1))
	writeTopicBook(t, root, "History", "rome.md", sampleBook)

	if _, err := ix.IndexAll(t.Context(), false); err != nil {
		t.Fatalf("IndexAll failed: %v", err)
	}

	summary, err := ix.IndexChanged(t.Context())
	if err != nil {
		t.Fatalf("IndexChanged failed: %v", err)
	}
	if len(summary.Succeeded) != 0 || len(summary.Failed) != 0 {
		t.Fatalf("summary = %+v", summary)
	}
	if len(summary.Skipped) != 1 {
		t.Fatalf("skipped = %v", summary.Skipped)
	}
}

func TestIndexOne_UnknownTopic(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	embedder := llm_mocks.NewMockEmbedder(ctrl)
	ix, _, _ := testIndexer(t, embedder)

	if _, err := ix.IndexOne(t.Context(), "nope", false); err == nil {
		t.Fatal("expected error for unknown topic")
	}
}

func TestRefreshRegistry_DiscoversAndPrunes(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	embedder := llm_mocks.NewMockEmbedder(ctrl)
	ix, _, root := testIndexer(t, embedder)
	writeTopicBook(t, root, "History", "rome.md", sampleBook)

	reg, err := ix.RefreshRegistry(t.Context())
	if err != nil {
		t.Fatalf("RefreshRegistry failed: %v", err)
	}
	if len(reg.Topics) != 1 || reg.Topics[0].ID != "history" {
		t.Fatalf("topics = %+v", reg.Topics)
	}

	if err := os.RemoveAll(filepath.Join(root, "History")); err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	reg, err = ix.RefreshRegistry(t.Context())
	if err != nil {
		t.Fatalf("second RefreshRegistry failed: %v", err)
	}
	if len(reg.Topics) != 0 {
		t.Fatalf("vanished topic kept: %+v", reg.Topics)
	}
}
