package vectorindex

import (
	"os"
	"path/filepath"
	"testing"

	"librarian/internal/library"
)

func TestEncodeDecodeEmbedding(t *testing.T) {
	vec := []float32{0.5, -1.25, 3.75, 0}

	decoded, err := DecodeEmbedding(EncodeEmbedding(vec))
	if err != nil {
		t.Fatalf("DecodeEmbedding failed: %v", err)
	}
	if len(decoded) != len(vec) {
		t.Fatalf("length = %d, want %d", len(decoded), len(vec))
	}
	for i := range vec {
		if decoded[i] != vec[i] {
			t.Errorf("decoded[%d] = %f, want %f", i, decoded[i], vec[i])
		}
	}
}

func TestDecodeEmbedding_InvalidBlob(t *testing.T) {
	for _, blob := range [][]byte{nil, {}, {1, 2, 3}} {
		if _, err := DecodeEmbedding(blob); err == nil {
			t.Errorf("expected error for blob of length %d", len(blob))
		}
	}
}

func TestSaveLoadFlat_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".vectors.db")

	index, err := NewFlat(3)
	if err != nil {
		t.Fatalf("NewFlat failed: %v", err)
	}
	vecs := [][]float32{
		{1, 0, 0},
		{0, 1, 0},
		{0, 0, 1},
	}
	if err := index.Add(vecs); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	if err := SaveFlat(path, index); err != nil {
		t.Fatalf("SaveFlat failed: %v", err)
	}

	loaded, err := LoadFlat(path)
	if err != nil {
		t.Fatalf("LoadFlat failed: %v", err)
	}
	if loaded.Len() != 3 || loaded.Dimension() != 3 {
		t.Fatalf("loaded len/dim = %d/%d, want 3/3", loaded.Len(), loaded.Dimension())
	}
	for pos, vec := range loaded.Vectors() {
		for i := range vec {
			if vec[i] != vecs[pos][i] {
				t.Errorf("row %d = %v, want %v", pos, vec, vecs[pos])
			}
		}
	}
}

func TestSaveFlat_ReplacesExistingArtifact(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".vectors.db")

	first, _ := NewFlat(2)
	_ = first.Add([][]float32{{1, 1}, {2, 2}})
	if err := SaveFlat(path, first); err != nil {
		t.Fatalf("first SaveFlat failed: %v", err)
	}

	second, _ := NewFlat(2)
	_ = second.Add([][]float32{{9, 9}})
	if err := SaveFlat(path, second); err != nil {
		t.Fatalf("second SaveFlat failed: %v", err)
	}

	loaded, err := LoadFlat(path)
	if err != nil {
		t.Fatalf("LoadFlat failed: %v", err)
	}
	if loaded.Len() != 1 {
		t.Fatalf("expected 1 row after replace, got %d", loaded.Len())
	}
}

func TestLoadFlat_MissingFile(t *testing.T) {
	if _, err := LoadFlat(filepath.Join(t.TempDir(), "absent.db")); err == nil {
		t.Fatal("expected error for missing artifact")
	}
}

func TestFileBackend_BuildSearchHasDrop(t *testing.T) {
	root := t.TempDir()
	topicDir := filepath.Join(root, "History")
	if err := os.MkdirAll(topicDir, 0o755); err != nil {
		t.Fatalf("mkdir failed: %v", err)
	}

	backend := NewFileBackend(root)
	topic := library.Topic{ID: "history", Path: "History"}
	ctx := t.Context()

	if backend.Has(ctx, topic) {
		t.Fatal("Has reported true before build")
	}

	vecs := [][]float32{{0, 0}, {3, 4}}
	if err := backend.Build(ctx, topic, vecs); err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if !backend.Has(ctx, topic) {
		t.Fatal("Has reported false after build")
	}

	positions, distances, err := backend.Search(ctx, topic, []float32{0, 0}, 2)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if positions[0] != 0 || distances[0] != 0 {
		t.Errorf("nearest = pos %d dist %f, want pos 0 dist 0", positions[0], distances[0])
	}
	if positions[1] != 1 || distances[1] != 25 {
		t.Errorf("second = pos %d dist %f, want pos 1 dist 25", positions[1], distances[1])
	}

	if err := backend.Drop(ctx, topic); err != nil {
		t.Fatalf("Drop failed: %v", err)
	}
	if backend.Has(ctx, topic) {
		t.Fatal("Has reported true after drop")
	}
	// Dropping again is not an error.
	if err := backend.Drop(ctx, topic); err != nil {
		t.Fatalf("second Drop failed: %v", err)
	}
}
