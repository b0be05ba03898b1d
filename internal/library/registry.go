package library

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// RegistryFilename is the library-level registry document, stored hidden at
// the library root.
const RegistryFilename = ".library-index.json"

// SchemaVersion identifies the on-disk layout produced by this engine.
const SchemaVersion = "2.0"

// Topic is one subject folder within the library.
type Topic struct {
	ID   string `json:"id"`
	Path string `json:"path"` // relative to the library root, forward slashes
}

// ChunkSettings records the chunking parameters the indices were built with.
type ChunkSettings struct {
	Size    int `json:"size"`
	Overlap int `json:"overlap"`
}

// Registry is the library-level catalog of known topics.
type Registry struct {
	SchemaVersion  string        `json:"schema_version"`
	LibraryPath    string        `json:"library_path"`
	EmbeddingModel string        `json:"embedding_model"`
	ChunkSettings  ChunkSettings `json:"chunk_settings"`
	Topics         []Topic       `json:"topics"`
}

// NewRegistry returns an empty registry for the given root.
func NewRegistry(root string, settings ChunkSettings) Registry {
	return Registry{
		SchemaVersion:  SchemaVersion,
		LibraryPath:    root,
		EmbeddingModel: "pending",
		ChunkSettings:  settings,
		Topics:         []Topic{},
	}
}

// TopicByID returns the topic with the given id, if present.
func (r Registry) TopicByID(id string) (Topic, bool) {
	for _, t := range r.Topics {
		if t.ID == id {
			return t, true
		}
	}
	return Topic{}, false
}

// Load reads the registry document from the library root.
// A missing file yields an empty registry; a read or parse failure is an
// error, since a broken registry means no known topics.
func Load(root string, settings ChunkSettings) (Registry, error) {
	path := filepath.Join(root, RegistryFilename)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewRegistry(root, settings), nil
		}
		return Registry{}, fmt.Errorf("failed to read registry %s: %w", path, err)
	}

	var reg Registry
	if err := json.Unmarshal(data, &reg); err != nil {
		return Registry{}, fmt.Errorf("failed to parse registry %s: %w", path, err)
	}
	return reg, nil
}

// Save persists the registry document atomically (write to a temp file in the
// same directory, then rename over the target).
func Save(root string, reg Registry) error {
	data, err := json.MarshalIndent(reg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal registry: %w", err)
	}
	return atomicWrite(filepath.Join(root, RegistryFilename), data)
}

// Reconcile merges discovered topics into the stored registry: topics absent
// from discovery are dropped, newly discovered topics are appended, and the
// result is sorted by id for deterministic persistence.
func Reconcile(reg Registry, discovered []Topic) (Registry, int, int) {
	discoveredIDs := make(map[string]struct{}, len(discovered))
	for _, t := range discovered {
		discoveredIDs[t.ID] = struct{}{}
	}

	active := make([]Topic, 0, len(reg.Topics))
	removed := 0
	for _, t := range reg.Topics {
		if _, ok := discoveredIDs[t.ID]; ok {
			active = append(active, t)
		} else {
			removed++
		}
	}

	existing := make(map[string]struct{}, len(active))
	for _, t := range active {
		existing[t.ID] = struct{}{}
	}

	added := 0
	for _, t := range discovered {
		if _, ok := existing[t.ID]; !ok {
			active = append(active, t)
			existing[t.ID] = struct{}{}
			added++
		}
	}

	sort.Slice(active, func(i, j int) bool { return active[i].ID < active[j].ID })
	reg.Topics = active
	return reg, added, removed
}

// atomicWrite writes data to path via a temp file and rename so readers never
// observe a half-written document.
func atomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file in %s: %w", dir, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to close %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to rename %s to %s: %w", tmpName, path, err)
	}
	return nil
}

// AtomicWriteFile is the shared write-then-rename helper used for every
// persisted artifact in the library.
func AtomicWriteFile(path string, data []byte) error {
	return atomicWrite(path, data)
}
