// Package topicstore owns one topic's persisted state: the book registry,
// the chunk document, and the vector artifact, together with the delta
// detection that decides whether a topic needs reindexing.
package topicstore

import (
	"errors"

	"librarian/internal/library"
)

// MetaFilename is the per-topic book registry document.
const MetaFilename = ".topic-index.json"

// ChunksFilename is the per-topic chunk document.
const ChunksFilename = ".chunks.json"

// LockFilename is the advisory per-topic writer lock.
const LockFilename = ".index.lock"

// ErrNotFound is returned when a topic has no persisted state.
var ErrNotFound = errors.New("not found")

// Book is one source document registered in a topic.
type Book struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Filename     string   `json:"filename"`
	Author       string   `json:"author"`
	Tags         []string `json:"tags"`
	LastModified float64  `json:"last_modified"` // unix seconds at registration time
}

// Chunk is one retrievable unit of text. Position equals the chunk's array
// offset in the chunk document and its row in the vector artifact; the two
// stores must always have the same length and ordering. Positions are stable
// only within one indexing pass.
type Chunk struct {
	Text       string  `json:"chunk_full"`
	BookID     string  `json:"book_id"`
	BookTitle  string  `json:"book_title"`
	BookAuthor string  `json:"book_author"`
	TopicID    string  `json:"topic_id"`
	Position   int     `json:"chunk_index"`
	Filename   string  `json:"filename"`
	Format     string  `json:"filetype"`
	Page       *int    `json:"page"`      // set for paginated formats
	Chapter    *string `json:"chapter"`   // set for chapter-based formats
	Paragraph  int     `json:"paragraph"` // within the page or chapter
}

// TopicMeta is the per-topic metadata document.
type TopicMeta struct {
	SchemaVersion  string                `json:"schema_version"`
	TopicID        string                `json:"topic_id"`
	EmbeddingModel string                `json:"embedding_model"`
	ChunkSettings  library.ChunkSettings `json:"chunk_settings"`
	LastIndexedAt  *float64              `json:"last_indexed_at"` // unix seconds, nil when never indexed
	ContentHash    string                `json:"content_hash"`
	Books          []Book                `json:"books"`
}

// BookByID returns the registered book with the given id, if present.
func (m *TopicMeta) BookByID(id string) (Book, bool) {
	for _, b := range m.Books {
		if b.ID == id {
			return b, true
		}
	}
	return Book{}, false
}
