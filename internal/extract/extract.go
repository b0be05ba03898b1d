// Package extract turns book files into locator-tagged paragraph sequences.
// Each supported format has its own extractor; the rest of the engine only
// sees ordered paragraphs with either a page or a chapter locator.
package extract

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Paragraph is one extracted unit of text with its locator. Exactly one of
// Page (paginated formats) or Chapter (chapter-based formats) is set.
type Paragraph struct {
	Text    string
	Page    int    // 1-based page number, 0 when not paginated
	Chapter string // chapter identifier, empty when paginated
	Para    int    // 1-based paragraph number within the page or chapter
}

// Extractor produces the paragraph sequence for one book file.
type Extractor interface {
	// Extract returns the ordered paragraph sequence for the file at path.
	Extract(path string) ([]Paragraph, error)
	// Format returns the format tag recorded on chunks ("pdf", "epub", "md").
	Format() string
}

// ForFile returns the extractor for the file's format, or an error for
// unsupported extensions.
func ForFile(path string) (Extractor, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return &PDFExtractor{}, nil
	case ".epub":
		return &EPUBExtractor{}, nil
	case ".md":
		return NewMarkdownExtractor(), nil
	default:
		return nil, fmt.Errorf("unsupported book format: %s", filepath.Ext(path))
	}
}

// splitParagraphs splits a block of text on blank lines, trimming whitespace
// and dropping empty pieces.
func splitParagraphs(text string) []string {
	var paras []string
	for _, piece := range strings.Split(text, "\n\n") {
		piece = strings.TrimSpace(piece)
		if piece != "" {
			paras = append(paras, piece)
		}
	}
	return paras
}
