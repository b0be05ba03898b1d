package extract

import (
	"fmt"
	"os"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
)

// MarkdownExtractor extracts chapter-tagged paragraphs from Markdown files.
// Headings open chapters (the heading text is the chapter id); paragraphs are
// numbered within their chapter. Text before the first heading falls under
// the "preamble" chapter.
type MarkdownExtractor struct {
	parser goldmark.Markdown
}

// NewMarkdownExtractor creates a markdown extractor backed by a goldmark parser.
func NewMarkdownExtractor() *MarkdownExtractor {
	return &MarkdownExtractor{
		parser: goldmark.New(
			goldmark.WithExtensions(extension.Table),
		),
	}
}

// Format returns the format tag for Markdown books.
func (e *MarkdownExtractor) Format() string { return "md" }

// Extract returns the paragraph sequence of the Markdown file at path.
func (e *MarkdownExtractor) Extract(path string) ([]Paragraph, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if len(content) == 0 {
		return nil, nil
	}

	reader := text.NewReader(content)
	doc := e.parser.Parser().Parse(reader)

	var paragraphs []Paragraph
	chapter := "preamble"
	paraNum := 0

	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		switch node := n.(type) {
		case *ast.Heading:
			heading := strings.TrimSpace(string(nodeLines(node, content)))
			if heading != "" {
				chapter = heading
				paraNum = 0
			}
			return ast.WalkSkipChildren, nil
		case *ast.Paragraph:
			paraText := strings.TrimSpace(string(nodeLines(node, content)))
			if paraText != "" {
				paraNum++
				paragraphs = append(paragraphs, Paragraph{
					Text:    paraText,
					Chapter: chapter,
					Para:    paraNum,
				})
			}
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})

	return paragraphs, nil
}

// nodeLines returns the raw source text covered by a block node's lines.
func nodeLines(n ast.Node, source []byte) []byte {
	var b strings.Builder
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		segment := lines.At(i)
		b.Write(segment.Value(source))
	}
	return []byte(strings.TrimRight(b.String(), "\n"))
}
