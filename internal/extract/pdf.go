package extract

import (
	"fmt"

	"github.com/ledongthuc/pdf"
)

// PDFExtractor extracts page-numbered paragraphs from PDF files.
type PDFExtractor struct{}

// Format returns the format tag for PDF books.
func (e *PDFExtractor) Format() string { return "pdf" }

// Extract returns the paragraph sequence of the PDF at path. Paragraphs are
// numbered per page; pages with no extractable text are skipped.
func (e *PDFExtractor) Extract(path string) ([]Paragraph, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open pdf %s: %w", path, err)
	}
	defer func() {
		_ = f.Close()
	}()

	var paragraphs []Paragraph
	for pageNum := 1; pageNum <= reader.NumPage(); pageNum++ {
		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			// A single unreadable page does not fail the book.
			continue
		}

		for paraNum, paraText := range splitParagraphs(text) {
			paragraphs = append(paragraphs, Paragraph{
				Text: paraText,
				Page: pageNum,
				Para: paraNum + 1,
			})
		}
	}

	return paragraphs, nil
}
