package extract

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"path"
	"strings"

	"golang.org/x/net/html"
)

// EPUBExtractor extracts chapter-tagged paragraphs from EPUB files. An EPUB
// is a zip archive; the OPF package document lists the content documents in
// reading order (the spine), and each content document's <p> elements become
// paragraphs tagged with the document name as chapter id.
type EPUBExtractor struct{}

// Format returns the format tag for EPUB books.
func (e *EPUBExtractor) Format() string { return "epub" }

type containerXML struct {
	Rootfiles []struct {
		FullPath string `xml:"full-path,attr"`
	} `xml:"rootfiles>rootfile"`
}

type packageXML struct {
	Manifest struct {
		Items []struct {
			ID   string `xml:"id,attr"`
			Href string `xml:"href,attr"`
		} `xml:"item"`
	} `xml:"manifest"`
	Spine struct {
		ItemRefs []struct {
			IDRef string `xml:"idref,attr"`
		} `xml:"itemref"`
	} `xml:"spine"`
}

// Extract returns the paragraph sequence of the EPUB at path, in spine order.
func (e *EPUBExtractor) Extract(filePath string) ([]Paragraph, error) {
	zr, err := zip.OpenReader(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open epub %s: %w", filePath, err)
	}
	defer func() {
		_ = zr.Close()
	}()

	files := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		files[f.Name] = f
	}

	opfPath, err := findOPFPath(files)
	if err != nil {
		return nil, err
	}

	opfData, err := readZipFile(files, opfPath)
	if err != nil {
		return nil, err
	}

	var pkg packageXML
	if err := xml.Unmarshal(opfData, &pkg); err != nil {
		return nil, fmt.Errorf("failed to parse package document %s: %w", opfPath, err)
	}

	hrefByID := make(map[string]string, len(pkg.Manifest.Items))
	for _, item := range pkg.Manifest.Items {
		hrefByID[item.ID] = item.Href
	}

	opfDir := path.Dir(opfPath)

	var paragraphs []Paragraph
	for _, ref := range pkg.Spine.ItemRefs {
		href, ok := hrefByID[ref.IDRef]
		if !ok {
			continue
		}

		docPath := href
		if opfDir != "." {
			docPath = path.Join(opfDir, href)
		}

		data, err := readZipFile(files, docPath)
		if err != nil {
			// A missing spine document does not fail the book.
			continue
		}

		chapterID := path.Base(href)
		for paraNum, text := range extractParagraphTags(data) {
			paragraphs = append(paragraphs, Paragraph{
				Text:    text,
				Chapter: chapterID,
				Para:    paraNum + 1,
			})
		}
	}

	return paragraphs, nil
}

func findOPFPath(files map[string]*zip.File) (string, error) {
	data, err := readZipFile(files, "META-INF/container.xml")
	if err != nil {
		return "", fmt.Errorf("missing container document: %w", err)
	}

	var container containerXML
	if err := xml.Unmarshal(data, &container); err != nil {
		return "", fmt.Errorf("failed to parse container document: %w", err)
	}
	if len(container.Rootfiles) == 0 || container.Rootfiles[0].FullPath == "" {
		return "", fmt.Errorf("container document declares no rootfile")
	}
	return container.Rootfiles[0].FullPath, nil
}

func readZipFile(files map[string]*zip.File, name string) ([]byte, error) {
	f, ok := files[name]
	if !ok {
		return nil, fmt.Errorf("file %s not found in archive", name)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", name, err)
	}
	defer func() {
		_ = rc.Close()
	}()
	return io.ReadAll(rc)
}

// extractParagraphTags parses an XHTML document and returns the text content
// of its <p> elements in document order.
func extractParagraphTags(data []byte) []string {
	doc, err := html.Parse(strings.NewReader(string(data)))
	if err != nil {
		return nil
	}

	var paras []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "p" {
			text := strings.TrimSpace(nodeText(n))
			if text != "" {
				paras = append(paras, text)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return paras
}

func nodeText(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		b.WriteString(nodeText(c))
	}
	return b.String()
}
