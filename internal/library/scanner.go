package library

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// supportedExtensions are the book formats the engine can extract text from.
var supportedExtensions = map[string]struct{}{
	".pdf":  {},
	".epub": {},
	".md":   {},
}

// SupportedFile reports whether the filename is a book in a supported format.
// Hidden files are never books.
func SupportedFile(name string) bool {
	if strings.HasPrefix(name, ".") {
		return false
	}
	_, ok := supportedExtensions[strings.ToLower(filepath.Ext(name))]
	return ok
}

var slugStrip = regexp.MustCompile(`[^\w\s-]`)

// Slugify derives a deterministic topic id from a relative folder path.
func Slugify(relPath string) string {
	s := strings.ReplaceAll(relPath, "/", "_")
	s = slugStrip.ReplaceAllString(strings.ToLower(s), "")
	s = strings.TrimSpace(s)
	return strings.ReplaceAll(s, " ", "_")
}

// Scan walks the tree under root and discovers topic folders. A directory is
// a topic if it directly contains at least one supported-format file; the
// walk recurses into subdirectories regardless, so a folder can be both a
// topic and contain sub-topics. Hidden entries are skipped.
func Scan(root string) ([]Topic, error) {
	var topics []Topic

	var scanDir func(dir, rel string) error
	scanDir = func(dir, rel string) error {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return fmt.Errorf("failed to read directory %s: %w", dir, err)
		}

		sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

		for _, entry := range entries {
			if strings.HasPrefix(entry.Name(), ".") || !entry.IsDir() {
				continue
			}

			childRel := entry.Name()
			if rel != "" {
				childRel = rel + "/" + entry.Name()
			}
			childDir := filepath.Join(dir, entry.Name())

			hasBooks, err := containsBooks(childDir)
			if err != nil {
				return err
			}
			if hasBooks {
				topics = append(topics, Topic{
					ID:   Slugify(childRel),
					Path: childRel,
				})
			}

			if err := scanDir(childDir, childRel); err != nil {
				return err
			}
		}
		return nil
	}

	if err := scanDir(root, ""); err != nil {
		return nil, err
	}
	return topics, nil
}

// BookFiles lists the supported book filenames directly inside dir, sorted.
func BookFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() || !SupportedFile(entry.Name()) {
			continue
		}
		files = append(files, entry.Name())
	}
	sort.Strings(files)
	return files, nil
}

func containsBooks(dir string) (bool, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}
	for _, entry := range entries {
		if !entry.IsDir() && SupportedFile(entry.Name()) {
			return true, nil
		}
	}
	return false, nil
}
