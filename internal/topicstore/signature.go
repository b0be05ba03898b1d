package topicstore

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"librarian/internal/library"
)

// ComputeSignature hashes a topic folder's contents: the sorted set of
// (filename, modification time) pairs of its book files. Any addition,
// removal, or mtime change of a tracked file changes the signature.
func ComputeSignature(dir string) (string, error) {
	files, err := library.BookFiles(dir)
	if err != nil {
		return "", err
	}

	parts := make([]string, 0, len(files))
	for _, name := range files {
		info, err := os.Stat(filepath.Join(dir, name))
		if err != nil {
			return "", fmt.Errorf("failed to stat %s: %w", name, err)
		}
		parts = append(parts, fmt.Sprintf("%s:%.6f", name, unixSeconds(info.ModTime())))
	}

	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:]), nil
}

// NeedsReindex reports whether a topic's persisted state is stale: true when
// force is set, when no prior signature is stored, or when the computed
// signature differs from the stored one. This short-circuit is the primary
// cost control, since embedding is expensive.
func (s *Store) NeedsReindex(dir string, meta *TopicMeta, force bool) (bool, error) {
	if force {
		return true, nil
	}
	if meta == nil || meta.ContentHash == "" {
		return true, nil
	}
	sig, err := ComputeSignature(dir)
	if err != nil {
		return false, err
	}
	return sig != meta.ContentHash, nil
}

// DetectChangedTopics compares each tracked file's stored modification time
// against its current one, independent of the whole-folder signature, and
// returns the set of topic paths with file-level changes. A topic with no
// persisted book registry counts as changed.
func (s *Store) DetectChangedTopics(reg library.Registry) (map[string]struct{}, error) {
	changed := make(map[string]struct{})

	for _, topic := range reg.Topics {
		dir := s.TopicDir(topic)

		meta, err := s.LoadMeta(dir)
		if err != nil {
			if err == ErrNotFound {
				changed[topic.Path] = struct{}{}
				continue
			}
			return nil, err
		}

		tracked := make(map[string]float64, len(meta.Books))
		for _, b := range meta.Books {
			tracked[b.Filename] = b.LastModified
		}

		files, err := library.BookFiles(dir)
		if err != nil {
			return nil, err
		}

		for _, name := range files {
			stored, ok := tracked[name]
			if !ok {
				// New file not in the registry.
				changed[topic.Path] = struct{}{}
				break
			}
			info, err := os.Stat(filepath.Join(dir, name))
			if err != nil {
				return nil, fmt.Errorf("failed to stat %s: %w", name, err)
			}
			if unixSeconds(info.ModTime()) > stored {
				changed[topic.Path] = struct{}{}
				break
			}
		}
	}

	return changed, nil
}
