package indexer

// DefaultChunkSize is the default window size in characters.
const DefaultChunkSize = 1024

// DefaultChunkOverlap is the default overlap between windows in characters.
const DefaultChunkOverlap = 200

// Chunker splits long-form text into fixed-size overlapping windows. It is
// applied to extracted paragraphs that exceed the window size; short
// paragraphs pass through the pipeline whole.
type Chunker struct {
	size    int
	overlap int
}

// NewChunker creates a chunker with the given window size and overlap.
// Non-positive sizes fall back to the defaults; an overlap that reaches the
// window size is clamped to a quarter of it.
func NewChunker(size, overlap int) *Chunker {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = DefaultChunkOverlap
	}
	if overlap >= size {
		overlap = size / 4
	}
	return &Chunker{size: size, overlap: overlap}
}

// Size returns the window size in characters.
func (c *Chunker) Size() int { return c.size }

// Overlap returns the window overlap in characters.
func (c *Chunker) Overlap() int { return c.overlap }

// Split cuts text into windows of at most size runes, each starting
// size−overlap runes after the previous one. Text within one window stays
// contiguous; the final window may be shorter.
func (c *Chunker) Split(text string) []string {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}
	if len(runes) <= c.size {
		return []string{text}
	}

	step := c.size - c.overlap
	estimated := (len(runes) / step) + 1
	windows := make([]string, 0, estimated)

	for start := 0; start < len(runes); start += step {
		end := start + c.size
		if end > len(runes) {
			end = len(runes)
		}
		windows = append(windows, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return windows
}
