// Package vectorindex provides the per-topic nearest-neighbor capability:
// an exact L2 flat index, its persisted SQLite artifact, and the pluggable
// backend used by the indexing and query pipelines.
package vectorindex

import (
	"fmt"
	"sort"
)

// Flat is an exact nearest-neighbor index over vectors of one fixed
// dimension. Search is a brute-force scan; at personal-library scale this is
// both fast enough and exact, so no approximate structure is needed.
type Flat struct {
	dim  int
	vecs [][]float32
}

// NewFlat creates an empty flat index for vectors of the given dimension.
func NewFlat(dim int) (*Flat, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("invalid dimension %d", dim)
	}
	return &Flat{dim: dim}, nil
}

// Add appends vectors to the index. Row order is the caller's insertion
// order; row i of the index corresponds to chunk position i.
func (f *Flat) Add(vectors [][]float32) error {
	for i, v := range vectors {
		if len(v) != f.dim {
			return fmt.Errorf("vector %d has dimension %d, expected %d", i, len(v), f.dim)
		}
	}
	f.vecs = append(f.vecs, vectors...)
	return nil
}

// Search returns the positions and squared L2 distances of the k nearest
// vectors to query, closest first.
func (f *Flat) Search(query []float32, k int) ([]int, []float32, error) {
	if len(query) != f.dim {
		return nil, nil, fmt.Errorf("query has dimension %d, expected %d", len(query), f.dim)
	}
	if k <= 0 {
		return nil, nil, fmt.Errorf("k must be greater than 0")
	}

	type scored struct {
		pos  int
		dist float32
	}
	scores := make([]scored, len(f.vecs))
	for i, v := range f.vecs {
		scores[i] = scored{pos: i, dist: sqDistance(query, v)}
	}
	sort.SliceStable(scores, func(a, b int) bool { return scores[a].dist < scores[b].dist })

	if k > len(scores) {
		k = len(scores)
	}
	positions := make([]int, k)
	distances := make([]float32, k)
	for i := 0; i < k; i++ {
		positions[i] = scores[i].pos
		distances[i] = scores[i].dist
	}
	return positions, distances, nil
}

// Len returns the number of rows in the index.
func (f *Flat) Len() int { return len(f.vecs) }

// Dimension returns the vector dimension of the index.
func (f *Flat) Dimension() int { return f.dim }

// Vectors returns the raw rows in insertion order.
func (f *Flat) Vectors() [][]float32 { return f.vecs }

func sqDistance(a, b []float32) float32 {
	var sum float32
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}
