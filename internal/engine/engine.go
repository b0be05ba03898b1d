package engine

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"librarian/internal/contextutil"
	"librarian/internal/library"
	"librarian/internal/llm"
	"librarian/internal/topicstore"
)

// DefaultK is the number of results returned when the request leaves K unset.
const DefaultK = 5

// Engine answers semantic queries against indexed topics. The reranker is
// optional; when absent or failing, vector similarity ordering is kept.
type Engine struct {
	store    *topicstore.Store
	embedder llm.Embedder
	reranker llm.Reranker
}

// New creates a query engine. Pass a nil reranker to disable reranking.
func New(store *topicstore.Store, embedder llm.Embedder, reranker llm.Reranker) *Engine {
	return &Engine{store: store, embedder: embedder, reranker: reranker}
}

type candidate struct {
	chunk      topicstore.Chunk
	position   int
	similarity float64
	score      float64
}

// Query runs the pipeline against a single topic. Pipeline errors that mean
// "nothing to search" (no indexed topics, unknown topic) are reported through
// Diagnostics.Error with an empty result set; infrastructure failures are
// returned as errors.
func (e *Engine) Query(ctx context.Context, reg library.Registry, req Request) (Response, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if req.K <= 0 {
		req.K = DefaultK
	}

	diag := Diagnostics{
		Query:         req.Query,
		ContextWindow: req.ContextWindow,
		MaxPerBook:    req.MaxPerBook,
	}

	query := req.Query
	if req.ExpandQuery {
		expanded := ExpandQuery(query)
		if expanded != query {
			diag.ExpandedQuery = expanded
			query = expanded
		}
	}

	topic, ok := e.resolveTopic(ctx, reg, req.Topic)
	if !ok {
		if req.Topic == "" {
			diag.Error = "no indexed topics available"
		} else {
			diag.Error = fmt.Sprintf("topic %q not found or not indexed", req.Topic)
		}
		return Response{Results: []Result{}, Diagnostics: diag}, nil
	}
	diag.Topic = topic.ID

	fetchK := overRetrievalSize(req)

	vec, err := e.embedQuery(ctx, query)
	if err != nil {
		return Response{}, err
	}

	candidates, chunks, err := e.retrieve(ctx, topic, vec, fetchK)
	if err != nil {
		return Response{}, err
	}
	diag.TotalRetrieved = len(candidates)

	if req.Book != "" {
		candidates = filterByBook(candidates, req.Book)
	}

	diag.Reranked = e.rerank(ctx, query, candidates, req.Rerank)
	sortByScore(candidates)

	candidates = dedupPerBook(candidates, req.MaxPerBook)
	if len(candidates) > req.K {
		candidates = candidates[:req.K]
	}

	results := e.assemble(topic, candidates, chunks, req.ContextWindow)
	diag.Returned = len(results)
	diag.BookDistribution = bookDistribution(results)

	logger.DebugContext(ctx, "query executed",
		"topic", topic.ID, "retrieved", diag.TotalRetrieved, "returned", diag.Returned, "reranked", diag.Reranked)

	return Response{Results: results, Diagnostics: diag}, nil
}

// resolveTopic maps a topic reference to an indexed topic. An empty reference
// selects the first indexed topic in registry order. A non-empty reference
// matches by exact id first, then by substring.
func (e *Engine) resolveTopic(ctx context.Context, reg library.Registry, ref string) (library.Topic, bool) {
	if ref == "" {
		for _, topic := range reg.Topics {
			if e.store.Indexed(ctx, topic) {
				return topic, true
			}
		}
		return library.Topic{}, false
	}

	for _, topic := range reg.Topics {
		if topic.ID == ref {
			return topic, e.store.Indexed(ctx, topic)
		}
	}
	ref = strings.ToLower(ref)
	for _, topic := range reg.Topics {
		if strings.Contains(topic.ID, ref) {
			return topic, e.store.Indexed(ctx, topic)
		}
	}
	return library.Topic{}, false
}

// overRetrievalSize decides how many neighbors to fetch before filtering:
// per-book dedup and reranking both need headroom beyond K.
func overRetrievalSize(req Request) int {
	switch {
	case req.MaxPerBook > 0 && req.MaxPerBook < req.K:
		return 3 * req.K
	case req.Rerank:
		return 2 * req.K
	default:
		return req.K
	}
}

func (e *Engine) embedQuery(ctx context.Context, query string) ([]float32, error) {
	vecs, err := e.embedder.EmbedTexts(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("expected 1 query embedding, got %d", len(vecs))
	}
	return vecs[0], nil
}

// retrieve searches the topic's vector index and joins hits back to their
// chunks by position. Similarity is one minus L2 distance, matching the
// index metric. The full chunk list is returned alongside for context
// expansion.
func (e *Engine) retrieve(ctx context.Context, topic library.Topic, vec []float32, k int) ([]*candidate, []topicstore.Chunk, error) {
	chunks, err := e.store.LoadChunks(e.store.TopicDir(topic))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load chunks for topic %s: %w", topic.ID, err)
	}

	positions, distances, err := e.store.SearchVectors(ctx, topic, vec, k)
	if err != nil {
		return nil, nil, fmt.Errorf("vector search failed for topic %s: %w", topic.ID, err)
	}

	candidates := make([]*candidate, 0, len(positions))
	for i, pos := range positions {
		if pos < 0 || pos >= len(chunks) {
			return nil, nil, fmt.Errorf("vector index out of sync with chunks for topic %s: position %d of %d", topic.ID, pos, len(chunks))
		}
		sim := 1 - float64(distances[i])
		candidates = append(candidates, &candidate{
			chunk:      chunks[pos],
			position:   pos,
			similarity: sim,
			score:      sim,
		})
	}
	return candidates, chunks, nil
}

// rerank scores candidates with the cross-encoder when requested and
// available. Failures degrade silently to vector ordering; the return value
// reports whether rerank scores actually took effect.
func (e *Engine) rerank(ctx context.Context, query string, candidates []*candidate, requested bool) bool {
	if !requested || e.reranker == nil || len(candidates) == 0 {
		return false
	}

	texts := make([]string, len(candidates))
	for i, c := range candidates {
		texts[i] = c.chunk.Text
	}

	scores, err := e.reranker.Score(ctx, query, texts)
	if err != nil || len(scores) != len(candidates) {
		contextutil.LoggerFromContext(ctx).WarnContext(ctx, "rerank unavailable, keeping vector order", "error", err)
		return false
	}

	for i, c := range candidates {
		c.score = float64(scores[i])
	}
	return true
}

func sortByScore(candidates []*candidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})
}

// filterByBook keeps only candidates from the exact filename. Partial names
// match nothing; callers pass the filename as registered in the topic.
func filterByBook(candidates []*candidate, book string) []*candidate {
	kept := candidates[:0]
	for _, c := range candidates {
		if c.chunk.Filename == book {
			kept = append(kept, c)
		}
	}
	return kept
}

// dedupPerBook walks candidates in ranked order and keeps at most maxPerBook
// results from any one book. Zero disables the cap.
func dedupPerBook(candidates []*candidate, maxPerBook int) []*candidate {
	if maxPerBook <= 0 {
		return candidates
	}
	counts := make(map[string]int)
	kept := candidates[:0]
	for _, c := range candidates {
		if counts[c.chunk.BookTitle] >= maxPerBook {
			continue
		}
		counts[c.chunk.BookTitle]++
		kept = append(kept, c)
	}
	return kept
}

func (e *Engine) assemble(topic library.Topic, candidates []*candidate, chunks []topicstore.Chunk, window int) []Result {
	results := make([]Result, 0, len(candidates))
	for _, c := range candidates {
		results = append(results, Result{
			Text:         c.chunk.Text,
			BookTitle:    c.chunk.BookTitle,
			BookAuthor:   c.chunk.BookAuthor,
			Topic:        topic.ID,
			Similarity:   c.similarity,
			Score:        c.score,
			Filename:     c.chunk.Filename,
			FolderPath:   topic.Path,
			RelativePath: topic.Path + "/" + c.chunk.Filename,
			Location:     locator(c.chunk),
			Page:         c.chunk.Page,
			Chapter:      c.chunk.Chapter,
			Paragraph:    c.chunk.Paragraph,
			Format:       c.chunk.Format,
			Context:      expandContext(chunks, c.position, window),
		})
	}
	return results
}

// locator renders a human-readable position: page for paginated formats,
// chapter for chapter-based ones, paragraph when known.
func locator(c topicstore.Chunk) string {
	var base string
	switch {
	case c.Page != nil:
		base = fmt.Sprintf("p.%d", *c.Page)
	case c.Chapter != nil:
		base = *c.Chapter
	default:
		return ""
	}
	if c.Paragraph > 0 {
		return fmt.Sprintf("%s, ¶%d", base, c.Paragraph)
	}
	return base
}

// expandContext collects up to window chunks on each side of pos, stopping
// at book boundaries so context never bleeds across books.
func expandContext(chunks []topicstore.Chunk, pos, window int) Context {
	ctx := Context{Before: []string{}, After: []string{}}
	if window <= 0 || pos < 0 || pos >= len(chunks) {
		return ctx
	}
	bookID := chunks[pos].BookID

	for i := pos - 1; i >= 0 && i >= pos-window; i-- {
		if chunks[i].BookID != bookID {
			break
		}
		ctx.Before = append([]string{chunks[i].Text}, ctx.Before...)
	}
	for i := pos + 1; i < len(chunks) && i <= pos+window; i++ {
		if chunks[i].BookID != bookID {
			break
		}
		ctx.After = append(ctx.After, chunks[i].Text)
	}
	return ctx
}

func bookDistribution(results []Result) map[string]int {
	if len(results) == 0 {
		return nil
	}
	dist := make(map[string]int, len(results))
	for _, r := range results {
		dist[r.BookTitle]++
	}
	return dist
}
