package engine

import (
	"context"
	"fmt"
	"sort"

	"librarian/internal/contextutil"
	"librarian/internal/library"
)

// QueryAll fans the query out across every indexed topic, merges the ranked
// lists globally by similarity, then applies per-book dedup and trims once.
// Per-topic failures are logged and that topic's results are dropped.
func (e *Engine) QueryAll(ctx context.Context, reg library.Registry, req Request) (Response, error) {
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

	var indexed []library.Topic
	for _, topic := range reg.Topics {
		if e.store.Indexed(ctx, topic) {
			indexed = append(indexed, topic)
		}
	}
	if len(indexed) == 0 {
		diag.Error = "no indexed topics available"
		return Response{Results: []Result{}, Diagnostics: diag}, nil
	}

	vec, err := e.embedQuery(ctx, query)
	if err != nil {
		return Response{}, err
	}

	// Each topic contributes its own top window; dedup and the per-book cap
	// run once on the merged list, not per topic.
	perTopic := 2 * req.K

	var merged []Result
	for _, topic := range indexed {
		candidates, chunks, err := e.retrieve(ctx, topic, vec, perTopic)
		if err != nil {
			logger.WarnContext(ctx, "skipping topic in multi-topic search", "topic", topic.ID, "error", err)
			continue
		}
		diag.TopicsSearched = append(diag.TopicsSearched, topic.ID)
		diag.TotalRetrieved += len(candidates)

		if req.Book != "" {
			candidates = filterByBook(candidates, req.Book)
		}

		reranked := e.rerank(ctx, query, candidates, req.Rerank)
		diag.Reranked = diag.Reranked || reranked
		sortByScore(candidates)

		for _, r := range e.assemble(topic, candidates, chunks, req.ContextWindow) {
			r.SourceTopic = topic.ID
			merged = append(merged, r)
		}
	}

	if len(diag.TopicsSearched) == 0 {
		return Response{}, fmt.Errorf("all %d indexed topics failed to search", len(indexed))
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Score > merged[j].Score
	})

	merged = dedupResultsPerBook(merged, req.MaxPerBook)
	if len(merged) > req.K {
		merged = merged[:req.K]
	}

	diag.Returned = len(merged)
	diag.BookDistribution = bookDistribution(merged)
	return Response{Results: merged, Diagnostics: diag}, nil
}

func dedupResultsPerBook(results []Result, maxPerBook int) []Result {
	if maxPerBook <= 0 {
		return results
	}
	counts := make(map[string]int)
	kept := results[:0]
	for _, r := range results {
		if counts[r.BookTitle] >= maxPerBook {
			continue
		}
		counts[r.BookTitle]++
		kept = append(kept, r)
	}
	return kept
}
