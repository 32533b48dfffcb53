package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"strings"
	"time"
)

// RerankOutcome is the result of reranking a bounded candidate set.
// Order holds indices into the input document slice, best first, exactly
// min(topN, len(docs)) entries, no duplicates. TimedOut reports whether the
// fallback order was caused by a deadline rather than a model answer.
type RerankOutcome struct {
	Order    []int
	TimedOut bool
}

// Reranker reorders a bounded candidate set. Implementations never fail:
// on any upstream error they return the untouched input order, so callers
// can surface a soft warning instead of an error.
//
// The set of strategies is closed: None, EmbeddingSimilarity and Listwise.
type Reranker interface {
	Rerank(ctx context.Context, query string, docs []string, topN int) RerankOutcome
	Name() string
}

// identityOrder is the deterministic fallback: the first min(topN, n) input
// positions in original order.
func identityOrder(n, topN int) []int {
	if topN <= 0 || topN > n {
		topN = n
	}
	order := make([]int, topN)
	for i := range order {
		order[i] = i
	}
	return order
}

// NoneReranker keeps the fusion order and just slices to topN.
type NoneReranker struct{}

func (NoneReranker) Rerank(_ context.Context, _ string, docs []string, topN int) RerankOutcome {
	return RerankOutcome{Order: identityOrder(len(docs), topN)}
}

func (NoneReranker) Name() string { return "none" }

// EmbeddingReranker re-embeds the query and each document and ranks by
// cosine similarity. No listwise LLM call, so it cannot time out.
type EmbeddingReranker struct {
	Embedder Embedder
}

func (r *EmbeddingReranker) Rerank(ctx context.Context, query string, docs []string, topN int) RerankOutcome {
	fallback := RerankOutcome{Order: identityOrder(len(docs), topN)}
	if r.Embedder == nil || len(docs) == 0 {
		return fallback
	}

	queryVec, err := r.Embedder.Embed(ctx, query)
	if err != nil {
		slog.Warn("embedding rerank failed on query, using fusion order",
			slog.String("error", err.Error()))
		return fallback
	}

	type scored struct {
		index int
		sim   float64
	}
	scoredDocs := make([]scored, 0, len(docs))
	for i, doc := range docs {
		vec, err := r.Embedder.Embed(ctx, doc)
		if err != nil {
			slog.Warn("embedding rerank failed on document, using fusion order",
				slog.Int("index", i),
				slog.String("error", err.Error()))
			return fallback
		}
		scoredDocs = append(scoredDocs, scored{index: i, sim: cosineSimilarity(queryVec, vec)})
	}

	// Insertion-stable sort by similarity descending.
	for i := 1; i < len(scoredDocs); i++ {
		for j := i; j > 0 && scoredDocs[j].sim > scoredDocs[j-1].sim; j-- {
			scoredDocs[j], scoredDocs[j-1] = scoredDocs[j-1], scoredDocs[j]
		}
	}

	limit := topN
	if limit <= 0 || limit > len(scoredDocs) {
		limit = len(scoredDocs)
	}
	order := make([]int, limit)
	for i := 0; i < limit; i++ {
		order[i] = scoredDocs[i].index
	}
	return RerankOutcome{Order: order}
}

func (r *EmbeddingReranker) Name() string { return "embedding-similarity" }

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// ListwiseReranker asks an LLM to order a numbered document list. All named
// backends share this prompt template and response format; only the model
// behind the Completer differs.
type ListwiseReranker struct {
	Completer Completer
	Model     string
	Timeout   time.Duration

	// DocChars truncates each document in the prompt.
	DocChars int
}

const listwisePromptTemplate = `You are ranking search results for a query over classical Islamic texts.

Query: %s

Documents:
%s

Order the documents from most to least relevant to the query.
Respond with ONLY a JSON array of document numbers, best first, e.g. [3, 1, 2].
If no document is relevant, respond with [].`

func (r *ListwiseReranker) Rerank(ctx context.Context, query string, docs []string, topN int) RerankOutcome {
	fallback := RerankOutcome{Order: identityOrder(len(docs), topN)}
	if r.Completer == nil || len(docs) == 0 {
		return fallback
	}

	timeout := r.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	prompt := fmt.Sprintf(listwisePromptTemplate, query, r.formatDocs(docs))

	start := time.Now()
	raw, err := r.Completer.Complete(callCtx, prompt)
	if err != nil {
		timedOut := errors.Is(err, context.DeadlineExceeded) ||
			errors.Is(callCtx.Err(), context.DeadlineExceeded)
		slog.Warn("listwise rerank failed, using fusion order",
			slog.String("model", r.Model),
			slog.Bool("timed_out", timedOut),
			slog.Duration("elapsed", time.Since(start)),
			slog.String("error", err.Error()))
		fallback.TimedOut = timedOut
		return fallback
	}

	ranking, err := parseRankingResponse(raw, len(docs))
	if err != nil {
		slog.Warn("listwise rerank response unparsable, using fusion order",
			slog.String("model", r.Model),
			slog.String("error", err.Error()))
		return fallback
	}

	// An empty ranking means the model judged nothing relevant; keep the
	// fusion order rather than returning zero results.
	if len(ranking) == 0 {
		return fallback
	}

	order := completeOrder(ranking, len(docs))
	limit := topN
	if limit <= 0 || limit > len(order) {
		limit = len(order)
	}
	return RerankOutcome{Order: order[:limit]}
}

func (r *ListwiseReranker) Name() string { return "llm-listwise:" + r.Model }

func (r *ListwiseReranker) formatDocs(docs []string) string {
	docChars := r.DocChars
	if docChars <= 0 {
		docChars = 800
	}
	var b strings.Builder
	for i, doc := range docs {
		text := doc
		if runes := []rune(text); len(runes) > docChars {
			text = string(runes[:docChars])
		}
		fmt.Fprintf(&b, "[%d] %s\n\n", i+1, text)
	}
	return b.String()
}

var rankingArrayPattern = regexp.MustCompile(`\[[\d,\s]*\]`)

// parseRankingResponse extracts a 1-based ranking array from the model's
// reply, dropping out-of-range and duplicate numbers.
func parseRankingResponse(raw string, docCount int) ([]int, error) {
	match := rankingArrayPattern.FindString(raw)
	if match == "" {
		return nil, fmt.Errorf("no ranking array in response")
	}

	var numbers []int
	if err := json.Unmarshal([]byte(match), &numbers); err != nil {
		return nil, fmt.Errorf("parse ranking array: %w", err)
	}

	seen := make(map[int]bool, len(numbers))
	ranking := make([]int, 0, len(numbers))
	for _, n := range numbers {
		if n < 1 || n > docCount || seen[n] {
			continue
		}
		seen[n] = true
		ranking = append(ranking, n-1)
	}
	return ranking, nil
}

// completeOrder appends any document the model omitted, in original order,
// so the output always covers all inputs without duplicates.
func completeOrder(ranking []int, docCount int) []int {
	seen := make(map[int]bool, docCount)
	order := make([]int, 0, docCount)
	for _, idx := range ranking {
		seen[idx] = true
		order = append(order, idx)
	}
	for i := 0; i < docCount; i++ {
		if !seen[i] {
			order = append(order, i)
		}
	}
	return order
}
