package search

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// ExpansionCache stores expansion results keyed by normalized query text.
// Last-write-wins; concurrent identical-query misses may both call the LLM,
// which is acceptable bounded duplication.
type ExpansionCache interface {
	Get(key string) ([]ExpandedQuery, bool)
	Add(key string, value []ExpandedQuery)
}

// NewExpansionCache returns a process-wide TTL cache sized for a working set
// of recent queries.
func NewExpansionCache(size int, ttl time.Duration) ExpansionCache {
	if size <= 0 {
		size = 2048
	}
	return &lruExpansionCache{
		lru: expirable.NewLRU[string, []ExpandedQuery](size, nil, ttl),
	}
}

type lruExpansionCache struct {
	lru *expirable.LRU[string, []ExpandedQuery]
}

func (c *lruExpansionCache) Get(key string) ([]ExpandedQuery, bool) { return c.lru.Get(key) }
func (c *lruExpansionCache) Add(key string, value []ExpandedQuery)  { c.lru.Add(key, value) }

// Expander produces weighted alternative phrasings of a query via one LLM
// call. On any failure it degrades to the original query alone.
type Expander struct {
	completer Completer
	cache     ExpansionCache

	maxExpansions  int
	originalWeight float64
	expandedWeight float64
}

// NewExpander wires an Expander. completer may be nil, in which case every
// call returns just the original query.
func NewExpander(completer Completer, cache ExpansionCache, cfg EngineConfig) *Expander {
	return &Expander{
		completer:      completer,
		cache:          cache,
		maxExpansions:  cfg.MaxExpansions,
		originalWeight: cfg.OriginalWeight,
		expandedWeight: cfg.ExpandedWeight,
	}
}

const expansionPromptTemplate = `You rewrite Arabic-language search queries for a corpus of classical Islamic texts (books, Quran, Hadith).

Given the query below, produce up to %d alternative phrasings that preserve the meaning but vary the vocabulary: classical synonyms, common transliterations, and the canonical scholarly phrasing of the concept.

Respond with ONLY a JSON array, each element {"query": "...", "reason": "..."}.
Do not include the original query. Do not add any other text.

Query: %s`

// Expand returns the original query plus up to maxExpansions weighted
// alternates. The original always comes first with the original weight.
func (e *Expander) Expand(ctx context.Context, query string) []ExpandedQuery {
	original := ExpandedQuery{Query: query, Weight: e.originalWeight, Reason: "original"}

	key := strings.ToLower(strings.TrimSpace(query))
	if key == "" {
		return []ExpandedQuery{original}
	}

	if e.cache != nil {
		if cached, ok := e.cache.Get(key); ok {
			return cached
		}
	}

	if e.completer == nil {
		return []ExpandedQuery{original}
	}

	alternates, err := e.callLLM(ctx, query)
	if err != nil {
		// Degraded results are not cached: a transient LLM failure should
		// not suppress expansion for the full TTL.
		slog.Warn("query expansion failed, using original only",
			slog.String("error", err.Error()))
		return []ExpandedQuery{original}
	}

	expanded := append([]ExpandedQuery{original}, alternates...)
	if e.cache != nil {
		e.cache.Add(key, expanded)
	}
	return expanded
}

func (e *Expander) callLLM(ctx context.Context, query string) ([]ExpandedQuery, error) {
	prompt := fmt.Sprintf(expansionPromptTemplate, e.maxExpansions, query)

	raw, err := e.completer.Complete(ctx, prompt)
	if err != nil {
		return nil, err
	}

	parsed, err := parseExpansionResponse(raw)
	if err != nil {
		return nil, err
	}

	if len(parsed) > e.maxExpansions {
		parsed = parsed[:e.maxExpansions]
	}

	alternates := make([]ExpandedQuery, 0, len(parsed))
	for _, p := range parsed {
		text := strings.TrimSpace(p.Query)
		if text == "" || strings.EqualFold(text, query) {
			continue
		}
		alternates = append(alternates, ExpandedQuery{
			Query:  text,
			Weight: e.expandedWeight,
			Reason: p.Reason,
		})
	}
	return alternates, nil
}

type expansionItem struct {
	Query  string `json:"query"`
	Reason string `json:"reason"`
}

var jsonArrayPattern = regexp.MustCompile(`(?s)\[.*\]`)

// parseExpansionResponse extracts the JSON array from an LLM response,
// tolerating markdown fences and surrounding prose.
func parseExpansionResponse(raw string) ([]expansionItem, error) {
	text := strings.TrimSpace(raw)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")

	match := jsonArrayPattern.FindString(text)
	if match == "" {
		return nil, fmt.Errorf("no JSON array in expansion response")
	}

	var items []expansionItem
	if err := json.Unmarshal([]byte(match), &items); err != nil {
		return nil, fmt.Errorf("parse expansion response: %w", err)
	}
	return items, nil
}
