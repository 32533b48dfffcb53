// Package search implements hybrid retrieval over the Baheth corpus: parallel
// semantic and keyword candidate retrieval, confirmation-bonus score fusion,
// multi-query expansion with weighted merge, and LLM-based reranking.
package search

import (
	"context"
	"time"
)

// ContentType identifies which of the three corpora a candidate came from.
type ContentType string

const (
	TypeBook   ContentType = "book"
	TypeAyah   ContentType = "ayah"
	TypeHadith ContentType = "hadith"
)

// Natural keys. Typed composite keys, never formatted strings, so keys from
// different content types cannot collide.

// BookKey identifies one page of one book.
type BookKey struct {
	BookID int
	Page   int
}

// AyahKey identifies one Quran verse.
type AyahKey struct {
	Surah int
	Ayah  int
}

// HadithKey identifies one narration within a collection.
type HadithKey struct {
	Collection string
	Number     int
}

// Candidate is a retrieved item of one content type. Presence of a score is
// signalled by its rank: SemanticRank > 0 means the vector path found it,
// KeywordRank > 0 means the lexical path did. A candidate always has at least
// one of the two.
type Candidate[K comparable] struct {
	Key   K
	Text  string
	Title string

	// Snippet is the highlighted excerpt from the lexical path, if any.
	Snippet string

	// AuthorID links book pages to their author for enrichment (0 if n/a).
	AuthorID int

	SemanticScore float64 // cosine similarity, 0-1
	SemanticRank  int     // 1-based, 0 = not found via vector search
	BM25Score     float64 // raw lexical score, unbounded
	KeywordRank   int     // 1-based, 0 = not found via keyword search
}

// HasSemantic reports whether the vector path produced this candidate.
func (c Candidate[K]) HasSemantic() bool { return c.SemanticRank > 0 }

// HasKeyword reports whether the lexical path produced this candidate.
func (c Candidate[K]) HasKeyword() bool { return c.KeywordRank > 0 }

// FusedResult is a Candidate with canonical sortable scores attached.
type FusedResult[K comparable] struct {
	Candidate[K]

	// RRFScore is the reciprocal-rank-fusion score, used as a tiebreaker.
	RRFScore float64

	// FusedScore is the confirmation-bonus weighted score, the canonical
	// cross-comparable relevance score. Always computable from whichever
	// of the two signals is present.
	FusedScore float64
}

// ExpandedQuery is one phrasing of the original query with a merge weight.
// The original always carries the configured original weight (1.0).
type ExpandedQuery struct {
	Query  string
	Weight float64
	Reason string
}

// RetrievalMeta describes how an adapter call went. Adapters fail soft; an
// error only shows up here, never as a returned error.
type RetrievalMeta struct {
	Skipped      bool
	UsedFallback bool
}

// Retrieval is an adapter's ranked candidate list plus its metadata.
type Retrieval[K comparable] struct {
	Results []Candidate[K]
	Meta    RetrievalMeta
}

// Mode selects which retrieval paths run.
type Mode string

const (
	ModeHybrid   Mode = "hybrid"
	ModeSemantic Mode = "semantic"
	ModeKeyword  Mode = "keyword"
)

// Valid reports whether the mode is one of the supported values.
func (m Mode) Valid() bool {
	switch m {
	case ModeHybrid, ModeSemantic, ModeKeyword:
		return true
	}
	return false
}

// Collaborator interfaces. The engine only ever talks to external services
// through these; concrete clients live in internal/vector, internal/lexical,
// internal/embed, internal/llm and internal/store.

// VectorHit is one scored point from the vector similarity service.
type VectorHit struct {
	Score   float64
	Payload map[string]any
}

// VectorSearcher queries a vector similarity service, one collection per
// (content type x embedding model).
type VectorSearcher interface {
	Search(ctx context.Context, collection string, vector []float32, limit int, filter map[string]any, scoreThreshold float64) ([]VectorHit, error)
}

// LexicalHit is one scored document from the full-text search service.
type LexicalHit struct {
	Score   float64
	Snippet string
	Payload map[string]any
}

// LexicalSearcher queries a full-text search service with optional fuzzy
// fallback.
type LexicalSearcher interface {
	Search(ctx context.Context, index, query string, limit int, filter map[string]any, fuzzy bool) ([]LexicalHit, error)
}

// Embedder turns text into a vector using a fixed model.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	ModelName() string
	Dimensions() int
}

// Completer runs one LLM completion at temperature 0. Implementations honor
// ctx cancellation so callers can enforce timeouts.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// EngineConfig holds the tunables of the retrieval pipeline.
type EngineConfig struct {
	DefaultLimit int
	MaxLimit     int

	// MaxQueryChars rejects oversized queries before retrieval begins.
	MaxQueryChars int

	// DefaultCutoff is the similarity threshold when the caller supplies none.
	DefaultCutoff float64

	Fusion FusionConfig

	// Collection and index names per content type.
	BookCollection   string
	AyahCollection   string
	HadithCollection string
	BookIndex        string
	AyahIndex        string
	HadithIndex      string

	// KeywordFuzzyFallback retries a zero-hit keyword search in fuzzy mode.
	KeywordFuzzyFallback bool

	// BookDenylist filters known-bad book IDs out of book-page results.
	BookDenylist []int

	// Expansion tuning.
	MaxExpansions  int
	OriginalWeight float64
	ExpandedWeight float64
	ExpansionTTL   time.Duration

	// Rerank tuning.
	RerankTimeout        time.Duration
	UnifiedRerankTimeout time.Duration
	RerankDocChars       int
	UnifiedPerTypeCap    int
	RefinePerTypeCap     int
}

// DefaultEngineConfig returns the production defaults.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		DefaultLimit:         10,
		MaxLimit:             50,
		MaxQueryChars:        500,
		DefaultCutoff:        0.30,
		Fusion:               DefaultFusionConfig(),
		BookCollection:       "book_pages",
		AyahCollection:       "ayahs",
		HadithCollection:     "hadiths",
		BookIndex:            "book_pages",
		AyahIndex:            "ayahs",
		HadithIndex:          "hadiths",
		KeywordFuzzyFallback: true,
		MaxExpansions:        4,
		OriginalWeight:       1.0,
		ExpandedWeight:       0.7,
		ExpansionTTL:         15 * time.Minute,
		RerankTimeout:        15 * time.Second,
		UnifiedRerankTimeout: 25 * time.Second,
		RerankDocChars:       800,
		UnifiedPerTypeCap:    5,
		RefinePerTypeCap:     30,
	}
}
