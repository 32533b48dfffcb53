package search

import (
	"context"
	"errors"
	"log/slog"

	"github.com/baheth/baheth/internal/query"
)

// ErrIndexNotReady signals a missing vector collection. It is the one adapter
// condition that is allowed to short-circuit a request: the caller gets a
// specific "not ready" answer instead of silently empty results.
var ErrIndexNotReady = errors.New("search index not initialized")

// Adapters wraps the external index services with per-content-type retrieval.
// Every method fails soft: downstream errors are logged and an empty list is
// returned, so the engine can always proceed with partial data. The only
// exception is ErrIndexNotReady on the semantic path.
type Adapters struct {
	vector   VectorSearcher
	lexical  LexicalSearcher
	embedder Embedder
	cfg      EngineConfig
	denylist map[int]bool
}

// NewAdapters wires the retrieval adapters.
func NewAdapters(vector VectorSearcher, lexical LexicalSearcher, embedder Embedder, cfg EngineConfig) *Adapters {
	denylist := make(map[int]bool, len(cfg.BookDenylist))
	for _, id := range cfg.BookDenylist {
		denylist[id] = true
	}
	return &Adapters{
		vector:   vector,
		lexical:  lexical,
		embedder: embedder,
		cfg:      cfg,
		denylist: denylist,
	}
}

// QueryEmbedding resolves the embedding for a query, reusing a precomputed
// vector when the caller already has one (avoids redundant embedding calls
// across fan-out branches).
func (a *Adapters) QueryEmbedding(ctx context.Context, plan query.Plan, precomputed []float32) ([]float32, error) {
	if len(precomputed) > 0 {
		return precomputed, nil
	}
	return a.embedder.Embed(ctx, plan.Normalized)
}

// SemanticBooks retrieves book-page candidates from the vector index.
// bookID > 0 restricts results to one book.
func (a *Adapters) SemanticBooks(ctx context.Context, plan query.Plan, limit, bookID int, embedding []float32) (Retrieval[BookKey], error) {
	return semanticSearch(ctx, a, plan, limit, embedding, a.cfg.BookCollection,
		bookFilter(bookID), a.bookFromPayload)
}

// SemanticAyahs retrieves Quran verse candidates from the vector index.
func (a *Adapters) SemanticAyahs(ctx context.Context, plan query.Plan, limit int, embedding []float32) (Retrieval[AyahKey], error) {
	return semanticSearch(ctx, a, plan, limit, embedding, a.cfg.AyahCollection,
		nil, ayahFromPayload)
}

// SemanticHadiths retrieves Hadith candidates from the vector index.
func (a *Adapters) SemanticHadiths(ctx context.Context, plan query.Plan, limit int, embedding []float32) (Retrieval[HadithKey], error) {
	return semanticSearch(ctx, a, plan, limit, embedding, a.cfg.HadithCollection,
		nil, hadithFromPayload)
}

// KeywordBooks retrieves book-page candidates from the lexical index.
func (a *Adapters) KeywordBooks(ctx context.Context, plan query.Plan, limit, bookID int) Retrieval[BookKey] {
	return keywordSearch(ctx, a, plan, limit, a.cfg.BookIndex,
		bookFilter(bookID), a.bookFromLexical)
}

// KeywordAyahs retrieves Quran verse candidates from the lexical index.
func (a *Adapters) KeywordAyahs(ctx context.Context, plan query.Plan, limit int) Retrieval[AyahKey] {
	return keywordSearch(ctx, a, plan, limit, a.cfg.AyahIndex, nil, ayahFromLexical)
}

// KeywordHadiths retrieves Hadith candidates from the lexical index.
func (a *Adapters) KeywordHadiths(ctx context.Context, plan query.Plan, limit int) Retrieval[HadithKey] {
	return keywordSearch(ctx, a, plan, limit, a.cfg.HadithIndex, nil, hadithFromLexical)
}

// semanticSearch is the shared vector-path flow: skip per plan, resolve the
// embedding, query the collection with the effective cutoff, map payloads.
func semanticSearch[K comparable](
	ctx context.Context,
	a *Adapters,
	plan query.Plan,
	limit int,
	embedding []float32,
	collection string,
	filter map[string]any,
	fromPayload func(hit VectorHit) (Candidate[K], bool),
) (Retrieval[K], error) {
	empty := Retrieval[K]{Results: []Candidate[K]{}}

	if plan.SkipSemantic {
		empty.Meta.Skipped = true
		return empty, nil
	}

	vec, err := a.QueryEmbedding(ctx, plan, embedding)
	if err != nil {
		slog.Warn("embedding failed, skipping semantic search",
			slog.String("collection", collection),
			slog.String("error", err.Error()))
		return empty, nil
	}

	hits, err := a.vector.Search(ctx, collection, vec, limit, filter, plan.EffectiveCutoff)
	if err != nil {
		if errors.Is(err, ErrIndexNotReady) {
			return empty, err
		}
		slog.Warn("vector search failed, degrading to empty results",
			slog.String("collection", collection),
			slog.String("error", err.Error()))
		return empty, nil
	}

	results := make([]Candidate[K], 0, len(hits))
	for _, hit := range hits {
		c, ok := fromPayload(hit)
		if !ok {
			continue
		}
		c.SemanticScore = hit.Score
		c.SemanticRank = len(results) + 1
		results = append(results, c)
	}
	return Retrieval[K]{Results: results}, nil
}

// keywordSearch is the shared lexical-path flow: skip per plan, query the
// index, optionally retry fuzzy on zero hits, map payloads.
func keywordSearch[K comparable](
	ctx context.Context,
	a *Adapters,
	plan query.Plan,
	limit int,
	index string,
	filter map[string]any,
	fromHit func(hit LexicalHit) (Candidate[K], bool),
) Retrieval[K] {
	empty := Retrieval[K]{Results: []Candidate[K]{}}

	if plan.SkipKeyword {
		empty.Meta.Skipped = true
		return empty
	}

	hits, err := a.lexical.Search(ctx, index, plan.Normalized, limit, filter, false)
	if err != nil {
		slog.Warn("keyword search failed, degrading to empty results",
			slog.String("index", index),
			slog.String("error", err.Error()))
		return empty
	}

	usedFallback := false
	if len(hits) == 0 && a.cfg.KeywordFuzzyFallback {
		hits, err = a.lexical.Search(ctx, index, plan.Normalized, limit, filter, true)
		if err != nil {
			slog.Warn("fuzzy keyword fallback failed",
				slog.String("index", index),
				slog.String("error", err.Error()))
			return empty
		}
		usedFallback = len(hits) > 0
	}

	results := make([]Candidate[K], 0, len(hits))
	for _, hit := range hits {
		c, ok := fromHit(hit)
		if !ok {
			continue
		}
		c.BM25Score = hit.Score
		c.Snippet = hit.Snippet
		c.KeywordRank = len(results) + 1
		results = append(results, c)
	}
	return Retrieval[K]{Results: results, Meta: RetrievalMeta{UsedFallback: usedFallback}}
}

func bookFilter(bookID int) map[string]any {
	if bookID <= 0 {
		return nil
	}
	return map[string]any{"book_id": bookID}
}

// Payload mappers. The quality denylist is applied to book pages here, before
// results ever reach fusion.

func (a *Adapters) bookFromPayload(hit VectorHit) (Candidate[BookKey], bool) {
	bookID := payloadInt(hit.Payload, "book_id")
	page := payloadInt(hit.Payload, "page")
	if bookID == 0 || page == 0 || a.denylist[bookID] {
		return Candidate[BookKey]{}, false
	}
	return Candidate[BookKey]{
		Key:      BookKey{BookID: bookID, Page: page},
		Text:     payloadString(hit.Payload, "text"),
		Title:    payloadString(hit.Payload, "title"),
		AuthorID: payloadInt(hit.Payload, "author_id"),
	}, true
}

func (a *Adapters) bookFromLexical(hit LexicalHit) (Candidate[BookKey], bool) {
	return a.bookFromPayload(VectorHit{Payload: hit.Payload})
}

func ayahFromPayload(hit VectorHit) (Candidate[AyahKey], bool) {
	surah := payloadInt(hit.Payload, "surah")
	ayah := payloadInt(hit.Payload, "ayah")
	if surah == 0 || ayah == 0 {
		return Candidate[AyahKey]{}, false
	}
	return Candidate[AyahKey]{
		Key:   AyahKey{Surah: surah, Ayah: ayah},
		Text:  payloadString(hit.Payload, "text"),
		Title: payloadString(hit.Payload, "surah_name"),
	}, true
}

func ayahFromLexical(hit LexicalHit) (Candidate[AyahKey], bool) {
	return ayahFromPayload(VectorHit{Payload: hit.Payload})
}

func hadithFromPayload(hit VectorHit) (Candidate[HadithKey], bool) {
	collection := payloadString(hit.Payload, "collection")
	number := payloadInt(hit.Payload, "number")
	if collection == "" || number == 0 {
		return Candidate[HadithKey]{}, false
	}
	return Candidate[HadithKey]{
		Key:   HadithKey{Collection: collection, Number: number},
		Text:  payloadString(hit.Payload, "text"),
		Title: payloadString(hit.Payload, "collection_title"),
	}, true
}

func hadithFromLexical(hit LexicalHit) (Candidate[HadithKey], bool) {
	return hadithFromPayload(VectorHit{Payload: hit.Payload})
}

// payloadInt reads an integer field that may arrive as int, int64 or float64
// depending on the transport.
func payloadInt(payload map[string]any, key string) int {
	switch v := payload[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

func payloadString(payload map[string]any, key string) string {
	if s, ok := payload[key].(string); ok {
		return s
	}
	return ""
}
