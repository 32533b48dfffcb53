package search

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baheth/baheth/internal/query"
)

type stubStore struct {
	books        map[int]BookMeta
	authors      map[int]AuthorMeta
	translations map[int]string
	booksErr     error
	bookCalls    [][]int
	langCalls    []string
}

func (s *stubStore) BooksByID(_ context.Context, ids []int) (map[int]BookMeta, error) {
	s.bookCalls = append(s.bookCalls, ids)
	if s.booksErr != nil {
		return nil, s.booksErr
	}
	return s.books, nil
}

func (s *stubStore) AuthorsByID(_ context.Context, _ []int) (map[int]AuthorMeta, error) {
	return s.authors, nil
}

func (s *stubStore) TranslatedTitles(_ context.Context, _ []int, lang string) (map[int]string, error) {
	s.langCalls = append(s.langCalls, lang)
	return s.translations, nil
}

type engineFixture struct {
	vector   *stubVector
	lexical  *stubLexical
	embedder *stubEmbedder
	engine   *Engine
}

func newEngineFixture(t *testing.T, mutate func(*EngineConfig), opts ...EngineOption) *engineFixture {
	t.Helper()
	cfg := DefaultEngineConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	f := &engineFixture{
		vector:   &stubVector{hits: map[string][]VectorHit{}},
		lexical:  &stubLexical{hits: map[string][]LexicalHit{}},
		embedder: &stubEmbedder{},
	}
	adapters := NewAdapters(f.vector, f.lexical, f.embedder, cfg)
	f.engine = NewEngine(adapters, query.NewNormalizer(), cfg, opts...)
	return f
}

func TestSearch_ValidatesInput(t *testing.T) {
	f := newEngineFixture(t, nil)

	tests := []struct {
		name    string
		req     Request
		wantErr error
	}{
		{"empty query", Request{}, ErrEmptyQuery},
		{"query too long", Request{Query: strings.Repeat("ا", 501)}, ErrQueryTooLong},
		{"unknown mode", Request{Query: "الصبر الجميل", Mode: "vector"}, ErrInvalidMode},
		{"negative limit", Request{Query: "الصبر الجميل", Limit: -1}, ErrInvalidLimit},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.engine.Search(context.Background(), tt.req)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestSearch_HybridFusesBothPaths(t *testing.T) {
	// Given: one page found by both paths and one by keyword only
	f := newEngineFixture(t, nil)
	f.vector.hits["book_pages"] = []VectorHit{
		{Score: 0.9, Payload: bookPayload(1, 5)},
	}
	f.lexical.hits["book_pages"] = []LexicalHit{
		{Score: 12, Snippet: "snippet", Payload: bookPayload(1, 5)},
		{Score: 8, Payload: bookPayload(2, 3)},
	}

	resp, err := f.engine.Search(context.Background(), Request{Query: "فضل الصدقة", Books: true})

	require.NoError(t, err)
	require.Len(t, resp.Books, 2)
	// The doubly-confirmed page wins with its bonus-boosted score.
	assert.Equal(t, 1, resp.Books[0].BookID)
	assert.Equal(t, 5, resp.Books[0].Page)
	assert.Greater(t, resp.Books[0].Scores.Fused, resp.Books[1].Scores.Fused)
	assert.Equal(t, "none", resp.Diagnostics.Reranker)
	assert.False(t, resp.Diagnostics.Refined)
	assert.Empty(t, resp.Ayahs)
	assert.Empty(t, resp.Hadiths)
}

func TestSearch_DefaultTogglesQueryAllTypes(t *testing.T) {
	f := newEngineFixture(t, nil)

	_, err := f.engine.Search(context.Background(), Request{Query: "فضل الصدقة"})

	require.NoError(t, err)
	indices := make(map[string]bool)
	for _, c := range f.lexical.calls {
		indices[c.index] = true
	}
	assert.True(t, indices["book_pages"])
	assert.True(t, indices["ayahs"])
	assert.True(t, indices["hadiths"])
}

func TestSearch_TypeToggleLimitsRetrieval(t *testing.T) {
	f := newEngineFixture(t, nil)

	_, err := f.engine.Search(context.Background(), Request{Query: "فضل الصدقة", Ayahs: true})

	require.NoError(t, err)
	for _, c := range f.lexical.calls {
		assert.Equal(t, "ayahs", c.index)
	}
	for _, c := range f.vector.calls {
		assert.Equal(t, "ayahs", c.collection)
	}
}

func TestSearch_KeywordModeNeverEmbeds(t *testing.T) {
	f := newEngineFixture(t, nil)

	resp, err := f.engine.Search(context.Background(), Request{Query: "فضل الصدقة", Mode: ModeKeyword})

	require.NoError(t, err)
	assert.Equal(t, 0, f.embedder.calls)
	assert.Empty(t, f.vector.calls)
	assert.True(t, resp.Diagnostics.SemanticSkipped)
}

func TestSearch_SemanticModeSkipsKeyword(t *testing.T) {
	f := newEngineFixture(t, nil)

	resp, err := f.engine.Search(context.Background(), Request{Query: "فضل الصدقة", Mode: ModeSemantic})

	require.NoError(t, err)
	assert.Empty(t, f.lexical.calls)
	assert.True(t, resp.Diagnostics.KeywordSkipped)
	assert.Equal(t, 1, f.embedder.calls)
}

func TestSearch_ShortQueryReturnsKeywordResultsWithoutEmbedding(t *testing.T) {
	// Given: a query below the semantic minimum
	f := newEngineFixture(t, nil)
	f.lexical.hits["ayahs"] = []LexicalHit{
		{Score: 5, Payload: map[string]any{"surah": 112, "ayah": 1, "text": "قل هو الله احد"}},
	}

	resp, err := f.engine.Search(context.Background(), Request{Query: "قل", Ayahs: true})

	require.NoError(t, err)
	assert.Equal(t, 0, f.embedder.calls)
	assert.Empty(t, f.vector.calls)
	require.Len(t, resp.Ayahs, 1)
	assert.True(t, resp.Diagnostics.SemanticSkipped)
	assert.False(t, resp.Diagnostics.KeywordFallback)
}

func TestSearch_EmbeddingFailureDegradesToKeywordOnly(t *testing.T) {
	f := newEngineFixture(t, nil)
	f.embedder.err = errors.New("model down")
	f.lexical.hits["book_pages"] = []LexicalHit{
		{Score: 9, Payload: bookPayload(4, 2)},
	}

	resp, err := f.engine.Search(context.Background(), Request{Query: "فضل الصدقة", Books: true})

	require.NoError(t, err)
	require.Len(t, resp.Books, 1)
	assert.Empty(t, f.vector.calls)
}

func TestSearch_IndexNotReadyPropagates(t *testing.T) {
	f := newEngineFixture(t, nil)
	f.vector.err = fmt.Errorf("%w: collection %q", ErrIndexNotReady, "ayahs")

	_, err := f.engine.Search(context.Background(), Request{Query: "فضل الصدقة"})

	assert.ErrorIs(t, err, ErrIndexNotReady)
}

func TestSearch_FuzzyFallbackSurfacesInDiagnostics(t *testing.T) {
	f := newEngineFixture(t, nil)
	f.lexical.fuzzyHits = map[string][]LexicalHit{
		"book_pages": {{Score: 2, Payload: bookPayload(9, 1)}},
	}

	resp, err := f.engine.Search(context.Background(), Request{Query: "فضل الصدقة", Books: true, Mode: ModeKeyword})

	require.NoError(t, err)
	assert.True(t, resp.Diagnostics.KeywordFallback)
	require.Len(t, resp.Books, 1)
}

func TestSearch_LimitClampedToMax(t *testing.T) {
	f := newEngineFixture(t, nil)

	_, err := f.engine.Search(context.Background(), Request{Query: "فضل الصدقة", Limit: 5000, Books: true, Mode: ModeKeyword})

	require.NoError(t, err)
	require.NotEmpty(t, f.lexical.calls)
}

func TestSearch_EnrichesBookHitsWithAuthorMetadata(t *testing.T) {
	store := &stubStore{
		books:   map[int]BookMeta{3: {ID: 3, Title: "المجموع", AuthorID: 11}},
		authors: map[int]AuthorMeta{11: {ID: 11, Name: "النووي", Died: 676}},
	}
	f := newEngineFixture(t, nil, WithMetadataStore(store))
	f.lexical.hits["book_pages"] = []LexicalHit{
		{Score: 5, Payload: map[string]any{"book_id": 3, "page": 14, "text": "نص"}},
	}

	resp, err := f.engine.Search(context.Background(), Request{Query: "فضل الصدقة", Books: true, Mode: ModeKeyword})

	require.NoError(t, err)
	require.Len(t, resp.Books, 1)
	assert.Equal(t, "المجموع", resp.Books[0].Title)
	assert.Equal(t, "النووي", resp.Books[0].AuthorName)
	assert.Equal(t, 676, resp.Books[0].AuthorDied)
}

func TestSearch_TranslatedTitleRequestedByLang(t *testing.T) {
	store := &stubStore{
		books:        map[int]BookMeta{3: {ID: 3, Title: "المجموع", AuthorID: 11}},
		authors:      map[int]AuthorMeta{11: {ID: 11, Name: "النووي", Died: 676}},
		translations: map[int]string{3: "The Compendium"},
	}
	f := newEngineFixture(t, nil, WithMetadataStore(store))
	f.lexical.hits["book_pages"] = []LexicalHit{
		{Score: 5, Payload: bookPayload(3, 14)},
	}

	resp, err := f.engine.Search(context.Background(), Request{
		Query: "فضل الصدقة", Books: true, Mode: ModeKeyword, TitleLang: "en",
	})

	require.NoError(t, err)
	require.Len(t, resp.Books, 1)
	assert.Equal(t, "المجموع", resp.Books[0].Title)
	assert.Equal(t, "The Compendium", resp.Books[0].TranslatedTitle)
	assert.Equal(t, []string{"en"}, store.langCalls)
}

func TestSearch_NoTranslationLookupWithoutLang(t *testing.T) {
	store := &stubStore{
		books:        map[int]BookMeta{3: {ID: 3, Title: "المجموع"}},
		translations: map[int]string{3: "The Compendium"},
	}
	f := newEngineFixture(t, nil, WithMetadataStore(store))
	f.lexical.hits["book_pages"] = []LexicalHit{
		{Score: 5, Payload: bookPayload(3, 14)},
	}

	resp, err := f.engine.Search(context.Background(), Request{Query: "فضل الصدقة", Books: true, Mode: ModeKeyword})

	require.NoError(t, err)
	require.Len(t, resp.Books, 1)
	assert.Empty(t, resp.Books[0].TranslatedTitle)
	assert.Empty(t, store.langCalls)
}

func TestSearch_EnrichmentFailureReturnsUnenrichedResults(t *testing.T) {
	store := &stubStore{booksErr: errors.New("db down")}
	f := newEngineFixture(t, nil, WithMetadataStore(store))
	f.lexical.hits["book_pages"] = []LexicalHit{
		{Score: 5, Payload: bookPayload(3, 14)},
	}

	resp, err := f.engine.Search(context.Background(), Request{Query: "فضل الصدقة", Books: true, Mode: ModeKeyword})

	require.NoError(t, err)
	require.Len(t, resp.Books, 1)
	assert.Empty(t, resp.Books[0].AuthorName)
}

func TestSearch_ListwiseRerankerReordersWithinType(t *testing.T) {
	// Given: fusion would rank page 1 first, but the model prefers page 2
	completer := &stubCompleter{response: "[2, 1]"}
	reranker := &ListwiseReranker{Completer: completer, Model: "test", Timeout: time.Second}
	f := newEngineFixture(t, nil, WithReranker(reranker))
	f.lexical.hits["book_pages"] = []LexicalHit{
		{Score: 10, Payload: bookPayload(1, 1)},
		{Score: 5, Payload: bookPayload(1, 2)},
	}

	resp, err := f.engine.Search(context.Background(), Request{Query: "فضل الصدقة", Books: true, Mode: ModeKeyword})

	require.NoError(t, err)
	require.Len(t, resp.Books, 2)
	assert.Equal(t, 2, resp.Books[0].Page)
	assert.Equal(t, 1, resp.Books[1].Page)
	assert.Equal(t, "listwise", resp.Diagnostics.Reranker)
}

func TestSearch_RerankTimeoutFlaggedAndOrderPreserved(t *testing.T) {
	slow := completerFunc(func(ctx context.Context, _ string) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	reranker := &ListwiseReranker{Completer: slow, Model: "test", Timeout: 5 * time.Millisecond}
	f := newEngineFixture(t, nil, WithReranker(reranker))
	f.lexical.hits["book_pages"] = []LexicalHit{
		{Score: 10, Payload: bookPayload(1, 1)},
		{Score: 5, Payload: bookPayload(1, 2)},
	}

	resp, err := f.engine.Search(context.Background(), Request{Query: "فضل الصدقة", Books: true, Mode: ModeKeyword})

	require.NoError(t, err)
	assert.True(t, resp.Diagnostics.RerankTimedOut)
	require.Len(t, resp.Books, 2)
	assert.Equal(t, 1, resp.Books[0].Page)
}

func TestSearch_RefineWithoutExpanderFallsBackToStandard(t *testing.T) {
	f := newEngineFixture(t, nil)

	resp, err := f.engine.Search(context.Background(), Request{Query: "فضل الصدقة", Refine: true, Mode: ModeKeyword})

	require.NoError(t, err)
	assert.False(t, resp.Diagnostics.Refined)
	assert.Empty(t, resp.Diagnostics.Expansions)
}

func TestSearch_RefineMergesExpansionsAndRecordsThem(t *testing.T) {
	// Given: the expander produces one alternate that finds an extra page
	expCompleter := &stubCompleter{
		response: `[{"query":"زكاة المال","reason":"synonym"}]`,
	}
	f := newEngineFixture(t, nil,
		WithExpander(NewExpander(expCompleter, nil, DefaultEngineConfig())))
	f.lexical.hits["book_pages"] = []LexicalHit{
		{Score: 10, Payload: bookPayload(1, 1)},
	}

	resp, err := f.engine.Search(context.Background(), Request{Query: "فضل الصدقة", Books: true, Refine: true, Mode: ModeKeyword})

	require.NoError(t, err)
	assert.True(t, resp.Diagnostics.Refined)
	require.Len(t, resp.Diagnostics.Expansions, 2)
	assert.Equal(t, "فضل الصدقة", resp.Diagnostics.Expansions[0].Query)
	// Found by both phrasings, so present exactly once.
	require.Len(t, resp.Books, 1)
	assert.Equal(t, 1, resp.Books[0].BookID)
}

func TestSearch_RefineUnifiedRerankOrdersAcrossTypes(t *testing.T) {
	// Given: one book page and one ayah, and a unified model preferring the ayah
	expCompleter := &stubCompleter{response: `[]`}
	rerankCompleter := &stubCompleter{response: "[2, 3, 1]"}
	unified := &UnifiedReranker{Listwise: &ListwiseReranker{
		Completer: rerankCompleter, Model: "test", Timeout: time.Second,
	}}
	f := newEngineFixture(t, nil,
		WithExpander(NewExpander(expCompleter, nil, DefaultEngineConfig())),
		WithUnifiedReranker(unified))
	f.lexical.hits["book_pages"] = []LexicalHit{
		{Score: 10, Payload: bookPayload(1, 1)},
		{Score: 8, Payload: bookPayload(1, 2)},
	}
	f.lexical.hits["ayahs"] = []LexicalHit{
		{Score: 6, Payload: map[string]any{"surah": 2, "ayah": 261, "text": "مثل الذين ينفقون"}},
	}

	resp, err := f.engine.Search(context.Background(), Request{Query: "فضل الصدقة", Refine: true, Mode: ModeKeyword})

	require.NoError(t, err)
	assert.False(t, resp.Diagnostics.UnifiedSkipped)
	// Cross-type scores descend from 1.0 in model order; the ayah outranks both pages.
	require.Len(t, resp.Ayahs, 1)
	require.Len(t, resp.Books, 2)
	assert.InDelta(t, 0.99, resp.Ayahs[0].Scores.Fused, 1e-9)
	assert.InDelta(t, 1.0, resp.Books[0].Scores.Fused, 1e-9)
	assert.Equal(t, 2, resp.Books[0].Page)
}

func TestSearch_RefineUnifiedKeepsFullRequestedLimit(t *testing.T) {
	// Given: more matching pages than a single-query rerank head would hold
	expCompleter := &stubCompleter{response: `[]`}
	rerankCompleter := &stubCompleter{response: `[]`}
	unified := &UnifiedReranker{Listwise: &ListwiseReranker{
		Completer: rerankCompleter, Model: "test", Timeout: time.Second,
	}}
	f := newEngineFixture(t, nil,
		WithExpander(NewExpander(expCompleter, nil, DefaultEngineConfig())),
		WithUnifiedReranker(unified))
	hits := make([]LexicalHit, 0, 10)
	for page := 1; page <= 10; page++ {
		hits = append(hits, LexicalHit{Score: float64(20 - page), Payload: bookPayload(1, page)})
	}
	f.lexical.hits["book_pages"] = hits

	resp, err := f.engine.Search(context.Background(), Request{
		Query: "فضل الصدقة", Books: true, Refine: true, Mode: ModeKeyword, Limit: 10,
	})

	// Then: the cross-type rerank does not shrink the answer below the
	// requested limit
	require.NoError(t, err)
	require.Len(t, resp.Books, 10)
	assert.Equal(t, 1, resp.Books[0].Page)
	assert.Equal(t, 10, resp.Books[9].Page)
}

func TestSearch_RefineUnifiedSkipsSmallSets(t *testing.T) {
	expCompleter := &stubCompleter{response: `[]`}
	rerankCompleter := &stubCompleter{}
	unified := &UnifiedReranker{Listwise: &ListwiseReranker{
		Completer: rerankCompleter, Model: "test", Timeout: time.Second,
	}}
	f := newEngineFixture(t, nil,
		WithExpander(NewExpander(expCompleter, nil, DefaultEngineConfig())),
		WithUnifiedReranker(unified))
	f.lexical.hits["book_pages"] = []LexicalHit{
		{Score: 10, Payload: bookPayload(1, 1)},
	}

	resp, err := f.engine.Search(context.Background(), Request{Query: "فضل الصدقة", Refine: true, Mode: ModeKeyword})

	require.NoError(t, err)
	assert.True(t, resp.Diagnostics.UnifiedSkipped)
	assert.Equal(t, 0, rerankCompleter.calls)
	require.Len(t, resp.Books, 1)
}
