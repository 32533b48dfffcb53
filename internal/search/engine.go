package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/baheth/baheth/internal/query"
)

// Request validation errors. These map to 4xx responses at the API layer;
// everything else the engine degrades around.
var (
	ErrEmptyQuery   = errors.New("query must not be empty")
	ErrQueryTooLong = errors.New("query exceeds maximum length")
	ErrInvalidMode  = errors.New("invalid search mode")
	ErrInvalidLimit = errors.New("limit must be positive")
)

// BookMeta is catalog metadata for one book.
type BookMeta struct {
	ID       int
	Title    string
	AuthorID int
}

// AuthorMeta is catalog metadata for one author.
type AuthorMeta struct {
	ID   int
	Name string
	Died int
}

// MetadataStore enriches book results with catalog metadata. Lookups are
// batched once per request; a nil store disables enrichment.
type MetadataStore interface {
	BooksByID(ctx context.Context, ids []int) (map[int]BookMeta, error)
	AuthorsByID(ctx context.Context, ids []int) (map[int]AuthorMeta, error)
	TranslatedTitles(ctx context.Context, ids []int, lang string) (map[int]string, error)
}

// Request is one search request after transport decoding.
type Request struct {
	Query string
	Limit int
	Mode  Mode

	// Refine switches on multi-query expansion with unified cross-type
	// reranking.
	Refine bool

	// BookID restricts book-page retrieval to one book (0 = all books).
	BookID int

	// Content-type toggles. All false means all types.
	Books   bool
	Ayahs   bool
	Hadiths bool

	// Cutoff overrides the default semantic similarity threshold (0 = default).
	Cutoff float64

	// TitleLang requests translated book titles in the given language
	// ("" = no translation lookup).
	TitleLang string
}

func (r Request) wantsBooks() bool   { return r.Books || (!r.Books && !r.Ayahs && !r.Hadiths) }
func (r Request) wantsAyahs() bool   { return r.Ayahs || (!r.Books && !r.Ayahs && !r.Hadiths) }
func (r Request) wantsHadiths() bool { return r.Hadiths || (!r.Books && !r.Ayahs && !r.Hadiths) }

// Scores carries every relevance signal a result accumulated.
type Scores struct {
	Semantic float64 `json:"semantic,omitempty"`
	BM25     float64 `json:"bm25,omitempty"`
	RRF      float64 `json:"rrf,omitempty"`
	Fused    float64 `json:"fused"`
}

// BookHit is one book-page result.
type BookHit struct {
	BookID          int    `json:"book_id"`
	Page            int    `json:"page"`
	Title           string `json:"title,omitempty"`
	TranslatedTitle string `json:"translated_title,omitempty"`
	AuthorName      string `json:"author_name,omitempty"`
	AuthorDied      int    `json:"author_died,omitempty"`
	Text            string `json:"text"`
	Snippet         string `json:"snippet,omitempty"`
	Scores          Scores `json:"scores"`
}

// AyahHit is one Quran verse result.
type AyahHit struct {
	Surah     int    `json:"surah"`
	Ayah      int    `json:"ayah"`
	SurahName string `json:"surah_name,omitempty"`
	Text      string `json:"text"`
	Snippet   string `json:"snippet,omitempty"`
	Scores    Scores `json:"scores"`
}

// HadithHit is one narration result.
type HadithHit struct {
	Collection      string `json:"collection"`
	Number          int    `json:"number"`
	CollectionTitle string `json:"collection_title,omitempty"`
	Text            string `json:"text"`
	Snippet         string `json:"snippet,omitempty"`
	Scores          Scores `json:"scores"`
}

// Diagnostics reports how a request was actually served, including every
// degradation that occurred.
type Diagnostics struct {
	Mode            Mode            `json:"mode"`
	Refined         bool            `json:"refined"`
	Expansions      []ExpandedQuery `json:"expansions,omitempty"`
	Reranker        string          `json:"reranker"`
	RerankTimedOut  bool            `json:"rerank_timed_out,omitempty"`
	UnifiedSkipped  bool            `json:"unified_skipped,omitempty"`
	SemanticSkipped bool            `json:"semantic_skipped,omitempty"`
	KeywordSkipped  bool            `json:"keyword_skipped,omitempty"`
	KeywordFallback bool            `json:"keyword_fallback,omitempty"`
	ElapsedMS       int64           `json:"elapsed_ms"`
}

// Response is the full search answer.
type Response struct {
	Query       string      `json:"query"`
	Books       []BookHit   `json:"books"`
	Ayahs       []AyahHit   `json:"ayahs"`
	Hadiths     []HadithHit `json:"hadiths"`
	Diagnostics Diagnostics `json:"diagnostics"`
}

// Engine orchestrates the full pipeline: analyze, retrieve in parallel, fuse,
// optionally expand and merge, rerank, enrich.
type Engine struct {
	adapters   *Adapters
	normalizer *query.Normalizer
	expander   *Expander
	reranker   Reranker
	unified    *UnifiedReranker
	store      MetadataStore
	cfg        EngineConfig
	logger     *slog.Logger
}

// EngineOption configures optional engine collaborators.
type EngineOption func(*Engine)

// WithExpander enables refine mode.
func WithExpander(e *Expander) EngineOption {
	return func(eng *Engine) { eng.expander = e }
}

// WithReranker sets the per-type rerank strategy. Defaults to NoneReranker.
func WithReranker(r Reranker) EngineOption {
	return func(eng *Engine) { eng.reranker = r }
}

// WithUnifiedReranker enables cross-type reranking for refine mode.
func WithUnifiedReranker(u *UnifiedReranker) EngineOption {
	return func(eng *Engine) { eng.unified = u }
}

// WithMetadataStore enables book/author enrichment.
func WithMetadataStore(s MetadataStore) EngineOption {
	return func(eng *Engine) { eng.store = s }
}

// WithLogger overrides the default logger.
func WithLogger(l *slog.Logger) EngineOption {
	return func(eng *Engine) { eng.logger = l }
}

// NewEngine wires the orchestrator.
func NewEngine(adapters *Adapters, normalizer *query.Normalizer, cfg EngineConfig, opts ...EngineOption) *Engine {
	eng := &Engine{
		adapters:   adapters,
		normalizer: normalizer,
		reranker:   NoneReranker{},
		cfg:        cfg,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(eng)
	}
	return eng
}

// Search serves one request. The only returned errors are input validation
// failures and ErrIndexNotReady; every downstream failure degrades to partial
// or empty results recorded in Diagnostics.
func (e *Engine) Search(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()

	req, err := e.validate(req)
	if err != nil {
		return nil, err
	}

	plan := e.plan(req.Query, req.Mode, req.Cutoff)

	resp := &Response{
		Query:   req.Query,
		Books:   []BookHit{},
		Ayahs:   []AyahHit{},
		Hadiths: []HadithHit{},
		Diagnostics: Diagnostics{
			Mode:            req.Mode,
			Refined:         req.Refine,
			Reranker:        e.reranker.Name(),
			SemanticSkipped: plan.SkipSemantic,
			KeywordSkipped:  plan.SkipKeyword,
		},
	}

	if req.Refine && e.expander != nil {
		err = e.searchRefined(ctx, req, plan, resp)
	} else {
		resp.Diagnostics.Refined = false
		err = e.searchStandard(ctx, req, plan, resp)
	}
	if err != nil {
		return nil, err
	}

	e.enrichBooks(ctx, resp, req.TitleLang)

	resp.Diagnostics.ElapsedMS = time.Since(start).Milliseconds()
	e.logger.Info("search served",
		slog.String("mode", string(req.Mode)),
		slog.Bool("refined", resp.Diagnostics.Refined),
		slog.Int("books", len(resp.Books)),
		slog.Int("ayahs", len(resp.Ayahs)),
		slog.Int("hadiths", len(resp.Hadiths)),
		slog.Int64("elapsed_ms", resp.Diagnostics.ElapsedMS))
	return resp, nil
}

func (e *Engine) validate(req Request) (Request, error) {
	if req.Query == "" {
		return req, ErrEmptyQuery
	}
	if utf8.RuneCountInString(req.Query) > e.cfg.MaxQueryChars {
		return req, fmt.Errorf("%w: %d > %d runes", ErrQueryTooLong,
			utf8.RuneCountInString(req.Query), e.cfg.MaxQueryChars)
	}
	if req.Mode == "" {
		req.Mode = ModeHybrid
	}
	if !req.Mode.Valid() {
		return req, fmt.Errorf("%w: %q", ErrInvalidMode, req.Mode)
	}
	if req.Limit < 0 {
		return req, ErrInvalidLimit
	}
	if req.Limit == 0 {
		req.Limit = e.cfg.DefaultLimit
	}
	if req.Limit > e.cfg.MaxLimit {
		req.Limit = e.cfg.MaxLimit
	}
	return req, nil
}

// plan analyzes the query, then overlays the requested mode on top of the
// analyzer's own skip decisions. The analyzer can only add skips (a quoted
// phrase still disables the semantic path in hybrid mode), never remove them.
func (e *Engine) plan(q string, mode Mode, cutoff float64) query.Plan {
	base := cutoff
	if base <= 0 {
		base = e.cfg.DefaultCutoff
	}
	plan := e.normalizer.Analyze(q, query.Options{
		BaseCutoff:   base,
		SemanticOnly: mode == ModeSemantic,
	})
	if mode == ModeKeyword {
		plan.SkipSemantic = true
	}
	return plan
}

// searchStandard is the non-refine pipeline: parallel retrieval, per-type
// fusion, per-type rerank.
//
// Phase one runs the three keyword searches concurrently with the single
// embedding call; phase two fans out the three semantic searches sharing that
// embedding. No branch mutates shared state; each writes its own slot and
// results are read only after Wait.
func (e *Engine) searchStandard(ctx context.Context, req Request, plan query.Plan, resp *Response) error {
	var (
		embedding []float32
		bookKW    Retrieval[BookKey]
		ayahKW    Retrieval[AyahKey]
		hadithKW  Retrieval[HadithKey]
	)

	g, gctx := errgroup.WithContext(ctx)
	if !plan.SkipSemantic {
		g.Go(func() error {
			vec, err := e.adapters.QueryEmbedding(gctx, plan, nil)
			if err != nil {
				// Fail soft here; the semantic adapters will skip on
				// a nil embedding the same way.
				e.logger.Warn("query embedding failed",
					slog.String("error", err.Error()))
				return nil
			}
			embedding = vec
			return nil
		})
	}
	if req.wantsBooks() {
		g.Go(func() error {
			bookKW = e.adapters.KeywordBooks(gctx, plan, req.Limit, req.BookID)
			return nil
		})
	}
	if req.wantsAyahs() {
		g.Go(func() error {
			ayahKW = e.adapters.KeywordAyahs(gctx, plan, req.Limit)
			return nil
		})
	}
	if req.wantsHadiths() {
		g.Go(func() error {
			hadithKW = e.adapters.KeywordHadiths(gctx, plan, req.Limit)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	var (
		bookSem   Retrieval[BookKey]
		ayahSem   Retrieval[AyahKey]
		hadithSem Retrieval[HadithKey]
	)

	// The embedding either succeeded or stays nil; with a nil embedding and a
	// non-skipped plan the adapter would re-embed, so force the skip instead.
	semPlan := plan
	if !plan.SkipSemantic && embedding == nil {
		semPlan.SkipSemantic = true
	}

	g, gctx = errgroup.WithContext(ctx)
	if req.wantsBooks() {
		g.Go(func() error {
			var err error
			bookSem, err = e.adapters.SemanticBooks(gctx, semPlan, req.Limit, req.BookID, embedding)
			return err
		})
	}
	if req.wantsAyahs() {
		g.Go(func() error {
			var err error
			ayahSem, err = e.adapters.SemanticAyahs(gctx, semPlan, req.Limit, embedding)
			return err
		})
	}
	if req.wantsHadiths() {
		g.Go(func() error {
			var err error
			hadithSem, err = e.adapters.SemanticHadiths(gctx, semPlan, req.Limit, embedding)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	resp.Diagnostics.KeywordFallback = bookKW.Meta.UsedFallback ||
		ayahKW.Meta.UsedFallback || hadithKW.Meta.UsedFallback

	books := Fuse(bookSem.Results, bookKW.Results, e.cfg.Fusion)
	ayahs := Fuse(ayahSem.Results, ayahKW.Results, e.cfg.Fusion)
	hadiths := Fuse(hadithSem.Results, hadithKW.Results, e.cfg.Fusion)

	var timedOut bool
	books, timedOut = rerankFused(ctx, e.reranker, plan.Raw, books, req.Limit)
	resp.Diagnostics.RerankTimedOut = resp.Diagnostics.RerankTimedOut || timedOut
	ayahs, timedOut = rerankFused(ctx, e.reranker, plan.Raw, ayahs, req.Limit)
	resp.Diagnostics.RerankTimedOut = resp.Diagnostics.RerankTimedOut || timedOut
	hadiths, timedOut = rerankFused(ctx, e.reranker, plan.Raw, hadiths, req.Limit)
	resp.Diagnostics.RerankTimedOut = resp.Diagnostics.RerankTimedOut || timedOut

	resp.Books = bookHits(books)
	resp.Ayahs = ayahHits(ayahs)
	resp.Hadiths = hadithHits(hadiths)
	return nil
}

// searchRefined is the refine pipeline: expand the query, run the full hybrid
// retrieval per expansion concurrently, merge per type with weighted RRF, then
// run one unified cross-type rerank over the per-type heads.
func (e *Engine) searchRefined(ctx context.Context, req Request, plan query.Plan, resp *Response) error {
	expansions := e.expander.Expand(ctx, plan.Raw)
	resp.Diagnostics.Expansions = expansions

	perQueryBooks := make([]WeightedList[BookKey], len(expansions))
	perQueryAyahs := make([]WeightedList[AyahKey], len(expansions))
	perQueryHadiths := make([]WeightedList[HadithKey], len(expansions))

	fetchLimit := e.cfg.RefinePerTypeCap
	if fetchLimit <= 0 {
		fetchLimit = req.Limit
	}

	g, gctx := errgroup.WithContext(ctx)
	for i, exp := range expansions {
		g.Go(func() error {
			// Each expansion gets its own plan; an expanded phrasing
			// may differ in length or script from the original.
			expPlan := e.plan(exp.Query, req.Mode, req.Cutoff)

			books, ayahs, hadiths, err := e.retrieveOne(gctx, req, expPlan, fetchLimit)
			if err != nil {
				return err
			}
			perQueryBooks[i] = WeightedList[BookKey]{Results: books, Weight: exp.Weight}
			perQueryAyahs[i] = WeightedList[AyahKey]{Results: ayahs, Weight: exp.Weight}
			perQueryHadiths[i] = WeightedList[HadithKey]{Results: hadiths, Weight: exp.Weight}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	books := MergeWeighted(perQueryBooks, e.cfg.Fusion)
	ayahs := MergeWeighted(perQueryAyahs, e.cfg.Fusion)
	hadiths := MergeWeighted(perQueryHadiths, e.cfg.Fusion)

	if e.unified == nil {
		resp.Books = bookHits(capFused(books, req.Limit))
		resp.Ayahs = ayahHits(capFused(ayahs, req.Limit))
		resp.Hadiths = hadithHits(capFused(hadiths, req.Limit))
		return nil
	}

	// The refine path feeds the unified reranker a wider per-type head than a
	// single-query rerank would get; the requested limit is applied after the
	// model has ordered the whole pool.
	perTypeCap := e.cfg.RefinePerTypeCap
	if perTypeCap <= 0 {
		perTypeCap = e.cfg.UnifiedPerTypeCap
	}
	books = capFused(books, perTypeCap)
	ayahs = capFused(ayahs, perTypeCap)
	hadiths = capFused(hadiths, perTypeCap)

	combined := make([]UnifiedCandidate, 0, len(books)+len(ayahs)+len(hadiths))
	for i, r := range books {
		combined = append(combined, UnifiedCandidate{
			Type: TypeBook, SourceIndex: i,
			FormattedText: rerankDoc(r.Text, r.Snippet), OriginalScore: r.FusedScore,
		})
	}
	for i, r := range ayahs {
		combined = append(combined, UnifiedCandidate{
			Type: TypeAyah, SourceIndex: i,
			FormattedText: rerankDoc(r.Text, r.Snippet), OriginalScore: r.FusedScore,
		})
	}
	for i, r := range hadiths {
		combined = append(combined, UnifiedCandidate{
			Type: TypeHadith, SourceIndex: i,
			FormattedText: rerankDoc(r.Text, r.Snippet), OriginalScore: r.FusedScore,
		})
	}

	outcome := e.unified.Rerank(ctx, plan.Raw, combined)
	resp.Diagnostics.RerankTimedOut = outcome.TimedOut
	resp.Diagnostics.UnifiedSkipped = outcome.Skipped

	rankedBooks, rankedAyahs, rankedHadiths := SplitByType(outcome.Ranked, req.Limit, req.Limit, req.Limit)

	resp.Books = make([]BookHit, 0, len(rankedBooks))
	for _, rc := range rankedBooks {
		hit := bookHit(books[rc.SourceIndex])
		hit.Scores.Fused = rc.Score
		resp.Books = append(resp.Books, hit)
	}
	resp.Ayahs = make([]AyahHit, 0, len(rankedAyahs))
	for _, rc := range rankedAyahs {
		hit := ayahHit(ayahs[rc.SourceIndex])
		hit.Scores.Fused = rc.Score
		resp.Ayahs = append(resp.Ayahs, hit)
	}
	resp.Hadiths = make([]HadithHit, 0, len(rankedHadiths))
	for _, rc := range rankedHadiths {
		hit := hadithHit(hadiths[rc.SourceIndex])
		hit.Scores.Fused = rc.Score
		resp.Hadiths = append(resp.Hadiths, hit)
	}
	return nil
}

// retrieveOne runs the hybrid retrieval and fusion for one query phrasing.
// The three types run concurrently; within a type the two paths run in
// sequence because the keyword path needs no embedding anyway.
func (e *Engine) retrieveOne(ctx context.Context, req Request, plan query.Plan, limit int) (
	[]FusedResult[BookKey], []FusedResult[AyahKey], []FusedResult[HadithKey], error,
) {
	var (
		embedding []float32
		books     []FusedResult[BookKey]
		ayahs     []FusedResult[AyahKey]
		hadiths   []FusedResult[HadithKey]
	)

	if !plan.SkipSemantic {
		vec, err := e.adapters.QueryEmbedding(ctx, plan, nil)
		if err != nil {
			e.logger.Warn("expansion embedding failed",
				slog.String("error", err.Error()))
			plan.SkipSemantic = true
		} else {
			embedding = vec
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	if req.wantsBooks() {
		g.Go(func() error {
			sem, err := e.adapters.SemanticBooks(gctx, plan, limit, req.BookID, embedding)
			if err != nil {
				return err
			}
			kw := e.adapters.KeywordBooks(gctx, plan, limit, req.BookID)
			books = Fuse(sem.Results, kw.Results, e.cfg.Fusion)
			return nil
		})
	}
	if req.wantsAyahs() {
		g.Go(func() error {
			sem, err := e.adapters.SemanticAyahs(gctx, plan, limit, embedding)
			if err != nil {
				return err
			}
			kw := e.adapters.KeywordAyahs(gctx, plan, limit)
			ayahs = Fuse(sem.Results, kw.Results, e.cfg.Fusion)
			return nil
		})
	}
	if req.wantsHadiths() {
		g.Go(func() error {
			sem, err := e.adapters.SemanticHadiths(gctx, plan, limit, embedding)
			if err != nil {
				return err
			}
			kw := e.adapters.KeywordHadiths(gctx, plan, limit)
			hadiths = Fuse(sem.Results, kw.Results, e.cfg.Fusion)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, nil, err
	}

	if books == nil {
		books = []FusedResult[BookKey]{}
	}
	if ayahs == nil {
		ayahs = []FusedResult[AyahKey]{}
	}
	if hadiths == nil {
		hadiths = []FusedResult[HadithKey]{}
	}
	return books, ayahs, hadiths, nil
}

// rerankFused applies the configured per-type reranker to a fused list and
// returns the reordered head plus whether the model timed out.
func rerankFused[K comparable](ctx context.Context, r Reranker, q string, fused []FusedResult[K], topN int) ([]FusedResult[K], bool) {
	if len(fused) == 0 {
		return fused, false
	}

	docs := make([]string, len(fused))
	for i, f := range fused {
		docs[i] = rerankDoc(f.Text, f.Snippet)
	}

	outcome := r.Rerank(ctx, q, docs, topN)

	reordered := make([]FusedResult[K], 0, len(outcome.Order))
	for _, idx := range outcome.Order {
		reordered = append(reordered, fused[idx])
	}
	return reordered, outcome.TimedOut
}

// rerankDoc picks the fullest text available for a rerank prompt.
func rerankDoc(text, snippet string) string {
	if text != "" {
		return text
	}
	return snippet
}

func capFused[K comparable](results []FusedResult[K], limit int) []FusedResult[K] {
	if limit > 0 && len(results) > limit {
		return results[:limit]
	}
	return results
}

// enrichBooks resolves author names, and translated titles when titleLang is
// set, with batched store round trips. Enrichment failures degrade to
// unenriched results.
func (e *Engine) enrichBooks(ctx context.Context, resp *Response, titleLang string) {
	if e.store == nil || len(resp.Books) == 0 {
		return
	}

	bookIDs := make([]int, 0, len(resp.Books))
	seenBooks := make(map[int]bool, len(resp.Books))
	for _, h := range resp.Books {
		if !seenBooks[h.BookID] {
			seenBooks[h.BookID] = true
			bookIDs = append(bookIDs, h.BookID)
		}
	}

	booksMeta, err := e.store.BooksByID(ctx, bookIDs)
	if err != nil {
		e.logger.Warn("book metadata lookup failed, returning unenriched results",
			slog.String("error", err.Error()))
		return
	}

	authorIDs := make([]int, 0, len(booksMeta))
	seenAuthors := make(map[int]bool, len(booksMeta))
	for _, m := range booksMeta {
		if m.AuthorID > 0 && !seenAuthors[m.AuthorID] {
			seenAuthors[m.AuthorID] = true
			authorIDs = append(authorIDs, m.AuthorID)
		}
	}

	var authorsMeta map[int]AuthorMeta
	if len(authorIDs) > 0 {
		authorsMeta, err = e.store.AuthorsByID(ctx, authorIDs)
		if err != nil {
			e.logger.Warn("author metadata lookup failed",
				slog.String("error", err.Error()))
		}
	}

	var translated map[int]string
	if titleLang != "" {
		translated, err = e.store.TranslatedTitles(ctx, bookIDs, titleLang)
		if err != nil {
			e.logger.Warn("title translation lookup failed",
				slog.String("lang", titleLang),
				slog.String("error", err.Error()))
		}
	}

	for i := range resp.Books {
		if title, ok := translated[resp.Books[i].BookID]; ok {
			resp.Books[i].TranslatedTitle = title
		}
		meta, ok := booksMeta[resp.Books[i].BookID]
		if !ok {
			continue
		}
		if resp.Books[i].Title == "" {
			resp.Books[i].Title = meta.Title
		}
		if author, ok := authorsMeta[meta.AuthorID]; ok {
			resp.Books[i].AuthorName = author.Name
			resp.Books[i].AuthorDied = author.Died
		}
	}
}

// Hit conversions.

func bookHit(r FusedResult[BookKey]) BookHit {
	return BookHit{
		BookID:  r.Key.BookID,
		Page:    r.Key.Page,
		Title:   r.Title,
		Text:    r.Text,
		Snippet: r.Snippet,
		Scores: Scores{
			Semantic: r.SemanticScore,
			BM25:     r.BM25Score,
			RRF:      r.RRFScore,
			Fused:    r.FusedScore,
		},
	}
}

func bookHits(results []FusedResult[BookKey]) []BookHit {
	hits := make([]BookHit, 0, len(results))
	for _, r := range results {
		hits = append(hits, bookHit(r))
	}
	return hits
}

func ayahHit(r FusedResult[AyahKey]) AyahHit {
	return AyahHit{
		Surah:     r.Key.Surah,
		Ayah:      r.Key.Ayah,
		SurahName: r.Title,
		Text:      r.Text,
		Snippet:   r.Snippet,
		Scores: Scores{
			Semantic: r.SemanticScore,
			BM25:     r.BM25Score,
			RRF:      r.RRFScore,
			Fused:    r.FusedScore,
		},
	}
}

func ayahHits(results []FusedResult[AyahKey]) []AyahHit {
	hits := make([]AyahHit, 0, len(results))
	for _, r := range results {
		hits = append(hits, ayahHit(r))
	}
	return hits
}

func hadithHit(r FusedResult[HadithKey]) HadithHit {
	return HadithHit{
		Collection:      r.Key.Collection,
		Number:          r.Key.Number,
		CollectionTitle: r.Title,
		Text:            r.Text,
		Snippet:         r.Snippet,
		Scores: Scores{
			Semantic: r.SemanticScore,
			BM25:     r.BM25Score,
			RRF:      r.RRFScore,
			Fused:    r.FusedScore,
		},
	}
}

func hadithHits(results []FusedResult[HadithKey]) []HadithHit {
	hits := make([]HadithHit, 0, len(results))
	for _, r := range results {
		hits = append(hits, hadithHit(r))
	}
	return hits
}
