package search

import (
	"math"
	"sort"
)

// DefaultRRFConstant is the standard RRF smoothing parameter. k=60 is
// empirically validated across domains (Azure AI Search, OpenSearch).
const DefaultRRFConstant = 60

// FusionConfig holds the fusion tunables.
type FusionConfig struct {
	// K is the RRF smoothing constant.
	K int

	// BonusMultiplier caps how much a keyword match can add on top of an
	// established semantic score. A keyword hit confirms relevance rather
	// than acting as an independent signal.
	BonusMultiplier float64

	// BM25Pivot calibrates NormalizeBM25: a raw score equal to the pivot
	// maps to 0.5. Raw BM25 for this corpus commonly lands in 8-13.
	BM25Pivot float64

	// TieEpsilon is the fused-score delta below which two results count as
	// tied and fall back to RRF order.
	TieEpsilon float64
}

// DefaultFusionConfig returns the production fusion parameters.
func DefaultFusionConfig() FusionConfig {
	return FusionConfig{
		K:               DefaultRRFConstant,
		BonusMultiplier: 0.15,
		BM25Pivot:       10,
		TieEpsilon:      0.001,
	}
}

func (c FusionConfig) withDefaults() FusionConfig {
	d := DefaultFusionConfig()
	if c.K <= 0 {
		c.K = d.K
	}
	if c.BonusMultiplier <= 0 {
		c.BonusMultiplier = d.BonusMultiplier
	}
	if c.BM25Pivot <= 0 {
		c.BM25Pivot = d.BM25Pivot
	}
	if c.TieEpsilon <= 0 {
		c.TieEpsilon = d.TieEpsilon
	}
	return c
}

// NormalizeBM25 maps a raw, unbounded BM25 score onto 0-1 with a monotonic
// saturating curve: score/(score+pivot). The exact curve is a tunable, not a
// contract; only monotonicity and the 0-1 range are relied on.
func NormalizeBM25(score, pivot float64) float64 {
	if score <= 0 {
		return 0
	}
	return score / (score + pivot)
}

// Fuse merges the semantic and keyword candidate lists for one content type
// into a single ranked list. Pure and stable: identical inputs produce
// identical output.
//
// Scoring per merged record:
//   - both signals:   semantic + BonusMultiplier * NormalizeBM25(bm25)
//   - semantic only:  semantic, unchanged
//   - keyword only:   NormalizeBM25(bm25), putting it on the semantic scale
//
// rrfScore = sum of 1/(K+rank) over present ranks, used only to break
// near-ties (|delta| <= TieEpsilon).
func Fuse[K comparable](semantic, keyword []Candidate[K], cfg FusionConfig) []FusedResult[K] {
	cfg = cfg.withDefaults()
	if len(semantic) == 0 && len(keyword) == 0 {
		return []FusedResult[K]{}
	}

	merged := make(map[K]*FusedResult[K], len(semantic)+len(keyword))
	order := make([]K, 0, len(semantic)+len(keyword))

	for i, c := range semantic {
		c.SemanticRank = i + 1
		merged[c.Key] = &FusedResult[K]{Candidate: c}
		order = append(order, c.Key)
	}

	for i, c := range keyword {
		c.KeywordRank = i + 1
		if existing, ok := merged[c.Key]; ok {
			mergeKeywordInto(existing, c)
			continue
		}
		merged[c.Key] = &FusedResult[K]{Candidate: c}
		order = append(order, c.Key)
	}

	results := make([]FusedResult[K], 0, len(order))
	for _, key := range order {
		r := merged[key]
		r.FusedScore = fusedScore(r.Candidate, cfg)
		r.RRFScore = rrfScore(r.Candidate, cfg.K)
		results = append(results, *r)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return lessFused(results[i], results[j], cfg.TieEpsilon)
	})

	return results
}

// mergeKeywordInto folds a keyword-path candidate into a record the semantic
// path already produced. The keyword snippet wins (it carries highlighting);
// numeric fields keep the higher value.
func mergeKeywordInto[K comparable](dst *FusedResult[K], kw Candidate[K]) {
	dst.KeywordRank = kw.KeywordRank
	if kw.BM25Score > dst.BM25Score {
		dst.BM25Score = kw.BM25Score
	}
	if kw.Snippet != "" {
		dst.Snippet = kw.Snippet
	}
	if dst.Text == "" {
		dst.Text = kw.Text
	}
	if dst.Title == "" {
		dst.Title = kw.Title
	}
	if dst.AuthorID == 0 {
		dst.AuthorID = kw.AuthorID
	}
}

func fusedScore[K comparable](c Candidate[K], cfg FusionConfig) float64 {
	switch {
	case c.HasSemantic() && c.HasKeyword():
		return c.SemanticScore + cfg.BonusMultiplier*NormalizeBM25(c.BM25Score, cfg.BM25Pivot)
	case c.HasSemantic():
		return c.SemanticScore
	default:
		return NormalizeBM25(c.BM25Score, cfg.BM25Pivot)
	}
}

func rrfScore[K comparable](c Candidate[K], k int) float64 {
	var s float64
	if c.SemanticRank > 0 {
		s += 1.0 / float64(k+c.SemanticRank)
	}
	if c.KeywordRank > 0 {
		s += 1.0 / float64(k+c.KeywordRank)
	}
	return s
}

// lessFused orders by fused score descending, breaking near-ties by RRF
// score descending. Exact RRF ties keep input order (stable sort).
func lessFused[K comparable](a, b FusedResult[K], epsilon float64) bool {
	if math.Abs(a.FusedScore-b.FusedScore) > epsilon {
		return a.FusedScore > b.FusedScore
	}
	return a.RRFScore > b.RRFScore
}
