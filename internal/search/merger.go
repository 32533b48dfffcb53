package search

import "sort"

// WeightedList is one expanded query's fused result list plus its weight.
type WeightedList[K comparable] struct {
	Results []FusedResult[K]
	Weight  float64
}

// MergeWeighted combines per-query result lists for one content type into a
// single deduplicated ranking using weighted RRF.
//
// For an item at 0-based rank r in a query's list, the contribution is
// weight/(K+r+1); contributions for the same natural key accumulate across
// queries. Accumulation is associative: merging any permutation of the input
// lists yields the same score per key (up to floating-point rounding).
//
// When a key recurs, optional numeric fields keep the max across occurrences
// and a non-degenerate highlighted snippet wins over a plain one.
func MergeWeighted[K comparable](perQuery []WeightedList[K], cfg FusionConfig) []FusedResult[K] {
	cfg = cfg.withDefaults()
	if len(perQuery) == 0 {
		return []FusedResult[K]{}
	}

	merged := make(map[K]*FusedResult[K])
	order := make([]K, 0)

	for _, wl := range perQuery {
		weight := wl.Weight
		if weight <= 0 {
			weight = 1.0
		}
		for rank, r := range wl.Results {
			contribution := weight / float64(cfg.K+rank+1)
			existing, ok := merged[r.Key]
			if !ok {
				copied := r
				copied.FusedScore = contribution
				merged[r.Key] = &copied
				order = append(order, r.Key)
				continue
			}
			existing.FusedScore += contribution
			maxMergeInto(existing, r)
		}
	}

	results := make([]FusedResult[K], 0, len(order))
	for _, key := range order {
		results = append(results, *merged[key])
	}

	sort.SliceStable(results, func(i, j int) bool {
		return lessFused(results[i], results[j], cfg.TieEpsilon)
	})

	return results
}

// maxMergeInto keeps the best value of each optional field when the same key
// surfaces from more than one expanded query.
func maxMergeInto[K comparable](dst *FusedResult[K], src FusedResult[K]) {
	if src.SemanticScore > dst.SemanticScore {
		dst.SemanticScore = src.SemanticScore
	}
	if src.BM25Score > dst.BM25Score {
		dst.BM25Score = src.BM25Score
	}
	if src.RRFScore > dst.RRFScore {
		dst.RRFScore = src.RRFScore
	}
	if dst.SemanticRank == 0 || (src.SemanticRank > 0 && src.SemanticRank < dst.SemanticRank) {
		dst.SemanticRank = src.SemanticRank
	}
	if dst.KeywordRank == 0 || (src.KeywordRank > 0 && src.KeywordRank < dst.KeywordRank) {
		dst.KeywordRank = src.KeywordRank
	}
	if degenerateSnippet(dst.Snippet) && !degenerateSnippet(src.Snippet) {
		dst.Snippet = src.Snippet
	}
	if dst.Text == "" {
		dst.Text = src.Text
	}
	if dst.Title == "" {
		dst.Title = src.Title
	}
	if dst.AuthorID == 0 {
		dst.AuthorID = src.AuthorID
	}
}

// degenerateSnippet reports whether a snippet carries no highlighting value.
func degenerateSnippet(s string) bool {
	return s == ""
}
