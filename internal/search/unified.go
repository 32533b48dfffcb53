package search

import (
	"context"
	"fmt"
)

// minUnifiedDocs is the combined-set size below which the cross-type call is
// not worth the round trip.
const minUnifiedDocs = 3

// UnifiedCandidate is a type-erased view of one result used only inside the
// unified cross-type rerank; it is discarded once results are split back.
type UnifiedCandidate struct {
	Type          ContentType
	SourceIndex   int
	FormattedText string
	OriginalScore float64
}

// UnifiedOutcome is the cross-type ranking plus how it was obtained.
type UnifiedOutcome struct {
	// Ranked is the combined candidate list in model-judged order.
	// Score holds the rank-derived replacement score (1 - rank/100) so
	// cross-type comparability survives the split back into typed lists.
	Ranked []RankedCandidate

	TimedOut bool

	// Skipped means the combined set was too small and inputs were
	// returned unchanged.
	Skipped bool
}

// RankedCandidate pairs a candidate with its rank-derived score.
type RankedCandidate struct {
	UnifiedCandidate
	Score float64
}

// UnifiedReranker interleaves books, ayahs and hadiths into one listwise
// prompt so the model ranks across content types, instead of comparing
// normalized scores.
type UnifiedReranker struct {
	Listwise *ListwiseReranker
}

// Rerank runs one listwise call over the combined set and returns the
// model-judged cross-type order. On failure or timeout the original order is
// kept; an empty model ranking also falls back to the original order.
func (u *UnifiedReranker) Rerank(ctx context.Context, query string, candidates []UnifiedCandidate) UnifiedOutcome {
	if len(candidates) < minUnifiedDocs {
		return UnifiedOutcome{Ranked: rescoreByRank(candidates), Skipped: true}
	}

	docs := make([]string, len(candidates))
	for i, c := range candidates {
		docs[i] = fmt.Sprintf("(%s) %s", typeTag(c.Type), c.FormattedText)
	}

	outcome := u.Listwise.Rerank(ctx, query, docs, len(docs))

	reordered := make([]UnifiedCandidate, 0, len(outcome.Order))
	for _, idx := range outcome.Order {
		reordered = append(reordered, candidates[idx])
	}

	return UnifiedOutcome{
		Ranked:   rescoreByRank(reordered),
		TimedOut: outcome.TimedOut,
	}
}

// rescoreByRank replaces per-type scores with a rank-derived one so the three
// typed lists stay comparable downstream.
func rescoreByRank(candidates []UnifiedCandidate) []RankedCandidate {
	ranked := make([]RankedCandidate, len(candidates))
	for i, c := range candidates {
		ranked[i] = RankedCandidate{
			UnifiedCandidate: c,
			Score:            1.0 - float64(i)/100.0,
		}
	}
	return ranked
}

func typeTag(t ContentType) string {
	switch t {
	case TypeAyah:
		return "قرآن"
	case TypeHadith:
		return "حديث"
	default:
		return "كتاب"
	}
}

// SplitByType distributes the cross-type ranking back into per-type lists,
// capping each to its limit. Every in-range ranked candidate appears exactly
// once in its typed output, in the order the model gave.
func SplitByType(ranked []RankedCandidate, bookLimit, ayahLimit, hadithLimit int) (books, ayahs, hadiths []RankedCandidate) {
	for _, rc := range ranked {
		switch rc.Type {
		case TypeBook:
			if len(books) < bookLimit {
				books = append(books, rc)
			}
		case TypeAyah:
			if len(ayahs) < ayahLimit {
				ayahs = append(ayahs, rc)
			}
		case TypeHadith:
			if len(hadiths) < hadithLimit {
				hadiths = append(hadiths, rc)
			}
		}
	}
	return books, ayahs, hadiths
}
