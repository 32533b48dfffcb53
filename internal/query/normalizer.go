// Package query analyzes raw search queries: Unicode/Arabic normalization,
// quoted-phrase detection, script detection, and retrieval strategy selection.
// Everything here is pure and deterministic; no I/O.
package query

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Script identifies the dominant writing system of a query.
type Script string

const (
	ScriptArabic  Script = "arabic"
	ScriptLatin   Script = "latin"
	ScriptUnknown Script = "unknown"
)

// Default strategy parameters.
const (
	// DefaultMinSemanticChars is the minimum normalized length for semantic
	// search. Shorter queries produce noisy embeddings.
	DefaultMinSemanticChars = 4

	// DefaultCorpusScript is the script of the indexed corpus. The corpus is
	// monolingual Arabic; lexical search in another script is a wasted call.
	DefaultCorpusScript = ScriptArabic
)

// CutoffRule raises the similarity threshold for queries at or below a
// character-count breakpoint. Rules are evaluated in order; the first match wins.
type CutoffRule struct {
	MaxChars  int
	MinCutoff float64
}

// DefaultCutoffRules returns the ordered breakpoint table for short queries.
// Short queries carry less semantic content and need stricter filtering.
func DefaultCutoffRules() []CutoffRule {
	return []CutoffRule{
		{MaxChars: 8, MinCutoff: 0.55},
		{MaxChars: 16, MinCutoff: 0.45},
		{MaxChars: 24, MinCutoff: 0.35},
	}
}

// Plan is the analyzed form of a raw query plus the retrieval strategy
// decisions derived from it. Immutable once built.
type Plan struct {
	Raw             string
	Normalized      string
	Script          Script
	HasQuotedPhrase bool
	WordCount       int
	CharCount       int // normalized runes, whitespace excluded
	SkipSemantic    bool
	SkipKeyword     bool
	EffectiveCutoff float64
}

// Options controls strategy selection for one analysis.
type Options struct {
	// BaseCutoff is the caller-supplied similarity threshold.
	BaseCutoff float64

	// SemanticOnly forces keyword search off regardless of script.
	SemanticOnly bool
}

// Normalizer analyzes queries against a fixed corpus configuration.
type Normalizer struct {
	MinSemanticChars int
	CorpusScript     Script
	CutoffRules      []CutoffRule
}

// NewNormalizer creates a Normalizer with default Arabic-corpus settings.
func NewNormalizer() *Normalizer {
	return &Normalizer{
		MinSemanticChars: DefaultMinSemanticChars,
		CorpusScript:     DefaultCorpusScript,
		CutoffRules:      DefaultCutoffRules(),
	}
}

// Analyze normalizes the query and selects the retrieval strategy.
func (n *Normalizer) Analyze(raw string, opts Options) Plan {
	normalized := n.Normalize(raw)
	stripped := strings.Join(strings.Fields(normalized), "")

	p := Plan{
		Raw:             raw,
		Normalized:      normalized,
		Script:          DetectScript(normalized),
		HasQuotedPhrase: HasQuotedPhrase(raw),
		WordCount:       len(strings.Fields(normalized)),
		CharCount:       len([]rune(stripped)),
	}

	// Quoted phrases demand exact matching; sparse text embeds poorly.
	p.SkipSemantic = p.HasQuotedPhrase || p.CharCount < n.MinSemanticChars

	// Lexical search against a mismatched script cannot hit the corpus.
	p.SkipKeyword = opts.SemanticOnly ||
		(p.Script != ScriptUnknown && p.Script != n.CorpusScript)

	p.EffectiveCutoff = n.EffectiveCutoff(p, opts.BaseCutoff)

	return p
}

// Normalize applies Unicode NFKC, strips Arabic diacritics and tatweel,
// folds alef/yaa/teh-marbuta variants, and collapses whitespace.
// The transformer chain carries internal buffers, so a fresh one is built per
// call; Analyze runs concurrently across expansion branches.
func (n *Normalizer) Normalize(raw string) string {
	out, _, err := transform.String(newArabicTransformer(), raw)
	if err != nil {
		out = raw
	}
	out = foldArabicLetters(out)
	return strings.Join(strings.Fields(out), " ")
}

// EffectiveCutoff raises the base threshold for short queries via the rule
// table. Single-word queries are capped to the shortest bucket regardless of
// character count. Longer queries pass the base through unchanged.
func (n *Normalizer) EffectiveCutoff(p Plan, base float64) float64 {
	chars := p.CharCount
	if p.WordCount <= 1 && len(n.CutoffRules) > 0 && chars > n.CutoffRules[0].MaxChars {
		chars = n.CutoffRules[0].MaxChars
	}
	for _, rule := range n.CutoffRules {
		if chars <= rule.MaxChars {
			if base < rule.MinCutoff {
				return rule.MinCutoff
			}
			return base
		}
	}
	return base
}

// HasQuotedPhrase reports whether the query contains a quoted phrase in any
// of the quote styles users paste from the web ("...", «...», “...”).
func HasQuotedPhrase(s string) bool {
	pairs := []struct{ open, close rune }{
		{'"', '"'},
		{'«', '»'},
		{'“', '”'},
	}
	for _, p := range pairs {
		start := strings.IndexRune(s, p.open)
		if start < 0 {
			continue
		}
		rest := s[start+len(string(p.open)):]
		if end := strings.IndexRune(rest, p.close); end > 0 {
			return true
		}
	}
	return false
}

// DetectScript returns the dominant script by letter count.
func DetectScript(s string) Script {
	var arabic, latin int
	for _, r := range s {
		switch {
		case unicode.Is(unicode.Arabic, r):
			arabic++
		case unicode.IsLetter(r) && r < 0x250:
			latin++
		}
	}
	switch {
	case arabic == 0 && latin == 0:
		return ScriptUnknown
	case arabic >= latin:
		return ScriptArabic
	default:
		return ScriptLatin
	}
}

// Arabic combining marks (tashkeel) and presentation artifacts stripped
// during normalization.
var arabicMarks = runes.Predicate(func(r rune) bool {
	if r >= 0x064B && r <= 0x065F { // fathatan..wavy hamza below
		return true
	}
	switch r {
	case 0x0670: // superscript alef
		return true
	case 0x0640: // tatweel
		return true
	}
	return unicode.Is(unicode.Mn, r) && unicode.Is(unicode.Arabic, r)
})

func newArabicTransformer() transform.Transformer {
	return transform.Chain(norm.NFKC, runes.Remove(arabicMarks), norm.NFC)
}

// foldArabicLetters maps orthographic variants to a canonical form so
// lexical matching is insensitive to hamza seats and final-yaa spelling.
func foldArabicLetters(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case 'أ', 'إ', 'آ', 'ٱ':
			return 'ا'
		case 'ى':
			return 'ي'
		case 'ة':
			return 'ه'
		case 'ؤ':
			return 'و'
		case 'ئ':
			return 'ي'
		}
		return r
	}, s)
}
