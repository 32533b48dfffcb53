//go:build ignore

// Generates a synthetic corpus for load-testing the retrieval pipeline:
// JSON-lines files of book pages, verses and narrations in the payload shape
// the indices serve.
// Usage: go run scripts/generate-test-corpus.go -pages 5000 -output testdata/corpus
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
)

var (
	numPages    = flag.Int("pages", 5000, "Number of book pages to generate")
	numAyahs    = flag.Int("ayahs", 500, "Number of verses to generate")
	numHadiths  = flag.Int("hadiths", 1000, "Number of narrations to generate")
	numBooks    = flag.Int("books", 50, "Number of distinct books")
	outputDir   = flag.String("output", "testdata/corpus", "Output directory")
	seed        = flag.Int64("seed", 42, "Random seed for reproducibility")
	minSentence = 8
	maxSentence = 40
)

// Vocabulary drawn from the domains the real corpus covers, so tokenization
// and normalization behave like they would on real text.
var vocabulary = []string{
	"العلم", "الصبر", "الصلاة", "الزكاة", "الصيام", "الحج", "التوبة",
	"الإيمان", "الإحسان", "التقوى", "الرحمة", "العدل", "الصدق", "الأمانة",
	"قال", "روى", "أخبرنا", "حدثنا", "باب", "فصل", "مسألة", "حكم",
	"الفقه", "التفسير", "الحديث", "السند", "المتن", "الرواية", "الإسناد",
	"الكتاب", "السنة", "الإجماع", "القياس", "الدليل", "الشرط", "الركن",
}

var collections = []string{"bukhari", "muslim", "tirmidhi", "nasai", "abudawud"}

func main() {
	flag.Parse()
	rng := rand.New(rand.NewSource(*seed))

	if err := os.MkdirAll(*outputDir, 0o755); err != nil {
		fatal("create output dir: %v", err)
	}

	writeJSONL(filepath.Join(*outputDir, "book_pages.jsonl"), *numPages, func(i int) any {
		return map[string]any{
			"book_id":   1 + rng.Intn(*numBooks),
			"page":      1 + i / *numBooks,
			"text":      sentence(rng),
			"title":     "كتاب " + vocabulary[rng.Intn(len(vocabulary))],
			"author_id": 1 + rng.Intn(20),
		}
	})

	writeJSONL(filepath.Join(*outputDir, "ayahs.jsonl"), *numAyahs, func(i int) any {
		return map[string]any{
			"surah":      1 + rng.Intn(114),
			"ayah":       1 + rng.Intn(200),
			"text":       sentence(rng),
			"surah_name": "سورة " + vocabulary[rng.Intn(len(vocabulary))],
		}
	})

	writeJSONL(filepath.Join(*outputDir, "hadiths.jsonl"), *numHadiths, func(i int) any {
		col := collections[rng.Intn(len(collections))]
		return map[string]any{
			"collection":       col,
			"number":           1 + i,
			"text":             "حدثنا " + sentence(rng),
			"collection_title": "صحيح " + col,
		}
	})

	fmt.Printf("wrote corpus to %s (%d pages, %d ayahs, %d hadiths)\n",
		*outputDir, *numPages, *numAyahs, *numHadiths)
}

func sentence(rng *rand.Rand) string {
	n := minSentence + rng.Intn(maxSentence-minSentence)
	words := make([]string, n)
	for i := range words {
		words[i] = vocabulary[rng.Intn(len(vocabulary))]
	}
	return strings.Join(words, " ")
}

func writeJSONL(path string, count int, gen func(i int) any) {
	f, err := os.Create(path)
	if err != nil {
		fatal("create %s: %v", path, err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	for i := 0; i < count; i++ {
		if err := enc.Encode(gen(i)); err != nil {
			fatal("write %s: %v", path, err)
		}
	}
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
