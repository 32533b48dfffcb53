package search

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubEmbedder struct {
	vectors map[string][]float32
	err     error
	calls   int
}

func (s *stubEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	if vec, ok := s.vectors[text]; ok {
		return vec, nil
	}
	return []float32{0, 0, 1}, nil
}

func (s *stubEmbedder) ModelName() string { return "stub-model" }
func (s *stubEmbedder) Dimensions() int   { return 3 }

func TestNoneReranker_KeepsInputOrder(t *testing.T) {
	r := NoneReranker{}

	outcome := r.Rerank(context.Background(), "q", []string{"a", "b", "c"}, 2)

	assert.Equal(t, []int{0, 1}, outcome.Order)
	assert.False(t, outcome.TimedOut)
}

func TestNoneReranker_TopNLargerThanInput(t *testing.T) {
	r := NoneReranker{}

	outcome := r.Rerank(context.Background(), "q", []string{"a"}, 10)

	assert.Equal(t, []int{0}, outcome.Order)
}

func TestEmbeddingReranker_RanksByCosineSimilarity(t *testing.T) {
	// Given: doc b aligned with the query vector, doc a orthogonal
	embedder := &stubEmbedder{vectors: map[string][]float32{
		"q": {1, 0, 0},
		"a": {0, 1, 0},
		"b": {1, 0, 0},
	}}
	r := &EmbeddingReranker{Embedder: embedder}

	outcome := r.Rerank(context.Background(), "q", []string{"a", "b"}, 2)

	assert.Equal(t, []int{1, 0}, outcome.Order)
	assert.False(t, outcome.TimedOut)
}

func TestEmbeddingReranker_FailureFallsBackToInputOrder(t *testing.T) {
	embedder := &stubEmbedder{err: errors.New("service down")}
	r := &EmbeddingReranker{Embedder: embedder}

	outcome := r.Rerank(context.Background(), "q", []string{"a", "b", "c"}, 3)

	assert.Equal(t, []int{0, 1, 2}, outcome.Order)
	assert.False(t, outcome.TimedOut)
}

func TestListwiseReranker_AppliesModelOrder(t *testing.T) {
	completer := &stubCompleter{response: "[3, 1, 2]"}
	r := &ListwiseReranker{Completer: completer, Model: "test", Timeout: time.Second}

	outcome := r.Rerank(context.Background(), "q", []string{"a", "b", "c"}, 3)

	assert.Equal(t, []int{2, 0, 1}, outcome.Order)
	assert.False(t, outcome.TimedOut)
}

func TestListwiseReranker_OmittedDocsAppendedInOriginalOrder(t *testing.T) {
	// Given: the model only ranks one of three documents
	completer := &stubCompleter{response: "[2]"}
	r := &ListwiseReranker{Completer: completer, Model: "test", Timeout: time.Second}

	outcome := r.Rerank(context.Background(), "q", []string{"a", "b", "c"}, 3)

	assert.Equal(t, []int{1, 0, 2}, outcome.Order)
}

func TestListwiseReranker_DropsInvalidAndDuplicateNumbers(t *testing.T) {
	completer := &stubCompleter{response: "the ranking is [2, 9, 2, 1]"}
	r := &ListwiseReranker{Completer: completer, Model: "test", Timeout: time.Second}

	outcome := r.Rerank(context.Background(), "q", []string{"a", "b"}, 2)

	assert.Equal(t, []int{1, 0}, outcome.Order)
}

func TestListwiseReranker_EmptyRankingFallsBack(t *testing.T) {
	// Given: the model judges nothing relevant
	completer := &stubCompleter{response: "[]"}
	r := &ListwiseReranker{Completer: completer, Model: "test", Timeout: time.Second}

	outcome := r.Rerank(context.Background(), "q", []string{"a", "b"}, 2)

	// Then: keep the fusion order rather than dropping everything
	assert.Equal(t, []int{0, 1}, outcome.Order)
	assert.False(t, outcome.TimedOut)
}

func TestListwiseReranker_ErrorFallsBackWithoutTimeout(t *testing.T) {
	completer := &stubCompleter{err: errors.New("bad gateway")}
	r := &ListwiseReranker{Completer: completer, Model: "test", Timeout: time.Second}

	outcome := r.Rerank(context.Background(), "q", []string{"a", "b"}, 2)

	assert.Equal(t, []int{0, 1}, outcome.Order)
	assert.False(t, outcome.TimedOut)
}

func TestListwiseReranker_DeadlineSetsTimedOut(t *testing.T) {
	// Given: a completer that blocks past the deadline
	slow := completerFunc(func(ctx context.Context, _ string) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	r := &ListwiseReranker{Completer: slow, Model: "test", Timeout: 10 * time.Millisecond}

	outcome := r.Rerank(context.Background(), "q", []string{"a", "b"}, 2)

	// Then: fallback order with the timeout flagged
	assert.Equal(t, []int{0, 1}, outcome.Order)
	assert.True(t, outcome.TimedOut)
}

func TestListwiseReranker_ParentCancellationIsNotTimedOut(t *testing.T) {
	// Given: the caller's context is already canceled for its own reasons
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	canceled := completerFunc(func(ctx context.Context, _ string) (string, error) {
		return "", ctx.Err()
	})
	r := &ListwiseReranker{Completer: canceled, Model: "test", Timeout: time.Second}

	outcome := r.Rerank(ctx, "q", []string{"a", "b"}, 2)

	// Then: fallback order, but not reported as a rerank timeout
	assert.Equal(t, []int{0, 1}, outcome.Order)
	assert.False(t, outcome.TimedOut)
}

func TestListwiseReranker_TruncatesLongDocsInPrompt(t *testing.T) {
	long := make([]rune, 2000)
	for i := range long {
		long[i] = 'م'
	}
	r := &ListwiseReranker{DocChars: 100}

	formatted := r.formatDocs([]string{string(long)})

	assert.LessOrEqual(t, len([]rune(formatted)), 120)
}

func TestParseRankingResponse(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		docCount int
		want     []int
		wantErr  bool
	}{
		{"plain array", "[2, 1]", 2, []int{1, 0}, false},
		{"surrounded by prose", "Ranking: [1, 3] done.", 3, []int{0, 2}, false},
		{"empty array", "[]", 3, []int{}, false},
		{"no array", "no ranking", 3, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseRankingResponse(tt.raw, tt.docCount)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

type completerFunc func(ctx context.Context, prompt string) (string, error)

func (f completerFunc) Complete(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}
