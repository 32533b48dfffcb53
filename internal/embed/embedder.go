// Package embed turns query text into vectors via an OpenAI-compatible
// embedding endpoint. Each collection set is built with one fixed model; the
// query must be embedded with the same one.
package embed

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/baheth/baheth/internal/resilience"
	"github.com/baheth/baheth/internal/search"
)

// Known embedding models and their dimensions. The registry catches a
// misconfigured model before a dimension-mismatch error surfaces as a cryptic
// vector service failure.
var modelDimensions = map[string]int{
	"text-embedding-3-small":  1536,
	"text-embedding-3-large":  3072,
	"bge-m3":                  1024,
	"multilingual-e5-large":   1024,
	"paraphrase-multilingual": 768,
	"nomic-embed-text":        768,
}

// Config holds embedding service settings.
type Config struct {
	// BaseURL of the OpenAI-compatible endpoint.
	BaseURL string

	// APIKey; "none" works for local services without authentication.
	APIKey string

	// Model is the embedding model name. Must match the model the corpus
	// collections were built with.
	Model string

	// Dimensions overrides the registry for models not listed there.
	Dimensions int
}

// Embedder wraps a langchaingo embedder behind the engine's interface.
type Embedder struct {
	embedder   embeddings.Embedder
	model      string
	dimensions int
	retry      resilience.RetryConfig
	logger     *slog.Logger
}

var _ search.Embedder = (*Embedder)(nil)

// New creates an Embedder.
func New(cfg Config) (*Embedder, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("embedding model is required")
	}

	dims := cfg.Dimensions
	if dims == 0 {
		dims = modelDimensions[cfg.Model]
	}
	if dims == 0 {
		return nil, fmt.Errorf("unknown embedding model %q: set dimensions explicitly", cfg.Model)
	}

	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = "none"
	}

	opts := []openai.Option{
		openai.WithToken(apiKey),
		openai.WithEmbeddingModel(cfg.Model),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}

	client, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("create embedding client: %w", err)
	}

	embedder, err := embeddings.NewEmbedder(client, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, fmt.Errorf("create embedder: %w", err)
	}

	return &Embedder{
		embedder:   embedder,
		model:      cfg.Model,
		dimensions: dims,
		retry:      resilience.EmbeddingRetryConfig(),
		logger:     slog.Default().With("component", "embedder"),
	}, nil
}

// Embed generates the vector for one text. Transient service failures are
// retried with short backoff; the caller's context bounds the whole attempt.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := resilience.RetryWithResult(ctx, e.retry, func() ([][]float32, error) {
		return e.embedder.EmbedDocuments(ctx, []string{text})
	})
	if err != nil {
		return nil, fmt.Errorf("embed text: %w", err)
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("embedding service returned no vectors")
	}
	if len(vectors[0]) != e.dimensions {
		return nil, fmt.Errorf("embedding dimension mismatch: got %d, want %d for model %s",
			len(vectors[0]), e.dimensions, e.model)
	}
	return vectors[0], nil
}

// ModelName returns the configured model.
func (e *Embedder) ModelName() string { return e.model }

// Dimensions returns the vector width of the configured model.
func (e *Embedder) Dimensions() int { return e.dimensions }
