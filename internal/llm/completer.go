// Package llm provides the chat-completion client used for query expansion
// and listwise reranking.
package llm

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/baheth/baheth/internal/resilience"
	"github.com/baheth/baheth/internal/search"
)

// Config holds LLM service settings.
type Config struct {
	// BaseURL of the OpenAI-compatible endpoint.
	BaseURL string

	// APIKey; "none" works for local services without authentication.
	APIKey string

	// Model is the chat model name.
	Model string
}

// Completer runs single-prompt completions at temperature 0 so rankings and
// expansions are as repeatable as the backend allows. A circuit breaker fails
// fast while the model service stays down, so expansion and reranking degrade
// immediately instead of eating their full timeout on every request.
type Completer struct {
	client  llms.Model
	model   string
	breaker *resilience.Breaker
	logger  *slog.Logger
}

var _ search.Completer = (*Completer)(nil)

// New creates a Completer.
func New(cfg Config) (*Completer, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("llm model is required")
	}

	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = "none"
	}

	opts := []openai.Option{
		openai.WithToken(apiKey),
		openai.WithModel(cfg.Model),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}

	client, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("create llm client: %w", err)
	}

	return &Completer{
		client:  client,
		model:   cfg.Model,
		breaker: resilience.NewBreaker("llm"),
		logger:  slog.Default().With("component", "llm"),
	}, nil
}

// Complete runs one completion. Context cancellation and deadlines propagate
// to the HTTP call, so callers control the timeout.
func (c *Completer) Complete(ctx context.Context, prompt string) (string, error) {
	return resilience.Do(c.breaker, func() (string, error) {
		content := []llms.MessageContent{
			{
				Role:  llms.ChatMessageTypeHuman,
				Parts: []llms.ContentPart{llms.TextPart(prompt)},
			},
		}

		response, err := c.client.GenerateContent(ctx, content, llms.WithTemperature(0.0))
		if err != nil {
			return "", fmt.Errorf("llm completion: %w", err)
		}
		if len(response.Choices) == 0 {
			return "", fmt.Errorf("llm returned no choices")
		}
		return response.Choices[0].Content, nil
	})
}

// Model reports the configured model name.
func (c *Completer) Model() string { return c.model }
