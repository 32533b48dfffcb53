package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	cfg, err := Load("")

	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Listen)
	assert.Equal(t, 10, cfg.Search.DefaultLimit)
	assert.Equal(t, 60, cfg.Search.RRFConstant)
	assert.Equal(t, "none", cfg.Search.Reranker)
	assert.Equal(t, 15*time.Minute, cfg.Search.ExpansionTTL)
	assert.Equal(t, "localhost", cfg.Vector.Host)
	assert.Equal(t, 6334, cfg.Vector.Port)
	assert.Equal(t, "book_pages", cfg.Vector.BookCollection)
	assert.Equal(t, "bge-m3", cfg.Embedding.Model)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoad_YAMLOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "baheth.yaml")
	data := `
server:
  listen: ":9090"
search:
  default_limit: 20
  reranker: listwise
vector:
  host: qdrant.internal
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Server.Listen)
	assert.Equal(t, 20, cfg.Search.DefaultLimit)
	assert.Equal(t, "listwise", cfg.Search.Reranker)
	assert.Equal(t, "qdrant.internal", cfg.Vector.Host)
	// Untouched sections keep their defaults.
	assert.Equal(t, 50, cfg.Search.MaxLimit)
	assert.Equal(t, "http://localhost:7700", cfg.Lexical.Endpoint)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "baheth.yaml")
	require.NoError(t, os.WriteFile(path, []byte("vector:\n  host: from-file\n"), 0o644))
	t.Setenv("BAHETH_QDRANT_HOST", "from-env")
	t.Setenv("BAHETH_QDRANT_PORT", "7000")
	t.Setenv("BAHETH_RERANKER", "embedding")

	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Vector.Host)
	assert.Equal(t, 7000, cfg.Vector.Port)
	assert.Equal(t, "embedding", cfg.Search.Reranker)
}

func TestLoad_MissingFileFails(t *testing.T) {
	_, err := Load("/nonexistent/baheth.yaml")
	assert.Error(t, err)
}

func TestValidate_RejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero default limit", func(c *Config) { c.Search.DefaultLimit = 0 }},
		{"max below default", func(c *Config) { c.Search.MaxLimit = 5 }},
		{"cutoff above one", func(c *Config) { c.Search.DefaultCutoff = 1.5 }},
		{"zero rrf constant", func(c *Config) { c.Search.RRFConstant = 0 }},
		{"unknown reranker", func(c *Config) { c.Search.Reranker = "crossencoder" }},
		{"expanded weight above original", func(c *Config) { c.Search.ExpandedWeight = 1.2 }},
		{"zero expanded weight", func(c *Config) { c.Search.ExpandedWeight = 0 }},
		{"missing embedding model", func(c *Config) { c.Embedding.Model = "" }},
		{"unknown log level", func(c *Config) { c.Logging.Level = "verbose" }},
		{"unknown log format", func(c *Config) { c.Logging.Format = "logfmt" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestValidate_AcceptsDefaults(t *testing.T) {
	assert.NoError(t, NewConfig().Validate())
}
