// Package config loads the service configuration from YAML with environment
// overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete service configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Search    SearchConfig    `yaml:"search"`
	Vector    VectorConfig    `yaml:"vector"`
	Lexical   LexicalConfig   `yaml:"lexical"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	LLM       LLMConfig       `yaml:"llm"`
	Database  DatabaseConfig  `yaml:"database"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Listen string `yaml:"listen"`
}

// SearchConfig configures the retrieval pipeline.
type SearchConfig struct {
	DefaultLimit  int     `yaml:"default_limit"`
	MaxLimit      int     `yaml:"max_limit"`
	MaxQueryChars int     `yaml:"max_query_chars"`
	DefaultCutoff float64 `yaml:"default_cutoff"`

	// RRFConstant is the fusion smoothing parameter (k). 60 is the
	// industry standard (Azure AI Search, OpenSearch).
	RRFConstant     int     `yaml:"rrf_constant"`
	BonusMultiplier float64 `yaml:"bonus_multiplier"`
	BM25Pivot       float64 `yaml:"bm25_pivot"`

	KeywordFuzzyFallback bool  `yaml:"keyword_fuzzy_fallback"`
	BookDenylist         []int `yaml:"book_denylist"`

	// Reranker selects the strategy: "none", "embedding" or "listwise".
	Reranker       string        `yaml:"reranker"`
	RerankTimeout  time.Duration `yaml:"rerank_timeout"`
	RerankDocChars int           `yaml:"rerank_doc_chars"`

	MaxExpansions  int           `yaml:"max_expansions"`
	OriginalWeight float64       `yaml:"original_weight"`
	ExpandedWeight float64       `yaml:"expanded_weight"`
	ExpansionTTL   time.Duration `yaml:"expansion_ttl"`

	UnifiedRerankTimeout time.Duration `yaml:"unified_rerank_timeout"`
	UnifiedPerTypeCap    int           `yaml:"unified_per_type_cap"`
	RefinePerTypeCap     int           `yaml:"refine_per_type_cap"`
}

// VectorConfig configures the Qdrant connection.
type VectorConfig struct {
	Host   string `yaml:"host"`
	Port   int    `yaml:"port"`
	APIKey string `yaml:"api_key"`
	UseTLS bool   `yaml:"use_tls"`

	BookCollection   string `yaml:"book_collection"`
	AyahCollection   string `yaml:"ayah_collection"`
	HadithCollection string `yaml:"hadith_collection"`
}

// LexicalConfig configures the full-text search service.
type LexicalConfig struct {
	Endpoint string `yaml:"endpoint"`
	APIKey   string `yaml:"api_key"`

	BookIndex   string `yaml:"book_index"`
	AyahIndex   string `yaml:"ayah_index"`
	HadithIndex string `yaml:"hadith_index"`
}

// EmbeddingConfig configures the embedding service.
type EmbeddingConfig struct {
	BaseURL    string `yaml:"base_url"`
	APIKey     string `yaml:"api_key"`
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
	CacheSize  int    `yaml:"cache_size"`
}

// LLMConfig configures the chat model used for expansion and reranking.
type LLMConfig struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
}

// DatabaseConfig configures the catalog database.
type DatabaseConfig struct {
	DSN          string `yaml:"dsn"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// NewConfig returns the configuration defaults.
func NewConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Listen: ":8080",
		},
		Search: SearchConfig{
			DefaultLimit:         10,
			MaxLimit:             50,
			MaxQueryChars:        500,
			DefaultCutoff:        0.30,
			RRFConstant:          60,
			BonusMultiplier:      0.15,
			BM25Pivot:            10,
			KeywordFuzzyFallback: true,
			Reranker:             "none",
			RerankTimeout:        15 * time.Second,
			RerankDocChars:       800,
			MaxExpansions:        4,
			OriginalWeight:       1.0,
			ExpandedWeight:       0.7,
			ExpansionTTL:         15 * time.Minute,
			UnifiedRerankTimeout: 25 * time.Second,
			UnifiedPerTypeCap:    5,
			RefinePerTypeCap:     30,
		},
		Vector: VectorConfig{
			Host:             "localhost",
			Port:             6334,
			BookCollection:   "book_pages",
			AyahCollection:   "ayahs",
			HadithCollection: "hadiths",
		},
		Lexical: LexicalConfig{
			Endpoint:    "http://localhost:7700",
			BookIndex:   "book_pages",
			AyahIndex:   "ayahs",
			HadithIndex: "hadiths",
		},
		Embedding: EmbeddingConfig{
			Model:     "bge-m3",
			CacheSize: 2048,
		},
		LLM: LLMConfig{
			Model: "gpt-4o-mini",
		},
		Database: DatabaseConfig{
			MaxOpenConns: 10,
			MaxIdleConns: 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads configuration with increasing precedence: defaults, the YAML
// file at path (optional), then BAHETH_* environment variables.
func Load(path string) (*Config, error) {
	cfg := NewConfig()

	if path != "" {
		if err := cfg.loadYAML(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("BAHETH_LISTEN"); v != "" {
		c.Server.Listen = v
	}
	if v := os.Getenv("BAHETH_QDRANT_HOST"); v != "" {
		c.Vector.Host = v
	}
	if v := os.Getenv("BAHETH_QDRANT_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Vector.Port = port
		}
	}
	if v := os.Getenv("BAHETH_QDRANT_API_KEY"); v != "" {
		c.Vector.APIKey = v
	}
	if v := os.Getenv("BAHETH_LEXICAL_ENDPOINT"); v != "" {
		c.Lexical.Endpoint = v
	}
	if v := os.Getenv("BAHETH_LEXICAL_API_KEY"); v != "" {
		c.Lexical.APIKey = v
	}
	if v := os.Getenv("BAHETH_EMBEDDING_BASE_URL"); v != "" {
		c.Embedding.BaseURL = v
	}
	if v := os.Getenv("BAHETH_EMBEDDING_API_KEY"); v != "" {
		c.Embedding.APIKey = v
	}
	if v := os.Getenv("BAHETH_EMBEDDING_MODEL"); v != "" {
		c.Embedding.Model = v
	}
	if v := os.Getenv("BAHETH_LLM_BASE_URL"); v != "" {
		c.LLM.BaseURL = v
	}
	if v := os.Getenv("BAHETH_LLM_API_KEY"); v != "" {
		c.LLM.APIKey = v
	}
	if v := os.Getenv("BAHETH_LLM_MODEL"); v != "" {
		c.LLM.Model = v
	}
	if v := os.Getenv("BAHETH_DATABASE_DSN"); v != "" {
		c.Database.DSN = v
	}
	if v := os.Getenv("BAHETH_RERANKER"); v != "" {
		c.Search.Reranker = v
	}
	if v := os.Getenv("BAHETH_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// Validate checks the final configuration.
func (c *Config) Validate() error {
	if c.Search.DefaultLimit <= 0 {
		return fmt.Errorf("search.default_limit must be positive, got %d", c.Search.DefaultLimit)
	}
	if c.Search.MaxLimit < c.Search.DefaultLimit {
		return fmt.Errorf("search.max_limit (%d) must be >= search.default_limit (%d)",
			c.Search.MaxLimit, c.Search.DefaultLimit)
	}
	if c.Search.DefaultCutoff < 0 || c.Search.DefaultCutoff > 1 {
		return fmt.Errorf("search.default_cutoff must be in [0,1], got %f", c.Search.DefaultCutoff)
	}
	if c.Search.RRFConstant <= 0 {
		return fmt.Errorf("search.rrf_constant must be positive, got %d", c.Search.RRFConstant)
	}
	switch c.Search.Reranker {
	case "none", "embedding", "listwise":
	default:
		return fmt.Errorf("search.reranker must be none, embedding or listwise, got %q", c.Search.Reranker)
	}
	if c.Search.OriginalWeight <= 0 {
		return fmt.Errorf("search.original_weight must be positive, got %f", c.Search.OriginalWeight)
	}
	if c.Search.ExpandedWeight <= 0 || c.Search.ExpandedWeight > c.Search.OriginalWeight {
		return fmt.Errorf("search.expanded_weight must be in (0, original_weight], got %f", c.Search.ExpandedWeight)
	}
	if c.Embedding.Model == "" {
		return fmt.Errorf("embedding.model is required")
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn or error, got %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("logging.format must be json or text, got %q", c.Logging.Format)
	}
	return nil
}
