package cmd

import (
	"fmt"
	"log/slog"

	"github.com/baheth/baheth/internal/config"
	"github.com/baheth/baheth/internal/embed"
	"github.com/baheth/baheth/internal/lexical"
	"github.com/baheth/baheth/internal/llm"
	"github.com/baheth/baheth/internal/logging"
	"github.com/baheth/baheth/internal/query"
	"github.com/baheth/baheth/internal/search"
	"github.com/baheth/baheth/internal/store"
	"github.com/baheth/baheth/internal/vector"
)

// app bundles the wired engine with the clients that need lifecycle
// management and health probing.
type app struct {
	cfg     *config.Config
	engine  *search.Engine
	vector  *vector.Client
	lexical *lexical.Client
	store   *store.Store
	logger  *slog.Logger
}

func (a *app) close() {
	if a.vector != nil {
		_ = a.vector.Close()
	}
	if a.store != nil {
		_ = a.store.Close()
	}
}

// buildApp assembles the full pipeline from configuration. The catalog store
// and LLM are optional: without a DSN results are unenriched, without an LLM
// refine mode degrades to the original query and listwise reranking is
// unavailable.
func buildApp(configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	logger := logging.Setup(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})

	vectorClient, err := vector.New(vector.Config{
		Host:   cfg.Vector.Host,
		Port:   cfg.Vector.Port,
		APIKey: cfg.Vector.APIKey,
		UseTLS: cfg.Vector.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("vector client: %w", err)
	}

	lexicalClient := lexical.New(lexical.Config{
		Endpoint: cfg.Lexical.Endpoint,
		APIKey:   cfg.Lexical.APIKey,
	})

	embedder, err := embed.New(embed.Config{
		BaseURL:    cfg.Embedding.BaseURL,
		APIKey:     cfg.Embedding.APIKey,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
	})
	if err != nil {
		return nil, fmt.Errorf("embedder: %w", err)
	}
	cachedEmbedder := embed.NewCachedEmbedder(embedder, cfg.Embedding.CacheSize)

	engineCfg := engineConfig(cfg)
	adapters := search.NewAdapters(vectorClient, lexicalClient, cachedEmbedder, engineCfg)
	normalizer := query.NewNormalizer()

	opts := []search.EngineOption{
		search.WithLogger(logger),
	}

	var completer *llm.Completer
	if cfg.LLM.Model != "" {
		completer, err = llm.New(llm.Config{
			BaseURL: cfg.LLM.BaseURL,
			APIKey:  cfg.LLM.APIKey,
			Model:   cfg.LLM.Model,
		})
		if err != nil {
			return nil, fmt.Errorf("llm client: %w", err)
		}

		cache := search.NewExpansionCache(0, cfg.Search.ExpansionTTL)
		opts = append(opts, search.WithExpander(search.NewExpander(completer, cache, engineCfg)))
	}

	reranker, err := buildReranker(cfg, completer, cachedEmbedder)
	if err != nil {
		return nil, err
	}
	opts = append(opts, search.WithReranker(reranker))

	if completer != nil {
		opts = append(opts, search.WithUnifiedReranker(&search.UnifiedReranker{
			Listwise: &search.ListwiseReranker{
				Completer: completer,
				Model:     cfg.LLM.Model,
				Timeout:   cfg.Search.UnifiedRerankTimeout,
				DocChars:  cfg.Search.RerankDocChars,
			},
		}))
	}

	a := &app{
		cfg:     cfg,
		vector:  vectorClient,
		lexical: lexicalClient,
		logger:  logger,
	}

	if cfg.Database.DSN != "" {
		metaStore, err := store.Open(store.Config{
			DSN:          cfg.Database.DSN,
			MaxOpenConns: cfg.Database.MaxOpenConns,
			MaxIdleConns: cfg.Database.MaxIdleConns,
		})
		if err != nil {
			return nil, fmt.Errorf("catalog store: %w", err)
		}
		a.store = metaStore
		opts = append(opts, search.WithMetadataStore(metaStore))
	}

	a.engine = search.NewEngine(adapters, normalizer, engineCfg, opts...)
	return a, nil
}

func engineConfig(cfg *config.Config) search.EngineConfig {
	ec := search.DefaultEngineConfig()
	ec.DefaultLimit = cfg.Search.DefaultLimit
	ec.MaxLimit = cfg.Search.MaxLimit
	ec.MaxQueryChars = cfg.Search.MaxQueryChars
	ec.DefaultCutoff = cfg.Search.DefaultCutoff
	ec.Fusion.K = cfg.Search.RRFConstant
	ec.Fusion.BonusMultiplier = cfg.Search.BonusMultiplier
	ec.Fusion.BM25Pivot = cfg.Search.BM25Pivot
	ec.BookCollection = cfg.Vector.BookCollection
	ec.AyahCollection = cfg.Vector.AyahCollection
	ec.HadithCollection = cfg.Vector.HadithCollection
	ec.BookIndex = cfg.Lexical.BookIndex
	ec.AyahIndex = cfg.Lexical.AyahIndex
	ec.HadithIndex = cfg.Lexical.HadithIndex
	ec.KeywordFuzzyFallback = cfg.Search.KeywordFuzzyFallback
	ec.BookDenylist = cfg.Search.BookDenylist
	ec.MaxExpansions = cfg.Search.MaxExpansions
	ec.OriginalWeight = cfg.Search.OriginalWeight
	ec.ExpandedWeight = cfg.Search.ExpandedWeight
	ec.ExpansionTTL = cfg.Search.ExpansionTTL
	ec.RerankTimeout = cfg.Search.RerankTimeout
	ec.UnifiedRerankTimeout = cfg.Search.UnifiedRerankTimeout
	ec.RerankDocChars = cfg.Search.RerankDocChars
	ec.UnifiedPerTypeCap = cfg.Search.UnifiedPerTypeCap
	ec.RefinePerTypeCap = cfg.Search.RefinePerTypeCap
	return ec
}

func buildReranker(cfg *config.Config, completer *llm.Completer, embedder search.Embedder) (search.Reranker, error) {
	switch cfg.Search.Reranker {
	case "", "none":
		return search.NoneReranker{}, nil
	case "embedding":
		return &search.EmbeddingReranker{Embedder: embedder}, nil
	case "listwise":
		if completer == nil {
			return nil, fmt.Errorf("listwise reranker requires llm.model to be configured")
		}
		return &search.ListwiseReranker{
			Completer: completer,
			Model:     cfg.LLM.Model,
			Timeout:   cfg.Search.RerankTimeout,
			DocChars:  cfg.Search.RerankDocChars,
		}, nil
	default:
		return nil, fmt.Errorf("unknown reranker %q", cfg.Search.Reranker)
	}
}
