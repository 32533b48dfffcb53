package embed

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/baheth/baheth/internal/search"
)

// DefaultCacheSize bounds the query-embedding cache. At 1024 dimensions
// * 4 bytes * 2048 entries that is roughly 8MB.
const DefaultCacheSize = 2048

// CachedEmbedder wraps an Embedder with LRU caching. Repeated and expanded
// queries often re-embed the same text within a request burst; a hit saves a
// full round trip to the embedding service.
type CachedEmbedder struct {
	inner search.Embedder
	cache *lru.Cache[string, []float32]
}

var _ search.Embedder = (*CachedEmbedder)(nil)

// NewCachedEmbedder wraps inner with an LRU of the given size.
func NewCachedEmbedder(inner search.Embedder, cacheSize int) *CachedEmbedder {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	cache, _ := lru.New[string, []float32](cacheSize)
	return &CachedEmbedder{inner: inner, cache: cache}
}

// cacheKey hashes text together with the model name so a model change can
// never serve stale vectors.
func (c *CachedEmbedder) cacheKey(text string) string {
	combined := text + "\x00" + c.inner.ModelName()
	hash := sha256.Sum256([]byte(combined))
	return hex.EncodeToString(hash[:])
}

// Embed returns the cached vector if present, otherwise computes and caches.
func (c *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	key := c.cacheKey(text)
	if vec, ok := c.cache.Get(key); ok {
		return vec, nil
	}

	vec, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, vec)
	return vec, nil
}

// ModelName reports the wrapped embedder's model.
func (c *CachedEmbedder) ModelName() string { return c.inner.ModelName() }

// Dimensions reports the wrapped embedder's vector width.
func (c *CachedEmbedder) Dimensions() int { return c.inner.Dimensions() }
