package openai

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/strataworks/geoassist/internal/core/ports"
)

const defaultCacheSize = 512

// CachedEmbedder memoizes query vectors by content hash. Lookups are
// reported through onLookup so the binary's metrics can count hits.
type CachedEmbedder struct {
	inner    ports.Embedder
	cache    *lru.Cache[string, []float32]
	onLookup func(hit bool)
}

func NewCachedEmbedder(inner ports.Embedder, size int, onLookup func(hit bool)) *CachedEmbedder {
	if size <= 0 {
		size = defaultCacheSize
	}
	cache, err := lru.New[string, []float32](size)
	if err != nil {
		cache, _ = lru.New[string, []float32](defaultCacheSize)
	}
	return &CachedEmbedder{
		inner:    inner,
		cache:    cache,
		onLookup: onLookup,
	}
}

func (c *CachedEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	key := cacheKey(text)
	if vector, ok := c.cache.Get(key); ok {
		c.lookup(true)
		out := make([]float32, len(vector))
		copy(out, vector)
		return out, nil
	}
	c.lookup(false)

	vector, err := c.inner.EmbedQuery(ctx, text)
	if err != nil {
		return nil, err
	}

	stored := make([]float32, len(vector))
	copy(stored, vector)
	c.cache.Add(key, stored)
	return vector, nil
}

func (c *CachedEmbedder) Len() int {
	return c.cache.Len()
}

func (c *CachedEmbedder) lookup(hit bool) {
	if c.onLookup != nil {
		c.onLookup(hit)
	}
}

func cacheKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
