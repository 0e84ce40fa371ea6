package embed

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize is the number of query embeddings kept in memory.
// 384 dims * 4 bytes * 1000 entries is about 1.5MB.
const DefaultCacheSize = 1000

// CachedEmbedder wraps an Embedder with an LRU cache so repeated queries
// skip the upstream call. EncodeBatch looks up every text in the cache
// and sends only the misses upstream.
type CachedEmbedder struct {
	inner Embedder
	cache *lru.Cache[string, []float32]
}

var _ Embedder = (*CachedEmbedder)(nil)

func NewCachedEmbedder(inner Embedder, size int) *CachedEmbedder {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, _ := lru.New[string, []float32](size)
	return &CachedEmbedder{inner: inner, cache: cache}
}

func (c *CachedEmbedder) Dimension() int    { return c.inner.Dimension() }
func (c *CachedEmbedder) ModelName() string { return c.inner.ModelName() }

func (c *CachedEmbedder) key(text string) string {
	sum := sha256.Sum256([]byte(text + "\x00" + c.inner.ModelName()))
	return hex.EncodeToString(sum[:])
}

func (c *CachedEmbedder) Encode(ctx context.Context, text string) ([]float32, error) {
	k := c.key(text)
	if vec, ok := c.cache.Get(k); ok {
		return vec, nil
	}
	vec, err := c.inner.Encode(ctx, text)
	if err != nil {
		return nil, err
	}
	c.cache.Add(k, vec)
	return vec, nil
}

func (c *CachedEmbedder) EncodeBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	results := make([][]float32, len(texts))
	missIdx := make([]int, 0, len(texts))
	missTexts := make([]string, 0, len(texts))

	for i, text := range texts {
		if vec, ok := c.cache.Get(c.key(text)); ok {
			results[i] = vec
		} else {
			missIdx = append(missIdx, i)
			missTexts = append(missTexts, text)
		}
	}
	if len(missTexts) == 0 {
		return results, nil
	}

	fresh, err := c.inner.EncodeBatch(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	for j, i := range missIdx {
		results[i] = fresh[j]
		c.cache.Add(c.key(texts[i]), fresh[j])
	}
	return results, nil
}
