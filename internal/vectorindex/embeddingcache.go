package vectorindex

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// EmbeddingCache stores text→vector mappings keyed by a normalized content
// hash, avoiding redundant embedding-provider calls for repeated discussion
// turns and quiz/proofreading passages drawn from the same book chunk.
// Thread-safe; entries expire after ttl and are swept periodically.
type EmbeddingCache struct {
	mu      sync.RWMutex
	entries map[string]*embeddingCacheEntry
	ttl     time.Duration
	stopCh  chan struct{}
}

type embeddingCacheEntry struct {
	vec       []float32
	createdAt time.Time
	expiresAt time.Time
}

// NewEmbeddingCache creates an EmbeddingCache with the given TTL and starts
// its background sweep goroutine.
func NewEmbeddingCache(ttl time.Duration) *EmbeddingCache {
	c := &EmbeddingCache{
		entries: make(map[string]*embeddingCacheEntry),
		ttl:     ttl,
		stopCh:  make(chan struct{}),
	}
	go c.sweep()
	return c
}

func (c *EmbeddingCache) get(key string) ([]float32, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if time.Now().After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return nil, false
	}
	return entry.vec, true
}

func (c *EmbeddingCache) set(key string, vec []float32) {
	now := time.Now()
	c.mu.Lock()
	c.entries[key] = &embeddingCacheEntry{vec: vec, createdAt: now, expiresAt: now.Add(c.ttl)}
	c.mu.Unlock()
}

// Len returns the number of live entries, for tests and diagnostics.
func (c *EmbeddingCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Stop halts the background sweep goroutine.
func (c *EmbeddingCache) Stop() {
	close(c.stopCh)
}

func (c *EmbeddingCache) sweep() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			now := time.Now()
			c.mu.Lock()
			for key, entry := range c.entries {
				if now.After(entry.expiresAt) {
					delete(c.entries, key)
				}
			}
			c.mu.Unlock()
		case <-c.stopCh:
			return
		}
	}
}

func embeddingCacheKey(text string) string {
	normalized := strings.ToLower(strings.TrimSpace(text))
	h := sha256.Sum256([]byte(normalized))
	return fmt.Sprintf("emb:%x", h[:16])
}

// CachedEmbeddingClient decorates an EmbeddingClient with an EmbeddingCache,
// skipping the provider call entirely for texts seen within the TTL window.
// A partial cache hit within a batch still issues one provider call, for the
// uncached texts only.
type CachedEmbeddingClient struct {
	inner EmbeddingClient
	cache *EmbeddingCache
	log   *slog.Logger
}

// NewCachedEmbeddingClient wraps inner with cache.
func NewCachedEmbeddingClient(inner EmbeddingClient, cache *EmbeddingCache, log *slog.Logger) *CachedEmbeddingClient {
	return &CachedEmbeddingClient{inner: inner, cache: cache, log: log}
}

func (c *CachedEmbeddingClient) Dimensions() int {
	return c.inner.Dimensions()
}

func (c *CachedEmbeddingClient) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	results := make([][]float32, len(texts))
	var missIdx []int
	var missTexts []string

	for i, t := range texts {
		key := embeddingCacheKey(t)
		if vec, ok := c.cache.get(key); ok {
			results[i] = vec
			continue
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, t)
	}

	if len(missTexts) == 0 {
		return results, nil
	}

	vecs, err := c.inner.EmbedTexts(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	c.log.Info("[vectorindex] embedding cache", "total", len(texts), "misses", len(missTexts))

	for i, idx := range missIdx {
		if i >= len(vecs) {
			break
		}
		results[idx] = vecs[i]
		c.cache.set(embeddingCacheKey(texts[idx]), vecs[i])
	}
	return results, nil
}
