package datasource

import (
	"context"
	"fmt"
	"sync"
	"time"

	cache "github.com/patrickmn/go-cache"

	"github.com/yourusername/signal-lab/internal/models"
)

// CachedSource memoizes bar loads so every hour of a strategy reads the file once
type CachedSource struct {
	source    BarSource
	cache     *cache.Cache
	ttl       time.Duration
	mu        sync.Mutex
	hitCount  uint64
	missCount uint64
}

// NewCachedSource wraps a source with a TTL cache
func NewCachedSource(source BarSource, ttl time.Duration) *CachedSource {
	return &CachedSource{
		source: source,
		cache:  cache.New(ttl, ttl*2),
		ttl:    ttl,
	}
}

// Name returns the wrapped source name
func (c *CachedSource) Name() string {
	return "cached_" + c.source.Name()
}

func cacheKey(symbol, timeframe string, start, end time.Time) string {
	return fmt.Sprintf("%s:%s:%d:%d", symbol, timeframe, start.UnixNano(), end.UnixNano())
}

// Bars returns a private copy of the cached bars, loading them on a miss
func (c *CachedSource) Bars(ctx context.Context, symbol, timeframe string, start, end time.Time) ([]models.Bar, error) {
	key := cacheKey(symbol, timeframe, start, end)

	c.mu.Lock()
	defer c.mu.Unlock()

	if cached, found := c.cache.Get(key); found {
		if bars, ok := cached.([]models.Bar); ok {
			c.hitCount++
			return copyBars(bars), nil
		}
	}
	c.missCount++

	bars, err := c.source.Bars(ctx, symbol, timeframe, start, end)
	if err != nil {
		return nil, err
	}
	c.cache.Set(key, copyBars(bars), c.ttl)
	return bars, nil
}

// Stats returns cache hit and miss counts
func (c *CachedSource) Stats() (hits, misses uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hitCount, c.missCount
}

// Flush drops every cached series
func (c *CachedSource) Flush() {
	c.cache.Flush()
}

func copyBars(bars []models.Bar) []models.Bar {
	out := make([]models.Bar, len(bars))
	copy(out, bars)
	return out
}
