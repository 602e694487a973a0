package cache

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/quantpulse/corrseek-go/internal/models"
)

// MemorySeriesCache is an in-process SharedSeriesCache for single-process
// runs and tests. It is only sufficient while all workers share the process;
// multi-process runs need RedisSeriesCache.
type MemorySeriesCache struct {
	mu      sync.RWMutex
	entries map[string]*models.TimeSeries
	hits    atomic.Int64
	misses  atomic.Int64
}

func NewMemorySeriesCache() *MemorySeriesCache {
	return &MemorySeriesCache{entries: make(map[string]*models.TimeSeries)}
}

func (c *MemorySeriesCache) GetOrCompute(ctx context.Context, symbol string, compute ComputeFunc) (*models.TimeSeries, error) {
	c.mu.RLock()
	series, ok := c.entries[symbol]
	c.mu.RUnlock()
	if ok {
		c.hits.Add(1)
		return series, nil
	}

	c.misses.Add(1)

	series, err := compute(ctx)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	// A concurrent computation may have landed first; keep it.
	if existing, ok := c.entries[symbol]; ok {
		series = existing
	} else {
		c.entries[symbol] = series
	}
	c.mu.Unlock()

	return series, nil
}

func (c *MemorySeriesCache) Hits(ctx context.Context) (int64, error) {
	return c.hits.Load(), nil
}

func (c *MemorySeriesCache) Misses(ctx context.Context) (int64, error) {
	return c.misses.Load(), nil
}
