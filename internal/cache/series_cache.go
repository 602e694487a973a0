package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/quantpulse/corrseek-go/internal/models"
)

// ComputeFunc produces the value for a cache miss: the validated raw series
// for a symbol.
type ComputeFunc func(ctx context.Context) (*models.TimeSeries, error)

// SharedSeriesCache caches validated raw series keyed by symbol only.
// Windowing and detrending are cheap and recomputed per window from the
// cached raw series, which keeps the key space to one entry per symbol.
//
// Every lookup increments exactly one of the hit or miss counters. A failed
// computation is never cached, so a transient failure retries on the next
// lookup.
type SharedSeriesCache interface {
	GetOrCompute(ctx context.Context, symbol string, compute ComputeFunc) (*models.TimeSeries, error)
	Hits(ctx context.Context) (int64, error)
	Misses(ctx context.Context) (int64, error)
}

// cachedSeries is the Redis document for one symbol. NaN is not representable
// in JSON, so missing observations travel as nulls.
type cachedSeries struct {
	Symbol   string      `json:"symbol"`
	CachedAt time.Time   `json:"cached_at"`
	Dates    []time.Time `json:"dates"`
	Values   []*float64  `json:"values"`
}

func encodeSeries(series *models.TimeSeries) cachedSeries {
	entry := cachedSeries{
		Symbol:   series.Symbol,
		CachedAt: time.Now().UTC(),
		Dates:    make([]time.Time, series.Len()),
		Values:   make([]*float64, series.Len()),
	}
	for i, o := range series.Observations {
		entry.Dates[i] = o.Date
		if !math.IsNaN(o.Value) {
			v := o.Value
			entry.Values[i] = &v
		}
	}
	return entry
}

func (e cachedSeries) decode() *models.TimeSeries {
	series := &models.TimeSeries{
		Symbol:       e.Symbol,
		Observations: make([]models.Observation, len(e.Dates)),
	}
	for i, d := range e.Dates {
		value := math.NaN()
		if i < len(e.Values) && e.Values[i] != nil {
			value = *e.Values[i]
		}
		series.Observations[i] = models.Observation{Date: d, Value: value}
	}
	return series
}

// RedisSeriesCache implements SharedSeriesCache on Redis. Redis keeps the
// cache reachable from every worker even when workers are separate OS
// processes; a same-process map cannot give that guarantee. Hit/miss counters
// are run-scoped Redis keys so all processes of a run report into one pair.
//
// Two workers missing on the same symbol at once may both compute it; the
// redundancy is bounded by the worker count and the SET NX below keeps the
// first completed value.
type RedisSeriesCache struct {
	client redis.Cmdable
	runID  string
	ttl    time.Duration
	logger *logrus.Logger
}

const (
	seriesKeyPrefix = "corrseek:series:"
	statsKeyPrefix  = "corrseek:cache_stats:"
)

// StatsKey returns the Redis key holding one of a run's cache counters
// ("hits" or "misses"). Exported so the stats API reads the same keys the
// cache writes.
func StatsKey(runID, counter string) string {
	return statsKeyPrefix + runID + ":" + counter
}

func NewRedisSeriesCache(client redis.Cmdable, runID string, ttl time.Duration, logger *logrus.Logger) *RedisSeriesCache {
	return &RedisSeriesCache{client: client, runID: runID, ttl: ttl, logger: logger}
}

func (c *RedisSeriesCache) GetOrCompute(ctx context.Context, symbol string, compute ComputeFunc) (*models.TimeSeries, error) {
	key := seriesKeyPrefix + symbol

	data, err := c.client.Get(ctx, key).Result()
	if err == nil {
		var entry cachedSeries
		if unmarshalErr := json.Unmarshal([]byte(data), &entry); unmarshalErr == nil {
			c.bump(ctx, "hits")
			return entry.decode(), nil
		}
		// Undecodable entry: drop it and recompute as a miss.
		c.logger.WithField("symbol", symbol).Warn("Discarding corrupt cache entry")
		c.client.Del(ctx, key)
	} else if err != redis.Nil {
		return nil, fmt.Errorf("cache lookup failed for %s: %w", symbol, err)
	}

	c.bump(ctx, "misses")

	series, err := compute(ctx)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(encodeSeries(series))
	if err != nil {
		return nil, fmt.Errorf("failed to serialize series for %s: %w", symbol, err)
	}
	// NX: if a concurrent worker already stored this symbol, keep its value.
	if err := c.client.SetNX(ctx, key, payload, c.ttl).Err(); err != nil {
		// Population is best effort; the computed value is still good.
		c.logger.WithField("symbol", symbol).WithError(err).Warn("Failed to populate series cache")
	}

	return series, nil
}

func (c *RedisSeriesCache) bump(ctx context.Context, counter string) {
	key := StatsKey(c.runID, counter)
	if err := c.client.Incr(ctx, key).Err(); err != nil {
		c.logger.WithError(err).Debug("Failed to increment cache counter")
	}
}

func (c *RedisSeriesCache) Hits(ctx context.Context) (int64, error) {
	return c.counter(ctx, "hits")
}

func (c *RedisSeriesCache) Misses(ctx context.Context) (int64, error) {
	return c.counter(ctx, "misses")
}

func (c *RedisSeriesCache) counter(ctx context.Context, name string) (int64, error) {
	value, err := c.client.Get(ctx, StatsKey(c.runID, name)).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read cache %s counter: %w", name, err)
	}
	return value, nil
}

// LogStats emits the run's cache performance totals.
func (c *RedisSeriesCache) LogStats(ctx context.Context) {
	hits, err := c.Hits(ctx)
	if err != nil {
		c.logger.WithError(err).Warn("Failed to read cache stats")
		return
	}
	misses, _ := c.Misses(ctx)
	total := hits + misses
	hitRate := float64(0)
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}
	c.logger.WithFields(logrus.Fields{
		"hits":     hits,
		"misses":   misses,
		"hit_rate": fmt.Sprintf("%.2f%%", hitRate),
	}).Info("Series cache stats")
}
