package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/quantpulse/corrseek-go/internal/cache"
	"github.com/quantpulse/corrseek-go/internal/database"
)

// CacheStatsHandler exposes the hit/miss counters a correlation run left in
// Redis, keyed by run ID.
type CacheStatsHandler struct {
	redis *database.RedisClient
}

type CacheStatsResponse struct {
	RunID  string `json:"run_id"`
	Hits   int64  `json:"hits"`
	Misses int64  `json:"misses"`
}

func NewCacheStatsHandler(redisClient *database.RedisClient) *CacheStatsHandler {
	return &CacheStatsHandler{redis: redisClient}
}

func (h *CacheStatsHandler) GetStats(c *gin.Context) {
	runID := c.Query("run_id")
	if runID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "run_id query parameter is required"})
		return
	}

	ctx := c.Request.Context()
	hits, err := h.redis.Client.Get(ctx, cache.StatsKey(runID, "hits")).Int64()
	if err != nil && err != redis.Nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read cache stats"})
		return
	}
	misses, err := h.redis.Client.Get(ctx, cache.StatsKey(runID, "misses")).Int64()
	if err != nil && err != redis.Nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read cache stats"})
		return
	}

	c.JSON(http.StatusOK, CacheStatsResponse{RunID: runID, Hits: hits, Misses: misses})
}
