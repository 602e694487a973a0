package api

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/quantpulse/corrseek-go/internal/api/handlers"
	"github.com/quantpulse/corrseek-go/internal/database"
	"github.com/quantpulse/corrseek-go/internal/store"
)

// SetupRoutes wires the result API. The correlation core never serves HTTP;
// these routes only read back persisted top-K lists and run-level cache stats.
func SetupRoutes(router *gin.Engine, db *database.PostgresDB, redis *database.RedisClient,
	results handlers.ResultReader, metadata store.MetadataCatalog, logger *logrus.Logger) {

	healthHandler := handlers.NewHealthHandler(db, redis)
	resultsHandler := handlers.NewResultsHandler(results, metadata, logger)
	cacheHandler := handlers.NewCacheStatsHandler(redis)

	router.GET("/health", healthHandler.HealthCheck)

	v1 := router.Group("/api/v1")
	{
		anchors := v1.Group("/anchors")
		{
			anchors.GET("/:symbol/correlations", resultsHandler.GetCorrelations)
		}

		cache := v1.Group("/cache")
		{
			cache.GET("/stats", cacheHandler.GetStats)
		}
	}
}
