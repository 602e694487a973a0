package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/quantpulse/corrseek-go/internal/database"
)

type HealthHandler struct {
	db    *database.PostgresDB
	redis *database.RedisClient
}

type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Services  map[string]string `json:"services"`
}

func NewHealthHandler(db *database.PostgresDB, redis *database.RedisClient) *HealthHandler {
	return &HealthHandler{db: db, redis: redis}
}

func (h *HealthHandler) HealthCheck(c *gin.Context) {
	services := make(map[string]string)

	if h.db != nil {
		if err := h.db.HealthCheck(c.Request.Context()); err != nil {
			services["database"] = "unhealthy: " + err.Error()
		} else {
			services["database"] = "healthy"
		}
	} else {
		services["database"] = "unhealthy: not configured"
	}

	if h.redis != nil {
		if err := h.redis.HealthCheck(c.Request.Context()); err != nil {
			services["redis"] = "unhealthy: " + err.Error()
		} else {
			services["redis"] = "healthy"
		}
	} else {
		services["redis"] = "unhealthy: not configured"
	}

	status := http.StatusOK
	overall := "healthy"
	for _, s := range services {
		if s != "healthy" {
			overall = "unhealthy"
			status = http.StatusServiceUnavailable
			break
		}
	}

	c.JSON(status, HealthResponse{
		Status:    overall,
		Timestamp: time.Now(),
		Services:  services,
	})
}
