package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// HealthHandler checks the durable store and KV store the pipeline
// depends on, matching spec.md §6's "per-dep checks" requirement.
type HealthHandler struct {
	db  *gorm.DB
	rdb *redis.Client
}

func NewHealthHandler(db *gorm.DB, rdb *redis.Client) *HealthHandler {
	return &HealthHandler{db: db, rdb: rdb}
}

// Check handles GET /health.
func (h *HealthHandler) Check(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	deps := gin.H{}
	healthy := true

	if sqlDB, err := h.db.DB(); err != nil || sqlDB.PingContext(ctx) != nil {
		deps["database"] = "down"
		healthy = false
	} else {
		deps["database"] = "ok"
	}

	if err := h.rdb.Ping(ctx).Err(); err != nil {
		deps["redis"] = "down"
		healthy = false
	} else {
		deps["redis"] = "ok"
	}

	if healthy {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "dependencies": deps})
		return
	}
	c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "dependencies": deps})
}
