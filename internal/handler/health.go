package handler

import (
	"context"
	"net/http"
	"time"

	"mme/internal/database/client"
	redisRepo "mme/internal/database/redis/repository"
	"mme/internal/service"

	"github.com/gin-gonic/gin"
)

const readinessTimeout = 2 * time.Second

type pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	healthStatus *service.HealthService
	store        pinger
	cache        pinger
}

func NewHealthHandler(
	status *service.HealthService,
	mongoClient *client.MongoClient,
	proxyConfigCache *redisRepo.ProxyConfigCacheRepository,
) *HealthHandler {
	return &HealthHandler{healthStatus: status, store: mongoClient, cache: proxyConfigCache}
}

func (h *HealthHandler) Liveness(c *gin.Context) {
	if h.healthStatus.IsLive() {
		c.JSON(http.StatusOK, gin.H{"status": "alive"})
		return
	}
	c.Status(http.StatusServiceUnavailable)
}

// Readiness requires MongoDB. The cache is reported but never blocks traffic
// since lookups fall back to MongoDB.
func (h *HealthHandler) Readiness(c *gin.Context) {
	if !h.healthStatus.IsReady() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "starting"})
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), readinessTimeout)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "mongodb": err.Error()})
		return
	}
	cache := "ok"
	if err := h.cache.Ping(ctx); err != nil {
		cache = err.Error()
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready", "mongodb": "ok", "redis": cache})
}
