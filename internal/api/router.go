package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"parking-ledger-backend/config"
	"parking-ledger-backend/internal/metrics"
	"parking-ledger-backend/internal/mw"
)

// NewRouter creates and configures a new Gin router. responses caches the facility
// listing; a nil cache gets one sized from cfg.
func NewRouter(h *Handler, cfg *config.ServerConfig, m *metrics.Metrics, responses *mw.ResponseCache) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), mw.RequestID(), mw.AccessLog(h.log, m))

	rateLimiter := mw.RateLimiter(rate.Limit(cfg.RateLimitPerSec), cfg.RateLimitBurst)

	if responses == nil {
		responses = mw.NewResponseCache(time.Duration(cfg.CacheTTLSeconds) * time.Second)
	}
	caching := mw.Cache(responses)
	invalidate := mw.InvalidateCache(responses)

	r.GET("/healthz", h.Healthz)
	r.GET("/metrics", gin.WrapH(m.Handler()))

	api := r.Group("/api")
	api.Use(rateLimiter)
	{
		api.POST("/entries", invalidate, h.PostEntry)
		api.POST("/exits", invalidate, h.PostExit)

		api.GET("/facilities", caching, h.GetFacilities)
		api.GET("/facilities/:facility_id/vehicles", h.GetParkedVehicles)
		api.GET("/facilities/:facility_id/history", h.GetHistory)
		api.GET("/vehicles", h.SearchVehicles)

		api.GET("/subscriptions", h.GetSubscription)
		api.PUT("/subscriptions", h.PutSubscription)
		api.DELETE("/subscriptions", h.DeleteSubscription)
		api.GET("/vapid_public_key", h.GetVAPIDPublicKey)
	}

	return r
}
