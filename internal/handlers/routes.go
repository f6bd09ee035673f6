package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kuberan/ledgersync/internal/middleware"
)

// Session is everything the daemon routes need.
type Session interface {
	StatusSource
	CacheSource
}

// NewRouter builds the daemon router: /api for the session and /metrics for
// Prometheus. Routes that change state require controlKey.
func NewRouter(session Session, controlKey string, log *zap.SugaredLogger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogging(log))

	status := NewStatusHandler(session)
	cache := NewCacheHandler(session)

	api := r.Group("/api")
	api.GET("/health", status.Health)
	api.GET("/status", status.Status)
	api.GET("/accounts", cache.ListAccounts)
	api.GET("/transactions", cache.ListTransactions)
	api.GET("/messages", cache.ListMessages)

	control := api.Group("", middleware.ControlAuth(controlKey))
	control.POST("/refresh", status.Refresh)
	control.PUT("/messages/:id/read", cache.MarkMessageRead)

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	return r
}
