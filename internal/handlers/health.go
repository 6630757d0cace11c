package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"disaster-alerts/internal/config"
	"disaster-alerts/internal/push"
	"disaster-alerts/internal/registry"
)

// RegisterHealthRoutes registers the detailed health endpoint.
//
// GET /health — summarizes the configured topics, delivery transports, live
// subscriber counts and push state.
func RegisterHealthRoutes(r gin.IRoutes, cfg config.Config, svc *push.Service, sseReg, wsReg *registry.Registry) {
	r.GET("/health", func(c *gin.Context) {
		subscriptions, err := svc.Store().Count()
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"ok": false, "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"ok":        true,
			"mlBaseUrl": cfg.MLBaseURL,
			"channel":   cfg.TopicDistribute,
			"streams": gin.H{
				"alerts":     cfg.TopicAlerts,
				"acks":       cfg.TopicAcks,
				"reportSync": cfg.TopicReportSync,
			},
			"delivery": gin.H{
				"sse":  cfg.EnableSSE,
				"ws":   cfg.EnableWS,
				"push": cfg.EnablePush,
			},
			"subscribers": gin.H{
				"sse": sseReg.Len(),
				"ws":  wsReg.Len(),
			},
			"push": gin.H{
				"configured":    svc.Configured(),
				"subscriptions": subscriptions,
			},
			"ts": time.Now().UnixMilli(),
		})
	})
}
