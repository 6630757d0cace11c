package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"disaster-alerts/internal/model"
	"disaster-alerts/internal/push"
)

// RegisterPushRoutes registers push subscription management. Every endpoint
// answers 503 while push delivery is not configured.
func RegisterPushRoutes(r gin.IRoutes, svc *push.Service) {
	r.GET("/push/vapid-public-key", func(c *gin.Context) {
		if !svc.Configured() {
			c.JSON(http.StatusServiceUnavailable, gin.H{"ok": false, "error": "Push not configured"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true, "publicKey": svc.PublicKey()})
	})

	r.POST("/push/subscribe", func(c *gin.Context) {
		if !svc.Configured() {
			c.JSON(http.StatusServiceUnavailable, gin.H{"ok": false, "error": "Push not configured"})
			return
		}
		var sub model.PushSubscription
		if err := c.ShouldBindJSON(&sub); err != nil || !sub.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "Invalid PushSubscription"})
			return
		}
		if err := svc.Store().Save(sub); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "internal error"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true, "endpoint": sub.Endpoint})
	})

	r.POST("/push/unsubscribe", func(c *gin.Context) {
		if !svc.Configured() {
			c.JSON(http.StatusServiceUnavailable, gin.H{"ok": false, "error": "Push not configured"})
			return
		}
		var input struct {
			Endpoint string `json:"endpoint"`
		}
		if err := c.ShouldBindJSON(&input); err != nil || input.Endpoint == "" {
			c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "endpoint required"})
			return
		}
		if err := svc.Store().Remove(input.Endpoint); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "internal error"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true, "endpoint": input.Endpoint})
	})
}
