package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"disaster-alerts/internal/model"
	"disaster-alerts/internal/pipeline"
)

// RegisterAckRoutes registers the delivery-receipt endpoint.
//
// POST /ack — 200 {ok:true} once the receipt is appended, 400 on malformed
// input. Analytics failures downstream never fail the caller.
func RegisterAckRoutes(r gin.IRoutes, recorder *pipeline.AckRecorder) {
	r.POST("/ack", func(c *gin.Context) {
		var input model.AckInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "Invalid JSON"})
			return
		}

		if _, err := recorder.Record(c.Request.Context(), input); err != nil {
			var validation *pipeline.ValidationError
			if errors.As(err, &validation) {
				c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": validation.Error()})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "internal error"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
}
