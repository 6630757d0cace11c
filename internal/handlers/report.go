// Package handlers wires the HTTP surface: report submission, delivery
// acknowledgements, the live stream transports and push subscription
// management.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"disaster-alerts/internal/classifier"
	"disaster-alerts/internal/model"
	"disaster-alerts/internal/pipeline"
)

// RegisterReportRoutes registers the report submission endpoint.
//
// POST /report
//   - 200 with the (possibly deduped) response payload
//   - 400 on validation failure, 409 on dedup lock contention,
//     502 when the classifier call fails
func RegisterReportRoutes(r gin.IRoutes, p *pipeline.Pipeline) {
	r.POST("/report", func(c *gin.Context) {
		var input model.ReportInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "Invalid JSON"})
			return
		}

		resp, err := p.Submit(c.Request.Context(), input)
		if err != nil {
			writeReportError(c, err)
			return
		}
		c.JSON(http.StatusOK, resp)
	})
}

func writeReportError(c *gin.Context, err error) {
	var validation *pipeline.ValidationError
	if errors.As(err, &validation) {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": validation.Error()})
		return
	}
	if errors.Is(err, pipeline.ErrConflict) {
		c.JSON(http.StatusConflict, gin.H{"ok": false, "error": err.Error()})
		return
	}
	var upstream *classifier.UpstreamError
	if errors.As(err, &upstream) {
		c.JSON(http.StatusBadGateway, gin.H{
			"ok":     false,
			"error":  "ML /predict failed",
			"status": upstream.Status,
			"detail": upstream.Detail,
		})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "internal error"})
}
