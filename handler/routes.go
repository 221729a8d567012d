package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// InitAppRoutes - Registers the full API surface. Root middlewares are
// registered by the entrypoint before this.
func InitAppRoutes(r *gin.Engine) {
	r.GET("/status", StatusHandler)

	// ingest surface.
	r.POST("/sdk/event/track", SDKTrackHandler)
	r.POST("/sdk/event/bulk", SDKBulkEventHandler)

	// query surface.
	r.POST("/projects/attribution/query", AttributionQueryHandler)
	r.GET("/projects/attribution/comparison", ComparisonHandler)
	r.GET("/projects/events/live", LiveEventsHandler)
	r.GET("/projects/events/health", EventsHealthHandler)
	r.GET("/projects/dashboard/charts", DashboardChartsHandler)
}

func StatusHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "I'm ok."})
}
