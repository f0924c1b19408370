package events

import (
	"github.com/gin-gonic/gin"
)

func SetupEventRoutes(router *gin.RouterGroup, controller Controller) {
	events := router.Group("/events")
	{
		events.GET("", controller.ListEvents)                     // GET /api/v1/events - Browse active events
		events.POST("", controller.CreateEvent)                   // POST /api/v1/events - Create event
		events.GET("/:id", controller.GetEvent)                   // GET /api/v1/events/:id - Inventory snapshot
		events.PATCH("/:id/status", controller.UpdateEventStatus) // PATCH /api/v1/events/:id/status - Cancel or complete
		events.GET("/:id/cost", controller.GetBookingCost)        // GET /api/v1/events/:id/cost?tickets=n - Price quote
	}
}
