package bookings

import (
	"github.com/gin-gonic/gin"
)

func SetupBookingRoutes(router *gin.RouterGroup, controller Controller) {
	bookings := router.Group("/bookings")
	{
		bookings.POST("", controller.CreateBooking)            // POST /api/v1/bookings - Book tickets
		bookings.GET("/:id", controller.GetBooking)            // GET /api/v1/bookings/:id - Booking details
		bookings.POST("/:id/cancel", controller.CancelBooking) // POST /api/v1/bookings/:id/cancel - Cancel and restore tickets
		bookings.POST("/:id/pay", controller.PayBooking)       // POST /api/v1/bookings/:id/pay - Record payment
	}

	router.GET("/users/:user_id/bookings", controller.ListUserBookings) // GET /api/v1/users/:user_id/bookings - Booking history
	router.GET("/events/:id/bookings", controller.ListEventBookings)    // GET /api/v1/events/:id/bookings - Bookings for an event
}
