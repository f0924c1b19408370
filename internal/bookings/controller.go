package bookings

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"eventbooking/internal/shared/utils/response"
)

type Controller interface {
	CreateBooking(c *gin.Context)
	GetBooking(c *gin.Context)
	CancelBooking(c *gin.Context)
	PayBooking(c *gin.Context)
	ListUserBookings(c *gin.Context)
	ListEventBookings(c *gin.Context)
}

type controller struct {
	service *Service
}

func NewController(service *Service) Controller {
	return &controller{service: service}
}

func (ctrl *controller) CreateBooking(c *gin.Context) {
	var req BookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondBindError(c, err)
		return
	}

	booking, err := ctrl.service.Book(c.Request.Context(), req)
	if err != nil {
		response.RespondError(c, err)
		return
	}

	response.RespondJSON(c, "success", http.StatusCreated, "Booking confirmed", booking, nil)
}

func (ctrl *controller) GetBooking(c *gin.Context) {
	bookingID, ok := parseID(c, "id", "Invalid booking ID")
	if !ok {
		return
	}

	booking, err := ctrl.service.Get(c.Request.Context(), bookingID)
	if err != nil {
		response.RespondError(c, err)
		return
	}

	response.RespondJSON(c, "success", http.StatusOK, "Booking retrieved successfully", booking, nil)
}

func (ctrl *controller) CancelBooking(c *gin.Context) {
	bookingID, ok := parseID(c, "id", "Invalid booking ID")
	if !ok {
		return
	}

	booking, err := ctrl.service.Cancel(c.Request.Context(), bookingID)
	if err != nil {
		response.RespondError(c, err)
		return
	}

	response.RespondJSON(c, "success", http.StatusOK, "Booking cancelled successfully", booking, nil)
}

func (ctrl *controller) PayBooking(c *gin.Context) {
	bookingID, ok := parseID(c, "id", "Invalid booking ID")
	if !ok {
		return
	}

	booking, err := ctrl.service.Pay(c.Request.Context(), bookingID)
	if err != nil {
		response.RespondError(c, err)
		return
	}

	response.RespondJSON(c, "success", http.StatusOK, "Payment recorded", booking, nil)
}

func (ctrl *controller) ListUserBookings(c *gin.Context) {
	userID, ok := parseID(c, "user_id", "Invalid user ID")
	if !ok {
		return
	}

	var query ListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.RespondBindError(c, err)
		return
	}

	bookings, err := ctrl.service.ListUserBookings(c.Request.Context(), userID, query)
	if err != nil {
		response.RespondError(c, err)
		return
	}

	response.RespondJSON(c, "success", http.StatusOK, "Bookings retrieved successfully", bookings, nil)
}

func (ctrl *controller) ListEventBookings(c *gin.Context) {
	eventID, ok := parseID(c, "id", "Invalid event ID")
	if !ok {
		return
	}

	bookings, err := ctrl.service.ListEventBookings(c.Request.Context(), eventID)
	if err != nil {
		response.RespondError(c, err)
		return
	}

	response.RespondJSON(c, "success", http.StatusOK, "Bookings retrieved successfully", bookings, nil)
}

func parseID(c *gin.Context, param, message string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		response.RespondJSON(c, "error", http.StatusBadRequest, message, nil, err.Error())
		return uuid.Nil, false
	}
	return id, true
}
