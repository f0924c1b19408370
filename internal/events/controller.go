package events

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"eventbooking/internal/shared/errs"
	"eventbooking/internal/shared/utils/response"
)

type Controller interface {
	CreateEvent(c *gin.Context)
	GetEvent(c *gin.Context)
	ListEvents(c *gin.Context)
	UpdateEventStatus(c *gin.Context)
	GetBookingCost(c *gin.Context)
}

type controller struct {
	store *Store
}

func NewController(store *Store) Controller {
	return &controller{store: store}
}

func (ctrl *controller) CreateEvent(c *gin.Context) {
	var req CreateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondBindError(c, err)
		return
	}

	event, err := ctrl.store.Create(c.Request.Context(), req)
	if err != nil {
		response.RespondError(c, err)
		return
	}

	response.RespondJSON(c, "success", http.StatusCreated, "Event created successfully", event, nil)
}

func (ctrl *controller) GetEvent(c *gin.Context) {
	eventID, ok := parseEventID(c)
	if !ok {
		return
	}

	snapshot, err := ctrl.store.GetStatus(c.Request.Context(), eventID)
	if err != nil {
		response.RespondError(c, err)
		return
	}

	response.RespondJSON(c, "success", http.StatusOK, "Event retrieved successfully", snapshot, nil)
}

func (ctrl *controller) ListEvents(c *gin.Context) {
	var query ListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.RespondBindError(c, err)
		return
	}

	result, err := ctrl.store.ListActive(c.Request.Context(), query)
	if err != nil {
		response.RespondError(c, err)
		return
	}

	response.RespondJSON(c, "success", http.StatusOK, "Events retrieved successfully", result, nil)
}

func (ctrl *controller) UpdateEventStatus(c *gin.Context) {
	eventID, ok := parseEventID(c)
	if !ok {
		return
	}

	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondBindError(c, err)
		return
	}

	event, err := ctrl.store.UpdateStatus(c.Request.Context(), eventID, req.Status)
	if err != nil {
		response.RespondError(c, err)
		return
	}

	response.RespondJSON(c, "success", http.StatusOK, "Event status updated successfully", event, nil)
}

func (ctrl *controller) GetBookingCost(c *gin.Context) {
	eventID, ok := parseEventID(c)
	if !ok {
		return
	}

	tickets, err := strconv.Atoi(c.DefaultQuery("tickets", "1"))
	if err != nil {
		response.RespondError(c, errs.ErrInvalidTicketCount)
		return
	}

	quote, err := ctrl.store.CalculateCost(c.Request.Context(), eventID, tickets)
	if err != nil {
		response.RespondError(c, err)
		return
	}

	if err := ctrl.store.Validate(c.Request.Context(), eventID, tickets); err != nil {
		response.RespondJSON(c, "success", http.StatusOK, err.Error(), quote, response.ErrorDetail{Code: errs.Code(err)})
		return
	}

	response.RespondJSON(c, "success", http.StatusOK, "Tickets available", quote, nil)
}

func parseEventID(c *gin.Context) (uuid.UUID, bool) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondJSON(c, "error", http.StatusBadRequest, "Invalid event ID", nil, err.Error())
		return uuid.Nil, false
	}
	return eventID, true
}
