package notifications

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EventType names a booking lifecycle message on the booking topic.
type EventType string

const (
	EventBookingConfirmed          EventType = "booking.confirmed"
	EventBookingCancelled          EventType = "booking.cancelled"
	EventBookingPaid               EventType = "booking.paid"
	EventBookingCompensationFailed EventType = "booking.compensation_failed"
)

// BookingEvent is the JSON payload published for every booking lifecycle
// change. BookingID is nil when no booking row exists, which happens when a
// compensation fails before the insert.
type BookingEvent struct {
	ID          uuid.UUID  `json:"id"`
	Type        EventType  `json:"type"`
	BookingID   *uuid.UUID `json:"booking_id,omitempty"`
	BookingRef  string     `json:"booking_ref,omitempty"`
	EventID     uuid.UUID  `json:"event_id"`
	UserID      uuid.UUID  `json:"user_id"`
	Tickets     int        `json:"tickets"`
	TotalAmount float64    `json:"total_amount"`
	Reason      string     `json:"reason,omitempty"`
	OccurredAt  time.Time  `json:"occurred_at"`
}

func NewBookingEvent(eventType EventType, eventID, userID uuid.UUID, tickets int) *BookingEvent {
	return &BookingEvent{
		ID:         uuid.New(),
		Type:       eventType,
		EventID:    eventID,
		UserID:     userID,
		Tickets:    tickets,
		OccurredAt: time.Now().UTC(),
	}
}

// PartitionKey keeps every message for one event on one partition.
func (e *BookingEvent) PartitionKey() string {
	return e.EventID.String()
}

func (e *BookingEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}
