package bookings

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"eventbooking/internal/shared/errs"
)

// Booking defines the main booking structure. UserID and EventID are weak
// references; the row never owns the event.
type Booking struct {
	ID            uuid.UUID     `gorm:"type:uuid;primaryKey" json:"id"`
	UserID        uuid.UUID     `gorm:"type:uuid;index;not null" json:"user_id"`
	EventID       uuid.UUID     `gorm:"type:uuid;index;not null" json:"event_id"`
	TicketsBooked int           `gorm:"not null;check:tickets_booked > 0" json:"tickets_booked"`
	TotalAmount   float64       `gorm:"not null;check:total_amount >= 0" json:"total_amount"`
	Status        Status        `gorm:"type:varchar(20);not null;index" json:"status"`
	PaymentStatus PaymentStatus `gorm:"type:varchar(20);not null" json:"payment_status"`
	BookingRef    string        `gorm:"size:32;uniqueIndex;not null" json:"booking_ref"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
	CancelledAt   *time.Time    `json:"cancelled_at,omitempty"`
}

// TableName sets the table name for Booking
func (Booking) TableName() string {
	return "bookings"
}

// IsCancelled reports whether the booking has given its tickets back.
func (b *Booking) IsCancelled() bool {
	return b.Status == StatusCancelled
}

// validate rejects rows whose status or payment status is not one we know.
func (b *Booking) validate() error {
	if !b.Status.IsValid() {
		return errs.Validation(fmt.Sprintf("unknown booking status %q", b.Status))
	}
	if !b.PaymentStatus.IsValid() {
		return errs.Validation(fmt.Sprintf("unknown payment status %q", b.PaymentStatus))
	}
	return nil
}

// BookRequest asks for tickets on one event for one user.
type BookRequest struct {
	UserID  uuid.UUID `json:"user_id" binding:"required"`
	EventID uuid.UUID `json:"event_id" binding:"required"`
	Tickets int       `json:"tickets" binding:"required,min=1,max=100"`
}

func (r BookRequest) validate() error {
	if r.Tickets <= 0 {
		return errs.ErrInvalidTicketCount
	}
	if r.UserID == uuid.Nil {
		return errs.Validation("user id is required")
	}
	if r.EventID == uuid.Nil {
		return errs.Validation("event id is required")
	}
	return nil
}

type ListQuery struct {
	Limit  int `form:"limit" binding:"omitempty,min=1,max=100"`
	Offset int `form:"offset" binding:"omitempty,min=0"`
}

func (q *ListQuery) normalize() {
	if q.Limit <= 0 {
		q.Limit = 20
	}
	if q.Limit > 100 {
		q.Limit = 100
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
}
