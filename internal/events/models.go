package events

import (
	"math"
	"time"

	"github.com/google/uuid"
)

type Event struct {
	ID               uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	Name             string    `json:"name" gorm:"not null;size:255"`
	Description      string    `json:"description" gorm:"type:text"`
	Location         string    `json:"location" gorm:"size:255"`
	Category         string    `json:"category" gorm:"size:100;index"`
	StartsAt         time.Time `json:"starts_at" gorm:"not null"`
	OrganizerID      uuid.UUID `json:"organizer_id" gorm:"type:uuid"`
	TotalTickets     int       `json:"total_tickets" gorm:"not null;check:total_tickets > 0"`
	TicketsAvailable int       `json:"tickets_available" gorm:"not null;check:tickets_available >= 0"`
	TicketPrice      float64   `json:"ticket_price" gorm:"not null;check:ticket_price >= 0"`
	Status           Status    `json:"status" gorm:"type:varchar(20);not null;index"`
	CreatedAt        time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt        time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName specifies the table name for GORM
func (Event) TableName() string {
	return "events"
}

// Snapshot is a read-only view of an event's inventory at a point in time.
type Snapshot struct {
	EventID          uuid.UUID `json:"event_id"`
	Name             string    `json:"name"`
	Status           Status    `json:"status"`
	TotalTickets     int       `json:"total_tickets"`
	TicketsAvailable int       `json:"tickets_available"`
	TicketsSold      int       `json:"tickets_sold"`
	TicketPrice      float64   `json:"ticket_price"`
	StartsAt         time.Time `json:"starts_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func (e *Event) Snapshot() *Snapshot {
	return &Snapshot{
		EventID:          e.ID,
		Name:             e.Name,
		Status:           e.Status,
		TotalTickets:     e.TotalTickets,
		TicketsAvailable: e.TicketsAvailable,
		TicketsSold:      e.TotalTickets - e.TicketsAvailable,
		TicketPrice:      e.TicketPrice,
		StartsAt:         e.StartsAt,
		UpdatedAt:        e.UpdatedAt,
	}
}

// Reservation is the result of a successful TryReserve. UnitPrice is the
// event's ticket price at the moment the tickets were taken.
type Reservation struct {
	EventID    uuid.UUID `json:"event_id"`
	Count      int       `json:"count"`
	UnitPrice  float64   `json:"unit_price"`
	Remaining  int       `json:"remaining"`
	ReservedAt time.Time `json:"reserved_at"`
}

func (r *Reservation) TotalAmount() float64 {
	return TotalCost(r.UnitPrice, r.Count)
}

// TotalCost multiplies and rounds to cents.
func TotalCost(unitPrice float64, count int) float64 {
	return math.Round(unitPrice*float64(count)*100) / 100
}

type CreateEventRequest struct {
	Name         string    `json:"name" binding:"required,min=3,max=255"`
	Description  string    `json:"description" binding:"max=2000"`
	Location     string    `json:"location" binding:"required,max=255"`
	Category     string    `json:"category" binding:"omitempty,max=100"`
	StartsAt     time.Time `json:"starts_at" binding:"required"`
	OrganizerID  uuid.UUID `json:"organizer_id"`
	TotalTickets int       `json:"total_tickets" binding:"required,min=1,max=1000000"`
	TicketPrice  float64   `json:"ticket_price" binding:"min=0"`
}

type UpdateStatusRequest struct {
	Status Status `json:"status" binding:"required,oneof=cancelled completed"`
}

type ListQuery struct {
	Page     int    `form:"page" binding:"omitempty,min=1"`
	Limit    int    `form:"limit" binding:"omitempty,min=1,max=100"`
	Search   string `form:"search" binding:"max=100"`
	Category string `form:"category" binding:"max=100"`
	Status   Status `form:"-"`
}

func (q *ListQuery) normalize() {
	if q.Page <= 0 {
		q.Page = 1
	}
	if q.Limit <= 0 {
		q.Limit = 10
	}
	if q.Limit > 100 {
		q.Limit = 100
	}
}

func (q ListQuery) offset() int {
	return (q.Page - 1) * q.Limit
}

type PaginatedEvents struct {
	Events     []Event `json:"events"`
	TotalCount int64   `json:"total_count"`
	Page       int     `json:"page"`
	Limit      int     `json:"limit"`
	TotalPages int     `json:"total_pages"`
}

type CostQuote struct {
	EventID     uuid.UUID `json:"event_id"`
	Tickets     int       `json:"tickets"`
	TicketPrice float64   `json:"ticket_price"`
	TotalAmount float64   `json:"total_amount"`
}
