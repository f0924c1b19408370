package events

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"eventbooking/internal/shared/errs"
)

// Repository is the event side of the persistence boundary. Only Store calls
// the ticket counter primitives.
type Repository interface {
	LoadEvent(ctx context.Context, id uuid.UUID) (*Event, error)
	// ConditionalDecrementTickets takes count tickets only if the event is
	// active and has at least count available. It reports whether a row changed.
	ConditionalDecrementTickets(ctx context.Context, id uuid.UUID, count int) (bool, error)
	// IncrementTickets returns count tickets, never exceeding limit. It reports
	// whether the event exists.
	IncrementTickets(ctx context.Context, id uuid.UUID, count, limit int) (bool, error)
	CreateEvent(ctx context.Context, event *Event) error
	ListEvents(ctx context.Context, query ListQuery) ([]Event, int64, error)
	// UpdateEventStatus moves the event from one status to another and reports
	// whether the event was still in from.
	UpdateEventStatus(ctx context.Context, id uuid.UUID, from, to Status) (bool, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) LoadEvent(ctx context.Context, id uuid.UUID) (*Event, error) {
	var event Event
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&event).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.ErrEventNotFound
		}
		return nil, errs.Persistence("load event", err)
	}
	return &event, nil
}

func (r *repository) ConditionalDecrementTickets(ctx context.Context, id uuid.UUID, count int) (bool, error) {
	res := r.db.WithContext(ctx).Model(&Event{}).
		Where("id = ? AND status = ? AND tickets_available >= ?", id, StatusActive, count).
		Updates(map[string]interface{}{
			"tickets_available": gorm.Expr("tickets_available - ?", count),
			"updated_at":        time.Now().UTC(),
		})
	if res.Error != nil {
		return false, errs.Persistence("decrement tickets", res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) IncrementTickets(ctx context.Context, id uuid.UUID, count, limit int) (bool, error) {
	res := r.db.WithContext(ctx).Model(&Event{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"tickets_available": gorm.Expr("LEAST(tickets_available + ?, ?)", count, limit),
			"updated_at":        time.Now().UTC(),
		})
	if res.Error != nil {
		return false, errs.Persistence("increment tickets", res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) CreateEvent(ctx context.Context, event *Event) error {
	return errs.Persistence("create event", r.db.WithContext(ctx).Create(event).Error)
}

func (r *repository) ListEvents(ctx context.Context, query ListQuery) ([]Event, int64, error) {
	query.normalize()

	var events []Event
	var totalCount int64

	db := r.db.WithContext(ctx).Model(&Event{})

	if query.Status != "" {
		db = db.Where("status = ?", query.Status)
	}

	if query.Category != "" {
		db = db.Where("LOWER(category) = ?", strings.ToLower(query.Category))
	}

	if query.Search != "" {
		searchTerm := "%" + strings.ToLower(query.Search) + "%"
		db = db.Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ? OR LOWER(location) LIKE ?",
			searchTerm, searchTerm, searchTerm)
	}

	if err := db.Count(&totalCount).Error; err != nil {
		return nil, 0, errs.Persistence("count events", err)
	}

	err := db.Order("starts_at ASC").
		Offset(query.offset()).
		Limit(query.Limit).
		Find(&events).Error
	if err != nil {
		return nil, 0, errs.Persistence("list events", err)
	}

	return events, totalCount, nil
}

func (r *repository) UpdateEventStatus(ctx context.Context, id uuid.UUID, from, to Status) (bool, error) {
	res := r.db.WithContext(ctx).Model(&Event{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]interface{}{
			"status":     to,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return false, errs.Persistence("update event status", res.Error)
	}
	return res.RowsAffected == 1, nil
}
