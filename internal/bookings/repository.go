package bookings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"eventbooking/internal/shared/errs"
)

// ErrStatusChanged is returned by UpdateBookingStatus and UpdatePaymentStatus
// when the row no longer holds the expected status.
var ErrStatusChanged = fmt.Errorf("booking status changed concurrently: %w", errs.ErrInvalidState)

type Repository interface {
	InsertBooking(ctx context.Context, booking *Booking) (uuid.UUID, error)
	// UpdateBookingStatus moves a booking from one status to another, only if
	// it is still in from.
	UpdateBookingStatus(ctx context.Context, id uuid.UUID, from, to Status, payment PaymentStatus) error
	// UpdatePaymentStatus moves a confirmed booking's payment from one state to
	// another, only if it is still in from.
	UpdatePaymentStatus(ctx context.Context, id uuid.UUID, from, to PaymentStatus) error
	LoadBooking(ctx context.Context, id uuid.UUID) (*Booking, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Booking, error)
	ListByEvent(ctx context.Context, eventID uuid.UUID) ([]Booking, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) InsertBooking(ctx context.Context, booking *Booking) (uuid.UUID, error) {
	if err := booking.validate(); err != nil {
		return uuid.Nil, err
	}
	if booking.ID == uuid.Nil {
		booking.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(booking).Error; err != nil {
		return uuid.Nil, errs.Persistence("insert booking", err)
	}
	return booking.ID, nil
}

func (r *repository) UpdateBookingStatus(ctx context.Context, id uuid.UUID, from, to Status, payment PaymentStatus) error {
	now := time.Now().UTC()
	updates := map[string]interface{}{
		"status":         to,
		"payment_status": payment,
		"updated_at":     now,
	}
	if to == StatusCancelled {
		updates["cancelled_at"] = now
	}

	res := r.db.WithContext(ctx).Model(&Booking{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return errs.Persistence("update booking status", res.Error)
	}
	if res.RowsAffected == 0 {
		return r.missingOrChanged(ctx, id)
	}
	return nil
}

func (r *repository) UpdatePaymentStatus(ctx context.Context, id uuid.UUID, from, to PaymentStatus) error {
	res := r.db.WithContext(ctx).Model(&Booking{}).
		Where("id = ? AND status = ? AND payment_status = ?", id, StatusConfirmed, from).
		Updates(map[string]interface{}{
			"payment_status": to,
			"updated_at":     time.Now().UTC(),
		})
	if res.Error != nil {
		return errs.Persistence("update payment status", res.Error)
	}
	if res.RowsAffected == 0 {
		return r.missingOrChanged(ctx, id)
	}
	return nil
}

func (r *repository) missingOrChanged(ctx context.Context, id uuid.UUID) error {
	var count int64
	if err := r.db.WithContext(ctx).Model(&Booking{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return errs.Persistence("check booking", err)
	}
	if count == 0 {
		return errs.ErrBookingNotFound
	}
	return ErrStatusChanged
}

func (r *repository) LoadBooking(ctx context.Context, id uuid.UUID) (*Booking, error) {
	var booking Booking
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&booking).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.ErrBookingNotFound
		}
		return nil, errs.Persistence("load booking", err)
	}
	return &booking, nil
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Booking, error) {
	var bookings []Booking
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&bookings).Error
	if err != nil {
		return nil, errs.Persistence("list user bookings", err)
	}
	return bookings, nil
}

func (r *repository) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]Booking, error) {
	var bookings []Booking
	err := r.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		Order("created_at ASC").
		Find(&bookings).Error
	if err != nil {
		return nil, errs.Persistence("list event bookings", err)
	}
	return bookings, nil
}
