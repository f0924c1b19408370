package bookings

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"eventbooking/internal/shared/errs"
)

var errDuplicateRef = errors.New("duplicate booking reference")

// MemoryRepository keeps bookings in process for tests and the memory
// storage driver.
type MemoryRepository struct {
	mu       sync.RWMutex
	bookings map[uuid.UUID]*Booking
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{bookings: make(map[uuid.UUID]*Booking)}
}

func (r *MemoryRepository) InsertBooking(_ context.Context, booking *Booking) (uuid.UUID, error) {
	if err := booking.validate(); err != nil {
		return uuid.Nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if booking.ID == uuid.Nil {
		booking.ID = uuid.New()
	}
	for _, existing := range r.bookings {
		if existing.BookingRef == booking.BookingRef {
			return uuid.Nil, errs.Persistence("insert booking", errDuplicateRef)
		}
	}

	now := time.Now().UTC()
	booking.CreatedAt = now
	booking.UpdatedAt = now

	cp := *booking
	r.bookings[booking.ID] = &cp
	return booking.ID, nil
}

func (r *MemoryRepository) UpdateBookingStatus(_ context.Context, id uuid.UUID, from, to Status, payment PaymentStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	booking, ok := r.bookings[id]
	if !ok {
		return errs.ErrBookingNotFound
	}
	if booking.Status != from {
		return ErrStatusChanged
	}

	now := time.Now().UTC()
	booking.Status = to
	booking.PaymentStatus = payment
	booking.UpdatedAt = now
	if to == StatusCancelled {
		booking.CancelledAt = &now
	}
	return nil
}

func (r *MemoryRepository) UpdatePaymentStatus(_ context.Context, id uuid.UUID, from, to PaymentStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	booking, ok := r.bookings[id]
	if !ok {
		return errs.ErrBookingNotFound
	}
	if booking.Status != StatusConfirmed || booking.PaymentStatus != from {
		return ErrStatusChanged
	}

	booking.PaymentStatus = to
	booking.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *MemoryRepository) LoadBooking(_ context.Context, id uuid.UUID) (*Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	booking, ok := r.bookings[id]
	if !ok {
		return nil, errs.ErrBookingNotFound
	}
	cp := *booking
	return &cp, nil
}

func (r *MemoryRepository) ListByUser(_ context.Context, userID uuid.UUID, limit, offset int) ([]Booking, error) {
	out := r.filter(func(b *Booking) bool { return b.UserID == userID })
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })

	start := min(offset, len(out))
	end := len(out)
	if limit > 0 {
		end = min(start+limit, len(out))
	}
	return out[start:end], nil
}

func (r *MemoryRepository) ListByEvent(_ context.Context, eventID uuid.UUID) ([]Booking, error) {
	out := r.filter(func(b *Booking) bool { return b.EventID == eventID })
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *MemoryRepository) filter(keep func(*Booking) bool) []Booking {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Booking, 0)
	for _, b := range r.bookings {
		if keep(b) {
			out = append(out, *b)
		}
	}
	return out
}
