package bookings

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"

	"eventbooking/internal/events"
	"eventbooking/internal/notifications"
	"eventbooking/internal/shared/constants"
	"eventbooking/internal/shared/errs"
	"eventbooking/pkg/cache"
	"eventbooking/pkg/logger"
)

// Inventory is the part of the event store the booking workflow depends on.
type Inventory interface {
	TryReserve(ctx context.Context, eventID uuid.UUID, count int) (*events.Reservation, error)
	Release(ctx context.Context, eventID uuid.UUID, count int) error
}

// Service orchestrates booking and cancellation on top of the event store.
// It never touches an event's ticket counter directly.
type Service struct {
	repo      Repository
	inventory Inventory
	publisher notifications.Publisher
	cache     cache.Service
	log       *logger.Logger
	now       func() time.Time
}

// NewService creates a new booking service instance
func NewService(repo Repository, inventory Inventory, publisher notifications.Publisher, log *logger.Logger) *Service {
	if publisher == nil {
		publisher = notifications.NoopPublisher{}
	}
	if log == nil {
		log = logger.GetDefault()
	}
	return &Service{
		repo:      repo,
		inventory: inventory,
		publisher: publisher,
		log:       log,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// SetCacheService enables caching of user booking histories.
func (s *Service) SetCacheService(c cache.Service) {
	s.cache = c
}

// Book reserves tickets and records a confirmed, unpaid booking. If the
// booking cannot be stored the reserved tickets are returned to the event.
func (s *Service) Book(ctx context.Context, req BookRequest) (*Booking, error) {
	wf := newWorkflow()

	if err := req.validate(); err != nil {
		return nil, s.fail(ctx, wf, req, err)
	}

	bookingRef, err := generateBookingReference(s.now())
	if err != nil {
		return nil, s.fail(ctx, wf, req, fmt.Errorf("failed to generate booking reference: %w", err))
	}

	wf.to(StateReserving)
	reservation, err := s.inventory.TryReserve(ctx, req.EventID, req.Tickets)
	if err != nil {
		return nil, s.fail(ctx, wf, req, err)
	}

	// Tickets are held from here on. The rest must finish even if the caller
	// goes away, otherwise the reservation would leak.
	ctx = context.WithoutCancel(ctx)
	wf.to(StatePersisting)

	booking := &Booking{
		ID:            uuid.New(),
		UserID:        req.UserID,
		EventID:       req.EventID,
		TicketsBooked: reservation.Count,
		TotalAmount:   reservation.TotalAmount(),
		Status:        StatusConfirmed,
		PaymentStatus: PaymentUnpaid,
		BookingRef:    bookingRef,
	}

	id, err := s.repo.InsertBooking(ctx, booking)
	if err != nil {
		return nil, s.compensate(ctx, wf, req, err)
	}
	booking.ID = id
	wf.to(StateConfirmed)

	s.log.LogBookingConfirmed(ctx, booking.ID.String(), booking.EventID.String(), booking.UserID.String(), booking.TicketsBooked)
	s.invalidateUser(ctx, booking.UserID)
	s.publish(ctx, bookingEvent(notifications.EventBookingConfirmed, booking))

	return booking, nil
}

// Cancel marks a booking cancelled and refunded, then returns its tickets.
// Only the caller that wins the status change releases tickets, so racing
// cancels restore the count exactly once.
func (s *Service) Cancel(ctx context.Context, bookingID uuid.UUID) (*Booking, error) {
	booking, err := s.repo.LoadBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.IsCancelled() {
		return nil, errs.ErrAlreadyCancelled
	}

	err = s.repo.UpdateBookingStatus(ctx, bookingID, booking.Status, StatusCancelled, PaymentRefunded)
	if errors.Is(err, ErrStatusChanged) {
		return nil, errs.ErrAlreadyCancelled
	}
	if err != nil {
		return nil, err
	}

	ctx = context.WithoutCancel(ctx)

	now := s.now()
	booking.Status = StatusCancelled
	booking.PaymentStatus = PaymentRefunded
	booking.CancelledAt = &now
	booking.UpdatedAt = now

	if err := s.inventory.Release(ctx, booking.EventID, booking.TicketsBooked); err != nil {
		cause := fmt.Errorf("booking %s cancelled", booking.ID)
		s.log.LogCompensationFailed(ctx, booking.EventID.String(), booking.TicketsBooked, cause, err)

		event := bookingEvent(notifications.EventBookingCompensationFailed, booking)
		event.Reason = err.Error()
		s.publish(ctx, event)

		return nil, fmt.Errorf("release tickets of cancelled booking %s: %w: %w", booking.ID, errs.ErrCompensationFailed, err)
	}

	s.log.LogBookingCancelled(ctx, booking.ID.String(), booking.EventID.String(), booking.UserID.String())
	s.invalidateUser(ctx, booking.UserID)
	s.publish(ctx, bookingEvent(notifications.EventBookingCancelled, booking))

	return booking, nil
}

// Pay records payment for a confirmed, unpaid booking.
func (s *Service) Pay(ctx context.Context, bookingID uuid.UUID) (*Booking, error) {
	booking, err := s.repo.LoadBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.Status != StatusConfirmed {
		return nil, fmt.Errorf("booking is %s and cannot be paid: %w", booking.Status, errs.ErrInvalidState)
	}
	if booking.PaymentStatus != PaymentUnpaid {
		return nil, fmt.Errorf("booking payment is already %s: %w", booking.PaymentStatus, errs.ErrInvalidState)
	}

	err = s.repo.UpdatePaymentStatus(ctx, bookingID, PaymentUnpaid, PaymentPaid)
	if errors.Is(err, ErrStatusChanged) {
		return nil, fmt.Errorf("booking %s was paid or cancelled concurrently: %w", bookingID, errs.ErrInvalidState)
	}
	if err != nil {
		return nil, err
	}

	booking.PaymentStatus = PaymentPaid
	booking.UpdatedAt = s.now()

	s.log.InfoWithContext(ctx, "Booking Paid", map[string]interface{}{
		"booking_id": booking.ID.String(),
		"amount":     booking.TotalAmount,
	})
	s.invalidateUser(ctx, booking.UserID)
	s.publish(ctx, bookingEvent(notifications.EventBookingPaid, booking))

	return booking, nil
}

func (s *Service) Get(ctx context.Context, bookingID uuid.UUID) (*Booking, error) {
	return s.repo.LoadBooking(ctx, bookingID)
}

// ListUserBookings returns a user's booking history, newest first.
func (s *Service) ListUserBookings(ctx context.Context, userID uuid.UUID, query ListQuery) ([]Booking, error) {
	if userID == uuid.Nil {
		return nil, errs.Validation("user id is required")
	}
	query.normalize()

	fetch := func() (interface{}, error) {
		return s.repo.ListByUser(ctx, userID, query.Limit, query.Offset)
	}

	if s.cache == nil {
		bookings, err := s.repo.ListByUser(ctx, userID, query.Limit, query.Offset)
		if err != nil {
			return nil, err
		}
		return nonNil(bookings), nil
	}

	key := fmt.Sprintf("%s:limit:%d:offset:%d", constants.BuildUserBookingsKey(userID.String()), query.Limit, query.Offset)
	var bookings []Booking
	if err := s.cache.GetOrSet(ctx, key, constants.TTL_USER_BOOKINGS, fetch, &bookings); err != nil {
		return nil, err
	}
	return nonNil(bookings), nil
}

func (s *Service) ListEventBookings(ctx context.Context, eventID uuid.UUID) ([]Booking, error) {
	bookings, err := s.repo.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	return nonNil(bookings), nil
}

// fail ends a booking attempt that never held tickets.
func (s *Service) fail(ctx context.Context, wf *workflow, req BookRequest, err error) error {
	wf.to(StateFailed)
	s.log.LogBookingFailed(ctx, req.EventID.String(), req.UserID.String(), wf.trace(), err)
	return err
}

// compensate returns reserved tickets after the booking row could not be
// written. The caller always sees the persistence failure; a failed release
// is reported on top of it.
func (s *Service) compensate(ctx context.Context, wf *workflow, req BookRequest, cause error) error {
	wf.to(StateReleasing)
	releaseErr := s.inventory.Release(ctx, req.EventID, req.Tickets)
	wf.to(StateFailed)

	if releaseErr == nil {
		s.log.LogBookingFailed(ctx, req.EventID.String(), req.UserID.String(), wf.trace(), cause)
		return cause
	}

	s.log.LogCompensationFailed(ctx, req.EventID.String(), req.Tickets, cause, releaseErr)

	event := notifications.NewBookingEvent(notifications.EventBookingCompensationFailed, req.EventID, req.UserID, req.Tickets)
	event.Reason = releaseErr.Error()
	s.publish(ctx, event)

	return errs.CompensationFailed(cause, releaseErr)
}

// publish is best effort. A committed booking is never undone because a
// notification could not be delivered.
func (s *Service) publish(ctx context.Context, event *notifications.BookingEvent) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.log.WarnContext(ctx, "Failed to publish booking event",
			"type", string(event.Type),
			"event_id", event.EventID.String(),
			"error", err.Error(),
		)
	}
}

func (s *Service) invalidateUser(ctx context.Context, userID uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeletePattern(ctx, constants.BuildUserBookingsKey(userID.String())+"*"); err != nil {
		s.log.WarnContext(ctx, "Failed to invalidate user bookings", "user_id", userID.String(), "error", err.Error())
	}
}

func bookingEvent(eventType notifications.EventType, b *Booking) *notifications.BookingEvent {
	event := notifications.NewBookingEvent(eventType, b.EventID, b.UserID, b.TicketsBooked)
	id := b.ID
	event.BookingID = &id
	event.BookingRef = b.BookingRef
	event.TotalAmount = b.TotalAmount
	return event
}

func nonNil(bookings []Booking) []Booking {
	if bookings == nil {
		return []Booking{}
	}
	return bookings
}

// generateBookingReference builds a human readable reference such as
// EVT-20240501-QWERTY.
func generateBookingReference(now time.Time) (string, error) {
	const letters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	randomPart := make([]byte, 6)

	for i := range randomPart {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(letters))))
		if err != nil {
			return "", err
		}
		randomPart[i] = letters[num.Int64()]
	}

	return fmt.Sprintf("EVT-%s-%s", now.Format("20060102"), string(randomPart)), nil
}
