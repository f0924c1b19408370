package events

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"eventbooking/internal/shared/constants"
	"eventbooking/internal/shared/errs"
	"eventbooking/pkg/cache"
	"eventbooking/pkg/logger"
)

// Store is the only writer of an event's ticket counter. TryReserve and
// Release for the same event are serialized through the Locker; different
// events never contend.
type Store struct {
	repo   Repository
	locker Locker
	cache  cache.Service
	log    *logger.Logger
	now    func() time.Time
}

func NewStore(repo Repository, locker Locker, log *logger.Logger) *Store {
	if log == nil {
		log = logger.GetDefault()
	}
	return &Store{
		repo:   repo,
		locker: locker,
		log:    log,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// SetCacheService enables cache-aside for event listings.
func (s *Store) SetCacheService(c cache.Service) {
	s.cache = c
}

// TryReserve takes count tickets from an active event or changes nothing.
func (s *Store) TryReserve(ctx context.Context, eventID uuid.UUID, count int) (*Reservation, error) {
	if count <= 0 {
		return nil, errs.ErrInvalidTicketCount
	}

	unlock, err := s.lock(ctx, eventID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	event, err := s.repo.LoadEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if !event.Status.IsBookable() {
		return nil, errs.ErrEventNotActive
	}
	if event.TicketsAvailable < count {
		return nil, fmt.Errorf("requested %d, %d left: %w", count, event.TicketsAvailable, errs.ErrInsufficientTickets)
	}

	ok, err := s.repo.ConditionalDecrementTickets(ctx, eventID, count)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errs.ErrInsufficientTickets
	}

	reservation := &Reservation{
		EventID:    eventID,
		Count:      count,
		UnitPrice:  event.TicketPrice,
		Remaining:  event.TicketsAvailable - count,
		ReservedAt: s.now(),
	}

	s.log.LogReservation(ctx, eventID.String(), count, reservation.Remaining)
	s.invalidateListings(ctx)

	return reservation, nil
}

// Release returns count tickets to the event, capped at its total.
func (s *Store) Release(ctx context.Context, eventID uuid.UUID, count int) error {
	if count <= 0 {
		return errs.ErrInvalidTicketCount
	}

	unlock, err := s.lock(ctx, eventID)
	if err != nil {
		return err
	}
	defer unlock()

	event, err := s.repo.LoadEvent(ctx, eventID)
	if err != nil {
		return err
	}

	ok, err := s.repo.IncrementTickets(ctx, eventID, count, event.TotalTickets)
	if err != nil {
		return err
	}
	if !ok {
		return errs.ErrEventNotFound
	}

	s.log.LogRelease(ctx, eventID.String(), count)
	s.invalidateListings(ctx)

	return nil
}

// GetStatus reads the event without taking its lock.
func (s *Store) GetStatus(ctx context.Context, eventID uuid.UUID) (*Snapshot, error) {
	event, err := s.repo.LoadEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	return event.Snapshot(), nil
}

func (s *Store) Create(ctx context.Context, req CreateEventRequest) (*Event, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, errs.Validation("event name is required")
	}
	if req.TotalTickets <= 0 {
		return nil, errs.Validation("total tickets must be positive")
	}
	if req.TicketPrice < 0 {
		return nil, errs.Validation("ticket price cannot be negative")
	}

	event := &Event{
		ID:               uuid.New(),
		Name:             strings.TrimSpace(req.Name),
		Description:      req.Description,
		Location:         req.Location,
		Category:         strings.ToLower(strings.TrimSpace(req.Category)),
		StartsAt:         req.StartsAt.UTC(),
		OrganizerID:      req.OrganizerID,
		TotalTickets:     req.TotalTickets,
		TicketsAvailable: req.TotalTickets,
		TicketPrice:      req.TicketPrice,
		Status:           StatusActive,
	}

	if err := s.repo.CreateEvent(ctx, event); err != nil {
		return nil, err
	}

	s.log.InfoWithContext(ctx, "Event Created", map[string]interface{}{
		"event_id":      event.ID.String(),
		"total_tickets": event.TotalTickets,
	})
	s.invalidateListings(ctx)

	return event, nil
}

// ListActive pages through active events, optionally filtered by keyword
// and category. Cached pages are advisory: their ticket counts may lag a
// concurrent reservation by up to constants.TTL_EVENT_LIST. TryReserve never
// reads them.
func (s *Store) ListActive(ctx context.Context, query ListQuery) (*PaginatedEvents, error) {
	query.normalize()
	query.Status = StatusActive

	key := constants.BuildEventListKey(query.Page, query.Limit, query.Category, query.Search)
	ttl := constants.TTL_EVENT_LIST
	if query.Search != "" {
		ttl = constants.TTL_EVENT_SEARCH
	}

	fetch := func() (interface{}, error) {
		events, total, err := s.repo.ListEvents(ctx, query)
		if err != nil {
			return nil, err
		}
		return paginate(events, total, query), nil
	}

	if s.cache == nil {
		result, err := fetch()
		if err != nil {
			return nil, err
		}
		return result.(*PaginatedEvents), nil
	}

	var result PaginatedEvents
	if err := s.cache.GetOrSet(ctx, key, ttl, fetch, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// UpdateStatus moves an active event to cancelled or completed. It takes the
// event lock so no reservation can interleave with the change.
func (s *Store) UpdateStatus(ctx context.Context, eventID uuid.UUID, to Status) (*Event, error) {
	if !to.IsValid() {
		return nil, errs.Validation(fmt.Sprintf("unknown event status %q", to))
	}

	unlock, err := s.lock(ctx, eventID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	event, err := s.repo.LoadEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if !event.Status.CanTransitionTo(to) {
		return nil, fmt.Errorf("event status %s cannot become %s: %w", event.Status, to, errs.ErrInvalidState)
	}

	ok, err := s.repo.UpdateEventStatus(ctx, eventID, event.Status, to)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("event status changed concurrently: %w", errs.ErrInvalidState)
	}

	event.Status = to
	event.UpdatedAt = s.now()

	s.log.InfoWithContext(ctx, "Event Status Updated", map[string]interface{}{
		"event_id": eventID.String(),
		"status":   string(to),
	})
	s.invalidateListings(ctx)

	return event, nil
}

// CalculateCost quotes the price of count tickets at the current unit price.
func (s *Store) CalculateCost(ctx context.Context, eventID uuid.UUID, count int) (*CostQuote, error) {
	if count <= 0 {
		return nil, errs.ErrInvalidTicketCount
	}

	event, err := s.repo.LoadEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}

	return &CostQuote{
		EventID:     eventID,
		Tickets:     count,
		TicketPrice: event.TicketPrice,
		TotalAmount: TotalCost(event.TicketPrice, count),
	}, nil
}

// Validate reports whether count tickets could be reserved right now. The
// answer is advisory; only TryReserve takes tickets.
func (s *Store) Validate(ctx context.Context, eventID uuid.UUID, count int) error {
	if count <= 0 {
		return errs.ErrInvalidTicketCount
	}

	event, err := s.repo.LoadEvent(ctx, eventID)
	if err != nil {
		return err
	}
	if !event.Status.IsBookable() {
		return errs.ErrEventNotActive
	}
	if event.TicketsAvailable < count {
		return errs.ErrInsufficientTickets
	}
	return nil
}

func (s *Store) lock(ctx context.Context, eventID uuid.UUID) (func(), error) {
	start := time.Now()
	unlock, err := s.locker.Lock(ctx, eventID)
	if errors.Is(err, errs.ErrBusy) {
		s.log.LogLockContention(ctx, eventID.String(), time.Since(start))
	}
	return unlock, err
}

// invalidateListings drops cached pages after any change that shows up in them.
func (s *Store) invalidateListings(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeletePattern(ctx, constants.PATTERN_INVALIDATE_EVENT_LISTS); err != nil {
		s.log.WarnContext(ctx, "Failed to invalidate event listings", "error", err.Error())
	}
}

func paginate(events []Event, total int64, query ListQuery) *PaginatedEvents {
	totalPages := int((total + int64(query.Limit) - 1) / int64(query.Limit))
	if events == nil {
		events = []Event{}
	}
	return &PaginatedEvents{
		Events:     events,
		TotalCount: total,
		Page:       query.Page,
		Limit:      query.Limit,
		TotalPages: totalPages,
	}
}
