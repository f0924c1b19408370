package events

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"eventbooking/internal/shared/errs"
)

// MemoryRepository keeps events in process. Each method runs under one mutex,
// which makes the counter primitives atomic the same way a single UPDATE is.
type MemoryRepository struct {
	mu     sync.RWMutex
	events map[uuid.UUID]*Event
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{events: make(map[uuid.UUID]*Event)}
}

func (r *MemoryRepository) LoadEvent(_ context.Context, id uuid.UUID) (*Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	event, ok := r.events[id]
	if !ok {
		return nil, errs.ErrEventNotFound
	}
	cp := *event
	return &cp, nil
}

func (r *MemoryRepository) ConditionalDecrementTickets(_ context.Context, id uuid.UUID, count int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	event, ok := r.events[id]
	if !ok || event.Status != StatusActive || event.TicketsAvailable < count {
		return false, nil
	}
	event.TicketsAvailable -= count
	event.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (r *MemoryRepository) IncrementTickets(_ context.Context, id uuid.UUID, count, limit int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	event, ok := r.events[id]
	if !ok {
		return false, nil
	}
	event.TicketsAvailable = min(event.TicketsAvailable+count, limit)
	event.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (r *MemoryRepository) CreateEvent(_ context.Context, event *Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	now := time.Now().UTC()
	event.CreatedAt = now
	event.UpdatedAt = now

	cp := *event
	r.events[event.ID] = &cp
	return nil
}

func (r *MemoryRepository) ListEvents(_ context.Context, query ListQuery) ([]Event, int64, error) {
	query.normalize()

	r.mu.RLock()
	matched := make([]Event, 0, len(r.events))
	for _, event := range r.events {
		if matches(event, query) {
			matched = append(matched, *event)
		}
	}
	r.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].StartsAt.Equal(matched[j].StartsAt) {
			return matched[i].ID.String() < matched[j].ID.String()
		}
		return matched[i].StartsAt.Before(matched[j].StartsAt)
	})

	total := int64(len(matched))
	start := min(query.offset(), len(matched))
	end := min(start+query.Limit, len(matched))
	return matched[start:end], total, nil
}

func (r *MemoryRepository) UpdateEventStatus(_ context.Context, id uuid.UUID, from, to Status) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	event, ok := r.events[id]
	if !ok || event.Status != from {
		return false, nil
	}
	event.Status = to
	event.UpdatedAt = time.Now().UTC()
	return true, nil
}

func matches(event *Event, query ListQuery) bool {
	if query.Status != "" && event.Status != query.Status {
		return false
	}
	if query.Category != "" && !strings.EqualFold(event.Category, query.Category) {
		return false
	}
	if query.Search != "" {
		term := strings.ToLower(query.Search)
		return strings.Contains(strings.ToLower(event.Name), term) ||
			strings.Contains(strings.ToLower(event.Description), term) ||
			strings.Contains(strings.ToLower(event.Location), term)
	}
	return true
}
