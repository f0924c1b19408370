package events

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"eventbooking/internal/shared/constants"
	"eventbooking/internal/shared/errs"
	"eventbooking/pkg/cache"
	"eventbooking/pkg/logger"
)

func newTestStore(t *testing.T) (*Store, *MemoryRepository) {
	t.Helper()
	repo := NewMemoryRepository()
	return NewStore(repo, NewLocalLocker(time.Second), logger.Discard()), repo
}

func seedEvent(t *testing.T, repo *MemoryRepository, total, available int, status Status) uuid.UUID {
	t.Helper()
	event := &Event{
		ID:               uuid.New(),
		Name:             "Spring Gala",
		Location:         "Main Hall",
		Category:         "music",
		StartsAt:         time.Now().Add(24 * time.Hour),
		TotalTickets:     total,
		TicketsAvailable: available,
		TicketPrice:      25.5,
		Status:           status,
	}
	require.NoError(t, repo.CreateEvent(context.Background(), event))
	return event.ID
}

func available(t *testing.T, store *Store, id uuid.UUID) int {
	t.Helper()
	snap, err := store.GetStatus(context.Background(), id)
	require.NoError(t, err)
	return snap.TicketsAvailable
}

func TestTryReserveSequence(t *testing.T) {
	store, repo := newTestStore(t)
	ctx := context.Background()
	id := seedEvent(t, repo, 10, 10, StatusActive)

	res, err := store.TryReserve(ctx, id, 7)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Remaining)
	assert.Equal(t, 25.5, res.UnitPrice)
	assert.Equal(t, 178.5, res.TotalAmount())
	assert.Equal(t, 3, available(t, store, id))

	_, err = store.TryReserve(ctx, id, 5)
	assert.ErrorIs(t, err, errs.ErrInsufficientTickets)
	assert.ErrorIs(t, err, errs.ErrCapacityExceeded)
	assert.Equal(t, 3, available(t, store, id))

	res, err = store.TryReserve(ctx, id, 3)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Remaining)
	assert.Equal(t, 0, available(t, store, id))
}

func TestTryReserveRejections(t *testing.T) {
	store, repo := newTestStore(t)
	ctx := context.Background()
	active := seedEvent(t, repo, 10, 10, StatusActive)
	cancelled := seedEvent(t, repo, 10, 10, StatusCancelled)

	tests := []struct {
		name    string
		eventID uuid.UUID
		count   int
		want    error
	}{
		{"zero count", active, 0, errs.ErrInvalidTicketCount},
		{"negative count", active, -2, errs.ErrInvalidTicketCount},
		{"unknown event", uuid.New(), 1, errs.ErrEventNotFound},
		{"cancelled event", cancelled, 1, errs.ErrEventNotActive},
		{"more than total", active, 11, errs.ErrInsufficientTickets},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := store.TryReserve(ctx, tt.eventID, tt.count)
			assert.Nil(t, res)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	assert.Equal(t, 10, available(t, store, active))
	assert.Equal(t, 10, available(t, store, cancelled))
}

func TestReleaseIsCappedAtTotal(t *testing.T) {
	store, repo := newTestStore(t)
	ctx := context.Background()
	id := seedEvent(t, repo, 10, 8, StatusActive)

	require.NoError(t, store.Release(ctx, id, 5))
	assert.Equal(t, 10, available(t, store, id))
}

func TestReleaseRestoresSoldOutEvent(t *testing.T) {
	store, repo := newTestStore(t)
	id := seedEvent(t, repo, 10, 0, StatusActive)

	require.NoError(t, store.Release(context.Background(), id, 4))
	assert.Equal(t, 4, available(t, store, id))
}

func TestReleaseErrors(t *testing.T) {
	store, repo := newTestStore(t)
	id := seedEvent(t, repo, 10, 5, StatusActive)

	assert.ErrorIs(t, store.Release(context.Background(), id, 0), errs.ErrInvalidTicketCount)
	assert.ErrorIs(t, store.Release(context.Background(), uuid.New(), 1), errs.ErrEventNotFound)
	assert.Equal(t, 5, available(t, store, id))
}

func TestConcurrentReservationsNeverOverbook(t *testing.T) {
	store, repo := newTestStore(t)
	id := seedEvent(t, repo, 50, 50, StatusActive)

	var reserved atomic.Int64
	g, ctx := errgroup.WithContext(context.Background())
	for i := 0; i < 100; i++ {
		count := i%3 + 1
		g.Go(func() error {
			_, err := store.TryReserve(ctx, id, count)
			switch {
			case err == nil:
				reserved.Add(int64(count))
				return nil
			case errs.IsRetryable(err), errors.Is(err, errs.ErrInsufficientTickets):
				return nil
			default:
				return err
			}
		})
	}
	require.NoError(t, g.Wait())

	left := available(t, store, id)
	assert.GreaterOrEqual(t, left, 0)
	assert.LessOrEqual(t, reserved.Load(), int64(50))
	assert.Equal(t, int64(50), reserved.Load()+int64(left))
}

func TestTryReserveBusyWhenLockHeld(t *testing.T) {
	repo := NewMemoryRepository()
	locker := NewLocalLocker(20 * time.Millisecond)
	store := NewStore(repo, locker, logger.Discard())
	id := seedEvent(t, repo, 10, 10, StatusActive)

	unlock, err := locker.Lock(context.Background(), id)
	require.NoError(t, err)

	_, err = store.TryReserve(context.Background(), id, 1)
	assert.ErrorIs(t, err, errs.ErrBusy)
	assert.True(t, errs.IsRetryable(err))

	unlock()
	assert.Equal(t, 10, available(t, store, id))

	_, err = store.TryReserve(context.Background(), id, 1)
	assert.NoError(t, err)
}

func TestDifferentEventsDoNotContend(t *testing.T) {
	repo := NewMemoryRepository()
	locker := NewLocalLocker(20 * time.Millisecond)
	store := NewStore(repo, locker, logger.Discard())
	busy := seedEvent(t, repo, 10, 10, StatusActive)
	free := seedEvent(t, repo, 10, 10, StatusActive)

	unlock, err := locker.Lock(context.Background(), busy)
	require.NoError(t, err)
	defer unlock()

	_, err = store.TryReserve(context.Background(), free, 2)
	assert.NoError(t, err)
}

func TestUpdateStatus(t *testing.T) {
	store, repo := newTestStore(t)
	ctx := context.Background()
	id := seedEvent(t, repo, 10, 10, StatusActive)

	event, err := store.UpdateStatus(ctx, id, StatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, event.Status)

	_, err = store.TryReserve(ctx, id, 1)
	assert.ErrorIs(t, err, errs.ErrEventNotActive)

	_, err = store.UpdateStatus(ctx, id, StatusCompleted)
	assert.ErrorIs(t, err, errs.ErrInvalidState)

	_, err = store.UpdateStatus(ctx, id, Status("archived"))
	assert.ErrorIs(t, err, errs.ErrValidation)
}

func TestCreateEvent(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	event, err := store.Create(ctx, CreateEventRequest{
		Name:         "  Tech Summit ",
		Location:     "Hall B",
		Category:     "Conference",
		StartsAt:     time.Now().Add(48 * time.Hour),
		TotalTickets: 200,
		TicketPrice:  99.99,
	})
	require.NoError(t, err)
	assert.Equal(t, "Tech Summit", event.Name)
	assert.Equal(t, "conference", event.Category)
	assert.Equal(t, 200, event.TicketsAvailable)
	assert.Equal(t, StatusActive, event.Status)

	_, err = store.Create(ctx, CreateEventRequest{Name: "Empty", TotalTickets: 0})
	assert.ErrorIs(t, err, errs.ErrValidation)

	_, err = store.Create(ctx, CreateEventRequest{Name: "Negative", TotalTickets: 5, TicketPrice: -1})
	assert.ErrorIs(t, err, errs.ErrValidation)
}

func TestListActiveFilters(t *testing.T) {
	store, repo := newTestStore(t)
	ctx := context.Background()

	seedEvent(t, repo, 10, 10, StatusActive)
	seedEvent(t, repo, 10, 10, StatusCancelled)
	require.NoError(t, repo.CreateEvent(ctx, &Event{
		Name:             "Jazz Night",
		Description:      "Late set",
		Category:         "music",
		StartsAt:         time.Now().Add(time.Hour),
		TotalTickets:     5,
		TicketsAvailable: 5,
		Status:           StatusActive,
	}))
	require.NoError(t, repo.CreateEvent(ctx, &Event{
		Name:             "Go Workshop",
		Category:         "tech",
		StartsAt:         time.Now().Add(2 * time.Hour),
		TotalTickets:     5,
		TicketsAvailable: 5,
		Status:           StatusActive,
	}))

	all, err := store.ListActive(ctx, ListQuery{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), all.TotalCount)
	assert.Equal(t, 1, all.Page)
	assert.Equal(t, 10, all.Limit)

	music, err := store.ListActive(ctx, ListQuery{Category: "MUSIC"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), music.TotalCount)

	jazz, err := store.ListActive(ctx, ListQuery{Search: "jazz"})
	require.NoError(t, err)
	require.Len(t, jazz.Events, 1)
	assert.Equal(t, "Jazz Night", jazz.Events[0].Name)

	paged, err := store.ListActive(ctx, ListQuery{Page: 2, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, paged.Events, 1)
	assert.Equal(t, 2, paged.TotalPages)
}

func TestListActiveCachedPageExpires(t *testing.T) {
	store, repo := newTestStore(t)
	ctx := context.Background()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	store.SetCacheService(cache.NewService(client, logger.Discard()))

	id := seedEvent(t, repo, 10, 10, StatusActive)

	page, err := store.ListActive(ctx, ListQuery{})
	require.NoError(t, err)
	require.Len(t, page.Events, 1)
	assert.Equal(t, 10, page.Events[0].TicketsAvailable)

	key := constants.BuildEventListKey(1, 10, "", "")
	assert.Equal(t, constants.TTL_EVENT_LIST, mr.TTL(key))
	assert.LessOrEqual(t, constants.TTL_EVENT_LIST, 30*time.Second)

	// A change that skips invalidation leaves the cached page behind.
	ok, err := repo.ConditionalDecrementTickets(ctx, id, 3)
	require.NoError(t, err)
	require.True(t, ok)

	page, err = store.ListActive(ctx, ListQuery{})
	require.NoError(t, err)
	assert.Equal(t, 10, page.Events[0].TicketsAvailable)

	mr.FastForward(constants.TTL_EVENT_LIST)

	page, err = store.ListActive(ctx, ListQuery{})
	require.NoError(t, err)
	assert.Equal(t, 7, page.Events[0].TicketsAvailable)

	// Reservations through the store drop the page immediately.
	_, err = store.TryReserve(ctx, id, 2)
	require.NoError(t, err)

	page, err = store.ListActive(ctx, ListQuery{})
	require.NoError(t, err)
	assert.Equal(t, 5, page.Events[0].TicketsAvailable)
}

func TestCalculateCostAndValidate(t *testing.T) {
	store, repo := newTestStore(t)
	ctx := context.Background()
	id := seedEvent(t, repo, 10, 2, StatusActive)

	quote, err := store.CalculateCost(ctx, id, 3)
	require.NoError(t, err)
	assert.Equal(t, 76.5, quote.TotalAmount)

	_, err = store.CalculateCost(ctx, uuid.New(), 1)
	assert.ErrorIs(t, err, errs.ErrEventNotFound)

	assert.NoError(t, store.Validate(ctx, id, 2))
	assert.ErrorIs(t, store.Validate(ctx, id, 3), errs.ErrInsufficientTickets)
	assert.ErrorIs(t, store.Validate(ctx, id, 0), errs.ErrInvalidTicketCount)
}
