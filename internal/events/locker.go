package events

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"eventbooking/internal/shared/errs"
)

// Locker serializes inventory changes per event. Lock blocks for at most the
// implementation's wait budget and returns errs.ErrBusy when it runs out.
// The returned unlock func is safe to call more than once.
type Locker interface {
	Lock(ctx context.Context, eventID uuid.UUID) (unlock func(), err error)
}

type lockEntry struct {
	sem  *semaphore.Weighted
	refs int
}

// LocalLocker is an in-process Locker with one weighted semaphore per event.
// Entries are reference counted and dropped once nobody holds or waits on them.
type LocalLocker struct {
	mu      sync.Mutex
	entries map[uuid.UUID]*lockEntry
	wait    time.Duration
}

func NewLocalLocker(wait time.Duration) *LocalLocker {
	return &LocalLocker{
		entries: make(map[uuid.UUID]*lockEntry),
		wait:    wait,
	}
}

func (l *LocalLocker) Lock(ctx context.Context, eventID uuid.UUID) (func(), error) {
	entry := l.acquireEntry(eventID)

	waitCtx, cancel := withWait(ctx, l.wait)
	defer cancel()

	if err := entry.sem.Acquire(waitCtx, 1); err != nil {
		l.releaseEntry(eventID, entry)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, errs.ErrBusy
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			entry.sem.Release(1)
			l.releaseEntry(eventID, entry)
		})
	}, nil
}

// held returns how many events currently have a holder or waiter.
func (l *LocalLocker) held() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

func (l *LocalLocker) acquireEntry(eventID uuid.UUID) *lockEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.entries[eventID]
	if !ok {
		entry = &lockEntry{sem: semaphore.NewWeighted(1)}
		l.entries[eventID] = entry
	}
	entry.refs++
	return entry
}

func (l *LocalLocker) releaseEntry(eventID uuid.UUID, entry *lockEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry.refs--
	if entry.refs == 0 {
		delete(l.entries, eventID)
	}
}

func withWait(ctx context.Context, wait time.Duration) (context.Context, context.CancelFunc) {
	if wait <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, wait)
}
