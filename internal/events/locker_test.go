package events

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventbooking/internal/shared/errs"
)

func TestLocalLockerMutualExclusion(t *testing.T) {
	locker := NewLocalLocker(time.Second)
	id := uuid.New()

	var (
		mu      sync.Mutex
		inside  int
		maxSeen int
		wg      sync.WaitGroup
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := locker.Lock(context.Background(), id)
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			inside++
			maxSeen = max(maxSeen, inside)
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			inside--
			mu.Unlock()
			unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxSeen)
	assert.Equal(t, 0, locker.held())
}

func TestLocalLockerTimesOut(t *testing.T) {
	locker := NewLocalLocker(10 * time.Millisecond)
	id := uuid.New()

	unlock, err := locker.Lock(context.Background(), id)
	require.NoError(t, err)

	start := time.Now()
	_, err = locker.Lock(context.Background(), id)
	assert.ErrorIs(t, err, errs.ErrBusy)
	assert.Less(t, time.Since(start), time.Second)

	unlock()
	unlock()
	assert.Equal(t, 0, locker.held())
}

func TestLocalLockerHonoursCallerCancellation(t *testing.T) {
	locker := NewLocalLocker(time.Minute)
	id := uuid.New()

	unlock, err := locker.Lock(context.Background(), id)
	require.NoError(t, err)
	defer unlock()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = locker.Lock(ctx, id)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, errs.ErrBusy)
}
