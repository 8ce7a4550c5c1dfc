package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ferrors "git.home.luguber.info/inful/setsim/internal/foundation/errors"
)

func TestPoolRunsEveryTask(t *testing.T) {
	p := NewPool(4, 8)
	p.Start(t.Context())

	var ran atomic.Int64
	busy := make([]atomic.Int32, p.Workers())
	for range 200 {
		err := p.Submit(t.Context(), func(_ context.Context, w int) error {
			if busy[w].Add(1) != 1 {
				t.Errorf("worker %d ran two tasks at once", w)
			}
			ran.Add(1)
			busy[w].Add(-1)
			return nil
		})
		require.NoError(t, err)
	}
	require.NoError(t, p.Wait(t.Context()))

	assert.Equal(t, int64(200), ran.Load())
	assert.Equal(t, uint64(200), p.Completed())
	assert.Zero(t, p.Failed())
}

func TestPoolRecoversPanics(t *testing.T) {
	var mu sync.Mutex
	var errs []error
	p := NewPool(2, 4, WithErrorHandler(func(_ int, err error) {
		mu.Lock()
		defer mu.Unlock()
		errs = append(errs, err)
	}))
	p.Start(t.Context())

	for i := range 10 {
		require.NoError(t, p.Submit(t.Context(), func(context.Context, int) error {
			switch i % 5 {
			case 0:
				panic("boom")
			case 1:
				return errors.New("plain failure")
			}
			return nil
		}))
	}

	ctx, cancel := context.WithTimeout(t.Context(), 5*time.Second)
	defer cancel()
	require.NoError(t, p.Wait(ctx), "a panicking task must not prevent shutdown")

	assert.Equal(t, uint64(6), p.Completed())
	assert.Equal(t, uint64(4), p.Failed())
	assert.Equal(t, uint64(2), p.Panicked())
	require.Len(t, errs, 4)

	panics := 0
	for _, err := range errs {
		if ferrors.HasCategory(err, ferrors.CategoryRuntime) {
			panics++
		}
	}
	assert.Equal(t, 2, panics)
}

func TestSubmitBlocksWhenQueueIsFull(t *testing.T) {
	p := NewPool(1, 2)
	noop := func(context.Context, int) error { return nil }

	require.NoError(t, p.Submit(t.Context(), noop))
	require.NoError(t, p.Submit(t.Context(), noop))

	ctx, cancel := context.WithTimeout(t.Context(), 50*time.Millisecond)
	defer cancel()
	err := p.Submit(ctx, noop)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	p.Start(t.Context())
	require.NoError(t, p.Wait(t.Context()))
	assert.Equal(t, uint64(2), p.Completed())
}

func TestSubmitAfterClose(t *testing.T) {
	p := NewPool(1, 1)
	p.Start(t.Context())
	p.Close()
	p.Close()

	err := p.Submit(t.Context(), func(context.Context, int) error { return nil })
	assert.ErrorIs(t, err, ErrClosed)
	require.NoError(t, p.Wait(t.Context()))
}

func TestGroupRefusesAfterStop(t *testing.T) {
	var g Group
	release := make(chan struct{})
	require.True(t, g.Go(func() { <-release }))

	ctx, cancel := context.WithTimeout(t.Context(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, g.StopAndWait(ctx), context.DeadlineExceeded)
	assert.False(t, g.Go(func() {}))
	assert.False(t, g.Go(nil))

	close(release)
	require.NoError(t, g.StopAndWait(t.Context()))
}
