package llm

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateWindow_NeverExceedsCap(t *testing.T) {
	clock := newFakeClock()
	w := newRateWindow(3, time.Minute, clock.Now, clock.Sleep)
	ctx := context.Background()

	var admitted []time.Time
	for i := 0; i < 10; i++ {
		_, err := w.wait(ctx)
		require.NoError(t, err)
		admitted = append(admitted, clock.Now())
		assert.LessOrEqual(t, w.inWindow(), 3)
		clock.Advance(5 * time.Second)
	}

	// No trailing minute may contain more than three admissions.
	for i := range admitted {
		count := 0
		for j := i; j < len(admitted) && admitted[j].Sub(admitted[i]) < time.Minute; j++ {
			count++
		}
		assert.LessOrEqual(t, count, 3, "window starting at admission %d", i)
	}
}

func TestRateWindow_WaitsForOldestToAgeOut(t *testing.T) {
	clock := newFakeClock()
	w := newRateWindow(2, time.Minute, clock.Now, clock.Sleep)
	ctx := context.Background()

	waited, err := w.wait(ctx)
	require.NoError(t, err)
	assert.Zero(t, waited)

	clock.Advance(20 * time.Second)
	waited, err = w.wait(ctx)
	require.NoError(t, err)
	assert.Zero(t, waited)

	waited, err = w.wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, 40*time.Second, waited)
	assert.Equal(t, []time.Duration{40 * time.Second}, clock.Slept())
}

func TestRateWindow_Disabled(t *testing.T) {
	w := newRateWindow(0, time.Minute, time.Now, sleepContext)
	for i := 0; i < 100; i++ {
		waited, err := w.wait(context.Background())
		require.NoError(t, err)
		assert.Zero(t, waited)
	}

	var nilWindow *rateWindow
	_, err := nilWindow.wait(context.Background())
	assert.NoError(t, err)
}

func TestRateWindow_CancelledWhileWaiting(t *testing.T) {
	w := newRateWindow(1, time.Hour, time.Now, sleepContext)
	_, err := w.wait(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = w.wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRateWindow_ConcurrentCallersDelayedNotDropped(t *testing.T) {
	const (
		limit  = 2
		window = 100 * time.Millisecond
		calls  = 6
	)
	w := newRateWindow(limit, window, time.Now, sleepContext)

	start := time.Now()
	var wg sync.WaitGroup
	errs := make([]error, calls)
	for i := 0; i < calls; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = w.wait(context.Background())
		}()
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	// Six admissions at two per window need at least two full windows.
	assert.GreaterOrEqual(t, time.Since(start), 2*window-10*time.Millisecond)
}
