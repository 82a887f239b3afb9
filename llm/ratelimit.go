package llm

import (
	"context"
	"sync"
	"time"
)

// rateWindow admits at most limit calls in any trailing window. Callers over
// the cap wait for the oldest admission to age out; nobody is rejected.
type rateWindow struct {
	mu     sync.Mutex
	limit  int
	window time.Duration
	now    func() time.Time
	sleep  func(context.Context, time.Duration) error
	stamps []time.Time
}

func newRateWindow(limit int, window time.Duration, now func() time.Time, sleep func(context.Context, time.Duration) error) *rateWindow {
	return &rateWindow{
		limit:  limit,
		window: window,
		now:    now,
		sleep:  sleep,
	}
}

// wait blocks until the caller is admitted and returns how long it waited.
// A limit <= 0 admits everything.
func (w *rateWindow) wait(ctx context.Context) (time.Duration, error) {
	if w == nil || w.limit <= 0 {
		return 0, nil
	}

	var waited time.Duration
	for {
		w.mu.Lock()
		now := w.now()
		w.prune(now)
		if len(w.stamps) < w.limit {
			w.stamps = append(w.stamps, now)
			w.mu.Unlock()
			return waited, nil
		}
		d := w.window - now.Sub(w.stamps[0])
		w.mu.Unlock()

		// Another waiter may take the freed slot first, so loop until admitted.
		if err := w.sleep(ctx, d); err != nil {
			return waited, err
		}
		waited += d
	}
}

// prune drops admissions older than the window. Caller holds mu.
func (w *rateWindow) prune(now time.Time) {
	i := 0
	for i < len(w.stamps) && now.Sub(w.stamps[i]) >= w.window {
		i++
	}
	if i > 0 {
		w.stamps = append(w.stamps[:0], w.stamps[i:]...)
	}
}

// inWindow reports how many admissions the current window holds.
func (w *rateWindow) inWindow() int {
	if w == nil {
		return 0
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.prune(w.now())
	return len(w.stamps)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
