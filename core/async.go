package core

import (
	"context"
	"sync"
)

// AsyncRun is a workflow started on its own goroutine. Phases inside the run
// keep their strict order; only the caller is freed to do other work.
type AsyncRun struct {
	id     string
	cancel context.CancelFunc
	done   chan struct{}

	mu     sync.Mutex
	action Action
	err    error
}

// RunAsync starts w on a new goroutine. Cancelling ctx, or calling Cancel,
// stops the run at the next vertex boundary or at whatever suspension point
// the running phase is blocked on. Writes already made to state are kept.
func RunAsync[State any](ctx context.Context, w Workflow[State], state *State) *AsyncRun {
	ctx, id, _ := ensureRunID(ctx)
	ctx, cancel := context.WithCancel(ctx)
	r := &AsyncRun{
		id:     id,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go func() {
		defer close(r.done)
		defer cancel()
		action, err := w.Run(ctx, state)
		r.mu.Lock()
		r.action, r.err = action, err
		r.mu.Unlock()
	}()
	return r
}

// ID returns the run id shared by every vertex of the run.
func (r *AsyncRun) ID() string {
	return r.id
}

// Done is closed once the run has finished.
func (r *AsyncRun) Done() <-chan struct{} {
	return r.done
}

// Cancel requests the run to stop.
func (r *AsyncRun) Cancel() {
	r.cancel()
}

// Wait blocks until the run finishes or ctx is done. A ctx expiring here does
// not cancel the run itself.
func (r *AsyncRun) Wait(ctx context.Context) (Action, error) {
	select {
	case <-r.done:
		return r.Result()
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Result returns the outcome of a finished run. Before Done is closed it returns "" and nil.
func (r *AsyncRun) Result() (Action, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.action, r.err
}

// Signal hands values from outside a run to a phase waiting on them, for
// example a human approval feeding a Post that decides the next action.
type Signal[T any] struct {
	ch chan T
}

// NewSignal creates a signal able to hold buffer undelivered values (at least one).
func NewSignal[T any](buffer int) *Signal[T] {
	if buffer < 1 {
		buffer = 1
	}
	return &Signal[T]{ch: make(chan T, buffer)}
}

// Send delivers v, blocking while the buffer is full.
func (s *Signal[T]) Send(ctx context.Context, v T) error {
	select {
	case s.ch <- v:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Await suspends the caller until a value is sent or ctx is done.
func (s *Signal[T]) Await(ctx context.Context) (T, error) {
	select {
	case v := <-s.ch:
		return v, nil
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
