package core

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type reviewState struct {
	Draft    string
	Rounds   int
	Feedback []string
}

type verdict struct {
	Approved bool
	Note     string
}

// newReviewFlow builds a review node looping on "deny". awaiting, when not
// nil, receives a value each time the node suspends for a decision.
func newReviewFlow(t *testing.T, decisions *Signal[verdict], awaiting chan<- struct{}) *Flow[reviewState] {
	t.Helper()
	review := NewNode[reviewState, string, string]("review", NodeFunc[reviewState, string, string]{
		PrepFunc: func(ctx context.Context, s *reviewState) (string, error) {
			return s.Draft, nil
		},
		ExecFunc: func(ctx context.Context, draft string) (string, error) {
			return draft + "!", nil
		},
		PostFunc: func(ctx context.Context, s *reviewState, _ string, draft string) (Action, error) {
			s.Draft = draft
			s.Rounds++
			if awaiting != nil {
				awaiting <- struct{}{}
			}
			v, err := decisions.Await(ctx)
			if err != nil {
				return "", err
			}
			if !v.Approved {
				s.Feedback = append(s.Feedback, v.Note)
				return "deny", nil
			}
			return "approve", nil
		},
	})
	done := NewNode[reviewState, any, any]("done", NodeFunc[reviewState, any, any]{
		PostFunc: func(ctx context.Context, s *reviewState, _ any, _ any) (Action, error) {
			return ActionSuccess, nil
		},
	})
	review.AddSuccessor(review, "deny")
	review.AddSuccessor(done, "approve")

	flow, err := NewFlow[reviewState]("review-loop", review)
	require.NoError(t, err)
	return flow
}

func TestRunAsync_SignalDrivesApprovalLoop(t *testing.T) {
	decisions := NewSignal[verdict](1)
	flow := newReviewFlow(t, decisions, nil)

	state := &reviewState{Draft: "v"}
	run := RunAsync(context.Background(), flow, state)
	assert.NotEmpty(t, run.ID())

	ctx := context.Background()
	require.NoError(t, decisions.Send(ctx, verdict{Note: "too short"}))
	require.NoError(t, decisions.Send(ctx, verdict{Note: "still short"}))
	require.NoError(t, decisions.Send(ctx, verdict{Approved: true}))

	waitCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	action, err := run.Wait(waitCtx)
	require.NoError(t, err)

	assert.Equal(t, ActionSuccess, action)
	assert.Equal(t, 3, state.Rounds)
	assert.Equal(t, "v!!!", state.Draft)
	assert.Equal(t, []string{"too short", "still short"}, state.Feedback)

	select {
	case <-run.Done():
	default:
		t.Fatal("Done should be closed after Wait returns")
	}
}

func TestRunAsync_CancelWhileSuspended(t *testing.T) {
	decisions := NewSignal[verdict](1)
	awaiting := make(chan struct{}, 1)
	flow := newReviewFlow(t, decisions, awaiting)

	state := &reviewState{Draft: "v"}
	run := RunAsync(context.Background(), flow, state)

	select {
	case <-awaiting:
	case <-time.After(2 * time.Second):
		t.Fatal("run never suspended")
	}
	run.Cancel()

	<-run.Done()
	action, err := run.Result()
	assert.Empty(t, action)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, "v!", state.Draft, "writes before suspension are kept")
}

func TestAsyncRun_WaitTimesOutWithoutCancellingRun(t *testing.T) {
	decisions := NewSignal[verdict](1)
	flow := newReviewFlow(t, decisions, nil)

	run := RunAsync(context.Background(), flow, &reviewState{})

	shortCtx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := run.Wait(shortCtx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	require.NoError(t, decisions.Send(context.Background(), verdict{Approved: true}))
	action, err := run.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ActionSuccess, action)
}

func TestSignal_AwaitHonoursContext(t *testing.T) {
	sig := NewSignal[int](0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := sig.Await(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	require.NoError(t, sig.Send(context.Background(), 7))
	err = sig.Send(ctx, 8)
	assert.ErrorIs(t, err, context.Canceled, "full buffer blocks until ctx is done")

	v, err := sig.Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, v)
}
