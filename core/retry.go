package core

import (
	"context"
	"math"
	"time"

	"github.com/rs/zerolog"
)

// Backoff computes the wait after a failed attempt. attempt is the zero-based
// index of the attempt that just failed.
type Backoff interface {
	Delay(attempt int) time.Duration
}

// FixedBackoff waits the same duration between every attempt.
type FixedBackoff time.Duration

// Delay implements Backoff.
func (b FixedBackoff) Delay(int) time.Duration {
	return time.Duration(b)
}

// NoBackoff retries immediately. Tests use it for deterministic runs.
var NoBackoff Backoff = FixedBackoff(0)

// ExponentialBackoff waits Initial * Factor^attempt, capped at Max when Max > 0.
type ExponentialBackoff struct {
	Initial time.Duration
	Factor  float64
	Max     time.Duration
}

// Delay implements Backoff.
func (b ExponentialBackoff) Delay(attempt int) time.Duration {
	factor := b.Factor
	if factor <= 1 {
		factor = 2
	}
	d := time.Duration(float64(b.Initial) * math.Pow(factor, float64(attempt)))
	if b.Max > 0 && (d > b.Max || d < 0) {
		return b.Max
	}
	return d
}

// RetryPolicy bounds how often Exec runs for one node execution.
type RetryPolicy struct {
	// MaxAttempts is the total number of Exec invocations, including the first.
	MaxAttempts int
	Backoff     Backoff
}

func (p RetryPolicy) attempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

func (p RetryPolicy) delay(attempt int) time.Duration {
	if p.Backoff == nil {
		return 0
	}
	return p.Backoff.Delay(attempt)
}

type attemptKey struct{}

// AttemptFromContext returns the zero-based attempt index of the Exec call
// that received ctx.
func AttemptFromContext(ctx context.Context) int {
	if n, ok := ctx.Value(attemptKey{}).(int); ok {
		return n
	}
	return 0
}

// execWithRetry runs exec up to policy.MaxAttempts times. Prep is not re-run
// between attempts, so every attempt sees the same prep result.
func execWithRetry[P any, E any](
	ctx context.Context,
	node string,
	policy RetryPolicy,
	exec func(context.Context, P) (E, error),
	fallback Fallback[P, E],
	prep P,
) (E, error) {
	var zero E
	attempts := policy.attempts()
	log := zerolog.Ctx(ctx)

	var lastErr error
	made := 0
	for attempt := 0; attempt < attempts; attempt++ {
		made = attempt + 1
		result, err := exec(context.WithValue(ctx, attemptKey{}, attempt), prep)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return zero, &NodeError{Node: node, Phase: PhaseExec, Attempts: made, Err: err}
		}
		if attempt == attempts-1 {
			break
		}

		wait := policy.delay(attempt)
		log.Debug().
			Str("node", node).
			Int("attempt", made).
			Dur("wait", wait).
			Err(err).
			Msg("exec failed, retrying")
		if err := sleepContext(ctx, wait); err != nil {
			return zero, &NodeError{Node: node, Phase: PhaseExec, Attempts: made, Err: err}
		}
	}

	if fallback != nil {
		result, err := fallback.ExecFallback(ctx, prep, lastErr, made)
		if err == nil {
			log.Warn().
				Str("node", node).
				Int("attempts", made).
				Err(lastErr).
				Msg("exec retries exhausted, using fallback")
			return result, nil
		}
		lastErr = err
	}
	return zero, &NodeError{Node: node, Phase: PhaseExec, Attempts: made, Err: lastErr}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
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
