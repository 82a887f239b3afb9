package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBackoff_Delay(t *testing.T) {
	tests := []struct {
		name    string
		backoff Backoff
		attempt int
		want    time.Duration
	}{
		{"no backoff", NoBackoff, 3, 0},
		{"fixed", FixedBackoff(250 * time.Millisecond), 0, 250 * time.Millisecond},
		{"fixed later attempt", FixedBackoff(250 * time.Millisecond), 7, 250 * time.Millisecond},
		{"exponential first", ExponentialBackoff{Initial: time.Second}, 0, time.Second},
		{"exponential doubles", ExponentialBackoff{Initial: time.Second}, 3, 8 * time.Second},
		{"exponential factor", ExponentialBackoff{Initial: time.Second, Factor: 3}, 2, 9 * time.Second},
		{"exponential capped", ExponentialBackoff{Initial: time.Second, Max: 5 * time.Second}, 4, 5 * time.Second},
		{"exponential overflow capped", ExponentialBackoff{Initial: time.Second, Max: time.Minute}, 200, time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.backoff.Delay(tt.attempt))
		})
	}
}

func TestRetryPolicy_Defaults(t *testing.T) {
	var p RetryPolicy
	assert.Equal(t, 1, p.attempts())
	assert.Zero(t, p.delay(2))

	cfg := newNodeConfig([]NodeOption{WithMaxRetries(4), WithBackoff(nil)})
	assert.Equal(t, 4, cfg.retry.MaxAttempts)
	assert.Equal(t, NoBackoff, cfg.retry.Backoff)

	cfg = newNodeConfig([]NodeOption{WithWait(time.Second), WithConcurrency(-1)})
	assert.Equal(t, time.Second, cfg.retry.delay(0))
	assert.Equal(t, 1, cfg.concurrency)
}
