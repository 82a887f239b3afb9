package llm

import (
	"errors"
	"fmt"
)

var (
	// ErrNoGenerator is returned by NewPool without a generator.
	ErrNoGenerator = errors.New("pool requires a generator")

	// ErrEmptyPrompt is returned for requests without a prompt.
	ErrEmptyPrompt = errors.New("prompt is empty")

	// ErrPoolClosed is returned by calls on a closed pool.
	ErrPoolClosed = errors.New("pool is closed")
)

// CallError reports a pool call that exhausted its attempts.
type CallError struct {
	Model    string
	Attempts int
	Err      error
}

// Error implements the error interface.
func (e *CallError) Error() string {
	return fmt.Sprintf("llm call to %q failed after %d attempt(s): %v", e.Model, e.Attempts, e.Err)
}

// Unwrap returns the last generator error.
func (e *CallError) Unwrap() error {
	return e.Err
}
