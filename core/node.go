package core

import (
	"context"
	"time"
)

// NodeOption configures retry and concurrency behaviour of nodes and batch flows.
type NodeOption func(*nodeConfig)

type nodeConfig struct {
	retry       RetryPolicy
	concurrency int
}

func newNodeConfig(opts []NodeOption) nodeConfig {
	cfg := nodeConfig{
		retry:       RetryPolicy{MaxAttempts: 1, Backoff: NoBackoff},
		concurrency: 1,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.retry.MaxAttempts < 1 {
		cfg.retry.MaxAttempts = 1
	}
	if cfg.concurrency < 1 {
		// If routines is 0 or negative, it would hang. Default to 1 worker.
		cfg.concurrency = 1
	}
	return cfg
}

// WithMaxRetries sets the total number of Exec attempts.
func WithMaxRetries(attempts int) NodeOption {
	return func(c *nodeConfig) {
		c.retry.MaxAttempts = attempts
	}
}

// WithWait sets a fixed delay between attempts.
func WithWait(wait time.Duration) NodeOption {
	return func(c *nodeConfig) {
		c.retry.Backoff = FixedBackoff(wait)
	}
}

// WithBackoff sets the delay strategy between attempts.
func WithBackoff(b Backoff) NodeOption {
	return func(c *nodeConfig) {
		if b == nil {
			b = NoBackoff
		}
		c.retry.Backoff = b
	}
}

// WithConcurrency bounds how many batch items run at once. 1 runs items in order.
func WithConcurrency(n int) NodeOption {
	return func(c *nodeConfig) {
		c.concurrency = n
	}
}

// Node represents a single node in the workflow graph and implements Workflow
type Node[State any, PrepResult any, ExecResult any] struct {
	Edges[State]
	name     string
	node     BaseNode[State, PrepResult, ExecResult]
	fallback Fallback[PrepResult, ExecResult]
	retry    RetryPolicy
}

// NewNode wraps basenode into a graph vertex.
func NewNode[State any, PrepResult any, ExecResult any](name string, basenode BaseNode[State, PrepResult, ExecResult], opts ...NodeOption) *Node[State, PrepResult, ExecResult] {
	cfg := newNodeConfig(opts)
	fallback, _ := basenode.(Fallback[PrepResult, ExecResult])
	return &Node[State, PrepResult, ExecResult]{
		Edges:    newEdges[State](name),
		name:     name,
		node:     basenode,
		fallback: fallback,
		retry:    cfg.retry,
	}
}

// Name implements Workflow.
func (n *Node[State, PrepResult, ExecResult]) Name() string {
	return n.name
}

// RetryPolicy returns the policy applied to Exec.
func (n *Node[State, PrepResult, ExecResult]) RetryPolicy() RetryPolicy {
	return n.retry
}

// SetMaxRetries updates the maximum attempt count
func (n *Node[State, PrepResult, ExecResult]) SetMaxRetries(attempts int) {
	if attempts < 1 {
		attempts = 1
	}
	n.retry.MaxAttempts = attempts
}

// Run implements the Workflow interface and executes the three-phase execution model
func (n *Node[State, PrepResult, ExecResult]) Run(ctx context.Context, state *State) (action Action, err error) {
	ctx, span := startNodeSpan(ctx, n.name)
	defer func() { endSpan(span, err) }()

	prepRes, err := n.node.Prep(ctx, state)
	if err != nil {
		return "", &NodeError{Node: n.name, Phase: PhasePrep, Err: err}
	}

	execRes, err := execWithRetry(ctx, n.name, n.retry, n.node.Exec, n.fallback, prepRes)
	if err != nil {
		return "", err
	}

	action, err = n.node.Post(ctx, state, prepRes, execRes)
	if err != nil {
		return "", &NodeError{Node: n.name, Phase: PhasePost, Err: err}
	}
	return normalize(action), nil
}

// NodeFunc builds a BaseNode from closures. Nil phases fall back to no-ops;
// a nil PostFunc yields ActionDefault. FallbackFunc is only consulted when set,
// so a NodeFunc without it fails hard once retries are exhausted.
type NodeFunc[State any, PrepResult any, ExecResult any] struct {
	PrepFunc     func(ctx context.Context, state *State) (PrepResult, error)
	ExecFunc     func(ctx context.Context, prepResult PrepResult) (ExecResult, error)
	PostFunc     func(ctx context.Context, state *State, prepResult PrepResult, execResult ExecResult) (Action, error)
	FallbackFunc func(ctx context.Context, prepResult PrepResult, err error, attempts int) (ExecResult, error)
}

// Prep implements BaseNode.
func (f NodeFunc[State, PrepResult, ExecResult]) Prep(ctx context.Context, state *State) (PrepResult, error) {
	if f.PrepFunc == nil {
		var zero PrepResult
		return zero, nil
	}
	return f.PrepFunc(ctx, state)
}

// Exec implements BaseNode.
func (f NodeFunc[State, PrepResult, ExecResult]) Exec(ctx context.Context, prepResult PrepResult) (ExecResult, error) {
	if f.ExecFunc == nil {
		var zero ExecResult
		return zero, nil
	}
	return f.ExecFunc(ctx, prepResult)
}

// Post implements BaseNode.
func (f NodeFunc[State, PrepResult, ExecResult]) Post(ctx context.Context, state *State, prepResult PrepResult, execResult ExecResult) (Action, error) {
	if f.PostFunc == nil {
		return ActionDefault, nil
	}
	return f.PostFunc(ctx, state, prepResult, execResult)
}

// ExecFallback implements Fallback.
func (f NodeFunc[State, PrepResult, ExecResult]) ExecFallback(ctx context.Context, prepResult PrepResult, err error, attempts int) (ExecResult, error) {
	if f.FallbackFunc == nil {
		var zero ExecResult
		return zero, err
	}
	return f.FallbackFunc(ctx, prepResult, err, attempts)
}
