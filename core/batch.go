package core

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// BatchNode runs Exec once per item produced by Prep. With concurrency 1 the
// items run in order; above that they are dispatched concurrently, bounded by
// the configured limit. Either way Post receives results in input order.
type BatchNode[State any, PrepResult any, ExecResult any] struct {
	Edges[State]
	name        string
	node        BaseBatchNode[State, PrepResult, ExecResult]
	fallback    Fallback[PrepResult, ExecResult]
	retry       RetryPolicy
	concurrency int
}

// NewBatchNode wraps a batch node into a graph vertex.
func NewBatchNode[State any, PrepResult any, ExecResult any](name string, basenode BaseBatchNode[State, PrepResult, ExecResult], opts ...NodeOption) *BatchNode[State, PrepResult, ExecResult] {
	cfg := newNodeConfig(opts)
	fallback, _ := basenode.(Fallback[PrepResult, ExecResult])
	return &BatchNode[State, PrepResult, ExecResult]{
		Edges:       newEdges[State](name),
		name:        name,
		node:        basenode,
		fallback:    fallback,
		retry:       cfg.retry,
		concurrency: cfg.concurrency,
	}
}

// Name implements Workflow.
func (n *BatchNode[State, PrepResult, ExecResult]) Name() string {
	return n.name
}

// SetMaxRoutines updates the maximum concurrent items
func (n *BatchNode[State, PrepResult, ExecResult]) SetMaxRoutines(routines int) {
	if routines < 1 {
		routines = 1
	}
	n.concurrency = routines
}

// Run implements Workflow.
func (n *BatchNode[State, PrepResult, ExecResult]) Run(ctx context.Context, state *State) (action Action, err error) {
	ctx, span := startNodeSpan(ctx, n.name)
	defer func() { endSpan(span, err) }()

	items, err := n.node.Prep(ctx, state)
	if err != nil {
		return "", &NodeError{Node: n.name, Phase: PhasePrep, Err: err}
	}

	results, err := n.execAll(ctx, items)
	if err != nil {
		return "", err
	}

	action, err = n.node.Post(ctx, state, items, results)
	if err != nil {
		return "", &NodeError{Node: n.name, Phase: PhasePost, Err: err}
	}
	return normalize(action), nil
}

func (n *BatchNode[State, PrepResult, ExecResult]) execAll(ctx context.Context, items []PrepResult) ([]ExecResult, error) {
	results := make([]ExecResult, len(items))
	if len(items) == 0 {
		return results, nil
	}

	numWorkers := n.concurrency
	if numWorkers > len(items) {
		// Don't spawn more workers than there are items.
		numWorkers = len(items)
	}

	if numWorkers == 1 {
		for i, item := range items {
			if err := ctx.Err(); err != nil {
				return nil, &NodeError{Node: n.name, Phase: PhaseExec, Err: err}
			}
			res, err := execWithRetry(ctx, n.name, n.retry, n.node.Exec, n.fallback, item)
			if err != nil {
				return nil, fmt.Errorf("item %d: %w", i, err)
			}
			results[i] = res
		}
		return results, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(numWorkers)
	for i, item := range items {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := execWithRetry(gctx, n.name, n.retry, n.node.Exec, n.fallback, item)
			if err != nil {
				return fmt.Errorf("item %d: %w", i, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// BatchNodeFunc builds a BaseBatchNode from closures. A nil PostFunc yields
// ActionDefault; FallbackFunc is only consulted when set.
type BatchNodeFunc[State any, PrepResult any, ExecResult any] struct {
	PrepFunc     func(ctx context.Context, state *State) ([]PrepResult, error)
	ExecFunc     func(ctx context.Context, item PrepResult) (ExecResult, error)
	PostFunc     func(ctx context.Context, state *State, items []PrepResult, execResults []ExecResult) (Action, error)
	FallbackFunc func(ctx context.Context, item PrepResult, err error, attempts int) (ExecResult, error)
}

// Prep implements BaseBatchNode.
func (f BatchNodeFunc[State, PrepResult, ExecResult]) Prep(ctx context.Context, state *State) ([]PrepResult, error) {
	if f.PrepFunc == nil {
		return nil, nil
	}
	return f.PrepFunc(ctx, state)
}

// Exec implements BaseBatchNode.
func (f BatchNodeFunc[State, PrepResult, ExecResult]) Exec(ctx context.Context, item PrepResult) (ExecResult, error) {
	if f.ExecFunc == nil {
		var zero ExecResult
		return zero, nil
	}
	return f.ExecFunc(ctx, item)
}

// Post implements BaseBatchNode.
func (f BatchNodeFunc[State, PrepResult, ExecResult]) Post(ctx context.Context, state *State, items []PrepResult, execResults []ExecResult) (Action, error) {
	if f.PostFunc == nil {
		return ActionDefault, nil
	}
	return f.PostFunc(ctx, state, items, execResults)
}

// ExecFallback implements Fallback.
func (f BatchNodeFunc[State, PrepResult, ExecResult]) ExecFallback(ctx context.Context, item PrepResult, err error, attempts int) (ExecResult, error) {
	if f.FallbackFunc == nil {
		var zero ExecResult
		return zero, err
	}
	return f.FallbackFunc(ctx, item, err, attempts)
}
