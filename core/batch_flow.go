package core

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// BatchFlow runs a sub-flow once per Params set returned by its Prep. Each
// sub-run sees its params through ParamsFromContext, merged over the params of
// the enclosing run. All sub-runs share the same state: concurrent items must
// write disjoint keys, the engine does not merge or lock anything.
type BatchFlow[State any] struct {
	Edges[State]
	name        string
	flow        Workflow[State]
	batch       BaseBatchFlow[State]
	concurrency int
}

// NewBatchFlow creates a batch flow over flow. WithConcurrency enables
// concurrent sub-runs; other node options are ignored.
func NewBatchFlow[State any](name string, flow Workflow[State], batch BaseBatchFlow[State], opts ...NodeOption) (*BatchFlow[State], error) {
	if flow == nil {
		return nil, fmt.Errorf("batch flow %q: %w", name, ErrNoStartNode)
	}
	if batch == nil {
		return nil, fmt.Errorf("batch flow %q: nil batch definition", name)
	}
	cfg := newNodeConfig(opts)
	return &BatchFlow[State]{
		Edges:       newEdges[State](name),
		name:        name,
		flow:        flow,
		batch:       batch,
		concurrency: cfg.concurrency,
	}, nil
}

// Name implements Workflow.
func (b *BatchFlow[State]) Name() string {
	return b.name
}

// Run implements Workflow. Post receives the final action of every sub-run in input order.
func (b *BatchFlow[State]) Run(ctx context.Context, state *State) (action Action, err error) {
	ctx, runID, _ := ensureRunID(ctx)
	ctx, span := startFlowSpan(ctx, b.name, runID)
	defer func() { endSpan(span, err) }()

	items, err := b.batch.Prep(ctx, state)
	if err != nil {
		return "", &NodeError{Node: b.name, Phase: PhasePrep, Err: err}
	}

	actions, err := b.runAll(ctx, state, items)
	if err != nil {
		return "", err
	}

	action, err = b.batch.Post(ctx, state, items, actions)
	if err != nil {
		return "", &NodeError{Node: b.name, Phase: PhasePost, Err: err}
	}
	return normalize(action), nil
}

func (b *BatchFlow[State]) runAll(ctx context.Context, state *State, items []Params) ([]Action, error) {
	actions := make([]Action, len(items))
	if len(items) == 0 {
		return actions, nil
	}

	if b.concurrency <= 1 || len(items) == 1 {
		for i, params := range items {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("batch flow %q cancelled before item %d: %w", b.name, i, err)
			}
			a, err := b.flow.Run(WithParams(ctx, params), state)
			if err != nil {
				return nil, fmt.Errorf("batch flow %q item %d: %w", b.name, i, err)
			}
			actions[i] = a
		}
		return actions, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.concurrency)
	for i, params := range items {
		g.Go(func() error {
			a, err := b.flow.Run(WithParams(gctx, params), state)
			if err != nil {
				return fmt.Errorf("batch flow %q item %d: %w", b.name, i, err)
			}
			actions[i] = a
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return actions, nil
}

// BatchFlowFunc builds a BaseBatchFlow from closures. A nil PostFunc yields ActionDefault.
type BatchFlowFunc[State any] struct {
	PrepFunc func(ctx context.Context, state *State) ([]Params, error)
	PostFunc func(ctx context.Context, state *State, items []Params, actions []Action) (Action, error)
}

// Prep implements BaseBatchFlow.
func (f BatchFlowFunc[State]) Prep(ctx context.Context, state *State) ([]Params, error) {
	if f.PrepFunc == nil {
		return nil, nil
	}
	return f.PrepFunc(ctx, state)
}

// Post implements BaseBatchFlow.
func (f BatchFlowFunc[State]) Post(ctx context.Context, state *State, items []Params, actions []Action) (Action, error) {
	if f.PostFunc == nil {
		return ActionDefault, nil
	}
	return f.PostFunc(ctx, state, items, actions)
}
