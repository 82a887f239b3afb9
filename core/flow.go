package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// FlowOption configures a Flow.
type FlowOption func(*flowConfig)

type flowConfig struct {
	logger zerolog.Logger
}

// WithLogger sets the logger used for run and transition events.
// Nodes reach it through zerolog.Ctx(ctx).
func WithLogger(logger zerolog.Logger) FlowOption {
	return func(c *flowConfig) {
		c.logger = logger
	}
}

// Flow represents a workflow subgraph that implements Workflow.
//
// A flow walks from its start vertex, routing on each returned action, until
// a vertex has no successor for the action it returned. There is no cycle
// guard: a graph whose actions never reach a dead end runs until its context
// is cancelled.
type Flow[State any] struct {
	Edges[State]
	name      string
	startNode Workflow[State]
	prep      func(ctx context.Context, state *State) error
	post      func(ctx context.Context, state *State, last Action) (Action, error)
	logger    zerolog.Logger
}

// NewFlow creates a flow starting at startNode and validates every vertex
// reachable from it. Build the graph before calling NewFlow.
func NewFlow[State any](name string, startNode Workflow[State], opts ...FlowOption) (*Flow[State], error) {
	if startNode == nil {
		return nil, fmt.Errorf("flow %q: %w", name, ErrNoStartNode)
	}
	cfg := flowConfig{logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := validateGraph(startNode); err != nil {
		return nil, fmt.Errorf("flow %q: %w", name, err)
	}
	return &Flow[State]{
		Edges:     newEdges[State](name),
		name:      name,
		startNode: startNode,
		logger:    cfg.logger,
	}, nil
}

// validateGraph walks every vertex reachable from start once.
func validateGraph[State any](start Workflow[State]) error {
	seen := map[Workflow[State]]bool{start: true}
	queue := []Workflow[State]{start}
	var errs []error
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		if err := current.Validate(); err != nil {
			errs = append(errs, err)
		}
		for _, next := range current.Successors() {
			if !seen[next] {
				seen[next] = true
				queue = append(queue, next)
			}
		}
	}
	return errors.Join(errs...)
}

// Name implements Workflow.
func (f *Flow[State]) Name() string {
	return f.name
}

// Start returns the start vertex.
func (f *Flow[State]) Start() Workflow[State] {
	return f.startNode
}

// OnPrep registers a hook that runs before the graph walk.
func (f *Flow[State]) OnPrep(fn func(ctx context.Context, state *State) error) *Flow[State] {
	f.prep = fn
	return f
}

// OnPost registers a hook that runs after the graph walk. It receives the last
// action of the walk and returns the action this flow reports to its parent.
func (f *Flow[State]) OnPost(fn func(ctx context.Context, state *State, last Action) (Action, error)) *Flow[State] {
	f.post = fn
	return f
}

// Run implements the Workflow interface - executes the flow and returns an action.
// The returned action is the one emitted by the last vertex, unless an OnPost hook replaces it.
func (f *Flow[State]) Run(ctx context.Context, state *State) (action Action, err error) {
	ctx, runID, root := ensureRunID(ctx)
	log := f.logger.With().Str("flow", f.name).Str("run_id", runID).Logger()
	if root || zerolog.Ctx(ctx).GetLevel() == zerolog.Disabled {
		ctx = log.WithContext(ctx)
	}

	ctx, span := startFlowSpan(ctx, f.name, runID)
	started := time.Now()
	defer func() { endSpan(span, err) }()

	log.Debug().Msg("flow run starting")

	if f.prep != nil {
		if err := f.prep(ctx, state); err != nil {
			return "", &NodeError{Node: f.name, Phase: PhasePrep, Err: err}
		}
	}

	last, steps, err := f.orchestrate(ctx, state, log)
	if err != nil {
		log.Error().
			Err(err).
			Int("steps", steps).
			Dur("elapsed", time.Since(started)).
			Msg("flow run failed")
		return "", err
	}

	if f.post != nil {
		out, err := f.post(ctx, state, last)
		if err != nil {
			return "", &NodeError{Node: f.name, Phase: PhasePost, Err: err}
		}
		last = normalize(out)
	}

	log.Debug().
		Str("action", string(last)).
		Int("steps", steps).
		Dur("elapsed", time.Since(started)).
		Msg("flow run completed")
	return last, nil
}

func (f *Flow[State]) orchestrate(ctx context.Context, state *State, log zerolog.Logger) (Action, int, error) {
	current := f.startNode
	last := ActionDefault
	steps := 0

	for current != nil {
		if err := ctx.Err(); err != nil {
			return "", steps, fmt.Errorf("flow %q cancelled before %q: %w", f.name, current.Name(), err)
		}

		action, err := current.Run(ctx, state)
		steps++
		if err != nil {
			return "", steps, err
		}
		last = action

		next := current.GetSuccessor(action)
		if next == nil {
			if len(current.Successors()) > 0 {
				log.Debug().
					Str("node", current.Name()).
					Str("action", string(action)).
					Msg("flow ends: no transition for action")
			}
			break
		}
		log.Debug().
			Str("from", current.Name()).
			Str("action", string(action)).
			Str("to", next.Name()).
			Msg("transition")
		current = next
	}
	return last, steps, nil
}
