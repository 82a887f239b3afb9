package core

import "context"

// BaseNode defines the core interface for all nodes in the workflow
// This follows the three-phase execution model: Prep -> Exec -> Post
type BaseNode[State any, PrepResult any, ExecResult any] interface {
	// Prep reads what the node needs from the shared state
	Prep(ctx context.Context, state *State) (PrepResult, error)

	// Exec performs the unit of work. It never sees the shared state and may be retried.
	Exec(ctx context.Context, prepResult PrepResult) (ExecResult, error)

	// Post writes results back to the shared state and determines the next action
	Post(ctx context.Context, state *State, prepResult PrepResult, execResult ExecResult) (Action, error)
}

// Fallback is implemented by nodes that substitute a value once Exec has
// exhausted its retries. Nodes without it propagate the last error and abort the run.
// Returning an error from ExecFallback escalates to a hard failure.
type Fallback[PrepResult any, ExecResult any] interface {
	ExecFallback(ctx context.Context, prepResult PrepResult, err error, attempts int) (ExecResult, error)
}

// BaseBatchNode is the batch form of BaseNode: Prep yields the work items,
// Exec runs once per item and Post receives every result in input order.
type BaseBatchNode[State any, PrepResult any, ExecResult any] interface {
	Prep(ctx context.Context, state *State) ([]PrepResult, error)
	Exec(ctx context.Context, item PrepResult) (ExecResult, error)
	Post(ctx context.Context, state *State, items []PrepResult, execResults []ExecResult) (Action, error)
}

// BaseBatchFlow drives a sub-flow once per Params set.
type BaseBatchFlow[State any] interface {
	Prep(ctx context.Context, state *State) ([]Params, error)
	Post(ctx context.Context, state *State, items []Params, actions []Action) (Action, error)
}

// Workflow represents a unit of execution that can be connected to other workflows
// This interface is implemented by both Node and Flow to enable composition
type Workflow[State any] interface {
	// Name identifies the vertex in logs, traces and errors
	Name() string

	// Run executes the workflow logic and returns an action for routing
	Run(ctx context.Context, state *State) (Action, error)

	// GetSuccessor returns the successor workflow for a given action
	GetSuccessor(action Action) Workflow[State]

	// AddSuccessor connects a successor workflow for a specific action
	AddSuccessor(successor Workflow[State], action ...Action) Workflow[State]

	// Successors returns the registered transitions of this vertex
	Successors() map[Action]Workflow[State]

	// Validate reports transitions that were rejected while building the graph
	Validate() error
}
