package core

import (
	"errors"
	"fmt"
)

// Edges holds the outgoing transitions of one vertex. Node, BatchNode, Flow and
// BatchFlow embed it to satisfy the routing half of Workflow.
type Edges[State any] struct {
	owner      string
	successors map[Action]Workflow[State]
	errs       []error
}

func newEdges[State any](owner string) Edges[State] {
	return Edges[State]{
		owner:      owner,
		successors: make(map[Action]Workflow[State]),
	}
}

// AddSuccessor adds successor based on action. With no action the default
// transition is registered. The successor is returned so calls can be chained.
// Rejected registrations surface when the enclosing flow is built.
func (e *Edges[State]) AddSuccessor(successor Workflow[State], action ...Action) Workflow[State] {
	act := ActionDefault
	if len(action) > 0 {
		act = normalize(action[0])
	}
	if successor == nil {
		e.errs = append(e.errs, fmt.Errorf("%w: %s --%s-->", ErrNilSuccessor, e.owner, act))
		return successor
	}
	if e.successors == nil {
		e.successors = make(map[Action]Workflow[State])
	}
	if existing, ok := e.successors[act]; ok {
		e.errs = append(e.errs, fmt.Errorf("%w: %s --%s--> already targets %s",
			ErrDuplicateTransition, e.owner, act, existing.Name()))
		return successor
	}
	e.successors[act] = successor
	return successor
}

// GetSuccessor gets the next Workflow as per action.
func (e *Edges[State]) GetSuccessor(action Action) Workflow[State] {
	return e.successors[normalize(action)]
}

// Successors returns a copy of the transition table.
func (e *Edges[State]) Successors() map[Action]Workflow[State] {
	out := make(map[Action]Workflow[State], len(e.successors))
	for k, v := range e.successors {
		out[k] = v
	}
	return out
}

// Validate returns every rejected registration joined into one error.
func (e *Edges[State]) Validate() error {
	return errors.Join(e.errs...)
}
