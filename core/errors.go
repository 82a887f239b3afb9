package core

import (
	"errors"
	"fmt"
)

var (
	// ErrNoStartNode is returned when a flow is built without a start vertex.
	ErrNoStartNode = errors.New("flow has no start node")

	// ErrDuplicateTransition is reported when an action is connected twice on the same vertex.
	ErrDuplicateTransition = errors.New("duplicate transition")

	// ErrNilSuccessor is reported when a nil workflow is connected.
	ErrNilSuccessor = errors.New("nil successor")
)

// Phase names a step of the node lifecycle.
type Phase string

const (
	PhasePrep Phase = "prep"
	PhaseExec Phase = "exec"
	PhasePost Phase = "post"
)

// NodeError reports a failure inside a node together with the phase it
// happened in and, for Exec, how many attempts were made.
type NodeError struct {
	Node     string
	Phase    Phase
	Attempts int
	Err      error
}

// Error implements the error interface.
func (e *NodeError) Error() string {
	if e.Phase == PhaseExec {
		return fmt.Sprintf("node %q %s failed after %d attempt(s): %v", e.Node, e.Phase, e.Attempts, e.Err)
	}
	return fmt.Sprintf("node %q %s failed: %v", e.Node, e.Phase, e.Err)
}

// Unwrap returns the underlying error.
func (e *NodeError) Unwrap() error {
	return e.Err
}
