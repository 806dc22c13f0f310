package execution

import "fmt"

// State is the position of an Execution in its state machine. The set of
// states is closed; every switch over State in this module is exhaustive.
type State uint8

const (
	// Started is the initial state of every execution.
	Started State = iota
	// Dependents means the execution is running its dependencies.
	Dependents
	// Running means directives or the body are executing.
	Running
	// Calling means the body is waiting on a programmatically called task.
	Calling
	// Succeeded is terminal: the body and its directives completed.
	Succeeded
	// Failed is terminal: the body, a directive, or a called task failed.
	Failed
	// Skipped is terminal unless the task has FailIfSkipped set.
	Skipped
	// Aborted is terminal: a dependency failed so the body never ran.
	Aborted
	// Repeated is terminal: the task already ran earlier in this run.
	Repeated
)

// States lists every state in declaration order.
var States = []State{Started, Dependents, Running, Calling, Succeeded, Failed, Skipped, Aborted, Repeated}

func (s State) String() string {
	switch s {
	case Started:
		return "STARTED"
	case Dependents:
		return "DEPENDENTS"
	case Running:
		return "RUNNING"
	case Calling:
		return "CALLING"
	case Succeeded:
		return "SUCCEEDED"
	case Failed:
		return "FAILED"
	case Skipped:
		return "SKIPPED"
	case Aborted:
		return "ABORTED"
	case Repeated:
		return "REPEATED"
	default:
		return fmt.Sprintf("State(%d)", uint8(s))
	}
}

// ParseState converts the String form of a state back into a State.
func ParseState(s string) (State, error) {
	for _, st := range States {
		if st.String() == s {
			return st, nil
		}
	}
	return 0, fmt.Errorf("unknown execution state %q", s)
}

// IsTerminal reports whether no further transition is expected from s.
// Skipped counts as terminal here; an execution whose task has
// FailIfSkipped set still moves on to Failed.
func (s State) IsTerminal() bool {
	switch s {
	case Succeeded, Failed, Skipped, Aborted, Repeated:
		return true
	case Started, Dependents, Running, Calling:
		return false
	default:
		return false
	}
}

// allowed reports whether from -> to is an edge of the state machine.
func allowed(from, to State, failIfSkipped bool) bool {
	switch from {
	case Started:
		return to == Repeated || to == Dependents || to == Running || to == Failed
	case Dependents:
		return to == Running || to == Aborted || to == Failed
	case Running:
		return to == Succeeded || to == Skipped || to == Calling || to == Failed
	case Calling:
		return to == Running || to == Failed
	case Skipped:
		return to == Failed && failIfSkipped
	case Succeeded, Failed, Aborted, Repeated:
		return false
	default:
		return false
	}
}
