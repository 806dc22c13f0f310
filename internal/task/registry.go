package task

import (
	"fmt"
	"strings"
)

// Registry holds the tasks of one build definition keyed by name. It keeps
// declaration order so listings are stable. The engine only reads from it.
type Registry struct {
	tasks map[string]*Task
	order []string
}

// NewRegistry creates a registry from the given tasks. Names must be
// non-empty and unique.
func NewRegistry(tasks ...*Task) (*Registry, error) {
	r := &Registry{tasks: make(map[string]*Task, len(tasks))}
	for _, t := range tasks {
		if err := r.Add(t); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// MustRegistry is like NewRegistry but panics on error. It is meant for
// statically declared task sets and tests.
func MustRegistry(tasks ...*Task) *Registry {
	r, err := NewRegistry(tasks...)
	if err != nil {
		panic(err)
	}
	return r
}

// Add registers a task. Dependencies are not checked here; they are
// resolved lazily when a run starts.
func (r *Registry) Add(t *Task) error {
	if t == nil {
		return errNilTask
	}
	if strings.TrimSpace(t.Name) == "" || t.Name == NullTask.Name {
		return fmt.Errorf("%w: %q", errInvalidTaskName, t.Name)
	}
	if _, exists := r.tasks[t.Name]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateTask, t.Name)
	}
	r.tasks[t.Name] = t
	r.order = append(r.order, t.Name)
	return nil
}

// Get looks up a task by name.
func (r *Registry) Get(name string) (*Task, bool) {
	t, ok := r.tasks[name]
	return t, ok
}

// Names returns every task name in declaration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Len returns the number of registered tasks.
func (r *Registry) Len() int {
	return len(r.order)
}
