package config

import (
	"errors"
	"fmt"
	"strings"
)

// Model is the unified, format-agnostic representation of a build file.
type Model struct {
	Tasks []*Task
}

// Task is the format-agnostic representation of a `task` block.
type Task struct {
	Name          string
	Description   string
	DependsOn     []string
	Calls         []string
	Commands      []string
	Dir           string
	Env           map[string]string
	FailIfSkipped bool
	Before        []*Directive
	After         []*Directive
	// Source is where the task was declared, for diagnostics.
	Source string
}

// Directive is a before/after hook. Exactly one of its conditions or Run is
// normally set; when several are, the skip conditions are checked first.
type Directive struct {
	Name             string
	Run              string
	SkipUnlessExists string
	SkipIfEnv        string
}

// Merge appends the tasks of other to m, keeping declaration order.
func (m *Model) Merge(other *Model) {
	if other == nil {
		return
	}
	m.Tasks = append(m.Tasks, other.Tasks...)
}

// Task returns the task with the given name.
func (m *Model) Task(name string) (*Task, bool) {
	for _, t := range m.Tasks {
		if t.Name == name {
			return t, true
		}
	}
	return nil, false
}

// Validate reports structural problems that do not depend on the task graph:
// missing or duplicate names and directives that do nothing.
func (m *Model) Validate() error {
	var errs []error
	seen := make(map[string]string)
	for _, t := range m.Tasks {
		if strings.TrimSpace(t.Name) == "" {
			errs = append(errs, fmt.Errorf("%s: task without a name", t.Source))
			continue
		}
		if prev, dup := seen[t.Name]; dup {
			errs = append(errs, fmt.Errorf("%s: task %q already declared at %s", t.Source, t.Name, prev))
			continue
		}
		seen[t.Name] = t.Source
		for _, d := range append(append([]*Directive{}, t.Before...), t.After...) {
			if d.Run == "" && d.SkipUnlessExists == "" && d.SkipIfEnv == "" {
				errs = append(errs, fmt.Errorf("%s: directive %q of task %q is empty", t.Source, d.Name, t.Name))
			}
		}
	}
	return errors.Join(errs...)
}
