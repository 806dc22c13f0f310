// Package resolver computes the dependency order of a task and rejects
// unknown names and cycles before anything runs.
package resolver

import (
	"errors"
	"slices"

	"github.com/specialistvlad/burstbuild/internal/task"
)

// Resolver resolves tasks against a single registry. Results are memoized,
// so a Resolver is meant to live for one run.
type Resolver struct {
	registry *task.Registry
	resolved map[string][]*task.Task
}

// New creates a resolver over the given registry.
func New(reg *task.Registry) *Resolver {
	return &Resolver{
		registry: reg,
		resolved: make(map[string][]*task.Task),
	}
}

// Resolve returns the transitive dependencies of the named task in the order
// they must run, followed by the task itself. Dependencies are visited in
// declaration order and each task appears once.
func (r *Resolver) Resolve(name string) ([]*task.Task, error) {
	if order, ok := r.resolved[name]; ok {
		return slices.Clone(order), nil
	}

	var order []*task.Task
	done := make(map[string]bool)
	onPath := make(map[string]int)
	var path []string

	var visit func(name, referrer string) error
	visit = func(name, referrer string) error {
		if done[name] {
			return nil
		}
		if start, ok := onPath[name]; ok {
			cycle := append(slices.Clone(path[start:]), name)
			return &task.CircularDependencyError{Path: cycle}
		}
		if memo, ok := r.resolved[name]; ok {
			for _, t := range memo {
				if !done[t.Name] {
					done[t.Name] = true
					order = append(order, t)
				}
			}
			return nil
		}

		t, ok := r.registry.Get(name)
		if !ok {
			return &task.NoSuchTaskError{Name: name, Referrer: referrer}
		}

		onPath[name] = len(path)
		path = append(path, name)
		for _, dep := range t.Dependencies {
			if err := visit(dep, name); err != nil {
				return err
			}
		}
		path = path[:len(path)-1]
		delete(onPath, name)

		done[name] = true
		order = append(order, t)
		return nil
	}

	if err := visit(name, ""); err != nil {
		return nil, err
	}

	r.resolved[name] = order
	return slices.Clone(order), nil
}

// Lint resolves every task in the registry and reports all distinct
// configuration errors found.
func Lint(reg *task.Registry) error {
	r := New(reg)
	seen := make(map[string]struct{})
	var errs []error
	for _, name := range reg.Names() {
		if _, err := r.Resolve(name); err != nil {
			if _, dup := seen[err.Error()]; dup {
				continue
			}
			seen[err.Error()] = struct{}{}
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
