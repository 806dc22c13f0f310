package task

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel kinds for configuration errors. They describe a broken build
// graph rather than a failing task and always propagate out of a run.
var (
	ErrNoSuchTask          = errors.New("no such task")
	ErrCircularDependency  = errors.New("circular task dependency")
	ErrNoSuchDirectory     = errors.New("no such directory")
	ErrDuplicateTask       = errors.New("duplicate task")
	ErrSkip                = errors.New("task skipped")
	errInvalidTaskName     = errors.New("invalid task name")
	errNilTask             = errors.New("nil task")
	configurationErrorKind = []error{ErrNoSuchTask, ErrCircularDependency, ErrNoSuchDirectory}
)

// NoSuchTaskError is returned when a name does not resolve in the registry.
type NoSuchTaskError struct {
	Name string
	// Referrer is the task whose dependency list named Name, if any.
	Referrer string
}

func (e *NoSuchTaskError) Error() string {
	if e.Referrer != "" {
		return fmt.Sprintf("%s: %q (required by %q)", ErrNoSuchTask, e.Name, e.Referrer)
	}
	return fmt.Sprintf("%s: %q", ErrNoSuchTask, e.Name)
}

func (e *NoSuchTaskError) Unwrap() error { return ErrNoSuchTask }

// CircularDependencyError carries the cycle that was found, starting and
// ending with the same task.
type CircularDependencyError struct {
	Path []string
}

func (e *CircularDependencyError) Error() string {
	return fmt.Sprintf("%s: %s", ErrCircularDependency, strings.Join(e.Path, " -> "))
}

func (e *CircularDependencyError) Unwrap() error { return ErrCircularDependency }

// NoSuchDirectoryError is raised when a task tries to enter a directory that
// does not exist.
type NoSuchDirectoryError struct {
	Task string
	Dir  string
	Err  error
}

func (e *NoSuchDirectoryError) Error() string {
	return fmt.Sprintf("%s: task %q cannot enter %q: %v", ErrNoSuchDirectory, e.Task, e.Dir, e.Err)
}

func (e *NoSuchDirectoryError) Unwrap() []error { return []error{ErrNoSuchDirectory, e.Err} }

// IsConfigurationError reports whether err describes an invalid build graph.
func IsConfigurationError(err error) bool {
	for _, kind := range configurationErrorKind {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}

// skipError is the error produced by Skip.
type skipError struct {
	reason string
}

func (e *skipError) Error() string { return fmt.Sprintf("%s: %s", ErrSkip, e.reason) }

func (e *skipError) Unwrap() error { return ErrSkip }

// Skip returns an error signalling that the task decided not to run.
func Skip(reason string) error {
	return &skipError{reason: reason}
}

// IsSkip reports whether err is a skip signal.
func IsSkip(err error) bool {
	return errors.Is(err, ErrSkip)
}
