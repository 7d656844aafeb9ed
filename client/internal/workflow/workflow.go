// Package workflow holds the task status state machine and the board
// projection derived from it.
package workflow

import (
	"errors"
	"fmt"

	"github.com/taskboard/taskboard/client/internal/types"
)

// ErrTerminal is returned when advancing a task that has no next status.
var ErrTerminal = errors.New("task status is terminal")

// Initial is the status the server assigns to every new task.
const Initial = types.StatusTodo

// Order is the column order of the board and the direction of Next.
var Order = []types.TaskStatus{types.StatusTodo, types.StatusOngoing, types.StatusComplete}

// Next returns the status an advance moves to. ok is false for complete and
// for unknown statuses.
func Next(s types.TaskStatus) (next types.TaskStatus, ok bool) {
	switch s {
	case types.StatusTodo:
		return types.StatusOngoing, true
	case types.StatusOngoing:
		return types.StatusComplete, true
	default:
		return "", false
	}
}

// Advance is Next with an error for terminal or unknown statuses.
func Advance(s types.TaskStatus) (types.TaskStatus, error) {
	if !s.Valid() {
		return "", fmt.Errorf("advance: unknown status %q", s)
	}
	next, ok := Next(s)
	if !ok {
		return "", fmt.Errorf("advance %s: %w", s, ErrTerminal)
	}
	return next, nil
}

// IsTerminal reports whether no advance exists from s.
func IsTerminal(s types.TaskStatus) bool {
	_, ok := Next(s)
	return s.Valid() && !ok
}
