// Package board implements the task ordering and status-transition core:
// columns keyed by (project, status), a strict integer ordering within each
// column, and atomic moves between them.
package board

import "fmt"

// Status identifies a board column.
type Status string

const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in_progress"
	StatusReview     Status = "review"
	StatusDone       Status = "done"
)

// AllStatuses lists the columns in board order.
var AllStatuses = []Status{StatusTodo, StatusInProgress, StatusReview, StatusDone}

// Valid reports whether s is a recognized column.
func (s Status) Valid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusReview, StatusDone:
		return true
	}
	return false
}

// Terminal reports whether s is the terminal column. Transitions into it are
// audited as task_completed rather than task_moved.
func (s Status) Terminal() bool {
	return s == StatusDone
}

// ParseStatus converts a raw string into a Status.
func ParseStatus(raw string) (Status, error) {
	s := Status(raw)
	if !s.Valid() {
		return "", fmt.Errorf("board: status %q is not a column: %w", raw, ErrValidation)
	}
	return s, nil
}
