package types

import (
	"errors"
	"fmt"
	"strings"
)

// ErrValidation marks input rejected before any request is sent.
var ErrValidation = errors.New("validation failed")

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleUser:
		return true
	}
	return false
}

// Valid reports whether s is a known task status.
func (s TaskStatus) Valid() bool {
	switch s {
	case StatusTodo, StatusOngoing, StatusComplete:
		return true
	}
	return false
}

// Valid reports whether p is unset or a known priority.
func (p Priority) Valid() bool {
	switch p {
	case "", PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Valid reports whether b is a known billing marker.
func (b Billing) Valid() bool {
	return b == Billable || b == NonBillable
}

// ParseTaskStatus converts user input into a TaskStatus.
func ParseTaskStatus(s string) (TaskStatus, error) {
	st := TaskStatus(strings.ToLower(strings.TrimSpace(s)))
	if !st.Valid() {
		return "", invalid("unknown status %q (want todo, ongoing or complete)", s)
	}
	return st, nil
}

// ParseRole converts user input into a Role.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", invalid("unknown role %q (want admin, manager or user)", s)
	}
	return r, nil
}

// ValidateCreateProject checks the fields a project form requires.
func ValidateCreateProject(req CreateProjectRequest) error {
	if strings.TrimSpace(req.Name) == "" {
		return invalid("project name is required")
	}
	return nil
}

// ValidateCreateTask checks the fields a task form requires.
func ValidateCreateTask(req CreateTaskRequest) error {
	if strings.TrimSpace(req.Title) == "" {
		return invalid("task title is required")
	}
	if !req.Priority.Valid() {
		return invalid("unknown priority %q", req.Priority)
	}
	return nil
}

// ValidateCreateTimeEntry checks the fields a time entry form requires.
func ValidateCreateTimeEntry(req CreateTimeEntryRequest) error {
	if req.ProjectID <= 0 {
		return invalid("project is required")
	}
	if req.Hours <= 0 {
		return invalid("hours must be greater than zero")
	}
	if !req.Billable.Valid() {
		return invalid("billable must be %q or %q", Billable, NonBillable)
	}
	return nil
}
