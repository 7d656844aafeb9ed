package types

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-openapi/strfmt"
)

// ------------------------------
// Enumerations
// ------------------------------

// Role is the server-assigned role of a user.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleUser    Role = "user"
)

// TaskStatus is the workflow state of a task.
type TaskStatus string

const (
	StatusTodo     TaskStatus = "todo"
	StatusOngoing  TaskStatus = "ongoing"
	StatusComplete TaskStatus = "complete"
)

// Priority is an optional task priority. The empty value means unset.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Billing marks a time entry as billable or not.
type Billing string

const (
	Billable    Billing = "billable"
	NonBillable Billing = "non_billable"
)

// ------------------------------
// Core Domain Entities
// ------------------------------

// Identity is the resolved profile of the signed-in user.
type Identity struct {
	UserID   int64           `json:"userId"`
	Email    string          `json:"email"`
	Name     string          `json:"name"`
	Role     Role            `json:"role"`
	JoinedAt strfmt.DateTime `json:"joinedAt"`
}

// Project represents a project
type Project struct {
	ProjectID int64  `json:"projectId"`
	Name      string `json:"name"`
}

// Task represents a task on a project board
type Task struct {
	TaskID      int64            `json:"taskId"`
	ProjectID   int64            `json:"projectId"`
	Title       string           `json:"title"`
	Description string           `json:"description,omitempty"`
	Status      TaskStatus       `json:"status"`
	Priority    Priority         `json:"priority,omitempty"`
	DueAt       *strfmt.DateTime `json:"dueAt,omitempty"`
	Assets      []string         `json:"assets,omitempty"`
	CreatedBy   int64            `json:"createdBy"`
	CreatedAt   strfmt.DateTime  `json:"createdAt"`
}

// TaskLogEntry is one append-only audit record of a task.
type TaskLogEntry struct {
	ID        int64           `json:"id"`
	TaskID    int64           `json:"taskId"`
	UserID    int64           `json:"userId"`
	Log       string          `json:"log"`
	CreatedAt strfmt.DateTime `json:"createdAt"`
}

// TimeEntry is a logged block of work against a project.
type TimeEntry struct {
	TimeEntryID int64           `json:"timeEntryId"`
	UserID      int64           `json:"userId"`
	ProjectID   int64           `json:"projectId"`
	TaskID      *int64          `json:"taskId,omitempty"`
	Hours       Hours           `json:"hours"`
	Billable    Billing         `json:"billable"`
	WorkDate    strfmt.Date     `json:"workDate"`
	Note        string          `json:"note,omitempty"`
	CreatedAt   strfmt.DateTime `json:"createdAt"`
}

// Hours is a decimal hour count. The backend serialises decimals either as a
// JSON number or as a string, so both forms decode.
type Hours float64

// UnmarshalJSON accepts 1.5, "1.5" and null.
func (h *Hours) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		*h = 0
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var raw string
		if err := json.Unmarshal(b, &raw); err != nil {
			return err
		}
		s = strings.TrimSpace(raw)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("hours: %w", err)
	}
	*h = Hours(f)
	return nil
}
