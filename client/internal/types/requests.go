package types

import "github.com/go-openapi/strfmt"

// ------------------------------
// Request Types
// ------------------------------

// CreateProjectRequest holds parameters for a new project
type CreateProjectRequest struct {
	Name string `json:"name"`
}

// CreateTaskRequest holds parameters for a new task. Status is always
// assigned by the server (todo).
type CreateTaskRequest struct {
	Title       string           `json:"title"`
	Description string           `json:"description,omitempty"`
	Priority    Priority         `json:"priority,omitempty"`
	DueAt       *strfmt.DateTime `json:"dueAt,omitempty"`
	Assets      []string         `json:"assets,omitempty"`
}

// CreateTimeEntryRequest holds parameters for a new time entry
type CreateTimeEntryRequest struct {
	ProjectID int64       `json:"projectId"`
	TaskID    *int64      `json:"taskId,omitempty"`
	Hours     float64     `json:"hours"`
	Billable  Billing     `json:"billable"`
	WorkDate  strfmt.Date `json:"workDate"`
	Note      string      `json:"note,omitempty"`
}

// RegisterRequest holds parameters for a new account
type RegisterRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
	Role     Role   `json:"role"`
}
