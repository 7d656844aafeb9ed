package devserver

import "github.com/go-openapi/strfmt"

// Wire shapes of the service. Field names follow the service's camelCase
// JSON.

type user struct {
	UserID   int64           `json:"userId"`
	Email    string          `json:"email"`
	Name     string          `json:"name"`
	Role     string          `json:"role"`
	JoinedAt strfmt.DateTime `json:"joinedAt"`

	passwordHash []byte
}

type project struct {
	ProjectID int64  `json:"projectId"`
	Name      string `json:"name"`
}

type task struct {
	TaskID      int64            `json:"taskId"`
	ProjectID   int64            `json:"projectId"`
	Title       string           `json:"title"`
	Description string           `json:"description,omitempty"`
	Status      string           `json:"status"`
	Priority    string           `json:"priority,omitempty"`
	DueAt       *strfmt.DateTime `json:"dueAt,omitempty"`
	Assets      []string         `json:"assets,omitempty"`
	CreatedBy   int64            `json:"createdBy"`
	CreatedAt   strfmt.DateTime  `json:"createdAt"`
}

type taskLog struct {
	ID        int64           `json:"id"`
	TaskID    int64           `json:"taskId"`
	UserID    int64           `json:"userId"`
	Log       string          `json:"log"`
	CreatedAt strfmt.DateTime `json:"createdAt"`
}

type timeEntry struct {
	TimeEntryID int64           `json:"timeEntryId"`
	UserID      int64           `json:"userId"`
	ProjectID   int64           `json:"projectId"`
	TaskID      *int64          `json:"taskId,omitempty"`
	Hours       string          `json:"hours"` // decimals travel as strings
	Billable    string          `json:"billable"`
	WorkDate    strfmt.Date     `json:"workDate"`
	Note        string          `json:"note,omitempty"`
	CreatedAt   strfmt.DateTime `json:"createdAt"`

	hours float64
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type message struct {
	Message string `json:"message"`
}

const (
	roleAdmin   = "admin"
	roleManager = "manager"
	roleUser    = "user"

	statusTodo     = "todo"
	statusOngoing  = "ongoing"
	statusComplete = "complete"

	dailyHourLimit = 8.0
)

func validRole(r string) bool { return r == roleAdmin || r == roleManager || r == roleUser }

func validStatus(s string) bool {
	return s == statusTodo || s == statusOngoing || s == statusComplete
}

func validPriority(p string) bool {
	return p == "" || p == "low" || p == "medium" || p == "high"
}
