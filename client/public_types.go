package client

import (
	"github.com/taskboard/taskboard/client/internal/cache"
	"github.com/taskboard/taskboard/client/internal/policy"
	"github.com/taskboard/taskboard/client/internal/session"
	"github.com/taskboard/taskboard/client/internal/shardqueue"
	"github.com/taskboard/taskboard/client/internal/types"
	"github.com/taskboard/taskboard/client/internal/workflow"
)

// Public type aliases so SDK consumers can import only the client package.
// Requests
type (
	CreateProjectRequest   = types.CreateProjectRequest
	CreateTaskRequest      = types.CreateTaskRequest
	CreateTimeEntryRequest = types.CreateTimeEntryRequest
	RegisterRequest        = types.RegisterRequest

	// Domain entities
	Identity     = types.Identity
	Project      = types.Project
	Task         = types.Task
	TaskLogEntry = types.TaskLogEntry
	TimeEntry    = types.TimeEntry
	Role         = types.Role
	TaskStatus   = types.TaskStatus
	Priority     = types.Priority
	Billing      = types.Billing
	Hours        = types.Hours

	// Responses
	AuthToken       = types.AuthToken
	MessageResponse = types.MessageResponse

	// Session, cache and board views
	SessionSnapshot = session.Snapshot
	SessionStatus   = session.Status
	TokenStore      = session.TokenStore
	CacheEntry      = cache.Entry
	CacheState      = cache.State
	Board           = workflow.Board
	Column          = workflow.Column
	Capability      = policy.Capability
	CapabilitySet   = policy.Set
	ExecutorConfig  = shardqueue.Config
)

const (
	RoleAdmin   = types.RoleAdmin
	RoleManager = types.RoleManager
	RoleUser    = types.RoleUser

	StatusTodo     = types.StatusTodo
	StatusOngoing  = types.StatusOngoing
	StatusComplete = types.StatusComplete

	PriorityLow    = types.PriorityLow
	PriorityMedium = types.PriorityMedium
	PriorityHigh   = types.PriorityHigh

	Billable    = types.Billable
	NonBillable = types.NonBillable

	SessionLoading       = session.StatusLoading
	SessionAuthenticated = session.StatusAuthenticated
	SessionAnonymous     = session.StatusAnonymous

	CanViewTeamRoster = policy.CanViewTeamRoster
	CanCreateProject  = policy.CanCreateProject
	CanCreateTask     = policy.CanCreateTask
)

// CapabilitiesFor returns the capabilities of role.
func CapabilitiesFor(role Role) CapabilitySet { return policy.Capabilities(role) }

// NextStatus returns the status AdvanceTask would move s to; ok is false for
// the terminal status.
func NextStatus(s TaskStatus) (next TaskStatus, ok bool) { return workflow.Next(s) }

// ParseTaskStatus converts user input into a TaskStatus.
func ParseTaskStatus(s string) (TaskStatus, error) { return types.ParseTaskStatus(s) }

// ParseRole converts user input into a Role.
func ParseRole(s string) (Role, error) { return types.ParseRole(s) }

// Token stores.
var (
	NewMemoryStore  = session.NewMemoryStore
	NewFileStore    = session.NewFileStore
	OpenSQLiteStore = session.OpenSQLiteStore
	OpenTokenStore  = session.OpenStore
)
