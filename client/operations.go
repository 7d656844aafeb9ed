package client

import (
	"context"
	"time"

	"github.com/taskboard/taskboard/client/internal/cache"
	"github.com/taskboard/taskboard/client/internal/types"
	"github.com/taskboard/taskboard/client/internal/workflow"
)

// --------------------------------------------------------------------
// Reads - served from the shared cache
// --------------------------------------------------------------------

// Projects returns the caller's projects, fetching them when the cached list
// is missing or stale.
func (c *Client) Projects(ctx context.Context) ([]Project, error) {
	v, _, err := cache.NewTyped[[]types.Project](c.cache, ProjectsKey()).Await(ctx)
	return v, err
}

// ProjectsEntry is the non-blocking view of the project list.
func (c *Client) ProjectsEntry() CacheEntry { return c.cache.Read(ProjectsKey()) }

// Tasks returns every task of a project.
func (c *Client) Tasks(ctx context.Context, projectID int64) ([]Task, error) {
	v, _, err := cache.NewTyped[[]types.Task](c.cache, TasksKey(projectID)).Await(ctx)
	return v, err
}

// Board returns a project's tasks bucketed by status.
func (c *Client) Board(ctx context.Context, projectID int64) (Board, error) {
	tasks, err := c.Tasks(ctx, projectID)
	if err != nil {
		return Board{}, err
	}
	return workflow.Project(tasks), nil
}

// TaskLogs returns a task's audit trail.
func (c *Client) TaskLogs(ctx context.Context, taskID int64) ([]TaskLogEntry, error) {
	v, _, err := cache.NewTyped[[]types.TaskLogEntry](c.cache, TaskLogsKey(taskID)).Await(ctx)
	return v, err
}

// Users returns the team roster. Roles without CanViewTeamRoster get a 403.
func (c *Client) Users(ctx context.Context) ([]Identity, error) {
	v, _, err := cache.NewTyped[[]types.Identity](c.cache, UsersKey()).Await(ctx)
	return v, err
}

// --------------------------------------------------------------------
// Mutations - write through, then invalidate affected keys
// --------------------------------------------------------------------

// CreateProject creates a project and invalidates the project list.
func (c *Client) CreateProject(ctx context.Context, name string) (*Project, error) {
	if err := c.requireSession(); err != nil {
		return nil, err
	}
	start := time.Now()
	p, err := c.gw.CreateProject(ctx, types.CreateProjectRequest{Name: name})
	observe("create_project", start, err)
	if err != nil {
		return nil, err
	}
	c.invalidate(ProjectsKey())
	return p, nil
}

// CreateTask adds a task to a project and invalidates that project's task
// list. New tasks start in the todo column.
func (c *Client) CreateTask(ctx context.Context, projectID int64, req CreateTaskRequest) (*Task, error) {
	if err := c.requireSession(); err != nil {
		return nil, err
	}
	start := time.Now()
	t, err := c.gw.CreateTask(ctx, projectID, req)
	observe("create_task", start, err)
	if err != nil {
		return nil, err
	}
	c.invalidate(TasksKey(projectID))
	return t, nil
}

// AdvanceTask moves a task one step along todo → ongoing → complete and
// returns its new status. Completed tasks yield ErrTerminalStatus.
func (c *Client) AdvanceTask(ctx context.Context, projectID, taskID int64) (TaskStatus, error) {
	if err := c.requireSession(); err != nil {
		return "", err
	}
	tasks, err := c.Tasks(ctx, projectID)
	if err != nil {
		return "", err
	}
	board := workflow.Project(tasks)
	task, ok := board.Find(taskID)
	if !ok {
		return "", ErrTaskNotFound
	}
	next, err := workflow.Advance(task.Status)
	if err != nil {
		return "", err
	}
	if err := c.changeStatus(ctx, projectID, taskID, task.Status, next); err != nil {
		return "", err
	}
	return next, nil
}

// SetTaskStatus sets any status directly, including backwards. It is not
// constrained by the advance order.
func (c *Client) SetTaskStatus(ctx context.Context, projectID, taskID int64, status TaskStatus) error {
	if err := c.requireSession(); err != nil {
		return err
	}
	var from TaskStatus
	if e := c.cache.Peek(TasksKey(projectID)); e.HasData {
		if tasks, ok := cache.Value[[]types.Task](e); ok {
			if t, found := workflow.Project(tasks).Find(taskID); found {
				from = t.Status
			}
		}
	}
	return c.changeStatus(ctx, projectID, taskID, from, status)
}

// changeStatus issues the status change. Failures are always returned as
// *StatusChangeError; success invalidates the task list and audit trail.
func (c *Client) changeStatus(ctx context.Context, projectID, taskID int64, from, to TaskStatus) error {
	start := time.Now()
	_, err := c.gw.UpdateTaskStatus(ctx, taskID, to)
	observe("set_task_status", start, err)
	if err != nil {
		c.logger.Warn().Err(err).Int64("task_id", taskID).Str("to", string(to)).Msg("status change rejected")
		return &StatusChangeError{TaskID: taskID, From: from, To: to, Err: err}
	}
	c.invalidate(TasksKey(projectID), TaskLogsKey(taskID))
	return nil
}

// CreateTimeEntry records hours worked. No cached collection holds time
// entries, so nothing is invalidated.
func (c *Client) CreateTimeEntry(ctx context.Context, req CreateTimeEntryRequest) (*TimeEntry, error) {
	if err := c.requireSession(); err != nil {
		return nil, err
	}
	start := time.Now()
	te, err := c.gw.CreateTimeEntry(ctx, req)
	observe("create_time_entry", start, err)
	return te, err
}

// Register creates an account. The current session is unchanged; the
// returned token belongs to the new user.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*AuthToken, error) {
	if req.Role == "" {
		req.Role = types.RoleUser
	}
	role, err := types.ParseRole(string(req.Role))
	if err != nil {
		return nil, err
	}
	req.Role = role
	start := time.Now()
	tok, err := c.gw.Register(ctx, req)
	observe("register", start, err)
	if err != nil {
		return nil, err
	}
	c.invalidate(UsersKey())
	return tok, nil
}

// AssignUser adds a user to a task's assignees.
func (c *Client) AssignUser(ctx context.Context, taskID, userID int64) error {
	return c.assignee(ctx, "assign_user", taskID, userID, true)
}

// UnassignUser removes a user from a task's assignees.
func (c *Client) UnassignUser(ctx context.Context, taskID, userID int64) error {
	return c.assignee(ctx, "unassign_user", taskID, userID, false)
}

func (c *Client) assignee(ctx context.Context, op string, taskID, userID int64, add bool) error {
	if err := c.requireSession(); err != nil {
		return err
	}
	start := time.Now()
	var err error
	if add {
		_, err = c.gw.AssignUser(ctx, taskID, userID)
	} else {
		_, err = c.gw.UnassignUser(ctx, taskID, userID)
	}
	observe(op, start, err)
	if err != nil {
		return err
	}
	c.invalidate(TaskLogsKey(taskID))
	return nil
}

func (c *Client) requireSession() error {
	if c.sess.Token() == "" {
		return ErrNotAuthenticated
	}
	return nil
}
