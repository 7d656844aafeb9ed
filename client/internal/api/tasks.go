package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/taskboard/taskboard/client/internal/types"
)

func id(n int64) string { return strconv.FormatInt(n, 10) }

// ListProjectTasks returns every task of a project.
func (g *Gateway) ListProjectTasks(ctx context.Context, projectID int64) ([]types.Task, error) {
	var tasks []types.Task
	r := g.authed(ctx, "").SetPathParam("projectId", id(projectID))
	if err := g.send(r, http.MethodGet, "/projects/{projectId}/tasks", "list tasks", "", &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// CreateTask adds a task to a project. The server assigns the initial status.
func (g *Gateway) CreateTask(ctx context.Context, projectID int64, req types.CreateTaskRequest) (*types.Task, error) {
	if err := types.ValidateCreateTask(req); err != nil {
		return nil, err
	}
	var t types.Task
	r := g.authed(ctx, "").SetPathParam("projectId", id(projectID)).SetBody(req)
	if err := g.send(r, http.MethodPost, "/projects/{projectId}/tasks", "create task", "", &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// UpdateTaskStatus requests a new status for a task. The service answers
// with either the updated task or a bare acknowledgement; in the latter case
// the returned task is nil.
func (g *Gateway) UpdateTaskStatus(ctx context.Context, taskID int64, status types.TaskStatus) (*types.Task, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", types.ErrValidation, status)
	}
	var raw json.RawMessage
	r := g.authed(ctx, "").
		SetPathParam("taskId", id(taskID)).
		SetQueryParam("status", string(status))
	if err := g.send(r, http.MethodPatch, "/tasks/{taskId}/status", "update task status", "", &raw); err != nil {
		return nil, err
	}
	var probe struct {
		TaskID *int64 `json:"taskId"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil || probe.TaskID == nil {
		return nil, nil
	}
	var t types.Task
	if err := json.Unmarshal(raw, &t); err != nil {
		return nil, nil
	}
	return &t, nil
}

// TaskLogs returns the audit trail of a task, oldest first.
func (g *Gateway) TaskLogs(ctx context.Context, taskID int64) ([]types.TaskLogEntry, error) {
	var logs []types.TaskLogEntry
	r := g.authed(ctx, "").SetPathParam("taskId", id(taskID))
	if err := g.send(r, http.MethodGet, "/tasks/{taskId}/logs", "task logs", "", &logs); err != nil {
		return nil, err
	}
	return logs, nil
}

// AssignUser adds userID to the task's assignees.
func (g *Gateway) AssignUser(ctx context.Context, taskID, userID int64) (*types.MessageResponse, error) {
	return g.assignee(ctx, http.MethodPost, "assign user", taskID, userID)
}

// UnassignUser removes userID from the task's assignees.
func (g *Gateway) UnassignUser(ctx context.Context, taskID, userID int64) (*types.MessageResponse, error) {
	return g.assignee(ctx, http.MethodDelete, "unassign user", taskID, userID)
}

func (g *Gateway) assignee(ctx context.Context, method, op string, taskID, userID int64) (*types.MessageResponse, error) {
	var msg types.MessageResponse
	r := g.authed(ctx, "").
		SetPathParam("taskId", id(taskID)).
		SetPathParam("userId", id(userID))
	if err := g.send(r, method, "/tasks/{taskId}/assignees/{userId}", op, "", &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
