package handlers

import (
	"context"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog/log"

	"github.com/taskboard/taskboard/client"
)

// TaskHandler exposes task status changes, audit logs and assignees.
type TaskHandler struct {
	client *client.Client
}

// NewTaskHandler creates a new task handler instance.
func NewTaskHandler(c *client.Client) *TaskHandler { return &TaskHandler{client: c} }

// RegisterTools registers the task tools.
func (th *TaskHandler) RegisterTools(s *server.MCPServer) error {
	advance := mcp.NewTool("advance_task",
		mcp.WithDescription("Move a task one column forward: todo → ongoing → complete"),
		mcp.WithNumber("project_id", mcp.Required(), mcp.Description("Project ID")),
		mcp.WithNumber("task_id", mcp.Required(), mcp.Description("Task ID")),
	)
	setStatus := mcp.NewTool("set_task_status",
		mcp.WithDescription("Set a task's status directly, including moving it backwards"),
		mcp.WithNumber("project_id", mcp.Required(), mcp.Description("Project ID")),
		mcp.WithNumber("task_id", mcp.Required(), mcp.Description("Task ID")),
		mcp.WithString("status", mcp.Required(), mcp.Description("todo, ongoing or complete")),
	)
	logs := mcp.NewTool("task_logs",
		mcp.WithDescription("Return a task's audit trail; admins and assignees only"),
		mcp.WithNumber("task_id", mcp.Required(), mcp.Description("Task ID")),
	)
	assign := mcp.NewTool("assign_user",
		mcp.WithDescription("Add a user to a task's assignees"),
		mcp.WithNumber("task_id", mcp.Required(), mcp.Description("Task ID")),
		mcp.WithNumber("user_id", mcp.Required(), mcp.Description("User ID")),
	)
	unassign := mcp.NewTool("unassign_user",
		mcp.WithDescription("Remove a user from a task's assignees"),
		mcp.WithNumber("task_id", mcp.Required(), mcp.Description("Task ID")),
		mcp.WithNumber("user_id", mcp.Required(), mcp.Description("User ID")),
	)
	s.AddTool(advance, th.handleAdvance)
	s.AddTool(setStatus, th.handleSetStatus)
	s.AddTool(logs, th.handleTaskLogs)
	s.AddTool(assign, th.assignee("assign_user", true))
	s.AddTool(unassign, th.assignee("unassign_user", false))
	return nil
}

func (th *TaskHandler) handleAdvance(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projectID, err := idArg(req, "project_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	taskID, err := idArg(req, "task_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	next, err := th.client.AdvanceTask(ctx, projectID, taskID)
	if errors.Is(err, client.ErrTerminalStatus) {
		return mcp.NewToolResultError(fmt.Sprintf("task %d is already complete", taskID)), nil
	}
	if err != nil {
		return failure("advance_task", err)
	}
	log.Debug().Int64("task_id", taskID).Str("status", string(next)).Msg("advance_task completed")
	return jsonResult(map[string]any{"taskId": taskID, "status": next})
}

func (th *TaskHandler) handleSetStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projectID, err := idArg(req, "project_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	taskID, err := idArg(req, "task_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	raw, err := req.RequireString("status")
	if err != nil {
		return mcp.NewToolResultError("status parameter is required"), nil
	}
	status, err := client.ParseTaskStatus(raw)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if err := th.client.SetTaskStatus(ctx, projectID, taskID, status); err != nil {
		return failure("set_task_status", err)
	}
	return jsonResult(map[string]any{"taskId": taskID, "status": status})
}

func (th *TaskHandler) handleTaskLogs(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	taskID, err := idArg(req, "task_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	logs, err := th.client.TaskLogs(ctx, taskID)
	if err != nil {
		return failure("task_logs", err)
	}
	return jsonResult(logs)
}

func (th *TaskHandler) assignee(tool string, add bool) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		taskID, err := idArg(req, "task_id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		userID, err := idArg(req, "user_id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if add {
			err = th.client.AssignUser(ctx, taskID, userID)
		} else {
			err = th.client.UnassignUser(ctx, taskID, userID)
		}
		if err != nil {
			return failure(tool, err)
		}
		return jsonResult(map[string]any{"taskId": taskID, "userId": userID, "assigned": add})
	}
}
