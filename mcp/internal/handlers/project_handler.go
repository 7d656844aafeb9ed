package handlers

import (
	"context"
	"time"

	"github.com/go-openapi/strfmt"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog/log"

	"github.com/taskboard/taskboard/client"
)

// ProjectHandler exposes projects and their boards.
type ProjectHandler struct {
	client *client.Client
}

// NewProjectHandler creates a new project handler instance.
func NewProjectHandler(c *client.Client) *ProjectHandler { return &ProjectHandler{client: c} }

// RegisterTools registers the project and board tools.
func (ph *ProjectHandler) RegisterTools(s *server.MCPServer) error {
	list := mcp.NewTool("list_projects",
		mcp.WithDescription("List the projects visible to the signed-in user (projectId & name)"),
	)
	create := mcp.NewTool("create_project",
		mcp.WithDescription("Create a project owned by the signed-in user; admins and managers only"),
		mcp.WithString("name", mcp.Required(), mcp.Description("Project name")),
	)
	board := mcp.NewTool("get_board",
		mcp.WithDescription("Return a project's tasks grouped into todo, ongoing and complete columns"),
		mcp.WithNumber("project_id", mcp.Required(), mcp.Description("Project ID")),
	)
	createTask := mcp.NewTool("create_task",
		mcp.WithDescription("Add a task to a project; it starts in the todo column. Project owners and admins only"),
		mcp.WithNumber("project_id", mcp.Required(), mcp.Description("Project ID")),
		mcp.WithString("title", mcp.Required(), mcp.Description("Task title")),
		mcp.WithString("description", mcp.Description("Optional description")),
		mcp.WithString("priority", mcp.Description("Optional priority: low, medium or high")),
		mcp.WithString("due_at", mcp.Description("Optional due date-time, RFC 3339")),
	)
	s.AddTool(list, ph.handleListProjects)
	s.AddTool(create, ph.handleCreateProject)
	s.AddTool(board, ph.handleGetBoard)
	s.AddTool(createTask, ph.handleCreateTask)
	return nil
}

func (ph *ProjectHandler) handleListProjects(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	start := time.Now()
	projects, err := ph.client.Projects(ctx)
	if err != nil {
		return failure("list_projects", err)
	}
	log.Debug().Int("count", len(projects)).Dur("elapsed", time.Since(start)).Msg("list_projects completed")
	return jsonResult(projects)
}

func (ph *ProjectHandler) handleCreateProject(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError("name parameter is required"), nil
	}
	if denied := refuse(ph.client, client.CanCreateProject); denied != nil {
		return denied, nil
	}
	p, err := ph.client.CreateProject(ctx, name)
	if err != nil {
		return failure("create_project", err)
	}
	return jsonResult(p)
}

type column struct {
	Status client.TaskStatus `json:"status"`
	Count  int               `json:"count"`
	Tasks  []client.Task     `json:"tasks"`
}

func (ph *ProjectHandler) handleGetBoard(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projectID, err := idArg(req, "project_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	log.Debug().Int64("project_id", projectID).Msg("get_board invoked")

	board, err := ph.client.Board(ctx, projectID)
	if err != nil {
		return failure("get_board", err)
	}
	cols := make([]column, len(board.Columns))
	for i, c := range board.Columns {
		tasks := c.Tasks
		if tasks == nil {
			tasks = []client.Task{}
		}
		cols[i] = column{Status: c.Status, Count: c.Count(), Tasks: tasks}
	}
	out := map[string]any{"projectId": projectID, "columns": cols}
	if len(board.Unplaced) > 0 {
		out["unplaced"] = board.Unplaced
	}
	return jsonResult(out)
}

func (ph *ProjectHandler) handleCreateTask(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projectID, err := idArg(req, "project_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError("title parameter is required"), nil
	}
	in := client.CreateTaskRequest{
		Title:       title,
		Description: optString(req, "description"),
		Priority:    client.Priority(optString(req, "priority")),
	}
	if due := optString(req, "due_at"); due != "" {
		dt, err := strfmt.ParseDateTime(due)
		if err != nil {
			return mcp.NewToolResultError("due_at must be an RFC 3339 date-time"), nil
		}
		in.DueAt = &dt
	}
	if denied := refuse(ph.client, client.CanCreateTask); denied != nil {
		return denied, nil
	}

	start := time.Now()
	t, err := ph.client.CreateTask(ctx, projectID, in)
	if err != nil {
		return failure("create_task", err)
	}
	log.Debug().Int64("project_id", projectID).Int64("task_id", t.TaskID).Dur("elapsed", time.Since(start)).Msg("create_task completed")
	return jsonResult(t)
}
