package handlers

import (
	"context"
	"time"

	"github.com/go-openapi/strfmt"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/taskboard/taskboard/client"
)

// TeamHandler exposes the roster and time tracking.
type TeamHandler struct {
	client *client.Client
	now    func() time.Time
}

// NewTeamHandler creates a new team handler instance.
func NewTeamHandler(c *client.Client) *TeamHandler { return &TeamHandler{client: c, now: time.Now} }

// RegisterTools registers list_users and log_time.
func (th *TeamHandler) RegisterTools(s *server.MCPServer) error {
	users := mcp.NewTool("list_users",
		mcp.WithDescription("List the team roster; admins and managers only"),
	)
	logTime := mcp.NewTool("log_time",
		mcp.WithDescription("Record hours worked on a project; at most 8 hours per day"),
		mcp.WithNumber("project_id", mcp.Required(), mcp.Description("Project ID")),
		mcp.WithNumber("hours", mcp.Required(), mcp.Description("Hours worked, e.g. 1.5")),
		mcp.WithNumber("task_id", mcp.Description("Optional task ID")),
		mcp.WithString("work_date", mcp.Description("Work date YYYY-MM-DD (default today)")),
		mcp.WithBoolean("billable", mcp.Description("Whether the hours are billable (default true)")),
		mcp.WithString("note", mcp.Description("Optional note")),
	)
	s.AddTool(users, th.handleListUsers)
	s.AddTool(logTime, th.handleLogTime)
	return nil
}

func (th *TeamHandler) handleListUsers(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if denied := refuse(th.client, client.CanViewTeamRoster); denied != nil {
		return denied, nil
	}
	users, err := th.client.Users(ctx)
	if err != nil {
		return failure("list_users", err)
	}
	return jsonResult(users)
}

func (th *TeamHandler) handleLogTime(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projectID, err := idArg(req, "project_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	hours, ok := req.GetArguments()["hours"].(float64)
	if !ok || hours <= 0 {
		return mcp.NewToolResultError("hours must be a positive number"), nil
	}
	in := client.CreateTimeEntryRequest{
		ProjectID: projectID,
		Hours:     hours,
		Billable:  client.Billable,
		WorkDate:  strfmt.Date(th.now()),
		Note:      optString(req, "note"),
	}
	if b, ok := req.GetArguments()["billable"].(bool); ok && !b {
		in.Billable = client.NonBillable
	}
	if _, ok := req.GetArguments()["task_id"]; ok {
		taskID, err := idArg(req, "task_id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		in.TaskID = &taskID
	}
	if d := optString(req, "work_date"); d != "" {
		day, err := time.Parse(time.DateOnly, d)
		if err != nil {
			return mcp.NewToolResultError("work_date must be YYYY-MM-DD"), nil
		}
		in.WorkDate = strfmt.Date(day)
	}

	te, err := th.client.CreateTimeEntry(ctx, in)
	if err != nil {
		return failure("log_time", err)
	}
	return jsonResult(te)
}
