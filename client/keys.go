package client

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// Cache keys are the request paths of the collections they hold.

// ProjectsKey is the key of the caller's project list.
func ProjectsKey() string { return "/projects" }

// TasksKey is the key of a project's task list.
func TasksKey(projectID int64) string { return fmt.Sprintf("/projects/%d/tasks", projectID) }

// TaskLogsKey is the key of a task's audit trail.
func TaskLogsKey(taskID int64) string { return fmt.Sprintf("/tasks/%d/logs", taskID) }

// UsersKey is the key of the team roster.
func UsersKey() string { return "/users" }

// fetch loads the collection behind key. It is the cache's only way to the
// network.
func (c *Client) fetch(ctx context.Context, key string) (any, error) {
	if c.sess.Token() == "" {
		return nil, notAuthenticated()
	}
	parts := strings.Split(strings.Trim(key, "/"), "/")
	switch {
	case key == ProjectsKey():
		return c.gw.ListProjects(ctx)
	case key == UsersKey():
		return c.gw.ListUsers(ctx)
	case len(parts) == 3 && parts[0] == "projects" && parts[2] == "tasks":
		id, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil {
			break
		}
		return c.gw.ListProjectTasks(ctx, id)
	case len(parts) == 3 && parts[0] == "tasks" && parts[2] == "logs":
		id, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil {
			break
		}
		return c.gw.TaskLogs(ctx, id)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownKey, key)
}
