package api

import (
	"context"
	"net/http"

	"github.com/taskboard/taskboard/client/internal/types"
)

// ListProjects returns the projects visible to the caller.
func (g *Gateway) ListProjects(ctx context.Context) ([]types.Project, error) {
	var projects []types.Project
	if err := g.send(g.authed(ctx, ""), http.MethodGet, "/projects", "list projects", "", &projects); err != nil {
		return nil, err
	}
	return projects, nil
}

// CreateProject creates a project owned by the caller.
func (g *Gateway) CreateProject(ctx context.Context, req types.CreateProjectRequest) (*types.Project, error) {
	if err := types.ValidateCreateProject(req); err != nil {
		return nil, err
	}
	var p types.Project
	r := g.authed(ctx, "").SetBody(req)
	if err := g.send(r, http.MethodPost, "/projects", "create project", "", &p); err != nil {
		return nil, err
	}
	return &p, nil
}
