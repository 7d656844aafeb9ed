package api

import (
	"context"
	"net/http"

	"github.com/taskboard/taskboard/client/internal/types"
)

// CreateTimeEntry records hours against a project and optionally a task.
func (g *Gateway) CreateTimeEntry(ctx context.Context, req types.CreateTimeEntryRequest) (*types.TimeEntry, error) {
	if err := types.ValidateCreateTimeEntry(req); err != nil {
		return nil, err
	}
	var te types.TimeEntry
	r := g.authed(ctx, "").SetBody(req)
	if err := g.send(r, http.MethodPost, "/time_entries/time-entries", "create time entry", "", &te); err != nil {
		return nil, err
	}
	return &te, nil
}
