package api

import (
	"context"
	"net/http"

	"github.com/taskboard/taskboard/client/internal/types"
)

// ListUsers returns the team roster.
func (g *Gateway) ListUsers(ctx context.Context) ([]types.Identity, error) {
	return g.ListUsersWithToken(ctx, "")
}

// ListUsersWithToken is ListUsers authenticated with tok instead of the
// token source. Session resolution uses it for a token not yet current.
func (g *Gateway) ListUsersWithToken(ctx context.Context, tok string) ([]types.Identity, error) {
	var users []types.Identity
	if err := g.send(g.authed(ctx, tok), http.MethodGet, "/users", "list users", "", &users); err != nil {
		return nil, err
	}
	return users, nil
}
