package api

import (
	"context"
	"net/http"

	"github.com/taskboard/taskboard/client/internal/types"
)

// Login exchanges credentials for a bearer token. The request is
// form-encoded and never carries an Authorization header.
func (g *Gateway) Login(ctx context.Context, username, password string) (*types.AuthToken, error) {
	r := g.rc.R().SetContext(ctx).SetFormData(map[string]string{
		"username": username,
		"password": password,
	})
	var tok types.AuthToken
	if err := g.send(r, http.MethodPost, "/auth/login", "login", "Login failed", &tok); err != nil {
		return nil, err
	}
	return &tok, nil
}

// Register creates an account and returns its bearer token.
func (g *Gateway) Register(ctx context.Context, req types.RegisterRequest) (*types.AuthToken, error) {
	var tok types.AuthToken
	r := g.authed(ctx, "").SetBody(req)
	if err := g.send(r, http.MethodPost, "/auth/register", "register", "Registration failed", &tok); err != nil {
		return nil, err
	}
	return &tok, nil
}
