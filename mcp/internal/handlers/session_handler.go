package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog/log"

	"github.com/taskboard/taskboard/client"
)

// SessionHandler provides sign-in tools.
type SessionHandler struct {
	client *client.Client
}

// NewSessionHandler creates a new session handler instance.
func NewSessionHandler(c *client.Client) *SessionHandler { return &SessionHandler{client: c} }

// RegisterTools registers login, logout and whoami.
func (sh *SessionHandler) RegisterTools(s *server.MCPServer) error {
	login := mcp.NewTool("login",
		mcp.WithDescription("Sign in to the task service; the session persists across restarts"),
		mcp.WithString("email", mcp.Required(), mcp.Description("Account email")),
		mcp.WithString("password", mcp.Required(), mcp.Description("Account password")),
	)
	logout := mcp.NewTool("logout",
		mcp.WithDescription("Sign out and forget the persisted session"),
	)
	whoami := mcp.NewTool("whoami",
		mcp.WithDescription("Return the signed-in user, role and capabilities"),
	)
	s.AddTool(login, sh.handleLogin)
	s.AddTool(logout, sh.handleLogout)
	s.AddTool(whoami, sh.handleWhoami)
	return nil
}

func (sh *SessionHandler) handleLogin(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	email, err := req.RequireString("email")
	if err != nil {
		return mcp.NewToolResultError("email parameter is required"), nil
	}
	password, err := req.RequireString("password")
	if err != nil {
		return mcp.NewToolResultError("password parameter is required"), nil
	}

	log.Debug().Str("email", email).Msg("login invoked")

	start := time.Now()
	snap, err := sh.client.Login(ctx, email, password)
	elapsed := time.Since(start)
	if err != nil {
		log.Error().Err(err).Dur("elapsed", elapsed).Msg("login failed")
		return mcp.NewToolResultError(fmt.Sprintf("login failed: %s", client.UserMessage(err))), nil
	}
	if !snap.Authenticated() {
		return mcp.NewToolResultError("login failed: session could not be resolved"), nil
	}
	return sh.describe(snap)
}

func (sh *SessionHandler) handleLogout(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := sh.client.Logout(); err != nil {
		return failure("logout", err)
	}
	return mcp.NewToolResultText("signed out"), nil
}

func (sh *SessionHandler) handleWhoami(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	snap := sh.client.Session()
	if !snap.Authenticated() {
		return mcp.NewToolResultError(fmt.Sprintf("not signed in (session %s)", snap.Status)), nil
	}
	return sh.describe(snap)
}

func (sh *SessionHandler) describe(snap client.SessionSnapshot) (*mcp.CallToolResult, error) {
	caps := sh.client.Capabilities().List()
	names := make([]string, len(caps))
	for i, c := range caps {
		names[i] = c.String()
	}
	return jsonResult(map[string]any{
		"userId":       snap.Identity.UserID,
		"name":         snap.Identity.Name,
		"email":        snap.Identity.Email,
		"role":         snap.Identity.Role,
		"degraded":     snap.Degraded,
		"capabilities": names,
	})
}
