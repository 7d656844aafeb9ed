// Package handlers exposes the taskboard SDK as MCP tools.
package handlers

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/rs/zerolog/log"

	"github.com/taskboard/taskboard/client"
)

// jsonResult marshals v as the tool's text result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(b)), nil
}

// failure reports err to the caller as a tool error, not a protocol error.
func failure(tool string, err error) (*mcp.CallToolResult, error) {
	log.Error().Err(err).Str("tool", tool).Msg("tool failed")
	return mcp.NewToolResultError(fmt.Sprintf("%s failed: %s", tool, client.UserMessage(err))), nil
}

// idArg reads a positive integer argument. JSON numbers arrive as float64;
// numeric strings are accepted too.
func idArg(req mcp.CallToolRequest, name string) (int64, error) {
	switch v := req.GetArguments()[name].(type) {
	case float64:
		if v >= 1 && v == float64(int64(v)) {
			return int64(v), nil
		}
	case string:
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n >= 1 {
			return n, nil
		}
	case nil:
		return 0, fmt.Errorf("%s parameter is required", name)
	}
	return 0, fmt.Errorf("%s must be a positive integer", name)
}

func optString(req mcp.CallToolRequest, name string) string {
	s, _ := req.GetArguments()[name].(string)
	return s
}

// refuse returns a tool error when the signed-in role lacks capability.
func refuse(c *client.Client, capability client.Capability) *mcp.CallToolResult {
	snap := c.Session()
	if !snap.Authenticated() {
		return mcp.NewToolResultError("not signed in; call login first")
	}
	if c.Capabilities().Has(capability) {
		return nil
	}
	return mcp.NewToolResultError(fmt.Sprintf("role %s may not %s", snap.Identity.Role, capability))
}
