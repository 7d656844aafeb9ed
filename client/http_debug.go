package client

import (
	"net/http"
	"net/http/httputil"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
)

// debugTransport logs every request and response for troubleshooting API
// communication.
//
// When to use:
//   - Set TASKBOARD_DEBUG=true or DEBUG=true environment variable
//   - When investigating unexpected responses or permission errors
//
// Security considerations:
//   - Bodies are logged verbatim, including login form fields
//   - The Authorization header is redacted
//
// Example usage:
//
//	export TASKBOARD_DEBUG=true
//	taskboard board 7  # logs all HTTP traffic
type debugTransport struct{ base http.RoundTripper }

func (dt *debugTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	auth := req.Header.Get("Authorization")
	if reqDump, err := httputil.DumpRequestOut(req, true); err == nil {
		log.Debug().Str("method", req.Method).Str("url", req.URL.String()).Str("request_dump", redact(string(reqDump), auth)).Msg("HTTP request")
	}

	resp, err := dt.base.RoundTrip(req)
	if err != nil {
		log.Error().Err(err).Str("method", req.Method).Str("url", req.URL.String()).Msg("HTTP request failed")
		return nil, err
	}

	if respDump, err := httputil.DumpResponse(resp, true); err == nil {
		log.Debug().Str("method", req.Method).Str("url", req.URL.String()).Int("status_code", resp.StatusCode).Str("response_dump", string(respDump)).Msg("HTTP response")
	}
	return resp, nil
}

func redact(dump, auth string) string {
	if auth == "" {
		return dump
	}
	return strings.ReplaceAll(dump, auth, "Bearer [redacted]")
}

// debugLoggingRequested checks if HTTP debug logging should be enabled:
// TASKBOARD_DEBUG=true targets the SDK, DEBUG=true is the general flag.
func debugLoggingRequested() bool {
	return os.Getenv("TASKBOARD_DEBUG") == "true" || os.Getenv("DEBUG") == "true"
}
