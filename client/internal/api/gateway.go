// Package api is the request/response boundary with the task service. Every
// call carries the current bearer token except login, and every non-2xx
// response comes back as *errors.APIError.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	sdkerrors "github.com/taskboard/taskboard/client/internal/errors"
)

// TokenSource returns the bearer token to attach, or "" for none.
type TokenSource func() string

// Option configures a Gateway.
type Option func(*Gateway)

// WithLogger sets the logger used for request diagnostics.
func WithLogger(l zerolog.Logger) Option { return func(g *Gateway) { g.logger = l } }

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option { return func(g *Gateway) { g.rc.SetHeader("User-Agent", ua) } }

// Gateway issues the HTTP calls of the task service API.
type Gateway struct {
	rc     *resty.Client
	token  TokenSource
	logger zerolog.Logger
}

// New returns a Gateway for baseURL that sends requests through hc.
func New(baseURL string, hc *http.Client, token TokenSource, opts ...Option) *Gateway {
	if hc == nil {
		hc = &http.Client{}
	}
	if token == nil {
		token = func() string { return "" }
	}
	g := &Gateway{token: token, logger: log.With().Str("component", "api").Logger()}
	rc := resty.NewWithClient(hc).
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", "taskboard-go-sdk").
		SetDisableWarn(true)
	g.rc = rc
	rc.OnBeforeRequest(func(_ *resty.Client, r *resty.Request) error {
		if r.Header.Get("X-Request-ID") == "" {
			r.SetHeader("X-Request-ID", uuid.NewString())
		}
		return nil
	})
	for _, opt := range opts {
		opt(g)
	}
	rc.SetLogger(restyLogger{g.logger})
	return g
}

// restyLogger routes resty's own diagnostics into zerolog.
type restyLogger struct{ l zerolog.Logger }

func (r restyLogger) Errorf(format string, v ...any) { r.l.Error().Msgf(format, v...) }
func (r restyLogger) Warnf(format string, v ...any)  { r.l.Warn().Msgf(format, v...) }
func (r restyLogger) Debugf(format string, v ...any) { r.l.Debug().Msgf(format, v...) }

// BaseURL returns the service root the gateway talks to.
func (g *Gateway) BaseURL() string { return g.rc.BaseURL }

// authed builds a request carrying tok, or the source's token when tok is "".
func (g *Gateway) authed(ctx context.Context, tok string) *resty.Request {
	if tok == "" {
		tok = g.token()
	}
	r := g.rc.R().SetContext(ctx)
	if tok != "" {
		r.SetAuthToken(tok)
	}
	return r
}

// send executes r and normalises the outcome. On success the body is
// decoded into out when out is non-nil.
func (g *Gateway) send(r *resty.Request, method, path, op, fallback string, out any) error {
	if err := r.Context().Err(); err != nil {
		return err
	}
	resp, err := r.Execute(method, path)
	if err != nil {
		if ctxErr := r.Context().Err(); ctxErr != nil {
			return ctxErr
		}
		g.logger.Debug().Err(err).Str("op", op).Msg("request failed")
		return sdkerrors.NewNetworkError(op, err)
	}
	status := resp.StatusCode()
	g.logger.Debug().
		Str("op", op).
		Str("method", method).
		Str("path", resp.Request.URL).
		Int("status", status).
		Dur("elapsed", resp.Time()).
		Msg("request completed")

	if resp.IsError() || status < 200 || status >= 300 {
		return sdkerrors.NewAPIError(status, resp.Body(), op, fallback)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return sdkerrors.NewDecodeError(op, status, err)
	}
	return nil
}
