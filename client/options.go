package client

// This file defines functional options that configure the Client during
// construction. Keeping them in a standalone file avoids cluttering
// client.go and makes it easy to discover all available knobs at a glance.

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/taskboard/taskboard/client/internal/session"
	"github.com/taskboard/taskboard/client/internal/shardqueue"
)

// Option configures a Client during construction in New.
//
// Options are applied in order; transport options wrap whatever http.Client
// is configured at that point, so pass WithHTTPClient first.
type Option func(*Client) error

// WithHTTPTimeout sets the underlying http.Client Timeout used by the SDK.
//
// This is the only timeout the SDK imposes: a hung request keeps its cache
// key loading until the transport gives up. The value must be greater than
// zero.
func WithHTTPTimeout(d time.Duration) Option {
	return func(c *Client) error {
		if d <= 0 {
			return fmt.Errorf("http timeout must be > 0")
		}
		c.http.Timeout = d
		return nil
	}
}

// WithHTTPClient replaces the http.Client used for every request.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) error {
		if hc == nil {
			return errors.New("http client cannot be nil")
		}
		c.http = hc
		return nil
	}
}

// WithDebugLogging wraps the client's transport so each request/response is
// logged when enabled is true. Authorization headers are redacted.
//
// Do not enable this option in production environments as it increases
// verbosity and includes request and response bodies in logs.
func WithDebugLogging(enabled bool) Option {
	return func(c *Client) error {
		if enabled {
			if _, already := c.http.Transport.(*debugTransport); already {
				return nil
			}
			base := c.http.Transport
			if base == nil {
				base = http.DefaultTransport
			}
			c.http.Transport = &debugTransport{base: base}
		}
		return nil
	}
}

// WithTokenStore sets where the bearer token is persisted. The default keeps
// it in memory only.
func WithTokenStore(s TokenStore) Option {
	return func(c *Client) error {
		if s == nil {
			return errors.New("token store cannot be nil")
		}
		c.store = s
		return nil
	}
}

// WithLogger sets the logger the SDK components derive theirs from.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) error {
		c.logger = l
		return nil
	}
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) Option {
	return func(c *Client) error {
		if ua == "" {
			return errors.New("user agent cannot be empty")
		}
		c.agent = ua
		return nil
	}
}

// WithRetry sets how many times a failed fetch is retried before the error
// is recorded on its cache entry. Client errors other than 408 and 429 are
// never retried.
func WithRetry(retries int) Option {
	return func(c *Client) error {
		if retries < 0 {
			return fmt.Errorf("retries must be >= 0")
		}
		c.retries = retries
		return nil
	}
}

// WithExecutorConfig tunes the shard executor that runs cache fetches.
// MaxAttempts is derived from WithRetry.
func WithExecutorConfig(cfg ExecutorConfig) Option {
	return func(c *Client) error {
		c.execCfg = &cfg
		return nil
	}
}

// compile-time checks
var (
	_ TokenStore = (*session.MemoryStore)(nil)
	_ executor   = (*shardqueue.ShardExecutor)(nil)
)
