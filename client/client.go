package client

import (
	"context"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/taskboard/taskboard/client/internal/api"
	"github.com/taskboard/taskboard/client/internal/cache"
	"github.com/taskboard/taskboard/client/internal/session"
	"github.com/taskboard/taskboard/client/internal/shardqueue"
)

// --------------------------------------------------------------------
// Client core
// --------------------------------------------------------------------

// Client is the task service SDK: one session, one shared cache of server
// collections, and the mutations that keep the two consistent. A Client is
// safe for concurrent use; construct one per application.
type Client struct {
	baseURL string
	http    *http.Client
	exec    executor
	execCfg *shardqueue.Config
	retries int // fetch retries after the first attempt
	store   session.TokenStore
	logger  zerolog.Logger
	agent   string

	gw    *api.Gateway
	sess  *session.Service
	cache *cache.Cache

	tokenMu   sync.Mutex
	lastToken string // token the cache contents belong to

	closedOnce uint32 // ensures Close is idempotent
}

// New constructs a Client for the service at baseURL. The session starts in
// the loading state; call Restore (or Login) before reading data.
func New(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		panic("baseURL cannot be empty")
	}

	c := &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
		retries: 2,
		logger:  log.Logger,
	}

	// Auto-enable debug via env variable without changing code.
	if debugLoggingRequested() {
		opts = append(opts, WithDebugLogging(true))
	}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			panic(err)
		}
	}
	if c.store == nil {
		c.store = session.NewMemoryStore()
	}
	if c.exec == nil {
		c.exec = c.newExecutor()
	}

	gwOpts := []api.Option{api.WithLogger(c.logger.With().Str("component", "api").Logger())}
	if c.agent != "" {
		gwOpts = append(gwOpts, api.WithUserAgent(c.agent))
	}
	c.gw = api.New(baseURL, c.http, c.currentToken, gwOpts...)
	c.sess = session.New(c.store, c.gw,
		session.WithLogger(c.logger.With().Str("component", "session").Logger()))
	c.cache = cache.New(c.fetch, c.exec,
		cache.WithLogger(c.logger.With().Str("component", "cache").Logger()))

	// Cached collections belong to one token; drop them whenever it changes.
	c.sess.Subscribe(c.onSession)
	return c
}

// newExecutor constructs the shardqueue executor that runs cache fetches.
// Unless WithExecutorConfig was given, tunables come from SQ_* variables.
func (c *Client) newExecutor() *shardqueue.ShardExecutor {
	var cfg shardqueue.Config
	if c.execCfg != nil {
		cfg = *c.execCfg
	} else if loaded, err := shardqueue.LoadConfig(); err == nil {
		cfg = loaded
	} else {
		c.logger.Warn().Err(err).Msg("ignoring invalid SQ_ executor settings")
		cfg = shardqueue.Config{Shards: 4, QueueSize: 128}
	}
	cfg.MaxAttempts = c.retries + 1
	prev := cfg.ErrorHandler
	cfg.ErrorHandler = func(key string, err error) {
		fetchFailuresTotal.Inc()
		if prev != nil {
			prev(key, err)
		}
	}
	return shardqueue.NewShardExecutor(cfg)
}

func (c *Client) currentToken() string {
	if c.sess == nil {
		return ""
	}
	return c.sess.Token()
}

func (c *Client) onSession(s SessionSnapshot) {
	sessionTransitionsTotal.WithLabelValues(s.Status.String()).Inc()
	c.tokenMu.Lock()
	changed := s.Token != c.lastToken
	c.lastToken = s.Token
	c.tokenMu.Unlock()
	if changed && c.cache != nil {
		c.cache.Clear()
	}
}

// BaseURL returns the service root.
func (c *Client) BaseURL() string { return c.baseURL }

// Close stops the background executor and cache, and closes the token
// store when it is an io.Closer. Safe to call multiple times.
func (c *Client) Close() error {
	if !atomic.CompareAndSwapUint32(&c.closedOnce, 0, 1) {
		return nil
	}
	c.cache.Close()
	if c.exec != nil {
		c.exec.Stop()
	}
	if cl, ok := c.store.(io.Closer); ok {
		return cl.Close()
	}
	return nil
}

// --------------------------------------------------------------------
// Session operations
// --------------------------------------------------------------------

// Restore resumes the persisted session, if any. An invalid persisted token
// is cleared and the session becomes anonymous with a nil error; only store
// failures and cancellation are reported.
func (c *Client) Restore(ctx context.Context) (SessionSnapshot, error) {
	snap, err := c.sess.Restore(ctx)
	if isQuietSessionError(err) {
		return snap, nil
	}
	return snap, err
}

// Login exchanges credentials for a token and resolves the identity behind it.
func (c *Client) Login(ctx context.Context, email, password string) (SessionSnapshot, error) {
	tok, err := c.gw.Login(ctx, email, password)
	if err != nil {
		return c.sess.Snapshot(), err
	}
	return c.sess.Login(ctx, tok.AccessToken)
}

// LoginWithToken adopts an existing bearer token.
func (c *Client) LoginWithToken(ctx context.Context, tok string) (SessionSnapshot, error) {
	return c.sess.Login(ctx, tok)
}

// Logout ends the session locally and drops every cached collection.
func (c *Client) Logout() error {
	return c.sess.Logout()
}

// Session returns the current session snapshot.
func (c *Client) Session() SessionSnapshot { return c.sess.Snapshot() }

// Capabilities returns what the signed-in role may do. The check is advisory;
// the service enforces the real rules.
func (c *Client) Capabilities() CapabilitySet { return c.sess.Capabilities() }

// OnSessionChange registers fn for every session transition; fn receives the
// current snapshot immediately. fn must not call session operations.
func (c *Client) OnSessionChange(fn func(SessionSnapshot)) (cancel func()) {
	return c.sess.Subscribe(fn)
}

// --------------------------------------------------------------------
// Cache access
// --------------------------------------------------------------------

// Entry returns what is known about key without waiting, starting a fetch
// when the key has never been fetched or is stale.
func (c *Client) Entry(key string) CacheEntry { return c.cache.Read(key) }

// Revalidate forces a fetch of key unless one is already in flight.
func (c *Client) Revalidate(key string) CacheEntry {
	return c.cache.Read(key, cache.WithRevalidate())
}

// Invalidate marks key stale; watched keys re-fetch immediately.
func (c *Client) Invalidate(key string) { c.cache.Invalidate(key) }

// Watch registers fn for every state transition of key and makes sure a
// fetch has been started. fn runs on its own goroutine.
func (c *Client) Watch(key string, fn func(CacheEntry)) (cancel func()) {
	cancel = c.cache.Subscribe(key, fn)
	c.cache.Read(key)
	return cancel
}

func (c *Client) invalidate(keys ...string) {
	for _, k := range keys {
		c.cache.Invalidate(k)
	}
}
