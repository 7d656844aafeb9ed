// Package devserver is an in-memory implementation of the task service API
// for local development and end-to-end tests. It enforces the service's
// permission rules; it is not meant for production data.
package devserver

import (
	"context"
	"crypto/rand"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(l zerolog.Logger) Option { return func(s *Server) { s.logger = l } }

// WithClock overrides time.Now for timestamps and token expiry.
func WithClock(now func() time.Time) Option { return func(s *Server) { s.now = now } }

// WithTokenTTL sets how long issued tokens stay valid.
func WithTokenTTL(d time.Duration) Option { return func(s *Server) { s.ttl = d } }

// WithSigningKey fixes the token signing key, so tokens survive restarts.
func WithSigningKey(key []byte) Option { return func(s *Server) { s.key = key } }

// Server serves the task service API from memory.
type Server struct {
	logger zerolog.Logger
	now    func() time.Time
	ttl    time.Duration
	key    []byte

	store  *store
	tokens signer
	router *mux.Router
}

// New returns a Server with no users.
func New(opts ...Option) *Server {
	s := &Server{
		logger: log.With().Str("component", "devserver").Logger(),
		now:    time.Now,
		ttl:    24 * time.Hour,
	}
	for _, opt := range opts {
		opt(s)
	}
	if len(s.key) == 0 {
		s.key = make([]byte, 32)
		_, _ = rand.Read(s.key)
	}
	s.store = newStore(s.now)
	s.tokens = signer{key: s.key, ttl: s.ttl, now: s.now}
	s.router = s.routes()
	return s
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware(s.logger))

	r.HandleFunc("/auth/login", s.login).Methods(http.MethodPost)
	r.HandleFunc("/auth/register", s.register).Methods(http.MethodPost)

	r.HandleFunc("/users", s.authed(s.listUsers)).Methods(http.MethodGet)

	r.HandleFunc("/projects", s.authed(s.listProjects)).Methods(http.MethodGet)
	r.HandleFunc("/projects", s.authed(s.createProject)).Methods(http.MethodPost)
	r.HandleFunc("/projects/{projectId:[0-9]+}/tasks", s.authed(s.listTasks)).Methods(http.MethodGet)
	r.HandleFunc("/projects/{projectId:[0-9]+}/tasks", s.authed(s.createTask)).Methods(http.MethodPost)

	r.HandleFunc("/tasks/{taskId:[0-9]+}/status", s.authed(s.updateStatus)).Methods(http.MethodPatch)
	r.HandleFunc("/tasks/{taskId:[0-9]+}/logs", s.authed(s.taskLogs)).Methods(http.MethodGet)
	r.HandleFunc("/tasks/{taskId:[0-9]+}/assignees/{userId:[0-9]+}", s.authed(s.assign)).Methods(http.MethodPost)
	r.HandleFunc("/tasks/{taskId:[0-9]+}/assignees/{userId:[0-9]+}", s.authed(s.unassign)).Methods(http.MethodDelete)

	r.HandleFunc("/time_entries/time-entries", s.authed(s.createTimeEntry)).Methods(http.MethodPost)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeDetail(w, http.StatusNotFound, "Not Found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeDetail(w, http.StatusMethodNotAllowed, "Method Not Allowed")
	})
	return r
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.router.ServeHTTP(w, r) }

// AddUser creates an account directly, bypassing the API. It returns the new
// user id.
func (s *Server) AddUser(email, name, password, role string) (int64, error) {
	u, err := s.store.addUser(email, name, password, role)
	return u.UserID, err
}

// IssueToken returns a valid token for userID.
func (s *Server) IssueToken(userID int64) string { return s.tokens.issue(userID) }

// Seed creates one account per role, all with password "password".
func (s *Server) Seed() error {
	for _, u := range []struct{ email, name, role string }{
		{"admin@example.com", "Admin", roleAdmin},
		{"manager@example.com", "Manager", roleManager},
		{"user@example.com", "User", roleUser},
	} {
		if _, err := s.AddUser(u.email, u.name, "password", u.role); err != nil {
			return err
		}
	}
	return nil
}

// ListenAndServe serves on addr until ctx ends.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	s.logger.Info().Str("addr", addr).Msg("dev server listening")

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
