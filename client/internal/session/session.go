// Package session owns the signed-in identity of the running client. It turns
// a persisted bearer token into a typed identity, holds at most one current
// token, and discards any resolution whose token has since been replaced.
package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	sdkerrors "github.com/taskboard/taskboard/client/internal/errors"
	"github.com/taskboard/taskboard/client/internal/policy"
	"github.com/taskboard/taskboard/client/internal/token"
	"github.com/taskboard/taskboard/client/internal/types"
)

var (
	// ErrInvalidSession reports a token that could not be turned into an
	// identity. The token has been cleared and the session is anonymous.
	ErrInvalidSession = errors.New("invalid session")
	// ErrSuperseded reports a resolution whose token is no longer current.
	// Its result was discarded.
	ErrSuperseded = errors.New("session superseded")
)

// DegradedName is the display name of an identity built from the token alone.
const DegradedName = "User"

// ProfileFetcher lists the team roster using tok for authentication.
type ProfileFetcher interface {
	ListUsersWithToken(ctx context.Context, tok string) ([]types.Identity, error)
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger for session transitions.
func WithLogger(l zerolog.Logger) Option { return func(s *Service) { s.logger = l } }

// Service is the single owner of session state. It is safe for concurrent
// use. Observers registered with Subscribe run synchronously after each
// transition and must not call Restore, Login, ResolveIdentity or Logout.
type Service struct {
	store    TokenStore
	profiles ProfileFetcher
	logger   zerolog.Logger

	mu      sync.Mutex
	snap    Snapshot
	version uint64
	subs    map[uint64]func(Snapshot)
	nextSub uint64

	publishMu sync.Mutex
	published uint64
}

// New returns a Service in the loading state; call Restore to settle it.
func New(store TokenStore, profiles ProfileFetcher, opts ...Option) *Service {
	if store == nil {
		store = NewMemoryStore()
	}
	s := &Service{
		store:    store,
		profiles: profiles,
		logger:   log.With().Str("component", "session").Logger(),
		subs:     make(map[uint64]func(Snapshot)),
	}
	s.snap = Snapshot{Status: StatusLoading}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Snapshot returns the current state.
func (s *Service) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}

// Token returns the current bearer token, or "" when anonymous.
func (s *Service) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap.Token
}

// Capabilities returns what the current identity may do. Anything but an
// authenticated session holds no capabilities.
func (s *Service) Capabilities() policy.Set {
	snap := s.Snapshot()
	if !snap.Authenticated() {
		return policy.None
	}
	return policy.Capabilities(snap.Identity.Role)
}

// Subscribe registers fn for every state transition and immediately delivers
// the current snapshot. The returned cancel func is idempotent.
func (s *Service) Subscribe(fn func(Snapshot)) (cancel func()) {
	s.mu.Lock()
	s.nextSub++
	id := s.nextSub
	s.subs[id] = fn
	snap := s.snap
	s.mu.Unlock()

	fn(snap)
	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}
}

// Restore loads the persisted token at startup. Without one the session
// becomes anonymous at once; otherwise it is resolved. Restore only settles a
// session still in its initial loading state: once Login or Logout has run,
// it returns ErrSuperseded and leaves the session untouched.
func (s *Service) Restore(ctx context.Context) (Snapshot, error) {
	tok, err := s.store.Load(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("token store unreadable; starting anonymous")
		if !s.restoreTo(Snapshot{Status: StatusAnonymous}) {
			return s.Snapshot(), ErrSuperseded
		}
		return s.Snapshot(), fmt.Errorf("restore session: %w", err)
	}
	if tok == "" {
		if !s.restoreTo(Snapshot{Status: StatusAnonymous}) {
			return s.Snapshot(), ErrSuperseded
		}
		s.logger.Debug().Msg("no persisted token")
		return s.Snapshot(), nil
	}
	if !s.restoreTo(Snapshot{Status: StatusLoading, Token: tok}) {
		s.logger.Debug().Msg("discarding restore; session already settled")
		return s.Snapshot(), ErrSuperseded
	}
	return s.ResolveIdentity(ctx, tok)
}

// Login persists tok, makes it current and resolves it.
func (s *Service) Login(ctx context.Context, tok string) (Snapshot, error) {
	if tok == "" {
		return s.Snapshot(), fmt.Errorf("%w: empty token", ErrInvalidSession)
	}
	s.mu.Lock()
	if err := s.store.Save(ctx, tok); err != nil {
		s.mu.Unlock()
		return s.Snapshot(), fmt.Errorf("persist token: %w", err)
	}
	s.setLocked(Snapshot{Status: StatusLoading, Token: tok})
	s.mu.Unlock()
	s.publish()
	s.logger.Info().Msg("login accepted; resolving identity")
	return s.ResolveIdentity(ctx, tok)
}

// Logout clears the persisted token and makes the session anonymous without
// any network call. Resolutions still in flight are discarded on arrival.
func (s *Service) Logout() error {
	s.mu.Lock()
	err := s.store.Clear(context.Background())
	s.setLocked(Snapshot{Status: StatusAnonymous})
	s.mu.Unlock()
	s.publish()
	s.logger.Info().Msg("logged out")
	if err != nil {
		return fmt.Errorf("clear token: %w", err)
	}
	return nil
}

// ResolveIdentity turns the current token tok into an identity:
//
//   - an undecodable token, a roster without the token's subject, a 401, a
//     network failure or a malformed roster invalidate the session;
//   - any other API failure, typically 403 for low-privilege users, yields a
//     degraded identity built from the subject alone.
//
// A 401 is treated as a rejected token rather than a roster failure, so it
// invalidates instead of falling back to the degraded identity.
//
// If tok stops being current before the outcome is applied, the outcome is
// discarded and ErrSuperseded is returned. A canceled ctx leaves the session
// loading so the caller may retry.
func (s *Service) ResolveIdentity(ctx context.Context, tok string) (Snapshot, error) {
	if s.Token() != tok || tok == "" {
		return s.Snapshot(), ErrSuperseded
	}
	claims, err := token.Decode(tok)
	if err != nil {
		return s.invalidate(tok, err)
	}

	users, err := s.profiles.ListUsersWithToken(ctx, tok)
	if err != nil && ctx.Err() != nil {
		return s.Snapshot(), ctx.Err()
	}

	switch apiErr, isAPI := sdkerrors.AsAPIError(err); {
	case err == nil:
		for _, u := range users {
			if strconv.FormatInt(u.UserID, 10) == claims.Subject {
				id := u
				return s.authenticate(tok, &id, false)
			}
		}
		return s.invalidate(tok, fmt.Errorf("subject %q not in roster", claims.Subject))

	case isAPI && apiErr.Status == 401:
		return s.invalidate(tok, err)

	case isAPI:
		n, convErr := strconv.ParseInt(claims.Subject, 10, 64)
		if convErr != nil {
			return s.invalidate(tok, fmt.Errorf("subject %q is not a user id: %w", claims.Subject, convErr))
		}
		s.logger.Debug().Int("status", apiErr.Status).Int64("user_id", n).Msg("roster unavailable; using degraded identity")
		return s.authenticate(tok, degraded(n), true)

	default:
		return s.invalidate(tok, err)
	}
}

func degraded(userID int64) *types.Identity {
	return &types.Identity{UserID: userID, Email: "", Name: DegradedName, Role: types.RoleUser}
}

func (s *Service) authenticate(tok string, id *types.Identity, isDegraded bool) (Snapshot, error) {
	s.mu.Lock()
	if s.snap.Token != tok {
		snap := s.snap
		s.mu.Unlock()
		s.logger.Debug().Msg("discarding superseded resolution")
		return snap, ErrSuperseded
	}
	s.setLocked(Snapshot{Status: StatusAuthenticated, Token: tok, Identity: id, Degraded: isDegraded})
	snap := s.snap
	s.mu.Unlock()
	s.publish()
	s.logger.Info().Int64("user_id", id.UserID).Str("role", string(id.Role)).Bool("degraded", isDegraded).Msg("session authenticated")
	return snap, nil
}

func (s *Service) invalidate(tok string, cause error) (Snapshot, error) {
	s.mu.Lock()
	if s.snap.Token != tok {
		snap := s.snap
		s.mu.Unlock()
		s.logger.Debug().Msg("discarding superseded resolution")
		return snap, ErrSuperseded
	}
	clearErr := s.store.Clear(context.Background())
	s.setLocked(Snapshot{Status: StatusAnonymous})
	snap := s.snap
	s.mu.Unlock()
	s.publish()
	s.logger.Info().Err(cause).Msg("session invalid; token cleared")
	if clearErr != nil {
		s.logger.Warn().Err(clearErr).Msg("clear token")
	}
	return snap, fmt.Errorf("%w: %w", ErrInvalidSession, cause)
}

// restoreTo applies next while the session is loading with no token, or
// with tok itself when a canceled resolution of tok is being retried.
func (s *Service) restoreTo(next Snapshot) bool {
	s.mu.Lock()
	cur := s.snap
	if cur.Status != StatusLoading || (cur.Token != "" && cur.Token != next.Token) {
		s.mu.Unlock()
		return false
	}
	s.setLocked(next)
	s.mu.Unlock()
	s.publish()
	return true
}

func (s *Service) setLocked(snap Snapshot) {
	s.version++
	snap.Version = s.version
	s.snap = snap
}

// publish delivers the newest snapshot to observers, skipping versions
// already delivered so observers never see an older state after a newer one.
func (s *Service) publish() {
	s.publishMu.Lock()
	defer s.publishMu.Unlock()

	s.mu.Lock()
	snap := s.snap
	fns := make([]func(Snapshot), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	if snap.Version <= s.published {
		return
	}
	s.published = snap.Version
	for _, fn := range fns {
		fn(snap)
	}
}
