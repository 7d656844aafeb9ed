package session

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sdkerrors "github.com/taskboard/taskboard/client/internal/errors"
	"github.com/taskboard/taskboard/client/internal/policy"
	"github.com/taskboard/taskboard/client/internal/token"
	"github.com/taskboard/taskboard/client/internal/types"
)

func mkToken(t *testing.T, claims map[string]any) string {
	t.Helper()
	b, err := json.Marshal(claims)
	require.NoError(t, err)
	return "eyJhbGciOiJIUzI1NiJ9." + base64.RawURLEncoding.EncodeToString(b) + ".sig"
}

// fakeRoster answers roster requests, optionally holding each one at a gate.
type fakeRoster struct {
	mu      sync.Mutex
	users   []types.Identity
	err     error
	gate    chan struct{}
	calls   []string
	started chan string
}

func newFakeRoster() *fakeRoster { return &fakeRoster{started: make(chan string, 16)} }

func (f *fakeRoster) ListUsersWithToken(ctx context.Context, tok string) ([]types.Identity, error) {
	f.mu.Lock()
	f.calls = append(f.calls, tok)
	gate := f.gate
	f.mu.Unlock()
	f.started <- tok
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.users, f.err
}

func (f *fakeRoster) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func waitStarted(t *testing.T, f *fakeRoster) string {
	t.Helper()
	select {
	case tok := <-f.started:
		return tok
	case <-time.After(2 * time.Second):
		t.Fatal("roster fetch not started")
		return ""
	}
}

var mia = types.Identity{UserID: 7, Email: "mia@example.com", Name: "Mia", Role: types.RoleManager}

func TestRestore_NoTokenIsAnonymous(t *testing.T) {
	t.Parallel()
	roster := newFakeRoster()
	svc := New(NewMemoryStore(), roster)
	assert.Equal(t, StatusLoading, svc.Snapshot().Status)

	snap, err := svc.Restore(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatusAnonymous, snap.Status)
	assert.Zero(t, roster.callCount())
	assert.Equal(t, policy.None, svc.Capabilities())
}

func TestRestore_ResolvesFromRoster(t *testing.T) {
	t.Parallel()
	roster := newFakeRoster()
	roster.users = []types.Identity{{UserID: 1, Name: "Ada", Role: types.RoleAdmin}, mia}
	store := NewMemoryStore()
	tok := mkToken(t, map[string]any{"sub": "7"})
	require.NoError(t, store.Save(context.Background(), tok))

	svc := New(store, roster)
	snap, err := svc.Restore(context.Background())
	require.NoError(t, err)
	require.True(t, snap.Authenticated())
	assert.Equal(t, mia, *snap.Identity)
	assert.False(t, snap.Degraded)
	assert.Equal(t, []string{tok}, roster.calls)
	assert.True(t, svc.Capabilities().Has(policy.CanCreateProject))
}

func TestResolve_DegradedIdentityOnForbidden(t *testing.T) {
	t.Parallel()
	roster := newFakeRoster()
	roster.err = &sdkerrors.APIError{Status: 403, Detail: "Forbidden"}
	svc := New(NewMemoryStore(), roster)

	snap, err := svc.Login(context.Background(), mkToken(t, map[string]any{"sub": "42"}))
	require.NoError(t, err)
	require.True(t, snap.Authenticated())
	assert.True(t, snap.Degraded)
	assert.Equal(t, types.Identity{UserID: 42, Role: types.RoleUser, Email: "", Name: "User"}, *snap.Identity)
	assert.Equal(t, policy.None, svc.Capabilities())
}

func TestResolve_InvalidSessionPaths(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name      string
		claims    map[string]any
		raw       string
		users     []types.Identity
		err       error
		wantFetch bool
	}{
		{name: "malformed token", raw: "not-a-token"},
		{name: "missing sub", claims: map[string]any{"exp": 1}},
		{name: "unauthorized", claims: map[string]any{"sub": "7"}, err: &sdkerrors.APIError{Status: 401, Detail: "Could not validate credentials"}, wantFetch: true},
		{name: "subject not in roster", claims: map[string]any{"sub": "99"}, users: []types.Identity{mia}, wantFetch: true},
		{name: "network failure", claims: map[string]any{"sub": "7"}, err: sdkerrors.NewNetworkError("list users", errors.New("connection refused")), wantFetch: true},
		{name: "malformed roster", claims: map[string]any{"sub": "7"}, err: sdkerrors.NewDecodeError("list users", 200, errors.New("bad json")), wantFetch: true},
		{name: "forbidden with non-numeric subject", claims: map[string]any{"sub": "ada"}, err: &sdkerrors.APIError{Status: 403}, wantFetch: true},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			roster := newFakeRoster()
			roster.users, roster.err = tc.users, tc.err
			store := NewMemoryStore()
			svc := New(store, roster)

			tok := tc.raw
			if tok == "" {
				tok = mkToken(t, tc.claims)
			}
			snap, err := svc.Login(context.Background(), tok)
			require.ErrorIs(t, err, ErrInvalidSession)
			assert.Equal(t, StatusAnonymous, snap.Status)
			assert.Empty(t, snap.Token)
			assert.Nil(t, snap.Identity)

			persisted, _ := store.Load(context.Background())
			assert.Empty(t, persisted, "token cleared")
			assert.Equal(t, tc.wantFetch, roster.callCount() > 0)
		})
	}
}

func TestResolve_MalformedTokenWrapsCodecError(t *testing.T) {
	t.Parallel()
	svc := New(NewMemoryStore(), newFakeRoster())
	_, err := svc.Login(context.Background(), "a.%%%.c")
	assert.ErrorIs(t, err, ErrInvalidSession)
	assert.ErrorIs(t, err, token.ErrInvalid)
}

func TestLogoutDuringResolutionDiscardsResult(t *testing.T) {
	t.Parallel()
	roster := newFakeRoster()
	roster.users = []types.Identity{mia}
	roster.gate = make(chan struct{})
	store := NewMemoryStore()
	svc := New(store, roster)

	done := make(chan error, 1)
	go func() {
		_, err := svc.Login(context.Background(), mkToken(t, map[string]any{"sub": "7"}))
		done <- err
	}()
	waitStarted(t, roster)
	require.NoError(t, svc.Logout())
	close(roster.gate)

	require.ErrorIs(t, <-done, ErrSuperseded)
	snap := svc.Snapshot()
	assert.Equal(t, StatusAnonymous, snap.Status)
	assert.Nil(t, snap.Identity)
	persisted, _ := store.Load(context.Background())
	assert.Empty(t, persisted)
}

func TestSecondLoginSupersedesFirst(t *testing.T) {
	t.Parallel()
	roster := newFakeRoster()
	roster.users = []types.Identity{mia, {UserID: 8, Name: "Bo", Role: types.RoleUser}}
	roster.gate = make(chan struct{})
	store := NewMemoryStore()
	svc := New(store, roster)
	tokA := mkToken(t, map[string]any{"sub": "7"})
	tokB := mkToken(t, map[string]any{"sub": "8"})

	first := make(chan error, 1)
	go func() {
		_, err := svc.Login(context.Background(), tokA)
		first <- err
	}()
	require.Equal(t, tokA, waitStarted(t, roster))

	second := make(chan error, 1)
	go func() {
		_, err := svc.Login(context.Background(), tokB)
		second <- err
	}()
	require.Equal(t, tokB, waitStarted(t, roster))
	close(roster.gate)

	assert.ErrorIs(t, <-first, ErrSuperseded)
	require.NoError(t, <-second)
	snap := svc.Snapshot()
	require.True(t, snap.Authenticated())
	assert.Equal(t, int64(8), snap.UserID())
	persisted, _ := store.Load(context.Background())
	assert.Equal(t, tokB, persisted)
}

func TestCanceledResolutionStaysLoading(t *testing.T) {
	t.Parallel()
	roster := newFakeRoster()
	roster.gate = make(chan struct{})
	svc := New(NewMemoryStore(), roster)
	tok := mkToken(t, map[string]any{"sub": "7"})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := svc.Login(ctx, tok)
		done <- err
	}()
	waitStarted(t, roster)
	cancel()

	require.ErrorIs(t, <-done, context.Canceled)
	snap := svc.Snapshot()
	assert.Equal(t, StatusLoading, snap.Status)
	assert.Equal(t, tok, snap.Token)
}

// staleStore hands back a token read before a later Save.
type staleStore struct {
	*MemoryStore
	old string
}

func (s staleStore) Load(context.Context) (string, error) { return s.old, nil }

func TestRestoreAfterLoginKeepsNewerToken(t *testing.T) {
	t.Parallel()
	roster := newFakeRoster()
	roster.users = []types.Identity{mia, {UserID: 8, Name: "Bo", Role: types.RoleUser}}
	tokOld := mkToken(t, map[string]any{"sub": "8"})
	tokNew := mkToken(t, map[string]any{"sub": "7"})
	svc := New(staleStore{MemoryStore: NewMemoryStore(), old: tokOld}, roster)

	_, err := svc.Login(context.Background(), tokNew)
	require.NoError(t, err)

	_, err = svc.Restore(context.Background())
	assert.ErrorIs(t, err, ErrSuperseded)
	snap := svc.Snapshot()
	require.True(t, snap.Authenticated())
	assert.Equal(t, tokNew, snap.Token)
	assert.Equal(t, int64(7), snap.UserID())
	assert.Equal(t, []string{tokNew}, roster.calls)
}

func TestRestoreAfterLogoutStaysAnonymous(t *testing.T) {
	t.Parallel()
	roster := newFakeRoster()
	svc := New(staleStore{MemoryStore: NewMemoryStore(), old: mkToken(t, map[string]any{"sub": "7"})}, roster)
	require.NoError(t, svc.Logout())

	_, err := svc.Restore(context.Background())
	assert.ErrorIs(t, err, ErrSuperseded)
	assert.Equal(t, StatusAnonymous, svc.Snapshot().Status)
	assert.Zero(t, roster.callCount())
}

func TestSubscribeObservesTransitionsInOrder(t *testing.T) {
	t.Parallel()
	roster := newFakeRoster()
	roster.users = []types.Identity{mia}
	svc := New(NewMemoryStore(), roster)

	var mu sync.Mutex
	var seen []Snapshot
	cancel := svc.Subscribe(func(s Snapshot) {
		mu.Lock()
		seen = append(seen, s)
		mu.Unlock()
	})

	_, err := svc.Login(context.Background(), mkToken(t, map[string]any{"sub": 7}))
	require.NoError(t, err)
	require.NoError(t, svc.Logout())
	cancel()
	cancel()
	_, _ = svc.Restore(context.Background())

	mu.Lock()
	defer mu.Unlock()
	var statuses []Status
	for i, s := range seen {
		statuses = append(statuses, s.Status)
		if i > 0 {
			assert.Greater(t, s.Version, seen[i-1].Version)
		}
	}
	assert.Equal(t, []Status{StatusLoading, StatusLoading, StatusAuthenticated, StatusAnonymous}, statuses)
}

func TestLoginRejectsEmptyToken(t *testing.T) {
	t.Parallel()
	svc := New(NewMemoryStore(), newFakeRoster())
	_, err := svc.Login(context.Background(), "")
	assert.ErrorIs(t, err, ErrInvalidSession)
}
