package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sdkerrors "github.com/taskboard/taskboard/client/internal/errors"
	"github.com/taskboard/taskboard/client/internal/types"
)

func newGateway(t *testing.T, h http.HandlerFunc, tok string) *Gateway {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(srv.URL, srv.Client(), func() string { return tok })
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestLogin_FormEncodedWithoutBearer(t *testing.T) {
	t.Parallel()
	g := newGateway(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/auth/login", r.URL.Path)
		assert.Empty(t, r.Header.Get("Authorization"))
		assert.Contains(t, r.Header.Get("Content-Type"), "application/x-www-form-urlencoded")
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "ada@example.com", r.PostForm.Get("username"))
		assert.Equal(t, "s3cret", r.PostForm.Get("password"))
		writeJSON(w, http.StatusOK, map[string]string{"access_token": "a.b.c", "token_type": "bearer"})
	}, "stale-token")

	tok, err := g.Login(context.Background(), "ada@example.com", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, "a.b.c", tok.AccessToken)
	assert.Equal(t, "bearer", tok.TokenType)
}

func TestLogin_Failure(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name   string
		body   string
		detail string
	}{
		{"server detail", `{"detail":"Invalid credentials"}`, "Invalid credentials"},
		{"no detail", ``, "Login failed"},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			g := newGateway(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = io.WriteString(w, tc.body)
			}, "")
			_, err := g.Login(context.Background(), "x", "y")
			var apiErr *sdkerrors.APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
			assert.Equal(t, tc.detail, apiErr.Detail)
		})
	}
}

func TestAuthedRequests_CarryBearerAndRequestID(t *testing.T) {
	t.Parallel()
	var mu sync.Mutex
	var ids []string
	g := newGateway(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
		mu.Lock()
		ids = append(ids, r.Header.Get("X-Request-ID"))
		mu.Unlock()
		writeJSON(w, http.StatusOK, []types.Project{{ProjectID: 7, Name: "Apollo"}})
	}, "tok-1")

	for i := 0; i < 2; i++ {
		projects, err := g.ListProjects(context.Background())
		require.NoError(t, err)
		require.Len(t, projects, 1)
		assert.Equal(t, int64(7), projects[0].ProjectID)
	}
	mu.Lock()
	defer mu.Unlock()
	require.Len(t, ids, 2)
	assert.NotEmpty(t, ids[0])
	assert.NotEqual(t, ids[0], ids[1])
}

func TestListUsersWithToken_OverridesSource(t *testing.T) {
	t.Parallel()
	g := newGateway(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users", r.URL.Path)
		assert.Equal(t, "Bearer explicit", r.Header.Get("Authorization"))
		_, _ = io.WriteString(w, `[{"userId":42,"email":"m@example.com","name":"Mia","role":"manager","joinedAt":"2024-03-01T09:00:00"}]`)
	}, "from-source")

	users, err := g.ListUsersWithToken(context.Background(), "explicit")
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, types.RoleManager, users[0].Role)
	assert.Equal(t, int64(42), users[0].UserID)
}

func TestCreateTask_PathAndBody(t *testing.T) {
	t.Parallel()
	g := newGateway(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/projects/7/tasks", r.URL.Path)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "X", body["title"])
		assert.NotContains(t, body, "status")
		writeJSON(w, http.StatusOK, map[string]any{
			"taskId": 11, "projectId": 7, "title": "X", "status": "todo",
			"createdBy": 1, "createdAt": "2024-05-01T10:00:00Z",
		})
	}, "tok")

	task, err := g.CreateTask(context.Background(), 7, types.CreateTaskRequest{Title: "X"})
	require.NoError(t, err)
	assert.Equal(t, int64(11), task.TaskID)
	assert.Equal(t, types.StatusTodo, task.Status)
}

func TestValidation_RejectsBeforeSending(t *testing.T) {
	t.Parallel()
	var hits sync.Map
	g := newGateway(t, func(w http.ResponseWriter, r *http.Request) { hits.Store(r.URL.Path, true) }, "tok")
	ctx := context.Background()

	_, err := g.CreateTask(ctx, 7, types.CreateTaskRequest{Title: "  "})
	assert.ErrorIs(t, err, types.ErrValidation)
	_, err = g.CreateProject(ctx, types.CreateProjectRequest{})
	assert.ErrorIs(t, err, types.ErrValidation)
	_, err = g.UpdateTaskStatus(ctx, 1, "archived")
	assert.ErrorIs(t, err, types.ErrValidation)
	_, err = g.CreateTimeEntry(ctx, types.CreateTimeEntryRequest{ProjectID: 1, Hours: 1, Billable: "maybe"})
	assert.ErrorIs(t, err, types.ErrValidation)
	hits.Range(func(k, _ any) bool {
		t.Errorf("unexpected request to %v", k)
		return true
	})
}

func TestUpdateTaskStatus_AcceptsTaskOrMessage(t *testing.T) {
	t.Parallel()
	g := newGateway(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "complete", r.URL.Query().Get("status"))
		switch r.URL.Path {
		case "/tasks/1/status":
			writeJSON(w, http.StatusOK, map[string]any{"taskId": 1, "projectId": 7, "title": "t", "status": "complete"})
		case "/tasks/2/status":
			writeJSON(w, http.StatusOK, map[string]string{"message": "Status updated"})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}, "tok")

	task, err := g.UpdateTaskStatus(context.Background(), 1, types.StatusComplete)
	require.NoError(t, err)
	require.NotNil(t, task)
	assert.Equal(t, types.StatusComplete, task.Status)

	task, err = g.UpdateTaskStatus(context.Background(), 2, types.StatusComplete)
	require.NoError(t, err)
	assert.Nil(t, task)
}

func TestErrorNormalisation(t *testing.T) {
	t.Parallel()
	g := newGateway(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/users":
			writeJSON(w, http.StatusForbidden, map[string]string{"detail": "Forbidden"})
		case "/projects":
			writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
				"detail": []map[string]any{{"loc": []string{"body", "name"}, "msg": "field required"}},
			})
		case "/tasks/3/logs":
			w.WriteHeader(http.StatusInternalServerError)
		}
	}, "tok")
	ctx := context.Background()

	_, err := g.ListUsers(ctx)
	assert.True(t, sdkerrors.IsForbidden(err))
	assert.Equal(t, "Forbidden", sdkerrors.UserMessage(err))

	_, err = g.ListProjects(ctx)
	var apiErr *sdkerrors.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "field required", apiErr.Detail)
	assert.True(t, sdkerrors.IsIrrecoverable(err))

	_, err = g.TaskLogs(ctx, 3)
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, sdkerrors.GenericMessage, apiErr.Detail)
	assert.False(t, sdkerrors.IsIrrecoverable(err))
}

func TestNetworkAndDecodeErrors(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{not json`)
	}))
	g := New(srv.URL, srv.Client(), nil)

	_, err := g.ListProjects(context.Background())
	var ce *sdkerrors.ClassifiedError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, sdkerrors.Irrecoverable, ce.Category)

	srv.Close()
	_, err = g.ListProjects(context.Background())
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, sdkerrors.Recoverable, ce.Category)
}

func TestCanceledContext(t *testing.T) {
	t.Parallel()
	g := newGateway(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("request should not be sent")
	}, "tok")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := g.ListProjects(ctx)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestAssignees(t *testing.T) {
	t.Parallel()
	var mu sync.Mutex
	var seen []string
	g := newGateway(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		seen = append(seen, r.Method+" "+r.URL.Path)
		mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]string{"message": "ok"})
	}, "tok")

	msg, err := g.AssignUser(context.Background(), 5, 9)
	require.NoError(t, err)
	assert.Equal(t, "ok", msg.Message)
	_, err = g.UnassignUser(context.Background(), 5, 9)
	require.NoError(t, err)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"POST /tasks/5/assignees/9", "DELETE /tasks/5/assignees/9"}, seen)
}

func TestCreateTimeEntry_DecimalHours(t *testing.T) {
	t.Parallel()
	g := newGateway(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/time_entries/time-entries", r.URL.Path)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "2024-05-02", body["workDate"])
		assert.Equal(t, "billable", body["billable"])
		_, _ = io.WriteString(w, `{"timeEntryId":3,"userId":1,"projectId":7,"hours":"2.50","billable":"billable","workDate":"2024-05-02"}`)
	}, "tok")

	req := types.CreateTimeEntryRequest{ProjectID: 7, Hours: 2.5, Billable: types.Billable}
	require.NoError(t, req.WorkDate.UnmarshalText([]byte("2024-05-02")))
	te, err := g.CreateTimeEntry(context.Background(), req)
	require.NoError(t, err)
	assert.InDelta(t, 2.5, float64(te.Hours), 1e-9)
}
