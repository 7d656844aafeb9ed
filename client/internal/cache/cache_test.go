package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskboard/taskboard/client/internal/shardqueue"
)

// fakeBackend serves values per key and can hold fetches at a gate.
type fakeBackend struct {
	mu      sync.Mutex
	calls   map[string]int
	values  map[string]any
	errs    map[string]error
	gate    chan struct{}
	started chan string
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		calls:   map[string]int{},
		values:  map[string]any{},
		errs:    map[string]error{},
		started: make(chan string, 64),
	}
}

func (f *fakeBackend) set(key string, v any, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values[key] = v
	f.errs[key] = err
}

func (f *fakeBackend) hold() chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gate = make(chan struct{})
	return f.gate
}

func (f *fakeBackend) count(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[key]
}

func (f *fakeBackend) fetch(ctx context.Context, key string) (any, error) {
	f.mu.Lock()
	f.calls[key]++
	gate := f.gate
	f.mu.Unlock()
	f.started <- key
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.values[key], f.errs[key]
}

func (f *fakeBackend) waitStarted(t *testing.T, key string) {
	t.Helper()
	select {
	case got := <-f.started:
		require.Equal(t, key, got)
	case <-time.After(2 * time.Second):
		t.Fatalf("fetch for %s did not start", key)
	}
}

func newTestCache(t *testing.T, f *fakeBackend) *Cache {
	t.Helper()
	ex := shardqueue.NewShardExecutor(shardqueue.Config{Shards: 2, QueueSize: 16, MaxAttempts: 1})
	c := New(f.fetch, ex)
	t.Cleanup(func() {
		c.Close()
		ex.Stop()
	})
	return c
}

func await(t *testing.T, c *Cache, key string) (Entry, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return c.Await(ctx, key)
}

func TestRead_DeduplicatesConcurrentReaders(t *testing.T) {
	t.Parallel()
	f := newFakeBackend()
	f.set("/projects", []string{"alpha"}, nil)
	release := f.hold()
	c := newTestCache(t, f)

	first := c.Read("/projects")
	assert.True(t, first.Loading)
	assert.False(t, first.HasData)
	assert.Equal(t, StateLoading, first.State())
	f.waitStarted(t, "/projects")

	second := c.Read("/projects")
	assert.True(t, second.Loading)

	results := make(chan Entry, 2)
	for i := 0; i < 2; i++ {
		go func() {
			e, _ := await(t, c, "/projects")
			results <- e
		}()
	}
	close(release)

	a, b := <-results, <-results
	assert.Equal(t, []string{"alpha"}, a.Data)
	assert.Equal(t, a.Data, b.Data)
	assert.Equal(t, a.Version, b.Version)
	assert.Equal(t, 1, f.count("/projects"), "exactly one transport call")
}

func TestRead_FreshEntryDoesNotRefetch(t *testing.T) {
	t.Parallel()
	f := newFakeBackend()
	f.set("/users", "roster", nil)
	c := newTestCache(t, f)

	e, err := await(t, c, "/users")
	require.NoError(t, err)
	require.Equal(t, StateData, e.State())
	assert.False(t, e.LastFetchedAt.IsZero())

	again := c.Read("/users")
	assert.False(t, again.Loading)
	assert.Equal(t, "roster", again.Data)
	assert.Equal(t, 1, f.count("/users"))

	forced := c.Read("/users", WithRevalidate())
	assert.True(t, forced.Loading)
	assert.Equal(t, "roster", forced.Data, "stale data stays visible while revalidating")
	_, err = await(t, c, "/users")
	require.NoError(t, err)
	assert.Equal(t, 2, f.count("/users"))
}

func TestFetchError_KeepsPriorData(t *testing.T) {
	t.Parallel()
	f := newFakeBackend()
	f.set("/projects/7/tasks", "v1", nil)
	c := newTestCache(t, f)

	_, err := await(t, c, "/projects/7/tasks")
	require.NoError(t, err)

	boom := errors.New("server exploded")
	f.set("/projects/7/tasks", "ignored", boom)
	c.Read("/projects/7/tasks", WithRevalidate())
	e, err := await(t, c, "/projects/7/tasks")
	require.ErrorIs(t, err, boom)
	assert.Equal(t, StateError, e.State())
	assert.True(t, e.HasData)
	assert.Equal(t, "v1", e.Data)

	// Recovery clears the error.
	f.set("/projects/7/tasks", "v2", nil)
	c.Read("/projects/7/tasks", WithRevalidate())
	e, err = await(t, c, "/projects/7/tasks")
	require.NoError(t, err)
	assert.Equal(t, "v2", e.Data)
	assert.NoError(t, e.Err)
}

func TestFetchError_FirstFetchHasNoData(t *testing.T) {
	t.Parallel()
	f := newFakeBackend()
	boom := errors.New("forbidden")
	f.set("/users", nil, boom)
	c := newTestCache(t, f)

	e, err := await(t, c, "/users")
	require.ErrorIs(t, err, boom)
	assert.False(t, e.HasData)
	assert.Equal(t, StateError, e.State())

	// A failed entry is not refetched by a plain Read.
	e = c.Read("/users")
	assert.False(t, e.Loading)
	assert.Equal(t, 1, f.count("/users"))
}

func TestInvalidate_WithoutSubscribersDefersFetch(t *testing.T) {
	t.Parallel()
	f := newFakeBackend()
	f.set("/projects/7/tasks", "before", nil)
	c := newTestCache(t, f)
	_, err := await(t, c, "/projects/7/tasks")
	require.NoError(t, err)

	f.set("/projects/7/tasks", "after", nil)
	c.Invalidate("/projects/7/tasks")
	peek := c.Peek("/projects/7/tasks")
	assert.True(t, peek.Stale)
	assert.False(t, peek.Loading)
	assert.Equal(t, 1, f.count("/projects/7/tasks"))

	e, err := await(t, c, "/projects/7/tasks")
	require.NoError(t, err)
	assert.Equal(t, "after", e.Data)
	assert.False(t, e.Stale)
	assert.Equal(t, 2, f.count("/projects/7/tasks"))

	// Unrelated keys are untouched.
	c.Invalidate("/projects")
	assert.Equal(t, 0, f.count("/projects"))
}

func TestInvalidate_WithSubscriberRefetchesImmediately(t *testing.T) {
	t.Parallel()
	f := newFakeBackend()
	f.set("/projects", "old", nil)
	c := newTestCache(t, f)
	_, err := await(t, c, "/projects")
	require.NoError(t, err)
	f.waitStarted(t, "/projects")

	var mu sync.Mutex
	var seen []Entry
	cancel := c.Subscribe("/projects", func(e Entry) {
		mu.Lock()
		seen = append(seen, e)
		mu.Unlock()
	})
	defer cancel()

	release := f.hold()
	f.set("/projects", "new", nil)
	c.Invalidate("/projects")
	f.waitStarted(t, "/projects")

	during := c.Peek("/projects")
	assert.True(t, during.Loading)
	assert.Equal(t, "old", during.Data)

	close(release)
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		if len(seen) == 0 {
			return false
		}
		last := seen[len(seen)-1]
		return last.Data == "new" && !last.Loading && !last.Stale
	}, 2*time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	for i := 1; i < len(seen); i++ {
		assert.Greater(t, seen[i].Version, seen[i-1].Version, "deliveries are ordered")
	}
	assert.Equal(t, 2, f.count("/projects"))
}

func TestInvalidate_DuringFetchTriggersFollowUp(t *testing.T) {
	t.Parallel()
	f := newFakeBackend()
	f.set("/tasks/3/logs", "pre-mutation", nil)
	release := f.hold()
	c := newTestCache(t, f)

	done := make(chan Entry, 1)
	go func() {
		e, _ := await(t, c, "/tasks/3/logs")
		done <- e
	}()
	f.waitStarted(t, "/tasks/3/logs")

	c.Invalidate("/tasks/3/logs")
	f.mu.Lock()
	f.gate = nil
	f.values["/tasks/3/logs"] = "post-mutation"
	f.mu.Unlock()
	close(release)

	select {
	case e := <-done:
		assert.Equal(t, "post-mutation", e.Data)
	case <-time.After(2 * time.Second):
		t.Fatal("await did not return")
	}
	assert.Equal(t, 2, f.count("/tasks/3/logs"))
}

func TestClear_DiscardsInFlightResult(t *testing.T) {
	t.Parallel()
	f := newFakeBackend()
	f.set("/projects", "user-a-projects", nil)
	release := f.hold()
	c := newTestCache(t, f)

	var last Entry
	var mu sync.Mutex
	cancel := c.Subscribe("/projects", func(e Entry) {
		mu.Lock()
		last = e
		mu.Unlock()
	})
	defer cancel()

	c.Read("/projects")
	f.waitStarted(t, "/projects")
	c.Clear()
	close(release)

	require.Eventually(t, func() bool { return f.count("/projects") == 1 }, time.Second, 5*time.Millisecond)
	// Give the discarded settle a chance to run.
	time.Sleep(20 * time.Millisecond)
	e := c.Peek("/projects")
	assert.False(t, e.HasData)
	assert.False(t, e.Loading)

	mu.Lock()
	defer mu.Unlock()
	assert.False(t, last.HasData)
}

func TestSubmitFailureSettlesWaiters(t *testing.T) {
	t.Parallel()
	f := newFakeBackend()
	ex := shardqueue.NewShardExecutor(shardqueue.Config{Shards: 1, QueueSize: 1})
	ex.Stop()
	c := New(f.fetch, ex)
	defer c.Close()

	e, err := await(t, c, "/projects")
	require.ErrorIs(t, err, shardqueue.ErrExecutorClosed)
	assert.False(t, e.Loading)
	assert.Equal(t, 0, f.count("/projects"))
}

func TestTyped(t *testing.T) {
	t.Parallel()
	f := newFakeBackend()
	f.set("/projects", []int{1, 2}, nil)
	f.set("/users", "not a slice", nil)
	c := newTestCache(t, f)

	ints := NewTyped[[]int](c, "/projects")
	v, _, err := ints.Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, v)

	got, _, ok := ints.Read()
	assert.True(t, ok)
	assert.Equal(t, []int{1, 2}, got)

	wrong := NewTyped[[]int](c, "/users")
	_, _, err = wrong.Await(context.Background())
	assert.Error(t, err)
}

func TestSubscribe_CancelStopsDelivery(t *testing.T) {
	t.Parallel()
	f := newFakeBackend()
	f.set("/projects", "x", nil)
	c := newTestCache(t, f)

	calls := make(chan Entry, 16)
	cancel := c.Subscribe("/projects", func(e Entry) { calls <- e })
	first := <-calls
	assert.Equal(t, StateLoading, first.State())
	cancel()
	cancel()

	_, err := await(t, c, "/projects")
	require.NoError(t, err)
	time.Sleep(20 * time.Millisecond)
	for {
		select {
		case e := <-calls:
			assert.False(t, e.HasData, "no delivery after cancel")
		default:
			return
		}
	}
}
