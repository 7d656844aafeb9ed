package shardqueue

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	sdkerrors "github.com/taskboard/taskboard/client/internal/errors"
)

type noopJob struct{}

func (noopJob) Run(context.Context) error { return nil }

// recordingJob runs fn and captures the completion error.
type recordingJob struct {
	fn   func(context.Context) error
	once sync.Once
	done chan error
}

func newRecordingJob(fn func(context.Context) error) *recordingJob {
	return &recordingJob{fn: fn, done: make(chan error, 1)}
}

func (j *recordingJob) Run(ctx context.Context) error { return j.fn(ctx) }

func (j *recordingJob) Complete(err error) { j.once.Do(func() { j.done <- err }) }

func (j *recordingJob) wait(t *testing.T) error {
	t.Helper()
	select {
	case err := <-j.done:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("job was not completed")
		return nil
	}
}

func TestSubmit_CompletesWithResult(t *testing.T) {
	t.Parallel()
	ex := NewShardExecutor(Config{Shards: 2, QueueSize: 4})
	defer ex.Stop()

	ok := newRecordingJob(func(context.Context) error { return nil })
	if err := ex.Submit(context.Background(), "/projects", ok); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if err := ok.wait(t); err != nil {
		t.Fatalf("expected nil completion, got %v", err)
	}
}

func TestSubmit_FIFOPerKey(t *testing.T) {
	t.Parallel()
	ex := NewShardExecutor(Config{Shards: 4, QueueSize: 16})
	defer ex.Stop()

	var (
		mu    sync.Mutex
		order []int
	)
	last := newRecordingJob(func(context.Context) error { return nil })
	for i := 0; i < 8; i++ {
		v := i
		if err := ex.Submit(context.Background(), "/projects/7/tasks", JobFunc(func(context.Context) error {
			mu.Lock()
			order = append(order, v)
			mu.Unlock()
			return nil
		})); err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
	}
	if err := ex.Submit(context.Background(), "/projects/7/tasks", last); err != nil {
		t.Fatalf("submit last: %v", err)
	}
	_ = last.wait(t)

	mu.Lock()
	defer mu.Unlock()
	for i, v := range order {
		if i != v {
			t.Fatalf("expected FIFO order, got %v", order)
		}
	}
}

func TestRetry_RecoverableUntilSuccess(t *testing.T) {
	t.Parallel()
	ex := NewShardExecutor(Config{Shards: 1, QueueSize: 4, MaxAttempts: 3, BaseBackoff: 5 * time.Millisecond})
	defer ex.Stop()

	var attempts int32
	job := newRecordingJob(func(context.Context) error {
		if atomic.AddInt32(&attempts, 1) < 3 {
			return &sdkerrors.APIError{Status: 503, Detail: "unavailable"}
		}
		return nil
	})
	if err := ex.Submit(context.Background(), "/users", job); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if err := job.wait(t); err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if got := atomic.LoadInt32(&attempts); got != 3 {
		t.Fatalf("attempts = %d, want 3", got)
	}
}

func TestRetry_ExhaustedReportsLastError(t *testing.T) {
	t.Parallel()
	var handled int32
	cfg := Config{Shards: 1, QueueSize: 4, MaxAttempts: 2, BaseBackoff: time.Millisecond}
	cfg.ErrorHandler = func(key string, err error) {
		if key == "/projects" {
			atomic.AddInt32(&handled, 1)
		}
	}
	ex := NewShardExecutor(cfg)
	defer ex.Stop()

	var attempts int32
	boom := errors.New("connection reset")
	job := newRecordingJob(func(context.Context) error {
		atomic.AddInt32(&attempts, 1)
		return boom
	})
	_ = ex.Submit(context.Background(), "/projects", job)
	if err := job.wait(t); !errors.Is(err, boom) {
		t.Fatalf("expected last error, got %v", err)
	}
	if got := atomic.LoadInt32(&attempts); got != 2 {
		t.Fatalf("attempts = %d, want 2", got)
	}
	// The handler runs after Complete; a later job on the same key observes it.
	next := newRecordingJob(func(context.Context) error { return nil })
	_ = ex.Submit(context.Background(), "/projects", next)
	if err := next.wait(t); err != nil {
		t.Fatalf("follow-up job: %v", err)
	}
	if atomic.LoadInt32(&handled) != 1 {
		t.Fatalf("error handler calls = %d, want 1", handled)
	}
}

func TestRetry_IrrecoverableFailsFast(t *testing.T) {
	t.Parallel()
	ex := NewShardExecutor(Config{Shards: 1, QueueSize: 4, MaxAttempts: 5, BaseBackoff: time.Millisecond})
	defer ex.Stop()

	var attempts int32
	job := newRecordingJob(func(context.Context) error {
		atomic.AddInt32(&attempts, 1)
		return &sdkerrors.APIError{Status: 403, Detail: "Forbidden"}
	})
	_ = ex.Submit(context.Background(), "/users", job)
	err := job.wait(t)
	if !sdkerrors.IsForbidden(err) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if got := atomic.LoadInt32(&attempts); got != 1 {
		t.Fatalf("attempts = %d, want 1", got)
	}
}

func TestPanic_CompletesWithErrJobPanicked(t *testing.T) {
	t.Parallel()
	ex := NewShardExecutor(Config{Shards: 1, QueueSize: 4, MaxAttempts: 1})
	defer ex.Stop()

	bad := newRecordingJob(func(context.Context) error { panic("bad fetcher") })
	_ = ex.Submit(context.Background(), "k", bad)
	if err := bad.wait(t); !errors.Is(err, ErrJobPanicked) {
		t.Fatalf("expected ErrJobPanicked, got %v", err)
	}

	// The shard keeps serving.
	next := newRecordingJob(func(context.Context) error { return nil })
	_ = ex.Submit(context.Background(), "k", next)
	if err := next.wait(t); err != nil {
		t.Fatalf("follow-up job: %v", err)
	}
}

func TestCanceledContext_SkipsRun(t *testing.T) {
	t.Parallel()
	ex := NewShardExecutor(Config{Shards: 1, QueueSize: 4})
	defer ex.Stop()

	block := make(chan struct{})
	_ = ex.Submit(context.Background(), "k", JobFunc(func(context.Context) error { <-block; return nil }))

	ctx, cancel := context.WithCancel(context.Background())
	var ran int32
	job := newRecordingJob(func(context.Context) error { atomic.StoreInt32(&ran, 1); return nil })
	if err := ex.Submit(ctx, "k", job); err != nil {
		t.Fatalf("submit: %v", err)
	}
	cancel()
	close(block)

	if err := job.wait(t); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if atomic.LoadInt32(&ran) != 0 {
		t.Fatal("job with canceled context should not run")
	}
}

func TestSubmit_QueueFull(t *testing.T) {
	t.Parallel()
	ex := NewShardExecutor(Config{Shards: 1, QueueSize: 1, EnqueueTimeout: 10 * time.Millisecond})
	defer ex.Stop()

	started := make(chan struct{})
	release := make(chan struct{})
	_ = ex.Submit(context.Background(), "k", JobFunc(func(context.Context) error {
		close(started)
		<-release
		return nil
	}))
	<-started
	_ = ex.Submit(context.Background(), "k", noopJob{})

	err := ex.Submit(context.Background(), "k", noopJob{})
	var qf *QueueFullError
	if !errors.As(err, &qf) || !errors.Is(err, ErrQueueFull) {
		t.Fatalf("expected queue full error, got %v", err)
	}
	close(release)
}

func TestStop_DrainsAndRejects(t *testing.T) {
	t.Parallel()
	ex := NewShardExecutor(Config{Shards: 1, QueueSize: 8})

	jobs := make([]*recordingJob, 3)
	for i := range jobs {
		jobs[i] = newRecordingJob(func(context.Context) error { return nil })
		_ = ex.Submit(context.Background(), "k", jobs[i])
	}
	ex.Stop()
	ex.Stop() // idempotent

	for _, j := range jobs {
		if err := j.wait(t); err != nil {
			t.Fatalf("drained job completed with %v", err)
		}
	}
	if err := ex.Submit(context.Background(), "k", noopJob{}); !errors.Is(err, ErrExecutorClosed) {
		t.Fatalf("expected ErrExecutorClosed, got %v", err)
	}
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("SQ_SHARDS", "8")
	t.Setenv("SQ_QUEUE_SIZE", "256")
	t.Setenv("SQ_MAX_ATTEMPTS", "5")
	t.Setenv("SQ_BASE_BACKOFF", "50ms")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig error: %v", err)
	}
	if cfg.Shards != 8 || cfg.QueueSize != 256 || cfg.MaxAttempts != 5 {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.BaseBackoff != 50*time.Millisecond || cfg.MaxInterval != 5*time.Second {
		t.Fatalf("unexpected backoff settings: base=%v max=%v", cfg.BaseBackoff, cfg.MaxInterval)
	}
}
