package shardqueue

import "context"

// Job is a unit of work executed by a ShardExecutor.
type Job interface {
	Run(ctx context.Context) error
}

// Completer is implemented by jobs that want their final outcome: nil after
// a successful run, otherwise the last error once retries are exhausted, the
// error was irrecoverable, the context ended, or the executor stopped.
// Complete is called exactly once per accepted job.
type Completer interface {
	Complete(err error)
}

// JobFunc is a helper to adapt a function to a Job.
type JobFunc func(ctx context.Context) error

// Run implements Job for JobFunc.
func (f JobFunc) Run(ctx context.Context) error { return f(ctx) }
