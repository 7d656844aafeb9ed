// Copyright 2025 The Synapse Authors.
//
// Package shardqueue provides a lightweight sharded work‑queue that guarantees
// FIFO order *per key* while allowing parallelism across shards. The SDK runs
// cache revalidation fetches on it, keyed by cache key, so fetches of one key
// never overlap and retries back off without blocking other shards.
//
// **Contract**: FIFO ordering across Submit calls for the same key holds for
// calls made from a single goroutine, or otherwise serialised by the caller.
package shardqueue

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"
	"sync/atomic"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/taskboard/taskboard/client/internal/errors"
)

type queuedJob struct {
	ctx context.Context
	key string
	job Job
}

// ShardExecutor executes Jobs on worker goroutines partitioned by a stable hash
// of the key. FIFO ordering is preserved within a shard; jobs with different
// keys may run in parallel.
type ShardExecutor struct {
	cfg    Config
	queues []chan queuedJob // len == cfg.Shards
	logger zerolog.Logger

	done   chan struct{} // closed in Stop()
	closed uint32        // 0 → running, 1 → closed

	wg sync.WaitGroup
}

// NewShardExecutor constructs the executor and starts its shard workers.
func NewShardExecutor(cfg Config) *ShardExecutor {
	cfg = cfg.withDefaults()
	p := &ShardExecutor{
		cfg:    cfg,
		queues: make([]chan queuedJob, cfg.Shards),
		logger: log.With().Str("component", "shardqueue").Logger(),
		done:   make(chan struct{}),
	}
	for i := 0; i < cfg.Shards; i++ {
		ch := make(chan queuedJob, cfg.QueueSize)
		p.queues[i] = ch
		p.wg.Add(1)
		go p.runWorker(i, ch)
	}
	return p
}

// Submit enqueues job for the shard derived from key.
//
//   - Returns nil on success; the job will then be completed exactly once.
//   - Returns ErrExecutorClosed if the executor is stopped.
//   - Returns ErrQueueFull (wrapped in *QueueFullError) if the shard is full
//     after EnqueueTimeout elapses.
//   - Returns ctx.Err() if the caller‑provided context is cancelled first.
//
// A job that is rejected is not completed; the caller owns the failure.
func (p *ShardExecutor) Submit(ctx context.Context, key string, job Job) error {
	if atomic.LoadUint32(&p.closed) == 1 {
		return ErrExecutorClosed
	}
	select {
	case <-p.done:
		return ErrExecutorClosed
	default:
	}

	qj := queuedJob{ctx: ctx, key: key, job: job}
	shard := p.shardFor(key)
	ch := p.queues[shard]

	timer := time.NewTimer(p.cfg.EnqueueTimeout)
	defer timer.Stop()

	select {
	case ch <- qj:
		submissionsTotal.WithLabelValues(labelFor(shard)).Inc()
		return nil

	case <-p.done:
		return ErrExecutorClosed

	case <-ctx.Done():
		return ctx.Err()

	case <-timer.C:
		queueFullTotal.WithLabelValues(labelFor(shard)).Inc()
		return &QueueFullError{
			Shard:    shard,
			Length:   len(ch),
			Capacity: cap(ch),
		}
	}
}

// Stop signals every worker to finish draining its current queue, waits for
// them to terminate, and then returns.  It is idempotent and safe for
// concurrent use.
func (p *ShardExecutor) Stop() {
	if !atomic.CompareAndSwapUint32(&p.closed, 0, 1) {
		return
	}
	p.logger.Debug().Int("shards", p.cfg.Shards).Msg("stopping executor")
	close(p.done)
	p.wg.Wait()
	p.logger.Debug().Msg("executor stopped, all queues drained")
}

// Close lets ShardExecutor satisfy io.Closer.
func (p *ShardExecutor) Close() error {
	p.Stop()
	return nil
}

// ------------------------- internals -------------------------

func (p *ShardExecutor) runWorker(idx int, ch <-chan queuedJob) {
	defer p.wg.Done()
	label := labelFor(idx)

	for {
		select {
		case qj := <-ch:
			if qj.job != nil {
				p.finish(qj, p.execute(label, qj))
			}
			queueDepth.WithLabelValues(label).Set(float64(len(ch)))

		case <-p.done:
			// Drain remaining jobs once each, preserving FIFO, then exit.
			drained := 0
			for {
				select {
				case qj := <-ch:
					if qj.job == nil {
						continue
					}
					var err error
					if err = qj.ctx.Err(); err == nil {
						err = p.runOnce(label, qj)
					}
					p.finish(qj, err)
					drained++
				default:
					if drained > 0 {
						p.logger.Debug().Int("worker", idx).Int("drained", drained).Msg("drained remaining jobs")
					}
					queueDepth.WithLabelValues(label).Set(0)
					return
				}
			}
		}
	}
}

// execute runs qj until it succeeds, fails irrecoverably, exhausts
// MaxAttempts, or its context ends. It returns the final error.
func (p *ShardExecutor) execute(label string, qj queuedJob) error {
	if err := qj.ctx.Err(); err != nil {
		return err
	}

	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = p.cfg.BaseBackoff
	exp.Multiplier = 2
	exp.MaxInterval = p.cfg.MaxInterval
	exp.MaxElapsedTime = 0
	exp.Reset()

	for attempt := 1; ; attempt++ {
		err := p.runOnce(label, qj)
		if err == nil || errors.IsIrrecoverable(err) || attempt >= p.cfg.MaxAttempts {
			return err
		}

		retriesTotal.WithLabelValues(label).Inc()
		wait := exp.NextBackOff()
		p.logger.Debug().Err(err).Str("key", qj.key).Int("attempt", attempt).Dur("backoff", wait).Msg("retrying job")

		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-p.done:
			timer.Stop()
			return err
		case <-qj.ctx.Done():
			timer.Stop()
			return qj.ctx.Err()
		}
	}
}

// runOnce runs a single attempt, converting a panic into ErrJobPanicked so one
// bad job does not take the shard down.
func (p *ShardExecutor) runOnce(label string, qj queuedJob) (err error) {
	start := time.Now()
	defer func() {
		runDuration.WithLabelValues(label).Observe(time.Since(start).Seconds())
		if r := recover(); r != nil {
			p.logger.Error().Str("key", qj.key).Interface("panic", r).Msg("job panicked")
			err = fmt.Errorf("%w: %v", ErrJobPanicked, r)
		}
	}()
	return qj.job.Run(qj.ctx)
}

func (p *ShardExecutor) finish(qj queuedJob, err error) {
	if c, ok := qj.job.(Completer); ok {
		p.guard("completer", func() { c.Complete(err) })
	}
	if err != nil && p.cfg.ErrorHandler != nil {
		p.guard("error handler", func() { p.cfg.ErrorHandler(qj.key, err) })
	}
}

// guard runs fn, recovering from a panic in caller-supplied code.
func (p *ShardExecutor) guard(what string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error().Interface("panic", r).Msgf("%s panic", what)
		}
	}()
	fn()
}

func (p *ShardExecutor) shardFor(key string) int {
	h := fnv.New32a() // fast and sufficient at our scale
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % uint32(p.cfg.Shards))
}
