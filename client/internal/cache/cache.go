// Package cache is the shared, keyed store of server collections.
//
// One entry exists per key (the request path). Concurrent readers of a key
// share a single in-flight fetch; stale data stays readable while a
// revalidation runs; a failed fetch records its error without discarding
// data from an earlier success. There is no cross-key consistency: callers
// invalidate every key a mutation affects.
package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/taskboard/taskboard/client/internal/shardqueue"
)

// Fetcher loads the current server value for key.
type Fetcher func(ctx context.Context, key string) (any, error)

// Submitter runs jobs keyed by cache key. *shardqueue.ShardExecutor
// satisfies it and serialises fetches of one key.
type Submitter interface {
	Submit(ctx context.Context, key string, job shardqueue.Job) error
}

// Option configures a Cache.
type Option func(*Cache)

// WithLogger sets the logger used for fetch diagnostics.
func WithLogger(l zerolog.Logger) Option { return func(c *Cache) { c.logger = l } }

// Cache is safe for concurrent use.
type Cache struct {
	fetch Fetcher
	exec  Submitter

	ctx    context.Context
	cancel context.CancelFunc
	now    func() time.Time
	logger zerolog.Logger

	mu      sync.Mutex
	entries map[string]*entry
	seq     uint64 // source of Entry.Version
	nextSub uint64
}

type entry struct {
	key       string
	data      any
	hasData   bool
	err       error
	fetchedAt time.Time
	attempted bool // a fetch has settled at least once
	stale     bool
	version   uint64
	call      *call
	subs      map[uint64]*subscription
}

// call is the in-flight fetch every concurrent reader of a key shares.
type call struct {
	done        chan struct{}
	started     time.Time
	invalidated bool // the key was invalidated while this call was in flight
	data        any
	err         error
}

// New creates a cache that loads keys with fetch on exec.
func New(fetch Fetcher, exec Submitter, opts ...Option) *Cache {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Cache{
		fetch:   fetch,
		exec:    exec,
		ctx:     ctx,
		cancel:  cancel,
		now:     time.Now,
		logger:  log.With().Str("component", "cache").Logger(),
		entries: make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ReadOption adjusts a single Read.
type ReadOption func(*readOptions)

type readOptions struct{ revalidate bool }

// WithRevalidate forces a fetch unless one is already in flight.
func WithRevalidate() ReadOption { return func(o *readOptions) { o.revalidate = true } }

// Read returns whatever is known about key without waiting. It starts a fetch
// when the key has never been fetched, is stale, or revalidation is forced;
// it never starts a second fetch while one is in flight.
func (c *Cache) Read(key string, opts ...ReadOption) Entry {
	var ro readOptions
	for _, opt := range opts {
		opt(&ro)
	}

	c.mu.Lock()
	e := c.entryLocked(key)
	var started *call
	switch {
	case e.call != nil:
		readsTotal.WithLabelValues("joined").Inc()
	case !e.attempted || e.stale || ro.revalidate:
		started = c.startLocked(e)
		readsTotal.WithLabelValues("started").Inc()
	default:
		readsTotal.WithLabelValues("fresh").Inc()
	}
	snap, subs := c.snapshotLocked(e), e.subscribers()
	c.mu.Unlock()

	if started != nil {
		c.dispatch(key, started)
		notify(subs, snap)
	}
	return snap
}

// Await returns the settled entry for key, joining the in-flight fetch or
// starting one when the key has never been fetched, is stale or holds no
// data. If the key is invalidated while Await waits, it waits for the
// follow-up fetch too. The returned error is ctx.Err() or the entry's error.
func (c *Cache) Await(ctx context.Context, key string) (Entry, error) {
	for {
		c.mu.Lock()
		e := c.entryLocked(key)
		cl := e.call
		var started *call
		if cl == nil && (!e.attempted || e.stale || !e.hasData) {
			started = c.startLocked(e)
			cl = started
		}
		if cl == nil {
			snap := c.snapshotLocked(e)
			c.mu.Unlock()
			readsTotal.WithLabelValues("fresh").Inc()
			return snap, snap.Err
		}
		snap, subs := c.snapshotLocked(e), e.subscribers()
		c.mu.Unlock()

		if started != nil {
			readsTotal.WithLabelValues("started").Inc()
			c.dispatch(key, started)
			notify(subs, snap)
		} else {
			readsTotal.WithLabelValues("joined").Inc()
		}

		select {
		case <-ctx.Done():
			return c.Peek(key), ctx.Err()
		case <-cl.done:
		}

		c.mu.Lock()
		again := cl.invalidated
		cur, ok := c.entries[key]
		var out Entry
		if ok {
			out = c.snapshotLocked(cur)
		}
		c.mu.Unlock()
		if !ok {
			// Cleared while waiting; report the fetch itself.
			return Entry{Key: key, Data: cl.data, HasData: cl.err == nil, Err: cl.err}, cl.err
		}
		if !again {
			return out, out.Err
		}
	}
}

// Peek returns the current snapshot for key without starting anything.
func (c *Cache) Peek(key string) Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return Entry{Key: key}
	}
	return c.snapshotLocked(e)
}

// Invalidate marks key stale. Subscribed keys re-fetch immediately; others
// re-fetch on their next Read or Await. Readers keep seeing the old data
// until the new result replaces it. Unknown keys are ignored.
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	e, ok := c.entries[key]
	if !ok {
		c.mu.Unlock()
		return
	}
	invalidationsTotal.Inc()
	e.stale = true
	var started *call
	switch {
	case e.call != nil:
		e.call.invalidated = true
	case len(e.subs) > 0:
		started = c.startLocked(e)
	}
	c.bumpLocked(e)
	snap, subs := c.snapshotLocked(e), e.subscribers()
	c.mu.Unlock()

	c.logger.Debug().Str("key", key).Bool("refetch", started != nil).Msg("cache key invalidated")
	if started != nil {
		c.dispatch(key, started)
	}
	notify(subs, snap)
}

// Subscribe registers fn for every state transition of key and immediately
// delivers the current snapshot. It does not start a fetch. Deliveries run
// on a goroutine owned by the subscription, in Version order; intermediate
// states may be coalesced. The returned cancel func is idempotent.
func (c *Cache) Subscribe(key string, fn func(Entry)) (cancel func()) {
	c.mu.Lock()
	e := c.entryLocked(key)
	c.nextSub++
	id := c.nextSub
	s := newSubscription(fn)
	e.subs[id] = s
	snap := c.snapshotLocked(e)
	c.mu.Unlock()

	go s.loop()
	s.offer(snap)

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			if cur, ok := c.entries[key]; ok {
				delete(cur.subs, id)
			}
			c.mu.Unlock()
			s.stop()
		})
	}
}

// Clear forgets all cached data. Keys with subscribers stay registered and
// are notified with an empty snapshot; results of fetches in flight are
// discarded when they arrive.
func (c *Cache) Clear() {
	type pending struct {
		snap Entry
		subs []*subscription
	}
	var out []pending

	c.mu.Lock()
	for key, e := range c.entries {
		if len(e.subs) == 0 {
			delete(c.entries, key)
			continue
		}
		*e = entry{key: key, subs: e.subs}
		c.bumpLocked(e)
		out = append(out, pending{c.snapshotLocked(e), e.subscribers()})
	}
	c.mu.Unlock()

	for _, p := range out {
		notify(p.subs, p.snap)
	}
}

// Close cancels fetches in flight and stops all subscriptions.
func (c *Cache) Close() {
	c.cancel()
	c.mu.Lock()
	var subs []*subscription
	for _, e := range c.entries {
		subs = append(subs, e.subscribers()...)
		e.subs = map[uint64]*subscription{}
	}
	c.mu.Unlock()
	for _, s := range subs {
		s.stop()
	}
}

// ------------------------- internals -------------------------

func (c *Cache) entryLocked(key string) *entry {
	e, ok := c.entries[key]
	if !ok {
		e = &entry{key: key, subs: map[uint64]*subscription{}}
		c.entries[key] = e
		c.bumpLocked(e)
	}
	return e
}

func (c *Cache) bumpLocked(e *entry) {
	c.seq++
	e.version = c.seq
}

func (c *Cache) startLocked(e *entry) *call {
	cl := &call{done: make(chan struct{}), started: c.now()}
	e.call = cl
	c.bumpLocked(e)
	return cl
}

func (c *Cache) snapshotLocked(e *entry) Entry {
	return Entry{
		Key:           e.key,
		Data:          e.data,
		HasData:       e.hasData,
		Err:           e.err,
		LastFetchedAt: e.fetchedAt,
		Loading:       e.call != nil,
		Stale:         e.stale,
		Version:       e.version,
	}
}

// dispatch hands cl to the executor; a rejected submission settles cl with
// the scheduling error so waiters are released.
func (c *Cache) dispatch(key string, cl *call) {
	c.logger.Debug().Str("key", key).Msg("fetch started")
	job := &fetchJob{cache: c, key: key, call: cl}
	if err := c.exec.Submit(c.ctx, key, job); err != nil {
		c.settle(key, cl, nil, fmt.Errorf("schedule fetch %s: %w", key, err))
	}
}

func (c *Cache) settle(key string, cl *call, data any, err error) {
	elapsed := c.now().Sub(cl.started)
	fetchDuration.Observe(elapsed.Seconds())

	c.mu.Lock()
	cl.data, cl.err = data, err
	e, ok := c.entries[key]
	if !ok || e.call != cl {
		c.mu.Unlock()
		close(cl.done)
		fetchesTotal.WithLabelValues("discarded").Inc()
		c.logger.Debug().Str("key", key).Msg("fetch result discarded")
		return
	}

	e.call = nil
	e.attempted = true
	if err == nil {
		e.data, e.hasData, e.err = data, true, nil
		e.fetchedAt = c.now()
		e.stale = cl.invalidated
		fetchesTotal.WithLabelValues("ok").Inc()
	} else {
		// Keep prior data; only the error changes.
		e.err = err
		e.stale = e.stale || cl.invalidated
		fetchesTotal.WithLabelValues("error").Inc()
	}

	var next *call
	if cl.invalidated && len(e.subs) > 0 {
		next = c.startLocked(e)
	}
	c.bumpLocked(e)
	snap, subs := c.snapshotLocked(e), e.subscribers()
	c.mu.Unlock()

	close(cl.done)
	ev := c.logger.Debug()
	if err != nil {
		ev = c.logger.Warn().Err(err)
	}
	ev.Str("key", key).Dur("elapsed", elapsed).Bool("refetch", next != nil).Msg("fetch settled")

	if next != nil {
		c.dispatch(key, next)
	}
	notify(subs, snap)
}

func (e *entry) subscribers() []*subscription {
	if len(e.subs) == 0 {
		return nil
	}
	out := make([]*subscription, 0, len(e.subs))
	for _, s := range e.subs {
		out = append(out, s)
	}
	return out
}

func notify(subs []*subscription, snap Entry) {
	for _, s := range subs {
		s.offer(snap)
	}
}

// fetchJob adapts one call to the executor's Job and Completer contracts.
// Run may execute several times when the executor retries.
type fetchJob struct {
	cache *Cache
	key   string
	call  *call
	data  any
}

func (j *fetchJob) Run(ctx context.Context) error {
	data, err := j.cache.fetch(ctx, j.key)
	if err != nil {
		return err
	}
	j.data = data
	return nil
}

func (j *fetchJob) Complete(err error) {
	if err != nil {
		j.cache.settle(j.key, j.call, nil, err)
		return
	}
	j.cache.settle(j.key, j.call, j.data, nil)
}
