package cache

import "sync"

// subscription delivers snapshots to one observer from its own goroutine so
// observers can never block the cache or each other, and may call back into
// it. Only the newest pending snapshot is kept.
type subscription struct {
	fn   func(Entry)
	kick chan struct{}
	quit chan struct{}
	once sync.Once

	mu      sync.Mutex
	pending *Entry
	last    uint64 // touched only by loop
}

func newSubscription(fn func(Entry)) *subscription {
	return &subscription{
		fn:   fn,
		kick: make(chan struct{}, 1),
		quit: make(chan struct{}),
	}
}

func (s *subscription) offer(e Entry) {
	s.mu.Lock()
	if s.pending == nil || e.Version > s.pending.Version {
		s.pending = &e
	}
	s.mu.Unlock()
	select {
	case s.kick <- struct{}{}:
	default:
	}
}

func (s *subscription) loop() {
	for {
		select {
		case <-s.quit:
			return
		case <-s.kick:
			s.mu.Lock()
			p := s.pending
			s.pending = nil
			s.mu.Unlock()
			if p == nil || p.Version <= s.last {
				continue
			}
			s.last = p.Version
			s.fn(*p)
		}
	}
}

func (s *subscription) stop() { s.once.Do(func() { close(s.quit) }) }
