package cache

import "time"

// State is the consumer-facing condition of an entry.
type State int

const (
	// StateLoading: no data and no error yet; a fetch is pending or has not started.
	StateLoading State = iota
	// StateData: the last known data is valid (it may be stale and revalidating).
	StateData
	// StateError: the most recent fetch failed.
	StateError
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateData:
		return "data"
	case StateError:
		return "error"
	}
	return "unknown"
}

// Entry is an immutable snapshot of one cache key.
type Entry struct {
	Key           string
	Data          any
	HasData       bool
	Err           error
	LastFetchedAt time.Time
	// Loading is true while a fetch for the key is in flight. Stale data may
	// be present at the same time.
	Loading bool
	// Stale marks data known to predate a mutation.
	Stale bool
	// Version increases with every state transition across the whole cache.
	Version uint64
}

// State reports which of loading, data or error describes the entry. An
// error wins over retained data so a failed refresh is always visible.
func (e Entry) State() State {
	switch {
	case e.Err != nil:
		return StateError
	case e.HasData:
		return StateData
	default:
		return StateLoading
	}
}

// Value returns the entry's data as T.
func Value[T any](e Entry) (T, bool) {
	var zero T
	if !e.HasData {
		return zero, false
	}
	v, ok := e.Data.(T)
	if !ok {
		return zero, false
	}
	return v, true
}
