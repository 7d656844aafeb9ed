package session

import "github.com/taskboard/taskboard/client/internal/types"

// Status is the lifecycle state of a session.
type Status int

const (
	StatusLoading Status = iota
	StatusAuthenticated
	StatusAnonymous
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusAuthenticated:
		return "authenticated"
	case StatusAnonymous:
		return "anonymous"
	}
	return "unknown"
}

// Snapshot is an immutable view of the session. An authenticated snapshot
// always carries both a token and an identity; an anonymous one carries
// neither.
type Snapshot struct {
	Token    string
	Identity *types.Identity
	Status   Status
	// Degraded marks an identity built from the token subject alone because
	// the roster could not be read.
	Degraded bool
	// Version increases with every transition.
	Version uint64
}

// Authenticated reports whether the snapshot holds a resolved identity.
func (s Snapshot) Authenticated() bool {
	return s.Status == StatusAuthenticated && s.Token != "" && s.Identity != nil
}

// UserID returns the identity's id, or 0 when not authenticated.
func (s Snapshot) UserID() int64 {
	if s.Identity == nil {
		return 0
	}
	return s.Identity.UserID
}
