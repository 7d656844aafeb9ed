// Package policy maps roles to the UI capabilities a client may offer.
//
// The mapping is advisory: the server enforces authorization, and a request
// the policy allowed but the server rejected surfaces as an ordinary API error.
package policy

import (
	"strings"

	"github.com/taskboard/taskboard/client/internal/types"
)

// Capability is a single feature gate.
type Capability uint8

const (
	CanViewTeamRoster Capability = 1 << iota
	CanCreateProject
	CanCreateTask
)

var names = []struct {
	c    Capability
	name string
}{
	{CanViewTeamRoster, "view_team_roster"},
	{CanCreateProject, "create_project"},
	{CanCreateTask, "create_task"},
}

// String returns the snake_case name of a single capability.
func (c Capability) String() string {
	for _, n := range names {
		if n.c == c {
			return n.name
		}
	}
	return "unknown"
}

// Set is a bit set of capabilities.
type Set uint8

// None is the empty set.
const None Set = 0

// Has reports whether c is in the set.
func (s Set) Has(c Capability) bool { return s&Set(c) != 0 }

// List returns the capabilities in declaration order.
func (s Set) List() []Capability {
	var out []Capability
	for _, n := range names {
		if s.Has(n.c) {
			out = append(out, n.c)
		}
	}
	return out
}

func (s Set) String() string {
	list := s.List()
	if len(list) == 0 {
		return "none"
	}
	parts := make([]string, len(list))
	for i, c := range list {
		parts[i] = c.String()
	}
	return strings.Join(parts, ",")
}

// Capabilities returns the gates held by role. Unknown roles hold none.
func Capabilities(role types.Role) Set {
	switch role {
	case types.RoleAdmin, types.RoleManager:
		return Set(CanViewTeamRoster | CanCreateProject | CanCreateTask)
	default:
		return None
	}
}

// Allows is shorthand for Capabilities(role).Has(c).
func Allows(role types.Role, c Capability) bool { return Capabilities(role).Has(c) }
