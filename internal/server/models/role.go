package models

import "fmt"

// Role is an access tag carried in tokens and stored on a user.
type Role string

const (
	RoleAdmin   Role = "Admin"
	RoleHR      Role = "HR"
	RoleManager Role = "Manager"
	RoleGeneral Role = "General"
)

// AllRoles lists every known role.
var AllRoles = []Role{RoleAdmin, RoleHR, RoleManager, RoleGeneral}

// Valid reports whether r is one of AllRoles.
func (r Role) Valid() bool {
	for _, known := range AllRoles {
		if r == known {
			return true
		}
	}
	return false
}

// ParseRoles converts names into roles, rejecting unknown ones.
func ParseRoles(names []string) ([]Role, error) {
	roles := make([]Role, 0, len(names))
	for _, n := range names {
		r := Role(n)
		if !r.Valid() {
			return nil, fmt.Errorf("unknown role %q", n)
		}
		roles = append(roles, r)
	}
	return roles, nil
}

// HasAnyRole reports whether have and want share at least one role.
// An empty want matches anything.
func HasAnyRole(have []Role, want ...Role) bool {
	if len(want) == 0 {
		return true
	}
	for _, h := range have {
		for _, w := range want {
			if h == w {
				return true
			}
		}
	}
	return false
}

// RoleNames returns roles as plain strings, in order.
func RoleNames(roles []Role) []string {
	out := make([]string, len(roles))
	for i, r := range roles {
		out[i] = string(r)
	}
	return out
}

var roleRank = map[Role]int{
	RoleGeneral: 0,
	RoleManager: 1,
	RoleHR:      2,
	RoleAdmin:   3,
}

// Covers reports whether every role in want is matched or outranked by some
// role in have. An empty want is covered by anyone; unknown roles by no one.
func Covers(have []Role, want ...Role) bool {
	top := -1
	for _, h := range have {
		if r, ok := roleRank[h]; ok && r > top {
			top = r
		}
	}
	for _, w := range want {
		r, ok := roleRank[w]
		if !ok || r > top {
			return false
		}
	}
	return true
}
