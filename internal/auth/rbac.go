package auth

import "github.com/geocoder89/rolegate/internal/domain/user"

// RoleSet is the set of roles a route admits. There is no hierarchy between roles.
type RoleSet map[user.Role]struct{}

func NewRoleSet(roles ...user.Role) RoleSet {
	set := make(RoleSet, len(roles))
	for _, r := range roles {
		set[r] = struct{}{}
	}
	return set
}

func (s RoleSet) Has(r user.Role) bool {
	_, ok := s[r]
	return ok
}

// Authorize reports whether actual is one of the allowed roles.
func Authorize(allowed RoleSet, actual user.Role) bool {
	if !actual.Valid() {
		return false
	}
	return allowed.Has(actual)
}
