package user

// Role is the authorisation tier carried by a user and its tokens.
// Only the constants below are valid; obtain a Role from input through ParseRole.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleModerator Role = "moderator"
	RoleUser      Role = "user"
)

// Roles lists every valid role.
var Roles = []Role{RoleAdmin, RoleModerator, RoleUser}

func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", ErrInvalidRole
	}
	return r, nil
}

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleModerator, RoleUser:
		return true
	}
	return false
}

// Title is the display form used in welcome messages ("Admin", "Moderator", "User").
func (r Role) Title() string {
	switch r {
	case RoleAdmin:
		return "Admin"
	case RoleModerator:
		return "Moderator"
	case RoleUser:
		return "User"
	}
	return ""
}

func (r Role) String() string {
	return string(r)
}
