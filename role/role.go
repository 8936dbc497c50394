/*
Package role derives the effective role shown for a user.

PURPOSE:
  Users are stored with a base role of Admin or Employee. An Employee who
  leads at least one project is presented as TeamLeader. That status follows
  project assignments, which change independently of the user record, so it
  is derived on every query and never persisted.

ROLE NAMES:
  Stored role names are matched case-insensitively exactly once, in
  ParseRole. Everything past that boundary uses the Role enumeration.

SEE ALSO:
  - resolver.go: Resolve
  - identity/service.go: Uses Resolve for role-aware views
*/
package role

import (
	"errors"
	"fmt"
	"strings"
)

// Role is a closed enumeration. The zero value is not a valid role.
type Role int

const (
	unknown Role = iota
	Admin
	TeamLeader
	Employee
)

var names = map[Role]string{
	Admin:      "Admin",
	TeamLeader: "TeamLeader",
	Employee:   "Employee",
}

func (r Role) String() string {
	if n, ok := names[r]; ok {
		return n
	}
	return fmt.Sprintf("Role(%d)", int(r))
}

// Valid reports whether r is one of the declared roles.
func (r Role) Valid() bool {
	_, ok := names[r]
	return ok
}

// IsBase reports whether r may be stored on a user record.
func (r Role) IsBase() bool {
	return r == Admin || r == Employee
}

// BaseRoles are the roles that can be assigned to a user.
func BaseRoles() []Role {
	return []Role{Admin, Employee}
}

// ErrUnsupportedRoleKind is returned for roles outside {Admin, Employee}
// where a base role is required, and for unrecognised role names.
var ErrUnsupportedRoleKind = errors.New("unsupported role kind")

// ParseRole maps a stored role name to a Role, ignoring case.
func ParseRole(raw string) (Role, error) {
	s := strings.TrimSpace(raw)
	for r, n := range names {
		if strings.EqualFold(s, n) {
			return r, nil
		}
	}
	if strings.EqualFold(s, "team leader") || strings.EqualFold(s, "team_leader") {
		return TeamLeader, nil
	}
	return unknown, fmt.Errorf("%w: %q", ErrUnsupportedRoleKind, raw)
}

// MarshalText stores roles by name.
func (r Role) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedRoleKind, int(r))
	}
	return []byte(r.String()), nil
}

func (r *Role) UnmarshalText(b []byte) error {
	parsed, err := ParseRole(string(b))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
