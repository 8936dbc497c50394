package identity

import (
	"github.com/warp/identity-engine/directory"
	"github.com/warp/identity-engine/role"
)

// Profile is a user with the role to display for it. Depending on the
// query this is the effective role or the stored one.
type Profile struct {
	directory.User
	Role role.Role
}

// RoleEntry is one row of a role-based listing.
type RoleEntry struct {
	UserID   string
	UserName string
	Name     string
	Role     role.Role
}

func entryFor(u directory.User, r role.Role) RoleEntry {
	return RoleEntry{UserID: u.ID, UserName: u.UserName, Name: u.FullName(), Role: r}
}
