package role

import "fmt"

// LeaderLookup answers "is there a project whose team leader is userID".
// Implementations that hit storage bind their context in a closure.
type LeaderLookup func(userID string) (bool, error)

// Resolve returns the effective role for a user with the given base role.
// Admins are returned as-is without consulting lookup.
func Resolve(userID string, base Role, isProjectLeader LeaderLookup) (Role, error) {
	switch base {
	case Admin:
		return Admin, nil
	case Employee:
		leads, err := isProjectLeader(userID)
		if err != nil {
			return unknown, fmt.Errorf("resolve role for %s: %w", userID, err)
		}
		if leads {
			return TeamLeader, nil
		}
		return Employee, nil
	default:
		return unknown, fmt.Errorf("%w: base role %s for user %s", ErrUnsupportedRoleKind, base, userID)
	}
}
