/*
store.go - Persistence contracts for users and projects

PURPOSE:
  Replaces framework-managed user/role stores with explicit interfaces
  that are injected into the services.

LOOKUP CONVENTIONS:
  - Get and Find methods return a not-found sentinel (errors.go) when nothing matches.
    Callers never receive (nil, nil).
  - List* return an empty slice, never an error, when nothing matches.
  - Returned records are copies; mutating them does not touch the store.

ORDERING:
  ListUsers orders by CreatedAt, newest first. ListUsersByRole orders by
  first name. ListMemberIDs keeps insertion order.

IMPLEMENTATIONS:
  - directory/store/memory.go: In-memory for tests
  - store/sqlite/sqlite.go: SQLite

SEE ALSO:
  - identity/service.go: The only consumer
*/
package directory

import (
	"context"

	"github.com/warp/identity-engine/role"
)

// UserStore persists user accounts.
//
// Email and user name comparisons ignore ASCII case only, the way SQLite's
// NOCASE collation does: "ADA@x.io" matches "ada@x.io" but "É@x.io" does not
// match "é@x.io".
type UserStore interface {
	// SaveUser inserts or replaces a user keyed by ID.
	// Returns ErrEmailTaken if another user already has the email.
	SaveUser(ctx context.Context, u User) error

	GetUser(ctx context.Context, id string) (User, error)
	FindUserByEmail(ctx context.Context, email string) (User, error)
	FindUserByUserName(ctx context.Context, userName string) (User, error)

	// FindUserBySlackUserName returns ErrSlackUserNotFound when absent.
	FindUserBySlackUserName(ctx context.Context, slackUserName string) (User, error)
	FindUserBySlackUserID(ctx context.Context, slackUserID string) (User, error)

	ListUsers(ctx context.Context) ([]User, error)
	ListUsersByRole(ctx context.Context, r role.Role, activeOnly bool) ([]User, error)
	ListUsersByIDs(ctx context.Context, ids []string) ([]User, error)
}

// ProjectStore persists projects and their members.
type ProjectStore interface {
	SaveProject(ctx context.Context, p Project) error
	GetProject(ctx context.Context, id string) (Project, error)
	FindProjectBySlackChannel(ctx context.Context, channel string) (Project, error)

	// ListProjectsByTeamLeader returns projects in creation order.
	ListProjectsByTeamLeader(ctx context.Context, leaderID string) ([]Project, error)

	// IsProjectLeader reports whether any project has leaderID as team leader.
	IsProjectLeader(ctx context.Context, leaderID string) (bool, error)

	// AddMember is idempotent.
	AddMember(ctx context.Context, m ProjectMember) error
	ListMemberIDs(ctx context.Context, projectID string) ([]string, error)
	ListProjectsByMember(ctx context.Context, userID string) ([]Project, error)
}

// Store is everything the identity services need.
type Store interface {
	UserStore
	ProjectStore
}
