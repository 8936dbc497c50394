/*
Package directory holds the user and project records of the identity server
and the storage contracts the services depend on.

PURPOSE:
  The provisioning and query services never talk to a database directly.
  They receive a Store (this package) and work with plain records, so the
  same service code runs against SQLite in production and an in-memory
  store in tests.

KEY CONCEPTS IN THIS FILE (types.go):
  - User: An account, its stored base role and its leave balances
  - Project: A team with exactly one team leader
  - ProjectMember: Membership of a user in a project

BASE ROLE vs EFFECTIVE ROLE:
  User.Role is the stored base role (Admin or Employee). Whether the user
  is a TeamLeader is never stored; see package role.

SEE ALSO:
  - store.go: UserStore / ProjectStore interfaces
  - errors.go: Sentinel errors
  - store/memory.go: In-memory implementation
  - store/sqlite: SQLite implementation
*/
package directory

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/identity-engine/leave"
	"github.com/warp/identity-engine/role"
)

// =============================================================================
// USER
// =============================================================================

type User struct {
	ID            string
	FirstName     string
	LastName      string
	Email         string
	UserName      string // always the email address
	IsActive      bool
	JoiningDate   leave.Date
	SlackUserName string
	SlackUserID   string
	CasualLeave   decimal.Decimal
	SickLeave     decimal.Decimal
	Role          role.Role

	// Audit fields
	CreatedBy string
	CreatedAt time.Time
	UpdatedBy string
	UpdatedAt time.Time
}

// FullName is "First Last", trimmed when one part is missing.
func (u User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// Entitlement returns the stored leave balances.
func (u User) Entitlement() leave.Entitlement {
	return leave.Entitlement{Casual: u.CasualLeave, Sick: u.SickLeave}
}

// =============================================================================
// PROJECT
// =============================================================================

type Project struct {
	ID               string
	Name             string
	TeamLeaderID     string
	SlackChannelName string
	IsActive         bool
	CreatedBy        string
	CreatedAt        time.Time
}

type ProjectMember struct {
	ProjectID string
	UserID    string
}
