/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the directory model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Small wrappers (exists, created, errors)

VALUE ENCODING:
  - Dates: "YYYY-MM-DD"; timestamps: RFC 3339
  - Leave balances: decimal strings ("5.5")
  - Roles: "Admin", "TeamLeader", "Employee"

VALIDATION:
  Validation is done by identity.Service, not in DTOs. DTOs are pure data
  carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - factory/policy.go: PolicyJSON type
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/identity-engine/directory"
	"github.com/warp/identity-engine/factory"
	"github.com/warp/identity-engine/identity"
	"github.com/warp/identity-engine/leave"
	"github.com/warp/identity-engine/role"
)

// =============================================================================
// USERS
// =============================================================================

// UserDTO represents a user in API responses. Role is the stored base
// role or, on role-aware endpoints, the effective role.
type UserDTO struct {
	ID            string          `json:"id"`
	FirstName     string          `json:"first_name"`
	LastName      string          `json:"last_name"`
	Email         string          `json:"email"`
	UserName      string          `json:"user_name"`
	IsActive      bool            `json:"is_active"`
	JoiningDate   string          `json:"joining_date"`
	SlackUserName string          `json:"slack_user_name,omitempty"`
	SlackUserID   string          `json:"slack_user_id,omitempty"`
	CasualLeave   decimal.Decimal `json:"casual_leave"`
	SickLeave     decimal.Decimal `json:"sick_leave"`
	Role          role.Role       `json:"role"`
	CreatedBy     string          `json:"created_by,omitempty"`
	CreatedAt     string          `json:"created_at,omitempty"`
	UpdatedBy     string          `json:"updated_by,omitempty"`
	UpdatedAt     string          `json:"updated_at,omitempty"`
}

// CreateUserRequest is the request to create a user. IsActive defaults
// to true.
type CreateUserRequest struct {
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	Email         string `json:"email"`
	JoiningDate   string `json:"joining_date"`
	SlackUserName string `json:"slack_user_name"`
	SlackUserID   string `json:"slack_user_id"`
	IsActive      *bool  `json:"is_active"`
	Role          string `json:"role"`
}

// UpdateUserRequest is the request to edit a user.
type UpdateUserRequest struct {
	FirstName     string          `json:"first_name"`
	LastName      string          `json:"last_name"`
	Email         string          `json:"email"`
	IsActive      bool            `json:"is_active"`
	CasualLeave   decimal.Decimal `json:"casual_leave"`
	SickLeave     decimal.Decimal `json:"sick_leave"`
	SlackUserName string          `json:"slack_user_name"`
	Role          string          `json:"role"`
}

// RoleEntryDTO is one row of a role listing.
type RoleEntryDTO struct {
	UserID   string    `json:"user_id"`
	UserName string    `json:"user_name"`
	Name     string    `json:"name"`
	Role     role.Role `json:"role"`
}

// =============================================================================
// PROJECTS
// =============================================================================

type ProjectDTO struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	TeamLeaderID     string `json:"team_leader_id"`
	SlackChannelName string `json:"slack_channel_name,omitempty"`
	IsActive         bool   `json:"is_active"`
	CreatedBy        string `json:"created_by,omitempty"`
	CreatedAt        string `json:"created_at,omitempty"`
}

// CreateProjectRequest is the request to create a project. IsActive
// defaults to true.
type CreateProjectRequest struct {
	Name             string `json:"name"`
	TeamLeaderID     string `json:"team_leader_id"`
	SlackChannelName string `json:"slack_channel_name"`
	IsActive         *bool  `json:"is_active"`
}

type AddMemberRequest struct {
	UserID string `json:"user_id"`
}

// =============================================================================
// LEAVE
// =============================================================================

// LeaveDTO carries casual and sick day counts.
type LeaveDTO struct {
	CasualLeave decimal.Decimal `json:"casual_leave"`
	SickLeave   decimal.Decimal `json:"sick_leave"`
}

// CalculateLeaveRequest asks for the entitlement of a joining date.
// ReferenceYear defaults to the current year and Policy to the server's.
type CalculateLeaveRequest struct {
	JoiningDate   string              `json:"joining_date"`
	ReferenceYear int                 `json:"reference_year,omitempty"`
	Policy        *factory.PolicyJSON `json:"policy,omitempty"`
}

type CalculateLeaveResponse struct {
	JoiningDate   string             `json:"joining_date"`
	ReferenceYear int                `json:"reference_year"`
	Policy        factory.PolicyJSON `json:"policy"`
	Entitlement   LeaveDTO           `json:"entitlement"`
}

// =============================================================================
// SCENARIOS
// =============================================================================

// ScenarioDTO describes a demo directory.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// =============================================================================
// SMALL RESPONSES
// =============================================================================

type ExistsResponse struct {
	Exists bool `json:"exists"`
}

type IsAdminResponse struct {
	IsAdmin bool `json:"is_admin"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toUserDTO(u directory.User) UserDTO {
	return UserDTO{
		ID:            u.ID,
		FirstName:     u.FirstName,
		LastName:      u.LastName,
		Email:         u.Email,
		UserName:      u.UserName,
		IsActive:      u.IsActive,
		JoiningDate:   u.JoiningDate.String(),
		SlackUserName: u.SlackUserName,
		SlackUserID:   u.SlackUserID,
		CasualLeave:   u.CasualLeave,
		SickLeave:     u.SickLeave,
		Role:          u.Role,
		CreatedBy:     u.CreatedBy,
		CreatedAt:     formatTimestamp(u.CreatedAt),
		UpdatedBy:     u.UpdatedBy,
		UpdatedAt:     formatTimestamp(u.UpdatedAt),
	}
}

func toUserDTOs(users []directory.User) []UserDTO {
	dtos := make([]UserDTO, len(users))
	for i, u := range users {
		dtos[i] = toUserDTO(u)
	}
	return dtos
}

func toProfileDTO(p identity.Profile) UserDTO {
	dto := toUserDTO(p.User)
	dto.Role = p.Role
	return dto
}

func toProfileDTOs(profiles []identity.Profile) []UserDTO {
	dtos := make([]UserDTO, len(profiles))
	for i, p := range profiles {
		dtos[i] = toProfileDTO(p)
	}
	return dtos
}

func toRoleEntryDTOs(entries []identity.RoleEntry) []RoleEntryDTO {
	dtos := make([]RoleEntryDTO, len(entries))
	for i, e := range entries {
		dtos[i] = RoleEntryDTO{UserID: e.UserID, UserName: e.UserName, Name: e.Name, Role: e.Role}
	}
	return dtos
}

func toProjectDTO(p directory.Project) ProjectDTO {
	return ProjectDTO{
		ID:               p.ID,
		Name:             p.Name,
		TeamLeaderID:     p.TeamLeaderID,
		SlackChannelName: p.SlackChannelName,
		IsActive:         p.IsActive,
		CreatedBy:        p.CreatedBy,
		CreatedAt:        formatTimestamp(p.CreatedAt),
	}
}

func toLeaveDTO(e leave.Entitlement) LeaveDTO {
	return LeaveDTO{CasualLeave: e.Casual, SickLeave: e.Sick}
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
