/*
handlers.go - HTTP API handlers for the identity service

PURPOSE:
  Exposes user provisioning, role-aware user queries and the leave
  calculator via REST API. Handles HTTP request/response and JSON
  serialization, and delegates to identity.Service.

ENDPOINTS:
  Users:
    GET    /api/users                         List users, newest first
    POST   /api/users                         Create user (leave is prorated)
    GET    /api/users/employees               Active users by first name
    GET    /api/users/{id}                    User with stored role
    PUT    /api/users/{id}                    Edit user
    GET    /api/users/{id}/detail             User with effective role
    GET    /api/users/{id}/roles              Role listing visible to the user
    GET    /api/users/{id}/team-members       Leader + first project's members
    GET    /api/users/{id}/project-users      Leader + all projects' members
    GET    /api/users/email/{email}/exists    Email registered?
    GET    /api/users/username/{name}/exists  User name registered? (404 if not)

  Slack:
    GET    /api/slack/users/{slackUserId}                User by slack ID
    GET    /api/slack/users/{slackUserId}/team-leaders   Leaders of the user's projects
    GET    /api/slack/users/{slackUserId}/leave-allowed  Stored balances
    GET    /api/slack/users/{slackUserId}/is-admin       Admin check
    GET    /api/slack/usernames/{name}                   User by slack user name
    GET    /api/slack/channels/{channel}/users           Members of a channel's project

  Other:
    GET    /api/roles                 Assignable roles
    GET    /api/management            Admin users
    POST   /api/projects              Create project
    POST   /api/projects/{id}/members Add member
    GET    /api/leave/policy          Active annual policy
    POST   /api/leave/calculate       Entitlement for a joining date

ACTOR:
  Audit fields (created_by, updated_by) come from the X-User-ID header.
  There is no authentication here.

ERROR HANDLING:
  Errors are returned as JSON with the status chosen by statusFor:
  - 400: Validation errors, unsupported roles, bad policies
  - 404: User, slack user or project not found
  - 409: Email or slack user name already taken
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo directory loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/warp/identity-engine/directory"
	"github.com/warp/identity-engine/factory"
	"github.com/warp/identity-engine/identity"
	"github.com/warp/identity-engine/leave"
	"github.com/warp/identity-engine/role"
)

// ActorHeader names the caller for audit fields.
const ActorHeader = "X-User-ID"

const systemActor = "system"

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// ResettableStore is a directory store that can be emptied, which demo
// scenarios need.
type ResettableStore interface {
	directory.Store
	Reset(ctx context.Context) error
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Service       *identity.Service
	Store         ResettableStore
	PolicyFactory *factory.PolicyFactory
	logger        *slog.Logger

	// Track currently loaded scenario
	mu              sync.RWMutex
	currentScenario string
}

// NewHandler creates a new handler. The service must be built on store.
func NewHandler(svc *identity.Service, store ResettableStore, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		Service:       svc,
		Store:         store,
		PolicyFactory: factory.NewPolicyFactory(),
		logger:        logger,
	}
}

// =============================================================================
// USER HANDLERS
// =============================================================================

// ListUsers returns all users, newest first.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.Service.ListUsers(r.Context())
	if err != nil {
		h.writeServiceError(w, r, "Failed to list users", err)
		return
	}
	writeJSON(w, http.StatusOK, toUserDTOs(users))
}

// ListEmployees returns active users ordered by first name.
func (h *Handler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	users, err := h.Service.ListActiveEmployees(r.Context())
	if err != nil {
		h.writeServiceError(w, r, "Failed to list employees", err)
		return
	}
	writeJSON(w, http.StatusOK, toUserDTOs(users))
}

// GetUser returns a user with its stored role.
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	u, err := h.Service.GetUser(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, "Failed to get user", err)
		return
	}
	writeJSON(w, http.StatusOK, toUserDTO(u))
}

// CreateUser provisions a user.
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	joined, err := leave.ParseDate(req.JoiningDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid joining_date format (use YYYY-MM-DD)", err)
		return
	}
	base, err := role.ParseRole(req.Role)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid role", err)
		return
	}

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}

	id, err := h.Service.AddUser(r.Context(), identity.NewUser{
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		Email:         req.Email,
		JoiningDate:   joined,
		SlackUserName: req.SlackUserName,
		SlackUserID:   req.SlackUserID,
		IsActive:      active,
		Role:          base,
	}, actor(r))
	if err != nil {
		h.writeServiceError(w, r, "Failed to create user", err)
		return
	}

	u, err := h.Service.GetUser(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, "Failed to load created user", err)
		return
	}
	writeJSON(w, http.StatusCreated, toUserDTO(u))
}

// UpdateUser edits a user. Leave balances are taken as given.
func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	var req UpdateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	base, err := role.ParseRole(req.Role)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid role", err)
		return
	}

	id, err := h.Service.UpdateUser(r.Context(), identity.UserUpdate{
		ID:            chi.URLParam(r, "id"),
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		Email:         req.Email,
		IsActive:      req.IsActive,
		CasualLeave:   req.CasualLeave,
		SickLeave:     req.SickLeave,
		SlackUserName: req.SlackUserName,
		Role:          base,
	}, actor(r))
	if err != nil {
		h.writeServiceError(w, r, "Failed to update user", err)
		return
	}

	u, err := h.Service.GetUser(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, "Failed to load updated user", err)
		return
	}
	writeJSON(w, http.StatusOK, toUserDTO(u))
}

// GetUserDetail returns a user with its effective role.
func (h *Handler) GetUserDetail(w http.ResponseWriter, r *http.Request) {
	p, err := h.Service.UserDetail(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, "Failed to get user detail", err)
		return
	}
	writeJSON(w, http.StatusOK, toProfileDTO(p))
}

// GetUserRoles returns the role listing visible to the user.
func (h *Handler) GetUserRoles(w http.ResponseWriter, r *http.Request) {
	entries, err := h.Service.UserRoles(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, "Failed to get user roles", err)
		return
	}
	writeJSON(w, http.StatusOK, toRoleEntryDTOs(entries))
}

// GetTeamMembers returns the leader and the members of its first project.
func (h *Handler) GetTeamMembers(w http.ResponseWriter, r *http.Request) {
	entries, err := h.Service.TeamMembers(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, "Failed to get team members", err)
		return
	}
	writeJSON(w, http.StatusOK, toRoleEntryDTOs(entries))
}

// GetProjectUsers returns the leader and the members of all its projects.
func (h *Handler) GetProjectUsers(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.Service.ProjectUsersByTeamLeader(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, "Failed to get project users", err)
		return
	}
	writeJSON(w, http.StatusOK, toProfileDTOs(profiles))
}

func (h *Handler) EmailExists(w http.ResponseWriter, r *http.Request) {
	exists, err := h.Service.EmailExists(r.Context(), chi.URLParam(r, "email"))
	if err != nil {
		h.writeServiceError(w, r, "Failed to check email", err)
		return
	}
	writeJSON(w, http.StatusOK, ExistsResponse{Exists: exists})
}

// UserNameExists answers 404 when the user name is unknown.
func (h *Handler) UserNameExists(w http.ResponseWriter, r *http.Request) {
	exists, err := h.Service.UserNameExists(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		h.writeServiceError(w, r, "User name not found", err)
		return
	}
	writeJSON(w, http.StatusOK, ExistsResponse{Exists: exists})
}

// =============================================================================
// SLACK HANDLERS
// =============================================================================

func (h *Handler) GetSlackUser(w http.ResponseWriter, r *http.Request) {
	u, err := h.Service.UserBySlackID(r.Context(), chi.URLParam(r, "slackUserId"))
	if err != nil {
		h.writeServiceError(w, r, "Failed to get slack user", err)
		return
	}
	writeJSON(w, http.StatusOK, toUserDTO(u))
}

func (h *Handler) GetSlackUserByName(w http.ResponseWriter, r *http.Request) {
	u, err := h.Service.FindBySlackUserName(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		h.writeServiceError(w, r, "Failed to get slack user", err)
		return
	}
	writeJSON(w, http.StatusOK, toUserDTO(u))
}

func (h *Handler) GetTeamLeaders(w http.ResponseWriter, r *http.Request) {
	leaders, err := h.Service.TeamLeadersOf(r.Context(), chi.URLParam(r, "slackUserId"))
	if err != nil {
		h.writeServiceError(w, r, "Failed to get team leaders", err)
		return
	}
	writeJSON(w, http.StatusOK, toUserDTOs(leaders))
}

func (h *Handler) GetAllowedLeave(w http.ResponseWriter, r *http.Request) {
	ent, err := h.Service.AllowedLeave(r.Context(), chi.URLParam(r, "slackUserId"))
	if err != nil {
		h.writeServiceError(w, r, "Failed to get allowed leave", err)
		return
	}
	writeJSON(w, http.StatusOK, toLeaveDTO(ent))
}

func (h *Handler) IsAdmin(w http.ResponseWriter, r *http.Request) {
	admin, err := h.Service.IsAdmin(r.Context(), chi.URLParam(r, "slackUserId"))
	if err != nil {
		h.writeServiceError(w, r, "Failed to check admin", err)
		return
	}
	writeJSON(w, http.StatusOK, IsAdminResponse{IsAdmin: admin})
}

func (h *Handler) GetChannelUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.Service.ProjectUsersBySlackChannel(r.Context(), chi.URLParam(r, "channel"))
	if err != nil {
		h.writeServiceError(w, r, "Failed to get channel users", err)
		return
	}
	writeJSON(w, http.StatusOK, toUserDTOs(users))
}

// =============================================================================
// ROLE / MANAGEMENT HANDLERS
// =============================================================================

// ListRoles returns the roles a user can be assigned.
func (h *Handler) ListRoles(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Service.Roles())
}

func (h *Handler) ListManagement(w http.ResponseWriter, r *http.Request) {
	users, err := h.Service.Management(r.Context())
	if err != nil {
		h.writeServiceError(w, r, "Failed to list management", err)
		return
	}
	writeJSON(w, http.StatusOK, toUserDTOs(users))
}

// =============================================================================
// PROJECT HANDLERS
// =============================================================================

func (h *Handler) CreateProject(w http.ResponseWriter, r *http.Request) {
	var req CreateProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}

	id, err := h.Service.CreateProject(r.Context(), identity.NewProject{
		Name:             req.Name,
		TeamLeaderID:     req.TeamLeaderID,
		SlackChannelName: req.SlackChannelName,
		IsActive:         active,
	}, actor(r))
	if err != nil {
		h.writeServiceError(w, r, "Failed to create project", err)
		return
	}

	p, err := h.Service.GetProject(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, "Failed to load created project", err)
		return
	}
	writeJSON(w, http.StatusCreated, toProjectDTO(p))
}

func (h *Handler) AddProjectMember(w http.ResponseWriter, r *http.Request) {
	var req AddMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := h.Service.AddProjectMember(r.Context(), chi.URLParam(r, "id"), req.UserID); err != nil {
		h.writeServiceError(w, r, "Failed to add project member", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// LEAVE HANDLERS
// =============================================================================

func (h *Handler) GetLeavePolicy(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.PolicyFactory.ToJSON(h.Service.Policy()))
}

// CalculateLeave runs the calculator without touching any user.
func (h *Handler) CalculateLeave(w http.ResponseWriter, r *http.Request) {
	var req CalculateLeaveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	joined, err := leave.ParseDate(req.JoiningDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid joining_date format (use YYYY-MM-DD)", err)
		return
	}

	policy := h.Service.Policy()
	if req.Policy != nil {
		if policy, err = h.PolicyFactory.FromJSON(*req.Policy); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid policy", err)
			return
		}
	}

	year := req.ReferenceYear
	if year == 0 {
		year = h.Service.ReferenceYear()
	}

	ent := leave.NewCalculator().Compute(joined, year, policy)
	writeJSON(w, http.StatusOK, CalculateLeaveResponse{
		JoiningDate:   joined.String(),
		ReferenceYear: year,
		Policy:        h.PolicyFactory.ToJSON(policy),
		Entitlement:   toLeaveDTO(ent),
	})
}

// =============================================================================
// HELPERS
// =============================================================================

func actor(r *http.Request) string {
	if id := r.Header.Get(ActorHeader); id != "" {
		return id
	}
	return systemActor
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, identity.ErrInvalidInput),
		errors.Is(err, role.ErrUnsupportedRoleKind),
		errors.Is(err, factory.ErrInvalidPolicy):
		return http.StatusBadRequest
	case directory.IsNotFound(err):
		return http.StatusNotFound
	case directory.IsConflict(err):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, message string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.ErrorContext(r.Context(), message, slog.String("error", err.Error()))
	}
	writeError(w, status, message, err)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
