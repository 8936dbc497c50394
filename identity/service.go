/*
Package identity implements user provisioning and role-aware user queries.

PURPOSE:
  This is the collaborator layer around the two pure procedures:
  - Provisioning (AddUser, UpdateUser) computes leave entitlements with
    leave.Calculator at the moment a user is created.
  - Queries that present roles (UserDetail, UserRoles, TeamMembers, ...)
    derive TeamLeader status with role.Resolve on every call.

DEPENDENCIES (all injected):
  - directory.Store:   users, projects, memberships
  - leave.AnnualPolicy: casual/sick days for a full fiscal year
  - clock:             wall clock; only its year feeds the calculator
  - id generator:      UUIDs by default
  - *slog.Logger:      provisioning events

CONCURRENCY:
  Service holds no mutable state. Role resolution for a batch of users is
  not a consistent snapshot; each lookup sees the store as it is then.

NOT HERE:
  Passwords, credential e-mails and authentication live elsewhere.

SEE ALSO:
  - views.go: Read-side result types
  - api/handlers.go: HTTP surface
*/
package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/warp/identity-engine/directory"
	"github.com/warp/identity-engine/leave"
	"github.com/warp/identity-engine/role"
)

// =============================================================================
// SERVICE
// =============================================================================

type Service struct {
	store  directory.Store
	calc   *leave.Calculator
	policy leave.AnnualPolicy
	now    func() time.Time
	newID  func() string
	logger *slog.Logger
}

type Option func(*Service)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDGenerator replaces uuid.NewString.
func WithIDGenerator(gen func() string) Option {
	return func(s *Service) { s.newID = gen }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func NewService(store directory.Store, policy leave.AnnualPolicy, opts ...Option) *Service {
	s := &Service{
		store:  store,
		calc:   leave.NewCalculator(),
		policy: policy,
		now:    time.Now,
		newID:  uuid.NewString,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Policy returns the annual policy new users are prorated against.
func (s *Service) Policy() leave.AnnualPolicy {
	return s.policy
}

// CalculateLeave exposes the calculator with the service's policy and clock.
func (s *Service) CalculateLeave(joined leave.Date) leave.Entitlement {
	return s.calc.Compute(joined, s.now().Year(), s.policy)
}

// Roles returns the roles that can be assigned to a user.
func (s *Service) Roles() []role.Role {
	return role.BaseRoles()
}

// =============================================================================
// PROVISIONING
// =============================================================================

// NewUser is the input to AddUser.
type NewUser struct {
	FirstName     string
	LastName      string
	Email         string
	JoiningDate   leave.Date
	SlackUserName string
	SlackUserID   string
	IsActive      bool
	Role          role.Role
}

// AddUser creates a user, computing leave from the joining date, and
// returns the new user's ID.
func (s *Service) AddUser(ctx context.Context, in NewUser, createdBy string) (string, error) {
	if err := validateIdentity(in.FirstName, in.Email); err != nil {
		return "", err
	}
	if in.JoiningDate.IsZero() {
		return "", invalid("joining_date", "is required")
	}
	if !in.Role.IsBase() {
		return "", unsupportedBaseRole(in.Role)
	}

	exists, err := s.EmailExists(ctx, in.Email)
	if err != nil {
		return "", err
	}
	if exists {
		return "", directory.ErrEmailTaken
	}
	if err := s.claimSlackUserName(ctx, in.SlackUserName, ""); err != nil {
		return "", err
	}

	now := s.now()
	ent := s.calc.Compute(in.JoiningDate, now.Year(), s.policy)

	u := directory.User{
		ID:            s.newID(),
		FirstName:     strings.TrimSpace(in.FirstName),
		LastName:      strings.TrimSpace(in.LastName),
		Email:         strings.TrimSpace(in.Email),
		IsActive:      in.IsActive,
		JoiningDate:   in.JoiningDate,
		SlackUserName: in.SlackUserName,
		SlackUserID:   in.SlackUserID,
		CasualLeave:   ent.Casual,
		SickLeave:     ent.Sick,
		Role:          in.Role,
		CreatedBy:     createdBy,
		CreatedAt:     now,
	}
	u.UserName = u.Email

	if err := s.store.SaveUser(ctx, u); err != nil {
		return "", err
	}

	s.logger.InfoContext(ctx, "user provisioned",
		slog.String("user_id", u.ID),
		slog.String("role", u.Role.String()),
		slog.String("joining_date", u.JoiningDate.String()),
		slog.String("casual_leave", u.CasualLeave.String()),
		slog.String("sick_leave", u.SickLeave.String()),
		slog.String("created_by", createdBy),
	)
	return u.ID, nil
}

// claimSlackUserName fails with ErrSlackUserNameTaken when a user other than
// selfID already has the slack user name. An empty name is never taken.
func (s *Service) claimSlackUserName(ctx context.Context, name, selfID string) error {
	if name == "" {
		return nil
	}
	owner, err := s.store.FindUserBySlackUserName(ctx, name)
	switch {
	case err == nil && owner.ID != selfID:
		return directory.ErrSlackUserNameTaken
	case err != nil && !directory.IsNotFound(err):
		return err
	}
	return nil
}

// UserUpdate is the input to UpdateUser. Leave balances are set verbatim;
// they are not recomputed.
type UserUpdate struct {
	ID            string
	FirstName     string
	LastName      string
	Email         string
	IsActive      bool
	CasualLeave   decimal.Decimal
	SickLeave     decimal.Decimal
	SlackUserName string
	Role          role.Role
}

// UpdateUser edits an existing user and returns its ID.
func (s *Service) UpdateUser(ctx context.Context, in UserUpdate, updatedBy string) (string, error) {
	if err := validateIdentity(in.FirstName, in.Email); err != nil {
		return "", err
	}
	if in.CasualLeave.IsNegative() {
		return "", invalid("casual_leave", "must not be negative")
	}
	if in.SickLeave.IsNegative() {
		return "", invalid("sick_leave", "must not be negative")
	}
	if !in.Role.IsBase() {
		return "", unsupportedBaseRole(in.Role)
	}

	if err := s.claimSlackUserName(ctx, in.SlackUserName, in.ID); err != nil {
		return "", err
	}

	u, err := s.store.GetUser(ctx, in.ID)
	if err != nil {
		return "", err
	}

	previousRole := u.Role
	u.FirstName = strings.TrimSpace(in.FirstName)
	u.LastName = strings.TrimSpace(in.LastName)
	u.Email = strings.TrimSpace(in.Email)
	u.UserName = u.Email
	u.IsActive = in.IsActive
	u.CasualLeave = in.CasualLeave
	u.SickLeave = in.SickLeave
	u.SlackUserName = in.SlackUserName
	u.Role = in.Role
	u.UpdatedBy = updatedBy
	u.UpdatedAt = s.now()

	if err := s.store.SaveUser(ctx, u); err != nil {
		return "", err
	}

	attrs := []any{slog.String("user_id", u.ID), slog.String("updated_by", updatedBy)}
	if previousRole != u.Role {
		attrs = append(attrs, slog.String("role_from", previousRole.String()), slog.String("role_to", u.Role.String()))
	}
	s.logger.InfoContext(ctx, "user updated", attrs...)
	return u.ID, nil
}

func validateIdentity(firstName, email string) error {
	if strings.TrimSpace(firstName) == "" {
		return invalid("first_name", "is required")
	}
	if strings.TrimSpace(email) == "" {
		return invalid("email", "is required")
	}
	if _, err := mail.ParseAddress(strings.TrimSpace(email)); err != nil {
		return invalid("email", "is not a valid address")
	}
	return nil
}

func unsupportedBaseRole(r role.Role) error {
	return fmt.Errorf("%w: %s cannot be assigned", role.ErrUnsupportedRoleKind, r)
}

// =============================================================================
// LOOKUPS
// =============================================================================

func (s *Service) GetUser(ctx context.Context, id string) (directory.User, error) {
	return s.store.GetUser(ctx, id)
}

// ListUsers returns every user, newest first.
func (s *Service) ListUsers(ctx context.Context) ([]directory.User, error) {
	return s.store.ListUsers(ctx)
}

// ListActiveEmployees returns active users of any role ordered by first name.
func (s *Service) ListActiveEmployees(ctx context.Context) ([]directory.User, error) {
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	active := users[:0]
	for _, u := range users {
		if u.IsActive {
			active = append(active, u)
		}
	}
	sort.SliceStable(active, func(i, j int) bool {
		return active[i].FirstName < active[j].FirstName
	})
	return active, nil
}

func (s *Service) EmailExists(ctx context.Context, email string) (bool, error) {
	_, err := s.store.FindUserByEmail(ctx, strings.TrimSpace(email))
	if directory.IsNotFound(err) {
		return false, nil
	}
	return err == nil, err
}

// UserNameExists returns true, or ErrUserNotFound when no user has the name.
func (s *Service) UserNameExists(ctx context.Context, userName string) (bool, error) {
	if _, err := s.store.FindUserByUserName(ctx, userName); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Service) FindBySlackUserName(ctx context.Context, slackUserName string) (directory.User, error) {
	return s.store.FindUserBySlackUserName(ctx, slackUserName)
}

func (s *Service) UserBySlackID(ctx context.Context, slackUserID string) (directory.User, error) {
	return s.store.FindUserBySlackUserID(ctx, slackUserID)
}

// AllowedLeave returns the stored leave balances of a slack user.
func (s *Service) AllowedLeave(ctx context.Context, slackUserID string) (leave.Entitlement, error) {
	u, err := s.store.FindUserBySlackUserID(ctx, slackUserID)
	if err != nil {
		return leave.Entitlement{}, err
	}
	return u.Entitlement(), nil
}

func (s *Service) IsAdmin(ctx context.Context, slackUserID string) (bool, error) {
	u, err := s.store.FindUserBySlackUserID(ctx, slackUserID)
	if err != nil {
		return false, err
	}
	return u.Role == role.Admin, nil
}

// Management returns every Admin user.
func (s *Service) Management(ctx context.Context) ([]directory.User, error) {
	return s.store.ListUsersByRole(ctx, role.Admin, false)
}

// TeamLeadersOf returns the team leaders of every project the slack user
// belongs to, once each, in project order.
func (s *Service) TeamLeadersOf(ctx context.Context, slackUserID string) ([]directory.User, error) {
	u, err := s.store.FindUserBySlackUserID(ctx, slackUserID)
	if err != nil {
		return nil, err
	}
	projects, err := s.store.ListProjectsByMember(ctx, u.ID)
	if err != nil {
		return nil, err
	}

	leaders := []directory.User{}
	seen := make(map[string]bool)
	for _, p := range projects {
		if seen[p.TeamLeaderID] {
			continue
		}
		leader, err := s.store.GetUser(ctx, p.TeamLeaderID)
		if err != nil {
			return nil, err
		}
		seen[leader.ID] = true
		leaders = append(leaders, leader)
	}
	return leaders, nil
}

// =============================================================================
// ROLE-AWARE VIEWS
// =============================================================================

func (s *Service) leaderLookup(ctx context.Context) role.LeaderLookup {
	return func(userID string) (bool, error) {
		return s.store.IsProjectLeader(ctx, userID)
	}
}

// EffectiveRole resolves the display role of a stored user.
func (s *Service) EffectiveRole(ctx context.Context, u directory.User) (role.Role, error) {
	return role.Resolve(u.ID, u.Role, s.leaderLookup(ctx))
}

// UserDetail returns a user together with its effective role.
func (s *Service) UserDetail(ctx context.Context, userID string) (Profile, error) {
	u, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return Profile{}, err
	}
	r, err := s.EffectiveRole(ctx, u)
	if err != nil {
		return Profile{}, err
	}
	return Profile{User: u, Role: r}, nil
}

// UserRoles lists the users visible to userID in role-based screens.
// An Admin sees itself followed by every active Employee, all reported
// with the Admin's role. Anyone else sees only itself, as TeamLeader or
// Employee.
func (s *Service) UserRoles(ctx context.Context, userID string) ([]RoleEntry, error) {
	u, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if u.Role == role.Admin {
		entries := []RoleEntry{entryFor(u, role.Admin)}
		employees, err := s.store.ListUsersByRole(ctx, role.Employee, true)
		if err != nil {
			return nil, err
		}
		for _, e := range employees {
			entries = append(entries, entryFor(e, role.Admin))
		}
		return entries, nil
	}

	r, err := s.EffectiveRole(ctx, u)
	if err != nil {
		return nil, err
	}
	return []RoleEntry{entryFor(u, r)}, nil
}

// TeamMembers returns the leader followed by the members of the first
// project the leader owns. ErrProjectNotFound if userID leads no project.
func (s *Service) TeamMembers(ctx context.Context, userID string) ([]RoleEntry, error) {
	leader, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	projects, err := s.store.ListProjectsByTeamLeader(ctx, leader.ID)
	if err != nil {
		return nil, err
	}
	if len(projects) == 0 {
		return nil, directory.NotFound(directory.ErrProjectNotFound, "team_leader_id", leader.ID)
	}

	entries := []RoleEntry{entryFor(leader, role.TeamLeader)}
	members, err := s.projectUsers(ctx, projects[0].ID)
	if err != nil {
		return nil, err
	}
	for _, m := range members {
		entries = append(entries, entryFor(m, role.Employee))
	}
	return entries, nil
}

// ProjectUsersBySlackChannel returns the members of the project bound to a
// slack channel, or an empty list when there is no such project.
func (s *Service) ProjectUsersBySlackChannel(ctx context.Context, channel string) ([]directory.User, error) {
	p, err := s.store.FindProjectBySlackChannel(ctx, channel)
	if errors.Is(err, directory.ErrProjectNotFound) {
		return []directory.User{}, nil
	}
	if err != nil {
		return nil, err
	}
	return s.projectUsers(ctx, p.ID)
}

// ProjectUsersByTeamLeader returns the leader (as TeamLeader) and then the
// distinct members of all of the leader's projects with their stored role.
// Empty when leaderID owns no project.
func (s *Service) ProjectUsersByTeamLeader(ctx context.Context, leaderID string) ([]Profile, error) {
	projects, err := s.store.ListProjectsByTeamLeader(ctx, leaderID)
	if err != nil {
		return nil, err
	}
	result := []Profile{}
	if len(projects) == 0 {
		return result, nil
	}

	seen := make(map[string]bool)
	leader, err := s.store.GetUser(ctx, leaderID)
	switch {
	case err == nil:
		result = append(result, Profile{User: leader, Role: role.TeamLeader})
		seen[leader.ID] = true
	case !directory.IsNotFound(err):
		return nil, err
	}

	for _, p := range projects {
		members, err := s.projectUsers(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		for _, m := range members {
			if seen[m.ID] {
				continue
			}
			seen[m.ID] = true
			result = append(result, Profile{User: m, Role: m.Role})
		}
	}
	return result, nil
}

// projectUsers loads members of a project in membership order. Dangling
// memberships are skipped.
func (s *Service) projectUsers(ctx context.Context, projectID string) ([]directory.User, error) {
	ids, err := s.store.ListMemberIDs(ctx, projectID)
	if err != nil {
		return nil, err
	}
	users, err := s.store.ListUsersByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]directory.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}
	ordered := make([]directory.User, 0, len(ids))
	for _, id := range ids {
		if u, ok := byID[id]; ok {
			ordered = append(ordered, u)
		}
	}
	return ordered, nil
}
