package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/identity-engine/directory"
	"github.com/warp/identity-engine/leave"
	"github.com/warp/identity-engine/role"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testUser(id, first, email string, r role.Role, created time.Time) directory.User {
	return directory.User{
		ID:          id,
		FirstName:   first,
		LastName:    "Tester",
		Email:       email,
		UserName:    email,
		IsActive:    true,
		JoiningDate: leave.MustDate(2025, time.October, 15),
		SlackUserID: "S-" + id,
		CasualLeave: decimal.RequireFromString("5.5"),
		SickLeave:   decimal.NewFromInt(6),
		Role:        r,
		CreatedBy:   "seed",
		CreatedAt:   created,
	}
}

func TestStore_UserRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	created := time.Date(2026, 3, 1, 8, 30, 0, 123, time.UTC)

	in := testUser("u1", "Rita", "rita@example.com", role.Admin, created)
	in.SlackUserName = "rita"
	require.NoError(t, s.SaveUser(ctx, in))

	got, err := s.GetUser(ctx, "u1")
	require.NoError(t, err)

	assert.Equal(t, "Rita", got.FirstName)
	assert.Equal(t, role.Admin, got.Role)
	assert.Equal(t, in.JoiningDate.String(), got.JoiningDate.String())
	assert.Equal(t, "5.5", got.CasualLeave.String())
	assert.Equal(t, "6", got.SickLeave.String())
	assert.Equal(t, "rita", got.SlackUserName)
	assert.True(t, got.CreatedAt.Equal(created))
	assert.True(t, got.UpdatedAt.IsZero())

	bySlack, err := s.FindUserBySlackUserName(ctx, "rita")
	require.NoError(t, err)
	assert.Equal(t, "u1", bySlack.ID)

	byEmail, err := s.FindUserByEmail(ctx, "RITA@example.com")
	require.NoError(t, err)
	assert.Equal(t, "u1", byEmail.ID)
}

func TestStore_UpdateKeepsCreationFields(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	created := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.SaveUser(ctx, testUser("u1", "Sol", "sol@example.com", role.Employee, created)))

	u, err := s.GetUser(ctx, "u1")
	require.NoError(t, err)
	u.FirstName = "Solomon"
	u.Role = role.Admin
	u.UpdatedBy = "admin"
	u.UpdatedAt = created.Add(time.Hour)
	require.NoError(t, s.SaveUser(ctx, u))

	got, err := s.GetUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Solomon", got.FirstName)
	assert.Equal(t, role.Admin, got.Role)
	assert.Equal(t, "seed", got.CreatedBy)
	assert.True(t, got.UpdatedAt.Equal(created.Add(time.Hour)))
}

func TestStore_EmailConflict(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.SaveUser(ctx, testUser("u1", "Tom", "tom@example.com", role.Employee, time.Now())))

	err := s.SaveUser(ctx, testUser("u2", "Tom", "TOM@example.com", role.Employee, time.Now()))
	assert.ErrorIs(t, err, directory.ErrEmailTaken)
	assert.True(t, directory.IsConflict(err))
}

func TestStore_EmailFoldsASCIIOnly(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.SaveUser(ctx, testUser("u1", "Émile", "É@x.io", role.Employee, time.Now())))

	// NOCASE only folds A-Z.
	require.NoError(t, s.SaveUser(ctx, testUser("u2", "Élodie", "é@x.io", role.Employee, time.Now())))

	u, err := s.FindUserByEmail(ctx, "é@X.IO")
	require.NoError(t, err)
	assert.Equal(t, "u2", u.ID)
}

func TestStore_NotFound(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.GetUser(ctx, "missing")
	assert.ErrorIs(t, err, directory.ErrUserNotFound)

	_, err = s.FindUserBySlackUserID(ctx, "S-missing")
	assert.ErrorIs(t, err, directory.ErrSlackUserNotFound)

	_, err = s.GetProject(ctx, "p-missing")
	assert.ErrorIs(t, err, directory.ErrProjectNotFound)
}

func TestStore_ListOrdering(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.SaveUser(ctx, testUser("u1", "Cy", "cy@example.com", role.Employee, base)))
	require.NoError(t, s.SaveUser(ctx, testUser("u2", "Al", "al@example.com", role.Employee, base.Add(time.Minute))))
	inactive := testUser("u3", "Bea", "bea@example.com", role.Employee, base.Add(2*time.Minute))
	inactive.IsActive = false
	require.NoError(t, s.SaveUser(ctx, inactive))

	all, err := s.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "u3", all[0].ID)
	assert.Equal(t, "u1", all[2].ID)

	active, err := s.ListUsersByRole(ctx, role.Employee, true)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, "Al", active[0].FirstName)
	assert.Equal(t, "Cy", active[1].FirstName)

	everyone, err := s.ListUsersByRole(ctx, role.Employee, false)
	require.NoError(t, err)
	assert.Len(t, everyone, 3)

	some, err := s.ListUsersByIDs(ctx, []string{"u2", "u3", "nope"})
	require.NoError(t, err)
	assert.Len(t, some, 2)

	none, err := s.ListUsersByIDs(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestStore_ProjectsAndMembership(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now()
	require.NoError(t, s.SaveUser(ctx, testUser("lead", "Lia", "lia@example.com", role.Employee, now)))
	require.NoError(t, s.SaveUser(ctx, testUser("d1", "Dee", "dee@example.com", role.Employee, now)))
	require.NoError(t, s.SaveUser(ctx, testUser("d2", "Dot", "dot@example.com", role.Employee, now)))

	require.NoError(t, s.SaveProject(ctx, directory.Project{ID: "p2", Name: "Beta", TeamLeaderID: "lead", SlackChannelName: "#beta", IsActive: true, CreatedAt: now}))
	require.NoError(t, s.SaveProject(ctx, directory.Project{ID: "p1", Name: "Alpha", TeamLeaderID: "lead", SlackChannelName: "#alpha", IsActive: true, CreatedAt: now}))

	// Insertion order, not ID order.
	projects, err := s.ListProjectsByTeamLeader(ctx, "lead")
	require.NoError(t, err)
	require.Len(t, projects, 2)
	assert.Equal(t, "p2", projects[0].ID)
	assert.Equal(t, "p1", projects[1].ID)

	p, err := s.FindProjectBySlackChannel(ctx, "#alpha")
	require.NoError(t, err)
	assert.Equal(t, "Alpha", p.Name)

	require.NoError(t, s.AddMember(ctx, directory.ProjectMember{ProjectID: "p2", UserID: "d2"}))
	require.NoError(t, s.AddMember(ctx, directory.ProjectMember{ProjectID: "p2", UserID: "d1"}))
	require.NoError(t, s.AddMember(ctx, directory.ProjectMember{ProjectID: "p2", UserID: "d2"}))
	require.NoError(t, s.AddMember(ctx, directory.ProjectMember{ProjectID: "p1", UserID: "d1"}))

	ids, err := s.ListMemberIDs(ctx, "p2")
	require.NoError(t, err)
	assert.Equal(t, []string{"d2", "d1"}, ids)

	memberOf, err := s.ListProjectsByMember(ctx, "d1")
	require.NoError(t, err)
	require.Len(t, memberOf, 2)
	assert.Equal(t, "p2", memberOf[0].ID)

	leads, err := s.IsProjectLeader(ctx, "lead")
	require.NoError(t, err)
	assert.True(t, leads)
	leads, err = s.IsProjectLeader(ctx, "d1")
	require.NoError(t, err)
	assert.False(t, leads)

	err = s.AddMember(ctx, directory.ProjectMember{ProjectID: "p1", UserID: "ghost"})
	assert.ErrorIs(t, err, directory.ErrUserNotFound)
}

func TestStore_Reset(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.SaveUser(ctx, testUser("u1", "Ray", "ray@example.com", role.Employee, time.Now())))

	require.NoError(t, s.Reset(ctx))

	users, err := s.ListUsers(ctx)
	require.NoError(t, err)
	assert.Empty(t, users)
}
