package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/identity-engine/directory"
	"github.com/warp/identity-engine/role"
)

func seedUser(t *testing.T, m *Memory, id, first, email string, r role.Role, created time.Time) {
	t.Helper()
	require.NoError(t, m.SaveUser(context.Background(), directory.User{
		ID: id, FirstName: first, Email: email, UserName: email,
		SlackUserID: "S-" + id, IsActive: true, Role: r, CreatedAt: created,
	}))
}

func TestMemory_EmailIsUniqueIgnoringCase(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	seedUser(t, m, "u1", "Ann", "ann@example.com", role.Employee, time.Now())

	err := m.SaveUser(ctx, directory.User{ID: "u2", Email: "ANN@example.com"})
	assert.ErrorIs(t, err, directory.ErrEmailTaken)

	// Re-saving the owner is an update, not a conflict.
	err = m.SaveUser(ctx, directory.User{ID: "u1", FirstName: "Anne", Email: "ann@example.com"})
	require.NoError(t, err)

	u, err := m.FindUserByEmail(ctx, "Ann@Example.com")
	require.NoError(t, err)
	assert.Equal(t, "Anne", u.FirstName)
}

func TestMemory_EmailFoldsASCIIOnly(t *testing.T) {
	// GIVEN: A user whose email starts with a non-ASCII capital
	// WHEN: Saving and looking up the lowercase form
	// THEN: They are different emails, the same as in SQLite

	m := NewMemory()
	ctx := context.Background()
	seedUser(t, m, "u1", "Émile", "É@x.io", role.Employee, time.Now())

	require.NoError(t, m.SaveUser(ctx, directory.User{ID: "u2", Email: "é@x.io"}))

	u, err := m.FindUserByEmail(ctx, "é@x.io")
	require.NoError(t, err)
	assert.Equal(t, "u2", u.ID)

	_, err = m.FindUserByUserName(ctx, "é@X.IO")
	assert.ErrorIs(t, err, directory.ErrUserNotFound)

	u, err = m.FindUserByUserName(ctx, "É@X.IO")
	require.NoError(t, err)
	assert.Equal(t, "u1", u.ID)
}

func TestMemory_LookupsReportKey(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	_, err := m.GetUser(ctx, "nope")
	var lerr *directory.LookupError
	require.ErrorAs(t, err, &lerr)
	assert.Equal(t, "id", lerr.Field)
	assert.ErrorIs(t, err, directory.ErrUserNotFound)

	_, err = m.FindUserBySlackUserID(ctx, "")
	assert.ErrorIs(t, err, directory.ErrSlackUserNotFound)

	_, err = m.FindProjectBySlackChannel(ctx, "#none")
	assert.ErrorIs(t, err, directory.ErrProjectNotFound)
	assert.True(t, directory.IsNotFound(err))
}

func TestMemory_ListOrdering(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	seedUser(t, m, "u1", "Carl", "c@example.com", role.Employee, base)
	seedUser(t, m, "u2", "Abby", "a@example.com", role.Employee, base.Add(time.Hour))
	seedUser(t, m, "u3", "Bo", "b@example.com", role.Admin, base.Add(2*time.Hour))

	all, err := m.ListUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"u3", "u2", "u1"}, []string{all[0].ID, all[1].ID, all[2].ID})

	employees, err := m.ListUsersByRole(ctx, role.Employee, true)
	require.NoError(t, err)
	require.Len(t, employees, 2)
	assert.Equal(t, "Abby", employees[0].FirstName)
	assert.Equal(t, "Carl", employees[1].FirstName)
}

func TestMemory_Membership(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	seedUser(t, m, "lead", "Lee", "lee@example.com", role.Employee, time.Now())
	seedUser(t, m, "dev", "Dev", "dev@example.com", role.Employee, time.Now())
	require.NoError(t, m.SaveProject(ctx, directory.Project{ID: "p1", TeamLeaderID: "lead", SlackChannelName: "#p1"}))

	// GIVEN: A member added twice
	require.NoError(t, m.AddMember(ctx, directory.ProjectMember{ProjectID: "p1", UserID: "dev"}))
	require.NoError(t, m.AddMember(ctx, directory.ProjectMember{ProjectID: "p1", UserID: "dev"}))

	// THEN: It is listed once
	ids, err := m.ListMemberIDs(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, []string{"dev"}, ids)

	projects, err := m.ListProjectsByMember(ctx, "dev")
	require.NoError(t, err)
	require.Len(t, projects, 1)
	assert.Equal(t, "p1", projects[0].ID)

	leads, err := m.IsProjectLeader(ctx, "lead")
	require.NoError(t, err)
	assert.True(t, leads)

	leads, err = m.IsProjectLeader(ctx, "dev")
	require.NoError(t, err)
	assert.False(t, leads)

	err = m.AddMember(ctx, directory.ProjectMember{ProjectID: "p9", UserID: "dev"})
	assert.ErrorIs(t, err, directory.ErrProjectNotFound)
	err = m.AddMember(ctx, directory.ProjectMember{ProjectID: "p1", UserID: "ghost"})
	assert.ErrorIs(t, err, directory.ErrUserNotFound)
}
