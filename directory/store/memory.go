// Package store provides directory.Store implementations.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/identity-engine/directory"
	"github.com/warp/identity-engine/role"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu        sync.RWMutex
	users     map[string]directory.User
	userOrder []string
	projects  map[string]directory.Project
	projOrder []string
	members   map[string][]string // projectID -> userIDs
}

var _ directory.Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		users:    make(map[string]directory.User),
		projects: make(map[string]directory.Project),
		members:  make(map[string][]string),
	}
}

// Reset drops all users, projects and memberships.
func (m *Memory) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.users = make(map[string]directory.User)
	m.userOrder = nil
	m.projects = make(map[string]directory.Project)
	m.projOrder = nil
	m.members = make(map[string][]string)
	return nil
}

// =============================================================================
// USERS
// =============================================================================

func (m *Memory) SaveUser(_ context.Context, u directory.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, other := range m.users {
		if id != u.ID && equalFoldASCII(other.Email, u.Email) {
			return directory.ErrEmailTaken
		}
	}
	if _, ok := m.users[u.ID]; !ok {
		m.userOrder = append(m.userOrder, u.ID)
	}
	m.users[u.ID] = u
	return nil
}

func (m *Memory) GetUser(_ context.Context, id string) (directory.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[id]
	if !ok {
		return directory.User{}, directory.NotFound(directory.ErrUserNotFound, "id", id)
	}
	return u, nil
}

func (m *Memory) FindUserByEmail(_ context.Context, email string) (directory.User, error) {
	return m.findUser(directory.ErrUserNotFound, "email", email, func(u directory.User) bool {
		return equalFoldASCII(u.Email, email)
	})
}

func (m *Memory) FindUserByUserName(_ context.Context, userName string) (directory.User, error) {
	return m.findUser(directory.ErrUserNotFound, "user_name", userName, func(u directory.User) bool {
		return equalFoldASCII(u.UserName, userName)
	})
}

func (m *Memory) FindUserBySlackUserName(_ context.Context, slackUserName string) (directory.User, error) {
	return m.findUser(directory.ErrSlackUserNotFound, "slack_user_name", slackUserName, func(u directory.User) bool {
		return u.SlackUserName == slackUserName
	})
}

func (m *Memory) FindUserBySlackUserID(_ context.Context, slackUserID string) (directory.User, error) {
	return m.findUser(directory.ErrSlackUserNotFound, "slack_user_id", slackUserID, func(u directory.User) bool {
		return u.SlackUserID == slackUserID
	})
}

func (m *Memory) findUser(sentinel error, field, value string, match func(directory.User) bool) (directory.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if value != "" {
		for _, id := range m.userOrder {
			if u := m.users[id]; match(u) {
				return u, nil
			}
		}
	}
	return directory.User{}, directory.NotFound(sentinel, field, value)
}

func (m *Memory) ListUsers(_ context.Context) ([]directory.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := m.usersInOrder(func(directory.User) bool { return true })
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (m *Memory) ListUsersByRole(_ context.Context, r role.Role, activeOnly bool) ([]directory.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := m.usersInOrder(func(u directory.User) bool {
		return u.Role == r && (!activeOnly || u.IsActive)
	})
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].FirstName < result[j].FirstName
	})
	return result, nil
}

func (m *Memory) ListUsersByIDs(_ context.Context, ids []string) ([]directory.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	return m.usersInOrder(func(u directory.User) bool { return want[u.ID] }), nil
}

func (m *Memory) usersInOrder(keep func(directory.User) bool) []directory.User {
	result := []directory.User{}
	for _, id := range m.userOrder {
		if u := m.users[id]; keep(u) {
			result = append(result, u)
		}
	}
	return result
}

// =============================================================================
// PROJECTS
// =============================================================================

func (m *Memory) SaveProject(_ context.Context, p directory.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.projects[p.ID]; !ok {
		m.projOrder = append(m.projOrder, p.ID)
	}
	m.projects[p.ID] = p
	return nil
}

func (m *Memory) GetProject(_ context.Context, id string) (directory.Project, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.projects[id]
	if !ok {
		return directory.Project{}, directory.NotFound(directory.ErrProjectNotFound, "id", id)
	}
	return p, nil
}

func (m *Memory) FindProjectBySlackChannel(_ context.Context, channel string) (directory.Project, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, id := range m.projOrder {
		if p := m.projects[id]; channel != "" && p.SlackChannelName == channel {
			return p, nil
		}
	}
	return directory.Project{}, directory.NotFound(directory.ErrProjectNotFound, "slack_channel", channel)
}

func (m *Memory) ListProjectsByTeamLeader(_ context.Context, leaderID string) ([]directory.Project, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.projectsInOrder(func(p directory.Project) bool { return p.TeamLeaderID == leaderID }), nil
}

func (m *Memory) IsProjectLeader(_ context.Context, leaderID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, p := range m.projects {
		if p.TeamLeaderID == leaderID {
			return true, nil
		}
	}
	return false, nil
}

func (m *Memory) AddMember(_ context.Context, pm directory.ProjectMember) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.projects[pm.ProjectID]; !ok {
		return directory.NotFound(directory.ErrProjectNotFound, "id", pm.ProjectID)
	}
	if _, ok := m.users[pm.UserID]; !ok {
		return directory.NotFound(directory.ErrUserNotFound, "id", pm.UserID)
	}
	for _, id := range m.members[pm.ProjectID] {
		if id == pm.UserID {
			return nil
		}
	}
	m.members[pm.ProjectID] = append(m.members[pm.ProjectID], pm.UserID)
	return nil
}

func (m *Memory) ListMemberIDs(_ context.Context, projectID string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]string, len(m.members[projectID]))
	copy(result, m.members[projectID])
	return result, nil
}

func (m *Memory) ListProjectsByMember(_ context.Context, userID string) ([]directory.Project, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.projectsInOrder(func(p directory.Project) bool {
		for _, id := range m.members[p.ID] {
			if id == userID {
				return true
			}
		}
		return false
	}), nil
}

func (m *Memory) projectsInOrder(keep func(directory.Project) bool) []directory.Project {
	result := []directory.Project{}
	for _, id := range m.projOrder {
		if p := m.projects[id]; keep(p) {
			result = append(result, p)
		}
	}
	return result
}

// equalFoldASCII matches SQLite's NOCASE collation: only A-Z fold.
func equalFoldASCII(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		if lowerASCII(a[i]) != lowerASCII(b[i]) {
			return false
		}
	}
	return true
}

func lowerASCII(c byte) byte {
	if 'A' <= c && c <= 'Z' {
		return c + 'a' - 'A'
	}
	return c
}
