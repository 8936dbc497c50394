/*
Package sqlite provides a SQLite-backed implementation of directory.Store.

PURPOSE:
  Persists user accounts, projects and project memberships for the
  identity services. The services only see the directory interfaces.

KEY TABLES:
  users:          Accounts with stored base role and leave balances
  projects:       Projects, each with one team leader
  project_users:  Project membership (project_id, user_id)

INDEXES:
  - users.email is UNIQUE (case-insensitive): one account per address
  - idx_projects_team_leader: role resolution (hot path, every query)
  - idx_project_users_user: team leader lookups by member

VALUE ENCODING:
  - Leave balances are stored as decimal TEXT so half days stay exact
  - Dates are YYYY-MM-DD, timestamps fixed-width UTC so ORDER BY works
  - Roles are stored by name and parsed back through role.ParseRole

CONCURRENCY:
  Writes are serialized with a mutex; SQLite in WAL mode lets readers
  proceed. An in-memory database is pinned to a single connection since
  every new connection to ":memory:" would open an empty database.

USAGE:
  store, err := sqlite.New("./data/identity.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - directory/store.go: Interface definitions
  - directory/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/identity-engine/directory"
	"github.com/warp/identity-engine/leave"
	"github.com/warp/identity-engine/role"
)

// timeLayout is fixed width so that text ordering matches time ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Store implements directory.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var _ directory.Store = (*Store)(nil)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		first_name TEXT NOT NULL,
		last_name TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL UNIQUE COLLATE NOCASE,
		user_name TEXT NOT NULL COLLATE NOCASE,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		joining_date TEXT,
		slack_user_name TEXT,
		slack_user_id TEXT,
		casual_leave TEXT NOT NULL DEFAULT '0',
		sick_leave TEXT NOT NULL DEFAULT '0',
		role TEXT NOT NULL,
		created_by TEXT,
		created_at TEXT NOT NULL,
		updated_by TEXT,
		updated_at TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_users_slack_user_id
		ON users(slack_user_id) WHERE slack_user_id IS NOT NULL;
	CREATE INDEX IF NOT EXISTS idx_users_slack_user_name
		ON users(slack_user_name) WHERE slack_user_name IS NOT NULL;
	CREATE INDEX IF NOT EXISTS idx_users_role_active
		ON users(role, is_active);

	CREATE TABLE IF NOT EXISTS projects (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		team_leader_id TEXT NOT NULL,
		slack_channel_name TEXT,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_by TEXT,
		created_at TEXT NOT NULL,
		seq INTEGER
	);

	CREATE INDEX IF NOT EXISTS idx_projects_team_leader
		ON projects(team_leader_id);
	CREATE INDEX IF NOT EXISTS idx_projects_slack_channel
		ON projects(slack_channel_name) WHERE slack_channel_name IS NOT NULL;

	CREATE TABLE IF NOT EXISTS project_users (
		project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
		user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		seq INTEGER,
		PRIMARY KEY (project_id, user_id)
	);

	CREATE INDEX IF NOT EXISTS idx_project_users_user
		ON project_users(user_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Reset deletes all rows. Used when loading demo data.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, table := range []string{"project_users", "projects", "users"} {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("reset %s: %w", table, err)
		}
	}
	return nil
}

// =============================================================================
// USERS
// =============================================================================

const userColumns = `id, first_name, last_name, email, user_name, is_active, joining_date,
	slack_user_name, slack_user_id, casual_leave, sick_leave, role,
	created_by, created_at, updated_by, updated_at`

// SaveUser inserts or replaces a user.
func (s *Store) SaveUser(ctx context.Context, u directory.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	roleName, err := u.Role.MarshalText()
	if err != nil {
		return fmt.Errorf("save user %s: %w", u.ID, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			first_name = excluded.first_name,
			last_name = excluded.last_name,
			email = excluded.email,
			user_name = excluded.user_name,
			is_active = excluded.is_active,
			joining_date = excluded.joining_date,
			slack_user_name = excluded.slack_user_name,
			slack_user_id = excluded.slack_user_id,
			casual_leave = excluded.casual_leave,
			sick_leave = excluded.sick_leave,
			role = excluded.role,
			updated_by = excluded.updated_by,
			updated_at = excluded.updated_at
	`,
		u.ID, u.FirstName, u.LastName, u.Email, u.UserName, u.IsActive,
		nullString(u.JoiningDate.String()),
		nullString(u.SlackUserName), nullString(u.SlackUserID),
		u.CasualLeave.String(), u.SickLeave.String(), string(roleName),
		nullString(u.CreatedBy), formatTime(u.CreatedAt),
		nullString(u.UpdatedBy), nullTime(u.UpdatedAt),
	)
	if isUniqueConstraintError(err) {
		return fmt.Errorf("save user %s: %w", u.ID, directory.ErrEmailTaken)
	}
	if err != nil {
		return fmt.Errorf("save user %s: %w", u.ID, err)
	}
	return nil
}

func (s *Store) GetUser(ctx context.Context, id string) (directory.User, error) {
	return s.queryUser(ctx, directory.ErrUserNotFound, "id", id,
		`SELECT `+userColumns+` FROM users WHERE id = ?`)
}

func (s *Store) FindUserByEmail(ctx context.Context, email string) (directory.User, error) {
	return s.queryUser(ctx, directory.ErrUserNotFound, "email", email,
		`SELECT `+userColumns+` FROM users WHERE email = ?`)
}

func (s *Store) FindUserByUserName(ctx context.Context, userName string) (directory.User, error) {
	return s.queryUser(ctx, directory.ErrUserNotFound, "user_name", userName,
		`SELECT `+userColumns+` FROM users WHERE user_name = ? LIMIT 1`)
}

func (s *Store) FindUserBySlackUserName(ctx context.Context, slackUserName string) (directory.User, error) {
	return s.queryUser(ctx, directory.ErrSlackUserNotFound, "slack_user_name", slackUserName,
		`SELECT `+userColumns+` FROM users WHERE slack_user_name = ? LIMIT 1`)
}

func (s *Store) FindUserBySlackUserID(ctx context.Context, slackUserID string) (directory.User, error) {
	return s.queryUser(ctx, directory.ErrSlackUserNotFound, "slack_user_id", slackUserID,
		`SELECT `+userColumns+` FROM users WHERE slack_user_id = ? LIMIT 1`)
}

func (s *Store) queryUser(ctx context.Context, sentinel error, field, value, query string) (directory.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, err := scanUser(s.db.QueryRowContext(ctx, query, value))
	if errors.Is(err, sql.ErrNoRows) {
		return directory.User{}, directory.NotFound(sentinel, field, value)
	}
	if err != nil {
		return directory.User{}, fmt.Errorf("find user by %s: %w", field, err)
	}
	return u, nil
}

// ListUsers returns all users, newest first.
func (s *Store) ListUsers(ctx context.Context) ([]directory.User, error) {
	return s.queryUsers(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at DESC, rowid ASC`)
}

// ListUsersByRole returns users with the given stored role ordered by first name.
func (s *Store) ListUsersByRole(ctx context.Context, r role.Role, activeOnly bool) ([]directory.User, error) {
	roleName, err := r.MarshalText()
	if err != nil {
		return nil, err
	}
	query := `SELECT ` + userColumns + ` FROM users WHERE role = ?`
	if activeOnly {
		query += ` AND is_active = TRUE`
	}
	query += ` ORDER BY first_name ASC, rowid ASC`
	return s.queryUsers(ctx, query, string(roleName))
}

func (s *Store) ListUsersByIDs(ctx context.Context, ids []string) ([]directory.User, error) {
	if len(ids) == 0 {
		return []directory.User{}, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return s.queryUsers(ctx,
		`SELECT `+userColumns+` FROM users WHERE id IN (`+placeholders+`) ORDER BY rowid ASC`, args...)
}

func (s *Store) queryUsers(ctx context.Context, query string, args ...any) ([]directory.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := []directory.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (directory.User, error) {
	var (
		u                               directory.User
		joining, slackName, slackID     sql.NullString
		casual, sick, roleName          string
		createdBy, updatedBy, updatedAt sql.NullString
		createdAt                       string
	)
	err := row.Scan(&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.UserName, &u.IsActive,
		&joining, &slackName, &slackID, &casual, &sick, &roleName,
		&createdBy, &createdAt, &updatedBy, &updatedAt)
	if err != nil {
		return directory.User{}, err
	}

	if joining.Valid && joining.String != "" {
		if u.JoiningDate, err = leave.ParseDate(joining.String); err != nil {
			return directory.User{}, fmt.Errorf("user %s: %w", u.ID, err)
		}
	}
	if u.CasualLeave, err = decimal.NewFromString(casual); err != nil {
		return directory.User{}, fmt.Errorf("user %s casual_leave: %w", u.ID, err)
	}
	if u.SickLeave, err = decimal.NewFromString(sick); err != nil {
		return directory.User{}, fmt.Errorf("user %s sick_leave: %w", u.ID, err)
	}
	if u.Role, err = role.ParseRole(roleName); err != nil {
		return directory.User{}, fmt.Errorf("user %s: %w", u.ID, err)
	}

	u.SlackUserName = slackName.String
	u.SlackUserID = slackID.String
	u.CreatedBy = createdBy.String
	u.UpdatedBy = updatedBy.String
	u.CreatedAt = parseTime(createdAt)
	if updatedAt.Valid {
		u.UpdatedAt = parseTime(updatedAt.String)
	}
	return u, nil
}

// =============================================================================
// PROJECTS
// =============================================================================

const projectColumns = `id, name, team_leader_id, slack_channel_name, is_active, created_by, created_at`

func (s *Store) SaveProject(ctx context.Context, p directory.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO projects (`+projectColumns+`, seq)
		VALUES (?, ?, ?, ?, ?, ?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM projects))
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			team_leader_id = excluded.team_leader_id,
			slack_channel_name = excluded.slack_channel_name,
			is_active = excluded.is_active
	`,
		p.ID, p.Name, p.TeamLeaderID, nullString(p.SlackChannelName), p.IsActive,
		nullString(p.CreatedBy), formatTime(p.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("save project %s: %w", p.ID, err)
	}
	return nil
}

func (s *Store) GetProject(ctx context.Context, id string) (directory.Project, error) {
	return s.queryProject(ctx, "id", id, `SELECT `+projectColumns+` FROM projects WHERE id = ?`)
}

func (s *Store) FindProjectBySlackChannel(ctx context.Context, channel string) (directory.Project, error) {
	return s.queryProject(ctx, "slack_channel", channel,
		`SELECT `+projectColumns+` FROM projects WHERE slack_channel_name = ? ORDER BY seq LIMIT 1`)
}

func (s *Store) queryProject(ctx context.Context, field, value, query string) (directory.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, err := scanProject(s.db.QueryRowContext(ctx, query, value))
	if errors.Is(err, sql.ErrNoRows) {
		return directory.Project{}, directory.NotFound(directory.ErrProjectNotFound, field, value)
	}
	if err != nil {
		return directory.Project{}, fmt.Errorf("find project by %s: %w", field, err)
	}
	return p, nil
}

func (s *Store) ListProjectsByTeamLeader(ctx context.Context, leaderID string) ([]directory.Project, error) {
	return s.queryProjects(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE team_leader_id = ? ORDER BY seq`, leaderID)
}

func (s *Store) IsProjectLeader(ctx context.Context, leaderID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM projects WHERE team_leader_id = ?)`, leaderID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check project leader %s: %w", leaderID, err)
	}
	return exists, nil
}

// AddMember links a user to a project. Adding an existing member is a no-op.
func (s *Store) AddMember(ctx context.Context, m directory.ProjectMember) error {
	if _, err := s.GetProject(ctx, m.ProjectID); err != nil {
		return err
	}
	if _, err := s.GetUser(ctx, m.UserID); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO project_users (project_id, user_id, seq)
		VALUES (?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM project_users))
		ON CONFLICT(project_id, user_id) DO NOTHING
	`, m.ProjectID, m.UserID)
	if err != nil {
		return fmt.Errorf("add member %s to %s: %w", m.UserID, m.ProjectID, err)
	}
	return nil
}

func (s *Store) ListMemberIDs(ctx context.Context, projectID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id FROM project_users WHERE project_id = ? ORDER BY seq`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list members of %s: %w", projectID, err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *Store) ListProjectsByMember(ctx context.Context, userID string) ([]directory.Project, error) {
	return s.queryProjects(ctx, `
		SELECT p.id, p.name, p.team_leader_id, p.slack_channel_name, p.is_active, p.created_by, p.created_at
		FROM projects p
		JOIN project_users pu ON pu.project_id = p.id
		WHERE pu.user_id = ?
		ORDER BY p.seq`, userID)
}

func (s *Store) queryProjects(ctx context.Context, query string, args ...any) ([]directory.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	projects := []directory.Project{}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

func scanProject(row rowScanner) (directory.Project, error) {
	var (
		p                  directory.Project
		channel, createdBy sql.NullString
		createdAt          string
	)
	if err := row.Scan(&p.ID, &p.Name, &p.TeamLeaderID, &channel, &p.IsActive, &createdBy, &createdAt); err != nil {
		return directory.Project{}, err
	}
	p.SlackChannelName = channel.String
	p.CreatedBy = createdBy.String
	p.CreatedAt = parseTime(createdAt)
	return p, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func nullTime(t time.Time) sql.NullString {
	if t.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(t), Valid: true}
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func isUniqueConstraintError(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}
