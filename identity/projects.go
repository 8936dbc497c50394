package identity

import (
	"context"
	"log/slog"
	"strings"

	"github.com/warp/identity-engine/directory"
)

// NewProject is the input to CreateProject.
type NewProject struct {
	Name             string
	TeamLeaderID     string
	SlackChannelName string
	IsActive         bool
}

// CreateProject stores a project led by an existing user and returns its
// ID. The leader's effective role becomes TeamLeader from the next query.
func (s *Service) CreateProject(ctx context.Context, in NewProject, createdBy string) (string, error) {
	if strings.TrimSpace(in.Name) == "" {
		return "", invalid("name", "is required")
	}
	if in.TeamLeaderID == "" {
		return "", invalid("team_leader_id", "is required")
	}
	if _, err := s.store.GetUser(ctx, in.TeamLeaderID); err != nil {
		return "", err
	}

	p := directory.Project{
		ID:               s.newID(),
		Name:             strings.TrimSpace(in.Name),
		TeamLeaderID:     in.TeamLeaderID,
		SlackChannelName: strings.TrimSpace(in.SlackChannelName),
		IsActive:         in.IsActive,
		CreatedBy:        createdBy,
		CreatedAt:        s.now(),
	}
	if err := s.store.SaveProject(ctx, p); err != nil {
		return "", err
	}

	s.logger.InfoContext(ctx, "project created",
		slog.String("project_id", p.ID),
		slog.String("team_leader_id", p.TeamLeaderID),
		slog.String("created_by", createdBy),
	)
	return p.ID, nil
}

// AddProjectMember links a user to a project. Repeating it is harmless.
func (s *Service) AddProjectMember(ctx context.Context, projectID, userID string) error {
	if userID == "" {
		return invalid("user_id", "is required")
	}
	return s.store.AddMember(ctx, directory.ProjectMember{ProjectID: projectID, UserID: userID})
}

func (s *Service) GetProject(ctx context.Context, id string) (directory.Project, error) {
	return s.store.GetProject(ctx, id)
}

// ReferenceYear is the year new entitlements are computed against.
func (s *Service) ReferenceYear() int {
	return s.now().Year()
}
