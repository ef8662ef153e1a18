package lanternservice

import (
	"context"
	"errors"
	"strings"

	lanterntypes "github.com/Black-And-White-Club/lantern-bot/app/modules/lantern/domain"
	lanterndb "github.com/Black-And-White-Club/lantern-bot/app/modules/lantern/infrastructure/repositories"
	"github.com/Black-And-White-Club/lantern-bot/internal/results"
	"github.com/google/uuid"
)

// CreateTeam registers a team. Names are unique.
func (s *LanternService) CreateTeam(ctx context.Context, name string) (*lanterntypes.Team, error) {
	result, err := withTelemetry(s, ctx, "CreateTeam", name, func(ctx context.Context) (results.OperationResult[*lanterntypes.Team, error], error) {
		name = strings.TrimSpace(name)
		if name == "" {
			return failure[*lanterntypes.Team](ErrInvalidName)
		}
		team := &lanterntypes.Team{ID: uuid.New(), Name: name}
		if err := s.repo.CreateTeam(ctx, nil, team); err != nil {
			if errors.Is(err, lanterndb.ErrDuplicate) {
				return failure[*lanterntypes.Team](ErrTeamNameTaken)
			}
			return infraError[*lanterntypes.Team]("failed to create team", err)
		}
		return success(team)
	})
	return unwrap(result, err)
}

// AssignMember moves userID onto teamID.
func (s *LanternService) AssignMember(ctx context.Context, userID string, teamID uuid.UUID) error {
	result, err := withTelemetry(s, ctx, "AssignMember", userID, func(ctx context.Context) (results.OperationResult[struct{}, error], error) {
		if strings.TrimSpace(userID) == "" {
			return failure[struct{}](ErrMissingOwner)
		}
		if err := s.repo.AssignMember(ctx, nil, userID, teamID); err != nil {
			if errors.Is(err, lanterndb.ErrNotFound) {
				return failure[struct{}](ErrTeamNotFound)
			}
			return infraError[struct{}]("failed to assign member", err)
		}
		return success(struct{}{})
	})
	_, err = unwrap(result, err)
	return err
}

// GetTeamForUser resolves the team userID plays for.
func (s *LanternService) GetTeamForUser(ctx context.Context, userID string) (*lanterntypes.Team, error) {
	result, err := withTelemetry(s, ctx, "GetTeamForUser", userID, func(ctx context.Context) (results.OperationResult[*lanterntypes.Team, error], error) {
		team, err := s.repo.GetTeamForUser(ctx, nil, userID)
		if err != nil {
			if errors.Is(err, lanterndb.ErrNotFound) {
				return failure[*lanterntypes.Team](ErrTeamNotFound)
			}
			return infraError[*lanterntypes.Team]("failed to get team", err)
		}
		return success(team)
	})
	return unwrap(result, err)
}

// GetTeamScores derives every team's points from current station ownership.
func (s *LanternService) GetTeamScores(ctx context.Context) ([]lanterntypes.TeamScore, error) {
	result, err := withTelemetry(s, ctx, "GetTeamScores", "all", func(ctx context.Context) (results.OperationResult[[]lanterntypes.TeamScore, error], error) {
		scores, err := s.scores(ctx, nil)
		if err != nil {
			return results.OperationResult[[]lanterntypes.TeamScore, error]{}, err
		}
		return success(scores)
	})
	return unwrap(result, err)
}
