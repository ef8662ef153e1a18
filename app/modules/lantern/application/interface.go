package lanternservice

import (
	"context"
	"time"

	lanterntypes "github.com/Black-And-White-Club/lantern-bot/app/modules/lantern/domain"
	"github.com/google/uuid"
)

// Service defines the lantern game operations.
type Service interface {
	// Hack sessions
	CreateHackSession(ctx context.Context, ownerID string, stationID uuid.UUID) (*lanterntypes.HackSessionView, error)
	AttemptGuess(ctx context.Context, ownerID string, stationID uuid.UUID, password string, boostingSignal int) (*lanterntypes.GuessResult, error)
	GetHackSession(ctx context.Context, stationID uuid.UUID, ownerID string) (*lanterntypes.HackSessionView, error)

	// Round
	GetRoundState(ctx context.Context) (*lanterntypes.Round, error)
	SetRoundState(ctx context.Context, startTime, endTime time.Time, isActive bool) (*lanterntypes.Round, error)
	ResetAllStations(ctx context.Context) (*ResetSummary, error)
	ExpireRound(ctx context.Context) error
	Resume(ctx context.Context) error
	Stop()

	// Stations
	CreateStation(ctx context.Context, name string, baselineSignal *int) (*lanterntypes.Station, error)
	SetStationActive(ctx context.Context, stationID uuid.UUID, isActive bool) (*lanterntypes.Station, error)
	ListStations(ctx context.Context, includeInactive bool) ([]lanterntypes.Station, error)
	GetStation(ctx context.Context, stationID uuid.UUID) (*lanterntypes.Station, error)

	// Teams
	CreateTeam(ctx context.Context, name string) (*lanterntypes.Team, error)
	AssignMember(ctx context.Context, userID string, teamID uuid.UUID) error
	GetTeamForUser(ctx context.Context, userID string) (*lanterntypes.Team, error)
	GetTeamScores(ctx context.Context) ([]lanterntypes.TeamScore, error)
}

// ResetSummary reports the outcome of one reset sweep.
type ResetSummary struct {
	StationsReset   int `json:"stationsReset"`
	StationsFailed  int `json:"stationsFailed"`
	SessionsRemoved int `json:"sessionsRemoved"`
}

var _ Service = (*LanternService)(nil)
