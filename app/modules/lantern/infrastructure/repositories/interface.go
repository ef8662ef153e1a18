package lanterndb

import (
	"context"

	lanterntypes "github.com/Black-And-White-Club/lantern-bot/app/modules/lantern/domain"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Repository defines the contract for lantern persistence.
//
// Every method takes the bun handle to run on; nil means the repository's default
// connection. Mutations of one station must run inside a transaction that holds LockStation.
type Repository interface {
	// GetStation retrieves a station by id.
	GetStation(ctx context.Context, db bun.IDB, id uuid.UUID) (*lanterntypes.Station, error)

	// ListStations returns stations ordered by name.
	ListStations(ctx context.Context, db bun.IDB, includeInactive bool) ([]lanterntypes.Station, error)

	// CreateStation inserts a new station.
	CreateStation(ctx context.Context, db bun.IDB, station *lanterntypes.Station) error

	// SaveStation overwrites the mutable state of an existing station.
	SaveStation(ctx context.Context, db bun.IDB, station *lanterntypes.Station) error

	// LockStation serializes writers of one station until the surrounding transaction ends.
	LockStation(ctx context.Context, db bun.IDB, id uuid.UUID) error

	// GetRound returns the round singleton.
	GetRound(ctx context.Context, db bun.IDB) (*lanterntypes.Round, error)

	// SaveRound creates or replaces the round singleton.
	SaveRound(ctx context.Context, db bun.IDB, round *lanterntypes.Round) error

	// GetHackSession retrieves the session of ownerID against stationID.
	GetHackSession(ctx context.Context, db bun.IDB, ownerID string, stationID uuid.UUID) (*lanterntypes.HackSession, error)

	// InsertHackSession stores a new session. It reports false when one already exists for the pair.
	InsertHackSession(ctx context.Context, db bun.IDB, session *lanterntypes.HackSession) (bool, error)

	// UpdateHackSessionTries sets the remaining tries of a session.
	UpdateHackSessionTries(ctx context.Context, db bun.IDB, ownerID string, stationID uuid.UUID, triesLeft int) error

	// DeleteHackSession removes one session. Deleting a missing session is not an error.
	DeleteHackSession(ctx context.Context, db bun.IDB, ownerID string, stationID uuid.UUID) error

	// DeleteHackSessionsForStation removes every session targeting stationID.
	DeleteHackSessionsForStation(ctx context.Context, db bun.IDB, stationID uuid.UUID) (int, error)

	// DeleteAllHackSessions removes every session in one statement.
	DeleteAllHackSessions(ctx context.Context, db bun.IDB) (int, error)

	// CreateTeam inserts a team. Names are unique.
	CreateTeam(ctx context.Context, db bun.IDB, team *lanterntypes.Team) error

	// GetTeam retrieves a team by id.
	GetTeam(ctx context.Context, db bun.IDB, id uuid.UUID) (*lanterntypes.Team, error)

	// ListTeams returns all teams ordered by name.
	ListTeams(ctx context.Context, db bun.IDB) ([]lanterntypes.Team, error)

	// AssignMember places userID on teamID, replacing any previous team.
	AssignMember(ctx context.Context, db bun.IDB, userID string, teamID uuid.UUID) error

	// GetTeamForUser returns the team userID belongs to.
	GetTeamForUser(ctx context.Context, db bun.IDB, userID string) (*lanterntypes.Team, error)
}
