package lanterndb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	lanterntypes "github.com/Black-And-White-Club/lantern-bot/app/modules/lantern/domain"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"
)

var (
	// ErrNotFound is returned when a station, round, session, team or membership is absent.
	ErrNotFound = errors.New("lantern record not found")
	// ErrDuplicate is returned when a unique constraint rejects an insert.
	ErrDuplicate = errors.New("lantern record already exists")
)

const roundSingletonID int16 = 1

// Impl implements the Repository interface using Bun ORM.
type Impl struct {
	db bun.IDB
}

// NewRepository creates a new lantern repository.
func NewRepository(db bun.IDB) Repository {
	return &Impl{db: db}
}

// resolveDB returns the provided db handle, falling back to the repository's
// default connection if db is nil.
func (r *Impl) resolveDB(db bun.IDB) bun.IDB {
	if db == nil {
		return r.db
	}
	return db
}

func sqlState(err error) string {
	var pgErr pgdriver.Error
	if errors.As(err, &pgErr) {
		return pgErr.Field('C')
	}
	return ""
}

func isUniqueViolation(err error) bool { return sqlState(err) == "23505" }

func isForeignKeyViolation(err error) bool { return sqlState(err) == "23503" }

// --- Stations ---

func (r *Impl) GetStation(ctx context.Context, db bun.IDB, id uuid.UUID) (*lanterntypes.Station, error) {
	db = r.resolveDB(db)
	row := new(Station)
	err := db.NewSelect().
		Model(row).
		Where("id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get station: %w", err)
	}
	s := row.toDomain()
	return &s, nil
}

func (r *Impl) ListStations(ctx context.Context, db bun.IDB, includeInactive bool) ([]lanterntypes.Station, error) {
	db = r.resolveDB(db)
	var rows []Station
	q := db.NewSelect().Model(&rows).Order("name ASC", "id ASC")
	if !includeInactive {
		q = q.Where("is_active = TRUE")
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to list stations: %w", err)
	}

	out := make([]lanterntypes.Station, len(rows))
	for i := range rows {
		out[i] = rows[i].toDomain()
	}
	return out, nil
}

func (r *Impl) CreateStation(ctx context.Context, db bun.IDB, station *lanterntypes.Station) error {
	db = r.resolveDB(db)
	row := stationFromDomain(station)
	row.CreatedAt = time.Now().UTC()
	if _, err := db.NewInsert().Model(row).Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to create station: %w", err)
	}
	return nil
}

func (r *Impl) SaveStation(ctx context.Context, db bun.IDB, station *lanterntypes.Station) error {
	db = r.resolveDB(db)
	row := stationFromDomain(station)
	result, err := db.NewUpdate().
		Model(row).
		Column("signal_value", "boosting_signal", "owner_team_id", "is_active", "version", "updated_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to save station: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// LockStation acquires a pg_advisory_xact_lock for the station.
func (r *Impl) LockStation(ctx context.Context, db bun.IDB, id uuid.UUID) error {
	db = r.resolveDB(db)
	if _, err := db.NewRaw("SELECT pg_advisory_xact_lock(hashtext(?))", "lantern_station:"+id.String()).Exec(ctx); err != nil {
		return fmt.Errorf("failed to lock station: %w", err)
	}
	return nil
}

// --- Round ---

func (r *Impl) GetRound(ctx context.Context, db bun.IDB) (*lanterntypes.Round, error) {
	db = r.resolveDB(db)
	row := new(Round)
	err := db.NewSelect().
		Model(row).
		Where("id = ?", roundSingletonID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get round: %w", err)
	}
	round := row.toDomain()
	return &round, nil
}

func (r *Impl) SaveRound(ctx context.Context, db bun.IDB, round *lanterntypes.Round) error {
	db = r.resolveDB(db)
	row := &Round{
		ID:        roundSingletonID,
		StartTime: round.StartTime,
		EndTime:   round.EndTime,
		IsActive:  round.IsActive,
		UpdatedAt: time.Now().UTC(),
	}
	_, err := db.NewInsert().
		Model(row).
		On("CONFLICT (id) DO UPDATE").
		Set("start_time = EXCLUDED.start_time").
		Set("end_time = EXCLUDED.end_time").
		Set("is_active = EXCLUDED.is_active").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to save round: %w", err)
	}
	return nil
}

// --- Hack sessions ---

func (r *Impl) GetHackSession(ctx context.Context, db bun.IDB, ownerID string, stationID uuid.UUID) (*lanterntypes.HackSession, error) {
	db = r.resolveDB(db)
	row := new(HackSession)
	err := db.NewSelect().
		Model(row).
		Where("owner_id = ?", ownerID).
		Where("station_id = ?", stationID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get hack session: %w", err)
	}
	h := row.toDomain()
	return &h, nil
}

func (r *Impl) InsertHackSession(ctx context.Context, db bun.IDB, session *lanterntypes.HackSession) (bool, error) {
	db = r.resolveDB(db)
	result, err := db.NewInsert().
		Model(sessionFromDomain(session)).
		On("CONFLICT (owner_id, station_id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to insert hack session: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows == 1, nil
}

func (r *Impl) UpdateHackSessionTries(ctx context.Context, db bun.IDB, ownerID string, stationID uuid.UUID, triesLeft int) error {
	db = r.resolveDB(db)
	result, err := db.NewUpdate().
		Model((*HackSession)(nil)).
		Set("tries_left = ?", triesLeft).
		Where("owner_id = ?", ownerID).
		Where("station_id = ?", stationID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to update hack session tries: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Impl) DeleteHackSession(ctx context.Context, db bun.IDB, ownerID string, stationID uuid.UUID) error {
	db = r.resolveDB(db)
	_, err := db.NewDelete().
		Model((*HackSession)(nil)).
		Where("owner_id = ?", ownerID).
		Where("station_id = ?", stationID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete hack session: %w", err)
	}
	return nil
}

func (r *Impl) DeleteHackSessionsForStation(ctx context.Context, db bun.IDB, stationID uuid.UUID) (int, error) {
	db = r.resolveDB(db)
	result, err := db.NewDelete().
		Model((*HackSession)(nil)).
		Where("station_id = ?", stationID).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to delete station hack sessions: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return int(rows), nil
}

func (r *Impl) DeleteAllHackSessions(ctx context.Context, db bun.IDB) (int, error) {
	db = r.resolveDB(db)
	result, err := db.NewDelete().
		Model((*HackSession)(nil)).
		Where("TRUE").
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to delete hack sessions: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return int(rows), nil
}

// --- Teams ---

func (r *Impl) CreateTeam(ctx context.Context, db bun.IDB, team *lanterntypes.Team) error {
	db = r.resolveDB(db)
	row := &Team{ID: team.ID, Name: team.Name, CreatedAt: time.Now().UTC()}
	if _, err := db.NewInsert().Model(row).Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to create team: %w", err)
	}
	return nil
}

func (r *Impl) GetTeam(ctx context.Context, db bun.IDB, id uuid.UUID) (*lanterntypes.Team, error) {
	db = r.resolveDB(db)
	row := new(Team)
	if err := db.NewSelect().Model(row).Where("id = ?", id).Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get team: %w", err)
	}
	t := row.toDomain()
	return &t, nil
}

func (r *Impl) ListTeams(ctx context.Context, db bun.IDB) ([]lanterntypes.Team, error) {
	db = r.resolveDB(db)
	var rows []Team
	if err := db.NewSelect().Model(&rows).Order("name ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}
	out := make([]lanterntypes.Team, len(rows))
	for i := range rows {
		out[i] = rows[i].toDomain()
	}
	return out, nil
}

func (r *Impl) AssignMember(ctx context.Context, db bun.IDB, userID string, teamID uuid.UUID) error {
	db = r.resolveDB(db)
	row := &TeamMember{UserID: userID, TeamID: teamID, UpdatedAt: time.Now().UTC()}
	_, err := db.NewInsert().
		Model(row).
		On("CONFLICT (user_id) DO UPDATE").
		Set("team_id = EXCLUDED.team_id").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to assign team member: %w", err)
	}
	return nil
}

func (r *Impl) GetTeamForUser(ctx context.Context, db bun.IDB, userID string) (*lanterntypes.Team, error) {
	db = r.resolveDB(db)
	row := new(Team)
	err := db.NewSelect().
		Model(row).
		Join("JOIN lantern_team_members AS ltm ON ltm.team_id = lt.id").
		Where("ltm.user_id = ?", userID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get team for user: %w", err)
	}
	t := row.toDomain()
	return &t, nil
}
