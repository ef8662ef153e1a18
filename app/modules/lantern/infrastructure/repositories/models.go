package lanterndb

import (
	"time"

	lanterntypes "github.com/Black-And-White-Club/lantern-bot/app/modules/lantern/domain"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Station is the lantern_stations row.
type Station struct {
	bun.BaseModel `bun:"table:lantern_stations,alias:ls"`

	ID             uuid.UUID  `bun:"id,pk,type:uuid"`
	Name           string     `bun:"name,notnull"`
	SignalValue    int        `bun:"signal_value,notnull"`
	BaselineSignal int        `bun:"baseline_signal,notnull"`
	BoostingSignal int        `bun:"boosting_signal,notnull"`
	OwnerTeamID    *uuid.UUID `bun:"owner_team_id,type:uuid"`
	IsActive       bool       `bun:"is_active,notnull"`
	Version        int64      `bun:"version,notnull"`
	CreatedAt      time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt      time.Time  `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

// Round is the singleton lantern_round row; ID is always 1.
type Round struct {
	bun.BaseModel `bun:"table:lantern_round,alias:lr"`

	ID        int16     `bun:"id,pk"`
	StartTime time.Time `bun:"start_time,notnull"`
	EndTime   time.Time `bun:"end_time,notnull"`
	IsActive  bool      `bun:"is_active,notnull"`
	UpdatedAt time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

// HackSession is the lantern_hack_sessions row, keyed by (owner_id, station_id).
type HackSession struct {
	bun.BaseModel `bun:"table:lantern_hack_sessions,alias:lhs"`

	OwnerID        string                  `bun:"owner_id,pk"`
	StationID      uuid.UUID               `bun:"station_id,pk,type:uuid"`
	TriesLeft      int                     `bun:"tries_left,notnull"`
	RealPassword   lanterntypes.Password   `bun:"real_password,type:jsonb,notnull"`
	DecoyPasswords []lanterntypes.Password `bun:"decoy_passwords,type:jsonb,notnull"`
	StationVersion int64                   `bun:"station_version,notnull"`
	CreatedAt      time.Time               `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

// Team is the lantern_teams row.
type Team struct {
	bun.BaseModel `bun:"table:lantern_teams,alias:lt"`

	ID        uuid.UUID `bun:"id,pk,type:uuid"`
	Name      string    `bun:"name,notnull,unique"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

// TeamMember maps a user to exactly one team.
type TeamMember struct {
	bun.BaseModel `bun:"table:lantern_team_members,alias:ltm"`

	UserID    string    `bun:"user_id,pk"`
	TeamID    uuid.UUID `bun:"team_id,type:uuid,notnull"`
	UpdatedAt time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

func stationFromDomain(s *lanterntypes.Station) *Station {
	return &Station{
		ID:             s.ID,
		Name:           s.Name,
		SignalValue:    s.SignalValue,
		BaselineSignal: s.BaselineSignal,
		BoostingSignal: s.BoostingSignal,
		OwnerTeamID:    s.OwnerTeamID,
		IsActive:       s.IsActive,
		Version:        s.Version,
		UpdatedAt:      s.UpdatedAt,
	}
}

func (s *Station) toDomain() lanterntypes.Station {
	return lanterntypes.Station{
		ID:             s.ID,
		Name:           s.Name,
		SignalValue:    s.SignalValue,
		BaselineSignal: s.BaselineSignal,
		BoostingSignal: s.BoostingSignal,
		OwnerTeamID:    s.OwnerTeamID,
		IsActive:       s.IsActive,
		Version:        s.Version,
		UpdatedAt:      s.UpdatedAt,
	}
}

func (r *Round) toDomain() lanterntypes.Round {
	return lanterntypes.Round{
		StartTime: r.StartTime,
		EndTime:   r.EndTime,
		IsActive:  r.IsActive,
	}
}

func sessionFromDomain(h *lanterntypes.HackSession) *HackSession {
	decoys := h.DecoyPasswords
	if decoys == nil {
		decoys = []lanterntypes.Password{}
	}
	return &HackSession{
		OwnerID:        h.OwnerID,
		StationID:      h.StationID,
		TriesLeft:      h.TriesLeft,
		RealPassword:   h.RealPassword,
		DecoyPasswords: decoys,
		StationVersion: h.StationVersion,
		CreatedAt:      h.CreatedAt,
	}
}

func (h *HackSession) toDomain() lanterntypes.HackSession {
	return lanterntypes.HackSession{
		OwnerID:        h.OwnerID,
		StationID:      h.StationID,
		TriesLeft:      h.TriesLeft,
		RealPassword:   h.RealPassword,
		DecoyPasswords: h.DecoyPasswords,
		StationVersion: h.StationVersion,
		CreatedAt:      h.CreatedAt,
	}
}

func (t *Team) toDomain() lanterntypes.Team {
	return lanterntypes.Team{ID: t.ID, Name: t.Name}
}
