// Package lanterntypes holds the lantern game state and the pure rules that mutate it.
package lanterntypes

import (
	"time"

	"github.com/google/uuid"
)

// Signal bounds for every station.
const (
	MinSignal = 0
	MaxSignal = 100
)

// Station is a contestable resource.
//
// OwnerTeamID is nil exactly when BoostingSignal is 0. Version increases on every capture,
// reset and deactivation so a hack session can tell the station moved on without it.
type Station struct {
	ID             uuid.UUID  `json:"id"`
	Name           string     `json:"name"`
	SignalValue    int        `json:"signalValue"`
	BaselineSignal int        `json:"baselineSignal"`
	BoostingSignal int        `json:"boostingSignal"`
	OwnerTeamID    *uuid.UUID `json:"ownerTeamId"`
	IsActive       bool       `json:"isActive"`
	Version        int64      `json:"version"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

// Round is the singleton game window.
type Round struct {
	StartTime time.Time `json:"startTime"`
	EndTime   time.Time `json:"endTime"`
	IsActive  bool      `json:"isActive"`
}

// Team is a group of players. Points are never stored; see ComputeScores.
type Team struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// TeamScore is a derived view of a team's holdings.
type TeamScore struct {
	TeamID       uuid.UUID `json:"teamId"`
	Name         string    `json:"name"`
	Points       int       `json:"points"`
	StationsHeld int       `json:"stationsHeld"`
}

// Password is a candidate credential with the textual hints issued for it.
type Password struct {
	Value string   `json:"value"`
	Hints []string `json:"hints,omitempty"`
}

// HackSession is one user's guessing attempt against one station.
type HackSession struct {
	OwnerID        string     `json:"ownerId"`
	StationID      uuid.UUID  `json:"stationId"`
	TriesLeft      int        `json:"triesLeft"`
	RealPassword   Password   `json:"realPassword"`
	DecoyPasswords []Password `json:"decoyPasswords"`
	StationVersion int64      `json:"stationVersion"`
	CreatedAt      time.Time  `json:"createdAt"`
}

// HackSessionView is what the attacking client sees. The real password is only
// present as one of the shuffled candidates.
type HackSessionView struct {
	StationID  uuid.UUID `json:"stationId"`
	TriesLeft  int       `json:"triesLeft"`
	Candidates []string  `json:"candidates"`
	Hints      []string  `json:"hints"`
	CreatedAt  time.Time `json:"createdAt"`
}

// GuessResult is the outcome of a guess that reached the password comparison.
type GuessResult struct {
	Success   bool     `json:"success"`
	Lockout   bool     `json:"lockout"`
	TriesLeft int      `json:"triesLeft"`
	Station   *Station `json:"station,omitempty"`
}
