// Package lanternevents defines the lantern message topics and payloads.
package lanternevents

import (
	"time"

	lanterntypes "github.com/Black-And-White-Club/lantern-bot/app/modules/lantern/domain"
)

// Request topics.
const (
	HackSessionCreateRequestedV1 = "lantern.hack.session.create.requested.v1"
	HackGuessRequestedV1         = "lantern.hack.guess.requested.v1"
	HackSessionGetRequestedV1    = "lantern.hack.session.get.requested.v1"
	RoundGetRequestedV1          = "lantern.round.get.requested.v1"
	RoundSetRequestedV1          = "lantern.round.set.requested.v1"
	StationsResetRequestedV1     = "lantern.stations.reset.requested.v1"
	StationCreateRequestedV1     = "lantern.station.create.requested.v1"
	StationActiveRequestedV1     = "lantern.station.active.requested.v1"
	TeamCreateRequestedV1        = "lantern.team.create.requested.v1"
	TeamMemberAssignRequestedV1  = "lantern.team.member.assign.requested.v1"
	ScoresGetRequestedV1         = "lantern.scores.get.requested.v1"
)

// Broadcast topics.
const (
	// StationUpdatedV1 is published globally and, suffixed with a team id, per affected team.
	StationUpdatedV1   = "lantern.station.updated.v1"
	StationsSnapshotV1 = "lantern.stations.snapshot.v1"
	RoundUpdatedV1     = "lantern.round.updated.v1"
	ScoresUpdatedV1    = "lantern.scores.updated.v1"
)

// Reply suffixes used when a request carries no reply_to.
const (
	ResponseSuffix = ".response"
	FailedSuffix   = ".failed"
)

// Stream covering every lantern subject.
const (
	StreamName    = "lantern"
	StreamSubject = "lantern.>"
)

// RequestTopics lists every topic the lantern router consumes.
func RequestTopics() []string {
	return []string{
		HackSessionCreateRequestedV1,
		HackGuessRequestedV1,
		HackSessionGetRequestedV1,
		RoundGetRequestedV1,
		RoundSetRequestedV1,
		StationsResetRequestedV1,
		StationCreateRequestedV1,
		StationActiveRequestedV1,
		TeamCreateRequestedV1,
		TeamMemberAssignRequestedV1,
		ScoresGetRequestedV1,
	}
}

// Authenticated is embedded by every request payload.
type Authenticated struct {
	Token string `json:"token"`
}

type HackSessionCreateRequestedPayloadV1 struct {
	Authenticated
	StationID string `json:"stationId"`
}

type HackGuessRequestedPayloadV1 struct {
	Authenticated
	StationID      string `json:"stationId"`
	Password       string `json:"password"`
	BoostingSignal int    `json:"boostingSignal"`
}

type HackSessionGetRequestedPayloadV1 struct {
	Authenticated
	StationID string `json:"stationId"`
}

type RoundGetRequestedPayloadV1 struct {
	Authenticated
}

// RoundSetRequestedPayloadV1 accepts RFC3339 or natural language times ("in 2 hours").
type RoundSetRequestedPayloadV1 struct {
	Authenticated
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
	// Timezone applies to natural language times; empty means UTC.
	Timezone string `json:"timezone,omitempty"`
	IsActive bool   `json:"isActive"`
}

type StationsResetRequestedPayloadV1 struct {
	Authenticated
}

type StationCreateRequestedPayloadV1 struct {
	Authenticated
	Name           string `json:"name"`
	BaselineSignal *int   `json:"baselineSignal,omitempty"`
}

type StationActiveRequestedPayloadV1 struct {
	Authenticated
	StationID string `json:"stationId"`
	IsActive  bool   `json:"isActive"`
}

type TeamCreateRequestedPayloadV1 struct {
	Authenticated
	Name string `json:"name"`
}

type TeamMemberAssignRequestedPayloadV1 struct {
	Authenticated
	UserID string `json:"userId"`
	TeamID string `json:"teamId"`
}

type ScoresGetRequestedPayloadV1 struct {
	Authenticated
}

// FailurePayloadV1 is the reply to any request that did not succeed.
type FailurePayloadV1 struct {
	Code   string `json:"code"`
	Reason string `json:"reason"`
	// TriesLeft is set when a guess failed after consuming a try.
	TriesLeft *int `json:"triesLeft,omitempty"`
}

type HackSessionPayloadV1 struct {
	Session lanterntypes.HackSessionView `json:"session"`
}

type GuessResultPayloadV1 struct {
	lanterntypes.GuessResult
	// NewSessionRequired is true after a lockout.
	NewSessionRequired bool `json:"newSessionRequired"`
}

type RoundPayloadV1 struct {
	Round lanterntypes.Round `json:"round"`
}

type StationPayloadV1 struct {
	Station lanterntypes.Station `json:"station"`
}

type TeamPayloadV1 struct {
	Team lanterntypes.Team `json:"team"`
}

type TeamMemberPayloadV1 struct {
	UserID string `json:"userId"`
	TeamID string `json:"teamId"`
}

type ScoresPayloadV1 struct {
	Scores []lanterntypes.TeamScore `json:"scores"`
}

// StationUpdatedPayloadV1 is broadcast after a guess touched a station.
type StationUpdatedPayloadV1 struct {
	Station lanterntypes.Station `json:"station"`
	// Outcome is one of success, wrong, lockout, conflict, created, deactivated, activated.
	Outcome    string    `json:"outcome"`
	ActorTeam  string    `json:"actorTeam,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

type StationsSnapshotPayloadV1 struct {
	Stations   []lanterntypes.Station `json:"stations"`
	OccurredAt time.Time              `json:"occurredAt"`
}

type ResetSummaryPayloadV1 struct {
	StationsReset   int `json:"stationsReset"`
	StationsFailed  int `json:"stationsFailed"`
	SessionsRemoved int `json:"sessionsRemoved"`
}
