package lanternhandlers

import (
	"context"
	"errors"
	"time"

	lanternservice "github.com/Black-And-White-Club/lantern-bot/app/modules/lantern/application"
	lanterntypes "github.com/Black-And-White-Club/lantern-bot/app/modules/lantern/domain"
	lanterngate "github.com/Black-And-White-Club/lantern-bot/app/modules/lantern/infrastructure/gate"
	lanternjwt "github.com/Black-And-White-Club/lantern-bot/pkg/jwt"
	"github.com/google/uuid"
)

var errNotStubbed = errors.New("not stubbed")

// FakeService records calls and returns whatever its Fn fields return.
type FakeService struct {
	trace []string

	CreateHackSessionFn func(ctx context.Context, ownerID string, stationID uuid.UUID) (*lanterntypes.HackSessionView, error)
	AttemptGuessFn      func(ctx context.Context, ownerID string, stationID uuid.UUID, password string, boost int) (*lanterntypes.GuessResult, error)
	GetHackSessionFn    func(ctx context.Context, stationID uuid.UUID, ownerID string) (*lanterntypes.HackSessionView, error)
	GetRoundStateFn     func(ctx context.Context) (*lanterntypes.Round, error)
	SetRoundStateFn     func(ctx context.Context, start, end time.Time, active bool) (*lanterntypes.Round, error)
	ResetAllStationsFn  func(ctx context.Context) (*lanternservice.ResetSummary, error)
	CreateStationFn     func(ctx context.Context, name string, baseline *int) (*lanterntypes.Station, error)
	SetStationActiveFn  func(ctx context.Context, stationID uuid.UUID, active bool) (*lanterntypes.Station, error)
	CreateTeamFn        func(ctx context.Context, name string) (*lanterntypes.Team, error)
	AssignMemberFn      func(ctx context.Context, userID string, teamID uuid.UUID) error
	GetTeamScoresFn     func(ctx context.Context) ([]lanterntypes.TeamScore, error)
}

var _ lanternservice.Service = (*FakeService)(nil)

func NewFakeService() *FakeService { return &FakeService{} }

func (f *FakeService) Trace() []string { return f.trace }

func (f *FakeService) record(op string) { f.trace = append(f.trace, op) }

func (f *FakeService) CreateHackSession(ctx context.Context, ownerID string, stationID uuid.UUID) (*lanterntypes.HackSessionView, error) {
	f.record("CreateHackSession")
	if f.CreateHackSessionFn != nil {
		return f.CreateHackSessionFn(ctx, ownerID, stationID)
	}
	return nil, errNotStubbed
}

func (f *FakeService) AttemptGuess(ctx context.Context, ownerID string, stationID uuid.UUID, password string, boost int) (*lanterntypes.GuessResult, error) {
	f.record("AttemptGuess")
	if f.AttemptGuessFn != nil {
		return f.AttemptGuessFn(ctx, ownerID, stationID, password, boost)
	}
	return nil, errNotStubbed
}

func (f *FakeService) GetHackSession(ctx context.Context, stationID uuid.UUID, ownerID string) (*lanterntypes.HackSessionView, error) {
	f.record("GetHackSession")
	if f.GetHackSessionFn != nil {
		return f.GetHackSessionFn(ctx, stationID, ownerID)
	}
	return nil, errNotStubbed
}

func (f *FakeService) GetRoundState(ctx context.Context) (*lanterntypes.Round, error) {
	f.record("GetRoundState")
	if f.GetRoundStateFn != nil {
		return f.GetRoundStateFn(ctx)
	}
	return nil, errNotStubbed
}

func (f *FakeService) SetRoundState(ctx context.Context, start, end time.Time, active bool) (*lanterntypes.Round, error) {
	f.record("SetRoundState")
	if f.SetRoundStateFn != nil {
		return f.SetRoundStateFn(ctx, start, end, active)
	}
	return nil, errNotStubbed
}

func (f *FakeService) ResetAllStations(ctx context.Context) (*lanternservice.ResetSummary, error) {
	f.record("ResetAllStations")
	if f.ResetAllStationsFn != nil {
		return f.ResetAllStationsFn(ctx)
	}
	return nil, errNotStubbed
}

func (f *FakeService) ExpireRound(context.Context) error {
	f.record("ExpireRound")
	return nil
}

func (f *FakeService) Resume(context.Context) error {
	f.record("Resume")
	return nil
}

func (f *FakeService) Stop() { f.record("Stop") }

func (f *FakeService) CreateStation(ctx context.Context, name string, baseline *int) (*lanterntypes.Station, error) {
	f.record("CreateStation")
	if f.CreateStationFn != nil {
		return f.CreateStationFn(ctx, name, baseline)
	}
	return nil, errNotStubbed
}

func (f *FakeService) SetStationActive(ctx context.Context, stationID uuid.UUID, active bool) (*lanterntypes.Station, error) {
	f.record("SetStationActive")
	if f.SetStationActiveFn != nil {
		return f.SetStationActiveFn(ctx, stationID, active)
	}
	return nil, errNotStubbed
}

func (f *FakeService) ListStations(context.Context, bool) ([]lanterntypes.Station, error) {
	f.record("ListStations")
	return nil, errNotStubbed
}

func (f *FakeService) GetStation(context.Context, uuid.UUID) (*lanterntypes.Station, error) {
	f.record("GetStation")
	return nil, errNotStubbed
}

func (f *FakeService) CreateTeam(ctx context.Context, name string) (*lanterntypes.Team, error) {
	f.record("CreateTeam")
	if f.CreateTeamFn != nil {
		return f.CreateTeamFn(ctx, name)
	}
	return nil, errNotStubbed
}

func (f *FakeService) AssignMember(ctx context.Context, userID string, teamID uuid.UUID) error {
	f.record("AssignMember")
	if f.AssignMemberFn != nil {
		return f.AssignMemberFn(ctx, userID, teamID)
	}
	return errNotStubbed
}

func (f *FakeService) GetTeamForUser(context.Context, string) (*lanterntypes.Team, error) {
	f.record("GetTeamForUser")
	return nil, errNotStubbed
}

func (f *FakeService) GetTeamScores(ctx context.Context) ([]lanterntypes.TeamScore, error) {
	f.record("GetTeamScores")
	if f.GetTeamScoresFn != nil {
		return f.GetTeamScoresFn(ctx)
	}
	return nil, errNotStubbed
}

// FakeGate grants every command to Principal unless Deny is set.
type FakeGate struct {
	Principal lanterngate.Principal
	Deny      error
	Commands  []lanterngate.Command
}

func (g *FakeGate) Authorize(_ context.Context, _ string, cmd lanterngate.Command) (*lanterngate.Principal, error) {
	g.Commands = append(g.Commands, cmd)
	if g.Deny != nil {
		return nil, g.Deny
	}
	p := g.Principal
	return &p, nil
}

func playerGate() *FakeGate {
	return &FakeGate{Principal: lanterngate.Principal{UserID: "alice", Role: lanternjwt.RolePlayer}}
}

// FakeTimeParser parses RFC3339 only.
type FakeTimeParser struct{}

func (FakeTimeParser) ParseRoundTime(input, _ string, _ time.Time) (time.Time, error) {
	return time.Parse(time.RFC3339, input)
}
