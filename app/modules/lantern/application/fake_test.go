package lanternservice

import (
	"context"
	"fmt"
	"sync"
	"time"

	lanterntypes "github.com/Black-And-White-Club/lantern-bot/app/modules/lantern/domain"
	lanternevents "github.com/Black-And-White-Club/lantern-bot/app/modules/lantern/events"
	lanterndb "github.com/Black-And-White-Club/lantern-bot/app/modules/lantern/infrastructure/repositories"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ------------------------
// Fake Lantern Repo
// ------------------------

// FakeLanternRepo delegates to an in-memory repository unless a ...Func override is set.
type FakeLanternRepo struct {
	mu      sync.Mutex
	trace   []string
	backing *lanterndb.MemoryRepository

	GetStationFunc             func(ctx context.Context, db bun.IDB, id uuid.UUID) (*lanterntypes.Station, error)
	ListStationsFunc           func(ctx context.Context, db bun.IDB, includeInactive bool) ([]lanterntypes.Station, error)
	SaveStationFunc            func(ctx context.Context, db bun.IDB, station *lanterntypes.Station) error
	LockStationFunc            func(ctx context.Context, db bun.IDB, id uuid.UUID) error
	GetRoundFunc               func(ctx context.Context, db bun.IDB) (*lanterntypes.Round, error)
	GetHackSessionFunc         func(ctx context.Context, db bun.IDB, ownerID string, stationID uuid.UUID) (*lanterntypes.HackSession, error)
	InsertHackSessionFunc      func(ctx context.Context, db bun.IDB, session *lanterntypes.HackSession) (bool, error)
	UpdateHackSessionTriesFunc func(ctx context.Context, db bun.IDB, ownerID string, stationID uuid.UUID, triesLeft int) error
	DeleteAllHackSessionsFunc  func(ctx context.Context, db bun.IDB) (int, error)
	CreateTeamFunc             func(ctx context.Context, db bun.IDB, team *lanterntypes.Team) error
	GetTeamForUserFunc         func(ctx context.Context, db bun.IDB, userID string) (*lanterntypes.Team, error)
}

func NewFakeLanternRepo() *FakeLanternRepo {
	return &FakeLanternRepo{
		trace:   []string{},
		backing: lanterndb.NewMemoryRepository(),
	}
}

func (f *FakeLanternRepo) record(step string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.trace = append(f.trace, step)
}

// --- Repository Interface Implementation ---

func (f *FakeLanternRepo) GetStation(ctx context.Context, db bun.IDB, id uuid.UUID) (*lanterntypes.Station, error) {
	f.record("GetStation")
	if f.GetStationFunc != nil {
		return f.GetStationFunc(ctx, db, id)
	}
	return f.backing.GetStation(ctx, db, id)
}

func (f *FakeLanternRepo) ListStations(ctx context.Context, db bun.IDB, includeInactive bool) ([]lanterntypes.Station, error) {
	f.record("ListStations")
	if f.ListStationsFunc != nil {
		return f.ListStationsFunc(ctx, db, includeInactive)
	}
	return f.backing.ListStations(ctx, db, includeInactive)
}

func (f *FakeLanternRepo) CreateStation(ctx context.Context, db bun.IDB, station *lanterntypes.Station) error {
	f.record("CreateStation")
	return f.backing.CreateStation(ctx, db, station)
}

func (f *FakeLanternRepo) SaveStation(ctx context.Context, db bun.IDB, station *lanterntypes.Station) error {
	f.record("SaveStation")
	if f.SaveStationFunc != nil {
		return f.SaveStationFunc(ctx, db, station)
	}
	return f.backing.SaveStation(ctx, db, station)
}

func (f *FakeLanternRepo) LockStation(ctx context.Context, db bun.IDB, id uuid.UUID) error {
	f.record("LockStation")
	if f.LockStationFunc != nil {
		return f.LockStationFunc(ctx, db, id)
	}
	return f.backing.LockStation(ctx, db, id)
}

func (f *FakeLanternRepo) GetRound(ctx context.Context, db bun.IDB) (*lanterntypes.Round, error) {
	f.record("GetRound")
	if f.GetRoundFunc != nil {
		return f.GetRoundFunc(ctx, db)
	}
	return f.backing.GetRound(ctx, db)
}

func (f *FakeLanternRepo) SaveRound(ctx context.Context, db bun.IDB, round *lanterntypes.Round) error {
	f.record("SaveRound")
	return f.backing.SaveRound(ctx, db, round)
}

func (f *FakeLanternRepo) GetHackSession(ctx context.Context, db bun.IDB, ownerID string, stationID uuid.UUID) (*lanterntypes.HackSession, error) {
	f.record("GetHackSession")
	if f.GetHackSessionFunc != nil {
		return f.GetHackSessionFunc(ctx, db, ownerID, stationID)
	}
	return f.backing.GetHackSession(ctx, db, ownerID, stationID)
}

func (f *FakeLanternRepo) InsertHackSession(ctx context.Context, db bun.IDB, session *lanterntypes.HackSession) (bool, error) {
	f.record("InsertHackSession")
	if f.InsertHackSessionFunc != nil {
		return f.InsertHackSessionFunc(ctx, db, session)
	}
	return f.backing.InsertHackSession(ctx, db, session)
}

func (f *FakeLanternRepo) UpdateHackSessionTries(ctx context.Context, db bun.IDB, ownerID string, stationID uuid.UUID, triesLeft int) error {
	f.record("UpdateHackSessionTries")
	if f.UpdateHackSessionTriesFunc != nil {
		return f.UpdateHackSessionTriesFunc(ctx, db, ownerID, stationID, triesLeft)
	}
	return f.backing.UpdateHackSessionTries(ctx, db, ownerID, stationID, triesLeft)
}

func (f *FakeLanternRepo) DeleteHackSession(ctx context.Context, db bun.IDB, ownerID string, stationID uuid.UUID) error {
	f.record("DeleteHackSession")
	return f.backing.DeleteHackSession(ctx, db, ownerID, stationID)
}

func (f *FakeLanternRepo) DeleteHackSessionsForStation(ctx context.Context, db bun.IDB, stationID uuid.UUID) (int, error) {
	f.record("DeleteHackSessionsForStation")
	return f.backing.DeleteHackSessionsForStation(ctx, db, stationID)
}

func (f *FakeLanternRepo) DeleteAllHackSessions(ctx context.Context, db bun.IDB) (int, error) {
	f.record("DeleteAllHackSessions")
	if f.DeleteAllHackSessionsFunc != nil {
		return f.DeleteAllHackSessionsFunc(ctx, db)
	}
	return f.backing.DeleteAllHackSessions(ctx, db)
}

func (f *FakeLanternRepo) CreateTeam(ctx context.Context, db bun.IDB, team *lanterntypes.Team) error {
	f.record("CreateTeam")
	if f.CreateTeamFunc != nil {
		return f.CreateTeamFunc(ctx, db, team)
	}
	return f.backing.CreateTeam(ctx, db, team)
}

func (f *FakeLanternRepo) GetTeam(ctx context.Context, db bun.IDB, id uuid.UUID) (*lanterntypes.Team, error) {
	f.record("GetTeam")
	return f.backing.GetTeam(ctx, db, id)
}

func (f *FakeLanternRepo) ListTeams(ctx context.Context, db bun.IDB) ([]lanterntypes.Team, error) {
	f.record("ListTeams")
	return f.backing.ListTeams(ctx, db)
}

func (f *FakeLanternRepo) AssignMember(ctx context.Context, db bun.IDB, userID string, teamID uuid.UUID) error {
	f.record("AssignMember")
	return f.backing.AssignMember(ctx, db, userID, teamID)
}

func (f *FakeLanternRepo) GetTeamForUser(ctx context.Context, db bun.IDB, userID string) (*lanterntypes.Team, error) {
	f.record("GetTeamForUser")
	if f.GetTeamForUserFunc != nil {
		return f.GetTeamForUserFunc(ctx, db, userID)
	}
	return f.backing.GetTeamForUser(ctx, db, userID)
}

// --- Accessors for assertions ---

func (f *FakeLanternRepo) Trace() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.trace))
	copy(out, f.trace)
	return out
}

var _ lanterndb.Repository = (*FakeLanternRepo)(nil)

// ------------------------
// Fake Password Generator
// ------------------------

// FakePasswords issues "secret-1", "secret-2"... with decoys derived from the real value.
type FakePasswords struct {
	mu    sync.Mutex
	calls int

	GenerateFunc func(secret string, decoyCount int) (PasswordSet, error)
}

func (f *FakePasswords) NewPassword() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return fmt.Sprintf("secret-%d", f.calls)
}

func (f *FakePasswords) Generate(secret string, decoyCount int) (PasswordSet, error) {
	if f.GenerateFunc != nil {
		return f.GenerateFunc(secret, decoyCount)
	}
	set := PasswordSet{Real: lanterntypes.Password{Value: secret, Hints: []string{fmt.Sprintf("length %d", len(secret))}}}
	for i := range decoyCount {
		set.Decoys = append(set.Decoys, lanterntypes.Password{Value: fmt.Sprintf("decoy-%d-%s", i, secret)})
	}
	return set, nil
}

// ------------------------
// Fake Broadcaster
// ------------------------

type publishedEvent struct {
	Topic   string
	TeamID  uuid.UUID
	Payload any
}

type FakeBroadcaster struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (f *FakeBroadcaster) Publish(_ context.Context, topic string, payload any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, publishedEvent{Topic: topic, Payload: payload})
}

func (f *FakeBroadcaster) PublishToTeam(_ context.Context, topic string, teamID uuid.UUID, payload any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, publishedEvent{Topic: topic, TeamID: teamID, Payload: payload})
}

func (f *FakeBroadcaster) Events() []publishedEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]publishedEvent(nil), f.events...)
}

// Topics lists the published topics, team-scoped ones suffixed with the team id.
func (f *FakeBroadcaster) Topics() []string {
	var out []string
	for _, e := range f.Events() {
		if e.TeamID != uuid.Nil {
			out = append(out, e.Topic+"."+e.TeamID.String())
			continue
		}
		out = append(out, e.Topic)
	}
	return out
}

// StationOutcomes lists the outcomes of global station updates in publish order.
func (f *FakeBroadcaster) StationOutcomes() []string {
	var out []string
	for _, e := range f.Events() {
		if p, ok := e.Payload.(lanternevents.StationUpdatedPayloadV1); ok && e.TeamID == uuid.Nil {
			out = append(out, p.Outcome)
		}
	}
	return out
}

func (f *FakeBroadcaster) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = nil
}

// ------------------------
// Fake Expiry Scheduler
// ------------------------

type FakeExpiry struct {
	mu        sync.Mutex
	scheduled []time.Time
	cancels   int

	ScheduleExpiryFunc func(ctx context.Context, endTime time.Time) error
}

func (f *FakeExpiry) ScheduleExpiry(ctx context.Context, endTime time.Time) error {
	f.mu.Lock()
	f.scheduled = append(f.scheduled, endTime)
	f.mu.Unlock()
	if f.ScheduleExpiryFunc != nil {
		return f.ScheduleExpiryFunc(ctx, endTime)
	}
	return nil
}

func (f *FakeExpiry) CancelExpiry(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancels++
	return nil
}

func (f *FakeExpiry) Scheduled() []time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]time.Time(nil), f.scheduled...)
}
