package lanternservice

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	lanterntypes "github.com/Black-And-White-Club/lantern-bot/app/modules/lantern/domain"
	lanternmetrics "github.com/Black-And-White-Club/lantern-bot/internal/observability/metrics/lantern"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel/trace/noop"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	svc       *LanternService
	repo      *FakeLanternRepo
	clock     *FakeClock
	bus       *FakeBroadcaster
	expiry    *FakeExpiry
	passwords *FakePasswords

	red, blue lanterntypes.Team
	station   lanterntypes.Station
}

// newFixture builds a service over an in-memory store with an active round, one station at
// baseline 50, team red (alice, bob) and team blue (carol).
func newFixture(t *testing.T, settings Settings) *fixture {
	t.Helper()
	ctx := context.Background()

	f := &fixture{
		repo:      NewFakeLanternRepo(),
		clock:     NewFakeClock(testNow),
		bus:       &FakeBroadcaster{},
		expiry:    &FakeExpiry{},
		passwords: &FakePasswords{},
	}
	f.svc = NewLanternService(
		f.repo,
		slog.Default(),
		lanternmetrics.NewNoop(),
		noop.NewTracerProvider().Tracer("test"),
		nil,
		settings,
		Dependencies{
			Passwords:   f.passwords,
			Broadcaster: f.bus,
			Clock:       f.clock,
			Expiry:      f.expiry,
		},
	)
	t.Cleanup(f.svc.Stop)

	require.NoError(t, f.repo.backing.SaveRound(ctx, nil, &lanterntypes.Round{
		StartTime: testNow.Add(-time.Minute),
		EndTime:   testNow.Add(time.Hour),
		IsActive:  true,
	}))

	f.red = lanterntypes.Team{ID: uuid.New(), Name: "red"}
	f.blue = lanterntypes.Team{ID: uuid.New(), Name: "blue"}
	require.NoError(t, f.repo.backing.CreateTeam(ctx, nil, &f.red))
	require.NoError(t, f.repo.backing.CreateTeam(ctx, nil, &f.blue))
	require.NoError(t, f.repo.backing.AssignMember(ctx, nil, "alice", f.red.ID))
	require.NoError(t, f.repo.backing.AssignMember(ctx, nil, "bob", f.red.ID))
	require.NoError(t, f.repo.backing.AssignMember(ctx, nil, "carol", f.blue.ID))

	f.station = f.addStation(t, "relay", 50)
	return f
}

func (f *fixture) addStation(t *testing.T, name string, baseline int) lanterntypes.Station {
	t.Helper()
	st := lanterntypes.NewStation(name, baseline, testNow)
	require.NoError(t, f.repo.backing.CreateStation(context.Background(), nil, &st))
	return st
}

// realPassword reads the stored secret of a session; clients never see it.
func (f *fixture) realPassword(t *testing.T, owner string, stationID uuid.UUID) string {
	t.Helper()
	h, err := f.repo.backing.GetHackSession(context.Background(), nil, owner, stationID)
	require.NoError(t, err)
	return h.RealPassword.Value
}

func (f *fixture) stationNow(t *testing.T, id uuid.UUID) lanterntypes.Station {
	t.Helper()
	st, err := f.repo.backing.GetStation(context.Background(), nil, id)
	require.NoError(t, err)
	return *st
}

func TestCreateHackSession(t *testing.T) {
	tests := []struct {
		name        string
		setup       func(t *testing.T, f *fixture)
		owner       string
		station     func(f *fixture) uuid.UUID
		wantErrType error
		wantInfra   bool
		check       func(t *testing.T, f *fixture, view *lanterntypes.HackSessionView)
	}{
		{
			name:  "issues a fresh session with full tries",
			owner: "alice",
			check: func(t *testing.T, f *fixture, view *lanterntypes.HackSessionView) {
				assert.Equal(t, 3, view.TriesLeft)
				assert.Len(t, view.Candidates, 6)
				assert.Contains(t, view.Candidates, f.realPassword(t, "alice", f.station.ID))
				assert.Equal(t, []string{"length 8"}, view.Hints)

				h, _ := f.repo.backing.GetHackSession(context.Background(), nil, "alice", f.station.ID)
				assert.Equal(t, f.station.Version, h.StationVersion)
				assert.Equal(t, testNow, h.CreatedAt)
			},
		},
		{
			name:        "unknown station",
			owner:       "alice",
			station:     func(*fixture) uuid.UUID { return uuid.New() },
			wantErrType: ErrStationNotFound,
		},
		{
			name:  "inactive station",
			owner: "alice",
			setup: func(t *testing.T, f *fixture) {
				st := f.stationNow(t, f.station.ID)
				st.Deactivate(testNow)
				require.NoError(t, f.repo.backing.SaveStation(context.Background(), nil, &st))
			},
			wantErrType: ErrNotFound,
		},
		{
			name:        "user without a team",
			owner:       "mallory",
			wantErrType: ErrTeamNotFound,
		},
		{
			name:        "empty owner",
			owner:       " ",
			wantErrType: ErrInvalidInput,
		},
		{
			name:  "round not running",
			owner: "alice",
			setup: func(t *testing.T, f *fixture) {
				require.NoError(t, f.repo.backing.SaveRound(context.Background(), nil, &lanterntypes.Round{
					StartTime: testNow.Add(time.Hour), EndTime: testNow.Add(2 * time.Hour), IsActive: true,
				}))
			},
			wantErrType: ErrRoundInactive,
		},
		{
			name:  "station read fails",
			owner: "alice",
			setup: func(t *testing.T, f *fixture) {
				f.repo.GetStationFunc = func(context.Context, bun.IDB, uuid.UUID) (*lanterntypes.Station, error) {
					return nil, errors.New("connection reset")
				}
			},
			wantInfra: true,
		},
		{
			name:  "lost insert race returns the winner",
			owner: "alice",
			setup: func(t *testing.T, f *fixture) {
				f.repo.InsertHackSessionFunc = func(ctx context.Context, db bun.IDB, h *lanterntypes.HackSession) (bool, error) {
					winner := *h
					winner.TriesLeft = 2
					winner.RealPassword = lanterntypes.Password{Value: "winner"}
					_, err := f.repo.backing.InsertHackSession(ctx, db, &winner)
					return false, err
				}
			},
			check: func(t *testing.T, f *fixture, view *lanterntypes.HackSessionView) {
				assert.Equal(t, 2, view.TriesLeft)
				assert.Contains(t, view.Candidates, "winner")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, Settings{})
			if tt.setup != nil {
				tt.setup(t, f)
			}
			stationID := f.station.ID
			if tt.station != nil {
				stationID = tt.station(f)
			}

			view, err := f.svc.CreateHackSession(context.Background(), tt.owner, stationID)

			switch {
			case tt.wantErrType != nil:
				assert.ErrorIs(t, err, tt.wantErrType)
				assert.Nil(t, view)
			case tt.wantInfra:
				assert.Error(t, err)
				assert.False(t, IsDomainError(err))
			default:
				require.NoError(t, err)
				tt.check(t, f, view)
			}
		})
	}
}

func TestCreateHackSession_Idempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Settings{})

	first, err := f.svc.CreateHackSession(ctx, "alice", f.station.ID)
	require.NoError(t, err)
	secret := f.realPassword(t, "alice", f.station.ID)

	res, err := f.svc.AttemptGuess(ctx, "alice", f.station.ID, "nope", 5)
	require.NoError(t, err)
	assert.Equal(t, 2, res.TriesLeft)

	second, err := f.svc.CreateHackSession(ctx, "alice", f.station.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, second.TriesLeft, "tries must not reset")
	assert.ElementsMatch(t, first.Candidates, second.Candidates)
	assert.Equal(t, secret, f.realPassword(t, "alice", f.station.ID))
}

func TestCreateHackSession_OneSessionPerStation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Settings{})
	other := f.addStation(t, "beacon", 40)

	_, err := f.svc.CreateHackSession(ctx, "alice", f.station.ID)
	require.NoError(t, err)
	_, err = f.svc.CreateHackSession(ctx, "alice", other.ID)
	require.NoError(t, err)

	assert.NotEqual(t, f.realPassword(t, "alice", f.station.ID), f.realPassword(t, "alice", other.ID))
}

func TestGetHackSession(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Settings{})

	_, err := f.svc.GetHackSession(ctx, f.station.ID, "alice")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	_, err = f.svc.CreateHackSession(ctx, "alice", f.station.ID)
	require.NoError(t, err)

	view, err := f.svc.GetHackSession(ctx, f.station.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, f.station.ID, view.StationID)
	assert.Equal(t, 3, view.TriesLeft)
}

func TestSettings_RoundGate(t *testing.T) {
	tests := []struct {
		name     string
		settings Settings
		wantErr  error
	}{
		{name: "zero settings", settings: Settings{}, wantErr: ErrRoundInactive},
		{name: "partial settings keep the gate", settings: Settings{MaxTries: 3}, wantErr: ErrRoundInactive},
		{name: "gate lifted", settings: Settings{MaxTries: 3, AllowInactiveRound: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.settings)
			require.NoError(t, f.repo.backing.SaveRound(context.Background(), nil, &lanterntypes.Round{
				StartTime: testNow.Add(-2 * time.Hour),
				EndTime:   testNow.Add(-time.Hour),
				IsActive:  false,
			}))

			view, err := f.svc.CreateHackSession(context.Background(), "alice", f.station.ID)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, view)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, 3, view.TriesLeft)
		})
	}
}
