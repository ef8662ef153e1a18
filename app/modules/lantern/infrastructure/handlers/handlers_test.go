package lanternhandlers

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	lanternservice "github.com/Black-And-White-Club/lantern-bot/app/modules/lantern/application"
	lanterntypes "github.com/Black-And-White-Club/lantern-bot/app/modules/lantern/domain"
	lanternevents "github.com/Black-And-White-Club/lantern-bot/app/modules/lantern/events"
	lanterngate "github.com/Black-And-White-Club/lantern-bot/app/modules/lantern/infrastructure/gate"
	"github.com/Black-And-White-Club/lantern-bot/internal/handlerwrapper"
	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var handlerNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newHandlers(svc *FakeService, gate *FakeGate) *LanternHandlers {
	return NewLanternHandlers(svc, gate, FakeTimeParser{}, lanternservice.NewFakeClock(handlerNow), nil).(*LanternHandlers)
}

// single asserts a handler produced exactly one message: single(t)(h.HandleX(ctx, payload)).
func single(t *testing.T) func([]handlerwrapper.Result, error) handlerwrapper.Result {
	t.Helper()
	return func(results []handlerwrapper.Result, err error) handlerwrapper.Result {
		t.Helper()
		require.NoError(t, err)
		require.Len(t, results, 1)
		return results[0]
	}
}

func TestHandleAttemptGuess(t *testing.T) {
	stationID := uuid.New()
	captured := lanterntypes.Station{ID: stationID, SignalValue: 60, BoostingSignal: 10}

	tests := []struct {
		name        string
		payload     lanternevents.HackGuessRequestedPayloadV1
		replyTo     string
		guessFn     func(ctx context.Context, ownerID string, stationID uuid.UUID, password string, boost int) (*lanterntypes.GuessResult, error)
		gate        *FakeGate
		wantTopic   string
		wantStatus  string
		wantPayload any
		wantTrace   []string
	}{
		{
			name:    "capture",
			payload: lanternevents.HackGuessRequestedPayloadV1{StationID: stationID.String(), Password: "secret-1", BoostingSignal: 10},
			guessFn: func(_ context.Context, ownerID string, id uuid.UUID, password string, boost int) (*lanterntypes.GuessResult, error) {
				if ownerID != "alice" || id != stationID || password != "secret-1" || boost != 10 {
					return nil, fmt.Errorf("unexpected args %s %s %s %d", ownerID, id, password, boost)
				}
				return &lanterntypes.GuessResult{Success: true, TriesLeft: 3, Station: &captured}, nil
			},
			gate:       playerGate(),
			wantTopic:  lanternevents.HackGuessRequestedV1 + lanternevents.ResponseSuffix,
			wantStatus: StatusOK,
			wantPayload: &lanternevents.GuessResultPayloadV1{
				GuessResult: lanterntypes.GuessResult{Success: true, TriesLeft: 3, Station: &captured},
			},
			wantTrace: []string{"AttemptGuess"},
		},
		{
			name:    "lockout asks for a new session",
			payload: lanternevents.HackGuessRequestedPayloadV1{StationID: stationID.String(), Password: "nope", BoostingSignal: 1},
			replyTo: "_INBOX.abc",
			guessFn: func(context.Context, string, uuid.UUID, string, int) (*lanterntypes.GuessResult, error) {
				return &lanterntypes.GuessResult{Lockout: true}, nil
			},
			gate:       playerGate(),
			wantTopic:  "_INBOX.abc",
			wantStatus: StatusOK,
			wantPayload: &lanternevents.GuessResultPayloadV1{
				GuessResult:        lanterntypes.GuessResult{Lockout: true},
				NewSessionRequired: true,
			},
			wantTrace: []string{"AttemptGuess"},
		},
		{
			name:    "conflict",
			payload: lanternevents.HackGuessRequestedPayloadV1{StationID: stationID.String(), Password: "secret-1", BoostingSignal: 5},
			guessFn: func(context.Context, string, uuid.UUID, string, int) (*lanterntypes.GuessResult, error) {
				return nil, fmt.Errorf("AttemptGuess: %w", lanternservice.ErrStationStale)
			},
			gate:       playerGate(),
			wantTopic:  lanternevents.HackGuessRequestedV1 + lanternevents.FailedSuffix,
			wantStatus: StatusFailed,
			wantPayload: &lanternevents.FailurePayloadV1{
				Code:   lanternservice.CodeConflict,
				Reason: fmt.Errorf("AttemptGuess: %w", lanternservice.ErrStationStale).Error(),
			},
			wantTrace: []string{"AttemptGuess"},
		},
		{
			name:    "exhausted reports zero tries",
			payload: lanternevents.HackGuessRequestedPayloadV1{StationID: stationID.String(), Password: "x", BoostingSignal: 5},
			guessFn: func(context.Context, string, uuid.UUID, string, int) (*lanterntypes.GuessResult, error) {
				return nil, lanternservice.ErrSessionExhausted
			},
			gate:       playerGate(),
			wantTopic:  lanternevents.HackGuessRequestedV1 + lanternevents.FailedSuffix,
			wantStatus: StatusFailed,
			wantPayload: &lanternevents.FailurePayloadV1{
				Code:      lanternservice.CodeExhausted,
				Reason:    lanternservice.ErrSessionExhausted.Error(),
				TriesLeft: new(int),
			},
			wantTrace: []string{"AttemptGuess"},
		},
		{
			name:       "malformed station id never reaches the service",
			payload:    lanternevents.HackGuessRequestedPayloadV1{StationID: "tower-7", Password: "x", BoostingSignal: 5},
			gate:       playerGate(),
			wantTopic:  lanternevents.HackGuessRequestedV1 + lanternevents.FailedSuffix,
			wantStatus: StatusFailed,
			wantPayload: &lanternevents.FailurePayloadV1{
				Code:   lanternservice.CodeInvalidInput,
				Reason: fmt.Errorf("%q: %w", "tower-7", lanternservice.ErrInvalidStationID).Error(),
			},
		},
		{
			name:       "denied by the gate",
			payload:    lanternevents.HackGuessRequestedPayloadV1{StationID: stationID.String(), Password: "x", BoostingSignal: 5},
			gate:       &FakeGate{Deny: lanterngate.ErrForbidden},
			wantTopic:  lanternevents.HackGuessRequestedV1 + lanternevents.FailedSuffix,
			wantStatus: StatusFailed,
			wantPayload: &lanternevents.FailurePayloadV1{
				Code:   lanternservice.CodeUnauthorized,
				Reason: lanterngate.ErrForbidden.Error(),
			},
		},
		{
			name:    "store failure is answered, not retried",
			payload: lanternevents.HackGuessRequestedPayloadV1{StationID: stationID.String(), Password: "x", BoostingSignal: 5},
			guessFn: func(context.Context, string, uuid.UUID, string, int) (*lanterntypes.GuessResult, error) {
				return nil, errors.New("connection reset")
			},
			gate:        playerGate(),
			wantTopic:   lanternevents.HackGuessRequestedV1 + lanternevents.FailedSuffix,
			wantStatus:  StatusFailed,
			wantPayload: &lanternevents.FailurePayloadV1{Code: lanternservice.CodeInternal, Reason: "internal error"},
			wantTrace:   []string{"AttemptGuess"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewFakeService()
			svc.AttemptGuessFn = tt.guessFn
			h := newHandlers(svc, tt.gate)

			ctx := context.Background()
			if tt.replyTo != "" {
				ctx = context.WithValue(ctx, handlerwrapper.CtxKeyReplyTo, tt.replyTo)
			}
			payload := tt.payload
			got := single(t)(h.HandleAttemptGuess(ctx, &payload))

			assert.Equal(t, tt.wantTopic, got.Topic)
			assert.Equal(t, tt.wantStatus, got.Metadata[MetadataStatus])
			if diff := cmp.Diff(tt.wantPayload, got.Payload); diff != "" {
				t.Errorf("payload mismatch (-want +got):\n%s", diff)
			}
			assert.Equal(t, tt.wantTrace, svc.Trace())
			assert.Equal(t, []lanterngate.Command{lanterngate.CmdAttemptGuess}, tt.gate.Commands)
		})
	}
}

func TestHandleCreateHackSession_OwnerIsTokenSubject(t *testing.T) {
	stationID := uuid.New()
	svc := NewFakeService()
	var gotOwner string
	svc.CreateHackSessionFn = func(_ context.Context, ownerID string, id uuid.UUID) (*lanterntypes.HackSessionView, error) {
		gotOwner = ownerID
		return &lanterntypes.HackSessionView{StationID: id, TriesLeft: 3, Candidates: []string{"a", "b"}}, nil
	}
	h := newHandlers(svc, playerGate())

	got := single(t)(h.HandleCreateHackSession(context.Background(), &lanternevents.HackSessionCreateRequestedPayloadV1{
		StationID: stationID.String(),
	}))

	assert.Equal(t, "alice", gotOwner)
	assert.Equal(t, lanternevents.HackSessionCreateRequestedV1+lanternevents.ResponseSuffix, got.Topic)
	assert.Equal(t, &lanternevents.HackSessionPayloadV1{Session: lanterntypes.HackSessionView{
		StationID: stationID, TriesLeft: 3, Candidates: []string{"a", "b"},
	}}, got.Payload)
}

func TestHandleGetHackSession_NotFound(t *testing.T) {
	svc := NewFakeService()
	svc.GetHackSessionFn = func(context.Context, uuid.UUID, string) (*lanterntypes.HackSessionView, error) {
		return nil, lanternservice.ErrSessionNotFound
	}
	h := newHandlers(svc, playerGate())

	got := single(t)(h.HandleGetHackSession(context.Background(), &lanternevents.HackSessionGetRequestedPayloadV1{
		StationID: uuid.NewString(),
	}))
	assert.Equal(t, lanternservice.CodeNotFound, got.Payload.(*lanternevents.FailurePayloadV1).Code)
}

func TestHandleSetRoundState(t *testing.T) {
	start := handlerNow
	end := handlerNow.Add(2 * time.Hour)

	tests := []struct {
		name      string
		payload   lanternevents.RoundSetRequestedPayloadV1
		wantCode  string
		wantTrace []string
	}{
		{
			name: "activate",
			payload: lanternevents.RoundSetRequestedPayloadV1{
				StartTime: start.Format(time.RFC3339), EndTime: end.Format(time.RFC3339), IsActive: true,
			},
			wantTrace: []string{"SetRoundState"},
		},
		{
			name: "unparseable start",
			payload: lanternevents.RoundSetRequestedPayloadV1{
				StartTime: "soonish", EndTime: end.Format(time.RFC3339), IsActive: true,
			},
			wantCode: lanternservice.CodeInvalidInput,
		},
		{
			name: "unparseable end",
			payload: lanternevents.RoundSetRequestedPayloadV1{
				StartTime: start.Format(time.RFC3339), EndTime: "", IsActive: true,
			},
			wantCode: lanternservice.CodeInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewFakeService()
			svc.SetRoundStateFn = func(_ context.Context, s, e time.Time, active bool) (*lanterntypes.Round, error) {
				return &lanterntypes.Round{StartTime: s, EndTime: e, IsActive: active}, nil
			}
			h := newHandlers(svc, &FakeGate{})

			payload := tt.payload
			got := single(t)(h.HandleSetRoundState(context.Background(), &payload))
			assert.Equal(t, tt.wantTrace, svc.Trace())
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, got.Payload.(*lanternevents.FailurePayloadV1).Code)
				return
			}
			assert.Equal(t, &lanternevents.RoundPayloadV1{Round: lanterntypes.Round{
				StartTime: start, EndTime: end, IsActive: true,
			}}, got.Payload)
		})
	}
}

func TestHandleResetAllStations(t *testing.T) {
	svc := NewFakeService()
	svc.ResetAllStationsFn = func(context.Context) (*lanternservice.ResetSummary, error) {
		return &lanternservice.ResetSummary{StationsReset: 4, StationsFailed: 1, SessionsRemoved: 9}, nil
	}
	gate := &FakeGate{}
	h := newHandlers(svc, gate)

	got := single(t)(h.HandleResetAllStations(context.Background(), &lanternevents.StationsResetRequestedPayloadV1{}))
	assert.Equal(t, &lanternevents.ResetSummaryPayloadV1{StationsReset: 4, StationsFailed: 1, SessionsRemoved: 9}, got.Payload)
	assert.Equal(t, []lanterngate.Command{lanterngate.CmdResetAllStations}, gate.Commands)
}

func TestAdminHandlers(t *testing.T) {
	stationID := uuid.New()
	teamID := uuid.New()
	svc := NewFakeService()
	svc.CreateStationFn = func(_ context.Context, name string, baseline *int) (*lanterntypes.Station, error) {
		return &lanterntypes.Station{ID: stationID, Name: name, BaselineSignal: *baseline, SignalValue: *baseline, IsActive: true}, nil
	}
	svc.SetStationActiveFn = func(_ context.Context, id uuid.UUID, active bool) (*lanterntypes.Station, error) {
		return &lanterntypes.Station{ID: id, IsActive: active}, nil
	}
	svc.CreateTeamFn = func(_ context.Context, name string) (*lanterntypes.Team, error) {
		return &lanterntypes.Team{ID: teamID, Name: name}, nil
	}
	svc.AssignMemberFn = func(context.Context, string, uuid.UUID) error { return nil }
	svc.GetTeamScoresFn = func(context.Context) ([]lanterntypes.TeamScore, error) {
		return []lanterntypes.TeamScore{{TeamID: teamID, Name: "red", Points: 10, StationsHeld: 1}}, nil
	}
	gate := &FakeGate{}
	h := newHandlers(svc, gate)
	ctx := context.Background()
	baseline := 70

	got := single(t)(h.HandleCreateStation(ctx, &lanternevents.StationCreateRequestedPayloadV1{Name: "beacon", BaselineSignal: &baseline}))
	assert.Equal(t, "beacon", got.Payload.(*lanternevents.StationPayloadV1).Station.Name)

	got = single(t)(h.HandleSetStationActive(ctx, &lanternevents.StationActiveRequestedPayloadV1{StationID: stationID.String()}))
	assert.False(t, got.Payload.(*lanternevents.StationPayloadV1).Station.IsActive)

	got = single(t)(h.HandleCreateTeam(ctx, &lanternevents.TeamCreateRequestedPayloadV1{Name: "red"}))
	assert.Equal(t, teamID, got.Payload.(*lanternevents.TeamPayloadV1).Team.ID)

	got = single(t)(h.HandleAssignMember(ctx, &lanternevents.TeamMemberAssignRequestedPayloadV1{UserID: "bob", TeamID: teamID.String()}))
	assert.Equal(t, &lanternevents.TeamMemberPayloadV1{UserID: "bob", TeamID: teamID.String()}, got.Payload)

	got = single(t)(h.HandleAssignMember(ctx, &lanternevents.TeamMemberAssignRequestedPayloadV1{UserID: "bob", TeamID: "red"}))
	assert.Equal(t, lanternservice.CodeInvalidInput, got.Payload.(*lanternevents.FailurePayloadV1).Code)

	got = single(t)(h.HandleGetScores(ctx, &lanternevents.ScoresGetRequestedPayloadV1{}))
	assert.Len(t, got.Payload.(*lanternevents.ScoresPayloadV1).Scores, 1)

	assert.Equal(t, []lanterngate.Command{
		lanterngate.CmdCreateStation,
		lanterngate.CmdSetStationActive,
		lanterngate.CmdCreateTeam,
		lanterngate.CmdAssignMember,
		lanterngate.CmdAssignMember,
		lanterngate.CmdGetTeamScores,
	}, gate.Commands)
	assert.Equal(t, []string{"CreateStation", "SetStationActive", "CreateTeam", "AssignMember", "GetTeamScores"}, svc.Trace())
}

func TestHandleGetRoundState(t *testing.T) {
	svc := NewFakeService()
	svc.GetRoundStateFn = func(context.Context) (*lanterntypes.Round, error) {
		return &lanterntypes.Round{}, nil
	}
	h := newHandlers(svc, &FakeGate{})

	got := single(t)(h.HandleGetRoundState(context.Background(), &lanternevents.RoundGetRequestedPayloadV1{}))
	assert.Equal(t, &lanternevents.RoundPayloadV1{}, got.Payload)
}
