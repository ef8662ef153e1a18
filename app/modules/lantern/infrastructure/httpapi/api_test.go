package lanternhttp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	lanternservice "github.com/Black-And-White-Club/lantern-bot/app/modules/lantern/application"
	lanterntypes "github.com/Black-And-White-Club/lantern-bot/app/modules/lantern/domain"
	lanterngate "github.com/Black-And-White-Club/lantern-bot/app/modules/lantern/infrastructure/gate"
	lanternqueue "github.com/Black-And-White-Club/lantern-bot/app/modules/lantern/infrastructure/queue"
	lanternjwt "github.com/Black-And-White-Club/lantern-bot/pkg/jwt"
	"github.com/go-chi/chi/v5"
	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-with-enough-length-000"

type fakeReader struct {
	stations []lanterntypes.Station
	round    lanterntypes.Round
	scores   []lanterntypes.TeamScore
	err      error

	sessionOwner string
}

func (f *fakeReader) ListStations(_ context.Context, includeInactive bool) ([]lanterntypes.Station, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []lanterntypes.Station
	for _, st := range f.stations {
		if st.IsActive || includeInactive {
			out = append(out, st)
		}
	}
	return out, nil
}

func (f *fakeReader) GetStation(_ context.Context, id uuid.UUID) (*lanterntypes.Station, error) {
	for _, st := range f.stations {
		if st.ID == id {
			return &st, nil
		}
	}
	return nil, lanternservice.ErrStationNotFound
}

func (f *fakeReader) GetRoundState(context.Context) (*lanterntypes.Round, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &f.round, nil
}

func (f *fakeReader) GetTeamScores(context.Context) ([]lanterntypes.TeamScore, error) {
	return f.scores, f.err
}

func (f *fakeReader) GetHackSession(_ context.Context, stationID uuid.UUID, ownerID string) (*lanterntypes.HackSessionView, error) {
	f.sessionOwner = ownerID
	return &lanterntypes.HackSessionView{StationID: stationID, TriesLeft: 3, Candidates: []string{"a", "b"}}, nil
}

type fakeReports struct{}

func (fakeReports) Scoreboard(context.Context) ([]byte, error) { return []byte("xlsx"), nil }
func (fakeReports) ScoreChart(context.Context) ([]byte, error) { return []byte("png"), nil }

type apiFixture struct {
	reader *fakeReader
	tokens lanternjwt.Service
	router chi.Router
}

func newAPIFixture(t *testing.T, limiter *IPRateLimiter) *apiFixture {
	t.Helper()
	tokens := lanternjwt.NewService(testSecret, time.Hour)
	reader := &fakeReader{
		stations: []lanterntypes.Station{
			{ID: uuid.MustParse("7f1f0b0e-2c43-4a0d-9a55-2b4b8c1f7f10"), Name: "tower", SignalValue: 50, BaselineSignal: 50, IsActive: true},
			{ID: uuid.MustParse("0d6c1e8a-5d0e-4b7a-8f0c-7c2f6d8b9e21"), Name: "beacon", SignalValue: 30, BaselineSignal: 30},
		},
		scores: []lanterntypes.TeamScore{{TeamID: uuid.New(), Name: "blue", Points: 7, StationsHeld: 1}},
	}
	r := chi.NewRouter()
	NewAPI(reader, fakeReports{}, lanterngate.New(tokens, nil, nil), nil).Mount(r, limiter, []string{"https://lantern.example"})
	return &apiFixture{reader: reader, tokens: tokens, router: r}
}

func (f *apiFixture) do(t *testing.T, path, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func (f *apiFixture) token(t *testing.T, user string, role lanternjwt.Role) string {
	t.Helper()
	tok, err := f.tokens.GenerateToken(user, "team-blue", role, time.Hour)
	require.NoError(t, err)
	return tok
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}

func TestAPI_OpenReads(t *testing.T) {
	f := newAPIFixture(t, nil)

	tests := []struct {
		name       string
		path       string
		wantStatus int
		wantCode   string
		check      func(t *testing.T, rec *httptest.ResponseRecorder)
	}{
		{
			name:       "active stations only",
			path:       "/api/lantern/stations",
			wantStatus: http.StatusOK,
			check: func(t *testing.T, rec *httptest.ResponseRecorder) {
				var got []lanterntypes.Station
				require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
				if diff := cmp.Diff(f.reader.stations[:1], got); diff != "" {
					t.Errorf("stations mismatch (-want +got):\n%s", diff)
				}
			},
		},
		{
			name:       "all stations",
			path:       "/api/lantern/stations?includeInactive=true",
			wantStatus: http.StatusOK,
			check: func(t *testing.T, rec *httptest.ResponseRecorder) {
				var got []lanterntypes.Station
				require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
				assert.Len(t, got, 2)
			},
		},
		{name: "bad flag", path: "/api/lantern/stations?includeInactive=maybe", wantStatus: http.StatusBadRequest, wantCode: lanternservice.CodeInvalidInput},
		{name: "one station", path: "/api/lantern/stations/7f1f0b0e-2c43-4a0d-9a55-2b4b8c1f7f10", wantStatus: http.StatusOK},
		{name: "unknown station", path: "/api/lantern/stations/" + uuid.NewString(), wantStatus: http.StatusNotFound, wantCode: lanternservice.CodeNotFound},
		{name: "malformed station id", path: "/api/lantern/stations/tower", wantStatus: http.StatusBadRequest, wantCode: lanternservice.CodeInvalidInput},
		{name: "round", path: "/api/lantern/round", wantStatus: http.StatusOK},
		{
			name:       "scores",
			path:       "/api/lantern/scores",
			wantStatus: http.StatusOK,
			check: func(t *testing.T, rec *httptest.ResponseRecorder) {
				var got []lanterntypes.TeamScore
				require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
				assert.Equal(t, f.reader.scores, got)
			},
		},
		{
			name:       "chart",
			path:       "/api/lantern/scores.png",
			wantStatus: http.StatusOK,
			check: func(t *testing.T, rec *httptest.ResponseRecorder) {
				assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
			},
		},
		{name: "health", path: "/api/lantern/healthz", wantStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, tt.path, "")
			require.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			assert.NotEmpty(t, rec.Header().Get(correlationHdr))
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, decodeError(t, rec).Code)
			}
			if tt.check != nil {
				tt.check(t, rec)
			}
		})
	}
}

type fakeQueue struct {
	healthErr  error
	pending    []lanternqueue.JobInfo
	pendingErr error
}

func (q *fakeQueue) HealthCheck(context.Context) error { return q.healthErr }

func (q *fakeQueue) PendingExpiries(context.Context) ([]lanternqueue.JobInfo, error) {
	return q.pending, q.pendingErr
}

func TestAPI_HealthReportsQueue(t *testing.T) {
	endTime := time.Date(2026, 3, 1, 14, 0, 0, 0, time.UTC)
	job := lanternqueue.JobInfo{ID: 12, State: "scheduled", EndTime: endTime, ScheduledAt: endTime}

	tests := []struct {
		name       string
		queue      *fakeQueue
		wantStatus int
		want       healthBody
	}{
		{
			name:       "queue up with a scheduled expiry",
			queue:      &fakeQueue{pending: []lanternqueue.JobInfo{job}},
			wantStatus: http.StatusOK,
			want:       healthBody{Status: "ok", PendingExpiries: []lanternqueue.JobInfo{job}},
		},
		{
			name:       "database unreachable",
			queue:      &fakeQueue{healthErr: errors.New("dial tcp: connection refused")},
			wantStatus: http.StatusServiceUnavailable,
			want:       healthBody{Status: "unavailable"},
		},
		{
			name:       "job listing fails",
			queue:      &fakeQueue{pendingErr: errors.New("statement timeout")},
			wantStatus: http.StatusOK,
			want:       healthBody{Status: "ok"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := chi.NewRouter()
			NewAPI(&fakeReader{}, fakeReports{}, lanterngate.New(lanternjwt.NewService(testSecret, time.Hour), nil, nil), nil).
				WithQueue(tt.queue).
				Mount(r, nil, nil)

			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/lantern/healthz", nil))
			require.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())

			var got healthBody
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("health mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestAPI_Session(t *testing.T) {
	f := newAPIFixture(t, nil)
	path := "/api/lantern/stations/7f1f0b0e-2c43-4a0d-9a55-2b4b8c1f7f10/session"

	rec := f.do(t, path, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(t, path, f.token(t, "watcher", lanternjwt.RoleViewer))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, lanternservice.CodeUnauthorized, decodeError(t, rec).Code)

	rec = f.do(t, path, f.token(t, "alice", lanternjwt.RolePlayer))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "alice", f.reader.sessionOwner, "owner comes from the token")
}

func TestAPI_Scoreboard(t *testing.T) {
	f := newAPIFixture(t, nil)

	rec := f.do(t, "/api/lantern/scoreboard.xlsx", "garbage")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(t, "/api/lantern/scoreboard.xlsx", f.token(t, "watcher", lanternjwt.RoleViewer))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, xlsxContentType, rec.Header().Get("Content-Type"))
	assert.Equal(t, "xlsx", rec.Body.String())
}

func TestAPI_InternalErrorHidesCause(t *testing.T) {
	f := newAPIFixture(t, nil)
	f.reader.err = errors.New("dial tcp 10.0.0.4:5432: connection refused")

	rec := f.do(t, "/api/lantern/round", "")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, errorBody{Code: lanternservice.CodeInternal, Reason: "internal error"}, decodeError(t, rec))
}

func TestAPI_CORS(t *testing.T) {
	f := newAPIFixture(t, nil)

	req := httptest.NewRequest(http.MethodOptions, "/api/lantern/round", nil)
	req.Header.Set("Origin", "https://lantern.example")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://lantern.example", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/api/lantern/round", nil)
	req.Header.Set("Origin", "https://elsewhere.example")
	rec = httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRateLimit(t *testing.T) {
	f := newAPIFixture(t, NewIPRateLimiter(0, 2))

	for range 2 {
		assert.Equal(t, http.StatusOK, f.do(t, "/api/lantern/healthz", "").Code)
	}
	rec := f.do(t, "/api/lantern/healthz", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "RATE_LIMITED", decodeError(t, rec).Code)
}

func TestIPRateLimiter_PrunesIdleEntries(t *testing.T) {
	l := NewIPRateLimiter(1, 1)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	for range cleanupThreshold + 1 {
		l.Limiter(uuid.NewString())
	}
	assert.Equal(t, cleanupThreshold+1, l.size())

	now = now.Add(maxIdleAge + time.Minute)
	same := l.Limiter("10.0.0.1")
	assert.Equal(t, 1, l.size())
	assert.Same(t, same, l.Limiter("10.0.0.1"))
}
