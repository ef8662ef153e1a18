// Package lanternhttp serves the read side of the lantern game over HTTP.
package lanternhttp

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	lanternservice "github.com/Black-And-White-Club/lantern-bot/app/modules/lantern/application"
	lanterntypes "github.com/Black-And-White-Club/lantern-bot/app/modules/lantern/domain"
	lanterngate "github.com/Black-And-White-Club/lantern-bot/app/modules/lantern/infrastructure/gate"
	lanternqueue "github.com/Black-And-White-Club/lantern-bot/app/modules/lantern/infrastructure/queue"
	"github.com/Black-And-White-Club/lantern-bot/internal/observability"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

// Reader is the part of the lantern service exposed over HTTP.
type Reader interface {
	ListStations(ctx context.Context, includeInactive bool) ([]lanterntypes.Station, error)
	GetStation(ctx context.Context, stationID uuid.UUID) (*lanterntypes.Station, error)
	GetRoundState(ctx context.Context) (*lanterntypes.Round, error)
	GetTeamScores(ctx context.Context) ([]lanterntypes.TeamScore, error)
	GetHackSession(ctx context.Context, stationID uuid.UUID, ownerID string) (*lanterntypes.HackSessionView, error)
}

// Reports renders scoreboard exports.
type Reports interface {
	Scoreboard(ctx context.Context) ([]byte, error)
	ScoreChart(ctx context.Context) ([]byte, error)
}

// QueueStatus is the round expiry queue as seen by the health endpoint.
type QueueStatus interface {
	HealthCheck(ctx context.Context) error
	PendingExpiries(ctx context.Context) ([]lanternqueue.JobInfo, error)
}

const (
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	correlationHdr  = "X-Correlation-ID"
)

type API struct {
	reader  Reader
	reports Reports
	gate    lanterngate.Authorizer
	queue   QueueStatus
	logger  *slog.Logger
}

func NewAPI(reader Reader, reports Reports, gate lanterngate.Authorizer, logger *slog.Logger) *API {
	if logger == nil {
		logger = slog.Default()
	}
	return &API{reader: reader, reports: reports, gate: gate, logger: logger}
}

// WithQueue makes /healthz report the expiry queue. Without it the endpoint only reports
// that the process is serving.
func (a *API) WithQueue(q QueueStatus) *API {
	a.queue = q
	return a
}

// Mount registers the lantern routes under /api/lantern.
func (a *API) Mount(r chi.Router, limiter *IPRateLimiter, allowedOrigins []string) {
	r.Route("/api/lantern", func(r chi.Router) {
		r.Use(middleware.Recoverer)
		r.Use(correlation)
		r.Use(CORS(allowedOrigins))
		if limiter != nil {
			r.Use(RateLimit(limiter))
		}

		r.Get("/healthz", a.healthz)
		r.Get("/round", a.getRound)
		r.Get("/scores", a.getScores)
		r.Get("/scores.png", a.getScoreChart)
		r.Get("/stations", a.listStations)
		r.Get("/stations/{stationID}", a.getStation)

		r.Get("/stations/{stationID}/session", a.getSession)
		r.Get("/scoreboard.xlsx", a.getScoreboard)
	})
}

func correlation(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(correlationHdr)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(correlationHdr, id)
		next.ServeHTTP(w, r.WithContext(observability.WithCorrelationID(r.Context(), id)))
	})
}

type healthBody struct {
	Status          string                 `json:"status"`
	PendingExpiries []lanternqueue.JobInfo `json:"pendingExpiries,omitempty"`
}

func (a *API) healthz(w http.ResponseWriter, r *http.Request) {
	if a.queue == nil {
		writeJSON(w, http.StatusOK, healthBody{Status: "ok"})
		return
	}

	ctx := r.Context()
	if err := a.queue.HealthCheck(ctx); err != nil {
		a.logger.WarnContext(ctx, "Lantern health check failed",
			slog.Any("error", err),
			observability.CorrelationAttr(ctx),
		)
		writeJSON(w, http.StatusServiceUnavailable, healthBody{Status: "unavailable"})
		return
	}

	pending, err := a.queue.PendingExpiries(ctx)
	if err != nil {
		a.logger.WarnContext(ctx, "Failed to list pending round expiries",
			slog.Any("error", err),
			observability.CorrelationAttr(ctx),
		)
	}
	writeJSON(w, http.StatusOK, healthBody{Status: "ok", PendingExpiries: pending})
}

func (a *API) getRound(w http.ResponseWriter, r *http.Request) {
	round, err := a.reader.GetRoundState(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, round)
}

func (a *API) getScores(w http.ResponseWriter, r *http.Request) {
	scores, err := a.reader.GetTeamScores(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if scores == nil {
		scores = []lanterntypes.TeamScore{}
	}
	writeJSON(w, http.StatusOK, scores)
}

func (a *API) listStations(w http.ResponseWriter, r *http.Request) {
	includeInactive := false
	if v := r.URL.Query().Get("includeInactive"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			a.fail(w, r, lanternservice.ErrInvalidInput)
			return
		}
		includeInactive = b
	}

	stations, err := a.reader.ListStations(r.Context(), includeInactive)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if stations == nil {
		stations = []lanterntypes.Station{}
	}
	writeJSON(w, http.StatusOK, stations)
}

func (a *API) getStation(w http.ResponseWriter, r *http.Request) {
	id, err := stationID(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	st, err := a.reader.GetStation(r.Context(), id)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// getSession returns the caller's own hack session for a station.
func (a *API) getSession(w http.ResponseWriter, r *http.Request) {
	p, err := a.gate.Authorize(r.Context(), bearer(r), lanterngate.CmdGetHackSession)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	id, err := stationID(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	view, err := a.reader.GetHackSession(r.Context(), id, p.UserID)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (a *API) getScoreboard(w http.ResponseWriter, r *http.Request) {
	if _, err := a.gate.Authorize(r.Context(), bearer(r), lanterngate.CmdExportScoreboard); err != nil {
		a.fail(w, r, err)
		return
	}
	data, err := a.reports.Scoreboard(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="scoreboard.xlsx"`)
	_, _ = w.Write(data)
}

func (a *API) getScoreChart(w http.ResponseWriter, r *http.Request) {
	data, err := a.reports.ScoreChart(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(data)
}

func stationID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "stationID"))
	if err != nil {
		return uuid.Nil, lanternservice.ErrInvalidStationID
	}
	return id, nil
}

func bearer(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(h, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

type errorBody struct {
	Code   string `json:"code"`
	Reason string `json:"reason"`
}

func (a *API) fail(w http.ResponseWriter, r *http.Request, err error) {
	code := lanternservice.ErrorCode(err)
	reason := err.Error()
	if code == lanternservice.CodeInternal {
		a.logger.ErrorContext(r.Context(), "Lantern HTTP request failed",
			slog.String("path", r.URL.Path),
			slog.Any("error", err),
			observability.CorrelationAttr(r.Context()),
		)
		reason = "internal error"
	}
	writeError(w, statusFor(code), code, reason)
}

func statusFor(code string) int {
	switch code {
	case lanternservice.CodeNotFound:
		return http.StatusNotFound
	case lanternservice.CodeExhausted:
		return http.StatusGone
	case lanternservice.CodeConflict:
		return http.StatusConflict
	case lanternservice.CodeUnauthorized:
		return http.StatusUnauthorized
	case lanternservice.CodeInvalidInput:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, status int, code, reason string) {
	writeJSON(w, status, errorBody{Code: code, Reason: reason})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
