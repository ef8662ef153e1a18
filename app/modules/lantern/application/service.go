package lanternservice

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"time"

	lanterndb "github.com/Black-And-White-Club/lantern-bot/app/modules/lantern/infrastructure/repositories"
	"github.com/Black-And-White-Club/lantern-bot/internal/observability"
	lanternmetrics "github.com/Black-And-White-Club/lantern-bot/internal/observability/metrics/lantern"
	"github.com/Black-And-White-Club/lantern-bot/internal/results"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const serviceName = "LanternService"

// Settings are the tunable game rules.
type Settings struct {
	MaxTries          int
	MaxBoostingSignal int
	BaselineSignal    int
	DecoyCount        int
	ResetInterval     time.Duration
	// AllowInactiveRound lets play continue with no running round.
	AllowInactiveRound bool
}

// DefaultSettings returns the stock game rules.
func DefaultSettings() Settings {
	return Settings{
		MaxTries:          3,
		MaxBoostingSignal: 25,
		BaselineSignal:    50,
		DecoyCount:        5,
		ResetInterval:     15 * time.Minute,
	}
}

func (s Settings) withDefaults() Settings {
	d := DefaultSettings()
	if s == (Settings{}) {
		return d
	}
	if s.MaxTries <= 0 {
		s.MaxTries = d.MaxTries
	}
	if s.MaxBoostingSignal <= 0 {
		s.MaxBoostingSignal = d.MaxBoostingSignal
	}
	if s.BaselineSignal < 0 {
		s.BaselineSignal = d.BaselineSignal
	}
	if s.DecoyCount < 0 {
		s.DecoyCount = d.DecoyCount
	}
	if s.ResetInterval <= 0 {
		s.ResetInterval = d.ResetInterval
	}
	return s
}

// Dependencies are the collaborators the service calls out to. Passwords is required;
// the rest fall back to no-op or wall-clock implementations.
type Dependencies struct {
	Passwords   PasswordGenerator
	Broadcaster Broadcaster
	Clock       Clock
	Expiry      RoundExpiryScheduler
}

// LanternService implements the Service interface.
type LanternService struct {
	repo     lanterndb.Repository
	logger   *slog.Logger
	metrics  lanternmetrics.LanternMetrics
	tracer   trace.Tracer
	db       *bun.DB
	settings Settings

	passwords   PasswordGenerator
	broadcaster Broadcaster
	clock       Clock
	expiry      RoundExpiryScheduler

	locks *stationLocks
	// roundMu guards read-modify-write of the round record.
	roundMu sync.Mutex
	// schedMu serializes scheduler start/stop decisions. The tick never takes it.
	schedMu   sync.Mutex
	scheduler *Scheduler
}

// NewLanternService creates a new LanternService with a stopped round scheduler.
func NewLanternService(
	repo lanterndb.Repository,
	logger *slog.Logger,
	metrics lanternmetrics.LanternMetrics,
	tracer trace.Tracer,
	db *bun.DB,
	settings Settings,
	deps Dependencies,
) *LanternService {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = lanternmetrics.NewNoop()
	}
	if deps.Broadcaster == nil {
		deps.Broadcaster = noopBroadcaster{}
	}
	if deps.Clock == nil {
		deps.Clock = RealClock{}
	}

	s := &LanternService{
		repo:        repo,
		logger:      logger,
		metrics:     metrics,
		tracer:      tracer,
		db:          db,
		settings:    settings.withDefaults(),
		passwords:   deps.Passwords,
		broadcaster: deps.Broadcaster,
		clock:       deps.Clock,
		expiry:      deps.Expiry,
		locks:       newStationLocks(),
	}
	s.scheduler = NewScheduler(s.clock, s.settings.ResetInterval, s.tickRound, logger)
	// A round reactivated while the loop was winding down needs a fresh timer.
	s.scheduler.OnEnded(func() {
		if err := s.syncScheduler(context.Background()); err != nil {
			logger.Error("Failed to resync round scheduler", slog.Any("error", err))
		}
	})
	return s
}

// Scheduler exposes the round reset timer.
func (s *LanternService) Scheduler() *Scheduler {
	return s.scheduler
}

// Stop halts the round reset timer.
func (s *LanternService) Stop() {
	s.schedMu.Lock()
	defer s.schedMu.Unlock()
	s.scheduler.Stop()
}

// -----------------------------------------------------------------------------
// Outbox: broadcasts queued inside a transaction and published after it commits
// -----------------------------------------------------------------------------

type pendingEvent struct {
	topic   string
	teamID  *uuid.UUID
	payload any
}

type outbox struct {
	events []pendingEvent
}

func (o *outbox) publish(topic string, payload any) {
	o.events = append(o.events, pendingEvent{topic: topic, payload: payload})
}

func (o *outbox) publishToTeam(topic string, teamID uuid.UUID, payload any) {
	id := teamID
	o.events = append(o.events, pendingEvent{topic: topic, teamID: &id, payload: payload})
}

func (o *outbox) reset() {
	o.events = o.events[:0]
}

func (s *LanternService) flush(ctx context.Context, o *outbox) {
	for _, ev := range o.events {
		if ev.teamID != nil {
			s.broadcaster.PublishToTeam(ctx, ev.topic, *ev.teamID, ev.payload)
			continue
		}
		s.broadcaster.Publish(ctx, ev.topic, ev.payload)
	}
	o.reset()
}

// -----------------------------------------------------------------------------
// Generic Helpers (Defined as functions because methods cannot have type params)
// -----------------------------------------------------------------------------

// operationFunc is the generic signature for service operation functions.
type operationFunc[S any, F any] func(ctx context.Context) (results.OperationResult[S, F], error)

// withTelemetry wraps a service operation with tracing, metrics, and panic recovery.
func withTelemetry[S any, F any](
	s *LanternService,
	ctx context.Context,
	operationName string,
	identifier string,
	op operationFunc[S, F],
) (result results.OperationResult[S, F], err error) {

	var span trace.Span
	if s.tracer != nil {
		ctx, span = s.tracer.Start(ctx, operationName, trace.WithAttributes(
			attribute.String("operation", operationName),
			attribute.String("identifier", identifier),
		))
	} else {
		span = trace.SpanFromContext(ctx)
	}
	defer span.End()

	s.metrics.RecordOperationAttempt(ctx, operationName, serviceName)

	startTime := time.Now()
	defer func() {
		s.metrics.RecordOperationDuration(ctx, operationName, serviceName, time.Since(startTime))
	}()

	s.logger.InfoContext(ctx, "Operation triggered",
		observability.CorrelationAttr(ctx),
		slog.String("operation", operationName),
	)

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in %s: %v", operationName, r)
			s.logger.ErrorContext(ctx, "Critical panic recovered",
				observability.CorrelationAttr(ctx),
				slog.String("identifier", identifier),
				slog.Any("error", err),
			)
			s.metrics.RecordOperationFailure(ctx, operationName, serviceName)
			span.RecordError(err)
			result = results.OperationResult[S, F]{}
		}
	}()

	result, err = op(ctx)

	// Infrastructure error
	if err != nil {
		wrappedErr := fmt.Errorf("%s: %w", operationName, err)
		s.logger.ErrorContext(ctx, "Operation failed with error",
			observability.CorrelationAttr(ctx),
			slog.String("operation", operationName),
			slog.String("identifier", identifier),
			slog.Any("error", wrappedErr),
		)
		s.metrics.RecordOperationFailure(ctx, operationName, serviceName)
		span.RecordError(wrappedErr)
		return result, wrappedErr
	}

	// Domain failure
	if result.IsFailure() {
		s.logger.WarnContext(ctx, "Operation returned failure result",
			observability.CorrelationAttr(ctx),
			slog.String("operation", operationName),
			slog.String("identifier", identifier),
			slog.Any("failure_payload", *result.Failure),
		)
	}

	if result.IsSuccess() {
		s.logger.InfoContext(ctx, "Operation completed successfully",
			observability.CorrelationAttr(ctx),
			slog.String("operation", operationName),
			slog.String("identifier", identifier),
		)
	}

	s.metrics.RecordOperationSuccess(ctx, operationName, serviceName)

	return result, nil
}

// runInTx ensures the operation runs within a transaction.
func runInTx[S any, F any](
	s *LanternService,
	ctx context.Context,
	fn func(ctx context.Context, db bun.IDB) (results.OperationResult[S, F], error),
) (results.OperationResult[S, F], error) {

	if s.db == nil {
		return fn(ctx, nil)
	}

	var result results.OperationResult[S, F]

	err := s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		var txErr error
		result, txErr = fn(ctx, tx)
		return txErr
	})

	return result, err
}

// withStationLock runs fn in a transaction that holds both the in-process and the database
// lock for stationID. Queued broadcasts are published only when the transaction commits.
func withStationLock[S any](
	s *LanternService,
	ctx context.Context,
	stationID uuid.UUID,
	box *outbox,
	fn func(ctx context.Context, db bun.IDB) (results.OperationResult[S, error], error),
) (results.OperationResult[S, error], error) {
	unlock := s.locks.Lock(stationID)
	defer unlock()

	result, err := runInTx(s, ctx, func(ctx context.Context, db bun.IDB) (results.OperationResult[S, error], error) {
		if err := s.repo.LockStation(ctx, db, stationID); err != nil {
			return results.OperationResult[S, error]{}, fmt.Errorf("failed to lock station: %w", err)
		}
		return fn(ctx, db)
	})
	if err != nil {
		box.reset()
		return result, err
	}
	s.flush(ctx, box)
	return result, nil
}

// unwrap turns an operation result into the public (value, error) pair.
func unwrap[S any](result results.OperationResult[S, error], err error) (S, error) {
	var zero S
	if err != nil {
		return zero, err
	}
	if result.IsFailure() {
		return zero, *result.Failure
	}
	if result.Success == nil {
		return zero, fmt.Errorf("operation returned no result")
	}
	return *result.Success, nil
}

func failure[S any](err error) (results.OperationResult[S, error], error) {
	return results.FailureResult[S, error](err), nil
}

func success[S any](v S) (results.OperationResult[S, error], error) {
	return results.SuccessResult[S, error](v), nil
}

func infraError[S any](format string, err error) (results.OperationResult[S, error], error) {
	return results.OperationResult[S, error]{}, fmt.Errorf(format+": %w", err)
}
