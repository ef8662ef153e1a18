package lantern

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	lanternservice "github.com/Black-And-White-Club/lantern-bot/app/modules/lantern/application"
	lanternevents "github.com/Black-And-White-Club/lantern-bot/app/modules/lantern/events"
	lanternbroadcast "github.com/Black-And-White-Club/lantern-bot/app/modules/lantern/infrastructure/broadcast"
	lanterngate "github.com/Black-And-White-Club/lantern-bot/app/modules/lantern/infrastructure/gate"
	lanternhandlers "github.com/Black-And-White-Club/lantern-bot/app/modules/lantern/infrastructure/handlers"
	lanternhttp "github.com/Black-And-White-Club/lantern-bot/app/modules/lantern/infrastructure/httpapi"
	lanternpasswords "github.com/Black-And-White-Club/lantern-bot/app/modules/lantern/infrastructure/passwords"
	lanternqueue "github.com/Black-And-White-Club/lantern-bot/app/modules/lantern/infrastructure/queue"
	lanternreport "github.com/Black-And-White-Club/lantern-bot/app/modules/lantern/infrastructure/reporting"
	lanterndb "github.com/Black-And-White-Club/lantern-bot/app/modules/lantern/infrastructure/repositories"
	lanternrouter "github.com/Black-And-White-Club/lantern-bot/app/modules/lantern/infrastructure/router"
	lanterntime "github.com/Black-And-White-Club/lantern-bot/app/modules/lantern/time_utils"
	"github.com/Black-And-White-Club/lantern-bot/config"
	"github.com/Black-And-White-Club/lantern-bot/internal/eventbus"
	lanternmetrics "github.com/Black-And-White-Club/lantern-bot/internal/observability/metrics/lantern"
	lanternjwt "github.com/Black-And-White-Club/lantern-bot/pkg/jwt"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

// Per-IP budget for the HTTP read surface.
const (
	httpRate  rate.Limit = 10
	httpBurst            = 20
)

// Deps are the process-wide resources the module builds on. DB may be nil when the
// lantern storage is "memory"; Registry and HTTPRouter are optional.
type Deps struct {
	Logger     *slog.Logger
	Tracer     trace.Tracer
	Registry   prometheus.Registerer
	DB         *bun.DB
	EventBus   eventbus.EventBus
	Router     *message.Router
	HTTPRouter chi.Router
	Clock      lanternservice.Clock
}

// Module represents the lantern module.
type Module struct {
	Service    *lanternservice.LanternService
	Router     *lanternrouter.LanternRouter
	Queue      lanternqueue.QueueService
	Gate       lanterngate.Authorizer
	Reporter   *lanternreport.Reporter
	logger     *slog.Logger
	cancelFunc context.CancelFunc
}

// NewLanternModule wires the lantern service, its command router and, when deps.HTTPRouter
// is set, the HTTP read surface.
func NewLanternModule(ctx context.Context, cfg *config.Config, deps Deps) (*Module, error) {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "Initializing lantern module")

	var metrics lanternmetrics.LanternMetrics = lanternmetrics.NewNoop()
	if deps.Registry != nil {
		metrics = lanternmetrics.NewPrometheus(deps.Registry)
	}

	var (
		repo lanterndb.Repository
		db   *bun.DB
	)
	switch cfg.Lantern.Storage {
	case config.StorageMemory:
		repo = lanterndb.NewMemoryRepository()
	default:
		if deps.DB == nil {
			return nil, errors.New("lantern: postgres storage needs a database")
		}
		db = deps.DB
		repo = lanterndb.NewRepository(db)
	}

	module := &Module{logger: logger}

	serviceDeps := lanternservice.Dependencies{
		Passwords:   lanternpasswords.NewGenerator(0),
		Broadcaster: lanternbroadcast.NewGateway(deps.EventBus, logger),
		Clock:       deps.Clock,
	}
	if cfg.Lantern.QueueEnabled && db != nil {
		queue, err := lanternqueue.NewService(ctx, cfg.Postgres.DSN, logger, metrics)
		if err != nil {
			return nil, fmt.Errorf("failed to create round expiry queue: %w", err)
		}
		module.Queue = queue
		serviceDeps.Expiry = queue
	}

	service := lanternservice.NewLanternService(repo, logger, metrics, deps.Tracer, db, settingsFrom(cfg.Lantern), serviceDeps)
	module.Service = service
	if module.Queue != nil {
		module.Queue.Bind(service)
	}

	module.Gate = lanterngate.New(lanternjwt.NewService(cfg.JWT.Secret, cfg.JWT.DefaultTTL), nil, logger)
	module.Reporter = lanternreport.NewReporter(service, deps.Clock)

	if err := deps.EventBus.CreateStream(ctx, lanternevents.StreamName, lanternevents.StreamSubject); err != nil {
		return nil, fmt.Errorf("failed to create lantern stream: %w", err)
	}

	handlers := lanternhandlers.NewLanternHandlers(service, module.Gate, lanterntime.NewTimeParser(), deps.Clock, logger)
	module.Router = lanternrouter.NewLanternRouter(logger, deps.Router, deps.EventBus, deps.EventBus, deps.Tracer, metrics, deps.Registry)
	if err := module.Router.Configure(ctx, handlers); err != nil {
		return nil, fmt.Errorf("failed to configure lantern router: %w", err)
	}

	if deps.HTTPRouter != nil {
		api := lanternhttp.NewAPI(service, module.Reporter, module.Gate, logger)
		if module.Queue != nil {
			api.WithQueue(module.Queue)
		}
		api.Mount(deps.HTTPRouter, lanternhttp.NewIPRateLimiter(httpRate, httpBurst), cfg.HTTP.AllowedOrigins)
	}

	return module, nil
}

func settingsFrom(c config.LanternConfig) lanternservice.Settings {
	return lanternservice.Settings{
		MaxTries:           c.MaxTries,
		MaxBoostingSignal:  c.MaxBoostingSignal,
		BaselineSignal:     c.BaselineSignal,
		DecoyCount:         c.DecoyCount,
		ResetInterval:      c.ResetInterval,
		AllowInactiveRound: !c.RequireActiveRound,
	}
}

// Run starts the expiry queue, resumes an active round and blocks until ctx is done.
func (m *Module) Run(ctx context.Context, wg *sync.WaitGroup) {
	if wg != nil {
		defer wg.Done()
	}
	m.logger.InfoContext(ctx, "Starting lantern module")

	ctx, cancel := context.WithCancel(ctx)
	m.cancelFunc = cancel
	defer cancel()

	if m.Queue != nil {
		if err := m.Queue.Start(ctx); err != nil {
			m.logger.ErrorContext(ctx, "Failed to start round expiry queue", slog.Any("error", err))
		}
	}
	if err := m.Service.Resume(ctx); err != nil {
		m.logger.ErrorContext(ctx, "Failed to resume round", slog.Any("error", err))
	}

	<-ctx.Done()
	m.logger.Info("Lantern module goroutine stopped")
}

// Close stops the round timer and the expiry queue. The watermill router belongs to the
// caller.
func (m *Module) Close(ctx context.Context) error {
	m.logger.Info("Stopping lantern module")

	if m.cancelFunc != nil {
		m.cancelFunc()
	}
	m.Service.Stop()

	var errs []error
	if m.Queue != nil {
		if err := m.Queue.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("error stopping round expiry queue: %w", err))
		}
	}

	m.logger.Info("Lantern module stopped")
	return errors.Join(errs...)
}
