package lanternrouter

import (
	"context"
	"log/slog"
	"os"

	lanternevents "github.com/Black-And-White-Club/lantern-bot/app/modules/lantern/events"
	lanternhandlers "github.com/Black-And-White-Club/lantern-bot/app/modules/lantern/infrastructure/handlers"
	"github.com/Black-And-White-Club/lantern-bot/internal/handlerwrapper"
	"github.com/ThreeDotsLabs/watermill/components/metrics"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"
)

const (
	TestEnvironmentFlag  = "APP_ENV"
	TestEnvironmentValue = "test"
)

type LanternRouter struct {
	logger     *slog.Logger
	Router     *message.Router
	subscriber message.Subscriber
	publisher  message.Publisher
	tracer     trace.Tracer
	metrics    handlerwrapper.ReturningMetrics

	metricsBuilder *metrics.PrometheusMetricsBuilder
}

// NewLanternRouter wires lantern handlers onto router. Router metrics are registered on
// registry unless it is nil or APP_ENV=test.
func NewLanternRouter(
	logger *slog.Logger,
	router *message.Router,
	subscriber message.Subscriber,
	publisher message.Publisher,
	tracer trace.Tracer,
	handlerMetrics handlerwrapper.ReturningMetrics,
	registry prometheus.Registerer,
) *LanternRouter {
	var metricsBuilder *metrics.PrometheusMetricsBuilder
	if registry != nil && os.Getenv(TestEnvironmentFlag) != TestEnvironmentValue {
		b := metrics.NewPrometheusMetricsBuilder(registry, "lantern", "")
		metricsBuilder = &b
	}

	return &LanternRouter{
		logger:         logger,
		Router:         router,
		subscriber:     subscriber,
		publisher:      publisher,
		tracer:         tracer,
		metrics:        handlerMetrics,
		metricsBuilder: metricsBuilder,
	}
}

func (r *LanternRouter) Configure(_ context.Context, handlers lanternhandlers.Handlers) error {
	if r.metricsBuilder != nil {
		r.metricsBuilder.AddPrometheusRouterMetrics(r.Router)
	}

	r.registerHandlers(handlers)
	return nil
}

type handlerDeps struct {
	router     *message.Router
	subscriber message.Subscriber
	publisher  message.Publisher
	logger     *slog.Logger
	tracer     trace.Tracer
	metrics    handlerwrapper.ReturningMetrics
}

// registerHandler registers a pure transformation-pattern handler with typed payload
func registerHandler[T any](
	deps handlerDeps,
	topic string,
	handler func(context.Context, *T) ([]handlerwrapper.Result, error),
) {
	handlerName := "lantern." + topic

	deps.router.AddHandler(
		handlerName,
		topic,
		deps.subscriber,
		"", // the event bus reads the topic from message metadata when empty
		deps.publisher,
		handlerwrapper.WrapTransformingTyped(
			handlerName,
			deps.logger,
			deps.tracer,
			deps.metrics,
			handler,
		),
	)
}

func (r *LanternRouter) registerHandlers(h lanternhandlers.Handlers) {
	deps := handlerDeps{
		router:     r.Router,
		subscriber: r.subscriber,
		publisher:  r.publisher,
		logger:     r.logger,
		tracer:     r.tracer,
		metrics:    r.metrics,
	}

	registerHandler(deps, lanternevents.HackSessionCreateRequestedV1, h.HandleCreateHackSession)
	registerHandler(deps, lanternevents.HackGuessRequestedV1, h.HandleAttemptGuess)
	registerHandler(deps, lanternevents.HackSessionGetRequestedV1, h.HandleGetHackSession)

	registerHandler(deps, lanternevents.RoundGetRequestedV1, h.HandleGetRoundState)
	registerHandler(deps, lanternevents.RoundSetRequestedV1, h.HandleSetRoundState)
	registerHandler(deps, lanternevents.StationsResetRequestedV1, h.HandleResetAllStations)

	registerHandler(deps, lanternevents.StationCreateRequestedV1, h.HandleCreateStation)
	registerHandler(deps, lanternevents.StationActiveRequestedV1, h.HandleSetStationActive)
	registerHandler(deps, lanternevents.TeamCreateRequestedV1, h.HandleCreateTeam)
	registerHandler(deps, lanternevents.TeamMemberAssignRequestedV1, h.HandleAssignMember)
	registerHandler(deps, lanternevents.ScoresGetRequestedV1, h.HandleGetScores)
}

func (r *LanternRouter) Close() error {
	return r.Router.Close()
}
