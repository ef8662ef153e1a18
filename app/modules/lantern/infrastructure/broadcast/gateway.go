// Package lanternbroadcast publishes lantern state changes onto the event bus.
package lanternbroadcast

import (
	"context"
	"log/slog"

	lanternservice "github.com/Black-And-White-Club/lantern-bot/app/modules/lantern/application"
	"github.com/Black-And-White-Club/lantern-bot/internal/handlerwrapper"
	"github.com/Black-And-White-Club/lantern-bot/internal/observability"
	"github.com/Black-And-White-Club/lantern-bot/pkg/eventbus"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
)

// Gateway is a fire-and-forget Broadcaster over a watermill publisher.
// Encoding and publish failures are logged and dropped.
type Gateway struct {
	publisher message.Publisher
	logger    *slog.Logger
}

var _ lanternservice.Broadcaster = (*Gateway)(nil)

func NewGateway(publisher message.Publisher, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{publisher: publisher, logger: logger}
}

func (g *Gateway) Publish(ctx context.Context, topic string, payload any) {
	msg, ok := g.encode(ctx, topic, payload)
	if !ok {
		return
	}
	if err := g.publisher.Publish(topic, msg); err != nil {
		g.logger.WarnContext(ctx, "Broadcast failed",
			slog.String("topic", topic),
			slog.Any("error", err),
			observability.CorrelationAttr(ctx),
		)
	}
}

// PublishToTeam publishes on the team-scoped variant of topic.
func (g *Gateway) PublishToTeam(ctx context.Context, topic string, teamID uuid.UUID, payload any) {
	scoped := eventbus.FormatTeamScopedTopic(topic, teamID.String())
	msg, ok := g.encode(ctx, scoped, payload)
	if !ok {
		return
	}
	if err := eventbus.PublishWithTeamScope(g.publisher, topic, teamID.String(), msg); err != nil {
		g.logger.WarnContext(ctx, "Team broadcast failed",
			slog.String("topic", scoped),
			slog.String("team_id", teamID.String()),
			slog.Any("error", err),
			observability.CorrelationAttr(ctx),
		)
	}
}

func (g *Gateway) encode(ctx context.Context, topic string, payload any) (*message.Message, bool) {
	msg, err := handlerwrapper.NewMessage(handlerwrapper.Result{Topic: topic, Payload: payload}, observability.CorrelationID(ctx))
	if err != nil {
		g.logger.ErrorContext(ctx, "Failed to encode broadcast",
			slog.String("topic", topic),
			slog.Any("error", err),
		)
		return nil, false
	}
	return msg, true
}
