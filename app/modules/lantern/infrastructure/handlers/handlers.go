package lanternhandlers

import (
	"context"
	"errors"
	"log/slog"

	lanternservice "github.com/Black-And-White-Club/lantern-bot/app/modules/lantern/application"
	lanternevents "github.com/Black-And-White-Club/lantern-bot/app/modules/lantern/events"
	lanterngate "github.com/Black-And-White-Club/lantern-bot/app/modules/lantern/infrastructure/gate"
	lanterntime "github.com/Black-And-White-Club/lantern-bot/app/modules/lantern/time_utils"
	"github.com/Black-And-White-Club/lantern-bot/internal/handlerwrapper"
	"github.com/Black-And-White-Club/lantern-bot/internal/observability"
)

// MetadataStatus tells request-reply callers whether the reply is a success or a failure.
const (
	MetadataStatus = "status"
	StatusOK       = "ok"
	StatusFailed   = "failed"
)

// LanternHandlers handles lantern command messages.
type LanternHandlers struct {
	service    lanternservice.Service
	gate       lanterngate.Authorizer
	timeParser lanterntime.TimeParserInterface
	clock      lanternservice.Clock
	logger     *slog.Logger
}

// NewLanternHandlers creates a new LanternHandlers.
func NewLanternHandlers(
	service lanternservice.Service,
	gate lanterngate.Authorizer,
	timeParser lanterntime.TimeParserInterface,
	clock lanternservice.Clock,
	logger *slog.Logger,
) Handlers {
	if clock == nil {
		clock = lanternservice.RealClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &LanternHandlers{
		service:    service,
		gate:       gate,
		timeParser: timeParser,
		clock:      clock,
		logger:     logger,
	}
}

// handle authorizes token for cmd and turns fn's outcome into one reply. Every failure,
// including store errors, is answered rather than nacked: commands are never retried on the
// caller's behalf.
func (h *LanternHandlers) handle(
	ctx context.Context,
	requestTopic string,
	token string,
	cmd lanterngate.Command,
	fn func(p *lanterngate.Principal) (any, error),
) ([]handlerwrapper.Result, error) {
	principal, err := h.gate.Authorize(ctx, token, cmd)
	if err != nil {
		return h.failure(ctx, requestTopic, cmd, err), nil
	}

	payload, err := fn(principal)
	if err != nil {
		return h.failure(ctx, requestTopic, cmd, err), nil
	}

	return []handlerwrapper.Result{{
		Topic:    handlerwrapper.ReplyTopic(ctx, requestTopic+lanternevents.ResponseSuffix),
		Payload:  payload,
		Metadata: map[string]string{MetadataStatus: StatusOK},
	}}, nil
}

func (h *LanternHandlers) failure(ctx context.Context, requestTopic string, cmd lanterngate.Command, err error) []handlerwrapper.Result {
	code := lanternservice.ErrorCode(err)
	attrs := []any{
		slog.String("command", string(cmd)),
		slog.String("code", code),
		slog.Any("error", err),
		observability.CorrelationAttr(ctx),
	}
	if lanternservice.IsDomainError(err) {
		h.logger.InfoContext(ctx, "Command rejected", attrs...)
	} else {
		h.logger.ErrorContext(ctx, "Command failed", attrs...)
	}

	payload := &lanternevents.FailurePayloadV1{Code: code, Reason: err.Error()}
	if code == lanternservice.CodeInternal {
		payload.Reason = "internal error"
	}
	if errors.Is(err, lanternservice.ErrExhausted) {
		zero := 0
		payload.TriesLeft = &zero
	}

	return []handlerwrapper.Result{{
		Topic:    handlerwrapper.ReplyTopic(ctx, requestTopic+lanternevents.FailedSuffix),
		Payload:  payload,
		Metadata: map[string]string{MetadataStatus: StatusFailed},
	}}
}
