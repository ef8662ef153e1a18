package lanternhandlers

import (
	"context"
	"fmt"

	lanternservice "github.com/Black-And-White-Club/lantern-bot/app/modules/lantern/application"
	lanternevents "github.com/Black-And-White-Club/lantern-bot/app/modules/lantern/events"
	lanterngate "github.com/Black-And-White-Club/lantern-bot/app/modules/lantern/infrastructure/gate"
	"github.com/Black-And-White-Club/lantern-bot/internal/handlerwrapper"
)

func (h *LanternHandlers) HandleGetRoundState(
	ctx context.Context,
	payload *lanternevents.RoundGetRequestedPayloadV1,
) ([]handlerwrapper.Result, error) {
	return h.handle(ctx, lanternevents.RoundGetRequestedV1, payload.Token, lanterngate.CmdGetRoundState,
		func(*lanterngate.Principal) (any, error) {
			round, err := h.service.GetRoundState(ctx)
			if err != nil {
				return nil, err
			}
			return &lanternevents.RoundPayloadV1{Round: *round}, nil
		})
}

// HandleSetRoundState parses the round window (RFC3339 or natural language) and applies it.
func (h *LanternHandlers) HandleSetRoundState(
	ctx context.Context,
	payload *lanternevents.RoundSetRequestedPayloadV1,
) ([]handlerwrapper.Result, error) {
	return h.handle(ctx, lanternevents.RoundSetRequestedV1, payload.Token, lanterngate.CmdSetRoundState,
		func(*lanterngate.Principal) (any, error) {
			now := h.clock.Now()
			start, err := h.timeParser.ParseRoundTime(payload.StartTime, payload.Timezone, now)
			if err != nil {
				return nil, fmt.Errorf("startTime: %w: %w", lanternservice.ErrInvalidInput, err)
			}
			end, err := h.timeParser.ParseRoundTime(payload.EndTime, payload.Timezone, now)
			if err != nil {
				return nil, fmt.Errorf("endTime: %w: %w", lanternservice.ErrInvalidInput, err)
			}

			round, err := h.service.SetRoundState(ctx, start, end, payload.IsActive)
			if err != nil {
				return nil, err
			}
			return &lanternevents.RoundPayloadV1{Round: *round}, nil
		})
}

func (h *LanternHandlers) HandleResetAllStations(
	ctx context.Context,
	payload *lanternevents.StationsResetRequestedPayloadV1,
) ([]handlerwrapper.Result, error) {
	return h.handle(ctx, lanternevents.StationsResetRequestedV1, payload.Token, lanterngate.CmdResetAllStations,
		func(*lanterngate.Principal) (any, error) {
			summary, err := h.service.ResetAllStations(ctx)
			if err != nil {
				return nil, err
			}
			return &lanternevents.ResetSummaryPayloadV1{
				StationsReset:   summary.StationsReset,
				StationsFailed:  summary.StationsFailed,
				SessionsRemoved: summary.SessionsRemoved,
			}, nil
		})
}
