package lanternhandlers

import (
	"context"
	"fmt"

	lanternservice "github.com/Black-And-White-Club/lantern-bot/app/modules/lantern/application"
	lanternevents "github.com/Black-And-White-Club/lantern-bot/app/modules/lantern/events"
	lanterngate "github.com/Black-And-White-Club/lantern-bot/app/modules/lantern/infrastructure/gate"
	"github.com/Black-And-White-Club/lantern-bot/internal/handlerwrapper"
	"github.com/google/uuid"
)

// HandleCreateHackSession opens (or returns) the caller's session on a station.
// The owner is always the token subject.
func (h *LanternHandlers) HandleCreateHackSession(
	ctx context.Context,
	payload *lanternevents.HackSessionCreateRequestedPayloadV1,
) ([]handlerwrapper.Result, error) {
	return h.handle(ctx, lanternevents.HackSessionCreateRequestedV1, payload.Token, lanterngate.CmdCreateHackSession,
		func(p *lanterngate.Principal) (any, error) {
			stationID, err := parseStationID(payload.StationID)
			if err != nil {
				return nil, err
			}
			view, err := h.service.CreateHackSession(ctx, p.UserID, stationID)
			if err != nil {
				return nil, err
			}
			return &lanternevents.HackSessionPayloadV1{Session: *view}, nil
		})
}

// HandleAttemptGuess submits one password against the caller's session.
func (h *LanternHandlers) HandleAttemptGuess(
	ctx context.Context,
	payload *lanternevents.HackGuessRequestedPayloadV1,
) ([]handlerwrapper.Result, error) {
	return h.handle(ctx, lanternevents.HackGuessRequestedV1, payload.Token, lanterngate.CmdAttemptGuess,
		func(p *lanterngate.Principal) (any, error) {
			stationID, err := parseStationID(payload.StationID)
			if err != nil {
				return nil, err
			}
			res, err := h.service.AttemptGuess(ctx, p.UserID, stationID, payload.Password, payload.BoostingSignal)
			if err != nil {
				return nil, err
			}
			return &lanternevents.GuessResultPayloadV1{
				GuessResult:        *res,
				NewSessionRequired: res.Lockout,
			}, nil
		})
}

func (h *LanternHandlers) HandleGetHackSession(
	ctx context.Context,
	payload *lanternevents.HackSessionGetRequestedPayloadV1,
) ([]handlerwrapper.Result, error) {
	return h.handle(ctx, lanternevents.HackSessionGetRequestedV1, payload.Token, lanterngate.CmdGetHackSession,
		func(p *lanterngate.Principal) (any, error) {
			stationID, err := parseStationID(payload.StationID)
			if err != nil {
				return nil, err
			}
			view, err := h.service.GetHackSession(ctx, stationID, p.UserID)
			if err != nil {
				return nil, err
			}
			return &lanternevents.HackSessionPayloadV1{Session: *view}, nil
		})
}

func parseStationID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%q: %w", raw, lanternservice.ErrInvalidStationID)
	}
	return id, nil
}

func parseTeamID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%q: %w", raw, lanternservice.ErrInvalidTeamID)
	}
	return id, nil
}
