package lanternhandlers

import (
	"context"

	lanternevents "github.com/Black-And-White-Club/lantern-bot/app/modules/lantern/events"
	lanterngate "github.com/Black-And-White-Club/lantern-bot/app/modules/lantern/infrastructure/gate"
	"github.com/Black-And-White-Club/lantern-bot/internal/handlerwrapper"
)

func (h *LanternHandlers) HandleCreateStation(
	ctx context.Context,
	payload *lanternevents.StationCreateRequestedPayloadV1,
) ([]handlerwrapper.Result, error) {
	return h.handle(ctx, lanternevents.StationCreateRequestedV1, payload.Token, lanterngate.CmdCreateStation,
		func(*lanterngate.Principal) (any, error) {
			st, err := h.service.CreateStation(ctx, payload.Name, payload.BaselineSignal)
			if err != nil {
				return nil, err
			}
			return &lanternevents.StationPayloadV1{Station: *st}, nil
		})
}

// HandleSetStationActive soft deletes or restores a station.
func (h *LanternHandlers) HandleSetStationActive(
	ctx context.Context,
	payload *lanternevents.StationActiveRequestedPayloadV1,
) ([]handlerwrapper.Result, error) {
	return h.handle(ctx, lanternevents.StationActiveRequestedV1, payload.Token, lanterngate.CmdSetStationActive,
		func(*lanterngate.Principal) (any, error) {
			stationID, err := parseStationID(payload.StationID)
			if err != nil {
				return nil, err
			}
			st, err := h.service.SetStationActive(ctx, stationID, payload.IsActive)
			if err != nil {
				return nil, err
			}
			return &lanternevents.StationPayloadV1{Station: *st}, nil
		})
}

func (h *LanternHandlers) HandleCreateTeam(
	ctx context.Context,
	payload *lanternevents.TeamCreateRequestedPayloadV1,
) ([]handlerwrapper.Result, error) {
	return h.handle(ctx, lanternevents.TeamCreateRequestedV1, payload.Token, lanterngate.CmdCreateTeam,
		func(*lanterngate.Principal) (any, error) {
			team, err := h.service.CreateTeam(ctx, payload.Name)
			if err != nil {
				return nil, err
			}
			return &lanternevents.TeamPayloadV1{Team: *team}, nil
		})
}

func (h *LanternHandlers) HandleAssignMember(
	ctx context.Context,
	payload *lanternevents.TeamMemberAssignRequestedPayloadV1,
) ([]handlerwrapper.Result, error) {
	return h.handle(ctx, lanternevents.TeamMemberAssignRequestedV1, payload.Token, lanterngate.CmdAssignMember,
		func(*lanterngate.Principal) (any, error) {
			teamID, err := parseTeamID(payload.TeamID)
			if err != nil {
				return nil, err
			}
			if err := h.service.AssignMember(ctx, payload.UserID, teamID); err != nil {
				return nil, err
			}
			return &lanternevents.TeamMemberPayloadV1{UserID: payload.UserID, TeamID: teamID.String()}, nil
		})
}

func (h *LanternHandlers) HandleGetScores(
	ctx context.Context,
	payload *lanternevents.ScoresGetRequestedPayloadV1,
) ([]handlerwrapper.Result, error) {
	return h.handle(ctx, lanternevents.ScoresGetRequestedV1, payload.Token, lanterngate.CmdGetTeamScores,
		func(*lanterngate.Principal) (any, error) {
			scores, err := h.service.GetTeamScores(ctx)
			if err != nil {
				return nil, err
			}
			return &lanternevents.ScoresPayloadV1{Scores: scores}, nil
		})
}
