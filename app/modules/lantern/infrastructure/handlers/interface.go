package lanternhandlers

import (
	"context"

	lanternevents "github.com/Black-And-White-Club/lantern-bot/app/modules/lantern/events"
	"github.com/Black-And-White-Club/lantern-bot/internal/handlerwrapper"
)

type Handlers interface {
	// Hack sessions
	HandleCreateHackSession(ctx context.Context, payload *lanternevents.HackSessionCreateRequestedPayloadV1) ([]handlerwrapper.Result, error)
	HandleAttemptGuess(ctx context.Context, payload *lanternevents.HackGuessRequestedPayloadV1) ([]handlerwrapper.Result, error)
	HandleGetHackSession(ctx context.Context, payload *lanternevents.HackSessionGetRequestedPayloadV1) ([]handlerwrapper.Result, error)

	// Round
	HandleGetRoundState(ctx context.Context, payload *lanternevents.RoundGetRequestedPayloadV1) ([]handlerwrapper.Result, error)
	HandleSetRoundState(ctx context.Context, payload *lanternevents.RoundSetRequestedPayloadV1) ([]handlerwrapper.Result, error)
	HandleResetAllStations(ctx context.Context, payload *lanternevents.StationsResetRequestedPayloadV1) ([]handlerwrapper.Result, error)

	// Administration
	HandleCreateStation(ctx context.Context, payload *lanternevents.StationCreateRequestedPayloadV1) ([]handlerwrapper.Result, error)
	HandleSetStationActive(ctx context.Context, payload *lanternevents.StationActiveRequestedPayloadV1) ([]handlerwrapper.Result, error)
	HandleCreateTeam(ctx context.Context, payload *lanternevents.TeamCreateRequestedPayloadV1) ([]handlerwrapper.Result, error)
	HandleAssignMember(ctx context.Context, payload *lanternevents.TeamMemberAssignRequestedPayloadV1) ([]handlerwrapper.Result, error)
	HandleGetScores(ctx context.Context, payload *lanternevents.ScoresGetRequestedPayloadV1) ([]handlerwrapper.Result, error)
}
