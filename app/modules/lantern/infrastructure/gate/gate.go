// Package lanterngate authorizes lantern commands from a signed player token.
package lanterngate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	lanternservice "github.com/Black-And-White-Club/lantern-bot/app/modules/lantern/application"
	"github.com/Black-And-White-Club/lantern-bot/internal/observability"
	lanternjwt "github.com/Black-And-White-Club/lantern-bot/pkg/jwt"
)

// Command names a gated operation.
type Command string

const (
	CmdCreateHackSession Command = "createHackSession"
	CmdAttemptGuess      Command = "attemptGuess"
	CmdGetHackSession    Command = "getHackSession"
	CmdGetRoundState     Command = "getRoundState"
	CmdSetRoundState     Command = "setRoundState"
	CmdResetAllStations  Command = "resetAllStations"
	CmdCreateStation     Command = "createStation"
	CmdSetStationActive  Command = "setStationActive"
	CmdListStations      Command = "listStations"
	CmdCreateTeam        Command = "createTeam"
	CmdAssignMember      Command = "assignMember"
	CmdGetTeamScores     Command = "getTeamScores"
	CmdExportScoreboard  Command = "exportScoreboard"
)

// DefaultPolicy is the minimum role per command. Reads are open to viewers, hacking needs a
// player and anything that changes round, station or team setup needs a moderator.
var DefaultPolicy = map[Command]lanternjwt.Role{
	CmdGetRoundState:    lanternjwt.RoleViewer,
	CmdListStations:     lanternjwt.RoleViewer,
	CmdGetTeamScores:    lanternjwt.RoleViewer,
	CmdExportScoreboard: lanternjwt.RoleViewer,

	CmdCreateHackSession: lanternjwt.RolePlayer,
	CmdAttemptGuess:      lanternjwt.RolePlayer,
	CmdGetHackSession:    lanternjwt.RolePlayer,

	CmdSetRoundState:    lanternjwt.RoleModerator,
	CmdResetAllStations: lanternjwt.RoleModerator,
	CmdCreateStation:    lanternjwt.RoleModerator,
	CmdSetStationActive: lanternjwt.RoleModerator,
	CmdCreateTeam:       lanternjwt.RoleModerator,
	CmdAssignMember:     lanternjwt.RoleModerator,
}

var (
	ErrMissingToken   = fmt.Errorf("missing token: %w", lanternservice.ErrUnauthorized)
	ErrBadToken       = fmt.Errorf("token rejected: %w", lanternservice.ErrUnauthorized)
	ErrUnknownCommand = fmt.Errorf("command is not gated: %w", lanternservice.ErrUnauthorized)
	ErrForbidden      = fmt.Errorf("role not allowed: %w", lanternservice.ErrUnauthorized)
)

// Principal is the caller a token resolved to.
type Principal struct {
	UserID string
	TeamID string
	Role   lanternjwt.Role
}

// Authorizer is the access check handlers run before every command.
type Authorizer interface {
	Authorize(ctx context.Context, token string, cmd Command) (*Principal, error)
}

// Gate validates tokens and checks the caller's role against a policy.
type Gate struct {
	tokens lanternjwt.Service
	policy map[Command]lanternjwt.Role
	logger *slog.Logger
}

var _ Authorizer = (*Gate)(nil)

// New returns a Gate. A nil policy uses DefaultPolicy.
func New(tokens lanternjwt.Service, policy map[Command]lanternjwt.Role, logger *slog.Logger) *Gate {
	if policy == nil {
		policy = DefaultPolicy
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{tokens: tokens, policy: policy, logger: logger}
}

// Authorize resolves token and reports whether its role may run cmd. Unknown commands are
// denied. Every denial wraps lanternservice.ErrUnauthorized.
func (g *Gate) Authorize(ctx context.Context, token string, cmd Command) (*Principal, error) {
	required, ok := g.policy[cmd]
	if !ok {
		return nil, fmt.Errorf("%s: %w", cmd, ErrUnknownCommand)
	}
	if token == "" {
		return nil, ErrMissingToken
	}

	claims, err := g.tokens.ValidateToken(token)
	if err != nil {
		g.logger.WarnContext(ctx, "Token rejected",
			slog.String("command", string(cmd)),
			slog.Any("error", err),
			observability.CorrelationAttr(ctx),
		)
		if errors.Is(err, lanternjwt.ErrExpiredToken) {
			return nil, fmt.Errorf("%w: %w", ErrBadToken, err)
		}
		return nil, ErrBadToken
	}

	role := lanternjwt.Role(claims.Role)
	if role.Rank() < required.Rank() {
		g.logger.InfoContext(ctx, "Command denied",
			slog.String("command", string(cmd)),
			slog.String("user_id", claims.Subject),
			slog.String("role", claims.Role),
			slog.String("required_role", string(required)),
		)
		return nil, fmt.Errorf("%s requires %s: %w", cmd, required, ErrForbidden)
	}

	return &Principal{UserID: claims.Subject, TeamID: claims.Team, Role: role}, nil
}
