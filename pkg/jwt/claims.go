package jwt

import "github.com/golang-jwt/jwt/v5"

// LanternClaims are the claims carried by a player token. Subject is the user id.
type LanternClaims struct {
	jwt.RegisteredClaims
	Team string `json:"team,omitempty"`
	Role string `json:"role"`
}

type Role string

const (
	RoleViewer    Role = "viewer"
	RolePlayer    Role = "player"
	RoleModerator Role = "moderator"
)

// Rank orders roles so a higher role satisfies a lower requirement. Unknown roles rank 0.
func (r Role) Rank() int {
	switch r {
	case RoleViewer:
		return 1
	case RolePlayer:
		return 2
	case RoleModerator:
		return 3
	default:
		return 0
	}
}
