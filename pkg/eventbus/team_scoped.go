package eventbus

import (
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
)

// PublishWithTeamScope publishes an event with a team_id suffix so clients only see their team's feed.
// It appends the team id to the base topic using the pattern: {baseTopic}.{teamID}
//
// Example:
//   - baseTopic: "lantern.station.updated.v1"
//   - teamID: "3f1c..."
//   - result: "lantern.station.updated.v1.3f1c..."
//
// Subscribers use "lantern.station.updated.v1.*" to follow every team.
func PublishWithTeamScope(pub message.Publisher, baseTopic string, teamID string, msg *message.Message) error {
	if teamID == "" {
		return fmt.Errorf("teamID cannot be empty for team-scoped publish")
	}
	return pub.Publish(FormatTeamScopedTopic(baseTopic, teamID), msg)
}

// FormatTeamScopedTopic formats a topic with team_id suffix without publishing.
func FormatTeamScopedTopic(baseTopic string, teamID string) string {
	return fmt.Sprintf("%s.%s", baseTopic, teamID)
}
