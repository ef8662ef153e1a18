package lanternservice

import (
	"context"
	"time"

	lanterntypes "github.com/Black-And-White-Club/lantern-bot/app/modules/lantern/domain"
	"github.com/google/uuid"
)

// PasswordSet is a real password with its hints and the decoys shown next to it.
type PasswordSet struct {
	Real   lanterntypes.Password
	Decoys []lanterntypes.Password
}

// PasswordGenerator picks real passwords and builds decoys and hints for them.
type PasswordGenerator interface {
	NewPassword() string
	Generate(secret string, decoyCount int) (PasswordSet, error)
}

// Broadcaster delivers state changes to subscribed clients. Delivery is best effort;
// implementations log failures and never block the caller on them.
type Broadcaster interface {
	Publish(ctx context.Context, topic string, payload any)
	PublishToTeam(ctx context.Context, topic string, teamID uuid.UUID, payload any)
}

// RoundExpiryScheduler arranges a durable expiry of the round at its end time.
type RoundExpiryScheduler interface {
	ScheduleExpiry(ctx context.Context, endTime time.Time) error
	CancelExpiry(ctx context.Context) error
}

type noopBroadcaster struct{}

func (noopBroadcaster) Publish(context.Context, string, any) {}
func (noopBroadcaster) PublishToTeam(context.Context, string, uuid.UUID, any) {}
