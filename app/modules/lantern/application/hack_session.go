package lanternservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	lanterntypes "github.com/Black-And-White-Club/lantern-bot/app/modules/lantern/domain"
	lanterndb "github.com/Black-And-White-Club/lantern-bot/app/modules/lantern/infrastructure/repositories"
	"github.com/Black-And-White-Club/lantern-bot/internal/results"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// CreateHackSession opens a guessing session for ownerID against stationID. An existing session
// for the pair is returned unchanged.
func (s *LanternService) CreateHackSession(ctx context.Context, ownerID string, stationID uuid.UUID) (*lanterntypes.HackSessionView, error) {
	box := &outbox{}
	result, err := withTelemetry(s, ctx, "CreateHackSession", stationID.String(), func(ctx context.Context) (results.OperationResult[*lanterntypes.HackSessionView, error], error) {
		if strings.TrimSpace(ownerID) == "" {
			return failure[*lanterntypes.HackSessionView](ErrMissingOwner)
		}
		return withStationLock(s, ctx, stationID, box, func(ctx context.Context, db bun.IDB) (results.OperationResult[*lanterntypes.HackSessionView, error], error) {
			return s.createHackSessionLogic(ctx, db, ownerID, stationID)
		})
	})
	return unwrap(result, err)
}

func (s *LanternService) createHackSessionLogic(ctx context.Context, db bun.IDB, ownerID string, stationID uuid.UUID) (results.OperationResult[*lanterntypes.HackSessionView, error], error) {
	open, err := s.roundOpen(ctx, db)
	if err != nil {
		return infraError[*lanterntypes.HackSessionView]("failed to read round", err)
	}
	if !open {
		return failure[*lanterntypes.HackSessionView](ErrRoundInactive)
	}

	station, err := s.repo.GetStation(ctx, db, stationID)
	if err != nil {
		if errors.Is(err, lanterndb.ErrNotFound) {
			return failure[*lanterntypes.HackSessionView](ErrStationNotFound)
		}
		return infraError[*lanterntypes.HackSessionView]("failed to get station", err)
	}
	if !station.IsActive {
		return failure[*lanterntypes.HackSessionView](ErrStationNotFound)
	}

	if _, err := s.repo.GetTeamForUser(ctx, db, ownerID); err != nil {
		if errors.Is(err, lanterndb.ErrNotFound) {
			return failure[*lanterntypes.HackSessionView](ErrTeamNotFound)
		}
		return infraError[*lanterntypes.HackSessionView]("failed to resolve team", err)
	}

	existing, err := s.repo.GetHackSession(ctx, db, ownerID, stationID)
	if err == nil {
		view := existing.View(nil)
		return success(&view)
	}
	if !errors.Is(err, lanterndb.ErrNotFound) {
		return infraError[*lanterntypes.HackSessionView]("failed to get hack session", err)
	}

	if s.passwords == nil {
		return results.OperationResult[*lanterntypes.HackSessionView, error]{}, fmt.Errorf("no password generator configured")
	}
	set, err := s.passwords.Generate(s.passwords.NewPassword(), s.settings.DecoyCount)
	if err != nil {
		return infraError[*lanterntypes.HackSessionView]("failed to generate passwords", err)
	}

	session := lanterntypes.HackSession{
		OwnerID:        ownerID,
		StationID:      stationID,
		TriesLeft:      s.settings.MaxTries,
		RealPassword:   set.Real,
		DecoyPasswords: set.Decoys,
		StationVersion: station.Version,
		CreatedAt:      s.clock.Now(),
	}

	inserted, err := s.repo.InsertHackSession(ctx, db, &session)
	if err != nil {
		return infraError[*lanterntypes.HackSessionView]("failed to store hack session", err)
	}
	if !inserted {
		// Another replica won the insert; hand back its session.
		winner, err := s.repo.GetHackSession(ctx, db, ownerID, stationID)
		if errors.Is(err, lanterndb.ErrNotFound) {
			return failure[*lanterntypes.HackSessionView](ErrStationStale)
		}
		if err != nil {
			return infraError[*lanterntypes.HackSessionView]("failed to reread hack session", err)
		}
		session = *winner
	}

	s.logger.InfoContext(ctx, "Hack session issued",
		slog.String("owner_id", ownerID),
		slog.String("station_id", stationID.String()),
		slog.Int("tries_left", session.TriesLeft),
	)

	view := session.View(nil)
	return success(&view)
}

// GetHackSession returns the caller's view of an open session.
func (s *LanternService) GetHackSession(ctx context.Context, stationID uuid.UUID, ownerID string) (*lanterntypes.HackSessionView, error) {
	result, err := withTelemetry(s, ctx, "GetHackSession", stationID.String(), func(ctx context.Context) (results.OperationResult[*lanterntypes.HackSessionView, error], error) {
		session, err := s.repo.GetHackSession(ctx, nil, ownerID, stationID)
		if err != nil {
			if errors.Is(err, lanterndb.ErrNotFound) {
				return failure[*lanterntypes.HackSessionView](ErrSessionNotFound)
			}
			return infraError[*lanterntypes.HackSessionView]("failed to get hack session", err)
		}
		view := session.View(nil)
		return success(&view)
	})
	return unwrap(result, err)
}

// roundOpen reports whether play is allowed right now.
func (s *LanternService) roundOpen(ctx context.Context, db bun.IDB) (bool, error) {
	if s.settings.AllowInactiveRound {
		return true, nil
	}
	round, err := s.repo.GetRound(ctx, db)
	if err != nil {
		if errors.Is(err, lanterndb.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return round.ActiveAt(s.clock.Now()), nil
}
