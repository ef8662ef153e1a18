package lanternservice

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	lanterntypes "github.com/Black-And-White-Club/lantern-bot/app/modules/lantern/domain"
	lanternevents "github.com/Black-And-White-Club/lantern-bot/app/modules/lantern/events"
	lanterndb "github.com/Black-And-White-Club/lantern-bot/app/modules/lantern/infrastructure/repositories"
	"github.com/Black-And-White-Club/lantern-bot/internal/results"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Guess outcomes, as reported in metrics and station broadcasts.
const (
	OutcomeSuccess     = "success"
	OutcomeWrong       = "wrong"
	OutcomeLockout     = "lockout"
	OutcomeConflict    = "conflict"
	OutcomeReset       = "reset"
	OutcomeCreated     = "created"
	OutcomeDeactivated = "deactivated"
	OutcomeActivated   = "activated"
)

// AttemptGuess checks password against the caller's session on stationID. A wrong guess costs a
// try and the last try deletes the session. A match hands the station to the caller's team with
// boostingSignal capped at the configured maximum, and consumes the session.
func (s *LanternService) AttemptGuess(ctx context.Context, ownerID string, stationID uuid.UUID, password string, boostingSignal int) (*lanterntypes.GuessResult, error) {
	box := &outbox{}
	result, err := withTelemetry(s, ctx, "AttemptGuess", stationID.String(), func(ctx context.Context) (results.OperationResult[*lanterntypes.GuessResult, error], error) {
		switch {
		case strings.TrimSpace(ownerID) == "":
			return failure[*lanterntypes.GuessResult](ErrMissingOwner)
		case boostingSignal < 1:
			return failure[*lanterntypes.GuessResult](ErrInvalidBoost)
		case password == "":
			return failure[*lanterntypes.GuessResult](ErrEmptyPassword)
		}
		return withStationLock(s, ctx, stationID, box, func(ctx context.Context, db bun.IDB) (results.OperationResult[*lanterntypes.GuessResult, error], error) {
			return s.attemptGuessLogic(ctx, db, box, ownerID, stationID, password, boostingSignal)
		})
	})
	return unwrap(result, err)
}

func (s *LanternService) attemptGuessLogic(
	ctx context.Context,
	db bun.IDB,
	box *outbox,
	ownerID string,
	stationID uuid.UUID,
	password string,
	boostingSignal int,
) (results.OperationResult[*lanterntypes.GuessResult, error], error) {
	open, err := s.roundOpen(ctx, db)
	if err != nil {
		return infraError[*lanterntypes.GuessResult]("failed to read round", err)
	}
	if !open {
		return failure[*lanterntypes.GuessResult](ErrRoundInactive)
	}

	session, err := s.repo.GetHackSession(ctx, db, ownerID, stationID)
	if err != nil {
		if errors.Is(err, lanterndb.ErrNotFound) {
			return failure[*lanterntypes.GuessResult](ErrSessionNotFound)
		}
		return infraError[*lanterntypes.GuessResult]("failed to get hack session", err)
	}
	if session.TriesLeft <= 0 {
		return failure[*lanterntypes.GuessResult](ErrSessionExhausted)
	}

	station, err := s.repo.GetStation(ctx, db, stationID)
	if err != nil {
		if errors.Is(err, lanterndb.ErrNotFound) {
			if err := s.repo.DeleteHackSession(ctx, db, ownerID, stationID); err != nil {
				return infraError[*lanterntypes.GuessResult]("failed to delete orphaned hack session", err)
			}
			return failure[*lanterntypes.GuessResult](ErrStationNotFound)
		}
		return infraError[*lanterntypes.GuessResult]("failed to get station", err)
	}

	team, err := s.repo.GetTeamForUser(ctx, db, ownerID)
	if err != nil {
		if errors.Is(err, lanterndb.ErrNotFound) {
			return failure[*lanterntypes.GuessResult](ErrTeamNotFound)
		}
		return infraError[*lanterntypes.GuessResult]("failed to resolve team", err)
	}

	if session.StationVersion != station.Version || !station.IsActive {
		// The station was captured, reset or deactivated after this session was issued.
		if err := s.repo.DeleteHackSession(ctx, db, ownerID, stationID); err != nil {
			return infraError[*lanterntypes.GuessResult]("failed to delete stale hack session", err)
		}
		if !station.IsActive {
			return failure[*lanterntypes.GuessResult](ErrStationNotFound)
		}
		s.metrics.RecordGuess(ctx, OutcomeConflict)
		s.queueStationUpdate(box, *station, OutcomeConflict, team.ID, nil)
		return failure[*lanterntypes.GuessResult](ErrStationStale)
	}

	if password != session.RealPassword.Value {
		return s.wrongGuess(ctx, db, box, session, *station, team.ID)
	}

	previousOwner := station.OwnerTeamID
	now := s.clock.Now()
	station.Capture(team.ID, lanterntypes.ClampBoost(boostingSignal, s.settings.MaxBoostingSignal), now)
	if err := s.repo.SaveStation(ctx, db, station); err != nil {
		return infraError[*lanterntypes.GuessResult]("failed to save station", err)
	}
	if err := s.repo.DeleteHackSession(ctx, db, ownerID, stationID); err != nil {
		return infraError[*lanterntypes.GuessResult]("failed to consume hack session", err)
	}

	if err := s.queueScores(ctx, db, box); err != nil {
		return infraError[*lanterntypes.GuessResult]("failed to compute scores", err)
	}
	s.queueStationUpdate(box, *station, OutcomeSuccess, team.ID, previousOwner)
	s.metrics.RecordGuess(ctx, OutcomeSuccess)

	s.logger.InfoContext(ctx, "Station captured",
		slog.String("owner_id", ownerID),
		slog.String("station_id", stationID.String()),
		slog.String("team_id", team.ID.String()),
		slog.Int("boosting_signal", station.BoostingSignal),
	)

	captured := *station
	return success(&lanterntypes.GuessResult{
		Success:   true,
		TriesLeft: session.TriesLeft,
		Station:   &captured,
	})
}

func (s *LanternService) wrongGuess(
	ctx context.Context,
	db bun.IDB,
	box *outbox,
	session *lanterntypes.HackSession,
	station lanterntypes.Station,
	attacker uuid.UUID,
) (results.OperationResult[*lanterntypes.GuessResult, error], error) {
	triesLeft := session.TriesLeft - 1

	if triesLeft <= 0 {
		if err := s.repo.DeleteHackSession(ctx, db, session.OwnerID, session.StationID); err != nil {
			return infraError[*lanterntypes.GuessResult]("failed to delete exhausted hack session", err)
		}
		s.metrics.RecordGuess(ctx, OutcomeLockout)
		s.queueStationUpdate(box, station, OutcomeLockout, attacker, nil)
		s.logger.InfoContext(ctx, "Hack session locked out",
			slog.String("owner_id", session.OwnerID),
			slog.String("station_id", session.StationID.String()),
		)
		return success(&lanterntypes.GuessResult{Lockout: true, TriesLeft: 0})
	}

	if err := s.repo.UpdateHackSessionTries(ctx, db, session.OwnerID, session.StationID, triesLeft); err != nil {
		if errors.Is(err, lanterndb.ErrNotFound) {
			// A reset sweep dropped the session after it was read.
			s.metrics.RecordGuess(ctx, OutcomeConflict)
			return failure[*lanterntypes.GuessResult](ErrStationStale)
		}
		return infraError[*lanterntypes.GuessResult]("failed to update tries", err)
	}
	s.metrics.RecordGuess(ctx, OutcomeWrong)
	s.queueStationUpdate(box, station, OutcomeWrong, attacker, nil)
	return success(&lanterntypes.GuessResult{TriesLeft: triesLeft})
}

// queueStationUpdate broadcasts a station change globally and to every team it concerns:
// the acting team, the defending owner and, after a capture, the previous owner.
func (s *LanternService) queueStationUpdate(box *outbox, station lanterntypes.Station, outcome string, actor uuid.UUID, previousOwner *uuid.UUID) {
	payload := lanternevents.StationUpdatedPayloadV1{
		Station:    station,
		Outcome:    outcome,
		OccurredAt: s.clock.Now(),
	}
	if actor != uuid.Nil {
		payload.ActorTeam = actor.String()
	}
	box.publish(lanternevents.StationUpdatedV1, payload)

	seen := map[uuid.UUID]bool{}
	notify := func(id *uuid.UUID) {
		if id == nil || *id == uuid.Nil || seen[*id] {
			return
		}
		seen[*id] = true
		box.publishToTeam(lanternevents.StationUpdatedV1, *id, payload)
	}
	notify(&actor)
	notify(station.OwnerTeamID)
	notify(previousOwner)
}

func (s *LanternService) queueScores(ctx context.Context, db bun.IDB, box *outbox) error {
	scores, err := s.scores(ctx, db)
	if err != nil {
		return err
	}
	box.publish(lanternevents.ScoresUpdatedV1, lanternevents.ScoresPayloadV1{Scores: scores})
	return nil
}
