package lanternservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	lanterntypes "github.com/Black-And-White-Club/lantern-bot/app/modules/lantern/domain"
	lanternevents "github.com/Black-And-White-Club/lantern-bot/app/modules/lantern/events"
	lanterndb "github.com/Black-And-White-Club/lantern-bot/app/modules/lantern/infrastructure/repositories"
	"github.com/Black-And-White-Club/lantern-bot/internal/results"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ResetAllStations returns every active station to its baseline, drops all hack sessions and
// broadcasts the new state. A station that fails to reset is logged and skipped.
func (s *LanternService) ResetAllStations(ctx context.Context) (*ResetSummary, error) {
	result, err := withTelemetry(s, ctx, "ResetAllStations", "all", func(ctx context.Context) (results.OperationResult[*ResetSummary, error], error) {
		return s.resetAllStationsLogic(ctx)
	})
	return unwrap(result, err)
}

func (s *LanternService) resetAllStationsLogic(ctx context.Context) (results.OperationResult[*ResetSummary, error], error) {
	stations, err := s.repo.ListStations(ctx, nil, false)
	if err != nil {
		return infraError[*ResetSummary]("failed to list stations", err)
	}

	summary := &ResetSummary{}
	for _, st := range stations {
		if err := s.resetStation(ctx, st.ID); err != nil {
			summary.StationsFailed++
			s.logger.ErrorContext(ctx, "Station reset failed",
				slog.String("station_id", st.ID.String()),
				slog.Any("error", err),
			)
			continue
		}
		summary.StationsReset++
	}

	// Sessions left behind by a failed delete still carry the old station version and can only
	// ever fail with a conflict. So does a guess that loses its session to this delete.
	removed, err := s.repo.DeleteAllHackSessions(ctx, nil)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to drop hack sessions after reset", slog.Any("error", err))
	}
	summary.SessionsRemoved = removed

	s.metrics.RecordResetTick(ctx, summary.StationsReset, summary.StationsFailed)
	s.broadcastSnapshot(ctx)

	s.logger.InfoContext(ctx, "Stations reset",
		slog.Int("stations_reset", summary.StationsReset),
		slog.Int("stations_failed", summary.StationsFailed),
		slog.Int("sessions_removed", summary.SessionsRemoved),
	)
	return success(summary)
}

func (s *LanternService) resetStation(ctx context.Context, id uuid.UUID) error {
	box := &outbox{}
	_, err := withStationLock(s, ctx, id, box, func(ctx context.Context, db bun.IDB) (results.OperationResult[struct{}, error], error) {
		station, err := s.repo.GetStation(ctx, db, id)
		if err != nil {
			if errors.Is(err, lanterndb.ErrNotFound) {
				return success(struct{}{})
			}
			return infraError[struct{}]("failed to get station", err)
		}
		if !station.IsActive {
			return success(struct{}{})
		}
		station.Reset(s.clock.Now())
		if err := s.repo.SaveStation(ctx, db, station); err != nil {
			return infraError[struct{}]("failed to save station", err)
		}
		return success(struct{}{})
	})
	return err
}

// broadcastSnapshot publishes the full station list, the round and the scores.
func (s *LanternService) broadcastSnapshot(ctx context.Context) {
	stations, err := s.repo.ListStations(ctx, nil, false)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to read stations for snapshot", slog.Any("error", err))
	} else {
		s.broadcaster.Publish(ctx, lanternevents.StationsSnapshotV1, lanternevents.StationsSnapshotPayloadV1{
			Stations:   stations,
			OccurredAt: s.clock.Now(),
		})
	}

	round, err := s.repo.GetRound(ctx, nil)
	switch {
	case err == nil:
		s.broadcaster.Publish(ctx, lanternevents.RoundUpdatedV1, lanternevents.RoundPayloadV1{Round: *round})
	case !errors.Is(err, lanterndb.ErrNotFound):
		s.logger.ErrorContext(ctx, "Failed to read round for snapshot", slog.Any("error", err))
	}

	scores, err := s.scores(ctx, nil)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to compute scores for snapshot", slog.Any("error", err))
		return
	}
	s.broadcaster.Publish(ctx, lanternevents.ScoresUpdatedV1, lanternevents.ScoresPayloadV1{Scores: scores})
}

func (s *LanternService) scores(ctx context.Context, db bun.IDB) ([]lanterntypes.TeamScore, error) {
	teams, err := s.repo.ListTeams(ctx, db)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}
	stations, err := s.repo.ListStations(ctx, db, false)
	if err != nil {
		return nil, fmt.Errorf("failed to list stations: %w", err)
	}
	return lanterntypes.ComputeScores(teams, stations), nil
}
