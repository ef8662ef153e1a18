package lanternservice

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	lanterntypes "github.com/Black-And-White-Club/lantern-bot/app/modules/lantern/domain"
	lanterndb "github.com/Black-And-White-Club/lantern-bot/app/modules/lantern/infrastructure/repositories"
	"github.com/Black-And-White-Club/lantern-bot/internal/results"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// CreateStation adds an active, unowned station. A nil baseline uses the configured default.
func (s *LanternService) CreateStation(ctx context.Context, name string, baselineSignal *int) (*lanterntypes.Station, error) {
	result, err := withTelemetry(s, ctx, "CreateStation", name, func(ctx context.Context) (results.OperationResult[*lanterntypes.Station, error], error) {
		name = strings.TrimSpace(name)
		if name == "" {
			return failure[*lanterntypes.Station](ErrInvalidName)
		}
		baseline := s.settings.BaselineSignal
		if baselineSignal != nil {
			baseline = *baselineSignal
		}
		if baseline < lanterntypes.MinSignal || baseline > lanterntypes.MaxSignal {
			return failure[*lanterntypes.Station](ErrInvalidBaseline)
		}

		station := lanterntypes.NewStation(name, baseline, s.clock.Now())
		if err := s.repo.CreateStation(ctx, nil, &station); err != nil {
			return infraError[*lanterntypes.Station]("failed to create station", err)
		}
		return success(&station)
	})
	station, err := unwrap(result, err)
	if err != nil {
		return nil, err
	}

	box := &outbox{}
	s.queueStationUpdate(box, *station, OutcomeCreated, uuid.Nil, nil)
	s.flush(ctx, box)
	return station, nil
}

// SetStationActive soft-deletes or restores a station. Deactivation clears ownership and drops
// every session against the station.
func (s *LanternService) SetStationActive(ctx context.Context, stationID uuid.UUID, isActive bool) (*lanterntypes.Station, error) {
	box := &outbox{}
	result, err := withTelemetry(s, ctx, "SetStationActive", stationID.String(), func(ctx context.Context) (results.OperationResult[*lanterntypes.Station, error], error) {
		return withStationLock(s, ctx, stationID, box, func(ctx context.Context, db bun.IDB) (results.OperationResult[*lanterntypes.Station, error], error) {
			return s.setStationActiveLogic(ctx, db, box, stationID, isActive)
		})
	})
	return unwrap(result, err)
}

func (s *LanternService) setStationActiveLogic(ctx context.Context, db bun.IDB, box *outbox, stationID uuid.UUID, isActive bool) (results.OperationResult[*lanterntypes.Station, error], error) {
	station, err := s.repo.GetStation(ctx, db, stationID)
	if err != nil {
		if errors.Is(err, lanterndb.ErrNotFound) {
			return failure[*lanterntypes.Station](ErrStationNotFound)
		}
		return infraError[*lanterntypes.Station]("failed to get station", err)
	}
	if station.IsActive == isActive {
		return success(station)
	}

	previousOwner := station.OwnerTeamID
	now := s.clock.Now()
	outcome := OutcomeActivated
	if isActive {
		station.Activate(now)
	} else {
		outcome = OutcomeDeactivated
		station.Deactivate(now)
	}
	if err := s.repo.SaveStation(ctx, db, station); err != nil {
		return infraError[*lanterntypes.Station]("failed to save station", err)
	}

	if !isActive {
		removed, err := s.repo.DeleteHackSessionsForStation(ctx, db, stationID)
		if err != nil {
			return infraError[*lanterntypes.Station]("failed to drop station sessions", err)
		}
		s.logger.InfoContext(ctx, "Station deactivated",
			slog.String("station_id", stationID.String()),
			slog.Int("sessions_removed", removed),
		)
	}

	if err := s.queueScores(ctx, db, box); err != nil {
		return infraError[*lanterntypes.Station]("failed to compute scores", err)
	}
	s.queueStationUpdate(box, *station, outcome, uuid.Nil, previousOwner)
	return success(station)
}

// ListStations returns stations ordered by name.
func (s *LanternService) ListStations(ctx context.Context, includeInactive bool) ([]lanterntypes.Station, error) {
	result, err := withTelemetry(s, ctx, "ListStations", "all", func(ctx context.Context) (results.OperationResult[[]lanterntypes.Station, error], error) {
		stations, err := s.repo.ListStations(ctx, nil, includeInactive)
		if err != nil {
			return infraError[[]lanterntypes.Station]("failed to list stations", err)
		}
		return success(stations)
	})
	return unwrap(result, err)
}

// GetStation returns one station, active or not.
func (s *LanternService) GetStation(ctx context.Context, stationID uuid.UUID) (*lanterntypes.Station, error) {
	result, err := withTelemetry(s, ctx, "GetStation", stationID.String(), func(ctx context.Context) (results.OperationResult[*lanterntypes.Station, error], error) {
		station, err := s.repo.GetStation(ctx, nil, stationID)
		if err != nil {
			if errors.Is(err, lanterndb.ErrNotFound) {
				return failure[*lanterntypes.Station](ErrStationNotFound)
			}
			return infraError[*lanterntypes.Station]("failed to get station", err)
		}
		return success(station)
	})
	return unwrap(result, err)
}
