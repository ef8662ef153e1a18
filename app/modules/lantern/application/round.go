package lanternservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	lanterntypes "github.com/Black-And-White-Club/lantern-bot/app/modules/lantern/domain"
	lanternevents "github.com/Black-And-White-Club/lantern-bot/app/modules/lantern/events"
	lanterndb "github.com/Black-And-White-Club/lantern-bot/app/modules/lantern/infrastructure/repositories"
	"github.com/Black-And-White-Club/lantern-bot/internal/results"
	"github.com/uptrace/bun"
)

// GetRoundState returns the round. Before any round was configured it reports an inactive,
// zero-valued round.
func (s *LanternService) GetRoundState(ctx context.Context) (*lanterntypes.Round, error) {
	result, err := withTelemetry(s, ctx, "GetRoundState", "round", func(ctx context.Context) (results.OperationResult[*lanterntypes.Round, error], error) {
		round, err := s.repo.GetRound(ctx, nil)
		if err != nil {
			if errors.Is(err, lanterndb.ErrNotFound) {
				return success(&lanterntypes.Round{})
			}
			return infraError[*lanterntypes.Round]("failed to get round", err)
		}
		return success(round)
	})
	return unwrap(result, err)
}

// SetRoundState replaces the round window and flag, then starts or stops the reset timer to match.
func (s *LanternService) SetRoundState(ctx context.Context, startTime, endTime time.Time, isActive bool) (*lanterntypes.Round, error) {
	result, err := withTelemetry(s, ctx, "SetRoundState", "round", func(ctx context.Context) (results.OperationResult[*lanterntypes.Round, error], error) {
		if !startTime.Before(endTime) {
			return failure[*lanterntypes.Round](ErrInvalidRoundWindow)
		}
		now := s.clock.Now()
		if isActive && !now.Before(endTime) {
			return failure[*lanterntypes.Round](ErrRoundAlreadyEnded)
		}
		if isActive && startTime.After(now) {
			return failure[*lanterntypes.Round](ErrRoundNotStarted)
		}

		round := &lanterntypes.Round{
			StartTime: startTime.UTC(),
			EndTime:   endTime.UTC(),
			IsActive:  isActive,
		}

		s.roundMu.Lock()
		defer s.roundMu.Unlock()

		return runInTx(s, ctx, func(ctx context.Context, db bun.IDB) (results.OperationResult[*lanterntypes.Round, error], error) {
			if err := s.repo.SaveRound(ctx, db, round); err != nil {
				return infraError[*lanterntypes.Round]("failed to save round", err)
			}
			return success(round)
		})
	})
	round, err := unwrap(result, err)
	if err != nil {
		return nil, err
	}

	s.syncExpiry(ctx, *round)
	if err := s.syncScheduler(ctx); err != nil {
		s.logger.ErrorContext(ctx, "Failed to sync round scheduler", slog.Any("error", err))
	}
	s.broadcaster.Publish(ctx, lanternevents.RoundUpdatedV1, lanternevents.RoundPayloadV1{Round: *round})

	return round, nil
}

// ExpireRound deactivates the round if its end time has passed. It is a no-op otherwise, so a
// stale expiry job cannot end a round that was extended.
func (s *LanternService) ExpireRound(ctx context.Context) error {
	result, err := withTelemetry(s, ctx, "ExpireRound", "round", func(ctx context.Context) (results.OperationResult[bool, error], error) {
		expired, err := s.expireRound(ctx)
		if err != nil {
			return results.OperationResult[bool, error]{}, err
		}
		return success(expired)
	})
	if _, err := unwrap(result, err); err != nil {
		return err
	}
	return s.syncScheduler(ctx)
}

// expireRound flips an expired round to inactive and broadcasts it. It never touches the
// scheduler, so the tick can call it.
func (s *LanternService) expireRound(ctx context.Context) (bool, error) {
	s.roundMu.Lock()
	defer s.roundMu.Unlock()

	round, err := s.repo.GetRound(ctx, nil)
	if err != nil {
		if errors.Is(err, lanterndb.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to get round: %w", err)
	}
	if !round.Expired(s.clock.Now()) {
		return false, nil
	}

	round.IsActive = false
	if err := s.repo.SaveRound(ctx, nil, round); err != nil {
		return false, fmt.Errorf("failed to save round: %w", err)
	}

	s.logger.InfoContext(ctx, "Round expired", slog.Time("end_time", round.EndTime))
	s.broadcaster.Publish(ctx, lanternevents.RoundUpdatedV1, lanternevents.RoundPayloadV1{Round: *round})
	return true, nil
}

// Resume restores the timer after a restart. Calling it while the timer runs changes nothing.
func (s *LanternService) Resume(ctx context.Context) error {
	round, err := s.repo.GetRound(ctx, nil)
	if err != nil && !errors.Is(err, lanterndb.ErrNotFound) {
		return fmt.Errorf("failed to get round: %w", err)
	}
	if err == nil {
		if round.Expired(s.clock.Now()) {
			return s.ExpireRound(ctx)
		}
		s.syncExpiry(ctx, *round)
	}
	return s.syncScheduler(ctx)
}

// syncScheduler runs the timer exactly while the stored round is active and unexpired.
func (s *LanternService) syncScheduler(ctx context.Context) error {
	s.schedMu.Lock()
	defer s.schedMu.Unlock()

	round, err := s.repo.GetRound(ctx, nil)
	if err != nil && !errors.Is(err, lanterndb.ErrNotFound) {
		return fmt.Errorf("failed to get round: %w", err)
	}

	if err == nil && round.IsActive && !round.Expired(s.clock.Now()) {
		s.scheduler.Start()
		return nil
	}
	s.scheduler.Stop()
	return nil
}

// syncExpiry keeps the durable expiry job aligned with the round. Failures only cost the
// restart safety net, the in-process tick still expires the round.
func (s *LanternService) syncExpiry(ctx context.Context, round lanterntypes.Round) {
	if s.expiry == nil {
		return
	}
	if err := s.expiry.CancelExpiry(ctx); err != nil {
		s.logger.WarnContext(ctx, "Failed to cancel round expiry job", slog.Any("error", err))
	}
	if !round.IsActive {
		return
	}
	if err := s.expiry.ScheduleExpiry(ctx, round.EndTime); err != nil {
		s.logger.WarnContext(ctx, "Failed to schedule round expiry job", slog.Any("error", err))
	}
}

// tickRound is the scheduler's tick. It returns ErrRoundEnded once the timer has no more work.
func (s *LanternService) tickRound(ctx context.Context) error {
	round, err := s.repo.GetRound(ctx, nil)
	if err != nil {
		if errors.Is(err, lanterndb.ErrNotFound) {
			return ErrRoundEnded
		}
		return fmt.Errorf("failed to get round: %w", err)
	}
	if !round.IsActive {
		return ErrRoundEnded
	}

	now := s.clock.Now()
	if round.Expired(now) {
		if _, err := s.expireRound(ctx); err != nil {
			return err
		}
		return ErrRoundEnded
	}
	if now.Before(round.StartTime) {
		return nil
	}

	_, err = s.ResetAllStations(ctx)
	return err
}
