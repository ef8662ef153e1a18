// Package lanternqueue schedules durable round expiry with River so a round still closes on
// time across process restarts.
package lanternqueue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	lanternservice "github.com/Black-And-White-Club/lantern-bot/app/modules/lantern/application"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"
	"github.com/riverqueue/river/rivertype"
)

const serviceLabel = "river"

// Metrics is the subset of the lantern metrics the queue records.
type Metrics interface {
	RecordOperationAttempt(ctx context.Context, operation, service string)
	RecordOperationSuccess(ctx context.Context, operation, service string)
	RecordOperationFailure(ctx context.Context, operation, service string)
	RecordOperationDuration(ctx context.Context, operation, service string, duration time.Duration)
}

// QueueService is the durable expiry scheduler plus its lifecycle.
type QueueService interface {
	lanternservice.RoundExpiryScheduler
	Bind(e RoundExpirer)
	PendingExpiries(ctx context.Context) ([]JobInfo, error)
	HealthCheck(ctx context.Context) error
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

var _ QueueService = (*Service)(nil)

// Service handles round expiry jobs using River.
type Service struct {
	client  *river.Client[pgx.Tx]
	pool    *pgxpool.Pool
	worker  *RoundExpireWorker
	logger  *slog.Logger
	metrics Metrics
}

// NewService opens a pgx pool on dsn and builds the River client. The caller owns Start/Stop.
func NewService(ctx context.Context, dsn string, logger *slog.Logger, metrics Metrics) (*Service, error) {
	logger = logger.With(slog.String("component", "river_queue"))
	start := time.Now()
	metrics.RecordOperationAttempt(ctx, "initialize_service", serviceLabel)

	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		metrics.RecordOperationFailure(ctx, "initialize_service", serviceLabel)
		return nil, fmt.Errorf("failed to parse DSN: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		metrics.RecordOperationFailure(ctx, "initialize_service", serviceLabel)
		return nil, fmt.Errorf("failed to create pgx pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		metrics.RecordOperationFailure(ctx, "initialize_service", serviceLabel)
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	svc, err := newServiceWithPool(pool, logger, metrics)
	if err != nil {
		pool.Close()
		metrics.RecordOperationFailure(ctx, "initialize_service", serviceLabel)
		return nil, err
	}

	metrics.RecordOperationSuccess(ctx, "initialize_service", serviceLabel)
	metrics.RecordOperationDuration(ctx, "initialize_service", serviceLabel, time.Since(start))
	logger.InfoContext(ctx, "Lantern queue service initialized")
	return svc, nil
}

func newServiceWithPool(pool *pgxpool.Pool, logger *slog.Logger, metrics Metrics) (*Service, error) {
	worker := NewRoundExpireWorker(logger)
	workers := river.NewWorkers()
	river.AddWorker(workers, worker)

	client, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues: map[string]river.QueueConfig{
			QueueName: {MaxWorkers: 2},
		},
		Workers: workers,
		Logger:  logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create River client: %w", err)
	}

	return &Service{
		client:  client,
		pool:    pool,
		worker:  worker,
		logger:  logger,
		metrics: metrics,
	}, nil
}

// Migrate applies River's own schema to the database behind dsn.
func Migrate(ctx context.Context, dsn string) error {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return fmt.Errorf("failed to create pgx pool: %w", err)
	}
	defer pool.Close()

	migrator, err := rivermigrate.New(riverpgxv5.New(pool), nil)
	if err != nil {
		return fmt.Errorf("failed to create River migrator: %w", err)
	}
	if _, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, &rivermigrate.MigrateOpts{}); err != nil {
		return fmt.Errorf("failed to run River migrations: %w", err)
	}
	return nil
}

// Bind routes expiry jobs to e. Call it before Start.
func (s *Service) Bind(e RoundExpirer) { s.worker.Bind(e) }

func (s *Service) Start(ctx context.Context) error {
	if err := s.client.Start(ctx); err != nil {
		s.logger.ErrorContext(ctx, "Failed to start River client", slog.Any("error", err))
		return fmt.Errorf("failed to start River client: %w", err)
	}
	s.logger.InfoContext(ctx, "Lantern queue service started")
	return nil
}

// Stop waits for running jobs and closes the pool.
func (s *Service) Stop(ctx context.Context) error {
	defer s.pool.Close()
	if err := s.client.Stop(ctx); err != nil {
		s.logger.ErrorContext(ctx, "Failed to stop River client", slog.Any("error", err))
		return fmt.Errorf("failed to stop River client: %w", err)
	}
	s.logger.InfoContext(ctx, "Lantern queue service stopped")
	return nil
}

// ScheduleExpiry inserts an expiry job due at endTime. Repeated calls for the same endTime
// collapse onto one job.
func (s *Service) ScheduleExpiry(ctx context.Context, endTime time.Time) error {
	start := time.Now()
	s.metrics.RecordOperationAttempt(ctx, "schedule_round_expiry", serviceLabel)

	res, err := s.client.Insert(ctx, RoundExpireJob{EndTime: endTime.UTC()}, &river.InsertOpts{
		Queue:       QueueName,
		ScheduledAt: endTime,
		UniqueOpts: river.UniqueOpts{
			ByArgs: true,
		},
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to schedule round expiry", slog.Any("error", err))
		s.metrics.RecordOperationFailure(ctx, "schedule_round_expiry", serviceLabel)
		return fmt.Errorf("failed to schedule round expiry: %w", err)
	}

	s.metrics.RecordOperationSuccess(ctx, "schedule_round_expiry", serviceLabel)
	s.metrics.RecordOperationDuration(ctx, "schedule_round_expiry", serviceLabel, time.Since(start))
	s.logger.InfoContext(ctx, "Round expiry scheduled",
		slog.Int64("job_id", res.Job.ID),
		slog.Time("end_time", endTime),
		slog.Bool("duplicate", res.UniqueSkippedAsDuplicate),
	)
	return nil
}

// CancelExpiry cancels every expiry job that has not run yet.
func (s *Service) CancelExpiry(ctx context.Context) error {
	start := time.Now()
	s.metrics.RecordOperationAttempt(ctx, "cancel_round_expiry", serviceLabel)

	jobs, err := s.pending(ctx)
	if err != nil {
		s.metrics.RecordOperationFailure(ctx, "cancel_round_expiry", serviceLabel)
		return err
	}

	cancelled := 0
	for _, job := range jobs {
		if _, err := s.client.JobCancel(ctx, job.ID); err != nil {
			s.logger.WarnContext(ctx, "Failed to cancel expiry job",
				slog.Int64("job_id", job.ID),
				slog.Any("error", err),
			)
			continue
		}
		cancelled++
	}

	if cancelled == len(jobs) {
		s.metrics.RecordOperationSuccess(ctx, "cancel_round_expiry", serviceLabel)
	} else {
		s.metrics.RecordOperationFailure(ctx, "cancel_round_expiry", serviceLabel)
	}
	s.metrics.RecordOperationDuration(ctx, "cancel_round_expiry", serviceLabel, time.Since(start))

	if len(jobs) > 0 {
		s.logger.InfoContext(ctx, "Round expiry jobs cancelled",
			slog.Int("total_found", len(jobs)),
			slog.Int("cancelled_count", cancelled),
		)
	}
	if cancelled != len(jobs) {
		return fmt.Errorf("cancelled %d of %d expiry jobs", cancelled, len(jobs))
	}
	return nil
}

// PendingExpiries lists expiry jobs that have not run yet, soonest first.
func (s *Service) PendingExpiries(ctx context.Context) ([]JobInfo, error) {
	jobs, err := s.pending(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]JobInfo, 0, len(jobs))
	for _, j := range jobs {
		info, err := toJobInfo(j)
		if err != nil {
			return nil, err
		}
		out = append(out, info)
	}
	return out, nil
}

func (s *Service) pending(ctx context.Context) ([]*rivertype.JobRow, error) {
	params := river.NewJobListParams().
		Kinds(RoundExpireJobKind).
		States(rivertype.JobStateAvailable, rivertype.JobStateScheduled, rivertype.JobStateRetryable).
		OrderBy(river.JobListOrderByScheduledAt, river.SortOrderAsc).
		First(100)

	res, err := s.client.JobList(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("failed to list expiry jobs: %w", err)
	}
	return res.Jobs, nil
}

// HealthCheck verifies the queue's database is reachable.
func (s *Service) HealthCheck(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("queue service health check failed: %w", err)
	}
	return nil
}
