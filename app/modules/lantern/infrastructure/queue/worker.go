package lanternqueue

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/riverqueue/river"
)

// ErrNoExpirer is returned by the worker until Bind has been called.
var ErrNoExpirer = errors.New("round expirer not bound")

// RoundExpirer closes the round once its end time has passed. Calls before the end time are no-ops.
type RoundExpirer interface {
	ExpireRound(ctx context.Context) error
}

// RoundExpireWorker runs RoundExpireJob. The expirer is bound after construction because the
// lantern service itself schedules expiry jobs through this package.
type RoundExpireWorker struct {
	river.WorkerDefaults[RoundExpireJob]

	mu      sync.RWMutex
	expirer RoundExpirer
	logger  *slog.Logger
}

func NewRoundExpireWorker(logger *slog.Logger) *RoundExpireWorker {
	return &RoundExpireWorker{logger: logger}
}

// Bind sets the expirer jobs are handed to.
func (w *RoundExpireWorker) Bind(e RoundExpirer) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.expirer = e
}

func (w *RoundExpireWorker) Work(ctx context.Context, job *river.Job[RoundExpireJob]) error {
	w.mu.RLock()
	e := w.expirer
	w.mu.RUnlock()
	if e == nil {
		return ErrNoExpirer
	}

	w.logger.InfoContext(ctx, "Running round expiry job",
		slog.Int64("job_id", job.ID),
		slog.Time("end_time", job.Args.EndTime),
		slog.Int("attempt", job.Attempt),
	)
	if err := e.ExpireRound(ctx); err != nil {
		w.logger.ErrorContext(ctx, "Round expiry job failed",
			slog.Int64("job_id", job.ID),
			slog.Any("error", err),
		)
		return err
	}
	return nil
}
