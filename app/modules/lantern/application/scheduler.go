package lanternservice

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrRoundEnded is returned by a tick function to stop the scheduler from inside its own loop.
var ErrRoundEnded = errors.New("round ended")

// TickFunc is the work performed on every scheduler tick.
type TickFunc func(ctx context.Context) error

// Scheduler owns the recurring round reset timer. At most one timer runs per Scheduler.
type Scheduler struct {
	clock    Clock
	interval time.Duration
	tick     TickFunc
	logger   *slog.Logger
	onEnded  func()

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewScheduler builds a stopped scheduler.
func NewScheduler(clock Clock, interval time.Duration, tick TickFunc, logger *slog.Logger) *Scheduler {
	if clock == nil {
		clock = RealClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		clock:    clock,
		interval: interval,
		tick:     tick,
		logger:   logger,
	}
}

// OnEnded registers fn to run after the loop exits on ErrRoundEnded. fn runs on the loop
// goroutine once the loop is fully released, so it may call Start or Stop.
func (s *Scheduler) OnEnded(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onEnded = fn
}

// Start launches the timer. It returns false when the timer was already running.
func (s *Scheduler) Start() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		return false
	}

	ctx, cancel := context.WithCancel(context.Background())
	ticker := s.clock.NewTicker(s.interval)
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done

	go s.loop(ctx, ticker, done)

	s.logger.Info("Round scheduler started", slog.Duration("interval", s.interval))
	return true
}

// Stop cancels the timer and waits for an in-flight tick to finish. No tick fires after Stop
// returns. It must not be called from inside the tick function.
func (s *Scheduler) Stop() bool {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return false
	}
	cancel()
	<-done

	s.logger.Info("Round scheduler stopped")
	return true
}

// Running reports whether the timer is live.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel != nil
}

// Tick runs the tick function once on the caller's goroutine.
func (s *Scheduler) Tick(ctx context.Context) error {
	return s.tick(ctx)
}

func (s *Scheduler) loop(ctx context.Context, ticker Ticker, done chan struct{}) {
	ended := false
	defer func() {
		ticker.Stop()
		close(done)
		if !ended {
			return
		}
		s.mu.Lock()
		fn := s.onEnded
		s.mu.Unlock()
		if fn != nil {
			fn()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			if ctx.Err() != nil {
				return
			}
			err := s.tick(ctx)
			if errors.Is(err, ErrRoundEnded) {
				ended = s.release(done)
				s.logger.Info("Round scheduler exiting, round ended")
				return
			}
			if err != nil {
				s.logger.Error("Round tick failed", slog.Any("error", err))
			}
		}
	}
}

// release forgets the loop identified by done if it is still the current one.
func (s *Scheduler) release(done chan struct{}) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done != done {
		return false
	}
	s.cancel()
	s.cancel, s.done = nil, nil
	return true
}
