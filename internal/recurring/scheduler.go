package recurring

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// tickTimeout bounds one materialization run so a hung store call cannot
// block the scheduler across its next natural ticks.
const tickTimeout = 10 * time.Minute

// Runner is the work a scheduler tick performs.
type Runner interface {
	Run(ctx context.Context, now time.Time) (int, error)
}

// Scheduler fires a Runner once per hour, aligned to the top of the hour.
// It is constructed explicitly and owned by the process entry point; tests
// drive ticks directly instead of waiting for the timer.
type Scheduler struct {
	runner  Runner
	now     func() time.Time
	log     zerolog.Logger
	running atomic.Bool
	stop    chan struct{}
	done    chan struct{}
	wg      sync.WaitGroup
}

// NewScheduler returns a stopped Scheduler. now supplies wall-clock time
// for tick alignment and due comparisons.
func NewScheduler(runner Runner, now func() time.Time, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		runner: runner,
		now:    now,
		log:    log.With().Str("component", "scheduler").Logger(),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Start launches the timer loop. The first tick fires at the next top of
// the hour, then hourly.
func (s *Scheduler) Start() {
	go s.loop()
}

// Stop halts the timer loop and waits for an in-flight run to finish.
func (s *Scheduler) Stop() {
	close(s.stop)
	<-s.done
	s.wg.Wait()
}

func (s *Scheduler) loop() {
	defer close(s.done)

	// Align to the top of the hour.
	first := s.now().Truncate(time.Hour).Add(time.Hour)
	timer := time.NewTimer(first.Sub(s.now()))
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-s.stop:
		return
	}
	s.fire()

	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.fire()
		case <-s.stop:
			return
		}
	}
}

// fire starts a run unless the previous one is still going, in which case
// the tick is skipped: two concurrent runs could both observe the same due
// rule and generate it twice before either advances it.
func (s *Scheduler) fire() {
	if !s.running.CompareAndSwap(false, true) {
		s.log.Warn().Msg("previous run still in progress, skipping tick")
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.running.Store(false)
		s.runOnce()
	}()
}

// runOnce executes a single materialization run. Errors are logged, never
// fatal; the scheduler survives failed runs.
func (s *Scheduler) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), tickTimeout)
	defer cancel()

	start := s.now()
	count, err := s.runner.Run(ctx, start)
	if err != nil {
		s.log.Error().Err(err).Int("created", count).Msg("recurring run failed")
		return
	}
	s.log.Info().
		Int("created", count).
		Dur("elapsed", s.now().Sub(start)).
		Msg("recurring run complete")
}
