package recurring

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"smart-expense-tracker/internal/models"
	"smart-expense-tracker/internal/storage"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubRunner counts invocations and can block until released.
type stubRunner struct {
	calls   atomic.Int32
	lastNow atomic.Value
	block   chan struct{}
	err     error
}

func (s *stubRunner) Run(ctx context.Context, now time.Time) (int, error) {
	s.calls.Add(1)
	s.lastNow.Store(now)
	if s.block != nil {
		<-s.block
	}
	return 0, s.err
}

func TestSchedulerTickInvokesRunnerWithClock(t *testing.T) {
	runner := &stubRunner{}
	now := time.Date(2024, time.March, 4, 15, 0, 0, 0, time.UTC)
	s := NewScheduler(runner, func() time.Time { return now }, zerolog.Nop())

	s.fire()
	s.wg.Wait()

	assert.Equal(t, int32(1), runner.calls.Load())
	got, ok := runner.lastNow.Load().(time.Time)
	require.True(t, ok)
	assert.True(t, got.Equal(now))
}

func TestSchedulerSkipsOverlappingTick(t *testing.T) {
	runner := &stubRunner{block: make(chan struct{})}
	s := NewScheduler(runner, time.Now, zerolog.Nop())

	s.fire()
	// Wait until the first run is actually in flight.
	require.Eventually(t, func() bool { return runner.calls.Load() == 1 },
		time.Second, time.Millisecond)

	// These ticks must be dropped, not queued behind the running one.
	s.fire()
	s.fire()
	assert.Equal(t, int32(1), runner.calls.Load())

	close(runner.block)
	s.wg.Wait()

	// With the previous run finished the next tick runs again.
	runner.block = nil
	s.fire()
	s.wg.Wait()
	assert.Equal(t, int32(2), runner.calls.Load())
}

func TestSchedulerSurvivesFailedRuns(t *testing.T) {
	runner := &stubRunner{err: errors.New("tick failed")}
	s := NewScheduler(runner, time.Now, zerolog.Nop())

	s.fire()
	s.wg.Wait()
	s.fire()
	s.wg.Wait()

	assert.Equal(t, int32(2), runner.calls.Load(), "errors must not stop subsequent ticks")
}

func TestSchedulerStartStop(t *testing.T) {
	runner := &stubRunner{}
	s := NewScheduler(runner, time.Now, zerolog.Nop())
	s.Start()
	s.Stop()
	// No tick should have fired: the first one is aligned to the next top
	// of the hour.
	assert.Zero(t, runner.calls.Load())
}

// unavailableStore fails the first materialization write with
// ErrUnavailable.
type unavailableStore struct {
	db    *storage.DB
	fails int
}

func (u *unavailableStore) DueRules(now time.Time) ([]models.RecurringRule, error) {
	return u.db.DueRules(now)
}

func (u *unavailableStore) MaterializeRule(e *models.Entry, ruleID string, lastGenerated, next time.Time) error {
	if u.fails > 0 {
		u.fails--
		return storage.ErrUnavailable
	}
	return u.db.MaterializeRule(e, ruleID, lastGenerated, next)
}

// A transient store failure aborts the remainder of the run; the next run
// retries the still-due rules wholesale.
func TestRunAbortsOnStoreUnavailable(t *testing.T) {
	db, err := storage.NewDB(":memory:")
	require.NoError(t, err)
	defer db.Close()

	user := &models.User{ID: "u1", Name: "U", Email: "u@example.com", PasswordHash: "x"}
	require.NoError(t, db.CreateUser(user))

	store := &unavailableStore{db: db, fails: 1}
	mat := NewMaterializer(store, zerolog.Nop())

	for i, id := range []string{"r1", "r2"} {
		rule := &models.RecurringRule{
			ID:             id,
			UserID:         user.ID,
			Kind:           models.KindExpense,
			Amount:         decimal.NewFromInt(int64(10 * (i + 1))),
			Category:       "Other",
			PaymentMethod:  models.DefaultPaymentMethod,
			StartDate:      time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC),
			Frequency:      models.FrequencyDaily,
			Interval:       1,
			NextOccurrence: time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC),
			Active:         true,
		}
		require.NoError(t, db.CreateRule(rule))
	}

	now := time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)
	count, err := mat.Run(context.Background(), now)
	assert.ErrorIs(t, err, storage.ErrUnavailable)
	assert.Zero(t, count, "run aborts before processing the second rule")

	// Retry succeeds for both rules.
	count, err = mat.Run(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}
