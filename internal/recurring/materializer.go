// Package recurring generates ledger entries from recurring rules: a
// materializer that processes all due rules once, and a scheduler that
// fires it hourly.
package recurring

import (
	"context"
	"errors"
	"time"

	"smart-expense-tracker/internal/models"
	"smart-expense-tracker/internal/recurrence"
	"smart-expense-tracker/internal/storage"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// RuleStore is the persistence the materializer needs: the set of rules due
// at a point in time, and an atomic write that records one generated entry
// together with the rule's advanced schedule.
type RuleStore interface {
	DueRules(now time.Time) ([]models.RecurringRule, error)
	MaterializeRule(e *models.Entry, ruleID string, lastGenerated, next time.Time) error
}

// Materializer turns due recurring rules into ledger entries.
type Materializer struct {
	store RuleStore
	log   zerolog.Logger
}

// NewMaterializer returns a Materializer writing through store.
func NewMaterializer(store RuleStore, log zerolog.Logger) *Materializer {
	return &Materializer{store: store, log: log.With().Str("component", "materializer").Logger()}
}

// Run materializes every rule due at now and returns the number of entries
// created. Each due rule produces exactly one entry per invocation, dated at
// the rule's pre-run next occurrence; a rule several periods behind catches
// up across successive runs rather than within one.
//
// Rules are processed independently: a bad frequency or a failed write on
// one rule is logged and does not stop the others. Context cancellation and
// storage.ErrUnavailable abort the remainder of the run; the next scheduled
// run retries the rules still due.
func (m *Materializer) Run(ctx context.Context, now time.Time) (int, error) {
	due, err := m.store.DueRules(now)
	if err != nil {
		return 0, err
	}

	created := 0
	for _, rule := range due {
		if err := ctx.Err(); err != nil {
			return created, err
		}

		next, err := recurrence.NextOccurrence(rule.NextOccurrence, rule.Frequency, rule.Interval)
		if err != nil {
			// Rule state is untouched; it stays due and is retried
			// (and logged again) on the next run.
			m.log.Error().Err(err).Str("rule_id", rule.ID).Msg("skipping rule")
			continue
		}

		entry := &models.Entry{
			ID:                 uuid.New().String(),
			UserID:             rule.UserID,
			Kind:               rule.Kind,
			Amount:             rule.Amount,
			Category:           rule.Category,
			Description:        rule.Description,
			PaymentMethod:      rule.PaymentMethod,
			Date:               rule.NextOccurrence,
			IsRecurring:        true,
			RecurringFrequency: string(rule.Frequency),
		}

		if err := m.store.MaterializeRule(entry, rule.ID, rule.NextOccurrence, next); err != nil {
			if errors.Is(err, storage.ErrUnavailable) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return created, err
			}
			m.log.Error().Err(err).Str("rule_id", rule.ID).Msg("failed to materialize rule")
			continue
		}

		created++
		m.log.Debug().
			Str("rule_id", rule.ID).
			Str("user_id", rule.UserID).
			Time("occurrence", rule.NextOccurrence).
			Time("next", next).
			Msg("materialized recurring transaction")
	}
	return created, nil
}
