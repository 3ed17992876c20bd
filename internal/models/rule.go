package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// RecurringRule describes a transaction that the recurring job materializes
// into ledger entries on a cadence. NextOccurrence is always the date the
// next entry should be generated for; the job alone advances it, and only
// forward.
type RecurringRule struct {
	ID             string          `json:"id"`
	UserID         string          `json:"user_id"`
	Kind           Kind            `json:"type"`
	Amount         decimal.Decimal `json:"amount"`
	Category       string          `json:"category"`
	Description    string          `json:"description,omitempty"`
	PaymentMethod  string          `json:"payment_method"`
	StartDate      time.Time       `json:"start_date"`
	EndDate        *time.Time      `json:"end_date,omitempty"`
	Frequency      Frequency       `json:"frequency"`
	Interval       int             `json:"interval"`
	NextOccurrence time.Time       `json:"next_occurrence"`
	LastGenerated  *time.Time      `json:"last_generated,omitempty"`
	Active         bool            `json:"active"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// Validate checks the rule invariants before it is persisted.
func (r *RecurringRule) Validate() error {
	if r.UserID == "" {
		return &ValidationError{Field: "user_id", Reason: "is required"}
	}
	if !r.Kind.Valid() {
		return &ValidationError{Field: "type", Reason: "must be expense or income"}
	}
	if r.Amount.IsNegative() {
		return &ValidationError{Field: "amount", Reason: "cannot be negative"}
	}
	if !ValidCategory(r.Category) {
		return &ValidationError{Field: "category", Reason: "is not a recognized category"}
	}
	if len(r.Description) > MaxDescriptionLen {
		return &ValidationError{Field: "description", Reason: "cannot exceed 200 characters"}
	}
	if !r.Frequency.Valid() {
		return &ValidationError{Field: "frequency", Reason: "must be daily, weekly, monthly or yearly"}
	}
	if r.Interval < 1 {
		return &ValidationError{Field: "interval", Reason: "must be a positive integer"}
	}
	if r.StartDate.IsZero() {
		return &ValidationError{Field: "start_date", Reason: "is required"}
	}
	if r.NextOccurrence.IsZero() {
		return &ValidationError{Field: "next_occurrence", Reason: "is required"}
	}
	return nil
}
