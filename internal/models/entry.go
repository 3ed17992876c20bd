package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// MaxDescriptionLen caps free-form descriptions on entries and rules.
const MaxDescriptionLen = 200

// Entry is a single ledger record owned by one user. The date is the day
// the transaction is attributed to, independent of when the record was
// created.
type Entry struct {
	ID                 string          `json:"id"`
	UserID             string          `json:"user_id"`
	Kind               Kind            `json:"type"`
	Amount             decimal.Decimal `json:"amount"`
	Category           string          `json:"category"`
	Description        string          `json:"description,omitempty"`
	Date               time.Time       `json:"date"`
	PaymentMethod      string          `json:"payment_method"`
	Location           string          `json:"location,omitempty"`
	Tags               []string        `json:"tags,omitempty"`
	Receipt            string          `json:"receipt,omitempty"`
	IsRecurring        bool            `json:"is_recurring"`
	RecurringFrequency string          `json:"recurring_frequency,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// Validate checks the entry invariants: recognized kind, non-negative
// amount, category from the allow-list.
func (e *Entry) Validate() error {
	if e.UserID == "" {
		return &ValidationError{Field: "user_id", Reason: "is required"}
	}
	if !e.Kind.Valid() {
		return &ValidationError{Field: "type", Reason: "must be expense or income"}
	}
	if e.Amount.IsNegative() {
		return &ValidationError{Field: "amount", Reason: "cannot be negative"}
	}
	if !ValidCategory(e.Category) {
		return &ValidationError{Field: "category", Reason: "is not a recognized category"}
	}
	if len(e.Description) > MaxDescriptionLen {
		return &ValidationError{Field: "description", Reason: "cannot exceed 200 characters"}
	}
	if e.PaymentMethod != "" && !ValidPaymentMethod(e.PaymentMethod) {
		return &ValidationError{Field: "payment_method", Reason: "is not a recognized payment method"}
	}
	if e.Date.IsZero() {
		return &ValidationError{Field: "date", Reason: "is required"}
	}
	return nil
}
