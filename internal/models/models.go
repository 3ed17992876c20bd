package models

import "fmt"

// Kind distinguishes money leaving the account from money entering it.
type Kind string

const (
	KindExpense Kind = "expense"
	KindIncome  Kind = "income"
)

// Valid reports whether k is a recognized transaction kind.
func (k Kind) Valid() bool {
	return k == KindExpense || k == KindIncome
}

// Frequency is the recurrence cadence of a recurring rule.
type Frequency string

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
	FrequencyYearly  Frequency = "yearly"
)

// Valid reports whether f is one of the four recognized frequencies.
func (f Frequency) Valid() bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly, FrequencyYearly:
		return true
	}
	return false
}

// Categories is the combined allow-list for expense and income entries.
// The two halves are not enforced per kind: an income entry may carry an
// expense category and vice versa.
var Categories = []string{
	// Expense categories
	"Food",
	"Transportation",
	"Housing",
	"Utilities",
	"Entertainment",
	"Healthcare",
	"Shopping",
	"Education",
	"Personal Care",
	"Debt Payments",
	"Savings",
	"Other",
	// Income categories
	"Salary",
	"Freelance",
	"Business",
	"Investment",
	"Rental",
	"Gift",
	"Bonus",
	"Commission",
	"Dividend",
	"Interest",
	"Refund",
}

// PaymentMethods lists the accepted payment method values.
var PaymentMethods = []string{"Cash", "Credit Card", "Debit Card", "Bank Transfer", "Other"}

// DefaultPaymentMethod is used when a request omits the payment method.
const DefaultPaymentMethod = "Other"

// ValidCategory reports whether c is in the category allow-list.
func ValidCategory(c string) bool {
	for _, v := range Categories {
		if v == c {
			return true
		}
	}
	return false
}

// ValidPaymentMethod reports whether m is an accepted payment method.
func ValidPaymentMethod(m string) bool {
	for _, v := range PaymentMethods {
		if v == m {
			return true
		}
	}
	return false
}

// ValidationError describes a field that failed validation. Records that
// fail validation are never persisted.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}
