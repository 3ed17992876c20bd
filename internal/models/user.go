package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CategoryBudget is a per-category spending limit on a user profile.
type CategoryBudget struct {
	Category string          `json:"category"`
	Limit    decimal.Decimal `json:"limit"`
}

// User is an account holder. Emails are stored lowercase and are unique.
// Sensitive fields never appear in JSON responses.
type User struct {
	ID              string           `json:"id"`
	Name            string           `json:"name"`
	Email           string           `json:"email"`
	PasswordHash    string           `json:"-"`
	MonthlyBudget   decimal.Decimal  `json:"monthly_budget"`
	CategoryBudgets []CategoryBudget `json:"category_budgets"`
	ResetToken      string           `json:"-"`
	ResetExpires    *time.Time       `json:"-"`
	LastLogin       *time.Time       `json:"last_login,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
}

// Notification is an item in a user's notification feed. Only listing and
// read-marking are exposed over the API; creation happens out of band.
type Notification struct {
	ID      string    `json:"id"`
	UserID  string    `json:"user_id"`
	Title   string    `json:"title"`
	Message string    `json:"message"`
	Date    time.Time `json:"date"`
	Read    bool      `json:"read"`
}
