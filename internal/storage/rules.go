package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"smart-expense-tracker/internal/models"

	"github.com/shopspring/decimal"
)

const ruleColumns = `id, user_id, type, amount, category, description,
	payment_method, start_date, end_date, frequency, interval, next_occurrence,
	last_generated, active, created_at, updated_at`

// CreateRule inserts a new recurring rule.
func (db *DB) CreateRule(r *models.RecurringRule) error {
	now := time.Now().UTC()
	r.CreatedAt = now
	r.UpdatedAt = now
	_, err := db.conn.Exec(
		`INSERT INTO recurring_rules (id, user_id, type, amount, category, description,
			payment_method, start_date, end_date, frequency, interval, next_occurrence,
			last_generated, active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.UserID, string(r.Kind), r.Amount.String(), r.Category, r.Description,
		r.PaymentMethod, r.StartDate, nullTime(r.EndDate), string(r.Frequency),
		r.Interval, r.NextOccurrence, nullTime(r.LastGenerated), r.Active,
		r.CreatedAt, r.UpdatedAt,
	)
	return err
}

// GetRule retrieves a single rule owned by the given user.
func (db *DB) GetRule(id, userID string) (*models.RecurringRule, error) {
	row := db.conn.QueryRow(
		`SELECT `+ruleColumns+` FROM recurring_rules WHERE id = ? AND user_id = ?`,
		id, userID,
	)
	return scanRule(row)
}

// ListRules retrieves all recurring rules for a user.
func (db *DB) ListRules(userID string) ([]models.RecurringRule, error) {
	rows, err := db.conn.Query(
		`SELECT `+ruleColumns+` FROM recurring_rules WHERE user_id = ? ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRules(rows)
}

// UpdateRule replaces the mutable fields of a rule, scoped to its owner.
func (db *DB) UpdateRule(r *models.RecurringRule) error {
	r.UpdatedAt = time.Now().UTC()
	res, err := db.conn.Exec(
		`UPDATE recurring_rules SET type = ?, amount = ?, category = ?, description = ?,
			payment_method = ?, start_date = ?, end_date = ?, frequency = ?, interval = ?,
			next_occurrence = ?, active = ?, updated_at = ?
		WHERE id = ? AND user_id = ?`,
		string(r.Kind), r.Amount.String(), r.Category, r.Description,
		r.PaymentMethod, r.StartDate, nullTime(r.EndDate), string(r.Frequency),
		r.Interval, r.NextOccurrence, r.Active, r.UpdatedAt,
		r.ID, r.UserID,
	)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// DeleteRule removes a rule owned by the given user.
func (db *DB) DeleteRule(id, userID string) error {
	res, err := db.conn.Exec("DELETE FROM recurring_rules WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// DueRules returns every rule, across all users, that is due for
// materialization at now: active, next occurrence not in the future, and
// either open-ended or not yet past its end date.
func (db *DB) DueRules(now time.Time) ([]models.RecurringRule, error) {
	rows, err := db.conn.Query(
		`SELECT `+ruleColumns+` FROM recurring_rules
		WHERE active = 1 AND next_occurrence <= ?
			AND (end_date IS NULL OR end_date >= ?)`,
		now, now,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRules(rows)
}

// MaterializeRule writes the generated ledger entry and advances the rule's
// schedule in a single transaction, so a generated entry and its rule
// advance can never be observed apart.
func (db *DB) MaterializeRule(e *models.Entry, ruleID string, lastGenerated, next time.Time) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	tags, err := json.Marshal(e.Tags)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	e.CreatedAt = now
	e.UpdatedAt = now
	if _, err := tx.Exec(
		`INSERT INTO entries (id, user_id, type, amount, category, description, date,
			payment_method, location, tags, receipt, is_recurring, recurring_frequency,
			created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.UserID, string(e.Kind), e.Amount.String(), e.Category, e.Description,
		e.Date, e.PaymentMethod, e.Location, string(tags), e.Receipt,
		e.IsRecurring, e.RecurringFrequency, e.CreatedAt, e.UpdatedAt,
	); err != nil {
		return err
	}

	res, err := tx.Exec(
		`UPDATE recurring_rules SET last_generated = ?, next_occurrence = ?, updated_at = ?
		WHERE id = ?`,
		lastGenerated, next, now, ruleID,
	)
	if err != nil {
		return err
	}
	if err := requireAffected(res); err != nil {
		return err
	}

	return tx.Commit()
}

func scanRule(row rowScanner) (*models.RecurringRule, error) {
	var (
		r             models.RecurringRule
		kind          string
		amount        string
		endDate       sql.NullTime
		lastGenerated sql.NullTime
	)
	err := row.Scan(
		&r.ID, &r.UserID, &kind, &amount, &r.Category, &r.Description,
		&r.PaymentMethod, &r.StartDate, &endDate, (*string)(&r.Frequency),
		&r.Interval, &r.NextOccurrence, &lastGenerated, &r.Active,
		&r.CreatedAt, &r.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	r.Kind = models.Kind(kind)
	if r.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("rule %s: bad amount %q: %w", r.ID, amount, err)
	}
	if endDate.Valid {
		t := endDate.Time
		r.EndDate = &t
	}
	if lastGenerated.Valid {
		t := lastGenerated.Time
		r.LastGenerated = &t
	}
	return &r, nil
}

func collectRules(rows *sql.Rows) ([]models.RecurringRule, error) {
	var rules []models.RecurringRule
	for rows.Next() {
		r, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		rules = append(rules, *r)
	}
	return rules, rows.Err()
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}
