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

const userColumns = `id, name, email, password_hash, monthly_budget,
	category_budgets, reset_token, reset_expires, last_login, created_at`

// CreateUser inserts a new user. The caller is responsible for hashing the
// password and lowercasing the email.
func (db *DB) CreateUser(u *models.User) error {
	budgets, err := json.Marshal(u.CategoryBudgets)
	if err != nil {
		return err
	}
	u.CreatedAt = time.Now().UTC()
	_, err = db.conn.Exec(
		`INSERT INTO users (id, name, email, password_hash, monthly_budget,
			category_budgets, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Name, u.Email, u.PasswordHash, u.MonthlyBudget.String(),
		string(budgets), u.CreatedAt,
	)
	return err
}

// GetUserByID retrieves a user by ID.
func (db *DB) GetUserByID(id string) (*models.User, error) {
	row := db.conn.QueryRow(`SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return scanUser(row)
}

// GetUserByEmail retrieves a user by email (exact match on the stored
// lowercase form).
func (db *DB) GetUserByEmail(email string) (*models.User, error) {
	row := db.conn.QueryRow(`SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	return scanUser(row)
}

// GetUserByResetToken retrieves the user holding an unexpired reset token.
func (db *DB) GetUserByResetToken(token string, now time.Time) (*models.User, error) {
	row := db.conn.QueryRow(
		`SELECT `+userColumns+` FROM users WHERE reset_token = ? AND reset_expires > ?`,
		token, now,
	)
	return scanUser(row)
}

// UpdateProfile updates the mutable profile fields: name, monthly budget and
// per-category budgets.
func (db *DB) UpdateProfile(u *models.User) error {
	budgets, err := json.Marshal(u.CategoryBudgets)
	if err != nil {
		return err
	}
	res, err := db.conn.Exec(
		`UPDATE users SET name = ?, monthly_budget = ?, category_budgets = ? WHERE id = ?`,
		u.Name, u.MonthlyBudget.String(), string(budgets), u.ID,
	)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// UpdatePassword stores a new password hash and clears any pending reset
// token.
func (db *DB) UpdatePassword(id, passwordHash string) error {
	res, err := db.conn.Exec(
		`UPDATE users SET password_hash = ?, reset_token = NULL, reset_expires = NULL
		WHERE id = ?`,
		passwordHash, id,
	)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// SetResetToken attaches a password reset token with its expiry to a user.
func (db *DB) SetResetToken(id, token string, expires time.Time) error {
	res, err := db.conn.Exec(
		`UPDATE users SET reset_token = ?, reset_expires = ? WHERE id = ?`,
		token, expires, id,
	)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// UpdateLastLogin records a successful login.
func (db *DB) UpdateLastLogin(id string, t time.Time) error {
	_, err := db.conn.Exec(`UPDATE users SET last_login = ? WHERE id = ?`, t, id)
	return err
}

func scanUser(row rowScanner) (*models.User, error) {
	var (
		u             models.User
		monthlyBudget string
		budgets       string
		resetToken    sql.NullString
		resetExpires  sql.NullTime
		lastLogin     sql.NullTime
	)
	err := row.Scan(
		&u.ID, &u.Name, &u.Email, &u.PasswordHash, &monthlyBudget,
		&budgets, &resetToken, &resetExpires, &lastLogin, &u.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if u.MonthlyBudget, err = decimal.NewFromString(monthlyBudget); err != nil {
		return nil, fmt.Errorf("user %s: bad monthly budget %q: %w", u.ID, monthlyBudget, err)
	}
	if err := json.Unmarshal([]byte(budgets), &u.CategoryBudgets); err != nil {
		return nil, fmt.Errorf("user %s: bad category budgets: %w", u.ID, err)
	}
	u.ResetToken = resetToken.String
	if resetExpires.Valid {
		t := resetExpires.Time
		u.ResetExpires = &t
	}
	if lastLogin.Valid {
		t := lastLogin.Time
		u.LastLogin = &t
	}
	return &u, nil
}
