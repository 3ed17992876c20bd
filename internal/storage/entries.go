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

const entryColumns = `id, user_id, type, amount, category, description, date,
	payment_method, location, tags, receipt, is_recurring, recurring_frequency,
	created_at, updated_at`

// EntryFilter narrows and pages a ListEntries call. Zero values mean
// "no constraint".
type EntryFilter struct {
	Category  string
	StartDate *time.Time
	EndDate   *time.Time
	SortBy    string // column: date, amount, category (default date)
	SortAsc   bool   // default descending, matching the list endpoint
	Limit     int
	Page      int
}

// CreateEntry inserts a new ledger entry.
func (db *DB) CreateEntry(e *models.Entry) error {
	tags, err := json.Marshal(e.Tags)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	e.CreatedAt = now
	e.UpdatedAt = now
	_, err = db.conn.Exec(
		`INSERT INTO entries (id, user_id, type, amount, category, description, date,
			payment_method, location, tags, receipt, is_recurring, recurring_frequency,
			created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.UserID, string(e.Kind), e.Amount.String(), e.Category, e.Description,
		e.Date, e.PaymentMethod, e.Location, string(tags), e.Receipt,
		e.IsRecurring, e.RecurringFrequency, e.CreatedAt, e.UpdatedAt,
	)
	return err
}

// GetEntry retrieves a single entry owned by the given user.
func (db *DB) GetEntry(id, userID string) (*models.Entry, error) {
	row := db.conn.QueryRow(
		`SELECT `+entryColumns+` FROM entries WHERE id = ? AND user_id = ?`,
		id, userID,
	)
	return scanEntry(row)
}

// ListEntries retrieves a page of entries for a user, newest first unless
// the filter says otherwise. The second return value is the total number of
// matching rows before pagination.
func (db *DB) ListEntries(userID string, f EntryFilter) ([]models.Entry, int, error) {
	where := "WHERE user_id = ?"
	args := []any{userID}
	if f.Category != "" {
		where += " AND category = ?"
		args = append(args, f.Category)
	}
	if f.StartDate != nil && f.EndDate != nil {
		where += " AND date >= ? AND date <= ?"
		args = append(args, *f.StartDate, *f.EndDate)
	}

	var total int
	if err := db.conn.QueryRow("SELECT COUNT(*) FROM entries "+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	sortCol := "date"
	switch f.SortBy {
	case "amount", "category", "date":
		sortCol = f.SortBy
	}
	dir := "DESC"
	if f.SortAsc {
		dir = "ASC"
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 10
	}
	page := f.Page
	if page <= 0 {
		page = 1
	}
	query := fmt.Sprintf("SELECT %s FROM entries %s ORDER BY %s %s LIMIT ? OFFSET ?",
		entryColumns, where, sortCol, dir)
	args = append(args, limit, (page-1)*limit)

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	entries, err := collectEntries(rows)
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

// EntriesInRange returns all entries of one kind for a user whose date
// falls in the inclusive [start, end] window, ordered by date ascending.
// This is the read path the statistics aggregator works from.
func (db *DB) EntriesInRange(userID string, start, end time.Time, kind models.Kind) ([]models.Entry, error) {
	rows, err := db.conn.Query(
		`SELECT `+entryColumns+` FROM entries
		WHERE user_id = ? AND type = ? AND date >= ? AND date <= ?
		ORDER BY date ASC`,
		userID, string(kind), start, end,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectEntries(rows)
}

// UpdateEntry updates an existing entry, scoped to its owner.
func (db *DB) UpdateEntry(e *models.Entry) error {
	tags, err := json.Marshal(e.Tags)
	if err != nil {
		return err
	}
	e.UpdatedAt = time.Now().UTC()
	res, err := db.conn.Exec(
		`UPDATE entries SET amount = ?, category = ?, description = ?, date = ?,
			payment_method = ?, location = ?, tags = ?, updated_at = ?
		WHERE id = ? AND user_id = ?`,
		e.Amount.String(), e.Category, e.Description, e.Date,
		e.PaymentMethod, e.Location, string(tags), e.UpdatedAt,
		e.ID, e.UserID,
	)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// DeleteEntry removes an entry owned by the given user. Hard delete, no
// tombstoning.
func (db *DB) DeleteEntry(id, userID string) error {
	res, err := db.conn.Exec("DELETE FROM entries WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*models.Entry, error) {
	var (
		e      models.Entry
		kind   string
		amount string
		tags   string
	)
	err := row.Scan(
		&e.ID, &e.UserID, &kind, &amount, &e.Category, &e.Description, &e.Date,
		&e.PaymentMethod, &e.Location, &tags, &e.Receipt, &e.IsRecurring,
		&e.RecurringFrequency, &e.CreatedAt, &e.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	e.Kind = models.Kind(kind)
	if e.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("entry %s: bad amount %q: %w", e.ID, amount, err)
	}
	if err := json.Unmarshal([]byte(tags), &e.Tags); err != nil {
		return nil, fmt.Errorf("entry %s: bad tags: %w", e.ID, err)
	}
	return &e, nil
}

func collectEntries(rows *sql.Rows) ([]models.Entry, error) {
	var entries []models.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
