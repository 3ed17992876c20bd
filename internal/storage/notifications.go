package storage

import (
	"time"

	"smart-expense-tracker/internal/models"
)

// CreateNotification inserts a notification into a user's feed.
func (db *DB) CreateNotification(n *models.Notification) error {
	if n.Date.IsZero() {
		n.Date = time.Now().UTC()
	}
	_, err := db.conn.Exec(
		`INSERT INTO notifications (id, user_id, title, message, date, read)
		VALUES (?, ?, ?, ?, ?, ?)`,
		n.ID, n.UserID, n.Title, n.Message, n.Date, n.Read,
	)
	return err
}

// ListNotifications returns a user's notifications, newest first.
func (db *DB) ListNotifications(userID string) ([]models.Notification, error) {
	rows, err := db.conn.Query(
		`SELECT id, user_id, title, message, date, read FROM notifications
		WHERE user_id = ? ORDER BY date DESC`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notifications []models.Notification
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Title, &n.Message, &n.Date, &n.Read); err != nil {
			return nil, err
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

// MarkNotificationRead flags a notification as read, scoped to its owner.
func (db *DB) MarkNotificationRead(id, userID string) error {
	res, err := db.conn.Exec(
		`UPDATE notifications SET read = 1 WHERE id = ? AND user_id = ?`,
		id, userID,
	)
	if err != nil {
		return err
	}
	return requireAffected(res)
}
