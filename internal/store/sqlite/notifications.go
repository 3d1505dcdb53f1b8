package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/chatwire/chat-backend/internal/model"
	"github.com/chatwire/chat-backend/internal/store"
)

// CreateNotification persists a durable notification record.
func (s *Store) CreateNotification(ctx context.Context, n *model.Notification) error {
	data, err := encodeJSON(n.Data)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO notifications (id, user_id, kind, title, body, data, read, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		n.ID, n.UserID, string(n.Kind), n.Title, n.Body, data, n.Read, toMillis(n.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

// ListNotifications returns a user's notifications, newest first.
func (s *Store) ListNotifications(ctx context.Context, userID string, unreadOnly bool, limit int) ([]model.Notification, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `SELECT id, user_id, kind, title, body, data, read, created_at
	          FROM notifications WHERE user_id = ?`
	if unreadOnly {
		query += ` AND read = 0`
	}
	query += ` ORDER BY created_at DESC LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query notifications: %w", err)
	}
	defer rows.Close()

	var out []model.Notification
	for rows.Next() {
		var n model.Notification
		var kind, data string
		var createdAt int64
		if err := rows.Scan(&n.ID, &n.UserID, &kind, &n.Title, &n.Body, &data, &n.Read, &createdAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		n.Kind = model.NotificationKind(kind)
		n.CreatedAt = fromMillis(createdAt)
		if n.Data, err = decodeJSON(data); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// UnreadCount returns the number of unread notifications for a user.
func (s *Store) UnreadCount(ctx context.Context, userID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM notifications WHERE user_id = ? AND read = 0`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count unread: %w", err)
	}
	return count, nil
}

// MarkNotificationRead flags one notification read. Only the owner may
// mark it.
func (s *Store) MarkNotificationRead(ctx context.Context, userID, notificationID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE notifications SET read = 1 WHERE id = ? AND user_id = ?`,
		notificationID, userID)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// MarkAllNotificationsRead flags every unread notification read.
func (s *Store) MarkAllNotificationsRead(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE notifications SET read = 1 WHERE user_id = ? AND read = 0`, userID)
	if err != nil {
		return fmt.Errorf("mark all notifications read: %w", err)
	}
	return nil
}

// PushSubscription returns the user's registered push token, if any.
func (s *Store) PushSubscription(ctx context.Context, userID string) (*model.PushSubscription, error) {
	var sub model.PushSubscription
	var createdAt int64
	err := s.db.QueryRowContext(ctx,
		`SELECT user_id, token, created_at FROM push_subscriptions WHERE user_id = ?`, userID).
		Scan(&sub.UserID, &sub.Token, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan push subscription: %w", err)
	}
	sub.CreatedAt = fromMillis(createdAt)
	return &sub, nil
}

// SavePushSubscription upserts the user's push token.
func (s *Store) SavePushSubscription(ctx context.Context, sub *model.PushSubscription) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO push_subscriptions (user_id, token, created_at) VALUES (?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET token = excluded.token, created_at = excluded.created_at`,
		sub.UserID, sub.Token, toMillis(sub.CreatedAt))
	if err != nil {
		return fmt.Errorf("save push subscription: %w", err)
	}
	return nil
}
