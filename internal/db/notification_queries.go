package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

type NotificationRecord struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	IsRead    bool            `json:"is_read"`
	CreatedAt time.Time       `json:"created_at"`
}

const notificationColumns = `
	id::text,
	user_id::text,
	type,
	payload,
	is_read,
	created_at
`

func scanNotification(row interface{ Scan(dest ...any) error }) (*NotificationRecord, error) {
	var (
		rec     NotificationRecord
		payload []byte
	)
	if err := row.Scan(&rec.ID, &rec.UserID, &rec.Type, &payload, &rec.IsRead, &rec.CreatedAt); err != nil {
		return nil, err
	}
	rec.Payload = normalizeJSONObject(payload)
	return &rec, nil
}

func (p *Pool) CreateNotification(ctx context.Context, userID, notificationType string, payload json.RawMessage) (*NotificationRecord, error) {
	q := `
INSERT INTO webnovels.notifications (user_id, type, payload, is_read, created_at)
VALUES ($1::uuid, $2, $3::jsonb, false, now())
RETURNING` + notificationColumns

	rec, err := scanNotification(p.QueryRow(ctx, q, userID, notificationType, string(normalizeJSONObject(payload))))
	if err != nil {
		return nil, fmt.Errorf("insert notification: %w", err)
	}
	return rec, nil
}

func (p *Pool) ListNotifications(ctx context.Context, userID string, unreadOnly bool) ([]NotificationRecord, error) {
	q := `SELECT` + notificationColumns + `
FROM webnovels.notifications
WHERE user_id = $1::uuid
	AND (NOT $2 OR is_read = false)
ORDER BY created_at DESC, id
`

	rows, err := p.Query(ctx, q, userID, unreadOnly)
	if err != nil {
		return nil, fmt.Errorf("query notifications: %w", err)
	}
	defer rows.Close()

	out := make([]NotificationRecord, 0, 16)
	for rows.Next() {
		rec, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("scan notification row: %w", err)
		}
		out = append(out, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notification rows: %w", err)
	}
	return out, nil
}

// MarkNotificationRead flags one of the user's notifications; ErrNoRows when it is not theirs.
func (p *Pool) MarkNotificationRead(ctx context.Context, userID, notificationID string) (*NotificationRecord, error) {
	q := `
UPDATE webnovels.notifications
SET is_read = true
WHERE id = $1::uuid
	AND user_id = $2::uuid
RETURNING` + notificationColumns

	rec, err := scanNotification(p.QueryRow(ctx, q, notificationID, userID))
	if err != nil {
		if IsNoRows(err) {
			return nil, ErrNoRows
		}
		return nil, fmt.Errorf("mark notification read: %w", err)
	}
	return rec, nil
}

func (p *Pool) MarkAllNotificationsRead(ctx context.Context, userID string) (int64, error) {
	const q = `
UPDATE webnovels.notifications
SET is_read = true
WHERE user_id = $1::uuid
	AND is_read = false
`

	tag, err := p.Exec(ctx, q, userID)
	if err != nil {
		return 0, fmt.Errorf("mark all notifications read: %w", err)
	}
	return tag.RowsAffected(), nil
}
