package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"horse.fit/webnovels/internal/db"
)

var ErrNotificationNotFound = errors.New("notification not found")

type Store interface {
	CreateNotification(ctx context.Context, userID, notificationType string, payload json.RawMessage) (*db.NotificationRecord, error)
	ListNotifications(ctx context.Context, userID string, unreadOnly bool) ([]db.NotificationRecord, error)
	MarkNotificationRead(ctx context.Context, userID, notificationID string) (*db.NotificationRecord, error)
	MarkAllNotificationsRead(ctx context.Context, userID string) (int64, error)
}

type Service struct {
	store Store
	log   zerolog.Logger
}

func NewService(store Store, log zerolog.Logger) *Service {
	return &Service{store: store, log: log.With().Str("component", "notifications").Logger()}
}

// Notify stores a notification whose payload is any JSON-encodable object.
func (s *Service) Notify(ctx context.Context, userID, kind string, payload any) error {
	_, err := s.Create(ctx, userID, kind, payload)
	return err
}

func (s *Service) Create(ctx context.Context, userID, kind string, payload any) (*db.NotificationRecord, error) {
	kind = strings.ToUpper(strings.TrimSpace(kind))
	if kind == "" {
		return nil, fmt.Errorf("notification type is required")
	}

	var raw json.RawMessage
	switch v := payload.(type) {
	case nil:
	case json.RawMessage:
		raw = v
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode notification payload: %w", err)
		}
		raw = encoded
	}

	rec, err := s.store.CreateNotification(ctx, userID, kind, raw)
	if err != nil {
		return nil, fmt.Errorf("create notification: %w", err)
	}
	s.log.Debug().Str("user_id", userID).Str("type", kind).Str("notification_id", rec.ID).Msg("notification created")
	return rec, nil
}

func (s *Service) List(ctx context.Context, userID string, unreadOnly bool) ([]db.NotificationRecord, error) {
	items, err := s.store.ListNotifications(ctx, userID, unreadOnly)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return items, nil
}

// MarkRead flags one notification owned by userID.
func (s *Service) MarkRead(ctx context.Context, userID, notificationID string) (*db.NotificationRecord, error) {
	if _, err := uuid.Parse(notificationID); err != nil {
		return nil, ErrNotificationNotFound
	}
	rec, err := s.store.MarkNotificationRead(ctx, userID, notificationID)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, ErrNotificationNotFound
		}
		return nil, fmt.Errorf("mark notification read: %w", err)
	}
	return rec, nil
}

func (s *Service) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	count, err := s.store.MarkAllNotificationsRead(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("mark all notifications read: %w", err)
	}
	return count, nil
}
