package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"horse.fit/webnovels/internal/db"
)

const (
	ownerID        = "8d9e0f1a-2b3c-4d4e-8f6a-7b8c9d0e1f2a"
	strangerID     = "7c8d9e0f-1a2b-4c3d-9e5f-6a7b8c9d0e1f"
	notificationID = "9e0f1a2b-3c4d-4e5f-9a7b-8c9d0e1f2a3b"
)

type fakeStore struct {
	items []db.NotificationRecord
}

func (s *fakeStore) CreateNotification(_ context.Context, userID, kind string, payload json.RawMessage) (*db.NotificationRecord, error) {
	rec := db.NotificationRecord{ID: notificationID, UserID: userID, Type: kind, Payload: payload}
	s.items = append(s.items, rec)
	return &rec, nil
}

func (s *fakeStore) ListNotifications(_ context.Context, userID string, unreadOnly bool) ([]db.NotificationRecord, error) {
	out := []db.NotificationRecord{}
	for _, item := range s.items {
		if item.UserID != userID || (unreadOnly && item.IsRead) {
			continue
		}
		out = append(out, item)
	}
	return out, nil
}

func (s *fakeStore) MarkNotificationRead(_ context.Context, userID, id string) (*db.NotificationRecord, error) {
	for i := range s.items {
		if s.items[i].ID == id && s.items[i].UserID == userID {
			s.items[i].IsRead = true
			copied := s.items[i]
			return &copied, nil
		}
	}
	return nil, db.ErrNoRows
}

func (s *fakeStore) MarkAllNotificationsRead(_ context.Context, userID string) (int64, error) {
	var n int64
	for i := range s.items {
		if s.items[i].UserID == userID && !s.items[i].IsRead {
			s.items[i].IsRead = true
			n++
		}
	}
	return n, nil
}

func TestNotifyEncodesPayload(t *testing.T) {
	t.Parallel()

	store := &fakeStore{}
	svc := NewService(store, zerolog.Nop())

	err := svc.Notify(context.Background(), ownerID, " report_resolved ", map[string]string{"reportId": "r1"})
	if err != nil {
		t.Fatalf("Notify() error = %v", err)
	}
	if len(store.items) != 1 {
		t.Fatalf("stored = %d", len(store.items))
	}
	got := store.items[0]
	if got.Type != "REPORT_RESOLVED" {
		t.Fatalf("type = %q", got.Type)
	}
	if string(got.Payload) != `{"reportId":"r1"}` {
		t.Fatalf("payload = %s", got.Payload)
	}

	if err := svc.Notify(context.Background(), ownerID, "  ", nil); err == nil {
		t.Fatalf("expected error for blank type")
	}
}

func TestMarkReadIsScopedToOwner(t *testing.T) {
	t.Parallel()

	store := &fakeStore{}
	svc := NewService(store, zerolog.Nop())
	if err := svc.Notify(context.Background(), ownerID, "NEW_CHAPTER", nil); err != nil {
		t.Fatalf("Notify() error = %v", err)
	}

	if _, err := svc.MarkRead(context.Background(), strangerID, notificationID); !errors.Is(err, ErrNotificationNotFound) {
		t.Fatalf("expected ErrNotificationNotFound for stranger, got %v", err)
	}
	if _, err := svc.MarkRead(context.Background(), ownerID, "nope"); !errors.Is(err, ErrNotificationNotFound) {
		t.Fatalf("expected ErrNotificationNotFound for malformed id, got %v", err)
	}

	unread, err := svc.List(context.Background(), ownerID, true)
	if err != nil || len(unread) != 1 {
		t.Fatalf("unread = %d, err = %v", len(unread), err)
	}

	rec, err := svc.MarkRead(context.Background(), ownerID, notificationID)
	if err != nil {
		t.Fatalf("MarkRead() error = %v", err)
	}
	if !rec.IsRead {
		t.Fatalf("notification should be read")
	}

	unread, _ = svc.List(context.Background(), ownerID, true)
	if len(unread) != 0 {
		t.Fatalf("unread after mark = %d", len(unread))
	}
	count, err := svc.MarkAllRead(context.Background(), ownerID)
	if err != nil || count != 0 {
		t.Fatalf("MarkAllRead() = %d, %v", count, err)
	}
}
