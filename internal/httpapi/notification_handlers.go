package httpapi

import (
	"context"

	"github.com/labstack/echo/v4"

	"horse.fit/webnovels/internal/db"
)

type achievementService interface {
	List(ctx context.Context) ([]db.AchievementRecord, error)
	Mine(ctx context.Context, userID string) ([]db.UserAchievementRecord, error)
}

type notificationService interface {
	List(ctx context.Context, userID string, unreadOnly bool) ([]db.NotificationRecord, error)
	MarkRead(ctx context.Context, userID, notificationID string) (*db.NotificationRecord, error)
	MarkAllRead(ctx context.Context, userID string) (int64, error)
}

func (s *Server) handleListAchievements(c echo.Context) error {
	items, err := s.svc.Achievements.List(requestContext(c))
	if err != nil {
		return s.serviceError(c, err, "Failed to load achievements")
	}
	return success(c, map[string]any{"items": items})
}

func (s *Server) handleMyAchievements(c echo.Context) error {
	principal, ok := principalFromContext(c)
	if !ok {
		return unauthorizedResponse(c)
	}

	items, err := s.svc.Achievements.Mine(requestContext(c), principal.UserID)
	if err != nil {
		return s.serviceError(c, err, "Failed to load achievements")
	}
	return success(c, map[string]any{"items": items})
}

func (s *Server) handleListNotifications(c echo.Context) error {
	principal, ok := principalFromContext(c)
	if !ok {
		return unauthorizedResponse(c)
	}

	items, err := s.svc.Notifications.List(requestContext(c), principal.UserID, parseBoolQuery(c.QueryParam("unread")))
	if err != nil {
		return s.serviceError(c, err, "Failed to load notifications")
	}
	return success(c, map[string]any{"items": items})
}

func (s *Server) handleMarkNotificationRead(c echo.Context) error {
	principal, ok := principalFromContext(c)
	if !ok {
		return unauthorizedResponse(c)
	}

	notification, err := s.svc.Notifications.MarkRead(requestContext(c), principal.UserID, c.Param("id"))
	if err != nil {
		return s.serviceError(c, err, "Failed to update notification")
	}
	return success(c, notification)
}

func (s *Server) handleMarkAllNotificationsRead(c echo.Context) error {
	principal, ok := principalFromContext(c)
	if !ok {
		return unauthorizedResponse(c)
	}

	updated, err := s.svc.Notifications.MarkAllRead(requestContext(c), principal.UserID)
	if err != nil {
		return s.serviceError(c, err, "Failed to update notifications")
	}
	return success(c, map[string]any{"updated": updated})
}
