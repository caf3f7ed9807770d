package achievements

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"horse.fit/webnovels/internal/db"
)

var ErrAchievementNotFound = errors.New("achievement not found")

const (
	CodeAdd5Novels   = "ADD_5_NOVELS"
	CodeRead10Novels = "READ_10_NOVELS"

	NotificationAchievementUnlocked = "ACHIEVEMENT_UNLOCKED"
)

// rule grants code once the user's library counts reach its threshold.
type rule struct {
	code string
	met  func(db.LibraryCounts) bool
}

var rules = []rule{
	{code: CodeAdd5Novels, met: func(c db.LibraryCounts) bool { return c.Total >= 5 }},
	{code: CodeRead10Novels, met: func(c db.LibraryCounts) bool { return c.Completed >= 10 }},
}

type Store interface {
	ListAchievements(ctx context.Context) ([]db.AchievementRecord, error)
	ListUserAchievements(ctx context.Context, userID string) ([]db.UserAchievementRecord, error)
	GetAchievementByCode(ctx context.Context, code string) (*db.AchievementRecord, error)
	GrantAchievement(ctx context.Context, userID, achievementID string) (bool, error)
	CountLibraryEntries(ctx context.Context, userID string) (db.LibraryCounts, error)
}

type Notifier interface {
	Notify(ctx context.Context, userID, kind string, payload any) error
}

type Service struct {
	store    Store
	notifier Notifier
	log      zerolog.Logger
}

func NewService(store Store, notifier Notifier, log zerolog.Logger) *Service {
	return &Service{
		store:    store,
		notifier: notifier,
		log:      log.With().Str("component", "achievements").Logger(),
	}
}

func (s *Service) List(ctx context.Context) ([]db.AchievementRecord, error) {
	items, err := s.store.ListAchievements(ctx)
	if err != nil {
		return nil, fmt.Errorf("list achievements: %w", err)
	}
	return items, nil
}

func (s *Service) Mine(ctx context.Context, userID string) ([]db.UserAchievementRecord, error) {
	items, err := s.store.ListUserAchievements(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list user achievements: %w", err)
	}
	return items, nil
}

// Grant awards the achievement identified by code. It reports false when the user already had it.
func (s *Service) Grant(ctx context.Context, userID, code string) (bool, error) {
	achievement, err := s.store.GetAchievementByCode(ctx, strings.ToUpper(strings.TrimSpace(code)))
	if err != nil {
		if db.IsNoRows(err) {
			return false, ErrAchievementNotFound
		}
		return false, fmt.Errorf("load achievement: %w", err)
	}

	granted, err := s.store.GrantAchievement(ctx, userID, achievement.ID)
	if err != nil {
		return false, fmt.Errorf("grant achievement: %w", err)
	}
	if !granted {
		return false, nil
	}

	s.log.Info().Str("user_id", userID).Str("code", achievement.Code).Msg("achievement unlocked")
	if s.notifier != nil {
		payload := map[string]any{
			"code":        achievement.Code,
			"title":       achievement.Title,
			"description": achievement.Description,
			"points":      achievement.Points,
		}
		if err := s.notifier.Notify(ctx, userID, NotificationAchievementUnlocked, payload); err != nil {
			s.log.Warn().Err(err).Str("user_id", userID).Str("code", achievement.Code).Msg("achievement notification failed")
		}
	}
	return true, nil
}

// CheckUserProgress grants every achievement whose threshold the user now meets
// and returns the codes newly granted.
func (s *Service) CheckUserProgress(ctx context.Context, userID string) ([]string, error) {
	counts, err := s.store.CountLibraryEntries(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("count library entries: %w", err)
	}

	var granted []string
	for _, r := range rules {
		if !r.met(counts) {
			continue
		}
		ok, err := s.Grant(ctx, userID, r.code)
		if err != nil {
			if errors.Is(err, ErrAchievementNotFound) {
				s.log.Warn().Str("code", r.code).Msg("achievement missing from catalog")
				continue
			}
			return granted, err
		}
		if ok {
			granted = append(granted, r.code)
		}
	}
	return granted, nil
}
