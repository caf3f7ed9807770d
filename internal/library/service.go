package library

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"horse.fit/webnovels/internal/db"
)

var (
	ErrEntryNotFound    = errors.New("library entry not found")
	ErrNovelNotFound    = errors.New("novel not found")
	ErrInvalidStatus    = errors.New("status must be one of READING, COMPLETED, PLAN_TO_READ, DROPPED, ON_HOLD")
	ErrNegativeProgress = errors.New("progress must be >= 0")
)

type Status string

const (
	StatusReading    Status = "READING"
	StatusCompleted  Status = "COMPLETED"
	StatusPlanToRead Status = "PLAN_TO_READ"
	StatusDropped    Status = "DROPPED"
	StatusOnHold     Status = "ON_HOLD"
)

// ParseStatus accepts any case. Blank means READING.
func ParseStatus(raw string) (Status, bool) {
	switch Status(strings.ToUpper(strings.TrimSpace(raw))) {
	case "", StatusReading:
		return StatusReading, true
	case StatusCompleted:
		return StatusCompleted, true
	case StatusPlanToRead:
		return StatusPlanToRead, true
	case StatusDropped:
		return StatusDropped, true
	case StatusOnHold:
		return StatusOnHold, true
	}
	return "", false
}

type Store interface {
	ListLibraryEntries(ctx context.Context, userID, status string) ([]db.LibraryEntryRecord, error)
	UpsertLibraryEntry(ctx context.Context, params db.UpsertLibraryEntryParams) (*db.LibraryEntryRecord, error)
	DeleteLibraryEntry(ctx context.Context, userID, novelID string) error
}

// ProgressChecker re-evaluates achievements after the library changes.
type ProgressChecker interface {
	CheckUserProgress(ctx context.Context, userID string) ([]string, error)
}

type UpsertParams struct {
	Status   string
	Favorite bool
	Progress *int
}

type Service struct {
	store    Store
	progress ProgressChecker
	log      zerolog.Logger
}

func NewService(store Store, progress ProgressChecker, log zerolog.Logger) *Service {
	return &Service{
		store:    store,
		progress: progress,
		log:      log.With().Str("component", "library").Logger(),
	}
}

// List returns the user's entries, optionally filtered by status.
func (s *Service) List(ctx context.Context, userID, status string) ([]db.LibraryEntryRecord, error) {
	filter := ""
	if strings.TrimSpace(status) != "" {
		parsed, ok := ParseStatus(status)
		if !ok {
			return nil, ErrInvalidStatus
		}
		filter = string(parsed)
	}
	entries, err := s.store.ListLibraryEntries(ctx, userID, filter)
	if err != nil {
		return nil, fmt.Errorf("list library: %w", err)
	}
	return entries, nil
}

func (s *Service) Upsert(ctx context.Context, userID, novelID string, params UpsertParams) (*db.LibraryEntryRecord, error) {
	if _, err := uuid.Parse(novelID); err != nil {
		return nil, ErrNovelNotFound
	}
	status, ok := ParseStatus(params.Status)
	if !ok {
		return nil, ErrInvalidStatus
	}
	if params.Progress != nil && *params.Progress < 0 {
		return nil, ErrNegativeProgress
	}

	entry, err := s.store.UpsertLibraryEntry(ctx, db.UpsertLibraryEntryParams{
		UserID:   userID,
		NovelID:  novelID,
		Status:   string(status),
		Favorite: params.Favorite,
		Progress: params.Progress,
	})
	if err != nil {
		if db.IsForeignKeyViolation(err) {
			return nil, ErrNovelNotFound
		}
		return nil, fmt.Errorf("upsert library entry: %w", err)
	}

	if s.progress != nil {
		if _, err := s.progress.CheckUserProgress(ctx, userID); err != nil {
			s.log.Warn().Err(err).Str("user_id", userID).Msg("achievement check failed")
		}
	}
	return entry, nil
}

func (s *Service) Remove(ctx context.Context, userID, novelID string) error {
	if _, err := uuid.Parse(novelID); err != nil {
		return ErrEntryNotFound
	}
	if err := s.store.DeleteLibraryEntry(ctx, userID, novelID); err != nil {
		if db.IsNoRows(err) {
			return ErrEntryNotFound
		}
		return fmt.Errorf("delete library entry: %w", err)
	}
	return nil
}
