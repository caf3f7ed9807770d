package ratings

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"horse.fit/webnovels/internal/db"
)

var (
	ErrNovelNotFound = errors.New("novel not found")
	ErrInvalidValue  = errors.New("rating must be an integer between 1 and 5")
)

const (
	MinValue = 1
	MaxValue = 5
)

type Store interface {
	UpsertUserRating(ctx context.Context, userID, novelID string, value int) error
	GetUserRating(ctx context.Context, userID, novelID string) (int, error)
	AverageRating(ctx context.Context, novelID string) (float64, error)
	SetNovelRating(ctx context.Context, novelID string, rating float64) error
}

// Summary is the novel's average after a rating change.
type Summary struct {
	NovelID  string  `json:"novel_id"`
	Average  float64 `json:"average"`
	MyRating *int    `json:"my_rating,omitempty"`
}

type Service struct {
	store Store
	log   zerolog.Logger
}

func NewService(store Store, log zerolog.Logger) *Service {
	return &Service{store: store, log: log.With().Str("component", "ratings").Logger()}
}

// Rate stores the user's rating and refreshes the novel's denormalized average.
func (s *Service) Rate(ctx context.Context, userID, novelID string, value int) (*Summary, error) {
	if value < MinValue || value > MaxValue {
		return nil, ErrInvalidValue
	}
	if _, err := uuid.Parse(novelID); err != nil {
		return nil, ErrNovelNotFound
	}

	if err := s.store.UpsertUserRating(ctx, userID, novelID, value); err != nil {
		if db.IsForeignKeyViolation(err) {
			return nil, ErrNovelNotFound
		}
		return nil, fmt.Errorf("store rating: %w", err)
	}

	avg, err := s.store.AverageRating(ctx, novelID)
	if err != nil {
		return nil, fmt.Errorf("recompute average: %w", err)
	}
	if err := s.store.SetNovelRating(ctx, novelID, avg); err != nil {
		if db.IsNoRows(err) {
			return nil, ErrNovelNotFound
		}
		return nil, fmt.Errorf("update novel rating: %w", err)
	}

	s.log.Debug().Str("novel_id", novelID).Float64("average", avg).Msg("rating updated")
	return &Summary{NovelID: novelID, Average: avg, MyRating: &value}, nil
}

func (s *Service) Average(ctx context.Context, novelID string) (*Summary, error) {
	if _, err := uuid.Parse(novelID); err != nil {
		return nil, ErrNovelNotFound
	}
	avg, err := s.store.AverageRating(ctx, novelID)
	if err != nil {
		return nil, fmt.Errorf("average rating: %w", err)
	}
	return &Summary{NovelID: novelID, Average: avg}, nil
}

// Mine returns the caller's rating, nil when they have not rated the novel.
func (s *Service) Mine(ctx context.Context, userID, novelID string) (*int, error) {
	if _, err := uuid.Parse(novelID); err != nil {
		return nil, ErrNovelNotFound
	}
	value, err := s.store.GetUserRating(ctx, userID, novelID)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("load rating: %w", err)
	}
	return &value, nil
}
