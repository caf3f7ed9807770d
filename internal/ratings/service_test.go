package ratings

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"horse.fit/webnovels/internal/db"
)

const (
	novelID = "3e4f5a6b-7c8d-4e9f-8a1b-2c3d4e5f6a7b"
	alice   = "7c8d9e0f-1a2b-4c3d-9e5f-6a7b8c9d0e1f"
	bob     = "8d9e0f1a-2b3c-4d4e-8f6a-7b8c9d0e1f2a"
	carol   = "9e0f1a2b-3c4d-4e5f-9a7b-8c9d0e1f2a3b"
)

type fakeStore struct {
	values map[string]int
	stored float64
}

func (s *fakeStore) UpsertUserRating(_ context.Context, userID, _ string, value int) error {
	s.values[userID] = value
	return nil
}

func (s *fakeStore) GetUserRating(_ context.Context, userID, _ string) (int, error) {
	if v, ok := s.values[userID]; ok {
		return v, nil
	}
	return 0, db.ErrNoRows
}

func (s *fakeStore) AverageRating(context.Context, string) (float64, error) {
	if len(s.values) == 0 {
		return 0, nil
	}
	sum := 0
	for _, v := range s.values {
		sum += v
	}
	return db.RoundRating(float64(sum) / float64(len(s.values))), nil
}

func (s *fakeStore) SetNovelRating(_ context.Context, _ string, rating float64) error {
	s.stored = rating
	return nil
}

func TestRateRecomputesAverage(t *testing.T) {
	t.Parallel()

	store := &fakeStore{values: map[string]int{}}
	svc := NewService(store, zerolog.Nop())
	ctx := context.Background()

	for user, value := range map[string]int{alice: 5, bob: 4, carol: 4} {
		if _, err := svc.Rate(ctx, user, novelID, value); err != nil {
			t.Fatalf("Rate(%s) error = %v", user, err)
		}
	}
	if store.stored != 4.33 {
		t.Fatalf("stored average = %v, want 4.33", store.stored)
	}

	summary, err := svc.Rate(ctx, alice, novelID, 1)
	if err != nil {
		t.Fatalf("re-rate error = %v", err)
	}
	if summary.Average != 3 || store.stored != 3 {
		t.Fatalf("average after re-rate = %v (stored %v)", summary.Average, store.stored)
	}
	if summary.MyRating == nil || *summary.MyRating != 1 {
		t.Fatalf("my rating = %v", summary.MyRating)
	}
}

func TestRateValidation(t *testing.T) {
	t.Parallel()

	svc := NewService(&fakeStore{values: map[string]int{}}, zerolog.Nop())
	for _, value := range []int{0, 6, -1} {
		if _, err := svc.Rate(context.Background(), alice, novelID, value); !errors.Is(err, ErrInvalidValue) {
			t.Fatalf("Rate(%d) expected ErrInvalidValue, got %v", value, err)
		}
	}
	if _, err := svc.Rate(context.Background(), alice, "abc", 3); !errors.Is(err, ErrNovelNotFound) {
		t.Fatalf("expected ErrNovelNotFound, got %v", err)
	}
}

func TestMineAndAverage(t *testing.T) {
	t.Parallel()

	store := &fakeStore{values: map[string]int{}}
	svc := NewService(store, zerolog.Nop())

	mine, err := svc.Mine(context.Background(), alice, novelID)
	if err != nil || mine != nil {
		t.Fatalf("Mine() before rating = %v, %v", mine, err)
	}
	avg, err := svc.Average(context.Background(), novelID)
	if err != nil || avg.Average != 0 {
		t.Fatalf("Average() = %#v, %v", avg, err)
	}

	store.values[alice] = 2
	mine, err = svc.Mine(context.Background(), alice, novelID)
	if err != nil || mine == nil || *mine != 2 {
		t.Fatalf("Mine() = %v, %v", mine, err)
	}
}
