package db

import (
	"context"
	"fmt"
	"math"
)

func (p *Pool) UpsertUserRating(ctx context.Context, userID, novelID string, value int) error {
	const q = `
INSERT INTO webnovels.user_ratings (user_id, novel_id, value, updated_at)
VALUES ($1::uuid, $2::uuid, $3, now())
ON CONFLICT (user_id, novel_id) DO UPDATE
SET
	value = EXCLUDED.value,
	updated_at = now()
`

	if _, err := p.Exec(ctx, q, userID, novelID, value); err != nil {
		return fmt.Errorf("upsert user rating: %w", err)
	}
	return nil
}

// GetUserRating returns the caller's rating, ErrNoRows when they never rated the novel.
func (p *Pool) GetUserRating(ctx context.Context, userID, novelID string) (int, error) {
	const q = `SELECT value FROM webnovels.user_ratings WHERE user_id = $1::uuid AND novel_id = $2::uuid`

	var value int
	if err := p.QueryRow(ctx, q, userID, novelID).Scan(&value); err != nil {
		if IsNoRows(err) {
			return 0, ErrNoRows
		}
		return 0, fmt.Errorf("query user rating: %w", err)
	}
	return value, nil
}

// AverageRating returns the mean rating rounded to two decimals; 0 when unrated.
func (p *Pool) AverageRating(ctx context.Context, novelID string) (float64, error) {
	const q = `SELECT COALESCE(AVG(value), 0)::float8 FROM webnovels.user_ratings WHERE novel_id = $1::uuid`

	var avg float64
	if err := p.QueryRow(ctx, q, novelID).Scan(&avg); err != nil {
		return 0, fmt.Errorf("query average rating: %w", err)
	}
	return RoundRating(avg), nil
}

func (p *Pool) SetNovelRating(ctx context.Context, novelID string, rating float64) error {
	const q = `UPDATE webnovels.novels SET rating = $2 WHERE id = $1::uuid`

	if err := requireAffected(p.Exec(ctx, q, novelID, RoundRating(rating))); err != nil {
		if IsNoRows(err) {
			return ErrNoRows
		}
		return fmt.Errorf("update novel rating: %w", err)
	}
	return nil
}

// RoundRating rounds to two decimal places.
func RoundRating(v float64) float64 {
	return math.Round(v*100) / 100
}
