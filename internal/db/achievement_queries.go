package db

import (
	"context"
	"fmt"
	"time"
)

type AchievementRecord struct {
	ID          string `json:"id"`
	Code        string `json:"code"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Points      int    `json:"points"`
}

type UserAchievementRecord struct {
	ID          string            `json:"id"`
	EarnedAt    time.Time         `json:"earned_at"`
	Achievement AchievementRecord `json:"achievement"`
}

func (p *Pool) ListAchievements(ctx context.Context) ([]AchievementRecord, error) {
	const q = `
SELECT id::text, code, title, description, points
FROM webnovels.achievements
ORDER BY points DESC, code
`

	rows, err := p.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query achievements: %w", err)
	}
	defer rows.Close()

	out := make([]AchievementRecord, 0, 8)
	for rows.Next() {
		var rec AchievementRecord
		if err := rows.Scan(&rec.ID, &rec.Code, &rec.Title, &rec.Description, &rec.Points); err != nil {
			return nil, fmt.Errorf("scan achievement row: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate achievement rows: %w", err)
	}
	return out, nil
}

func (p *Pool) GetAchievementByCode(ctx context.Context, code string) (*AchievementRecord, error) {
	const q = `SELECT id::text, code, title, description, points FROM webnovels.achievements WHERE code = $1`

	var rec AchievementRecord
	if err := p.QueryRow(ctx, q, code).Scan(&rec.ID, &rec.Code, &rec.Title, &rec.Description, &rec.Points); err != nil {
		if IsNoRows(err) {
			return nil, ErrNoRows
		}
		return nil, fmt.Errorf("query achievement: %w", err)
	}
	return &rec, nil
}

func (p *Pool) ListUserAchievements(ctx context.Context, userID string) ([]UserAchievementRecord, error) {
	const q = `
SELECT
	ua.id::text,
	ua.earned_at,
	a.id::text,
	a.code,
	a.title,
	a.description,
	a.points
FROM webnovels.user_achievements ua
JOIN webnovels.achievements a ON a.id = ua.achievement_id
WHERE ua.user_id = $1::uuid
ORDER BY ua.earned_at DESC, ua.id
`

	rows, err := p.Query(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("query user achievements: %w", err)
	}
	defer rows.Close()

	out := make([]UserAchievementRecord, 0, 8)
	for rows.Next() {
		var rec UserAchievementRecord
		if err := rows.Scan(
			&rec.ID,
			&rec.EarnedAt,
			&rec.Achievement.ID,
			&rec.Achievement.Code,
			&rec.Achievement.Title,
			&rec.Achievement.Description,
			&rec.Achievement.Points,
		); err != nil {
			return nil, fmt.Errorf("scan user achievement row: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate user achievement rows: %w", err)
	}
	return out, nil
}

// GrantAchievement records the award once. granted is false when the user already had it.
func (p *Pool) GrantAchievement(ctx context.Context, userID, achievementID string) (bool, error) {
	const q = `
INSERT INTO webnovels.user_achievements (user_id, achievement_id, earned_at)
VALUES ($1::uuid, $2::uuid, now())
ON CONFLICT (user_id, achievement_id) DO NOTHING
`

	tag, err := p.Exec(ctx, q, userID, achievementID)
	if err != nil {
		return false, fmt.Errorf("grant achievement: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
