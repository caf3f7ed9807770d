package db

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// ChapterRecord is one chapter row.
type ChapterRecord struct {
	ID        string    `json:"id"`
	NovelID   string    `json:"novel_id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ChapterSummary is a chapter listing entry without content.
type ChapterSummary struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
}

// UpdateChapterParams carries optional chapter changes.
type UpdateChapterParams struct {
	Title   *string
	Content *string
}

const chapterColumns = `
	id::text,
	novel_id::text,
	title,
	content,
	created_at,
	updated_at
`

func scanChapter(row interface{ Scan(dest ...any) error }) (*ChapterRecord, error) {
	var rec ChapterRecord
	if err := row.Scan(
		&rec.ID,
		&rec.NovelID,
		&rec.Title,
		&rec.Content,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (p *Pool) GetChapter(ctx context.Context, chapterID string) (*ChapterRecord, error) {
	q := `SELECT` + chapterColumns + `FROM webnovels.chapters WHERE id = $1::uuid LIMIT 1`

	rec, err := scanChapter(p.QueryRow(ctx, q, chapterID))
	if err != nil {
		if IsNoRows(err) {
			return nil, ErrNoRows
		}
		return nil, fmt.Errorf("query chapter: %w", err)
	}
	return rec, nil
}

func (p *Pool) ListChapterSummaries(ctx context.Context, novelID string) ([]ChapterSummary, error) {
	const q = `
SELECT
	id::text,
	title,
	created_at
FROM webnovels.chapters
WHERE novel_id = $1::uuid
ORDER BY created_at ASC, id
`

	rows, err := p.Query(ctx, q, novelID)
	if err != nil {
		return nil, fmt.Errorf("query chapter summaries: %w", err)
	}
	defer rows.Close()

	out := make([]ChapterSummary, 0, 16)
	for rows.Next() {
		var row ChapterSummary
		if err := rows.Scan(&row.ID, &row.Title, &row.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan chapter summary row: %w", err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chapter summary rows: %w", err)
	}
	return out, nil
}

func (p *Pool) CreateChapter(ctx context.Context, novelID, title, content string) (*ChapterRecord, error) {
	q := `
INSERT INTO webnovels.chapters (
	novel_id,
	title,
	content,
	created_at,
	updated_at
)
VALUES ($1::uuid, $2, $3, now(), now())
RETURNING` + chapterColumns

	rec, err := scanChapter(p.QueryRow(ctx, q, novelID, strings.TrimSpace(title), content))
	if err != nil {
		return nil, fmt.Errorf("insert chapter: %w", err)
	}
	return rec, nil
}

func (p *Pool) UpdateChapter(ctx context.Context, chapterID string, params UpdateChapterParams) (*ChapterRecord, error) {
	q := `
UPDATE webnovels.chapters
SET
	title = COALESCE($2, title),
	content = COALESCE($3, content),
	updated_at = now()
WHERE id = $1::uuid
RETURNING` + chapterColumns

	rec, err := scanChapter(p.QueryRow(ctx, q, chapterID, params.Title, params.Content))
	if err != nil {
		if IsNoRows(err) {
			return nil, ErrNoRows
		}
		return nil, fmt.Errorf("update chapter: %w", err)
	}
	return rec, nil
}

// DeleteChapter removes a chapter; ErrNoRows when it does not exist.
func (p *Pool) DeleteChapter(ctx context.Context, chapterID string) error {
	const q = `DELETE FROM webnovels.chapters WHERE id = $1::uuid`

	if err := requireAffected(p.Exec(ctx, q, chapterID)); err != nil {
		if IsNoRows(err) {
			return ErrNoRows
		}
		return fmt.Errorf("delete chapter: %w", err)
	}
	return nil
}
