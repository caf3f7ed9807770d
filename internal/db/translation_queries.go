package db

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// ChapterTranslationRecord is one cached chapter translation.
type ChapterTranslationRecord struct {
	ID           string    `json:"id"`
	ChapterID    string    `json:"chapter_id"`
	TargetLang   string    `json:"target_lang"`
	Text         string    `json:"text"`
	SourceLang   string    `json:"source_lang"`
	ProviderName string    `json:"provider_name"`
	CreatedAt    time.Time `json:"created_at"`
}

// InsertChapterTranslationParams describes a translation to cache.
type InsertChapterTranslationParams struct {
	ChapterID    string
	TargetLang   string
	Text         string
	SourceLang   string
	ProviderName string
}

// GetChapterTranslation looks up the cache entry for (chapterID, targetLang).
func (p *Pool) GetChapterTranslation(ctx context.Context, chapterID, targetLang string) (*ChapterTranslationRecord, error) {
	const q = `
SELECT
	id::text,
	chapter_id::text,
	target_lang,
	text,
	source_lang,
	provider_name,
	created_at
FROM webnovels.chapter_translations
WHERE chapter_id = $1::uuid
	AND target_lang = $2
LIMIT 1
`

	var rec ChapterTranslationRecord
	if err := p.QueryRow(ctx, q, chapterID, strings.TrimSpace(targetLang)).Scan(
		&rec.ID,
		&rec.ChapterID,
		&rec.TargetLang,
		&rec.Text,
		&rec.SourceLang,
		&rec.ProviderName,
		&rec.CreatedAt,
	); err != nil {
		if IsNoRows(err) {
			return nil, ErrNoRows
		}
		return nil, fmt.Errorf("query chapter translation: %w", err)
	}
	return &rec, nil
}

// GetChapterContent returns the text of a chapter for translation.
func (p *Pool) GetChapterContent(ctx context.Context, chapterID string) (string, error) {
	const q = `SELECT content FROM webnovels.chapters WHERE id = $1::uuid`

	var content string
	if err := p.QueryRow(ctx, q, chapterID).Scan(&content); err != nil {
		if IsNoRows(err) {
			return "", ErrNoRows
		}
		return "", fmt.Errorf("query chapter content: %w", err)
	}
	return content, nil
}

// InsertChapterTranslation caches a translation. inserted is false when a row
// for the same (chapter_id, target_lang) already existed; the existing row is kept.
func (p *Pool) InsertChapterTranslation(ctx context.Context, params InsertChapterTranslationParams) (bool, error) {
	const q = `
INSERT INTO webnovels.chapter_translations (
	chapter_id,
	target_lang,
	text,
	source_lang,
	provider_name,
	created_at
)
VALUES ($1::uuid, $2, $3, $4, $5, now())
ON CONFLICT (chapter_id, target_lang) DO NOTHING
`

	tag, err := p.Exec(ctx, q,
		params.ChapterID,
		strings.TrimSpace(params.TargetLang),
		params.Text,
		strings.TrimSpace(params.SourceLang),
		strings.TrimSpace(params.ProviderName),
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return false, nil
		}
		return false, fmt.Errorf("insert chapter translation: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// ListChapterTranslations lists cached languages for a chapter, newest first.
func (p *Pool) ListChapterTranslations(ctx context.Context, chapterID string) ([]ChapterTranslationRecord, error) {
	const q = `
SELECT
	id::text,
	chapter_id::text,
	target_lang,
	text,
	source_lang,
	provider_name,
	created_at
FROM webnovels.chapter_translations
WHERE chapter_id = $1::uuid
ORDER BY created_at DESC, target_lang
`

	rows, err := p.Query(ctx, q, chapterID)
	if err != nil {
		return nil, fmt.Errorf("query chapter translations: %w", err)
	}
	defer rows.Close()

	out := make([]ChapterTranslationRecord, 0, 4)
	for rows.Next() {
		var rec ChapterTranslationRecord
		if err := rows.Scan(
			&rec.ID,
			&rec.ChapterID,
			&rec.TargetLang,
			&rec.Text,
			&rec.SourceLang,
			&rec.ProviderName,
			&rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan chapter translation row: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chapter translation rows: %w", err)
	}
	return out, nil
}
