package db

import (
	"context"
	"fmt"
	"time"
)

// LibraryEntryRecord is a library row with the novel it refers to.
type LibraryEntryRecord struct {
	ID        string       `json:"id"`
	UserID    string       `json:"user_id"`
	NovelID   string       `json:"novel_id"`
	Status    string       `json:"status"`
	Favorite  bool         `json:"favorite"`
	Progress  int          `json:"progress"`
	UpdatedAt time.Time    `json:"updated_at"`
	Novel     *NovelRecord `json:"novel,omitempty"`
}

// UpsertLibraryEntryParams sets a user's tracking state for a novel.
// A nil Progress keeps the stored progress on update and stores 0 on insert.
type UpsertLibraryEntryParams struct {
	UserID   string
	NovelID  string
	Status   string
	Favorite bool
	Progress *int
}

// LibraryCounts are the per-user totals achievements are computed from.
type LibraryCounts struct {
	Total     int64
	Completed int64
}

func (p *Pool) ListLibraryEntries(ctx context.Context, userID, status string) ([]LibraryEntryRecord, error) {
	q := novelSelectSQL(
		"le.id::text",
		"le.user_id::text",
		"le.novel_id::text",
		"le.status",
		"le.favorite",
		"le.progress",
		"le.updated_at",
	) + `JOIN webnovels.library_entries le ON le.novel_id = n.id
WHERE le.user_id = $1::uuid
	AND ($2 = '' OR le.status = $2)
ORDER BY le.updated_at DESC, le.id
`

	rows, err := p.Query(ctx, q, userID, status)
	if err != nil {
		return nil, fmt.Errorf("query library entries: %w", err)
	}
	defer rows.Close()

	out := make([]LibraryEntryRecord, 0, 16)
	for rows.Next() {
		var entry LibraryEntryRecord
		novel, err := scanNovel(rows,
			&entry.ID,
			&entry.UserID,
			&entry.NovelID,
			&entry.Status,
			&entry.Favorite,
			&entry.Progress,
			&entry.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan library entry row: %w", err)
		}
		entry.Novel = novel
		out = append(out, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate library entry rows: %w", err)
	}
	return out, nil
}

func (p *Pool) UpsertLibraryEntry(ctx context.Context, params UpsertLibraryEntryParams) (*LibraryEntryRecord, error) {
	const q = `
INSERT INTO webnovels.library_entries (
	user_id,
	novel_id,
	status,
	favorite,
	progress,
	updated_at
)
VALUES ($1::uuid, $2::uuid, $3, $4, COALESCE($5::integer, 0), now())
ON CONFLICT (user_id, novel_id) DO UPDATE
SET
	status = EXCLUDED.status,
	favorite = EXCLUDED.favorite,
	progress = COALESCE($5::integer, webnovels.library_entries.progress),
	updated_at = now()
RETURNING
	id::text,
	user_id::text,
	novel_id::text,
	status,
	favorite,
	progress,
	updated_at
`

	var entry LibraryEntryRecord
	if err := p.QueryRow(ctx, q,
		params.UserID,
		params.NovelID,
		params.Status,
		params.Favorite,
		params.Progress,
	).Scan(
		&entry.ID,
		&entry.UserID,
		&entry.NovelID,
		&entry.Status,
		&entry.Favorite,
		&entry.Progress,
		&entry.UpdatedAt,
	); err != nil {
		return nil, fmt.Errorf("upsert library entry: %w", err)
	}
	return &entry, nil
}

func (p *Pool) DeleteLibraryEntry(ctx context.Context, userID, novelID string) error {
	const q = `DELETE FROM webnovels.library_entries WHERE user_id = $1::uuid AND novel_id = $2::uuid`

	if err := requireAffected(p.Exec(ctx, q, userID, novelID)); err != nil {
		if IsNoRows(err) {
			return ErrNoRows
		}
		return fmt.Errorf("delete library entry: %w", err)
	}
	return nil
}

func (p *Pool) CountLibraryEntries(ctx context.Context, userID string) (LibraryCounts, error) {
	const q = `
SELECT
	COUNT(*),
	COUNT(*) FILTER (WHERE status = 'COMPLETED')
FROM webnovels.library_entries
WHERE user_id = $1::uuid
`

	var counts LibraryCounts
	if err := p.QueryRow(ctx, q, userID).Scan(&counts.Total, &counts.Completed); err != nil {
		return LibraryCounts{}, fmt.Errorf("count library entries: %w", err)
	}
	return counts, nil
}

// ListLibraryUserIDs returns the users tracking a novel, excluding one user (usually the author).
func (p *Pool) ListLibraryUserIDs(ctx context.Context, novelID, excludeUserID string) ([]string, error) {
	const q = `
SELECT user_id::text
FROM webnovels.library_entries
WHERE novel_id = $1::uuid
	AND user_id::text <> $2
ORDER BY user_id
`

	rows, err := p.Query(ctx, q, novelID, excludeUserID)
	if err != nil {
		return nil, fmt.Errorf("query library users: %w", err)
	}
	defer rows.Close()

	out := make([]string, 0, 16)
	for rows.Next() {
		var userID string
		if err := rows.Scan(&userID); err != nil {
			return nil, fmt.Errorf("scan library user row: %w", err)
		}
		out = append(out, userID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate library user rows: %w", err)
	}
	return out, nil
}
