package db

import (
	"context"
	"fmt"
	"time"
)

// CommentRecord is a comment row with its author; Replies is filled for thread roots.
type CommentRecord struct {
	ID        string          `json:"id"`
	AuthorID  string          `json:"author_id"`
	Author    *UserSummary    `json:"author,omitempty"`
	NovelID   *string         `json:"novel_id,omitempty"`
	ChapterID *string         `json:"chapter_id,omitempty"`
	ParentID  *string         `json:"parent_id,omitempty"`
	Content   string          `json:"content"`
	CreatedAt time.Time       `json:"created_at"`
	Replies   []CommentRecord `json:"replies,omitempty"`
}

// CreateCommentParams describes a new comment. At least one of NovelID or ChapterID is set.
type CreateCommentParams struct {
	AuthorID  string
	Content   string
	NovelID   *string
	ChapterID *string
	ParentID  *string
}

// CommentScope selects which foreign key a thread listing filters on.
type CommentScope string

const (
	CommentScopeNovel   CommentScope = "novel"
	CommentScopeChapter CommentScope = "chapter"
)

const commentSelect = `
SELECT
	c.id::text,
	c.author_id::text,
	u.id::text,
	u.email,
	u.display_name,
	c.novel_id::text,
	c.chapter_id::text,
	c.parent_id::text,
	c.content,
	c.created_at
FROM webnovels.comments c
JOIN webnovels.users u ON u.id = c.author_id
`

func scanComment(row interface{ Scan(dest ...any) error }) (*CommentRecord, error) {
	var (
		rec    CommentRecord
		author UserSummary
	)
	if err := row.Scan(
		&rec.ID,
		&rec.AuthorID,
		&author.ID,
		&author.Email,
		&author.DisplayName,
		&rec.NovelID,
		&rec.ChapterID,
		&rec.ParentID,
		&rec.Content,
		&rec.CreatedAt,
	); err != nil {
		return nil, err
	}
	rec.Author = &author
	return &rec, nil
}

func scanComments(rows *Rows) ([]CommentRecord, error) {
	defer rows.Close()

	out := make([]CommentRecord, 0, 16)
	for rows.Next() {
		rec, err := scanComment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan comment row: %w", err)
		}
		out = append(out, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate comment rows: %w", err)
	}
	return out, nil
}

func (p *Pool) GetComment(ctx context.Context, commentID string) (*CommentRecord, error) {
	q := commentSelect + `WHERE c.id = $1::uuid LIMIT 1`

	rec, err := scanComment(p.QueryRow(ctx, q, commentID))
	if err != nil {
		if IsNoRows(err) {
			return nil, ErrNoRows
		}
		return nil, fmt.Errorf("query comment: %w", err)
	}
	return rec, nil
}

// ListCommentThreads returns top-level comments newest first, each with replies oldest first.
func (p *Pool) ListCommentThreads(ctx context.Context, scope CommentScope, targetID string) ([]CommentRecord, error) {
	column := ""
	switch scope {
	case CommentScopeNovel:
		column = "novel_id"
	case CommentScopeChapter:
		column = "chapter_id"
	default:
		return nil, fmt.Errorf("unsupported comment scope %q", scope)
	}

	rootsQuery := commentSelect + `
WHERE c.` + column + ` = $1::uuid
	AND c.parent_id IS NULL
ORDER BY c.created_at DESC, c.id
`
	rows, err := p.Query(ctx, rootsQuery, targetID)
	if err != nil {
		return nil, fmt.Errorf("query comment threads: %w", err)
	}
	roots, err := scanComments(rows)
	if err != nil {
		return nil, err
	}
	if len(roots) == 0 {
		return roots, nil
	}

	repliesQuery := commentSelect + `
WHERE c.parent_id IN (
	SELECT id
	FROM webnovels.comments
	WHERE ` + column + ` = $1::uuid
		AND parent_id IS NULL
)
ORDER BY c.created_at ASC, c.id
`
	rows, err = p.Query(ctx, repliesQuery, targetID)
	if err != nil {
		return nil, fmt.Errorf("query comment replies: %w", err)
	}
	replies, err := scanComments(rows)
	if err != nil {
		return nil, err
	}

	byParent := make(map[string][]CommentRecord, len(roots))
	for _, reply := range replies {
		if reply.ParentID == nil {
			continue
		}
		byParent[*reply.ParentID] = append(byParent[*reply.ParentID], reply)
	}
	for i := range roots {
		roots[i].Replies = byParent[roots[i].ID]
		if roots[i].Replies == nil {
			roots[i].Replies = []CommentRecord{}
		}
	}
	return roots, nil
}

func (p *Pool) CreateComment(ctx context.Context, params CreateCommentParams) (*CommentRecord, error) {
	const q = `
INSERT INTO webnovels.comments (
	author_id,
	content,
	novel_id,
	chapter_id,
	parent_id,
	created_at
)
VALUES ($1::uuid, $2, $3::uuid, $4::uuid, $5::uuid, now())
RETURNING id::text
`

	var commentID string
	if err := p.QueryRow(ctx, q,
		params.AuthorID,
		params.Content,
		params.NovelID,
		params.ChapterID,
		params.ParentID,
	).Scan(&commentID); err != nil {
		return nil, fmt.Errorf("insert comment: %w", err)
	}
	return p.GetComment(ctx, commentID)
}

// DeleteComment removes a comment and its replies; ErrNoRows when it does not exist.
func (p *Pool) DeleteComment(ctx context.Context, commentID string) error {
	const q = `DELETE FROM webnovels.comments WHERE id = $1::uuid`

	if err := requireAffected(p.Exec(ctx, q, commentID)); err != nil {
		if IsNoRows(err) {
			return ErrNoRows
		}
		return fmt.Errorf("delete comment: %w", err)
	}
	return nil
}
