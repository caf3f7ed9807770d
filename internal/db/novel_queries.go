package db

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
)

// NovelRecord is a novel row flattened with its author and tag names.
type NovelRecord struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	CoverURL    *string      `json:"cover_url,omitempty"`
	AuthorID    string       `json:"author_id"`
	Author      *UserSummary `json:"author,omitempty"`
	Rating      float64      `json:"rating"`
	Tags        []string     `json:"tags"`
	RecentViews *int64       `json:"recent_views,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// TagMatchMode controls how multiple tag filters combine in a search.
type TagMatchMode string

const (
	TagMatchAny TagMatchMode = "any"
	TagMatchAll TagMatchMode = "all"
)

// NovelSearchParams filters novel searches. Empty fields do not filter.
type NovelSearchParams struct {
	Query  string
	Tags   []string
	Mode   TagMatchMode
	Limit  int
	Offset int
}

// CreateNovelParams describes a new novel. Tags must already be normalized.
type CreateNovelParams struct {
	Title       string
	Description string
	CoverURL    *string
	AuthorID    string
	Tags        []string
}

// UpdateNovelParams carries optional novel changes. A nil Tags slice keeps the current tags.
type UpdateNovelParams struct {
	Title       *string
	Description *string
	CoverURL    *string
	Tags        []string
}

var novelSelectColumns = []string{
	"n.id::text",
	"n.title",
	"n.description",
	"n.cover_url",
	"n.author_id::text",
	"u.id::text",
	"u.email",
	"u.display_name",
	"n.rating::float8",
	`COALESCE((
		SELECT json_agg(t.name ORDER BY t.name)
		FROM webnovels.novel_tags nt
		JOIN webnovels.tags t ON t.id = nt.tag_id
		WHERE nt.novel_id = n.id
	), '[]'::json)`,
	"n.created_at",
	"n.updated_at",
}

const novelFrom = `
FROM webnovels.novels n
JOIN webnovels.users u ON u.id = n.author_id
`

func novelSelectSQL(extra ...string) string {
	columns := append(append([]string{}, novelSelectColumns...), extra...)
	return "SELECT\n\t" + strings.Join(columns, ",\n\t") + novelFrom
}

func scanNovel(row interface{ Scan(dest ...any) error }, extra ...any) (*NovelRecord, error) {
	var (
		rec     NovelRecord
		author  UserSummary
		tagJSON []byte
	)
	dest := []any{
		&rec.ID,
		&rec.Title,
		&rec.Description,
		&rec.CoverURL,
		&rec.AuthorID,
		&author.ID,
		&author.Email,
		&author.DisplayName,
		&rec.Rating,
		&tagJSON,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	}
	dest = append(dest, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	rec.Author = &author
	rec.Tags = []string{}
	if len(tagJSON) > 0 {
		if err := json.Unmarshal(tagJSON, &rec.Tags); err != nil {
			return nil, fmt.Errorf("decode novel tags: %w", err)
		}
	}
	return &rec, nil
}

func scanNovels(rows *Rows, capacity int) ([]NovelRecord, error) {
	defer rows.Close()

	out := make([]NovelRecord, 0, capacity)
	for rows.Next() {
		rec, err := scanNovel(rows)
		if err != nil {
			return nil, fmt.Errorf("scan novel row: %w", err)
		}
		out = append(out, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate novel rows: %w", err)
	}
	return out, nil
}

func (p *Pool) ListNovels(ctx context.Context, limit, offset int) ([]NovelRecord, error) {
	q := novelSelectSQL() + `
ORDER BY n.created_at DESC, n.id
LIMIT $1 OFFSET $2
`

	rows, err := p.Query(ctx, q, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("query novels: %w", err)
	}
	return scanNovels(rows, limit)
}

func (p *Pool) GetNovel(ctx context.Context, novelID string) (*NovelRecord, error) {
	q := novelSelectSQL() + `WHERE n.id = $1::uuid LIMIT 1`

	rec, err := scanNovel(p.QueryRow(ctx, q, novelID))
	if err != nil {
		if IsNoRows(err) {
			return nil, ErrNoRows
		}
		return nil, fmt.Errorf("query novel: %w", err)
	}
	return rec, nil
}

// GetNovelAuthorID returns only the owner id, for authorization checks.
func (p *Pool) GetNovelAuthorID(ctx context.Context, novelID string) (string, error) {
	const q = `SELECT author_id::text FROM webnovels.novels WHERE id = $1::uuid`

	var authorID string
	if err := p.QueryRow(ctx, q, novelID).Scan(&authorID); err != nil {
		if IsNoRows(err) {
			return "", ErrNoRows
		}
		return "", fmt.Errorf("query novel author: %w", err)
	}
	return authorID, nil
}

// BuildNovelSearchQuery renders the search statement with $n placeholders.
func BuildNovelSearchQuery(params NovelSearchParams) (string, []any, error) {
	qb := sq.StatementBuilder.
		PlaceholderFormat(sq.Dollar).
		Select(novelSelectColumns...).
		From("webnovels.novels n").
		Join("webnovels.users u ON u.id = n.author_id")

	if query := strings.TrimSpace(params.Query); query != "" {
		qb = qb.Where(sq.ILike{"n.title": "%" + escapeLike(query) + "%"})
	}

	const tagExists = `EXISTS (
		SELECT 1
		FROM webnovels.novel_tags nt
		JOIN webnovels.tags t ON t.id = nt.tag_id
		WHERE nt.novel_id = n.id AND %s
	)`
	if len(params.Tags) > 0 {
		if params.Mode == TagMatchAll {
			for _, tag := range params.Tags {
				qb = qb.Where(sq.Expr(fmt.Sprintf(tagExists, "t.name = ?"), tag))
			}
		} else {
			names, args := make([]string, 0, len(params.Tags)), make([]any, 0, len(params.Tags))
			for _, tag := range params.Tags {
				names = append(names, "?")
				args = append(args, tag)
			}
			qb = qb.Where(sq.Expr(fmt.Sprintf(tagExists, "t.name IN ("+strings.Join(names, ", ")+")"), args...))
		}
	}

	qb = qb.OrderBy("n.created_at DESC", "n.id")
	if params.Limit > 0 {
		qb = qb.Limit(uint64(params.Limit))
	}
	if params.Offset > 0 {
		qb = qb.Offset(uint64(params.Offset))
	}
	return qb.ToSql()
}

func (p *Pool) SearchNovels(ctx context.Context, params NovelSearchParams) ([]NovelRecord, error) {
	q, args, err := BuildNovelSearchQuery(params)
	if err != nil {
		return nil, fmt.Errorf("build novel search: %w", err)
	}

	rows, err := p.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("search novels: %w", err)
	}
	return scanNovels(rows, params.Limit)
}

func (p *Pool) CreateNovel(ctx context.Context, params CreateNovelParams) (string, error) {
	const q = `
INSERT INTO webnovels.novels (
	title,
	description,
	cover_url,
	author_id,
	created_at,
	updated_at
)
VALUES ($1, $2, $3, $4::uuid, now(), now())
RETURNING id::text
`

	var novelID string
	err := p.WithTx(ctx, func(tx Tx) error {
		if err := tx.QueryRow(ctx, q,
			strings.TrimSpace(params.Title),
			params.Description,
			params.CoverURL,
			params.AuthorID,
		).Scan(&novelID); err != nil {
			return fmt.Errorf("insert novel: %w", err)
		}
		return attachTags(ctx, tx, novelID, params.Tags)
	})
	if err != nil {
		return "", err
	}
	return novelID, nil
}

func (p *Pool) UpdateNovel(ctx context.Context, novelID string, params UpdateNovelParams) error {
	const q = `
UPDATE webnovels.novels
SET
	title = COALESCE($2, title),
	description = COALESCE($3, description),
	cover_url = COALESCE($4, cover_url),
	updated_at = now()
WHERE id = $1::uuid
`

	return p.WithTx(ctx, func(tx Tx) error {
		if err := requireAffected(tx.Exec(ctx, q, novelID, params.Title, params.Description, params.CoverURL)); err != nil {
			if IsNoRows(err) {
				return ErrNoRows
			}
			return fmt.Errorf("update novel: %w", err)
		}
		if params.Tags == nil {
			return nil
		}
		if _, err := tx.Exec(ctx, `DELETE FROM webnovels.novel_tags WHERE novel_id = $1::uuid`, novelID); err != nil {
			return fmt.Errorf("clear novel tags: %w", err)
		}
		return attachTags(ctx, tx, novelID, params.Tags)
	})
}

func (p *Pool) DeleteNovel(ctx context.Context, novelID string) error {
	const q = `DELETE FROM webnovels.novels WHERE id = $1::uuid`

	if err := requireAffected(p.Exec(ctx, q, novelID)); err != nil {
		if IsNoRows(err) {
			return ErrNoRows
		}
		return fmt.Errorf("delete novel: %w", err)
	}
	return nil
}

func attachTags(ctx context.Context, tx Tx, novelID string, tags []string) error {
	const upsertTag = `
INSERT INTO webnovels.tags (name)
VALUES ($1)
ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
RETURNING id::text
`
	const linkTag = `
INSERT INTO webnovels.novel_tags (novel_id, tag_id)
VALUES ($1::uuid, $2::uuid)
ON CONFLICT DO NOTHING
`

	for _, name := range tags {
		var tagID string
		if err := tx.QueryRow(ctx, upsertTag, name).Scan(&tagID); err != nil {
			return fmt.Errorf("upsert tag %q: %w", name, err)
		}
		if _, err := tx.Exec(ctx, linkTag, novelID, tagID); err != nil {
			return fmt.Errorf("link tag %q: %w", name, err)
		}
	}
	return nil
}

func (p *Pool) ListTagNames(ctx context.Context) ([]string, error) {
	const q = `SELECT name FROM webnovels.tags ORDER BY name ASC`

	rows, err := p.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query tags: %w", err)
	}
	defer rows.Close()

	names := make([]string, 0, 32)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan tag row: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tag rows: %w", err)
	}
	return names, nil
}

func (p *Pool) RecordNovelView(ctx context.Context, novelID string, userID *string) error {
	const q = `
INSERT INTO webnovels.novel_views (novel_id, user_id, created_at)
VALUES ($1::uuid, $2::uuid, now())
`

	if _, err := p.Exec(ctx, q, novelID, userID); err != nil {
		return fmt.Errorf("insert novel view: %w", err)
	}
	return nil
}

// ListPopularNovels ranks novels by views recorded since the given instant.
func (p *Pool) ListPopularNovels(ctx context.Context, since time.Time, limit int) ([]NovelRecord, error) {
	q := novelSelectSQL("v.views") + `
JOIN (
	SELECT novel_id, COUNT(*) AS views
	FROM webnovels.novel_views
	WHERE created_at >= $1
	GROUP BY novel_id
	ORDER BY views DESC
	LIMIT $2
) v ON v.novel_id = n.id
ORDER BY v.views DESC, n.created_at DESC
`

	rows, err := p.Query(ctx, q, since, limit)
	if err != nil {
		return nil, fmt.Errorf("query popular novels: %w", err)
	}
	defer rows.Close()

	out := make([]NovelRecord, 0, limit)
	for rows.Next() {
		var views int64
		rec, err := scanNovel(rows, &views)
		if err != nil {
			return nil, fmt.Errorf("scan popular novel row: %w", err)
		}
		rec.RecentViews = &views
		out = append(out, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate popular novel rows: %w", err)
	}
	return out, nil
}

func (p *Pool) ListTopRatedNovels(ctx context.Context, limit int) ([]NovelRecord, error) {
	q := novelSelectSQL() + `
ORDER BY n.rating DESC, n.created_at DESC
LIMIT $1
`

	rows, err := p.Query(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("query top rated novels: %w", err)
	}
	return scanNovels(rows, limit)
}

func escapeLike(raw string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(raw)
}
